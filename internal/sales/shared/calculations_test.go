package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineTotal(t *testing.T) {
	require.Equal(t, 100.0, LineTotal(10, 10, 0, 0))
	require.Equal(t, 95.0, LineTotal(10, 10, 5, 0))
	require.Equal(t, 113.0, LineTotal(10, 10, 5, 18))
}

func TestLineTotalAvoidsFloatDrift(t *testing.T) {
	// 3 * 0.1 in float64 is 0.30000000000000004.
	require.Equal(t, 0.3, LineTotal(3, 0.1, 0, 0))
}

func TestSumTotals(t *testing.T) {
	require.Equal(t, 0.0, SumTotals(nil))
	require.Equal(t, 0.3, SumTotals([]float64{0.1, 0.1, 0.1}))
	require.Equal(t, 150.5, SumTotals([]float64{100.25, 50.25}))
}

func TestOutstanding(t *testing.T) {
	require.Equal(t, 40.0, Outstanding(100, 60))
	require.Equal(t, 0.0, Outstanding(100, 100))
	require.Equal(t, 0.0, Outstanding(100, 120))
}
