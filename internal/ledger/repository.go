package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/db"
)

// SKUSummary is the populated sku object embedded in listings.
type SKUSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// TransactionDetail is a ledger entry with its populated sku.
type TransactionDetail struct {
	Transaction
	SKU SKUSummary `json:"skuDetail"`
}

// TxRepository exposes the transactional operations used by Service.
type TxRepository interface {
	// AdjustStock applies signed deltas to a SKU's counters in one statement.
	// With guard set, the update only applies when current_stock covers the
	// outbound quantity; a guarded miss surfaces as ErrInsufficientStock.
	AdjustStock(ctx context.Context, skuID int64, currentDelta, reservedDelta int, guard bool) error
	InsertTransaction(ctx context.Context, txn Transaction) (int64, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{db: tx})
	})
}

type txRepo struct {
	db dbtx
}

func (r *txRepo) AdjustStock(ctx context.Context, skuID int64, currentDelta, reservedDelta int, guard bool) error {
	query := `
		UPDATE skus
		SET current_stock = current_stock + $1,
		    reserved_stock = reserved_stock + $2,
		    updated_at = NOW()
		WHERE id = $3`
	args := []interface{}{currentDelta, reservedDelta, skuID}
	if guard {
		query += " AND current_stock >= $4"
		args = append(args, -currentDelta)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ledger: adjust stock: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Distinguish a missing SKU from a failed sufficiency check.
	var exists bool
	if err := r.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM skus WHERE id = $1)", skuID).Scan(&exists); err != nil {
		return fmt.Errorf("ledger: check sku: %w", err)
	}
	if !exists {
		return ErrSKUNotFound
	}
	return ErrInsufficientStock
}

func (r *txRepo) InsertTransaction(ctx context.Context, txn Transaction) (int64, error) {
	if txn.Code == "" {
		txn.Code = uuid.NewString()
	}
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO transactions
			(transaction_code, tx_type, sku_id, quantity, unit_price, total_amount,
			 reference_type, reference_id, status, notes, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING id`,
		txn.Code, string(txn.Type), txn.SKUID, txn.Quantity, txn.UnitPrice, txn.TotalAmount,
		string(txn.Reference.Kind), txn.Reference.ID, string(txn.Status),
		txn.Notes, txn.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SetStatusByReference updates the status of every entry linked to ref.
func (r *Repository) SetStatusByReference(ctx context.Context, ref Reference, status TransactionStatus) error {
	_, err := r.db.Exec(ctx,
		"UPDATE transactions SET status = $1 WHERE reference_type = $2 AND reference_id = $3",
		string(status), string(ref.Kind), ref.ID)
	return err
}

// DeleteByReference removes the entries linked to ref.
func (r *Repository) DeleteByReference(ctx context.Context, ref Reference) error {
	_, err := r.db.Exec(ctx,
		"DELETE FROM transactions WHERE reference_type = $1 AND reference_id = $2",
		string(ref.Kind), ref.ID)
	return err
}

// List returns ledger entries newest first with their populated sku.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]TransactionDetail, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("t.tx_type = $%d", argPos))
		args = append(args, string(*filter.Type))
		argPos++
	}
	if filter.SKUID != nil {
		conditions = append(conditions, fmt.Sprintf("t.sku_id = $%d", argPos))
		args = append(args, *filter.SKUID)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + conditions[0]
		for i := 1; i < len(conditions); i++ {
			whereClause += " AND " + conditions[i]
		}
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions t %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT t.id, t.transaction_code, t.tx_type, t.sku_id, t.quantity, t.unit_price, t.total_amount,
		       t.reference_type, t.reference_id, t.status, t.notes, t.created_by, t.created_at,
		       COALESCE(s.name, ''), COALESCE(s.code, '')
		FROM transactions t
		LEFT JOIN skus s ON t.sku_id = s.id
		%s
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []TransactionDetail
	for rows.Next() {
		var e TransactionDetail
		var unitPrice, totalAmount pgtype.Numeric
		var notes pgtype.Text
		var createdAt pgtype.Timestamptz
		var refType, status, txType string

		err := rows.Scan(
			&e.ID, &e.Code, &txType, &e.SKUID, &e.Quantity, &unitPrice, &totalAmount,
			&refType, &e.Reference.ID, &status, &notes, &e.CreatedBy, &createdAt,
			&e.SKU.Name, &e.SKU.Code,
		)
		if err != nil {
			return nil, 0, err
		}

		e.Type = TransactionType(txType)
		e.Reference.Kind = ReferenceKind(refType)
		e.Status = TransactionStatus(status)
		e.SKU.ID = e.SKUID
		if unitPrice.Valid {
			f, _ := unitPrice.Float64Value()
			e.UnitPrice = f.Float64
		}
		if totalAmount.Valid {
			f, _ := totalAmount.Float64Value()
			e.TotalAmount = f.Float64
		}
		if notes.Valid {
			e.Notes = notes.String
		}
		if createdAt.Valid {
			e.CreatedAt = createdAt.Time
		} else {
			e.CreatedAt = time.Time{}
		}

		entries = append(entries, e)
	}

	return entries, total, rows.Err()
}
