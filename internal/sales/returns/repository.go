package returns

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/customers"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/db"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/httpx"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

var ErrNotFound = fmt.Errorf("returns: %w", httpx.ErrNotFound)

type Repository interface {
	Create(ctx context.Context, ret *SalesReturn) (int64, error)
	Get(ctx context.Context, id int64) (*SalesReturn, error)
	List(ctx context.Context, req ListReturnsRequest) ([]SalesReturn, int, error)
	SetProcessed(ctx context.Context, id int64, status Status, processedBy int64) error
	LastReturnNumber(ctx context.Context) (int64, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) Create(ctx context.Context, ret *SalesReturn) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO sales_returns
				(return_number, sales_order_id, customer_id, return_date, reason,
				 action_required, total_amount, status, notes, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
			RETURNING id`,
			ret.ReturnNumber, ret.SalesOrderID, ret.CustomerID, ret.ReturnDate, string(ret.Reason),
			string(ret.ActionRequired), ret.TotalAmount, string(ret.Status), ret.Notes, ret.CreatedBy,
		).Scan(&id)
		if err != nil {
			return err
		}
		for _, it := range ret.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO sales_return_items
					(return_id, sku_id, quantity, unit_price, total_amount)
				VALUES ($1, $2, $3, $4, $5)`,
				id, it.SKUID, it.Quantity, it.UnitPrice, it.TotalAmount)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

const returnColumns = `
	r.id, r.return_number, r.sales_order_id, r.customer_id, r.return_date,
	r.reason, r.action_required, r.total_amount, r.status, r.notes,
	r.created_by, r.processed_by, r.processed_at, r.created_at, r.updated_at,
	o.order_number,
	COALESCE(c.name, ''), COALESCE(c.email, ''), COALESCE(c.phone, ''),
	pu.name, pu.email`

const returnJoins = `
	FROM sales_returns r
	LEFT JOIN sales_orders o ON r.sales_order_id = o.id
	LEFT JOIN customers c ON r.customer_id = c.id
	LEFT JOIN users pu ON r.processed_by = pu.id`

func (r *repository) Get(ctx context.Context, id int64) (*SalesReturn, error) {
	row := r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s %s WHERE r.id = $1", returnColumns, returnJoins), id)
	ret, err := scanReturn(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadItems(ctx, []*SalesReturn{ret}); err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *repository) List(ctx context.Context, req ListReturnsRequest) ([]SalesReturn, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM sales_returns").Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY r.created_at DESC, r.id DESC LIMIT $1 OFFSET $2",
		returnColumns, returnJoins)
	rows, err := r.db.Query(ctx, query, req.Limit, req.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var ptrs []*SalesReturn
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, 0, err
		}
		ptrs = append(ptrs, ret)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadItems(ctx, ptrs); err != nil {
		return nil, 0, err
	}

	items := make([]SalesReturn, len(ptrs))
	for i, p := range ptrs {
		items[i] = *p
	}
	return items, total, nil
}

func (r *repository) loadItems(ctx context.Context, rets []*SalesReturn) error {
	if len(rets) == 0 {
		return nil
	}
	ids := make([]int64, len(rets))
	byID := make(map[int64]*SalesReturn, len(rets))
	for i, ret := range rets {
		ids[i] = ret.ID
		byID[ret.ID] = ret
	}

	rows, err := r.db.Query(ctx, `
		SELECT ri.return_id, ri.sku_id, ri.quantity, ri.unit_price, ri.total_amount,
		       COALESCE(s.name, ''), COALESCE(s.code, '')
		FROM sales_return_items ri
		LEFT JOIN skus s ON ri.sku_id = s.id
		WHERE ri.return_id = ANY($1)
		ORDER BY ri.id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var returnID int64
		var it ReturnItem
		var unitPrice, totalAmount pgtype.Numeric
		var sku SKUSummary

		err := rows.Scan(&returnID, &it.SKUID, &it.Quantity, &unitPrice, &totalAmount, &sku.Name, &sku.Code)
		if err != nil {
			return err
		}
		it.UnitPrice = numericFloat(unitPrice)
		it.TotalAmount = numericFloat(totalAmount)
		sku.ID = it.SKUID
		it.SKU = &sku

		if ret, ok := byID[returnID]; ok {
			ret.Items = append(ret.Items, it)
		}
	}
	return rows.Err()
}

func (r *repository) SetProcessed(ctx context.Context, id int64, status Status, processedBy int64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sales_returns
		SET status = $1, processed_by = $2, processed_at = NOW(), updated_at = NOW()
		WHERE id = $3`,
		string(status), processedBy, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LastReturnNumber seeds the sequence from the highest persisted number.
func (r *repository) LastReturnNumber(ctx context.Context) (int64, error) {
	var last pgtype.Int8
	err := r.db.QueryRow(ctx, `
		SELECT MAX(CAST(SPLIT_PART(return_number, '-', 2) AS BIGINT))
		FROM sales_returns`).Scan(&last)
	if err != nil {
		return 0, err
	}
	if !last.Valid {
		return 0, nil
	}
	return last.Int64, nil
}

func scanReturn(row pgx.Row) (*SalesReturn, error) {
	var ret SalesReturn
	var reason, action, status string
	var returnDate, processedAt, createdAt, updatedAt pgtype.Timestamptz
	var totalAmount pgtype.Numeric
	var notes, orderNumber pgtype.Text
	var processedBy pgtype.Int8
	var cust customers.Summary
	var processedByName, processedByEmail pgtype.Text

	err := row.Scan(
		&ret.ID, &ret.ReturnNumber, &ret.SalesOrderID, &ret.CustomerID, &returnDate,
		&reason, &action, &totalAmount, &status, &notes,
		&ret.CreatedBy, &processedBy, &processedAt, &createdAt, &updatedAt,
		&orderNumber,
		&cust.Name, &cust.Email, &cust.Phone,
		&processedByName, &processedByEmail,
	)
	if err != nil {
		return nil, err
	}

	ret.Reason = Reason(reason)
	ret.ActionRequired = Action(action)
	ret.Status = Status(status)
	ret.TotalAmount = numericFloat(totalAmount)
	if notes.Valid {
		ret.Notes = notes.String
	}
	if returnDate.Valid {
		ret.ReturnDate = returnDate.Time
	}
	if createdAt.Valid {
		ret.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		ret.UpdatedAt = updatedAt.Time
	}

	if orderNumber.Valid {
		ret.SalesOrder = &OrderSummary{ID: ret.SalesOrderID, OrderNumber: orderNumber.String}
	}
	cust.ID = ret.CustomerID
	ret.Customer = &cust

	if processedBy.Valid {
		ret.ProcessedBy = &processedBy.Int64
		summary := shared.UserSummary{ID: processedBy.Int64}
		if processedByName.Valid {
			summary.Name = processedByName.String
		}
		if processedByEmail.Valid {
			summary.Email = processedByEmail.String
		}
		ret.ProcessedByUser = &summary
	}
	if processedAt.Valid {
		t := processedAt.Time
		ret.ProcessedAt = &t
	}
	return &ret, nil
}

func numericFloat(n pgtype.Numeric) float64 {
	if !n.Valid {
		return 0
	}
	f, _ := n.Float64Value()
	return f.Float64
}
