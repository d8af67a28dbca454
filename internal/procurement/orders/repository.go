package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/db"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/httpx"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/procurement/indents"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

var ErrNotFound = fmt.Errorf("purchase orders: %w", httpx.ErrNotFound)

type Repository interface {
	Create(ctx context.Context, po *PurchaseOrder) (int64, error)
	Get(ctx context.Context, id int64) (*PurchaseOrder, error)
	List(ctx context.Context) ([]PurchaseOrder, error)
	UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error
	SetStockInStatus(ctx context.Context, id int64, status StockInStatus) error
	LastPONumber(ctx context.Context) (int64, error)
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

func (r *repository) Create(ctx context.Context, po *PurchaseOrder) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO purchase_orders
				(po_number, vendor_id, delivery_due_date, payment_days, freight,
				 status, stock_in_status, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
			RETURNING id`,
			po.PONumber, po.VendorID, po.DeliveryDueDate, po.PaymentDays, po.Freight,
			string(po.Status), string(po.StockInStatus), po.CreatedBy,
		).Scan(&id)
		if err != nil {
			return err
		}
		for _, it := range po.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO purchase_order_items (po_id, sku_id, quantity)
				VALUES ($1, $2, $3)`,
				id, it.SKUID, it.Quantity)
			if err != nil {
				return err
			}
		}
		for _, approvalID := range po.IndentApprovalIDs {
			_, err := tx.Exec(ctx, `
				INSERT INTO po_approvals (po_id, approval_id)
				VALUES ($1, $2)`,
				id, approvalID)
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

const poColumns = `
	p.id, p.po_number, p.vendor_id, p.delivery_due_date, p.payment_days, p.freight,
	p.status, p.stock_in_status, p.created_by, p.created_at, p.updated_at,
	COALESCE(v.name, ''), COALESCE(u.name, ''), COALESCE(u.email, '')`

const poJoins = `
	FROM purchase_orders p
	LEFT JOIN suppliers v ON p.vendor_id = v.id
	LEFT JOIN users u ON p.created_by = u.id`

func (r *repository) Get(ctx context.Context, id int64) (*PurchaseOrder, error) {
	row := r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s %s WHERE p.id = $1", poColumns, poJoins), id)
	po, err := scanPO(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadChildren(ctx, []*PurchaseOrder{po}); err != nil {
		return nil, err
	}
	return po, nil
}

func (r *repository) List(ctx context.Context) ([]PurchaseOrder, error) {
	rows, err := r.db.Query(ctx,
		fmt.Sprintf("SELECT %s %s ORDER BY p.created_at DESC, p.id DESC", poColumns, poJoins))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ptrs []*PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, po)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadChildren(ctx, ptrs); err != nil {
		return nil, err
	}

	items := make([]PurchaseOrder, len(ptrs))
	for i, p := range ptrs {
		items[i] = *p
	}
	return items, nil
}

func (r *repository) loadChildren(ctx context.Context, pos []*PurchaseOrder) error {
	if len(pos) == 0 {
		return nil
	}
	ids := make([]int64, len(pos))
	byID := make(map[int64]*PurchaseOrder, len(pos))
	for i, po := range pos {
		ids[i] = po.ID
		byID[po.ID] = po
	}

	rows, err := r.db.Query(ctx, `
		SELECT pi.po_id, pi.sku_id, pi.quantity, COALESCE(s.name, ''), COALESCE(s.code, '')
		FROM purchase_order_items pi
		LEFT JOIN skus s ON pi.sku_id = s.id
		WHERE pi.po_id = ANY($1)
		ORDER BY pi.id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var poID int64
		var it POItem
		var sku indents.SKUSummary
		if err := rows.Scan(&poID, &it.SKUID, &it.Quantity, &sku.Name, &sku.Code); err != nil {
			return err
		}
		sku.ID = it.SKUID
		it.SKU = &sku
		if po, ok := byID[poID]; ok {
			po.Items = append(po.Items, it)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	links, err := r.db.Query(ctx, `
		SELECT po_id, approval_id
		FROM po_approvals
		WHERE po_id = ANY($1)
		ORDER BY id`, ids)
	if err != nil {
		return err
	}
	defer links.Close()

	for links.Next() {
		var poID, approvalID int64
		if err := links.Scan(&poID, &approvalID); err != nil {
			return err
		}
		if po, ok := byID[poID]; ok {
			po.IndentApprovalIDs = append(po.IndentApprovalIDs, approvalID)
		}
	}
	return links.Err()
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	allowed := []string{"status", "delivery_due_date", "payment_days", "freight"}

	query := "UPDATE purchase_orders SET updated_at = NOW()"
	args := []interface{}{}
	n := 1
	for _, col := range allowed {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, n)
			args = append(args, v)
			n++
		}
	}
	query += fmt.Sprintf(" WHERE id = $%d", n)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetStockInStatus(ctx context.Context, id int64, status StockInStatus) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE purchase_orders SET stock_in_status = $1, updated_at = NOW() WHERE id = $2",
		string(status), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LastPONumber seeds the sequence from the highest persisted number.
func (r *repository) LastPONumber(ctx context.Context) (int64, error) {
	var last pgtype.Int8
	err := r.db.QueryRow(ctx, "SELECT MAX(po_number) FROM purchase_orders").Scan(&last)
	if err != nil {
		return 0, err
	}
	if !last.Valid {
		return 0, nil
	}
	return last.Int64, nil
}

func scanPO(row pgx.Row) (*PurchaseOrder, error) {
	var po PurchaseOrder
	var dueDate pgtype.Timestamptz
	var status, stockInStatus string
	var createdAt, updatedAt pgtype.Timestamptz
	var vendorName, createdByName, createdByEmail string

	err := row.Scan(&po.ID, &po.PONumber, &po.VendorID, &dueDate, &po.PaymentDays, &po.Freight,
		&status, &stockInStatus, &po.CreatedBy, &createdAt, &updatedAt,
		&vendorName, &createdByName, &createdByEmail)
	if err != nil {
		return nil, err
	}

	po.Status = Status(status)
	po.StockInStatus = StockInStatus(stockInStatus)
	if dueDate.Valid {
		po.DeliveryDueDate = &dueDate.Time
	}
	if createdAt.Valid {
		po.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		po.UpdatedAt = updatedAt.Time
	}
	po.Vendor = &VendorSummary{ID: po.VendorID, Name: vendorName}
	po.CreatedByUser = &shared.UserSummary{ID: po.CreatedBy, Name: createdByName, Email: createdByEmail}
	return &po, nil
}
