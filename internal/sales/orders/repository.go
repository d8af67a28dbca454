package orders

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

var ErrNotFound = fmt.Errorf("orders: %w", httpx.ErrNotFound)

type Repository interface {
	Create(ctx context.Context, order *SalesOrder) (int64, error)
	Get(ctx context.Context, id int64) (*SalesOrder, error)
	List(ctx context.Context, req ListOrdersRequest) ([]SalesOrder, int, error)
	UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error
	ReplaceItems(ctx context.Context, id int64, items []OrderItem, subtotal, totalDiscount, totalTax, totalAmount float64) error
	MarkDispatched(ctx context.Context, id int64, items []DispatchedItem) error
	Delete(ctx context.Context, id int64) error
	LastOrderNumber(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*Stats, error)
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

func (r *repository) Create(ctx context.Context, order *SalesOrder) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO sales_orders
				(order_number, customer_id, order_date, expected_delivery_date,
				 subtotal, total_discount, total_tax, total_amount,
				 status, dispatch_status, notes, created_by, created_at, updated_at)
			VALUES ($1, $2, NOW(), $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
			RETURNING id`,
			order.OrderNumber, order.CustomerID, order.ExpectedDeliveryDate,
			order.Subtotal, order.TotalDiscount, order.TotalTax, order.TotalAmount,
			string(order.Status), string(order.DispatchStatus), order.Notes, order.CreatedBy,
		).Scan(&id)
		if err != nil {
			return err
		}
		return insertItems(ctx, tx, id, order.Items)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func insertItems(ctx context.Context, tx dbtx, orderID int64, items []OrderItem) error {
	for _, it := range items {
		_, err := tx.Exec(ctx, `
			INSERT INTO sales_order_items
				(order_id, sku_id, quantity, unit_price, discount, tax, total_amount)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			orderID, it.SKUID, it.Quantity, it.UnitPrice, it.Discount, it.Tax, it.TotalAmount)
		if err != nil {
			return err
		}
	}
	return nil
}

const orderColumns = `
	o.id, o.order_number, o.customer_id, o.order_date, o.expected_delivery_date,
	o.subtotal, o.total_discount, o.total_tax, o.total_amount,
	o.status, o.dispatch_status, o.notes,
	o.created_by, o.approved_by, o.approved_at, o.created_at, o.updated_at,
	COALESCE(c.name, ''), COALESCE(c.email, ''), COALESCE(c.phone, ''),
	COALESCE(cu.name, ''), COALESCE(cu.email, ''),
	au.name, au.email`

const orderJoins = `
	FROM sales_orders o
	LEFT JOIN customers c ON o.customer_id = c.id
	LEFT JOIN users cu ON o.created_by = cu.id
	LEFT JOIN users au ON o.approved_by = au.id`

func (r *repository) Get(ctx context.Context, id int64) (*SalesOrder, error) {
	row := r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s %s WHERE o.id = $1", orderColumns, orderJoins), id)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := r.loadItems(ctx, []*SalesOrder{order}); err != nil {
		return nil, err
	}
	if err := r.loadDispatches(ctx, []*SalesOrder{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) List(ctx context.Context, req ListOrdersRequest) ([]SalesOrder, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("o.status = $%d", argPos))
		args = append(args, string(*req.Status))
		argPos++
	}
	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("o.customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("o.order_date >= $%d", argPos))
		args = append(args, *req.StartDate)
		argPos++
	}
	if req.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("o.order_date <= $%d", argPos))
		args = append(args, *req.EndDate)
		argPos++
	}

	whereClause := ""
	for i, c := range conditions {
		if i == 0 {
			whereClause = "WHERE " + c
		} else {
			whereClause += " AND " + c
		}
	}

	var total int
	if err := r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM sales_orders o %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s %s %s ORDER BY o.created_at DESC, o.id DESC LIMIT $%d OFFSET $%d",
		orderColumns, orderJoins, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var ptrs []*SalesOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		ptrs = append(ptrs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadItems(ctx, ptrs); err != nil {
		return nil, 0, err
	}
	if err := r.loadDispatches(ctx, ptrs); err != nil {
		return nil, 0, err
	}

	items := make([]SalesOrder, len(ptrs))
	for i, p := range ptrs {
		items[i] = *p
	}
	return items, total, nil
}

func (r *repository) loadItems(ctx context.Context, orders []*SalesOrder) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]*SalesOrder, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.db.Query(ctx, `
		SELECT i.order_id, i.sku_id, i.quantity, i.unit_price, i.discount, i.tax, i.total_amount,
		       COALESCE(s.name, ''), COALESCE(s.code, ''), COALESCE(s.current_stock, 0)
		FROM sales_order_items i
		LEFT JOIN skus s ON i.sku_id = s.id
		WHERE i.order_id = ANY($1)
		ORDER BY i.id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int64
		var it OrderItem
		var unitPrice, discount, tax, totalAmount pgtype.Numeric
		var sku SKUSummary

		err := rows.Scan(&orderID, &it.SKUID, &it.Quantity, &unitPrice, &discount, &tax, &totalAmount,
			&sku.Name, &sku.Code, &sku.CurrentStock)
		if err != nil {
			return err
		}
		it.UnitPrice = numericFloat(unitPrice)
		it.Discount = numericFloat(discount)
		it.Tax = numericFloat(tax)
		it.TotalAmount = numericFloat(totalAmount)
		sku.ID = it.SKUID
		it.SKU = &sku

		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, it)
		}
	}
	return rows.Err()
}

func (r *repository) loadDispatches(ctx context.Context, orders []*SalesOrder) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]*SalesOrder, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := r.db.Query(ctx, `
		SELECT order_id, sku_id, quantity, dispatched_at
		FROM sales_order_dispatches
		WHERE order_id = ANY($1)
		ORDER BY id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID int64
		var d DispatchedItem
		var at pgtype.Timestamptz
		if err := rows.Scan(&orderID, &d.SKUID, &d.Quantity, &at); err != nil {
			return err
		}
		if at.Valid {
			d.DispatchedAt = at.Time
		}
		if o, ok := byID[orderID]; ok {
			o.DispatchedItems = append(o.DispatchedItems, d)
		}
	}
	return rows.Err()
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE sales_orders SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"customer_id", "expected_delivery_date", "notes", "status", "dispatch_status", "approved_by", "approved_at"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d", argPos)
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

func (r *repository) ReplaceItems(ctx context.Context, id int64, items []OrderItem, subtotal, totalDiscount, totalTax, totalAmount float64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM sales_order_items WHERE order_id = $1", id); err != nil {
			return err
		}
		if err := insertItems(ctx, tx, id, items); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE sales_orders
			SET subtotal = $1, total_discount = $2, total_tax = $3, total_amount = $4, updated_at = NOW()
			WHERE id = $5`,
			subtotal, totalDiscount, totalTax, totalAmount, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *repository) MarkDispatched(ctx context.Context, id int64, items []DispatchedItem) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, it := range items {
			_, err := tx.Exec(ctx, `
				INSERT INTO sales_order_dispatches (order_id, sku_id, quantity, dispatched_at)
				VALUES ($1, $2, $3, $4)`,
				id, it.SKUID, it.Quantity, it.DispatchedAt)
			if err != nil {
				return err
			}
		}
		tag, err := tx.Exec(ctx, `
			UPDATE sales_orders
			SET status = $1, dispatch_status = $2, updated_at = NOW()
			WHERE id = $3`,
			string(StatusDispatched), string(DispatchCompleted), id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM sales_order_items WHERE order_id = $1", id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, "DELETE FROM sales_orders WHERE id = $1", id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// LastOrderNumber seeds the sequence from the highest persisted number.
func (r *repository) LastOrderNumber(ctx context.Context) (int64, error) {
	var last pgtype.Int8
	err := r.db.QueryRow(ctx, `
		SELECT MAX(CAST(SPLIT_PART(order_number, '-', 2) AS BIGINT))
		FROM sales_orders`).Scan(&last)
	if err != nil {
		return 0, err
	}
	if !last.Valid {
		return 0, nil
	}
	return last.Int64, nil
}

func (r *repository) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{StatusBreakdown: []StatusCount{}}

	rows, err := r.db.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM sales_orders
		GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sc StatusCount
		var status string
		var totalAmount pgtype.Numeric
		if err := rows.Scan(&status, &sc.Count, &totalAmount); err != nil {
			return nil, err
		}
		sc.Status = Status(status)
		sc.TotalAmount = numericFloat(totalAmount)
		stats.StatusBreakdown = append(stats.StatusBreakdown, sc)
		stats.TotalOrders += sc.Count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var revenue pgtype.Numeric
	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0)
		FROM sales_orders
		WHERE status = 'delivered'`).Scan(&revenue)
	if err != nil {
		return nil, err
	}
	stats.TotalRevenue = numericFloat(revenue)
	return stats, nil
}

func scanOrder(row pgx.Row) (*SalesOrder, error) {
	var o SalesOrder
	var status, dispatchStatus string
	var orderDate, expectedDelivery, createdAt, updatedAt, approvedAt pgtype.Timestamptz
	var subtotal, totalDiscount, totalTax, totalAmount pgtype.Numeric
	var notes pgtype.Text
	var approvedBy pgtype.Int8
	var cust customers.Summary
	var createdByName, createdByEmail string
	var approvedByName, approvedByEmail pgtype.Text

	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.CustomerID, &orderDate, &expectedDelivery,
		&subtotal, &totalDiscount, &totalTax, &totalAmount,
		&status, &dispatchStatus, &notes,
		&o.CreatedBy, &approvedBy, &approvedAt, &createdAt, &updatedAt,
		&cust.Name, &cust.Email, &cust.Phone,
		&createdByName, &createdByEmail,
		&approvedByName, &approvedByEmail,
	)
	if err != nil {
		return nil, err
	}

	o.Status = Status(status)
	o.DispatchStatus = DispatchStatus(dispatchStatus)
	o.Subtotal = numericFloat(subtotal)
	o.TotalDiscount = numericFloat(totalDiscount)
	o.TotalTax = numericFloat(totalTax)
	o.TotalAmount = numericFloat(totalAmount)
	if notes.Valid {
		o.Notes = notes.String
	}
	if orderDate.Valid {
		o.OrderDate = orderDate.Time
	}
	if expectedDelivery.Valid {
		o.ExpectedDeliveryDate = expectedDelivery.Time
	}
	if createdAt.Valid {
		o.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		o.UpdatedAt = updatedAt.Time
	}

	cust.ID = o.CustomerID
	o.Customer = &cust
	o.CreatedByUser = &shared.UserSummary{ID: o.CreatedBy, Name: createdByName, Email: createdByEmail}

	if approvedBy.Valid {
		o.ApprovedBy = &approvedBy.Int64
		summary := shared.UserSummary{ID: approvedBy.Int64}
		if approvedByName.Valid {
			summary.Name = approvedByName.String
		}
		if approvedByEmail.Valid {
			summary.Email = approvedByEmail.String
		}
		o.ApprovedByUser = &summary
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		o.ApprovedAt = &t
	}
	return &o, nil
}

func numericFloat(n pgtype.Numeric) float64 {
	if !n.Valid {
		return 0
	}
	f, _ := n.Float64Value()
	return f.Float64
}
