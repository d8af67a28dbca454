package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/masterdata/customers"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/db"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/httpx"
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

var ErrNotFound = fmt.Errorf("invoices: %w", httpx.ErrNotFound)

type Repository interface {
	Create(ctx context.Context, inv *Invoice) (int64, error)
	Get(ctx context.Context, id int64) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
	UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	LastInvoiceNumber(ctx context.Context) (int64, error)
	Stats(ctx context.Context, now time.Time) (*Stats, error)
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
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

func (r *repository) Create(ctx context.Context, inv *Invoice) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO invoices
				(invoice_number, sales_order_id, customer_id, invoice_date, due_date,
				 subtotal, total_discount, total_tax, total_amount, paid_amount,
				 status, payment_terms, notes, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), $4, $5, $6, $7, $8, 0, $9, $10, $11, $12, NOW(), NOW())
			RETURNING id`,
			inv.InvoiceNumber, inv.SalesOrderID, inv.CustomerID, inv.DueDate,
			inv.Subtotal, inv.TotalDiscount, inv.TotalTax, inv.TotalAmount,
			string(inv.Status), inv.PaymentTerms, inv.Notes, inv.CreatedBy,
		).Scan(&id)
		if err != nil {
			return err
		}
		for _, it := range inv.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO invoice_items
					(invoice_id, sku_id, quantity, unit_price, discount, tax, total_amount)
				VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				id, it.SKUID, it.Quantity, it.UnitPrice, it.Discount, it.Tax, it.TotalAmount)
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

const invoiceColumns = `
	i.id, i.invoice_number, i.sales_order_id, i.customer_id, i.invoice_date, i.due_date,
	i.subtotal, i.total_discount, i.total_tax, i.total_amount, i.paid_amount,
	i.status, i.payment_terms, i.notes, i.created_by, i.created_at, i.updated_at,
	COALESCE(c.name, ''), COALESCE(c.email, ''), COALESCE(c.phone, ''),
	o.order_number,
	COALESCE(u.name, ''), COALESCE(u.email, '')`

const invoiceJoins = `
	FROM invoices i
	LEFT JOIN customers c ON i.customer_id = c.id
	LEFT JOIN sales_orders o ON i.sales_order_id = o.id
	LEFT JOIN users u ON i.created_by = u.id`

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	row := r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s %s WHERE i.id = $1", invoiceColumns, invoiceJoins), id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadItems(ctx, []*Invoice{inv}); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repository) List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", argPos))
		args = append(args, string(*req.Status))
		argPos++
	}
	if req.CustomerID != nil {
		conditions = append(conditions, fmt.Sprintf("i.customer_id = $%d", argPos))
		args = append(args, *req.CustomerID)
		argPos++
	}
	if req.StartDate != nil {
		conditions = append(conditions, fmt.Sprintf("i.invoice_date >= $%d", argPos))
		args = append(args, *req.StartDate)
		argPos++
	}
	if req.EndDate != nil {
		conditions = append(conditions, fmt.Sprintf("i.invoice_date <= $%d", argPos))
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
		fmt.Sprintf("SELECT COUNT(*) FROM invoices i %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s %s %s ORDER BY i.created_at DESC, i.id DESC LIMIT $%d OFFSET $%d",
		invoiceColumns, invoiceJoins, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var ptrs []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		ptrs = append(ptrs, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.loadItems(ctx, ptrs); err != nil {
		return nil, 0, err
	}

	items := make([]Invoice, len(ptrs))
	for i, p := range ptrs {
		items[i] = *p
	}
	return items, total, nil
}

func (r *repository) loadItems(ctx context.Context, invs []*Invoice) error {
	if len(invs) == 0 {
		return nil
	}
	ids := make([]int64, len(invs))
	byID := make(map[int64]*Invoice, len(invs))
	for i, inv := range invs {
		ids[i] = inv.ID
		byID[inv.ID] = inv
	}

	rows, err := r.db.Query(ctx, `
		SELECT ii.invoice_id, ii.sku_id, ii.quantity, ii.unit_price, ii.discount, ii.tax, ii.total_amount,
		       COALESCE(s.name, ''), COALESCE(s.code, '')
		FROM invoice_items ii
		LEFT JOIN skus s ON ii.sku_id = s.id
		WHERE ii.invoice_id = ANY($1)
		ORDER BY ii.id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var invoiceID int64
		var it InvoiceItem
		var unitPrice, discount, tax, totalAmount pgtype.Numeric
		var sku SKUSummary

		err := rows.Scan(&invoiceID, &it.SKUID, &it.Quantity, &unitPrice, &discount, &tax, &totalAmount,
			&sku.Name, &sku.Code)
		if err != nil {
			return err
		}
		it.UnitPrice = numericFloat(unitPrice)
		it.Discount = numericFloat(discount)
		it.Tax = numericFloat(tax)
		it.TotalAmount = numericFloat(totalAmount)
		sku.ID = it.SKUID
		it.SKU = &sku

		if inv, ok := byID[invoiceID]; ok {
			inv.Items = append(inv.Items, it)
		}
	}
	return rows.Err()
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE invoices SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"status", "paid_amount", "due_date", "payment_terms", "notes"} {
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

func (r *repository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM invoice_items WHERE invoice_id = $1", id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, "DELETE FROM invoices WHERE id = $1", id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// LastInvoiceNumber seeds the sequence from the highest persisted number.
func (r *repository) LastInvoiceNumber(ctx context.Context) (int64, error) {
	var last pgtype.Int8
	err := r.db.QueryRow(ctx, `
		SELECT MAX(CAST(SPLIT_PART(invoice_number, '-', 2) AS BIGINT))
		FROM invoices`).Scan(&last)
	if err != nil {
		return 0, err
	}
	if !last.Valid {
		return 0, nil
	}
	return last.Int64, nil
}

func (r *repository) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	stats := &Stats{StatusBreakdown: []StatusCount{}}

	rows, err := r.db.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0), COALESCE(SUM(paid_amount), 0)
		FROM invoices
		GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sc StatusCount
		var status string
		var totalAmount, totalPaid pgtype.Numeric
		if err := rows.Scan(&status, &sc.Count, &totalAmount, &totalPaid); err != nil {
			return nil, err
		}
		sc.Status = Status(status)
		sc.TotalAmount = numericFloat(totalAmount)
		sc.TotalPaid = numericFloat(totalPaid)
		stats.StatusBreakdown = append(stats.StatusBreakdown, sc)
		stats.TotalInvoices += sc.Count
		stats.TotalRevenue += sc.TotalPaid
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM invoices
		WHERE due_date < $1 AND status IN ('sent', 'partially_paid')`, now).Scan(&stats.OverdueInvoices)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// MarkOverdue flips every past-due open invoice to overdue and reports how
// many rows changed.
func (r *repository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE invoices
		SET status = 'overdue', updated_at = NOW()
		WHERE due_date < $1 AND status IN ('sent', 'partially_paid')`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var status string
	var salesOrderID pgtype.Int8
	var invoiceDate, dueDate, createdAt, updatedAt pgtype.Timestamptz
	var subtotal, totalDiscount, totalTax, totalAmount, paidAmount pgtype.Numeric
	var paymentTerms, notes, orderNumber pgtype.Text
	var cust customers.Summary
	var createdByName, createdByEmail string

	err := row.Scan(
		&inv.ID, &inv.InvoiceNumber, &salesOrderID, &inv.CustomerID, &invoiceDate, &dueDate,
		&subtotal, &totalDiscount, &totalTax, &totalAmount, &paidAmount,
		&status, &paymentTerms, &notes, &inv.CreatedBy, &createdAt, &updatedAt,
		&cust.Name, &cust.Email, &cust.Phone,
		&orderNumber,
		&createdByName, &createdByEmail,
	)
	if err != nil {
		return nil, err
	}

	inv.Status = Status(status)
	inv.Subtotal = numericFloat(subtotal)
	inv.TotalDiscount = numericFloat(totalDiscount)
	inv.TotalTax = numericFloat(totalTax)
	inv.TotalAmount = numericFloat(totalAmount)
	inv.PaidAmount = numericFloat(paidAmount)
	if paymentTerms.Valid {
		inv.PaymentTerms = paymentTerms.String
	}
	if notes.Valid {
		inv.Notes = notes.String
	}
	if invoiceDate.Valid {
		inv.InvoiceDate = invoiceDate.Time
	}
	if dueDate.Valid {
		inv.DueDate = dueDate.Time
	}
	if createdAt.Valid {
		inv.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		inv.UpdatedAt = updatedAt.Time
	}

	if salesOrderID.Valid {
		inv.SalesOrderID = &salesOrderID.Int64
		summary := OrderSummary{ID: salesOrderID.Int64}
		if orderNumber.Valid {
			summary.OrderNumber = orderNumber.String
		}
		inv.SalesOrder = &summary
	}

	cust.ID = inv.CustomerID
	inv.Customer = &cust
	inv.CreatedByUser = &shared.UserSummary{ID: inv.CreatedBy, Name: createdByName, Email: createdByEmail}
	return &inv, nil
}

func numericFloat(n pgtype.Numeric) float64 {
	if !n.Valid {
		return 0
	}
	f, _ := n.Float64Value()
	return f.Float64
}
