package indents

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
	"github.com/finamite03/imsBackupWithAllFeatures/internal/shared"
)

var ErrNotFound = fmt.Errorf("indents: %w", httpx.ErrNotFound)

type Repository interface {
	Create(ctx context.Context, indent *PurchaseIndent) (int64, error)
	Get(ctx context.Context, id int64) (*PurchaseIndent, error)
	List(ctx context.Context, status *Status) ([]PurchaseIndent, error)
	ReplaceItems(ctx context.Context, id int64, items []IndentItem) error
	SetStatus(ctx context.Context, id int64, status Status, approvedBy *int64) error
	LastIndentID(ctx context.Context) (int64, error)

	CreateApproval(ctx context.Context, approval *Approval) (int64, error)
	GetApproval(ctx context.Context, id int64) (*Approval, error)
	ListApprovals(ctx context.Context, status *ApprovalStatus) ([]Approval, error)
	SetApprovalStatus(ctx context.Context, ids []int64, status ApprovalStatus) error
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

func (r *repository) Create(ctx context.Context, indent *PurchaseIndent) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO purchase_indents (indent_id, status, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), NOW())
			RETURNING id`,
			indent.IndentID, string(indent.Status), indent.CreatedBy,
		).Scan(&id)
		if err != nil {
			return err
		}
		return insertIndentItems(ctx, tx, "purchase_indent_items", "indent_id", id, indent.Items)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func insertIndentItems(ctx context.Context, tx dbtx, table, fk string, ownerID int64, items []IndentItem) error {
	for _, it := range items {
		_, err := tx.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (%s, sku_id, quantity, vendor_id)
			VALUES ($1, $2, $3, $4)`, table, fk),
			ownerID, it.SKUID, it.Quantity, it.VendorID)
		if err != nil {
			return err
		}
	}
	return nil
}

const indentColumns = `
	i.id, i.indent_id, i.status, i.created_by, i.approved_by, i.created_at, i.updated_at,
	COALESCE(u.name, ''), COALESCE(u.email, '')`

const indentJoins = `
	FROM purchase_indents i
	LEFT JOIN users u ON i.created_by = u.id`

func (r *repository) Get(ctx context.Context, id int64) (*PurchaseIndent, error) {
	row := r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s %s WHERE i.id = $1", indentColumns, indentJoins), id)
	indent, err := scanIndent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadIndentItems(ctx, []*PurchaseIndent{indent}); err != nil {
		return nil, err
	}
	return indent, nil
}

func (r *repository) List(ctx context.Context, status *Status) ([]PurchaseIndent, error) {
	query := fmt.Sprintf("SELECT %s %s", indentColumns, indentJoins)
	var args []interface{}
	if status != nil {
		query += " WHERE i.status = $1"
		args = append(args, string(*status))
	}
	query += " ORDER BY i.created_at DESC, i.id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ptrs []*PurchaseIndent
	for rows.Next() {
		indent, err := scanIndent(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, indent)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadIndentItems(ctx, ptrs); err != nil {
		return nil, err
	}

	items := make([]PurchaseIndent, len(ptrs))
	for i, p := range ptrs {
		items[i] = *p
	}
	return items, nil
}

func (r *repository) loadIndentItems(ctx context.Context, indents []*PurchaseIndent) error {
	if len(indents) == 0 {
		return nil
	}
	ids := make([]int64, len(indents))
	byID := make(map[int64]*PurchaseIndent, len(indents))
	for i, ind := range indents {
		ids[i] = ind.ID
		byID[ind.ID] = ind
	}

	rows, err := r.db.Query(ctx, `
		SELECT ii.indent_id, ii.sku_id, ii.quantity, ii.vendor_id,
		       COALESCE(s.name, ''), COALESCE(s.code, ''), sp.name
		FROM purchase_indent_items ii
		LEFT JOIN skus s ON ii.sku_id = s.id
		LEFT JOIN suppliers sp ON ii.vendor_id = sp.id
		WHERE ii.indent_id = ANY($1)
		ORDER BY ii.id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var ownerID int64
		it, err := scanIndentItem(rows, &ownerID)
		if err != nil {
			return err
		}
		if ind, ok := byID[ownerID]; ok {
			ind.Items = append(ind.Items, *it)
		}
	}
	return rows.Err()
}

func scanIndentItem(row pgx.Row, ownerID *int64) (*IndentItem, error) {
	var it IndentItem
	var vendorID pgtype.Int8
	var sku SKUSummary
	var vendorName pgtype.Text

	err := row.Scan(ownerID, &it.SKUID, &it.Quantity, &vendorID, &sku.Name, &sku.Code, &vendorName)
	if err != nil {
		return nil, err
	}
	sku.ID = it.SKUID
	it.SKU = &sku
	if vendorID.Valid {
		it.VendorID = &vendorID.Int64
		vendor := VendorSummary{ID: vendorID.Int64}
		if vendorName.Valid {
			vendor.Name = vendorName.String
		}
		it.Vendor = &vendor
	}
	return &it, nil
}

func (r *repository) ReplaceItems(ctx context.Context, id int64, items []IndentItem) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM purchase_indent_items WHERE indent_id = $1", id); err != nil {
			return err
		}
		if err := insertIndentItems(ctx, tx, "purchase_indent_items", "indent_id", id, items); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, "UPDATE purchase_indents SET updated_at = NOW() WHERE id = $1", id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *repository) SetStatus(ctx context.Context, id int64, status Status, approvedBy *int64) error {
	query := "UPDATE purchase_indents SET status = $1, updated_at = NOW()"
	args := []interface{}{string(status)}
	if approvedBy != nil {
		query += ", approved_by = $2 WHERE id = $3"
		args = append(args, *approvedBy, id)
	} else {
		query += " WHERE id = $2"
		args = append(args, id)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LastIndentID seeds the sequence from the highest persisted indent number.
func (r *repository) LastIndentID(ctx context.Context) (int64, error) {
	var last pgtype.Int8
	err := r.db.QueryRow(ctx, "SELECT MAX(indent_id) FROM purchase_indents").Scan(&last)
	if err != nil {
		return 0, err
	}
	if !last.Valid {
		return 0, nil
	}
	return last.Int64, nil
}

func (r *repository) CreateApproval(ctx context.Context, approval *Approval) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO indent_approvals
				(indent_ref, indent_id, status, approved_by, approval_remarks, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			RETURNING id`,
			approval.IndentRef, approval.IndentID, string(approval.Status),
			approval.ApprovedBy, approval.ApprovalRemarks,
		).Scan(&id)
		if err != nil {
			return err
		}
		return insertIndentItems(ctx, tx, "indent_approval_items", "approval_id", id, approval.Items)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

const approvalColumns = `
	a.id, a.indent_ref, a.indent_id, a.status, a.approved_by, a.approval_remarks,
	a.created_at, a.updated_at,
	COALESCE(u.name, ''), COALESCE(u.email, '')`

const approvalJoins = `
	FROM indent_approvals a
	LEFT JOIN users u ON a.approved_by = u.id`

func (r *repository) GetApproval(ctx context.Context, id int64) (*Approval, error) {
	row := r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s %s WHERE a.id = $1", approvalColumns, approvalJoins), id)
	approval, err := scanApproval(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := r.loadApprovalItems(ctx, []*Approval{approval}); err != nil {
		return nil, err
	}
	return approval, nil
}

func (r *repository) ListApprovals(ctx context.Context, status *ApprovalStatus) ([]Approval, error) {
	query := fmt.Sprintf("SELECT %s %s", approvalColumns, approvalJoins)
	var args []interface{}
	if status != nil {
		query += " WHERE a.status = $1"
		args = append(args, string(*status))
	}
	query += " ORDER BY a.created_at DESC, a.id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ptrs []*Approval
	for rows.Next() {
		approval, err := scanApproval(rows)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, approval)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadApprovalItems(ctx, ptrs); err != nil {
		return nil, err
	}

	items := make([]Approval, len(ptrs))
	for i, p := range ptrs {
		items[i] = *p
	}
	return items, nil
}

func (r *repository) loadApprovalItems(ctx context.Context, approvals []*Approval) error {
	if len(approvals) == 0 {
		return nil
	}
	ids := make([]int64, len(approvals))
	byID := make(map[int64]*Approval, len(approvals))
	for i, a := range approvals {
		ids[i] = a.ID
		byID[a.ID] = a
	}

	rows, err := r.db.Query(ctx, `
		SELECT ai.approval_id, ai.sku_id, ai.quantity, ai.vendor_id,
		       COALESCE(s.name, ''), COALESCE(s.code, ''), sp.name
		FROM indent_approval_items ai
		LEFT JOIN skus s ON ai.sku_id = s.id
		LEFT JOIN suppliers sp ON ai.vendor_id = sp.id
		WHERE ai.approval_id = ANY($1)
		ORDER BY ai.id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var ownerID int64
		it, err := scanIndentItem(rows, &ownerID)
		if err != nil {
			return err
		}
		if a, ok := byID[ownerID]; ok {
			a.Items = append(a.Items, *it)
		}
	}
	return rows.Err()
}

func (r *repository) SetApprovalStatus(ctx context.Context, ids []int64, status ApprovalStatus) error {
	_, err := r.db.Exec(ctx,
		"UPDATE indent_approvals SET status = $1, updated_at = NOW() WHERE id = ANY($2)",
		string(status), ids)
	return err
}

func scanIndent(row pgx.Row) (*PurchaseIndent, error) {
	var ind PurchaseIndent
	var status string
	var approvedBy pgtype.Int8
	var createdAt, updatedAt pgtype.Timestamptz
	var createdByName, createdByEmail string

	err := row.Scan(&ind.ID, &ind.IndentID, &status, &ind.CreatedBy, &approvedBy,
		&createdAt, &updatedAt, &createdByName, &createdByEmail)
	if err != nil {
		return nil, err
	}

	ind.Status = Status(status)
	if approvedBy.Valid {
		ind.ApprovedBy = &approvedBy.Int64
	}
	if createdAt.Valid {
		ind.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		ind.UpdatedAt = updatedAt.Time
	}
	ind.CreatedByUser = &shared.UserSummary{ID: ind.CreatedBy, Name: createdByName, Email: createdByEmail}
	return &ind, nil
}

func scanApproval(row pgx.Row) (*Approval, error) {
	var a Approval
	var status string
	var remarks pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz
	var approvedByName, approvedByEmail string

	err := row.Scan(&a.ID, &a.IndentRef, &a.IndentID, &status, &a.ApprovedBy, &remarks,
		&createdAt, &updatedAt, &approvedByName, &approvedByEmail)
	if err != nil {
		return nil, err
	}

	a.Status = ApprovalStatus(status)
	if remarks.Valid {
		a.ApprovalRemarks = remarks.String
	}
	if createdAt.Valid {
		a.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		a.UpdatedAt = updatedAt.Time
	}
	a.ApprovedByUser = &shared.UserSummary{ID: a.ApprovedBy, Name: approvedByName, Email: approvedByEmail}
	return &a, nil
}
