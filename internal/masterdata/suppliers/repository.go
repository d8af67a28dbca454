package suppliers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finamite03/imsBackupWithAllFeatures/internal/platform/httpx"
)

var ErrNotFound = fmt.Errorf("suppliers: %w", httpx.ErrNotFound)

type Repository interface {
	Get(ctx context.Context, id int64) (*Supplier, error)
	List(ctx context.Context, req ListSuppliersRequest) ([]Supplier, int, error)
	Create(ctx context.Context, sp Supplier) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const supplierColumns = "id, name, email, phone, address, gstin, contact_person, created_at, updated_at"

func (r *repository) Get(ctx context.Context, id int64) (*Supplier, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM suppliers WHERE id = $1", supplierColumns), id)
	sp, err := scanSupplier(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sp, nil
}

func (r *repository) List(ctx context.Context, req ListSuppliersRequest) ([]Supplier, int, error) {
	whereClause := ""
	var args []interface{}
	argPos := 1

	if req.Search != nil && *req.Search != "" {
		whereClause = fmt.Sprintf("WHERE (name ILIKE $%d OR email ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+*req.Search+"%")
		argPos++
	}

	var total int
	if err := r.db.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM suppliers %s", whereClause), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM suppliers %s ORDER BY name LIMIT $%d OFFSET $%d",
		supplierColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []Supplier
	for rows.Next() {
		sp, err := scanSupplier(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *sp)
	}
	return items, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, sp Supplier) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO suppliers (name, email, phone, address, gstin, contact_person, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id`,
		sp.Name, sp.Email, sp.Phone, sp.Address, sp.GSTIN, sp.ContactPerson,
	).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE suppliers SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"name", "email", "phone", "address", "gstin", "contact_person"} {
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
	tag, err := r.db.Exec(ctx, "DELETE FROM suppliers WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSupplier(row pgx.Row) (*Supplier, error) {
	var sp Supplier
	var email, phone, address, gstin, contact pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(&sp.ID, &sp.Name, &email, &phone, &address, &gstin, &contact, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if email.Valid {
		sp.Email = email.String
	}
	if phone.Valid {
		sp.Phone = phone.String
	}
	if address.Valid {
		sp.Address = address.String
	}
	if gstin.Valid {
		sp.GSTIN = gstin.String
	}
	if contact.Valid {
		sp.ContactPerson = contact.String
	}
	if createdAt.Valid {
		sp.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		sp.UpdatedAt = updatedAt.Time
	}
	return &sp, nil
}
