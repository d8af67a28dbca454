package warehouses

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

var ErrNotFound = fmt.Errorf("warehouses: %w", httpx.ErrNotFound)

type Repository interface {
	Get(ctx context.Context, id int64) (*Warehouse, error)
	List(ctx context.Context) ([]Warehouse, error)
	Create(ctx context.Context, wh Warehouse) (int64, error)
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

const whColumns = "id, name, code, address, contact_person, is_active, created_at, updated_at"

func (r *repository) Get(ctx context.Context, id int64) (*Warehouse, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM warehouses WHERE id = $1", whColumns), id)
	wh, err := scanWarehouse(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return wh, nil
}

func (r *repository) List(ctx context.Context) ([]Warehouse, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf("SELECT %s FROM warehouses ORDER BY name", whColumns))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Warehouse
	for rows.Next() {
		wh, err := scanWarehouse(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *wh)
	}
	return items, rows.Err()
}

func (r *repository) Create(ctx context.Context, wh Warehouse) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO warehouses (name, code, address, contact_person, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		RETURNING id`,
		wh.Name, wh.Code, wh.Address, wh.ContactPerson,
	).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE warehouses SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"name", "code", "address", "contact_person", "is_active"} {
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
	tag, err := r.db.Exec(ctx, "DELETE FROM warehouses WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanWarehouse(row pgx.Row) (*Warehouse, error) {
	var wh Warehouse
	var address, contact pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(&wh.ID, &wh.Name, &wh.Code, &address, &contact, &wh.IsActive, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if address.Valid {
		wh.Address = address.String
	}
	if contact.Valid {
		wh.ContactPerson = contact.String
	}
	if createdAt.Valid {
		wh.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		wh.UpdatedAt = updatedAt.Time
	}
	return &wh, nil
}
