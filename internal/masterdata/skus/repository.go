package skus

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

var (
	ErrNotFound      = fmt.Errorf("skus: %w", httpx.ErrNotFound)
	ErrAlreadyExists = fmt.Errorf("skus: code taken: %w", httpx.ErrDuplicate)
)

type Repository interface {
	Get(ctx context.Context, id int64) (*SKU, error)
	GetByCode(ctx context.Context, code string) (*SKU, error)
	List(ctx context.Context, req ListSKUsRequest) ([]SKU, int, error)
	ListBelowMinStock(ctx context.Context) ([]SKU, error)
	Create(ctx context.Context, sku SKU) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
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

const skuColumns = `id, name, code, current_stock, reserved_stock,
	purchase_price, selling_price, min_stock, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*SKU, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM skus WHERE id = $1", skuColumns), id)
	return scanSKU(row)
}

func (r *repository) GetByCode(ctx context.Context, code string) (*SKU, error) {
	row := r.db.QueryRow(ctx, fmt.Sprintf("SELECT %s FROM skus WHERE code = $1", skuColumns), code)
	return scanSKU(row)
}

func (r *repository) List(ctx context.Context, req ListSKUsRequest) ([]SKU, int, error) {
	whereClause := ""
	var args []interface{}
	argPos := 1

	if req.Search != nil && *req.Search != "" {
		whereClause = fmt.Sprintf("WHERE (name ILIKE $%d OR code ILIKE $%d)", argPos, argPos)
		args = append(args, "%"+*req.Search+"%")
		argPos++
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM skus %s", whereClause)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM skus %s ORDER BY code LIMIT $%d OFFSET $%d",
		skuColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []SKU
	for rows.Next() {
		s, err := scanSKURow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *s)
	}
	return items, total, rows.Err()
}

func (r *repository) ListBelowMinStock(ctx context.Context) ([]SKU, error) {
	query := fmt.Sprintf("SELECT %s FROM skus WHERE current_stock <= min_stock ORDER BY code", skuColumns)
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SKU
	for rows.Next() {
		s, err := scanSKURow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	return items, rows.Err()
}

func (r *repository) Create(ctx context.Context, sku SKU) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO skus (name, code, current_stock, reserved_stock,
			purchase_price, selling_price, min_stock, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5, $6, NOW(), NOW())
		RETURNING id`,
		sku.Name, sku.Code, sku.CurrentStock,
		sku.PurchasePrice, sku.SellingPrice, sku.MinStock,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrAlreadyExists
		}
		return 0, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE skus SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"name", "code", "purchase_price", "selling_price", "min_stock"} {
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
	tag, err := r.db.Exec(ctx, "DELETE FROM skus WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSKU(row pgx.Row) (*SKU, error) {
	s, err := scanSKURow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func scanSKURow(row pgx.Row) (*SKU, error) {
	var s SKU
	var purchasePrice, sellingPrice pgtype.Numeric
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(&s.ID, &s.Name, &s.Code, &s.CurrentStock, &s.ReservedStock,
		&purchasePrice, &sellingPrice, &s.MinStock, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if purchasePrice.Valid {
		f, _ := purchasePrice.Float64Value()
		s.PurchasePrice = f.Float64
	}
	if sellingPrice.Valid {
		f, _ := sellingPrice.Float64Value()
		s.SellingPrice = f.Float64
	}
	if createdAt.Valid {
		s.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		s.UpdatedAt = updatedAt.Time
	}
	return &s, nil
}
