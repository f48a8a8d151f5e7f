package tariffs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier: подмножество *pgxpool.Pool, которое нужно репозиторию.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repo struct {
	db  Querier
	now func() time.Time
}

func NewRepo(db Querier) *Repo { return &Repo{db: db, now: time.Now} }

const columns = `warehouse_name, geo_name,
	box_delivery_base, box_delivery_coef_expr, box_delivery_liter,
	box_delivery_marketplace_base, box_delivery_marketplace_coef_expr, box_delivery_marketplace_liter,
	box_storage_base, box_storage_coef_expr, box_storage_liter`

const returning = `spreadsheet_id, ` + columns + `, created_at, updated_at`

// на строку: 11 полей тарифа + created_at + updated_at
const paramsPerRow = 13

func rowArgs(t Tariff, now time.Time) []any {
	return []any{
		t.WarehouseName, t.GeoName,
		t.BoxDeliveryBase, t.BoxDeliveryCoefExpr, t.BoxDeliveryLiter,
		t.BoxDeliveryMarketplaceBase, t.BoxDeliveryMarketplaceCoefExpr, t.BoxDeliveryMarketplaceLiter,
		t.BoxStorageBase, t.BoxStorageCoefExpr, t.BoxStorageLiter,
		now, now,
	}
}

func placeholders(row int) string {
	ph := make([]string, paramsPerRow)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", row*paramsPerRow+i+1)
	}
	return "(" + strings.Join(ph, ",") + ")"
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var r Record
	err := s.Scan(&r.ID, &r.WarehouseName, &r.GeoName,
		&r.BoxDeliveryBase, &r.BoxDeliveryCoefExpr, &r.BoxDeliveryLiter,
		&r.BoxDeliveryMarketplaceBase, &r.BoxDeliveryMarketplaceCoefExpr, &r.BoxDeliveryMarketplaceLiter,
		&r.BoxStorageBase, &r.BoxStorageCoefExpr, &r.BoxStorageLiter,
		&r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *Repo) Create(ctx context.Context, t Tariff) (*Record, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO spreadsheets (`+columns+`, created_at, updated_at)
		VALUES `+placeholders(0)+`
		RETURNING `+returning, rowArgs(t, r.now())...)
	rec, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("create tariff: %w", err)
	}
	return &rec, nil
}

// CreateMany вставляет пачку одним INSERT; у всех строк одинаковые created_at/updated_at.
func (r *Repo) CreateMany(ctx context.Context, items []Tariff) ([]Record, error) {
	if len(items) == 0 {
		return []Record{}, nil
	}

	now := r.now()
	values := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*paramsPerRow)
	for i, t := range items {
		values = append(values, placeholders(i))
		args = append(args, rowArgs(t, now)...)
	}

	rows, err := r.db.Query(ctx, `
		INSERT INTO spreadsheets (`+columns+`, created_at, updated_at)
		VALUES `+strings.Join(values, ",\n\t\t")+`
		RETURNING `+returning, args...)
	if err != nil {
		return nil, fmt.Errorf("create tariffs batch: %w", err)
	}
	out, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("create tariffs batch: %w", err)
	}
	if len(out) == 0 {
		return nil, errors.New("create tariffs batch: no rows returned")
	}
	return out, nil
}

// GetByID возвращает nil, nil если записи нет.
func (r *Repo) GetByID(ctx context.Context, id int64) (*Record, error) {
	row := r.db.QueryRow(ctx, `SELECT `+returning+` FROM spreadsheets WHERE spreadsheet_id = $1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *Repo) FindAll(ctx context.Context) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT `+returning+` FROM spreadsheets ORDER BY spreadsheet_id ASC`)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

// Update обновляет переданные поля и updated_at. nil, nil — записи нет.
// Пустой патч только трогает updated_at.
func (r *Repo) Update(ctx context.Context, id int64, p Patch) (*Record, error) {
	sets := []string{"updated_at = $2"}
	args := []any{id, r.now()}
	for _, a := range p.assignments() {
		args = append(args, a.value)
		sets = append(sets, fmt.Sprintf("%s = $%d", a.column, len(args)))
	}

	row := r.db.QueryRow(ctx, `
		UPDATE spreadsheets SET `+strings.Join(sets, ", ")+`
		WHERE spreadsheet_id = $1
		RETURNING `+returning, args...)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update tariff %d: %w", id, err)
	}
	return &rec, nil
}

func (r *Repo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM spreadsheets WHERE spreadsheet_id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func collect(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
