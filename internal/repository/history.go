package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fedorten/resursGraf/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryRepo stores price histories in Postgres. Tables are created by
// db.Migrate.
type HistoryRepo struct {
	pool *pgxpool.Pool
}

func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

func (r *HistoryRepo) Load(ctx context.Context, resource string) (*models.History, error) {
	h := models.History{Resource: resource}
	err := r.pool.QueryRow(ctx,
		`SELECT source, fetched_at FROM history_state WHERE resource = $1`, resource,
	).Scan(&h.Source, &h.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", resource, err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT date, price FROM price_points WHERE resource = $1 ORDER BY date ASC`,
		resource,
	)
	if err != nil {
		return nil, fmt.Errorf("load points %s: %w", resource, err)
	}
	defer rows.Close()

	h.Points, err = collectPoints(rows)
	if err != nil {
		return nil, fmt.Errorf("scan points %s: %w", resource, err)
	}
	return &h, nil
}

// Save replaces the stored history in one transaction.
func (r *HistoryRepo) Save(ctx context.Context, h *models.History) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM price_points WHERE resource = $1`, h.Resource); err != nil {
		return fmt.Errorf("clear points %s: %w", h.Resource, err)
	}

	if len(h.Points) > 0 {
		rows := make([][]any, 0, len(h.Points))
		for _, p := range h.Points {
			d, err := time.Parse(models.DateLayout, p.Date)
			if err != nil {
				return fmt.Errorf("point date %q: %w", p.Date, err)
			}
			rows = append(rows, []any{h.Resource, d, p.Price})
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"price_points"},
			[]string{"resource", "date", "price"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy points %s: %w", h.Resource, err)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO history_state (resource, source, fetched_at) VALUES ($1, $2, $3)
		 ON CONFLICT (resource) DO UPDATE SET source = EXCLUDED.source, fetched_at = EXCLUDED.fetched_at`,
		h.Resource, h.Source, h.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert state %s: %w", h.Resource, err)
	}

	return tx.Commit(ctx)
}

func (r *HistoryRepo) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *HistoryRepo) Close() error {
	r.pool.Close()
	return nil
}

// --- scan helpers ---

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectPoints(rows rowsIter) ([]models.PricePoint, error) {
	out := []models.PricePoint{}
	for rows.Next() {
		var p models.PricePoint
		var d time.Time
		if err := rows.Scan(&d, &p.Price); err != nil {
			return nil, err
		}
		p.Date = d.Format(models.DateLayout)
		out = append(out, p)
	}
	return out, rows.Err()
}
