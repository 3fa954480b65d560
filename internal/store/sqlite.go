package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fedorten/resursGraf/internal/models"
	_ "modernc.org/sqlite"
)

// SQLite persists histories in a local database file.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS history_state (
			resource   TEXT PRIMARY KEY,
			source     TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS price_points (
			resource TEXT NOT NULL,
			date     TEXT NOT NULL,
			price    REAL NOT NULL,
			PRIMARY KEY (resource, date)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, resource string) (*models.History, error) {
	h := models.History{Resource: resource}
	var fetched int64
	err := s.db.QueryRowContext(ctx,
		`SELECT source, fetched_at FROM history_state WHERE resource = ?`, resource,
	).Scan(&h.Source, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", resource, err)
	}
	h.FetchedAt = time.UnixMilli(fetched)

	rows, err := s.db.QueryContext(ctx,
		`SELECT date, price FROM price_points WHERE resource = ? ORDER BY date`, resource)
	if err != nil {
		return nil, fmt.Errorf("load points %s: %w", resource, err)
	}
	defer rows.Close()

	h.Points = []models.PricePoint{}
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Date, &p.Price); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		h.Points = append(h.Points, p)
	}
	return &h, rows.Err()
}

// Save replaces the stored history for h.Resource in one transaction.
func (s *SQLite) Save(ctx context.Context, h *models.History) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM price_points WHERE resource = ?`, h.Resource); err != nil {
		return fmt.Errorf("clear points %s: %w", h.Resource, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO price_points (resource, date, price) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range h.Points {
		if _, err := stmt.ExecContext(ctx, h.Resource, p.Date, p.Price); err != nil {
			return fmt.Errorf("insert point %s %s: %w", h.Resource, p.Date, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO history_state (resource, source, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(resource) DO UPDATE SET source = excluded.source, fetched_at = excluded.fetched_at`,
		h.Resource, h.Source, h.FetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert state %s: %w", h.Resource, err)
	}

	return tx.Commit()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
