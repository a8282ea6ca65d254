// Package store persists the price catalog and the import history in a local
// SQLite database. Catalog rows follow the same first-write-wins rule as the
// parser: once a code has a price, later imports only refresh its
// description.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/papapumpkin/surveyor/internal/budget"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS prices (
    code         TEXT PRIMARY KEY,
    id           TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    unit         TEXT NOT NULL DEFAULT '',
    unit_price   REAL NOT NULL,
    kind         TEXT NOT NULL,
    category     TEXT NOT NULL,
    last_updated TEXT NOT NULL DEFAULT '',
    source       TEXT NOT NULL DEFAULT '',
    created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS prices_kind ON prices(kind);

CREATE TABLE IF NOT EXISTS imports (
    id          TEXT PRIMARY KEY,
    file        TEXT NOT NULL,
    codepage    TEXT NOT NULL DEFAULT '',
    title       TEXT NOT NULL DEFAULT '',
    items       INTEGER NOT NULL DEFAULT 0,
    prices      INTEGER NOT NULL DEFAULT 0,
    pem         REAL NOT NULL DEFAULT 0,
    total       REAL NOT NULL DEFAULT 0,
    imported_at TEXT NOT NULL
);
`

// Store is the SQLite-backed catalog.
type Store struct {
	db  *sql.DB
	sq  sq.StatementBuilderType
	now func() time.Time
}

// Open opens (or creates) the database at path, enables WAL mode and a busy
// timeout, and creates the schema if missing.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: create dir for %s: %w", path, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	// SQLite has a single writer; one connection also keeps an in-memory
	// database alive and shared.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &Store{db: db, sq: sq.StatementBuilder, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

// UpsertPrices merges prices into the catalog in one transaction and returns
// how many codes were new.
func (s *Store) UpsertPrices(ctx context.Context, prices []budget.Price) (int, error) {
	if len(prices) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin tx for prices: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	before, err := countPrices(ctx, tx)
	if err != nil {
		return 0, err
	}

	now := s.now().UTC().Format(time.RFC3339)
	for _, p := range prices {
		q := s.sq.Insert("prices").
			Columns("code", "id", "description", "unit", "unit_price", "kind", "category", "last_updated", "source", "created_at").
			Values(p.Code, p.ID, p.Description, string(p.Unit), p.UnitPrice, string(p.Kind), p.Category,
				formatTime(p.LastUpdated), p.Source, now).
			Suffix(`ON CONFLICT(code) DO UPDATE SET description = CASE
				WHEN excluded.description <> '' THEN excluded.description
				ELSE prices.description END`)
		sqlStr, args, err := q.ToSql()
		if err != nil {
			return 0, fmt.Errorf("store: build price upsert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
			return 0, fmt.Errorf("store: upsert price %q: %w", p.Code, err)
		}
	}

	after, err := countPrices(ctx, tx)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit prices: %w", err)
	}
	return after - before, nil
}

func countPrices(ctx context.Context, tx *sql.Tx) (int, error) {
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM prices").Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count prices: %w", err)
	}
	return n, nil
}

// PriceFilter narrows ListPrices. Zero values match everything.
type PriceFilter struct {
	Kind   budget.Kind
	Search string // substring of code or description
	Limit  uint64
}

var priceColumns = []string{"id", "code", "description", "unit", "unit_price", "kind", "category", "last_updated", "source"}

// ListPrices returns catalog entries ordered by code.
func (s *Store) ListPrices(ctx context.Context, f PriceFilter) ([]budget.Price, error) {
	q := s.sq.Select(priceColumns...).From("prices").OrderBy("code")
	if f.Kind != "" {
		q = q.Where(sq.Eq{"kind": string(f.Kind)})
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		q = q.Where(sq.Or{sq.Like{"code": pattern}, sq.Like{"description": pattern}})
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build price query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list prices: %w", err)
	}
	defer rows.Close()

	var out []budget.Price
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list prices: %w", err)
	}
	return out, nil
}

// Price returns the catalog entry for code.
func (s *Store) Price(ctx context.Context, code string) (budget.Price, error) {
	sqlStr, args, err := s.sq.Select(priceColumns...).From("prices").Where(sq.Eq{"code": code}).Limit(1).ToSql()
	if err != nil {
		return budget.Price{}, fmt.Errorf("store: build price query: %w", err)
	}
	p, err := scanPrice(s.db.QueryRowContext(ctx, sqlStr, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return budget.Price{}, fmt.Errorf("store: price %q: %w", code, ErrNotFound)
	}
	return p, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPrice(row scanner) (budget.Price, error) {
	var p budget.Price
	var unit, kind, updated string
	if err := row.Scan(&p.ID, &p.Code, &p.Description, &unit, &p.UnitPrice, &kind, &p.Category, &updated, &p.Source); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("store: scan price: %w", err)
	}
	p.Unit = budget.Unit(unit)
	p.Kind = budget.Kind(kind)
	p.LastUpdated = parseTime(updated)
	return p, nil
}

// Import is one row of the import history.
type Import struct {
	ID         string    `json:"id"`
	File       string    `json:"file"`
	Codepage   string    `json:"codepage"`
	Title      string    `json:"title"`
	Items      int       `json:"items"`
	Prices     int       `json:"prices"`
	PEM        float64   `json:"pem"`
	Total      float64   `json:"total"`
	ImportedAt time.Time `json:"importedAt"`
}

// RecordImport appends an entry to the import history. A zero ImportedAt is
// set to now.
func (s *Store) RecordImport(ctx context.Context, imp Import) error {
	if imp.ImportedAt.IsZero() {
		imp.ImportedAt = s.now().UTC()
	}
	sqlStr, args, err := s.sq.Insert("imports").
		Columns("id", "file", "codepage", "title", "items", "prices", "pem", "total", "imported_at").
		Values(imp.ID, imp.File, imp.Codepage, imp.Title, imp.Items, imp.Prices, imp.PEM, imp.Total,
			imp.ImportedAt.UTC().Format(time.RFC3339Nano)).
		ToSql()
	if err != nil {
		return fmt.Errorf("store: build import insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("store: record import %s: %w", imp.File, err)
	}
	return nil
}

// ListImports returns the most recent imports first. A zero limit returns
// all of them.
func (s *Store) ListImports(ctx context.Context, limit uint64) ([]Import, error) {
	q := s.sq.Select("id", "file", "codepage", "title", "items", "prices", "pem", "total", "imported_at").
		From("imports").
		OrderBy("imported_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build import query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list imports: %w", err)
	}
	defer rows.Close()

	var out []Import
	for rows.Next() {
		var imp Import
		var at string
		if err := rows.Scan(&imp.ID, &imp.File, &imp.Codepage, &imp.Title, &imp.Items, &imp.Prices, &imp.PEM, &imp.Total, &at); err != nil {
			return nil, fmt.Errorf("store: scan import: %w", err)
		}
		imp.ImportedAt = parseTime(at)
		out = append(out, imp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list imports: %w", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
