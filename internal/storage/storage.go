// Package storage provides SQLite-backed persistence for the rendered
// market_data rows consumed by the static dashboard.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Storage wraps a SQLite database.
type Storage struct {
	db *sql.DB
}

// Row is one display row of the market_data table. Price and Change are
// pre-formatted display strings; rows are keyed by name.
type Row struct {
	Category string
	Name     string
	Price    string
	Change   string
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/openclaw/data.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "openclaw", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS market_data (
		category   TEXT NOT NULL,
		name       TEXT PRIMARY KEY,
		price      TEXT NOT NULL,
		change     TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	return err
}

// UpsertRows writes the cycle's display rows, replacing any existing row
// with the same name. It returns how many rows actually changed, so the
// caller can skip publishing when nothing moved.
func (s *Storage) UpsertRows(rows []Row) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UnixNano()
	changed := 0
	for _, r := range rows {
		var prevPrice, prevChange string
		err := tx.QueryRow(`SELECT price, change FROM market_data WHERE name = ?`, r.Name).
			Scan(&prevPrice, &prevChange)
		switch {
		case err == sql.ErrNoRows:
			changed++
		case err != nil:
			return 0, fmt.Errorf("failed to read row %q: %w", r.Name, err)
		case prevPrice != r.Price || prevChange != r.Change:
			changed++
		default:
			continue
		}

		if _, err := tx.Exec(`
			INSERT OR REPLACE INTO market_data (category, name, price, change, updated_at)
			VALUES (?,?,?,?,?)`,
			r.Category, r.Name, r.Price, r.Change, now,
		); err != nil {
			return 0, fmt.Errorf("failed to upsert row %q: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return changed, nil
}

// GetRows returns all market_data rows for one category.
func (s *Storage) GetRows(category string) ([]Row, error) {
	rows, err := s.db.Query(`SELECT category, name, price, change FROM market_data WHERE category = ? ORDER BY name`, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query market_data: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Category, &r.Name, &r.Price, &r.Change); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
