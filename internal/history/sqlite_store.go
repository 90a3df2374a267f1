package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aleister1102/filecompare/internal/models"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS comparison_history (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL,
	file_a_name TEXT NOT NULL,
	file_b_name TEXT NOT NULL,
	payload TEXT NOT NULL
);
`

// SQLiteStore keeps history rows in a single table. Insertion order is the
// list order, newest row first.
type SQLiteStore struct {
	db     *sql.DB
	limit  int
	logger zerolog.Logger
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists.
func NewSQLiteStore(path string, limit int, logger zerolog.Logger) (*SQLiteStore, error) {
	logger = logger.With().Str("component", "SQLiteHistoryStore").Logger()
	if limit <= 0 {
		limit = models.MaxHistoryEntries
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql.Open failed for %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	logger.Debug().Str("path", path).Msg("History database ready")
	return &SQLiteStore{db: db, limit: limit, logger: logger}, nil
}

// Save moves r to the front of the list and trims the tail past the limit.
func (s *SQLiteStore) Save(ctx context.Context, r models.ComparisonResult) error {
	payload, err := encodeResult(r)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin history transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM comparison_history WHERE id = ?`, r.ID); err != nil {
		return fmt.Errorf("failed to remove previous entry %s: %w", r.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO comparison_history (id, created_at, file_a_name, file_b_name, payload) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt, r.FileA.Name, r.FileB.Name, string(payload),
	); err != nil {
		return fmt.Errorf("failed to insert history entry %s: %w", r.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM comparison_history WHERE seq NOT IN (SELECT seq FROM comparison_history ORDER BY seq DESC LIMIT ?)`,
		s.limit,
	); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history entry %s: %w", r.ID, err)
	}
	s.logger.Debug().Str("id", r.ID).Msg("Saved comparison to history")
	return nil
}

// Load returns the stored list, newest first. Any read or decode failure
// yields an empty list.
func (s *SQLiteStore) Load(ctx context.Context) ([]models.ComparisonResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM comparison_history ORDER BY seq DESC LIMIT ?`, s.limit)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn().Err(err).Msg("Failed to query history, treating it as empty")
		return []models.ComparisonResult{}, nil
	}
	defer rows.Close()

	var entries []models.ComparisonResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to scan history row, treating history as empty")
			return []models.ComparisonResult{}, nil
		}
		r, err := decodeResult([]byte(payload))
		if err != nil {
			s.logger.Warn().Err(err).Msg("Corrupt history entry, treating history as empty")
			return []models.ComparisonResult{}, nil
		}
		entries = append(entries, r)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read history, treating it as empty")
		return []models.ComparisonResult{}, nil
	}
	return validEntries(entries), nil
}

// Clear deletes every row.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM comparison_history`); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	s.logger.Debug().Msg("History cleared")
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
