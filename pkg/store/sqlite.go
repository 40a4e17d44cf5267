// Package store persists completion responses so repeated requests can be
// answered without calling the backend again.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/dan-solli/listops/pkg/llm"
)

// SQLiteCache implements llm.Cache using SQLite as the backend.
type SQLiteCache struct {
	db *sql.DB
}

// Compile-time interface check
var _ llm.Cache = (*SQLiteCache)(nil)

// NewSQLiteCache opens or creates a cache database at dbPath.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives in a single connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	cache := &SQLiteCache{db: db}
	if err := cache.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return cache, nil
}

// initSchema creates the completions table if it doesn't exist and brings
// older databases up to date.
func (s *SQLiteCache) initSchema() error {
	schema := `
	PRAGMA journal_mode = WAL;
	PRAGMA busy_timeout = 5000;

	CREATE TABLE IF NOT EXISTS completions (
		key TEXT PRIMARY KEY,
		text TEXT NOT NULL,
		input_tokens INTEGER DEFAULT 0,
		output_tokens INTEGER DEFAULT 0,
		finish_reason TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_completions_created ON completions(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return s.migrateSchema()
}

// migrateSchema adds columns introduced after the first release.
func (s *SQLiteCache) migrateSchema() error {
	if !s.columnExists("completions", "hit_count") {
		if _, err := s.db.Exec("ALTER TABLE completions ADD COLUMN hit_count INTEGER DEFAULT 0"); err != nil {
			return fmt.Errorf("failed to add hit_count column: %w", err)
		}
	}
	if !s.columnExists("completions", "last_hit_at") {
		if _, err := s.db.Exec("ALTER TABLE completions ADD COLUMN last_hit_at DATETIME DEFAULT NULL"); err != nil {
			return fmt.Errorf("failed to add last_hit_at column: %w", err)
		}
	}
	return nil
}

func (s *SQLiteCache) columnExists(tableName, columnName string) bool {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false
		}
		if name == columnName {
			return true
		}
	}
	return false
}

// Get returns the response stored under key. A hit is counted against the
// entry.
func (s *SQLiteCache) Get(ctx context.Context, key string) (llm.Response, bool, error) {
	var (
		resp   llm.Response
		finish sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT text, input_tokens, output_tokens, finish_reason FROM completions WHERE key = ?", key).
		Scan(&resp.Text, &resp.Details.InputTokens, &resp.Details.OutputTokens, &finish)
	if errors.Is(err, sql.ErrNoRows) {
		return llm.Response{}, false, nil
	}
	if err != nil {
		return llm.Response{}, false, fmt.Errorf("failed to read completion: %w", err)
	}
	resp.Details.FinishReason = llm.FinishReason(finish.String)

	_, err = s.db.ExecContext(ctx,
		"UPDATE completions SET hit_count = hit_count + 1, last_hit_at = ? WHERE key = ?",
		time.Now().UTC(), key)
	if err != nil {
		return resp, true, fmt.Errorf("failed to record cache hit: %w", err)
	}
	return resp, true, nil
}

// Put stores resp under key, replacing any earlier entry.
func (s *SQLiteCache) Put(ctx context.Context, key string, resp llm.Response) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO completions (key, text, input_tokens, output_tokens, finish_reason, created_at, hit_count)
		 VALUES (?, ?, ?, ?, ?, ?, 0)`,
		key, resp.Text, resp.Details.InputTokens, resp.Details.OutputTokens, string(resp.Details.FinishReason), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store completion: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}
