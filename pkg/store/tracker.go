package store

import (
	"context"
	"fmt"
	"time"
)

// Stats summarizes the contents of a cache.
type Stats struct {
	Entries int64 `json:"entries"`
	Hits    int64 `json:"hits"`
}

// Maintainer provides housekeeping over a completion cache.
// Separate from llm.Cache, which only the completion path needs.
type Maintainer interface {
	// Stats returns the number of stored responses and the hits they served.
	Stats(ctx context.Context) (Stats, error)

	// Prune removes responses stored before cutoff and returns how many were removed.
	Prune(ctx context.Context, cutoff time.Time) (int64, error)

	// Clear removes every stored response.
	Clear(ctx context.Context) error
}

// Compile-time interface checks
var (
	_ Maintainer = (*SQLiteCache)(nil)
	_ Maintainer = (*MemoryCache)(nil)
)

// Stats returns the number of stored responses and the hits they served.
func (s *SQLiteCache) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM completions").Scan(&st.Entries, &st.Hits)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read cache stats: %w", err)
	}
	return st, nil
}

// Prune removes responses stored before cutoff.
func (s *SQLiteCache) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM completions WHERE created_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune completions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned completions: %w", err)
	}
	return n, nil
}

// Clear removes every stored response.
func (s *SQLiteCache) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM completions"); err != nil {
		return fmt.Errorf("failed to clear completions: %w", err)
	}
	return nil
}
