package store

import (
	"context"
	"fmt"
)

// ProgressState names the terminal state of a processed search chunk, one
// of the collector's adaptation outcomes.
type ProgressState string

const (
	// StateAdvanced marks a chunk that was fully enumerated and whose
	// cursor advanced past it without a width change.
	StateAdvanced ProgressState = "advanced"
	// StateWidened marks a chunk that advanced and whose width grew for
	// the next chunk because its result count was comfortably low.
	StateWidened ProgressState = "widened"
	// StateSplit marks a chunk that saturated the host's per-query cap
	// and was halved rather than advanced.
	StateSplit ProgressState = "split"
)

// RecordProgress durably records that [lo, hi) finished in the given
// terminal state with resultCount results, for the ghsweep stats command
// and for post hoc coverage verification. This is a historical log, not
// the resumable cursor — see
// Cursor for the fast-path resume state.
func (s *Store) RecordProgress(ctx context.Context, lo, hi int64, state ProgressState, resultCount int) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO progress (chunk_lo, chunk_hi, state, result_count, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (chunk_lo, chunk_hi) DO UPDATE SET
			state        = EXCLUDED.state,
			result_count = EXCLUDED.result_count,
			updated_at   = CURRENT_TIMESTAMP
	`, lo, hi, string(state), resultCount)
	if err != nil {
		return fmt.Errorf("recording progress for [%d, %d): %w", lo, hi, err)
	}
	return nil
}

// ProgressSummary is the aggregate the ghsweep stats command reports.
type ProgressSummary struct {
	Chunks          int
	MinResultCount  int
	MaxResultCount  int
	MeanResultCount float64
	SaturatedChunks int
}

// Summarize aggregates the progress table for the stats command: a
// min/max/mean histogram of per-chunk result counts plus a count of
// chunks whose result count met or exceeded saturation, the collector
// analogue of a simple database-stats report.
func (s *Store) Summarize(ctx context.Context, saturationThreshold int) (ProgressSummary, error) {
	var sum ProgressSummary
	row := s.conn.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(MIN(result_count), 0),
			COALESCE(MAX(result_count), 0),
			COALESCE(AVG(result_count), 0),
			COALESCE(SUM(CASE WHEN result_count >= ? THEN 1 ELSE 0 END), 0)
		FROM progress
	`, saturationThreshold)
	if err := row.Scan(&sum.Chunks, &sum.MinResultCount, &sum.MaxResultCount, &sum.MeanResultCount, &sum.SaturatedChunks); err != nil {
		return ProgressSummary{}, fmt.Errorf("summarizing progress: %w", err)
	}
	return sum, nil
}
