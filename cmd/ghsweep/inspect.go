package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ghsweep/ghsweep/internal/logging"
)

// inspect is an ad hoc read-only SQL shell over files.db, useful for
// debugging a stalled scan's cursor/progress state without writing
// one-off Go.
func (a *app) inspect(ctx context.Context) error {
	fmt.Fprintln(os.Stderr, "ghsweep inspect — enter SQL against files.db, blank line or EOF to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(os.Stderr, "ghsweep> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			return nil
		}

		rows, err := a.store.Conn().QueryContext(ctx, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		if err := printRows(rows); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

// printRows renders a *sql.Rows result as a simple tab-separated table,
// closing rows before returning.
func printRows(rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}) error {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	fmt.Println(strings.Join(cols, "\t"))

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		parts := make([]string, len(cols))
		for i, v := range vals {
			parts[i] = fmt.Sprintf("%v", v)
		}
		fmt.Println(strings.Join(parts, "\t"))
	}
	return rows.Err()
}

// stats prints a static per-chunk histogram of the progress table, a post
// hoc summary run on demand rather than a live progress bar during a run.
func (a *app) stats(ctx context.Context) error {
	summary, err := a.store.Summarize(ctx, a.cfg.Scan.Saturation)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	fileCount, err := a.store.CountFiles(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	logging.Ctx(ctx).Info().
		Int("chunks", summary.Chunks).
		Int("min_result_count", summary.MinResultCount).
		Int("max_result_count", summary.MaxResultCount).
		Float64("mean_result_count", summary.MeanResultCount).
		Int("saturated_chunks", summary.SaturatedChunks).
		Int64("files", fileCount).
		Msg("stats: scan summary")

	fmt.Printf("chunks processed:    %d\n", summary.Chunks)
	fmt.Printf("result count min:    %d\n", summary.MinResultCount)
	fmt.Printf("result count max:    %d\n", summary.MaxResultCount)
	fmt.Printf("result count mean:   %.1f\n", summary.MeanResultCount)
	fmt.Printf("saturated chunks:    %d\n", summary.SaturatedChunks)
	fmt.Printf("files discovered:    %d\n", fileCount)
	return nil
}
