package fetch

import (
	"strconv"
	"strings"
)

// batchItems partitions items into consecutive groups of at most size,
// the batched GraphQL strategy's unit of work.
func batchItems[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}
	var out [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}

// isComplexityError reports whether a GraphQL error body indicates the
// query exceeded the host's complexity limit, the signal that triggers a
// batch-size halving and retry.
func isComplexityError(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "complexity") || strings.Contains(lower, "too complex") || strings.Contains(lower, "exceeds maximum")
}

// alias returns the GraphQL alias used for the nth item in a batch. Each
// aliased sub-selection lets the host return N independent results (and
// N independent per-item errors) in a single round trip.
func alias(n int) string {
	return "item" + strconv.Itoa(n)
}
