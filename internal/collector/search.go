package collector

import (
	"context"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/ghsweep/ghsweep/internal/ghclient"
)

// perPage is the host's maximum page size for the search endpoint.
const perPage = 100

// maxPages bounds pagination within one chunk at 10 pages of 100, the
// host's fixed 1,000-result cap — paging further could never return more.
const maxPages = 10

// searchResponse is the decoded shape of one search/code response. Only
// the fields this collector needs are modeled; the rest of the wire
// format is left unparsed.
type searchResponse struct {
	TotalCount int          `json:"total_count"`
	Items      []searchItem `json:"items"`
}

type searchItem struct {
	Path       string `json:"path"`
	SHA        string `json:"sha"`
	URL        string `json:"url"`
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}

// refaultRef is the ref recorded against every discovered file. The host's
// code search only ever indexes a repository's default branch, so every
// result belongs to that branch; the search API itself does not report
// the branch name per item, so a fixed symbolic ref is used in its place.
const refaultRef = "HEAD"

// searchChunk issues the size-sharded query for [lo, hi), pages through
// all results up to the host's cap, and invokes onItem for each row as
// soon as its page arrives — so an interruption mid-chunk still preserves
// every already-fetched page.
// It returns the host-reported total count for the unpaginated query,
// which is what saturation detection and adaptation key off of (not the
// paginated row count, which only detects early truncation).
func searchChunk(ctx context.Context, client *ghclient.Client, query string, lo, hi int64, onItem func(searchItem)) (int, error) {
	q := fmt.Sprintf("%s size:%d..%d", query, lo, hi-1)

	reported := -1
	fetched := 0
	for page := 1; page <= maxPages; page++ {
		resp, err := client.Get(ctx, "/search/code", map[string]string{
			"q":        q,
			"per_page": strconv.Itoa(perPage),
			"page":     strconv.Itoa(page),
		})
		if err != nil {
			return 0, fmt.Errorf("searching chunk [%d, %d): %w", lo, hi, err)
		}
		if resp.Status >= 400 {
			return 0, fmt.Errorf("searching chunk [%d, %d): host returned status %d", lo, hi, resp.Status)
		}

		var decoded searchResponse
		if err := json.Unmarshal(resp.Body, &decoded); err != nil {
			return 0, fmt.Errorf("decoding search response for chunk [%d, %d): %w", lo, hi, err)
		}
		if reported == -1 {
			reported = decoded.TotalCount
		}

		for _, item := range decoded.Items {
			onItem(item)
		}
		fetched += len(decoded.Items)

		// A short page (fewer than perPage rows) means this was the last
		// page; a zero-row page always ends the chunk.
		if len(decoded.Items) < perPage {
			break
		}
		if fetched >= reported {
			break
		}
	}
	return reported, nil
}
