package fetch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/ghsweep/ghsweep/internal/logging"
	"github.com/ghsweep/ghsweep/internal/metrics"
	"github.com/ghsweep/ghsweep/internal/store"
)

func (p *HistoryPass) runBatched(ctx context.Context, pending []store.FileRecord) error {
	for _, batch := range batchItems(pending, p.batchSize) {
		if err := p.runOneBatch(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (p *HistoryPass) runOneBatch(ctx context.Context, batch []store.FileRecord) error {
	if len(batch) == 0 {
		return nil
	}

	query := buildHistoryQuery(batch)
	resp, err := p.client.GraphQL(ctx, query, nil)
	if err != nil {
		return fmt.Errorf("history pass: batched fetch: %w", err)
	}

	var decoded graphQLBatchResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return fmt.Errorf("history pass: decoding batch response: %w", err)
	}

	if batchRejectedForComplexity(decoded) {
		if len(batch) == 1 {
			return fmt.Errorf("history pass: batch of 1 still rejected for complexity")
		}
		half := len(batch) / 2
		logging.Ctx(ctx).Warn().Int("batch_size", len(batch)).Int("new_size", half).Msg("history pass: batch rejected for complexity, halving")
		if err := p.runOneBatch(ctx, batch[:half]); err != nil {
			return err
		}
		return p.runOneBatch(ctx, batch[half:])
	}

	for i, rec := range batch {
		a := alias(i)
		raw, ok := decoded.Data[a]
		if !ok || string(raw) == "null" {
			logging.Ctx(ctx).Warn().Str("item", itemKey(rec)).Msg("history pass: batch item errored, skipping")
			metrics.FetchItemsTotal.WithLabelValues(passHistory, string(stateSkipped)).Inc()
			continue
		}

		var decodedRepo struct {
			Object *struct {
				History struct {
					TotalCount int `json:"totalCount"`
					Nodes      []struct {
						CommittedDate time.Time `json:"committedDate"`
						Author        struct {
							Name string `json:"name"`
							User *struct {
								Login string `json:"login"`
							} `json:"user"`
						} `json:"author"`
					} `json:"nodes"`
				} `json:"history"`
			} `json:"object"`
		}
		if err := json.Unmarshal(raw, &decodedRepo); err != nil || decodedRepo.Object == nil {
			logging.Ctx(ctx).Warn().Str("item", itemKey(rec)).Msg("history pass: batch item malformed, skipping")
			metrics.FetchItemsTotal.WithLabelValues(passHistory, string(stateSkipped)).Inc()
			continue
		}

		nodes := decodedRepo.Object.History.Nodes
		if len(nodes) == 0 {
			metrics.FetchItemsTotal.WithLabelValues(passHistory, string(stateSkipped)).Inc()
			continue
		}

		authors := map[string]struct{}{}
		first, last := nodes[len(nodes)-1].CommittedDate, nodes[0].CommittedDate
		for _, n := range nodes {
			name := n.Author.Name
			if n.Author.User != nil && n.Author.User.Login != "" {
				name = n.Author.User.Login
			}
			if name != "" {
				authors[name] = struct{}{}
			}
			if n.CommittedDate.Before(first) {
				first = n.CommittedDate
			}
			if n.CommittedDate.After(last) {
				last = n.CommittedDate
			}
		}
		names := make([]string, 0, len(authors))
		for a := range authors {
			names = append(names, a)
		}

		hist := FileHistory{
			FirstCommit: first,
			LastCommit:  last,
			Authors:     names,
			CommitCount: decodedRepo.Object.History.TotalCount,
		}
		if err := p.dump.Set(itemKey(rec), hist); err != nil {
			return fmt.Errorf("history pass: writing dump entry for %s: %w", itemKey(rec), err)
		}
		metrics.FetchItemsTotal.WithLabelValues(passHistory, string(stateDone)).Inc()
	}
	return nil
}

// buildHistoryQuery synthesizes one aliased commit-history sub-selection
// per batch member, using the GraphQL Commit.history connection scoped to
// the file's path — the graph-native equivalent of the REST commits
// endpoint's ?path= filter.
func buildHistoryQuery(batch []store.FileRecord) string {
	var b strings.Builder
	b.WriteString("query {")
	for i, rec := range batch {
		fmt.Fprintf(&b, ` %s: repository(owner: %q, name: %q) { object(expression: %q) { ... on Commit { history(path: %q, first: 100) { totalCount nodes { committedDate author { name user { login } } } } } } }`,
			alias(i), rec.Owner, rec.Repo, rec.Ref, rec.Path)
	}
	b.WriteString(" }")
	return b.String()
}
