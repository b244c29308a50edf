package fetch

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/ghsweep/ghsweep/internal/logging"
	"github.com/ghsweep/ghsweep/internal/metrics"
	"github.com/ghsweep/ghsweep/internal/store"
)

// graphQLBatchResponse is the decoded shape common to every batched query
// in this package: a map of alias to raw result (null for a failed alias)
// plus a parallel errors array the host uses to explain per-alias or
// whole-query failures.
type graphQLBatchResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []graphQLError             `json:"errors"`
}

type graphQLError struct {
	Message string   `json:"message"`
	Path    []string `json:"path"`
}

// runBatched drives the content pass's GraphQL strategy: partition into
// batches, synthesize one aliased query per batch, fan out the response.
// A batch rejected for exceeding the host's complexity limit is halved
// and retried.
func (p *ContentPass) runBatched(ctx context.Context, pending []store.FileRecord) error {
	batches := batchItems(pending, p.batchSize)
	for _, batch := range batches {
		if err := p.runOneBatch(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (p *ContentPass) runOneBatch(ctx context.Context, batch []store.FileRecord) error {
	if len(batch) == 0 {
		return nil
	}

	query := buildBlobQuery(batch)
	resp, err := p.client.GraphQL(ctx, query, nil)
	if err != nil {
		return fmt.Errorf("content pass: batched fetch: %w", err)
	}

	var decoded graphQLBatchResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return fmt.Errorf("content pass: decoding batch response: %w", err)
	}

	if batchRejectedForComplexity(decoded) {
		if len(batch) == 1 {
			return fmt.Errorf("content pass: batch of 1 still rejected for complexity")
		}
		half := len(batch) / 2
		logging.Ctx(ctx).Warn().Int("batch_size", len(batch)).Int("new_size", half).Msg("content pass: batch rejected for complexity, halving")
		if err := p.runOneBatch(ctx, batch[:half]); err != nil {
			return err
		}
		return p.runOneBatch(ctx, batch[half:])
	}

	for i, rec := range batch {
		a := alias(i)
		raw, ok := decoded.Data[a]
		if !ok || string(raw) == "null" {
			logging.Ctx(ctx).Warn().Str("item", itemKey(rec)).Msg("content pass: batch item errored, skipping")
			metrics.FetchItemsTotal.WithLabelValues(passContent, string(stateSkipped)).Inc()
			continue
		}

		var obj struct {
			Object *struct {
				Text     *string `json:"text"`
				ByteSize int64   `json:"byteSize"`
			} `json:"object"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil || obj.Object == nil || obj.Object.Text == nil {
			logging.Ctx(ctx).Warn().Str("item", itemKey(rec)).Msg("content pass: batch item had no blob text, skipping")
			metrics.FetchItemsTotal.WithLabelValues(passContent, string(stateSkipped)).Inc()
			continue
		}

		if err := p.writeContent(rec, []byte(*obj.Object.Text)); err != nil {
			return fmt.Errorf("content pass: writing batched content for %s: %w", itemKey(rec), err)
		}
		if err := p.store.UpdateFileSize(ctx, rec.Owner, rec.Repo, rec.Ref, rec.Path, obj.Object.ByteSize); err != nil {
			return fmt.Errorf("content pass: recording file size for %s: %w", itemKey(rec), err)
		}
		metrics.FetchItemsTotal.WithLabelValues(passContent, string(stateDone)).Inc()
	}
	return nil
}

// buildBlobQuery synthesizes one GraphQL query with one aliased
// repository/object sub-selection per batch member.
func buildBlobQuery(batch []store.FileRecord) string {
	var b strings.Builder
	b.WriteString("query {")
	for i, rec := range batch {
		fmt.Fprintf(&b, ` %s: repository(owner: %q, name: %q) { object(expression: %q) { ... on Blob { text byteSize } } }`,
			alias(i), rec.Owner, rec.Repo, rec.Ref+":"+rec.Path)
	}
	b.WriteString(" }")
	return b.String()
}

// batchRejectedForComplexity reports whether decoded represents a
// whole-batch rejection (no usable data, errors naming complexity)
// rather than independent per-alias failures.
func batchRejectedForComplexity(decoded graphQLBatchResponse) bool {
	if len(decoded.Data) > 0 {
		return false
	}
	for _, e := range decoded.Errors {
		if isComplexityError(e.Message) {
			return true
		}
	}
	return false
}
