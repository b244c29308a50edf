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

func (p *MetadataPass) runBatched(ctx context.Context, pending []store.RepoKey) error {
	for _, batch := range batchItems(pending, p.batchSize) {
		if err := p.runOneBatch(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (p *MetadataPass) runOneBatch(ctx context.Context, batch []store.RepoKey) error {
	if len(batch) == 0 {
		return nil
	}

	query := buildMetadataQuery(batch)
	resp, err := p.client.GraphQL(ctx, query, nil)
	if err != nil {
		return fmt.Errorf("metadata pass: batched fetch: %w", err)
	}

	var decoded graphQLBatchResponse
	if err := json.Unmarshal(resp.Body, &decoded); err != nil {
		return fmt.Errorf("metadata pass: decoding batch response: %w", err)
	}

	if batchRejectedForComplexity(decoded) {
		if len(batch) == 1 {
			return fmt.Errorf("metadata pass: batch of 1 still rejected for complexity")
		}
		half := len(batch) / 2
		logging.Ctx(ctx).Warn().Int("batch_size", len(batch)).Int("new_size", half).Msg("metadata pass: batch rejected for complexity, halving")
		if err := p.runOneBatch(ctx, batch[:half]); err != nil {
			return err
		}
		return p.runOneBatch(ctx, batch[half:])
	}

	for i, repo := range batch {
		a := alias(i)
		raw, ok := decoded.Data[a]
		if !ok || string(raw) == "null" {
			logging.Ctx(ctx).Warn().Str("repo", repoKey(repo)).Msg("metadata pass: batch item errored, skipping")
			metrics.FetchItemsTotal.WithLabelValues(passMetadata, string(stateSkipped)).Inc()
			continue
		}

		var decodedRepo struct {
			Description string `json:"description"`
			Stargazers  int    `json:"stargazerCount"`
			Forks       int    `json:"forkCount"`
			Topics      struct {
				Nodes []struct {
					Topic struct {
						Name string `json:"name"`
					} `json:"topic"`
				} `json:"nodes"`
			} `json:"repositoryTopics"`
			License *struct {
				SPDXID string `json:"spdxId"`
			} `json:"licenseInfo"`
			PrimaryLanguage *struct {
				Name string `json:"name"`
			} `json:"primaryLanguage"`
		}
		if err := json.Unmarshal(raw, &decodedRepo); err != nil {
			logging.Ctx(ctx).Warn().Str("repo", repoKey(repo)).Msg("metadata pass: batch item malformed, skipping")
			metrics.FetchItemsTotal.WithLabelValues(passMetadata, string(stateSkipped)).Inc()
			continue
		}

		topics := make([]string, 0, len(decodedRepo.Topics.Nodes))
		for _, n := range decodedRepo.Topics.Nodes {
			topics = append(topics, n.Topic.Name)
		}
		meta := store.RepoMetadata{
			Owner:       repo.Owner,
			Repo:        repo.Repo,
			Description: decodedRepo.Description,
			Stars:       decodedRepo.Stargazers,
			Forks:       decodedRepo.Forks,
			Topics:      topics,
		}
		if decodedRepo.License != nil {
			meta.License = decodedRepo.License.SPDXID
		}
		if decodedRepo.PrimaryLanguage != nil {
			meta.Language = decodedRepo.PrimaryLanguage.Name
		}

		if err := p.record(ctx, repo, meta); err != nil {
			return err
		}
	}
	return nil
}

// buildMetadataQuery synthesizes one aliased repository sub-selection per
// batch member, requesting the fields RepoRecord needs.
func buildMetadataQuery(batch []store.RepoKey) string {
	var b strings.Builder
	b.WriteString("query {")
	for i, repo := range batch {
		fmt.Fprintf(&b, ` %s: repository(owner: %q, name: %q) { description stargazerCount forkCount primaryLanguage { name } licenseInfo { spdxId } repositoryTopics(first: 10) { nodes { topic { name } } } }`,
			alias(i), repo.Owner, repo.Repo)
	}
	b.WriteString(" }")
	return b.String()
}
