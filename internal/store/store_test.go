package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghsweep/ghsweep/internal/config"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.StoreConfig{DBPath: filepath.Join(t.TempDir(), "files.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestInsertFileDeduplicates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := FileRecord{Owner: "o", Repo: "r", Ref: "main", Path: "a.go", SHA: "abc", Size: 10, URL: "http://x"}

	inserted, err := s.InsertFile(ctx, rec)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = s.InsertFile(ctx, rec)
	require.NoError(t, err)
	assert.False(t, inserted, "a duplicate (owner, repo, ref, path) must be silently absorbed")

	n, err := s.CountFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestListFilesAndRepos(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	recs := []FileRecord{
		{Owner: "o", Repo: "r1", Ref: "main", Path: "a.go", SHA: "1", Size: 1, URL: "u1"},
		{Owner: "o", Repo: "r1", Ref: "main", Path: "b.go", SHA: "2", Size: 2, URL: "u2"},
		{Owner: "o", Repo: "r2", Ref: "main", Path: "c.go", SHA: "3", Size: 3, URL: "u3"},
	}
	for _, r := range recs {
		_, err := s.InsertFile(ctx, r)
		require.NoError(t, err)
	}

	var seen []FileRecord
	require.NoError(t, s.ListFiles(ctx, func(r FileRecord) error {
		seen = append(seen, r)
		return nil
	}))
	assert.Len(t, seen, 3)

	repos, err := s.ListRepos(ctx)
	require.NoError(t, err)
	assert.Len(t, repos, 2)
}

func TestRepoMetadataUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	has, err := s.HasRepoMetadata(ctx, "o", "r")
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.UpsertRepoMetadata(ctx, RepoMetadata{Owner: "o", Repo: "r", Stars: 5}))
	has, err = s.HasRepoMetadata(ctx, "o", "r")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s.UpsertRepoMetadata(ctx, RepoMetadata{Owner: "o", Repo: "r", Stars: 9}))
	has, err = s.HasRepoMetadata(ctx, "o", "r")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestProgressSummarize(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordProgress(ctx, 0, 100, StateAdvanced, 30))
	require.NoError(t, s.RecordProgress(ctx, 100, 200, StateSplit, 1000))
	require.NoError(t, s.RecordProgress(ctx, 200, 400, StateWidened, 10))

	sum, err := s.Summarize(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Chunks)
	assert.Equal(t, 1000, sum.MaxResultCount)
	assert.Equal(t, 10, sum.MinResultCount)
	assert.Equal(t, 1, sum.SaturatedChunks)
}
