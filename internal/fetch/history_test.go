package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghsweep/ghsweep/internal/config"
	"github.com/ghsweep/ghsweep/internal/store"
)

func TestHistoryPassPerItemSummarizesCommits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		w.WriteHeader(http.StatusOK)
		if page != "1" {
			fmt.Fprint(w, `[]`)
			return
		}
		fmt.Fprint(w, `[
			{"commit":{"author":{"name":"Alice","date":"2024-01-02T00:00:00Z"}},"author":{"login":"alice"}},
			{"commit":{"author":{"name":"Bob","date":"2023-01-01T00:00:00Z"}},"author":{"login":"bob"}}
		]`)
	}))
	defer srv.Close()

	st := openTestFetchStore(t)
	rec := store.FileRecord{Owner: "o", Repo: "r", Ref: "HEAD", Path: "a.txt", SHA: "s"}
	seedFile(t, st, rec)

	client := newTestClient(t, srv.URL, "")
	dumpPath := filepath.Join(t.TempDir(), "file_history.json")
	fetchCfg := config.FetchConfig{HistoryBatchSize: 10, Concurrency: 2}

	pass, err := NewHistoryPass(client, st, dumpPath, fetchCfg)
	require.NoError(t, err)
	require.NoError(t, pass.Run(context.Background()))

	assert.True(t, pass.dump.Has(itemKey(rec)))
}

func TestHistoryPassSkipsFilesAlreadyInDump(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	st := openTestFetchStore(t)
	rec := store.FileRecord{Owner: "o", Repo: "r", Ref: "HEAD", Path: "a.txt", SHA: "s"}
	seedFile(t, st, rec)

	client := newTestClient(t, srv.URL, "")
	dumpPath := filepath.Join(t.TempDir(), "file_history.json")
	fetchCfg := config.FetchConfig{HistoryBatchSize: 10, Concurrency: 2}

	pass, err := NewHistoryPass(client, st, dumpPath, fetchCfg)
	require.NoError(t, err)
	require.NoError(t, pass.dump.Set(itemKey(rec), map[string]any{"commit_count": 1}))

	require.NoError(t, pass.Run(context.Background()))
	assert.Equal(t, 0, calls, "a file already recorded in the history dump must not be re-fetched")
}

func TestHistoryPassBatchedDecodesCommitHistoryConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"data":{"item0":{"object":{"history":{"totalCount":2,"nodes":[
			{"committedDate":"2024-01-02T00:00:00Z","author":{"name":"Alice","user":{"login":"alice"}}},
			{"committedDate":"2023-01-01T00:00:00Z","author":{"name":"Bob","user":{"login":"bob"}}}
		]}}}}}`)
	}))
	defer srv.Close()

	st := openTestFetchStore(t)
	rec := store.FileRecord{Owner: "o", Repo: "r", Ref: "HEAD", Path: "a.txt", SHA: "s"}
	seedFile(t, st, rec)

	client := newTestClient(t, "", srv.URL)
	dumpPath := filepath.Join(t.TempDir(), "file_history.json")
	fetchCfg := config.FetchConfig{HistoryBatchSize: 10, Concurrency: 2, UseGraphQL: true}

	pass, err := NewHistoryPass(client, st, dumpPath, fetchCfg)
	require.NoError(t, err)
	require.NoError(t, pass.Run(context.Background()))

	assert.True(t, pass.dump.Has(itemKey(rec)))
}
