package ghclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghsweep/ghsweep/internal/cache"
	"github.com/ghsweep/ghsweep/internal/config"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c, err := cache.New(t.TempDir())
	require.NoError(t, err)

	host := config.HostConfig{APIBaseURL: serverURL, GraphQLURL: serverURL + "/graphql", Token: "tok"}
	rl := config.RateLimitConfig{RESTPerSecond: 1000, GraphQLPerSecond: 1000, RESTBurst: 50, GraphQLBurst: 50}
	cc := config.CacheConfig{WrappedTTL: time.Hour}
	return New(host, rl, cc, c)
}

func TestGetCachesSuccessfulResponse(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ctx := context.Background()

	resp1, err := client.Get(ctx, "/repos/o/r", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp1.Status)
	assert.Equal(t, `"abc"`, resp1.ETag)

	resp2, err := client.Get(ctx, "/repos/o/r", nil)
	require.NoError(t, err)
	assert.JSONEq(t, string(resp1.Body), string(resp2.Body))

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "second call must be served from cache")
}

func TestGetSkipCacheBypassesReadButStillWrites(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	diskCache, err := cache.New(t.TempDir())
	require.NoError(t, err)
	host := config.HostConfig{APIBaseURL: srv.URL, Token: "tok"}
	rl := config.RateLimitConfig{RESTPerSecond: 1000, GraphQLPerSecond: 1000, RESTBurst: 50, GraphQLBurst: 50}
	client := New(host, rl, config.CacheConfig{WrappedTTL: time.Hour, SkipCache: true}, diskCache)

	ctx := context.Background()
	_, err = client.Get(ctx, "/x", nil)
	require.NoError(t, err)
	_, err = client.Get(ctx, "/x", nil)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "skip_cache must force a wire call every time")
}

func TestGetRetriesOnRateLimitThenSucceeds(t *testing.T) {
	var attempt int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempt, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	resp, err := client.Get(context.Background(), "/retry-me", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempt))
}

func TestGetSurfacesClientErrorWithoutRetry(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	resp, err := client.Get(context.Background(), "/missing", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "a plain 4xx must surface immediately, not retry")
}

func TestGetImmutableCachesNotFound(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ctx := context.Background()

	resp1, err := client.GetImmutable(ctx, "/blobs/deadbeef", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp1.Status)

	resp2, err := client.GetImmutable(ctx, "/blobs/deadbeef", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp2.Status)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "a cached not-found outcome must not re-ask upstream")
}

func TestGraphQLCachesByQueryText(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"viewer":{"login":"octocat"}}}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	ctx := context.Background()

	_, err := client.GraphQL(ctx, "query { viewer { login } }", nil)
	require.NoError(t, err)
	_, err = client.GraphQL(ctx, "query { viewer { login } }", nil)
	require.NoError(t, err)
	_, err = client.GraphQL(ctx, "query { viewer { id } }", nil)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "identical query text hits cache; a different query does not")
}

func TestIsRateLimitedDetects429(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
	assert.True(t, isRateLimited(resp))
}

func TestServerErrorDelayDoubles(t *testing.T) {
	assert.Equal(t, 2*time.Second, serverErrorDelay(1))
	assert.Equal(t, 4*time.Second, serverErrorDelay(2))
	assert.Equal(t, 8*time.Second, serverErrorDelay(3))
}
