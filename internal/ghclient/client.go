package ghclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/ghsweep/ghsweep/internal/apierror"
	"github.com/ghsweep/ghsweep/internal/cache"
	"github.com/ghsweep/ghsweep/internal/config"
	"github.com/ghsweep/ghsweep/internal/logging"
	"github.com/ghsweep/ghsweep/internal/metrics"
)

// maxResponseBodySize bounds how much of a successful response body is
// read into memory. File contents and metadata blobs fetched here are
// expected to fit well within this; anything larger is surfaced as an
// error rather than silently truncated.
const maxResponseBodySize = 64 << 20 // 64MB

// Response is the structured result of one outbound call: the status
// code, the decoded body, and the two headers callers care about.
type Response struct {
	Status int
	Body   json.RawMessage
	ETag   string
	Link   string
}

// Client is the rate-limited, cache-consulting, circuit-breaker-guarded
// API client. It is safe for concurrent use.
type Client struct {
	http *http.Client

	baseURL  string
	graphURL string
	token    string

	cache      *cache.Cache
	wrappedTTL time.Duration
	skipCache  bool

	restLimiter  *rate.Limiter
	graphLimiter *rate.Limiter

	restBreaker  *breakerT
	graphBreaker *breakerT
}

// New builds a Client from configuration and an already-opened cache.
func New(host config.HostConfig, rl config.RateLimitConfig, cc config.CacheConfig, c *cache.Cache) *Client {
	return &Client{
		http:         &http.Client{Timeout: 30 * time.Second},
		baseURL:      host.APIBaseURL,
		graphURL:     host.GraphQLURL,
		token:        host.Token,
		cache:        c,
		wrappedTTL:   cc.WrappedTTL,
		skipCache:    cc.SkipCache,
		restLimiter:  rate.NewLimiter(rate.Limit(rl.RESTPerSecond), rl.RESTBurst),
		graphLimiter: rate.NewLimiter(rate.Limit(rl.GraphQLPerSecond), rl.GraphQLBurst),
		restBreaker:  newBreaker("rest"),
		graphBreaker: newBreaker("graphql"),
	}
}

// Get performs a cacheable, idempotent REST GET against path with the
// given query parameters. A cache hit returns without consuming a
// throttling token or touching the wire at all. The wrapped schema is
// used: only 2xx responses are written through.
func (c *Client) Get(ctx context.Context, path string, params map[string]string) (*Response, error) {
	key := cache.Key(cache.Request{Endpoint: path, Params: params})

	if entry, ok := c.cache.GetWrapped(key, c.wrappedTTL, c.skipCache); ok {
		metrics.CacheTotal.WithLabelValues("wrapped", metrics.OutcomeHit).Inc()
		return &Response{Status: entry.Status, Body: entry.Body, ETag: entry.ETag, Link: entry.Link}, nil
	}
	metrics.CacheTotal.WithLabelValues("wrapped", metrics.OutcomeMiss).Inc()

	if err := c.restLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	metrics.BucketTokens.WithLabelValues("rest").Set(float64(c.restLimiter.Tokens()))

	resp, err := c.roundTrip(ctx, "rest", c.restBreaker, func() (*http.Request, error) {
		return c.buildRESTRequest(ctx, http.MethodGet, path, params, nil)
	})
	if err != nil {
		return nil, err
	}
	return c.finishWrapped(key, resp)
}

// GetImmutable fetches content addressed by path/params that is treated
// as immutable once observed: content at a given hash never changes.
// Both successful bodies and "not found" outcomes are cached under the
// bare schema with no expiry, so a repeat lookup never re-asks upstream.
func (c *Client) GetImmutable(ctx context.Context, path string, params map[string]string) (*Response, error) {
	key := cache.Key(cache.Request{Endpoint: path, Params: params})

	if raw, ok := c.cache.GetBare(key, c.skipCache); ok {
		var env immutableEnvelope
		if err := json.Unmarshal(raw, &env); err == nil {
			metrics.CacheTotal.WithLabelValues("bare", metrics.OutcomeHit).Inc()
			return &Response{Status: env.Status, Body: env.Body}, nil
		}
	}
	metrics.CacheTotal.WithLabelValues("bare", metrics.OutcomeMiss).Inc()

	if err := c.restLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	metrics.BucketTokens.WithLabelValues("rest").Set(float64(c.restLimiter.Tokens()))

	resp, err := c.roundTrip(ctx, "rest", c.restBreaker, func() (*http.Request, error) {
		return c.buildRESTRequest(ctx, http.MethodGet, path, params, nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(raw) > maxResponseBodySize {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxResponseBodySize)
	}
	out := &Response{Status: resp.StatusCode, Body: raw, ETag: resp.Header.Get("ETag"), Link: resp.Header.Get("Link")}

	if out.Status == http.StatusOK || out.Status == http.StatusNotFound {
		if encoded, err := json.Marshal(immutableEnvelope{Status: out.Status, Body: out.Body}); err == nil {
			_ = c.cache.PutBare(key, encoded)
		}
	}
	return out, nil
}

// GraphQL performs a graph-endpoint call. Rate-limited by the graph
// bucket and keyed for caching by the same canonicalization as REST,
// extended to cover the query text and variables.
func (c *Client) GraphQL(ctx context.Context, query string, variables map[string]string) (*Response, error) {
	key := cache.GraphKey(query, variables)

	if entry, ok := c.cache.GetWrapped(key, c.wrappedTTL, c.skipCache); ok {
		metrics.CacheTotal.WithLabelValues("wrapped", metrics.OutcomeHit).Inc()
		return &Response{Status: entry.Status, Body: entry.Body, ETag: entry.ETag, Link: entry.Link}, nil
	}
	metrics.CacheTotal.WithLabelValues("wrapped", metrics.OutcomeMiss).Inc()

	if err := c.graphLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	metrics.BucketTokens.WithLabelValues("graphql").Set(float64(c.graphLimiter.Tokens()))

	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("encoding graphql request: %w", err)
	}

	resp, err := c.roundTrip(ctx, "graphql", c.graphBreaker, func() (*http.Request, error) {
		return c.buildGraphQLRequest(ctx, payload)
	})
	if err != nil {
		return nil, err
	}
	return c.finishWrapped(key, resp)
}

type graphQLRequest struct {
	Query     string            `json:"query"`
	Variables map[string]string `json:"variables,omitempty"`
}

type immutableEnvelope struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
}

// finishWrapped reads and closes resp, writing the wrapped cache schema
// through on a 2xx outcome, then returns the structured Response.
func (c *Client) finishWrapped(key string, resp *http.Response) (*Response, error) {
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(raw) > maxResponseBodySize {
		return nil, fmt.Errorf("response body exceeds %d bytes", maxResponseBodySize)
	}
	out := &Response{Status: resp.StatusCode, Body: raw, ETag: resp.Header.Get("ETag"), Link: resp.Header.Get("Link")}

	if out.Status >= 200 && out.Status < 300 {
		_ = c.cache.PutWrapped(key, cache.WrappedEntry{
			Status: out.Status,
			Body:   out.Body,
			ETag:   out.ETag,
			Link:   out.Link,
		})
	}
	return out, nil
}

func (c *Client) buildRESTRequest(ctx context.Context, method, path string, params map[string]string, body []byte) (*http.Request, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		u += "?" + q.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setCommonHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) buildGraphQLRequest(ctx context.Context, payload []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building graphql request: %w", err)
	}
	c.setCommonHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "ghsweep")
}

// roundTrip performs one logical request, retrying transient failures per
// the fixed backoff policy and recording outcomes against family's
// metrics. It returns an *http.Response whenever the upstream was
// reached, even for a non-retryable 4xx — callers that want to treat
// status codes as per-item failures do so by inspecting Status.
func (c *Client) roundTrip(ctx context.Context, family string, breaker *breakerT, newReq func() (*http.Request, error)) (*http.Response, error) {
	attempt := 0
	rateAttempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := newReq()
		if err != nil {
			return nil, err
		}

		resp, err := breakerExecute(breaker, func() (*http.Response, error) {
			r, doErr := c.http.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			if r.StatusCode >= 500 {
				msg := readLimitedBody(r.Body)
				r.Body.Close()
				return nil, fmt.Errorf("upstream status %d: %s", r.StatusCode, msg)
			}
			return r, nil
		})
		if err != nil {
			if breakerOpen(err) {
				metrics.RequestsTotal.WithLabelValues(family, metrics.OutcomeRateLimited).Inc()
				return nil, apierror.NewTransient(err, "")
			}

			metrics.RequestsTotal.WithLabelValues(family, metrics.OutcomeServerError).Inc()
			attempt++
			if attempt >= maxServerErrorAttempts {
				return nil, apierror.NewTransient(err, "")
			}
			wait := serverErrorDelay(attempt)
			logging.Warn().Str("family", family).Int("attempt", attempt).Dur("wait", wait).Err(err).Msg("retrying after server/network error")
			if !sleepCtx(ctx, wait) {
				return nil, ctx.Err()
			}
			continue
		}

		if isRateLimited(resp) {
			wait := rateLimitDelay(resp, rateAttempt)
			resp.Body.Close()
			metrics.RequestsTotal.WithLabelValues(family, metrics.OutcomeRateLimited).Inc()
			rateAttempt++
			logging.Warn().Str("family", family).Dur("wait", wait).Msg("rate limited, backing off")
			if !sleepCtx(ctx, wait) {
				return nil, ctx.Err()
			}
			continue
		}

		if resp.StatusCode >= 400 {
			metrics.RequestsTotal.WithLabelValues(family, metrics.OutcomeClientError).Inc()
			return resp, nil
		}

		metrics.RequestsTotal.WithLabelValues(family, metrics.OutcomeSuccess).Inc()
		return resp, nil
	}
}
