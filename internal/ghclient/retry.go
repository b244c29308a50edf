package ghclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"
)

// maxServerErrorAttempts bounds the total attempts on 5xx and network
// errors, per the fixed backoff policy: base 2 seconds, doubling between
// attempts, then surface the error after the last one.
const maxServerErrorAttempts = 5

// maxErrorBodySize limits how much of an error body is read back for
// logging and rate-limit sniffing, so a pathological response can't grow
// memory unbounded.
const maxErrorBodySize = 64 * 1024

// serverErrorDelay computes the exponential backoff for attempt n
// (1-indexed) of a 5xx or network-error retry: 2s, 4s, 8s, 16s between
// the five attempts.
func serverErrorDelay(attempt int) time.Duration {
	return 2 * time.Second * time.Duration(1<<uint(attempt-1))
}

// rateLimitDelay computes how long to wait before retrying a rate-limited
// request: the Retry-After header if present, else the window implied by
// a rate-limit reset header, else exponential backoff starting at 60s.
func rateLimitDelay(resp *http.Response, attempt int) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if when, err := http.ParseTime(ra); err == nil {
			if d := time.Until(when); d > 0 {
				return d
			}
		}
	}
	if reset := resp.Header.Get("X-RateLimit-Reset"); reset != "" {
		if unix, err := strconv.ParseInt(reset, 10, 64); err == nil {
			if d := time.Until(time.Unix(unix, 0)); d > 0 {
				return d
			}
		}
	}
	return 60 * time.Second * time.Duration(1<<uint(attempt))
}

// isRateLimited reports whether resp signals a rate-limit condition: the
// canonical 429, or a 403 whose headers or body say so. A 403 body is
// buffered and replaced so a caller that goes on to read it (because this
// turns out not to be a rate-limit 403) still sees the original content.
func isRateLimited(resp *http.Response) bool {
	if resp.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if resp.StatusCode != http.StatusForbidden {
		return false
	}
	if resp.Header.Get("X-RateLimit-Remaining") == "0" {
		return true
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	return bytes.Contains(bytes.ToLower(body), []byte("rate limit"))
}

// readLimitedBody drains up to maxErrorBodySize of r for error reporting,
// never the whole thing, so a misbehaving upstream can't exhaust memory.
func readLimitedBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	return string(body)
}

// sleepCtx waits for d or for ctx to be done, whichever comes first. It
// reports whether the wait completed normally (false means ctx ended it).
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
