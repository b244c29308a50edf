package cache

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
)

// Request describes the fingerprint of one outbound call: an endpoint (or
// graph query text), an ordered parameter list, and optionally a
// non-default method and body. Two Requests that canonicalize to the same
// string produce the same cache key.
type Request struct {
	Endpoint string
	Params   map[string]string
	Method   string // empty means the default (idempotent GET-equivalent)
	Body     string // empty means no body
}

// Key derives the 16-hex-character cache key for req: the hex encoding of
// the first 8 bytes of SHA-256 over the canonical string
// "endpoint|k1=v1&k2=v2&..." with parameters sorted by key, and
// method/body appended only when non-default. This canonicalization is
// stable across process restarts and platforms by construction — it never
// touches map iteration order, wall clock time, or the filesystem.
func Key(req Request) string {
	var b strings.Builder
	b.WriteString(req.Endpoint)
	b.WriteByte('|')

	keys := make([]string, 0, len(req.Params))
	for k := range req.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(req.Params[k])
	}

	if req.Method != "" {
		b.WriteByte('|')
		b.WriteString(req.Method)
	}
	if req.Body != "" {
		b.WriteByte('|')
		b.WriteString(req.Body)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", sum[:8])
}

// GraphKey derives the cache key for a graph-endpoint call, extending the
// REST canonicalization with the query text and variables.
func GraphKey(query string, variables map[string]string) string {
	return Key(Request{Endpoint: "graphql", Params: variables, Body: query})
}
