// Package ghclient is the sole egress point to the upstream code-hosting
// service: it shapes traffic under two independent token buckets
// (REST, graph), retries transient failures per a fixed backoff policy,
// wraps every outbound round trip in a circuit breaker, and transparently
// consults the persistent response cache before ever touching the wire.
// Grounded on the retry/throttle/breaker shape of a single-upstream REST
// client guarded by a gobreaker circuit breaker, generalized from a fixed
// set of hand-written endpoint methods to one generic REST+graph client.
package ghclient
