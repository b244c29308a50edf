package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels used consistently across RequestsTotal and CacheTotal.
const (
	OutcomeHit         = "hit"
	OutcomeMiss        = "miss"
	OutcomeRetry       = "retry"
	OutcomeRateLimited = "rate_limited"
	OutcomeSuccess     = "success"
	OutcomeServerError = "server_error"
	OutcomeNetworkErr  = "network_error"
	OutcomeClientError = "client_error"
)

var (
	// RequestsTotal counts every outbound call the client makes, by API family
	// (rest/graphql) and outcome.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ghsweep",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "Outbound requests to the host API, by family and outcome.",
	}, []string{"family", "outcome"})

	// CacheTotal counts cache lookups by schema (bare/wrapped) and outcome
	// (hit/miss).
	CacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ghsweep",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Persistent response cache lookups, by schema and outcome.",
	}, []string{"schema", "outcome"})

	// BucketTokens reports the tokens currently available in each rate
	// limiter bucket, sampled at request time.
	BucketTokens = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ghsweep",
		Subsystem: "client",
		Name:      "bucket_tokens",
		Help:      "Tokens currently available in the outbound rate limiter bucket.",
	}, []string{"family"})

	// ChunksProcessed counts size-sharded scan chunks by terminal adaptation
	// outcome (advance, widen, split).
	ChunksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ghsweep",
		Subsystem: "collector",
		Name:      "chunks_processed_total",
		Help:      "Scan chunks processed by the size-sharded collector, by adaptation outcome.",
	}, []string{"outcome"})

	// SaturationEvents counts chunks whose reported count met or exceeded
	// the host's per-query cap, forcing a width halving.
	SaturationEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ghsweep",
		Subsystem: "collector",
		Name:      "saturation_events_total",
		Help:      "Chunks whose reported result count triggered a saturation split.",
	})

	// RecordsDiscovered counts file records the collector has inserted into the
	// result store (including duplicates absorbed by the unique constraint).
	RecordsDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ghsweep",
		Subsystem: "collector",
		Name:      "records_discovered_total",
		Help:      "File records written (or deduplicated) by the collector.",
	})

	// FetchItemsTotal counts per-item outcomes across the three enrichment
	// passes (content/metadata/history), by pass and terminal state.
	FetchItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ghsweep",
		Subsystem: "fetch",
		Name:      "items_total",
		Help:      "Enrichment fetcher items processed, by pass and terminal state.",
	}, []string{"pass", "state"})

	// BatchSize is a per-pass gauge for the batched graph strategy's batch
	// size. None of the enrichment passes sets it; it stays at zero unless
	// a caller sets it directly.
	BatchSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "ghsweep",
		Subsystem: "fetch",
		Name:      "batch_size",
		Help:      "Current batch size for the batched graph fetch strategy, by pass.",
	}, []string{"pass"})
)
