// Package metrics registers ghsweep's Prometheus instrumentation: outbound
// request outcomes and throttle state from the API client, chunk and
// saturation counters from the collector, and per-pass progress from
// the enrichment fetchers.
package metrics
