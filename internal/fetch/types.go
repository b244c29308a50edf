package fetch

// Strategy selects between the per-item REST path and the batched GraphQL
// path for one enrichment pass.
type Strategy int

const (
	// PerItem issues one request per item through the REST path. Always
	// correct; cache hits complete in microseconds, misses flow through
	// the throttle.
	PerItem Strategy = iota
	// Batched synthesizes one aliased GraphQL query per batch of items.
	Batched
)

// StrategyFor picks Batched when the caller asked for the GraphQL path,
// else PerItem. Factored out so cmd/ghsweep's --graphql flag and the
// per-pass config both funnel through one decision point.
func StrategyFor(useGraphQL bool) Strategy {
	if useGraphQL {
		return Batched
	}
	return PerItem
}

// itemState names the per-item terminal state of a pass's state
// machine, used only for metrics/log labeling — the durable signal of
// DONE is always the presence of the item's output (file on disk, JSON
// dump entry), never an in-memory flag.
type itemState string

const (
	stateDone    itemState = "done"
	stateSkipped itemState = "skipped"
)
