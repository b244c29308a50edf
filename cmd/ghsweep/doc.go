// Command ghsweep is the thin command-line front end over the size-sharded
// collector, the rate-limited client, and the batched enrichment fetchers.
// Argument parsing, environment loading, and wire formats are deliberately
// unexciting here; this package exists only to wire the internal packages
// together and exercise them end to end, without containing any business
// logic of its own.
//
// Subcommands:
//
//	ghsweep collect-paths QUERY     scan the byte-size axis, write files.db
//	ghsweep fetch-content           download file bodies under content/
//	ghsweep fetch-metadata          write repo_metadata.json
//	ghsweep fetch-history           write file_history.json
//	ghsweep api ENDPOINT [--param K=V]...   call one REST endpoint, print JSON
//	ghsweep inspect                 ad hoc read-only SQL shell over files.db
//	ghsweep stats                   per-chunk result-count histogram
//
// Every subcommand accepts the common flags --db, --skip-cache, --graphql,
// and --batch-size, parsed with the standard flag package rather than a
// third-party CLI framework.
package main
