// Package logging configures zerolog as ghsweep's structured logger and
// carries a per-run identifier through context so a long scan's log lines
// can be grepped by run.
package logging
