// Package cache implements the persistent response cache: a
// content-addressed, on-disk store of prior API responses shared across
// all runs and all commands on a machine. Grounded on the write-temp-
// then-rename discipline of a classic Go on-disk file cache, adapted to
// ghsweep's flat, single-file-per-key layout and its two storage schemas.
package cache
