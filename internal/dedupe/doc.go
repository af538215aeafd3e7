// Package dedupe provides the dedup ledger that suppresses repeated
// delivery of the same event within a per-kind cooldown window.
package dedupe
