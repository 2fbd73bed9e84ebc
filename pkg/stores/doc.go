// Package stores provides the decision journal for OmniPack. It records
// packaging runs and the per-resource decisions each run produced in a
// SQLite database with WAL mode and embedded migrations, so a decision
// can later be audited, explained, or compared against the policy
// snapshot that produced it.
package stores
