// Package spatial answers spatial selects on backends that cannot evaluate
// the requested relation.
//
// The two-phase strategy sends the backend an envelope approximation of the
// filter, then evaluates the original filter exactly on each candidate row.
// Candidates whose geometry cannot be read are skipped, not fatal.
package spatial
