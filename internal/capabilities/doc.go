// Package capabilities holds the typed capability records a backend declares:
// data types, schema constructs, cursor behaviour, query operators and general
// data source features.
//
// Capabilities are read-only snapshots with value semantics. Callers consult
// them before building a native query fragment; false means "take the fallback
// path". Bundled backends declare theirs in embedded CUE profiles, validated
// against a closed schema so a misspelled capability fails to compile.
package capabilities
