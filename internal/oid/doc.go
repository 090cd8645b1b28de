// Package oid identifies dataset rows independently of cursor position.
//
// An identity is the tuple of values a row holds for the signature
// properties (usually the primary key). Identities are compared by a
// canonical key, so Int(1) and UInt(1) identify the same row.
//
// Sets are immutable and only combine with sets of the same signature.
// Expression and BuildSelect turn a set back into a query that re-fetches
// the identified rows.
package oid
