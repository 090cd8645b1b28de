// Package datatype holds the semantic type enumeration, property descriptors
// and the sealed Value union stored in dataset cells.
//
// Value is a sealed interface: only Null, Int, UInt, Bool, Float, Num, Str,
// Bytes, Geom, Time and List implement it, so type switches over Value can be
// exhaustive. Narrow integer widths share Int/UInt; the Property's Type keeps
// the declared width.
//
// Row identity uses MarshalCanonical and RowKey: a tagged canonical encoding
// (NFC strings, normalized numbers) hashed with SHA-256 under a versioned
// domain prefix. MarshalValue/UnmarshalValue are the lossless persisted form.
package datatype
