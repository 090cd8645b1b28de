// Package datasource defines the contracts between callers and backends.
//
// A Driver is registered once per backend type, usually from the backend
// package's init function, and creates DataSources from connection info.
// A DataSource advertises its capabilities and hands out Transactors, which
// carry catalog reads, DDL, queries and row writes.
//
// Backends return CAPABILITY_MISMATCH for constructs outside their
// advertised capabilities; callers consult Capabilities beforehand or use
// the spatial processor, which refines unsupported spatial predicates in
// memory.
package datasource
