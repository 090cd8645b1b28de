// Package schema models dataset types: ordered properties plus the primary
// key, unique keys, indexes, check constraints and foreign keys over them.
//
// Constraints refer to properties by name. The mutators reject duplicates and
// dangling references, and RemoveProperty refuses to drop a property that a
// key or index still uses. Dataset types are serialized through Document as
// YAML (schema files) or JSON (catalog entries).
package schema
