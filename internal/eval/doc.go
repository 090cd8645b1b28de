// Package eval evaluates query expressions over single rows.
//
// The memory backend filters and sorts with it, and the spatial processor
// uses it to refine coarse results exactly on the client. Semantics follow
// SQL: NULL propagates through comparisons and arithmetic, and/or/not use
// three-valued logic, LIKE ignores ASCII case, and a filter only holds when
// it evaluates to true.
package eval
