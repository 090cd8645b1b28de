// Package memory is a data source that keeps datasets in process memory.
//
// Each data source opens a repository of tables. Data sources opened with
// the same MEMORY_NAME share one repository; without a name the repository
// is private and disappears on Close.
//
// Selects are evaluated row by row over a single dataset. The backend has
// no SQL dialect and no transactions, and of the spatial predicates it only
// evaluates ST_EnvelopeIntersects; other relations are answered through the
// spatial processor, which refines envelope candidates in memory.
package memory
