// Package dataset defines the DataSet cursor shared by every backend.
//
// A DataSet walks the rows of a stored dataset or query result. Columns are
// read as datatype values with Value, or through the typed getters in
// getters.go, which fail with ROW_EXTRACTION on NULL or ill-typed values.
//
// Two implementations live here:
//   - Memory holds rows in memory and supports random access.
//   - Filtered exposes selected rows of another DataSet by position, which
//     is how the spatial processor returns refined results without copying.
package dataset
