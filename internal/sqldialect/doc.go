// Package sqldialect renders query graphs as parameterised SQL.
//
// A Dialect maps function names to encoders, the way each backend spells
// operators and functions. Generic covers the operators every SQL engine
// shares; backends register their own encoders on top, for example to
// express envelope intersection over stored bounding-box columns.
//
// A Translator walks the graph as a query.Visitor. Literals always become
// placeholders, so rendered statements are safe to pass to database/sql with
// the returned arguments.
package sqldialect
