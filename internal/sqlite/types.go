package sqlite

import (
	"fmt"
	"strings"

	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/geometry"
	"github.com/roach88/dataccess/internal/schema"
	"github.com/roach88/dataccess/internal/sqldialect"
)

// Geometry properties are stored as WKB with four REAL shadow columns
// holding the bounding rectangle, which envelope filters compare against.
var shadowSuffixes = [...]string{"__minx", "__miny", "__maxx", "__maxy"}

func shadow(prop string, i int) string { return prop + shadowSuffixes[i] }

// columnType returns the SQLite storage class declared for t.
func columnType(t datatype.Type) (string, error) {
	switch {
	case t.IsInteger(), t == datatype.Boolean:
		return "INTEGER", nil
	case t == datatype.Float32, t == datatype.Double:
		return "REAL", nil
	}
	switch t {
	case datatype.Numeric, datatype.String, datatype.DateTime:
		return "TEXT", nil
	case datatype.ByteArray, datatype.Geometry:
		return "BLOB", nil
	}
	return "", errs.CapabilityMismatch("sqlite cannot store type %s", t)
}

// columnDefs renders the column definitions of p, including shadow
// columns for geometries.
func columnDefs(p datatype.Property) ([]string, error) {
	typ, err := columnType(p.Type)
	if err != nil {
		return nil, fmt.Errorf("property %q: %w", p.Name, err)
	}
	def := sqldialect.QuoteIdent(p.Name) + " " + typ
	if p.Required && !p.AutoNumber {
		def += " NOT NULL"
	}
	defs := []string{def}
	if p.Type == datatype.Geometry {
		for i := range shadowSuffixes {
			defs = append(defs, sqldialect.QuoteIdent(shadow(p.Name, i))+" REAL")
		}
	}
	return defs, nil
}

func quoteList(names []string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = sqldialect.QuoteIdent(n)
	}
	return strings.Join(q, ", ")
}

// createTable renders CREATE TABLE for dt under the given table name.
func createTable(table string, dt *schema.DataSetType) (string, error) {
	var defs []string
	for _, p := range dt.Properties() {
		cols, err := columnDefs(p)
		if err != nil {
			return "", err
		}
		defs = append(defs, cols...)
	}
	if pk := dt.PrimaryKey(); pk != nil {
		defs = append(defs, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", sqldialect.QuoteIdent(pk.Name), quoteList(pk.Properties)))
	}
	for _, uk := range dt.UniqueKeys() {
		defs = append(defs, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", sqldialect.QuoteIdent(uk.Name), quoteList(uk.Properties)))
	}
	for _, cc := range dt.CheckConstraints() {
		defs = append(defs, fmt.Sprintf("CONSTRAINT %s CHECK (%s)", sqldialect.QuoteIdent(cc.Name), cc.Expression))
	}
	for _, fk := range dt.ForeignKeys() {
		def := fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			sqldialect.QuoteIdent(fk.Name), quoteList(fk.Properties),
			sqldialect.QuoteIdent(fk.ReferencedDataSet), quoteList(fk.ReferencedColumns))
		if fk.OnDelete != "" {
			def += " ON DELETE " + fk.OnDelete
		}
		if fk.OnUpdate != "" {
			def += " ON UPDATE " + fk.OnUpdate
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", sqldialect.QuoteIdent(table), strings.Join(defs, ",\n\t")), nil
}

// createIndex renders CREATE INDEX for ix. Every kind is a B-tree in
// SQLite; an index over a geometry covers its shadow columns instead.
func createIndex(table string, dt *schema.DataSetType, ix schema.Index) string {
	var cols []string
	for _, n := range ix.Properties {
		if p, ok := dt.Property(n); ok && p.Type == datatype.Geometry {
			for i := range shadowSuffixes {
				cols = append(cols, shadow(n, i))
			}
			continue
		}
		cols = append(cols, n)
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		sqldialect.QuoteIdent(indexName(table, ix.Name)), sqldialect.QuoteIdent(table), quoteList(cols))
}

// indexName prefixes index names with their table: SQLite index names are
// global to the database.
func indexName(table, index string) string { return table + "__" + index }

// storedColumns lists the physical columns of dt in storage order.
func storedColumns(dt *schema.DataSetType) []string {
	var cols []string
	for _, p := range dt.Properties() {
		cols = append(cols, p.Name)
		if p.Type == datatype.Geometry {
			for i := range shadowSuffixes {
				cols = append(cols, shadow(p.Name, i))
			}
		}
	}
	return cols
}

// encodeRow converts a row of coerced values into driver arguments in
// storedColumns order.
func encodeRow(dt *schema.DataSetType, row []datatype.Value) []any {
	args := make([]any, 0, len(row))
	for i, p := range dt.Properties() {
		args = append(args, datatype.ToGo(row[i]))
		if p.Type == datatype.Geometry {
			args = append(args, envelopeArgs(row[i])...)
		}
	}
	return args
}

// envelopeArgs returns the shadow column values of a geometry value.
// NULL and empty geometries have NULL rectangles.
func envelopeArgs(v datatype.Value) []any {
	g, ok := v.(datatype.Geom)
	if !ok || g.IsEmpty() {
		return []any{nil, nil, nil, nil}
	}
	e := g.Envelope()
	return []any{e.MinX, e.MinY, e.MaxX, e.MaxY}
}

// decode converts a scanned driver value into a value of property p.
// TEXT may arrive as []byte, and geometries carry the property SRID.
func decode(p datatype.Property, raw any) (datatype.Value, error) {
	if b, ok := raw.([]byte); ok && p.Type != datatype.ByteArray && p.Type != datatype.Geometry && p.Type != datatype.Unknown {
		raw = string(b)
	}
	v, err := datatype.FromGo(raw)
	if err != nil {
		return nil, errs.Wrap(errs.CodeRowExtraction, err, "property %q", p.Name).WithProperty(p.Name)
	}
	if b, ok := v.(datatype.Bytes); ok && p.Type == datatype.Geometry {
		g, err := geometry.FromWKB(b, p.SRID)
		if err != nil {
			return nil, errs.Wrap(errs.CodeRowExtraction, err, "property %q", p.Name).WithProperty(p.Name)
		}
		return datatype.NewGeom(g), nil
	}
	c, err := datatype.Convert(v, p.Type)
	if err != nil {
		return nil, fmt.Errorf("property %q: %w", p.Name, err)
	}
	return c, nil
}
