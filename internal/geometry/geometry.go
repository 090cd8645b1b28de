package geometry

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/peterstace/simplefeatures/geom"
)

// Geometry is an immutable geometry value tagged with a spatial reference id.
//
// The zero Geometry is an empty geometry collection with SRID 0.
type Geometry struct {
	g    geom.Geometry
	srid int
}

// FromWKT parses well-known text. An EWKT "SRID=n;" prefix overrides srid.
func FromWKT(wkt string, srid int) (Geometry, error) {
	text := strings.TrimSpace(wkt)
	if strings.HasPrefix(strings.ToUpper(text), "SRID=") {
		head, rest, ok := strings.Cut(text, ";")
		if !ok {
			return Geometry{}, fmt.Errorf("invalid EWKT %q: missing ';'", wkt)
		}
		n, err := strconv.Atoi(strings.TrimSpace(head[len("SRID="):]))
		if err != nil {
			return Geometry{}, fmt.Errorf("invalid EWKT srid in %q: %w", wkt, err)
		}
		srid = n
		text = rest
	}
	g, err := geom.UnmarshalWKT(text)
	if err != nil {
		return Geometry{}, fmt.Errorf("parse wkt: %w", err)
	}
	return Geometry{g: g, srid: srid}, nil
}

// FromWKB parses well-known binary.
func FromWKB(wkb []byte, srid int) (Geometry, error) {
	g, err := geom.UnmarshalWKB(wkb)
	if err != nil {
		return Geometry{}, fmt.Errorf("parse wkb: %w", err)
	}
	return Geometry{g: g, srid: srid}, nil
}

// MustWKT is like FromWKT but panics on error.
// Use only in tests or with literal input.
func MustWKT(wkt string, srid int) Geometry {
	g, err := FromWKT(wkt, srid)
	if err != nil {
		panic(err)
	}
	return g
}

// Point returns a point geometry.
func Point(x, y float64, srid int) Geometry {
	return MustWKT(fmt.Sprintf("POINT(%s %s)", fmtCoord(x), fmtCoord(y)), srid)
}

// FromEnvelope returns the geometry covering e: a polygon, or a line or point
// when the envelope is degenerate. An invalid envelope yields an empty geometry.
func FromEnvelope(e Envelope, srid int) Geometry {
	if !e.IsValid() {
		return Geometry{srid: srid}
	}
	x1, y1, x2, y2 := fmtCoord(e.MinX), fmtCoord(e.MinY), fmtCoord(e.MaxX), fmtCoord(e.MaxY)
	var wkt string
	switch {
	case e.MinX == e.MaxX && e.MinY == e.MaxY:
		wkt = fmt.Sprintf("POINT(%s %s)", x1, y1)
	case e.MinX == e.MaxX || e.MinY == e.MaxY:
		wkt = fmt.Sprintf("LINESTRING(%s %s,%s %s)", x1, y1, x2, y2)
	default:
		wkt = fmt.Sprintf("POLYGON((%s %s,%s %s,%s %s,%s %s,%s %s))",
			x1, y1, x2, y1, x2, y2, x1, y2, x1, y1)
	}
	return MustWKT(wkt, srid)
}

func fmtCoord(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// SRID returns the spatial reference id.
func (g Geometry) SRID() int { return g.srid }

// WithSRID returns a copy of g with a different spatial reference id.
func (g Geometry) WithSRID(srid int) Geometry {
	return Geometry{g: g.g, srid: srid}
}

// WKT returns the well-known text form.
func (g Geometry) WKT() string { return g.g.AsText() }

// WKB returns the well-known binary form.
func (g Geometry) WKB() []byte { return g.g.AsBinary() }

// IsEmpty reports whether the geometry has no points.
func (g Geometry) IsEmpty() bool { return g.g.IsEmpty() }

// Type returns the geometry type name ("Point", "Polygon", ...).
func (g Geometry) Type() string { return g.g.Type().String() }

// Equal reports exact structural equality (same WKB and SRID).
func (g Geometry) Equal(o Geometry) bool {
	return g.srid == o.srid && bytes.Equal(g.WKB(), o.WKB())
}

// XY returns the coordinates of a non-empty point geometry.
func (g Geometry) XY() (x, y float64, ok bool) {
	if g.g.Type() != geom.TypePoint {
		return 0, 0, false
	}
	xy, ok := g.g.MustAsPoint().XY()
	if !ok {
		return 0, 0, false
	}
	return xy.X, xy.Y, true
}

// Envelope returns the minimum bounding rectangle. Empty geometries yield an
// invalid envelope.
func (g Geometry) Envelope() Envelope {
	return expand(Empty(), g.g)
}

func expand(env Envelope, g geom.Geometry) Envelope {
	switch g.Type() {
	case geom.TypePoint:
		if xy, ok := g.MustAsPoint().XY(); ok {
			env = env.ExpandXY(xy.X, xy.Y)
		}
	case geom.TypeLineString:
		env = expandSeq(env, g.MustAsLineString().Coordinates())
	case geom.TypePolygon:
		env = expandSeq(env, g.MustAsPolygon().ExteriorRing().Coordinates())
	case geom.TypeMultiPoint:
		mp := g.MustAsMultiPoint()
		for i := 0; i < mp.NumPoints(); i++ {
			env = expand(env, mp.PointN(i).AsGeometry())
		}
	case geom.TypeMultiLineString:
		mls := g.MustAsMultiLineString()
		for i := 0; i < mls.NumLineStrings(); i++ {
			env = expandSeq(env, mls.LineStringN(i).Coordinates())
		}
	case geom.TypeMultiPolygon:
		mp := g.MustAsMultiPolygon()
		for i := 0; i < mp.NumPolygons(); i++ {
			env = expandSeq(env, mp.PolygonN(i).ExteriorRing().Coordinates())
		}
	case geom.TypeGeometryCollection:
		gc := g.MustAsGeometryCollection()
		for i := 0; i < gc.NumGeometries(); i++ {
			env = expand(env, gc.GeometryN(i))
		}
	}
	return env
}

func expandSeq(env Envelope, seq geom.Sequence) Envelope {
	for i := 0; i < seq.Length(); i++ {
		xy := seq.GetXY(i)
		env = env.ExpandXY(xy.X, xy.Y)
	}
	return env
}

// String returns the EWKT form when an SRID is set, otherwise WKT.
func (g Geometry) String() string {
	if g.srid != 0 {
		return fmt.Sprintf("SRID=%d;%s", g.srid, g.WKT())
	}
	return g.WKT()
}
