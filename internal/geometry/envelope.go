package geometry

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Envelope is an axis-aligned bounding rectangle.
//
// The zero Envelope is a degenerate box at the origin. Use Empty() for an
// envelope that contains nothing and grows through Union.
type Envelope struct {
	MinX float64 `json:"minx" yaml:"minx"`
	MinY float64 `json:"miny" yaml:"miny"`
	MaxX float64 `json:"maxx" yaml:"maxx"`
	MaxY float64 `json:"maxy" yaml:"maxy"`
}

// NewEnvelope returns the envelope spanning the two corners, in any order.
func NewEnvelope(x1, y1, x2, y2 float64) Envelope {
	return Envelope{
		MinX: math.Min(x1, x2),
		MinY: math.Min(y1, y2),
		MaxX: math.Max(x1, x2),
		MaxY: math.Max(y1, y2),
	}
}

// Empty returns an envelope that contains no point.
func Empty() Envelope {
	return Envelope{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
}

// IsValid reports whether the envelope contains at least one point.
func (e Envelope) IsValid() bool {
	return e.MinX <= e.MaxX && e.MinY <= e.MaxY
}

// Width returns MaxX - MinX, or 0 for an invalid envelope.
func (e Envelope) Width() float64 {
	if !e.IsValid() {
		return 0
	}
	return e.MaxX - e.MinX
}

// Height returns MaxY - MinY, or 0 for an invalid envelope.
func (e Envelope) Height() float64 {
	if !e.IsValid() {
		return 0
	}
	return e.MaxY - e.MinY
}

// Intersects reports whether the two envelopes share at least one point.
// Touching edges count as intersecting.
func (e Envelope) Intersects(o Envelope) bool {
	if !e.IsValid() || !o.IsValid() {
		return false
	}
	return e.MinX <= o.MaxX && o.MinX <= e.MaxX &&
		e.MinY <= o.MaxY && o.MinY <= e.MaxY
}

// Contains reports whether o lies entirely inside e.
func (e Envelope) Contains(o Envelope) bool {
	if !e.IsValid() || !o.IsValid() {
		return false
	}
	return e.MinX <= o.MinX && o.MaxX <= e.MaxX &&
		e.MinY <= o.MinY && o.MaxY <= e.MaxY
}

// Union returns the smallest envelope covering both.
func (e Envelope) Union(o Envelope) Envelope {
	if !o.IsValid() {
		return e
	}
	if !e.IsValid() {
		return o
	}
	return Envelope{
		MinX: math.Min(e.MinX, o.MinX),
		MinY: math.Min(e.MinY, o.MinY),
		MaxX: math.Max(e.MaxX, o.MaxX),
		MaxY: math.Max(e.MaxY, o.MaxY),
	}
}

// ExpandXY grows the envelope to include (x, y).
func (e Envelope) ExpandXY(x, y float64) Envelope {
	return e.Union(Envelope{MinX: x, MinY: y, MaxX: x, MaxY: y})
}

// String renders the envelope as "minx,miny,maxx,maxy".
func (e Envelope) String() string {
	return fmt.Sprintf("%g,%g,%g,%g", e.MinX, e.MinY, e.MaxX, e.MaxY)
}

// ParseEnvelope parses the "minx,miny,maxx,maxy" form produced by String.
func ParseEnvelope(s string) (Envelope, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Envelope{}, fmt.Errorf("invalid envelope %q: want minx,miny,maxx,maxy", s)
	}
	var c [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Envelope{}, fmt.Errorf("invalid envelope %q: %w", s, err)
		}
		c[i] = f
	}
	return NewEnvelope(c[0], c[1], c[2], c[3]), nil
}
