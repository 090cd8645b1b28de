package oid

import (
	"slices"

	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/query"
)

// ID is the identity of one row: the values of the signature properties,
// in signature order.
type ID []datatype.Value

// Key returns the canonical key of the identity. Equal identities have
// equal keys whatever the numeric kinds involved.
func (id ID) Key() (string, error) {
	return datatype.RowKey(id)
}

// Set is an immutable set of row identities sharing one signature (the
// ordered list of property names the values belong to). Identities are
// unique by canonical key and kept in insertion order.
//
// Build a Set with a Builder. The zero Set is empty with no signature.
type Set struct {
	names []string
	keys  []string
	ids   map[string]ID
}

// Builder accumulates identities for a Set.
type Builder struct {
	set *Set
}

// NewBuilder starts a set with the given signature.
func NewBuilder(names ...string) *Builder {
	return &Builder{set: &Set{names: slices.Clone(names), ids: map[string]ID{}}}
}

// Add inserts one identity. Adding an identity already present is a no-op.
func (b *Builder) Add(values ...datatype.Value) error {
	if len(values) != len(b.set.names) {
		return errs.Precondition("identity has %d values for signature %v", len(values), b.set.names)
	}
	id := make(ID, len(values))
	for i, v := range values {
		if v == nil {
			v = datatype.Null{}
		}
		id[i] = datatype.Clone(v)
	}
	return b.set.insert(id)
}

// Build returns the set. The builder must not be used afterwards.
func (b *Builder) Build() *Set {
	s := b.set
	b.set = nil
	return s
}

func (s *Set) insert(id ID) error {
	key, err := id.Key()
	if err != nil {
		return errs.Wrap(errs.CodeRowExtraction, err, "identity key")
	}
	if _, ok := s.ids[key]; ok {
		return nil
	}
	s.keys = append(s.keys, key)
	s.ids[key] = id
	return nil
}

func (s *Set) empty() *Set {
	return &Set{names: slices.Clone(s.names), ids: map[string]ID{}}
}

// PropertyNames returns the signature.
func (s *Set) PropertyNames() []string {
	return slices.Clone(s.names)
}

// Size returns the number of identities.
func (s *Set) Size() int {
	return len(s.keys)
}

// IDs returns copies of the identities in insertion order.
func (s *Set) IDs() []ID {
	out := make([]ID, len(s.keys))
	for i, k := range s.keys {
		out[i] = cloneID(s.ids[k])
	}
	return out
}

// Keys returns the canonical keys in insertion order.
func (s *Set) Keys() []string {
	return slices.Clone(s.keys)
}

// Contains reports whether the identity is in the set.
func (s *Set) Contains(values ...datatype.Value) bool {
	if len(values) != len(s.names) {
		return false
	}
	key, err := ID(values).Key()
	if err != nil {
		return false
	}
	_, ok := s.ids[key]
	return ok
}

// ContainsKey reports whether an identity with the canonical key is present.
func (s *Set) ContainsKey(key string) bool {
	_, ok := s.ids[key]
	return ok
}

// SameSignature reports whether both sets identify rows by the same
// properties in the same order.
func (s *Set) SameSignature(o *Set) bool {
	return slices.Equal(s.names, o.names)
}

// Equal reports whether both sets have the same signature and identities.
func (s *Set) Equal(o *Set) bool {
	if !s.SameSignature(o) || len(s.keys) != len(o.keys) {
		return false
	}
	for _, k := range s.keys {
		if _, ok := o.ids[k]; !ok {
			return false
		}
	}
	return true
}

func (s *Set) checkSignature(op string, o *Set) error {
	if !s.SameSignature(o) {
		return errs.Precondition("%s of identity sets with different signatures %v and %v", op, s.names, o.names)
	}
	return nil
}

// Union returns the identities of either set. Both sets must share the
// signature.
func (s *Set) Union(o *Set) (*Set, error) {
	if err := s.checkSignature("union", o); err != nil {
		return nil, err
	}
	out := s.empty()
	for _, set := range []*Set{s, o} {
		for _, k := range set.keys {
			if _, ok := out.ids[k]; !ok {
				out.keys = append(out.keys, k)
				out.ids[k] = set.ids[k]
			}
		}
	}
	return out, nil
}

// Intersect returns the identities present in both sets, in the order of s.
func (s *Set) Intersect(o *Set) (*Set, error) {
	if err := s.checkSignature("intersection", o); err != nil {
		return nil, err
	}
	out := s.empty()
	for _, k := range s.keys {
		if _, ok := o.ids[k]; ok {
			out.keys = append(out.keys, k)
			out.ids[k] = s.ids[k]
		}
	}
	return out, nil
}

// Difference returns the identities of s absent from o.
func (s *Set) Difference(o *Set) (*Set, error) {
	if err := s.checkSignature("difference", o); err != nil {
		return nil, err
	}
	out := s.empty()
	for _, k := range s.keys {
		if _, ok := o.ids[k]; !ok {
			out.keys = append(out.keys, k)
			out.ids[k] = s.ids[k]
		}
	}
	return out, nil
}

// Expression returns a filter matching exactly the identified rows:
// "p IN (...)" for one-property signatures, an OR of ANDs otherwise. NULL
// cells become IS NULL tests. An empty set yields a false literal.
func (s *Set) Expression() query.Expression {
	if len(s.keys) == 0 || len(s.names) == 0 {
		return query.Lit(datatype.Bool(false))
	}
	if len(s.names) == 1 {
		return s.singleExpression()
	}
	terms := make([]query.Expression, 0, len(s.keys))
	for _, k := range s.keys {
		id := s.ids[k]
		conj := make([]query.Expression, len(s.names))
		for i, name := range s.names {
			if datatype.IsNull(id[i]) {
				conj[i] = query.IsNull(query.Prop(name))
			} else {
				conj[i] = query.EqualTo(query.Prop(name), query.Lit(datatype.Clone(id[i])))
			}
		}
		terms = append(terms, query.And(conj...))
	}
	if len(terms) == 1 {
		return terms[0]
	}
	return query.Or(terms...)
}

func (s *Set) singleExpression() query.Expression {
	prop := s.names[0]
	var values []query.Expression
	hasNull := false
	for _, k := range s.keys {
		v := s.ids[k][0]
		if datatype.IsNull(v) {
			hasNull = true
			continue
		}
		values = append(values, query.Lit(datatype.Clone(v)))
	}
	var in query.Expression
	if len(values) > 0 {
		in = query.In(query.Prop(prop), values...)
	}
	switch {
	case in == nil:
		return query.IsNull(query.Prop(prop))
	case hasNull:
		return query.Or(in, query.IsNull(query.Prop(prop)))
	}
	return in
}

func cloneID(id ID) ID {
	out := make(ID, len(id))
	for i, v := range id {
		out[i] = datatype.Clone(v)
	}
	return out
}
