package schema

import (
	"fmt"
	"slices"
)

// IndexKind is the access structure behind an Index.
type IndexKind string

const (
	BTree    IndexKind = "btree"
	RTree    IndexKind = "rtree"
	QuadTree IndexKind = "quadtree"
	Hash     IndexKind = "hash"
)

// ParseIndexKind validates an index kind name. Empty means BTree.
func ParseIndexKind(s string) (IndexKind, error) {
	switch k := IndexKind(s); k {
	case "":
		return BTree, nil
	case BTree, RTree, QuadTree, Hash:
		return k, nil
	}
	return "", fmt.Errorf("unknown index kind %q", s)
}

// PrimaryKey names the properties that identify a row.
type PrimaryKey struct {
	Name       string   `json:"name" yaml:"name"`
	Properties []string `json:"properties" yaml:"properties"`
}

// UniqueKey names properties whose combined values are unique.
type UniqueKey struct {
	Name       string   `json:"name" yaml:"name"`
	Properties []string `json:"properties" yaml:"properties"`
}

// Index is a named access structure over properties.
type Index struct {
	Name       string    `json:"name" yaml:"name"`
	Kind       IndexKind `json:"kind" yaml:"kind"`
	Properties []string  `json:"properties" yaml:"properties"`
}

// CheckConstraint is a named boolean expression rows must satisfy.
// The expression text is backend-specific and never interpreted here.
type CheckConstraint struct {
	Name       string `json:"name" yaml:"name"`
	Expression string `json:"expression" yaml:"expression"`
}

// ForeignKey references the key of another dataset type in the same catalog.
type ForeignKey struct {
	Name              string   `json:"name" yaml:"name"`
	Properties        []string `json:"properties" yaml:"properties"`
	ReferencedDataSet string   `json:"references" yaml:"references"`
	ReferencedColumns []string `json:"referenced_properties" yaml:"referenced_properties"`
	OnDelete          string   `json:"on_delete,omitempty" yaml:"on_delete,omitempty"`
	OnUpdate          string   `json:"on_update,omitempty" yaml:"on_update,omitempty"`
}

func (pk PrimaryKey) clone() PrimaryKey {
	return PrimaryKey{Name: pk.Name, Properties: slices.Clone(pk.Properties)}
}

func (uk UniqueKey) clone() UniqueKey {
	return UniqueKey{Name: uk.Name, Properties: slices.Clone(uk.Properties)}
}

func (ix Index) clone() Index {
	return Index{Name: ix.Name, Kind: ix.Kind, Properties: slices.Clone(ix.Properties)}
}

func (fk ForeignKey) clone() ForeignKey {
	c := fk
	c.Properties = slices.Clone(fk.Properties)
	c.ReferencedColumns = slices.Clone(fk.ReferencedColumns)
	return c
}
