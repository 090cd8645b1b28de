package schema

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dataccess/internal/datatype"
)

// Document is the serialized form of a DataSetType, shared by YAML schema
// files and the JSON catalog entries persisted by SQL backends.
type Document struct {
	Name             string              `json:"name" yaml:"name"`
	Title            string              `json:"title,omitempty" yaml:"title,omitempty"`
	Properties       []datatype.Property `json:"properties" yaml:"properties"`
	PrimaryKey       *PrimaryKey         `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
	UniqueKeys       []UniqueKey         `json:"unique_keys,omitempty" yaml:"unique_keys,omitempty"`
	Indexes          []Index             `json:"indexes,omitempty" yaml:"indexes,omitempty"`
	CheckConstraints []CheckConstraint   `json:"check_constraints,omitempty" yaml:"check_constraints,omitempty"`
	ForeignKeys      []ForeignKey        `json:"foreign_keys,omitempty" yaml:"foreign_keys,omitempty"`
	DefaultGeometry  string              `json:"default_geometry,omitempty" yaml:"default_geometry,omitempty"`
}

// Document returns the serializable form of t.
func (t *DataSetType) Document() Document {
	return Document{
		Name:             t.name,
		Title:            t.title,
		Properties:       t.Properties(),
		PrimaryKey:       t.PrimaryKey(),
		UniqueKeys:       t.UniqueKeys(),
		Indexes:          t.Indexes(),
		CheckConstraints: t.CheckConstraints(),
		ForeignKeys:      t.ForeignKeys(),
		DefaultGeometry:  t.defaultGeometry,
	}
}

// FromDocument rebuilds a DataSetType, enforcing the same rules as the
// mutators. Foreign keys are checked against resolve when it is non-nil.
func FromDocument(doc Document, resolve Resolver) (*DataSetType, error) {
	t := New(doc.Name)
	t.title = doc.Title
	for _, p := range doc.Properties {
		if err := t.AddProperty(p); err != nil {
			return nil, err
		}
	}
	if doc.PrimaryKey != nil {
		if err := t.SetPrimaryKey(*doc.PrimaryKey); err != nil {
			return nil, err
		}
	}
	for _, uk := range doc.UniqueKeys {
		if err := t.AddUniqueKey(uk); err != nil {
			return nil, err
		}
	}
	for _, ix := range doc.Indexes {
		if err := t.AddIndex(ix); err != nil {
			return nil, err
		}
	}
	for _, cc := range doc.CheckConstraints {
		if err := t.AddCheckConstraint(cc); err != nil {
			return nil, err
		}
	}
	for _, fk := range doc.ForeignKeys {
		if err := t.AddForeignKey(fk, resolve); err != nil {
			return nil, err
		}
	}
	if doc.DefaultGeometry != "" {
		if err := t.SetDefaultGeometry(doc.DefaultGeometry); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// ParseYAML decodes one YAML schema document.
func ParseYAML(r io.Reader) (*DataSetType, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode schema yaml: %w", err)
	}
	return FromDocument(doc, nil)
}

// MarshalJSON encodes t as its Document.
func (t *DataSetType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Document())
}

// UnmarshalJSON decodes a Document into t, replacing its contents.
func (t *DataSetType) UnmarshalJSON(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	parsed, err := FromDocument(doc, nil)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}
