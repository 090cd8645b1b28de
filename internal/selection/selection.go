package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/oid"
	"github.com/roach88/dataccess/internal/schema"
)

// Selection is a named set of row identities of one dataset.
type Selection struct {
	Name    string
	DataSet string
	Set     *oid.Set
	SavedAt time.Time
}

// Store persists selections so a later session can re-fetch the same rows
// with oid.BuildSelect.
//
// Saving under an existing name replaces the selection. Unknown names fail
// with NOT_FOUND.
type Store interface {
	Save(ctx context.Context, sel Selection) error
	Load(ctx context.Context, name string) (Selection, error)
	Delete(ctx context.Context, name string) error
	// Names returns the stored selection names, sorted.
	Names(ctx context.Context) ([]string, error)
	Close() error
}

// Clock supplies SavedAt timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// document is the persisted form of a selection. Identity cells keep
// their value kind so a reloaded set has the same canonical keys.
type document struct {
	Name       string              `json:"name"`
	DataSet    string              `json:"dataset"`
	Properties []string            `json:"properties"`
	IDs        [][]json.RawMessage `json:"ids"`
	SavedAt    time.Time           `json:"saved_at"`
}

func validate(sel Selection) error {
	if err := schema.ValidateName(sel.Name); err != nil {
		return fmt.Errorf("selection name: %w", err)
	}
	if sel.DataSet == "" {
		return errs.Precondition("selection %q has no dataset", sel.Name)
	}
	if sel.Set == nil {
		return errs.Precondition("selection %q has no identity set", sel.Name)
	}
	return nil
}

func encode(sel Selection) ([]byte, error) {
	doc := document{
		Name:       sel.Name,
		DataSet:    sel.DataSet,
		Properties: sel.Set.PropertyNames(),
		IDs:        [][]json.RawMessage{},
		SavedAt:    sel.SavedAt,
	}
	for _, id := range sel.Set.IDs() {
		cells := make([]json.RawMessage, len(id))
		for i, v := range id {
			b, err := datatype.MarshalValue(v)
			if err != nil {
				return nil, errs.Wrap(errs.CodePrecondition, err, "encode selection %q", sel.Name)
			}
			cells[i] = b
		}
		doc.IDs = append(doc.IDs, cells)
	}
	return json.Marshal(doc)
}

func decode(data []byte) (Selection, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Selection{}, errs.Wrap(errs.CodeRowExtraction, err, "decode selection")
	}
	b := oid.NewBuilder(doc.Properties...)
	for n, cells := range doc.IDs {
		id := make([]datatype.Value, len(cells))
		for i, c := range cells {
			v, err := datatype.UnmarshalValue(c)
			if err != nil {
				return Selection{}, errs.Wrap(errs.CodeRowExtraction, err, "selection %q identity %d", doc.Name, n)
			}
			id[i] = v
		}
		if err := b.Add(id...); err != nil {
			return Selection{}, fmt.Errorf("selection %q: %w", doc.Name, err)
		}
	}
	return Selection{Name: doc.Name, DataSet: doc.DataSet, Set: b.Build(), SavedAt: doc.SavedAt}, nil
}
