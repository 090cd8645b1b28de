package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/dataccess/internal/schema"
)

// Scenario defines a conformance scenario: fixture datasets loaded into
// every driver, then steps whose outcome must be the same everywhere.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Drivers lists the driver types to run against. Defaults to every
	// built-in driver.
	Drivers []string `yaml:"drivers,omitempty"`

	// Key is the integer property steps report rows by. Defaults to "id".
	Key string `yaml:"key,omitempty"`

	// DataSets are created and filled before the first step.
	DataSets []Fixture `yaml:"datasets"`

	// Steps run in order against the same transactor.
	Steps []Step `yaml:"steps"`
}

// Fixture is a dataset schema plus its rows. Row values are written as
// literals of the property type; geometries as WKT in the property SRID.
type Fixture struct {
	Schema schema.Document  `yaml:"schema"`
	Rows   []map[string]any `yaml:"rows"`
}

// Step performs exactly one of its operations.
type Step struct {
	Name string `yaml:"name"`

	// Query selects rows through the spatial processor.
	Query *QuerySpec `yaml:"query,omitempty"`

	// OIDs identifies the rows Query would select.
	OIDs *QuerySpec `yaml:"oids,omitempty"`

	// Remove deletes rows by key.
	Remove *RemoveSpec `yaml:"remove,omitempty"`

	// Expect is checked after the operation. Unset fields are not checked.
	Expect Expect `yaml:"expect"`
}

// QuerySpec describes a select over one dataset.
type QuerySpec struct {
	DataSet string   `yaml:"dataset"`
	Fields  []string `yaml:"fields,omitempty"`

	// Filter is a SQL boolean expression. Filter and Where conditions are
	// joined with AND.
	Filter string      `yaml:"filter,omitempty"`
	Where  []Condition `yaml:"where,omitempty"`

	// Geometry (WKT) or BBox [minx, miny, maxx, maxy] restricts rows by
	// Relation (default INTERSECTS) on Property (default: the dataset's
	// default geometry).
	Geometry string    `yaml:"geometry,omitempty"`
	BBox     []float64 `yaml:"bbox,omitempty"`
	Property string    `yaml:"property,omitempty"`
	Relation string    `yaml:"relation,omitempty"`

	// OrderBy lists properties, ascending; a leading "-" sorts descending.
	// Without it, reported keys are sorted.
	OrderBy []string `yaml:"order_by,omitempty"`
	Limit   int      `yaml:"limit,omitempty"`
	Offset  int      `yaml:"offset,omitempty"`
}

// Condition compares a property with a constant.
type Condition struct {
	Property string `yaml:"property"`
	Op       string `yaml:"op"`
	Value    any    `yaml:"value"`
}

// RemoveSpec deletes the rows of a dataset whose key is listed.
type RemoveSpec struct {
	DataSet string  `yaml:"dataset"`
	IDs     []int64 `yaml:"ids"`
}

// Expect holds the expected outcome of a step.
type Expect struct {
	IDs   []int64 `yaml:"ids,omitempty"`
	Count *int    `yaml:"count,omitempty"`
	// Error is the expected error code, such as NOT_FOUND.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if scenario.Key == "" {
		scenario.Key = "id"
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.DataSets) == 0 {
		return fmt.Errorf("datasets list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	for i, f := range s.DataSets {
		if f.Schema.Name == "" {
			return fmt.Errorf("datasets[%d]: schema name is required", i)
		}
	}
	for i, st := range s.Steps {
		if st.Name == "" {
			return fmt.Errorf("steps[%d]: name is required", i)
		}
		n := 0
		for _, set := range []bool{st.Query != nil, st.OIDs != nil, st.Remove != nil} {
			if set {
				n++
			}
		}
		if n != 1 {
			return fmt.Errorf("step %q: exactly one of query, oids or remove is required", st.Name)
		}
		for _, q := range []*QuerySpec{st.Query, st.OIDs} {
			if q == nil {
				continue
			}
			if q.DataSet == "" {
				return fmt.Errorf("step %q: dataset is required", st.Name)
			}
			if q.Geometry != "" && len(q.BBox) > 0 {
				return fmt.Errorf("step %q: geometry and bbox are exclusive", st.Name)
			}
			if len(q.BBox) != 0 && len(q.BBox) != 4 {
				return fmt.Errorf("step %q: bbox needs 4 numbers, got %d", st.Name, len(q.BBox))
			}
		}
	}
	return nil
}
