package schema

import (
	"fmt"

	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
)

// ValidateName rejects empty names, names starting with a digit and names
// containing characters outside [A-Za-z0-9_].
func ValidateName(name string) error {
	if name == "" {
		return errs.Precondition("name is empty")
	}
	if name[0] >= '0' && name[0] <= '9' {
		return errs.Precondition("name %q starts with a digit", name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return errs.Precondition("name %q contains invalid character %q", name, r)
		}
	}
	return nil
}

// Problem is one finding of Validate.
type Problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (p Problem) Error() string {
	return fmt.Sprintf("%s: %s", p.Field, p.Message)
}

// Validate checks the dataset type for problems that the mutators cannot
// catch on their own: missing type attributes and an absent name.
// Returns all problems found (does not fail-fast).
func (t *DataSetType) Validate() []Problem {
	var problems []Problem
	if err := ValidateName(t.name); err != nil {
		problems = append(problems, Problem{Field: "name", Message: err.Error()})
	}
	if len(t.properties) == 0 {
		problems = append(problems, Problem{Field: "properties", Message: "at least one property is required"})
	}
	for i, p := range t.properties {
		field := fmt.Sprintf("properties[%d]", i)
		switch p.Type {
		case datatype.String:
			if p.StringKind == datatype.FixedString && p.Size <= 0 {
				problems = append(problems, Problem{Field: field, Message: "fixed string needs a positive size"})
			}
		case datatype.Numeric:
			if p.Scale < 0 || (p.Precision > 0 && p.Scale > p.Precision) {
				problems = append(problems, Problem{Field: field, Message: "numeric scale must be within precision"})
			}
		case datatype.Array:
			if p.ElementType == datatype.Array {
				problems = append(problems, Problem{Field: field, Message: "nested arrays are not supported"})
			}
		}
		if p.AutoNumber && !p.Type.IsInteger() {
			problems = append(problems, Problem{Field: field, Message: "auto-number requires an integer type"})
		}
	}
	return problems
}
