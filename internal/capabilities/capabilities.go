package capabilities

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/dataccess/internal/datatype"
)

// AccessPolicy restricts what callers may do with a data source.
type AccessPolicy int

const (
	NoAccess AccessPolicy = iota
	ReadOnly
	WriteOnly
	ReadWrite
)

var policyNames = [...]string{
	NoAccess:  "no_access",
	ReadOnly:  "read_only",
	WriteOnly: "write_only",
	ReadWrite: "read_write",
}

func (p AccessPolicy) String() string {
	if p < 0 || int(p) >= len(policyNames) {
		return fmt.Sprintf("AccessPolicy(%d)", int(p))
	}
	return policyNames[p]
}

// ParseAccessPolicy parses a policy name. Empty means ReadWrite.
func ParseAccessPolicy(s string) (AccessPolicy, error) {
	if s == "" {
		return ReadWrite, nil
	}
	for i, n := range policyNames {
		if n == s {
			return AccessPolicy(i), nil
		}
	}
	return NoAccess, fmt.Errorf("unknown access policy %q", s)
}

// CanRead reports whether reads are allowed.
func (p AccessPolicy) CanRead() bool { return p == ReadOnly || p == ReadWrite }

// CanWrite reports whether writes are allowed.
func (p AccessPolicy) CanWrite() bool { return p == WriteOnly || p == ReadWrite }

// DataTypeCapabilities lists the property types a backend stores natively and,
// for the others, the type it would rather receive.
type DataTypeCapabilities struct {
	supported map[datatype.Type]bool
	hints     map[datatype.Type]datatype.Type
}

// NewDataTypeCapabilities copies its arguments.
func NewDataTypeCapabilities(supported []datatype.Type, hints map[datatype.Type]datatype.Type) DataTypeCapabilities {
	c := DataTypeCapabilities{
		supported: make(map[datatype.Type]bool, len(supported)),
		hints:     maps.Clone(hints),
	}
	for _, t := range supported {
		c.supported[t] = true
	}
	return c
}

// AllDataTypes supports every member of the type enumeration.
func AllDataTypes() DataTypeCapabilities {
	return NewDataTypeCapabilities(datatype.AllTypes(), nil)
}

// Supports reports whether t is stored natively.
func (c DataTypeCapabilities) Supports(t datatype.Type) bool {
	return c.supported[t]
}

// Hint returns the replacement type suggested for an unsupported type.
func (c DataTypeCapabilities) Hint(t datatype.Type) (datatype.Type, bool) {
	h, ok := c.hints[t]
	return h, ok
}

// SupportedTypes returns the supported types in enumeration order.
func (c DataTypeCapabilities) SupportedTypes() []datatype.Type {
	out := make([]datatype.Type, 0, len(c.supported))
	for t := range c.supported {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Hints returns a copy of the type hints.
func (c DataTypeCapabilities) Hints() map[datatype.Type]datatype.Type {
	return maps.Clone(c.hints)
}

// DataSetTypeCapabilities describes which schema constructs DDL can create.
type DataSetTypeCapabilities struct {
	PrimaryKey       bool `json:"primary_key"`
	UniqueKey        bool `json:"unique_key"`
	ForeignKey       bool `json:"foreign_key"`
	Sequence         bool `json:"sequence"`
	CheckConstraints bool `json:"check_constraints"`
	Index            bool `json:"index"`
	RTreeIndex       bool `json:"rtree_index"`
	BTreeIndex       bool `json:"btree_index"`
	HashIndex        bool `json:"hash_index"`
	QuadTreeIndex    bool `json:"quadtree_index"`
}

// DataSetCapabilities describes the cursors a backend returns.
type DataSetCapabilities struct {
	Bidirectional            bool `json:"bidirectional"`
	Random                   bool `json:"random"`
	Indexed                  bool `json:"indexed"`
	EfficientMovePrevious    bool `json:"efficient_move_previous"`
	EfficientMoveBeforeFirst bool `json:"efficient_move_before_first"`
	EfficientMoveLast        bool `json:"efficient_move_last"`
	EfficientMoveAfterLast   bool `json:"efficient_move_after_last"`
	EfficientMove            bool `json:"efficient_move"`
	EfficientSize            bool `json:"efficient_size"`
}

// Operators lists operator and function names by category.
type Operators struct {
	Spatial          []string        `json:"spatial,omitempty"`
	Comparison       []string        `json:"comparison,omitempty"`
	Logical          []string        `json:"logical,omitempty"`
	Arithmetic       []string        `json:"arithmetic,omitempty"`
	Functions        []string        `json:"functions,omitempty"`
	GeometryOperands []datatype.Type `json:"geometry_operands,omitempty"`
}

type nameSet map[string]bool

func newNameSet(names []string) nameSet {
	s := make(nameSet, len(names))
	for _, n := range names {
		s[strings.ToLower(n)] = true
	}
	return s
}

func (s nameSet) has(name string) bool { return s[strings.ToLower(name)] }

// QueryCapabilities describes the statements and operators a backend
// executes natively. Operator lookups are case-insensitive.
type QueryCapabilities struct {
	SQLDialect        bool `json:"sql_dialect"`
	SpatialSQLDialect bool `json:"spatial_sql_dialect"`
	Insert            bool `json:"insert"`
	Update            bool `json:"update"`
	Delete            bool `json:"delete"`
	Create            bool `json:"create"`
	Drop              bool `json:"drop"`
	Alter             bool `json:"alter"`
	Select            bool `json:"select"`
	SelectInto        bool `json:"select_into"`

	ops        Operators
	spatial    nameSet
	comparison nameSet
	logical    nameSet
	arithmetic nameSet
	functions  nameSet
}

// WithOperators returns a copy of q declaring ops.
func (q QueryCapabilities) WithOperators(ops Operators) QueryCapabilities {
	q.ops = Operators{
		Spatial:          slices.Clone(ops.Spatial),
		Comparison:       slices.Clone(ops.Comparison),
		Logical:          slices.Clone(ops.Logical),
		Arithmetic:       slices.Clone(ops.Arithmetic),
		Functions:        slices.Clone(ops.Functions),
		GeometryOperands: slices.Clone(ops.GeometryOperands),
	}
	q.spatial = newNameSet(ops.Spatial)
	q.comparison = newNameSet(ops.Comparison)
	q.logical = newNameSet(ops.Logical)
	q.arithmetic = newNameSet(ops.Arithmetic)
	q.functions = newNameSet(ops.Functions)
	return q
}

// Operators returns a copy of the declared operators.
func (q QueryCapabilities) Operators() Operators {
	return q.WithOperators(q.ops).ops
}

// SupportsSpatial reports whether a spatial operator (ST_Intersects...) runs natively.
func (q QueryCapabilities) SupportsSpatial(name string) bool { return q.spatial.has(name) }

// SupportsComparison reports whether a comparison operator runs natively.
func (q QueryCapabilities) SupportsComparison(name string) bool { return q.comparison.has(name) }

// SupportsLogical reports whether a logical connective runs natively.
func (q QueryCapabilities) SupportsLogical(name string) bool { return q.logical.has(name) }

// SupportsArithmetic reports whether an arithmetic operator runs natively.
func (q QueryCapabilities) SupportsArithmetic(name string) bool { return q.arithmetic.has(name) }

// SupportsFunction reports whether a named function runs natively.
func (q QueryCapabilities) SupportsFunction(name string) bool { return q.functions.has(name) }

// SupportsOperator reports whether name appears in any category.
func (q QueryCapabilities) SupportsOperator(name string) bool {
	return q.SupportsSpatial(name) || q.SupportsComparison(name) || q.SupportsLogical(name) ||
		q.SupportsArithmetic(name) || q.SupportsFunction(name)
}

// SupportsGeometryOperand reports whether geometry literals of type t are accepted.
func (q QueryCapabilities) SupportsGeometryOperand(t datatype.Type) bool {
	return slices.Contains(q.ops.GeometryOperands, t)
}

// DataSourceCapabilities is the read-only capability snapshot of a driver.
// It is fixed per driver instance and has value semantics.
type DataSourceCapabilities struct {
	AccessPolicy              AccessPolicy
	Transactions              bool
	DataSetPersistenceAPI     bool
	DataSetTypePersistenceAPI bool
	PreparedQueryAPI          bool
	BatchExecutorAPI          bool

	DataType    DataTypeCapabilities
	DataSetType DataSetTypeCapabilities
	DataSet     DataSetCapabilities
	Query       QueryCapabilities

	specific map[string]string
}

// WithSpecific returns a copy of c carrying backend-specific settings.
func (c DataSourceCapabilities) WithSpecific(kv map[string]string) DataSourceCapabilities {
	c.specific = maps.Clone(kv)
	return c
}

// Specific returns a backend-specific setting.
func (c DataSourceCapabilities) Specific(key string) (string, bool) {
	v, ok := c.specific[key]
	return v, ok
}

// SpecificKeys returns the backend-specific keys, sorted.
func (c DataSourceCapabilities) SpecificKeys() []string {
	return slices.Sorted(maps.Keys(c.specific))
}
