package capabilities

import (
	"fmt"

	"github.com/roach88/dataccess/internal/datatype"
)

// Document is the serialized form of DataSourceCapabilities. CUE profiles
// decode into it and the CLI prints it.
type Document struct {
	Name                   string                  `json:"name"`
	AccessPolicy           string                  `json:"access_policy,omitempty"`
	Transactions           bool                    `json:"transactions,omitempty"`
	DataSetPersistence     bool                    `json:"dataset_persistence,omitempty"`
	DataSetTypePersistence bool                    `json:"dataset_type_persistence,omitempty"`
	PreparedQuery          bool                    `json:"prepared_query,omitempty"`
	BatchExecutor          bool                    `json:"batch_executor,omitempty"`
	DataTypes              DataTypesDocument       `json:"data_types"`
	DataSetType            DataSetTypeCapabilities `json:"dataset_type"`
	DataSet                DataSetCapabilities     `json:"dataset"`
	Query                  QueryDocument           `json:"query"`
	Specific               map[string]string       `json:"specific,omitempty"`
}

// DataTypesDocument is the serialized DataTypeCapabilities.
type DataTypesDocument struct {
	Supported []string          `json:"supported"`
	Hints     map[string]string `json:"hints,omitempty"`
}

// QueryDocument is the serialized QueryCapabilities.
type QueryDocument struct {
	SQLDialect        bool              `json:"sql_dialect,omitempty"`
	SpatialSQLDialect bool              `json:"spatial_sql_dialect,omitempty"`
	Insert            bool              `json:"insert,omitempty"`
	Update            bool              `json:"update,omitempty"`
	Delete            bool              `json:"delete,omitempty"`
	Create            bool              `json:"create,omitempty"`
	Drop              bool              `json:"drop,omitempty"`
	Alter             bool              `json:"alter,omitempty"`
	Select            bool              `json:"select,omitempty"`
	SelectInto        bool              `json:"select_into,omitempty"`
	Operators         OperatorsDocument `json:"operators"`
}

// OperatorsDocument is the serialized Operators. Geometry operand types are
// kept as names so the CUE decoder only sees strings.
type OperatorsDocument struct {
	Spatial          []string `json:"spatial,omitempty"`
	Comparison       []string `json:"comparison,omitempty"`
	Logical          []string `json:"logical,omitempty"`
	Arithmetic       []string `json:"arithmetic,omitempty"`
	Functions        []string `json:"functions,omitempty"`
	GeometryOperands []string `json:"geometry_operands,omitempty"`
}

// FromDocument builds the typed capability record.
func FromDocument(doc Document) (DataSourceCapabilities, error) {
	var c DataSourceCapabilities

	policy, err := ParseAccessPolicy(doc.AccessPolicy)
	if err != nil {
		return c, err
	}
	c.AccessPolicy = policy
	c.Transactions = doc.Transactions
	c.DataSetPersistenceAPI = doc.DataSetPersistence
	c.DataSetTypePersistenceAPI = doc.DataSetTypePersistence
	c.PreparedQueryAPI = doc.PreparedQuery
	c.BatchExecutorAPI = doc.BatchExecutor

	supported := make([]datatype.Type, 0, len(doc.DataTypes.Supported))
	for _, name := range doc.DataTypes.Supported {
		t, err := datatype.ParseType(name)
		if err != nil {
			return c, fmt.Errorf("data_types.supported: %w", err)
		}
		supported = append(supported, t)
	}
	hints := make(map[datatype.Type]datatype.Type, len(doc.DataTypes.Hints))
	for from, to := range doc.DataTypes.Hints {
		ft, err := datatype.ParseType(from)
		if err != nil {
			return c, fmt.Errorf("data_types.hints: %w", err)
		}
		tt, err := datatype.ParseType(to)
		if err != nil {
			return c, fmt.Errorf("data_types.hints[%s]: %w", from, err)
		}
		hints[ft] = tt
	}
	c.DataType = NewDataTypeCapabilities(supported, hints)
	c.DataSetType = doc.DataSetType
	c.DataSet = doc.DataSet

	q := doc.Query
	ops := Operators{
		Spatial:    q.Operators.Spatial,
		Comparison: q.Operators.Comparison,
		Logical:    q.Operators.Logical,
		Arithmetic: q.Operators.Arithmetic,
		Functions:  q.Operators.Functions,
	}
	for _, name := range q.Operators.GeometryOperands {
		t, err := datatype.ParseType(name)
		if err != nil {
			return c, fmt.Errorf("query.operators.geometry_operands: %w", err)
		}
		ops.GeometryOperands = append(ops.GeometryOperands, t)
	}
	c.Query = QueryCapabilities{
		SQLDialect:        q.SQLDialect,
		SpatialSQLDialect: q.SpatialSQLDialect,
		Insert:            q.Insert,
		Update:            q.Update,
		Delete:            q.Delete,
		Create:            q.Create,
		Drop:              q.Drop,
		Alter:             q.Alter,
		Select:            q.Select,
		SelectInto:        q.SelectInto,
	}.WithOperators(ops)

	return c.WithSpecific(doc.Specific), nil
}

// Document returns the serializable form of c.
func (c DataSourceCapabilities) Document(name string) Document {
	supported := c.DataType.SupportedTypes()
	names := make([]string, len(supported))
	for i, t := range supported {
		names[i] = t.String()
	}
	var hints map[string]string
	if h := c.DataType.Hints(); len(h) > 0 {
		hints = make(map[string]string, len(h))
		for from, to := range h {
			hints[from.String()] = to.String()
		}
	}
	var specific map[string]string
	if len(c.specific) > 0 {
		specific = make(map[string]string, len(c.specific))
		for k, v := range c.specific {
			specific[k] = v
		}
	}
	q := c.Query
	ops := q.Operators()
	operands := make([]string, len(ops.GeometryOperands))
	for i, t := range ops.GeometryOperands {
		operands[i] = t.String()
	}
	return Document{
		Name:                   name,
		AccessPolicy:           c.AccessPolicy.String(),
		Transactions:           c.Transactions,
		DataSetPersistence:     c.DataSetPersistenceAPI,
		DataSetTypePersistence: c.DataSetTypePersistenceAPI,
		PreparedQuery:          c.PreparedQueryAPI,
		BatchExecutor:          c.BatchExecutorAPI,
		DataTypes:              DataTypesDocument{Supported: names, Hints: hints},
		DataSetType:            c.DataSetType,
		DataSet:                c.DataSet,
		Query: QueryDocument{
			SQLDialect:        q.SQLDialect,
			SpatialSQLDialect: q.SpatialSQLDialect,
			Insert:            q.Insert,
			Update:            q.Update,
			Delete:            q.Delete,
			Create:            q.Create,
			Drop:              q.Drop,
			Alter:             q.Alter,
			Select:            q.Select,
			SelectInto:        q.SelectInto,
			Operators: OperatorsDocument{
				Spatial:          ops.Spatial,
				Comparison:       ops.Comparison,
				Logical:          ops.Logical,
				Arithmetic:       ops.Arithmetic,
				Functions:        ops.Functions,
				GeometryOperands: operands,
			},
		},
		Specific: specific,
	}
}
