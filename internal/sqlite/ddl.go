package sqlite

import (
	"context"

	"github.com/roach88/dataccess/internal/datasource"
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/query"
	"github.com/roach88/dataccess/internal/schema"
	"github.com/roach88/dataccess/internal/sqldialect"
)

func (tr *Transactor) checkProperty(p datatype.Property) error {
	if err := tr.ValidateName(p.Name); err != nil {
		return err
	}
	if !tr.src.caps.DataType.Supports(p.Type) {
		return errs.CapabilityMismatch("type %s of property %q is not supported", p.Type, p.Name)
	}
	return nil
}

// CreateDataSet creates the table, its indexes and the catalog entry.
// Options are ignored.
func (tr *Transactor) CreateDataSet(ctx context.Context, dt *schema.DataSetType, _ datasource.Options) error {
	if dt == nil {
		return errs.Precondition("nil dataset type")
	}
	if err := tr.ValidateName(dt.Name()); err != nil {
		return err
	}
	if problems := dt.Validate(); len(problems) > 0 {
		return errs.Precondition("invalid dataset type: %s", problems[0]).WithDataSet(dt.Name())
	}
	for _, p := range dt.Properties() {
		if err := tr.checkProperty(p); err != nil {
			return err
		}
	}
	return tr.withTx(ctx, func(ctx context.Context, q querier) error {
		ok, err := typeExists(ctx, q, dt.Name())
		if err != nil {
			return err
		}
		if ok {
			return errs.AlreadyExists("dataset %q already exists", dt.Name()).WithDataSet(dt.Name())
		}
		return create(ctx, q, dt.Name(), dt)
	})
}

// create makes the table and indexes of dt under the given table name.
func create(ctx context.Context, q querier, table string, dt *schema.DataSetType) error {
	ddl, err := createTable(table, dt)
	if err != nil {
		return err
	}
	if _, err := exec(ctx, q, ddl); err != nil {
		return err
	}
	for _, ix := range dt.Indexes() {
		if _, err := exec(ctx, q, createIndex(table, dt, ix)); err != nil {
			return err
		}
	}
	return saveType(ctx, q, dt)
}

func (tr *Transactor) DropDataSet(ctx context.Context, name string) error {
	return tr.withTx(ctx, func(ctx context.Context, q querier) error {
		if _, err := loadType(ctx, q, name); err != nil {
			return err
		}
		if _, err := exec(ctx, q, "DROP TABLE "+sqldialect.QuoteIdent(name)); err != nil {
			return err
		}
		return deleteType(ctx, q, name)
	})
}

// RenameDataSet renames the table and recreates its indexes under the new
// name.
func (tr *Transactor) RenameDataSet(ctx context.Context, name, newName string) error {
	if err := tr.ValidateName(newName); err != nil {
		return err
	}
	return tr.withTx(ctx, func(ctx context.Context, q querier) error {
		dt, err := loadType(ctx, q, name)
		if err != nil {
			return err
		}
		ok, err := typeExists(ctx, q, newName)
		if err != nil {
			return err
		}
		if ok {
			return errs.AlreadyExists("dataset %q already exists", newName).WithDataSet(newName)
		}
		if _, err := exec(ctx, q, "ALTER TABLE "+sqldialect.QuoteIdent(name)+" RENAME TO "+sqldialect.QuoteIdent(newName)); err != nil {
			return err
		}
		for _, ix := range dt.Indexes() {
			if _, err := exec(ctx, q, "DROP INDEX "+sqldialect.QuoteIdent(indexName(name, ix.Name))); err != nil {
				return err
			}
			if _, err := exec(ctx, q, createIndex(newName, dt, ix)); err != nil {
				return err
			}
		}
		if err := deleteType(ctx, q, name); err != nil {
			return err
		}
		dt.SetName(newName)
		return saveType(ctx, q, dt)
	})
}

// alter applies change to the stored type and rebuilds the table under
// the new type.
func (tr *Transactor) alter(ctx context.Context, name string, change func(dt *schema.DataSetType) error) error {
	return tr.withTx(ctx, func(ctx context.Context, q querier) error {
		old, err := loadType(ctx, q, name)
		if err != nil {
			return err
		}
		next := old.Clone()
		if err := change(next); err != nil {
			return err
		}
		return tr.rebuild(ctx, q, old, next)
	})
}

// rebuild recreates the table of old with the shape of next and copies
// the rows across by property name. New properties take their default.
// Copying re-checks every constraint of next, so adding a key over
// duplicated values fails with ALREADY_EXISTS.
func (tr *Transactor) rebuild(ctx context.Context, q querier, old, next *schema.DataSetType) error {
	name := old.Name()
	// Rows referencing the table are checked at commit, after the copy.
	if _, err := exec(ctx, q, "PRAGMA defer_foreign_keys = ON"); err != nil {
		return err
	}
	rows, err := tr.selectRows(ctx, q, query.BuildSelect(name))
	if err != nil {
		return err
	}
	tmp := name + "__rebuild"
	ddl, err := createTable(tmp, next)
	if err != nil {
		return err
	}
	if _, err := exec(ctx, q, ddl); err != nil {
		return err
	}

	staged := next.Clone()
	staged.SetName(tmp)
	w, err := tr.newWriter(ctx, q, staged)
	if err != nil {
		return err
	}
	defer w.close()
	props := next.Properties()
	src := make([]int, len(props))
	present := make([]bool, len(props))
	for i, p := range props {
		src[i] = old.PropertyPos(p.Name)
		present[i] = src[i] >= 0
	}
	values := make([]datatype.Value, len(props))
	for rows.MoveNext() {
		for i := range props {
			values[i] = datatype.Null{}
			if present[i] {
				v, err := rows.Value(src[i])
				if err != nil {
					return err
				}
				values[i] = v
			}
		}
		if err := w.write(ctx, values, present); err != nil {
			return err
		}
	}

	if _, err := exec(ctx, q, "DROP TABLE "+sqldialect.QuoteIdent(name)); err != nil {
		return err
	}
	if _, err := exec(ctx, q, "ALTER TABLE "+sqldialect.QuoteIdent(tmp)+" RENAME TO "+sqldialect.QuoteIdent(name)); err != nil {
		return err
	}
	for _, ix := range next.Indexes() {
		if _, err := exec(ctx, q, createIndex(name, next, ix)); err != nil {
			return err
		}
	}
	return saveType(ctx, q, next)
}

// AddProperty appends a property. Existing rows take its default value.
func (tr *Transactor) AddProperty(ctx context.Context, name string, p datatype.Property) error {
	if err := tr.checkProperty(p); err != nil {
		return err
	}
	return tr.alter(ctx, name, func(dt *schema.DataSetType) error { return dt.AddProperty(p) })
}

func (tr *Transactor) DropProperty(ctx context.Context, name, prop string) error {
	return tr.alter(ctx, name, func(dt *schema.DataSetType) error { return dt.RemoveProperty(prop) })
}

// AddPrimaryKey fails with ALREADY_EXISTS when stored rows repeat a key.
func (tr *Transactor) AddPrimaryKey(ctx context.Context, name string, pk schema.PrimaryKey) error {
	return tr.alter(ctx, name, func(dt *schema.DataSetType) error { return dt.SetPrimaryKey(pk) })
}

func (tr *Transactor) DropPrimaryKey(ctx context.Context, name string) error {
	return tr.alter(ctx, name, func(dt *schema.DataSetType) error { return dt.DropPrimaryKey() })
}

func (tr *Transactor) AddUniqueKey(ctx context.Context, name string, uk schema.UniqueKey) error {
	return tr.alter(ctx, name, func(dt *schema.DataSetType) error { return dt.AddUniqueKey(uk) })
}

func (tr *Transactor) DropUniqueKey(ctx context.Context, name, key string) error {
	return tr.alter(ctx, name, func(dt *schema.DataSetType) error { return dt.RemoveUniqueKey(key) })
}

// AddCheckConstraint rebuilds the table with the constraint. Stored rows
// violating it fail the call with PRECONDITION.
func (tr *Transactor) AddCheckConstraint(ctx context.Context, name string, cc schema.CheckConstraint) error {
	return tr.alter(ctx, name, func(dt *schema.DataSetType) error { return dt.AddCheckConstraint(cc) })
}

// AddIndex creates a B-tree index whatever the requested kind.
func (tr *Transactor) AddIndex(ctx context.Context, name string, ix schema.Index, _ datasource.Options) error {
	return tr.withTx(ctx, func(ctx context.Context, q querier) error {
		dt, err := loadType(ctx, q, name)
		if err != nil {
			return err
		}
		if err := dt.AddIndex(ix); err != nil {
			return err
		}
		if _, err := exec(ctx, q, createIndex(name, dt, ix)); err != nil {
			return err
		}
		return saveType(ctx, q, dt)
	})
}

func (tr *Transactor) DropIndex(ctx context.Context, name, index string) error {
	return tr.withTx(ctx, func(ctx context.Context, q querier) error {
		dt, err := loadType(ctx, q, name)
		if err != nil {
			return err
		}
		if err := dt.RemoveIndex(index); err != nil {
			return err
		}
		if _, err := exec(ctx, q, "DROP INDEX "+sqldialect.QuoteIdent(indexName(name, index))); err != nil {
			return err
		}
		return saveType(ctx, q, dt)
	})
}
