package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/schema"
)

// catalogTable persists each dataset type as a JSON schema document, so
// properties keep the semantic types, SRIDs and constraints SQLite's own
// schema cannot express.
const catalogTable = "dataccess_catalog"

// querier is the subset of *sql.DB and *sql.Tx the transactor runs
// statements through.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

func createCatalog(ctx context.Context, db *sql.DB) error {
	const ddl = `CREATE TABLE IF NOT EXISTS ` + catalogTable + ` (
		name     TEXT PRIMARY KEY,
		document TEXT NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return errs.Wrap(errs.CodeConfiguration, err, "create catalog")
	}
	return nil
}

func loadType(ctx context.Context, q querier, name string) (*schema.DataSetType, error) {
	var doc string
	err := q.QueryRowContext(ctx, `SELECT document FROM `+catalogTable+` WHERE name = ?`, name).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.NotFound("dataset %q not found", name).WithDataSet(name)
	}
	if err != nil {
		return nil, mapError(err, "load dataset type %q", name)
	}
	dt := schema.New(name)
	if err := json.Unmarshal([]byte(doc), dt); err != nil {
		return nil, errs.Wrap(errs.CodeRowExtraction, err, "decode catalog entry %q", name).WithDataSet(name)
	}
	return dt, nil
}

func saveType(ctx context.Context, q querier, dt *schema.DataSetType) error {
	doc, err := json.Marshal(dt)
	if err != nil {
		return errs.Wrap(errs.CodePrecondition, err, "encode dataset type %q", dt.Name())
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO `+catalogTable+` (name, document) VALUES (?, ?)
		 ON CONFLICT (name) DO UPDATE SET document = excluded.document`,
		dt.Name(), string(doc))
	if err != nil {
		return mapError(err, "save dataset type %q", dt.Name())
	}
	return nil
}

func deleteType(ctx context.Context, q querier, name string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM `+catalogTable+` WHERE name = ?`, name); err != nil {
		return mapError(err, "delete dataset type %q", name)
	}
	return nil
}

func typeNames(ctx context.Context, q querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT name FROM `+catalogTable+` ORDER BY name`)
	if err != nil {
		return nil, mapError(err, "list datasets")
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, mapError(err, "list datasets")
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "list datasets")
	}
	return names, nil
}

func typeExists(ctx context.Context, q querier, name string) (bool, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+catalogTable+` WHERE name = ?`, name).Scan(&n)
	if err != nil {
		return false, mapError(err, "look up dataset %q", name)
	}
	return n > 0, nil
}
