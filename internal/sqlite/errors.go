package sqlite

import (
	"context"
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
	moderncsqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"

	"github.com/roach88/dataccess/internal/errs"
)

// mapError classifies a driver error into the errs taxonomy. Both drivers
// report SQLite result codes; constraint violations become ALREADY_EXISTS
// (keys) or PRECONDITION (the rest), interruption becomes CANCELLED.
func mapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var e *errs.Error
	if errors.As(err, &e) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.CodeCancelled, err, format, args...)
	}
	return errs.Wrap(classify(err), err, format, args...)
}

func classify(err error) errs.Code {
	var me sqlite3.Error
	if errors.As(err, &me) {
		switch me.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return errs.CodeAlreadyExists
		case sqlite3.ErrConstraintNotNull, sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintForeignKey:
			return errs.CodePrecondition
		}
		if me.Code == sqlite3.ErrInterrupt {
			return errs.CodeCancelled
		}
		return errs.CodePrecondition
	}

	var ce *moderncsqlite.Error
	if errors.As(err, &ce) {
		switch ce.Code() {
		case sqlitelib.SQLITE_CONSTRAINT_UNIQUE, sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return errs.CodeAlreadyExists
		case sqlitelib.SQLITE_CONSTRAINT_NOTNULL, sqlitelib.SQLITE_CONSTRAINT_CHECK, sqlitelib.SQLITE_CONSTRAINT_FOREIGNKEY:
			return errs.CodePrecondition
		}
		if ce.Code()&0xff == sqlitelib.SQLITE_INTERRUPT {
			return errs.CodeCancelled
		}
	}
	return errs.CodePrecondition
}
