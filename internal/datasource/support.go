package datasource

import (
	"github.com/roach88/dataccess/internal/capabilities"
	"github.com/roach88/dataccess/internal/errs"
	"github.com/roach88/dataccess/internal/query"
)

// CheckSupported fails with CAPABILITY_MISMATCH when n calls a function or
// operator caps does not list, or uses a statement kind caps disables.
// Backends call it before running a statement.
func CheckSupported(caps capabilities.QueryCapabilities, n query.Node) error {
	switch n.(type) {
	case *query.Select:
		if !caps.Select {
			return errs.CapabilityMismatch("select is not supported")
		}
	case *query.Insert:
		if !caps.Insert {
			return errs.CapabilityMismatch("insert is not supported")
		}
	case *query.Update:
		if !caps.Update {
			return errs.CapabilityMismatch("update is not supported")
		}
	case *query.Delete:
		if !caps.Delete {
			return errs.CapabilityMismatch("delete is not supported")
		}
	}
	var err error
	query.Inspect(n, func(c query.Node) bool {
		if err != nil {
			return false
		}
		if f, ok := c.(*query.Function); ok && !caps.SupportsOperator(f.Name) {
			err = errs.CapabilityMismatch("operator %s is not supported", f.Name)
		}
		return err == nil
	})
	return err
}
