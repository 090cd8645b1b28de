package eval

import (
	"github.com/roach88/dataccess/internal/datatype"
	"github.com/roach88/dataccess/internal/query"
)

// OrderKeys evaluates the ORDER BY expressions over row.
func (ev *Evaluator) OrderKeys(order []*query.OrderByItem, row Row) ([]datatype.Value, error) {
	keys := make([]datatype.Value, len(order))
	for i, o := range order {
		v, err := ev.Eval(o.Expr, row)
		if err != nil {
			return nil, err
		}
		keys[i] = v
	}
	return keys, nil
}

// Less reports whether keys a sort before keys b under order. NULLs sort
// first in ascending order. Incomparable values are treated as equal, so a
// stable sort keeps their input order.
func Less(order []*query.OrderByItem, a, b []datatype.Value) bool {
	for i, o := range order {
		c := compareKeys(a[i], b[i])
		if c == 0 {
			continue
		}
		if o.Order == query.Desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func compareKeys(a, b datatype.Value) int {
	an, bn := datatype.IsNull(a), datatype.IsNull(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}
	c, ok := datatype.Compare(a, b)
	if !ok {
		return 0
	}
	return c
}

// Window applies OFFSET and LIMIT to items. Nil bounds are absent.
func Window[T any](items []T, offset, limit *int) []T {
	if offset != nil && *offset > 0 {
		if *offset >= len(items) {
			return nil
		}
		items = items[*offset:]
	}
	if limit != nil && *limit < len(items) {
		items = items[:max(*limit, 0)]
	}
	return items
}
