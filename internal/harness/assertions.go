package harness

import (
	"context"
	"fmt"
	"reflect"
	"slices"
)

// Check compares res with the expectations of sc. Unset expectations are
// not checked.
func Check(sc *Scenario, driver string, res *Result) []Failure {
	var failures []Failure
	fail := func(step, format string, args ...any) {
		failures = append(failures, Failure{Driver: driver, Step: step, Message: fmt.Sprintf(format, args...)})
	}
	if len(res.Steps) != len(sc.Steps) {
		fail("", "ran %d steps, scenario has %d", len(res.Steps), len(sc.Steps))
		return failures
	}
	for i, st := range sc.Steps {
		got, want := res.Steps[i], st.Expect
		if got.Error != want.Error {
			switch {
			case want.Error == "":
				fail(st.Name, "unexpected error %s", got.Error)
			case got.Error == "":
				fail(st.Name, "expected error %s, step succeeded", want.Error)
			default:
				fail(st.Name, "expected error %s, got %s", want.Error, got.Error)
			}
			continue
		}
		if want.IDs != nil && !slices.Equal(want.IDs, got.IDs) {
			fail(st.Name, "expected ids %v, got %v", want.IDs, got.IDs)
		}
		if want.Count != nil && *want.Count != got.Count {
			fail(st.Name, "expected count %d, got %d", *want.Count, got.Count)
		}
	}
	return failures
}

// RunAll runs sc against each of its drivers, checks every result and
// requires the drivers to agree. It returns the first driver's result.
func (h *Harness) RunAll(ctx context.Context, sc *Scenario) (*Result, []Failure, error) {
	drivers := sc.Drivers
	if len(drivers) == 0 {
		drivers = DefaultDrivers
	}
	var first *Result
	var failures []Failure
	for _, driver := range drivers {
		res, err := h.Run(ctx, sc, driver)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", driver, err)
		}
		failures = append(failures, Check(sc, driver, res)...)
		if first == nil {
			first = res
			continue
		}
		for i := range res.Steps {
			if i < len(first.Steps) && !reflect.DeepEqual(first.Steps[i], res.Steps[i]) {
				failures = append(failures, Failure{
					Driver:  driver,
					Step:    res.Steps[i].Name,
					Message: fmt.Sprintf("differs from %s: %+v vs %+v", drivers[0], res.Steps[i], first.Steps[i]),
				})
			}
		}
	}
	return first, failures, nil
}
