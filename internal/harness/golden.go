package harness

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// RunWithGolden runs sc against all its drivers, fails t on any unmet
// expectation or driver disagreement, and compares the shared result with
// testdata/golden/{sc.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, sc *Scenario) error {
	t.Helper()

	res, failures, err := New().RunAll(context.Background(), sc)
	if err != nil {
		return err
	}
	for _, f := range failures {
		t.Error(f.String())
	}
	return AssertGolden(t, sc.Name, res)
}

// AssertGolden compares res with the golden file named name.
func AssertGolden(t *testing.T, name string, res *Result) error {
	t.Helper()

	data, err := MarshalResult(res)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}

// MarshalResult renders res in golden file form.
func MarshalResult(res *Result) ([]byte, error) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
