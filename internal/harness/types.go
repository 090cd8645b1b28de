package harness

// Result is the driver-independent outcome of a scenario. Two conforming
// drivers produce identical Results for the same scenario.
type Result struct {
	Scenario string       `json:"scenario"`
	Steps    []StepResult `json:"steps"`
}

// StepResult records what one step observed.
type StepResult struct {
	Name string `json:"name"`
	// IDs are the keys of the selected or identified rows.
	IDs []int64 `json:"ids"`
	// Count is the number of rows left in the dataset after a remove, or
	// the number of selected rows otherwise.
	Count int `json:"count"`
	// Error is the error code of a failed step.
	Error string `json:"error,omitempty"`
}

// Failure is an expectation a step did not meet.
type Failure struct {
	Driver  string
	Step    string
	Message string
}

func (f Failure) String() string {
	return f.Driver + ": step " + f.Step + ": " + f.Message
}
