package domain

import "time"

// Status is the classification of a single test invocation
type Status int

const (
	StatusPassed Status = iota
	StatusFailed
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Outcome is the result of invoking one test
type Outcome struct {
	Status   Status
	Cause    error  // Set for errored tests
	Stack    []byte // Goroutine stack captured when the test panicked
	Duration time.Duration
}

// Passed reports whether the outcome counts as a success
func (o Outcome) Passed() bool {
	return o.Status == StatusPassed
}

// TestResult pairs a test id with its outcome
type TestResult struct {
	ID      TestID
	Outcome Outcome
}

// RunSummary describes one completed (or aborted) run
type RunSummary struct {
	RunID     string
	Root      string
	Successes int
	Failures  int
	Skipped   int // Tests excluded because they already succeeded
	Aborted   bool
	Warnings  []Warning
	Results   []TestResult
	Succeeded TestSet
	Duration  time.Duration
}

// RunMeta contains metadata about a stored run
type RunMeta struct {
	RunID           string  `json:"run_id"`
	Root            string  `json:"root"`
	Successful      int     `json:"successful"`
	Failed          int     `json:"failed"`
	Skipped         int     `json:"skipped"`
	Aborted         bool    `json:"aborted"`
	Warnings        int     `json:"warnings"`
	Duration        string  `json:"duration"`
	DurationSeconds float64 `json:"duration_seconds"`
	Timestamp       string  `json:"timestamp"`
}

// RunRecord is the persisted form of a run
type RunRecord struct {
	Meta      RunMeta       `json:"meta"`
	Succeeded []string      `json:"succeeded"`
	Details   []TestFailure `json:"details"`
}

// SucceededSet returns the stored succeeded ids as a set
func (r *RunRecord) SucceededSet() TestSet {
	if r == nil {
		return TestSet{}
	}
	return ParseTestSet(r.Succeeded)
}

// FailedSet returns the ids of the stored failures
func (r *RunRecord) FailedSet() TestSet {
	s := TestSet{}
	if r == nil {
		return s
	}
	for _, d := range r.Details {
		s.Add(TestID(d.TestName))
	}
	return s
}
