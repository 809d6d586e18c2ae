package domain

// TestFailure represents a failed or errored test
type TestFailure struct {
	TestName     string   `json:"test_name"`
	Definition   string   `json:"definition"`
	Status       string   `json:"status"`
	ErrorDetails string   `json:"error_details"`
	StackTrace   []string `json:"stack_trace"`
	File         string   `json:"file"`
	Line         int      `json:"line"`
	Message      string   `json:"message"`
	Resolved     bool     `json:"resolved,omitempty"` // Track if test case is marked as resolved
}
