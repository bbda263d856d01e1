package harness

// TraceEvent is the outcome of one scenario step.
type TraceEvent struct {
	Step   int    `json:"step"`
	Action string `json:"action"` // "exec" for steps without an action
	At     int64  `json:"at"`
	User   int64  `json:"user,omitempty"`

	// Exec counts the SQL statements the step ran before its action.
	Exec int `json:"exec,omitempty"`

	// Written is set for actions with a boolean outcome.
	Written *bool `json:"written,omitempty"`

	// Result holds counters of purge and seed.
	Result map[string]any `json:"result,omitempty"`
}

// ShadowState is one row of the final shadow table.
type ShadowState struct {
	ID        int64 `json:"id" db:"id"`
	Timestamp int64 `json:"timestamp" db:"nodeversiontimestamp"`
	User      int64 `json:"user" db:"nodeversion_user"`
	Latest    bool  `json:"latest" db:"nodeversionlatest"`
	Removed   int64 `json:"removed" db:"nodeversionremoved"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// RunID identifies this execution in logs.
	RunID string `json:"run_id"`

	// Pass indicates overall test success.
	// True if every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Shadow is the shadow table after the last step, ordered by id and
	// timestamp.
	Shadow []ShadowState `json:"shadow"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult(runID string) *Result {
	return &Result{
		RunID:  runID,
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Shadow: []ShadowState{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends the outcome of a step.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
