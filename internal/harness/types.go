package harness

import "github.com/roach88/formsync/internal/form"

// TraceEvent is one applied command in a scenario run.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Type    string `json:"type"`
	FormKey string `json:"form_key,omitempty"`
	Outcome string `json:"outcome"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every step outcome and assertion matched.
	Pass bool `json:"pass"`

	// Session is the session ID the commands were stamped with.
	Session string `json:"session"`

	// Trace contains every applied command in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the forms collection after the last step.
	Final form.Forms `json:"final"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Final:  form.Forms{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an applied command to the trace.
func (r *Result) AddTrace(seq int64, typ, formKey, outcome string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:     seq,
		Type:    typ,
		FormKey: formKey,
		Outcome: outcome,
	})
}
