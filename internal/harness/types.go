package harness

import "github.com/roach88/tokenledger/internal/event"

// Outcome recorded for a step that succeeded.
const OutcomeOK = "ok"

// TraceEvent records one executed step: the operation, who called it, how
// it ended, and the event it emitted (nil for rejections).
type TraceEvent struct {
	Step    int          `json:"step"`
	Op      string       `json:"op"`
	Caller  string       `json:"caller"`
	Outcome string       `json:"outcome"`
	Event   *event.Event `json:"event,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains initialization and every flow step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(te TraceEvent) {
	r.Trace = append(r.Trace, te)
}
