// internal/wizard/session.go
package wizard

import (
	"errors"
	"fmt"
)

// StepDefinition pairs an ordinal step id with its schema. Step ids are
// 1..N and ordered; a schema may read earlier steps' committed records but
// never later ones.
type StepDefinition struct {
	ID     int
	Name   string
	Schema *StepSchema
}

// Flow is the static definition a session runs against.
type Flow struct {
	ID    string
	Name  string
	Steps []StepDefinition
}

// NewFlow validates the step sequence at construction time.
func NewFlow(id, name string, steps []StepDefinition) (*Flow, error) {
	if len(steps) == 0 {
		return nil, errors.New("flow requires at least one step")
	}
	for i, step := range steps {
		if step.ID != i+1 {
			return nil, fmt.Errorf("step ids must be sequential from 1, got %d at position %d", step.ID, i)
		}
		if step.Schema == nil {
			return nil, fmt.Errorf("step %d has no schema", step.ID)
		}
	}
	return &Flow{ID: id, Name: name, Steps: steps}, nil
}

// TotalSteps returns the number of steps in the flow.
func (f *Flow) TotalSteps() int {
	return len(f.Steps)
}

// Step returns the definition for a step id, or nil when out of range.
func (f *Flow) Step(id int) *StepDefinition {
	if id < 1 || id > len(f.Steps) {
		return nil
	}
	return &f.Steps[id-1]
}

// Session is one wizard instance: the navigation controller plus the draft
// state store. A session is exclusively owned by one wizard; it is never
// shared across concurrent wizard instances.
type Session struct {
	flow        *Flow
	currentStep int
	draft       Draft
	transient   Record // in-progress, not-yet-validated fields for the active step
	errors      *ValidationResult
	resetHooks  []func()
}

// NewSession opens a session on a flow at step 1 with an empty draft.
func NewSession(flow *Flow) *Session {
	return &Session{
		flow:        flow,
		currentStep: 1,
		draft:       Draft{},
		transient:   Record{},
	}
}

// Flow returns the static definition the session runs against.
func (s *Session) Flow() *Flow {
	return s.flow
}

// CurrentStep returns the 1-based active step.
func (s *Session) CurrentStep() int {
	return s.currentStep
}

// Progress is derived, never stored: currentStep over totalSteps as a
// percentage.
func (s *Session) Progress() int {
	return s.currentStep * 100 / s.flow.TotalSteps()
}

// Draft exposes the accumulated committed records. Later steps treat this
// as read-only display; edits go through GoTo.
func (s *Session) Draft() Draft {
	return s.draft
}

// Errors returns the current validation errors, if any.
func (s *Session) Errors() *ValidationResult {
	return s.errors
}

// SetField records an in-progress value for the active step. A non-empty
// value clears any existing error on that field.
func (s *Session) SetField(name string, value interface{}) {
	s.transient[name] = value
	if s.errors == nil || toString(value) == "" {
		return
	}
	kept := s.errors.Errors[:0]
	for _, e := range s.errors.Errors {
		if e.Field != name {
			kept = append(kept, e)
		}
	}
	s.errors.Errors = kept
	s.errors.Valid = len(kept) == 0
}

// Fields returns the in-progress record for the active step. When the user
// navigated back to an already-committed step the committed values seed it.
func (s *Session) Fields() Record {
	return s.transient
}

// Next validates the active step. On failure the step does not change, the
// error set is populated, and the first errored field is returned for the
// caller to scroll to. On success the normalized record is committed
// atomically, errors clear, and the step advances by exactly one, never
// past the final step.
func (s *Session) Next() (advanced bool, firstError *ValidationError) {
	step := s.flow.Step(s.currentStep)

	normalized, result := step.Schema.Validate(s.transient, s.draft)
	if !result.Valid {
		s.errors = result
		return false, result.First()
	}

	s.Commit(s.currentStep, normalized)
	s.errors = nil

	if s.currentStep < s.flow.TotalSteps() {
		s.currentStep++
		s.seedTransient()
	}
	return true, nil
}

// Previous moves back one step without validation; users may always revisit
// already-valid data. Never goes below step 1.
func (s *Session) Previous() {
	if s.currentStep > 1 {
		s.currentStep--
		s.seedTransient()
	}
}

// GoTo jumps directly to a step (review-screen "edit this section"). No
// intermediate validation replays; the target step's data was validated
// when first committed and will be re-validated if the user moves forward
// again.
func (s *Session) GoTo(stepID int) error {
	if s.flow.Step(stepID) == nil {
		return fmt.Errorf("step %d out of range", stepID)
	}
	s.currentStep = stepID
	s.errors = nil
	s.seedTransient()
	return nil
}

// Commit replaces a step's portion of the draft. A step's output is atomic:
// the record is replaced whole, never merged field by field.
func (s *Session) Commit(stepID int, record Record) {
	copied := make(Record, len(record))
	for k, v := range record {
		copied[k] = v
	}
	s.draft[stepID] = copied
}

// OnReset registers a hook run when the session resets, used to forget
// in-flight uploads belonging to the discarded draft.
func (s *Session) OnReset(hook func()) {
	s.resetHooks = append(s.resetHooks, hook)
}

// Reset discards the draft on wizard close/cancel or after terminal
// success, returning to step 1.
func (s *Session) Reset() {
	s.draft = Draft{}
	s.transient = Record{}
	s.errors = nil
	s.currentStep = 1
	for _, hook := range s.resetHooks {
		hook()
	}
}

// Complete reports whether every step has a committed record.
func (s *Session) Complete() bool {
	for _, step := range s.flow.Steps {
		if _, ok := s.draft[step.ID]; !ok {
			return false
		}
	}
	return true
}

// ValidateAll re-runs every step schema against the committed draft. The
// submission orchestrator calls this before creating anything server-side:
// a user may have navigated back and invalidated previously-valid data.
func (s *Session) ValidateAll() (int, *ValidationResult) {
	for _, step := range s.flow.Steps {
		rec, ok := s.draft[step.ID]
		if !ok {
			return step.ID, &ValidationResult{
				Valid: false,
				Errors: []ValidationError{{
					Field:   step.Name,
					Message: "step has not been completed",
					Code:    "STEP_INCOMPLETE",
				}},
			}
		}
		if _, result := step.Schema.Validate(rec, s.draft); !result.Valid {
			return step.ID, result
		}
	}
	return 0, &ValidationResult{Valid: true}
}

// seedTransient loads the committed record (if any) of the new active step
// so revisits show the user's prior answers.
func (s *Session) seedTransient() {
	s.transient = Record{}
	if committed, ok := s.draft[s.currentStep]; ok {
		for k, v := range committed {
			s.transient[k] = v
		}
	}
}
