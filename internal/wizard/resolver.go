// internal/wizard/resolver.go
package wizard

// BranchRule suppresses a block of fields when an upstream choice excludes
// them (e.g. government agencies skip the personal-details block). The
// predicate must be the same one the step schema uses in Field.When, so the
// rendered form and the validator can never disagree about requiredness.
type BranchRule struct {
	Name     string
	Active   func(draft Draft) bool // fields are shown iff true
	Suppress []string
}

// ToggleRule is a one-time copy switch ("use profile information", "same as
// applicant"). Switching on copies source values into empty target fields
// at that moment; there is no live binding, so later edits to the targets
// stick even while the toggle stays on. The off-toggle policy varies per
// flow and must be stated explicitly.
type ToggleRule struct {
	Name   string
	Source func() map[string]string // snapshot of the copy source
	// Targets maps target field name -> source key in the Source snapshot.
	Targets map[string]string
	// ClearOnDisable states the flow's off-toggle policy: true clears the
	// copied fields, false preserves whatever the user has.
	ClearOnDisable bool
}

// Resolver computes which fields of the current step are hidden and applies
// toggle copies, from already-committed upstream values only.
type Resolver struct {
	Branches []BranchRule
	Toggles  map[string]ToggleRule
}

// HiddenFields returns the set of field names suppressed for the current
// draft state.
func (r *Resolver) HiddenFields(draft Draft) map[string]bool {
	hidden := map[string]bool{}
	for _, rule := range r.Branches {
		if !rule.Active(draft) {
			for _, name := range rule.Suppress {
				hidden[name] = true
			}
		}
	}
	return hidden
}

// ApplyToggle flips a toggle on or off against the session's in-progress
// fields. Copies never overwrite a non-empty user-entered value; they only
// fill empty fields.
func (r *Resolver) ApplyToggle(name string, on bool, session *Session) {
	rule, ok := r.Toggles[name]
	if !ok {
		return
	}

	if on {
		source := rule.Source()
		for target, sourceKey := range rule.Targets {
			if toString(session.Fields()[target]) != "" {
				continue
			}
			if val := source[sourceKey]; val != "" {
				session.SetField(target, val)
			}
		}
		return
	}

	if rule.ClearOnDisable {
		for target := range rule.Targets {
			session.SetField(target, "")
		}
	}
}
