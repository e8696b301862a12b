// internal/wizard/resolver_test.go
package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Branch Rule Tests
// ==========================

func TestResolver_HiddenFields(t *testing.T) {
	resolver := &Resolver{
		Branches: []BranchRule{{
			Name:     "personal-details",
			Active:   func(draft Draft) bool { return draft.Get(1, "entityType") != "government" },
			Suppress: []string{"dateOfBirth", "personalTaxId", "homeAddress"},
		}},
	}

	hidden := resolver.HiddenFields(Draft{1: Record{"entityType": "government"}})
	assert.True(t, hidden["dateOfBirth"])
	assert.True(t, hidden["personalTaxId"])
	assert.True(t, hidden["homeAddress"])

	hidden = resolver.HiddenFields(Draft{1: Record{"entityType": "llc"}})
	assert.Empty(t, hidden)
}

// ==========================
// Toggle Rule Tests
// ==========================

func toggleResolver(clearOnDisable bool) *Resolver {
	return &Resolver{
		Toggles: map[string]ToggleRule{
			"useProfile": {
				Name: "useProfile",
				Source: func() map[string]string {
					return map[string]string{
						"profileName":  "Jane Smith",
						"profileEmail": "jane@example.com",
					}
				},
				Targets: map[string]string{
					"contactName":  "profileName",
					"contactEmail": "profileEmail",
				},
				ClearOnDisable: clearOnDisable,
			},
		},
	}
}

func TestResolver_ApplyToggle_CopiesIntoEmptyFields(t *testing.T) {
	flow, err := NewFlow("f", "F", []StepDefinition{
		{ID: 1, Name: "Contact", Schema: &StepSchema{}},
	})
	require.NoError(t, err)
	session := NewSession(flow)

	toggleResolver(false).ApplyToggle("useProfile", true, session)

	assert.Equal(t, "Jane Smith", session.Fields()["contactName"])
	assert.Equal(t, "jane@example.com", session.Fields()["contactEmail"])
}

func TestResolver_ApplyToggle_NeverOverwritesUserInput(t *testing.T) {
	flow, _ := NewFlow("f", "F", []StepDefinition{
		{ID: 1, Name: "Contact", Schema: &StepSchema{}},
	})
	session := NewSession(flow)
	session.SetField("contactName", "Someone Else")

	toggleResolver(false).ApplyToggle("useProfile", true, session)

	assert.Equal(t, "Someone Else", session.Fields()["contactName"])
	assert.Equal(t, "jane@example.com", session.Fields()["contactEmail"])
}

func TestResolver_ApplyToggle_OneTimeCopyNotLiveBinding(t *testing.T) {
	flow, _ := NewFlow("f", "F", []StepDefinition{
		{ID: 1, Name: "Contact", Schema: &StepSchema{}},
	})
	session := NewSession(flow)
	resolver := toggleResolver(false)

	resolver.ApplyToggle("useProfile", true, session)
	// editing a copied value while the toggle stays on must stick
	session.SetField("contactEmail", "work@example.com")

	assert.Equal(t, "work@example.com", session.Fields()["contactEmail"])
}

func TestResolver_ApplyToggle_OffPolicy(t *testing.T) {
	tests := []struct {
		name           string
		clearOnDisable bool
		expectedName   string
	}{
		{"clear on disable wipes copied fields", true, ""},
		{"preserve on disable keeps edits", false, "Jane Smith"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, _ := NewFlow("f", "F", []StepDefinition{
				{ID: 1, Name: "Contact", Schema: &StepSchema{}},
			})
			session := NewSession(flow)
			resolver := toggleResolver(tt.clearOnDisable)

			resolver.ApplyToggle("useProfile", true, session)
			resolver.ApplyToggle("useProfile", false, session)

			assert.Equal(t, tt.expectedName, toString(session.Fields()["contactName"]))
		})
	}
}

func TestResolver_ApplyToggle_UnknownToggleIsNoOp(t *testing.T) {
	flow, _ := NewFlow("f", "F", []StepDefinition{
		{ID: 1, Name: "Contact", Schema: &StepSchema{}},
	})
	session := NewSession(flow)

	toggleResolver(false).ApplyToggle("doesNotExist", true, session)
	assert.Empty(t, session.Fields())
}
