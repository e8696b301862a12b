// internal/wizard/schema_test.go
package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func contactSchema() *StepSchema {
	return &StepSchema{
		Fields: []Field{
			{Name: "name", Type: FieldString, Required: true, MaxLength: 100},
			{Name: "email", Type: FieldEmail, Required: true},
			{Name: "phone", Type: FieldPhone, Required: true},
			{Name: "website", Type: FieldURL},
		},
	}
}

func cardVolumeSchema() *StepSchema {
	return &StepSchema{
		Fields: []Field{
			{Name: "cardPresent", Type: FieldPercent},
			{Name: "moto", Type: FieldPercent},
			{Name: "ecommerce", Type: FieldPercent},
		},
		CrossChecks: []CrossCheck{
			PercentTripleCheck("cardVolume", [3]string{"cardPresent", "moto", "ecommerce"}),
		},
	}
}

// ==========================
// Field Validation Tests
// ==========================

func TestStepSchema_Validate_RequiredFieldMissing(t *testing.T) {
	schema := contactSchema()

	normalized, result := schema.Validate(Record{
		"email": "jane@example.com",
		"phone": "5551230000",
	}, Draft{})

	assert.Nil(t, normalized)
	require.False(t, result.Valid)
	assert.True(t, result.HasErrors("name"))
	assert.Equal(t, "REQUIRED_FIELD_MISSING", result.First().Code)
}

func TestStepSchema_Validate_NormalizesOnSuccess(t *testing.T) {
	schema := contactSchema()

	normalized, result := schema.Validate(Record{
		"name":    "  Jane Smith  ",
		"email":   "jane@example.com",
		"phone":   "(555) 123-0000",
		"website": "https://example.com",
	}, Draft{})

	require.True(t, result.Valid)
	assert.Equal(t, "Jane Smith", normalized["name"])
	assert.Equal(t, "5551230000", normalized["phone"])
}

func TestStepSchema_Validate_InvalidFormats(t *testing.T) {
	tests := []struct {
		name         string
		input        Record
		erroredField string
		code         string
	}{
		{
			name: "bad email",
			input: Record{
				"name": "Jane", "email": "not-an-email", "phone": "5551230000",
			},
			erroredField: "email",
			code:         "INVALID_EMAIL",
		},
		{
			name: "short phone",
			input: Record{
				"name": "Jane", "email": "jane@example.com", "phone": "555123",
			},
			erroredField: "phone",
			code:         "INVALID_PHONE",
		},
		{
			name: "bad website",
			input: Record{
				"name": "Jane", "email": "jane@example.com", "phone": "5551230000",
				"website": "ftp::/nope",
			},
			erroredField: "website",
			code:         "INVALID_URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			normalized, result := contactSchema().Validate(tt.input, Draft{})
			assert.Nil(t, normalized)
			require.False(t, result.Valid)
			assert.True(t, result.HasErrors(tt.erroredField))
			assert.Equal(t, tt.code, result.First().Code)
		})
	}
}

func TestStepSchema_Validate_DateField(t *testing.T) {
	schema := &StepSchema{Fields: []Field{
		{Name: "dateOfBirth", Type: FieldDate, Required: true},
	}}

	normalized, result := schema.Validate(Record{"dateOfBirth": "06151985"}, Draft{})
	require.True(t, result.Valid)
	assert.Equal(t, "06/15/1985", normalized["dateOfBirth"])

	_, result = schema.Validate(Record{"dateOfBirth": "06/15"}, Draft{})
	require.False(t, result.Valid)
	assert.Equal(t, "INCOMPLETE_DATE", result.First().Code)
}

// ==========================
// Cross-Field Tests
// ==========================

func TestStepSchema_Validate_PercentTriple(t *testing.T) {
	schema := cardVolumeSchema()

	// (30, 20, 50) passes
	normalized, result := schema.Validate(Record{
		"cardPresent": "30", "moto": "20", "ecommerce": "50",
	}, Draft{})
	require.True(t, result.Valid)
	assert.Equal(t, 30, normalized["cardPresent"])

	// (30, 20, 49) fails against the summary key, not any input field
	_, result = schema.Validate(Record{
		"cardPresent": "30", "moto": "20", "ecommerce": "49",
	}, Draft{})
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "cardVolume", result.Errors[0].Field)
	assert.False(t, result.HasErrors("cardPresent"))
	assert.False(t, result.HasErrors("moto"))
	assert.False(t, result.HasErrors("ecommerce"))
}

func TestStepSchema_Validate_PercentOversum(t *testing.T) {
	// 50/50/50 sums to 150: a single summary error, individual values intact
	_, result := cardVolumeSchema().Validate(Record{
		"cardPresent": "50", "moto": "50", "ecommerce": "50",
	}, Draft{})

	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "cardVolume", result.Errors[0].Field)
	assert.Equal(t, "CROSS_FIELD_VIOLATION", result.Errors[0].Code)
}

func TestStepSchema_Validate_CrossChecksDeferUntilFieldsClean(t *testing.T) {
	schema := &StepSchema{
		Fields: []Field{
			{Name: "name", Type: FieldString, Required: true},
			{Name: "cardPresent", Type: FieldPercent},
			{Name: "moto", Type: FieldPercent},
			{Name: "ecommerce", Type: FieldPercent},
		},
		CrossChecks: []CrossCheck{
			PercentTripleCheck("cardVolume", [3]string{"cardPresent", "moto", "ecommerce"}),
		},
	}

	_, result := schema.Validate(Record{
		"cardPresent": "10", "moto": "10", "ecommerce": "10",
	}, Draft{})

	// Only the missing name reports; the triple check waits.
	require.False(t, result.Valid)
	assert.True(t, result.HasErrors("name"))
	assert.False(t, result.HasErrors("cardVolume"))
}

// ==========================
// Conditional Branch Tests
// ==========================

func TestStepSchema_Validate_ConditionalBranchSkipped(t *testing.T) {
	personalWhen := func(draft Draft) bool {
		return draft.Get(1, "entityType") != "government"
	}
	schema := &StepSchema{Fields: []Field{
		{Name: "name", Type: FieldString, Required: true},
		{Name: "dateOfBirth", Type: FieldDate, Required: true, When: personalWhen},
		{Name: "personalTaxId", Type: FieldString, Required: true, Pattern: `^\d{9}$`, When: personalWhen},
	}}

	govDraft := Draft{1: Record{"entityType": "government"}}
	normalized, result := schema.Validate(Record{"name": "City of Springfield"}, govDraft)
	require.True(t, result.Valid)
	_, present := normalized["dateOfBirth"]
	assert.False(t, present)

	llcDraft := Draft{1: Record{"entityType": "llc"}}
	_, result = schema.Validate(Record{"name": "Acme LLC"}, llcDraft)
	require.False(t, result.Valid)
	assert.True(t, result.HasErrors("dateOfBirth"))
	assert.True(t, result.HasErrors("personalTaxId"))
}
