// internal/flows/onboarding/flow_test.go
package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muni-flows/internal/models"
	"muni-flows/internal/wizard"
)

// ==========================
// Test Helper Functions
// ==========================

func validBusinessFields(entityType string) wizard.Record {
	return wizard.Record{
		"legalName":     "Springfield Coffee LLC",
		"entityType":    entityType,
		"businessTaxId": "123456789",
		"businessEmail": "owner@springfieldcoffee.com",
		"businessPhone": "(555) 123-0000",
		"addressLine1":  "12 Main St",
		"city":          "Springfield",
		"state":         "IL",
		"zipCode":       "62701",
	}
}

func startSession(t *testing.T, entityType string) *wizard.Session {
	t.Helper()
	flow, err := NewFlow()
	require.NoError(t, err)
	session := wizard.NewSession(flow)
	for k, v := range validBusinessFields(entityType) {
		session.SetField(k, v)
	}
	advanced, _ := session.Next()
	require.True(t, advanced)
	return session
}

func testProfile() *models.Profile {
	return &models.Profile{
		FirstName: "Jane",
		LastName:  "Smith",
		Email:     "jane@example.com",
		Phone:     "5559870000",
	}
}

// ==========================
// Branch Tests
// ==========================

func TestOnboarding_GovernmentSkipsPersonalBlock(t *testing.T) {
	session := startSession(t, string(models.EntityGovernment))
	require.Equal(t, 2, session.CurrentStep())

	// the resolver hides the same fields the schema skips
	resolver := NewResolver(func() *models.Profile { return nil })
	hidden := resolver.HiddenFields(session.Draft())
	assert.True(t, hidden["dateOfBirth"])
	assert.True(t, hidden["personalTaxId"])

	// only contact fields are required for a government entity
	session.SetField("contactEmail", "clerk@springfield.gov")
	session.SetField("contactPhone", "5551112222")
	advanced, firstError := session.Next()
	assert.True(t, advanced)
	assert.Nil(t, firstError)

	_, committed := session.Draft()[2]["dateOfBirth"]
	assert.False(t, committed, "suppressed fields never reach the draft")
}

func TestOnboarding_LLCRequiresPersonalBlock(t *testing.T) {
	session := startSession(t, string(models.EntityLLC))

	session.SetField("contactEmail", "owner@springfieldcoffee.com")
	session.SetField("contactPhone", "5551112222")
	advanced, firstError := session.Next()

	assert.False(t, advanced)
	require.NotNil(t, firstError)
	assert.Equal(t, "firstName", firstError.Field)
}

// ==========================
// Volume Step Tests
// ==========================

func TestOnboarding_CardVolumeMustTotalHundred(t *testing.T) {
	session := startSession(t, string(models.EntityGovernment))
	session.SetField("contactEmail", "clerk@springfield.gov")
	session.SetField("contactPhone", "5551112222")
	_, _ = session.Next()
	require.Equal(t, 3, session.CurrentStep())

	session.SetField("cardPresent", "30")
	session.SetField("moto", "20")
	session.SetField("ecommerce", "49")
	advanced, firstError := session.Next()

	assert.False(t, advanced)
	require.NotNil(t, firstError)
	assert.Equal(t, "cardVolume", firstError.Field)

	session.SetField("ecommerce", "50")
	advanced, _ = session.Next()
	assert.True(t, advanced)
	assert.Equal(t, 50, session.Draft().GetInt(3, "ecommerce"))
}

// ==========================
// Toggle Tests
// ==========================

func TestOnboarding_ProfileToggleOffPreservesEdits(t *testing.T) {
	session := startSession(t, string(models.EntityLLC))
	resolver := NewResolver(testProfile)

	resolver.ApplyToggle("useProfile", true, session)
	assert.Equal(t, "Jane", session.Fields()["firstName"])

	session.SetField("contactEmail", "work@springfieldcoffee.com")
	resolver.ApplyToggle("useProfile", false, session)

	assert.Equal(t, "Jane", session.Fields()["firstName"], "off-toggle preserves copied values here")
	assert.Equal(t, "work@springfieldcoffee.com", session.Fields()["contactEmail"])
}

func TestOnboarding_ProfileToggleRespectsUserInput(t *testing.T) {
	session := startSession(t, string(models.EntityLLC))
	session.SetField("firstName", "Janet")

	NewResolver(testProfile).ApplyToggle("useProfile", true, session)

	assert.Equal(t, "Janet", session.Fields()["firstName"])
	assert.Equal(t, "Smith", session.Fields()["lastName"])
}

// ==========================
// Address Tests
// ==========================

func TestBusinessAddress(t *testing.T) {
	session := startSession(t, string(models.EntityLLC))

	addr := BusinessAddress(session.Draft())

	assert.Equal(t, "12 Main St", addr.Line1)
	assert.Equal(t, "Springfield", addr.City)
	assert.Equal(t, "IL", addr.State)
	assert.Equal(t, "62701", addr.ZipCode)
	assert.False(t, addr.IsEmpty())
}
