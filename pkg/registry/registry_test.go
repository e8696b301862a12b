// pkg/registry/registry_test.go
package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muni-flows/internal/wizard"
)

// ==========================
// Test Helper Functions
// ==========================

func testBuilder(id string) Builder {
	return func() (*wizard.Flow, error) {
		return wizard.NewFlow(id, id, []wizard.StepDefinition{
			{ID: 1, Name: "Only Step", Schema: &wizard.StepSchema{}},
		})
	}
}

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flows.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ==========================
// Registry Tests
// ==========================

func TestRegistry_BuildRegisteredFlow(t *testing.T) {
	reg := New()
	reg.Register("permit", testBuilder("permit"))

	flow, err := reg.Build("permit")

	require.NoError(t, err)
	assert.Equal(t, "permit", flow.ID)
}

func TestRegistry_UnknownFlow(t *testing.T) {
	reg := New()
	_, err := reg.Build("missing")
	assert.True(t, errors.Is(err, ErrFlowUnknown))
}

func TestRegistry_CatalogDisablesFlow(t *testing.T) {
	reg := New()
	reg.Register("permit", testBuilder("permit"))
	path := writeCatalog(t, `{"flows":[{"id":"permit","name":"Building Permit","enabled":false}]}`)

	require.NoError(t, reg.LoadDefinitions(path))

	_, err := reg.Build("permit")
	assert.True(t, errors.Is(err, ErrFlowDisabled))
}

func TestRegistry_CatalogCarriesFeeScheduleKey(t *testing.T) {
	reg := New()
	reg.Register("business-license", testBuilder("business-license"))
	path := writeCatalog(t, `{"flows":[{"id":"business-license","name":"Business License","enabled":true,"feeScheduleKey":"license-fees"}]}`)

	require.NoError(t, reg.LoadDefinitions(path))

	def, ok := reg.Definition("business-license")
	require.True(t, ok)
	assert.Equal(t, "license-fees", def.FeeScheduleKey)
}

func TestRegistry_CatalogRejectsUnregisteredID(t *testing.T) {
	reg := New()
	reg.Register("permit", testBuilder("permit"))
	path := writeCatalog(t, `{"flows":[{"id":"permt","name":"typo","enabled":true}]}`)

	err := reg.LoadDefinitions(path)
	assert.ErrorContains(t, err, "no registered builder")
}

func TestRegistry_List(t *testing.T) {
	reg := New()
	reg.Register("sport-booking", testBuilder("sport-booking"))
	reg.Register("building-permit", testBuilder("building-permit"))

	list := reg.List()

	require.Len(t, list, 2)
	assert.Equal(t, "building-permit", list[0].ID)
	assert.Equal(t, "sport-booking", list[1].ID)
	assert.True(t, list[0].Enabled, "registered flows default to enabled")
}
