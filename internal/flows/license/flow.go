// internal/flows/license/flow.go
package license

import (
	"muni-flows/internal/models"
	"muni-flows/internal/wizard"
)

const FlowID = "business-license"

// defaultLicenseTypes backs municipalities that publish no license-type
// list in reference data.
var defaultLicenseTypes = []string{"retail", "food_service", "professional_service", "home_occupation", "wholesale"}

func businessStep() *wizard.StepSchema {
	return &wizard.StepSchema{
		Fields: []wizard.Field{
			{Name: "businessName", Type: wizard.FieldString, Required: true, MaxLength: 200},
			{Name: "dbaName", Type: wizard.FieldString, MaxLength: 200},
			{Name: "businessTaxId", Type: wizard.FieldString, Required: true, Pattern: `^\d{9}$`},
			{Name: "premisesLine1", Type: wizard.FieldString, Required: true},
			{Name: "premisesLine2", Type: wizard.FieldString},
			{Name: "premisesCity", Type: wizard.FieldString, Required: true},
			{Name: "premisesState", Type: wizard.FieldString, Required: true, Pattern: `^[A-Z]{2}$`},
			{Name: "premisesZip", Type: wizard.FieldString, Required: true, Pattern: `^\d{5}(-\d{4})?$`},
		},
	}
}

func licenseStep(licenseTypes []string) *wizard.StepSchema {
	return &wizard.StepSchema{
		Fields: []wizard.Field{
			{Name: "licenseType", Type: wizard.FieldString, Required: true, Enum: licenseTypes},
			{Name: "openingDate", Type: wizard.FieldDate, Required: true},
			{Name: "projectedRevenue", Type: wizard.FieldCurrency, MaxValue: 50_000_000},
			{Name: "b2b", Type: wizard.FieldPercent},
			{Name: "b2c", Type: wizard.FieldPercent},
			{Name: "p2p", Type: wizard.FieldPercent},
		},
		CrossChecks: []wizard.CrossCheck{
			wizard.PercentTripleCheck("salesMix", [3]string{"b2b", "b2c", "p2p"}),
		},
	}
}

func ownerStep() *wizard.StepSchema {
	return &wizard.StepSchema{
		Fields: []wizard.Field{
			{Name: "ownerName", Type: wizard.FieldString, Required: true},
			{Name: "ownerEmail", Type: wizard.FieldEmail, Required: true},
			{Name: "ownerPhone", Type: wizard.FieldPhone, Required: true},
		},
	}
}

func reviewStep() *wizard.StepSchema {
	return &wizard.StepSchema{
		Fields: []wizard.Field{
			{Name: "attestation", Type: wizard.FieldString, Required: true, Enum: []string{"true"}},
		},
	}
}

// NewFlow builds the business license flow with the default license-type
// list.
func NewFlow() (*wizard.Flow, error) {
	return NewFlowWithTypes(nil)
}

// NewFlowWithTypes builds the flow with a municipality's published
// license types as the licenseType enum. An empty list falls back to the
// defaults.
func NewFlowWithTypes(licenseTypes []string) (*wizard.Flow, error) {
	if len(licenseTypes) == 0 {
		licenseTypes = defaultLicenseTypes
	}
	return wizard.NewFlow(FlowID, "Business License", []wizard.StepDefinition{
		{ID: 1, Name: "Business Information", Schema: businessStep()},
		{ID: 2, Name: "License Details", Schema: licenseStep(licenseTypes)},
		{ID: 3, Name: "Owner Information", Schema: ownerStep()},
		{ID: 4, Name: "Review", Schema: reviewStep()},
	})
}

// NewResolver builds the resolver for the flow. The applicant toggle
// clears its copies when switched off: a license application must not
// silently carry applicant data the user chose to disconnect.
func NewResolver(profile func() *models.Profile) *wizard.Resolver {
	return &wizard.Resolver{
		Toggles: map[string]wizard.ToggleRule{
			"sameAsApplicant": {
				Name: "sameAsApplicant",
				Source: func() map[string]string {
					p := profile()
					if p == nil {
						return nil
					}
					return map[string]string{
						"name":  p.FirstName + " " + p.LastName,
						"email": p.Email,
						"phone": p.Phone,
					}
				},
				Targets: map[string]string{
					"ownerName":  "name",
					"ownerEmail": "email",
					"ownerPhone": "phone",
				},
				ClearOnDisable: true,
			},
		},
	}
}

// PremisesAddress assembles the structured premises address from the
// committed business step.
func PremisesAddress(draft wizard.Draft) models.StructuredAddress {
	return models.StructuredAddress{
		Line1:   draft.Get(1, "premisesLine1"),
		Line2:   draft.Get(1, "premisesLine2"),
		City:    draft.Get(1, "premisesCity"),
		State:   draft.Get(1, "premisesState"),
		ZipCode: draft.Get(1, "premisesZip"),
	}
}
