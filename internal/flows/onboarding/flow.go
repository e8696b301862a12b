// internal/flows/onboarding/flow.go
package onboarding

import (
	"muni-flows/internal/models"
	"muni-flows/internal/wizard"
)

const FlowID = "customer-onboarding"

// personalDetailsRequired is shared by the step schema and the field
// resolver so the rendered form and the validator can never disagree
// about the personal block.
func personalDetailsRequired(draft wizard.Draft) bool {
	return models.EntityType(draft.Get(1, "entityType")).PersonalDetailsRequired()
}

var entityTypes = []string{
	string(models.EntityIndividual),
	string(models.EntityLLC),
	string(models.EntityCorporation),
	string(models.EntityPartnership),
	string(models.EntityNonProfit),
	string(models.EntityGovernment),
}

func businessStep() *wizard.StepSchema {
	return &wizard.StepSchema{
		Fields: []wizard.Field{
			{Name: "legalName", Type: wizard.FieldString, Required: true, MaxLength: 200},
			{Name: "entityType", Type: wizard.FieldString, Required: true, Enum: entityTypes},
			{Name: "businessTaxId", Type: wizard.FieldString, Required: true, Pattern: `^\d{9}$`},
			{Name: "businessEmail", Type: wizard.FieldEmail, Required: true},
			{Name: "businessPhone", Type: wizard.FieldPhone, Required: true},
			{Name: "website", Type: wizard.FieldURL},
			{Name: "addressLine1", Type: wizard.FieldString, Required: true},
			{Name: "addressLine2", Type: wizard.FieldString},
			{Name: "city", Type: wizard.FieldString, Required: true},
			{Name: "state", Type: wizard.FieldString, Required: true, Pattern: `^[A-Z]{2}$`},
			{Name: "zipCode", Type: wizard.FieldString, Required: true, Pattern: `^\d{5}(-\d{4})?$`},
		},
	}
}

func personalStep() *wizard.StepSchema {
	return &wizard.StepSchema{
		Fields: []wizard.Field{
			{Name: "firstName", Type: wizard.FieldString, Required: true, When: personalDetailsRequired},
			{Name: "lastName", Type: wizard.FieldString, Required: true, When: personalDetailsRequired},
			{Name: "dateOfBirth", Type: wizard.FieldDate, Required: true, When: personalDetailsRequired},
			{Name: "personalTaxId", Type: wizard.FieldString, Required: true, Pattern: `^\d{9}$`, When: personalDetailsRequired},
			{Name: "ownershipPercent", Type: wizard.FieldPercent, When: personalDetailsRequired},
			{Name: "contactEmail", Type: wizard.FieldEmail, Required: true},
			{Name: "contactPhone", Type: wizard.FieldPhone, Required: true},
		},
	}
}

func volumeStep() *wizard.StepSchema {
	return &wizard.StepSchema{
		Fields: []wizard.Field{
			{Name: "annualVolume", Type: wizard.FieldCurrency, MaxValue: 100_000_000},
			{Name: "averageTicket", Type: wizard.FieldCurrency, MaxValue: 1_000_000},
			{Name: "cardPresent", Type: wizard.FieldPercent},
			{Name: "moto", Type: wizard.FieldPercent},
			{Name: "ecommerce", Type: wizard.FieldPercent},
		},
		CrossChecks: []wizard.CrossCheck{
			wizard.PercentTripleCheck("cardVolume", [3]string{"cardPresent", "moto", "ecommerce"}),
		},
	}
}

func reviewStep() *wizard.StepSchema {
	return &wizard.StepSchema{
		Fields: []wizard.Field{
			{Name: "termsAccepted", Type: wizard.FieldString, Required: true, Enum: []string{"true"}},
		},
	}
}

// NewFlow builds the customer onboarding flow definition.
func NewFlow() (*wizard.Flow, error) {
	return wizard.NewFlow(FlowID, "Customer Onboarding", []wizard.StepDefinition{
		{ID: 1, Name: "Business Information", Schema: businessStep()},
		{ID: 2, Name: "Personal Details", Schema: personalStep()},
		{ID: 3, Name: "Processing Volume", Schema: volumeStep()},
		{ID: 4, Name: "Review", Schema: reviewStep()},
	})
}

// NewResolver builds the conditional-field resolver for the flow. The
// profile toggle copies once into empty fields and, when switched off,
// preserves whatever the user has entered.
func NewResolver(profile func() *models.Profile) *wizard.Resolver {
	return &wizard.Resolver{
		Branches: []wizard.BranchRule{{
			Name:     "personal-details",
			Active:   personalDetailsRequired,
			Suppress: []string{"firstName", "lastName", "dateOfBirth", "personalTaxId", "ownershipPercent"},
		}},
		Toggles: map[string]wizard.ToggleRule{
			"useProfile": {
				Name: "useProfile",
				Source: func() map[string]string {
					p := profile()
					if p == nil {
						return nil
					}
					return map[string]string{
						"firstName":    p.FirstName,
						"lastName":     p.LastName,
						"contactEmail": p.Email,
						"contactPhone": p.Phone,
					}
				},
				Targets: map[string]string{
					"firstName":    "firstName",
					"lastName":     "lastName",
					"contactEmail": "contactEmail",
					"contactPhone": "contactPhone",
				},
				ClearOnDisable: false,
			},
		},
	}
}

// BusinessAddress assembles the structured address from the committed
// business step.
func BusinessAddress(draft wizard.Draft) models.StructuredAddress {
	return models.StructuredAddress{
		Line1:   draft.Get(1, "addressLine1"),
		Line2:   draft.Get(1, "addressLine2"),
		City:    draft.Get(1, "city"),
		State:   draft.Get(1, "state"),
		ZipCode: draft.Get(1, "zipCode"),
	}
}
