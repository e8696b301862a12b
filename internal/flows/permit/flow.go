// internal/flows/permit/flow.go
package permit

import (
	"muni-flows/internal/models"
	"muni-flows/internal/orchestrator"
	"muni-flows/internal/wizard"
)

const FlowID = "building-permit"

var permitTypes = []string{"new_construction", "addition", "renovation", "demolition", "electrical", "plumbing"}

// RequiredDocumentTypes lists what a complete permit application attaches.
// Missing documents do not block submission; staff follow up.
var RequiredDocumentTypes = []string{"site_plan", "construction_drawings", "contractor_insurance"}

func propertyStep() *wizard.StepSchema {
	return &wizard.StepSchema{
		Fields: []wizard.Field{
			{Name: "parcelNumber", Type: wizard.FieldString, Required: true, Pattern: `^[0-9-]{6,20}$`},
			{Name: "propertyLine1", Type: wizard.FieldString, Required: true},
			{Name: "propertyLine2", Type: wizard.FieldString},
			{Name: "propertyCity", Type: wizard.FieldString, Required: true},
			{Name: "propertyState", Type: wizard.FieldString, Required: true, Pattern: `^[A-Z]{2}$`},
			{Name: "propertyZip", Type: wizard.FieldString, Required: true, Pattern: `^\d{5}(-\d{4})?$`},
			{Name: "ownerName", Type: wizard.FieldString, Required: true},
			{Name: "ownerEmail", Type: wizard.FieldEmail, Required: true},
			{Name: "ownerPhone", Type: wizard.FieldPhone, Required: true},
		},
	}
}

func projectStep() *wizard.StepSchema {
	return &wizard.StepSchema{
		Fields: []wizard.Field{
			{Name: "permitType", Type: wizard.FieldString, Required: true, Enum: permitTypes},
			{Name: "projectDescription", Type: wizard.FieldString, Required: true, MinLength: 20, MaxLength: 2000},
			{Name: "estimatedCost", Type: wizard.FieldCurrency, MaxValue: 10_000_000},
			{Name: "plannedStartDate", Type: wizard.FieldDate, Required: true},
		},
	}
}

func contractorStep() *wizard.StepSchema {
	// contractors and documents are collected outside the field schema;
	// this step only gates whether the applicant is self-performing
	return &wizard.StepSchema{
		Fields: []wizard.Field{
			{Name: "selfPerforming", Type: wizard.FieldString, Required: true, Enum: []string{"true", "false"}},
		},
	}
}

func reviewStep() *wizard.StepSchema {
	return &wizard.StepSchema{
		Fields: []wizard.Field{
			{Name: "certification", Type: wizard.FieldString, Required: true, Enum: []string{"true"}},
		},
	}
}

// NewFlow builds the building permit flow definition.
func NewFlow() (*wizard.Flow, error) {
	return wizard.NewFlow(FlowID, "Building Permit", []wizard.StepDefinition{
		{ID: 1, Name: "Property Information", Schema: propertyStep()},
		{ID: 2, Name: "Project Details", Schema: projectStep()},
		{ID: 3, Name: "Contractors", Schema: contractorStep()},
		{ID: 4, Name: "Review", Schema: reviewStep()},
	})
}

// PropertyAddress assembles the structured property address from the
// committed property step.
func PropertyAddress(draft wizard.Draft) models.StructuredAddress {
	return models.StructuredAddress{
		Line1:   draft.Get(1, "propertyLine1"),
		Line2:   draft.Get(1, "propertyLine2"),
		City:    draft.Get(1, "propertyCity"),
		State:   draft.Get(1, "propertyState"),
		ZipCode: draft.Get(1, "propertyZip"),
	}
}

// ProjectSummary returns the full project description for the review
// screen. Truncation is a rendering concern; the data layer always hands
// back the complete text.
func ProjectSummary(draft wizard.Draft) string {
	return draft.Get(2, "projectDescription")
}

// BuildRequest assembles the submission request for a completed permit
// draft: documents and contractor sub-entities attach after the primary
// record exists.
func BuildRequest(session *wizard.Session, applicantID, municipalityID string, docs []*models.UploadedDocument, contractors []*models.Contractor) orchestrator.Request {
	return orchestrator.Request{
		FlowID:         FlowID,
		FlowName:       "Building Permit",
		ApplicantID:    applicantID,
		MunicipalityID: municipalityID,
		Email:          session.Draft().Get(1, "ownerEmail"),
		Phone:          session.Draft().Get(1, "ownerPhone"),
		Documents:      docs,
		Contractors:    contractors,
	}
}
