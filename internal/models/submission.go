// internal/models/submission.go
package models

// SubmissionStatus is the server-side lifecycle of an application record:
// draft -> submitted -> {approved | denied | under_review}, with cancelled
// reachable from any pre-terminal state.
type SubmissionStatus string

const (
	StatusDraft       SubmissionStatus = "draft"
	StatusSubmitted   SubmissionStatus = "submitted"
	StatusUnderReview SubmissionStatus = "under_review"
	StatusApproved    SubmissionStatus = "approved"
	StatusDenied      SubmissionStatus = "denied"
	StatusCancelled   SubmissionStatus = "cancelled"
)

// SubmissionRecord mirrors the persisted application row. Its ID is the join
// key for documents and contractor sub-entities; neither may be attached
// before the record exists.
type SubmissionRecord struct {
	ID             string                 `json:"id"`
	FlowID         string                 `json:"flowId"`
	ApplicantID    string                 `json:"applicantId"`
	MunicipalityID string                 `json:"municipalityId"`
	Payload        map[string]interface{} `json:"payload"`
	Status         SubmissionStatus       `json:"status"`
	CreatedAt      string                 `json:"createdAt"`
	UpdatedAt      string                 `json:"updatedAt"`
}

// EntityType classifies the applicant for conditional field resolution.
type EntityType string

const (
	EntityIndividual  EntityType = "individual"
	EntityLLC         EntityType = "llc"
	EntityCorporation EntityType = "corporation"
	EntityPartnership EntityType = "partnership"
	EntityNonProfit   EntityType = "non_profit"
	EntityGovernment  EntityType = "government"
)

// PersonalDetailsRequired reports whether the entity type requires the
// personal block (date of birth, personal tax id, ownership percentage).
// Government agencies are the excluded branch; the step schema and the
// field resolver must both use this predicate.
func (e EntityType) PersonalDetailsRequired() bool {
	return e != EntityGovernment
}

// Profile is the source record for "use profile information" autofill.
type Profile struct {
	FirstName string            `json:"firstName"`
	LastName  string            `json:"lastName"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone"`
	Address   StructuredAddress `json:"address"`
}
