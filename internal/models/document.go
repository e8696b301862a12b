// internal/models/document.go
package models

// UploadStatus tracks a document through its upload lifecycle. Transitions
// are monotonic: pending -> uploading -> completed | error.
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadCompleted UploadStatus = "completed"
	UploadError     UploadStatus = "error"
)

// UploadedDocument is a file the user attached to a draft application.
type UploadedDocument struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Size             int64        `json:"size"`
	MimeType         string       `json:"mimeType"`
	DocumentType     string       `json:"documentType"`
	Description      string       `json:"description,omitempty"`
	UploadStatus     UploadStatus `json:"uploadStatus"`
	StorageReference string       `json:"storageReference,omitempty"` // set only when completed
}

// Contractor is a sub-entity attached to permit applications after the
// primary record exists.
type Contractor struct {
	Name          string `json:"name"`
	LicenseNumber string `json:"licenseNumber"`
	Phone         string `json:"phone"`
	Email         string `json:"email,omitempty"`
	Trade         string `json:"trade,omitempty"`
}
