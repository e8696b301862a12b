// Package errors provides standardized error handling for the application-flow engine.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeFieldValidationFailed ErrorCode = "FIELD_VALIDATION_FAILED"
	ErrCodeCrossFieldValidation  ErrorCode = "CROSS_FIELD_VALIDATION_FAILED"

	ErrCodeBusinessConflict ErrorCode = "BUSINESS_CONFLICT"
	ErrCodeSlotUnavailable  ErrorCode = "SLOT_UNAVAILABLE"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeRecordCreateFailed       ErrorCode = "RECORD_CREATE_FAILED"
	ErrCodeDuplicateSubmission      ErrorCode = "DUPLICATE_SUBMISSION"
	ErrCodeFinalizeFailed           ErrorCode = "FINALIZE_FAILED"

	ErrCodeAttachmentFailed ErrorCode = "ATTACHMENT_FAILED"
	ErrCodeUploadFailed     ErrorCode = "UPLOAD_FAILED"
	ErrCodeFileTooLarge     ErrorCode = "FILE_TOO_LARGE"
	ErrCodeFileTypeInvalid  ErrorCode = "FILE_TYPE_INVALID"

	ErrCodeReferenceDataUnavailable ErrorCode = "REFERENCE_DATA_UNAVAILABLE"
	ErrCodeQuestionSetInvalid       ErrorCode = "QUESTION_SET_INVALID"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeSearchIndexFailed      ErrorCode = "SEARCH_INDEX_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewSlotUnavailableError creates a non-retryable booking conflict error.
// The user should pick a different slot, not retry the same one.
func NewSlotUnavailableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSlotUnavailable,
		Message:   "Requested time slot is no longer available",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewBusinessConflictError creates a non-retryable conflict error.
func NewBusinessConflictError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBusinessConflict,
		Message:   "Submission conflicts with existing server-side state",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateSubmissionError creates a non-retryable duplicate error.
func NewDuplicateSubmissionError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateSubmission,
		Message:   "An application already exists for this applicant",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordCreateFailedError creates a retryable transport error for the create stage.
func NewRecordCreateFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordCreateFailed,
		Message:   "Failed to create the application record",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFinalizeFailedError creates a retryable error for the finalize stage.
// Finalize is idempotent by record id, so the caller may safely retry it alone.
func NewFinalizeFailedError(recordID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFinalizeFailed,
		Message:   "Submission is incomplete and may be retried",
		Details:   fmt.Sprintf("recordId: %s, error: %s", recordID, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"recordId": recordID},
		Timestamp: time.Now().UTC(),
	}
}

// NewAttachmentFailedError creates a non-fatal attachment error. The primary
// record survives; this surfaces as a warning, not an overall failure.
func NewAttachmentFailedError(recordID, attachmentName string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAttachmentFailed,
		Message:   fmt.Sprintf("Attachment %q could not be linked to the submission", attachmentName),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"recordId": recordID, "attachment": attachmentName},
		Timestamp: time.Now().UTC(),
	}
}

// NewFileTooLargeError creates a non-retryable client-side file error.
func NewFileTooLargeError(name string, size, limit int64) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileTooLarge,
		Message:   fmt.Sprintf("File %q exceeds the maximum allowed size", name),
		Details:   fmt.Sprintf("size: %d, limit: %d", size, limit),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFileTypeInvalidError creates a non-retryable client-side file error.
func NewFileTypeInvalidError(name, mimeType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileTypeInvalid,
		Message:   fmt.Sprintf("File %q has an unsupported type", name),
		Details:   fmt.Sprintf("mimeType: %s", mimeType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewReferenceDataUnavailableError creates a retryable lookup error.
func NewReferenceDataUnavailableError(key string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeReferenceDataUnavailable,
		Message:   "Reference data lookup failed",
		Details:   fmt.Sprintf("key: %s, error: %s", key, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification error.
func NewNotificationSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification could not be delivered",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification helpers
// ==========================

// GetRetryCount returns how many automatic retries a failed operation with
// the given code deserves. Conflicts and validation failures get none.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeRecordCreateFailed,
		ErrCodeFinalizeFailed,
		ErrCodeReferenceDataUnavailable,
		ErrCodeNotificationSendFailed,
		ErrCodeSearchIndexFailed:
		return 3
	default:
		return 0
	}
}

// GetErrorCategory buckets codes into the user-facing taxonomy.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeFieldValidationFailed, ErrCodeCrossFieldValidation:
		return "validation"
	case ErrCodeBusinessConflict, ErrCodeSlotUnavailable, ErrCodeDuplicateSubmission:
		return "conflict"
	case ErrCodeAttachmentFailed, ErrCodeUploadFailed:
		return "attachment"
	case ErrCodeFileTooLarge, ErrCodeFileTypeInvalid:
		return "file"
	default:
		return "transport"
	}
}

// IsConflict reports whether err is a business conflict rather than a
// transport failure. Conflicts get a distinct user message and no retry.
func IsConflict(err error) bool {
	stdErr, ok := err.(*StandardError)
	if !ok {
		return false
	}
	return GetErrorCategory(stdErr.Code) == "conflict"
}
