// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"muni-flows/internal/common/logger"
	"muni-flows/internal/models"
)

var (
	ErrDuplicateApplication = errors.New("DUPLICATE_SUBMISSION")
	ErrSlotUnavailable      = errors.New("SLOT_UNAVAILABLE")
	ErrRecordNotFound       = errors.New("RECORD_NOT_FOUND")
)

// Store persists application records and their sub-entities in Postgres.
type Store struct {
	db     *sql.DB
	logger logger.Logger
}

// NewStore creates a record store.
func NewStore(db *sql.DB, log logger.Logger) *Store {
	return &Store{db: db, logger: log}
}

// Create inserts the primary application record. An open application for
// the same applicant and flow is a duplicate conflict, not a transport
// failure. The returned id is the join key for every later attachment.
func (s *Store) Create(ctx context.Context, rec *models.SubmissionRecord) (string, error) {
	var existingID string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM applications
		WHERE applicant_id = $1 AND flow_id = $2
		  AND status NOT IN ('approved', 'denied', 'cancelled')`,
		rec.ApplicantID, rec.FlowID,
	).Scan(&existingID)
	if err == nil {
		return "", fmt.Errorf("%w: open application %s", ErrDuplicateApplication, existingID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("duplicate check failed: %w", err)
	}

	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().UTC().Format(time.RFC3339)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO applications (id, flow_id, applicant_id, municipality_id, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		id, rec.FlowID, rec.ApplicantID, rec.MunicipalityID, payload, models.StatusDraft, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert application: %w", err)
	}

	s.insertAuditLog(ctx, id, "application_created", map[string]interface{}{
		"flowId":      rec.FlowID,
		"applicantId": rec.ApplicantID,
	})

	return id, nil
}

// CreateBookingWithConflictCheck reserves a facility slot in a single
// conflict-checked round trip through a stored procedure. The procedure
// checks for overlap and inserts under one lock, so two users requesting
// the same slot can never both succeed.
func (s *Store) CreateBookingWithConflictCheck(ctx context.Context, req *models.BookingRequest) (*models.Booking, error) {
	var (
		bookingID      string
		created        bool
		conflictReason sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT booking_id, created, conflict_reason
		FROM create_booking_with_conflict_check($1, $2, $3, $4, $5, $6, $7)`,
		req.FacilityID, req.CustomerID, req.BookingDate, req.StartTime, req.EndTime, req.PartySize, req.Notes,
	).Scan(&bookingID, &created, &conflictReason)
	if err != nil {
		return nil, fmt.Errorf("booking procedure failed: %w", err)
	}

	if !created {
		reason := "slot overlaps an existing booking"
		if conflictReason.Valid {
			reason = conflictReason.String
		}
		return nil, fmt.Errorf("%w: %s", ErrSlotUnavailable, reason)
	}

	s.insertAuditLog(ctx, bookingID, "booking_created", map[string]interface{}{
		"facilityId":  req.FacilityID,
		"bookingDate": req.BookingDate,
		"startTime":   req.StartTime,
	})

	return &models.Booking{
		ID:          bookingID,
		FacilityID:  req.FacilityID,
		CustomerID:  req.CustomerID,
		BookingDate: req.BookingDate,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      models.StatusSubmitted,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// SetStatus transitions the record's status. The update is idempotent by
// record id: setting an already-set status affects zero rows and is not
// an error, which lets the finalize stage be retried safely.
func (s *Store) SetStatus(ctx context.Context, recordID string, status models.SubmissionStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE applications SET status = $1, updated_at = $2
		WHERE id = $3 AND status != $1`,
		status, time.Now().UTC().Format(time.RFC3339), recordID,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM applications WHERE id = $1)`, recordID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to verify record: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)
		}
		// already in the target status; retry of an interrupted finalize
		return nil
	}

	s.insertAuditLog(ctx, recordID, "status_changed", map[string]interface{}{
		"status": string(status),
	})
	return nil
}

// AttachDocument links a completed upload to an existing record.
func (s *Store) AttachDocument(ctx context.Context, recordID string, doc *models.UploadedDocument) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO application_documents (id, application_id, name, document_type, description, storage_reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.ID, recordID, doc.Name, doc.DocumentType, doc.Description, doc.StorageReference,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to attach document %s: %w", doc.Name, err)
	}
	return nil
}

// AttachContractor links a contractor sub-entity to an existing record.
func (s *Store) AttachContractor(ctx context.Context, recordID string, c *models.Contractor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO application_contractors (id, application_id, name, license_number, phone, email, trade, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.New().String(), recordID, c.Name, c.LicenseNumber, c.Phone, c.Email, c.Trade,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to attach contractor %s: %w", c.Name, err)
	}
	return nil
}

// GetByID loads one application record.
func (s *Store) GetByID(ctx context.Context, recordID string) (*models.SubmissionRecord, error) {
	var (
		rec     models.SubmissionRecord
		payload []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, flow_id, applicant_id, municipality_id, payload, status, created_at, updated_at
		FROM applications WHERE id = $1`,
		recordID,
	).Scan(&rec.ID, &rec.FlowID, &rec.ApplicantID, &rec.MunicipalityID, &payload, &rec.Status, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, recordID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load application: %w", err)
	}

	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &rec.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}
	return &rec, nil
}

// insertAuditLog records an audit event. Failures are logged and swallowed;
// auditing must never fail the business operation.
func (s *Store) insertAuditLog(ctx context.Context, recordID, action string, details map[string]interface{}) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, record_id, action, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), recordID, action, detailsJSON,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		s.logger.Warn("Failed to insert audit log", map[string]interface{}{
			"recordId": recordID,
			"action":   action,
			"error":    err.Error(),
		})
	}
}
