// internal/service/service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"muni-flows/internal/common/config"
	"muni-flows/internal/common/logger"
	"muni-flows/internal/common/metrics"
	"muni-flows/internal/documents"
	"muni-flows/internal/flows/booking"
	"muni-flows/internal/flows/license"
	"muni-flows/internal/models"
	"muni-flows/internal/orchestrator"
	"muni-flows/internal/refdata"
	"muni-flows/internal/wizard"
	"muni-flows/pkg/registry"
)

var (
	ErrSessionUnknown     = errors.New("SESSION_UNKNOWN")
	ErrTooManyAttachments = errors.New("TOO_MANY_ATTACHMENTS")
)

// WizardSession bundles everything one open wizard owns: navigation and
// draft state plus the upload list tied to its lifetime.
type WizardSession struct {
	ID        string
	FlowID    string
	Session   *wizard.Session
	Documents *documents.Manager
}

// Service is the application facade: it opens wizard sessions against
// registered flows and routes completed drafts into the submission
// pipeline.
type Service struct {
	registry *registry.Registry
	orch     *orchestrator.Orchestrator
	bookings *booking.Handler
	refdata  *refdata.Cache
	uploader documents.Uploader
	cfg      *config.Config
	logger   logger.Logger

	mu       sync.Mutex
	sessions map[string]*WizardSession
}

// New creates the service facade. cfg may be nil in tests; every
// configured knob then falls back to its package default.
func New(reg *registry.Registry, orch *orchestrator.Orchestrator, bookings *booking.Handler,
	refCache *refdata.Cache, uploader documents.Uploader, cfg *config.Config, log logger.Logger) *Service {
	return &Service{
		registry: reg,
		orch:     orch,
		bookings: bookings,
		refdata:  refCache,
		uploader: uploader,
		cfg:      cfg,
		logger:   log,
		sessions: map[string]*WizardSession{},
	}
}

func (s *Service) flowConfig(flowID string) config.FlowConfig {
	if s.cfg == nil {
		return config.FlowConfig{}
	}
	return config.GetFlowConfig(s.cfg, flowID)
}

func (s *Service) maxFileSize() int64 {
	if s.cfg == nil {
		return 0
	}
	return s.cfg.Storage.MaxFileSize
}

// StartSession opens a wizard session for a registered, enabled flow. The
// session's document manager forgets its uploads whenever the draft
// resets.
func (s *Service) StartSession(flowID, userID string) (*WizardSession, error) {
	flow, err := s.registry.Build(flowID)
	if err != nil {
		return nil, err
	}
	return s.openSession(flow, flowID, userID), nil
}

// StartLicenseSession opens a business-license session whose license-type
// enum comes from the municipality's published reference data. When the
// municipality publishes nothing, or reference data is unreachable, the
// flow falls back to its default list.
func (s *Service) StartLicenseSession(ctx context.Context, userID, municipalityID string) (*WizardSession, error) {
	// the catalog's known/enabled checks still apply
	if _, err := s.registry.Build(license.FlowID); err != nil {
		return nil, err
	}

	types, err := s.refdata.LicenseTypes(ctx, municipalityID)
	if err != nil {
		s.logger.Warn("License types unavailable, using defaults", map[string]interface{}{
			"municipalityId": municipalityID,
			"error":          err.Error(),
		})
		types = nil
	}

	flow, err := license.NewFlowWithTypes(types)
	if err != nil {
		return nil, err
	}
	return s.openSession(flow, license.FlowID, userID), nil
}

func (s *Service) openSession(flow *wizard.Flow, flowID, userID string) *WizardSession {
	session := wizard.NewSession(flow)
	docs := documents.NewManager(s.uploader, s.logger, documents.UserNamespace(userID), s.maxFileSize())
	session.OnReset(docs.Forget)

	ws := &WizardSession{
		ID:        uuid.New().String(),
		FlowID:    flowID,
		Session:   session,
		Documents: docs,
	}

	s.mu.Lock()
	s.sessions[ws.ID] = ws
	s.mu.Unlock()

	metrics.SessionsActive.WithLabelValues(flowID).Inc()
	s.logger.Info("Wizard session opened", map[string]interface{}{
		"sessionId": ws.ID,
		"flowId":    flowID,
	})
	return ws
}

// Session looks up an open session.
func (s *Service) Session(id string) (*WizardSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ws, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionUnknown, id)
	}
	return ws, nil
}

// CloseSession discards the draft and its uploads and drops the session.
func (s *Service) CloseSession(id string) error {
	s.mu.Lock()
	ws, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionUnknown, id)
	}

	ws.Session.Reset()
	metrics.SessionsActive.WithLabelValues(ws.FlowID).Dec()
	return nil
}

// Upload attaches a file to a session's draft, honoring the flow
// catalog's attachment ceiling.
func (s *Service) Upload(ctx context.Context, sessionID string, upload documents.FileUpload) (*models.UploadedDocument, error) {
	ws, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	if def, ok := s.registry.Definition(ws.FlowID); ok && def.MaxAttachments > 0 {
		if len(ws.Documents.Documents()) >= def.MaxAttachments {
			return nil, fmt.Errorf("%w: flow %s allows %d", ErrTooManyAttachments, ws.FlowID, def.MaxAttachments)
		}
	}
	return ws.Documents.Add(ctx, upload)
}

// Submit runs the submission pipeline for a completed draft. Completed
// uploads ride along; errored ones never do.
func (s *Service) Submit(ctx context.Context, sessionID string, req orchestrator.Request, contractors []*models.Contractor) (*orchestrator.Result, error) {
	ws, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}

	req.FlowID = ws.FlowID
	req.Documents = ws.Documents.Completed()
	req.Contractors = contractors

	if fc := s.flowConfig(ws.FlowID); fc.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.GetDuration(fc.SubmitTimeout))
		defer cancel()
	}

	result := s.orch.Submit(ctx, ws.Session, req)
	if result.Succeeded() {
		// terminal success: the draft is done
		if err := s.CloseSession(sessionID); err != nil {
			s.logger.Warn("Failed to close submitted session", map[string]interface{}{
				"sessionId": sessionID,
			})
		}
	}
	return result, nil
}

// Book runs the conflict-checked booking path for a completed sport
// booking draft.
func (s *Service) Book(ctx context.Context, sessionID, customerID, municipalityID string) (*models.Booking, error) {
	ws, err := s.Session(sessionID)
	if err != nil {
		return nil, err
	}
	if !ws.Session.Complete() {
		return nil, errors.New("booking draft is incomplete")
	}

	if fc := s.flowConfig(ws.FlowID); fc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.GetDuration(fc.Timeout))
		defer cancel()
	}

	output, err := s.bookings.Execute(ctx, booking.Input{
		CustomerID:     customerID,
		MunicipalityID: municipalityID,
		Draft:          ws.Session.Draft(),
	})
	if err != nil {
		return nil, err
	}

	if closeErr := s.CloseSession(sessionID); closeErr != nil {
		s.logger.Warn("Failed to close booked session", map[string]interface{}{
			"sessionId": sessionID,
		})
	}
	return output.Booking, nil
}

// Facilities exposes the facility catalog for the booking flow's first
// step.
func (s *Service) Facilities(ctx context.Context, municipalityID string) ([]refdata.Facility, error) {
	return s.refdata.Facilities(ctx, municipalityID)
}

// QuestionSet exposes the municipality's validated extra questions for a
// flow's review step.
func (s *Service) QuestionSet(ctx context.Context, municipalityID, flowID string) (*refdata.QuestionSet, error) {
	return s.refdata.QuestionSet(ctx, municipalityID, flowID)
}

// FeeSchedule returns the fee table for a flow in a municipality,
// addressed through the flow catalog's fee-schedule key. Flows without a
// key charge nothing and return nil.
func (s *Service) FeeSchedule(ctx context.Context, municipalityID, flowID string) (*refdata.FeeSchedule, error) {
	def, ok := s.registry.Definition(flowID)
	if !ok || def.FeeScheduleKey == "" {
		return nil, nil
	}
	return s.refdata.FeeSchedule(ctx, municipalityID, def.FeeScheduleKey)
}
