// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	cerrors "muni-flows/internal/common/errors"
	"muni-flows/internal/common/logger"
	"muni-flows/internal/common/metrics"
	"muni-flows/internal/common/observability"
	"muni-flows/internal/models"
	"muni-flows/internal/notify"
	"muni-flows/internal/store"
	"muni-flows/internal/wizard"
)

// Stage is the submission pipeline position. Stages advance strictly
// forward within one attempt; a failure pins the attempt at the stage
// that broke.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageValidating Stage = "validating"
	StageCreating   Stage = "creating"
	StageAttaching  Stage = "attaching"
	StageFinalizing Stage = "finalizing"
	StageSucceeded  Stage = "succeeded"
	StageFailed     Stage = "failed"
)

var ErrSubmissionInProgress = errors.New("SUBMISSION_IN_PROGRESS")

// RecordStore is the persistence surface the orchestrator needs.
type RecordStore interface {
	Create(ctx context.Context, rec *models.SubmissionRecord) (string, error)
	SetStatus(ctx context.Context, recordID string, status models.SubmissionStatus) error
	AttachDocument(ctx context.Context, recordID string, doc *models.UploadedDocument) error
	AttachContractor(ctx context.Context, recordID string, c *models.Contractor) error
}

// Notifier delivers the per-attempt outcome message.
type Notifier interface {
	Send(ctx context.Context, note notify.Notification) error
}

// Indexer mirrors submitted records into the search index. Indexing is
// best-effort and never affects the submission outcome.
type Indexer interface {
	Index(ctx context.Context, rec *models.SubmissionRecord) error
}

// Request carries everything one submission attempt needs beyond the
// session draft.
type Request struct {
	FlowID         string
	FlowName       string
	ApplicantID    string
	MunicipalityID string
	Email          string
	Phone          string
	Documents      []*models.UploadedDocument
	Contractors    []*models.Contractor
	// RetryRecordID resumes an attempt that failed at finalizing: the record
	// already exists, so validation and creation are skipped.
	RetryRecordID string
}

// Result is the outcome of one submission attempt.
type Result struct {
	Stage              Stage
	RecordID           string
	FailedStage        Stage    // set when Stage == StageFailed
	FailedAttachments  []string // names; non-empty means success-with-warning
	ValidationStep     int      // step that failed re-validation, when applicable
	Err                error
}

// Succeeded reports overall success, including success with attachment
// warnings.
func (r *Result) Succeeded() bool {
	return r.Stage == StageSucceeded
}

// HasWarnings reports partial attachment failure on an otherwise
// successful submission.
func (r *Result) HasWarnings() bool {
	return r.Succeeded() && len(r.FailedAttachments) > 0
}

// Orchestrator drives the submit pipeline. The in-progress guard is
// scoped per session: a double-submit of one draft is a no-op rather than
// a duplicate record, while unrelated sessions submit independently.
type Orchestrator struct {
	store    RecordStore
	notifier Notifier
	indexer  Indexer
	obs      *observability.Observability
	logger   logger.Logger

	mu       sync.Mutex
	inflight map[*wizard.Session]Stage
}

// New creates an orchestrator. indexer may be nil when search is disabled.
func New(recordStore RecordStore, notifier Notifier, indexer Indexer, obs *observability.Observability, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		store:    recordStore,
		notifier: notifier,
		indexer:  indexer,
		obs:      obs,
		logger:   log,
		inflight: map[*wizard.Session]Stage{},
	}
}

// Stage returns the pipeline position of the session's in-flight attempt,
// or StageIdle when none is running. Terminal stages are carried on the
// attempt's Result, not retained here.
func (o *Orchestrator) Stage(session *wizard.Session) Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	if stage, ok := o.inflight[session]; ok {
		return stage
	}
	return StageIdle
}

// Submit runs one attempt end to end. Exactly one notification is sent
// per attempt, whatever the outcome. A second Submit for the same session
// while one is in flight returns ErrSubmissionInProgress without side
// effects; submissions for other sessions are unaffected.
func (o *Orchestrator) Submit(ctx context.Context, session *wizard.Session, req Request) *Result {
	o.mu.Lock()
	if _, running := o.inflight[session]; running {
		o.mu.Unlock()
		return &Result{Stage: StageFailed, FailedStage: StageIdle, Err: ErrSubmissionInProgress}
	}
	o.inflight[session] = StageValidating
	o.mu.Unlock()

	start := time.Now()
	result := o.run(ctx, session, req)

	o.mu.Lock()
	delete(o.inflight, session)
	o.mu.Unlock()

	o.record(ctx, req.FlowID, result, time.Since(start))
	o.notifyOutcome(ctx, req, result)
	return result
}

func (o *Orchestrator) run(ctx context.Context, session *wizard.Session, req Request) *Result {
	recordID := req.RetryRecordID

	if recordID == "" {
		// back-navigation may have invalidated previously-valid steps
		if stepID, validation := session.ValidateAll(); !validation.Valid {
			o.logger.Warn("Submission blocked by re-validation", map[string]interface{}{
				"flowId": req.FlowID,
				"step":   stepID,
			})
			return &Result{
				Stage:          StageFailed,
				FailedStage:    StageValidating,
				ValidationStep: stepID,
				Err: &cerrors.StandardError{
					Code:      cerrors.ErrCodeFieldValidationFailed,
					Message:   "Draft failed re-validation before submission",
					Details:   fmt.Sprintf("step %d: %v", stepID, validation.GetErrorMessages()),
					Timestamp: time.Now().UTC(),
				},
			}
		}

		o.setStage(session, StageCreating)
		var err error
		recordID, err = o.store.Create(ctx, &models.SubmissionRecord{
			FlowID:         req.FlowID,
			ApplicantID:    req.ApplicantID,
			MunicipalityID: req.MunicipalityID,
			Payload:        flattenDraft(session.Draft()),
		})
		if err != nil {
			return &Result{Stage: StageFailed, FailedStage: StageCreating, Err: classifyCreateError(err)}
		}
		o.logger.Info("Application record created", map[string]interface{}{
			"flowId":   req.FlowID,
			"recordId": recordID,
		})

		o.setStage(session, StageAttaching)
		failed := o.attach(ctx, recordID, req)
		if len(failed) > 0 {
			metrics.AttachmentsFailed.WithLabelValues(req.FlowID).Add(float64(len(failed)))
		}

		o.setStage(session, StageFinalizing)
		if err := o.store.SetStatus(ctx, recordID, models.StatusSubmitted); err != nil {
			// the record exists; only finalize needs retrying
			return &Result{
				Stage:             StageFailed,
				FailedStage:       StageFinalizing,
				RecordID:          recordID,
				FailedAttachments: failed,
				Err:               cerrors.NewFinalizeFailedError(recordID, err),
			}
		}

		o.index(ctx, recordID, req, session)
		return &Result{Stage: StageSucceeded, RecordID: recordID, FailedAttachments: failed}
	}

	// finalize-only retry: create and attach already happened
	o.setStage(session, StageFinalizing)
	if err := o.store.SetStatus(ctx, recordID, models.StatusSubmitted); err != nil {
		return &Result{
			Stage:       StageFailed,
			FailedStage: StageFinalizing,
			RecordID:    recordID,
			Err:         cerrors.NewFinalizeFailedError(recordID, err),
		}
	}
	o.index(ctx, recordID, req, session)
	return &Result{Stage: StageSucceeded, RecordID: recordID}
}

// attach links documents and contractors concurrently. Failures are
// collected, not fatal: the primary record survives and the submission
// proceeds to finalize.
func (o *Orchestrator) attach(ctx context.Context, recordID string, req Request) []string {
	type attachment struct {
		name string
		link func() error
	}

	var attachments []attachment
	for _, doc := range req.Documents {
		if doc.UploadStatus != models.UploadCompleted {
			continue
		}
		d := doc
		attachments = append(attachments, attachment{
			name: d.Name,
			link: func() error { return o.store.AttachDocument(ctx, recordID, d) },
		})
	}
	for _, c := range req.Contractors {
		contractor := c
		attachments = append(attachments, attachment{
			name: contractor.Name,
			link: func() error { return o.store.AttachContractor(ctx, recordID, contractor) },
		})
	}

	if len(attachments) == 0 {
		return nil
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed []string
	)
	for _, a := range attachments {
		wg.Add(1)
		go func(a attachment) {
			defer wg.Done()
			if err := a.link(); err != nil {
				o.logger.Error("Attachment failed", map[string]interface{}{
					"recordId":   recordID,
					"attachment": a.name,
					"error":      err.Error(),
				})
				mu.Lock()
				failed = append(failed, a.name)
				mu.Unlock()
			}
		}(a)
	}
	wg.Wait()
	return failed
}

func (o *Orchestrator) index(ctx context.Context, recordID string, req Request, session *wizard.Session) {
	if o.indexer == nil {
		return
	}
	err := o.indexer.Index(ctx, &models.SubmissionRecord{
		ID:             recordID,
		FlowID:         req.FlowID,
		ApplicantID:    req.ApplicantID,
		MunicipalityID: req.MunicipalityID,
		Payload:        flattenDraft(session.Draft()),
		Status:         models.StatusSubmitted,
	})
	if err != nil {
		o.logger.Warn("Search indexing failed", map[string]interface{}{
			"recordId": recordID,
			"error":    err.Error(),
		})
	}
}

func (o *Orchestrator) record(ctx context.Context, flowID string, result *Result, elapsed time.Duration) {
	metrics.SubmissionDuration.WithLabelValues(flowID).Observe(elapsed.Seconds())
	if result.Succeeded() {
		metrics.SubmissionsCompleted.WithLabelValues(flowID).Inc()
		o.obs.RecordSubmission(ctx, flowID, "succeeded")
	} else {
		metrics.SubmissionsFailed.WithLabelValues(flowID, string(result.FailedStage)).Inc()
		o.obs.RecordSubmission(ctx, flowID, "failed")
	}
	o.obs.RecordSubmissionDuration(ctx, elapsed, flowID)
}

// notifyOutcome sends exactly one message per attempt. Notification
// failures are logged; the submission outcome stands.
func (o *Orchestrator) notifyOutcome(ctx context.Context, req Request, result *Result) {
	if o.notifier == nil || errors.Is(result.Err, ErrSubmissionInProgress) {
		return
	}

	var note notify.Notification
	switch {
	case result.HasWarnings():
		note = notify.WarningNotification(req.FlowName, result.RecordID, result.FailedAttachments, req.Email, req.Phone)
	case result.Succeeded():
		note = notify.SuccessNotification(req.FlowName, result.RecordID, req.Email, req.Phone)
	default:
		note = notify.FailureNotification(req.FlowName, failureReason(result), req.Email, req.Phone)
	}

	if err := o.notifier.Send(ctx, note); err != nil {
		o.logger.Error("Outcome notification failed", map[string]interface{}{
			"flowId":   req.FlowID,
			"severity": string(note.Severity),
			"error":    err.Error(),
		})
	}
}

func failureReason(result *Result) string {
	var stdErr *cerrors.StandardError
	if errors.As(result.Err, &stdErr) {
		return stdErr.Message
	}
	if result.Err != nil {
		return result.Err.Error()
	}
	return "unknown error"
}

func (o *Orchestrator) setStage(session *wizard.Session, stage Stage) {
	o.mu.Lock()
	o.inflight[session] = stage
	o.mu.Unlock()
}

// classifyCreateError separates business conflicts, which get a distinct
// user message and no retry, from transport failures, which are retryable.
func classifyCreateError(err error) error {
	switch {
	case errors.Is(err, store.ErrDuplicateApplication):
		return cerrors.NewDuplicateSubmissionError(err.Error())
	case errors.Is(err, store.ErrSlotUnavailable):
		return cerrors.NewSlotUnavailableError(err.Error())
	default:
		return cerrors.NewRecordCreateFailedError(err)
	}
}

// flattenDraft merges the per-step records into one payload. Step order
// makes later steps win on (unexpected) key collisions.
func flattenDraft(draft wizard.Draft) map[string]interface{} {
	out := map[string]interface{}{}
	for step := 1; step <= len(draft); step++ {
		for k, v := range draft[step] {
			out[k] = v
		}
	}
	return out
}
