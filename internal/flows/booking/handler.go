// internal/flows/booking/handler.go
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	cerrors "muni-flows/internal/common/errors"
	"muni-flows/internal/common/logger"
	"muni-flows/internal/models"
	"muni-flows/internal/notify"
	"muni-flows/internal/refdata"
	"muni-flows/internal/store"
	"muni-flows/internal/wizard"
)

var (
	ErrUnknownFacility = errors.New("UNKNOWN_FACILITY")
	ErrOutsideHours    = errors.New("OUTSIDE_OPERATING_HOURS")
)

// BookingStore creates conflict-checked reservations.
type BookingStore interface {
	CreateBookingWithConflictCheck(ctx context.Context, req *models.BookingRequest) (*models.Booking, error)
}

// FacilityCatalog resolves facilities for slot validation.
type FacilityCatalog interface {
	Facilities(ctx context.Context, municipalityID string) ([]refdata.Facility, error)
}

// Notifier delivers the booking outcome.
type Notifier interface {
	Send(ctx context.Context, note notify.Notification) error
}

// Handler turns a completed booking draft into a reservation. Creation is
// a single conflict-checked round trip: no separate availability check,
// no lost race between two customers wanting the same slot.
type Handler struct {
	store    BookingStore
	catalog  FacilityCatalog
	notifier Notifier
	logger   logger.Logger
}

// NewHandler creates a booking handler.
func NewHandler(st BookingStore, catalog FacilityCatalog, notifier Notifier, log logger.Logger) *Handler {
	return &Handler{store: st, catalog: catalog, notifier: notifier, logger: log}
}

// Input is a validated, committed booking draft.
type Input struct {
	CustomerID     string
	MunicipalityID string
	Draft          wizard.Draft
}

// Output is the created reservation.
type Output struct {
	Booking *models.Booking
}

// Execute books the slot and notifies the customer. Conflict errors are
// surfaced distinctly so the caller prompts for a different slot rather
// than a retry.
func (h *Handler) Execute(ctx context.Context, input Input) (*Output, error) {
	output, err := h.execute(ctx, input)

	email := input.Draft.Get(3, "customerEmail")
	phone := formatE164(input.Draft.Get(3, "customerPhone"))
	var note notify.Notification
	if err != nil {
		note = notify.FailureNotification("Sport Booking", bookingFailureReason(err), email, phone)
	} else {
		note = notify.SuccessNotification("Sport Booking", output.Booking.ID, email, phone)
	}
	if h.notifier != nil {
		if sendErr := h.notifier.Send(ctx, note); sendErr != nil {
			h.logger.Error("Booking notification failed", map[string]interface{}{
				"error": sendErr.Error(),
			})
		}
	}
	return output, err
}

func (h *Handler) execute(ctx context.Context, input Input) (*Output, error) {
	facilityID := input.Draft.Get(1, "facilityId")
	startTime := input.Draft.Get(2, "startTime")
	endTime := input.Draft.Get(2, "endTime")

	facility, err := h.findFacility(ctx, input.MunicipalityID, facilityID)
	if err != nil {
		return nil, err
	}
	if startTime < facility.OpenTime || endTime > facility.CloseTime {
		return nil, fmt.Errorf("%w: %s operates %s-%s", ErrOutsideHours, facility.Name, facility.OpenTime, facility.CloseTime)
	}

	bookingDate, err := toISODate(input.Draft.Get(2, "bookingDate"))
	if err != nil {
		return nil, err
	}

	booking, err := h.store.CreateBookingWithConflictCheck(ctx, &models.BookingRequest{
		FacilityID:  facilityID,
		CustomerID:  input.CustomerID,
		BookingDate: bookingDate,
		StartTime:   startTime,
		EndTime:     endTime,
		PartySize:   input.Draft.GetInt(2, "partySize"),
		Notes:       input.Draft.Get(3, "notes"),
	})
	if err != nil {
		if errors.Is(err, store.ErrSlotUnavailable) {
			return nil, cerrors.NewSlotUnavailableError(err.Error())
		}
		return nil, cerrors.NewRecordCreateFailedError(err)
	}

	h.logger.Info("Booking created", map[string]interface{}{
		"bookingId":  booking.ID,
		"facilityId": facilityID,
		"date":       bookingDate,
		"slot":       startTime + "-" + endTime,
	})
	return &Output{Booking: booking}, nil
}

func (h *Handler) findFacility(ctx context.Context, municipalityID, facilityID string) (*refdata.Facility, error) {
	facilities, err := h.catalog.Facilities(ctx, municipalityID)
	if err != nil {
		return nil, err
	}
	for i := range facilities {
		if facilities[i].ID == facilityID {
			return &facilities[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFacility, facilityID)
}

// toISODate converts the wizard's MM/DD/YYYY mask to the store's ISO form.
func toISODate(masked string) (string, error) {
	parsed, err := time.Parse("01/02/2006", masked)
	if err != nil {
		return "", fmt.Errorf("invalid booking date %q: %w", masked, err)
	}
	return parsed.Format("2006-01-02"), nil
}

func formatE164(tenDigits string) string {
	if len(tenDigits) != 10 {
		return ""
	}
	return "+1" + tenDigits
}

func bookingFailureReason(err error) string {
	var stdErr *cerrors.StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Message
	}
	return err.Error()
}
