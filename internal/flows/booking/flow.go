// internal/flows/booking/flow.go
package booking

import (
	"muni-flows/internal/wizard"
)

const FlowID = "sport-booking"

func facilityStep() *wizard.StepSchema {
	return &wizard.StepSchema{
		Fields: []wizard.Field{
			{Name: "facilityId", Type: wizard.FieldString, Required: true},
			{Name: "activityType", Type: wizard.FieldString, Required: true,
				Enum: []string{"tennis", "basketball", "soccer", "swimming", "pickleball"}},
		},
	}
}

func slotStep() *wizard.StepSchema {
	return &wizard.StepSchema{
		Fields: []wizard.Field{
			{Name: "bookingDate", Type: wizard.FieldDate, Required: true},
			{Name: "startTime", Type: wizard.FieldString, Required: true, Pattern: `^([01]\d|2[0-3]):[0-5]\d$`},
			{Name: "endTime", Type: wizard.FieldString, Required: true, Pattern: `^([01]\d|2[0-3]):[0-5]\d$`},
			{Name: "partySize", Type: wizard.FieldString, Pattern: `^\d{1,3}$`},
		},
		CrossChecks: []wizard.CrossCheck{slotOrderCheck()},
	}
}

// slotOrderCheck rejects zero-length and inverted slots before they ever
// reach the conflict-checked create.
func slotOrderCheck() wizard.CrossCheck {
	return wizard.CrossCheck{
		Key: "timeSlot",
		Check: func(rec wizard.Record) string {
			start, _ := rec["startTime"].(string)
			end, _ := rec["endTime"].(string)
			if start != "" && end != "" && start >= end {
				return "end time must be after start time"
			}
			return ""
		},
	}
}

func contactStep() *wizard.StepSchema {
	return &wizard.StepSchema{
		Fields: []wizard.Field{
			{Name: "customerName", Type: wizard.FieldString, Required: true},
			{Name: "customerEmail", Type: wizard.FieldEmail, Required: true},
			{Name: "customerPhone", Type: wizard.FieldPhone, Required: true},
			{Name: "notes", Type: wizard.FieldString, MaxLength: 500},
		},
	}
}

// NewFlow builds the sport booking flow definition.
func NewFlow() (*wizard.Flow, error) {
	return wizard.NewFlow(FlowID, "Sport Booking", []wizard.StepDefinition{
		{ID: 1, Name: "Facility", Schema: facilityStep()},
		{ID: 2, Name: "Time Slot", Schema: slotStep()},
		{ID: 3, Name: "Contact", Schema: contactStep()},
	})
}
