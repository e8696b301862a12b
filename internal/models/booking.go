// internal/models/booking.go
package models

// BookingRequest describes a sport-facility slot reservation. Creation must
// be a single conflict-checked round trip; the caller never checks
// availability separately.
type BookingRequest struct {
	FacilityID  string `json:"facilityId"`
	CustomerID  string `json:"customerId"`
	BookingDate string `json:"bookingDate"` // YYYY-MM-DD
	StartTime   string `json:"startTime"`   // HH:MM, 24h
	EndTime     string `json:"endTime"`
	PartySize   int    `json:"partySize,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Booking is the created reservation row.
type Booking struct {
	ID          string           `json:"id"`
	FacilityID  string           `json:"facilityId"`
	CustomerID  string           `json:"customerId"`
	BookingDate string           `json:"bookingDate"`
	StartTime   string           `json:"startTime"`
	EndTime     string           `json:"endTime"`
	Status      SubmissionStatus `json:"status"`
	CreatedAt   string           `json:"createdAt"`
}
