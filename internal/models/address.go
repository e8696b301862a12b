// internal/models/address.go
package models

import "strings"

// StructuredAddress is the explicit address type carried end-to-end.
// Autocomplete output is normalized to this immediately; formatting to a
// display string is one-way only and never parsed back into components.
type StructuredAddress struct {
	Line1   string `json:"line1"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// IsEmpty reports whether no component has been filled in.
func (a StructuredAddress) IsEmpty() bool {
	return a.Line1 == "" && a.Line2 == "" && a.City == "" && a.State == "" && a.ZipCode == "" && a.Country == ""
}

// Display renders the address for human consumption.
func (a StructuredAddress) Display() string {
	parts := make([]string, 0, 5)
	if a.Line1 != "" {
		parts = append(parts, a.Line1)
	}
	if a.Line2 != "" {
		parts = append(parts, a.Line2)
	}
	if a.City != "" {
		parts = append(parts, a.City)
	}
	cityTail := ""
	if a.State != "" {
		cityTail = a.State
	}
	if a.ZipCode != "" {
		if cityTail != "" {
			cityTail += " " + a.ZipCode
		} else {
			cityTail = a.ZipCode
		}
	}
	if cityTail != "" {
		parts = append(parts, cityTail)
	}
	return strings.Join(parts, ", ")
}

// AddressFromComponents normalizes an autocomplete component bag into a
// StructuredAddress at the boundary. Unknown keys are ignored.
func AddressFromComponents(components map[string]string) StructuredAddress {
	return StructuredAddress{
		Line1:   components["line1"],
		Line2:   components["line2"],
		City:    components["city"],
		State:   components["state"],
		ZipCode: components["zipCode"],
		Country: components["country"],
	}
}
