// pkg/registry/schema.go
package registry

import "errors"

// Definition is one entry of the flow catalog file. It parameterizes a
// registered builder; it cannot introduce flows on its own.
type Definition struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Enabled        bool   `json:"enabled"`
	MaxAttachments int    `json:"maxAttachments,omitempty"`
	// FeeScheduleKey addresses the flow's fee table in reference data.
	// Empty means the flow charges nothing.
	FeeScheduleKey string `json:"feeScheduleKey,omitempty"`
	// RequiresMunicipality marks flows whose reference data (question
	// sets, facilities, fee schedules) is municipality-scoped.
	RequiresMunicipality bool `json:"requiresMunicipality,omitempty"`
}

func (d Definition) validate() error {
	if d.ID == "" {
		return errors.New("missing id")
	}
	if d.MaxAttachments < 0 {
		return errors.New("maxAttachments must not be negative")
	}
	return nil
}
