// internal/wizard/schema.go
package wizard

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Record is the field set of a single step, before or after normalization.
type Record map[string]interface{}

// Draft holds the committed output of every validated step, keyed by step id.
// A step schema may read earlier steps' records through it, never later ones.
type Draft map[int]Record

// Get reads a committed field from an earlier step. Missing steps or fields
// return the empty string.
func (d Draft) Get(stepID int, field string) string {
	rec, ok := d[stepID]
	if !ok {
		return ""
	}
	val, ok := rec[field]
	if !ok {
		return ""
	}
	return toString(val)
}

// GetInt reads a committed numeric field from an earlier step.
func (d Draft) GetInt(stepID int, field string) int {
	rec, ok := d[stepID]
	if !ok {
		return 0
	}
	switch v := rec[field].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// FieldType selects the normalizer and format checks applied to a field.
type FieldType string

const (
	FieldString   FieldType = "string"
	FieldEmail    FieldType = "email"
	FieldPhone    FieldType = "phone"
	FieldDate     FieldType = "date"
	FieldCurrency FieldType = "currency"
	FieldPercent  FieldType = "percent"
	FieldURL      FieldType = "url"
)

// Field declares one input of a step schema.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
	// When gates the field on upstream draft data. When it returns false the
	// field is inactive: neither required nor validated nor emitted. The
	// conditional field resolver must use the same predicate so the rendered
	// form and the schema never disagree.
	When      func(draft Draft) bool
	Pattern   string
	Enum      []string
	MinLength int
	MaxLength int
	MaxValue  int64 // clamp ceiling for currency/percent fields
}

// CrossCheck is a cross-field constraint evaluated only after every
// individual field check has passed. Failures report against Key, a
// synthetic summary field distinct from any input field.
type CrossCheck struct {
	Key   string
	Check func(rec Record) string // returns a message, or "" when satisfied
}

// StepSchema validates and normalizes one step's record.
type StepSchema struct {
	Fields      []Field
	CrossChecks []CrossCheck
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// First returns the first error in schema field order, which is what the
// caller scrolls to.
func (vr *ValidationResult) First() *ValidationError {
	if len(vr.Errors) == 0 {
		return nil
	}
	return &vr.Errors[0]
}

// HasErrors checks if validation has errors for a specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	urlPattern   = regexp.MustCompile(`^(https?)://[^\s/$.?#].[^\s]*$`)
)

// Validate checks input against the schema, reading earlier steps through
// draft for conditional fields. On success it returns the normalized record
// and a valid result; on failure the record is nil and the result carries
// field-keyed errors in schema order.
func (s *StepSchema) Validate(input Record, draft Draft) (Record, *ValidationResult) {
	errors := []ValidationError{}
	normalized := Record{}

	for _, field := range s.Fields {
		if field.When != nil && !field.When(draft) {
			continue // inactive branch: skip requiredness and emission both
		}

		raw := toString(input[field.Name])

		if fieldErrs, value := validateField(field, raw); len(fieldErrs) > 0 {
			errors = append(errors, fieldErrs...)
		} else {
			normalized[field.Name] = value
		}
	}

	// Cross-field constraints only fire on otherwise-clean steps so the user
	// fixes individual fields first.
	if len(errors) == 0 {
		for _, check := range s.CrossChecks {
			if msg := check.Check(normalized); msg != "" {
				errors = append(errors, ValidationError{
					Field:   check.Key,
					Message: msg,
					Code:    "CROSS_FIELD_VIOLATION",
				})
			}
		}
	}

	if len(errors) > 0 {
		return nil, &ValidationResult{Valid: false, Errors: errors}
	}
	return normalized, &ValidationResult{Valid: true}
}

func validateField(field Field, raw string) ([]ValidationError, interface{}) {
	trimmed := strings.TrimSpace(raw)

	switch field.Type {
	case FieldCurrency:
		// Empty numeric input normalizes to 0; oversized values clamp.
		return nil, NormalizeCurrency(trimmed, field.MaxValue)
	case FieldPercent:
		return nil, NormalizePercent(trimmed)
	}

	if trimmed == "" {
		if field.Required {
			return []ValidationError{{
				Field:   field.Name,
				Message: "required field missing",
				Code:    "REQUIRED_FIELD_MISSING",
			}}, nil
		}
		return nil, ""
	}

	switch field.Type {
	case FieldEmail:
		if !emailPattern.MatchString(trimmed) {
			return []ValidationError{{
				Field:   field.Name,
				Message: "invalid email address",
				Code:    "INVALID_EMAIL",
			}}, nil
		}
		return nil, trimmed

	case FieldPhone:
		phone := NormalizePhone(trimmed)
		if len(phone) != 10 {
			return []ValidationError{{
				Field:   field.Name,
				Message: "phone number must have 10 digits",
				Code:    "INVALID_PHONE",
			}}, nil
		}
		return nil, phone

	case FieldDate:
		masked := FormatDateMask(trimmed)
		if !IsCompleteDate(masked) {
			return []ValidationError{{
				Field:   field.Name,
				Message: "date must be MM/DD/YYYY",
				Code:    "INCOMPLETE_DATE",
			}}, nil
		}
		return nil, masked

	case FieldURL:
		if !urlPattern.MatchString(trimmed) {
			return []ValidationError{{
				Field:   field.Name,
				Message: "invalid URL",
				Code:    "INVALID_URL",
			}}, nil
		}
		return nil, trimmed
	}

	errors := []ValidationError{}

	if field.MinLength > 0 && len(trimmed) < field.MinLength {
		errors = append(errors, ValidationError{
			Field:   field.Name,
			Message: fmt.Sprintf("value must be at least %d characters", field.MinLength),
			Code:    "MIN_LENGTH_VIOLATION",
		})
	}
	if field.MaxLength > 0 && len(trimmed) > field.MaxLength {
		errors = append(errors, ValidationError{
			Field:   field.Name,
			Message: fmt.Sprintf("value must be at most %d characters", field.MaxLength),
			Code:    "MAX_LENGTH_VIOLATION",
		})
	}

	if field.Pattern != "" {
		matched, err := regexp.MatchString(field.Pattern, trimmed)
		if err != nil || !matched {
			errors = append(errors, ValidationError{
				Field:   field.Name,
				Message: fmt.Sprintf("value must match pattern %s", field.Pattern),
				Code:    "PATTERN_MISMATCH",
			})
		}
	}

	if len(field.Enum) > 0 {
		found := false
		for _, enumVal := range field.Enum {
			if trimmed == enumVal {
				found = true
				break
			}
		}
		if !found {
			errors = append(errors, ValidationError{
				Field:   field.Name,
				Message: fmt.Sprintf("value must be one of %v", field.Enum),
				Code:    "INVALID_ENUM_VALUE",
			})
		}
	}

	if len(errors) > 0 {
		return errors, nil
	}
	return nil, trimmed
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// PercentTripleCheck builds the cross-field constraint shared by the
// card-volume and transaction-mix steps: three percentage fields must sum
// to exactly 100, reported against the summary key.
func PercentTripleCheck(key string, fields [3]string) CrossCheck {
	return CrossCheck{
		Key: key,
		Check: func(rec Record) string {
			sum := 0
			for _, name := range fields {
				if v, ok := rec[name].(int); ok {
					sum += v
				}
			}
			if sum != 100 {
				return fmt.Sprintf("percentages must total 100, got %d", sum)
			}
			return ""
		},
	}
}
