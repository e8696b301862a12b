// internal/wizard/normalize_test.go
package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Date Mask Tests
// ==========================

func TestFormatDateMask(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty input", "", ""},
		{"single digit", "1", "1"},
		{"valid month", "12", "12"},
		{"month above range clamps", "13", "12"},
		{"month zero corrects", "00", "01"},
		{"month and partial day", "123", "12/3"},
		{"day above range clamps", "0299", "02/31"},
		{"day zero corrects", "0400", "04/01"},
		{"full date", "12252024", "12/25/2024"},
		{"month 13 full sequence", "1399202099", "12/31/2020"},
		{"already masked input", "12/25/2024", "12/25/2024"},
		{"mask with stray characters", "12-25-2024", "12/25/2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDateMask(tt.input))
		})
	}
}

func TestFormatDateMask_Idempotent(t *testing.T) {
	inputs := []string{"01/01/1990", "12/31/2024", "06/15/2000"}
	for _, in := range inputs {
		once := FormatDateMask(in)
		twice := FormatDateMask(once)
		assert.Equal(t, in, once)
		assert.Equal(t, once, twice)
	}
}

func TestFormatDateMask_BackspaceRederivation(t *testing.T) {
	// Deleting the trailing digit of "12/2" leaves the digit sequence "12",
	// so the mask must re-derive to "12", not keep a dangling slash.
	assert.Equal(t, "12", FormatDateMask("12/"))
	assert.Equal(t, "12/2", FormatDateMask("12/2"))
}

// ==========================
// Phone and Currency Tests
// ==========================

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "5551230000", NormalizePhone("(555) 123-0000"))
	assert.Equal(t, "5551230000", NormalizePhone("+1 555 123 0000"))
	assert.Equal(t, "5551230000", NormalizePhone("5551230000"))
	assert.Equal(t, "", NormalizePhone(""))
}

func TestNormalizeCurrency(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int64
		expected int64
	}{
		{"empty normalizes to zero", "", 1000000, 0},
		{"plain number", "50000", 1000000, 50000},
		{"formatted number", "$1,234", 1000000, 1234},
		{"clamps to maximum", "2000000", 1000000, 1000000},
		{"no maximum", "2000000", 0, 2000000},
		{"cents truncate", "10.50", 1000000, 10},
		{"formatted with cents", "$1,234.99", 1000000, 1234},
		{"bare decimal", ".99", 1000000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeCurrency(tt.input, tt.max))
		})
	}
}

func TestNormalizePercent(t *testing.T) {
	assert.Equal(t, 0, NormalizePercent(""))
	assert.Equal(t, 50, NormalizePercent("50"))
	assert.Equal(t, 100, NormalizePercent("150")) // clamp, not reject
}

func TestPercentTripleSums(t *testing.T) {
	assert.True(t, PercentTripleSums(30, 20, 50))
	assert.False(t, PercentTripleSums(30, 20, 49))
	assert.False(t, PercentTripleSums(50, 50, 50))
}
