// internal/wizard/normalize.go
package wizard

import (
	"strconv"
	"strings"
)

// digitsOf strips everything but ASCII digits. The date mask and phone
// normalizers work on the underlying digit sequence, which is what makes
// backspace handling safe: the mask is always re-derived, never edited.
func digitsOf(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatDateMask re-derives an MM/DD/YYYY mask from the digit sequence of
// the input. Out-of-range months clamp to 12 (00 becomes 01) and days clamp
// to 31 (00 becomes 01) as digits arrive. Formatting an already-masked
// string yields the same string.
func FormatDateMask(input string) string {
	digits := digitsOf(input)
	if len(digits) > 8 {
		digits = digits[:8]
	}
	if digits == "" {
		return ""
	}

	var b strings.Builder

	month := digits
	if len(month) > 2 {
		month = month[:2]
	}
	if len(month) == 2 {
		if month > "12" {
			month = "12"
		} else if month == "00" {
			month = "01"
		}
	}
	b.WriteString(month)

	if len(digits) > 2 {
		day := digits[2:]
		if len(day) > 2 {
			day = day[:2]
		}
		if len(day) == 2 {
			if day > "31" {
				day = "31"
			} else if day == "00" {
				day = "01"
			}
		}
		b.WriteString("/")
		b.WriteString(day)
	}

	if len(digits) > 4 {
		b.WriteString("/")
		b.WriteString(digits[4:])
	}

	return b.String()
}

// IsCompleteDate reports whether the masked value holds a full MM/DD/YYYY.
func IsCompleteDate(masked string) bool {
	return len(digitsOf(masked)) == 8
}

// NormalizePhone reduces a phone number to its digit sequence, dropping a
// leading country code 1 from 11-digit numbers.
func NormalizePhone(input string) string {
	digits := digitsOf(input)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

// NormalizeCurrency coerces user input to whole dollars. Cents are
// truncated, not folded into the dollar amount: "10.50" is 10. An empty
// input normalizes to 0; a value above max clamps to max rather than
// erroring.
func NormalizeCurrency(input string, max int64) int64 {
	if i := strings.IndexByte(input, '.'); i >= 0 {
		input = input[:i]
	}
	digits := digitsOf(input)
	if digits == "" {
		return 0
	}
	val, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		// Overflow on absurdly long digit strings clamps too.
		return max
	}
	if max > 0 && val > max {
		return max
	}
	return val
}

// NormalizePercent coerces input to an integer percentage in [0, 100].
// Empty renders as 0; values above 100 clamp.
func NormalizePercent(input string) int {
	return int(NormalizeCurrency(input, 100))
}

// PercentTripleSums reports whether the three percentage values sum to
// exactly 100.
func PercentTripleSums(a, b, c int) bool {
	return a+b+c == 100
}
