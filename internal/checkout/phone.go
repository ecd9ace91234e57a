package checkout

import "strings"

// DefaultAreaCode is used when a phone number is too short to carry one.
const DefaultAreaCode = "11"

// ParsePhone strips every non-digit and splits the result into a 2-digit
// area code and the remaining number.
func ParsePhone(raw string) (areaCode, number string) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) <= 2 {
		return DefaultAreaCode, digits
	}
	return digits[:2], digits[2:]
}
