package messaging

import "strings"

// NormalizePhone strips every non-digit from a raw phone value.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// brazilianNumber prefixes the country code 55 to bare 11-digit numbers
// (DDD + 9-digit mobile). Numbers already carrying a country code pass
// through untouched.
func brazilianNumber(raw string) string {
	digits := NormalizePhone(raw)
	if len(digits) == 11 && !strings.HasPrefix(digits, "55") {
		return "55" + digits
	}
	return digits
}
