package notice

import "strings"

// Status vocabulary of the scheduling source. Substring containment is
// deliberate: the source emits free text like "CONFIRMADO PELO PACIENTE" and
// "CANCELADO - FALTA", and compatibility with that vocabulary is required.
const (
	cancelledKeyword = "CANCELADO"
	confirmedKeyword = "CONFIRMADO"
)

// Classify maps a raw status text to a notification class. Cancellation
// takes priority when both keywords appear ("RECONFIRMADO APOS CANCELADO"
// classifies as cancellation). Total: never errors, worst case ignores.
func Classify(status string) Class {
	upper := strings.ToUpper(strings.TrimSpace(status))
	if upper == "" {
		return ClassIgnore
	}
	if strings.Contains(upper, cancelledKeyword) {
		return ClassCancellation
	}
	if strings.Contains(upper, confirmedKeyword) {
		return ClassConfirmation
	}
	return ClassIgnore
}
