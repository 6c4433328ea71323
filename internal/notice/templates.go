package notice

import (
	"fmt"
	"strings"
	"time"

	"github.com/weclinic/appointment-notifier/internal/schedule"
)

// Patient-facing texts. Portuguese, WhatsApp register, matching what the
// clinic already sends by hand.

// ConfirmationMessage builds the confirmation text. Reschedules and retypes
// reuse it with the updated data; reactivations reuse it verbatim.
func ConfirmationMessage(appt *schedule.Appointment, decision Decision) string {
	greeting := FirstName(appt.PatientName())
	if greeting == "" {
		greeting = "Sou o Assistente da WeClinic"
	}
	procedures := joinProcedures(appt.Procedures())

	switch decision {
	case DecisionReschedule:
		return fmt.Sprintf(
			"Oi, %s! 💚\nSua consulta foi remarcada para %s às %s.\nProcedimento(s): %s\n\nSe tiver alguma dúvida, responda essa mensagem.",
			greeting, FormatDateBR(appt.Date()), truncateMinute(appt.StartTime()), procedures,
		)
	default:
		return fmt.Sprintf(
			"Oi, %s! 💚\nSua consulta foi confirmada para %s às %s.\nProcedimento(s): %s\n\nSe tiver alguma dúvida, responda essa mensagem.",
			greeting, FormatDateBR(appt.Date()), truncateMinute(appt.StartTime()), procedures,
		)
	}
}

// CancellationMessage builds the cancellation text.
func CancellationMessage(appt *schedule.Appointment) string {
	greeting := FirstName(appt.PatientName())
	if greeting == "" {
		greeting = "tudo bem"
	}
	return fmt.Sprintf(
		"Oi, %s! Sua consulta de %s às %s foi cancelada.\nSe quiser reagendar, responda essa mensagem que encontramos um novo horário para você. 💚",
		greeting, FormatDateBR(appt.Date()), truncateMinute(appt.StartTime()),
	)
}

// ReminderMessage builds the reminder text for a matched variant.
func ReminderMessage(appt *schedule.Appointment, rule *ReminderRule) string {
	greeting := FirstName(appt.PatientName())
	if greeting == "" {
		greeting = "tudo bem"
	}
	date := FormatDateBR(appt.Date())
	hour := truncateMinute(appt.StartTime())

	switch rule.Type {
	case TypeReminderLaser:
		return fmt.Sprintf(
			"Oi, %s! Sua sessão de laser é %s às %s. ✨\nLembre-se: evite exposição ao sol e suspenda ácidos na pele 72h antes da sessão.\nQualquer dúvida, responda essa mensagem.",
			greeting, date, hour,
		)
	case TypeReminderUltrasound:
		return fmt.Sprintf(
			"Oi, %s! Seu exame de ultrassom é amanhã, %s às %s.\nChegue com 15 minutos de antecedência e traga seus exames anteriores. 💚",
			greeting, date, hour,
		)
	default:
		return fmt.Sprintf(
			"Oi, %s! Passando para lembrar da sua consulta amanhã, %s às %s. 💚\nSe precisar remarcar, responda essa mensagem.",
			greeting, date, hour,
		)
	}
}

// FirstName extracts the first name from a full name, empty when absent.
func FirstName(fullName string) string {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// FormatDateBR converts YYYY-MM-DD to DD/MM/YYYY, passing unparseable input
// through unchanged.
func FormatDateBR(date string) string {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return parsed.Format("02/01/2006")
}

func joinProcedures(procedures []string) string {
	if len(procedures) == 0 {
		return "—"
	}
	return strings.Join(procedures, ", ")
}
