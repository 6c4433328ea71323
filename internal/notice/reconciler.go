package notice

import (
	"context"
	"fmt"
	"strings"

	"github.com/weclinic/appointment-notifier/internal/ledger"
	"github.com/weclinic/appointment-notifier/internal/schedule"
)

// Ledger is the slice of the persisted ledger the reconciler needs.
type Ledger interface {
	Get(ctx context.Context, appointmentID int64, noticeType string) (*ledger.Entry, error)
	Upsert(ctx context.Context, e ledger.Entry) error
	Delete(ctx context.Context, appointmentID int64, noticeType string) error
}

// Reconciler compares a candidate snapshot against the ledger and decides
// whether a notice is due. It never writes during Decide*; recording happens
// only after the caller reports a successful dispatch.
type Reconciler struct {
	ledger Ledger
}

// NewReconciler creates a reconciler over the given ledger.
func NewReconciler(l Ledger) *Reconciler {
	return &Reconciler{ledger: l}
}

// DecideCancellation decides whether a cancellation-classified snapshot
// needs a notice. A prior cancellation entry means the patient was already
// told; the entry is removed on reactivation, so a second cancellation after
// a reconfirmation is notifiable again.
func (r *Reconciler) DecideCancellation(ctx context.Context, appt *schedule.Appointment) (Decision, error) {
	if incomplete(appt) {
		return DecisionNeedsData, nil
	}
	entry, err := r.ledger.Get(ctx, appt.ID, string(TypeCancellation))
	if err != nil {
		return DecisionNeedsData, fmt.Errorf("notice: decide cancellation %d: %w", appt.ID, err)
	}
	if entry != nil {
		return DecisionDuplicate, nil
	}
	return DecisionNew, nil
}

// DecideConfirmation decides whether a confirmation-classified snapshot needs
// a notice and which kind. Reschedule wins over a simultaneous type change;
// times are compared at minute granularity.
func (r *Reconciler) DecideConfirmation(ctx context.Context, appt *schedule.Appointment) (Decision, error) {
	if incomplete(appt) {
		return DecisionNeedsData, nil
	}
	entry, err := r.ledger.Get(ctx, appt.ID, string(TypeConfirmation))
	if err != nil {
		return DecisionNeedsData, fmt.Errorf("notice: decide confirmation %d: %w", appt.ID, err)
	}
	if entry == nil {
		return DecisionNew, nil
	}

	if entry.Date != appt.Date() || truncateMinute(entry.Time) != truncateMinute(appt.StartTime()) {
		return DecisionReschedule, nil
	}

	if entry.ConsultationTypeID != nil && appt.ConsultationTypeID != nil &&
		*entry.ConsultationTypeID != *appt.ConsultationTypeID {
		return DecisionRetype, nil
	}

	cancelled, err := r.ledger.Get(ctx, appt.ID, string(TypeCancellation))
	if err != nil {
		return DecisionNeedsData, fmt.Errorf("notice: check reactivation %d: %w", appt.ID, err)
	}
	if cancelled != nil {
		return DecisionReactivation, nil
	}

	return DecisionDuplicate, nil
}

// RecordConfirmation upserts the confirmation entry after a successful
// dispatch. For a reactivation it also clears the cancellation entry so a
// future cancellation is notifiable again.
func (r *Reconciler) RecordConfirmation(ctx context.Context, appt *schedule.Appointment, decision Decision) error {
	err := r.ledger.Upsert(ctx, ledger.Entry{
		AppointmentID:      appt.ID,
		NoticeType:         string(TypeConfirmation),
		Date:               appt.Date(),
		Time:               truncateMinute(appt.StartTime()),
		ConsultationTypeID: appt.ConsultationTypeID,
	})
	if err != nil {
		return fmt.Errorf("notice: record confirmation %d: %w", appt.ID, err)
	}
	if decision == DecisionReactivation {
		if err := r.ledger.Delete(ctx, appt.ID, string(TypeCancellation)); err != nil {
			return fmt.Errorf("notice: clear cancellation %d: %w", appt.ID, err)
		}
	}
	return nil
}

// RecordCancellation writes the cancellation entry after a successful dispatch.
func (r *Reconciler) RecordCancellation(ctx context.Context, appt *schedule.Appointment) error {
	err := r.ledger.Upsert(ctx, ledger.Entry{
		AppointmentID: appt.ID,
		NoticeType:    string(TypeCancellation),
		Date:          appt.Date(),
		Time:          truncateMinute(appt.StartTime()),
	})
	if err != nil {
		return fmt.Errorf("notice: record cancellation %d: %w", appt.ID, err)
	}
	return nil
}

// incomplete reports whether the record lacks a usable phone, date or time.
// Such records are retried every cycle until the source supplies the data.
func incomplete(appt *schedule.Appointment) bool {
	return appt.Phone() == "" || appt.Date() == "" || appt.StartTime() == ""
}

// truncateMinute drops the seconds component of an HH:MM:SS time string.
func truncateMinute(t string) string {
	t = strings.TrimSpace(t)
	if len(t) > 5 && strings.Count(t, ":") == 2 {
		return t[:5]
	}
	return t
}
