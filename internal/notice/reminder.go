package notice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/weclinic/appointment-notifier/internal/ledger"
	"github.com/weclinic/appointment-notifier/internal/schedule"
)

// ReminderRule fires a pre-visit reminder when an appointment's lead time
// falls inside [Target-Tolerance, Target+Tolerance] and one of Procedures
// matches a procedure descriptor. An empty Procedures list matches every
// appointment, so the catch-all rule must be ordered last.
type ReminderRule struct {
	Type       Type
	Procedures []string
	Target     time.Duration
	Tolerance  time.Duration
}

// Matches reports whether any of the appointment's procedure descriptors
// contains one of the rule's substrings (case-insensitive).
func (r ReminderRule) Matches(appt *schedule.Appointment) bool {
	if len(r.Procedures) == 0 {
		return true
	}
	for _, proc := range appt.Procedures() {
		procUpper := strings.ToUpper(proc)
		for _, want := range r.Procedures {
			if strings.Contains(procUpper, strings.ToUpper(want)) {
				return true
			}
		}
	}
	return false
}

// DefaultReminderRules returns the clinic's standard reminder schedule:
// laser sessions get a 72h heads-up (pre-session skincare instructions),
// ultrasound exams and everything else get 24h.
func DefaultReminderRules() []ReminderRule {
	return []ReminderRule{
		{Type: TypeReminderLaser, Procedures: []string{"LASER"}, Target: 72 * time.Hour, Tolerance: 2 * time.Hour},
		{Type: TypeReminderUltrasound, Procedures: []string{"ULTRASSOM", "ULTRASSONOGRAFIA"}, Target: 24 * time.Hour, Tolerance: 2 * time.Hour},
		{Type: TypeReminderDefault, Target: 24 * time.Hour, Tolerance: 2 * time.Hour},
	}
}

// ReminderMatcher selects at most one reminder variant per snapshot and
// dedups it against the ledger per (appointment id, variant).
type ReminderMatcher struct {
	rules  []ReminderRule
	ledger Ledger
	now    func() time.Time
}

// NewReminderMatcher creates a matcher with the given ordered rules.
func NewReminderMatcher(rules []ReminderRule, l Ledger) *ReminderMatcher {
	return &ReminderMatcher{rules: rules, ledger: l, now: time.Now}
}

// WithClock overrides the matcher's clock. Tests only.
func (m *ReminderMatcher) WithClock(now func() time.Time) *ReminderMatcher {
	m.now = now
	return m
}

// Match returns the first rule due for the snapshot, or nil when no reminder
// is due. Later rules are not considered once one matches, even if they
// would also be in window.
func (m *ReminderMatcher) Match(appt *schedule.Appointment) *ReminderRule {
	if incomplete(appt) {
		return nil
	}
	start, err := appointmentStart(appt)
	if err != nil {
		return nil
	}
	lead := start.Sub(m.now())
	if lead <= 0 {
		return nil
	}
	for i := range m.rules {
		rule := &m.rules[i]
		if !rule.Matches(appt) {
			continue
		}
		diff := lead - rule.Target
		if diff < 0 {
			diff = -diff
		}
		if diff <= rule.Tolerance {
			return rule
		}
	}
	return nil
}

// AlreadySent reports whether this variant already fired for the id.
func (m *ReminderMatcher) AlreadySent(ctx context.Context, appt *schedule.Appointment, rule *ReminderRule) (bool, error) {
	entry, err := m.ledger.Get(ctx, appt.ID, string(rule.Type))
	if err != nil {
		return false, fmt.Errorf("notice: check reminder %d: %w", appt.ID, err)
	}
	return entry != nil, nil
}

// RecordReminder writes the variant's ledger entry after a successful
// dispatch. Variants never dedup against each other: an appointment may get
// one reminder per matched variant across cycles, but never the same variant
// twice.
func (m *ReminderMatcher) RecordReminder(ctx context.Context, appt *schedule.Appointment, rule *ReminderRule) error {
	err := m.ledger.Upsert(ctx, ledger.Entry{
		AppointmentID: appt.ID,
		NoticeType:    string(rule.Type),
		Date:          appt.Date(),
		Time:          truncateMinute(appt.StartTime()),
	})
	if err != nil {
		return fmt.Errorf("notice: record reminder %d: %w", appt.ID, err)
	}
	return nil
}

// appointmentStart combines the snapshot's date and time in local time.
func appointmentStart(appt *schedule.Appointment) (time.Time, error) {
	stamp := appt.Date() + " " + truncateMinute(appt.StartTime())
	start, err := time.ParseInLocation("2006-01-02 15:04", stamp, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("notice: parse start %q: %w", stamp, err)
	}
	return start, nil
}
