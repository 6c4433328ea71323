package notice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weclinic/appointment-notifier/internal/schedule"
)

var reminderNow = time.Date(2026, 8, 30, 10, 0, 0, 0, time.Local)

// apptAt builds a confirmed appointment starting at the given offset from
// the test clock.
func apptAt(id int64, offset time.Duration, procedures ...string) *schedule.Appointment {
	start := reminderNow.Add(offset)
	appt := &schedule.Appointment{
		ID:           id,
		Status:       "CONFIRMADO",
		RawDate:      start.Format(time.DateOnly),
		RawStartTime: start.Format("15:04"),
		RawPhone:     "11999990001",
		RawPatient:   "Maria da Silva",
	}
	for _, p := range procedures {
		appt.RawProcedures = append(appt.RawProcedures, schedule.Procedure{Name: p})
	}
	return appt
}

func testMatcher(l Ledger) *ReminderMatcher {
	return NewReminderMatcher(DefaultReminderRules(), l).WithClock(func() time.Time { return reminderNow })
}

func TestReminderWindow(t *testing.T) {
	m := testMatcher(newMemLedger())

	tests := []struct {
		name   string
		offset time.Duration
		want   Type
		match  bool
	}{
		{"inside window below target", 23 * time.Hour, TypeReminderDefault, true},
		{"exact target", 24 * time.Hour, TypeReminderDefault, true},
		{"inside window above target", 25*time.Hour + 59*time.Minute, TypeReminderDefault, true},
		{"just below window", 21*time.Hour + 59*time.Minute, "", false},
		{"just above window", 26*time.Hour + 1*time.Minute, "", false},
		{"in the past", -1 * time.Hour, "", false},
		{"starting now", 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := m.Match(apptAt(1, tt.offset, "Consulta de rotina"))
			if !tt.match {
				assert.Nil(t, rule)
				return
			}
			require.NotNil(t, rule)
			assert.Equal(t, tt.want, rule.Type)
		})
	}
}

func TestReminderRuleOrdering(t *testing.T) {
	m := testMatcher(newMemLedger())

	// A laser appointment 72h out hits the specific rule, not the catch-all.
	rule := m.Match(apptAt(2, 72*time.Hour, "Depilação a Laser"))
	require.NotNil(t, rule)
	assert.Equal(t, TypeReminderLaser, rule.Type)

	// The same laser appointment at 24h lead falls through to the
	// catch-all: the laser rule's window does not cover 24h.
	rule = m.Match(apptAt(3, 24*time.Hour, "Depilação a Laser"))
	require.NotNil(t, rule)
	assert.Equal(t, TypeReminderDefault, rule.Type)

	// Ultrasound at 24h matches its own variant before the catch-all.
	rule = m.Match(apptAt(4, 24*time.Hour, "Ultrassonografia abdominal"))
	require.NotNil(t, rule)
	assert.Equal(t, TypeReminderUltrasound, rule.Type)

	// Non-laser appointments never match the 72h rule.
	assert.Nil(t, m.Match(apptAt(5, 72*time.Hour, "Consulta de rotina")))
}

func TestReminderFiresOncePerVariant(t *testing.T) {
	ctx := context.Background()
	mem := newMemLedger()
	m := testMatcher(mem)

	appt := apptAt(6, 24*time.Hour, "Consulta de rotina")
	rule := m.Match(appt)
	require.NotNil(t, rule)

	sent, err := m.AlreadySent(ctx, appt, rule)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, m.RecordReminder(ctx, appt, rule))

	sent, err = m.AlreadySent(ctx, appt, rule)
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestReminderVariantsIndependent(t *testing.T) {
	ctx := context.Background()
	mem := newMemLedger()
	m := testMatcher(mem)

	// The laser variant already fired for this id; the default variant is
	// still unsent.
	appt := apptAt(7, 24*time.Hour, "Depilação a Laser")
	rules := DefaultReminderRules()
	require.NoError(t, m.RecordReminder(ctx, appt, &rules[0]))

	rule := m.Match(appt)
	require.NotNil(t, rule)
	require.Equal(t, TypeReminderDefault, rule.Type)

	sent, err := m.AlreadySent(ctx, appt, rule)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestReminderSkipsIncompleteRecords(t *testing.T) {
	m := testMatcher(newMemLedger())

	appt := apptAt(8, 24*time.Hour)
	appt.RawPhone = ""
	assert.Nil(t, m.Match(appt))

	appt = apptAt(9, 24*time.Hour)
	appt.RawDate = "not-a-date"
	assert.Nil(t, m.Match(appt))
}
