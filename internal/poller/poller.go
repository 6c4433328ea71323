// Package poller drives the polling cycle: it sweeps the scheduling source
// page by page, runs every record through classification and reconciliation,
// dispatches due notices, and records successes in the ledger. One cycle runs
// to completion before the next is considered; there are no background
// workers and nothing else touches the ledger, which is what keeps the
// read-decide-write sequence safe without locking.
package poller

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/weclinic/appointment-notifier/internal/ledger"
	"github.com/weclinic/appointment-notifier/internal/messaging"
	"github.com/weclinic/appointment-notifier/internal/notice"
	"github.com/weclinic/appointment-notifier/internal/observability/metrics"
	"github.com/weclinic/appointment-notifier/internal/schedule"
	"github.com/weclinic/appointment-notifier/pkg/logging"
)

var cycleTracer = otel.Tracer("notifier.internal.poller.cycle")

// Source pages through appointment snapshots for a date range.
type Source interface {
	FetchPage(ctx context.Context, from, to string, page int) (*schedule.Page, error)
}

// Dispatcher delivers one composed message, retrying transient failures.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg messaging.Message) error
}

// DeliveryLog records successful sends for auditing.
type DeliveryLog interface {
	Record(ctx context.Context, d ledger.Delivery) error
}

// Poller owns the cycle loop.
type Poller struct {
	source     Source
	reconciler *notice.Reconciler
	matcher    *notice.ReminderMatcher
	dispatcher Dispatcher
	deliveries DeliveryLog
	metrics    *metrics.NotifierMetrics
	logger     *logging.Logger

	interval          time.Duration
	daysAhead         int
	reminderDaysAhead int
	maxPages          int
	blocked           map[int64]bool

	now func() time.Time
}

// Options carries the cycle configuration.
type Options struct {
	Interval          time.Duration
	DaysAhead         int
	ReminderDaysAhead int
	MaxPages          int
	BlockedIDs        []int64
}

// New creates a poller. metrics may be nil.
func New(source Source, reconciler *notice.Reconciler, matcher *notice.ReminderMatcher,
	dispatcher Dispatcher, deliveries DeliveryLog, m *metrics.NotifierMetrics,
	logger *logging.Logger, opts Options) *Poller {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 100
	}
	if opts.ReminderDaysAhead <= 0 {
		opts.ReminderDaysAhead = 4
	}
	blocked := make(map[int64]bool, len(opts.BlockedIDs))
	for _, id := range opts.BlockedIDs {
		blocked[id] = true
	}
	return &Poller{
		source:            source,
		reconciler:        reconciler,
		matcher:           matcher,
		dispatcher:        dispatcher,
		deliveries:        deliveries,
		metrics:           m,
		logger:            logger,
		interval:          opts.Interval,
		daysAhead:         opts.DaysAhead,
		reminderDaysAhead: opts.ReminderDaysAhead,
		maxPages:          opts.MaxPages,
		blocked:           blocked,
		now:               time.Now,
	}
}

// WithClock overrides the poller's clock. Tests only.
func (p *Poller) WithClock(now func() time.Time) *Poller {
	p.now = now
	return p
}

// Run executes cycles on the configured interval until the context ends.
// The first cycle starts immediately.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	cycle := 1
	p.RunCycle(ctx, cycle)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cycle++
			p.RunCycle(ctx, cycle)
		}
	}
}

type cycleStats struct {
	newConfirmations int
	newCancellations int
	reschedules      int
	retypes          int
	reactivations    int
	reminders        int
	duplicates       int
	needsData        int
	blocked          int
	failed           int
	pages            int
}

// RunCycle performs one full sweep: confirmations/cancellations over the
// configured window, then reminders over their own window. Nothing in a
// cycle is fatal; errors skip the page or record and the driver returns to
// idle.
func (p *Poller) RunCycle(ctx context.Context, cycle int) {
	ctx, span := cycleTracer.Start(ctx, "poller.cycle")
	defer span.End()
	span.SetAttributes(attribute.Int("notifier.cycle", cycle))

	start := p.now()
	today := start.Format(time.DateOnly)
	noticeTo := start.AddDate(0, 0, p.daysAhead).Format(time.DateOnly)
	reminderTo := start.AddDate(0, 0, p.reminderDaysAhead).Format(time.DateOnly)

	logger := p.logger.With("cycle", cycle)
	logger.Info("cycle started", "from", today, "to", noticeTo)

	stats := &cycleStats{}
	p.sweep(ctx, logger, today, noticeTo, stats, p.processNotices)
	p.sweep(ctx, logger, today, reminderTo, stats, p.processReminders)

	elapsed := p.now().Sub(start)
	p.metrics.ObserveCycleDuration(elapsed.Seconds())
	logger.Info("cycle complete",
		"duration", elapsed.Round(time.Millisecond),
		"pages", stats.pages,
		"new_confirmations", stats.newConfirmations,
		"new_cancellations", stats.newCancellations,
		"reschedules", stats.reschedules,
		"retypes", stats.retypes,
		"reactivations", stats.reactivations,
		"reminders", stats.reminders,
		"duplicates", stats.duplicates,
		"needs_data", stats.needsData,
		"blocked", stats.blocked,
		"failed", stats.failed,
	)
}

type recordFunc func(ctx context.Context, logger *logging.Logger, appt *schedule.Appointment, stats *cycleStats)

// sweep paginates the source from page 0 and applies process to every
// record. A fetch error skips the page and advances; pagination stops when
// the source says so, when an empty page arrives without a declared page
// count, or at the safety cap.
func (p *Poller) sweep(ctx context.Context, logger *logging.Logger, from, to string, stats *cycleStats, process recordFunc) {
	for page := 0; ; page++ {
		if ctx.Err() != nil {
			return
		}
		if page >= p.maxPages {
			logger.Error("page safety cap reached, aborting sweep", "cap", p.maxPages)
			return
		}

		resp, err := p.source.FetchPage(ctx, from, to, page)
		if err != nil {
			p.metrics.ObservePage(false)
			logger.Warn("page fetch failed, skipping", "page", page, "error", err)
			continue
		}
		p.metrics.ObservePage(true)
		stats.pages++

		for i := range resp.Appointments {
			if ctx.Err() != nil {
				return
			}
			appt := &resp.Appointments[i]
			if appt.ID == 0 {
				logger.Warn("appointment without id, skipping")
				continue
			}
			if p.blocked[appt.ExecutorPersonID] {
				stats.blocked++
				continue
			}
			process(ctx, logger, appt, stats)
		}

		if resp.TotalPages != nil {
			if page+1 >= *resp.TotalPages {
				return
			}
		} else if len(resp.Appointments) == 0 {
			return
		}
	}
}

// processNotices runs the confirmation/cancellation path for one record.
func (p *Poller) processNotices(ctx context.Context, logger *logging.Logger, appt *schedule.Appointment, stats *cycleStats) {
	class := notice.Classify(appt.Status)
	if class == notice.ClassIgnore {
		return
	}

	var decision notice.Decision
	var err error
	switch class {
	case notice.ClassCancellation:
		decision, err = p.reconciler.DecideCancellation(ctx, appt)
	default:
		decision, err = p.reconciler.DecideConfirmation(ctx, appt)
	}
	if err != nil {
		// Ledger state is unknown; do not guess "unprocessed". Skip and
		// let the next cycle re-decide.
		stats.failed++
		logger.Error("reconciliation failed", "appointment_id", appt.ID, "error", err)
		return
	}
	p.metrics.ObserveDecision(class.String(), decision.String())

	switch decision {
	case notice.DecisionDuplicate:
		stats.duplicates++
		return
	case notice.DecisionNeedsData:
		stats.needsData++
		logger.Warn("record missing phone, date or time, will retry next cycle", "appointment_id", appt.ID)
		return
	}

	var noticeType notice.Type
	var body string
	if class == notice.ClassCancellation {
		noticeType = notice.TypeCancellation
		body = notice.CancellationMessage(appt)
	} else {
		noticeType = notice.TypeConfirmation
		body = notice.ConfirmationMessage(appt, decision)
	}

	if err := p.dispatcher.Dispatch(ctx, messaging.Message{To: appt.Phone(), Body: body}); err != nil {
		stats.failed++
		p.metrics.ObserveDispatch(string(noticeType), false)
		logger.Warn("dispatch failed, no ledger write, will retry next cycle",
			"appointment_id", appt.ID, "decision", decision.String(), "error", err)
		return
	}
	p.metrics.ObserveDispatch(string(noticeType), true)

	if class == notice.ClassCancellation {
		err = p.reconciler.RecordCancellation(ctx, appt)
	} else {
		err = p.reconciler.RecordConfirmation(ctx, appt, decision)
	}
	if err != nil {
		// The message went out but the ledger missed it; the next cycle
		// will re-decide. Loud because a repeat send is now possible.
		logger.Error("ledger write failed after successful send",
			"appointment_id", appt.ID, "decision", decision.String(), "error", err)
	}

	p.recordDelivery(ctx, logger, appt, noticeType, decision.String(), body)

	switch decision {
	case notice.DecisionNew:
		if class == notice.ClassCancellation {
			stats.newCancellations++
		} else {
			stats.newConfirmations++
		}
	case notice.DecisionReschedule:
		stats.reschedules++
	case notice.DecisionRetype:
		stats.retypes++
	case notice.DecisionReactivation:
		stats.reactivations++
	}
	logger.Info("notice sent",
		"appointment_id", appt.ID,
		"notice_type", string(noticeType),
		"decision", decision.String(),
		"patient", notice.FirstName(appt.PatientName()),
		"date", appt.Date(), "time", appt.StartTime(),
	)
}

// processReminders runs the reminder path for one record. Only
// confirmation-classified snapshots are eligible.
func (p *Poller) processReminders(ctx context.Context, logger *logging.Logger, appt *schedule.Appointment, stats *cycleStats) {
	if notice.Classify(appt.Status) != notice.ClassConfirmation {
		return
	}
	rule := p.matcher.Match(appt)
	if rule == nil {
		return
	}

	sent, err := p.matcher.AlreadySent(ctx, appt, rule)
	if err != nil {
		stats.failed++
		logger.Error("reminder lookup failed", "appointment_id", appt.ID, "error", err)
		return
	}
	if sent {
		stats.duplicates++
		p.metrics.ObserveDecision("reminder", notice.DecisionDuplicate.String())
		return
	}
	p.metrics.ObserveDecision("reminder", notice.DecisionNew.String())

	body := notice.ReminderMessage(appt, rule)
	if err := p.dispatcher.Dispatch(ctx, messaging.Message{To: appt.Phone(), Body: body}); err != nil {
		stats.failed++
		p.metrics.ObserveDispatch(string(rule.Type), false)
		logger.Warn("reminder dispatch failed, will retry next cycle",
			"appointment_id", appt.ID, "variant", string(rule.Type), "error", err)
		return
	}
	p.metrics.ObserveDispatch(string(rule.Type), true)

	if err := p.matcher.RecordReminder(ctx, appt, rule); err != nil {
		logger.Error("ledger write failed after successful send",
			"appointment_id", appt.ID, "variant", string(rule.Type), "error", err)
	}
	p.recordDelivery(ctx, logger, appt, rule.Type, notice.DecisionNew.String(), body)

	stats.reminders++
	logger.Info("reminder sent",
		"appointment_id", appt.ID,
		"variant", string(rule.Type),
		"date", appt.Date(), "time", appt.StartTime(),
	)
}

func (p *Poller) recordDelivery(ctx context.Context, logger *logging.Logger, appt *schedule.Appointment, t notice.Type, decision, body string) {
	if p.deliveries == nil {
		return
	}
	err := p.deliveries.Record(ctx, ledger.Delivery{
		AppointmentID: appt.ID,
		NoticeType:    string(t),
		Decision:      decision,
		Phone:         appt.Phone(),
		Excerpt:       body,
	})
	if err != nil {
		logger.Warn("delivery log write failed", "appointment_id", appt.ID, "error", err)
	}
}
