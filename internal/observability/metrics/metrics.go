package metrics

import "github.com/prometheus/client_golang/prometheus"

// NotifierMetrics exposes counters/histograms for the polling pipeline.
type NotifierMetrics struct {
	decisionsTotal *prometheus.CounterVec
	dispatchTotal  *prometheus.CounterVec
	pagesTotal     *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
}

func NewNotifierMetrics(reg prometheus.Registerer) *NotifierMetrics {
	m := &NotifierMetrics{
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weclinic",
			Subsystem: "notifier",
			Name:      "decisions_total",
			Help:      "Reconciliation decisions per notice class",
		}, []string{"class", "decision"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weclinic",
			Subsystem: "notifier",
			Name:      "dispatch_total",
			Help:      "Outbound dispatch attempts by outcome",
		}, []string{"notice_type", "outcome"}),
		pagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weclinic",
			Subsystem: "notifier",
			Name:      "source_pages_total",
			Help:      "Source pages fetched by result",
		}, []string{"result"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weclinic",
			Subsystem: "notifier",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one full polling cycle",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.decisionsTotal, m.dispatchTotal, m.pagesTotal, m.cycleDuration)
	return m
}

func (m *NotifierMetrics) ObserveDecision(class, decision string) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(class, decision).Inc()
}

func (m *NotifierMetrics) ObserveDispatch(noticeType string, ok bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if ok {
		outcome = "sent"
	}
	m.dispatchTotal.WithLabelValues(noticeType, outcome).Inc()
}

func (m *NotifierMetrics) ObservePage(ok bool) {
	if m == nil {
		return
	}
	result := "error"
	if ok {
		result = "ok"
	}
	m.pagesTotal.WithLabelValues(result).Inc()
}

func (m *NotifierMetrics) ObserveCycleDuration(seconds float64) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(seconds)
}
