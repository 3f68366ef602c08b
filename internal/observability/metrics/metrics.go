package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the booking flows.
type SchedulingMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	delayShiftsTotal *prometheus.CounterVec
	notifyFailures   prometheus.Counter
	placementLatency *prometheus.HistogramVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opd",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Total booking attempts by outcome",
		}, []string{"operation", "outcome"}),
		delayShiftsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opd",
			Subsystem: "scheduling",
			Name:      "delay_shifts_total",
			Help:      "Appointments shifted or skipped by delay propagation",
		}, []string{"result"}),
		notifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "opd",
			Subsystem: "scheduling",
			Name:      "notification_failures_total",
			Help:      "Appointment notifications that could not be delivered",
		}),
		placementLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "opd",
			Subsystem: "scheduling",
			Name:      "placement_latency_seconds",
			Help:      "Latency of slot placement under the queue lock",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.delayShiftsTotal, m.notifyFailures, m.placementLatency)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(operation, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveDelayShift(result string) {
	if m == nil {
		return
	}
	m.delayShiftsTotal.WithLabelValues(result).Inc()
}

func (m *SchedulingMetrics) ObserveNotifyFailure() {
	if m == nil {
		return
	}
	m.notifyFailures.Inc()
}

func (m *SchedulingMetrics) ObservePlacementLatency(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.placementLatency.WithLabelValues(operation).Observe(seconds)
}
