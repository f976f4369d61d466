package metrics

import "github.com/prometheus/client_golang/prometheus"

// Widget exposes counters for widget mounts and the booking flow. A nil
// *Widget is valid and records nothing.
type Widget struct {
	mounted      prometheus.Gauge
	calls        *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	guardRejects prometheus.Counter
}

func NewWidget(reg prometheus.Registerer) *Widget {
	m := &Widget{
		mounted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bookingwidget",
			Name:      "mounts_active",
			Help:      "Widget mounts currently connected",
		}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingwidget",
			Subsystem: "scheduling",
			Name:      "calls_total",
			Help:      "Scheduling service calls by operation and outcome",
		}, []string{"operation", "status"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookingwidget",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Booking session transitions by target state",
		}, []string{"to"}),
		guardRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookingwidget",
			Subsystem: "session",
			Name:      "guard_rejections_total",
			Help:      "Submissions dropped by the duplicate-submission guard",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.mounted, m.calls, m.transitions, m.guardRejects)
	return m
}

func (m *Widget) Mounted() {
	if m == nil {
		return
	}
	m.mounted.Inc()
}

func (m *Widget) Unmounted() {
	if m == nil {
		return
	}
	m.mounted.Dec()
}

func (m *Widget) ObserveCall(operation string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.calls.WithLabelValues(operation, status).Inc()
}

func (m *Widget) ObserveTransition(to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

func (m *Widget) ObserveGuardRejection() {
	if m == nil {
		return
	}
	m.guardRejects.Inc()
}
