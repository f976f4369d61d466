package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestWidgetMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWidget(reg)

	m.Mounted()
	m.Mounted()
	m.Unmounted()
	m.ObserveCall("create_event", nil)
	m.ObserveCall("create_event", errors.New("boom"))
	m.ObserveCall("create_event", errors.New("boom"))
	m.ObserveTransition("succeeded")
	m.ObserveGuardRejection()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.mounted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("create_event", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.calls.WithLabelValues("create_event", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.guardRejects))
}

func TestNilWidgetIsNoop(t *testing.T) {
	var m *Widget
	assert.NotPanics(t, func() {
		m.Mounted()
		m.ObserveCall("find_time", nil)
		m.ObserveTransition("idle")
		m.ObserveGuardRejection()
		m.Unmounted()
	})
}
