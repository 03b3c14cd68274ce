package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sarchlab/vclock/clock"
	"github.com/sarchlab/vclock/hooking"
)

// MetricsHook exports clock activity as Prometheus metrics. One hook can be
// shared by many clocks; series are labelled by clock ID.
type MetricsHook struct {
	events     *prometheus.CounterVec
	executions *prometheus.CounterVec
	elapsed    *prometheus.GaugeVec
	paused     *prometheus.GaugeVec
}

func newMetricsHook(reg prometheus.Registerer) *MetricsHook {
	h := &MetricsHook{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vclock",
			Name:      "events_total",
			Help:      "History events recorded, by clock and event type.",
		}, []string{"clock", "type"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vclock",
			Name:      "callback_executions_total",
			Help:      "Callback actions run, by clock and callback kind.",
		}, []string{"clock", "kind"}),
		elapsed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vclock",
			Name:      "elapsed_ms",
			Help:      "Elapsed milliseconds at the last event or callback.",
		}, []string{"clock"}),
		paused: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vclock",
			Name:      "paused",
			Help:      "1 while the clock is paused.",
		}, []string{"clock"}),
	}

	reg.MustRegister(h.events, h.executions, h.elapsed, h.paused)

	return h
}

// Func updates the metrics from a clock hook.
func (h *MetricsHook) Func(ctx hooking.HookCtx) {
	id := ""
	if d, ok := ctx.Domain.(interface{ ID() string }); ok {
		id = d.ID()
	}

	switch ctx.Pos {
	case clock.HookPosEventRecorded:
		evt, ok := ctx.Item.(clock.Event)
		if !ok {
			return
		}

		h.events.WithLabelValues(id, string(evt.Type)).Inc()
		h.elapsed.WithLabelValues(id).Set(float64(evt.ElapsedMs))

		switch evt.Type {
		case clock.EventCreate, clock.EventPause:
			h.paused.WithLabelValues(id).Set(1)
		case clock.EventStart, clock.EventUnpause:
			h.paused.WithLabelValues(id).Set(0)
		}
	case clock.HookPosAfterCallback:
		exec, ok := ctx.Item.(clock.Execution)
		if !ok {
			return
		}

		h.executions.WithLabelValues(exec.ClockID, string(exec.Kind)).Inc()
		h.elapsed.WithLabelValues(exec.ClockID).Set(float64(exec.ElapsedMs))
	}
}
