package monitoring

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sarchlab/vclock/clock"
	"github.com/sarchlab/vclock/idgen"
	"github.com/sarchlab/vclock/timing"
)

type failingExecutor struct{}

func (failingExecutor) Do(func()) error {
	return errors.New("loop stopped")
}

var _ = Describe("Monitor", func() {
	var (
		m       *Monitor
		host    *timing.Host
		timer   *clock.Timer
		handler http.Handler
		fired   []string
	)

	BeforeEach(func() {
		fired = nil
		m = NewMonitor()
		host = timing.NewHost()

		var err error
		timer, err = clock.MakeBuilder().
			WithHost(host).
			WithIDGenerator(idgen.NewSequentialWithPrefix("timer")).
			WithHook(m.Metrics()).
			BuildTimer()
		Expect(err).NotTo(HaveOccurred())

		Expect(timer.RegisterCallbacks(clock.TimerCallback{
			Kind:   clock.KindCheckpoint,
			TimeMs: 1000,
			Name:   "cp",
			Action: func(*clock.Timer) { fired = append(fired, "cp") },
		})).To(Succeed())

		m.RegisterClock(timer)
		handler = m.Handler()
	})

	It("should list registered clocks", func() {
		rec := serve(handler, http.MethodGet, "/api/clocks")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`["timer-1"]`))
	})

	It("should answer 404 for unknown clocks", func() {
		rec := serve(handler, http.MethodGet, "/api/clock/nope/now")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should continue, report and pause", func() {
		rec := serve(handler, http.MethodPost, "/api/clock/timer-1/continue")
		Expect(rec.Body.String()).To(MatchJSON(`{"changed":true}`))

		host.Advance(500 * time.Millisecond)

		rec = serve(handler, http.MethodGet, "/api/clock/timer-1/now")
		Expect(rec.Body.String()).To(MatchJSON(`{"now":500}`))

		rec = serve(handler, http.MethodPost, "/api/clock/timer-1/pause")
		Expect(rec.Body.String()).To(MatchJSON(`{"changed":true}`))

		rec = serve(handler, http.MethodPost, "/api/clock/timer-1/pause")
		Expect(rec.Body.String()).To(MatchJSON(`{"changed":false}`))

		paused, _ := timer.IsPaused()
		Expect(paused).To(BeTrue())
	})

	It("should change the speed", func() {
		rec := serve(handler, http.MethodPost, "/api/clock/timer-1/speed/2.5")
		Expect(rec.Code).To(Equal(http.StatusOK))

		speed, _ := timer.SpeedMultiplier()
		Expect(speed).To(Equal(2.5))
	})

	It("should reject bad speeds", func() {
		rec := serve(handler, http.MethodPost, "/api/clock/timer-1/speed/0")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = serve(handler, http.MethodPost, "/api/clock/timer-1/speed/fast")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should add time and fire crossed checkpoints", func() {
		rec := serve(handler, http.MethodPost, "/api/clock/timer-1/add/1500")
		Expect(rec.Code).To(Equal(http.StatusOK))

		Expect(fired).To(Equal([]string{"cp"}))
		elapsed, _ := timer.ElapsedMs()
		Expect(elapsed).To(Equal(int64(1500)))
	})

	It("should honour suppress when setting time", func() {
		rec := serve(handler, http.MethodPost,
			"/api/clock/timer-1/set/1500?suppress=true")
		Expect(rec.Code).To(Equal(http.StatusOK))

		Expect(fired).To(BeEmpty())
		elapsed, _ := timer.ElapsedMs()
		Expect(elapsed).To(Equal(int64(1500)))
	})

	It("should list and remove callbacks", func() {
		rec := serve(handler, http.MethodGet, "/api/clock/timer-1/callbacks")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var infos []clock.CallbackInfo
		Expect(json.Unmarshal(rec.Body.Bytes(), &infos)).To(Succeed())
		Expect(infos).To(HaveLen(1))
		Expect(infos[0].Name).To(Equal("cp"))

		rec = serve(handler, http.MethodDelete, "/api/clock/timer-1/callbacks/cp")
		Expect(rec.Code).To(Equal(http.StatusNoContent))

		rec = serve(handler, http.MethodGet, "/api/clock/timer-1/callbacks")
		Expect(rec.Body.String()).To(MatchJSON(`[]`))
	})

	It("should serialize the state", func() {
		rec := serve(handler, http.MethodGet, "/api/clock/timer-1/state")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should answer 410 for disposed clocks", func() {
		timer.Dispose()

		rec := serve(handler, http.MethodGet, "/api/clock/timer-1/now")
		Expect(rec.Code).To(Equal(http.StatusGone))
	})

	It("should surface executor failures", func() {
		m.WithExecutor(failingExecutor{})

		rec := serve(handler, http.MethodPost, "/api/clock/timer-1/pause")
		Expect(rec.Code).To(Equal(http.StatusInternalServerError))

		rec = serve(handler, http.MethodGet, "/api/progress")
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should report countdown progress", func() {
		countdown, err := clock.MakeBuilder().
			WithHost(host).
			WithIDGenerator(idgen.NewSequentialWithPrefix("countdown")).
			BuildCountdown(2000)
		Expect(err).NotTo(HaveOccurred())
		m.RegisterClock(countdown)

		_, _ = countdown.Start()
		host.Advance(500 * time.Millisecond)

		rec := serve(handler, http.MethodGet, "/api/progress")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`[{
			"id": "countdown-1",
			"total_ms": 2000,
			"remaining_ms": 1500,
			"percent": 25,
			"done": false,
			"paused": false
		}]`))
	})

	It("should export metrics", func() {
		_, _ = timer.Start()
		host.Advance(time.Second)

		Expect(testutil.ToFloat64(
			m.metrics.executions.WithLabelValues("timer-1", "checkpoint"),
		)).To(Equal(1.0))
		Expect(testutil.ToFloat64(
			m.metrics.events.WithLabelValues("timer-1", "create"),
		)).To(Equal(1.0))
		Expect(testutil.ToFloat64(
			m.metrics.paused.WithLabelValues("timer-1"),
		)).To(Equal(0.0))
		Expect(testutil.ToFloat64(
			m.metrics.elapsed.WithLabelValues("timer-1"),
		)).To(Equal(1000.0))

		rec := serve(handler, http.MethodGet, "/metrics")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("vclock_callback_executions_total"))
	})

	It("should report process resources", func() {
		rec := serve(handler, http.MethodGet, "/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("memory_size"))
	})

	It("should collect a CPU profile", func() {
		profileDuration = 10 * time.Millisecond
		DeferCleanup(func() { profileDuration = time.Second })

		rec := serve(handler, http.MethodGet, "/api/profile")
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should refuse ports below 1000", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(BeZero())

		m.WithPortNumber(8080)
		Expect(m.portNumber).To(Equal(8080))
	})

	It("should log failures through its logger before panicking", func() {
		core, logs := observer.New(zap.DebugLevel)
		m.WithLogger(zap.New(core))

		Expect(func() {
			m.writeJSON(httptest.NewRecorder(), make(chan int))
		}).To(Panic())

		entries := logs.FilterMessage("monitor failure").All()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Level).To(Equal(zap.PanicLevel))
		Expect(entries[0].ContextMap()).To(HaveKey("error"))
	})
})
