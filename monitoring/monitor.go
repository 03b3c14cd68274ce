// Package monitoring turns running clocks into an HTTP server that can be
// inspected and controlled from outside the process.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
	"go.uber.org/zap"

	"github.com/sarchlab/vclock/clock"
)

// Clock is the part of a Timer or Countdown the monitor drives.
type Clock interface {
	ID() string
	Pause() (bool, error)
	Unpause() (bool, error)
	ElapsedMs() (int64, error)
	AddTime(ms float64, suppressCallbacks bool) error
	SetTime(ms float64, suppressCallbacks bool) error
	SetSpeedMultiplier(speed float64) error
	State() (clock.State, error)
	Callbacks() ([]clock.CallbackInfo, error)
	RemoveCallbacks(names ...string) error
}

// Executor runs a function on the goroutine that owns the clocks. shim.Loop
// is an Executor.
type Executor interface {
	Do(fn func()) error
}

type directExecutor struct{}

func (directExecutor) Do(fn func()) error {
	fn()
	return nil
}

// Monitor can turn a set of clocks into a server and allows external
// monitoring and control of them.
type Monitor struct {
	portNumber int
	executor   Executor
	logger     *zap.Logger
	registry   *prometheus.Registry
	metrics    *MetricsHook

	lock   sync.Mutex
	clocks map[string]Clock
	server *http.Server
}

// NewMonitor creates a new Monitor. Clock calls run on the caller's goroutine
// until WithExecutor is set.
func NewMonitor() *Monitor {
	registry := prometheus.NewRegistry()

	return &Monitor{
		executor: directExecutor{},
		logger:   zap.NewNop(),
		registry: registry,
		metrics:  newMetricsHook(registry),
		clocks:   make(map[string]Clock),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.logger.Warn("monitor port is not allowed, using a random port",
			zap.Int("port", portNumber))
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithExecutor sets where clock calls run.
func (m *Monitor) WithExecutor(e Executor) *Monitor {
	m.executor = e
	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(logger *zap.Logger) *Monitor {
	m.logger = logger
	return m
}

// Metrics returns the hook that feeds the /metrics endpoint. Attach it to
// clocks with clock.Builder.WithHook.
func (m *Monitor) Metrics() *MetricsHook {
	return m.metrics
}

// RegisterClock makes a clock reachable under /api/clock/{id}.
func (m *Monitor) RegisterClock(c Clock) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.clocks[c.ID()] = c
}

// Handler builds the HTTP routes.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/clocks", m.listClocks)
	r.HandleFunc("/api/clock/{id}/pause", m.pauseClock)
	r.HandleFunc("/api/clock/{id}/continue", m.continueClock)
	r.HandleFunc("/api/clock/{id}/now", m.now)
	r.HandleFunc("/api/clock/{id}/state", m.state)
	r.HandleFunc("/api/clock/{id}/field/{fields}", m.field)
	r.HandleFunc("/api/clock/{id}/speed/{speed}", m.setSpeed)
	r.HandleFunc("/api/clock/{id}/add/{ms}", m.addTime)
	r.HandleFunc("/api/clock/{id}/set/{ms}", m.setTime)
	r.HandleFunc("/api/clock/{id}/callbacks", m.listCallbacks).
		Methods(http.MethodGet)
	r.HandleFunc("/api/clock/{id}/callbacks/{name}", m.removeCallback).
		Methods(http.MethodDelete)
	r.HandleFunc("/api/progress", m.listProgress)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	return r
}

// StartServer starts serving in the background and returns the port in use.
func (m *Monitor) StartServer() int {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	m.dieOnErr(err)

	port := listener.Addr().(*net.TCPAddr).Port
	fmt.Fprintf(os.Stderr, "Monitoring clocks with http://localhost:%d\n", port)

	server := &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	m.lock.Lock()
	m.server = server
	m.lock.Unlock()

	go func() {
		err := server.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			m.dieOnErr(err)
		}
	}()

	return port
}

// Close stops the server started by StartServer.
func (m *Monitor) Close() error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if m.server == nil {
		return nil
	}

	return m.server.Close()
}

func (m *Monitor) findClockOr404(w http.ResponseWriter, r *http.Request) Clock {
	id := mux.Vars(r)["id"]

	m.lock.Lock()
	c, ok := m.clocks[id]
	m.lock.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Clock not found"))
		m.dieOnErr(err)

		return nil
	}

	return c
}

// run executes fn through the executor and writes any failure as an HTTP
// error. It reports whether the handler should go on.
func (m *Monitor) run(w http.ResponseWriter, fn func() error) bool {
	var err error
	if doErr := m.executor.Do(func() { err = fn() }); doErr != nil {
		err = doErr
	}

	if err == nil {
		return true
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, clock.ErrDisposed):
		status = http.StatusGone
	case errors.Is(err, clock.ErrInvalidConfiguration):
		status = http.StatusBadRequest
	}

	m.logger.Debug("monitor request failed", zap.Error(err))
	http.Error(w, err.Error(), status)

	return false
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	m.dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	m.dieOnErr(err)
}

func parseFloatOr400(w http.ResponseWriter, s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return 0, false
	}

	return v, true
}

func suppressCallbacks(r *http.Request) bool {
	v := r.URL.Query().Get("suppress")
	return v == "1" || strings.EqualFold(v, "true")
}

func (m *Monitor) listClocks(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	ids := make([]string, 0, len(m.clocks))
	for id := range m.clocks {
		ids = append(ids, id)
	}
	m.lock.Unlock()

	sort.Strings(ids)
	m.writeJSON(w, ids)
}

type transitionRsp struct {
	Changed bool `json:"changed"`
}

func (m *Monitor) pauseClock(w http.ResponseWriter, r *http.Request) {
	c := m.findClockOr404(w, r)
	if c == nil {
		return
	}

	var changed bool
	if !m.run(w, func() (err error) {
		changed, err = c.Pause()
		return err
	}) {
		return
	}

	m.writeJSON(w, transitionRsp{Changed: changed})
}

func (m *Monitor) continueClock(w http.ResponseWriter, r *http.Request) {
	c := m.findClockOr404(w, r)
	if c == nil {
		return
	}

	var changed bool
	if !m.run(w, func() (err error) {
		changed, err = c.Unpause()
		return err
	}) {
		return
	}

	m.writeJSON(w, transitionRsp{Changed: changed})
}

func (m *Monitor) now(w http.ResponseWriter, r *http.Request) {
	c := m.findClockOr404(w, r)
	if c == nil {
		return
	}

	var now int64
	if !m.run(w, func() (err error) {
		now, err = c.ElapsedMs()
		return err
	}) {
		return
	}

	fmt.Fprintf(w, "{\"now\":%d}", now)
}

func (m *Monitor) snapshot(w http.ResponseWriter, r *http.Request) (clock.State, bool) {
	c := m.findClockOr404(w, r)
	if c == nil {
		return clock.State{}, false
	}

	var state clock.State
	ok := m.run(w, func() (err error) {
		state, err = c.State()
		return err
	})

	return state, ok
}

func (m *Monitor) state(w http.ResponseWriter, r *http.Request) {
	state, ok := m.snapshot(w, r)
	if !ok {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(state)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	m.dieOnErr(err)
}

func (m *Monitor) field(w http.ResponseWriter, r *http.Request) {
	state, ok := m.snapshot(w, r)
	if !ok {
		return
	}

	fields := strings.Split(mux.Vars(r)["fields"], ".")

	serializer := goseth.NewSerializer()
	serializer.SetRoot(state)
	serializer.SetMaxDepth(1)

	if err := serializer.SetEntryPoint(fields); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	err := serializer.Serialize(w)
	m.dieOnErr(err)
}

func (m *Monitor) setSpeed(w http.ResponseWriter, r *http.Request) {
	c := m.findClockOr404(w, r)
	if c == nil {
		return
	}

	speed, ok := parseFloatOr400(w, mux.Vars(r)["speed"])
	if !ok {
		return
	}

	if m.run(w, func() error { return c.SetSpeedMultiplier(speed) }) {
		w.WriteHeader(http.StatusOK)
	}
}

func (m *Monitor) addTime(w http.ResponseWriter, r *http.Request) {
	c := m.findClockOr404(w, r)
	if c == nil {
		return
	}

	ms, ok := parseFloatOr400(w, mux.Vars(r)["ms"])
	if !ok {
		return
	}

	suppress := suppressCallbacks(r)
	if m.run(w, func() error { return c.AddTime(ms, suppress) }) {
		w.WriteHeader(http.StatusOK)
	}
}

func (m *Monitor) setTime(w http.ResponseWriter, r *http.Request) {
	c := m.findClockOr404(w, r)
	if c == nil {
		return
	}

	ms, ok := parseFloatOr400(w, mux.Vars(r)["ms"])
	if !ok {
		return
	}

	suppress := suppressCallbacks(r)
	if m.run(w, func() error { return c.SetTime(ms, suppress) }) {
		w.WriteHeader(http.StatusOK)
	}
}

func (m *Monitor) listCallbacks(w http.ResponseWriter, r *http.Request) {
	c := m.findClockOr404(w, r)
	if c == nil {
		return
	}

	var infos []clock.CallbackInfo
	if !m.run(w, func() (err error) {
		infos, err = c.Callbacks()
		return err
	}) {
		return
	}

	m.writeJSON(w, infos)
}

func (m *Monitor) removeCallback(w http.ResponseWriter, r *http.Request) {
	c := m.findClockOr404(w, r)
	if c == nil {
		return
	}

	name := mux.Vars(r)["name"]
	if m.run(w, func() error { return c.RemoveCallbacks(name) }) {
		w.WriteHeader(http.StatusNoContent)
	}
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	m.dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	m.dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	m.dieOnErr(err)

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

// profileDuration is how long /api/profile samples the CPU.
var profileDuration = time.Second

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	m.dieOnErr(err)

	m.writeJSON(w, prof)
}

func (m *Monitor) dieOnErr(err error) {
	if err != nil {
		m.logger.Panic("monitor failure", zap.Error(err))
	}
}
