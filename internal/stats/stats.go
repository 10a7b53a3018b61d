package stats

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "campus"

// Metric names shared by the delivery core.
const (
	ActiveSessions  = "active_sessions"
	ActiveRooms     = "active_rooms"
	EventsDelivered = "events_delivered_total"
	EventsDropped   = "events_dropped_total"
	RelayPublished  = "relay_published_total"
	RelayReceived   = "relay_received_total"
)

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	Add(name string, delta float64)
}

type StatsUpdater struct {
	registry *prometheus.Registry
	mu       sync.RWMutex
	gauges   map[string]prometheus.Gauge
	counters map[string]prometheus.Counter
}

// NewStatsUpdater creates a stats updater with the default delivery metrics
// registered and serves them on GET /metrics of mux.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		registry: prometheus.NewRegistry(),
		gauges:   make(map[string]prometheus.Gauge),
		counters: make(map[string]prometheus.Counter),
	}

	su.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	su.initializeMetrics()

	if mux != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(su.registry, promhttp.HandlerOpts{}))
	}

	return su
}

func (su *StatsUpdater) initializeMetrics() {
	startTime := time.Now()
	su.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the process started.",
	}, func() float64 {
		return time.Since(startTime).Seconds()
	}))

	su.RegisterGauge(ActiveSessions, "Live websocket sessions joined to a user room.")
	su.RegisterGauge(ActiveRooms, "User rooms with at least one live session.")
	su.RegisterCounter(EventsDelivered, "Events enqueued on a live session.")
	su.RegisterCounter(EventsDropped, "Events dropped because a session could not accept them.")
	su.RegisterCounter(RelayPublished, "Events published to other nodes.")
	su.RegisterCounter(RelayReceived, "Events received from other nodes.")
}

func (su *StatsUpdater) RegisterGauge(name, help string) {
	g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help})
	su.registry.MustRegister(g)

	su.mu.Lock()
	su.gauges[name] = g
	su.mu.Unlock()
}

func (su *StatsUpdater) RegisterCounter(name, help string) {
	c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help})
	su.registry.MustRegister(c)

	su.mu.Lock()
	su.counters[name] = c
	su.mu.Unlock()
}

func (su *StatsUpdater) Incr(name string) {
	su.Add(name, 1)
}

// Decr only applies to gauges; counters never go down.
func (su *StatsUpdater) Decr(name string) {
	su.mu.RLock()
	g, ok := su.gauges[name]
	su.mu.RUnlock()
	if !ok {
		panic("gauge not found: " + name)
	}
	g.Dec()
}

func (su *StatsUpdater) Add(name string, delta float64) {
	su.mu.RLock()
	defer su.mu.RUnlock()

	if g, ok := su.gauges[name]; ok {
		g.Add(delta)
		return
	}
	if c, ok := su.counters[name]; ok {
		c.Add(delta)
		return
	}

	panic("metric not found: " + name)
}
