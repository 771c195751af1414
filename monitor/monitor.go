// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wfunc/boardserver/models"
)

type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	ActiveRooms      prometheus.Gauge
	MessagesReceived *prometheus.CounterVec
	MessageLatency   prometheus.Histogram
	RejectedActions  *prometheus.CounterVec
	CurrencyFlow     *prometheus.CounterVec
	GameDuration     prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of online players",
		}),
		ActiveRooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_rooms",
			Help:      "Number of active rooms",
		}),
		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of messages received, by event",
		}, []string{"event"}),
		MessageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_latency_seconds",
			Help:      "Message processing latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		RejectedActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_actions_total",
			Help:      "Actions refused by the rules, by action and reason",
		}, []string{"action", "reason"}),
		CurrencyFlow: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "currency_flow_total",
			Help:      "Currency moved, by ledger kind",
		}, []string{"kind"}),
		GameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "game_duration_seconds",
			Help:      "Lifetime of finished rooms",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 12),
		}),
	}
}

func (m *Metrics) all() []prometheus.Collector {
	return []prometheus.Collector{
		m.OnlinePlayers,
		m.ActiveRooms,
		m.MessagesReceived,
		m.MessageLatency,
		m.RejectedActions,
		m.CurrencyFlow,
		m.GameDuration,
	}
}

var publishOnce sync.Once

type Monitor struct {
	metrics      *Metrics
	registry     *prometheus.Registry
	startTime    time.Time
	requestCount int64
	mutex        sync.Mutex
}

// NewMonitor registers the metrics on registry; a nil registry gets a fresh
// one carrying the Go and process collectors.
func NewMonitor(namespace string, registry *prometheus.Registry) *Monitor {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	m := &Monitor{
		metrics:   NewMetrics(namespace),
		registry:  registry,
		startTime: time.Now(),
	}
	registry.MustRegister(m.metrics.all()...)
	return m
}

// Handler serves /metrics and /debug/vars.
func (m *Monitor) Handler() http.Handler {
	publishOnce.Do(func() {
		// 添加expvar指标
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("requests", expvar.Func(func() interface{} {
			m.mutex.Lock()
			defer m.mutex.Unlock()
			return m.requestCount
		}))
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	return mux
}

// StartServer serves the metrics endpoints on addr in the background.
func (m *Monitor) StartServer(addr string) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go srv.ListenAndServe()
	return srv
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) SetActiveRooms(count int) {
	m.metrics.ActiveRooms.Set(float64(count))
}

func (m *Monitor) IncMessagesReceived(event string) {
	m.metrics.MessagesReceived.WithLabelValues(event).Inc()
	m.mutex.Lock()
	m.requestCount++
	m.mutex.Unlock()
}

func (m *Monitor) ObserveMessageLatency(duration time.Duration) {
	m.metrics.MessageLatency.Observe(duration.Seconds())
}

func (m *Monitor) IncRejected(action, reason string) {
	m.metrics.RejectedActions.WithLabelValues(action, reason).Inc()
}

// RecordLedger and RecordGame make the monitor a room recorder.
func (m *Monitor) RecordLedger(entry models.LedgerEntry) {
	m.metrics.CurrencyFlow.WithLabelValues(string(entry.Kind)).Add(float64(entry.Amount))
}

func (m *Monitor) RecordGame(record models.GameRecord) {
	m.metrics.GameDuration.Observe(record.Duration().Seconds())
}
