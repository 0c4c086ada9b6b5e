package irc

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stats holds the server's runtime counters, mirrored into a dedicated
// Prometheus registry for the admin endpoint. The atomic mirrors make the
// JSON status snapshot safe to build off the server loop.
type Stats struct {
	Registry *prometheus.Registry

	start time.Time

	connections atomic.Int64
	peak        atomic.Int64
	channels    atomic.Int64
	received    atomic.Int64
	sent        atomic.Int64

	connGauge    prometheus.Gauge
	chanGauge    prometheus.Gauge
	acceptTotal  prometheus.Counter
	receivedCtr  prometheus.Counter
	sentCtr      prometheus.Counter
	droppedTotal prometheus.Counter
}

func newStats() *Stats {
	reg := prometheus.NewRegistry()
	s := &Stats{
		Registry: reg,
		start:    time.Now(),
		connGauge: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ircd_connected_clients",
			Help: "Currently connected client sessions",
		}),
		chanGauge: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "ircd_channels",
			Help: "Channels currently present",
		}),
		acceptTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "ircd_connections_total",
			Help: "Connections accepted since start",
		}),
		receivedCtr: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "ircd_messages_received_total",
			Help: "Protocol lines received from clients",
		}),
		sentCtr: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "ircd_messages_sent_total",
			Help: "Protocol lines queued to clients",
		}),
		droppedTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "ircd_sessions_dropped_total",
			Help: "Sessions destroyed for send queue overflow",
		}),
	}
	return s
}

func (s *Stats) clientConnected() {
	n := s.connections.Add(1)
	if n > s.peak.Load() {
		s.peak.Store(n)
	}
	s.connGauge.Inc()
	s.acceptTotal.Inc()
}

func (s *Stats) clientGone() {
	s.connections.Add(-1)
	s.connGauge.Dec()
}

func (s *Stats) channelCreated() {
	s.channels.Add(1)
	s.chanGauge.Inc()
}

func (s *Stats) channelDeleted() {
	s.channels.Add(-1)
	s.chanGauge.Dec()
}

func (s *Stats) messageReceived() {
	s.received.Add(1)
	s.receivedCtr.Inc()
}

func (s *Stats) messageSent() {
	s.sent.Add(1)
	s.sentCtr.Inc()
}

func (s *Stats) sessionDropped() {
	s.droppedTotal.Inc()
}

// Snapshot is a point-in-time view of the counters for the admin API.
type Snapshot struct {
	UptimeSeconds    int64 `json:"uptime_seconds"`
	Clients          int64 `json:"clients"`
	PeakClients      int64 `json:"peak_clients"`
	Channels         int64 `json:"channels"`
	MessagesReceived int64 `json:"messages_received"`
	MessagesSent     int64 `json:"messages_sent"`
}

// Snapshot builds a consistent-enough view from the atomic mirrors. Safe to
// call from any goroutine.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		UptimeSeconds:    int64(time.Since(s.start).Seconds()),
		Clients:          s.connections.Load(),
		PeakClients:      s.peak.Load(),
		Channels:         s.channels.Load(),
		MessagesReceived: s.received.Load(),
		MessagesSent:     s.sent.Load(),
	}
}
