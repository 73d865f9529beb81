package observability

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/mpdctl/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mpdctl",
			Subsystem: "client",
			Name:      "commands_total",
			Help:      "Commands executed, by connection, verb and result.",
		},
		[]string{"conn", "command", "result"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mpdctl",
			Subsystem: "client",
			Name:      "command_duration_seconds",
			Help:      "Command round trip duration in seconds, including replays.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"conn", "command"},
	)
	reconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mpdctl",
			Subsystem: "session",
			Name:      "reconnects_total",
			Help:      "Reconnect attempts, by connection and outcome.",
		},
		[]string{"conn", "success"},
	)
	binaryBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mpdctl",
			Subsystem: "client",
			Name:      "binary_bytes_total",
			Help:      "Assembled binary payload bytes.",
		},
	)
	idleEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mpdctl",
			Subsystem: "monitor",
			Name:      "idle_events_total",
			Help:      "Idle change notifications, by subsystem.",
		},
		[]string{"subsystem"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mpdctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mpdctl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(commands, commandDuration, reconnects, binaryBytes, idleEvents, httpRequests, httpDuration)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

// RecordCommand counts one command by its first word.
func RecordCommand(conn, command string, duration time.Duration, err error) {
	RegisterMetrics()
	verb := CommandVerb(command)
	commands.WithLabelValues(conn, verb, CommandResult(err)).Inc()
	commandDuration.WithLabelValues(conn, verb).Observe(duration.Seconds())
}

func RecordReconnect(conn string, err error) {
	RegisterMetrics()
	reconnects.WithLabelValues(conn, strconv.FormatBool(err == nil)).Inc()
}

func RecordBinaryBytes(n int) {
	RegisterMetrics()
	binaryBytes.Add(float64(n))
}

func RecordIdleEvent(subsystem string) {
	RegisterMetrics()
	idleEvents.WithLabelValues(subsystem).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

func CommandVerb(command string) string {
	verb, _, _ := strings.Cut(strings.TrimSpace(command), " ")
	if verb == "" {
		return "none"
	}
	return verb
}

// CommandResult labels err: ok, failure (server ACK), closed or error.
func CommandResult(err error) string {
	var failure *protocol.FailureResponse
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &failure):
		return "failure"
	case protocol.IsConnectionClosed(err):
		return "closed"
	default:
		return "error"
	}
}
