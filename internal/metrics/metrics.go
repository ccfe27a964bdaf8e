package metrics

import (
	"bufio"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the guestlist service.
// All methods are safe on a nil *Metrics so callers can run without metrics.
type Metrics struct {
	MutationAttemptsTotal  *prometheus.CounterVec
	MutationConflictsTotal *prometheus.CounterVec
	GuestsAddedTotal       *prometheus.CounterVec
	TokenResolutionsTotal  *prometheus.CounterVec
	NotificationsTotal     *prometheus.CounterVec
	ChangesPublishedTotal  *prometheus.CounterVec
	ChangeStreamsActive    prometheus.Gauge

	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a Metrics instance with every collector registered on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		MutationAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guestlist_mutation_attempts_total",
				Help: "Read-modify-write attempts on event documents.",
			},
			[]string{"op"},
		),
		MutationConflictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guestlist_mutation_conflicts_total",
				Help: "Event document writes that lost a version race.",
			},
			[]string{"op"},
		),
		GuestsAddedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guestlist_guests_added_total",
				Help: "Guests appended to a guestlist.",
			},
			[]string{"source"},
		),
		TokenResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guestlist_token_resolutions_total",
				Help: "Collector token lookups by result.",
			},
			[]string{"result"},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guestlist_notifications_total",
				Help: "Template notifications by outcome.",
			},
			[]string{"status"},
		),
		ChangesPublishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guestlist_changes_published_total",
				Help: "Change notifications published by kind.",
			},
			[]string{"kind"},
		),
		ChangeStreamsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "guestlist_change_streams_active",
				Help: "Open WebSocket change streams.",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guestlist_http_requests_total",
				Help: "HTTP requests by method, path and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "guestlist_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.MutationAttemptsTotal,
		m.MutationConflictsTotal,
		m.GuestsAddedTotal,
		m.TokenResolutionsTotal,
		m.NotificationsTotal,
		m.ChangesPublishedTotal,
		m.ChangeStreamsActive,
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) MutationAttempt(op string) {
	if m == nil {
		return
	}
	m.MutationAttemptsTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) MutationConflict(op string) {
	if m == nil {
		return
	}
	m.MutationConflictsTotal.WithLabelValues(op).Inc()
}

// GuestAdded counts a guest added by "promoter" or "collector".
func (m *Metrics) GuestAdded(source string) {
	if m == nil {
		return
	}
	m.GuestsAddedTotal.WithLabelValues(source).Inc()
}

// TokenResolved counts a token lookup; result is "ok" or "invalid".
func (m *Metrics) TokenResolved(ok bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if ok {
		result = "ok"
	}
	m.TokenResolutionsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) Notification(status string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ChangePublished(kind string) {
	if m == nil {
		return
	}
	m.ChangesPublishedTotal.WithLabelValues(kind).Inc()
}

// StreamOpened increments the open stream gauge and returns the matching decrement.
func (m *Metrics) StreamOpened() func() {
	if m == nil {
		return func() {}
	}
	m.ChangeStreamsActive.Inc()
	return m.ChangeStreamsActive.Dec
}

// Instrument wraps next with request counters and latency histograms.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		p := SanitizePath(r.URL.Path)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, p, strconv.Itoa(rec.status)).Inc()
		m.HTTPRequestDurationSeconds.WithLabelValues(r.Method, p).Observe(time.Since(start).Seconds())
	})
}

// SanitizePath keeps label cardinality bounded by replacing id and token
// segments with ":id" and cutting paths after three segments.
func SanitizePath(p string) string {
	clean := path.Clean("/" + p)
	segments := strings.Split(strings.TrimPrefix(clean, "/"), "/")
	if len(segments) > 3 {
		segments = append(segments[:3], "...")
	}
	for i, s := range segments {
		if (i == 1 && segments[0] == "collect") || isIdentifier(s) {
			segments[i] = ":id"
		}
	}
	return "/" + strings.Join(segments, "/")
}

func isIdentifier(s string) bool {
	for _, prefix := range []string{"evt_", "asg_", "gst_", "tpl_"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	// uuid
	return len(s) == 36 && strings.Count(s, "-") == 4
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// Hijack lets WebSocket upgrades pass through the recorder.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(sr.ResponseWriter).Hijack()
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }
