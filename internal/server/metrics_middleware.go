package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/brk3/ghcal/internal/logger"
	"github.com/brk3/ghcal/pkg/errors"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghcal_http_requests_total",
			Help: "Total number of HTTP requests by endpoint, method, and status",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ghcal_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	userRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghcal_user_requests_total",
			Help: "Total number of authenticated requests per user",
		},
		[]string{"user_id", "endpoint", "method"},
	)

	authEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghcal_auth_events_total",
			Help: "Total authentication events by type and result",
		},
		[]string{"event_type", "result", "provider"},
	)

	activeProfilesPerUser = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ghcal_active_profiles_per_user",
			Help: "Number of saved widget profiles per user",
		},
		[]string{"user_id"},
	)

	fetchAttemptsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ghcal_fetch_attempts_total",
			Help: "Total number of calendar fetch attempts, retries included",
		},
	)

	fetchPlaceholdersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ghcal_fetch_placeholders_total",
			Help: "Total number of responses that still carried the loading placeholder",
		},
	)

	fetchResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghcal_fetch_results_total",
			Help: "Calendar fetches by outcome",
		},
		[]string{"result"},
	)

	fetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ghcal_fetch_duration_seconds",
			Help:    "Duration of complete calendar fetches including retry waits",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20},
		},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// routePattern labels requests by their chi pattern so that identities do
// not explode the label space.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		statusCode := strconv.Itoa(wrapped.statusCode)
		endpoint := routePattern(r)

		httpRequestsTotal.WithLabelValues(endpoint, r.Method, statusCode).Inc()
		httpRequestDuration.WithLabelValues(endpoint, r.Method, statusCode).Observe(duration)
	})
}

func (s *Server) userAwareMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		// Only collect user metrics for authenticated requests
		if s.cfg.AuthEnabled {
			if user, ok := userFromContext(r.Context()); ok {
				userRequestsTotal.WithLabelValues(user.UserID, routePattern(r), r.Method).Inc()
			}
		}
	})
}

func RecordAuthEvent(eventType, result, provider string) {
	authEventsTotal.WithLabelValues(eventType, result, provider).Inc()
	logger.Debug("Recorded auth event", "type", eventType, "result", result, "provider", provider)
}

func UpdateActiveProfilesForUser(userID string, count int) {
	activeProfilesPerUser.WithLabelValues(userID).Set(float64(count))
}

// prometheusHooks reports orchestration events; identities are left out of
// the labels on purpose.
type prometheusHooks struct{}

func (prometheusHooks) OnAttempt(string, int) {
	fetchAttemptsTotal.Inc()
}

func (prometheusHooks) OnPlaceholder(string, int) {
	fetchPlaceholdersTotal.Inc()
}

func (prometheusHooks) OnComplete(_ string, _ int, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = strings.ToLower(string(errors.GetCode(err)))
		if result == "" {
			result = "error"
		}
	}
	fetchResultsTotal.WithLabelValues(result).Inc()
	fetchDuration.Observe(d.Seconds())
}
