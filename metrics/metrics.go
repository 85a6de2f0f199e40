package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "oddoneout"

var (
	assignments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "assignments_total",
		Help:      "Game and card set assignments by kind and outcome",
	}, []string{"kind", "outcome"})

	guesses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guesses_total",
		Help:      "Resolved guesses by target and correctness",
	}, []string{"target", "correct"})

	clues = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "clues_total",
		Help:      "Accepted clues, new games or merged into an existing one",
	}, []string{"result"})

	recalcFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "score_recalculation_failures_total",
		Help:      "Card set rescoring runs that failed after a guess",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests received",
	}, []string{"method", "route", "status"})

	httpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// Assignment kinds.
const (
	KindGame    = "game"
	KindCardSet = "card_set"
)

func Assignment(kind, outcome string) {
	assignments.WithLabelValues(kind, outcome).Inc()
}

func Guess(oddOneOutTarget, correct bool) {
	target := "in_set"
	if oddOneOutTarget {
		target = "odd_one_out"
	}
	guesses.WithLabelValues(target, strconv.FormatBool(correct)).Inc()
}

func Clue(merged bool) {
	result := "created"
	if merged {
		result = "merged"
	}
	clues.WithLabelValues(result).Inc()
}

func RecalculationFailed() {
	recalcFailures.Inc()
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware records request counts and latency labelled by route template.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpLatency.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
