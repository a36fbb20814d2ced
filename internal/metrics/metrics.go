package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/ErlanBelekov/vsm-auth/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Gateway metrics

	GatewayRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vsmauth",
		Name:      "gateway_request_duration_seconds",
		Help:      "Latency of calls to the auth API.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}, []string{"endpoint", "outcome"})

	GatewayRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vsmauth",
		Name:      "gateway_requests_total",
		Help:      "Calls to the auth API, by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	// Wizard metrics

	WizardActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vsmauth",
		Name:      "wizard_actions_total",
		Help:      "User actions handled by the sign-in wizard, by result.",
	}, []string{"action", "result"})

	CountdownStartsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "vsmauth",
		Name:      "countdown_starts_total",
		Help:      "Number of times the resend countdown was (re)started.",
	})

	AdminLoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vsmauth",
		Name:      "admin_logins_total",
		Help:      "Admin login submissions, by result.",
	}, []string{"result"})
)

// Gateway outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeTransport = "transport_error"
)

// Action results.
const (
	ResultOK       = "ok"
	ResultInvalid  = "invalid"
	ResultRejected = "rejected"
	ResultError    = "error"
	ResultLocked   = "locked"
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		GatewayRequestDuration,
		GatewayRequestsTotal,
		WizardActionsTotal,
		CountdownStartsTotal,
		AdminLoginsTotal,
	)
}

// NewServer serves /metrics from the default gatherer and /healthz from checker.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		result := checker.Readiness(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if result.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(result)
	})
	return &http.Server{Addr: addr, Handler: mux}
}
