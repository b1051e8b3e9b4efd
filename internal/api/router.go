package api

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "learn2earn_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "learn2earn_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "endpoint"})
)

// NewRouter wires every endpoint. The /approved route must be registered
// before the {address} route or mux would capture "approved" as an address.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthHandler).Methods("GET")

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/submissions", h.SubmitProofHandler).Methods("POST")
	apiRouter.HandleFunc("/submissions", h.ListSubmissionsHandler).Methods("GET")
	apiRouter.HandleFunc("/submissions/approved", h.ListApprovedHandler).Methods("GET")
	apiRouter.HandleFunc("/submissions/{address}", h.GetSubmissionHandler).Methods("GET")
	apiRouter.HandleFunc("/submissions/{address}/status", h.StatusHandler).Methods("GET")
	apiRouter.HandleFunc("/submissions/{address}/approve", h.ApproveHandler).Methods("PUT")
	apiRouter.HandleFunc("/submissions/{address}/claim", h.ClaimHandler).Methods("POST")
	apiRouter.HandleFunc("/submissions/{address}/claim-status", h.ClaimStatusHandler).Methods("GET")
	apiRouter.HandleFunc("/clear-cache/{address}", h.ClearCacheHandler).Methods("POST")
	apiRouter.HandleFunc("/check-registration/{address}", h.CheckRegistrationHandler).Methods("GET")
	apiRouter.HandleFunc("/sync-registration", h.SyncRegistrationHandler).Methods("POST")

	return r
}
