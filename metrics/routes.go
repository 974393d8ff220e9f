package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes returns a router serving the prometheus exposition of gatherer on
// /metrics and the reporter snapshot as JSON on /stats. Mount it on an
// internal listener.
func Routes(reporter *Reporter, gatherer prometheus.Gatherer) chi.Router {
	r := chi.NewRouter()

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		snap := reporter.Snapshot(req.Context())

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})

	return r
}
