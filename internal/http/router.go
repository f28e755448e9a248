// Package http assembles the full route table and middleware chain.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	analyticshandler "gmarup/internal/analytics/handler"
	donationhandler "gmarup/internal/donation/handler"
	"gmarup/internal/platform/metrics"
	"gmarup/internal/platform/middleware"
	ratelimitmw "gmarup/internal/ratelimit/middleware"
	"gmarup/internal/ratelimit/service/requestlimit"
	registrationhandler "gmarup/internal/registration/handler"
	settingshandler "gmarup/internal/settings/handler"
	storage "gmarup/internal/storage/sqlite"
)

// Handlers collects the per-domain handlers the router mounts.
type Handlers struct {
	Registration *registrationhandler.Handler
	Donation     *donationhandler.Handler
	Settings     *settingshandler.Handler
	Analytics    *analyticshandler.Handler
}

// NewRouter builds the chi router. limiter may be nil, in which case public
// submissions are not throttled.
func NewRouter(logger *slog.Logger, m *metrics.Metrics, db *storage.Store, h Handlers, limiter *requestlimit.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientInfo)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.CORS)
	r.Use(middleware.Latency(m))

	// Public submission endpoints sit behind the per-IP limiter.
	r.Group(func(public chi.Router) {
		if limiter != nil {
			public.Use(ratelimitmw.Limit(limiter))
		}
		h.Registration.Register(public)
		h.Donation.Register(public)
	})

	// Reads and the analytics beacon are not throttled.
	h.Settings.Register(r)
	h.Analytics.Register(r)

	h.Registration.RegisterAdmin(r)
	h.Donation.RegisterAdmin(r)
	h.Settings.RegisterAdmin(r)
	h.Analytics.RegisterAdmin(r)

	health := &healthHandler{logger: logger, db: db}
	r.Get("/api/test", health.handle)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
