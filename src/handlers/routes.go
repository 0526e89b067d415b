package handlers

import (
	"CafeAPI/src/token"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	// RateLimitReqs per RateLimitWindow per client IP; 0 disables limiting.
	RateLimitReqs   int
	RateLimitWindow time.Duration
	CORSOrigins     []string
}

func NewRouter(h *Handler, keys *token.KeyChecker, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Instrument)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	r.Get("/", h.Home)
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if opts.RateLimitReqs > 0 {
			r.Use(httprate.LimitByIP(opts.RateLimitReqs, opts.RateLimitWindow))
		}

		r.Get("/random", h.Random)
		r.Get("/all", h.All)
		r.Get("/search", h.Search)
		r.Post("/add", h.Add)
		r.Patch("/update-price/{cafe_id}", h.UpdatePrice)
		r.With(token.RequireAPIKey(keys)).Delete("/report-closed/{cafe_id}", h.ReportClosed)
	})

	return r
}
