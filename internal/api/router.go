package api

import (
	"net/http"
	"time"

	"github.com/fleetradar/fleetradar-backend/internal/auth"
	"github.com/fleetradar/fleetradar-backend/internal/config"
	"github.com/fleetradar/fleetradar-backend/internal/telemetry"
	"github.com/fleetradar/fleetradar-backend/internal/vehicle"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers bundles the HTTP handlers and their dependencies
type Handlers struct {
	auth      *auth.Service
	vehicles  *vehicle.Service
	telemetry *telemetry.Service
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewHandlers creates the handler set
func NewHandlers(
	authSvc *auth.Service,
	vehicles *vehicle.Service,
	telemetrySvc *telemetry.Service,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		auth:      authSvc,
		vehicles:  vehicles,
		telemetry: telemetrySvc,
		validate:  validator.New(),
		logger:    logger,
	}
}

// NewRouter builds the HTTP router with all routes and middleware
func NewRouter(cfg *config.Config, tokens *auth.TokenIssuer, h *Handlers, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(httprate.LimitByIP(20, time.Minute))
			r.Post("/register/personal", h.registerPersonal)
			r.Post("/register/business", h.registerBusiness)
			r.Post("/login", h.login)
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens, logger))
			r.Post("/", h.addVehicle)
			r.Get("/", h.listVehicles)
			r.Get("/tracking/latest", h.latestTracking)
			r.Route("/{vehicleID}", func(r chi.Router) {
				r.Get("/", h.getVehicle)
				r.Delete("/", h.deleteVehicle)
				r.Get("/tracking/history", h.trackingHistory)
				r.Get("/tracking/recent", h.recentTracking)
				r.Post("/device", h.bindDevice)
				r.Delete("/device/{deviceID}", h.unbindDevice)
			})
		})

		r.Route("/notecard", func(r chi.Router) {
			r.With(httprate.LimitByIP(600, time.Minute)).Post("/webhook", h.webhook)
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth(tokens, logger))
				r.Get("/data/{deviceID}", h.lastKnownData)
				r.Post("/command/{deviceID}", h.sendCommand)
			})
		})
	})

	return r
}
