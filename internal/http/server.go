package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"safeshe-backend-go/internal/config"
	"safeshe-backend-go/internal/live"
	"safeshe-backend-go/internal/services"
	"safeshe-backend-go/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

type Server struct {
	Config    config.Config
	Store     store.Store
	Registry  *live.Registry
	Tokens    services.TokenService
	Tracker   *services.Tracker
	Auth      *services.AuthService
	Guardians *services.GuardianService
	Incidents *services.IncidentService
	Health    *services.HealthService
	Log       *slog.Logger

	upgrader websocket.Upgrader
}

func NewServer(cfg config.Config, st store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	tokens := services.TokenService{
		Secret:    []byte(cfg.JWTSecret),
		Issuer:    cfg.JWTIssuer,
		AccessTTL: time.Duration(cfg.AccessTTLSeconds) * time.Second,
	}
	opts := []live.Option{
		live.WithMaxViewers(cfg.LiveMaxViewers),
		live.WithLogger(logger),
	}
	if cfg.LiveRequireToken {
		opts = append(opts, live.WithPolicy(tokens.ViewPolicy()))
	}
	registry := live.NewRegistry(opts...)

	return &Server{
		Config:    cfg,
		Store:     st,
		Registry:  registry,
		Tokens:    tokens,
		Tracker:   services.NewTracker(st, registry, clockwork.NewRealClock(), services.WithTrackerLogger(logger)),
		Auth:      services.NewAuthService(st, tokens),
		Guardians: services.NewGuardianService(st),
		Incidents: services.NewIncidentService(st),
		Health:    services.NewHealthService(st, registry),
		Log:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.Log))
	r.Use(middleware.Recoverer)
	if len(s.Config.CorsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.Config.CorsOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/", s.Root)
	r.Get("/health", s.HealthCheck)
	r.Get("/schema", s.Schema)

	r.Route("/auth", func(auth chi.Router) {
		auth.Get("/providers", s.AuthProviders)
		auth.Post("/mock-login", s.MockLogin)
	})

	r.Route("/guardians", func(guardians chi.Router) {
		guardians.Post("/", s.CreateGuardian)
		guardians.Get("/", s.ListGuardians)
	})

	r.Route("/location", func(location chi.Router) {
		location.Post("/update", s.LocationUpdate)
		location.Get("/last", s.LocationLast)
	})

	r.Route("/incidents", func(incidents chi.Router) {
		incidents.Post("/", s.CreateIncident)
		incidents.Get("/", s.ListIncidents)
	})

	r.Get("/alerts/nearby", s.NearbyAlerts)

	r.With(AttachAccessToken).Get("/ws/track/{userID}", s.TrackSocket)
	return r
}
