package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brk3/ghcal/internal/config"
	"github.com/brk3/ghcal/internal/fetch"
	"github.com/brk3/ghcal/internal/logger"
	"github.com/brk3/ghcal/internal/storage"
)

// CalendarFetcher is satisfied by *fetch.Orchestrator.
type CalendarFetcher = fetch.Source

type Server struct {
	cfg           *config.Config
	store         storage.Store
	fetcher       CalendarFetcher
	validate      *validator.Validate
	authProviders map[string]*AuthProvider
	sessionCookie *securecookie.SecureCookie
}

// New builds a server. A nil fetcher gets an orchestrator configured from cfg
// with its events reported to Prometheus.
func New(cfg *config.Config, store storage.Store, fetcher CalendarFetcher) (*Server, error) {
	if fetcher == nil {
		fetcher = NewOrchestrator(cfg)
	}
	s := &Server{
		cfg:      cfg,
		store:    store,
		fetcher:  fetcher,
		validate: validator.New(),
	}

	if cfg.AuthEnabled {
		providers, cookie, err := ConfigureOIDCProviders(cfg)
		if err != nil {
			return nil, err
		}
		s.authProviders = providers
		s.sessionCookie = cookie
	}
	return s, nil
}

// NewOrchestrator builds the fetch orchestrator described by cfg.
func NewOrchestrator(cfg *config.Config) *fetch.Orchestrator {
	return fetch.New(fetch.Options{
		SourceURL:   cfg.Widget.SourceURL,
		Proxy:       fetch.TemplateProxy(cfg.Widget.Proxy),
		MaxAttempts: cfg.Fetch.MaxAttempts,
		RetryDelay:  cfg.Fetch.RetryDelay,
		HTTPClient:  &http.Client{Timeout: cfg.Fetch.Timeout},
		Hooks:       prometheusHooks{},
	})
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(metricsMiddleware)

	r.Get("/version", s.getVersionInfo)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/calendar/{identity}", func(r chi.Router) {
		r.Get("/", s.getCalendarWidget)
		r.Get("/stats", s.getCalendarStats)
	})

	r.Route("/profiles", func(r chi.Router) {
		if s.cfg.AuthEnabled {
			r.Use(s.authMiddleware)
			r.Use(s.userAwareMetricsMiddleware)
		}
		r.Post("/", s.createProfile)
		r.Get("/", s.listProfiles)
		r.Get("/{profile_id}", s.getProfile)
		r.Delete("/{profile_id}", s.deleteProfile)
		r.Get("/{profile_id}/widget", s.getProfileWidget)
	})

	if s.cfg.AuthEnabled {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", s.simpleLogin)
			r.Get("/login/{id}", s.login)
			r.Get("/callback/{id}", s.callback)
			r.Post("/logout", s.logout)
			r.Get("/token", s.getAPIToken)
			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Post("/api_keys", s.generateAPIKey)
				r.Get("/api_keys", s.listAPIKeys)
			})
		})
	}

	logger.Debug("Router configured", "auth_enabled", s.cfg.AuthEnabled)
	return r
}
