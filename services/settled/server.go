// Package settled serves the settlement engine over HTTP for operators and
// the upstream event decoder.
package settled

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"drippy/core/engine"
	"drippy/gateway/middleware"
	"drippy/native/common"
	"drippy/services/payoutd"
	"drippy/services/payoutd/journal"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

// Config captures the dependencies required to construct the server.
type Config struct {
	Engine        *engine.Engine
	Processor     *payoutd.Processor
	Journal       *journal.Journal
	Pauses        *common.PauseSet
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	Logger        *slog.Logger
}

// Server exposes the engine, the payout processor and the journal.
type Server struct {
	engine    *engine.Engine
	processor *payoutd.Processor
	journal   *journal.Journal
	pauses    *common.PauseSet
	auth      *middleware.Authenticator
	limiter   *middleware.RateLimiter
	obs       *middleware.Observability
	logger    *slog.Logger

	router http.Handler
}

// New constructs the routed server.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil || cfg.Processor == nil || cfg.Journal == nil || cfg.Pauses == nil {
		return nil, errors.New("settled: engine, processor, journal and pauses are required")
	}
	s := &Server{
		engine:    cfg.Engine,
		processor: cfg.Processor,
		journal:   cfg.Journal,
		pauses:    cfg.Pauses,
		auth:      cfg.Authenticator,
		limiter:   cfg.RateLimiter,
		obs:       cfg.Observability,
		logger:    cfg.Logger,
	}
	if s.auth == nil {
		s.auth = middleware.NewAuthenticator(middleware.AuthConfig{}, cfg.Logger)
	}
	if s.limiter == nil {
		s.limiter = middleware.NewRateLimiter(nil, cfg.Logger)
	}
	if s.obs == nil {
		s.obs = middleware.NewObservability("settled", cfg.Logger)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.router = s.buildRouter()
	return s, nil
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) route(name string, scopes ...string) func(chi.Router) chi.Router {
	return func(r chi.Router) chi.Router {
		return r.With(s.obs.Middleware(name), s.limiter.Middleware(name), s.auth.Require(scopes...))
	}
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		s.route("operations", middleware.ScopeOperate)(api).Post("/operations", s.handleOperation)
		s.route("plan", middleware.ScopeRead)(api).Post("/plan", s.handlePlan)

		read := s.route("accounts", middleware.ScopeRead)(api)
		read.Get("/accounts/{id}", s.handleAccount)
		read.Get("/accounts/{id}/claim-preview", s.handlePreview)

		stats := s.route("stats", middleware.ScopeRead)(api)
		stats.Get("/stats", s.handleStats)
		stats.Get("/status", s.handleStatus)
		stats.Get("/receipts", s.handleReceipts)

		admin := s.route("admin", middleware.ScopeAdmin)(api)
		admin.Get("/pools/{pool}/holders", s.handleGetHolders)
		admin.Put("/pools/{pool}/holders", s.handlePutHolders)
		admin.Post("/pause/{module}", s.handlePause(true))
		admin.Post("/resume/{module}", s.handlePause(false))
		admin.Get("/alerts", s.handleAlerts)
		admin.Post("/alerts/{id}/resolve", s.handleResolveAlert)
		admin.Mount("/payout", http.StripPrefix("/v1/payout", payoutd.NewAdminServer(s.processor)))
	})
	return r
}
