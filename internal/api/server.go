package api

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"routeplan/internal/auth"
	"routeplan/internal/config"
	"routeplan/internal/events"
	"routeplan/internal/metrics"
	"routeplan/internal/planner"
	"routeplan/internal/store"
)

type Server struct {
	Planner *planner.Service
	Store   store.Store
	Broker  events.Broker
	Auth    *auth.Verifier
	Config  config.Config
	Log     *zap.Logger

	limiter   *rate.Limiter
	validator *requestValidator
}

// NewServer wires the HTTP layer over an assembled planner service.
func NewServer(cfg config.Config, svc *planner.Service, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		Planner: svc,
		Store:   svc.Store,
		Broker:  svc.Broker,
		Auth:    auth.NewVerifier(cfg.Auth),
		Config:  cfg,
		Log:     log,

		validator: newRequestValidator(),
	}
	if cfg.HTTP.RateRPS > 0 {
		burst := cfg.HTTP.RateBurst
		if burst <= 0 {
			burst = int(cfg.HTTP.RateRPS) + 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.HTTP.RateRPS), burst)
	}
	if s.Broker == nil {
		s.Broker = events.NewMemory()
		svc.Broker = s.Broker
	}
	return s
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "", r.URL.Path)
	})

	s.route(router, http.MethodPost, "/v1/plans", s.authed(s.createPlan, true))
	s.route(router, http.MethodGet, "/v1/plans", s.authed(s.listPlans, false))
	s.route(router, http.MethodGet, "/v1/plans/:id", s.authed(s.getPlan, false))
	s.route(router, http.MethodGet, "/v1/plans/:id/report", s.authed(s.planReport, false))
	s.route(router, http.MethodGet, "/v1/plans/:id/events/stream", s.authed(s.planEvents, false))
	s.route(router, http.MethodGet, "/v1/ws", s.authed(s.planSocket, false))
	s.route(router, http.MethodGet, "/v1/admin/webhook-deliveries", s.authed(s.webhookDeliveries, true))

	s.route(router, http.MethodGet, "/healthz", s.health)
	s.route(router, http.MethodGet, "/readyz", s.ready)
	s.route(router, http.MethodGet, "/debug/info", s.debugInfo)
	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	origins := s.Config.HTTP.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	})

	chain := []alice.Constructor{corsHandler.Handler, s.recoverPanic, s.logRequests}
	if s.limiter != nil {
		chain = append(chain, s.rateLimit)
	}
	return alice.New(chain...).Then(router)
}
