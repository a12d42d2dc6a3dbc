package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"maasser/internal/auth"
	"maasser/internal/cache"
	applog "maasser/internal/log"
	"maasser/internal/middleware/authn"
	"maasser/internal/middleware/ratelimit"
	"maasser/internal/middleware/security"
	"maasser/internal/middleware/trace"
	"maasser/internal/services"
)

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

// CacheStats is implemented by caches that expose usage counters.
type CacheStats interface {
	Stats() cache.Stats
}

type Options struct {
	Addr               string
	Ledger             *services.LedgerService
	Verifier           *auth.Verifier
	Ping               PingFunc   // readiness probe, may be nil
	DashboardCache     CacheStats // may be nil
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	TrustedProxies     []string
	Logger             *applog.Logger
}

type Server struct {
	http.Server
	ledger     *services.LedgerService
	ping       PingFunc
	limiter    *ratelimit.Limiter
	detector   *security.Detector
	trace      *trace.Middleware
	dashboards CacheStats
	startedAt  time.Time
	logger     *applog.Logger
	now        func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.Ledger == nil {
		return nil, errors.New("ledger service is required")
	}
	if opts.Verifier == nil {
		return nil, errors.New("token verifier is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			return nil, err
		}
	}

	s := &Server{
		ledger:     opts.Ledger,
		ping:       opts.Ping,
		limiter:    ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:   detector,
		dashboards: opts.DashboardCache,
		startedAt:  time.Now(),
		logger:     logger.WithComponent(applog.ComponentHTTP),
		now:        time.Now,
	}
	s.trace = trace.NewMiddleware(detector.ExtractClientIP, logger)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(applog.Middleware(s.logger))
	r.Use(s.trace.Middleware)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(detector.Middleware)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(opts.RequestTimeout))
		r.Use(s.limiter.Middleware(s.clientKey, s.onRateLimited))
		r.Use(authn.Middleware(opts.Verifier, s.onUnauthorized))

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/years", s.handleYears)
		r.Get("/history", s.handleHistory)
		r.Get("/maasser", s.handleMaasserPreview)

		r.Route("/incomes", func(r chi.Router) {
			r.Get("/", s.handleListIncomes)
			r.Post("/", s.handleCreateIncome)
			r.Put("/{id}", s.handleUpdateIncome)
			r.Delete("/{id}", s.handleDeleteIncome)
		})
		r.Route("/donations", func(r chi.Router) {
			r.Get("/", s.handleListDonations)
			r.Post("/", s.handleCreateDonation)
			r.Put("/{id}", s.handleUpdateDonation)
			r.Delete("/{id}", s.handleDeleteDonation)
		})
		r.Route("/beneficiaries", func(r chi.Router) {
			r.Get("/", s.handleListBeneficiaries)
			r.Post("/", s.handleCreateBeneficiary)
			r.Delete("/{id}", s.handleDeleteBeneficiary)
		})
	})

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.NewFields().WithClientIP(s.clientKey(r)).
			WithHTTPRequest(r.Method, r.URL.Path, "", "", "").ToSlice()...)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").Write(w)
}

func (s *Server) onUnauthorized(w http.ResponseWriter, _ *http.Request, err error) {
	msg := "unauthorized"
	if errors.Is(err, auth.ErrTokenExpired) {
		msg = "token expired"
	}
	UnauthorizedError(msg).Write(w)
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
