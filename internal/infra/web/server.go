package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	svix "github.com/svix/svix-webhooks/go"

	"sproutcv/internal/domain/ports/adapter"
	"sproutcv/internal/domain/ports/repository"
	"sproutcv/internal/infra/redis"
	"sproutcv/internal/usecase"
)

type Server struct {
	paymentUC  usecase.PaymentUseCase
	ledgerUC   usecase.LedgerUseCase
	profileUC  usecase.ProfileUseCase
	analysisUC usecase.AnalysisUseCase
	statsUC    usecase.StatsUseCase
	events     repository.SecurityEventRepository

	verifier        adapter.TokenVerifier
	webhookVerifier *svix.Webhook
	replays         *redis.ReplayGuard
	limiter         *redis.RateLimiter
	adminAPIKey     string
	log             *zerolog.Logger
}

func NewServer(
	paymentUC usecase.PaymentUseCase,
	ledgerUC usecase.LedgerUseCase,
	profileUC usecase.ProfileUseCase,
	analysisUC usecase.AnalysisUseCase,
	statsUC usecase.StatsUseCase,
	events repository.SecurityEventRepository,
	verifier adapter.TokenVerifier,
	webhookSecret string,
	replays *redis.ReplayGuard,
	limiter *redis.RateLimiter,
	adminAPIKey string,
	logger *zerolog.Logger,
) (*Server, error) {
	wh, err := newWebhookVerifier(webhookSecret)
	if err != nil {
		return nil, err
	}
	return &Server{
		paymentUC:       paymentUC,
		ledgerUC:        ledgerUC,
		profileUC:       profileUC,
		analysisUC:      analysisUC,
		statsUC:         statsUC,
		events:          events,
		verifier:        verifier,
		webhookVerifier: wh,
		replays:         replays,
		limiter:         limiter,
		adminAPIKey:     adminAPIKey,
		log:             logger,
	}, nil
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Provider-facing; HMAC-authenticated, no bearer token.
	r.Post("/api/v1/webhooks/payments", s.handleWebhook)

	// User-facing API.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/api/v1/payments/checkout", s.rateLimited("checkout", 10, http.HandlerFunc(s.handleCheckout)))
		r.Post("/api/v1/payments/status", s.rateLimited("status", 60, http.HandlerFunc(s.handlePaymentStatus)))
		r.Get("/api/v1/packages", s.handleListPackages)

		r.Get("/api/v1/credits/balance", s.handleBalance)
		r.Get("/api/v1/credits/ledger", s.handleLedger)

		r.Post("/api/v1/analyses", s.rateLimited("analyze", 20, http.HandlerFunc(s.handleCreateAnalysis)))
		r.Get("/api/v1/analyses", s.handleListAnalyses)

		r.Get("/api/v1/profile", s.handleGetProfile)
		r.Post("/api/v1/profile/referral", s.handleRedeemReferral)
	})

	// Admin API.
	r.Group(func(r chi.Router) {
		r.Use(s.adminMiddleware)

		r.Get("/api/v1/admin/stats", s.handleAdminStats)
		r.Get("/api/v1/admin/security-events", s.handleAdminSecurityEvents)
		r.Post("/api/v1/admin/credits/adjust", s.handleAdminAdjustCredits)
		r.Get("/api/v1/admin/credits/verify", s.handleAdminVerifyBalance)
	})

	return r
}

// rateLimited wraps a handler with a per-user fixed-window limit (per minute).
func (s *Server) rateLimited(route string, perMinute int, next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil {
			identity, ok := identityFrom(r.Context())
			key := redis.IPRouteKey(r.RemoteAddr, route)
			if ok {
				key = redis.UserRouteKey(identity.UserID, route)
			}
			allowed, err := s.limiter.Allow(r.Context(), key, perMinute, time.Minute)
			if err != nil {
				s.log.Warn().Err(err).Msg("rate limiter unavailable")
			}
			if !allowed {
				respondError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
		}
		next.ServeHTTP(w, r)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
