// File: cmd/app/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sproutcv/internal/config"
	"sproutcv/internal/domain/ports/adapter"
	aiAdapters "sproutcv/internal/infra/adapters/ai"
	pg "sproutcv/internal/infra/db/postgres"
	"sproutcv/internal/infra/logging"
	"sproutcv/internal/infra/metrics"
	"sproutcv/internal/infra/payment"
	red "sproutcv/internal/infra/redis"
	"sproutcv/internal/infra/sched"
	"sproutcv/internal/infra/security"
	"sproutcv/internal/infra/web"
	"sproutcv/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	replayGuard := red.NewReplayGuard(redisClient, cfg.Redis.TTL)

	// ---- Encryption ----
	encSvc, err := security.NewEncryptionService(cfg.Security.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption")
	}

	// ---- Repositories ----
	profileRepo := pg.NewProfileRepo(pool)
	packageRepo := pg.NewCreditPackageRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	ledgerRepo := pg.NewLedgerRepo(pool)
	eventRepo := pg.NewSecurityEventRepo(pool)
	analysisRepo := pg.NewAnalysisRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Payment gateway ----
	var gw adapter.PaymentGateway
	if cfg.Payment.Dodo.APIKey == "" && cfg.Runtime.Dev {
		gw = payment.NewNoopGateway()
		logger.Warn().Msg("no payment provider key; using in-memory noop gateway")
	} else {
		gw = payment.NewDodoGateway(cfg.Payment.Dodo.APIKey, cfg.Payment.Dodo.BaseURL)
	}

	// ---- AI Adapter (Gemini -> OpenAI) ----
	var ai adapter.AIServiceAdapter
	switch {
	case cfg.AI.GeminiKey != "":
		ai, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.DefaultModel, 2048)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: Gemini")
	case cfg.AI.OpenAIKey != "":
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: OpenAI")
	case cfg.Runtime.Dev:
		ai = aiAdapters.NewNoopAIAdapter()
		logger.Warn().Msg("no AI provider key; using canned noop adapter")
	default:
		logger.Fatal().Msg("no AI provider configured: set ai.gemini_key or ai.openai_key")
	}
	ai = aiAdapters.NewLimitedAI(ai, cfg.AI.ConcurrentLimit)

	// ---- Use cases ----
	ledgerUC := usecase.NewLedgerUseCase(ledgerRepo, profileRepo, eventRepo, tm, logger)
	paymentUC := usecase.NewPaymentUseCase(paymentRepo, packageRepo, profileRepo, eventRepo, ledgerUC, gw, tm, cfg.Payment.Dodo.CheckoutTTL, logger)
	profileUC := usecase.NewProfileUseCase(profileRepo, ledgerUC, tm, cfg.Credits.ReferralBonus, logger)
	analysisUC := usecase.NewAnalysisUseCase(analysisRepo, ledgerUC, ai, encSvc, tm, usecase.AnalysisConfig{
		Model:          cfg.AI.DefaultModel,
		MaxInputTokens: cfg.AI.MaxInputTokens,
		CreditCost:     cfg.AI.CreditCost,
	}, logger)
	statsUC := usecase.NewStatsUseCase(profileRepo, paymentRepo, eventRepo)

	// ---- HTTP server ----
	verifier := web.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	srv, err := web.NewServer(paymentUC, ledgerUC, profileUC, analysisUC, statsUC, eventRepo, verifier,
		cfg.Payment.Dodo.WebhookSecret, replayGuard, rateLimiter, cfg.Server.AdminAPIKey, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("server")
	}
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("http listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Background workers ----
	if !cfg.Scheduler.Disabled {
		expirer := sched.NewPaymentExpirer(cfg.Scheduler.ExpireInterval, paymentUC, logger)
		go func() { _ = expirer.Run(ctx) }()
		reconciler := sched.NewPaymentReconciler(paymentUC, paymentRepo, cfg.Scheduler.ReconcileInterval, cfg.Scheduler.ReconcileAge, logger)
		go reconciler.Start(ctx)
	}

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
