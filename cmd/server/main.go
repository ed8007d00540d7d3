package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/cotizador/internal/auth"
	"github.com/Simplici0/cotizador/internal/catalog"
	"github.com/Simplici0/cotizador/internal/config"
	"github.com/Simplici0/cotizador/internal/db"
	"github.com/Simplici0/cotizador/internal/logger"
	"github.com/Simplici0/cotizador/internal/migrations"
	"github.com/Simplici0/cotizador/internal/quotes"
	"github.com/Simplici0/cotizador/internal/seed"
)

type server struct {
	log      *logger.Logger
	auth     auth.Resolver
	catalog  *catalog.Service
	quotes   *quotes.Store
	validate *validator.Validate
}

func newServer(log *logger.Logger, resolver auth.Resolver, catalogSvc *catalog.Service, quoteStore *quotes.Store) *server {
	return &server{
		log:      log,
		auth:     resolver,
		catalog:  catalogSvc,
		quotes:   quoteStore,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	cfg := config.Load()

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer appLog.Sync()

	dialect, err := db.ParseDialect(cfg.DBDriver)
	if err != nil {
		appLog.Fatal("invalid database driver", "error", err)
	}

	database, err := db.Open(dialect, cfg.DSN())
	if err != nil {
		appLog.Fatal("failed to open database", "error", err)
	}
	defer database.Close()

	if cfg.IsDev() {
		if err := migrations.Up(database, dialect); err != nil {
			appLog.Fatal("failed to run database migrations", "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.SeedOnStart {
		stats, err := seed.Run(ctx, database, dialect)
		if err != nil {
			appLog.Fatal("failed to seed database", "error", err)
		}
		appLog.Info("seed complete", "inserts", stats.Inserts)
	}

	cache, err := newTariffCache(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatal("failed to build tariff cache", "error", err)
	}
	if closer, ok := cache.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				appLog.Warn("tariff cache close failed", "error", err)
			}
		}()
	}

	srv := newServer(
		appLog,
		auth.NewJWTResolver(cfg.JWTSecret),
		catalog.NewService(catalog.NewStore(database, dialect), cache, appLog),
		quotes.NewStore(database, dialect, appLog),
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(routeOptionsFrom(cfg)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLog.Info("listening", "addr", httpServer.Addr, "env", cfg.Env, "db", string(dialect))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("graceful shutdown failed", "error", err)
	}
}

func newTariffCache(ctx context.Context, cfg config.Config, log *logger.Logger) (catalog.TariffCache, error) {
	switch cfg.TariffCache {
	case "off", "none":
		return catalog.NoCache{}, nil
	case "redis":
		rc, err := catalog.NewRedisCache(ctx, cfg.RedisAddr, cfg.TariffCacheTTL)
		if err != nil {
			return nil, err
		}
		log.Info("tariff cache", "backend", "redis", "addr", cfg.RedisAddr, "ttl", cfg.TariffCacheTTL)
		return rc, nil
	}
	log.Info("tariff cache", "backend", "memory", "ttl", cfg.TariffCacheTTL)
	return catalog.NewMemoryCache(cfg.TariffCacheTTL), nil
}

func routeOptionsFrom(cfg config.Config) routeOptions {
	return routeOptions{
		FrontendURL:          cfg.FrontendURL,
		Production:           !cfg.IsDev(),
		APIRateLimit:         cfg.APIRateLimit,
		TariffWriteRateLimit: cfg.TariffWriteRateLimit,
		RateLimitWindow:      cfg.RateLimitWindow,
	}
}

func (s *server) routes(opts routeOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(opts.Production))
	r.Use(corsHandler(opts.FrontendURL))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(rateLimit(opts.APIRateLimit, opts.RateLimitWindow))
		r.Use(s.requirePrincipal)

		r.Post("/pricing/preview", s.handlePricingPreview)
		r.Post("/pricing/batch", s.handlePricingBatch)

		r.Get("/quotes", s.handleQuotesList)
		r.Post("/quotes", s.handleQuoteCreate)
		r.Patch("/quotes/{sequence}/status", s.handleQuoteStatus)
		r.Delete("/quotes/{sequence}", s.handleQuoteDelete)
		r.Patch("/quotes/lines/{id}/approval", s.handleLineApproval)
		r.Patch("/quotes/products/{id}/observation", s.handleProductObservation)

		r.Get("/tariffs", s.handleTariffsList)
		r.With(rateLimit(opts.TariffWriteRateLimit, opts.RateLimitWindow)).Put("/tariffs/batch", s.handleTariffsBatch)
		r.Get("/dies", s.handleDiesList)
		r.Get("/production-catalogs", s.handleProductionCatalogs)
	})

	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
