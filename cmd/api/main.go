package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/motorvalue/vehicle-valuation/internal/adapters/cache"
	"github.com/motorvalue/vehicle-valuation/internal/adapters/database"
	"github.com/motorvalue/vehicle-valuation/internal/adapters/sources"
	"github.com/motorvalue/vehicle-valuation/internal/api/handlers"
	"github.com/motorvalue/vehicle-valuation/internal/api/middleware"
	"github.com/motorvalue/vehicle-valuation/internal/api/routes"
	"github.com/motorvalue/vehicle-valuation/internal/application/services"
	"github.com/motorvalue/vehicle-valuation/internal/domain/entities"
	"github.com/motorvalue/vehicle-valuation/internal/domain/providers"
	"github.com/motorvalue/vehicle-valuation/internal/domain/repositories"
	"github.com/motorvalue/vehicle-valuation/internal/infrastructure/clients/postgres"
	"github.com/motorvalue/vehicle-valuation/internal/infrastructure/clients/redis"
	"github.com/motorvalue/vehicle-valuation/internal/infrastructure/observability"
	"github.com/motorvalue/vehicle-valuation/pkg/config"
	"github.com/rs/zerolog/log"
)

func main() {
	// .env is optional; real deployments configure via the environment
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					log.Warn().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	// Postgres backs the durable cache tier; the engine runs without it
	var statsStore repositories.StatsCacheRepository
	var pgPinger handlers.Pinger
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Warn().Err(err).Msg("PostgreSQL unavailable, durable cache disabled")
	} else {
		defer pgClient.Close()
		statsStore = database.NewStatsCacheAdapter(pgClient)
		pgPinger = pgClient
	}

	// Redis backs HTTP response caching; also optional
	var cacheProvider providers.CacheProvider
	var redisPinger handlers.Pinger
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, response caching disabled")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		redisPinger = redisClient
	}

	queryCache := cache.NewQueryCache(
		cfg.Cache.MemoryMaxEntries,
		time.Duration(cfg.Cache.MemoryTTLMinutes)*time.Minute,
	)

	limiter := sources.NewRateLimiter(
		time.Duration(cfg.Sources.MinDelayMs)*time.Millisecond,
		time.Duration(cfg.Sources.JitterMs)*time.Millisecond,
	)
	registry := sources.NewRegistry()

	fetchTimeout := time.Duration(cfg.Sources.FetchTimeoutSeconds) * time.Second
	primary := sources.NewAPISource(sources.APISourceConfig{
		Name:         "marketplace",
		BaseURL:      cfg.Sources.PrimaryBaseURL,
		Priority:     0,
		FetchTimeout: fetchTimeout,
		PageSize:     cfg.Sources.PageSize,
		MinPageFill:  cfg.Sources.MinPageFill,
		PageDelay:    time.Duration(cfg.Sources.PageDelayMs) * time.Millisecond,
	}, log.Logger)

	var alternate providers.ListingSource
	if cfg.Sources.BrowserEnabled {
		browser := sources.NewBrowserSource("marketplace-browser", cfg.Sources.PrimaryBaseURL, 1, fetchTimeout, log.Logger)
		defer browser.Close()
		alternate = browser
	}

	registerSecondaries := func(registry *sources.Registry) {
		for i, entry := range strings.Split(cfg.Sources.SecondaryURLs, ",") {
			name, baseURL, ok := strings.Cut(strings.TrimSpace(entry), "=")
			if !ok || name == "" || baseURL == "" {
				continue
			}
			registry.Register(sources.NewAPISource(sources.APISourceConfig{
				Name:         name,
				BaseURL:      baseURL,
				Priority:     i + 2,
				FetchTimeout: fetchTimeout,
				PageSize:     cfg.Sources.PageSize,
				MinPageFill:  cfg.Sources.MinPageFill,
				PageDelay:    time.Duration(cfg.Sources.PageDelayMs) * time.Millisecond,
			}, log.Logger))
			log.Info().Str("source", name).Msg("secondary source registered")
		}
	}

	preset := services.PresetByName(cfg.Valuation.Preset)
	statsService := services.NewStatsService(
		preset,
		cfg.Valuation.MinPlausiblePrice,
		cfg.Valuation.MaxPlausiblePrice,
		log.Logger,
	)

	adjuster := services.NewConditionAdjuster(
		services.DefaultConditionFactors(),
		cfg.Valuation.DealerDiscountPct,
		cfg.Valuation.RoundingUnit,
	)

	aggregator := services.NewAggregationService(
		primary,
		alternate,
		registry,
		registerSecondaries,
		limiter,
		queryCache,
		cfg.Sources.SufficiencyThreshold,
		metrics,
		log.Logger,
	)

	strategies := entities.DefaultStrategies()
	if cfg.Valuation.StrategyConfigPath != "" {
		specs, err := config.LoadStrategyFile(cfg.Valuation.StrategyConfigPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Valuation.StrategyConfigPath).Msg("failed to load strategy file")
		}
		strategies = strategies[:0]
		for _, spec := range specs {
			strategies = append(strategies, entities.Strategy{
				Name:        spec.Name,
				YearSpan:    spec.YearSpan,
				MileageSpan: spec.MileageSpan,
				DropGearbox: spec.DropGearbox,
			})
		}
		log.Info().Int("count", len(strategies)).Msg("strategy ladder loaded from file")
	}

	valuationService := services.NewValuationService(
		services.ValuationConfig{
			Strategies:        strategies,
			MinCleanSample:    cfg.Valuation.MinCleanSample,
			MinCachedSample:   cfg.Valuation.MinCachedSample,
			MinPlausiblePrice: cfg.Valuation.MinPlausiblePrice,
			SuspiciousMedian:  cfg.Valuation.SuspiciousMedian,
			SuspiciousSample:  cfg.Valuation.SuspiciousSample,
			MaxIQRRatio:       cfg.Valuation.MaxIQRRatio,
			MaxSpreadRatio:    cfg.Valuation.MaxSpreadRatio,
			DurableTTL:        time.Duration(cfg.Cache.DurableTTLHours) * time.Hour,
		},
		statsService,
		adjuster,
		aggregator,
		statsStore,
		metrics,
		log.Logger,
	)

	valuationHandler := handlers.NewValuationHandler(valuationService, services.ValidateRequest)
	healthHandler := handlers.NewHealthHandler(pgPinger, redisPinger)

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider)
	}

	router := routes.NewRouter(valuationHandler, healthHandler, cacheMiddleware, metrics)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Str("preset", preset.Name).Msg("valuation API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
