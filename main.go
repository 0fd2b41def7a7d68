package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/dealmungchi/offerwatcher/config"
	"github.com/dealmungchi/offerwatcher/internal"
	"github.com/dealmungchi/offerwatcher/internal/crawler"
	"github.com/dealmungchi/offerwatcher/logger"
	"github.com/dealmungchi/offerwatcher/services/cache"
	"github.com/dealmungchi/offerwatcher/services/notifier"
	"github.com/dealmungchi/offerwatcher/services/pipeline"
	"github.com/dealmungchi/offerwatcher/services/store"
	"github.com/dealmungchi/offerwatcher/services/worker"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Load configuration, then initialize logger for the environment
	cfg := config.LoadConfig()
	logger.Init(cfg.IsProduction())
	log := logger.Default

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("store", cfg.StoreDriver).
		Dur("crawl_interval", cfg.CrawlInterval).
		Int("concurrency", cfg.WorkerConcurrency).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize services
	deps, err := initializeServices(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer deps.Close()

	fetcher := crawler.NewFetcher(crawler.FetcherConfig{
		Timeout:   cfg.FetchTimeout,
		BlockTime: cfg.RateLimitBlock,
	}, deps.Cache)

	extractorConfig := crawler.DefaultExtractorConfig()
	extractorConfig.PromotedLabel = cfg.PromotedLabel
	extractorConfig.MaxOffers = cfg.MaxOffers
	extractorConfig.BaseURL = cfg.SiteBaseURL

	p := pipeline.New(fetcher, crawler.NewExtractor(extractorConfig), deps.Offers, deps.Notifier)

	// Create and start worker
	w := worker.NewWorker(p, deps.Subscriptions, deps.Notifier, cfg.CrawlInterval, cfg.WorkerConcurrency)

	// Start worker in a goroutine
	workerDone := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting offer worker")
		workerDone <- w.Start(ctx)
	}()

	// Wait for shutdown signal or worker error
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		<-workerDone
	case err := <-workerDone:
		if errors.Is(err, worker.ErrUnhandled) {
			log.Error().Err(err).Msg("Worker exited with error")
			deps.Close()
			if cfg.RestartOnFailure {
				log.Warn().Msg("Restarting the program...")
				if err := restart(); err != nil {
					log.Error().Err(err).Msg("Failed to restart program")
				}
			}
			os.Exit(1)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Worker exited with error")
		} else {
			log.Info().Msg("Worker exited normally")
		}
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
}

// initializeServices initializes all required services
func initializeServices(ctx context.Context, cfg *config.Config) (*internal.Dependencies, error) {
	deps := &internal.Dependencies{}

	deps.Cache = initializeCache(cfg)

	if err := initializeStore(ctx, cfg, deps); err != nil {
		deps.Close()
		return nil, err
	}

	if cfg.SubscriptionsFile != "" {
		seeds, err := store.LoadSeedFile(cfg.SubscriptionsFile)
		if err != nil {
			deps.Close()
			return nil, err
		}
		created, err := store.ApplySeeds(ctx, deps.Subscriptions, seeds)
		if err != nil {
			deps.Close()
			return nil, err
		}
		logger.Info("Applied %d of %d seed subscriptions from %s", created, len(seeds), cfg.SubscriptionsFile)
	}

	router, err := initializeNotifiers(ctx, cfg)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Notifier = router
	deps.OnClose(router.Close)

	return deps, nil
}

// initializeCache connects to memcache, falling back to an in-process cache
func initializeCache(cfg *config.Config) cache.CacheService {
	if cfg.MemcacheAddr == "" {
		logger.Info("Memcache disabled, using in-process cache")
		return cache.NewMemoryCache()
	}

	mc := cache.NewMemcacheService(cfg.MemcacheAddr)
	if err := mc.Ping(); err != nil {
		logger.Warn("Memcache at %s unreachable (%v), using in-process cache", cfg.MemcacheAddr, err)
		return cache.NewMemoryCache()
	}

	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	return mc
}

func initializeStore(ctx context.Context, cfg *config.Config, deps *internal.Dependencies) error {
	var (
		offers    store.OfferStore
		namespace string
	)

	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		db, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		deps.OnClose(db.Close)

		if err := store.Migrate(ctx, db); err != nil {
			return err
		}

		pg := store.NewPostgresStore(db)
		offers, deps.Subscriptions = pg, pg
		logger.Info("Connected to Postgres")
	case config.StoreDriverMemory:
		mem := store.NewMemoryStore()
		offers, deps.Subscriptions = mem, mem
		// seen keys from an earlier process would refer to records this one never had
		namespace = uuid.NewString()
		logger.Warn("Using in-memory store, seen offers are lost on restart")
	default:
		return fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	deps.Offers = store.NewCachedStore(offers, deps.Cache, cfg.SeenCacheTTL).WithNamespace(namespace)
	return nil
}

func initializeNotifiers(ctx context.Context, cfg *config.Config) (*notifier.Router, error) {
	router := notifier.NewRouter()
	router.Register(notifier.SchemeLog, notifier.NewLogNotifier())

	webhook := notifier.NewWebhookNotifier(notifier.WebhookConfig{Timeout: cfg.WebhookTimeout})
	router.Register(notifier.SchemeHTTP, webhook)
	router.Register(notifier.SchemeHTTPS, webhook)

	if cfg.RedisAddr != "" {
		redisNotifier := notifier.NewRedisNotifier(cfg.RedisAddr, cfg.RedisDB, notifier.DefaultStreamPrefix, cfg.RedisStreamMaxLength)
		if err := redisNotifier.Ping(ctx); err != nil {
			logger.Warn("Redis at %s unreachable (%v), redis targets will fail until it is back", cfg.RedisAddr, err)
		} else {
			logger.Info("Connected to Redis at %s (DB: %d)", cfg.RedisAddr, cfg.RedisDB)
		}
		router.Register(notifier.SchemeRedis, redisNotifier)
	}

	if cfg.RabbitMQURL != "" {
		rabbit, err := notifier.NewRabbitMQNotifier(notifier.RabbitMQConfig{
			URL:      cfg.RabbitMQURL,
			Exchange: cfg.RabbitMQExchange,
		})
		if err != nil {
			router.Close()
			return nil, err
		}
		router.Register(notifier.SchemeAMQP, rabbit)
	}

	return router, nil
}
