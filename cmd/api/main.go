package main

import (
	"context"
	"log"

	"studynotes/config"
	"studynotes/internal/events"
	"studynotes/internal/handler"
	"studynotes/internal/janitor"
	"studynotes/internal/observability"
	"studynotes/internal/redis"
	"studynotes/internal/repository"
	"studynotes/internal/server"
	"studynotes/internal/services"
	"studynotes/internal/storage"
	"studynotes/internal/websocket"
	"studynotes/pkg/database"
	"studynotes/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.LoadConfig()
	l := logger.New(cfg.AppMode)
	defer l.Sync()

	ctx := context.Background()
	shutdownTracing := observability.InitTracing(ctx, l, cfg.Tracing)
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to apply GORM migrations: %v", err)
	}

	blobs, closeBlobs, err := storage.Open(ctx, cfg.ObjectStore)
	if err != nil {
		log.Fatalf("Failed to open object store: %v", err)
	}
	defer func() { _ = closeBlobs() }()

	courseRepo := repository.NewCourseRepository(db)
	contentRepo := repository.NewContentRepository(db)
	engagementRepo := repository.NewEngagementRepository(db)

	checks := []server.HealthCheck{{Name: "database", Check: func(ctx context.Context) error { return database.HealthCheck(ctx, db) }}}

	// Redis backs the cache, the limiter and cross-instance events. Without
	// it the API runs single-instance with an in-process bus.
	var (
		bus     events.Bus = events.NewLocalBus()
		cache   services.CatalogCache
		limiter *redis.RateLimiter
	)
	if client := connectRedis(ctx, cfg, l); client != nil {
		defer func() { _ = client.Close() }()
		redisBus := events.NewRedisBus(client, l)
		if err := redisBus.Start(); err != nil {
			l.Warn("redis event bus unavailable, using in-process bus", "error", err)
		} else {
			defer func() { _ = redisBus.Stop() }()
			bus = redisBus
		}
		cacheStore := redis.NewCacheStore(client, redis.DefaultCacheConfig())
		cache = cacheStore
		limiter = redis.NewRateLimiter(client, redis.RateLimitConfig{
			UploadLimit:   cfg.RateLimit.UploadLimit,
			UploadWindow:  cfg.RateLimit.UploadWindow,
			SummaryLimit:  cfg.RateLimit.SummaryLimit,
			SummaryWindow: cfg.RateLimit.SummaryWindow,
			VoteLimit:     cfg.RateLimit.VoteLimit,
			VoteWindow:    cfg.RateLimit.VoteWindow,
		})
		checks = append(checks, server.HealthCheck{Name: "redis", Check: cacheStore.Ping})
	}

	var summarizer services.Summarizer
	if cfg.Summarizer.APIKey != "" {
		summarizer = services.NewGeminiClient(services.GeminiConfig{
			APIKey:  cfg.Summarizer.APIKey,
			Model:   cfg.Summarizer.Model,
			BaseURL: cfg.Summarizer.BaseURL,
			Timeout: cfg.Summarizer.Timeout,
		})
	} else {
		l.Info("GEMINI_API_KEY not set, AI summaries disabled")
	}

	authService := services.NewAuthService(cfg.JWTSecret)
	resolver := services.NewCourseResolver(courseRepo, cache, l)
	coordinator := services.NewUploadCoordinator(resolver, contentRepo, blobs, bus, l, services.UploadCoordinatorConfig{
		CompensationTimeout: cfg.Upload.CompensationTimeout,
	})
	feed := services.NewFeedEngine(resolver, contentRepo, engagementRepo, blobs, l)
	engagement := services.NewEngagementService(contentRepo, engagementRepo, bus, l)
	summaries := services.NewSummaryService(summarizer, l)

	sweeps := janitor.NewRunner(services.NewOrphanSweeper(blobs, contentRepo, l, cfg.Upload.OrphanGracePeriod), cfg.Upload.OrphanSweepInterval, l)
	sweeps.Start(ctx)
	defer sweeps.Stop()

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Content:    handler.NewContentHandler(coordinator, feed, blobs, cfg.Upload.MaxRequestBytes),
		Engagement: handler.NewEngagementHandler(engagement),
		Course:     handler.NewCourseHandler(resolver),
		Summary:    handler.NewSummaryHandler(summaries, cfg.Upload.MaxRequestBytes),
		Live:       websocket.NewHandler(bus, resolver, l, cfg.CORSOrigins),
	}, authService, limiter, checks...)

	if err := srv.Start(); err != nil {
		l.Error("server stopped with error", "error", err)
	}
}

// connectRedis returns nil when Redis is not configured or not reachable.
func connectRedis(ctx context.Context, cfg *config.Config, l *logger.Logger) *goredis.Client {
	if cfg.RedisHost == "" {
		return nil
	}
	client := redis.NewClient(redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redis.Ping(ctx, client); err != nil {
		l.Warn("redis unreachable, running without cache, rate limits or shared events", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}
