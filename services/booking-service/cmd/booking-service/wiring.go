package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/staybook/libs/config"
	"github.com/md-rashed-zaman/staybook/libs/db"
	"github.com/md-rashed-zaman/staybook/libs/httpx"
	"github.com/md-rashed-zaman/staybook/libs/kafkax"
	"github.com/md-rashed-zaman/staybook/libs/runtime"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
)

type roomStore interface {
	storage.Store
	storage.RoomWriter
}

type backend struct {
	store roomStore
	ready []runtime.ReadyCheck
	close func()
}

// openBackend uses Postgres when DATABASE_URL is set and an in-memory store otherwise.
func openBackend(ctx context.Context, logger *slog.Logger) (*backend, error) {
	dbURL := config.String("DATABASE_URL", "")
	if dbURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		return &backend{store: storage.NewMemoryStore(), close: func() {}}, nil
	}

	maxConns, err := config.Int("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	pool, err := db.OpenWithOptions(ctx, dbURL, db.Options{MaxConns: int32(maxConns)})
	if err != nil {
		return nil, err
	}
	if config.Bool("AUTO_MIGRATE", true) {
		applied, err := storage.Migrate(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("migrations applied", "files", applied)
	}

	events := outbox.NewRepository()
	brokers := config.String("KAFKA_BROKERS", "")
	publisher := outbox.NewPublisher(pool, events, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	return &backend{
		store: storage.NewBookingRepository(pool, events),
		ready: []runtime.ReadyCheck{
			{Name: "db", Check: db.ReadyCheck(pool)},
			{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
		},
		close: pool.Close,
	}, nil
}

// httpMiddleware builds the outer chain; the returned func releases the Redis client.
func httpMiddleware(logger *slog.Logger) ([]httpx.Middleware, func(), error) {
	bodyLimit, err := config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20)
	if err != nil {
		return nil, nil, err
	}
	timeoutSeconds, err := config.Int("REQUEST_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, nil, err
	}
	limitPerMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {}
	var rateLimit httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0)
		if err != nil {
			return nil, nil, err
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		closeFn = func() { _ = rdb.Close() }
		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "booking"))
		rateLimit = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("rate limiting enabled (redis)", "per_minute", limitPerMinute, "redis_addr", addr)
	} else {
		rateLimit = httpx.NewRateLimiter(limitPerMinute, time.Minute).Middleware()
		logger.Info("rate limiting enabled (in-memory)", "per_minute", limitPerMinute)
	}

	return []httpx.Middleware{
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.DefaultCORSPolicy(config.List("CORS_ALLOWED_ORIGINS"))),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(bodyLimit)),
		httpx.WithTimeout(time.Duration(timeoutSeconds) * time.Second),
		rateLimit,
	}, closeFn, nil
}
