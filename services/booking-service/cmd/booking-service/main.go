package main

import (
	"net/http"
	"time"

	"github.com/md-rashed-zaman/staybook/libs/auth"
	"github.com/md-rashed-zaman/staybook/libs/config"
	"github.com/md-rashed-zaman/staybook/libs/grpcx"
	"github.com/md-rashed-zaman/staybook/libs/httpx"
	otelx "github.com/md-rashed-zaman/staybook/libs/otel"
	"github.com/md-rashed-zaman/staybook/libs/runtime"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/policy"
	"github.com/md-rashed-zaman/staybook/services/booking-service/internal/reservations"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := runtime.ShutdownContext(5 * time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	policies, err := policy.FromEnv()
	if err != nil {
		logger.Error("invalid booking policy", "err", err)
		panic(err)
	}
	rooms, err := model.ParseRooms(config.String("ROOMS", ""))
	if err != nil {
		logger.Error("invalid room catalogue", "err", err)
		panic(err)
	}

	backend, err := openBackend(ctx, logger)
	if err != nil {
		logger.Error("storage init failed", "err", err)
		panic(err)
	}
	defer backend.close()
	for _, room := range rooms {
		if err := backend.store.UpsertRoom(ctx, room); err != nil {
			logger.Error("room seed failed", "room_id", room.ID, "err", err)
			panic(err)
		}
	}
	logger.Info("rooms loaded", "count", len(rooms))

	svc := reservations.NewService(backend.store, policies, reservations.RealClock{}, logger)
	staffAuth, err := staffAuthenticator()
	if err != nil {
		panic(err)
	}

	mux := runtime.NewBaseMuxWithReady(backend.ready...)
	handlers.NewHandler(svc, logger).Register(mux, staffAuth)

	middleware, closeLimiter, err := httpMiddleware(logger)
	if err != nil {
		panic(err)
	}
	defer closeLimiter()
	httpHandler := httpx.Chain(mux, middleware...)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv, health := grpcx.NewServer(logger)
	checks := make([]grpcx.HealthCheck, 0, len(backend.ready))
	for _, rc := range backend.ready {
		checks = append(checks, rc.Check)
	}
	go grpcx.WatchHealth(ctx, logger, health, service, 10*time.Second, checks...)
	go func() {
		if err := grpcx.Serve(ctx, logger, grpcSrv, ":"+grpcPort); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := runtime.ShutdownContext(10 * time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}

func staffAuthenticator() (httpx.Middleware, error) {
	ttl, err := config.Minutes("JWKS_TTL_MINUTES", 10)
	if err != nil {
		return nil, err
	}
	v := auth.TokenVerifier{Secret: config.String("JWT_SECRET", "")}
	if url := config.String("JWKS_URL", ""); url != "" {
		v.JWKS = auth.NewJWKSClient(url, ttl)
	}
	return auth.RequireAuth(v), nil
}
