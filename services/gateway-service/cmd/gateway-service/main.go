package main

import (
	"context"
	"embed"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/roombook/libs/auth"
	"github.com/md-rashed-zaman/roombook/libs/config"
	"github.com/md-rashed-zaman/roombook/libs/httpx"
	otelx "github.com/md-rashed-zaman/roombook/libs/otel"
	"github.com/md-rashed-zaman/roombook/libs/runtime"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

//go:embed assets/gateway.v1.yaml
var openAPISpec embed.FS

func main() {
	service := config.String("SERVICE_NAME", "gateway-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)
	defer func() { _ = logger.Sync() }()

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", zap.Error(err))
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var jwks *auth.JWKS
	if jwksURL := config.String("JWKS_URL", ""); jwksURL != "" {
		jwks, err = auth.NewJWKS(jwksURL, config.Duration("JWKS_CACHE_SECONDS", 5*time.Minute), logger.Named("jwks"))
		if err != nil {
			logger.Fatal("jwks fetch failed", zap.String("url", jwksURL), zap.Error(err))
		}
		defer jwks.Close()
	}
	verifier := auth.NewVerifier(config.String("JWT_SECRET", "dev-secret"), jwks)

	bookingURL, err := parseUpstream(config.String("BOOKING_URL", "http://booking-service:8083"))
	if err != nil {
		logger.Fatal("invalid BOOKING_URL", zap.Error(err))
	}

	mux := runtime.NewBaseMuxWithReady()
	registerRoutes(mux, newProxy(bookingURL, logger), verifier)

	limitPerMinute := config.Int("RATE_LIMIT_PER_MINUTE", 60)
	var rateLimitMW httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()

		rl := httpx.NewRedisRateLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl"))
		rateLimitMW = rl.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
		logger.Info("rate limiting enabled (redis)", zap.Int("per_minute", limitPerMinute), zap.String("redis_addr", addr))
	} else {
		rateLimitMW = httpx.NewRateLimiter(limitPerMinute, time.Minute).Middleware()
		logger.Info("rate limiting enabled (in-memory)", zap.Int("per_minute", limitPerMinute))
	}

	handler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.Strings("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods:   config.Strings("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders:   config.Strings("CORS_ALLOWED_HEADERS", "Authorization,Content-Type,X-Request-Id,Idempotency-Key"),
			ExposedHeaders:   []string{"X-Request-Id", "Idempotent-Replayed"},
			AllowCredentials: config.Bool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           config.Duration("CORS_MAX_AGE_SECONDS", 10*time.Minute),
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT_SECONDS", 30*time.Second)),
		rateLimitMW,
	)
	handler = otelhttp.NewHandler(handler, "gateway")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runtime.Serve(ctx, srv, logger)
}
