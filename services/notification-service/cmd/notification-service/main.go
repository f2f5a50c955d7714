package main

import (
	"context"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/roombook/libs/config"
	"github.com/md-rashed-zaman/roombook/libs/db"
	"github.com/md-rashed-zaman/roombook/libs/httpx"
	"github.com/md-rashed-zaman/roombook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/roombook/libs/otel"
	"github.com/md-rashed-zaman/roombook/libs/runtime"
	"github.com/md-rashed-zaman/roombook/services/notification-service/internal/consumer"
	"github.com/md-rashed-zaman/roombook/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/roombook/services/notification-service/internal/inbox"
	"github.com/md-rashed-zaman/roombook/services/notification-service/internal/notify"
	"github.com/md-rashed-zaman/roombook/services/notification-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8085")
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

	loc, err := time.LoadLocation(config.String("TIMEZONE", "UTC"))
	if err != nil {
		logger.Fatal("invalid TIMEZONE", zap.Error(err))
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		logger.Fatal("db config", zap.Error(err))
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(config.Int("DB_MAX_CONNS", 5))})
	if err != nil {
		logger.Fatal("db connection failed", zap.Error(err))
	}
	defer pool.Close()
	if err := pool.Migrate(ctx, inbox.Schema, storage.Schema); err != nil {
		logger.Fatal("db migration failed", zap.Error(err))
	}

	var sender email.Sender
	if host := config.String("SMTP_HOST", ""); host != "" {
		sender = email.NewSMTPSender(
			host,
			config.String("SMTP_PORT", "1025"),
			config.String("SMTP_FROM", "no-reply@roombook.local"),
			config.String("SMTP_USERNAME", ""),
			config.String("SMTP_PASSWORD", ""),
		)
	} else {
		logger.Warn("SMTP_HOST not set; emails are written to the log")
		sender = email.NewLogSender(logger.Named("email"))
	}

	brokers := config.String("KAFKA_BROKERS", "")
	handler := notify.NewHandler(sender, storage.NewRepository(pool), loc, logger.Named("notify"))
	if len(kafkax.SplitBrokers(brokers)) == 0 {
		logger.Warn("KAFKA_BROKERS not set; submission events are not consumed")
	} else {
		eventConsumer := consumer.New(logger.Named("consumer"), inbox.NewRepository(pool), consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "notification-service"),
			Topic:   config.String("KAFKA_CONSUME_TOPIC", notify.EventReservationSubmitted),
			Retries: config.Int("CONSUMER_RETRIES", 3),
			Backoff: config.Duration("CONSUMER_BACKOFF", time.Second),
		}, handler.Handle)
		go eventConsumer.Run(ctx)
	}

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	httpHandler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runtime.Serve(ctx, srv, logger)
}
