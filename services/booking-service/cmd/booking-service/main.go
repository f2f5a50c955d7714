package main

import (
	"context"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/md-rashed-zaman/roombook/libs/config"
	"github.com/md-rashed-zaman/roombook/libs/db"
	"github.com/md-rashed-zaman/roombook/libs/httpx"
	"github.com/md-rashed-zaman/roombook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/roombook/libs/otel"
	"github.com/md-rashed-zaman/roombook/libs/runtime"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/catalog"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/drafts"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/planner"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/recurrence"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/reservationapi"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// submissionStore is what both the Postgres and in-memory recorders offer.
type submissionStore interface {
	drafts.Recorder
	handlers.SubmissionLister
}

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
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

	backendURL, err := config.RequiredString("BACKEND_URL")
	if err != nil {
		logger.Fatal("backend config", zap.Error(err))
	}
	backend, err := reservationapi.New(ctx, reservationapi.Config{
		BaseURL:      backendURL,
		Timeout:      config.Duration("BACKEND_TIMEOUT", 10*time.Second),
		Location:     loc,
		Token:        config.String("BACKEND_TOKEN", ""),
		TokenURL:     config.String("BACKEND_TOKEN_URL", ""),
		ClientID:     config.String("BACKEND_CLIENT_ID", ""),
		ClientSecret: config.String("BACKEND_CLIENT_SECRET", ""),
		Scopes:       config.Strings("BACKEND_SCOPES", ""),
	}, logger.Named("backend"))
	if err != nil {
		logger.Fatal("backend client init failed", zap.Error(err))
	}

	checks := []runtime.ReadyCheck{{Name: "backend", Check: backend.Ping}}

	var rdb *redis.Client
	redisAddr := config.String("REDIS_ADDR", "")
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer func() { _ = rdb.Close() }()
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	var source catalog.Source = backend
	if path := config.String("CATALOG_FILE", ""); path != "" {
		fileSource, err := catalog.LoadFile(path)
		if err != nil {
			logger.Fatal("catalog file load failed", zap.String("path", path), zap.Error(err))
		}
		logger.Info("periods and settings served from file", zap.String("path", path))
		source = fileSource
	}
	var catalogStore catalog.Store = catalog.NewMemoryStore()
	if rdb != nil {
		catalogStore = catalog.NewRedisStore(rdb, "roombook:")
	}
	cat := catalog.New(source, catalogStore, config.Duration("CATALOG_TTL", 5*time.Minute), logger.Named("catalog"))

	reservations := recurrence.NewCoalescingSource(backend)
	plans := planner.New(cat, reservations, planner.Config{
		MaxDurationSettingID: config.Int("SETTING_MAX_DURATION_ID", 1),
		TimeWindowSettingID:  config.Int("SETTING_TIME_WINDOW_ID", 2),
		Location:             loc,
	}, logger.Named("planner"))
	validator := recurrence.NewValidator(reservations, loc, logger.Named("recurrence"), config.Int("VALIDATION_CONCURRENCY", 4))

	draftTTL := config.Duration("DRAFT_TTL", 24*time.Hour)
	var draftStore drafts.Store = drafts.NewMemoryStore(draftTTL)
	var publisher drafts.Publisher = drafts.NewHub()
	if rdb != nil {
		draftStore = drafts.NewRedisStore(rdb, "roombook:draft:", draftTTL)
		publisher = drafts.NewRedisPublisher(rdb, "roombook:draft-events:", logger.Named("draft-events"))
	}

	brokers := config.String("KAFKA_BROKERS", "")
	var submissions submissionStore = drafts.NewMemoryRecorder()
	if dbURL := config.String("DATABASE_URL", ""); dbURL != "" {
		pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(config.Int("DB_MAX_CONNS", 10))})
		if err != nil {
			logger.Fatal("db connection failed", zap.Error(err))
		}
		defer pool.Close()
		if err := pool.Migrate(ctx, storage.Schema...); err != nil {
			logger.Fatal("db migration failed", zap.Error(err))
		}

		outboxRepo := outbox.NewRepository(pool)
		submissions = storage.NewRecorder(storage.NewSubmissionRepository(pool), outboxRepo)
		outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger.Named("outbox"), outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
			BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
		})
		go outboxPublisher.Run(ctx)

		checks = append(checks,
			runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
			runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
		)
	} else {
		logger.Warn("DATABASE_URL not set; submissions are kept in memory and no events are published")
	}

	validationTimeout := config.Duration("VALIDATION_TIMEOUT", 30*time.Second)
	svc := drafts.NewService(drafts.Deps{
		Store:     draftStore,
		Publisher: publisher,
		Planner:   plans,
		Validator: validator,
		Backend:   backend,
		Recorder:  submissions,
	}, drafts.Config{ValidationTimeout: validationTimeout}, logger.Named("drafts"))
	defer svc.Wait()

	if config.String("VALIDATION_QUEUE", "inline") == "asynq" {
		if redisAddr == "" {
			logger.Fatal("VALIDATION_QUEUE=asynq requires REDIS_ADDR")
		}
		redisOpt := asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		}
		queue := config.String("VALIDATION_QUEUE_NAME", "recurrence")
		client := asynq.NewClient(redisOpt)
		defer func() { _ = client.Close() }()
		svc.Dispatcher = drafts.NewAsynqDispatcher(client, queue, validationTimeout)

		worker, taskMux := drafts.NewValidationWorker(redisOpt, svc, queue, config.Int("VALIDATION_WORKERS", 4), logger.Named("asynq"))
		if err := worker.Start(taskMux); err != nil {
			logger.Fatal("validation worker start failed", zap.Error(err))
		}
		defer worker.Shutdown()
	}

	router := handlers.NewRouter(handlers.Handlers{
		Engine:      handlers.NewEngineHandler(plans, validator, logger.Named("engine")),
		Drafts:      handlers.NewDraftHandler(svc, config.Strings("WS_ALLOWED_ORIGINS", ""), logger.Named("drafts")),
		Admin:       handlers.NewAdminHandler(cat, logger.Named("admin")),
		Submissions: handlers.NewSubmissionHandler(submissions, logger.Named("submissions")),
	})

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/api/v1/", router)

	var limiter httpx.Middleware
	if limit := config.Int("RATE_LIMIT_REQUESTS", 0); limit > 0 {
		limiter = httpx.NewRateLimiter(limit, config.Duration("RATE_LIMIT_WINDOW", time.Minute)).Middleware()
	}
	httpHandler := httpx.Chain(mux,
		httpx.WithRecover(logger),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		limiter,
		httpx.WithBodyLimit(int64(config.Int("HTTP_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("HTTP_HANDLER_TIMEOUT", 30*time.Second)),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runtime.Serve(ctx, srv, logger)
}
