package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/libs/config"
	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/salonbook/libs/otel"
	"github.com/md-rashed-zaman/salonbook/libs/runtime"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/grpcserver"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/lock"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
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
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	adminSecret, err := config.RequiredString("ADMIN_JWT_SECRET")
	if err != nil {
		panic(err)
	}
	salonLoc, err := config.Location("SALON_TIMEZONE", "Europe/Moscow")
	if err != nil {
		panic(err)
	}
	lockTTL, err := config.Duration("BOOKING_LOCK_TTL", 10*time.Second)
	if err != nil {
		panic(err)
	}
	ratePerMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 30)
	if err != nil {
		panic(err)
	}
	kafkaBrokers := config.String("KAFKA_BROKERS", "")

	pool, err := db.Open(ctx, dbURL, db.Options{})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: config.String("REDIS_ADDR", "localhost:6379")})
	defer rdb.Close()
	redisReady := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

	outboxRepo := outbox.NewRepository()
	publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go publisher.Run(ctx)

	svc := booking.NewService(
		storage.NewAppointmentRepository(pool, outboxRepo),
		storage.NewCatalogRepository(pool),
		storage.NewHoursRepository(pool),
		lock.NewRedisLocker(rdb, lock.Config{TTL: lockTTL, Wait: 2 * time.Second, Prefix: "booking:lock"}),
		logger,
		booking.Config{Location: salonLoc},
	)
	h := handlers.NewBookingHandler(svc, logger)
	issuer := auth.NewIssuer(adminSecret)

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "redis", Check: redisReady},
	}
	if kafkaBrokers != "" {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)

	var limiter httpx.Limiter = httpx.NewRedisLimiter(rdb, ratePerMinute, time.Minute, "booking:rl")
	if config.String("RATE_LIMIT_BACKEND", "redis") == "memory" {
		limiter = httpx.NewMemoryLimiter(ratePerMinute, time.Minute)
	}
	limited := httpx.RateLimit(limiter, httpx.ClientIP, logger, true)
	admin := httpx.Middleware(auth.RequireRole(issuer, auth.RoleAdmin))
	identify := httpx.Middleware(auth.Identify(issuer))

	mux.HandleFunc("/api/v1/public/services", h.Services)
	mux.HandleFunc("/api/v1/public/slots", h.Slots)
	mux.HandleFunc("/api/v1/public/calendar", h.Calendar)
	mux.Handle("/api/v1/public/book", httpx.Chain(http.HandlerFunc(h.Book), limited))
	mux.HandleFunc("/api/v1/appointments", h.List)
	mux.Handle("/api/v1/appointments/cancel", httpx.Chain(http.HandlerFunc(h.Cancel), identify, limited))
	mux.Handle("/api/v1/appointments/reschedule", httpx.Chain(http.HandlerFunc(h.Reschedule), identify, limited))
	mux.Handle("/api/v1/admin/appointments", httpx.Chain(http.HandlerFunc(h.Delete), admin))
	mux.Handle("/api/v1/admin/appointments/agenda", httpx.Chain(http.HandlerFunc(h.Agenda), admin))
	mux.Handle("/api/v1/admin/appointments/manual", httpx.Chain(http.HandlerFunc(h.ManualBook), admin))
	mux.Handle("/api/v1/admin/appointments/complete", httpx.Chain(http.HandlerFunc(h.Complete), admin))
	mux.Handle("/api/v1/admin/working-hours", httpx.Chain(http.HandlerFunc(h.WorkingHours), admin))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Authorization", "Content-Type", "Idempotency-Key", httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(64<<10),
		httpx.WithTimeout(10*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")

	grpcSrv := grpcserver.New(logger)
	health := grpcserver.RegisterHealth(grpcSrv, service, logger, checks...)
	go health.Run(ctx, 10*time.Second)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	go grpcserver.Serve(ctx, logger, grpcSrv, lis)

	runtime.ServeHTTP(ctx, logger, &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}, 10*time.Second)
}
