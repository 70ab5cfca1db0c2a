package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/md-rashed-zaman/pharmavisit/libs/auth"
	"github.com/md-rashed-zaman/pharmavisit/libs/config"
	"github.com/md-rashed-zaman/pharmavisit/libs/db"
	"github.com/md-rashed-zaman/pharmavisit/libs/grpcx"
	"github.com/md-rashed-zaman/pharmavisit/libs/httpx"
	"github.com/md-rashed-zaman/pharmavisit/libs/kafkax"
	"github.com/md-rashed-zaman/pharmavisit/libs/metrics"
	otelx "github.com/md-rashed-zaman/pharmavisit/libs/otel"
	"github.com/md-rashed-zaman/pharmavisit/libs/runtime"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/consumer"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/directory"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/inbox"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/payments"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/session"
	"github.com/md-rashed-zaman/pharmavisit/services/booking-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	grpcPort, err := config.Port("GRPC_PORT", "9093")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))

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
	defaultLoc, err := config.Location("DEFAULT_TIMEZONE", "UTC")
	if err != nil {
		panic(err)
	}
	writeTimeout, err := config.Duration("BOOKING_WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		panic(err)
	}
	cacheTTL, err := config.Duration("DIRECTORY_CACHE_TTL", 5*time.Minute)
	if err != nil {
		panic(err)
	}
	limitPerMinute, err := config.Int("RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		panic(err)
	}
	requestTimeout, err := config.Duration("REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		panic(err)
	}

	dbOpts, err := db.OptionsFromEnv()
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, dbOpts)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if config.Bool("DB_MIGRATE", true) {
		applied, err := db.Migrate(ctx, pool, storage.Migrations())
		if err != nil {
			logger.Error("db migration failed", "err", err)
			panic(err)
		}
		logger.Info("db migrations applied", "versions", applied)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTP(reg, "pharmavisit")

	outboxRepo := outbox.NewRepository()
	repo := storage.NewRepository(pool, outboxRepo)

	readyChecks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}

	var kv directory.KV
	var limiter httpx.Limiter = httpx.NewMemoryLimiter(limitPerMinute, time.Minute)
	if addr := strings.TrimSpace(config.String("REDIS_ADDR", "")); addr != "" {
		redisDB, err := config.Int("REDIS_DB", 0)
		if err != nil {
			panic(err)
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       redisDB,
		})
		defer func() { _ = rdb.Close() }()
		kv = rdb
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})

		limiter = httpx.NewRedisLimiter(rdb, limitPerMinute, time.Minute, config.String("RATE_LIMIT_PREFIX", "rl:booking"))
		logger.Info("rate limiting backed by redis", "per_minute", limitPerMinute, "redis_addr", addr)
	}
	rateLimitMW := httpx.RateLimit(limiter, httpx.PatientOrClientKey, logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	dir := directory.NewCache(repo, kv, cacheTTL, logger)

	binder := session.NewBinder(logger)
	identityChanges := make(chan session.IdentityChange, 64)
	go binder.Run(ctx, identityChanges)

	opts := []booking.Option{
		booking.WithGuard(binder),
		booking.WithMetrics(booking.NewMetrics(reg)),
		booking.WithWriteTimeout(writeTimeout),
	}
	checkout, err := payments.NewStripeCheckout(payments.StripeConfig{
		SecretKey:   config.String("STRIPE_SECRET_KEY", ""),
		FeeCents:    int64(mustInt("VISIT_FEE_CENTS", 5000)),
		Currency:    config.String("VISIT_FEE_CURRENCY", "mxn"),
		ProductName: config.String("VISIT_PRODUCT_NAME", "Pharmacy consultation"),
		SuccessURL:  config.String("CHECKOUT_SUCCESS_URL", "http://localhost:3000/appointments?checkout=success"),
		CancelURL:   config.String("CHECKOUT_CANCEL_URL", "http://localhost:3000/appointments?checkout=cancel"),
	})
	switch {
	case err == nil:
		opts = append(opts, booking.WithCheckout(checkout))
		logger.Info("card checkout enabled (stripe)")
	case errors.Is(err, payments.ErrCheckoutNotConfigured):
		logger.Info("card checkout disabled; STRIPE_SECRET_KEY not set")
	default:
		logger.Error("card checkout misconfigured", "err", err)
	}
	svc := booking.NewService(repo, dir, logger, opts...)

	brokers := config.String("KAFKA_BROKERS", "")
	if len(kafkax.SplitBrokers(brokers)) > 0 {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})

		outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		go outboxPublisher.Run(ctx)

		inboxRepo := inbox.NewRepository(pool)
		groupID := config.String("KAFKA_GROUP_ID", "booking-service")
		directoryConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   config.String("KAFKA_DIRECTORY_TOPIC", directory.UpdatedTopic),
		}, directoryHandler(directory.NewSyncer(repo, dir, logger), logger))
		go directoryConsumer.Run(ctx)

		// Revocations live in each replica's memory: no shared group, no shared inbox.
		identityConsumer := consumer.New(logger, nil, consumer.Config{
			Brokers: brokers,
			GroupID: identityGroupID(groupID),
			Topic:   config.String("KAFKA_IDENTITY_TOPIC", identityChangedTopic),
		}, identityHandler(identityChanges, logger))
		go identityConsumer.Run(ctx)
	} else {
		logger.Warn("KAFKA_BROKERS not set; outbox publishing and directory sync disabled")
	}

	var jwksClient *auth.JWKSClient
	if jwksURL := strings.TrimSpace(config.String("JWKS_URL", "")); jwksURL != "" {
		jwksTTL, err := config.Duration("JWKS_CACHE_TTL", 5*time.Minute)
		if err != nil {
			panic(err)
		}
		jwksClient = auth.NewJWKSClient(jwksURL, jwksTTL, &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		})
	}
	verifier := auth.NewVerifier(config.String("JWT_SECRET", ""), jwksClient)

	sessions := handlers.NewSessionResolver(binder, defaultLoc)
	bookingHandler := handlers.NewBookingHandler(svc, sessions, logger)
	flowHandler := handlers.NewFlowHandler(sessions, logger)
	paymentsHandler := handlers.NewPaymentsHandler(svc, sessions, logger, handlers.PaymentsConfig{
		StripeWebhookSecret: config.String("STRIPE_WEBHOOK_SECRET", ""),
		WebhookTolerance:    5 * time.Minute,
	})

	protected := func(route string, h http.HandlerFunc) http.Handler {
		return httpMetrics.Instrument(route, requireAuth(rateLimitMW(h), verifier))
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.Handle("/api/v1/pharmacies/slots", protected("slots", bookingHandler.Slots))
	mux.Handle("/api/v1/appointments/book", protected("book", bookingHandler.Book))
	mux.Handle("/api/v1/appointments/upcoming", protected("upcoming", bookingHandler.Upcoming))
	mux.Handle("/api/v1/appointments/link-payment", protected("link_payment", bookingHandler.LinkPayment))
	mux.Handle("/api/v1/booking-flow", protected("booking_flow", flowHandler.Transition))
	mux.Handle("/api/v1/payments/checkout", protected("checkout", paymentsHandler.Checkout))
	// Stripe reaches the webhook without a JWT; the signature is the auth.
	mux.Handle("/api/v1/payments/webhooks/stripe", httpMetrics.Instrument("stripe_webhook", http.HandlerFunc(paymentsHandler.StripeWebhook)))

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.BookingCORSPolicy(config.List("CORS_ALLOWED_ORIGINS"))),
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(requestTimeout),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv, health := grpcx.NewServer(logger)
	health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	health.SetServingStatus(service, healthpb.HealthCheckResponse_SERVING)
	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
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
	health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	grpcSrv.GracefulStop()
	logger.Info("servers stopped")
}

func mustInt(key string, fallback int) int {
	v, err := config.Int(key, fallback)
	if err != nil {
		panic(err)
	}
	return v
}
