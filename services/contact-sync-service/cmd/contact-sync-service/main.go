package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/purchasesync/libs/config"
	"github.com/md-rashed-zaman/purchasesync/libs/httpx"
	"github.com/md-rashed-zaman/purchasesync/libs/kafkax"
	otelx "github.com/md-rashed-zaman/purchasesync/libs/otel"
	"github.com/md-rashed-zaman/purchasesync/libs/redisx"
	"github.com/md-rashed-zaman/purchasesync/libs/runtime"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/contacts"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/crm"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/events"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/handlers"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/idempotency"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/owners"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/pipeline"
	"github.com/md-rashed-zaman/purchasesync/services/contact-sync-service/internal/webhookauth"
)

func main() {
	service := config.String("SERVICE_NAME", "contact-sync-service")
	port, err := config.Port("PORT", "8080")
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

	hubspotToken := config.String("HUBSPOT_TOKEN", "")
	if hubspotToken == "" {
		logger.Warn("HUBSPOT_TOKEN not set; every contact sync will fail")
	}
	secret := config.String("HOTMART_SECRET", "")
	if secret == "" {
		logger.Warn("HOTMART_SECRET not set; webhook accepts unauthenticated requests")
	}

	var readyChecks []runtime.ReadyCheck

	var rdb *redis.Client
	if redisURL := config.String("REDIS_URL", ""); redisURL != "" {
		rdb, err = redisx.Open(ctx, redisURL)
		if err != nil {
			logger.Error("redis connection failed", "err", err)
			panic(err)
		}
		defer rdb.Close()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: redisx.ReadyCheck(rdb)})
	}

	var guard idempotency.Guard
	if rdb != nil {
		guard = idempotency.NewRedisGuard(rdb, idempotency.DefaultRetention, config.String("REDIS_KEY_PREFIX", "contact-sync:event"))
		logger.Info("idempotency guard: redis")
	} else {
		mem := idempotency.NewMemoryGuard(idempotency.DefaultRetention)
		go mem.Run(ctx, time.Minute)
		guard = mem
		logger.Info("idempotency guard: in-memory")
	}

	crmClient := crm.NewClient(crm.Config{
		BaseURL:    config.String("HUBSPOT_BASE_URL", crm.DefaultBaseURL),
		Token:      hubspotToken,
		Timeout:    config.Seconds("CRM_TIMEOUT_SECONDS", 10*time.Second),
		MaxRetries: config.Int("CRM_MAX_RETRIES", 2),
	}, logger)
	resolver := owners.NewResolver(config.String("OWNER_EMAIL", ""), crmClient, logger)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	publisher := events.NewKafkaPublisher(events.KafkaConfig{
		Brokers: kafkaBrokers,
		Topic:   config.String("KAFKA_TOPIC", events.DefaultTopic),
	}, logger)
	if kp, ok := publisher.(*events.KafkaPublisher); ok {
		defer kp.Close()
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}

	svc := pipeline.NewService(guard, contacts.NewClient(crmClient, resolver), publisher, logger)
	h := handlers.New(webhookauth.New(secret), svc, logger, handlers.Config{
		BodyLimitBytes: int64(config.Int("WEBHOOK_BODY_LIMIT_BYTES", 1<<20)),
	})

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", h.Index)
	mux.Handle("/hotmart", webhookHandler(h, rdb, logger))

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecover(logger),
	)
	handler = otelhttp.NewHandler(handler, "contact-sync")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if err := runtime.Serve(ctx, srv, logger, 10*time.Second); err != nil {
		logger.Error("http server error", "err", err)
	}
}

// webhookHandler applies the body limit and, when configured, the rate limit.
func webhookHandler(h *handlers.Handler, rdb *redis.Client, logger *slog.Logger) http.Handler {
	mws := []httpx.Middleware{httpx.WithBodyLimit(int64(config.Int("WEBHOOK_BODY_LIMIT_BYTES", 1<<20)))}

	if perMinute := config.Int("WEBHOOK_RATE_LIMIT_PER_MINUTE", 0); perMinute > 0 {
		var limiter httpx.Limiter = httpx.NewRateLimiter(perMinute, time.Minute)
		if rdb != nil {
			limiter = httpx.NewRedisRateLimiter(rdb, perMinute, time.Minute, "contact-sync:rl")
		}
		mws = append(mws, httpx.WithRateLimit(limiter, logger, config.Bool("WEBHOOK_RATE_LIMIT_FAIL_OPEN", true)))
	}
	return httpx.Chain(http.HandlerFunc(h.Webhook), mws...)
}
