package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aniladanir/review-messenger-service/internal/cache"
	memoryCache "github.com/aniladanir/review-messenger-service/internal/cache/memory"
	redisCache "github.com/aniladanir/review-messenger-service/internal/cache/redis"
	"github.com/aniladanir/review-messenger-service/internal/consent"
	"github.com/aniladanir/review-messenger-service/internal/domain"
	httpHandler "github.com/aniladanir/review-messenger-service/internal/handler/http"
	"github.com/aniladanir/review-messenger-service/internal/persistant/postgresql"
	"github.com/aniladanir/review-messenger-service/internal/provider"
	"github.com/aniladanir/review-messenger-service/internal/ratelimit"
	consentRepo "github.com/aniladanir/review-messenger-service/internal/repository/consent"
	contactRepo "github.com/aniladanir/review-messenger-service/internal/repository/contact"
	deliveryRepo "github.com/aniladanir/review-messenger-service/internal/repository/delivery"
	tenantRepo "github.com/aniladanir/review-messenger-service/internal/repository/tenant"
	"github.com/aniladanir/review-messenger-service/internal/service"
	"github.com/aniladanir/review-messenger-service/internal/webhook"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

var (
	configFile = flag.String("config", "config.json", "config file path")
)

func main() {
	// create root context
	appCtx, appCtxCancel := context.WithCancel(context.Background())
	defer appCtxCancel()

	// listen for terminate signal
	notifyCtx, stop := signal.NotifyContext(appCtx, syscall.SIGTERM, os.Interrupt)
	defer stop()

	// parse flags
	flag.Parse()

	// secrets may come from a local .env file
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env file: %v", err)
	}

	// parse config
	config, err := ReadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// initialize external dependencies
	db, rClient, err := initExternalDependencies(notifyCtx, config, logger)
	if err != nil {
		log.Fatalf("failed to initialize external dependencies: %v", err)
	}

	// populate database with a demo tenant
	if err := populateDatabase(db); err != nil {
		log.Fatalf("failed to populate db: %v", err)
	}

	// init repositories
	deliveries := deliveryRepo.NewDeliveryRepository(db)
	tenants := tenantRepo.NewTenantRepository(db)
	contacts := contactRepo.NewContactRepository(db)

	registry := consent.NewRegistry(
		consentRepo.NewConsentRepository(db),
		deliveries,
		logger.With(slog.String("component", "consent")),
	)

	// shared state lives in redis when available so instances agree on limits
	var (
		limiterStore ratelimit.Store
		seen         cache.Cache
	)
	if rClient != nil {
		limiterStore = ratelimit.NewRedisStore(rClient, "ratelimit")
		seen = redisCache.NewRedisCache(rClient)
	} else {
		memStore := ratelimit.NewMemoryStore()
		memStore.StartJanitor(notifyCtx, config.LimiterSweepInterval)
		limiterStore = memStore
		memCache := memoryCache.NewMemoryCache()
		memCache.StartJanitor(notifyCtx, config.LimiterSweepInterval)
		seen = memCache
	}

	// init provider
	providerCfg := provider.Config{
		BaseURL:    config.Provider.BaseURL,
		AccountSID: config.Provider.AccountSID,
		AuthToken:  config.Provider.AuthToken,
		From:       config.Provider.From,
		Timeout:    config.Provider.Timeout,
	}
	var (
		sender       provider.Sender
		webhookToken string
	)
	if providerCfg.Configured() {
		sender = provider.NewClient(providerCfg, logger.With(slog.String("component", "provider")))
		webhookToken = providerCfg.AuthToken
	} else {
		logger.Warn("provider credentials are not configured, running in offline mode without webhook signature checks")
		sender = provider.NewOffline(logger.With(slog.String("component", "provider")))
	}

	publicBaseURL := strings.TrimRight(config.PublicBaseURL, "/")

	// init message sender service
	msgSender, err := service.NewMessageSenderService(
		deliveries,
		registry,
		service.NewMonthlyPlan(tenants, deliveries),
		tenants,
		contacts,
		sender,
		logger.With(slog.String("component", "messageSender")),
		service.Options{
			CallbackURL:     publicBaseURL + "/v1/webhooks/provider",
			TrackingBaseURL: publicBaseURL,
			BatchInterval:   config.BatchInterval,
		},
	)
	if err != nil {
		log.Fatalf("failed to initiate message sender service: %v", err)
	}

	tracker := service.NewTracker(deliveries, logger.With(slog.String("component", "tracker")), config.EngagementQueueSize)

	dispatcher := webhook.NewDispatcher(
		registry,
		deliveries,
		seen,
		webhookToken,
		logger.With(slog.String("component", "webhook")),
	)

	// init http handler
	httpHandler := httpHandler.NewHttpHandler(
		httpHandler.Config{
			Addr:          fmt.Sprintf(":%d", config.HttpPort),
			PublicBaseURL: publicBaseURL,
			Limits:        rateLimits(config.RateLimits),
		},
		msgSender,
		dispatcher,
		tracker,
		service.NewLandingPages(deliveries, tenants),
		ratelimit.New(limiterStore),
		logger.With(slog.String("component", "http")),
	)

	// engagement writes outlive the http server so queued events are drained
	trackerCtx, trackerCancel := context.WithCancel(context.Background())
	trackerDone := make(chan struct{})
	go func() {
		defer close(trackerDone)
		tracker.Run(trackerCtx)
	}()

	wg := sync.WaitGroup{}
	// run http handler
	wg.Go(func() {
		if err := httpHandler.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server encountered with an error and closed", "error", err.Error())
		}
		// cancel app context if http handler fails
		appCtxCancel()
	})

	// graceful shutdown
	wg.Go(func() {
		<-notifyCtx.Done()
		logger.Info("application shutting down...")

		shutDownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()

		if err := httpHandler.Shutdown(shutDownCtx); err != nil {
			logger.Error("http server shutdown failed", "error", err.Error())
		}

		trackerCancel()
		<-trackerDone

		if rClient != nil {
			_ = rClient.Close()
		}
		postgresql.Close(db)
	})

	wg.Wait()
	os.Exit(0)
}

func initExternalDependencies(ctx context.Context, config *Config, logger *slog.Logger) (db *gorm.DB, rClient *redis.Client, err error) {
	// initialize database
	db, err = postgresql.Initialize(ctx, config.DbConnString, []any{
		&domain.DeliveryRecord{},
		&domain.ConsentRecord{},
		&domain.Tenant{},
		&domain.Template{},
		&domain.Contact{},
	})
	if err != nil {
		return
	}

	// redis is optional
	if config.RedisAddr == "" {
		logger.Warn("redis address is not configured, limiter and webhook replay state stay in process memory")
		return
	}
	rClient, err = redisCache.Connect(ctx, config.RedisAddr)

	return
}

func populateDatabase(db *gorm.DB) error {
	var tenantCount int64
	if err := db.Model(&domain.Tenant{}).Count(&tenantCount).Error; err != nil {
		return err
	}
	if tenantCount > 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		tenant := domain.Tenant{
			ID:            "demo",
			DisplayName:   "Demo Dental Studio",
			MessagingName: "Demo Dental",
			LandingURL:    "https://example.com/reviews/demo-dental",
			MonthlyLimit:  500,
		}
		if err := tx.Create(&tenant).Error; err != nil {
			return err
		}

		templates := []domain.Template{
			{
				ID:       "review-request",
				TenantID: tenant.ID,
				Body:     "Hi {{first_name}}, thanks for visiting {{business_name}} today! Would you leave us a quick review? {{link}}",
			},
			{
				ID:       "review-reminder",
				TenantID: tenant.ID,
				Body:     "Hi {{first_name}}, a quick reminder from {{business_name}}: your review means a lot to us. {{link}}",
			},
		}
		return tx.Create(&templates).Error
	})
}

func rateLimits(c RateLimitsConfig) httpHandler.RateLimits {
	rule := func(r RateLimitConfig) httpHandler.RateRule {
		return httpHandler.RateRule{Limit: r.Limit, Window: r.Window}
	}
	return httpHandler.RateLimits{
		Send:       rule(c.Send),
		Batch:      rule(c.Batch),
		Webhook:    rule(c.Webhook),
		Engagement: rule(c.Engagement),
	}
}
