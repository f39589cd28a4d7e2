package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialhub/domain/model"
	"socialhub/domain/repository"
	"socialhub/infrastructure/cache"
	"socialhub/infrastructure/configuration"
	"socialhub/infrastructure/logger"
	"socialhub/infrastructure/persistence"
	"socialhub/infrastructure/platform"
	"socialhub/infrastructure/pubsub"
	"socialhub/infrastructure/servicebus"
	httpHandler "socialhub/interfaces/http"
	"socialhub/server"
	"socialhub/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx := context.Background()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	// Load env from files (non-destructive; OS env still has precedence)
	configuration.LoadEnvFromFile("config.env", ".env")

	app := configuration.C.App

	db, mssql, err := InitiateDatabase()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Database initialization failed")
		os.Exit(1)
	}
	if mssql {
		err = persistence.EnsureCoreSchemaMSSQL(db)
	} else {
		err = persistence.EnsureCoreSchema(db)
	}
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("failed ensuring core schema")
		os.Exit(1)
	}
	logger.GetLogger().WithField("ping", db.Ping()).Info("Database connected.")

	mongoDb, err := persistence.NewMongoDb(
		configuration.C.Database.Mongo.Host,
		configuration.C.Database.Mongo.Port,
		configuration.C.Database.Mongo.User,
		configuration.C.Database.Mongo.Password,
		configuration.C.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing without attempt archive")
		mongoDb = nil
	} else if err := persistence.PingMongo(ctx, mongoDb); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - continuing without attempt archive")
		mongoDb = nil
	}

	pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Pub/Sub not available - feed triggers disabled")
		pubSubClient = nil
	}

	azServiceBusClient, err := servicebus.NewServiceBus(ctx, configuration.C.ServiceBus.Namespace)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - operator alerts disabled")
		azServiceBusClient = nil
	}

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
		configuration.C.RedisClient.Username,
		configuration.C.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - rule state falls back to process memory")
		redisClient = nil
	}

	// Repository wiring by vendor.
	var (
		postRepository    repository.IScheduledPost
		ruleRepository    repository.IAutomationRule
		attemptRepository repository.IDispatchAttempt
		credRepository    repository.ICredential
		accountRepository repository.ITargetAccount
	)
	if mssql {
		postRepository = persistence.NewScheduledPostRepositoryMSSQL(db)
		ruleRepository = persistence.NewAutomationRuleRepositoryMSSQL(db)
		attemptRepository = persistence.NewDispatchAttemptRepositoryMSSQL(db)
		credRepository = persistence.NewCredentialRepositoryMSSQL(db)
		accountRepository = persistence.NewTargetAccountRepositoryMSSQL(db)
	} else {
		postRepository = persistence.NewScheduledPostRepository(db)
		ruleRepository = persistence.NewAutomationRuleRepository(db)
		attemptRepository = persistence.NewDispatchAttemptRepository(db)
		credRepository = persistence.NewCredentialRepository(db)
		accountRepository = persistence.NewTargetAccountRepository(db)
	}

	registryConfig := buildRegistryConfig(configuration.C.Platforms)
	registry := platform.NewRegistry(registryConfig, nil)
	refresher := platform.NewOAuthRefresher(registryConfig)

	alertSink := servicebus.NewAlertSink(azServiceBusClient, configuration.C.ServiceBus.AlertQueue)
	ruleState := cache.NewRuleStateCache(redisClient)
	ledger := usecase.NewLedger(attemptRepository, persistence.NewAttemptArchive(mongoDb))
	credentialManager := usecase.NewCredentialManager(
		credRepository,
		refresher,
		time.Duration(configuration.C.Credential.RefreshMarginMinutes)*time.Minute,
	)

	scheduler := usecase.NewPublishScheduler(
		postRepository,
		accountRepository,
		registry,
		credentialManager,
		ledger,
		alertSink,
		usecase.SchedulerConfig{
			PollInterval:    time.Duration(configuration.C.Scheduler.PollIntervalSec) * time.Second,
			ClaimBatchSize:  configuration.C.Scheduler.ClaimBatchSize,
			Lease:           time.Duration(configuration.C.Scheduler.LeaseMinutes) * time.Minute,
			MaxAttempts:     configuration.C.Scheduler.MaxAttempts,
			MaxConcurrent:   int64(configuration.C.Scheduler.MaxConcurrent),
			DispatchTimeout: time.Duration(configuration.C.Scheduler.DispatchTimeoutSec) * time.Second,
		},
	)
	ruleEngine := usecase.NewRuleEngine(
		ruleRepository,
		postRepository,
		accountRepository,
		registry,
		credentialManager,
		ledger,
		ruleState,
		alertSink,
		usecase.RuleEngineConfig{
			TickInterval:    time.Duration(configuration.C.RuleEngine.TickIntervalSec) * time.Second,
			DispatchTimeout: time.Duration(configuration.C.Scheduler.DispatchTimeoutSec) * time.Second,
		},
	)

	postUsecase := usecase.NewPostUsecase(postRepository, ledger)
	ruleUsecase := usecase.NewRuleUsecase(ruleRepository, ledger)

	postHandler := httpHandler.NewPostHandler(postUsecase)
	ruleHandler := httpHandler.NewRuleHandler(ruleUsecase)
	statusHandler := httpHandler.NewStatusHandler(registry, scheduler)

	router := server.InitiateRouter(postHandler, ruleHandler, statusHandler)

	g.Go(func() error {
		return scheduler.Run(ctx)
	})

	eventBuffer := configuration.C.RuleEngine.EventBuffer
	if eventBuffer <= 0 {
		eventBuffer = 64
	}
	events := make(chan model.FeedEvent, eventBuffer)
	g.Go(func() error {
		return ruleEngine.Run(ctx, events)
	})
	if pubSubClient != nil {
		feedConsumer := pubsub.NewFeedConsumer(
			pubSubClient,
			configuration.C.Pubsub.ContentSub,
			configuration.C.Pubsub.EngagementSub,
			configuration.C.Pubsub.HashtagSub,
		)
		g.Go(func() error {
			defer close(events)
			return feedConsumer.Consume(ctx, events)
		})
	}

	port := app.Port
	logger.GetLogger().WithField("port", port).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

// InitiateDatabase picks the SQL vendor: MSSQL when DB_VENDOR=mssql or in
// production, PostgreSQL otherwise. The bool reports which vendor was chosen.
func InitiateDatabase() (*sql.DB, bool, error) {
	env := os.Getenv("ENV")
	if v := os.Getenv("DB_VENDOR"); v == "mssql" || env == "production" || env == "prod" {
		db, err := persistence.NewMSSQLDB()
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Cannot connect to MSSQL")
			return nil, true, err
		}
		return db, true, nil
	}
	db, err := persistence.NewPostgreSQLDB()
	return db, false, err
}

func buildRegistryConfig(p configuration.Platforms) platform.RegistryConfig {
	cfg := platform.RegistryConfig{}
	for name, pc := range map[string]configuration.Platform{
		"facebook":  p.Facebook,
		"twitter":   p.Twitter,
		"instagram": p.Instagram,
		"linkedin":  p.LinkedIn,
		"youtube":   p.YouTube,
		"tiktok":    p.TikTok,
	} {
		cfg[name] = platform.PlatformConfig{
			ClientID:      pc.ClientID,
			ClientSecret:  pc.ClientSecret,
			TokenURL:      pc.TokenURL,
			BaseURL:       pc.BaseURL,
			RatePerSecond: pc.RatePerSecond,
			Burst:         pc.Burst,
		}
	}
	return cfg
}
