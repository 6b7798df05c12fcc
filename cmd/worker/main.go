package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hazelline/communitybot-backend/internal/starboard"
	"github.com/hazelline/communitybot-backend/pkg/config"
	"github.com/hazelline/communitybot-backend/pkg/db"
	"github.com/hazelline/communitybot-backend/pkg/discord"
	"github.com/hazelline/communitybot-backend/pkg/idempotency"
	"github.com/hazelline/communitybot-backend/pkg/logger"
	"github.com/hazelline/communitybot-backend/pkg/metrics"
	"github.com/hazelline/communitybot-backend/pkg/migrate"
	"github.com/hazelline/communitybot-backend/pkg/pubsub"
	"github.com/hazelline/communitybot-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		requireResource(ctx, logg, "dev migrations", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	discordClient, err := discord.NewClient(context.Background(), cfg.Discord, logg)
	requireResource(ctx, logg, "discord client", err)

	subscription := pubsubClient.GatewaySubscription()
	if subscription == nil {
		requireResource(ctx, logg, "gateway subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	starboardService, err := starboard.NewService(starboard.ServiceParams{
		Repo:     starboard.NewRepository(dbClient.DB()),
		Gateway:  discordClient,
		Cache:    redisClient,
		Logger:   logg,
		CacheTTL: cfg.Starboard.ConfigCacheTTL,
	})
	requireResource(ctx, logg, "starboard service", err)

	consumerMetrics := metrics.NewConsumerMetrics(prometheus.DefaultRegisterer)

	consumer, err := starboard.NewConsumer(starboardService, subscription, manager, consumerMetrics, logg)
	requireResource(ctx, logg, "starboard consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "starboard worker ready")

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "starboard worker failed", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "starboard worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
