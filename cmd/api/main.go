package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/hazelline/communitybot-backend/api/routes"
	"github.com/hazelline/communitybot-backend/internal/relationships"
	"github.com/hazelline/communitybot-backend/internal/starboard"
	"github.com/hazelline/communitybot-backend/pkg/config"
	"github.com/hazelline/communitybot-backend/pkg/db"
	"github.com/hazelline/communitybot-backend/pkg/discord"
	"github.com/hazelline/communitybot-backend/pkg/logger"
	"github.com/hazelline/communitybot-backend/pkg/migrate"
	"github.com/hazelline/communitybot-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	discordClient, err := discord.NewClient(context.Background(), cfg.Discord, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap discord client", err)
		os.Exit(1)
	}

	relationshipService, err := relationships.NewService(relationships.ServiceParams{
		Repo: relationships.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create relationship service", err)
		os.Exit(1)
	}

	starboardService, err := starboard.NewService(starboard.ServiceParams{
		Repo:     starboard.NewRepository(dbClient.DB()),
		Gateway:  discordClient,
		Cache:    redisClient,
		Logger:   logg,
		CacheTTL: cfg.Starboard.ConfigCacheTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create starboard service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, relationshipService, starboardService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
