package main

import (
	"context"
	"net/http"
	"os"
	"time"

	dbadapter "crosspost/internal/adapters/database"
	"crosspost/internal/adapters/httpapi"
	"crosspost/internal/adapters/platform"
	redisadapter "crosspost/internal/adapters/redis"
	"crosspost/internal/config"
	dispatchapp "crosspost/internal/core/dispatch/service"
	"crosspost/internal/core/integration"
	integrationapp "crosspost/internal/core/integration/service"
	"crosspost/internal/core/post"
	postapp "crosspost/internal/core/post/service"
	"crosspost/internal/core/staging"
	"crosspost/internal/workers"

	"go.uber.org/zap"
)

func main() {
	config.InitLogger()
	config.Init()
	config.InitPlatforms()

	config.InitDB()

	if err := config.DB.AutoMigrate(
		&post.Post{},
		&integration.Integration{},
	); err != nil {
		config.Logger.Fatal("Error during migrations:", zap.Error(err))
	}

	config.Logger.Info("✅ Database migrations completed")

	config.InitRedis()

	defer closeResources(config.Logger)

	config.Logger.Info("App is running...")

	httpClient := &http.Client{Timeout: 30 * time.Second}

	postRepo := dbadapter.NewPostRepositoryDatabase()
	integrationRepo := dbadapter.NewIntegrationRepositoryDatabase()
	publishCache := redisadapter.NewPublishCacheRedis(config.RedisClient)
	oauthClient := platform.NewOAuthHTTPClient(httpClient, config.Platforms)
	registry := platform.NewRegistry(config.Platforms, httpClient)
	gate := staging.NewGate(config.Platforms.MediaRequired())

	tokenSvc := integrationapp.NewTokenService(integrationRepo, oauthClient, config.Logger)
	postSvc := postapp.NewPostService(postRepo, integrationRepo, publishCache, gate, config.Logger)
	dispatchSvc := dispatchapp.NewDispatchService(
		postRepo, integrationRepo, tokenSvc, registry, publishCache,
		config.Platforms.Dispatch.BatchSize, config.Logger)

	r := httpapi.SetupRoutes(postSvc, dispatchSvc)

	dispatchWorker := workers.NewDispatchWorker(
		dispatchSvc, postRepo, config.Platforms.Dispatch.CronExpression, config.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go dispatchWorker.Run(ctx)

	if err := r.Run(":" + os.Getenv("APP_PORT")); err != nil {
		config.Logger.Fatal("Server failed to start:", zap.Error(err))
	}
}

// closeResources closes the Redis and database connections.
func closeResources(logger *zap.Logger) {
	if err := config.RedisClient.Close(); err != nil {
		logger.Error("Error closing Redis connection:", zap.Error(err))
	}

	sqlDB, err := config.DB.DB()
	if err != nil {
		logger.Error("Error getting raw DB:", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("Error closing database connection:", zap.Error(err))
	}
}
