package config

import (
	"os"

	"github.com/joho/godotenv"
)

func Init() {
	if err := godotenv.Load(); err != nil {
		Logger.Info("No .env file found, using system environment variables")
	}

	if os.Getenv("DB_DSN") == "" {
		Logger.Fatal("DB_DSN is not set")
	}

	if os.Getenv("REDIS_ADDR") == "" {
		Logger.Fatal("REDIS_ADDR is not set")
	}

	if os.Getenv("JWT_SECRET") == "" {
		Logger.Fatal("JWT_SECRET is not set")
	}

	// The dispatch trigger endpoint is open without it outside release mode,
	// so only warn in development.
	if os.Getenv("DISPATCH_SECRET") == "" {
		if os.Getenv("GIN_MODE") == "release" {
			Logger.Fatal("DISPATCH_SECRET is not set")
		}
		Logger.Warn("DISPATCH_SECRET is not set, dispatch trigger is unauthenticated")
	}
}
