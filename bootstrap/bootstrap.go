package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"helpmate-backend/internal/config"
	"helpmate-backend/internal/infrastructure/database"
	"helpmate-backend/internal/interfaces/router"
	"helpmate-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// App is a wired server plus the connections it owns.
type App struct {
	Config *config.Config
	Fiber  *fiber.App
	DB     *gorm.DB
	Redis  *redis.Client
}

// ConfigureLogging sets the global zerolog level; development gets the console writer.
func ConfigureLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// Connect opens the database and Redis and pings both.
func Connect(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("database open: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("database handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, nil, fmt.Errorf("database ping: %w", err)
	}

	if cfg.RedisURL == "" {
		return db, nil, nil
	}
	rdb, err := middleware.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("redis url: %w", err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return db, rdb, nil
}

// New loads configuration, connects and builds the Fiber app.
func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	ConfigureLogging(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, rdb, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app, err := router.CreateApp(cfg, db, rdb)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, Fiber: app, DB: db, Redis: rdb}, nil
}

// Close releases the connections.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}
