package main

import (
	"os"
	"os/signal"
	"syscall"

	"helpmate-backend/bootstrap"
	"helpmate-backend/internal/application/reconcile"
	"helpmate-backend/internal/infrastructure/database"
	"helpmate-backend/internal/interfaces/router"

	"github.com/rs/zerolog/log"
)

func main() {
	app, err := bootstrap.New()
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer app.Close()
	cfg := app.Config

	if err := database.AutoMigrate(app.DB); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	if cfg.ReconcileSchedule != "" {
		store := database.NewStore(app.DB)
		svc := reconcile.NewService(store, router.StatsCache(app.Redis, cfg.StatsCacheTTL))
		sched, err := reconcile.NewScheduler(svc, cfg.ReconcileSchedule)
		if err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.ReconcileSchedule).Msg("invalid reconcile schedule")
		}
		sched.Start()
		defer sched.Stop()
		log.Info().Str("schedule", cfg.ReconcileSchedule).Msg("reconciler scheduled")
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info().Msg("shutting down")
		_ = app.Fiber.Shutdown()
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Server running")
	log.Info().Msgf("Health check: http://localhost:%s/health/json", cfg.Port)
	if err := app.Fiber.Listen(":" + cfg.Port); err != nil {
		log.Error().Err(err).Msg("server stopped")
	}
}
