package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"helpmate-backend/bootstrap"
	"helpmate-backend/internal/application/projects"
	"helpmate-backend/internal/application/reconcile"
	"helpmate-backend/internal/config"
	"helpmate-backend/internal/infrastructure/database"
	"helpmate-backend/internal/interfaces/router"
	"helpmate-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// env is what every subcommand needs: config plus open connections.
type env struct {
	cfg *config.Config
	db  *gorm.DB
	rdb *redis.Client
}

func connect(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	bootstrap.ConfigureLogging(cfg)
	db, rdb, err := bootstrap.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, db: db, rdb: rdb}, nil
}

func (e *env) close() {
	(&bootstrap.App{DB: e.db, Redis: e.rdb}).Close()
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()
			if err := database.AutoMigrate(e.db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newReconcileCmd() *cobra.Command {
	var repair bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Check derived project fields against their source records",
		Long:  "Recomputes donation totals, volunteer counts, task counters, hours and progress for every project and reports drift. With --repair the stored values are overwritten.",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()
			svc := reconcile.NewService(database.NewStore(e.db), router.StatsCache(e.rdb, e.cfg.StatsCacheTTL))
			report, err := svc.Run(cmd.Context(), repair)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, report); err != nil {
				return err
			}
			if len(report.Drift) > 0 && !repair {
				return fmt.Errorf("%d drifted field(s) found; rerun with --repair to fix", len(report.Drift))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&repair, "repair", false, "Overwrite drifted fields with recomputed values")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var organizer string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print project statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			var organizerID *uuid.UUID
			if organizer != "" {
				id, err := validation.ParseUUID(organizer, "organizer id")
				if err != nil {
					return err
				}
				organizerID = &id
			}
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close()
			svc := projects.NewService(database.NewStore(e.db), nil, e.cfg.StatsCacheTTL)
			st, err := svc.Stats(cmd.Context(), organizerID)
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		},
	}
	cmd.Flags().StringVar(&organizer, "organizer", "", "Limit to one organizer's projects")
	return cmd
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "helpmate-admin",
		Short:         "Operator tasks for the HelpMate backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(), newReconcileCmd(), newStatsCmd())
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
