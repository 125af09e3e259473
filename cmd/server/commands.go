package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vytor/chesscycles/internal/achievements"
	"github.com/vytor/chesscycles/internal/api"
	"github.com/vytor/chesscycles/internal/auth"
	"github.com/vytor/chesscycles/internal/config"
	"github.com/vytor/chesscycles/internal/db"
	"github.com/vytor/chesscycles/internal/jobs"
	"github.com/vytor/chesscycles/internal/logger"
	"github.com/vytor/chesscycles/internal/repository/sqlite"
	"github.com/vytor/chesscycles/internal/services"
	"github.com/vytor/chesscycles/internal/worker"
)

const (
	retryBackoff    = 2 * time.Second
	shutdownTimeout = 30 * time.Second
)

type rootOptions struct {
	cfg config.Config
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "chesscycles",
		Short:         "Training progress engine for spaced puzzle cycles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.cfg = config.Load()
			if err := opts.cfg.Validate(); err != nil {
				return err
			}
			logger.SetDefault(logger.New(
				logger.WithLevel(logger.ParseLevel(opts.cfg.LogLevel)),
				logger.WithOutput(cmd.ErrOrStderr()),
				logger.WithColors(true),
			))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts.cfg)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts.cfg)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and seed the achievement catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDatabase(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer database.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "database %s is up to date\n", opts.cfg.DBPath)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "achievements",
		Short: "Print the achievement catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printCatalog(cmd.OutOrStdout(), achievements.Default())
		},
	})

	cmd.AddCommand(newTokenCommand(opts))

	return cmd
}

func newTokenCommand(opts *rootOptions) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Mint a signed API token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.IdentityMode != auth.ModeJWT {
				return fmt.Errorf("tokens are only used when IDENTITY_MODE is %s", auth.ModeJWT)
			}
			token, err := auth.IssueToken(opts.cfg.JWTSecret, args[0], ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	return cmd
}

// openDatabase opens the store and brings the catalog rows up to date.
func openDatabase(ctx context.Context, cfg config.Config) (*db.DB, error) {
	log := logger.Default()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	catalog := achievements.Default()
	if err := sqlite.NewAchievementRepository(database).SyncCatalog(ctx, catalog.All()); err != nil {
		database.Close()
		return nil, fmt.Errorf("sync achievement catalog: %w", err)
	}
	log.Info("achievement catalog synced: %d entries", catalog.Size())
	return database, nil
}

func printCatalog(w io.Writer, catalog *achievements.Catalog) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIER\tCATEGORY\tNAME")
	for _, d := range catalog.All() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ID, d.Tier(), d.Category, d.Name)
	}
	return tw.Flush()
}

func serve(ctx context.Context, cfg config.Config) error {
	log := logger.Default()

	log.Info("===========================================")
	log.Info("chesscycles server starting")
	log.Info("===========================================")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("identity_mode=%s", cfg.IdentityMode)
	if cfg.IdentityMode == auth.ModeHeader {
		log.Warn("trusting %s from the fronting proxy as the caller identity", cfg.IdentityHeader)
	}
	log.Debug("achievement_worker_count=%d", cfg.AchievementWorkerCount)
	log.Debug("achievement_queue_size=%d", cfg.AchievementQueueSize)
	log.Debug("achievement_max_retries=%d", cfg.AchievementMaxRetries)

	identity, err := cfg.Identity()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	catalog := achievements.Default()
	xpCfg := cfg.XP()

	achievementService := services.NewAchievementService(catalog, sqlite.NewAchievementRepository(database))

	pool := worker.NewPool("achievements", cfg.AchievementWorkerCount, cfg.AchievementQueueSize)
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	pool.Start(workerCtx)
	queue := jobs.NewWorkerQueue(pool, achievementService, cfg.AchievementMaxRetries, retryBackoff)

	srv := &api.Server{
		Attempts: services.NewAttemptService(services.Repositories{
			Sets:     sqlite.NewPuzzleSetRepository(database),
			Attempts: sqlite.NewAttemptRepository(database),
		}, achievementService, queue, xpCfg),
		Progress:     services.NewProgressService(sqlite.NewUserRepository(database), xpCfg),
		Achievements: achievementService,
		DB:           database,
		Identity:     identity,
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			pool.Stop()
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received, initiating graceful shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	// Pending evaluations are dropped; the pool must stop before the database closes.
	if n := pool.QueueSize(); n > 0 {
		log.Warn("dropping %d queued achievement evaluations", n)
	}
	pool.Stop()

	log.Info("chesscycles server stopped")
	return nil
}
