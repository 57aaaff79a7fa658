package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gdps-dev/gdps/internal/backup"
	"github.com/gdps-dev/gdps/internal/blob"
	"github.com/gdps-dev/gdps/internal/httpserver"
	"github.com/gdps-dev/gdps/internal/levels"
	"github.com/gdps-dev/gdps/internal/logging"
	"github.com/gdps-dev/gdps/internal/metrics"
	"github.com/gdps-dev/gdps/internal/model"
	"github.com/gdps-dev/gdps/internal/seed"
	"github.com/gdps-dev/gdps/internal/store"
	"github.com/gdps-dev/gdps/internal/users"
)

// runServer wires storage, services and the HTTP API, then blocks until a
// termination signal arrives.
func runServer(cfg appConfig) error {
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	m := metrics.New()

	st, err := store.NewStore(store.Config{
		Driver:               cfg.DBDriver,
		Path:                 cfg.DBPath,
		DSN:                  cfg.DBDSN,
		QueryTimeout:         cfg.QueryTimeout,
		MaxConcurrentQueries: cfg.MaxConcurrentReads,
		Logger:               logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize level data store: %w", err)
	}

	if cfg.SeedFile != "" {
		if err := seedIfEmpty(ctx, st, blobs, cfg.SeedFile, logger); err != nil {
			return err
		}
	}

	downloads := store.NewDownloadCounter(st, store.DownloadCounterConfig{
		BatchSize:     cfg.DownloadBatchSize,
		FlushInterval: cfg.DownloadFlush,
		Logger:        logger,
		OnFlush:       m.RecordDownloadFlush,
	})
	defer downloads.Stop()

	purger := store.NewPurger(st, store.PurgeConfig{
		AfterDays: cfg.PurgeAfterDays,
		Blobs:     blobs,
		Logger:    logger,
		OnPurge:   m.RecordPurged,
	})
	if purger != nil {
		defer purger.Stop()
	}

	backupManager, err := backup.NewManager(st, backup.Config{
		Enabled:   cfg.BackupEnabled,
		Interval:  cfg.BackupInterval,
		LocalDir:  cfg.BackupLocalDir,
		KeepLast:  cfg.BackupKeepLast,
		BucketURL: cfg.BackupBucketURL,
		S3: backup.S3Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			SessionToken: cfg.S3SessionToken,
			UseSSL:       cfg.S3UseSSL,
		},
		Logger:     logger,
		OnSnapshot: m.RecordSnapshot,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize backups: %w", err)
	}
	if backupManager != nil {
		defer backupManager.Stop()
	}

	levelService, err := levels.NewService(levels.Config{
		Levels:                st,
		Songs:                 st,
		Accounts:              st,
		Blobs:                 blobs,
		Downloads:             downloads,
		SongLookupConcurrency: cfg.SongLookupConcurrency,
		Logger:                logger,
		OnBrowse:              m.RecordBrowse,
		OnSongMiss:            m.RecordSongMiss,
	})
	if err != nil {
		return err
	}

	apiServer := httpserver.NewServer(httpserver.Config{
		Addr:      cfg.APIAddr,
		Levels:    levelService,
		Users:     users.NewService(st, st, logger, nil),
		Health:    st,
		Metrics:   m,
		RateLimit: httpserver.RateLimitConfig{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
		Logger:    logger,
	})
	if err := apiServer.Start(); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}
	defer apiServer.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		// Shutdown deadline starts now, not at boot.
		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		os.Exit(1)
	}()

	printStartupBanner(cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("errgroup exited with error")
	}

	signal.Stop(sigCh)
	return nil
}

func openBlobStore(ctx context.Context, cfg appConfig) (model.BlobStore, error) {
	if cfg.LevelDataBackend == "s3" {
		return blob.NewS3(ctx, blob.S3Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			SessionToken: cfg.S3SessionToken,
			UseSSL:       cfg.S3UseSSL,
		}, cfg.LevelDataBucket, "levels")
	}
	return blob.NewDir(cfg.LevelDataDir)
}

// seedIfEmpty applies the fixture only to a database with no levels, so a
// restart with the same config does not collide with existing rows.
func seedIfEmpty(ctx context.Context, st *store.Store, blobs model.BlobStore, path string, logger zerolog.Logger) error {
	n, err := st.TotalLevelCount(ctx)
	if err != nil {
		return fmt.Errorf("seed: count levels: %w", err)
	}
	if n > 0 {
		logger.Info().Int("levels", n).Str("file", path).Msg("database not empty, skipping seed")
		return nil
	}
	f, err := seed.Load(path)
	if err != nil {
		return err
	}
	_, err = f.Apply(ctx, st, blobs, time.Now(), logger)
	return err
}

func printStartupBanner(cfg appConfig) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := cyan.Bold(true).Render(`
    ╔═╗╔╦╗╔═╗╔═╗
    ║ ╦ ║║╠═╝╚═╗
    ╚═╝═╩╝╩  ╚═╝`)

	var lines []string
	lines = append(lines, "", logo, "    "+dim.Render("v"+version), "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator, "")

	lines = append(lines, bold.Render("    Gateway"), "")
	lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
	if cfg.RateLimitRPS > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Rate Limit     %s", check, dim.Render(fmt.Sprintf("%g rps, burst %d", cfg.RateLimitRPS, cfg.RateLimitBurst))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Rate Limit     %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Storage"), "")
	if cfg.DBDriver == "postgres" {
		lines = append(lines, fmt.Sprintf("    %s  Database       %s", check, dim.Render("postgres")))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Database       %s", check, dim.Render(shortenPath(cfg.DBPath))))
	}
	if cfg.LevelDataBackend == "s3" {
		lines = append(lines, fmt.Sprintf("    %s  Level Data     %s", check, dim.Render("s3://"+cfg.LevelDataBucket)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Level Data     %s", check, dim.Render(shortenPath(cfg.LevelDataDir))))
	}
	if cfg.BackupEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", check, dim.Render(shortenPath(cfg.BackupLocalDir))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", dot, dim.Render("disabled")))
	}
	if cfg.PurgeAfterDays > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Purge Deleted  %s", check, dim.Render(fmt.Sprintf("after %d days", cfg.PurgeAfterDays))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Purge Deleted  %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"), "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "", separator, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"), "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
