package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/gdps-dev/gdps/internal/query"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var seedPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/gdps/config.yml)")
	flag.StringVar(&seedPath, "seed", "", "YAML fixture to load into an empty database")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("GDPS - Geometry Dash private server\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if seedPath != "" {
		cfg.SeedFile = seedPath
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	defaultDBPath := filepath.Join(home, ".local", "share", "gdps", "gdps.duckdb")

	v := viper.New()
	v.SetEnvPrefix("GDPS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("host", defaultBindHost)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("db-driver", defaultDBDriver)
	v.SetDefault("db-path", defaultDBPath)
	v.SetDefault("db-dsn", "")
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("max-concurrent-queries", defaultMaxConcurrentReads)
	v.SetDefault("song-lookup-concurrency", defaultSongLookups)
	v.SetDefault("level-data-backend", defaultLevelBackend)
	v.SetDefault("level-data-dir", defaultLevelDataDir)
	v.SetDefault("level-data-bucket", "")
	v.SetDefault("s3-endpoint", "")
	v.SetDefault("s3-region", "")
	v.SetDefault("s3-access-key", "")
	v.SetDefault("s3-secret-key", "")
	v.SetDefault("s3-session-token", "")
	v.SetDefault("s3-use-ssl", true)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-pretty", false)
	v.SetDefault("rate-limit-rps", defaultRateLimitRPS)
	v.SetDefault("rate-limit-burst", defaultRateLimitBurst)
	v.SetDefault("download-batch-size", defaultDownloadBatch)
	v.SetDefault("download-flush-interval", defaultDownloadFlush)
	v.SetDefault("purge-after-days", defaultPurgeAfterDays)
	v.SetDefault("backup-enabled", false)
	v.SetDefault("backup-interval", defaultBackupInterval)
	v.SetDefault("backup-local-dir", filepath.Join(home, ".local", "share", "gdps", "backups"))
	v.SetDefault("backup-keep-last", defaultBackupKeepLast)
	v.SetDefault("backup-bucket-url", "")
	v.SetDefault("seed-file", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "gdps", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		cfg.ConfigPath = ""
	}

	if strings.HasPrefix(cfg.DBPath, "~/") {
		cfg.DBPath = filepath.Join(home, cfg.DBPath[2:])
	}
	if strings.HasPrefix(cfg.BackupLocalDir, "~/") {
		cfg.BackupLocalDir = filepath.Join(home, cfg.BackupLocalDir[2:])
	}

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.APIPort))
	}

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (cfg appConfig) validate() error {
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	dialect, ok := query.ParseDialect(cfg.DBDriver)
	if !ok {
		return fmt.Errorf("invalid db-driver: %q (want duckdb or postgres)", cfg.DBDriver)
	}
	if dialect == query.Postgres && strings.TrimSpace(cfg.DBDSN) == "" {
		return fmt.Errorf("db-dsn is required when db-driver is postgres")
	}
	switch cfg.LevelDataBackend {
	case "dir":
		if strings.TrimSpace(cfg.LevelDataDir) == "" {
			return fmt.Errorf("level-data-dir is required when level-data-backend is dir")
		}
	case "s3":
		if strings.TrimSpace(cfg.LevelDataBucket) == "" {
			return fmt.Errorf("level-data-bucket is required when level-data-backend is s3")
		}
	default:
		return fmt.Errorf("invalid level-data-backend: %q (want dir or s3)", cfg.LevelDataBackend)
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("invalid rate-limit-rps: %v", cfg.RateLimitRPS)
	}
	if cfg.PurgeAfterDays < 0 {
		return fmt.Errorf("invalid purge-after-days: %d", cfg.PurgeAfterDays)
	}
	return nil
}
