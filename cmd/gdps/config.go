package main

import (
	"time"

	"github.com/gdps-dev/gdps/internal/model"
)

const (
	defaultBindHost           = "127.0.0.1"
	defaultAPIPort            = 8080
	defaultDBDriver           = "duckdb"
	defaultQueryTimeout       = model.DefaultQueryTimeout
	defaultMaxConcurrentReads = 8
	defaultSongLookups        = model.DefaultSongLookupConcurrency
	defaultLevelBackend       = "dir"
	defaultLevelDataDir       = model.DefaultLevelDataDir
	defaultRateLimitRPS       = 20.0
	defaultRateLimitBurst     = 40
	defaultDownloadBatch      = 500
	defaultDownloadFlush      = time.Second
	defaultPurgeAfterDays     = 30 // 0 = disabled
	defaultBackupInterval     = 6 * time.Hour
	defaultBackupKeepLast     = 24
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	Host                  string        `mapstructure:"host"`
	APIPort               int           `mapstructure:"api-port"`
	APIAddr               string        `mapstructure:"api-addr"`
	DBDriver              string        `mapstructure:"db-driver"`
	DBPath                string        `mapstructure:"db-path"`
	DBDSN                 string        `mapstructure:"db-dsn"`
	QueryTimeout          time.Duration `mapstructure:"query-timeout"`
	MaxConcurrentReads    int           `mapstructure:"max-concurrent-queries"`
	SongLookupConcurrency int           `mapstructure:"song-lookup-concurrency"`
	LevelDataBackend      string        `mapstructure:"level-data-backend"`
	LevelDataDir          string        `mapstructure:"level-data-dir"`
	LevelDataBucket       string        `mapstructure:"level-data-bucket"`
	S3Endpoint            string        `mapstructure:"s3-endpoint"`
	S3Region              string        `mapstructure:"s3-region"`
	S3AccessKey           string        `mapstructure:"s3-access-key"`
	S3SecretKey           string        `mapstructure:"s3-secret-key"`
	S3SessionToken        string        `mapstructure:"s3-session-token"`
	S3UseSSL              bool          `mapstructure:"s3-use-ssl"`
	LogLevel              string        `mapstructure:"log-level"`
	LogPretty             bool          `mapstructure:"log-pretty"`
	RateLimitRPS          float64       `mapstructure:"rate-limit-rps"`
	RateLimitBurst        int           `mapstructure:"rate-limit-burst"`
	DownloadBatchSize     int           `mapstructure:"download-batch-size"`
	DownloadFlush         time.Duration `mapstructure:"download-flush-interval"`
	PurgeAfterDays        int           `mapstructure:"purge-after-days"`
	BackupEnabled         bool          `mapstructure:"backup-enabled"`
	BackupInterval        time.Duration `mapstructure:"backup-interval"`
	BackupLocalDir        string        `mapstructure:"backup-local-dir"`
	BackupKeepLast        int           `mapstructure:"backup-keep-last"`
	BackupBucketURL       string        `mapstructure:"backup-bucket-url"`
	SeedFile              string        `mapstructure:"seed-file"`
	ConfigPath            string        `mapstructure:"-"` // not from config file
}
