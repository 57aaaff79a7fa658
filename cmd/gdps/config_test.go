package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.APIAddr != "127.0.0.1:8080" {
		t.Errorf("api-addr = %q", cfg.APIAddr)
	}
	if cfg.DBDriver != "duckdb" || cfg.DBPath != filepath.Join(home, ".local", "share", "gdps", "gdps.duckdb") {
		t.Errorf("db = %q %q", cfg.DBDriver, cfg.DBPath)
	}
	if cfg.QueryTimeout != 30*time.Second || cfg.DownloadFlush != time.Second {
		t.Errorf("durations = %v %v", cfg.QueryTimeout, cfg.DownloadFlush)
	}
	if cfg.LevelDataBackend != "dir" || cfg.PurgeAfterDays != 30 || cfg.BackupEnabled {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.ConfigPath != "" {
		t.Errorf("config path = %q, want empty without a file", cfg.ConfigPath)
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "gdps.yml")
	body := "api-port: 9000\ndb-path: ~/data/gd.duckdb\nrate-limit-rps: 2.5\nbackup-interval: 90m\n"
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GDPS_LOG_LEVEL", "debug")
	t.Setenv("GDPS_SONG_LOOKUP_CONCURRENCY", "3")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.APIAddr != "127.0.0.1:9000" {
		t.Errorf("api-addr = %q", cfg.APIAddr)
	}
	if cfg.DBPath != filepath.Join(home, "data", "gd.duckdb") {
		t.Errorf("db-path = %q", cfg.DBPath)
	}
	if cfg.RateLimitRPS != 2.5 || cfg.BackupInterval != 90*time.Minute {
		t.Errorf("rate %v interval %v", cfg.RateLimitRPS, cfg.BackupInterval)
	}
	if cfg.LogLevel != "debug" || cfg.SongLookupConcurrency != 3 {
		t.Errorf("env overrides = %q %d", cfg.LogLevel, cfg.SongLookupConcurrency)
	}
	if cfg.ConfigPath != path {
		t.Errorf("config path = %q", cfg.ConfigPath)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad port", map[string]string{"GDPS_API_PORT": "70000"}, "api-port"},
		{"bad driver", map[string]string{"GDPS_DB_DRIVER": "mysql"}, "db-driver"},
		{"postgres without dsn", map[string]string{"GDPS_DB_DRIVER": "postgres"}, "db-dsn"},
		{"bad backend", map[string]string{"GDPS_LEVEL_DATA_BACKEND": "ftp"}, "level-data-backend"},
		{"s3 without bucket", map[string]string{"GDPS_LEVEL_DATA_BACKEND": "s3"}, "level-data-bucket"},
		{"negative purge", map[string]string{"GDPS_PURGE_AFTER_DAYS": "-1"}, "purge-after-days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig("")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
