// Package backup takes periodic snapshots of the GDPS database file, keeps
// the most recent ones locally and optionally ships each to an S3 bucket.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultInterval = 6 * time.Hour
	defaultKeepLast = 24

	filePrefix = "gdps-"
	fileSuffix = ".duckdb"
	nameLayout = "20060102T150405.000000000Z"
)

// Manager runs snapshots on a fixed interval until stopped.
type Manager struct {
	store    Snapshotter
	cfg      Config
	uploader Uploader
	log      zerolog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	stop   sync.Once

	mu   sync.Mutex
	last time.Time
}

// NewManager validates cfg, takes a first snapshot and starts the loop.
// It returns nil when backups are disabled.
func NewManager(store Snapshotter, cfg Config) (*Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	m, err := newManager(store, cfg)
	if err != nil {
		return nil, err
	}

	if err := m.RunOnce(m.ctx); err != nil {
		m.log.Error().Err(err).Msg("startup snapshot failed")
	}
	m.wg.Add(1)
	go m.loop()
	return m, nil
}

func newManager(store Snapshotter, cfg Config) (*Manager, error) {
	if store == nil {
		return nil, errors.New("backup: nil snapshotter")
	}
	if strings.TrimSpace(store.DBPath()) == "" {
		return nil, errors.New("backup: db-path is empty (in-memory or remote store)")
	}
	if strings.TrimSpace(cfg.LocalDir) == "" {
		return nil, errors.New("backup: local-dir is required when backup is enabled")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if err := os.MkdirAll(cfg.LocalDir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create local-dir: %w", err)
	}

	m := &Manager{
		store: store,
		cfg:   cfg,
		log:   cfg.Logger.With().Str("component", "backup").Logger(),
		now:   time.Now,
	}
	if strings.TrimSpace(cfg.BucketURL) != "" {
		s3cfg := cfg.S3
		s3cfg.BucketURL = cfg.BucketURL
		u, err := NewS3Uploader(s3cfg)
		if err != nil {
			return nil, fmt.Errorf("backup: s3 uploader: %w", err)
		}
		m.uploader = u
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m, nil
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.RunOnce(m.ctx); err != nil && m.ctx.Err() == nil {
				m.log.Error().Err(err).Msg("periodic snapshot failed")
			}
		case <-m.ctx.Done():
			return
		}
	}
}

// RunOnce takes one snapshot, uploads it when a bucket is configured and
// applies retention.
func (m *Manager) RunOnce(ctx context.Context) error {
	size, err := m.runOnce(ctx)
	if m.cfg.OnSnapshot != nil {
		m.cfg.OnSnapshot(size, err)
	}
	return err
}

func (m *Manager) runOnce(ctx context.Context) (int64, error) {
	now := m.now().UTC()
	localPath := filepath.Join(m.cfg.LocalDir, filePrefix+now.Format(nameLayout)+fileSuffix)

	size, err := m.store.SnapshotTo(ctx, localPath)
	if err != nil {
		return 0, fmt.Errorf("snapshot: %w", err)
	}
	m.log.Info().Str("path", localPath).Int64("bytes", size).Msg("snapshot written")

	if m.uploader != nil {
		if err := m.uploader.UploadFile(ctx, localPath); err != nil {
			return size, fmt.Errorf("upload: %w", err)
		}
		if p, ok := m.uploader.(remotePruner); ok {
			removed, err := p.Prune(ctx, m.cfg.KeepLast)
			if err != nil {
				return size, fmt.Errorf("prune bucket: %w", err)
			}
			if removed > 0 {
				m.log.Info().Int("removed", removed).Msg("pruned remote snapshots")
			}
		}
	}

	if _, err := pruneLocal(m.cfg.LocalDir, m.cfg.KeepLast); err != nil {
		return size, fmt.Errorf("prune local: %w", err)
	}

	m.mu.Lock()
	m.last = now
	m.mu.Unlock()
	return size, nil
}

// LastSnapshot returns when the last complete snapshot was taken. The zero
// time means none has succeeded yet.
func (m *Manager) LastSnapshot() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Stop cancels any in-flight snapshot or upload and waits for the loop.
func (m *Manager) Stop() {
	m.stop.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		m.wg.Wait()
	})
}

// pruneLocal keeps the newest keepLast snapshots in dir.
func pruneLocal(dir string, keepLast int) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return 0, err
	}
	old := expired(matches, keepLast)
	return len(old), removeAll(old)
}

// expired returns the names past the newest keepLast. Snapshot names sort
// lexically in chronological order.
func expired(names []string, keepLast int) []string {
	if keepLast <= 0 || len(names) <= keepLast {
		return nil
	}
	sorted := slices.Clone(names)
	slices.Sort(sorted)
	return sorted[:len(sorted)-keepLast]
}

func removeAll(paths []string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
