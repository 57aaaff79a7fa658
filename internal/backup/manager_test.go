package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeSnapshotter struct {
	dbPath string
	data   []byte
	err    error
}

func (f *fakeSnapshotter) DBPath() string { return f.dbPath }

func (f *fakeSnapshotter) SnapshotTo(_ context.Context, dstPath string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if err := os.WriteFile(dstPath, f.data, 0644); err != nil {
		return 0, err
	}
	return int64(len(f.data)), nil
}

func newTestManager(t *testing.T, store Snapshotter, cfg Config) *Manager {
	t.Helper()
	cfg.Enabled = true
	if cfg.LocalDir == "" {
		cfg.LocalDir = t.TempDir()
	}
	m, err := newManager(store, cfg)
	if err != nil {
		t.Fatalf("newManager: %v", err)
	}
	t.Cleanup(m.Stop)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	return m
}

func TestNewManager_Disabled(t *testing.T) {
	t.Parallel()

	m, err := NewManager(&fakeSnapshotter{dbPath: "/tmp/gdps.duckdb"}, Config{})
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil manager when disabled")
	}
}

func TestNewManager_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		store Snapshotter
		cfg   Config
	}{
		{"nil store", nil, Config{Enabled: true, LocalDir: t.TempDir()}},
		{"in-memory store", &fakeSnapshotter{}, Config{Enabled: true, LocalDir: t.TempDir()}},
		{"no local dir", &fakeSnapshotter{dbPath: "/tmp/gdps.duckdb"}, Config{Enabled: true}},
		{"bad bucket url", &fakeSnapshotter{dbPath: "/tmp/gdps.duckdb"}, Config{Enabled: true, LocalDir: t.TempDir(), BucketURL: "https://bucket"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewManager(tt.store, tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRunOnce_WritesAndPrunesLocalSnapshots(t *testing.T) {
	t.Parallel()

	var sizes []int64
	m := newTestManager(t, &fakeSnapshotter{dbPath: "/tmp/gdps.duckdb", data: []byte("snapshot")}, Config{
		KeepLast:   2,
		OnSnapshot: func(size int64, err error) { sizes = append(sizes, size) },
	})

	for i := range 3 {
		if err := m.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce #%d: %v", i+1, err)
		}
	}

	files, err := filepath.Glob(filepath.Join(m.cfg.LocalDir, "gdps-*.duckdb"))
	if err != nil {
		t.Fatalf("glob snapshots: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("snapshot files = %d, want 2", len(files))
	}
	if filepath.Base(files[0]) != "gdps-20260101T000200.000000000Z.duckdb" {
		t.Errorf("oldest kept = %s", filepath.Base(files[0]))
	}
	if len(sizes) != 3 || sizes[0] != 8 {
		t.Errorf("OnSnapshot sizes = %v", sizes)
	}
	if want := time.Date(2026, 1, 1, 0, 3, 0, 0, time.UTC); !m.LastSnapshot().Equal(want) {
		t.Errorf("LastSnapshot = %v, want %v", m.LastSnapshot(), want)
	}
}

func TestRunOnce_SnapshotFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("disk full")
	var got error
	m := newTestManager(t, &fakeSnapshotter{dbPath: "/tmp/gdps.duckdb", err: boom}, Config{
		OnSnapshot: func(_ int64, err error) { got = err },
	})

	if err := m.RunOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("RunOnce err = %v, want %v", err, boom)
	}
	if !errors.Is(got, boom) {
		t.Errorf("OnSnapshot err = %v", got)
	}
	if !m.LastSnapshot().IsZero() {
		t.Error("failed snapshot recorded as last")
	}
}

type recordingUploader struct {
	mu       sync.Mutex
	uploaded []string
	pruned   []int
}

func (u *recordingUploader) UploadFile(_ context.Context, localPath string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploaded = append(u.uploaded, filepath.Base(localPath))
	return nil
}

func (u *recordingUploader) Prune(_ context.Context, keepLast int) (int, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pruned = append(u.pruned, keepLast)
	return 0, nil
}

func TestRunOnce_UploadsAndPrunesRemote(t *testing.T) {
	t.Parallel()

	up := &recordingUploader{}
	m := newTestManager(t, &fakeSnapshotter{dbPath: "/tmp/gdps.duckdb", data: []byte("x")}, Config{KeepLast: 5})
	m.uploader = up

	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(up.uploaded) != 1 || up.uploaded[0] != "gdps-20260101T000100.000000000Z.duckdb" {
		t.Errorf("uploaded = %v", up.uploaded)
	}
	if len(up.pruned) != 1 || up.pruned[0] != 5 {
		t.Errorf("pruned = %v", up.pruned)
	}
}

func TestExpired(t *testing.T) {
	t.Parallel()

	names := []string{"gdps-3.duckdb", "gdps-1.duckdb", "gdps-2.duckdb"}
	got := expired(names, 2)
	if len(got) != 1 || got[0] != "gdps-1.duckdb" {
		t.Errorf("expired = %v", got)
	}
	if expired(names, 3) != nil || expired(names, 0) != nil {
		t.Error("nothing should expire")
	}
	if names[0] != "gdps-3.duckdb" {
		t.Error("input reordered")
	}
}

type blockingUploader struct {
	started chan struct{}
	once    sync.Once
}

func (u *blockingUploader) UploadFile(ctx context.Context, _ string) error {
	u.once.Do(func() { close(u.started) })
	<-ctx.Done()
	return ctx.Err()
}

func TestStop_CancelsInFlightUpload(t *testing.T) {
	t.Parallel()

	uploader := &blockingUploader{started: make(chan struct{})}
	m := newTestManager(t, &fakeSnapshotter{dbPath: "/tmp/gdps.duckdb", data: []byte("snapshot")}, Config{
		Interval: 5 * time.Millisecond,
	})
	m.uploader = uploader

	m.wg.Add(1)
	go m.loop()

	select {
	case <-uploader.started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for upload to start")
	}

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return; upload likely not canceled")
	}
}
