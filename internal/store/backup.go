package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrInMemoryStore indicates the store has no database file to snapshot:
// an in-memory DuckDB or a Postgres server.
var ErrInMemoryStore = errors.New("store: in-memory store cannot be snapshotted")

// DBPath returns the configured DuckDB path. Empty means no local file.
func (s *Store) DBPath() string { return s.dbPath }

// SnapshotTo checkpoints DuckDB and copies the database file to dstPath,
// returning the bytes written. Writers are blocked only for the checkpoint.
func (s *Store) SnapshotTo(ctx context.Context, dstPath string) (int64, error) {
	if s.dbPath == "" {
		return 0, ErrInMemoryStore
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0755); err != nil {
		return 0, fmt.Errorf("snapshot dir: %w", err)
	}

	s.mu.Lock()
	_, err := s.db.ExecContext(ctx, "CHECKPOINT")
	s.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("checkpoint: %w", err)
	}

	n, err := copyAtomic(ctx, s.dbPath, dstPath)
	if err != nil {
		return 0, fmt.Errorf("copy %s: %w", s.dbPath, err)
	}
	s.log.Debug().Str("dst", dstPath).Int64("bytes", n).Msg("snapshot copied")
	return n, nil
}

// copyAtomic writes src to dst through a temporary file so a partial copy
// never appears under the final name.
func copyAtomic(ctx context.Context, srcPath, dstPath string) (int64, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dstPath), filepath.Base(dstPath)+".*.tmp")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, ctxReader{ctx, src})
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, err
	}
	return n, os.Rename(tmp.Name(), dstPath)
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
