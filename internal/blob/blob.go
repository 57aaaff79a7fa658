// Package blob stores level payloads as opaque objects keyed by level id.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gdps-dev/gdps/internal/model"
)

// Dir keeps one file per level under a root directory.
type Dir struct {
	root string
}

// NewDir creates root if needed and returns a directory-backed store.
func NewDir(root string) (*Dir, error) {
	if root == "" {
		root = model.DefaultLevelDataDir
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("blob: create %s: %w", root, err)
	}
	return &Dir{root: root}, nil
}

func (d *Dir) path(levelID int) string {
	return filepath.Join(d.root, strconv.Itoa(levelID))
}

// Get returns the payload, or model.ErrNotFound.
func (d *Dir) Get(_ context.Context, levelID int) ([]byte, error) {
	data, err := os.ReadFile(d.path(levelID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("blob: read level %d: %w", levelID, err)
	}
	return data, nil
}

// Put writes the payload atomically.
func (d *Dir) Put(_ context.Context, levelID int, r io.Reader, _ int64) error {
	dst := d.path(levelID)
	tmp, err := os.CreateTemp(d.root, ".upload-*")
	if err != nil {
		return fmt.Errorf("blob: create temp: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("blob: write level %d: %w", levelID, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// Delete removes the payload. Missing payloads are not an error.
func (d *Dir) Delete(_ context.Context, levelID int) error {
	err := os.Remove(d.path(levelID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("blob: delete level %d: %w", levelID, err)
	}
	return nil
}
