package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gdps-dev/gdps/internal/model"
)

// SongByID returns an enabled custom song.
func (s *Store) SongByID(ctx context.Context, id int) (model.Song, error) {
	release, err := s.acquireRead(ctx)
	if err != nil {
		return model.Song{}, err
	}
	defer release()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var song model.Song
	var disabled int
	err = s.db.QueryRowContext(ctx,
		s.rebind("SELECT id, name, author_id, author_name, size, download, is_disabled FROM songs WHERE id = ?"), id,
	).Scan(&song.ID, &song.Name, &song.AuthorID, &song.AuthorName, &song.Size, &song.Download, &disabled)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Song{}, model.ErrNotFound
	}
	if err != nil {
		return model.Song{}, fmt.Errorf("song %d: %w", id, err)
	}
	if disabled != 0 {
		return model.Song{}, model.ErrNotFound
	}
	return song, nil
}

// InsertSong stores song metadata under its own id.
func (s *Store) InsertSong(ctx context.Context, song model.Song) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		s.rebind("INSERT INTO songs (id, name, author_id, author_name, size, download, is_disabled) VALUES (?, ?, ?, ?, ?, ?, ?)"),
		song.ID, song.Name, song.AuthorID, song.AuthorName, song.Size, song.Download, boolInt(song.IsDisabled),
	)
	if err != nil {
		return fmt.Errorf("insert song %d: %w", song.ID, err)
	}
	return nil
}
