package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gdps-dev/gdps/internal/model"
	"github.com/gdps-dev/gdps/internal/query"
)

// levelFields lists the level columns in scan order.
var levelFields = []string{
	"level_id", "level_name", "level_desc", "level_version", "user_id", "ext_id", "username",
	"game_version", "binary_version", "level_length", "audio_track", "song_id", "objects",
	"coins", "requested_stars", "original", "two_player", "is_ldm", "wt", "wt2", "password",
	"extra_string", "star_difficulty", "star_demon", "star_demon_diff", "star_auto",
	"star_stars", "star_featured", "star_epic", "star_coins", "downloads", "likes",
	"unlisted", "unlisted2", "is_deleted", "upload_date", "update_date", "rate_date",
}

var levelColumns = "levels." + strings.Join(levelFields, ", levels.")

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLevel(sc rowScanner) (model.Level, error) {
	var l model.Level
	var unlisted, unlisted2, deleted int
	err := sc.Scan(
		&l.ID, &l.Name, &l.Description, &l.Version, &l.UserID, &l.ExtID, &l.Username,
		&l.GameVersion, &l.BinaryVersion, &l.Length, &l.AudioTrack, &l.SongID, &l.Objects,
		&l.Coins, &l.RequestedStars, &l.Original, &l.TwoPlayer, &l.IsLDM, &l.WT, &l.WT2, &l.Password,
		&l.ExtraString, &l.StarDifficulty, &l.StarDemon, &l.StarDemonDiff, &l.StarAuto,
		&l.StarStars, &l.StarFeatured, &l.StarEpic, &l.StarCoins, &l.Downloads, &l.Likes,
		&unlisted, &unlisted2, &deleted, &l.UploadDate, &l.UpdateDate, &l.RateDate,
	)
	l.Unlisted = unlisted != 0
	l.Unlisted2 = unlisted2 != 0
	l.IsDeleted = deleted != 0
	return l, err
}

// QueryLevels runs the data query for a filter set.
func (s *Store) QueryLevels(ctx context.Context, fs query.FilterSet) ([]model.Level, error) {
	release, err := s.acquireRead(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	q, args := fs.SelectSQL(s.dialect, levelColumns)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query levels: %w", err)
	}
	defer rows.Close()

	var levels []model.Level
	for rows.Next() {
		l, err := scanLevel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan level: %w", err)
		}
		levels = append(levels, l)
	}
	return levels, rows.Err()
}

// CountLevels runs the count query for a filter set.
func (s *Store) CountLevels(ctx context.Context, fs query.FilterSet) (int, error) {
	release, err := s.acquireRead(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	q, args := fs.CountSQL(s.dialect)
	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count levels: %w", err)
	}
	return n, nil
}

// LevelByID returns a level that has not been deleted.
func (s *Store) LevelByID(ctx context.Context, id int) (model.Level, error) {
	release, err := s.acquireRead(ctx)
	if err != nil {
		return model.Level{}, err
	}
	defer release()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	q := s.rebind("SELECT " + levelColumns + " FROM levels WHERE levels.level_id = ? AND levels.is_deleted = 0")
	l, err := scanLevel(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Level{}, model.ErrNotFound
	}
	if err != nil {
		return model.Level{}, fmt.Errorf("level %d: %w", id, err)
	}
	return l, nil
}

// TotalLevelCount counts levels that have not been deleted.
func (s *Store) TotalLevelCount(ctx context.Context) (int, error) {
	release, err := s.acquireRead(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var n int
	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM levels WHERE is_deleted = 0").Scan(&n)
	return n, err
}

// InsertLevel stores a level. A zero ID takes the next sequence value.
// The assigned id is returned.
func (s *Store) InsertLevel(ctx context.Context, l model.Level) (int, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	fields := levelFields
	values := []any{
		l.ID, l.Name, l.Description, l.Version, l.UserID, l.ExtID, l.Username,
		l.GameVersion, l.BinaryVersion, l.Length, l.AudioTrack, l.SongID, l.Objects,
		l.Coins, l.RequestedStars, l.Original, l.TwoPlayer, l.IsLDM, l.WT, l.WT2, l.Password,
		l.ExtraString, l.StarDifficulty, l.StarDemon, l.StarDemonDiff, l.StarAuto,
		l.StarStars, l.StarFeatured, l.StarEpic, l.StarCoins, l.Downloads, l.Likes,
		boolInt(l.Unlisted), boolInt(l.Unlisted2), boolInt(l.IsDeleted), l.UploadDate, l.UpdateDate, l.RateDate,
	}
	if l.ID == 0 {
		fields, values = fields[1:], values[1:]
	}

	q := s.rebind(fmt.Sprintf("INSERT INTO levels (%s) VALUES (%s) RETURNING level_id",
		strings.Join(fields, ", "), placeholders(len(fields))))
	var id int
	if err := s.db.QueryRowContext(ctx, q, values...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert level: %w", err)
	}
	return id, nil
}

// SoftDeleteLevel marks a level deleted as of ts.
func (s *Store) SoftDeleteLevel(ctx context.Context, id int, ts int64) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, s.rebind("UPDATE levels SET is_deleted = 1, update_date = ? WHERE level_id = ?"), ts, id)
	if err != nil {
		return fmt.Errorf("delete level %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
