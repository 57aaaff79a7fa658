package store

import (
	"context"
	"fmt"
)

// Feature types stored in daily_features.feature_type.
const (
	FeatureDaily  = 0
	FeatureWeekly = 1
)

// InsertDailyFeature schedules a level as the daily or weekly level from ts on.
func (s *Store) InsertDailyFeature(ctx context.Context, levelID, featureType int, ts int64) error {
	return s.exec(ctx, "INSERT INTO daily_features (level_id, feature_type, timestamp) VALUES (?, ?, ?)",
		levelID, featureType, ts)
}

// InsertEvent schedules an event level from ts on.
func (s *Store) InsertEvent(ctx context.Context, levelID int, ts int64, duration int) error {
	return s.exec(ctx, "INSERT INTO events (level_id, timestamp, duration) VALUES (?, ?, ?)",
		levelID, ts, duration)
}

// InsertSuggestion records a moderator rating suggestion for a level.
func (s *Store) InsertSuggestion(ctx context.Context, levelID, by, stars, featured int, ts int64) error {
	return s.exec(ctx, "INSERT INTO suggest (suggest_by, suggest_level_id, suggest_stars, suggest_featured, timestamp) VALUES (?, ?, ?, ?, ?)",
		by, levelID, stars, featured, ts)
}

func (s *Store) exec(ctx context.Context, q string, args ...any) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, s.rebind(q), args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}
