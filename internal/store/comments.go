package store

import (
	"context"
	"fmt"

	"github.com/gdps-dev/gdps/internal/model"
)

// AccountComments returns a user's profile posts, newest first, and the total count.
func (s *Store) AccountComments(ctx context.Context, userID, limit, offset int) ([]model.AccountComment, int, error) {
	release, err := s.acquireRead(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer release()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var total int
	if err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM acc_comments WHERE user_id = ?"), userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count comments: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT comment_id, user_id, username, comment, likes, is_spam, timestamp
		FROM acc_comments WHERE user_id = ?
		ORDER BY timestamp DESC, comment_id DESC
		LIMIT ? OFFSET ?`), userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []model.AccountComment
	for rows.Next() {
		var c model.AccountComment
		if err := rows.Scan(&c.ID, &c.UserID, &c.Username, &c.Comment, &c.Likes, &c.IsSpam, &c.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, total, rows.Err()
}

// InsertAccountComment stores a profile post and returns its id.
func (s *Store) InsertAccountComment(ctx context.Context, c model.AccountComment) (int, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	var id int
	err := s.db.QueryRowContext(ctx, s.rebind(`
		INSERT INTO acc_comments (user_id, username, comment, likes, is_spam, timestamp)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING comment_id`),
		c.UserID, c.Username, c.Comment, c.Likes, c.IsSpam, c.Timestamp).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}
	return id, nil
}
