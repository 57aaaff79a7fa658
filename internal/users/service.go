// Package users serves player search and profile comment listings.
package users

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gdps-dev/gdps/internal/model"
	"github.com/gdps-dev/gdps/internal/wire"
)

// Service implements SearchUsers and AccountComments.
type Service struct {
	users    model.UserQuerier
	comments model.CommentQuerier
	log      zerolog.Logger
	now      func() time.Time
}

// NewService builds a Service. now may be nil.
func NewService(users model.UserQuerier, comments model.CommentQuerier, logger zerolog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		users:    users,
		comments: comments,
		log:      logger.With().Str("component", "users").Logger(),
		now:      now,
	}
}

// SearchUsers answers getGJUsers.
func (s *Service) SearchUsers(ctx context.Context, req model.UserSearchRequest) (string, error) {
	if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(model.CommonSecret)) != 1 {
		return model.RespFailure, nil
	}
	name := strings.TrimSpace(req.Query)
	if name == "" {
		return model.RespFailure, nil
	}

	offset := pageOffset(req.Page)
	found, total, err := s.users.SearchUsers(ctx, name, model.PageSize, offset)
	if err != nil {
		return "", fmt.Errorf("search users: %w", err)
	}
	s.log.Debug().Str("query", name).Int("rows", len(found)).Int("total", total).Msg("user search")
	return wire.EncodeUserList(found, total, offset), nil
}

// AccountComments answers getGJAccountComments.
func (s *Service) AccountComments(ctx context.Context, req model.AccountCommentsRequest) (string, error) {
	if req.AccountID <= 0 {
		return model.RespEmptyComments, nil
	}
	user, err := s.users.UserByAccount(ctx, req.AccountID)
	if errors.Is(err, model.ErrNotFound) {
		return model.RespEmptyComments, nil
	}
	if err != nil {
		return "", fmt.Errorf("user for account %d: %w", req.AccountID, err)
	}

	offset := pageOffset(req.Page)
	list, total, err := s.comments.AccountComments(ctx, user.UserID, model.PageSize, offset)
	if err != nil {
		return "", fmt.Errorf("account comments: %w", err)
	}
	return wire.EncodeAccountComments(list, total, offset, s.now()), nil
}

func pageOffset(page int) int {
	if page < 0 {
		return 0
	}
	return page * model.PageSize
}
