package users

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gdps-dev/gdps/internal/model"
	"github.com/gdps-dev/gdps/internal/wire"
)

var now = time.Unix(1_700_000_000, 0)

type fakeUsers struct {
	all       []model.User
	err       error
	gotLimit  int
	gotOffset int
}

func (f *fakeUsers) SearchUsers(_ context.Context, name string, limit, offset int) ([]model.User, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	f.gotLimit, f.gotOffset = limit, offset
	var matched []model.User
	for _, u := range f.all {
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(name)) {
			matched = append(matched, u)
		}
	}
	total := len(matched)
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (f *fakeUsers) UserByAccount(_ context.Context, accountID int) (model.User, error) {
	if f.err != nil {
		return model.User{}, f.err
	}
	for _, u := range f.all {
		if u.ExtID == strconv.Itoa(accountID) {
			return u, nil
		}
	}
	return model.User{}, model.ErrNotFound
}

type fakeComments map[int][]model.AccountComment

func (f fakeComments) AccountComments(_ context.Context, userID, limit, offset int) ([]model.AccountComment, int, error) {
	all := f[userID]
	if offset >= len(all) {
		return nil, len(all), nil
	}
	page := all[offset:]
	if len(page) > limit {
		page = page[:limit]
	}
	return page, len(all), nil
}

func newService(users *fakeUsers, comments fakeComments) *Service {
	return NewService(users, comments, zerolog.Nop(), func() time.Time { return now })
}

func TestSearchUsers(t *testing.T) {
	users := &fakeUsers{}
	for i := 1; i <= 12; i++ {
		users.all = append(users.all, model.User{UserID: i, ExtID: strconv.Itoa(i), Username: "Player" + strconv.Itoa(i), Stars: i})
	}
	users.all = append(users.all, model.User{UserID: 99, ExtID: "99", Username: "robtop"})
	svc := newService(users, nil)
	ctx := context.Background()

	t.Run("wrong secret", func(t *testing.T) {
		got, err := svc.SearchUsers(ctx, model.UserSearchRequest{Query: "player", Secret: "nope"})
		require.NoError(t, err)
		assert.Equal(t, model.RespFailure, got)
	})

	t.Run("empty query", func(t *testing.T) {
		got, err := svc.SearchUsers(ctx, model.UserSearchRequest{Query: "  ", Secret: model.CommonSecret})
		require.NoError(t, err)
		assert.Equal(t, model.RespFailure, got)
	})

	t.Run("no match", func(t *testing.T) {
		got, err := svc.SearchUsers(ctx, model.UserSearchRequest{Query: "zzz", Secret: model.CommonSecret})
		require.NoError(t, err)
		assert.Equal(t, model.RespFailure, got)
	})

	t.Run("single match", func(t *testing.T) {
		got, err := svc.SearchUsers(ctx, model.UserSearchRequest{Query: "ROB", Secret: model.CommonSecret})
		require.NoError(t, err)
		assert.Equal(t, wire.EncodeUser(users.all[12])+"#1:0:10", got)
	})

	t.Run("second page", func(t *testing.T) {
		got, err := svc.SearchUsers(ctx, model.UserSearchRequest{Query: "player", Page: 1, Secret: model.CommonSecret})
		require.NoError(t, err)
		assert.Equal(t, 10, users.gotLimit)
		assert.Equal(t, 10, users.gotOffset)
		body, trailer, ok := strings.Cut(got, "#")
		require.True(t, ok)
		assert.Len(t, strings.Split(body, "|"), 2)
		assert.Equal(t, "12:10:10", trailer)
	})

	t.Run("store error", func(t *testing.T) {
		boom := errors.New("db down")
		failing := newService(&fakeUsers{err: boom}, nil)
		_, err := failing.SearchUsers(ctx, model.UserSearchRequest{Query: "x", Secret: model.CommonSecret})
		assert.ErrorIs(t, err, boom)
	})
}

func TestAccountComments(t *testing.T) {
	users := &fakeUsers{all: []model.User{{UserID: 5, ExtID: "71", Username: "viprin"}, {UserID: 6, ExtID: "72", Username: "quiet"}}}
	var posts []model.AccountComment
	for i := 11; i >= 1; i-- {
		posts = append(posts, model.AccountComment{ID: i, UserID: 5, Comment: "post", Timestamp: now.Add(-time.Duration(i) * time.Hour).Unix()})
	}
	svc := newService(users, fakeComments{5: posts})
	ctx := context.Background()

	t.Run("unknown account", func(t *testing.T) {
		got, err := svc.AccountComments(ctx, model.AccountCommentsRequest{AccountID: 404})
		require.NoError(t, err)
		assert.Equal(t, model.RespEmptyComments, got)
	})

	t.Run("no comments", func(t *testing.T) {
		got, err := svc.AccountComments(ctx, model.AccountCommentsRequest{AccountID: 72})
		require.NoError(t, err)
		assert.Equal(t, model.RespEmptyComments, got)
	})

	t.Run("first page", func(t *testing.T) {
		got, err := svc.AccountComments(ctx, model.AccountCommentsRequest{AccountID: 71})
		require.NoError(t, err)
		body, trailer, ok := strings.Cut(got, "#")
		require.True(t, ok)
		records := strings.Split(body, "|")
		assert.Len(t, records, 10)
		assert.Equal(t, wire.EncodeAccountComment(posts[0], now), records[0])
		assert.Equal(t, "11:0:10", trailer)
	})

	t.Run("last page", func(t *testing.T) {
		got, err := svc.AccountComments(ctx, model.AccountCommentsRequest{AccountID: 71, Page: 1})
		require.NoError(t, err)
		assert.Equal(t, wire.EncodeAccountComment(posts[10], now)+"#11:10:10", got)
	})

	t.Run("past the end", func(t *testing.T) {
		got, err := svc.AccountComments(ctx, model.AccountCommentsRequest{AccountID: 71, Page: 5})
		require.NoError(t, err)
		assert.Equal(t, model.RespEmptyComments, got)
	})
}
