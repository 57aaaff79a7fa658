package model

import (
	"context"
	"io"
)

// SongQuerier looks up custom song metadata.
type SongQuerier interface {
	SongByID(ctx context.Context, id int) (Song, error)
}

// AccountQuerier reads account credentials for auth checks.
type AccountQuerier interface {
	AccountByID(ctx context.Context, id int) (Account, error)
}

// UserQuerier provides the user-search and profile reads.
type UserQuerier interface {
	SearchUsers(ctx context.Context, name string, limit, offset int) ([]User, int, error)
	UserByAccount(ctx context.Context, accountID int) (User, error)
}

// CommentQuerier lists account (profile) comments.
type CommentQuerier interface {
	AccountComments(ctx context.Context, userID, limit, offset int) ([]AccountComment, int, error)
}

// BlobStore holds opaque level payloads keyed by level id.
type BlobStore interface {
	Get(ctx context.Context, levelID int) ([]byte, error)
	Put(ctx context.Context, levelID int, r io.Reader, size int64) error
	Delete(ctx context.Context, levelID int) error
}
