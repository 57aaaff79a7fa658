package backup

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Config controls periodic database snapshots.
type Config struct {
	Enabled  bool
	Interval time.Duration
	LocalDir string
	// KeepLast bounds the snapshots kept locally and, when uploading, in the bucket.
	KeepLast  int
	BucketURL string
	S3        S3Config

	Logger zerolog.Logger
	// OnSnapshot, if set, is called after every snapshot attempt with the
	// snapshot size in bytes.
	OnSnapshot func(size int64, err error)
}

// Snapshotter copies a consistent image of the database to a local file.
type Snapshotter interface {
	DBPath() string
	SnapshotTo(ctx context.Context, dstPath string) (int64, error)
}

// Uploader ships one snapshot file off the host.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) error
}

// remotePruner is implemented by uploaders that can enforce retention on
// their side too.
type remotePruner interface {
	Prune(ctx context.Context, keepLast int) (int, error)
}
