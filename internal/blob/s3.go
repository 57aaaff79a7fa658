package blob

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gdps-dev/gdps/internal/model"
)

// S3Config addresses an S3-compatible object store.
type S3Config struct {
	Endpoint  string // host[:port], scheme optional
	Region    string
	AccessKey string
	SecretKey string
	// SessionToken is optional.
	SessionToken string
	UseSSL       bool
}

// NewS3Client builds a minio client from cfg. A scheme on the endpoint
// overrides UseSSL.
func NewS3Client(cfg S3Config) (*minio.Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	secure := cfg.UseSSL
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		endpoint, secure = strings.TrimPrefix(endpoint, "https://"), true
	case strings.HasPrefix(endpoint, "http://"):
		endpoint, secure = strings.TrimPrefix(endpoint, "http://"), false
	}
	if endpoint == "" {
		return nil, fmt.Errorf("s3: endpoint is required")
	}
	if strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, fmt.Errorf("s3: access key and secret key are required")
	}
	region := cfg.Region
	if strings.TrimSpace(region) == "" {
		region = "us-east-1"
	}
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, cfg.SessionToken),
		Secure: secure,
		Region: region,
	})
}

// EnsureBucket creates bucket when it does not exist.
func EnsureBucket(ctx context.Context, client *minio.Client, bucket, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("s3: bucket exists %s: %w", bucket, err)
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("s3: make bucket %s: %w", bucket, err)
	}
	return nil
}

// S3 keeps level payloads as objects "<prefix>/<level id>" in one bucket.
type S3 struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3 connects to the bucket, creating it if needed.
func NewS3(ctx context.Context, cfg S3Config, bucket, prefix string) (*S3, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}
	client, err := NewS3Client(cfg)
	if err != nil {
		return nil, err
	}
	if err := EnsureBucket(ctx, client, bucket, cfg.Region); err != nil {
		return nil, err
	}
	return &S3{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}, nil
}

func (s *S3) key(levelID int) string {
	return objectKey(s.prefix, levelID)
}

func objectKey(prefix string, levelID int) string {
	if prefix == "" {
		return strconv.Itoa(levelID)
	}
	return path.Join(prefix, strconv.Itoa(levelID))
}

// Get returns the payload, or model.ErrNotFound.
func (s *S3) Get(ctx context.Context, levelID int) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(levelID), minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapErr(levelID, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapErr(levelID, err)
	}
	return data, nil
}

// Put uploads the payload. size may be -1 when unknown.
func (s *S3) Put(ctx context.Context, levelID int, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(levelID), r, size, minio.PutObjectOptions{
		ContentType: "text/plain",
	})
	if err != nil {
		return fmt.Errorf("s3: put level %d: %w", levelID, err)
	}
	return nil
}

// Delete removes the payload object.
func (s *S3) Delete(ctx context.Context, levelID int) error {
	if err := s.client.RemoveObject(ctx, s.bucket, s.key(levelID), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("s3: delete level %d: %w", levelID, err)
	}
	return nil
}

func (s *S3) mapErr(levelID int, err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return model.ErrNotFound
	}
	return fmt.Errorf("s3: get level %d: %w", levelID, err)
}
