package backup

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/gdps-dev/gdps/internal/blob"
)

// S3Config addresses the backup bucket.
type S3Config struct {
	// BucketURL is s3://bucket/prefix; the prefix is optional.
	BucketURL    string
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	SessionToken string
	UseSSL       bool
}

// S3Uploader stores snapshots as objects under one bucket prefix.
type S3Uploader struct {
	client    *minio.Client
	bucket    string
	keyPrefix string
}

// NewS3Uploader builds an uploader with static credentials. Endpoint
// defaults to AWS.
func NewS3Uploader(cfg S3Config) (*S3Uploader, error) {
	bucket, prefix, err := parseS3BucketURL(cfg.BucketURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = "s3.amazonaws.com"
	}
	client, err := blob.NewS3Client(blob.S3Config{
		Endpoint:     cfg.Endpoint,
		Region:       cfg.Region,
		AccessKey:    cfg.AccessKey,
		SecretKey:    cfg.SecretKey,
		SessionToken: cfg.SessionToken,
		UseSSL:       cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &S3Uploader{client: client, bucket: bucket, keyPrefix: prefix}, nil
}

// UploadFile puts localPath under the key prefix.
func (u *S3Uploader) UploadFile(ctx context.Context, localPath string) error {
	_, err := u.client.FPutObject(ctx, u.bucket, u.objectKey(path.Base(localPath)), localPath, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("s3 upload %s: %w", localPath, err)
	}
	return nil
}

// Prune removes all but the newest keepLast snapshot objects.
func (u *S3Uploader) Prune(ctx context.Context, keepLast int) (int, error) {
	listPrefix := u.objectKey(filePrefix)

	var keys []string
	for obj := range u.client.ListObjects(ctx, u.bucket, minio.ListObjectsOptions{Prefix: listPrefix}) {
		if obj.Err != nil {
			return 0, fmt.Errorf("s3 list %s: %w", listPrefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, fileSuffix) {
			keys = append(keys, obj.Key)
		}
	}

	old := expired(keys, keepLast)
	for _, key := range old {
		if err := u.client.RemoveObject(ctx, u.bucket, key, minio.RemoveObjectOptions{}); err != nil {
			return 0, fmt.Errorf("s3 remove %s: %w", key, err)
		}
	}
	return len(old), nil
}

func (u *S3Uploader) objectKey(name string) string {
	if u.keyPrefix == "" {
		return name
	}
	return u.keyPrefix + "/" + name
}

func parseS3BucketURL(raw string) (bucket string, prefix string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("s3: parse bucket-url: %w", err)
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("s3: bucket-url must use s3:// scheme")
	}
	if strings.TrimSpace(u.Host) == "" {
		return "", "", fmt.Errorf("s3: bucket-url missing bucket name")
	}
	return u.Host, strings.Trim(strings.TrimSpace(u.Path), "/"), nil
}
