package objectstore

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioOptions configures NewMinioStore.
type MinioOptions struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// MinioStore uploads to a MinIO bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinioStore creates a MinioStore. No request is made until the first upload.
func NewMinioStore(opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}
	return &MinioStore{client: client, bucket: opts.Bucket, prefix: opts.Prefix}, nil
}

// Upload implements Uploader.
func (s *MinioStore) Upload(ctx context.Context, localPath, key string) error {
	key = joinKey(s.prefix, key)
	_, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: ContentType(localPath),
	})
	if err != nil {
		return fmt.Errorf("uploading %s to %s/%s: %w", localPath, s.bucket, key, err)
	}
	return nil
}
