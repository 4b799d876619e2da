package artifacts

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/formbridge/formbridge/internal/config"
	"github.com/formbridge/formbridge/internal/domain"
)

// MinIOStore keeps artifacts in an S3-compatible bucket, one object per
// key.
type MinIOStore struct {
	client *minio.Client
	bucket string
}

// NewMinIOStore creates an object-storage-backed store and ensures the
// bucket exists.
func NewMinIOStore(ctx context.Context, cfg config.StorageConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, domain.ErrStorage(err)
	}

	s := &MinIOStore{client: client, bucket: cfg.Bucket}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, domain.ErrStorage(err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, domain.ErrStorage(err)
		}
	}

	return s, nil
}

// Put uploads an artifact as application/json.
func (s *MinIOStore) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return domain.ErrStorage(err)
	}
	return nil
}

// Get downloads an artifact by key.
func (s *MinIOStore) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, domain.ErrStorage(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, domain.ErrNotFound("artifact", key)
		}
		return nil, domain.ErrStorage(err)
	}
	return data, nil
}

// GetLatest returns the lexically greatest key under prefix.
func (s *MinIOStore) GetLatest(ctx context.Context, prefix string) (string, []byte, error) {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return "", nil, err
	}
	if len(keys) == 0 {
		return "", nil, domain.ErrNotFound("artifact", prefix+"*")
	}
	latest := keys[len(keys)-1]
	data, err := s.Get(ctx, latest)
	if err != nil {
		return "", nil, err
	}
	return latest, data, nil
}

// List returns all keys under prefix, sorted ascending.
func (s *MinIOStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, domain.ErrStorage(obj.Err)
		}
		if strings.HasPrefix(obj.Key, prefix) {
			keys = append(keys, obj.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
