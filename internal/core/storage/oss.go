package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
)

type OSSStore struct {
	Bucket *oss.Bucket
}

func NewOSS(o Options) (*OSSStore, error) {
	client, err := oss.New(o.Endpoint, o.AccessKey, o.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("oss.New: %w", err)
	}
	b, err := client.Bucket(o.Bucket)
	if err != nil {
		return nil, fmt.Errorf("oss.Bucket: %w", err)
	}
	return &OSSStore{Bucket: b}, nil
}

func (s *OSSStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	opts := []oss.Option{
		oss.WithContext(ctx),
		oss.ContentType(contentType),
		oss.ContentLength(size),
	}
	return s.Bucket.PutObject(key, body, opts...)
}

func (s *OSSStore) Delete(ctx context.Context, key string) error {
	return s.Bucket.DeleteObject(key, oss.WithContext(ctx))
}

func (s *OSSStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return s.Bucket.SignURL(key, oss.HTTPGet, int64(ttl/time.Second), oss.WithContext(ctx))
}
