// Package storage 对象存储（PDF、静态资源）。S3 兼容存储与阿里云 OSS 两种实现。
package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	// PresignGet 生成限时 GET 链接
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Options struct {
	Driver       string // s3 | oss | memory
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

func New(ctx context.Context, o Options) (ObjectStore, error) {
	switch o.Driver {
	case "s3":
		return NewS3(ctx, o)
	case "oss":
		return NewOSS(o)
	case "memory":
		return NewMemory("http://localhost/" + o.Bucket), nil
	}
	return nil, fmt.Errorf("unsupported storage driver %q", o.Driver)
}
