package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"
)

// Memory 本地开发/测试用；链接不可访问，只带过期时间
type Memory struct {
	base string
	now  func() time.Time

	mu      sync.RWMutex
	objects map[string]Object
}

type Object struct {
	Data        []byte
	ContentType string
}

func NewMemory(base string) *Memory {
	return &Memory{base: base, now: time.Now, objects: map[string]Object{}}
}

func (m *Memory) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, body)
	if err != nil {
		return err
	}
	if size >= 0 && n != size {
		return fmt.Errorf("memory: short write %d/%d", n, size)
	}
	m.mu.Lock()
	m.objects[key] = Object{Data: buf.Bytes(), ContentType: contentType}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	exp := m.now().Add(ttl).Unix()
	return fmt.Sprintf("%s/%s?expires=%d", m.base, url.PathEscape(key), exp), nil
}

func (m *Memory) Object(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	return o, ok
}
