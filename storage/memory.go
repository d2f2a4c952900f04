package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

type memoryObject struct {
	data         []byte
	contentType  string
	metadata     map[string]string
	lastModified time.Time
}

// MemoryStorage keeps objects in process memory. Useful for development and tests.
type MemoryStorage struct {
	bucket  Bucket
	objects cmap.ConcurrentMap[string, memoryObject]
}

func NewMemoryStorage(bucket *Bucket) *MemoryStorage {
	return &MemoryStorage{
		bucket:  *bucket,
		objects: cmap.New[memoryObject](),
	}
}

func (s *MemoryStorage) GetBucket() *Bucket {
	return &s.bucket
}

func (s *MemoryStorage) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	s.objects.Set(key, memoryObject{
		data:         bytes.Clone(data),
		contentType:  contentType,
		metadata:     meta,
		lastModified: time.Now(),
	})
	return nil
}

func (s *MemoryStorage) Get(ctx context.Context, key string) (*Object, error) {
	obj, ok := s.objects.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	return &Object{
		Key:          key,
		ContentType:  obj.contentType,
		Metadata:     obj.metadata,
		Size:         int64(len(obj.data)),
		LastModified: obj.lastModified,
		Body:         io.NopCloser(bytes.NewReader(obj.data)),
	}, nil
}

func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.objects.Remove(key)
	return nil
}

func (s *MemoryStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	result := []ObjectInfo{}
	for item := range s.objects.IterBuffered() {
		if !strings.HasPrefix(item.Key, prefix) {
			continue
		}
		result = append(result, ObjectInfo{
			Key:          item.Key,
			Size:         int64(len(item.Val.data)),
			LastModified: item.Val.lastModified,
		})
	}
	return result, nil
}

// Touch overrides the modification time of an object
func (s *MemoryStorage) Touch(key string, at time.Time) {
	if obj, ok := s.objects.Get(key); ok {
		obj.lastModified = at
		s.objects.Set(key, obj)
	}
}

func (s *MemoryStorage) Count() int {
	return s.objects.Count()
}
