package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

var ErrNotFound = errors.New("object not found")

// Object is a stored blob. Body must be closed by the caller.
type Object struct {
	Key          string
	ContentType  string
	Metadata     map[string]string
	Size         int64
	LastModified time.Time
	Body         io.ReadCloser
}

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// StorageAPI is the key/object store images are kept in. A failed Put must
// not leave a partially written object behind.
type StorageAPI interface {
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	GetBucket() *Bucket
}

// New creates the storage backend described by the bucket
func New(bucket *Bucket) (StorageAPI, error) {
	switch bucket.StorageType {
	case StorageTypeFile:
		return NewDiskStorage(bucket)
	case StorageTypeS3:
		return NewS3Storage(bucket)
	case StorageTypeMinio:
		return NewMinioStorage(bucket)
	case StorageTypeMemory:
		return NewMemoryStorage(bucket), nil
	}
	return nil, fmt.Errorf("storage type unavailable for bucket %q", bucket.Name)
}
