package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const metaSuffix = ".meta"

type DiskStorage struct {
	// BasePath is a directory (usually mount point of a disk) that is writable by the current process
	BasePath  string
	bucket    Bucket
	dirs      map[string]bool
	dirsMutex sync.Mutex
}

type diskMeta struct {
	ContentType string            `json:"content_type"`
	Metadata    map[string]string `json:"metadata"`
}

func NewDiskStorage(bucket *Bucket) (StorageAPI, error) {
	if err := os.MkdirAll(bucket.Path, 0777); err != nil {
		return nil, err
	}
	return &DiskStorage{
		BasePath: bucket.Path,
		bucket:   *bucket,
		dirs:     make(map[string]bool, 10),
	}, nil
}

func (s *DiskStorage) GetBucket() *Bucket {
	return &s.bucket
}

func (s *DiskStorage) createDir(dir string) error {
	s.dirsMutex.Lock()
	defer s.dirsMutex.Unlock()

	if ok := s.dirs[dir]; ok {
		return nil
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return err
	}
	s.dirs[dir] = true
	return nil
}

func (s *DiskStorage) getFullPath(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasSuffix(key, metaSuffix) {
		return "", errors.New("invalid key: " + key)
	}
	return filepath.Join(s.BasePath, filepath.FromSlash(key)), nil
}

// writeAtomic writes through a temp file so readers never see partial content
func writeAtomic(fileName string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(fileName), ".upload-*")
	if err != nil {
		return err
	}
	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), fileName)
}

func (s *DiskStorage) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	fileName, err := s.getFullPath(key)
	if err != nil {
		return err
	}
	if err = s.createDir(filepath.Dir(fileName)); err != nil {
		return err
	}
	meta, err := json.Marshal(diskMeta{ContentType: contentType, Metadata: metadata})
	if err != nil {
		return err
	}
	// Metadata first: a blob without its sidecar is never visible
	if err = writeAtomic(fileName+metaSuffix, meta); err != nil {
		return err
	}
	if err = writeAtomic(fileName, data); err != nil {
		os.Remove(fileName + metaSuffix)
		return err
	}
	return nil
}

func (s *DiskStorage) Get(ctx context.Context, key string) (*Object, error) {
	fileName, err := s.getFullPath(key)
	if err != nil {
		return nil, ErrNotFound
	}
	file, err := os.Open(fileName)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	var meta diskMeta
	if raw, err := os.ReadFile(fileName + metaSuffix); err == nil {
		_ = json.Unmarshal(raw, &meta)
	}
	if meta.ContentType == "" {
		meta.ContentType = "application/octet-stream"
	}
	return &Object{
		Key:          key,
		ContentType:  meta.ContentType,
		Metadata:     meta.Metadata,
		Size:         info.Size(),
		LastModified: info.ModTime(),
		Body:         file,
	}, nil
}

func (s *DiskStorage) Delete(ctx context.Context, key string) error {
	fileName, err := s.getFullPath(key)
	if err != nil {
		return err
	}
	if err = os.Remove(fileName); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err = os.Remove(fileName + metaSuffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *DiskStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	result := []ObjectInfo{}
	err := filepath.WalkDir(s.BasePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		name := d.Name()
		if d.IsDir() || strings.HasSuffix(name, metaSuffix) || strings.HasPrefix(name, ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.BasePath, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		result = append(result, ObjectInfo{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	return result, err
}
