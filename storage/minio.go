package storage

import (
	"bytes"
	"context"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioStorage struct {
	bucket Bucket
	client *minio.Client
}

func NewMinioStorage(bucket *Bucket) (StorageAPI, error) {
	client, err := minio.New(bucket.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(bucket.S3Key, bucket.S3Secret, ""),
		Secure: bucket.UseSSL,
		Region: bucket.Region,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorage{bucket: *bucket, client: client}, nil
}

func (s *MinioStorage) GetBucket() *Bucket {
	return &s.bucket
}

func isMinioNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (s *MinioStorage) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	_, err := s.client.PutObject(ctx, s.bucket.Name, s.bucket.GetRemotePath(key),
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  contentType,
			UserMetadata: metadata,
		})
	return err
}

func (s *MinioStorage) Get(ctx context.Context, key string) (*Object, error) {
	obj, err := s.client.GetObject(ctx, s.bucket.Name, s.bucket.GetRemotePath(key), minio.GetObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	// GetObject is lazy, Stat performs the request
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isMinioNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &Object{
		Key:          key,
		ContentType:  info.ContentType,
		Metadata:     info.UserMetadata,
		Size:         info.Size,
		LastModified: info.LastModified,
		Body:         obj,
	}, nil
}

func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket.Name, s.bucket.GetRemotePath(key), minio.RemoveObjectOptions{})
}

func (s *MinioStorage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	result := []ObjectInfo{}
	for obj := range s.client.ListObjects(ctx, s.bucket.Name, minio.ListObjectsOptions{
		Prefix:    s.bucket.GetRemotePath(prefix),
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		result = append(result, ObjectInfo{
			Key:          s.bucket.GetKey(obj.Key),
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return result, nil
}
