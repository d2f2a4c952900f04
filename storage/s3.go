package storage

import (
	"bytes"
	"context"
	"errors"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

type S3Storage struct {
	bucket   Bucket
	s3Client *s3.S3
	uploader *s3manager.Uploader
}

// CreateSVC creates the S3 client for the bucket
func (b *Bucket) CreateSVC() (*s3.S3, error) {
	awsConfig := &aws.Config{
		Region: aws.String(b.Region),
	}
	if b.S3Key != "" && b.S3Secret != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(b.S3Key, b.S3Secret, "")
	}
	if b.Endpoint != "" {
		// S3 compatible services (R2, Garage, etc)
		awsConfig.Endpoint = aws.String(b.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, err
	}
	return s3.New(sess), nil
}

func NewS3Storage(bucket *Bucket) (StorageAPI, error) {
	client, err := bucket.CreateSVC()
	if err != nil {
		return nil, err
	}
	return &S3Storage{
		bucket:   *bucket,
		s3Client: client,
		uploader: s3manager.NewUploaderWithClient(client),
	}, nil
}

func (s *S3Storage) GetBucket() *Bucket {
	return &s.bucket
}

func isS3NotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
	}
	return false
}

func (s *S3Storage) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	_, err := s.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      &s.bucket.Name,
		Key:         aws.String(s.bucket.GetRemotePath(key)),
		ContentType: aws.String(contentType),
		Metadata:    aws.StringMap(metadata),
		Body:        bytes.NewReader(data),
	})
	return err
}

func (s *S3Storage) Get(ctx context.Context, key string) (*Object, error) {
	resp, err := s.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket.Name,
		Key:    aws.String(s.bucket.GetRemotePath(key)),
	})
	if isS3NotFound(err) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return &Object{
		Key:          key,
		ContentType:  aws.StringValue(resp.ContentType),
		Metadata:     aws.StringValueMap(resp.Metadata),
		Size:         aws.Int64Value(resp.ContentLength),
		LastModified: aws.TimeValue(resp.LastModified),
		Body:         resp.Body,
	}, nil
}

func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket.Name,
		Key:    aws.String(s.bucket.GetRemotePath(key)),
	})
	return err
}

func (s *S3Storage) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	result := []ObjectInfo{}
	err := s.s3Client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: &s.bucket.Name,
		Prefix: aws.String(s.bucket.GetRemotePath(prefix)),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			result = append(result, ObjectInfo{
				Key:          s.bucket.GetKey(aws.StringValue(obj.Key)),
				Size:         aws.Int64Value(obj.Size),
				LastModified: aws.TimeValue(obj.LastModified),
			})
		}
		return true
	})
	return result, err
}
