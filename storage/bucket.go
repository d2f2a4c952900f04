package storage

import (
	"memorylane/config"
	"strings"
)

type StorageType uint8

const (
	StorageTypeFile   StorageType = 0
	StorageTypeS3     StorageType = 1
	StorageTypeMinio  StorageType = 2
	StorageTypeMemory StorageType = 3
)

var storageTypes = map[string]StorageType{
	"disk":   StorageTypeFile,
	"s3":     StorageTypeS3,
	"minio":  StorageTypeMinio,
	"memory": StorageTypeMemory,
}

type Bucket struct {
	Name        string
	StorageType StorageType
	Path        string // Path on a drive or a prefix in a S3 bucket
	Region      string
	Endpoint    string
	S3Key       string
	S3Secret    string
	UseSSL      bool
}

func NewBucket(cfg config.Storage) *Bucket {
	return &Bucket{
		Name:        cfg.Bucket,
		StorageType: storageTypes[cfg.Type],
		Path:        cfg.Path,
		Region:      cfg.Region,
		Endpoint:    cfg.Endpoint,
		S3Key:       cfg.Key,
		S3Secret:    cfg.Secret,
		UseSSL:      cfg.UseSSL,
	}
}

func (b *Bucket) IsS3() bool {
	return b.StorageType == StorageTypeS3 || b.StorageType == StorageTypeMinio
}

// GetRemotePath prefixes the key with the bucket path, if any
func (b *Bucket) GetRemotePath(key string) string {
	prefix := strings.Trim(b.Path, "/")
	if prefix == "" || prefix == "." {
		return key
	}
	return prefix + "/" + key
}

// GetKey is the reverse of GetRemotePath
func (b *Bucket) GetKey(remotePath string) string {
	prefix := strings.Trim(b.Path, "/")
	if prefix == "" || prefix == "." {
		return remotePath
	}
	return strings.TrimPrefix(remotePath, prefix+"/")
}
