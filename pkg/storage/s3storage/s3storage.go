package s3storage

import (
	"bytes"
	"context"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/menta2k/avatar-crop/pkg/storage"
)

// S3Storage AWS S3 Storage implements storage.Storage interface
type S3Storage struct {
	Client *s3.Client
	Bucket string

	BaseDir        string
	ACL            string
	StorageClass   string
	CacheControl   string
	Endpoint       string
	ForcePathStyle bool
}

var _ storage.Storage = (*S3Storage)(nil)

// New creates S3Storage. The bucket may carry a base directory as in "bucket/avatars".
func New(cfg aws.Config, bucket string, options ...Option) *S3Storage {
	baseDir := ""
	if idx := strings.Index(bucket, "/"); idx > -1 {
		baseDir = strings.Trim(bucket[idx:], "/")
		bucket = bucket[:idx]
	}
	s := &S3Storage{
		Bucket:  bucket,
		BaseDir: baseDir,
	}
	for _, option := range options {
		option(s)
	}
	s.Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
		}
		o.UsePathStyle = s.ForcePathStyle
	})
	return s
}

// Path transforms and validates an avatar key into an object key
func (s *S3Storage) Path(key string) (string, error) {
	key, err := storage.CleanKey(key)
	if err != nil {
		return "", err
	}
	if s.BaseDir == "" {
		return key, nil
	}
	return path.Join(s.BaseDir, key), nil
}

// Put implements storage.Storage interface
func (s *S3Storage) Put(ctx context.Context, key string, data []byte) error {
	objectKey, err := s.Path(key)
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(storage.ContentType(objectKey)),
	}
	if s.ACL != "" {
		input.ACL = types.ObjectCannedACL(s.ACL)
	}
	if s.StorageClass != "" {
		input.StorageClass = types.StorageClass(s.StorageClass)
	}
	if s.CacheControl != "" {
		input.CacheControl = aws.String(s.CacheControl)
	}
	_, err = s.Client.PutObject(ctx, input)
	return err
}
