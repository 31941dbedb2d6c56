package s3storage

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Option S3Storage option
type Option func(h *S3Storage)

// WithBaseDir with base dir option
func WithBaseDir(baseDir string) Option {
	return func(s *S3Storage) {
		if baseDir = strings.Trim(baseDir, "/"); baseDir != "" {
			s.BaseDir = baseDir
		}
	}
}

var aclValuesMap = (func() map[string]bool {
	m := map[string]bool{}
	for _, acl := range types.ObjectCannedACL("").Values() {
		m[string(acl)] = true
	}
	return m
})()

// WithACL with ACL option
// https://docs.aws.amazon.com/AmazonS3/latest/userguide/acl-overview.html#canned-acl
func WithACL(acl string) Option {
	return func(h *S3Storage) {
		if aclValuesMap[acl] {
			h.ACL = acl
		}
	}
}

// WithStorageClass with storage class option
func WithStorageClass(storageClass string) Option {
	return func(h *S3Storage) {
		for _, allowed := range types.StorageClass("").Values() {
			if storageClass == string(allowed) {
				h.StorageClass = storageClass
				return
			}
		}
	}
}

// WithCacheControl with Cache-Control header option
func WithCacheControl(cacheControl string) Option {
	return func(h *S3Storage) {
		h.CacheControl = cacheControl
	}
}

// WithEndpoint with custom S3 endpoint option
func WithEndpoint(endpoint string) Option {
	return func(s *S3Storage) {
		if endpoint != "" {
			s.Endpoint = endpoint
		}
	}
}

// WithForcePathStyle with force path style option
func WithForcePathStyle(forcePathStyle bool) Option {
	return func(s *S3Storage) {
		s.ForcePathStyle = forcePathStyle
	}
}
