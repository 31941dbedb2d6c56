package s3storage

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/johannesboyne/gofakes3"
	"github.com/johannesboyne/gofakes3/backend/s3mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/avatar-crop/pkg/storage"
)

func TestS3Storage_Path(t *testing.T) {
	tests := []struct {
		name           string
		bucket         string
		baseDir        string
		key            string
		expectedPath   string
		expectedBucket string
		expectedErr    error
	}{
		{
			name:           "defaults ok",
			bucket:         "mybucket",
			key:            "/foo/bar.webp",
			expectedBucket: "mybucket",
			expectedPath:   "foo/bar.webp",
		},
		{
			name:           "base dir option",
			bucket:         "mybucket",
			baseDir:        "/avatars/",
			key:            "bar.png",
			expectedBucket: "mybucket",
			expectedPath:   "avatars/bar.png",
		},
		{
			name:           "extract bucket path",
			bucket:         "mybucket/home/avatars",
			key:            "bar.png",
			expectedBucket: "mybucket",
			expectedPath:   "home/avatars/bar.png",
		},
		{
			name:           "must not escalate",
			bucket:         "mybucket/avatars",
			key:            "../../secret.png",
			expectedBucket: "mybucket",
			expectedPath:   "avatars/secret.png",
		},
		{
			name:           "hidden key",
			bucket:         "mybucket",
			key:            "a/.b",
			expectedBucket: "mybucket",
			expectedErr:    storage.ErrInvalidKey,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(aws.Config{Region: "us-east-1"}, tt.bucket, WithBaseDir(tt.baseDir))
			res, err := s.Path(tt.key)
			assert.Equal(t, tt.expectedBucket, s.Bucket)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedPath, res)
		})
	}
}

func fakeS3Server() *httptest.Server {
	backend := s3mem.New()
	faker := gofakes3.New(backend)
	return httptest.NewServer(faker.Server())
}

func fakeS3Config() aws.Config {
	return aws.Config{
		Region:      "eu-central-1",
		Credentials: credentials.NewStaticCredentialsProvider("YOUR-ACCESSKEYID", "YOUR-SECRETACCESSKEY", ""),
	}
}

func newFakeStorage(t *testing.T, ts *httptest.Server, bucket string, options ...Option) *S3Storage {
	t.Helper()
	options = append(options, WithEndpoint(ts.URL), WithForcePathStyle(true))
	s := New(fakeS3Config(), bucket, options...)
	_, err := s.Client.CreateBucket(context.Background(), &s3.CreateBucketInput{
		Bucket: aws.String(s.Bucket),
	})
	require.NoError(t, err)
	return s
}

func TestPut(t *testing.T) {
	ts := fakeS3Server()
	defer ts.Close()

	ctx := context.Background()
	s := newFakeStorage(t, ts, "test/avatars", WithACL("public-read"), WithCacheControl("max-age=3600"))

	require.NoError(t, s.Put(ctx, "team/alice.webp", []byte("bar")))

	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String("test"),
		Key:    aws.String("avatars/team/alice.webp"),
	})
	require.NoError(t, err)
	defer out.Body.Close()
	buf, err := io.ReadAll(out.Body)
	require.NoError(t, err)
	assert.Equal(t, "bar", string(buf))
	assert.Equal(t, "image/webp", aws.ToString(out.ContentType))

	assert.ErrorIs(t, s.Put(ctx, ".hidden", []byte("x")), storage.ErrInvalidKey)
}

func TestPutMissingBucket(t *testing.T) {
	ts := fakeS3Server()
	defer ts.Close()

	s := New(fakeS3Config(), "nope", WithEndpoint(ts.URL), WithForcePathStyle(true))
	assert.Error(t, s.Put(context.Background(), "a.png", []byte("x")))
}

func TestOptions(t *testing.T) {
	s := New(aws.Config{Region: "us-east-1"}, "b",
		WithACL("not-an-acl"), WithStorageClass("STANDARD_IA"), WithEndpoint(""))
	assert.Empty(t, s.ACL)
	assert.Equal(t, "STANDARD_IA", s.StorageClass)
	assert.Empty(t, s.Endpoint)

	s = New(aws.Config{Region: "us-east-1"}, "b", WithACL("private"), WithStorageClass("MOON"))
	assert.Equal(t, "private", s.ACL)
	assert.Empty(t, s.StorageClass)
}
