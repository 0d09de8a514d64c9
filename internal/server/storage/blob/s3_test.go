package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/modelmirror/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	objects map[string][]byte
	headErr error
	getErr  error
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	b, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

type fakeUploader struct {
	s3     *fakeS3
	err    error
	bucket string
}

func (u *fakeUploader) Upload(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if u.err != nil {
		return nil, u.err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	u.bucket = *in.Bucket
	u.s3.objects[*in.Key] = b
	return &manager.UploadOutput{}, nil
}

type fakePresign struct {
	ttl time.Duration
}

func (p *fakePresign) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	var o s3.PresignOptions
	for _, fn := range optFns {
		fn(&o)
	}
	p.ttl = o.Expires
	return &v4.PresignedHTTPRequest{URL: "https://example/" + *in.Bucket + "/" + *in.Key}, nil
}

func newFakeStore() (*S3Store, *fakeS3, *fakeUploader) {
	f := &fakeS3{objects: map[string][]byte{}}
	u := &fakeUploader{s3: f}
	return &S3Store{client: f, uploader: u, presign: &fakePresign{}, bucket: "models"}, f, u
}

func TestS3Store_WriteThenRead(t *testing.T) {
	s, _, u := newFakeStore()
	ctx := context.Background()

	n, err := s.WriteStream(ctx, "models/m1/files/f1", strings.NewReader("weights"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
	assert.Equal(t, "models", u.bucket)

	ok, err := s.Exists(ctx, "models/m1/files/f1")
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.ReadStream(ctx, "models/m1/files/f1")
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "weights", string(b))
}

func TestS3Store_Missing(t *testing.T) {
	s, _, _ := newFakeStore()
	ctx := context.Background()

	ok, err := s.Exists(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.ReadStream(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestS3Store_Errors(t *testing.T) {
	s, f, u := newFakeStore()
	ctx := context.Background()
	boom := errors.New("boom")

	f.headErr = boom
	_, err := s.Exists(ctx, "k")
	assert.ErrorIs(t, err, boom)

	f.getErr = boom
	_, err = s.ReadStream(ctx, "k")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, common.ErrorNotFound)

	u.err = boom
	_, err = s.WriteStream(ctx, "k", strings.NewReader("x"))
	assert.ErrorIs(t, err, boom)
}

func TestS3Store_PresignGet(t *testing.T) {
	s, _, _ := newFakeStore()
	p := &fakePresign{}
	s.presign = p

	url, err := s.PresignGet(context.Background(), "exports/m1/a.tar.gz", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://example/models/exports/m1/a.tar.gz", url)
	assert.Equal(t, 15*time.Minute, p.ttl)
}

func TestNewS3Store_AppliesConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return s3.New(s3.Options{Region: "us-east-1"})
	}

	s, err := NewS3Store(context.Background(), Config{
		Endpoint: "http://127.0.0.1:9000",
		Region:   "us-east-1",
		User:     "u",
		Password: "p",
		Bucket:   "models",
	})
	require.NoError(t, err)
	assert.Equal(t, "models", s.Bucket())
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Store_LoadError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewS3Store(context.Background(), Config{})
	require.Error(t, err)
}
