package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/passvault-app/passvault/internal/common"
	"github.com/passvault-app/passvault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBucket is an in-memory single-object bucket honoring the conditional
// write semantics the store relies on.
type fakeBucket struct {
	mu   sync.Mutex
	data []byte
	etag string
	rev  int
}

type preconditionErr struct{}

func (preconditionErr) Error() string                 { return "precondition failed" }
func (preconditionErr) ErrorCode() string             { return "PreconditionFailed" }
func (preconditionErr) ErrorMessage() string          { return "precondition failed" }
func (preconditionErr) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

func (f *fakeBucket) GetObject(ctx context.Context, in *awss3.GetObjectInput, opts ...func(*awss3.Options)) (*awss3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		return nil, &types.NoSuchKey{}
	}
	return &awss3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(f.data)),
		ETag: aws.String(f.etag),
	}, nil
}

func (f *fakeBucket) PutObject(ctx context.Context, in *awss3.PutObjectInput, opts ...func(*awss3.Options)) (*awss3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if in.IfMatch != nil && aws.ToString(in.IfMatch) != f.etag {
		return nil, preconditionErr{}
	}
	if in.IfNoneMatch != nil && f.data != nil {
		return nil, preconditionErr{}
	}

	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.data = data
	f.rev++
	f.etag = fmt.Sprintf("etag-%d", f.rev)
	return &awss3.PutObjectOutput{ETag: aws.String(f.etag)}, nil
}

func (f *fakeBucket) HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, opts ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error) {
	return &awss3.HeadBucketOutput{}, nil
}

func newTestStore() (*Store, *fakeBucket) {
	bucket := &fakeBucket{}
	return NewStoreWithClient(bucket, "vault-bucket", "vault.json"), bucket
}

func TestLoad_MissingObjectIsEmptySnapshot(t *testing.T) {
	s, _ := newTestStore()

	snap, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Entries)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	snap := models.NewSnapshot()
	snap.Upsert(models.Entry{ID: "1", Title: "Bank"})
	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "Bank", got.Entries[0].Title)
}

func TestSave_ConcurrentWriterIsConflict(t *testing.T) {
	s, bucket := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, models.NewSnapshot()))

	// another writer bumps the revision
	bucket.mu.Lock()
	bucket.rev++
	bucket.etag = fmt.Sprintf("etag-%d", bucket.rev)
	bucket.mu.Unlock()

	err := s.Save(ctx, models.NewSnapshot())
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestSave_FirstWriteDoesNotClobber(t *testing.T) {
	s, bucket := newTestStore()
	ctx := context.Background()

	// object appears before our first save
	bucket.mu.Lock()
	bucket.data = []byte("{}")
	bucket.etag = "etag-x"
	bucket.mu.Unlock()

	err := s.Save(ctx, models.NewSnapshot())
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestPing(t *testing.T) {
	s, _ := newTestStore()
	assert.NoError(t, s.Ping(context.Background()))
}
