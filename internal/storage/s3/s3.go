// Package s3 keeps the vault snapshot as a single object in an S3 (or
// MinIO) bucket. The object ETag is the revision: saves are conditional on
// the ETag seen at load, so a concurrent writer surfaces as a conflict.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/passvault-app/passvault/internal/common"
	"github.com/passvault-app/passvault/internal/models"
	"github.com/passvault-app/passvault/internal/storage"
)

// Config holds the connection settings for one bucket-backed vault.
type Config struct {
	Bucket    string `json:"bucket"`
	Key       string `json:"key"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint,omitempty"` // for MinIO/self-hosted
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// api is the slice of the S3 client the store uses; tests substitute a fake.
type api interface {
	GetObject(ctx context.Context, in *awss3.GetObjectInput, opts ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *awss3.PutObjectInput, opts ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *awss3.HeadBucketInput, opts ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
}

type Store struct {
	storage.SnapshotQuerier

	client api
	bucket string
	key    string

	mu   sync.Mutex
	etag string // revision seen on the last load; "" means no object yet
}

// NewStore builds an S3 client with static credentials and an optional
// custom endpoint.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey, cfg.SecretKey, "",
		)))
	if err != nil {
		return nil, fmt.Errorf("%w: s3 config: %v", common.ErrStorageUnavailable, err)
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewStoreWithClient(client, cfg.Bucket, cfg.Key), nil
}

// NewStoreWithClient wires an existing client; used by tests.
func NewStoreWithClient(client api, bucket, key string) *Store {
	s := &Store{client: client, bucket: bucket, key: key}
	s.LoadFunc = s.Load
	return s
}

func (s *Store) Load(ctx context.Context) (*models.StorageSnapshot, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			s.setETag("")
			return models.NewSnapshot(), nil
		}
		return nil, fmt.Errorf("%w: s3 get: %v", common.ErrStorageUnavailable, err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: s3 read: %v", common.ErrStorageUnavailable, err)
	}

	var snap models.StorageSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: parse remote snapshot: %v", common.ErrStorageUnavailable, err)
	}
	if snap.Entries == nil {
		snap.Entries = []models.Entry{}
	}

	s.setETag(aws.ToString(out.ETag))
	return &snap, nil
}

// Save writes the snapshot conditionally on the revision seen at load: a
// known ETag must still match, and a first write must not clobber an object
// created behind our back.
func (s *Store) Save(ctx context.Context, snap *models.StorageSnapshot) error {
	snap.Finalize()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	in := &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	if etag := s.currentETag(); etag != "" {
		in.IfMatch = aws.String(etag)
	} else {
		in.IfNoneMatch = aws.String("*")
	}

	out, err := s.client.PutObject(ctx, in)
	if err != nil {
		if isPreconditionFailed(err) {
			return fmt.Errorf("%w: s3 object changed since last load", common.ErrConflict)
		}
		return fmt.Errorf("%w: s3 put: %v", common.ErrStorageUnavailable, err)
	}

	s.setETag(aws.ToString(out.ETag))
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		return fmt.Errorf("%w: s3 head bucket: %v", common.ErrStorageUnavailable, err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "PreconditionFailed" || code == fmt.Sprint(http.StatusPreconditionFailed)
	}
	return false
}

func (s *Store) currentETag() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.etag
}

func (s *Store) setETag(etag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.etag = etag
}

var _ storage.Storage = (*Store)(nil)
