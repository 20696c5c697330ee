package storage

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log"
	"mime"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Client is the subset of the S3 API used by S3.
//
// *s3.Client satisfies this interface.
type S3Client interface {
	manager.UploadAPIClient
	manager.DownloadAPIClient
}

// S3 implements FileSystem over S3 objects addressed as s3://bucket/key.
//
// S3 has no directories so MkdirAll is a no-op.
type S3 struct {
	Client S3Client

	// Ctx is used for all S3 calls since FileSystem methods do not accept a context.
	//
	// Default to context.Background.
	Ctx context.Context

	// ExpectedBucketOwner is passed to every S3 call if non-empty.
	ExpectedBucketOwner string

	// ChecksumAlgorithm is passed to every upload if non-empty.
	ChecksumAlgorithm types.ChecksumAlgorithm

	// Logger if given will receive a line for every multipart upload part and every download part.
	Logger *log.Logger

	once       sync.Once
	uploader   *manager.Uploader
	downloader *manager.Downloader
}

// S3Options customises NewS3.
type S3Options struct {
	// Profile is the shared config profile to load. Empty uses the default chain (AWS_PROFILE, etc.).
	Profile string

	// ExpectedBucketOwner is passed to every S3 call if non-empty.
	ExpectedBucketOwner string

	// Logger is passed to S3.Logger.
	Logger *log.Logger
}

// NewS3 creates a new S3 instance using the default AWS config.
func NewS3(ctx context.Context, optFns ...func(*S3Options)) (*S3, error) {
	opts := &S3Options{}
	for _, fn := range optFns {
		fn(opts)
	}

	var cfgOptFns []func(*config.LoadOptions) error
	if opts.Profile != "" {
		cfgOptFns = append(cfgOptFns, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, cfgOptFns...)
	if err != nil {
		return nil, fmt.Errorf("load default AWS config error: %w", err)
	}

	return &S3{
		Client:              s3.NewFromConfig(cfg),
		Ctx:                 ctx,
		ExpectedBucketOwner: opts.ExpectedBucketOwner,
		ChecksumAlgorithm:   types.ChecksumAlgorithmCrc32,
		Logger:              opts.Logger,
	}, nil
}

func (s *S3) MkdirAll(string, fs.FileMode) error {
	return nil
}

func (s *S3) WriteFile(name string, data []byte, _ fs.FileMode) error {
	bucket, key, err := ParseS3URI(name)
	if err != nil {
		return &fs.PathError{Op: "write", Path: name, Err: err}
	}

	s.init()

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		input.ContentType = aws.String(ct)
	}
	if s.ExpectedBucketOwner != "" {
		input.ExpectedBucketOwner = aws.String(s.ExpectedBucketOwner)
	}
	if s.ChecksumAlgorithm != "" {
		input.ChecksumAlgorithm = s.ChecksumAlgorithm
	}

	if _, err = s.uploader.Upload(s.ctx(), input); err != nil {
		return &fs.PathError{Op: "write", Path: name, Err: err}
	}

	return nil
}

func (s *S3) ReadFile(name string) ([]byte, error) {
	bucket, key, err := ParseS3URI(name)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if s.ExpectedBucketOwner != "" {
		input.ExpectedBucketOwner = aws.String(s.ExpectedBucketOwner)
	}

	s.init()

	buf := manager.NewWriteAtBuffer(nil)
	if _, err = s.downloader.Download(s.ctx(), buf, input); err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}

	return buf.Bytes(), nil
}

func (s *S3) init() {
	s.once.Do(func() {
		client := s.Client
		if s.Logger != nil {
			client = &loggingClient{S3Client: client, logger: s.Logger}
		}

		s.uploader = manager.NewUploader(client)
		s.downloader = manager.NewDownloader(client)
	})
}

func (s *S3) ctx() context.Context {
	if s.Ctx == nil {
		return context.Background()
	}

	return s.Ctx
}

// ParseS3URI parses S3 URIs in format s3://bucket/key.
//
// The key must not be empty. Bucket names are not validated.
func ParseS3URI(text string) (bucket, key string, err error) {
	if !IsS3URI(text) {
		return "", "", fmt.Errorf(`"%s" does not start with s3://`, text)
	}

	parts := strings.SplitN(strings.TrimPrefix(text, "s3://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf(`"%s" is not in format s3://bucket/key`, text)
	}

	return parts[0], parts[1], nil
}

var _ FileSystem = (*S3)(nil)
