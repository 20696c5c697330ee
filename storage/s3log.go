package storage

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// loggingClient logs every successful part that manager.Uploader and manager.Downloader transfer.
//
// The hooks may be called from any of the goroutines transferring parts in parallel, so only a running tally is kept.
type loggingClient struct {
	S3Client
	logger *log.Logger

	uploaded, downloaded atomic.Int64
}

func (c *loggingClient) UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	out, err := c.S3Client.UploadPart(ctx, params, optFns...)
	if err == nil {
		c.logger.Printf("uploaded %d parts so far", c.uploaded.Add(1))
	}

	return out, err
}

func (c *loggingClient) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	out, err := c.S3Client.GetObject(ctx, params, optFns...)
	if err == nil {
		c.logger.Printf("downloaded %d parts so far", c.downloaded.Add(1))
	}

	return out, err
}
