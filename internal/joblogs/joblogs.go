// Package joblogs fetches job log files from S3 for ABEND records.
package joblogs

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/adrplatform/abend-tracker/internal/awsclient"
)

// S3Location is a parsed s3:// URI.
type S3Location struct {
	Bucket string
	Key    string
}

// ParseS3URI splits an s3://bucket/key URI into bucket and key.
func ParseS3URI(uri string) (S3Location, error) {
	const scheme = "s3://"
	if !strings.HasPrefix(uri, scheme) {
		return S3Location{}, fmt.Errorf("not an s3 URI: %q", uri)
	}
	rest := strings.TrimPrefix(uri, scheme)
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return S3Location{}, fmt.Errorf("s3 URI missing bucket or key: %q", uri)
	}
	return S3Location{Bucket: bucket, Key: key}, nil
}

// LogContent is a fetched log file with its object metadata.
type LogContent struct {
	Content      string
	Size         int64
	LastModified *time.Time
}

// Fetcher downloads log files from S3.
type Fetcher struct {
	s3     awsclient.S3API
	logger *zap.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(s3Client awsclient.S3API, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{s3: s3Client, logger: logger}
}

// Fetch downloads the object at an s3:// URI and returns its content.
func (f *Fetcher) Fetch(ctx context.Context, uri string) (*LogContent, error) {
	loc, err := ParseS3URI(uri)
	if err != nil {
		return nil, err
	}

	out, err := f.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &loc.Bucket,
		Key:    &loc.Key,
	})
	if err != nil {
		return nil, fmt.Errorf("get s3 object %s: %w", uri, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object %s: %w", uri, err)
	}

	content := &LogContent{
		Content:      string(body),
		Size:         int64(len(body)),
		LastModified: out.LastModified,
	}
	f.logger.Debug("fetched job log",
		zap.String("bucket", loc.Bucket),
		zap.String("key", loc.Key),
		zap.Int64("size", content.Size))
	return content, nil
}
