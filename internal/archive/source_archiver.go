// Package archive best-effort archives graded submission source to object
// storage, keyed by submission id, for later audit. Failures here never
// fail a submission; they are logged and swallowed.
package archive

import (
	"bytes"
	"context"
	"fmt"

	"codejudge/pkg/utils/logger"

	"github.com/klauspost/compress/gzip"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Config holds the object-storage settings the archiver needs.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// SourceArchiver uploads gzip-compressed submission source under
// "<submissionID>/<language>.gz" in the configured bucket.
type SourceArchiver struct {
	client *minio.Client
	bucket string
}

// New builds a SourceArchiver. It does not create the bucket; operators are
// expected to provision it ahead of time.
func New(cfg Config) (*SourceArchiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &SourceArchiver{client: client, bucket: cfg.Bucket}, nil
}

// Archive gzips code and uploads it under a key derived from submissionID
// and language. Errors are returned to the caller, who is expected to log
// and discard them rather than fail the submission on their account.
func (a *SourceArchiver) Archive(ctx context.Context, submissionID, language, code string) error {
	buf, err := gzipSource(code)
	if err != nil {
		return err
	}

	key := objectKey(submissionID, language)
	_, err = a.client.PutObject(ctx, a.bucket, key, buf, int64(buf.Len()), minio.PutObjectOptions{
		ContentType:     "application/gzip",
		ContentEncoding: "gzip",
	})
	if err != nil {
		return fmt.Errorf("upload submission source: %w", err)
	}
	return nil
}

// objectKey derives the bucket key for a submission's archived source.
func objectKey(submissionID, language string) string {
	return fmt.Sprintf("%s/%s.gz", submissionID, language)
}

// gzipSource compresses code into a gzip member, isolated from the network
// call so it can be tested without an object-storage server.
func gzipSource(code string) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(code)); err != nil {
		return nil, fmt.Errorf("gzip submission source: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("close gzip writer: %w", err)
	}
	return &buf, nil
}

// ArchiveBestEffort calls Archive and only logs a failure; it never returns
// an error, so callers on the hot submission path can fire-and-forget it.
func (a *SourceArchiver) ArchiveBestEffort(ctx context.Context, submissionID, language, code string) {
	if err := a.Archive(ctx, submissionID, language, code); err != nil {
		logger.Warn(ctx, "source archive failed",
			zap.String("submission_id", submissionID), zap.String("language", language), zap.Error(err))
	}
}
