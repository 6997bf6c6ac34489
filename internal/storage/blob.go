package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"go.uber.org/zap"
	"gocloud.dev/blob"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
)

const (
	maxRetries     = 3
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

// OpenBucket opens a bucket by URL, e.g. "file:///var/lib/ici-report" or
// "mem://".
func OpenBucket(ctx context.Context, bucketURL string) (*blob.Bucket, error) {
	b, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", bucketURL, err)
	}
	return b, nil
}

// ReportKey is the object key of a generated document:
// generated_pdfs/<policyId>/<dateStr>_<unix millis>.pdf
func ReportKey(policyID, dateStr string, now time.Time) string {
	return fmt.Sprintf("generated_pdfs/%s/%s_%d.pdf", policyID, dateStr, now.UnixMilli())
}

// DocumentStore persists generated documents and builds their public URLs.
type DocumentStore struct {
	bucket        *blob.Bucket
	prefix        string
	publicBaseURL string
	logger        *zap.Logger
}

func NewDocumentStore(bucket *blob.Bucket, prefix, publicBaseURL string, logger *zap.Logger) *DocumentStore {
	return &DocumentStore{
		bucket:        bucket,
		prefix:        strings.Trim(prefix, "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}
}

// Save writes data under key, retrying transient failures, and returns the
// object key actually used (with the configured prefix).
func (s *DocumentStore) Save(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	objectKey := s.objectKey(key)
	attempt := 0
	err := retry.Do(func() error {
		attempt++
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.bucket.WriteAll(ctx, objectKey, data, &blob.WriterOptions{ContentType: contentType}); err != nil {
			s.logger.Warn("Document write failed",
				zap.String("key", objectKey),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return nil
	}, retry.Attempts(maxRetries), retry.Delay(initialBackoff), retry.MaxDelay(maxBackoff))
	if err != nil {
		return "", fmt.Errorf("save document %s: %w", objectKey, err)
	}

	s.logger.Info("Document saved",
		zap.String("key", objectKey),
		zap.Int("size_bytes", len(data)),
	)
	return objectKey, nil
}

// Read returns a stored document.
func (s *DocumentStore) Read(ctx context.Context, objectKey string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, objectKey)
	if err != nil {
		return nil, fmt.Errorf("read document %s: %w", objectKey, err)
	}
	return data, nil
}

// URL is the public download URL of an object key.
func (s *DocumentStore) URL(objectKey string) string {
	segments := strings.Split(objectKey, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	path := strings.Join(segments, "/")
	if s.publicBaseURL == "" {
		return path
	}
	return s.publicBaseURL + "/" + path
}

func (s *DocumentStore) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}
