package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gocloud.dev/blob/memblob"
)

func TestReportKey(t *testing.T) {
	now := time.UnixMilli(1736100000123)
	assert.Equal(t, "generated_pdfs/pol-1/2025-01_1736100000123.pdf", ReportKey("pol-1", "2025-01", now))
}

func TestDocumentStore_SaveAndURL(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	s := NewDocumentStore(bucket, "/reports/", "https://files.example.com/ici/", zap.NewNop())
	ctx := context.Background()

	key, err := s.Save(ctx, "generated_pdfs/pol 1/2025-01_1.pdf", []byte("%PDF-1.3"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "reports/generated_pdfs/pol 1/2025-01_1.pdf", key)

	data, err := s.Read(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))

	attrs, err := bucket.Attributes(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", attrs.ContentType)

	assert.Equal(t, "https://files.example.com/ici/reports/generated_pdfs/pol%201/2025-01_1.pdf", s.URL(key))
}

func TestDocumentStore_SaveFailsOnCancelledContext(t *testing.T) {
	bucket := memblob.OpenBucket(nil)
	defer bucket.Close()

	s := NewDocumentStore(bucket, "", "", zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Save(ctx, "a.pdf", []byte("x"), "application/pdf")
	assert.Error(t, err)
}

func TestOpenBucket_Mem(t *testing.T) {
	b, err := OpenBucket(context.Background(), "mem://")
	require.NoError(t, err)
	require.NoError(t, b.Close())
}
