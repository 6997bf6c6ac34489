package assets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize = 6
	DefaultTimeout   = 20 * time.Second
	DefaultMaxPixels = 1600
)

// Options tunes the prefetcher. Zero values fall back to the defaults.
type Options struct {
	BatchSize int
	Timeout   time.Duration
	MaxPixels int
}

// Prefetcher resolves image references into a Cache before layout starts.
type Prefetcher struct {
	httpClient *resty.Client
	opts       Options
	logger     *zap.Logger
}

// NewPrefetcher creates a prefetcher. Remote fetches are not retried.
func NewPrefetcher(opts Options, logger *zap.Logger) *Prefetcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxPixels == 0 {
		opts.MaxPixels = DefaultMaxPixels
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "image/*")

	return &Prefetcher{
		httpClient: client,
		opts:       opts,
		logger:     logger,
	}
}

// Prefetch resolves every reference and returns a cache holding one entry per
// distinct non-empty reference. References are resolved in batches; a batch
// starts only after every member of the previous one has settled. Failures
// and cancellation become absence markers and never abort the prefetch.
func (p *Prefetcher) Prefetch(ctx context.Context, refs []string) *Cache {
	refs = uniqueRefs(refs)
	cache := NewCache()

	for start := 0; start < len(refs); start += p.opts.BatchSize {
		batch := refs[start:min(start+p.opts.BatchSize, len(refs))]

		if ctx.Err() != nil {
			for _, ref := range batch {
				cache.Put(ref, nil)
			}
			continue
		}

		results := make([]*Asset, len(batch))
		var g errgroup.Group
		for i, ref := range batch {
			g.Go(func() error {
				asset, err := p.resolve(ctx, ref)
				if err != nil {
					p.logger.Debug("Image reference unresolved",
						zap.String("ref", shortRef(ref)),
						zap.Error(err),
					)
					return nil
				}
				results[i] = asset
				return nil
			})
		}
		_ = g.Wait()

		for i, ref := range batch {
			cache.Put(ref, results[i])
		}
	}

	p.logger.Info("Images prefetched",
		zap.Int("requested", cache.Len()),
		zap.Int("resolved", cache.Resolved()),
		zap.Int("missing", cache.Len()-cache.Resolved()),
	)
	return cache
}

func (p *Prefetcher) resolve(ctx context.Context, ref string) (*Asset, error) {
	var (
		data []byte
		err  error
	)
	if isRemote(ref) {
		data, err = p.fetch(ctx, ref)
	} else {
		data, err = decodeEmbedded(ref)
	}
	if err != nil {
		return nil, err
	}
	return normalize(data, p.opts.MaxPixels)
}

func (p *Prefetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := p.httpClient.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetch image: unexpected status %d", resp.StatusCode())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("fetch image: empty body")
	}
	return body, nil
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// shortRef keeps inline payloads out of the logs.
func shortRef(ref string) string {
	if isRemote(ref) || len(ref) <= 48 {
		return ref
	}
	return ref[:48] + "..."
}
