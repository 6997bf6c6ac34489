package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	rediscommon "ici-report/internal/common/redis"
	"ici-report/internal/service"
)

const (
	readBlock      = 2 * time.Second
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Options names the stream and consumer identity.
type Options struct {
	Stream    string
	Group     string
	Consumer  string
	BatchSize int64
}

// JobConsumer runs queued report builds from a Redis stream. An entry is
// acknowledged only after the job's terminal state has been stored, so a
// crash mid-build leaves it pending for the next start.
type JobConsumer struct {
	opts        Options
	redisClient *redis.Client
	jobs        service.JobService
	logger      *zap.Logger
}

func NewJobConsumer(opts Options, redisClient *redis.Client, jobs service.JobService, logger *zap.Logger) *JobConsumer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	return &JobConsumer{
		opts:        opts,
		redisClient: redisClient,
		jobs:        jobs,
		logger:      logger,
	}
}

// Start consumes until ctx is cancelled.
func (c *JobConsumer) Start(ctx context.Context) error {
	if err := rediscommon.CreateConsumerGroup(ctx, c.redisClient, c.opts.Stream, c.opts.Group); err != nil {
		return fmt.Errorf("failed to create consumer group for %s: %w", c.opts.Stream, err)
	}

	c.logger.Info("Job consumer started",
		zap.String("stream", c.opts.Stream),
		zap.String("consumer_group", c.opts.Group),
		zap.String("consumer_name", c.opts.Consumer),
	)

	if err := c.recoverPending(ctx); err != nil {
		c.logger.Warn("Failed to recover pending jobs", zap.Error(err))
	}

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := c.consumeOnce(ctx, readBlock); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("Failed to consume job stream",
				zap.Error(err),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
				backoff = min(backoff*2, maxBackoff)
			}
			continue
		}
		backoff = initialBackoff
	}
}

// consumeOnce reads one batch of new entries and processes it.
func (c *JobConsumer) consumeOnce(ctx context.Context, block time.Duration) error {
	messages, err := rediscommon.ReadFromStream(ctx, c.redisClient,
		c.opts.Stream, c.opts.Group, c.opts.Consumer, c.opts.BatchSize, block)
	if err != nil {
		return fmt.Errorf("failed to read from stream %s: %w", c.opts.Stream, err)
	}
	c.processAll(ctx, messages)
	return nil
}

func (c *JobConsumer) recoverPending(ctx context.Context) error {
	messages, err := rediscommon.ReadPending(ctx, c.redisClient,
		c.opts.Stream, c.opts.Group, c.opts.Consumer, 100)
	if err != nil {
		return err
	}
	if len(messages) > 0 {
		c.logger.Info("Recovering pending jobs", zap.Int("count", len(messages)))
	}
	c.processAll(ctx, messages)
	return nil
}

func (c *JobConsumer) processAll(ctx context.Context, messages []rediscommon.StreamMessage) {
	for _, msg := range messages {
		if err := c.processMessage(ctx, msg); err != nil {
			c.logger.Error("Failed to process job",
				zap.String("message_id", msg.ID),
				zap.Error(err),
			)
			continue
		}
		if err := rediscommon.Ack(ctx, c.redisClient, c.opts.Stream, c.opts.Group, msg.ID); err != nil {
			c.logger.Error("Failed to ack job", zap.String("message_id", msg.ID), zap.Error(err))
		}
	}
}

// processMessage returns an error only when the entry should stay pending.
func (c *JobConsumer) processMessage(ctx context.Context, msg rediscommon.StreamMessage) error {
	job, err := parseJobMessage(msg.Values)
	if err != nil {
		// retrying cannot fix a malformed entry
		c.logger.Warn("Dropping malformed job entry",
			zap.String("message_id", msg.ID),
			zap.Error(err),
		)
		return nil
	}
	return c.jobs.Run(ctx, job)
}

func parseJobMessage(values map[string]interface{}) (service.JobMessage, error) {
	var job service.JobMessage
	raw, ok := values["data"].(string)
	if !ok {
		return job, fmt.Errorf("missing data field")
	}
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return job, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	if job.JobID == "" {
		return job, fmt.Errorf("job without id")
	}
	return job, nil
}
