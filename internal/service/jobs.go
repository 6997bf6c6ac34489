package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	rediscommon "ici-report/internal/common/redis"
	"ici-report/internal/store"
)

// JobMessage is the payload queued for one asynchronous build.
type JobMessage struct {
	JobID   string          `json:"jobId"`
	Request GenerateRequest `json:"request"`
}

// JobQueue hands job messages to the worker side.
type JobQueue interface {
	Enqueue(ctx context.Context, msg JobMessage) error
}

// StreamQueue publishes jobs on a Redis stream.
type StreamQueue struct {
	client *redis.Client
	stream string
}

func NewStreamQueue(client *redis.Client, stream string) *StreamQueue {
	return &StreamQueue{client: client, stream: stream}
}

func (q *StreamQueue) Enqueue(ctx context.Context, msg JobMessage) error {
	if _, err := rediscommon.PublishJSONToStream(ctx, q.client, q.stream, msg); err != nil {
		return fmt.Errorf("publish job %s: %w", msg.JobID, err)
	}
	return nil
}

// JobService runs report builds asynchronously and tracks their state.
type JobService interface {
	Submit(ctx context.Context, req GenerateRequest) (*store.JobStatus, error)
	Status(ctx context.Context, jobID string) (*store.JobStatus, error)
	// Run executes a queued job and records its terminal state. The returned
	// error is only set when the state itself could not be written.
	Run(ctx context.Context, msg JobMessage) error
}

type jobService struct {
	reports ReportService
	jobs    *store.JobStore
	queue   JobQueue
	logger  *zap.Logger
	newID   func() string
}

func NewJobService(reports ReportService, jobs *store.JobStore, queue JobQueue, logger *zap.Logger) JobService {
	return &jobService{
		reports: reports,
		jobs:    jobs,
		queue:   queue,
		logger:  logger,
		newID:   func() string { return uuid.New().String() },
	}
}

func (s *jobService) Submit(ctx context.Context, req GenerateRequest) (*store.JobStatus, error) {
	req = req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	st := store.JobStatus{
		ID:       s.newID(),
		State:    store.JobPending,
		ReportID: req.ReportID,
		PolicyID: req.PolicyID,
		DateStr:  req.DateStr,
	}
	if err := s.jobs.Put(ctx, st); err != nil {
		return nil, internal("No se pudo registrar el trabajo.", err)
	}
	if err := s.queue.Enqueue(ctx, JobMessage{JobID: st.ID, Request: req}); err != nil {
		st.State = store.JobFailed
		st.Error = "No se pudo encolar el trabajo."
		st.Reason = CodeInternal
		if putErr := s.jobs.Put(ctx, st); putErr != nil {
			s.logger.Warn("Failed to mark job failed", zap.String("job_id", st.ID), zap.Error(putErr))
		}
		return nil, internal(st.Error, err)
	}

	s.logger.Info("Job queued", zap.String("job_id", st.ID))
	return &st, nil
}

func (s *jobService) Status(ctx context.Context, jobID string) (*store.JobStatus, error) {
	st, err := s.jobs.Get(ctx, jobID)
	if errors.Is(err, store.ErrMiss) {
		return nil, notFound("Trabajo no encontrado.", err)
	}
	if err != nil {
		return nil, internal("No se pudo leer el trabajo.", err)
	}
	return st, nil
}

func (s *jobService) Run(ctx context.Context, msg JobMessage) error {
	st := store.JobStatus{
		ID:       msg.JobID,
		State:    store.JobRunning,
		ReportID: msg.Request.ReportID,
		PolicyID: msg.Request.PolicyID,
		DateStr:  msg.Request.DateStr,
	}
	if err := s.jobs.Put(ctx, st); err != nil {
		return err
	}

	res, err := s.reports.GenerateServiceReportPdf(ctx, msg.Request)
	if err != nil {
		st.State = store.JobFailed
		st.Error = MessageOf(err)
		st.Reason = CodeOf(err)
		s.logger.Error("Job failed", zap.String("job_id", msg.JobID), zap.Error(err))
	} else {
		st.State = store.JobDone
		st.Result = &store.JobResult{
			DownloadURL: res.DownloadURL,
			ObjectKey:   res.ObjectKey,
			SizeBytes:   res.SizeBytes,
		}
		s.logger.Info("Job done", zap.String("job_id", msg.JobID), zap.String("object_key", res.ObjectKey))
	}
	return s.jobs.Put(ctx, st)
}
