package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// JobState is the lifecycle position of an asynchronous report build.
type JobState string

const (
	JobPending JobState = "pending"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Terminal reports whether no further transition is expected.
func (s JobState) Terminal() bool {
	return s == JobDone || s == JobFailed
}

const jobKeyPrefix = "report:job:"

// JobResult is the outcome of a finished build.
type JobResult struct {
	DownloadURL string `json:"downloadUrl"`
	ObjectKey   string `json:"objectKey"`
	SizeBytes   int    `json:"sizeBytes"`
}

// JobStatus is the record kept for one job id.
type JobStatus struct {
	ID        string     `json:"id"`
	State     JobState   `json:"state"`
	ReportID  string     `json:"reportId,omitempty"`
	PolicyID  string     `json:"policyId,omitempty"`
	DateStr   string     `json:"dateStr,omitempty"`
	Result    *JobResult `json:"result,omitempty"`
	Error     string     `json:"error,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// JobStore keeps job statuses in a KV with a fixed TTL.
type JobStore struct {
	kv  KV
	ttl time.Duration
	now func() time.Time
}

func NewJobStore(kv KV, ttl time.Duration) *JobStore {
	return &JobStore{kv: kv, ttl: ttl, now: time.Now}
}

func jobKey(id string) string { return jobKeyPrefix + id }

// Put stores st, stamping UpdatedAt.
func (s *JobStore) Put(ctx context.Context, st JobStatus) error {
	st.UpdatedAt = s.now().UTC()
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, jobKey(st.ID), string(b), s.ttl); err != nil {
		return fmt.Errorf("store job %s: %w", st.ID, err)
	}
	return nil
}

// Get returns ErrMiss for unknown or expired ids.
func (s *JobStore) Get(ctx context.Context, id string) (*JobStatus, error) {
	raw, err := s.kv.Get(ctx, jobKey(id))
	if err != nil {
		return nil, err
	}
	var st JobStatus
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &st, nil
}

// Delete forgets a job.
func (s *JobStore) Delete(ctx context.Context, id string) error {
	return s.kv.Delete(ctx, jobKey(id))
}

// List returns every live job, most recently updated first.
func (s *JobStore) List(ctx context.Context) ([]JobStatus, error) {
	keys, err := s.kv.ScanKeys(ctx, jobKeyPrefix+"*")
	if err != nil {
		return nil, err
	}
	out := make([]JobStatus, 0, len(keys))
	for _, k := range keys {
		st, err := s.Get(ctx, strings.TrimPrefix(k, jobKeyPrefix))
		if err != nil {
			// expired between SCAN and GET
			if errors.Is(err, ErrMiss) {
				continue
			}
			return nil, err
		}
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}
