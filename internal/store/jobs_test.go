package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *JobStore) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewJobStore(NewRedisKV(client), time.Hour)
}

func TestJobStore_PutGet(t *testing.T) {
	_, jobs := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, jobs.Put(ctx, JobStatus{ID: "j1", State: JobPending, ReportID: "rep-1"}))
	require.NoError(t, jobs.Put(ctx, JobStatus{
		ID:     "j1",
		State:  JobDone,
		Result: &JobResult{DownloadURL: "https://x/a.pdf", SizeBytes: 42},
	}))

	st, err := jobs.Get(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, JobDone, st.State)
	assert.True(t, st.State.Terminal())
	require.NotNil(t, st.Result)
	assert.Equal(t, 42, st.Result.SizeBytes)
	assert.False(t, st.UpdatedAt.IsZero())
}

func TestJobStore_MissAndExpiry(t *testing.T) {
	mr, jobs := setupTestRedis(t)
	ctx := context.Background()

	_, err := jobs.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, jobs.Put(ctx, JobStatus{ID: "j2", State: JobRunning}))
	assert.Equal(t, time.Hour, mr.TTL(jobKey("j2")))

	mr.FastForward(2 * time.Hour)
	_, err = jobs.Get(ctx, "j2")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestJobStore_ListNewestFirst(t *testing.T) {
	mr, jobs := setupTestRedis(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	jobs.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	require.NoError(t, jobs.Put(ctx, JobStatus{ID: "old", State: JobDone}))
	require.NoError(t, jobs.Put(ctx, JobStatus{ID: "new", State: JobPending}))
	require.NoError(t, mr.Set("unrelated", "x"))

	list, err := jobs.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)

	require.NoError(t, jobs.Delete(ctx, "new"))
	list, err = jobs.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestJobState_Terminal(t *testing.T) {
	assert.False(t, JobPending.Terminal())
	assert.False(t, JobRunning.Terminal())
	assert.True(t, JobFailed.Terminal())
}
