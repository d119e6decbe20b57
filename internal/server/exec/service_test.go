package exec

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForStatus(t *testing.T, svc *Service, jobID string, want JobStatus) *Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := svc.Get(jobID)
		require.NoError(t, err)
		if job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", jobID, want)
	return nil
}

func TestQueueOrdering(t *testing.T) {
	q := NewQueue[string]()
	q.Enqueue("second", 2)
	q.Enqueue("first", 1)
	q.Enqueue("third", 3)

	for _, want := range []string{"first", "second", "third"} {
		got, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	_, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestServiceRunsJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewService(RunnerFunc(func(ctx context.Context, job *Job) (string, error) {
		return "ran " + job.EntrypointFile, nil
	}))
	require.NoError(t, svc.Start(ctx))

	job, err := svc.Submit(ctx, "ws1", 4, "/main.py", `{"n":1}`)
	require.NoError(t, err)
	assert.Equal(t, JobQueued, job.Status)
	assert.EqualValues(t, 4, job.WorkspaceVersion)

	done := waitForStatus(t, svc, job.ID, JobCompleted)
	assert.Equal(t, "ran /main.py", done.Output)
}

func TestServiceJobFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewService(RunnerFunc(func(ctx context.Context, job *Job) (string, error) {
		return "", errors.New("sandbox unavailable")
	}))
	require.NoError(t, svc.Start(ctx))

	job, err := svc.Submit(ctx, "ws1", 1, "/main.py", "")
	require.NoError(t, err)

	failed := waitForStatus(t, svc, job.ID, JobFailed)
	assert.Contains(t, failed.Error, "sandbox unavailable")
}

func TestServiceValidation(t *testing.T) {
	svc := NewService(RunnerFunc(func(ctx context.Context, job *Job) (string, error) {
		return "", nil
	}))

	_, err := svc.Submit(context.Background(), "ws1", 1, "", "")
	assert.Error(t, err)

	_, err = svc.Get("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}
