package exec

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrJobNotFound = errors.New("job not found")

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is one execution of a committed workspace version.
type Job struct {
	ID               string    `json:"jobId"`
	WorkspaceID      string    `json:"workspaceId"`
	WorkspaceVersion int64     `json:"workspaceVersion"`
	EntrypointFile   string    `json:"entrypointFile"`
	Input            string    `json:"input"`
	Status           JobStatus `json:"status"`
	Output           string    `json:"output,omitempty"`
	Error            string    `json:"error,omitempty"`
	SubmittedAt      time.Time `json:"submittedAt"`
}

// Runner executes a job against the committed workspace content. The real
// sandbox lives behind this boundary.
type Runner interface {
	Run(ctx context.Context, job *Job) (output string, err error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, job *Job) (string, error)

func (f RunnerFunc) Run(ctx context.Context, job *Job) (string, error) {
	return f(ctx, job)
}

// Service queues execution requests and exposes job state for polling.
// Job results are observed by polling, not pushed.
type Service struct {
	runner Runner
	queue  *Queue[string]

	mu      sync.RWMutex
	jobs    map[string]*Job
	pending chan struct{}
	seq     int
}

func NewService(runner Runner) *Service {
	return &Service{
		runner:  runner,
		queue:   NewQueue[string](),
		jobs:    make(map[string]*Job),
		pending: make(chan struct{}, 1),
	}
}

// Submit queues a job against a committed workspace version and returns
// its id immediately.
func (s *Service) Submit(ctx context.Context, workspaceID string, workspaceVersion int64, entrypointFile, input string) (*Job, error) {
	if entrypointFile == "" {
		return nil, errors.New("entrypoint file required")
	}

	job := &Job{
		ID:               uuid.NewString(),
		WorkspaceID:      workspaceID,
		WorkspaceVersion: workspaceVersion,
		EntrypointFile:   entrypointFile,
		Input:            input,
		Status:           JobQueued,
		SubmittedAt:      time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.seq++
	s.queue.Enqueue(job.ID, s.seq)
	s.mu.Unlock()

	select {
	case s.pending <- struct{}{}:
	default:
	}

	slog.Info("job queued", "job", job.ID, "workspace", workspaceID, "version", workspaceVersion, "entrypoint", entrypointFile)
	return snapshot(job), nil
}

// Get returns the current state of a job.
func (s *Service) Get(jobID string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return snapshot(job), nil
}

// Start runs the worker loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	go s.workLoop(ctx)
	return nil
}

func (s *Service) workLoop(ctx context.Context) {
	for {
		select {
		case <-s.pending:
			for {
				jobID, ok := s.queue.Dequeue()
				if !ok {
					break
				}
				s.runJob(ctx, jobID)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) runJob(ctx context.Context, jobID string) {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	if !ok {
		s.mu.Unlock()
		return
	}
	job.Status = JobRunning
	run := snapshot(job)
	s.mu.Unlock()

	output, err := s.runner.Run(ctx, run)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		job.Status = JobFailed
		job.Error = err.Error()
		slog.Warn("job failed", "job", job.ID, "error", err)
		return
	}
	job.Status = JobCompleted
	job.Output = output
	slog.Info("job completed", "job", job.ID)
}

func snapshot(job *Job) *Job {
	copied := *job
	return &copied
}
