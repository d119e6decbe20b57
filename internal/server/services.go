package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/codepod-dev/codepod/internal/blob"
	"github.com/codepod-dev/codepod/internal/server/exec"
	"github.com/codepod-dev/codepod/internal/server/workspace"
)

type Services struct {
	Blob      blob.Backend
	Workspace *workspace.Service
	Jobs      *exec.Service
}

func NewServices(config *Config, db *sqlx.DB, runner exec.Runner) (*Services, error) {
	var backend blob.Backend
	if config.DevMode {
		backend = blob.NewMemoryBackend()
	} else {
		s3Backend, err := blob.NewS3BackendWithConfig(&config.Blob)
		if err != nil {
			return nil, fmt.Errorf("create blob backend: %w", err)
		}
		backend = s3Backend
	}

	workspaceSvc, err := workspace.NewService(db, backend)
	if err != nil {
		return nil, fmt.Errorf("create workspace service: %w", err)
	}

	if runner == nil {
		// execution is handed off to an external engine; the default
		// runner only records the handoff
		runner = exec.RunnerFunc(func(ctx context.Context, job *exec.Job) (string, error) {
			slog.Info("job handed off", "job", job.ID, "workspace", job.WorkspaceID, "version", job.WorkspaceVersion)
			return "", nil
		})
	}

	return &Services{
		Blob:      backend,
		Workspace: workspaceSvc,
		Jobs:      exec.NewService(runner),
	}, nil
}

func (s *Services) Start(ctx context.Context) error {
	if err := s.Workspace.Start(ctx); err != nil {
		return fmt.Errorf("start workspace service: %w", err)
	}
	if err := s.Jobs.Start(ctx); err != nil {
		return fmt.Errorf("start job service: %w", err)
	}
	return nil
}
