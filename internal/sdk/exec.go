package sdk

import (
	"context"
	"fmt"
	"time"

	"github.com/imroc/req/v3"
)

const (
	v1WorkspaceExecute = "/api/v1/workspace/%s/execute"
	v1Job              = "/api/v1/jobs/%s"
)

type ExecAPI struct {
	client *req.Client
}

func newExecAPI(client *req.Client) *ExecAPI {
	return &ExecAPI{
		client: client,
	}
}

// Execute triggers a run against the workspace's committed version and
// returns the job id for polling.
func (e *ExecAPI) Execute(ctx context.Context, workspaceID string, params *ExecuteRequest) (apiResp *ExecuteResponse, err error) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(params).
		SetSuccessResult(&apiResp).
		Post(fmt.Sprintf(v1WorkspaceExecute, workspaceID))

	if err := handleAPIError(resp, err, "workspace execute"); err != nil {
		return nil, err
	}

	return apiResp, nil
}

// Job fetches the current state of a job.
func (e *ExecAPI) Job(ctx context.Context, jobID string) (apiResp *Job, err error) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetSuccessResult(&apiResp).
		Get(fmt.Sprintf(v1Job, jobID))

	if err := handleAPIError(resp, err, "job status"); err != nil {
		return nil, err
	}

	return apiResp, nil
}

// Wait polls the job until it reaches a terminal status or ctx is done.
func (e *ExecAPI) Wait(ctx context.Context, jobID string, interval time.Duration) (*Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := e.Job(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job.Done() {
			return job, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return job, ctx.Err()
		}
	}
}
