package sdk

import (
	"time"

	"github.com/imroc/req/v3"

	"github.com/codepod-dev/codepod/internal/version"
)

const (
	HeaderUserAgent = "User-Agent"
)

// CodepodSDK is the typed client for the Codepod API.
type CodepodSDK struct {
	client    *req.Client
	baseURL   string
	Workspace *WorkspaceAPI
	Exec      *ExecAPI
	Uploader  *Uploader
}

// New creates a new CodepodSDK client.
func New(baseURL string) (*CodepodSDK, error) {
	if baseURL == "" {
		return nil, ErrNoServerURL
	}

	client := req.C().
		SetBaseURL(baseURL).
		SetCommonRetryCount(3).
		SetCommonRetryBackoffInterval(1*time.Second, 5*time.Second).
		SetCommonErrorResult(&APIError{}).
		SetUserAgent(version.AppName + "/" + version.Version)

	return &CodepodSDK{
		client:    client,
		baseURL:   baseURL,
		Workspace: newWorkspaceAPI(client),
		Exec:      newExecAPI(client),
		Uploader:  NewUploader(),
	}, nil
}

// BaseURL returns the server url this client talks to.
func (s *CodepodSDK) BaseURL() string {
	return s.baseURL
}
