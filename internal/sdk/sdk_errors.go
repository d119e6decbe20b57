package sdk

import (
	"errors"
	"fmt"

	"github.com/imroc/req/v3"
)

var (
	// sdk common
	ErrNoServerURL = errors.New("sdk: server url missing")

	// uploads
	ErrNoCapability = errors.New("sdk: upload capability missing")
)

const (
	// Error codes returned by the Codepod API.
	CodeValidation         = "E_VALIDATION"          // malformed request or action set
	CodeWorkspaceNotFound  = "E_WORKSPACE_NOT_FOUND" // unknown workspace id
	CodeWorkspaceConflict  = "E_WORKSPACE_CONFLICT"  // version mismatch or lost commit race
	CodeReservationExpired = "E_RESERVATION_EXPIRED" // reservation lapsed before confirm
	CodeInternalError      = "E_INTERNAL_ERROR"      // internal server error
	CodeUnknownError       = "E_UNKNOWN_ERR"         // unknown error
)

type SDKError interface {
	error
	ErrorCode() string
	ErrorMessage() string
}

// APIError represents Codepod API errors.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
}

func NewAPIError(code, message string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
	}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s - %s", e.Code, e.Message)
}

func (e *APIError) ErrorCode() string    { return e.Code }
func (e *APIError) ErrorMessage() string { return e.Message }

var _ SDKError = (*APIError)(nil)

// ConflictError means the workspace moved on before this client's round
// could commit. CurrentVersion carries the version the server is at now.
type ConflictError struct {
	Code           string
	Message        string
	CurrentVersion int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("workspace conflict: %s - %s (current version %d)", e.Code, e.Message, e.CurrentVersion)
}

func (e *ConflictError) ErrorCode() string    { return e.Code }
func (e *ConflictError) ErrorMessage() string { return e.Message }

// Expired reports whether the conflict was caused by the reservation
// lapsing rather than by another client committing first.
func (e *ConflictError) Expired() bool {
	return e.Code == CodeReservationExpired
}

var _ SDKError = (*ConflictError)(nil)

// AsConflict unwraps err into a ConflictError if it is one.
func AsConflict(err error) (*ConflictError, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}

// handleAPIError is a helper function that handles the common error pattern
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s %w", operation, requestErr)
	}

	// got a response, but api returned an error
	if resp.IsErrorState() {
		if err, ok := resp.ErrorResult().(*APIError); ok {
			return fmt.Errorf("%s %w", operation, err)
		}

		return fmt.Errorf("api error: %s %s", operation, resp.Dump())
	}

	return nil
}
