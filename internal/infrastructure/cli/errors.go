package cli

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/felixgeelhaar/flowboard/internal/infrastructure/live"
	"github.com/felixgeelhaar/flowboard/internal/infrastructure/upload"
	"github.com/gorilla/websocket"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}

	var upErr *upload.UploadError
	if errors.As(err, &upErr) {
		switch {
		case upErr.StatusCode == 0:
			return NewCLIError("could not reach the upload endpoint",
				"Check --api-url, or start a local backend with 'flowboard devserver'", err)
		case upErr.StatusCode == http.StatusBadRequest:
			return NewCLIError(upErr.Message, "Upload a .txt, .md or .pdf file", err)
		default:
			return NewCLIError(fmt.Sprintf("upload rejected (%d)", upErr.StatusCode),
				"The backend did not accept the file; see its logs", err)
		}
	}

	switch {
	case errors.Is(err, os.ErrNotExist):
		return NewCLIError("spec file not found", "Check the path and try again", err)
	case errors.Is(err, live.ErrDisposed):
		return NewCLIError("task board already closed", "", err)
	case errors.Is(err, websocket.ErrBadHandshake):
		return NewCLIError("push channel refused the connection",
			"Check --ws-url points at the task channel (ws://host/ws/tasks)", err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return NewCLIError("could not reach the push channel",
			"Check --ws-url, or start a local backend with 'flowboard devserver'", err)
	}

	return err
}
