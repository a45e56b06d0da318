// Package errors holds the error taxonomy shared by the automation workflows.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrFileNotFound is returned when a file is not found.
var ErrFileNotFound = errors.New("file not found")

// ErrEmptyConfig is returned when a configuration payload has no usable lines.
var ErrEmptyConfig = errors.New("configuration is empty")

// ErrIncorrectInput is returned when the user input is incorrect.
var ErrIncorrectInput = errors.New("incorrect input")

// ConnectError is a CLI authentication or transport failure. Text carries the raw
// diagnostic so callers can classify it (e.g. account lockout phrases).
type ConnectError struct {
	Host string
	Text string
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %s", e.Host, e.Text)
}

// APINotReadyError indicates the management plane did not authenticate within the
// allotted readiness window.
type APINotReadyError struct {
	Host string
	Wait time.Duration
}

func (e *APINotReadyError) Error() string {
	return fmt.Sprintf("management API at %s did not become ready within %s", e.Host, e.Wait)
}

// CallError is a failed management-plane REST call. It always carries the endpoint
// and HTTP status for diagnostics.
type CallError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *CallError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request to %s failed: %s", e.Endpoint, e.Body)
	}
	return fmt.Sprintf("request to %s failed: HTTP %d %s", e.Endpoint, e.Status, e.Body)
}

// CommitFailedError indicates the configuration commit did not reach a success
// state after all retries. It aborts the device workflow.
type CommitFailedError struct {
	Attempts   int
	LastOutput string
}

func (e *CommitFailedError) Error() string {
	return fmt.Sprintf("commit did not complete after %d attempt(s)", e.Attempts)
}

// CSRTimeoutError indicates the CSR file never appeared within the polling budget.
type CSRTimeoutError struct {
	File     string
	Attempts int
}

func (e *CSRTimeoutError) Error() string {
	return fmt.Sprintf("CSR file %q was not created after %d check(s)", e.File, e.Attempts)
}
