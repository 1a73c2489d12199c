package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is()
var (
	// ErrUnauthenticated indicates no auth token is present in the session.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrNoConnection indicates a connection-scoped call was made without an
	// active connection in the session.
	ErrNoConnection = errors.New("no connection selected")

	// ErrNoKnowledgeBase indicates a mutation that requires an active
	// knowledge base was requested while none exists.
	ErrNoKnowledgeBase = errors.New("no knowledge base selected")

	// ErrOperationInProgress indicates a concurrent index mutation was
	// rejected because another one is already in flight.
	ErrOperationInProgress = errors.New("index operation already in progress")

	// ErrSyncTimeout indicates the sync trigger did not acknowledge within
	// the configured deadline.
	ErrSyncTimeout = errors.New("knowledge base sync timed out")

	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("validation failed")
)

// Phase identifies the step of a multi-step index transaction that failed.
type Phase string

const (
	PhaseFetch  Phase = "fetch"
	PhaseCreate Phase = "create"
	PhaseSync   Phase = "sync"
)

// RemoteServiceError represents a non-2xx response from one of the remote
// collaborators (auth, directory or knowledge base service).
type RemoteServiceError struct {
	Op      string // remote operation, e.g. "list resources"
	Status  int    // upstream HTTP status
	Message string
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Op, e.Status, e.Message)
}

// StatusCode implements the HTTPError interface. Upstream failures surface
// as 502; the upstream status is carried in the message for diagnostics.
func (e *RemoteServiceError) StatusCode() int { return http.StatusBadGateway }

// IndexOperationError aggregates a failure inside the resolver's
// fetch-current -> create -> sync transaction. The session store is never
// mutated when one of these is returned.
type IndexOperationError struct {
	Phase Phase
	Cause error
}

func (e *IndexOperationError) Error() string {
	return fmt.Sprintf("index operation failed during %s: %v", e.Phase, e.Cause)
}

func (e *IndexOperationError) Unwrap() error { return e.Cause }

// StatusCode implements the HTTPError interface by deferring to the cause
// when it carries its own mapping.
func (e *IndexOperationError) StatusCode() int {
	var httpErr HTTPError
	if errors.As(e.Cause, &httpErr) {
		return httpErr.StatusCode()
	}
	return http.StatusBadGateway
}
