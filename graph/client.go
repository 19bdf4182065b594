package graph

import (
	"context"
	"fmt"
)

// EdgeAction is a mutation verb applied to a single edge of the graph.
type EdgeAction int

const (
	ActionUnfollow EdgeAction = iota
)

func (a EdgeAction) String() string {
	switch a {
	case ActionUnfollow:
		return "unfollow"
	default:
		return "unknown"
	}
}

// MutateResult reports the remote service's answer to one edge mutation.
// Ordinary remote rejection (rate limited, already not following, target
// gone) comes back as Succeeded=false with a diagnostic, not as an error.
type MutateResult struct {
	Succeeded  bool
	Diagnostic string
}

// Client is the capability the engine consumes to talk to the remote social
// graph. Implementations own transport, authentication and endpoint details;
// ListEdge failures are either *TransportError or *ProtocolError.
type Client interface {
	ListEdge(ctx context.Context, subjectID string, edge EdgeType, cursor Cursor) (*Page, error)
	MutateEdge(ctx context.Context, targetID string, action EdgeAction) (*MutateResult, error)
}

// TransportError indicates the remote service could not be reached at all
// (connection failure, timeout).
type TransportError struct {
	Wrapped error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s", e.Wrapped)
}

func (e *TransportError) Unwrap() error {
	return e.Wrapped
}

// ProtocolError indicates the remote service answered with an unexpected
// status or response shape.
type ProtocolError struct {
	StatusCode int
	Wrapped    error
}

func (e *ProtocolError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("protocol error (HTTP %d): %s", e.StatusCode, e.Wrapped)
	}
	return fmt.Sprintf("protocol error: %s", e.Wrapped)
}

func (e *ProtocolError) Unwrap() error {
	return e.Wrapped
}
