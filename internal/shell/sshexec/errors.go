package sshexec

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Connect errors
	ErrAuthRejected      = errors.New("authentication rejected")
	ErrConnectionRefused = errors.New("connection refused")
	ErrConnectTimeout    = errors.New("connect timed out")
	ErrHostUnreachable   = errors.New("host unreachable")

	// Execution errors
	ErrSessionClosed    = errors.New("session is closed")
	ErrCommandTimeout   = errors.New("command timed out")
	ErrEscalationDenied = errors.New("privilege escalation denied")
)

// ConnError wraps connection and execution failures with context. Target
// is always host:port, never credential material.
type ConnError struct {
	Op      string // Operation that failed (dial, run, close)
	Target  string // host:port
	Message string
	Err     error
}

func (e *ConnError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Target, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

// NewConnError creates a new ConnError.
func NewConnError(op, target, message string, err error) *ConnError {
	return &ConnError{
		Op:      op,
		Target:  target,
		Message: message,
		Err:     err,
	}
}
