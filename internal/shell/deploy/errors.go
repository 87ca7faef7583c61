package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
	"github.com/dharuna457/ClaraVerse/internal/shell/sshexec"
)

// DeployError is a classified deployment failure. Kind decides how callers
// react; Output carries remote command output or a container log excerpt
// when one exists.
type DeployError struct {
	Kind    domain.ErrorKind
	Step    domain.DeploymentStep
	Message string
	Output  string
	Err     error
}

// Error implements the error interface.
func (e *DeployError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Step != "" {
		msg = fmt.Sprintf("%s at %s: %s", e.Kind, e.Step, e.Message)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *DeployError) Unwrap() error {
	return e.Err
}

// Detail renders the serializable form carried by results and records.
func (e *DeployError) Detail() *domain.ErrorDetail {
	return &domain.ErrorDetail{
		Kind:    e.Kind,
		Step:    e.Step,
		Message: e.Message,
		Output:  e.Output,
	}
}

// NewDeployError creates a classified deployment error.
func NewDeployError(kind domain.ErrorKind, step domain.DeploymentStep, message string, err error) *DeployError {
	return &DeployError{Kind: kind, Step: step, Message: message, Err: err}
}

// newOutputError creates a classified error carrying remote output.
func newOutputError(kind domain.ErrorKind, step domain.DeploymentStep, message, output string) *DeployError {
	return &DeployError{Kind: kind, Step: step, Message: message, Output: output}
}

// classify maps an arbitrary failure to a DeployError. Already-classified
// errors pass through; transport sentinels map to their kinds; anything
// unrecognized is internal.
func classify(err error, step domain.DeploymentStep) *DeployError {
	var derr *DeployError
	if errors.As(err, &derr) {
		return derr
	}

	kind := domain.ErrKindInternal
	message := err.Error()
	switch {
	case errors.Is(err, sshexec.ErrAuthRejected):
		kind = domain.ErrKindConnection
		message = "authentication rejected by target"
	case errors.Is(err, sshexec.ErrConnectionRefused):
		kind = domain.ErrKindConnection
		message = "target refused the connection"
	case errors.Is(err, sshexec.ErrHostUnreachable):
		kind = domain.ErrKindConnection
		message = "target host is unreachable"
	case errors.Is(err, sshexec.ErrConnectTimeout):
		kind = domain.ErrKindConnection
		message = "connection attempt timed out"
	case errors.Is(err, sshexec.ErrEscalationDenied):
		kind = domain.ErrKindPrivilegeEscalation
		message = "privilege escalation was denied"
	case errors.Is(err, sshexec.ErrCommandTimeout):
		kind = domain.ErrKindTimeout
		message = "remote command timed out"
	case errors.Is(err, context.DeadlineExceeded):
		kind = domain.ErrKindTimeout
		message = "deployment timed out"
	case errors.Is(err, context.Canceled):
		message = "deployment canceled"
	}

	return &DeployError{Kind: kind, Step: step, Message: message, Err: err}
}
