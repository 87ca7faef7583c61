package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Deployment Errors
// =============================================================================

var (
	ErrServiceRequired  = errors.New("service name is required")
	ErrStepUnknown      = errors.New("unknown deployment step")
	ErrStepTerminal     = errors.New("deployment already reached a terminal step")
	ErrStepNotForward   = errors.New("deployment steps only move forward")
	ErrErrorKindUnknown = errors.New("unknown error kind")
)

// =============================================================================
// Deployment Steps
// =============================================================================

// DeploymentStep is one phase of the deployment state machine. Steps are
// strictly ordered; a deployment visits a subset of them in order and ends
// in exactly one of the terminal steps.
type DeploymentStep string

const (
	StepConnecting       DeploymentStep = "connecting"
	StepCheckingDocker   DeploymentStep = "checking-docker"
	StepInstallingPrereq DeploymentStep = "installing-prerequisites"
	StepCleaningUp       DeploymentStep = "cleaning-up"
	StepPullingImage     DeploymentStep = "pulling-image"
	StepDeploying        DeploymentStep = "deploying"
	StepVerifying        DeploymentStep = "verifying"
	StepComplete         DeploymentStep = "complete"
	StepError            DeploymentStep = "error"
)

// stepOrder fixes the forward ordering of the state machine. StepError sits
// last so that a jump to it from any live step still counts as forward.
var stepOrder = map[DeploymentStep]int{
	StepConnecting:       0,
	StepCheckingDocker:   1,
	StepInstallingPrereq: 2,
	StepCleaningUp:       3,
	StepPullingImage:     4,
	StepDeploying:        5,
	StepVerifying:        6,
	StepComplete:         7,
	StepError:            8,
}

// IsValid checks if the step is one of the known values.
func (s DeploymentStep) IsValid() bool {
	_, ok := stepOrder[s]
	return ok
}

// IsTerminal returns true for the two resolution steps.
func (s DeploymentStep) IsTerminal() bool {
	return s == StepComplete || s == StepError
}

// Order returns the step's position in the forward ordering.
// Unknown steps sort before everything.
func (s DeploymentStep) Order() int {
	if o, ok := stepOrder[s]; ok {
		return o
	}
	return -1
}

// ValidateStepTransition enforces the monotonic state machine: no revisits,
// no backward moves, no leaving a terminal step. StepError is reachable
// from any live step.
func ValidateStepTransition(from, to DeploymentStep) error {
	if !from.IsValid() || !to.IsValid() {
		return ErrStepUnknown
	}
	if from.IsTerminal() {
		return ErrStepTerminal
	}
	if to == StepError {
		return nil
	}
	if to.Order() <= from.Order() {
		return ErrStepNotForward
	}
	return nil
}

// =============================================================================
// Error Taxonomy
// =============================================================================

// ErrorKind classifies deployment failures into the fixed taxonomy callers
// branch on. Every failed deployment resolves to exactly one kind.
type ErrorKind string

const (
	ErrKindConnection          ErrorKind = "connection"
	ErrKindUnsupportedHardware ErrorKind = "unsupported_hardware"
	ErrKindDockerMissing       ErrorKind = "docker_missing"
	ErrKindInstallation        ErrorKind = "installation"
	ErrKindAcceleratorSetup    ErrorKind = "accelerator_setup"
	ErrKindImagePull           ErrorKind = "image_pull"
	ErrKindContainerStart      ErrorKind = "container_start"
	ErrKindHealthCheck         ErrorKind = "health_check"
	ErrKindPrivilegeEscalation ErrorKind = "privilege_escalation"
	ErrKindTimeout             ErrorKind = "timeout"
	ErrKindInternal            ErrorKind = "internal"
)

// IsValid checks if the error kind is part of the taxonomy.
func (k ErrorKind) IsValid() bool {
	switch k {
	case ErrKindConnection, ErrKindUnsupportedHardware, ErrKindDockerMissing,
		ErrKindInstallation, ErrKindAcceleratorSetup, ErrKindImagePull,
		ErrKindContainerStart, ErrKindHealthCheck, ErrKindPrivilegeEscalation,
		ErrKindTimeout, ErrKindInternal:
		return true
	default:
		return false
	}
}

// Fatal returns false for kinds that degrade the result without failing it.
// A missing health endpoint is reported as a warning, not a failure.
func (k ErrorKind) Fatal() bool {
	return k != ErrKindHealthCheck
}

// ErrorDetail is the serializable form of a classified failure.
type ErrorDetail struct {
	Kind    ErrorKind      `json:"kind"`
	Step    DeploymentStep `json:"step"`
	Message string         `json:"message"`
	Output  string         `json:"output,omitempty"`
}

func (e ErrorDetail) String() string {
	if e.Step != "" {
		return fmt.Sprintf("%s at %s: %s", e.Kind, e.Step, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// =============================================================================
// Deploy Request
// =============================================================================

// DeployRequest is the orchestrator's input: which catalog service to put
// on which target, plus optional overrides.
type DeployRequest struct {
	Service string           `json:"service"`
	Target  ConnectionConfig `json:"target"`

	// Port overrides the catalog's default host port when non-zero.
	Port int `json:"port,omitempty"`

	// Env is merged over the catalog service's default environment.
	Env map[string]string `json:"env,omitempty"`

	// ExtraPorts are additional publish specs ("host:container[/proto]").
	ExtraPorts []string `json:"extra_ports,omitempty"`
}

// Validate checks the request shape. The service name is resolved against
// the catalog later.
func (r DeployRequest) Validate() error {
	if r.Service == "" {
		return ErrServiceRequired
	}
	if err := r.Target.Validate(); err != nil {
		return err
	}
	if r.Port != 0 {
		if err := ValidatePort(r.Port); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Deployment Result
// =============================================================================

// ServiceEndpoint describes one deployed service as reachable by a caller.
type ServiceEndpoint struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Port        int    `json:"port"`
	ContainerID string `json:"container_id,omitempty"`
}

// DeploymentResult is the single terminal outcome of one invocation.
// Exactly one result is produced per Deploy call, on every path.
type DeploymentResult struct {
	DeploymentID string                     `json:"deployment_id"`
	Service      string                     `json:"service"`
	Success      bool                       `json:"success"`
	Step         DeploymentStep             `json:"step"`
	Profile      *HardwareProfile           `json:"profile,omitempty"`
	Services     map[string]ServiceEndpoint `json:"services,omitempty"`
	Warnings     []string                   `json:"warnings,omitempty"`
	Error        *ErrorDetail               `json:"error,omitempty"`
	StartedAt    time.Time                  `json:"started_at"`
	FinishedAt   time.Time                  `json:"finished_at"`
}

// GenerateDeploymentID generates a new deployment ID with "dep_" prefix.
func GenerateDeploymentID() string {
	return "dep_" + uuid.New().String()[:8]
}
