package domain

import "time"

// =============================================================================
// Event Severity
// =============================================================================

// Severity grades a progress event for display purposes.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// IsValid checks if the severity is one of the known values.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeveritySuccess, SeverityWarning, SeverityError:
		return true
	default:
		return false
	}
}

// =============================================================================
// Log Event
// =============================================================================

// LogEvent is one line of deployment progress pushed to subscribers.
// Event text must never contain credential material; producers scrub
// through the redaction layer before publishing.
type LogEvent struct {
	DeploymentID string         `json:"deployment_id"`
	Timestamp    time.Time      `json:"timestamp"`
	Severity     Severity       `json:"severity"`
	Step         DeploymentStep `json:"step,omitempty"`
	Message      string         `json:"message"`
}

// NewLogEvent stamps a new event with the current time.
func NewLogEvent(deploymentID string, sev Severity, step DeploymentStep, msg string) LogEvent {
	return LogEvent{
		DeploymentID: deploymentID,
		Timestamp:    time.Now().UTC(),
		Severity:     sev,
		Step:         step,
		Message:      msg,
	}
}
