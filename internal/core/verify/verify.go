// Package verify reduces remote docker inspect and log output to a
// container start verdict.
// This is part of the Functional Core - all functions are pure with no
// I/O; the orchestrator runs the commands and feeds the output in.
package verify

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/docker/docker/api/types/container"
)

// =============================================================================
// Inspect Parsing
// =============================================================================

var (
	ErrNoContainer    = errors.New("inspect output contains no container")
	ErrBadInspectJSON = errors.New("inspect output is not valid JSON")
)

// ParseInspect decodes `docker inspect` output. The command prints a JSON
// array with one element per queried container; the first element wins.
func ParseInspect(raw string) (container.InspectResponse, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" {
		return container.InspectResponse{}, ErrNoContainer
	}

	var entries []container.InspectResponse
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return container.InspectResponse{}, fmt.Errorf("%w: %v", ErrBadInspectJSON, err)
	}
	if len(entries) == 0 {
		return container.InspectResponse{}, ErrNoContainer
	}
	return entries[0], nil
}

// =============================================================================
// Verdict
// =============================================================================

// Verdict is the reduced outcome of one verification poll.
type Verdict struct {
	ContainerID string
	Running     bool
	Status      string // raw engine status: running, exited, created, ...
	Health      string // health check state when the image defines one
	ExitCode    int
	OOMKilled   bool
	Error       string // engine-reported start error
}

// Reduce maps one inspect response to a verdict.
func Reduce(resp container.InspectResponse) Verdict {
	var v Verdict
	if resp.ContainerJSONBase == nil {
		v.Status = "unknown"
		return v
	}

	v.ContainerID = resp.ID
	if resp.State == nil {
		v.Status = "unknown"
		return v
	}

	v.Status = resp.State.Status
	v.Running = resp.State.Running
	v.ExitCode = resp.State.ExitCode
	v.OOMKilled = resp.State.OOMKilled
	v.Error = resp.State.Error
	if resp.State.Health != nil {
		v.Health = string(resp.State.Health.Status)
	}
	return v
}

// Describe renders a one-line diagnosis of the verdict for error
// messages and progress events.
func (v Verdict) Describe() string {
	switch {
	case v.Running && v.Health != "" && v.Health != "healthy" && v.Health != "starting":
		return fmt.Sprintf("running but health check reports %s", v.Health)
	case v.Running:
		return "running"
	case v.OOMKilled:
		return fmt.Sprintf("killed out of memory (exit code %d)", v.ExitCode)
	case v.Error != "":
		return fmt.Sprintf("%s: %s", v.Status, v.Error)
	case v.Status == "exited":
		return fmt.Sprintf("exited with code %d", v.ExitCode)
	case v.Status == "":
		return "no state reported"
	default:
		return v.Status
	}
}

// =============================================================================
// Log Excerpts
// =============================================================================

// DefaultLogExcerpt bounds the log excerpt attached to start failures.
const DefaultLogExcerpt = 4000

// TruncateLogs bounds a log excerpt for error payloads, keeping the tail
// where the failure usually is. Truncation lands on a line boundary when
// one is near.
func TruncateLogs(logs string, max int) string {
	logs = strings.TrimSpace(logs)
	if max <= 0 {
		max = DefaultLogExcerpt
	}
	if len(logs) <= max {
		return logs
	}

	cut := logs[len(logs)-max:]
	if idx := strings.IndexByte(cut, '\n'); idx >= 0 && idx < len(cut)-1 {
		cut = cut[idx+1:]
	}
	return "[earlier output truncated]\n" + cut
}
