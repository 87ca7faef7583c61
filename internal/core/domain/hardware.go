package domain

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Hardware Errors
// =============================================================================

var (
	ErrAcceleratorUnknown = errors.New("unknown accelerator kind")
	ErrConfidenceUnknown  = errors.New("unknown confidence level")
)

// =============================================================================
// Accelerator Kind
// =============================================================================

// AcceleratorKind classifies what compute backend a target machine offers.
type AcceleratorKind string

const (
	AcceleratorCPU   AcceleratorKind = "cpu"
	AcceleratorCUDA  AcceleratorKind = "cuda"
	AcceleratorROCm  AcceleratorKind = "rocm"
	AcceleratorStrix AcceleratorKind = "strix"

	// AcceleratorUnsupportedARM marks ARM-family hosts. No container image
	// exists for them, so deployment must stop before touching the target.
	AcceleratorUnsupportedARM AcceleratorKind = "unsupported-arm"
)

// IsValid checks if the accelerator kind is one of the known values.
func (k AcceleratorKind) IsValid() bool {
	switch k {
	case AcceleratorCPU, AcceleratorCUDA, AcceleratorROCm, AcceleratorStrix, AcceleratorUnsupportedARM:
		return true
	default:
		return false
	}
}

// Deployable returns true if a container image exists for this kind.
func (k AcceleratorKind) Deployable() bool {
	return k.IsValid() && k != AcceleratorUnsupportedARM
}

// NeedsDeviceAccess returns true for kinds that require /dev/kfd and
// /dev/dri to be passed into the container.
func (k AcceleratorKind) NeedsDeviceAccess() bool {
	return k == AcceleratorROCm || k == AcceleratorStrix
}

// NeedsGPURuntime returns true for kinds that require the NVIDIA container
// runtime to be registered with the Docker engine.
func (k AcceleratorKind) NeedsGPURuntime() bool {
	return k == AcceleratorCUDA
}

// =============================================================================
// Confidence
// =============================================================================

// Confidence grades how certain the detector is about its classification.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// IsValid checks if the confidence level is one of the known values.
func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	default:
		return false
	}
}

// =============================================================================
// Hardware Profile
// =============================================================================

// HardwareProfile is the reduced result of the probe battery: everything the
// planner needs to pick an image and compose a run command for one target.
// Diagnostic fields carry raw probe output and may be empty.
type HardwareProfile struct {
	Arch          string          `json:"arch"`
	OSID          string          `json:"os_id,omitempty"`
	DockerPresent bool            `json:"docker_present"`
	DockerVersion string          `json:"docker_version,omitempty"`
	Accelerator   AcceleratorKind `json:"accelerator"`
	Confidence    Confidence      `json:"confidence"`
	GPUName       string          `json:"gpu_name,omitempty"`
	CUDAVersion   string          `json:"cuda_version,omitempty"`
	ROCmVersion   string          `json:"rocm_version,omitempty"`
	CPUModel      string          `json:"cpu_model,omitempty"`
	Reason        string          `json:"reason,omitempty"`
}

// Deployable returns true if a deployment can proceed on this profile.
func (p HardwareProfile) Deployable() bool {
	return p.Accelerator.Deployable()
}

// Summary renders a one-line description for progress events.
func (p HardwareProfile) Summary() string {
	var b strings.Builder
	b.WriteString(p.Arch)
	if p.DockerPresent {
		fmt.Fprintf(&b, ", docker %s", p.DockerVersion)
	} else {
		b.WriteString(", no docker")
	}
	fmt.Fprintf(&b, ", %s (%s confidence)", p.Accelerator, p.Confidence)
	if p.GPUName != "" {
		fmt.Fprintf(&b, ": %s", p.GPUName)
	}
	return b.String()
}

// Validate checks the enum fields of a profile.
func (p HardwareProfile) Validate() error {
	if !p.Accelerator.IsValid() {
		return ErrAcceleratorUnknown
	}
	if !p.Confidence.IsValid() {
		return ErrConfidenceUnknown
	}
	return nil
}
