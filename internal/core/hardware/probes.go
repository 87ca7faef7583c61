// Package hardware turns probe command output into an accelerator
// classification for one remote target.
// This is part of the Functional Core - all functions are pure with no I/O.
// The detect shell runs the probe battery over SSH and feeds the raw
// output back in as Evidence.
package hardware

// =============================================================================
// Probe Battery
// =============================================================================

// Probe slot names. Each fills one field of Evidence.
const (
	ProbeArch        = "arch"
	ProbeOSRelease   = "os-release"
	ProbeDocker      = "docker"
	ProbeNvidiaSMI   = "nvidia-smi"
	ProbeNvcc        = "nvcc"
	ProbeCPUModel    = "cpu-model"
	ProbeRocmSMI     = "rocm-smi"
	ProbeRocmVersion = "rocm-version"
)

// Probe is one command the detector runs on the target. Every probe is
// tolerant: a missing tool exits non-zero and that outcome is itself
// evidence, not a failure.
type Probe struct {
	Name string
	Line string
}

// Battery returns the probe set in execution order.
func Battery() []Probe {
	return []Probe{
		{Name: ProbeArch, Line: "uname -m"},
		{Name: ProbeOSRelease, Line: "cat /etc/os-release"},
		{Name: ProbeDocker, Line: "docker --version"},
		{Name: ProbeNvidiaSMI, Line: "nvidia-smi --query-gpu=name,driver_version --format=csv,noheader"},
		{Name: ProbeNvcc, Line: "nvcc --version"},
		{Name: ProbeCPUModel, Line: "grep -m1 'model name' /proc/cpuinfo"},
		{Name: ProbeRocmSMI, Line: "rocm-smi --showproductname"},
		{Name: ProbeRocmVersion, Line: "cat /opt/rocm/.info/version"},
	}
}

// =============================================================================
// Evidence
// =============================================================================

// Reading is the outcome of one probe on the target.
type Reading struct {
	OK     bool   // command exited zero
	Output string // trimmed command output
}

// Evidence collects every probe reading for one target. Zero-value slots
// mean the probe did not run or its tool was absent.
type Evidence struct {
	Arch        Reading
	OSRelease   Reading
	Docker      Reading
	NvidiaSMI   Reading
	Nvcc        Reading
	CPUModel    Reading
	RocmSMI     Reading
	RocmVersion Reading
}

// Set stores a reading into the slot named by the probe.
func (e *Evidence) Set(name string, r Reading) {
	switch name {
	case ProbeArch:
		e.Arch = r
	case ProbeOSRelease:
		e.OSRelease = r
	case ProbeDocker:
		e.Docker = r
	case ProbeNvidiaSMI:
		e.NvidiaSMI = r
	case ProbeNvcc:
		e.Nvcc = r
	case ProbeCPUModel:
		e.CPUModel = r
	case ProbeRocmSMI:
		e.RocmSMI = r
	case ProbeRocmVersion:
		e.RocmVersion = r
	}
}
