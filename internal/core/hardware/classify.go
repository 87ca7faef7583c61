package hardware

import (
	"fmt"
	"strings"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
)

// =============================================================================
// Classification Rules
// =============================================================================

// rule is one row of the classification table.
type rule struct {
	name    string
	matches func(Evidence) bool
	apply   func(Evidence, *domain.HardwareProfile)
}

// rules is evaluated in order; the first matching row wins.
//
//	1. ARM architecture      -> unsupported-arm (no published image)
//	2. NVIDIA device visible -> cuda (high with toolkit, medium without)
//	3. Ryzen AI CPU          -> strix (dedicated APU image)
//	4. AMD GPU via rocm-smi  -> rocm
//	5. everything else       -> cpu
//
// A Ryzen AI box with a discrete NVIDIA card classifies as cuda: the
// discrete card outranks the APU. The APU itself is visible to rocm-smi
// on some kernels, which is why the strix row sits above the rocm row.
var rules = []rule{
	{
		name: "arm",
		matches: func(ev Evidence) bool {
			return IsARM(NormalizeArch(ev.Arch.Output))
		},
		apply: func(ev Evidence, p *domain.HardwareProfile) {
			p.Accelerator = domain.AcceleratorUnsupportedARM
			p.Confidence = domain.ConfidenceHigh
			p.Reason = fmt.Sprintf("architecture %q has no published image", NormalizeArch(ev.Arch.Output))
		},
	},
	{
		name: "cuda",
		matches: func(ev Evidence) bool {
			if !ev.NvidiaSMI.OK {
				return false
			}
			_, _, ok := ParseNvidiaSMI(ev.NvidiaSMI.Output)
			return ok
		},
		apply: func(ev Evidence, p *domain.HardwareProfile) {
			name, driver, _ := ParseNvidiaSMI(ev.NvidiaSMI.Output)
			p.Accelerator = domain.AcceleratorCUDA
			p.GPUName = name
			p.Reason = "nvidia-smi reports " + name
			if driver != "" {
				p.Reason += " (driver " + driver + ")"
			}
			if release, ok := ParseNvccRelease(ev.Nvcc.Output); ev.Nvcc.OK && ok {
				p.CUDAVersion = release
				p.Confidence = domain.ConfidenceHigh
			} else {
				// Driver without toolkit still deploys; the container
				// runtime install just has more work left to do.
				p.Confidence = domain.ConfidenceMedium
			}
		},
	},
	{
		name: "strix",
		matches: func(ev Evidence) bool {
			return ev.CPUModel.OK && IsStrixCPU(ParseCPUModel(ev.CPUModel.Output))
		},
		apply: func(ev Evidence, p *domain.HardwareProfile) {
			p.Accelerator = domain.AcceleratorStrix
			p.Confidence = domain.ConfidenceHigh
			p.Reason = fmt.Sprintf("CPU model %q is a Ryzen AI APU", ParseCPUModel(ev.CPUModel.Output))
			if ev.RocmVersion.OK {
				p.ROCmVersion = firstLine(ev.RocmVersion.Output)
			}
		},
	},
	{
		name: "rocm",
		matches: func(ev Evidence) bool {
			if !ev.RocmSMI.OK {
				return false
			}
			_, ok := ParseRocmProduct(ev.RocmSMI.Output)
			return ok
		},
		apply: func(ev Evidence, p *domain.HardwareProfile) {
			name, _ := ParseRocmProduct(ev.RocmSMI.Output)
			p.Accelerator = domain.AcceleratorROCm
			p.Confidence = domain.ConfidenceHigh
			p.GPUName = name
			if name != "" {
				p.Reason = "rocm-smi reports " + name
			} else {
				p.Reason = "rocm-smi reports an AMD device"
			}
			if ev.RocmVersion.OK {
				p.ROCmVersion = firstLine(ev.RocmVersion.Output)
			}
		},
	},
	{
		name: "cpu",
		matches: func(ev Evidence) bool {
			return true
		},
		apply: func(ev Evidence, p *domain.HardwareProfile) {
			p.Accelerator = domain.AcceleratorCPU
			p.Confidence = domain.ConfidenceHigh
			p.Reason = "no accelerator evidence found"
		},
	},
}

// =============================================================================
// Classification
// =============================================================================

// Classify reduces probe evidence to a hardware profile. This is a pure
// function: the same evidence always yields the same profile.
func Classify(ev Evidence) domain.HardwareProfile {
	p := domain.HardwareProfile{
		Arch: NormalizeArch(ev.Arch.Output),
		OSID: ParseOSID(ev.OSRelease.Output),
	}
	if ev.CPUModel.OK {
		p.CPUModel = ParseCPUModel(ev.CPUModel.Output)
	}
	if ev.Docker.OK {
		p.DockerPresent = true
		if v, ok := ParseDockerVersion(ev.Docker.Output); ok {
			p.DockerVersion = v
		}
	}

	for _, r := range rules {
		if r.matches(ev) {
			r.apply(ev, &p)
			break
		}
	}
	return p
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
