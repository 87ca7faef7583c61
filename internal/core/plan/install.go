package plan

import (
	"github.com/dharuna457/ClaraVerse/internal/core/domain"
)

// =============================================================================
// Install Plans
// =============================================================================

// Step is one remote command of an install plan together with its failure
// policy. Tolerant steps log and continue; the rest abort the plan.
type Step struct {
	Name     string
	Line     string
	Elevated bool
	Tolerant bool
}

// DockerInstallPlan installs the container runtime with the
// distribution-agnostic convenience script and lets the remote user run
// docker without escalation afterwards.
func DockerInstallPlan(user string) []Step {
	steps := []Step{
		{
			Name: "download install script",
			Line: "curl -fsSL https://get.docker.com -o /tmp/get-docker.sh",
		},
		{
			Name:     "run install script",
			Line:     "sh /tmp/get-docker.sh",
			Elevated: true,
		},
		{
			Name:     "enable docker service",
			Line:     "systemctl enable --now docker",
			Elevated: true,
			Tolerant: true, // non-systemd targets manage the daemon themselves
		},
	}
	if user != "" {
		steps = append(steps, Step{
			Name:     "grant docker group membership",
			Line:     "usermod -aG docker " + shellQuote(user),
			Elevated: true,
			Tolerant: true,
		})
	}
	return steps
}

// debianFamily covers the distributions the NVIDIA toolkit repo setup
// below targets via apt. Anything else takes the dnf path.
var debianFamily = map[string]bool{
	"ubuntu":    true,
	"debian":    true,
	"pop":       true,
	"linuxmint": true,
	"raspbian":  true,
}

// AcceleratorSetupPlan returns the per-kind toolkit configuration that
// must run once the container runtime is present. CPU targets need
// nothing. CUDA targets get the NVIDIA container toolkit registered with
// the engine; ROCm and Strix targets only need their device nodes
// verified, since devices are passed through per container at run time.
func AcceleratorSetupPlan(kind domain.AcceleratorKind, osID, user string) []Step {
	switch kind {
	case domain.AcceleratorCUDA:
		return nvidiaToolkitPlan(osID)
	case domain.AcceleratorROCm, domain.AcceleratorStrix:
		return amdDevicePlan(user)
	default:
		return nil
	}
}

func nvidiaToolkitPlan(osID string) []Step {
	var install Step
	if debianFamily[osID] {
		install = Step{
			Name: "install nvidia container toolkit",
			Line: "curl -fsSL https://nvidia.github.io/libnvidia-container/gpgkey | gpg --dearmor -o /usr/share/keyrings/nvidia-container-toolkit-keyring.gpg && " +
				"curl -fsSL https://nvidia.github.io/libnvidia-container/stable/deb/nvidia-container-toolkit.list | " +
				"sed 's#deb https://#deb [signed-by=/usr/share/keyrings/nvidia-container-toolkit-keyring.gpg] https://#g' > /etc/apt/sources.list.d/nvidia-container-toolkit.list && " +
				"apt-get update -qq && apt-get install -y -qq nvidia-container-toolkit",
			Elevated: true,
		}
	} else {
		install = Step{
			Name: "install nvidia container toolkit",
			Line: "curl -fsSL https://nvidia.github.io/libnvidia-container/stable/rpm/nvidia-container-toolkit.repo > /etc/yum.repos.d/nvidia-container-toolkit.repo && " +
				"dnf install -y nvidia-container-toolkit",
			Elevated: true,
		}
	}

	return []Step{
		install,
		{
			Name:     "register nvidia runtime",
			Line:     "nvidia-ctk runtime configure --runtime=docker",
			Elevated: true,
		},
		{
			Name:     "restart docker engine",
			Line:     "systemctl restart docker",
			Elevated: true,
		},
	}
}

func amdDevicePlan(user string) []Step {
	steps := []Step{
		{
			Name: "verify accelerator device nodes",
			Line: "test -e /dev/kfd && test -e /dev/dri",
		},
	}
	if user != "" {
		steps = append(steps, Step{
			Name:     "grant device group membership",
			Line:     "usermod -aG video,render " + shellQuote(user),
			Elevated: true,
			Tolerant: true,
		})
	}
	return steps
}
