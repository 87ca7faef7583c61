package plan

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/docker/go-connections/nat"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
)

// =============================================================================
// Run Errors
// =============================================================================

var (
	ErrNotDeployable  = errors.New("no image exists for this accelerator kind")
	ErrBadPortSpec    = errors.New("invalid extra port spec")
	ErrContainerEmpty = errors.New("container name is required")
)

// =============================================================================
// Run Spec
// =============================================================================

// RunSpec is everything needed to compose one docker run invocation.
type RunSpec struct {
	Service Service
	Kind    domain.AcceleratorKind

	// HostPort overrides the service's default published port when non-zero.
	HostPort int

	// Env is merged over the service's default environment.
	Env map[string]string

	// ExtraPorts are additional publish specs ("host:container[/proto]").
	ExtraPorts []string
}

// PublishedPort returns the host port this run will expose.
func (r RunSpec) PublishedPort() int {
	if r.HostPort != 0 {
		return r.HostPort
	}
	return r.Service.Port
}

// =============================================================================
// Accelerator Flag Table
// =============================================================================

// acceleratorFlags maps each deployable kind to the docker run flags that
// expose its compute devices inside the container. Adding a kind means
// adding a row here, nothing else.
var acceleratorFlags = map[domain.AcceleratorKind][]string{
	domain.AcceleratorCPU:  nil,
	domain.AcceleratorCUDA: {"--gpus", "all"},
	domain.AcceleratorROCm: {
		"--device=/dev/kfd", "--device=/dev/dri",
		"--group-add", "video", "--group-add", "render",
		"--security-opt", "seccomp=unconfined",
	},
	domain.AcceleratorStrix: {
		"--device=/dev/kfd", "--device=/dev/dri",
		"--group-add", "video", "--group-add", "render",
		"--security-opt", "seccomp=unconfined",
	},
}

// AcceleratorFlags returns the device flag row for a kind.
func AcceleratorFlags(kind domain.AcceleratorKind) []string {
	return append([]string(nil), acceleratorFlags[kind]...)
}

// =============================================================================
// Run Command
// =============================================================================

// BuildRunArgs composes the docker run argument vector for a spec.
// Baseline flags first, then environment, extra ports, the accelerator
// flag row, and finally the resolved image reference.
func BuildRunArgs(spec RunSpec) ([]string, error) {
	if !spec.Kind.Deployable() {
		return nil, fmt.Errorf("%w: %s", ErrNotDeployable, spec.Kind)
	}
	if err := spec.Service.Validate(); err != nil {
		return nil, err
	}

	hostPort := spec.PublishedPort()
	if err := domain.ValidatePort(hostPort); err != nil {
		return nil, err
	}

	args := []string{
		"run", "-d",
		"--restart", "unless-stopped",
		"--name", spec.Service.ContainerName,
		"-p", fmt.Sprintf("%d:%d", hostPort, spec.Service.Port),
	}
	if spec.Service.Volume != "" {
		args = append(args, "-v", spec.Service.Volume)
	}

	for _, kv := range mergedEnv(spec.Service.Env, spec.Env) {
		args = append(args, "-e", kv)
	}

	for _, raw := range spec.ExtraPorts {
		mappings, err := nat.ParsePortSpec(raw)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrBadPortSpec, raw, err)
		}
		for _, m := range mappings {
			args = append(args, "-p", formatPortMapping(m))
		}
	}

	args = append(args, acceleratorFlags[spec.Kind]...)
	args = append(args, spec.Service.ImageRef(spec.Kind))
	return args, nil
}

// BuildRunCommand renders the full remote shell line for a spec.
func BuildRunCommand(spec RunSpec) (string, error) {
	args, err := BuildRunArgs(spec)
	if err != nil {
		return "", err
	}

	quoted := make([]string, 0, len(args)+1)
	quoted = append(quoted, "docker")
	for _, a := range args {
		quoted = append(quoted, shellQuote(a))
	}
	return strings.Join(quoted, " "), nil
}

// mergedEnv overlays overrides on defaults and renders sorted KEY=VALUE
// pairs so composed commands are deterministic.
func mergedEnv(defaults, overrides map[string]string) []string {
	merged := make(map[string]string, len(defaults)+len(overrides))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+merged[k])
	}
	return out
}

func formatPortMapping(m nat.PortMapping) string {
	var b strings.Builder
	if m.Binding.HostIP != "" {
		b.WriteString(m.Binding.HostIP)
		b.WriteString(":")
	}
	if m.Binding.HostPort != "" {
		b.WriteString(m.Binding.HostPort)
		b.WriteString(":")
	}
	b.WriteString(m.Port.Port())
	if proto := m.Port.Proto(); proto != "" && proto != "tcp" {
		b.WriteString("/")
		b.WriteString(proto)
	}
	return b.String()
}

// =============================================================================
// Lifecycle Commands
// =============================================================================

// DefaultLogTail bounds the log excerpt captured on start failure.
const DefaultLogTail = 50

// PullCommand renders the image pull for a service on a kind.
func PullCommand(svc Service, kind domain.AcceleratorKind) string {
	return "docker pull " + shellQuote(svc.ImageRef(kind))
}

// CleanupCommand removes any previous container with the service's name.
// rm -f stops a running container first and exits non-zero when nothing
// exists, which callers tolerate.
func CleanupCommand(containerName string) string {
	return "docker rm -f " + shellQuote(containerName)
}

// StopCommand stops a running service container without removing it.
func StopCommand(containerName string) string {
	return "docker stop " + shellQuote(containerName)
}

// InspectCommand renders the state query for the verify step.
func InspectCommand(containerName string) string {
	return "docker inspect " + shellQuote(containerName)
}

// LogsCommand captures the tail of a container's output for diagnostics.
func LogsCommand(containerName string, tail int) string {
	if tail <= 0 {
		tail = DefaultLogTail
	}
	return fmt.Sprintf("docker logs --tail %d %s", tail, shellQuote(containerName))
}

// PSCommand lists running containers as name/image/status lines, used to
// enumerate recognized services on a target.
func PSCommand() string {
	return `docker ps --format '{{.Names}}\t{{.Image}}\t{{.Status}}'`
}

// HealthProbeCommand renders the on-target HTTP probe for a service's
// health endpoint. Empty when the service has none.
func HealthProbeCommand(svc Service, hostPort int) string {
	if svc.HealthPath == "" {
		return ""
	}
	if hostPort == 0 {
		hostPort = svc.Port
	}
	url := "http://127.0.0.1:" + strconv.Itoa(hostPort) + svc.HealthPath
	return "curl -fsS -m 5 " + shellQuote(url)
}

// =============================================================================
// Shell Quoting
// =============================================================================

// safeArgPattern matches arguments that need no quoting.
var safeArgPattern = regexp.MustCompile(`^[a-zA-Z0-9_@%+=:,./-]+$`)

// shellQuote renders a string as a single sh word.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if safeArgPattern.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
