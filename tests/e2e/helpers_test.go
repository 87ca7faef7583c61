// Package e2e provides the scripted targets and HTTP utilities the
// end-to-end suite runs against.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
	coreprovider "github.com/dharuna457/ClaraVerse/internal/core/provider"
	"github.com/dharuna457/ClaraVerse/internal/shell/api"
	"github.com/dharuna457/ClaraVerse/internal/shell/deploy"
	"github.com/dharuna457/ClaraVerse/internal/shell/provider"
	"github.com/dharuna457/ClaraVerse/internal/shell/sshexec"
	"github.com/dharuna457/ClaraVerse/internal/shell/store"
)

// =============================================================================
// Scripted SSH Targets
// =============================================================================

// respondFunc answers one remote command line.
type respondFunc func(line string) (sshexec.Result, error)

// sessionScript builds a fresh responder per dialed session, so scripts
// may keep per-session state (a bare target remembers its docker install).
type sessionScript func() respondFunc

// commandLog records every command line the daemon sent over the
// scripted transport. Tests assert on it to prove steps ran or were
// skipped.
type commandLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *commandLog) record(line string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
}

func (l *commandLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = nil
}

// saw reports whether any recorded command starts with prefix.
func (l *commandLog) saw(prefix string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// scriptedSession satisfies deploy.Session with canned responses.
type scriptedSession struct {
	user    string
	respond respondFunc
	log     *commandLog
}

func (s *scriptedSession) Run(_ context.Context, cmd sshexec.Command) (sshexec.Result, error) {
	s.log.record(cmd.Line)
	return s.respond(cmd.Line)
}

func (s *scriptedSession) User() string { return s.user }

func (s *scriptedSession) Close() error { return nil }

// scriptedDialer stands in for the SSH transport. Tests swap the active
// script before firing requests; swapping resets the command log.
type scriptedDialer struct {
	mu     sync.Mutex
	script sessionScript
	log    *commandLog
}

func newScriptedDialer(script sessionScript) *scriptedDialer {
	return &scriptedDialer{script: script, log: &commandLog{}}
}

func (d *scriptedDialer) dial(_ context.Context, target domain.ConnectionConfig) (deploy.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &scriptedSession{user: target.User, respond: d.script(), log: d.log}, nil
}

func (d *scriptedDialer) set(script sessionScript) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.script = script
	d.log.reset()
}

func ok(stdout string) (sshexec.Result, error) {
	return sshexec.Result{Stdout: stdout}, nil
}

func fail(code int, stderr string) (sshexec.Result, error) {
	return sshexec.Result{ExitCode: code, Stderr: stderr}, nil
}

const (
	containerID        = "4f5c1e2d9ab834b1c05e7a9d22f41c77"
	runningInspectJSON = `[{"Id":"` + containerID + `","State":{"Status":"running","Running":true,"ExitCode":0}}]`
	exitedInspectJSON  = `[{"Id":"` + containerID + `","State":{"Status":"exited","Running":false,"ExitCode":1}}]`
)

// baseResponder answers the probe battery for an x86_64 Ubuntu box with
// an NVIDIA card, and gives docker commands happy-path responses.
func baseResponder() respondFunc {
	return func(line string) (sshexec.Result, error) {
		switch {
		case line == "uname -m":
			return ok("x86_64\n")
		case strings.HasPrefix(line, "cat /etc/os-release"):
			return ok("ID=ubuntu\nVERSION_ID=\"24.04\"\n")
		case line == "docker --version":
			return ok("Docker version 27.1.1, build 6312585\n")
		case strings.HasPrefix(line, "nvidia-smi"):
			return ok("NVIDIA GeForce RTX 4090, 550.54.14\n")
		case strings.HasPrefix(line, "nvcc"):
			return ok("Cuda compilation tools, release 12.4, V12.4.131\n")
		case strings.HasPrefix(line, "grep -m1 'model name'"):
			return ok("model name\t: AMD Ryzen 9 7950X 16-Core Processor\n")
		case strings.HasPrefix(line, "rocm-smi"), strings.HasPrefix(line, "cat /opt/rocm"):
			return fail(127, "command not found")
		case strings.HasPrefix(line, "docker ps"):
			return ok("clara_core\tclaraverse/clara-core:latest-cuda\tUp 2 hours\n")
		case strings.HasPrefix(line, "docker rm -f"):
			return fail(1, "Error response from daemon: No such container")
		case strings.HasPrefix(line, "docker pull"):
			return ok("Status: Downloaded newer image\n")
		case strings.HasPrefix(line, "docker run"):
			return ok(containerID + "\n")
		case strings.HasPrefix(line, "docker inspect"):
			return ok(runningInspectJSON)
		case strings.HasPrefix(line, "docker logs"):
			return ok("listening on :8091\n")
		case strings.HasPrefix(line, "docker stop"):
			return ok("clara_core\n")
		case strings.HasPrefix(line, "curl"):
			return ok(`{"status":"ok"}`)
		default:
			// Install and accelerator setup steps succeed silently.
			return ok("")
		}
	}
}

// gpuTarget scripts a healthy CUDA host with docker already present.
func gpuTarget() sessionScript {
	return func() respondFunc {
		return baseResponder()
	}
}

// bareTarget scripts a host without docker. The first docker version
// probe fails; after the install plan runs, it reports the engine.
func bareTarget() sessionScript {
	return func() respondFunc {
		base := baseResponder()
		dockerProbes := 0
		return func(line string) (sshexec.Result, error) {
			switch {
			case line == "docker --version":
				dockerProbes++
				if dockerProbes == 1 {
					return fail(127, "docker: command not found")
				}
				return ok("Docker version 27.1.1, build 6312585\n")
			case strings.HasPrefix(line, "nvidia-smi"), strings.HasPrefix(line, "nvcc"):
				// CPU-only box
				return fail(127, "command not found")
			default:
				return base(line)
			}
		}
	}
}

// armTarget scripts an aarch64 host. Deployments must fail fast on it.
func armTarget() sessionScript {
	return func() respondFunc {
		base := baseResponder()
		return func(line string) (sshexec.Result, error) {
			if line == "uname -m" {
				return ok("aarch64\n")
			}
			return base(line)
		}
	}
}

// crashingTarget scripts a host where the container starts and then
// immediately exits.
func crashingTarget() sessionScript {
	return func() respondFunc {
		base := baseResponder()
		return func(line string) (sshexec.Result, error) {
			switch {
			case strings.HasPrefix(line, "docker inspect"):
				return ok(exitedInspectJSON)
			case strings.HasPrefix(line, "docker logs"):
				return ok("CUDA driver version is insufficient for CUDA runtime version\n")
			default:
				return base(line)
			}
		}
	}
}

// =============================================================================
// Scripted Cloud Provider
// =============================================================================

// scriptedCloud satisfies provider.Provider for every provider type the
// suite provisions against.
type scriptedCloud struct {
	mu        sync.Mutex
	created   []provider.ProvisionRequest
	destroyed []provider.DestroyRequest
}

func (c *scriptedCloud) factory(domain.ProviderType) (provider.Provider, error) {
	return c, nil
}

func (c *scriptedCloud) CreateInstance(_ context.Context, req provider.ProvisionRequest) (*provider.ProvisionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.created = append(c.created, req)
	return &provider.ProvisionResult{
		ProviderInstanceID: "i-0e2e4f6a8",
		PublicIP:           "198.51.100.44",
	}, nil
}

func (c *scriptedCloud) DestroyInstance(_ context.Context, req provider.DestroyRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = append(c.destroyed, req)
	return nil
}

func (c *scriptedCloud) ListRegions(context.Context) ([]coreprovider.Region, error) {
	return []coreprovider.Region{
		{ID: "hel1", Name: "Helsinki", Available: true},
	}, nil
}

func (c *scriptedCloud) ListSizes(context.Context, string) ([]coreprovider.InstanceSize, error) {
	return []coreprovider.InstanceSize{
		{ID: "cx32", Name: "CX32", CPUCores: 4, MemoryMB: 8192, DiskGB: 80, PriceHourly: 0.0113},
	}, nil
}

func (c *scriptedCloud) DefaultUser() string { return "root" }

// =============================================================================
// HTTP Helpers
// =============================================================================

// doJSON sends a JSON request to the test server and returns the response.
func doJSON(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := testClient.Do(req)
	require.NoError(t, err)
	return resp
}

// decodeBody decodes a JSON response body into T and closes it.
func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// password builds the auth block every scripted target accepts.
func password() api.AuthRequest {
	return api.AuthRequest{Kind: "password", Secret: "e2e-pa55word"}
}

// deployTarget is the canonical bring-your-own target for the suite.
func deployTarget() api.TargetRequest {
	return api.TargetRequest{
		Host: "203.0.113.50",
		User: "deploy",
		Auth: password(),
	}
}

// awaitStatus polls the registry through the API until the deployment
// reaches the wanted status.
func awaitStatus(t *testing.T, id string, want store.RecordStatus) api.DeploymentResponse {
	t.Helper()

	var last api.DeploymentResponse
	require.Eventually(t, func() bool {
		resp := doJSON(t, http.MethodGet, "/api/deployments/"+id, nil)
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return false
		}
		last = decodeBody[api.DeploymentResponse](t, resp)
		return last.Status == string(want)
	}, 5*time.Second, 20*time.Millisecond, "deployment %s never reached %s (last: %+v)", id, want, last)
	return last
}
