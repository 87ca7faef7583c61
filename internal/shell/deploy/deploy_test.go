package deploy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
	"github.com/dharuna457/ClaraVerse/internal/core/plan"
	"github.com/dharuna457/ClaraVerse/internal/shell/detect"
	"github.com/dharuna457/ClaraVerse/internal/shell/progress"
	"github.com/dharuna457/ClaraVerse/internal/shell/sshexec"
)

// =============================================================================
// Fixtures
// =============================================================================

const testPassword = "hunter2-passphrase"

const runningInspect = `[{"Id":"f2d9a1c7b4e8","Name":"/clara_core","State":{"Status":"running","Running":true,"Paused":false,"Restarting":false,"OOMKilled":false,"Dead":false,"Pid":4312,"ExitCode":0,"Error":"","StartedAt":"2025-06-01T10:00:05Z"}}]`

const exitedInspect = `[{"Id":"f2d9a1c7b4e8","Name":"/clara_core","State":{"Status":"exited","Running":false,"Paused":false,"Restarting":false,"OOMKilled":false,"Dead":false,"Pid":0,"ExitCode":1,"Error":"","FinishedAt":"2025-06-01T10:00:07Z"}}]`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTarget(t *testing.T) domain.ConnectionConfig {
	t.Helper()
	secret, err := domain.NewSecret(domain.AuthPassword, []byte(testPassword))
	require.NoError(t, err)
	return domain.ConnectionConfig{Host: "203.0.113.7", Port: 22, User: "deploy", Secret: secret}
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.VerifySettle = time.Millisecond
	cfg.VerifyInterval = time.Millisecond
	cfg.VerifyAttempts = 2
	return cfg
}

func testService(fake *fakeSession) *Service {
	logger := testLogger()
	return &Service{
		config:   testConfig(),
		catalog:  plan.DefaultCatalog(),
		bus:      progress.NewBus(256, logger),
		logger:   logger,
		detector: detect.NewDetector(logger),
		dial: func(ctx context.Context, target domain.ConnectionConfig) (Session, error) {
			return fake, nil
		},
	}
}

// =============================================================================
// Fake Session
// =============================================================================

// stub answers every command whose line starts with prefix. Stubs match
// in registration order; once-stubs are consumed by their first hit.
type stub struct {
	prefix string
	res    sshexec.Result
	err    error
	once   bool
	used   bool
}

type fakeSession struct {
	mu         sync.Mutex
	user       string
	stubs      []*stub
	cmds       []sshexec.Command
	closes     int
	hangPrefix string
}

func newFakeSession(user string) *fakeSession {
	return &fakeSession{user: user}
}

func ok(output string) sshexec.Result {
	return sshexec.Result{Stdout: output}
}

func fail(code int, stderr string) sshexec.Result {
	return sshexec.Result{ExitCode: code, Stderr: stderr}
}

func (f *fakeSession) stub(prefix string, res sshexec.Result) {
	f.stubs = append(f.stubs, &stub{prefix: prefix, res: res})
}

func (f *fakeSession) stubOnce(prefix string, res sshexec.Result) {
	f.stubs = append(f.stubs, &stub{prefix: prefix, res: res, once: true})
}

func (f *fakeSession) stubErr(prefix string, err error) {
	f.stubs = append(f.stubs, &stub{prefix: prefix, err: err})
}

// override prepends a stub so it wins over anything registered before.
func (f *fakeSession) override(prefix string, res sshexec.Result) {
	f.stubs = append([]*stub{{prefix: prefix, res: res}}, f.stubs...)
}

func (f *fakeSession) Run(ctx context.Context, cmd sshexec.Command) (sshexec.Result, error) {
	if f.hangPrefix != "" && strings.HasPrefix(cmd.Line, f.hangPrefix) {
		<-ctx.Done()
		return sshexec.Result{}, sshexec.NewConnError("run", "203.0.113.7:22", "canceled: "+ctx.Err().Error(), ctx.Err())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)

	for _, s := range f.stubs {
		if s.used || !strings.HasPrefix(cmd.Line, s.prefix) {
			continue
		}
		if s.once {
			s.used = true
		}
		return s.res, s.err
	}
	return fail(127, "sh: command not found"), nil
}

func (f *fakeSession) User() string { return f.user }

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeSession) ran(prefix string) bool {
	_, found := f.find(prefix)
	return found
}

func (f *fakeSession) find(prefix string) (sshexec.Command, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, cmd := range f.cmds {
		if strings.HasPrefix(cmd.Line, prefix) {
			return cmd, true
		}
	}
	return sshexec.Command{}, false
}

// freshHostSession scripts a bare Ubuntu x86_64 box: no docker, no
// accelerator, everything installable.
func freshHostSession() *fakeSession {
	f := newFakeSession("deploy")
	f.stub("uname -m", ok("x86_64"))
	f.stub("cat /etc/os-release", ok("PRETTY_NAME=\"Ubuntu 22.04.3 LTS\"\nID=ubuntu\nVERSION_ID=\"22.04\""))
	f.stubOnce("docker --version", fail(127, "docker: command not found"))
	f.stub("grep -m1 'model name' /proc/cpuinfo", ok("model name\t: Intel(R) Xeon(R) Platinum 8375C CPU @ 2.90GHz"))
	f.stub("curl -fsSL https://get.docker.com", ok(""))
	f.stub("sh /tmp/get-docker.sh", ok("# Executing docker install script"))
	f.stub("systemctl enable --now docker", ok(""))
	f.stub("usermod -aG docker", ok(""))
	f.stub("docker --version", ok("Docker version 27.0.1, build ff1e2d0"))
	f.stub("docker rm -f", fail(1, "Error response from daemon: No such container: clara_core"))
	f.stub("docker pull", ok("latest: Pulling from claraverse/clara-core\nStatus: Downloaded newer image"))
	f.stub("docker run -d", ok("f2d9a1c7b4e8"))
	f.stub("docker inspect", ok(runningInspect))
	f.stub("curl -fsS -m 5", ok(`{"status":"ok"}`))
	return f
}

// dockerHostSession scripts an x86_64 box that already runs docker.
func dockerHostSession() *fakeSession {
	f := newFakeSession("deploy")
	f.stub("uname -m", ok("x86_64"))
	f.stub("cat /etc/os-release", ok("ID=ubuntu\nVERSION_ID=\"22.04\""))
	f.stub("docker --version", ok("Docker version 27.0.1, build ff1e2d0"))
	f.stub("grep -m1 'model name' /proc/cpuinfo", ok("model name\t: AMD EPYC 7543 32-Core Processor"))
	f.stub("docker rm -f", fail(1, "Error response from daemon: No such container: clara_core"))
	f.stub("docker pull", ok("Status: Downloaded newer image"))
	f.stub("docker run -d", ok("f2d9a1c7b4e8"))
	f.stub("docker inspect", ok(runningInspect))
	f.stub("curl -fsS -m 5", ok("ok"))
	return f
}

// =============================================================================
// Event Helpers
// =============================================================================

func drain(sub *progress.Subscription) []domain.LogEvent {
	var events []domain.LogEvent
	for {
		select {
		case ev := <-sub.Events():
			events = append(events, ev)
		default:
			return events
		}
	}
}

// stepTrail collapses the event stream to its sequence of distinct steps.
func stepTrail(events []domain.LogEvent) []domain.DeploymentStep {
	var trail []domain.DeploymentStep
	for _, ev := range events {
		if len(trail) == 0 || trail[len(trail)-1] != ev.Step {
			trail = append(trail, ev.Step)
		}
	}
	return trail
}

// =============================================================================
// Scenario: fresh host, full sequence
// =============================================================================

func TestDeploy_FreshHostFullSequence(t *testing.T) {
	fake := freshHostSession()
	svc := testService(fake)
	sub := svc.SubscribeLog("dep_test0001")
	defer sub.Cancel()

	result := svc.Deploy(context.Background(), "dep_test0001", domain.DeployRequest{
		Service: "clara-core",
		Target:  testTarget(t),
		Port:    9100,
	})

	require.True(t, result.Success, "deployment should succeed: %+v", result.Error)
	assert.Equal(t, domain.StepComplete, result.Step)
	assert.Nil(t, result.Error)
	assert.Equal(t, "dep_test0001", result.DeploymentID)

	endpoint, found := result.Services["clara-core"]
	require.True(t, found)
	assert.Equal(t, 9100, endpoint.Port)
	assert.Equal(t, "http://203.0.113.7:9100", endpoint.URL)
	assert.Equal(t, "f2d9a1c7b4e8", endpoint.ContainerID)

	require.NotNil(t, result.Profile)
	assert.Equal(t, domain.AcceleratorCPU, result.Profile.Accelerator)
	assert.True(t, result.Profile.DockerPresent)
	assert.Equal(t, "27.0.1", result.Profile.DockerVersion)

	assert.Equal(t, []domain.DeploymentStep{
		domain.StepConnecting,
		domain.StepCheckingDocker,
		domain.StepInstallingPrereq,
		domain.StepCleaningUp,
		domain.StepPullingImage,
		domain.StepDeploying,
		domain.StepVerifying,
		domain.StepComplete,
	}, stepTrail(drain(sub)))

	assert.True(t, fake.ran("sh /tmp/get-docker.sh"), "install script should have run")
	assert.True(t, fake.ran("docker pull claraverse/clara-core:latest"), "cpu image should be pulled")
	runCmd, found := fake.find("docker run -d")
	require.True(t, found)
	assert.Contains(t, runCmd.Line, "-p 9100:8091")
	assert.Contains(t, runCmd.Line, "--name clara_core")
	assert.NotContains(t, runCmd.Line, "--gpus")

	assert.Empty(t, result.Warnings)
	assert.Equal(t, 1, fake.closes, "session must close exactly once")
}

// =============================================================================
// Scenario: ARM target fails fast
// =============================================================================

func TestDeploy_ARMTargetFailsFast(t *testing.T) {
	fake := newFakeSession("deploy")
	fake.stub("uname -m", ok("aarch64"))
	fake.stub("cat /etc/os-release", ok("ID=debian"))
	fake.stub("grep -m1 'model name' /proc/cpuinfo", ok("model name\t: Neoverse-N1"))
	svc := testService(fake)
	sub := svc.SubscribeLog("dep_test0002")
	defer sub.Cancel()

	result := svc.Deploy(context.Background(), "dep_test0002", domain.DeployRequest{
		Service: "clara-core",
		Target:  testTarget(t),
	})

	require.False(t, result.Success)
	assert.Equal(t, domain.StepError, result.Step)
	require.NotNil(t, result.Error)
	assert.Equal(t, domain.ErrKindUnsupportedHardware, result.Error.Kind)
	assert.Equal(t, domain.StepCheckingDocker, result.Error.Step)
	assert.Contains(t, result.Error.Message, "aarch64")

	require.NotNil(t, result.Profile)
	assert.Equal(t, domain.AcceleratorUnsupportedARM, result.Profile.Accelerator)

	assert.Equal(t, []domain.DeploymentStep{
		domain.StepConnecting,
		domain.StepCheckingDocker,
		domain.StepError,
	}, stepTrail(drain(sub)))

	assert.False(t, fake.ran("curl -fsSL https://get.docker.com"), "no install on unsupported hardware")
	assert.False(t, fake.ran("docker pull"), "no pull on unsupported hardware")
	assert.Equal(t, 1, fake.closes, "session must close exactly once")
}

// =============================================================================
// Scenario: container exits after start
// =============================================================================

func TestDeploy_ContainerNotRunningCapturesLogs(t *testing.T) {
	fake := dockerHostSession()
	fake.override("docker inspect", ok(exitedInspect))
	fake.stub("docker logs", ok("loading model weights\npanic: model file not found"))
	svc := testService(fake)

	result := svc.Deploy(context.Background(), "", domain.DeployRequest{
		Service: "clara-core",
		Target:  testTarget(t),
	})

	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, domain.ErrKindContainerStart, result.Error.Kind)
	assert.Equal(t, domain.StepVerifying, result.Error.Step)
	assert.Contains(t, result.Error.Message, "exited with code 1")
	assert.Contains(t, result.Error.Output, "panic: model file not found")
	assert.Equal(t, 1, fake.closes)
}

// =============================================================================
// Step and Event Invariants
// =============================================================================

func TestDeploy_StepEventsAreMonotonic(t *testing.T) {
	fake := freshHostSession()
	svc := testService(fake)
	sub := svc.SubscribeLog("dep_test0003")
	defer sub.Cancel()

	svc.Deploy(context.Background(), "dep_test0003", domain.DeployRequest{
		Service: "clara-core",
		Target:  testTarget(t),
	})

	events := drain(sub)
	require.NotEmpty(t, events)
	last := -1
	for _, ev := range events {
		order := ev.Step.Order()
		assert.GreaterOrEqual(t, order, last, "step %q went backwards", ev.Step)
		last = order
	}
}

func TestDeploy_SecretNeverAppearsInEvents(t *testing.T) {
	fake := freshHostSession()
	svc := testService(fake)
	sub := svc.SubscribeLog("dep_test0004")
	defer sub.Cancel()

	svc.Deploy(context.Background(), "dep_test0004", domain.DeployRequest{
		Service: "clara-core",
		Target:  testTarget(t),
	})

	for _, ev := range drain(sub) {
		assert.NotContains(t, ev.Message, testPassword)
	}
}

func TestDeploy_SecretClearedOnEveryPath(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		target := testTarget(t)
		svc := testService(freshHostSession())
		result := svc.Deploy(context.Background(), "", domain.DeployRequest{Service: "clara-core", Target: target})
		require.True(t, result.Success)
		assert.True(t, target.Secret.Cleared())
	})

	t.Run("failure", func(t *testing.T) {
		target := testTarget(t)
		fake := dockerHostSession()
		fake.override("docker pull", fail(1, "manifest unknown"))
		svc := testService(fake)
		result := svc.Deploy(context.Background(), "", domain.DeployRequest{Service: "clara-core", Target: target})
		require.False(t, result.Success)
		assert.True(t, target.Secret.Cleared())
	})
}

// =============================================================================
// Failure Classification
// =============================================================================

func TestDeploy_PullFailureIsFatal(t *testing.T) {
	fake := dockerHostSession()
	fake.override("docker pull", fail(1, "Error response from daemon: manifest unknown"))
	svc := testService(fake)

	result := svc.Deploy(context.Background(), "", domain.DeployRequest{
		Service: "clara-core",
		Target:  testTarget(t),
	})

	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, domain.ErrKindImagePull, result.Error.Kind)
	assert.Equal(t, domain.StepPullingImage, result.Error.Step)
	assert.Contains(t, result.Error.Output, "manifest unknown")
	assert.False(t, fake.ran("docker run -d"), "no run after failed pull")
	assert.Equal(t, 1, fake.closes)
}

func TestDeploy_EscalationDeniedDuringInstall(t *testing.T) {
	fake := freshHostSession()
	fake.stubs = append([]*stub{{
		prefix: "sh /tmp/get-docker.sh",
		err:    sshexec.NewConnError("run", "203.0.113.7:22", "sudo rejected the credential", sshexec.ErrEscalationDenied),
	}}, fake.stubs...)
	svc := testService(fake)

	result := svc.Deploy(context.Background(), "", domain.DeployRequest{
		Service: "clara-core",
		Target:  testTarget(t),
	})

	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, domain.ErrKindPrivilegeEscalation, result.Error.Kind)
	assert.Equal(t, domain.StepInstallingPrereq, result.Error.Step)
	assert.Equal(t, 1, fake.closes)
}

func TestDeploy_DialFailureIsConnectionError(t *testing.T) {
	svc := testService(nil)
	svc.dial = func(ctx context.Context, target domain.ConnectionConfig) (Session, error) {
		return nil, sshexec.NewConnError("dial", target.Address(), "authentication rejected", sshexec.ErrAuthRejected)
	}
	sub := svc.SubscribeLog("dep_test0005")
	defer sub.Cancel()

	result := svc.Deploy(context.Background(), "dep_test0005", domain.DeployRequest{
		Service: "clara-core",
		Target:  testTarget(t),
	})

	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, domain.ErrKindConnection, result.Error.Kind)
	assert.Equal(t, domain.StepConnecting, result.Error.Step)

	events := drain(sub)
	require.NotEmpty(t, events)
	final := events[len(events)-1]
	assert.Equal(t, domain.SeverityError, final.Severity)
	assert.Equal(t, domain.StepError, final.Step)
}

func TestDeploy_WatchdogTimesOut(t *testing.T) {
	fake := freshHostSession()
	fake.hangPrefix = "uname -m"
	svc := testService(fake)
	svc.config.DeployTimeout = 50 * time.Millisecond

	result := svc.Deploy(context.Background(), "", domain.DeployRequest{
		Service: "clara-core",
		Target:  testTarget(t),
	})

	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, domain.ErrKindTimeout, result.Error.Kind)
	assert.Equal(t, 1, fake.closes, "watchdog must still close the session")
}

func TestDeploy_UnknownServiceFails(t *testing.T) {
	fake := freshHostSession()
	svc := testService(fake)

	result := svc.Deploy(context.Background(), "", domain.DeployRequest{
		Service: "mystery-service",
		Target:  testTarget(t),
	})

	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, domain.ErrKindInternal, result.Error.Kind)
	assert.Equal(t, 0, fake.closes, "no session should be opened")
}

// =============================================================================
// Tolerant Steps
// =============================================================================

func TestDeploy_CleanupFailureIsWarningOnly(t *testing.T) {
	fake := dockerHostSession()
	fake.override("docker rm -f", fail(1, "Error response from daemon: device busy"))
	svc := testService(fake)

	result := svc.Deploy(context.Background(), "", domain.DeployRequest{
		Service: "clara-core",
		Target:  testTarget(t),
	})

	require.True(t, result.Success, "cleanup failure must not abort: %+v", result.Error)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "cleanup")
}

func TestDeploy_HealthProbeFailureIsWarningOnly(t *testing.T) {
	fake := dockerHostSession()
	fake.override("curl -fsS -m 5", fail(7, "Failed to connect to 127.0.0.1 port 8091"))
	svc := testService(fake)
	sub := svc.SubscribeLog("dep_test0006")
	defer sub.Cancel()

	result := svc.Deploy(context.Background(), "dep_test0006", domain.DeployRequest{
		Service: "clara-core",
		Target:  testTarget(t),
	})

	require.True(t, result.Success, "health probe failure must not abort")
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "/health")

	var sawWarning bool
	for _, ev := range drain(sub) {
		if ev.Severity == domain.SeverityWarning {
			sawWarning = true
		}
	}
	assert.True(t, sawWarning, "warning event should be published")
}

func TestDeploy_TolerantInstallStepContinues(t *testing.T) {
	fake := freshHostSession()
	fake.stubs = append([]*stub{{
		prefix: "systemctl enable --now docker",
		res:    fail(1, "System has not been booted with systemd"),
	}}, fake.stubs...)
	svc := testService(fake)

	result := svc.Deploy(context.Background(), "", domain.DeployRequest{
		Service: "clara-core",
		Target:  testTarget(t),
	})

	require.True(t, result.Success, "tolerant install step must not abort: %+v", result.Error)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "enable docker service")
}

// =============================================================================
// Escalation Policy
// =============================================================================

func TestDeploy_NonRootRunsDockerElevated(t *testing.T) {
	fake := dockerHostSession()
	svc := testService(fake)

	result := svc.Deploy(context.Background(), "", domain.DeployRequest{
		Service: "clara-core",
		Target:  testTarget(t),
	})
	require.True(t, result.Success)

	pullCmd, found := fake.find("docker pull")
	require.True(t, found)
	assert.True(t, pullCmd.Elevated, "non-root targets escalate docker commands")

	archCmd, found := fake.find("uname -m")
	require.True(t, found)
	assert.False(t, archCmd.Elevated, "probes never escalate")
}

func TestDeploy_RootNeverEscalates(t *testing.T) {
	fake := freshHostSession()
	fake.user = "root"
	svc := testService(fake)

	target := testTarget(t)
	target.User = "root"
	result := svc.Deploy(context.Background(), "", domain.DeployRequest{
		Service: "clara-core",
		Target:  target,
	})
	require.True(t, result.Success)

	for _, cmd := range fake.cmds {
		assert.False(t, cmd.Elevated, "root must run %q directly", cmd.Line)
	}
}

// =============================================================================
// CUDA Path
// =============================================================================

func TestDeploy_CUDAHostGetsToolkitAndGPUFlags(t *testing.T) {
	fake := dockerHostSession()
	fake.stub("nvidia-smi --query-gpu", ok("NVIDIA GeForce RTX 4090, 550.54.14"))
	fake.stub("nvcc --version", ok("Cuda compilation tools, release 12.4, V12.4.131"))
	fake.stub("curl -fsSL https://nvidia.github.io", ok(""))
	fake.stub("nvidia-ctk runtime configure", ok(""))
	fake.stub("systemctl restart docker", ok(""))
	svc := testService(fake)

	result := svc.Deploy(context.Background(), "", domain.DeployRequest{
		Service: "clara-core",
		Target:  testTarget(t),
	})

	require.True(t, result.Success, "cuda deployment should succeed: %+v", result.Error)
	require.NotNil(t, result.Profile)
	assert.Equal(t, domain.AcceleratorCUDA, result.Profile.Accelerator)

	assert.True(t, fake.ran("nvidia-ctk runtime configure"), "nvidia runtime should be registered")
	assert.True(t, fake.ran("docker pull claraverse/clara-core:latest-cuda"))
	runCmd, found := fake.find("docker run -d")
	require.True(t, found)
	assert.Contains(t, runCmd.Line, "--gpus all")
}

// =============================================================================
// Deployment IDs
// =============================================================================

func TestDeploy_GeneratesIDWhenEmpty(t *testing.T) {
	svc := testService(freshHostSession())

	result := svc.Deploy(context.Background(), "", domain.DeployRequest{
		Service: "clara-core",
		Target:  testTarget(t),
	})

	assert.True(t, strings.HasPrefix(result.DeploymentID, "dep_"), "got %q", result.DeploymentID)
}

// =============================================================================
// Classification Table
// =============================================================================

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want domain.ErrorKind
	}{
		{"auth rejected", sshexec.NewConnError("dial", "h:22", "auth", sshexec.ErrAuthRejected), domain.ErrKindConnection},
		{"refused", sshexec.NewConnError("dial", "h:22", "refused", sshexec.ErrConnectionRefused), domain.ErrKindConnection},
		{"unreachable", sshexec.NewConnError("dial", "h:22", "unreachable", sshexec.ErrHostUnreachable), domain.ErrKindConnection},
		{"connect timeout", sshexec.NewConnError("dial", "h:22", "timeout", sshexec.ErrConnectTimeout), domain.ErrKindConnection},
		{"escalation denied", sshexec.NewConnError("run", "h:22", "denied", sshexec.ErrEscalationDenied), domain.ErrKindPrivilegeEscalation},
		{"command timeout", sshexec.NewConnError("run", "h:22", "slow", sshexec.ErrCommandTimeout), domain.ErrKindTimeout},
		{"watchdog", context.DeadlineExceeded, domain.ErrKindTimeout},
		{"unknown", errors.New("surprise"), domain.ErrKindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			derr := classify(tt.err, domain.StepConnecting)
			assert.Equal(t, tt.want, derr.Kind)
			assert.Equal(t, domain.StepConnecting, derr.Step)
		})
	}
}

func TestClassify_PassesThroughDeployError(t *testing.T) {
	orig := NewDeployError(domain.ErrKindImagePull, domain.StepPullingImage, "pull failed", nil)
	derr := classify(orig, domain.StepVerifying)
	assert.Same(t, orig, derr, "already-classified errors pass through unchanged")
}

// =============================================================================
// TestConnection
// =============================================================================

func TestTestConnection_ReportsProfileAndServices(t *testing.T) {
	fake := dockerHostSession()
	fake.stub("docker ps --format", ok("clara_core\tclaraverse/clara-core:latest\tUp 2 hours\npostgres\tpostgres:16\tUp 5 days"))
	svc := testService(fake)

	target := testTarget(t)
	report, err := svc.TestConnection(context.Background(), target)
	require.NoError(t, err)

	assert.Equal(t, domain.AcceleratorCPU, report.Profile.Accelerator)
	assert.True(t, report.Profile.DockerPresent)
	require.Len(t, report.Services, 1, "only recognized containers are reported")
	assert.Equal(t, "clara-core", report.Services[0].Service)

	assert.Equal(t, 1, fake.closes)
	assert.True(t, target.Secret.Cleared())
}

func TestTestConnection_DialFailure(t *testing.T) {
	svc := testService(nil)
	svc.dial = func(ctx context.Context, target domain.ConnectionConfig) (Session, error) {
		return nil, sshexec.NewConnError("dial", target.Address(), "refused", sshexec.ErrConnectionRefused)
	}

	target := testTarget(t)
	_, err := svc.TestConnection(context.Background(), target)
	require.Error(t, err)

	var derr *DeployError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrKindConnection, derr.Kind)
	assert.True(t, target.Secret.Cleared(), "secret clears even when the dial fails")
}

// =============================================================================
// StopService
// =============================================================================

func TestStopService(t *testing.T) {
	fake := newFakeSession("deploy")
	fake.stub("docker stop clara_core", ok("clara_core"))
	svc := testService(fake)

	target := testTarget(t)
	err := svc.StopService(context.Background(), target, "clara-core")
	require.NoError(t, err)

	stopCmd, found := fake.find("docker stop clara_core")
	require.True(t, found)
	assert.True(t, stopCmd.Elevated)
	assert.Equal(t, 1, fake.closes)
	assert.True(t, target.Secret.Cleared())
}

func TestStopService_MissingContainerIsStopped(t *testing.T) {
	fake := newFakeSession("deploy")
	fake.stub("docker stop", fail(1, "Error response from daemon: No such container: clara_n8n"))
	svc := testService(fake)

	err := svc.StopService(context.Background(), testTarget(t), "n8n")
	assert.NoError(t, err, "a container that does not exist counts as stopped")
}

func TestStopService_UnknownService(t *testing.T) {
	svc := testService(newFakeSession("deploy"))

	target := testTarget(t)
	err := svc.StopService(context.Background(), target, "mystery")
	require.Error(t, err)

	var derr *DeployError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrKindInternal, derr.Kind)
	assert.True(t, target.Secret.Cleared())
}
