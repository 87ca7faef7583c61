package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
	"github.com/dharuna457/ClaraVerse/internal/core/hardware"
	"github.com/dharuna457/ClaraVerse/internal/core/plan"
	"github.com/dharuna457/ClaraVerse/internal/core/verify"
	"github.com/dharuna457/ClaraVerse/internal/shell/detect"
	"github.com/dharuna457/ClaraVerse/internal/shell/progress"
	"github.com/dharuna457/ClaraVerse/internal/shell/sshexec"
)

// deployment is the state of one Deploy invocation. Steps advance
// monotonically; resolve is the single finalization point that closes the
// session, clears the secret, and emits the terminal event.
type deployment struct {
	id       string
	req      domain.DeployRequest
	config   Config
	catalog  *plan.Catalog
	bus      *progress.Bus
	logger   *slog.Logger
	detector *detect.Detector
	dial     DialFunc

	svc         plan.Service
	sess        Session
	step        domain.DeploymentStep
	profile     *domain.HardwareProfile
	elevated    bool
	hostPort    int
	containerID string
	warnings    []string
	started     time.Time
}

// =============================================================================
// State Machine
// =============================================================================

func (d *deployment) execute(ctx context.Context) error {
	if err := d.req.Validate(); err != nil {
		return NewDeployError(domain.ErrKindInternal, domain.StepConnecting, "invalid deploy request", err)
	}

	svc, err := d.catalog.Lookup(d.req.Service)
	if err != nil {
		return NewDeployError(domain.ErrKindInternal, domain.StepConnecting, "service not in catalog", err)
	}
	d.svc = svc

	steps := []func(context.Context) error{
		d.connect,
		d.fingerprint,
		d.installPrerequisites,
		d.cleanup,
		d.pull,
		d.start,
		d.verifyRunning,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (d *deployment) connect(ctx context.Context) error {
	d.advance(domain.StepConnecting)
	d.info("connecting to " + d.req.Target.Address() + " as " + d.req.Target.User)

	sess, err := d.dial(ctx, d.req.Target)
	if err != nil {
		return err
	}
	d.sess = sess
	// Docker commands escalate for non-root users: group membership
	// granted during install does not apply to the current session.
	d.elevated = sess.User() != "root"
	d.success("connected")
	return nil
}

func (d *deployment) fingerprint(ctx context.Context) error {
	d.advance(domain.StepCheckingDocker)
	d.info("probing hardware and container runtime")

	profile, err := d.detector.Detect(ctx, d.sess)
	if err != nil {
		return err
	}
	d.profile = &profile
	d.info(profile.Summary())

	if !profile.Accelerator.Deployable() {
		return NewDeployError(domain.ErrKindUnsupportedHardware, d.step,
			fmt.Sprintf("architecture %s is not supported for deployment", profile.Arch), nil)
	}
	return nil
}

func (d *deployment) installPrerequisites(ctx context.Context) error {
	d.advance(domain.StepInstallingPrereq)

	if d.profile.DockerPresent {
		d.info("docker engine present: " + d.profile.DockerVersion)
	} else {
		d.info("docker engine not found, installing")
		if err := d.runPlan(ctx, plan.DockerInstallPlan(d.sess.User()), domain.ErrKindInstallation); err != nil {
			return err
		}

		res, err := d.sess.Run(ctx, sshexec.Command{Line: "docker --version", Tolerant: true})
		if err != nil {
			return err
		}
		if !res.OK() {
			return newOutputError(domain.ErrKindDockerMissing, d.step,
				"docker engine still missing after install", res.Combined())
		}
		if version, ok := hardware.ParseDockerVersion(res.Stdout); ok {
			d.profile.DockerVersion = version
		}
		d.profile.DockerPresent = true
		d.success("docker engine installed")
	}

	if steps := plan.AcceleratorSetupPlan(d.profile.Accelerator, d.profile.OSID, d.sess.User()); len(steps) > 0 {
		d.info("configuring " + string(d.profile.Accelerator) + " container support")
		if err := d.runPlan(ctx, steps, domain.ErrKindAcceleratorSetup); err != nil {
			return err
		}
	}
	return nil
}

func (d *deployment) cleanup(ctx context.Context) error {
	d.advance(domain.StepCleaningUp)

	res, err := d.sess.Run(ctx, d.docker(plan.CleanupCommand(d.svc.ContainerName), 0, true))
	if err != nil {
		return err
	}
	switch {
	case res.OK():
		d.info("removed previous " + d.svc.ContainerName + " container")
	case strings.Contains(res.Combined(), "No such container"):
		d.info("no previous container to remove")
	default:
		d.warn("cleanup of previous container failed, continuing")
	}
	return nil
}

func (d *deployment) pull(ctx context.Context) error {
	d.advance(domain.StepPullingImage)

	ref := d.svc.ImageRef(d.profile.Accelerator)
	d.info("pulling " + ref)

	res, err := d.sess.Run(ctx, d.docker(plan.PullCommand(d.svc, d.profile.Accelerator), d.config.PullTimeout, false))
	if err != nil {
		return err
	}
	if !res.OK() {
		return newOutputError(domain.ErrKindImagePull, d.step, "image pull failed for "+ref, res.Combined())
	}
	d.success("image pulled")
	return nil
}

func (d *deployment) start(ctx context.Context) error {
	d.advance(domain.StepDeploying)

	spec := plan.RunSpec{
		Service:    d.svc,
		Kind:       d.profile.Accelerator,
		HostPort:   d.req.Port,
		Env:        d.req.Env,
		ExtraPorts: d.req.ExtraPorts,
	}
	line, err := plan.BuildRunCommand(spec)
	if err != nil {
		return NewDeployError(domain.ErrKindInternal, d.step, "composing run command", err)
	}
	d.hostPort = spec.PublishedPort()
	d.info("starting " + d.svc.ContainerName + " on port " + strconv.Itoa(d.hostPort))

	res, err := d.sess.Run(ctx, d.docker(line, 0, false))
	if err != nil {
		return err
	}
	if !res.OK() {
		return newOutputError(domain.ErrKindContainerStart, d.step,
			"docker run failed for "+d.svc.ContainerName, res.Combined())
	}
	d.containerID = strings.TrimSpace(res.Stdout)
	return nil
}

func (d *deployment) verifyRunning(ctx context.Context) error {
	d.advance(domain.StepVerifying)
	d.info("waiting for " + d.svc.ContainerName + " to report running")

	verdict, err := d.awaitRunning(ctx)
	if err != nil {
		return err
	}
	if !verdict.Running {
		logs := d.captureLogs(ctx)
		return newOutputError(domain.ErrKindContainerStart, d.step,
			fmt.Sprintf("container %s did not stay running: %s", d.svc.ContainerName, verdict.Describe()), logs)
	}
	if verdict.ContainerID != "" {
		d.containerID = verdict.ContainerID
	}
	d.success("container is running")

	if probe := plan.HealthProbeCommand(d.svc, d.hostPort); probe != "" {
		res, err := d.sess.Run(ctx, sshexec.Command{Line: probe, Tolerant: true})
		if err != nil {
			return err
		}
		if res.OK() {
			d.info("health endpoint responded at " + d.svc.HealthPath)
		} else {
			d.warn("health endpoint " + d.svc.HealthPath + " is not responding yet")
		}
	}
	return nil
}

// awaitRunning polls container state until it reports running, reaches a
// dead end, or the attempt budget runs out. The last verdict is returned
// either way.
func (d *deployment) awaitRunning(ctx context.Context) (verify.Verdict, error) {
	if err := sleepCtx(ctx, d.config.VerifySettle); err != nil {
		return verify.Verdict{}, err
	}

	verdict := verify.Verdict{Status: "unknown"}
	for attempt := 0; attempt < d.config.VerifyAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, d.config.VerifyInterval); err != nil {
				return verdict, err
			}
		}

		res, err := d.sess.Run(ctx, d.docker(plan.InspectCommand(d.svc.ContainerName), 0, true))
		if err != nil {
			return verdict, err
		}

		resp, perr := verify.ParseInspect(res.Stdout)
		if perr != nil {
			verdict = verify.Verdict{Status: "missing"}
			continue
		}
		verdict = verify.Reduce(resp)
		if verdict.Running {
			return verdict, nil
		}
		if verdict.Status == "exited" || verdict.Status == "dead" {
			return verdict, nil
		}
	}
	return verdict, nil
}

// captureLogs grabs the container's log tail for the failure payload.
// Best effort: a dead session yields an empty excerpt.
func (d *deployment) captureLogs(ctx context.Context) string {
	res, err := d.sess.Run(ctx, d.docker(plan.LogsCommand(d.svc.ContainerName, plan.DefaultLogTail), 0, true))
	if err != nil {
		return ""
	}
	return verify.TruncateLogs(res.Combined(), verify.DefaultLogExcerpt)
}

// =============================================================================
// Resolution
// =============================================================================

// resolve is the single finalization point. It closes the session, clears
// the secret, and stamps exactly one terminal step and result.
func (d *deployment) resolve(execErr error) domain.DeploymentResult {
	if d.sess != nil {
		if err := d.sess.Close(); err != nil {
			d.logger.Warn("closing session", "deployment_id", d.id, "error", err)
		}
	}
	clearSecret(d.req.Target)

	result := domain.DeploymentResult{
		DeploymentID: d.id,
		Service:      d.req.Service,
		Profile:      d.profile,
		Warnings:     d.warnings,
		StartedAt:    d.started,
		FinishedAt:   time.Now().UTC(),
	}

	if execErr != nil {
		derr := classify(execErr, d.step)
		d.advance(domain.StepError)
		result.Step = domain.StepError
		result.Error = derr.Detail()
		d.publish(domain.SeverityError, derr.Message)
		d.logger.Error("deployment failed",
			"deployment_id", d.id, "kind", derr.Kind, "step", derr.Step, "error", derr.Message)
		return result
	}

	d.advance(domain.StepComplete)
	result.Step = domain.StepComplete
	result.Success = true

	url := fmt.Sprintf("http://%s:%d", d.req.Target.Host, d.hostPort)
	result.Services = map[string]domain.ServiceEndpoint{
		d.svc.Name: {
			Name:        d.svc.Name,
			URL:         url,
			Port:        d.hostPort,
			ContainerID: d.containerID,
		},
	}
	d.publish(domain.SeveritySuccess, d.svc.Name+" deployed at "+url)
	d.logger.Info("deployment complete", "deployment_id", d.id, "service", d.svc.Name, "url", url)
	return result
}

// =============================================================================
// Helpers
// =============================================================================

// runPlan executes install steps in order, honoring each step's failure
// policy: tolerant steps warn and continue, the rest abort with kind.
func (d *deployment) runPlan(ctx context.Context, steps []plan.Step, kind domain.ErrorKind) error {
	for _, step := range steps {
		d.info(step.Name)
		res, err := d.sess.Run(ctx, sshexec.Command{
			Line:     step.Line,
			Elevated: step.Elevated && d.elevated,
			Tolerant: step.Tolerant,
			Timeout:  d.config.InstallTimeout,
		})
		if err != nil {
			return err
		}
		if res.OK() {
			continue
		}
		if step.Tolerant {
			d.warn(fmt.Sprintf("%s failed (exit %d), continuing", step.Name, res.ExitCode))
			continue
		}
		return newOutputError(kind, d.step, step.Name+" failed", res.Combined())
	}
	return nil
}

// docker composes a docker invocation with the target's escalation rule.
func (d *deployment) docker(line string, timeout time.Duration, tolerant bool) sshexec.Command {
	return sshexec.Command{Line: line, Elevated: d.elevated, Tolerant: tolerant, Timeout: timeout}
}

// advance moves the state machine forward. An illegal transition is a
// programming error; it is logged and the current step kept.
func (d *deployment) advance(to domain.DeploymentStep) {
	if d.step.IsValid() {
		if err := domain.ValidateStepTransition(d.step, to); err != nil {
			d.logger.Error("step transition rejected",
				"deployment_id", d.id, "from", d.step, "to", to, "error", err)
			return
		}
	}
	d.step = to
}

func (d *deployment) publish(severity domain.Severity, message string) {
	d.bus.Publish(domain.NewLogEvent(d.id, severity, d.step, message))
	d.logger.Debug("progress", "deployment_id", d.id, "step", d.step, "message", message)
}

func (d *deployment) info(message string) {
	d.publish(domain.SeverityInfo, message)
}

func (d *deployment) success(message string) {
	d.publish(domain.SeveritySuccess, message)
}

func (d *deployment) warn(message string) {
	d.warnings = append(d.warnings, message)
	d.publish(domain.SeverityWarning, message)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
