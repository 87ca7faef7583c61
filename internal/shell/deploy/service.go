// Package deploy drives the remote deployment state machine: connect,
// fingerprint, install prerequisites, clean up, pull, run, verify. One
// invocation owns one SSH session and resolves to exactly one result.
package deploy

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
	"github.com/dharuna457/ClaraVerse/internal/core/plan"
	"github.com/dharuna457/ClaraVerse/internal/shell/detect"
	"github.com/dharuna457/ClaraVerse/internal/shell/progress"
	"github.com/dharuna457/ClaraVerse/internal/shell/sshexec"
)

// =============================================================================
// Configuration
// =============================================================================

// Config bounds the orchestrator's remote operations.
type Config struct {
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
	InstallTimeout time.Duration
	PullTimeout    time.Duration

	// DeployTimeout is the whole-invocation watchdog. When it fires the
	// session is torn down and the deployment resolves to a timeout error.
	DeployTimeout time.Duration

	VerifySettle   time.Duration
	VerifyInterval time.Duration
	VerifyAttempts int
}

// DefaultConfig returns the production timeouts.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 30 * time.Second,
		CommandTimeout: 5 * time.Minute,
		InstallTimeout: 8 * time.Minute,
		PullTimeout:    10 * time.Minute,
		DeployTimeout:  10 * time.Minute,
		VerifySettle:   2 * time.Second,
		VerifyInterval: time.Second,
		VerifyAttempts: 4,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = def.CommandTimeout
	}
	if c.InstallTimeout <= 0 {
		c.InstallTimeout = def.InstallTimeout
	}
	if c.PullTimeout <= 0 {
		c.PullTimeout = def.PullTimeout
	}
	if c.DeployTimeout <= 0 {
		c.DeployTimeout = def.DeployTimeout
	}
	if c.VerifySettle <= 0 {
		c.VerifySettle = def.VerifySettle
	}
	if c.VerifyInterval <= 0 {
		c.VerifyInterval = def.VerifyInterval
	}
	if c.VerifyAttempts <= 0 {
		c.VerifyAttempts = def.VerifyAttempts
	}
	return c
}

// =============================================================================
// Session Surface
// =============================================================================

// Session is the remote execution surface the orchestrator drives.
// *sshexec.Session satisfies it; tests substitute fakes.
type Session interface {
	Run(ctx context.Context, cmd sshexec.Command) (sshexec.Result, error)
	User() string
	Close() error
}

// DialFunc opens a session against a target.
type DialFunc func(ctx context.Context, target domain.ConnectionConfig) (Session, error)

// =============================================================================
// Service Facade
// =============================================================================

// Service is the orchestrator's public surface: TestConnection, Deploy,
// StopService, SubscribeLog. The HTTP layer and the workers consume only
// this facade.
type Service struct {
	config   Config
	catalog  *plan.Catalog
	bus      *progress.Bus
	logger   *slog.Logger
	detector *detect.Detector
	dial     DialFunc
}

// NewService wires the orchestrator facade. Nil collaborators fall back
// to defaults.
func NewService(config Config, catalog *plan.Catalog, bus *progress.Bus, logger *slog.Logger) *Service {
	config = config.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if catalog == nil {
		catalog = plan.DefaultCatalog()
	}
	if bus == nil {
		bus = progress.NewBus(0, logger)
	}

	dialer := sshexec.NewDialer(sshexec.Config{
		ConnectTimeout: config.ConnectTimeout,
		CommandTimeout: config.CommandTimeout,
	}, logger)

	return &Service{
		config:   config,
		catalog:  catalog,
		bus:      bus,
		logger:   logger.With("component", "deploy"),
		detector: detect.NewDetector(logger),
		dial: func(ctx context.Context, target domain.ConnectionConfig) (Session, error) {
			return dialer.Dial(ctx, target)
		},
	}
}

// NewServiceWithDialer wires the orchestrator facade with a custom dial
// function. Use this to substitute the SSH transport.
func NewServiceWithDialer(config Config, catalog *plan.Catalog, bus *progress.Bus, logger *slog.Logger, dial DialFunc) *Service {
	s := NewService(config, catalog, bus, logger)
	if dial != nil {
		s.dial = dial
	}
	return s
}

// Catalog returns the service catalog this orchestrator deploys from.
func (s *Service) Catalog() *plan.Catalog {
	return s.catalog
}

// Bus returns the progress bus deployments publish to.
func (s *Service) Bus() *progress.Bus {
	return s.bus
}

// SubscribeLog follows one deployment's progress events. Cancel the
// subscription when the consumer goes away.
func (s *Service) SubscribeLog(deploymentID string) *progress.Subscription {
	return s.bus.Subscribe(deploymentID)
}

// =============================================================================
// Operations
// =============================================================================

// Deploy runs the full state machine against the request's target and
// always produces exactly one result; failures travel inside it, never as
// a separate error. An empty deploymentID gets a generated one.
func (s *Service) Deploy(ctx context.Context, deploymentID string, req domain.DeployRequest) domain.DeploymentResult {
	if deploymentID == "" {
		deploymentID = domain.GenerateDeploymentID()
	}

	d := &deployment{
		id:       deploymentID,
		req:      req,
		config:   s.config,
		catalog:  s.catalog,
		bus:      s.bus,
		logger:   s.logger,
		detector: s.detector,
		dial:     s.dial,
		started:  time.Now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.DeployTimeout)
	defer cancel()

	s.logger.Info("deployment started",
		"deployment_id", d.id, "service", req.Service, "target", req.Target.Address())
	return d.resolve(d.execute(ctx))
}

// TestReport is the target snapshot returned by TestConnection.
type TestReport struct {
	Profile  domain.HardwareProfile `json:"profile"`
	Services []detect.ServiceStatus `json:"services,omitempty"`
}

// TestConnection opens a session, fingerprints the target, and enumerates
// recognized running services. The session is closed and the secret
// cleared before it returns.
func (s *Service) TestConnection(ctx context.Context, target domain.ConnectionConfig) (TestReport, error) {
	var report TestReport
	defer clearSecret(target)

	ctx, cancel := context.WithTimeout(ctx, s.config.ConnectTimeout+s.config.CommandTimeout)
	defer cancel()

	sess, err := s.dial(ctx, target)
	if err != nil {
		return report, classify(err, domain.StepConnecting)
	}
	defer sess.Close()

	profile, err := s.detector.Detect(ctx, sess)
	if err != nil {
		return report, classify(err, domain.StepCheckingDocker)
	}
	report.Profile = profile

	if profile.DockerPresent {
		services, err := s.detector.RunningServices(ctx, sess, s.catalog)
		if err != nil {
			return report, classify(err, domain.StepCheckingDocker)
		}
		report.Services = services
	}
	return report, nil
}

// StopService stops a recognized service's container on the target.
// A container that does not exist counts as stopped.
func (s *Service) StopService(ctx context.Context, target domain.ConnectionConfig, serviceName string) error {
	defer clearSecret(target)

	svc, err := s.catalog.Lookup(serviceName)
	if err != nil {
		return NewDeployError(domain.ErrKindInternal, "", "unknown service "+serviceName, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.ConnectTimeout+s.config.CommandTimeout)
	defer cancel()

	sess, err := s.dial(ctx, target)
	if err != nil {
		return classify(err, "")
	}
	defer sess.Close()

	res, err := sess.Run(ctx, sshexec.Command{
		Line:     plan.StopCommand(svc.ContainerName),
		Elevated: sess.User() != "root",
		Tolerant: true,
	})
	if err != nil {
		return classify(err, "")
	}
	if !res.OK() && !strings.Contains(res.Combined(), "No such container") {
		return newOutputError(domain.ErrKindInternal, "",
			"docker stop failed for "+svc.ContainerName, res.Combined())
	}

	s.logger.Info("service stopped", "service", svc.Name, "target", target.Address())
	return nil
}

func clearSecret(target domain.ConnectionConfig) {
	if target.Secret != nil {
		target.Secret.Clear()
	}
}
