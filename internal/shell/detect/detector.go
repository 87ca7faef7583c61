// Package detect fingerprints a deployment target: it runs the read-only
// probe battery over an existing session and reduces the output to a
// hardware profile, and enumerates recognized services already running.
package detect

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
	"github.com/dharuna457/ClaraVerse/internal/core/hardware"
	"github.com/dharuna457/ClaraVerse/internal/core/plan"
	"github.com/dharuna457/ClaraVerse/internal/shell/sshexec"
)

// probeTimeout bounds each individual probe. Probes are cheap; one stuck
// tool must not eat the whole connect budget.
const probeTimeout = 15 * time.Second

// Runner executes remote commands. Satisfied by *sshexec.Session.
type Runner interface {
	Run(ctx context.Context, cmd sshexec.Command) (sshexec.Result, error)
}

// =============================================================================
// Detector
// =============================================================================

// Detector fingerprints targets over existing sessions.
type Detector struct {
	logger *slog.Logger
}

// NewDetector creates a detector. A nil logger falls back to slog.Default.
func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{logger: logger.With("component", "detect")}
}

// Detect runs the probe battery and classifies the target. Probe
// failures are evidence, not errors; only a transport failure aborts.
func (d *Detector) Detect(ctx context.Context, runner Runner) (domain.HardwareProfile, error) {
	var ev hardware.Evidence
	for _, probe := range hardware.Battery() {
		res, err := runner.Run(ctx, sshexec.Command{
			Line:     probe.Line,
			Tolerant: true,
			Timeout:  probeTimeout,
		})
		if err != nil {
			return domain.HardwareProfile{}, err
		}

		out := res.Stdout
		if !res.OK() {
			out = res.Combined()
		}
		ev.Set(probe.Name, hardware.Reading{OK: res.OK(), Output: strings.TrimSpace(out)})
	}

	profile := hardware.Classify(ev)
	d.logger.Info("target classified", "profile", profile.Summary())
	return profile, nil
}

// =============================================================================
// Running Services
// =============================================================================

// ServiceStatus describes one recognized catalog service found running
// on a target.
type ServiceStatus struct {
	Service   string `json:"service"`
	Container string `json:"container"`
	Image     string `json:"image"`
	Status    string `json:"status"`
}

// RunningServices lists catalog services already running on the target.
// A target without docker simply has none.
func (d *Detector) RunningServices(ctx context.Context, runner Runner, catalog *plan.Catalog) ([]ServiceStatus, error) {
	res, err := runner.Run(ctx, sshexec.Command{
		Line:     plan.PSCommand(),
		Tolerant: true,
		Timeout:  probeTimeout,
	})
	if err != nil {
		return nil, err
	}
	if !res.OK() {
		return nil, nil
	}

	var out []ServiceStatus
	for _, line := range strings.Split(res.Stdout, "\n") {
		fields := strings.Split(strings.TrimSpace(line), "\t")
		if len(fields) < 3 {
			continue
		}
		svc, ok := catalog.MatchContainer(fields[0])
		if !ok {
			continue
		}
		out = append(out, ServiceStatus{
			Service:   svc.Name,
			Container: fields[0],
			Image:     fields[1],
			Status:    fields[2],
		})
	}
	return out, nil
}
