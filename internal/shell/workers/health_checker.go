package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dharuna457/ClaraVerse/internal/core/plan"
	"github.com/dharuna457/ClaraVerse/internal/shell/store"
)

var errNoEndpoint = errors.New("record has no endpoint URL")

// HealthCheckerConfig configures the health checker worker.
type HealthCheckerConfig struct {
	// Interval is the time between health check cycles.
	// Default: 60 seconds.
	Interval time.Duration

	// ProbeTimeout is the timeout for probing a single endpoint.
	// Default: 10 seconds.
	ProbeTimeout time.Duration

	// MaxConcurrent is the maximum number of endpoints probed concurrently.
	// Default: 5.
	MaxConcurrent int
}

// DefaultHealthCheckerConfig returns the default configuration.
func DefaultHealthCheckerConfig() HealthCheckerConfig {
	return HealthCheckerConfig{
		Interval:      60 * time.Second,
		ProbeTimeout:  10 * time.Second,
		MaxConcurrent: 5,
	}
}

// HealthChecker periodically probes the health endpoints of settled
// deployments and reconciles their registry status: a running record whose
// endpoint stops answering becomes stopped, and a stopped record whose
// endpoint answers again becomes running.
type HealthChecker struct {
	store   store.Store
	catalog *plan.Catalog
	client  *http.Client
	config  HealthCheckerConfig
	logger  *slog.Logger

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHealthChecker creates a new health checker worker.
func NewHealthChecker(s store.Store, catalog *plan.Catalog, config HealthCheckerConfig, logger *slog.Logger) *HealthChecker {
	if config.Interval == 0 {
		config.Interval = 60 * time.Second
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = 10 * time.Second
	}
	if config.MaxConcurrent == 0 {
		config.MaxConcurrent = 5
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HealthChecker{
		store:   s,
		catalog: catalog,
		client:  &http.Client{Timeout: config.ProbeTimeout},
		config:  config,
		logger:  logger.With("component", "health_checker"),
	}
}

// Start begins the health checker background goroutine.
func (h *HealthChecker) Start() {
	h.ctx, h.cancel = context.WithCancel(context.Background())

	h.wg.Add(1)
	go h.run()

	h.logger.Info("health checker started",
		"interval", h.config.Interval,
		"max_concurrent", h.config.MaxConcurrent,
	)
}

// Stop gracefully stops the health checker.
func (h *HealthChecker) Stop() {
	if h.cancel != nil {
		h.cancel()
	}
	h.wg.Wait()
	h.logger.Info("health checker stopped")
}

func (h *HealthChecker) run() {
	defer h.wg.Done()

	// Run immediately on start
	h.runCycle(h.ctx)

	ticker := time.NewTicker(h.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			h.runCycle(h.ctx)
		}
	}
}

// CheckNow runs one immediate health check cycle.
func (h *HealthChecker) CheckNow(ctx context.Context) {
	h.runCycle(ctx)
}

// runCycle probes every settled record once.
func (h *HealthChecker) runCycle(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, h.config.Interval)
	defer cancel()

	records, err := h.listSettled(ctx)
	if err != nil {
		h.logger.Error("failed to list deployments for health check", "error", err)
		return
	}

	if len(records) == 0 {
		return
	}

	h.logger.Debug("starting health check cycle", "record_count", len(records))

	sem := make(chan struct{}, h.config.MaxConcurrent)
	var wg sync.WaitGroup

	for i := range records {
		rec := &records[i]

		wg.Add(1)
		go func(r *store.DeploymentRecord) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				return
			case sem <- struct{}{}:
				defer func() { <-sem }()
			}

			h.checkRecord(ctx, r)
		}(rec)
	}

	wg.Wait()
	h.logger.Debug("completed health check cycle", "record_count", len(records))
}

// listSettled returns the records in a probeable status. In-flight and
// failed deployments are not probed.
func (h *HealthChecker) listSettled(ctx context.Context) ([]store.DeploymentRecord, error) {
	running, err := h.store.ListByStatus(ctx, store.StatusRunning, store.DefaultListOptions())
	if err != nil {
		return nil, err
	}
	stopped, err := h.store.ListByStatus(ctx, store.StatusStopped, store.DefaultListOptions())
	if err != nil {
		return nil, err
	}
	return append(running, stopped...), nil
}

// checkRecord probes one record and flips its status when the observed
// state disagrees with the registry.
func (h *HealthChecker) checkRecord(ctx context.Context, rec *store.DeploymentRecord) {
	logger := h.logger.With("deployment_id", rec.ID, "service", rec.Service)

	err := h.probe(ctx, rec)

	switch {
	case err == nil && rec.Status == store.StatusStopped:
		logger.Info("service endpoint answering again")
		if updateErr := h.store.UpdateStatus(ctx, rec.ID, store.StatusRunning, ""); updateErr != nil {
			logger.Error("failed to update record", "error", updateErr)
		}
	case err != nil && rec.Status == store.StatusRunning:
		logger.Warn("service endpoint went unreachable", "error", err)
		if updateErr := h.store.UpdateStatus(ctx, rec.ID, store.StatusStopped, err.Error()); updateErr != nil {
			logger.Error("failed to update record", "error", updateErr)
		}
	}
}

// probe issues one GET against the record's health endpoint. Responses
// below 400 count as healthy, matching the deploy-time probe.
func (h *HealthChecker) probe(ctx context.Context, rec *store.DeploymentRecord) error {
	if rec.URL == "" {
		return errNoEndpoint
	}

	path := "/"
	if svc, err := h.catalog.Lookup(rec.Service); err == nil && svc.HealthPath != "" {
		path = svc.HealthPath
	}

	probeCtx, cancel := context.WithTimeout(ctx, h.config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, rec.URL+path, nil)
	if err != nil {
		return err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}
	return nil
}
