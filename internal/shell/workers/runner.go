// Package workers contains background workers for the deployment service.
package workers

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
	"github.com/dharuna457/ClaraVerse/internal/core/plan"
	"github.com/dharuna457/ClaraVerse/internal/shell/store"
)

// ErrQueueFull is returned by Submit when the deploy queue has no room.
var ErrQueueFull = errors.New("deploy queue is full")

// persistTimeout bounds the registry writes that record a deployment's
// outcome. These writes use a fresh context so a shutdown cannot lose them.
const persistTimeout = 10 * time.Second

// Deployer runs one deployment to completion. Satisfied by deploy.Service.
type Deployer interface {
	Deploy(ctx context.Context, deploymentID string, req domain.DeployRequest) domain.DeploymentResult
}

// Observer receives every resolved deployment outcome. Satisfied by
// api.Metrics.
type Observer interface {
	ObserveDeployment(result domain.DeploymentResult)
}

// RunnerConfig configures the deploy runner worker pool.
type RunnerConfig struct {
	// MaxConcurrent is the number of deployments executed in parallel.
	// Default: 4.
	MaxConcurrent int

	// QueueSize is the capacity of the pending-deployment queue.
	// Default: 64.
	QueueSize int
}

// DefaultRunnerConfig returns the default configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		MaxConcurrent: 4,
		QueueSize:     64,
	}
}

// DeployJob is one queued deployment. The registry record must already
// exist in status "deploying" before the job is submitted.
type DeployJob struct {
	DeploymentID string
	Request      domain.DeployRequest
}

// DeployRunner executes queued deployments on a bounded worker pool and
// writes each outcome back to the registry.
type DeployRunner struct {
	deployer Deployer
	store    store.Store
	catalog  *plan.Catalog
	config   RunnerConfig
	logger   *slog.Logger
	observer Observer

	jobs chan DeployJob

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDeployRunner creates a new deploy runner.
func NewDeployRunner(d Deployer, s store.Store, catalog *plan.Catalog, config RunnerConfig, logger *slog.Logger) *DeployRunner {
	if config.MaxConcurrent == 0 {
		config.MaxConcurrent = 4
	}
	if config.QueueSize == 0 {
		config.QueueSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &DeployRunner{
		deployer: d,
		store:    s,
		catalog:  catalog,
		config:   config,
		logger:   logger.With("component", "deploy_runner"),
		jobs:     make(chan DeployJob, config.QueueSize),
	}
}

// SetObserver registers a metrics sink for resolved deployments.
// Call before Start.
func (r *DeployRunner) SetObserver(obs Observer) {
	r.observer = obs
}

// Start spawns the worker pool.
func (r *DeployRunner) Start() {
	r.ctx, r.cancel = context.WithCancel(context.Background())

	for i := 0; i < r.config.MaxConcurrent; i++ {
		r.wg.Add(1)
		go r.worker()
	}

	r.logger.Info("deploy runner started",
		"max_concurrent", r.config.MaxConcurrent,
		"queue_size", r.config.QueueSize,
	)
}

// Stop cancels in-flight deployments and waits for the workers to finish
// recording their outcomes. Jobs still queued are left in status
// "deploying"; MarkStaleDeploying settles them on the next boot.
func (r *DeployRunner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.logger.Info("deploy runner stopped")
}

// Submit enqueues a deployment without blocking.
func (r *DeployRunner) Submit(job DeployJob) error {
	select {
	case r.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueDepth reports the number of jobs waiting for a worker.
func (r *DeployRunner) QueueDepth() int {
	return len(r.jobs)
}

// QueueCapacity reports the queue's total capacity.
func (r *DeployRunner) QueueCapacity() int {
	return cap(r.jobs)
}

func (r *DeployRunner) worker() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case job := <-r.jobs:
			r.process(job)
		}
	}
}

func (r *DeployRunner) process(job DeployJob) {
	logger := r.logger.With("deployment_id", job.DeploymentID, "service", job.Request.Service)
	logger.Info("starting deployment", "host", job.Request.Target.Host)

	result := r.deployer.Deploy(r.ctx, job.DeploymentID, job.Request)
	if r.observer != nil {
		r.observer.ObserveDeployment(result)
	}

	// The runner context may already be canceled when the result arrives,
	// so the registry write gets its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if result.Success {
		r.recordSuccess(ctx, job, result, logger)
		return
	}
	r.recordFailure(ctx, job, result, logger)
}

func (r *DeployRunner) recordSuccess(ctx context.Context, job DeployJob, result domain.DeploymentResult, logger *slog.Logger) {
	err := r.store.WithTx(ctx, func(s store.Store) error {
		rec, err := s.GetDeployment(ctx, job.DeploymentID)
		if err != nil {
			return err
		}

		rec.Status = store.StatusRunning
		rec.Error = ""
		if endpoint, ok := result.Services[job.Request.Service]; ok {
			rec.URL = endpoint.URL
			rec.Port = endpoint.Port
			rec.ContainerID = endpoint.ContainerID
		}
		if result.Profile != nil {
			rec.Accelerator = string(result.Profile.Accelerator)
			if svc, err := r.catalog.Lookup(job.Request.Service); err == nil {
				rec.ImageRef = svc.ImageRef(result.Profile.Accelerator)
			}
		}

		return s.UpdateDeployment(ctx, rec)
	})
	if err != nil {
		logger.Error("failed to record deployment success", "error", err)
		return
	}
	logger.Info("deployment succeeded", "warnings", len(result.Warnings))
}

func (r *DeployRunner) recordFailure(ctx context.Context, job DeployJob, result domain.DeploymentResult, logger *slog.Logger) {
	msg := "deployment failed"
	if result.Error != nil {
		msg = result.Error.String()
	}

	if err := r.store.UpdateStatus(ctx, job.DeploymentID, store.StatusFailed, msg); err != nil {
		logger.Error("failed to record deployment failure", "error", err)
		return
	}
	logger.Warn("deployment failed", "error", msg)
}
