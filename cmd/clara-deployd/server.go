package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dharuna457/ClaraVerse/internal/core/plan"
	coreprovider "github.com/dharuna457/ClaraVerse/internal/core/provider"
	"github.com/dharuna457/ClaraVerse/internal/shell/api"
	"github.com/dharuna457/ClaraVerse/internal/shell/deploy"
	"github.com/dharuna457/ClaraVerse/internal/shell/progress"
	"github.com/dharuna457/ClaraVerse/internal/shell/provider"
	"github.com/dharuna457/ClaraVerse/internal/shell/store"
	"github.com/dharuna457/ClaraVerse/internal/shell/workers"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess         = 0
	ExitConfigError     = 1
	ExitDatabaseError   = 2
	ExitCatalogError    = 3
	ExitHTTPServerError = 4
)

// =============================================================================
// Server
// =============================================================================

// Server wires the deployment daemon: registry store, progress bus,
// orchestrator, worker pool, cloud provisioner, HTTP API.
type Server struct {
	config        *Config
	httpServer    *http.Server
	store         store.Store
	bus           *progress.Bus
	runner        *workers.DeployRunner
	healthChecker *workers.HealthChecker
	logger        *slog.Logger
}

// NewServer creates a new server with the given config.
func NewServer(cfg *Config, logger *slog.Logger) (*Server, error) {
	// Resolve the service catalog
	catalog := plan.DefaultCatalog()
	if cfg.Catalog.Path != "" {
		data, err := os.ReadFile(cfg.Catalog.Path)
		if err != nil {
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      err,
				ExitCode: ExitCatalogError,
			}
		}
		catalog, err = plan.ParseCatalogOverride(data)
		if err != nil {
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      err,
				ExitCode: ExitCatalogError,
			}
		}
		logger.Info("loaded catalog override",
			"path", cfg.Catalog.Path,
			"services", catalog.Names(),
		)
	}

	// Open the deployment registry
	if dir := filepath.Dir(cfg.Database.DSN); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &ServerError{
				Op:       "NewServer",
				Err:      err,
				ExitCode: ExitDatabaseError,
			}
		}
	}
	s, err := store.NewSQLiteStore(cfg.Database.DSN)
	if err != nil {
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}

	// Records left in "deploying" belong to a previous process. Their
	// worker goroutines are gone, so the records can never resolve.
	stale, err := s.MarkStaleDeploying(context.Background(), "daemon restarted while deployment was in flight")
	if err != nil {
		s.Close()
		return nil, &ServerError{
			Op:       "NewServer",
			Err:      err,
			ExitCode: ExitDatabaseError,
		}
	}
	if stale > 0 {
		logger.Warn("failed stale deployments from previous run", "count", stale)
	}

	// Progress bus for per-deployment event streaming
	bus := progress.NewBus(64, logger)

	// Deployment orchestrator over SSH
	orchestrator := deploy.NewService(deploy.Config{
		ConnectTimeout: cfg.Deploy.ConnectTimeout,
		CommandTimeout: cfg.Deploy.CommandTimeout,
		InstallTimeout: cfg.Deploy.InstallTimeout,
		PullTimeout:    cfg.Deploy.PullTimeout,
		DeployTimeout:  cfg.Deploy.DeployTimeout,
		VerifySettle:   cfg.Deploy.VerifySettle,
		VerifyInterval: cfg.Deploy.VerifyInterval,
		VerifyAttempts: cfg.Deploy.VerifyAttempts,
	}, catalog, bus, logger)

	// Worker pool that executes queued deployments
	runner := workers.NewDeployRunner(orchestrator, s, catalog, workers.RunnerConfig{
		MaxConcurrent: cfg.Runner.MaxConcurrent,
		QueueSize:     cfg.Runner.QueueSize,
	}, logger)

	// Endpoint reconciliation worker
	var healthChecker *workers.HealthChecker
	if cfg.Health.Enabled {
		healthChecker = workers.NewHealthChecker(s, catalog, workers.HealthCheckerConfig{
			Interval:      cfg.Health.Interval,
			ProbeTimeout:  cfg.Health.ProbeTimeout,
			MaxConcurrent: cfg.Health.MaxConcurrent,
		}, logger)
	} else {
		logger.Info("endpoint reconciliation disabled")
	}

	// Cloud target provisioner
	provisioner := provider.NewProvisioner(coreprovider.Credentials{
		AWSAccessKeyID:     cfg.Providers.AWSAccessKeyID,
		AWSSecretAccessKey: cfg.Providers.AWSSecretAccessKey,
		DOToken:            cfg.Providers.DOToken,
		HetznerToken:       cfg.Providers.HetznerToken,
	}, catalog, logger)

	// Create HTTP handler
	handler := api.NewHandler(s, orchestrator, runner, provisioner, logger)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		config:        cfg,
		httpServer:    httpServer,
		store:         s,
		bus:           bus,
		runner:        runner,
		healthChecker: healthChecker,
		logger:        logger,
	}, nil
}

// Start starts the server and blocks until shutdown.
func (s *Server) Start(ctx context.Context) error {
	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start the deployment worker pool
	s.runner.Start()

	// Start the endpoint reconciliation worker
	if s.healthChecker != nil {
		s.healthChecker.Start()
	}

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server",
			"address", s.config.Server.Address())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		return &ServerError{
			Op:       "Start",
			Err:      err,
			ExitCode: ExitHTTPServerError,
		}
	case <-ctx.Done():
		s.logger.Info("context cancelled")
	}

	return s.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting requests first
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	// Drain the worker pool. In-flight deployments run to completion so
	// their registry records settle.
	s.runner.Stop()

	// Stop the endpoint reconciliation worker
	if s.healthChecker != nil {
		s.healthChecker.Stop()
	}

	// Close database
	if err := s.store.Close(); err != nil {
		s.logger.Error("database close error", "error", err)
	}

	if n := s.bus.Dropped(); n > 0 {
		s.logger.Warn("event bus dropped messages under backpressure", "count", n)
	}

	s.logger.Info("shutdown complete")
	return nil
}

// =============================================================================
// Server Error
// =============================================================================

// ServerError represents an error during server operation.
type ServerError struct {
	Op       string
	Err      error
	ExitCode int
}

func (e *ServerError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *ServerError) Unwrap() error {
	return e.Err
}
