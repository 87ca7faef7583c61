// Package api provides the HTTP surface of the deployment service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
	"github.com/dharuna457/ClaraVerse/internal/core/plan"
	coreprovider "github.com/dharuna457/ClaraVerse/internal/core/provider"
	"github.com/dharuna457/ClaraVerse/internal/shell/api/openapi"
	"github.com/dharuna457/ClaraVerse/internal/shell/deploy"
	"github.com/dharuna457/ClaraVerse/internal/shell/progress"
	"github.com/dharuna457/ClaraVerse/internal/shell/provider"
	"github.com/dharuna457/ClaraVerse/internal/shell/store"
	"github.com/dharuna457/ClaraVerse/internal/shell/workers"
)

// =============================================================================
// Handler
// =============================================================================

// Handler provides HTTP handlers for the API.
type Handler struct {
	store       store.Store
	deploy      *deploy.Service
	runner      *workers.DeployRunner
	provisioner *provider.Provisioner
	catalog     *plan.Catalog
	bus         *progress.Bus
	metrics     *Metrics
	spec        *openapi.Generator
	upgrader    websocket.Upgrader
	logger      *slog.Logger
}

// NewHandler creates a new API handler. The catalog and progress bus come
// from the deploy service so every layer shares one instance of each.
func NewHandler(s store.Store, d *deploy.Service, runner *workers.DeployRunner, prov *provider.Provisioner, l *slog.Logger) *Handler {
	if l == nil {
		l = slog.Default()
	}

	h := &Handler{
		store:       s,
		deploy:      d,
		runner:      runner,
		provisioner: prov,
		catalog:     d.Catalog(),
		bus:         d.Bus(),
		metrics:     NewMetrics(),
		spec:        newSpec(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: l,
	}
	runner.SetObserver(h.metrics)
	return h
}

// Metrics returns the metric set, for wiring outside the router.
func (h *Handler) Metrics() *Metrics {
	return h.metrics
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.metrics.Middleware)
	r.Use(h.requestIDHeader)

	// Health endpoints
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)

	// Observability
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(h.jsonContentType)

		r.Get("/openapi.json", h.spec.Handler())

		r.Route("/targets", func(r chi.Router) {
			r.Post("/test", h.handleTestTarget)
			r.Post("/provision", h.handleProvisionTarget)
			r.Post("/destroy", h.handleDestroyTarget)
		})

		r.Route("/deployments", func(r chi.Router) {
			r.Post("/", h.handleCreateDeployment)
			r.Get("/", h.handleListDeployments)
			r.Get("/{id}", h.handleGetDeployment)
			r.Delete("/{id}", h.handleDeleteDeployment)
			r.Get("/{id}/events", h.handleDeploymentEvents)
		})

		r.Route("/services", func(r chi.Router) {
			r.Get("/", h.handleListServices)
			r.Post("/{name}/stop", h.handleStopService)
		})

		r.Route("/providers", func(r chi.Router) {
			r.Get("/", h.handleListProviders)
			r.Get("/{provider}/regions", h.handleListRegions)
			r.Get("/{provider}/sizes", h.handleListSizes)
		})
	})

	return r
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	checks := make(map[string]string)

	ready := true
	if _, err := h.store.ListDeployments(r.Context(), store.ListOptions{Limit: 1}); err != nil {
		checks["database"] = "failed"
		ready = false
	} else {
		checks["database"] = "ok"
	}

	checks["deploy_queue"] = "ok"
	if h.runner.QueueDepth() >= h.runner.QueueCapacity() {
		checks["deploy_queue"] = "full"
	}

	if !ready {
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Checks: checks,
		})
		return
	}
	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Target Handlers
// =============================================================================

func (h *Handler) handleTestTarget(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	target, err := connectionFromRequest(req)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}
	if err := target.Validate(); err != nil {
		target.Secret.Clear()
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}

	report, err := h.deploy.TestConnection(r.Context(), target)
	if err != nil {
		status, code, msg := statusForError(err)
		h.writeError(w, status, msg, code)
		return
	}

	h.writeJSON(w, http.StatusOK, reportToResponse(report))
}

func (h *Handler) handleProvisionTarget(w http.ResponseWriter, r *http.Request) {
	var req ProvisionTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	target, err := h.provisioner.Provision(r.Context(), domain.ProvisionRequest{
		Provider: domain.ProviderType(req.Provider),
		Name:     req.Name,
		Region:   req.Region,
		Size:     req.Size,
		GPU:      req.GPU,
	})
	if err != nil {
		switch {
		case isProvisionValidation(err):
			h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		case isCredentialMissing(err):
			h.writeError(w, http.StatusServiceUnavailable, err.Error(), "provider_not_configured")
		default:
			h.logger.Error("provisioning failed", "provider", req.Provider, "error", err)
			h.writeError(w, http.StatusBadGateway, "provisioning failed: "+err.Error(), "provider_error")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, targetToResponse(target))
}

func (h *Handler) handleDestroyTarget(w http.ResponseWriter, r *http.Request) {
	var req DestroyTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	providerType := domain.ProviderType(req.Provider)
	if !providerType.IsValid() {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidProviderType.Error(), "validation_error")
		return
	}
	if req.InstanceID == "" || req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "instance_id and name are required", "validation_error")
		return
	}

	err := h.provisioner.Destroy(r.Context(), providerType, provider.DestroyRequest{
		ProviderInstanceID: req.InstanceID,
		InstanceName:       req.Name,
		Region:             req.Region,
	})
	if err != nil {
		if isCredentialMissing(err) {
			h.writeError(w, http.StatusServiceUnavailable, err.Error(), "provider_not_configured")
			return
		}
		h.logger.Error("target destruction failed", "provider", req.Provider, "instance_id", req.InstanceID, "error", err)
		h.writeError(w, http.StatusBadGateway, "destruction failed: "+err.Error(), "provider_error")
		return
	}

	h.writeJSON(w, http.StatusOK, DestroyTargetResponse{
		InstanceID: req.InstanceID,
		Status:     "destroyed",
	})
}

// =============================================================================
// Deployment Handlers
// =============================================================================

// handleCreateDeployment registers the deployment and hands it to the
// runner. The response carries the registry record in status "deploying";
// the state machine runs in the background and settles the record.
func (h *Handler) handleCreateDeployment(w http.ResponseWriter, r *http.Request) {
	var req CreateDeploymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	target, err := connectionFromRequest(req.Target)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}

	deployReq := domain.DeployRequest{
		Service:    req.Service,
		Target:     target,
		Port:       req.Port,
		Env:        req.Env,
		ExtraPorts: req.ExtraPorts,
	}
	if err := deployReq.Validate(); err != nil {
		target.Secret.Clear()
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}

	svc, err := h.catalog.Lookup(req.Service)
	if err != nil {
		target.Secret.Clear()
		h.writeError(w, http.StatusBadRequest, err.Error(), "service_unknown")
		return
	}

	port := req.Port
	if port == 0 {
		port = svc.Port
	}

	now := time.Now().UTC()
	rec := &store.DeploymentRecord{
		ID:        domain.GenerateDeploymentID(),
		Service:   req.Service,
		Host:      target.Host,
		Port:      port,
		Status:    store.StatusDeploying,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateDeployment(r.Context(), rec); err != nil {
		target.Secret.Clear()
		h.logger.Error("failed to create deployment record", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to create deployment", "internal_error")
		return
	}

	// Step-duration metrics ride a bus subscription that ends with the
	// deployment's terminal event.
	sub := h.bus.Subscribe(rec.ID)
	go h.consumeEvents(sub)

	if err := h.runner.Submit(workers.DeployJob{DeploymentID: rec.ID, Request: deployReq}); err != nil {
		sub.Cancel()
		target.Secret.Clear()
		_ = h.store.UpdateStatus(r.Context(), rec.ID, store.StatusFailed, "deploy queue is full")
		h.writeError(w, http.StatusServiceUnavailable, "deploy queue is full", "queue_full")
		return
	}

	h.logger.Info("deployment accepted",
		"deployment_id", rec.ID, "service", rec.Service, "host", rec.Host)
	h.writeJSON(w, http.StatusAccepted, recordToResponse(rec))
}

// consumeEvents feeds one deployment's progress stream into the metrics
// and cancels the subscription on the terminal event.
func (h *Handler) consumeEvents(sub *progress.Subscription) {
	for ev := range sub.Events() {
		h.metrics.ObserveEvent(ev)
		if ev.Step.IsTerminal() {
			sub.Cancel()
		}
	}
}

func (h *Handler) handleGetDeployment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.store.GetDeployment(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "deployment not found", "deployment_not_found")
			return
		}
		h.logger.Error("failed to get deployment", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get deployment", "internal_error")
		return
	}

	h.writeJSON(w, http.StatusOK, recordToResponse(rec))
}

func (h *Handler) handleListDeployments(w http.ResponseWriter, r *http.Request) {
	opts := store.DefaultListOptions()

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			opts.Limit = l
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil {
			opts.Offset = o
		}
	}

	var (
		records []store.DeploymentRecord
		err     error
	)
	if status := r.URL.Query().Get("status"); status != "" {
		recStatus := store.RecordStatus(status)
		if !recStatus.IsValid() {
			h.writeError(w, http.StatusBadRequest, "unknown status "+status, "validation_error")
			return
		}
		records, err = h.store.ListByStatus(r.Context(), recStatus, opts)
	} else {
		records, err = h.store.ListDeployments(r.Context(), opts)
	}
	if err != nil {
		h.logger.Error("failed to list deployments", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to list deployments", "internal_error")
		return
	}

	resp := ListDeploymentsResponse{
		Deployments: make([]DeploymentResponse, 0, len(records)),
		Total:       len(records),
		Limit:       opts.Limit,
		Offset:      opts.Offset,
	}
	for i := range records {
		resp.Deployments = append(resp.Deployments, recordToResponse(&records[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeleteDeployment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, err := h.store.GetDeployment(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			h.writeError(w, http.StatusNotFound, "deployment not found", "deployment_not_found")
			return
		}
		h.logger.Error("failed to get deployment", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to get deployment", "internal_error")
		return
	}

	if rec.Status == store.StatusDeploying {
		h.writeError(w, http.StatusConflict, "deployment is still in progress", "deployment_in_progress")
		return
	}

	if err := h.store.DeleteDeployment(r.Context(), id); err != nil {
		h.logger.Error("failed to delete deployment", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to delete deployment", "internal_error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Service Handlers
// =============================================================================

func (h *Handler) handleListServices(w http.ResponseWriter, r *http.Request) {
	services := h.catalog.Services()

	resp := ListServicesResponse{Services: make([]CatalogServiceResponse, 0, len(services))}
	for _, svc := range services {
		resp.Services = append(resp.Services, CatalogServiceResponse{
			Name:       svc.Name,
			Image:      svc.Image,
			Port:       svc.Port,
			HealthPath: svc.HealthPath,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleStopService(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req StopServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "validation_error")
		return
	}

	target, err := connectionFromRequest(req.Target)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}
	if err := target.Validate(); err != nil {
		target.Secret.Clear()
		h.writeError(w, http.StatusBadRequest, err.Error(), "validation_error")
		return
	}

	host := target.Host
	if err := h.deploy.StopService(r.Context(), target, name); err != nil {
		if errors.Is(err, plan.ErrServiceUnknown) {
			h.writeError(w, http.StatusNotFound, "unknown service "+name, "service_unknown")
			return
		}
		status, code, msg := statusForError(err)
		h.writeError(w, status, msg, code)
		return
	}

	h.reflectStop(r.Context(), name, host)

	h.writeJSON(w, http.StatusOK, StopServiceResponse{
		Service: name,
		Status:  "stopped",
	})
}

// reflectStop marks running registry records for the stopped service on
// that host as stopped, so the registry does not wait for the next health
// probe to notice.
func (h *Handler) reflectStop(ctx context.Context, service, host string) {
	records, err := h.store.ListByStatus(ctx, store.StatusRunning, store.ListOptions{Limit: 1000})
	if err != nil {
		h.logger.Warn("failed to reflect stop into registry", "error", err)
		return
	}
	for _, rec := range records {
		if rec.Service != service || rec.Host != host {
			continue
		}
		if err := h.store.UpdateStatus(ctx, rec.ID, store.StatusStopped, ""); err != nil {
			h.logger.Warn("failed to mark record stopped", "deployment_id", rec.ID, "error", err)
		}
	}
}

// =============================================================================
// Provider Handlers
// =============================================================================

func (h *Handler) handleListProviders(w http.ResponseWriter, r *http.Request) {
	configured := make(map[domain.ProviderType]bool)
	for _, p := range h.provisioner.Providers() {
		configured[p] = true
	}

	all := []domain.ProviderType{domain.ProviderAWS, domain.ProviderDigitalOcean, domain.ProviderHetzner}
	resp := ListProvidersResponse{Providers: make([]ProviderResponse, 0, len(all))}
	for _, p := range all {
		resp.Providers = append(resp.Providers, ProviderResponse{
			Provider:    string(p),
			DisplayName: p.DisplayName(),
			Configured:  configured[p],
			GPU:         coreprovider.SupportsGPU(p),
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListRegions(w http.ResponseWriter, r *http.Request) {
	providerType := domain.ProviderType(chi.URLParam(r, "provider"))
	if !providerType.IsValid() {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidProviderType.Error(), "validation_error")
		return
	}

	regions, err := h.provisioner.Regions(r.Context(), providerType)
	if err != nil {
		if isCredentialMissing(err) {
			h.writeError(w, http.StatusServiceUnavailable, err.Error(), "provider_not_configured")
			return
		}
		h.logger.Error("failed to list regions", "provider", providerType, "error", err)
		h.writeError(w, http.StatusBadGateway, "failed to list regions", "provider_error")
		return
	}

	resp := ListRegionsResponse{
		Provider: string(providerType),
		Regions:  make([]RegionResponse, 0, len(regions)),
	}
	for _, reg := range regions {
		resp.Regions = append(resp.Regions, RegionResponse{
			ID:        reg.ID,
			Name:      reg.Name,
			Available: reg.Available,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListSizes(w http.ResponseWriter, r *http.Request) {
	providerType := domain.ProviderType(chi.URLParam(r, "provider"))
	if !providerType.IsValid() {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidProviderType.Error(), "validation_error")
		return
	}

	sizes, err := h.provisioner.Sizes(r.Context(), providerType, r.URL.Query().Get("region"))
	if err != nil {
		if isCredentialMissing(err) {
			h.writeError(w, http.StatusServiceUnavailable, err.Error(), "provider_not_configured")
			return
		}
		h.logger.Error("failed to list sizes", "provider", providerType, "error", err)
		h.writeError(w, http.StatusBadGateway, "failed to list sizes", "provider_error")
		return
	}

	// ?gpu=true narrows to GPU sizes, ?gpu=false to general purpose.
	if gpuParam := r.URL.Query().Get("gpu"); gpuParam != "" {
		want, err := strconv.ParseBool(gpuParam)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "gpu must be true or false", "validation_error")
			return
		}
		filtered := sizes[:0]
		for _, s := range sizes {
			if s.GPU == want {
				filtered = append(filtered, s)
			}
		}
		sizes = filtered
	}

	resp := ListSizesResponse{
		Provider: string(providerType),
		Sizes:    make([]SizeResponse, 0, len(sizes)),
	}
	for _, s := range sizes {
		resp.Sizes = append(resp.Sizes, SizeResponse{
			ID:          s.ID,
			Name:        s.Name,
			CPUCores:    s.CPUCores,
			MemoryMB:    s.MemoryMB,
			DiskGB:      s.DiskGB,
			PriceHourly: s.PriceHourly,
			GPU:         s.GPU,
			GPUName:     s.GPUName,
		})
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// connectionFromRequest builds the dialable target with its single-use
// credential capsule.
func connectionFromRequest(req TargetRequest) (domain.ConnectionConfig, error) {
	port := req.Port
	if port == 0 {
		port = domain.DefaultSSHPort
	}

	secret, err := domain.NewSecret(domain.AuthKind(req.Auth.Kind), []byte(req.Auth.Secret))
	if err != nil {
		return domain.ConnectionConfig{}, err
	}

	return domain.ConnectionConfig{
		Host:   req.Host,
		Port:   port,
		User:   req.User,
		Secret: secret,
	}, nil
}

func recordToResponse(rec *store.DeploymentRecord) DeploymentResponse {
	return DeploymentResponse{
		ID:          rec.ID,
		Service:     rec.Service,
		Host:        rec.Host,
		Port:        rec.Port,
		URL:         rec.URL,
		ContainerID: rec.ContainerID,
		Accelerator: rec.Accelerator,
		ImageRef:    rec.ImageRef,
		Status:      string(rec.Status),
		Error:       rec.Error,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func reportToResponse(report deploy.TestReport) TestTargetResponse {
	resp := TestTargetResponse{
		Profile: ProfileResponse{
			Arch:          report.Profile.Arch,
			OS:            report.Profile.OSID,
			DockerPresent: report.Profile.DockerPresent,
			DockerVersion: report.Profile.DockerVersion,
			Accelerator:   string(report.Profile.Accelerator),
			GPUName:       report.Profile.GPUName,
			CUDAVersion:   report.Profile.CUDAVersion,
			ROCmVersion:   report.Profile.ROCmVersion,
			Reason:        report.Profile.Reason,
		},
		Services: make([]ServiceStatusResponse, 0, len(report.Services)),
	}
	for _, svc := range report.Services {
		resp.Services = append(resp.Services, ServiceStatusResponse{
			Service:   svc.Service,
			Container: svc.Container,
			Image:     svc.Image,
			Status:    svc.Status,
		})
	}
	return resp
}

func targetToResponse(t *domain.ProvisionedTarget) ProvisionTargetResponse {
	return ProvisionTargetResponse{
		ID:            t.ID,
		Provider:      string(t.Provider),
		InstanceID:    t.InstanceID,
		Name:          t.Name,
		Region:        t.Region,
		Size:          t.Size,
		PublicIP:      t.PublicIP,
		User:          t.User,
		PrivateKeyPEM: string(t.PrivateKeyPEM),
		GPU:           t.GPU,
		CreatedAt:     t.CreatedAt,
	}
}

// statusForError maps a classified deployment failure onto an HTTP status
// and error code. The error kind doubles as the code.
func statusForError(err error) (int, string, string) {
	var derr *deploy.DeployError
	if errors.As(err, &derr) {
		switch derr.Kind {
		case domain.ErrKindConnection:
			return http.StatusBadGateway, string(derr.Kind), derr.Message
		case domain.ErrKindTimeout:
			return http.StatusGatewayTimeout, string(derr.Kind), derr.Message
		default:
			return http.StatusBadGateway, string(derr.Kind), derr.Message
		}
	}
	return http.StatusInternalServerError, "internal_error", err.Error()
}

// isNotFound checks if an error is a not found error.
func isNotFound(err error) bool {
	var storeErr *store.StoreError
	if errors.As(err, &storeErr) {
		return errors.Is(storeErr.Unwrap(), store.ErrNotFound)
	}
	return false
}

// isProvisionValidation reports whether the provisioning failure was the
// caller's request rather than the provider.
func isProvisionValidation(err error) bool {
	for _, sentinel := range []error{
		domain.ErrInvalidProviderType,
		domain.ErrProvisionNameRequired,
		domain.ErrProvisionNameTooLong,
		domain.ErrProvisionRegionRequired,
		coreprovider.ErrSizeUnknown,
		coreprovider.ErrSizeNotGPU,
		coreprovider.ErrGPUNotOffered,
		coreprovider.ErrUnknownProvider,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// isCredentialMissing reports whether this server has no credentials for
// the requested provider.
func isCredentialMissing(err error) bool {
	for _, sentinel := range []error{
		coreprovider.ErrAWSAccessKeyRequired,
		coreprovider.ErrAWSSecretKeyRequired,
		coreprovider.ErrDOTokenRequired,
		coreprovider.ErrHetznerTokenRequired,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
