package api

import "time"

// =============================================================================
// Request Types
// =============================================================================

// AuthRequest carries the credential for one request. The secret is either
// a password or a PEM-encoded private key, depending on kind. It is copied
// into a single-use capsule on receipt and never echoed back.
type AuthRequest struct {
	Kind   string `json:"kind"`
	Secret string `json:"secret"`
}

// TargetRequest identifies a remote deployment target. Port defaults to 22.
type TargetRequest struct {
	Host string      `json:"host"`
	Port int         `json:"port,omitempty"`
	User string      `json:"user"`
	Auth AuthRequest `json:"auth"`
}

// CreateDeploymentRequest is the request body for starting a deployment.
type CreateDeploymentRequest struct {
	Service    string            `json:"service"`
	Target     TargetRequest     `json:"target"`
	Port       int               `json:"port,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
	ExtraPorts []string          `json:"extra_ports,omitempty"`
}

// StopServiceRequest is the request body for stopping a service on a target.
type StopServiceRequest struct {
	Target TargetRequest `json:"target"`
}

// ProvisionTargetRequest is the request body for provisioning a cloud VM.
type ProvisionTargetRequest struct {
	Provider string `json:"provider"`
	Name     string `json:"name"`
	Region   string `json:"region"`
	Size     string `json:"size,omitempty"`
	GPU      bool   `json:"gpu,omitempty"`
}

// DestroyTargetRequest is the request body for destroying a provisioned VM.
type DestroyTargetRequest struct {
	Provider   string `json:"provider"`
	InstanceID string `json:"instance_id"`
	Name       string `json:"name"`
	Region     string `json:"region,omitempty"`
}

// =============================================================================
// Response Types
// =============================================================================

// ProfileResponse is the hardware fingerprint of a target.
type ProfileResponse struct {
	Arch          string `json:"arch"`
	OS            string `json:"os,omitempty"`
	DockerPresent bool   `json:"docker_present"`
	DockerVersion string `json:"docker_version,omitempty"`
	Accelerator   string `json:"accelerator"`
	GPUName       string `json:"gpu_name,omitempty"`
	CUDAVersion   string `json:"cuda_version,omitempty"`
	ROCmVersion   string `json:"rocm_version,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// ServiceStatusResponse is one recognized service found running on a target.
type ServiceStatusResponse struct {
	Service   string `json:"service"`
	Container string `json:"container"`
	Image     string `json:"image"`
	Status    string `json:"status"`
}

// TestTargetResponse is the response for a connection test.
type TestTargetResponse struct {
	Profile  ProfileResponse         `json:"profile"`
	Services []ServiceStatusResponse `json:"services"`
}

// ProvisionTargetResponse is the response for target provisioning. The
// private key appears here exactly once and is never persisted server-side.
type ProvisionTargetResponse struct {
	ID            string    `json:"id"`
	Provider      string    `json:"provider"`
	InstanceID    string    `json:"instance_id"`
	Name          string    `json:"name"`
	Region        string    `json:"region"`
	Size          string    `json:"size"`
	PublicIP      string    `json:"public_ip"`
	User          string    `json:"user"`
	PrivateKeyPEM string    `json:"private_key_pem"`
	GPU           bool      `json:"gpu"`
	CreatedAt     time.Time `json:"created_at"`
}

// DestroyTargetResponse is the response for target destruction.
type DestroyTargetResponse struct {
	InstanceID string `json:"instance_id"`
	Status     string `json:"status"`
}

// DeploymentResponse is the registry view of one deployment.
type DeploymentResponse struct {
	ID          string    `json:"id"`
	Service     string    `json:"service"`
	Host        string    `json:"host"`
	Port        int       `json:"port,omitempty"`
	URL         string    `json:"url,omitempty"`
	ContainerID string    `json:"container_id,omitempty"`
	Accelerator string    `json:"accelerator,omitempty"`
	ImageRef    string    `json:"image_ref,omitempty"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListDeploymentsResponse is the response for listing deployments.
type ListDeploymentsResponse struct {
	Deployments []DeploymentResponse `json:"deployments"`
	Total       int                  `json:"total"`
	Limit       int                  `json:"limit"`
	Offset      int                  `json:"offset"`
}

// StopServiceResponse is the response for stopping a service.
type StopServiceResponse struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}

// CatalogServiceResponse is one deployable service from the catalog.
type CatalogServiceResponse struct {
	Name       string `json:"name"`
	Image      string `json:"image"`
	Port       int    `json:"port"`
	HealthPath string `json:"health_path,omitempty"`
}

// ListServicesResponse is the response for listing the service catalog.
type ListServicesResponse struct {
	Services []CatalogServiceResponse `json:"services"`
}

// ProviderResponse describes one cloud provider and whether this server
// holds credentials for it.
type ProviderResponse struct {
	Provider    string `json:"provider"`
	DisplayName string `json:"display_name"`
	Configured  bool   `json:"configured"`
	GPU         bool   `json:"gpu"`
}

// ListProvidersResponse is the response for listing providers.
type ListProvidersResponse struct {
	Providers []ProviderResponse `json:"providers"`
}

// RegionResponse is one provider region.
type RegionResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// ListRegionsResponse is the response for listing a provider's regions.
type ListRegionsResponse struct {
	Provider string           `json:"provider"`
	Regions  []RegionResponse `json:"regions"`
}

// SizeResponse is one provider instance size.
type SizeResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	CPUCores    float64 `json:"cpu_cores"`
	MemoryMB    int64   `json:"memory_mb"`
	DiskGB      int     `json:"disk_gb"`
	PriceHourly float64 `json:"price_hourly"`
	GPU         bool    `json:"gpu"`
	GPUName     string  `json:"gpu_name,omitempty"`
}

// ListSizesResponse is the response for listing a provider's sizes.
type ListSizesResponse struct {
	Provider string         `json:"provider"`
	Sizes    []SizeResponse `json:"sizes"`
}

// ErrorResponse is the error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
