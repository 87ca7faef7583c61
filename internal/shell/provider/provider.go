// Package provider implements cloud infrastructure provider clients.
// This is part of the Imperative Shell - handles I/O with cloud APIs.
package provider

import (
	"context"

	coreprovider "github.com/dharuna457/ClaraVerse/internal/core/provider"
)

// ProvisionRequest contains parameters for creating a cloud instance.
type ProvisionRequest struct {
	InstanceName string
	Region       string
	Size         string
	SSHPublicKey string // Public key to install on the instance

	// IngressPorts are the TCP ports that must be reachable from outside.
	// Only providers with default-deny networking (AWS) act on this.
	IngressPorts []int
}

// ProvisionResult contains the result of creating a cloud instance.
type ProvisionResult struct {
	ProviderInstanceID string
	PublicIP           string
}

// DestroyRequest contains parameters for destroying a cloud instance.
type DestroyRequest struct {
	ProviderInstanceID string
	InstanceName       string // derives SSH key name: "clara-{InstanceName}"
	Region             string // AWS needs this to target the correct region
}

// Provider defines the interface for cloud infrastructure providers.
// Instances come up with a bare OS; the deployment orchestrator installs
// the container runtime over SSH, the same as on bring-your-own targets.
type Provider interface {
	// CreateInstance provisions a new cloud instance and blocks until it
	// has a public IP.
	CreateInstance(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error)

	// DestroyInstance terminates a cloud instance and cleans up associated
	// resources. Destroying an already-deleted instance is not an error.
	DestroyInstance(ctx context.Context, req DestroyRequest) error

	// ListRegions returns available regions (live from API).
	ListRegions(ctx context.Context) ([]coreprovider.Region, error)

	// ListSizes returns available instance sizes for a region (live from API).
	ListSizes(ctx context.Context, region string) ([]coreprovider.InstanceSize, error)

	// DefaultUser is the SSH login user on freshly created instances.
	DefaultUser() string
}
