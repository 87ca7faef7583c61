package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Provisioning Errors
// =============================================================================

var (
	ErrInvalidProviderType     = errors.New("invalid provider type: must be aws, digitalocean, or hetzner")
	ErrProvisionNameRequired   = errors.New("target name is required")
	ErrProvisionNameTooLong    = errors.New("target name must be at most 63 characters")
	ErrProvisionRegionRequired = errors.New("region is required")
)

// =============================================================================
// Provider Types
// =============================================================================

// ProviderType represents a cloud infrastructure provider.
type ProviderType string

const (
	ProviderAWS          ProviderType = "aws"
	ProviderDigitalOcean ProviderType = "digitalocean"
	ProviderHetzner      ProviderType = "hetzner"
)

// IsValid checks if the provider type is supported.
func (p ProviderType) IsValid() bool {
	switch p {
	case ProviderAWS, ProviderDigitalOcean, ProviderHetzner:
		return true
	default:
		return false
	}
}

// DisplayName returns a human-readable name for the provider.
func (p ProviderType) DisplayName() string {
	switch p {
	case ProviderAWS:
		return "AWS"
	case ProviderDigitalOcean:
		return "DigitalOcean"
	case ProviderHetzner:
		return "Hetzner"
	default:
		return string(p)
	}
}

// =============================================================================
// Provision Request
// =============================================================================

// ProvisionRequest asks a cloud provider for a fresh deployment target.
// Size may be empty, in which case the provider's default size for the
// requested class (GPU or general purpose) is used.
type ProvisionRequest struct {
	Provider ProviderType `json:"provider"`
	Name     string       `json:"name"`
	Region   string       `json:"region"`
	Size     string       `json:"size,omitempty"`
	GPU      bool         `json:"gpu,omitempty"`
}

// Validate checks the provision request.
func (r ProvisionRequest) Validate() error {
	if !r.Provider.IsValid() {
		return ErrInvalidProviderType
	}
	if r.Name == "" {
		return ErrProvisionNameRequired
	}
	if len(r.Name) > 63 {
		return ErrProvisionNameTooLong
	}
	if r.Region == "" {
		return ErrProvisionRegionRequired
	}
	return nil
}

// =============================================================================
// Provisioned Target
// =============================================================================

// ProvisionedTarget is a freshly created cloud machine ready to be used as
// a deployment target. The private key is generated per target, handed to
// the caller exactly once, and never persisted.
type ProvisionedTarget struct {
	ID            string       `json:"id"`
	Provider      ProviderType `json:"provider"`
	InstanceID    string       `json:"instance_id"`
	Name          string       `json:"name"`
	Region        string       `json:"region"`
	Size          string       `json:"size"`
	PublicIP      string       `json:"public_ip"`
	User          string       `json:"user"`
	PrivateKeyPEM []byte       `json:"private_key_pem,omitempty"`
	GPU           bool         `json:"gpu"`
	CreatedAt     time.Time    `json:"created_at"`
}

// GenerateTargetID generates a new target ID with "tgt_" prefix.
func GenerateTargetID() string {
	return "tgt_" + uuid.New().String()[:8]
}

// ConnectionConfig binds the target and its one-time key into a dialable
// deployment target.
func (t ProvisionedTarget) ConnectionConfig() (ConnectionConfig, error) {
	secret, err := NewSecret(AuthPrivateKey, t.PrivateKeyPEM)
	if err != nil {
		return ConnectionConfig{}, err
	}
	return ConnectionConfig{
		Host:   t.PublicIP,
		Port:   DefaultSSHPort,
		User:   t.User,
		Secret: secret,
	}, nil
}
