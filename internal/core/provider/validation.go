package provider

import (
	"errors"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
)

// =============================================================================
// Credential Validation
// =============================================================================

var (
	ErrAWSAccessKeyRequired = errors.New("AWS access key ID is required")
	ErrAWSSecretKeyRequired = errors.New("AWS secret access key is required")
	ErrDOTokenRequired      = errors.New("DigitalOcean API token is required")
	ErrHetznerTokenRequired = errors.New("Hetzner API token is required")
	ErrUnknownProvider      = errors.New("unknown provider type")
)

// Credentials carries the API credentials for every configured provider.
// Empty fields simply mean that provider is not configured.
type Credentials struct {
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	DOToken            string
	HetznerToken       string
}

// Configured reports whether the credentials for one provider are
// complete enough to construct a client.
func (c Credentials) Configured(provider domain.ProviderType) bool {
	return c.Validate(provider) == nil
}

// Validate checks that the fields for one provider are present.
func (c Credentials) Validate(provider domain.ProviderType) error {
	switch provider {
	case domain.ProviderAWS:
		if c.AWSAccessKeyID == "" {
			return ErrAWSAccessKeyRequired
		}
		if c.AWSSecretAccessKey == "" {
			return ErrAWSSecretKeyRequired
		}
		return nil
	case domain.ProviderDigitalOcean:
		if c.DOToken == "" {
			return ErrDOTokenRequired
		}
		return nil
	case domain.ProviderHetzner:
		if c.HetznerToken == "" {
			return ErrHetznerTokenRequired
		}
		return nil
	default:
		return ErrUnknownProvider
	}
}

// ConfiguredProviders lists the providers these credentials can drive.
func (c Credentials) ConfiguredProviders() []domain.ProviderType {
	var out []domain.ProviderType
	for _, p := range []domain.ProviderType{domain.ProviderAWS, domain.ProviderDigitalOcean, domain.ProviderHetzner} {
		if c.Configured(p) {
			out = append(out, p)
		}
	}
	return out
}
