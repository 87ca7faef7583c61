package provider

import (
	"fmt"
	"log/slog"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
	coreprovider "github.com/dharuna457/ClaraVerse/internal/core/provider"
)

// NewProvider creates a cloud provider client from the configured
// credentials.
func NewProvider(providerType domain.ProviderType, creds coreprovider.Credentials, logger *slog.Logger) (Provider, error) {
	if err := creds.Validate(providerType); err != nil {
		return nil, fmt.Errorf("provider %s: %w", providerType, err)
	}

	switch providerType {
	case domain.ProviderAWS:
		return NewAWSProvider(creds.AWSAccessKeyID, creds.AWSSecretAccessKey, logger), nil
	case domain.ProviderDigitalOcean:
		return NewDigitalOceanProvider(creds.DOToken, logger), nil
	case domain.ProviderHetzner:
		return NewHetznerProvider(creds.HetznerToken, logger), nil
	default:
		return nil, fmt.Errorf("%w: %s", coreprovider.ErrUnknownProvider, providerType)
	}
}
