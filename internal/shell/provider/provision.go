package provider

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
	"github.com/dharuna457/ClaraVerse/internal/core/plan"
	coreprovider "github.com/dharuna457/ClaraVerse/internal/core/provider"
)

// Provisioner turns a provision request into a ready deployment target:
// resolve the instance size, mint a one-time SSH key pair, create the
// instance, and hand back the connection material exactly once.
type Provisioner struct {
	creds   coreprovider.Credentials
	catalog *plan.Catalog
	logger  *slog.Logger

	// newProvider is swapped out in tests.
	newProvider func(domain.ProviderType) (Provider, error)
}

// NewProvisioner creates a provisioner over the configured credentials.
func NewProvisioner(creds coreprovider.Credentials, catalog *plan.Catalog, logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provisioner{
		creds:   creds,
		catalog: catalog,
		logger:  logger.With("component", "provisioner"),
	}
	p.newProvider = func(t domain.ProviderType) (Provider, error) {
		return NewProvider(t, p.creds, p.logger)
	}
	return p
}

// NewProvisionerWithFactory wires the provisioner with a custom provider
// factory. Use this to substitute the cloud clients.
func NewProvisionerWithFactory(creds coreprovider.Credentials, catalog *plan.Catalog, logger *slog.Logger, factory func(domain.ProviderType) (Provider, error)) *Provisioner {
	p := NewProvisioner(creds, catalog, logger)
	if factory != nil {
		p.newProvider = factory
	}
	return p
}

// Providers lists the provider types the configured credentials can drive.
func (p *Provisioner) Providers() []domain.ProviderType {
	return p.creds.ConfiguredProviders()
}

// Provision creates a cloud instance and returns it as a deployment
// target. The returned private key is not retained anywhere else.
func (p *Provisioner) Provision(ctx context.Context, req domain.ProvisionRequest) (*domain.ProvisionedTarget, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	size, err := coreprovider.ResolveSize(req.Provider, req.Size, req.GPU)
	if err != nil {
		return nil, err
	}

	cloud, err := p.newProvider(req.Provider)
	if err != nil {
		return nil, err
	}

	pubKey, privKeyPEM, err := GenerateSSHKeyPair()
	if err != nil {
		return nil, err
	}

	p.logger.Info("provisioning target",
		"provider", req.Provider,
		"name", req.Name,
		"region", req.Region,
		"size", size.ID,
		"gpu", size.GPU,
	)

	result, err := cloud.CreateInstance(ctx, ProvisionRequest{
		InstanceName: req.Name,
		Region:       req.Region,
		Size:         size.ID,
		SSHPublicKey: string(pubKey),
		IngressPorts: p.ingressPorts(),
	})
	if err != nil {
		return nil, err
	}

	target := &domain.ProvisionedTarget{
		ID:            domain.GenerateTargetID(),
		Provider:      req.Provider,
		InstanceID:    result.ProviderInstanceID,
		Name:          req.Name,
		Region:        req.Region,
		Size:          size.ID,
		PublicIP:      result.PublicIP,
		User:          cloud.DefaultUser(),
		PrivateKeyPEM: privKeyPEM,
		GPU:           size.GPU,
		CreatedAt:     time.Now().UTC(),
	}

	p.logger.Info("target provisioned",
		"target_id", target.ID,
		"provider", target.Provider,
		"instance_id", target.InstanceID,
		"public_ip", target.PublicIP,
	)
	return target, nil
}

// Destroy tears down a provisioned instance and its key material.
func (p *Provisioner) Destroy(ctx context.Context, providerType domain.ProviderType, req DestroyRequest) error {
	cloud, err := p.newProvider(providerType)
	if err != nil {
		return err
	}
	return cloud.DestroyInstance(ctx, req)
}

// Regions lists a provider's regions, live when the API answers.
func (p *Provisioner) Regions(ctx context.Context, providerType domain.ProviderType) ([]coreprovider.Region, error) {
	cloud, err := p.newProvider(providerType)
	if err != nil {
		return nil, err
	}
	return cloud.ListRegions(ctx)
}

// Sizes lists a provider's instance sizes for a region, live when the API
// answers.
func (p *Provisioner) Sizes(ctx context.Context, providerType domain.ProviderType, region string) ([]coreprovider.InstanceSize, error) {
	cloud, err := p.newProvider(providerType)
	if err != nil {
		return nil, err
	}
	return cloud.ListSizes(ctx, region)
}

// ingressPorts collects every host port the catalog can publish, so
// default-deny providers open them up front.
func (p *Provisioner) ingressPorts() []int {
	if p.catalog == nil {
		return nil
	}
	seen := make(map[int]bool)
	var ports []int
	for _, svc := range p.catalog.Services() {
		if svc.Port > 0 && !seen[svc.Port] {
			seen[svc.Port] = true
			ports = append(ports, svc.Port)
		}
	}
	sort.Ints(ports)
	return ports
}
