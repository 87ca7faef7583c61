// Package provider contains pure catalog and validation logic for the
// cloud providers that can supply deployment targets.
// This is part of the Functional Core - all functions are pure with no I/O.
package provider

import (
	"errors"
	"fmt"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
)

// =============================================================================
// Catalog Types
// =============================================================================

// Region represents a cloud provider region.
type Region struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// InstanceSize represents an instance type/size option. GPU sizes carry
// the accelerator model so callers can surface what they are paying for.
type InstanceSize struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	CPUCores    float64 `json:"cpu_cores"`
	MemoryMB    int64   `json:"memory_mb"`
	DiskGB      int     `json:"disk_gb"`
	PriceHourly float64 `json:"price_hourly"`
	GPU         bool    `json:"gpu"`
	GPUName     string  `json:"gpu_name,omitempty"`
}

var (
	ErrSizeUnknown   = errors.New("size is not in the provider catalog")
	ErrSizeNotGPU    = errors.New("size has no GPU")
	ErrGPUNotOffered = errors.New("provider has no GPU instances")
)

// =============================================================================
// AWS EC2 Catalog
// =============================================================================

// AWSRegions returns the commonly used AWS regions.
func AWSRegions() []Region {
	return []Region{
		{ID: "us-east-1", Name: "US East (N. Virginia)", Available: true},
		{ID: "us-east-2", Name: "US East (Ohio)", Available: true},
		{ID: "us-west-2", Name: "US West (Oregon)", Available: true},
		{ID: "eu-west-1", Name: "EU (Ireland)", Available: true},
		{ID: "eu-central-1", Name: "EU (Frankfurt)", Available: true},
		{ID: "ap-southeast-1", Name: "Asia Pacific (Singapore)", Available: true},
		{ID: "ap-northeast-1", Name: "Asia Pacific (Tokyo)", Available: true},
	}
}

// AWSSizes returns the EC2 instance types offered as deployment targets.
func AWSSizes() []InstanceSize {
	return []InstanceSize{
		{ID: "t3.medium", Name: "t3.medium (2 vCPU, 4 GB)", CPUCores: 2, MemoryMB: 4096, DiskGB: 40, PriceHourly: 0.0416},
		{ID: "t3.large", Name: "t3.large (2 vCPU, 8 GB)", CPUCores: 2, MemoryMB: 8192, DiskGB: 80, PriceHourly: 0.0832},
		{ID: "t3.xlarge", Name: "t3.xlarge (4 vCPU, 16 GB)", CPUCores: 4, MemoryMB: 16384, DiskGB: 160, PriceHourly: 0.1664},
		{ID: "c6i.2xlarge", Name: "c6i.2xlarge (8 vCPU, 16 GB)", CPUCores: 8, MemoryMB: 16384, DiskGB: 160, PriceHourly: 0.34},
		{ID: "g4dn.xlarge", Name: "g4dn.xlarge (4 vCPU, 16 GB, T4)", CPUCores: 4, MemoryMB: 16384, DiskGB: 125, PriceHourly: 0.526, GPU: true, GPUName: "NVIDIA T4"},
		{ID: "g5.xlarge", Name: "g5.xlarge (4 vCPU, 16 GB, A10G)", CPUCores: 4, MemoryMB: 16384, DiskGB: 250, PriceHourly: 1.006, GPU: true, GPUName: "NVIDIA A10G"},
		{ID: "g6.xlarge", Name: "g6.xlarge (4 vCPU, 16 GB, L4)", CPUCores: 4, MemoryMB: 16384, DiskGB: 250, PriceHourly: 0.805, GPU: true, GPUName: "NVIDIA L4"},
	}
}

// =============================================================================
// DigitalOcean Catalog
// =============================================================================

// DigitalOceanRegions returns common DO regions.
func DigitalOceanRegions() []Region {
	return []Region{
		{ID: "nyc1", Name: "New York 1", Available: true},
		{ID: "nyc3", Name: "New York 3", Available: true},
		{ID: "sfo3", Name: "San Francisco 3", Available: true},
		{ID: "ams3", Name: "Amsterdam 3", Available: true},
		{ID: "fra1", Name: "Frankfurt 1", Available: true},
		{ID: "sgp1", Name: "Singapore 1", Available: true},
		{ID: "blr1", Name: "Bangalore 1", Available: true},
		{ID: "tor1", Name: "Toronto 1", Available: true},
	}
}

// DigitalOceanSizes returns the droplet sizes offered as deployment
// targets. GPU droplets are only placed in regions that carry them.
func DigitalOceanSizes() []InstanceSize {
	return []InstanceSize{
		{ID: "s-2vcpu-4gb", Name: "Basic (2 vCPU, 4 GB)", CPUCores: 2, MemoryMB: 4096, DiskGB: 80, PriceHourly: 0.03571},
		{ID: "s-4vcpu-8gb", Name: "Basic (4 vCPU, 8 GB)", CPUCores: 4, MemoryMB: 8192, DiskGB: 160, PriceHourly: 0.07143},
		{ID: "s-8vcpu-16gb", Name: "Basic (8 vCPU, 16 GB)", CPUCores: 8, MemoryMB: 16384, DiskGB: 320, PriceHourly: 0.14286},
		{ID: "gpu-4000adax1-20gb", Name: "GPU (8 vCPU, 32 GB, RTX 4000 Ada)", CPUCores: 8, MemoryMB: 32768, DiskGB: 500, PriceHourly: 0.76, GPU: true, GPUName: "NVIDIA RTX 4000 Ada"},
		{ID: "gpu-6000adax1-48gb", Name: "GPU (8 vCPU, 64 GB, RTX 6000 Ada)", CPUCores: 8, MemoryMB: 65536, DiskGB: 500, PriceHourly: 1.57, GPU: true, GPUName: "NVIDIA RTX 6000 Ada"},
		{ID: "gpu-h100x1-80gb", Name: "GPU (20 vCPU, 240 GB, H100)", CPUCores: 20, MemoryMB: 245760, DiskGB: 720, PriceHourly: 3.39, GPU: true, GPUName: "NVIDIA H100"},
	}
}

// =============================================================================
// Hetzner Catalog
// =============================================================================

// HetznerRegions returns common Hetzner Cloud regions.
func HetznerRegions() []Region {
	return []Region{
		{ID: "nbg1", Name: "Nuremberg", Available: true},
		{ID: "fsn1", Name: "Falkenstein", Available: true},
		{ID: "hel1", Name: "Helsinki", Available: true},
		{ID: "ash", Name: "Ashburn, VA", Available: true},
		{ID: "hil", Name: "Hillsboro, OR", Available: true},
	}
}

// HetznerSizes returns common Hetzner server types. Hetzner Cloud has no
// GPU line, so provisioning a GPU target there is rejected up front.
func HetznerSizes() []InstanceSize {
	return []InstanceSize{
		{ID: "cx22", Name: "CX22 (2 vCPU, 4 GB)", CPUCores: 2, MemoryMB: 4096, DiskGB: 40, PriceHourly: 0.0065},
		{ID: "cx32", Name: "CX32 (4 vCPU, 8 GB)", CPUCores: 4, MemoryMB: 8192, DiskGB: 80, PriceHourly: 0.0119},
		{ID: "cx42", Name: "CX42 (8 vCPU, 16 GB)", CPUCores: 8, MemoryMB: 16384, DiskGB: 160, PriceHourly: 0.0229},
		{ID: "cx52", Name: "CX52 (16 vCPU, 32 GB)", CPUCores: 16, MemoryMB: 32768, DiskGB: 320, PriceHourly: 0.0449},
	}
}

// =============================================================================
// Catalog Lookup
// =============================================================================

// StaticRegions returns the static region catalog for a provider.
func StaticRegions(provider domain.ProviderType) []Region {
	switch provider {
	case domain.ProviderAWS:
		return AWSRegions()
	case domain.ProviderDigitalOcean:
		return DigitalOceanRegions()
	case domain.ProviderHetzner:
		return HetznerRegions()
	default:
		return nil
	}
}

// StaticSizes returns the static size catalog for a provider.
func StaticSizes(provider domain.ProviderType) []InstanceSize {
	switch provider {
	case domain.ProviderAWS:
		return AWSSizes()
	case domain.ProviderDigitalOcean:
		return DigitalOceanSizes()
	case domain.ProviderHetzner:
		return HetznerSizes()
	default:
		return nil
	}
}

// SizesFor filters the catalog to one class: GPU sizes or general
// purpose sizes.
func SizesFor(provider domain.ProviderType, gpu bool) []InstanceSize {
	var out []InstanceSize
	for _, s := range StaticSizes(provider) {
		if s.GPU == gpu {
			out = append(out, s)
		}
	}
	return out
}

// SupportsGPU reports whether the provider offers any GPU size.
func SupportsGPU(provider domain.ProviderType) bool {
	return len(SizesFor(provider, true)) > 0
}

// LookupSize returns the InstanceSize for a given provider and size ID,
// or nil if not found.
func LookupSize(provider domain.ProviderType, sizeID string) *InstanceSize {
	for _, s := range StaticSizes(provider) {
		if s.ID == sizeID {
			return &s
		}
	}
	return nil
}

// ResolveSize picks the instance size for a provision request: an
// explicit size must exist in the catalog and match the requested class;
// an empty size falls back to the cheapest size of the class.
func ResolveSize(provider domain.ProviderType, sizeID string, gpu bool) (InstanceSize, error) {
	if sizeID != "" {
		s := LookupSize(provider, sizeID)
		if s == nil {
			return InstanceSize{}, fmt.Errorf("%w: %s %q", ErrSizeUnknown, provider, sizeID)
		}
		if gpu && !s.GPU {
			return InstanceSize{}, fmt.Errorf("%w: %s %q", ErrSizeNotGPU, provider, sizeID)
		}
		return *s, nil
	}

	candidates := SizesFor(provider, gpu)
	if len(candidates) == 0 {
		if gpu {
			return InstanceSize{}, fmt.Errorf("%w: %s", ErrGPUNotOffered, provider)
		}
		return InstanceSize{}, fmt.Errorf("%w: %s", ErrSizeUnknown, provider)
	}

	cheapest := candidates[0]
	for _, s := range candidates[1:] {
		if s.PriceHourly < cheapest.PriceHourly {
			cheapest = s
		}
	}
	return cheapest, nil
}
