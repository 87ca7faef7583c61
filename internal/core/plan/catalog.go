// Package plan selects container images and composes the remote docker
// command lines for one deployment.
// This is part of the Functional Core - all functions are pure with no I/O.
package plan

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dharuna457/ClaraVerse/internal/core/domain"
)

// =============================================================================
// Catalog Errors
// =============================================================================

var (
	ErrServiceUnknown      = errors.New("service is not in the catalog")
	ErrServiceNameRequired = errors.New("catalog service name is required")
	ErrServiceImageMissing = errors.New("catalog service image is required")
	ErrServicePortMissing  = errors.New("catalog service port is required")
	ErrServiceTagsMissing  = errors.New("catalog service needs at least one image tag")
)

// =============================================================================
// Service
// =============================================================================

// Service is one catalog entry: everything static about a deployable
// backend. Tags maps accelerator kinds to image tags; kinds without a row
// fall back to the cpu row.
type Service struct {
	Name          string                            `yaml:"name"`
	ContainerName string                            `yaml:"container_name"`
	Image         string                            `yaml:"image"`
	Tags          map[domain.AcceleratorKind]string `yaml:"tags"`
	Port          int                               `yaml:"port"`
	Volume        string                            `yaml:"volume"`
	HealthPath    string                            `yaml:"health_path"`
	Env           map[string]string                 `yaml:"env"`
}

// Validate checks a catalog entry.
func (s Service) Validate() error {
	if s.Name == "" {
		return ErrServiceNameRequired
	}
	if s.Image == "" {
		return ErrServiceImageMissing
	}
	if s.Port == 0 {
		return ErrServicePortMissing
	}
	if err := domain.ValidatePort(s.Port); err != nil {
		return err
	}
	if len(s.Tags) == 0 {
		return ErrServiceTagsMissing
	}
	return nil
}

// ImageRef resolves the full image reference for an accelerator kind.
// Kinds without their own tag row use the cpu row, then "latest".
func (s Service) ImageRef(kind domain.AcceleratorKind) string {
	tag, ok := s.Tags[kind]
	if !ok {
		tag, ok = s.Tags[domain.AcceleratorCPU]
	}
	if !ok || tag == "" {
		tag = "latest"
	}
	return s.Image + ":" + tag
}

// =============================================================================
// Catalog
// =============================================================================

// Catalog is the set of deployable services, looked up by name and by
// container name.
type Catalog struct {
	services map[string]Service
	order    []string
}

// DefaultCatalog returns the compiled-in service set.
func DefaultCatalog() *Catalog {
	c := &Catalog{services: make(map[string]Service)}
	for _, svc := range defaultServices() {
		c.put(svc)
	}
	return c
}

func defaultServices() []Service {
	return []Service{
		{
			Name:          "clara-core",
			ContainerName: "clara_core",
			Image:         "claraverse/clara-core",
			Tags: map[domain.AcceleratorKind]string{
				domain.AcceleratorCPU:   "latest",
				domain.AcceleratorCUDA:  "latest-cuda",
				domain.AcceleratorROCm:  "latest-rocm",
				domain.AcceleratorStrix: "latest-strix",
			},
			Port:       8091,
			Volume:     "clara_data:/app/data",
			HealthPath: "/health",
		},
		{
			Name:          "comfyui",
			ContainerName: "clara_comfyui",
			Image:         "claraverse/clara-comfyui",
			Tags: map[domain.AcceleratorKind]string{
				domain.AcceleratorCPU:  "latest-cpu",
				domain.AcceleratorCUDA: "latest-cuda",
				domain.AcceleratorROCm: "latest-rocm",
				// The APU build rides the ROCm userspace.
				domain.AcceleratorStrix: "latest-rocm",
			},
			Port:       8188,
			Volume:     "clara_comfyui_models:/app/models",
			HealthPath: "/system_stats",
		},
		{
			Name:          "n8n",
			ContainerName: "clara_n8n",
			Image:         "n8nio/n8n",
			Tags: map[domain.AcceleratorKind]string{
				domain.AcceleratorCPU: "latest",
			},
			Port:       5678,
			Volume:     "clara_n8n_data:/home/node/.n8n",
			HealthPath: "/healthz",
		},
	}
}

func (c *Catalog) put(svc Service) {
	if svc.ContainerName == "" {
		svc.ContainerName = "clara_" + strings.ReplaceAll(svc.Name, "-", "_")
	}
	if _, exists := c.services[svc.Name]; !exists {
		c.order = append(c.order, svc.Name)
	}
	c.services[svc.Name] = svc
}

// Lookup finds a service by catalog name.
func (c *Catalog) Lookup(name string) (Service, error) {
	svc, ok := c.services[name]
	if !ok {
		return Service{}, fmt.Errorf("%w: %q", ErrServiceUnknown, name)
	}
	return svc, nil
}

// Services returns all entries in registration order.
func (c *Catalog) Services() []Service {
	out := make([]Service, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.services[name])
	}
	return out
}

// Names returns the catalog names in registration order.
func (c *Catalog) Names() []string {
	return append([]string(nil), c.order...)
}

// MatchContainer maps a remote container name back to a catalog entry.
// Used to enumerate recognized services from docker ps output.
func (c *Catalog) MatchContainer(containerName string) (Service, bool) {
	name := strings.TrimPrefix(containerName, "/")
	for _, svcName := range c.order {
		if c.services[svcName].ContainerName == name {
			return c.services[svcName], true
		}
	}
	return Service{}, false
}

// =============================================================================
// YAML Override
// =============================================================================

// catalogFile is the YAML shape of a catalog override file.
type catalogFile struct {
	Services []Service `yaml:"services"`
}

// ParseCatalogOverride merges a YAML override over the compiled-in
// defaults. Same-named entries replace defaults; new entries are added.
func ParseCatalogOverride(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing catalog override: %w", err)
	}

	c := DefaultCatalog()
	for _, svc := range file.Services {
		if err := svc.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %q: %w", svc.Name, err)
		}
		c.put(svc)
	}
	return c, nil
}
