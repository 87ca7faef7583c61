package api

import (
	"net/http"

	"github.com/dharuna457/ClaraVerse/internal/shell/api/openapi"
)

// newSpec registers every JSON operation with the reflective generator.
// The WebSocket stream and the Prometheus endpoint are not JSON operations
// and stay out of the document.
func newSpec() *openapi.Generator {
	g := openapi.NewGenerator(
		openapi.WithTitle("Clara Deployment API"),
		openapi.WithVersion("1.0.0"),
		openapi.WithDescription("Remote deployment orchestrator for Clara AI backends"),
	)

	g.RegisterEndpoint(openapi.Endpoint{
		Method: http.MethodGet, Path: "/health",
		OperationID: "getHealth", Summary: "Liveness check", Tag: "System",
		Response: HealthResponse{},
	})
	g.RegisterEndpoint(openapi.Endpoint{
		Method: http.MethodGet, Path: "/ready",
		OperationID: "getReady", Summary: "Readiness check", Tag: "System",
		Response: ReadyResponse{},
	})

	g.RegisterEndpoint(openapi.Endpoint{
		Method: http.MethodPost, Path: "/api/targets/test",
		OperationID: "testTarget", Summary: "Test a deployment target over SSH", Tag: "Targets",
		Request: TargetRequest{}, Response: TestTargetResponse{},
	})
	g.RegisterEndpoint(openapi.Endpoint{
		Method: http.MethodPost, Path: "/api/targets/provision",
		OperationID: "provisionTarget", Summary: "Provision a cloud VM as a deployment target", Tag: "Targets",
		Request: ProvisionTargetRequest{}, Response: ProvisionTargetResponse{},
		Status: http.StatusCreated,
	})
	g.RegisterEndpoint(openapi.Endpoint{
		Method: http.MethodPost, Path: "/api/targets/destroy",
		OperationID: "destroyTarget", Summary: "Destroy a provisioned deployment target", Tag: "Targets",
		Request: DestroyTargetRequest{}, Response: DestroyTargetResponse{},
	})

	g.RegisterEndpoint(openapi.Endpoint{
		Method: http.MethodPost, Path: "/api/deployments",
		OperationID: "createDeployment", Summary: "Start a deployment", Tag: "Deployments",
		Request: CreateDeploymentRequest{}, Response: DeploymentResponse{},
		Status: http.StatusAccepted,
	})
	g.RegisterEndpoint(openapi.Endpoint{
		Method: http.MethodGet, Path: "/api/deployments",
		OperationID: "listDeployments", Summary: "List deployments", Tag: "Deployments",
		Response: ListDeploymentsResponse{},
	})
	g.RegisterEndpoint(openapi.Endpoint{
		Method: http.MethodGet, Path: "/api/deployments/{id}",
		OperationID: "getDeployment", Summary: "Get a deployment", Tag: "Deployments",
		Response: DeploymentResponse{},
	})
	g.RegisterEndpoint(openapi.Endpoint{
		Method: http.MethodDelete, Path: "/api/deployments/{id}",
		OperationID: "deleteDeployment", Summary: "Delete a settled deployment record", Tag: "Deployments",
		Status: http.StatusNoContent,
	})

	g.RegisterEndpoint(openapi.Endpoint{
		Method: http.MethodGet, Path: "/api/services",
		OperationID: "listServices", Summary: "List deployable services", Tag: "Services",
		Response: ListServicesResponse{},
	})
	g.RegisterEndpoint(openapi.Endpoint{
		Method: http.MethodPost, Path: "/api/services/{name}/stop",
		OperationID: "stopService", Summary: "Stop a service on a target", Tag: "Services",
		Request: StopServiceRequest{}, Response: StopServiceResponse{},
	})

	g.RegisterEndpoint(openapi.Endpoint{
		Method: http.MethodGet, Path: "/api/providers",
		OperationID: "listProviders", Summary: "List cloud providers", Tag: "Providers",
		Response: ListProvidersResponse{},
	})
	g.RegisterEndpoint(openapi.Endpoint{
		Method: http.MethodGet, Path: "/api/providers/{provider}/regions",
		OperationID: "listProviderRegions", Summary: "List a provider's regions", Tag: "Providers",
		Response: ListRegionsResponse{},
	})
	g.RegisterEndpoint(openapi.Endpoint{
		Method: http.MethodGet, Path: "/api/providers/{provider}/sizes",
		OperationID: "listProviderSizes", Summary: "List a provider's instance sizes", Tag: "Providers",
		Response: ListSizesResponse{},
	})

	return g
}
