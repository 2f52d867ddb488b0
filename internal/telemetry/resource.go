package telemetry

import (
	"os"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ServiceNamespace groups every storefront binary under one namespace.
const ServiceNamespace = "storefront"

// NewResource describes one storefront process. The deployment environment
// comes from STOREFRONT_ENV and defaults to "development"; the instance id is
// the host name, or a random id when it is unavailable.
func NewResource(serviceName, serviceVersion string) *resource.Resource {
	env := os.Getenv("STOREFRONT_ENV")
	if env == "" {
		env = "development"
	}
	instance, err := os.Hostname()
	if err != nil || instance == "" {
		instance = uuid.NewString()
	}

	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNamespace(ServiceNamespace),
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
		semconv.ServiceInstanceID(instance),
		semconv.DeploymentEnvironment(env),
	)
}
