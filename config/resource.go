package config

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
)

// NewOtelResource returns the OpenTelemetry resource for the app.
// Attributes from the OTEL_RESOURCE_ATTRIBUTES env var and the SDK defaults are included too.
func NewOtelResource(name string, version string, instanceID string) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		attribute.String("service.name", name),
	}
	if version != "" {
		attrs = append(attrs, attribute.String("service.version", version))
	}
	if instanceID != "" {
		attrs = append(attrs, attribute.String("service.instance.id", instanceID))
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attrs...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to merge OpenTelemetry resources: %w", err)
	}

	return res, nil
}
