package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// GetInstanceID returns the ID of the current instance.
// In order, it uses:
//   - The replica name on Azure Container Apps
//   - The value of "service.instance.id" in the OTEL_RESOURCE_ATTRIBUTES env var
//   - A random ID
func GetInstanceID() (string, error) {
	// Azure Container Apps
	id := os.Getenv("CONTAINER_APP_REPLICA_NAME")
	if id != "" {
		return id, nil
	}

	// OpenTelemetry resource attributes
	// Invalid values are ignored, since the OTel SDK will ignore them too
	id = instanceIDFromOtelAttributes(os.Getenv("OTEL_RESOURCE_ATTRIBUTES"))
	if id != "" {
		return id, nil
	}

	// Fallback to a random ID
	b := make([]byte, 7)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random instance ID: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func instanceIDFromOtelAttributes(attrs string) string {
	for pair := range strings.SplitSeq(attrs, ",") {
		key, val, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) != "service.instance.id" {
			continue
		}

		val, err := url.PathUnescape(strings.TrimSpace(val))
		if err != nil {
			return ""
		}
		return val
	}

	return ""
}
