package endpoints

import (
	"github.com/jackzampolin/pageindex/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	Run RunEndpoint
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	run := cfg.Run
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},

		// Extraction
		&run,

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},
	}
}
