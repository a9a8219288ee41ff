// Package adapter provides implementations for external AI provider integrations.
// It uses the Adapter pattern to put a provider's HTTP API behind the host's chat schema.
package adapter

import (
	"context"
)

// Pipe is the capability a host needs from a model provider.
type Pipe interface {
	// Name returns the provider's identifier string.
	Name() string

	// ListModels enumerates remote models. Failures yield an empty list, never an error.
	ListModels(ctx context.Context) []Model

	// Pipe translates a host chat request, sends it and returns the reply.
	// Failures are reported inside the Reply; Pipe never panics past the adapter boundary.
	Pipe(ctx context.Context, req ChatRequest) Reply
}
