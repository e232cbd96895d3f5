// Package toolkit holds the built-in tool adapters. Each adapter is a thin
// wrapper around one external service or local computation, declaring its
// parameter schema, cache policy, and rate-limit scope; the pipeline owns
// everything else.
package toolkit

import (
	"github.com/fmogensen/agentswarm-tools-sub000/internal/log"
	"github.com/fmogensen/agentswarm-tools-sub000/internal/tools"
)

// RegisterAll registers every built-in adapter.
func RegisterAll(registry *tools.Registry, logger log.Logger) error {
	adapters := []tools.Tool{
		NewCurrentTime(),
		NewExchangeRates(nil, logger),
	}
	for _, a := range adapters {
		if err := registry.Register(a); err != nil {
			return err
		}
	}
	return nil
}
