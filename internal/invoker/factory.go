package invoker

import (
	"fmt"

	"attrix/internal/config"
	"attrix/internal/port"
)

// ProviderFactory creates a ModelInvoker from a provider config.
type ProviderFactory func(cfg *config.ProviderConfig) (port.ModelInvoker, error)

// registry of provider factories, populated by init() in each provider
// package or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers an invoker factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// New creates a ModelInvoker from a provider config using the registered factory.
func New(cfg *config.ProviderConfig) (port.ModelInvoker, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown model provider: %s", cfg.Provider)
	}
	return factory(cfg)
}
