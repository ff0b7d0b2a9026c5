package plugin

import (
	"net/http"
	"sort"
	"sync"

	"github.com/ashgrove/mimic/pkg/config"
)

// Plugin supplies the resources one configuration document contributes
// to the matcher, plus an optional per-request hook for plugin-specific
// behaviour (contract validation, base-URL rewriting) that runs before
// the matched resource's response is built. pathParams are the values
// the matcher extracted from the request path for resource.
type Plugin interface {
	Name() string
	Routes() []config.ResourceConfig
	OnRequest(r *http.Request, resource *config.ResourceConfig, pathParams map[string]string) error
}

// Factory builds a Plugin from one parsed configuration document.
type Factory func(doc config.PluginDocument) (Plugin, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds factory under name, overwriting any existing
// registration. Called from each plugin subpackage's init.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	factory, ok := registry[name]
	return factory, ok
}

// Names returns every registered plugin name, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
