package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ashgrove/mimic/pkg/config"
	"github.com/ashgrove/mimic/pkg/metrics"
	"github.com/ashgrove/mimic/pkg/plugin"
	"github.com/ashgrove/mimic/pkg/response"
	"github.com/ashgrove/mimic/pkg/script"
	"github.com/ashgrove/mimic/pkg/store"
	"github.com/ashgrove/mimic/pkg/template"
)

// Instance is one loaded configuration document: the plugin it targets,
// the parsed config tree, and the per-document collaborators (script
// engine, response renderer) scoped to its directory.
type Instance struct {
	Name     string
	Plugin   plugin.Plugin
	Config   *config.PluginConfig
	BaseDir  string
	Renderer *response.Renderer
	Scripts  *script.Engine
}

// exampleLookupper is implemented by plugins (openapi) that can resolve
// a ResponseConfig.ExampleName to a body.
type exampleLookupper interface {
	ExampleLookup(name string) (string, bool)
}

// snapshot is the immutable, matcher-ready view of every loaded
// Instance's resources, flattened into one ordered list so the matcher
// can score across plugin boundaries as spec.md's tie-break ("earlier
// declared wins") requires.
type snapshot struct {
	instances []*Instance
	resources []config.ResourceConfig
	owners    []*Instance
}

// Manager holds the currently active configuration snapshot, swapped
// atomically so in-flight requests always see a complete, consistent
// view even while a reload is in progress.
type Manager struct {
	current atomic.Pointer[snapshot]

	Logger                *slog.Logger
	InvalidateScriptCache bool
	Stores                store.Factory

	// RuntimeConfig holds the environment-sourced tunables (response
	// file cache size, feature toggles). Zero value falls back to
	// config.DefaultRuntimeConfig's values.
	RuntimeConfig config.RuntimeConfig

	// Metrics, when set, is used to lazily register the two
	// process-wide instruments every loaded Instance reports through:
	// the response file cache size gauge and the script execution
	// duration timer. A nil Metrics disables both.
	Metrics *metrics.Registry

	metricsOnce   sync.Once
	cacheGauge    *metrics.Gauge
	scriptTimer   *metrics.Histogram
	cacheCountsMu sync.Mutex
	cacheCounts   map[string]int
}

// NewManager constructs a Manager with sensible defaults: the stdlib
// default logger, the registered "memory" store backend, and the
// documented environment-variable defaults for RuntimeConfig.
func NewManager() *Manager {
	m := &Manager{Logger: slog.Default(), RuntimeConfig: config.DefaultRuntimeConfig()}
	if f, ok := store.Lookup("memory"); ok {
		m.Stores = f
	}
	m.current.Store(&snapshot{})
	return m
}

// ensureMetrics lazily registers the cache-entries gauge and the script
// execution timer the first time an Instance needs them, so a Manager
// whose Metrics is set after construction (or never) doesn't panic on a
// nil registry and doesn't double-register across repeated Load calls.
func (m *Manager) ensureMetrics() {
	m.metricsOnce.Do(func() {
		if m.Metrics == nil {
			return
		}
		m.cacheGauge = m.Metrics.NewGauge("mockd_response_file_cache_entries", "Entries currently held in the response file cache")
		m.scriptTimer = m.Metrics.NewHistogram("mockd_script_execution_duration_seconds", "Time spent executing resource scripts", metrics.DefaultBuckets)
		m.cacheCounts = make(map[string]int)
	})
}

// reportCacheEntries folds instanceKey's current file cache size into
// the shared cache-entries gauge, so every loaded plugin instance's
// cache contributes to one process-wide reading.
func (m *Manager) reportCacheEntries(instanceKey string, n int) {
	m.cacheCountsMu.Lock()
	m.cacheCounts[instanceKey] = n
	total := 0
	for _, c := range m.cacheCounts {
		total += c
	}
	m.cacheCountsMu.Unlock()
	_ = m.cacheGauge.Set(float64(total))
}

// Load discovers and parses every configuration document under dirs,
// constructs a plugin instance per document, and atomically swaps the
// active snapshot. Per-file and per-plugin problems are returned as
// LoadErrors rather than aborting the whole load; a directory that
// cannot be read at all is a fatal error.
func (m *Manager) Load(dirs []string) ([]config.LoadError, error) {
	var instances []*Instance
	var loadErrors []config.LoadError

	for _, dir := range dirs {
		loader := config.NewDirectoryLoader(dir)
		result, err := loader.Load()
		if err != nil {
			return nil, fmt.Errorf("engine: load %s: %w", dir, err)
		}
		loadErrors = append(loadErrors, result.Errors...)

		for pluginName, docs := range result.Documents {
			factory, ok := plugin.Lookup(pluginName)
			if !ok {
				loadErrors = append(loadErrors, config.LoadError{
					Message: fmt.Sprintf("unknown plugin %q", pluginName),
				})
				continue
			}
			for _, doc := range docs {
				p, err := factory(*doc)
				if err != nil {
					loadErrors = append(loadErrors, config.LoadError{
						Path: doc.Path, Message: "plugin init failed", Err: err,
					})
					continue
				}
				instances = append(instances, m.newInstance(pluginName, p, doc))
			}
		}
	}

	m.swap(instances)
	return loadErrors, nil
}

func (m *Manager) newInstance(name string, p plugin.Plugin, doc *config.PluginDocument) *Instance {
	m.ensureMetrics()

	baseDir := ""
	if doc.Config != nil {
		baseDir = doc.Config.ParentDir
	}
	se := script.NewEngine(baseDir)
	se.InvalidateOnChange = m.InvalidateScriptCache
	se.SetLogger(m.Logger)
	se.SetTimer(m.scriptTimer)

	cacheSize := m.RuntimeConfig.ResponseFileCacheEntries
	renderer := response.NewRenderer(baseDir, template.New()).WithFileCacheSize(cacheSize)
	renderer.SetLogger(m.Logger)
	if m.cacheGauge != nil {
		instanceKey := name + ":" + baseDir
		renderer.WithCacheReporter(func(n int) { m.reportCacheEntries(instanceKey, n) })
	}

	return &Instance{
		Name:     name,
		Plugin:   p,
		Config:   doc.Config,
		BaseDir:  baseDir,
		Renderer: renderer,
		Scripts:  se,
	}
}

// swap rebuilds the flattened resource list from instances, applying
// each plugin document's BasePath prefix, and installs it as the
// active snapshot.
func (m *Manager) swap(instances []*Instance) {
	snap := &snapshot{instances: instances}
	for _, inst := range instances {
		base := ""
		if inst.Config != nil {
			base = inst.Config.BasePath
		}
		for _, res := range inst.Plugin.Routes() {
			res.Path = joinPath(base, res.Path)
			snap.resources = append(snap.resources, res)
			snap.owners = append(snap.owners, inst)
		}
	}
	m.current.Store(snap)
}

func (m *Manager) snapshot() *snapshot {
	return m.current.Load()
}

// rootFallback returns the instance whose document declared a root
// Response and whose BasePath is the longest prefix of path, for use
// when no resource matches at all. An instance with an empty BasePath
// applies to every path, so it only wins when no more specific
// document's BasePath also covers path. Returns nil if no loaded
// document declared a root Response reachable from path.
func (snap *snapshot) rootFallback(path string) *Instance {
	var best *Instance
	bestLen := -1
	for _, inst := range snap.instances {
		if inst.Config == nil || inst.Config.Response == nil {
			continue
		}
		base := inst.Config.BasePath
		if base != "" && !strings.HasPrefix(path, base) {
			continue
		}
		if len(base) > bestLen {
			best = inst
			bestLen = len(base)
		}
	}
	return best
}

// Routes returns the flattened, BasePath-prefixed resource list from
// the active snapshot, in matcher declaration order.
func (m *Manager) Routes() []config.ResourceConfig {
	return m.snapshot().resources
}

// joinPath prefixes path with base, avoiding a doubled slash at the
// join point. An empty base leaves path unchanged.
func joinPath(base, path string) string {
	if base == "" {
		return path
	}
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
