package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LoadError represents a non-fatal error encountered loading one file
// during a directory load.
type LoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// LoadResult is the outcome of loading a directory of configuration
// documents: per-plugin documents found, and any non-fatal errors.
type LoadResult struct {
	// Documents maps plugin name to the documents targeting it, per
	// spec.md's "yield per directory, map<pluginClassName, list<File>>".
	Documents map[string][]*PluginDocument
	FileCount int
	Errors    []LoadError
}

// DirectoryLoader loads plugin configuration documents from a directory.
type DirectoryLoader struct {
	Path      string
	Recursive bool

	mu    sync.RWMutex
	files map[string]time.Time
}

// NewDirectoryLoader creates a loader rooted at path, recursive by default.
func NewDirectoryLoader(path string) *DirectoryLoader {
	return &DirectoryLoader{
		Path:      path,
		Recursive: true,
		files:     make(map[string]time.Time),
	}
}

// Load walks the directory, parses every .yaml/.yml/.json file, and
// groups the resulting documents by plugin name. Per-file failures are
// accumulated as LoadErrors rather than aborting the whole load.
func (d *DirectoryLoader) Load() (*LoadResult, error) {
	info, err := os.Stat(d.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory not found: %s", d.Path)
		}
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", d.Path)
	}

	files, err := d.findConfigFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	result := &LoadResult{Documents: make(map[string][]*PluginDocument)}

	for _, file := range files {
		cfg, err := LoadFromFile(file)
		if err != nil {
			result.Errors = append(result.Errors, LoadError{
				Path:    file,
				Message: "failed to load",
				Err:     err,
			})
			continue
		}

		if fi, statErr := os.Stat(file); statErr == nil {
			d.mu.Lock()
			d.files[file] = fi.ModTime()
			d.mu.Unlock()
		}

		pluginName := cfg.Plugin
		if pluginName == "" {
			pluginName = "rest"
		}
		result.Documents[pluginName] = append(result.Documents[pluginName], &PluginDocument{
			Path:   file,
			Config: cfg,
		})
		result.FileCount++
	}

	return result, nil
}

func (d *DirectoryLoader) findConfigFiles() ([]string, error) {
	var files []string

	walkFn := func(path string, info os.FileInfo, err error) error {
		if err != nil {
			//nolint:nilerr // skip files we cannot access during the walk
			return nil
		}
		if info.IsDir() {
			if !d.Recursive && path != d.Path {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" || ext == ".json" {
			files = append(files, path)
		}
		return nil
	}

	if err := filepath.Walk(d.Path, walkFn); err != nil {
		return nil, err
	}
	return files, nil
}

// HasChanges reports which tracked files have a newer mtime than the
// last Load, including files that became inaccessible (e.g. deleted).
func (d *DirectoryLoader) HasChanges() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var changed []string
	for path, modTime := range d.files {
		info, err := os.Stat(path)
		if err != nil {
			changed = append(changed, path)
			continue
		}
		if info.ModTime().After(modTime) {
			changed = append(changed, path)
		}
	}
	return changed, nil
}

// WatchInterval is the default polling interval for file watching.
const WatchInterval = 2 * time.Second

// WatchEvent reports a single detected file change.
type WatchEvent struct {
	Path  string
	Type  string // "modified"
	Error error
}

// Watcher polls a DirectoryLoader for changes; there is no fsnotify
// dependency here, so this mirrors the teacher's ticker-based approach.
type Watcher struct {
	loader   *DirectoryLoader
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	eventCh chan WatchEvent
}

// NewWatcher creates a watcher for loader, polling at WatchInterval.
func NewWatcher(loader *DirectoryLoader) *Watcher {
	return &Watcher{
		loader:   loader,
		interval: WatchInterval,
		eventCh:  make(chan WatchEvent, 10),
	}
}

// Start begins polling in the background and returns the event channel.
// Calling Start while already running is a no-op.
func (w *Watcher) Start() <-chan WatchEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return w.eventCh
	}

	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.running = true

	stopCh, doneCh := w.stopCh, w.doneCh
	go w.watchLoop(stopCh, doneCh)

	return w.eventCh
}

// Stop halts polling and waits for the background goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	close(w.stopCh)
	w.running = false
	doneCh := w.doneCh
	w.mu.Unlock()

	<-doneCh
}

func (w *Watcher) watchLoop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			changed, err := w.loader.HasChanges()
			if err != nil {
				w.eventCh <- WatchEvent{Error: err}
				continue
			}
			for _, path := range changed {
				w.eventCh <- WatchEvent{Path: path, Type: "modified"}
			}
		}
	}
}
