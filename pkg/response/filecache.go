package response

import (
	"container/list"
	"os"
	"sync"
)

// fileCacheSize bounds the number of response files kept in memory at
// once. Hand-rolled rather than pulled from a generic LRU library: the
// cache only ever needs this one file-contents-by-path shape, and the
// coalescing behaviour below (one read per path, regardless of how
// many requests miss concurrently) isn't something an off-the-shelf
// LRU provides either.
const fileCacheSize = 20

type fileCacheEntry struct {
	path string
	data []byte
}

// fileCache is a thread-safe LRU cache of response file contents, with
// concurrent misses against the same path coalesced into a single
// filesystem read.
type fileCache struct {
	mu      sync.Mutex
	items   map[string]*list.Element
	order   *list.List
	maxSize int
	onSize  func(n int)

	inflightMu sync.Mutex
	inflight   map[string]*fileLoad
}

// setSizeCallback registers fn to be called with the cache's current
// entry count after every insertion or eviction. Replaces any
// previously registered callback.
func (c *fileCache) setSizeCallback(fn func(n int)) {
	c.mu.Lock()
	c.onSize = fn
	n := c.order.Len()
	c.mu.Unlock()
	if fn != nil {
		fn(n)
	}
}

// reportSize invokes the size callback, if any, with the current entry
// count. Must be called without holding c.mu.
func (c *fileCache) reportSize() {
	c.mu.Lock()
	fn := c.onSize
	n := c.order.Len()
	c.mu.Unlock()
	if fn != nil {
		fn(n)
	}
}

type fileLoad struct {
	done chan struct{}
	data []byte
	err  error
}

func newFileCache(maxSize int) *fileCache {
	if maxSize <= 0 {
		maxSize = fileCacheSize
	}
	return &fileCache{
		items:    make(map[string]*list.Element),
		order:    list.New(),
		maxSize:  maxSize,
		inflight: make(map[string]*fileLoad),
	}
}

func (c *fileCache) get(path string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[path]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*fileCacheEntry).data, true
}

func (c *fileCache) set(path string, data []byte) {
	c.mu.Lock()

	if elem, ok := c.items[path]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*fileCacheEntry).data = data
		c.mu.Unlock()
		return
	}

	if c.order.Len() >= c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			delete(c.items, oldest.Value.(*fileCacheEntry).path)
			c.order.Remove(oldest)
		}
	}

	entry := &fileCacheEntry{path: path, data: data}
	c.items[path] = c.order.PushFront(entry)
	c.mu.Unlock()
	c.reportSize()
}

// load returns path's contents, serving from cache on a hit. On a
// miss, concurrent callers for the same path share a single read.
func (c *fileCache) load(path string) ([]byte, error) {
	if data, ok := c.get(path); ok {
		return data, nil
	}

	c.inflightMu.Lock()
	if existing, ok := c.inflight[path]; ok {
		c.inflightMu.Unlock()
		<-existing.done
		return existing.data, existing.err
	}
	load := &fileLoad{done: make(chan struct{})}
	c.inflight[path] = load
	c.inflightMu.Unlock()

	data, err := os.ReadFile(path)
	load.data, load.err = data, err
	close(load.done)

	c.inflightMu.Lock()
	delete(c.inflight, path)
	c.inflightMu.Unlock()

	if err == nil {
		c.set(path, data)
	}
	return data, err
}
