package matcher

import (
	"regexp"
	"sync"
)

// regexCache holds compiled patterns keyed by pattern id so hot-path
// matching never recompiles per call. An entry is invalidated automatically
// when the stored regex source changes under the same id.
type regexCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	source string
	re     *regexp.Regexp
}

func newRegexCache() *regexCache {
	return &regexCache{entries: make(map[string]cacheEntry)}
}

// get returns the compiled regex for (id, source), compiling and caching on
// first sight or when source differs from the cached entry.
func (c *regexCache) get(id, source string) (*regexp.Regexp, error) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if ok && e.source == source {
		return e.re, nil
	}

	re, err := regexp.Compile(source)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[id] = cacheEntry{source: source, re: re}
	c.mu.Unlock()
	return re, nil
}

// invalidate drops the cached entry for a pattern id.
func (c *regexCache) invalidate(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// size reports the number of cached entries.
func (c *regexCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
