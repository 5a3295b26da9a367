package search

import (
	"path/filepath"
	"sync"
)

// ownerCache memoises module labels by directory for the duration of one search
type ownerCache struct {
	project ProjectModel
	labels  map[string]string
	sync.RWMutex
}

func newOwnerCache(project ProjectModel) *ownerCache {
	return &ownerCache{
		project: project,
		labels:  make(map[string]string),
	}
}

// get returns the owner label for path, empty when no module claims it
func (c *ownerCache) get(path string) string {
	if c == nil || c.project == nil {
		return ""
	}
	dir := filepath.Dir(path)

	c.RLock()
	label, ok := c.labels[dir]
	c.RUnlock()
	if ok {
		return label
	}

	label, _ = c.project.ModuleFor(path)

	c.Lock()
	c.labels[dir] = label
	c.Unlock()
	return label
}
