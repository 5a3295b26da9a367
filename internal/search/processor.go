package search

import (
	"path/filepath"

	"github.com/cespare/xxhash"
)

// pathDedupe remembers candidate paths already produced during one search.
// Overlapping scope roots (a source dir inside the project tree) would otherwise repeat files.
type pathDedupe struct {
	seen map[uint64]struct{}
}

func newPathDedupe() *pathDedupe {
	return &pathDedupe{seen: make(map[uint64]struct{})}
}

// add returns false when path was seen before
func (d *pathDedupe) add(path string) bool {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = abs
	}
	h := xxhash.Sum64String(filepath.Clean(key))
	if _, ok := d.seen[h]; ok {
		logDebug("Skipping duplicate candidate: %s", path)
		return false
	}
	d.seen[h] = struct{}{}
	return true
}

// BatchProcessor groups result items before they are handed to the consumer
type BatchProcessor struct {
	batch    []SearchResultItem
	size     int
	callback func([]SearchResultItem) bool
}

// newBatchProcessor creates a batch processor. callback returns false when delivery was abandoned.
func newBatchProcessor(size int, callback func([]SearchResultItem) bool) *BatchProcessor {
	return &BatchProcessor{
		batch:    make([]SearchResultItem, 0, size),
		size:     size,
		callback: callback,
	}
}

// add appends one file's items and flushes once the batch is full
func (bp *BatchProcessor) add(items ...SearchResultItem) bool {
	bp.batch = append(bp.batch, items...)
	if len(bp.batch) >= bp.size {
		return bp.flush()
	}
	return true
}

func (bp *BatchProcessor) flush() bool {
	if len(bp.batch) == 0 {
		return true
	}
	out := bp.batch
	bp.batch = make([]SearchResultItem, 0, bp.size)
	return bp.callback(out)
}
