package search

import (
	"context"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// fileTask is one candidate file travelling through the worker pool.
// Tasks are queued in candidate order and completed in any order.
type fileTask struct {
	path  string
	items []SearchResultItem
	done  chan struct{}
}

// normalizeOptions fills in defaults for unset tunables
func normalizeOptions(opts Options) Options {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.CrowdThreshold <= 0 {
		opts.CrowdThreshold = DefaultCrowdThreshold
	}
	if opts.PreviewRadius <= 0 {
		opts.PreviewRadius = DefaultPreviewRadius
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = runtime.NumCPU()
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.MinMMapSize <= 0 {
		opts.MinMMapSize = DefaultMinMMapSize
	}
	opts.ExcludeGlobs = append([]string(nil), opts.ExcludeGlobs...)
	return opts
}

func cloneConfig(cfg SearchConfig) SearchConfig {
	cfg.FileMasks = append([]string(nil), cfg.FileMasks...)
	cfg.ExcludePatterns = append([]string(nil), cfg.ExcludePatterns...)
	return cfg
}

// Search starts a search in the background and returns its stream of result batches.
// Batches follow candidate order; each file header directly precedes that file's matches.
// The channel is closed when the search completes or ctx is cancelled. After cancellation
// no further batch is sent, so the delivered items are a prefix of the full result.
func Search(ctx context.Context, cfg SearchConfig, project ProjectModel, opts Options) <-chan []SearchResultItem {
	opts = normalizeOptions(opts)
	batches := make(chan []SearchResultItem)

	pattern := Compile(cfg)
	if pattern == nil {
		logInfo("Nothing to search for (query %q)", cfg.Query)
		close(batches)
		return batches
	}

	cfg = cloneConfig(cfg)
	go run(ctx, cfg, project, opts, pattern, batches)
	return batches
}

func run(parent context.Context, cfg SearchConfig, project ProjectModel, opts Options, pattern *regexp.Regexp, batches chan<- []SearchResultItem) {
	defer close(batches)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	start := time.Now()
	logInfo("Starting search: query=%q scope=%v workers=%d", cfg.Query, cfg.Scope, opts.MaxWorkers)

	owners := newOwnerCache(project)
	candidates := resolveCandidates(ctx, cfg, project, opts)
	pending := make(chan *fileTask, opts.MaxWorkers*2)
	dispatched := make(chan struct{})

	go func() {
		defer close(dispatched)
		dispatch(ctx, candidates, pending, cfg, opts, func(path string) []SearchResultItem {
			return processFile(ctx, path, pattern, cfg, opts, owners)
		})
	}()

	scanned, emitted := 0, 0
	batchProc := newBatchProcessor(opts.BatchSize, func(batch []SearchResultItem) bool {
		select {
		case batches <- batch:
			emitted += len(batch)
			return true
		case <-ctx.Done():
			return false
		}
	})

	completed := emit(ctx, pending, batchProc, func() { scanned++ })
	if completed {
		completed = batchProc.flush()
	}

	cancel()
	<-dispatched

	if completed {
		logInfo("Search completed in %v: %d files scanned, %d items", time.Since(start), scanned, emitted)
	} else {
		logInfo("Search cancelled after %v: %d files scanned, %d items delivered", time.Since(start), scanned, emitted)
	}
}

// dispatch queues filtered candidates in order and scans them on a bounded pool
func dispatch(ctx context.Context, candidates <-chan candidate, pending chan<- *fileTask, cfg SearchConfig, opts Options, scan func(string) []SearchResultItem) {
	var g errgroup.Group
	g.SetLimit(opts.MaxWorkers)

	defer func() {
		close(pending)
		g.Wait()
		for range candidates {
		}
	}()

	for c := range candidates {
		if ctx.Err() != nil {
			return
		}
		if !shouldProcessFile(c, cfg, opts) {
			continue
		}

		task := &fileTask{path: c.path, done: make(chan struct{})}
		select {
		case pending <- task:
		case <-ctx.Done():
			return
		}
		g.Go(func() error {
			defer close(task.done)
			task.items = scan(task.path)
			return nil
		})
	}
}

// emit hands finished tasks to the batch processor in queue order.
// Returns false when the search was cancelled.
func emit(ctx context.Context, pending <-chan *fileTask, batchProc *BatchProcessor, onFile func()) bool {
	for task := range pending {
		select {
		case <-task.done:
		case <-ctx.Done():
			return false
		}
		if ctx.Err() != nil {
			return false
		}
		onFile()
		if len(task.items) == 0 {
			continue
		}
		if !batchProc.add(task.items...) {
			return false
		}
	}
	return ctx.Err() == nil
}

// processFile produces the header and matches for one candidate
func processFile(ctx context.Context, path string, pattern *regexp.Regexp, cfg SearchConfig, opts Options, owners *ownerCache) []SearchResultItem {
	if ctx.Err() != nil {
		return nil
	}

	if cfg.Scope == ScopeFile {
		if !pattern.MatchString(filepath.Base(path)) {
			return nil
		}
		return []SearchResultItem{&FileHeaderResult{File: path, OwnerLabel: owners.get(path)}}
	}

	matches, err := scanFile(ctx, path, pattern, opts)
	if err != nil {
		if ctx.Err() == nil {
			logDebug("Failed to scan %s: %v", path, err)
		}
		return nil
	}
	if len(matches) == 0 {
		return nil
	}

	items := make([]SearchResultItem, 0, len(matches)+1)
	items = append(items, &FileHeaderResult{
		File:       path,
		MatchCount: len(matches),
		OwnerLabel: owners.get(path),
	})
	for i := range matches {
		items = append(items, &matches[i])
	}
	return items
}
