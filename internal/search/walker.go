package search

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"projectsearch/internal/util"
)

var errStopWalk = errors.New("walk stopped")

// shouldSkipDirectory reports whether a directory below a walk root is pruned.
// Everything inside it would be rejected by IsExcluded anyway.
func shouldSkipDirectory(name string) bool {
	return isHiddenName(name) || skipDirs[name]
}

// candidate is a file in scope together with the scope root it was found under
type candidate struct {
	path string
	root string
}

// resolveCandidates lazily produces the files in scope for cfg.
// The channel is closed once the scope is exhausted or ctx is done.
func resolveCandidates(ctx context.Context, cfg SearchConfig, project ProjectModel, opts Options) <-chan candidate {
	out := make(chan candidate, opts.BufferSize)

	go func() {
		defer close(out)

		seen := newPathDedupe()
		for _, root := range scopeRoots(cfg, project) {
			if ctx.Err() != nil {
				return
			}
			send := func(path string) bool {
				if !seen.add(path) {
					return true
				}
				select {
				case out <- candidate{path: path, root: root}:
					return true
				case <-ctx.Done():
					return false
				}
			}
			if !walkFiles(ctx, root, send) {
				return
			}
		}
	}()

	return out
}

// scopeRoots lists the files or directories whose contents form the scope, in walk order
func scopeRoots(cfg SearchConfig, project ProjectModel) []string {
	switch cfg.Scope {
	case ScopeCurrentFile:
		if cfg.CurrentFile == "" {
			return nil
		}
		return []string{cfg.CurrentFile}
	case ScopeDirectory:
		if cfg.TargetDirectory == "" {
			return nil
		}
		return []string{cfg.TargetDirectory}
	case ScopeModule:
		if cfg.TargetModule == "" {
			return nil
		}
		return []string{cfg.TargetModule}
	case ScopeAll, ScopeFile:
		if project == nil {
			return nil
		}
		roots := make([]string, 0, 8)
		root := project.ProjectRoot()
		if root != "" {
			roots = append(roots, root)
		}
		for _, dir := range sortedSourceDirs(project) {
			if root != "" && util.IsWithin(root, dir) {
				continue
			}
			roots = append(roots, dir)
		}
		return roots
	case ScopeCustom:
		if project == nil {
			return nil
		}
		if cfg.CustomScope == OpenFiles {
			if lister, ok := project.(OpenFileLister); ok {
				return lister.OpenFiles()
			}
		}
		return sortedSourceDirs(project)
	default:
		logWarning("Unsupported scope %v, nothing to search", cfg.Scope)
		return nil
	}
}

func sortedSourceDirs(project ProjectModel) []string {
	dirs := append([]string(nil), project.SourceDirectories()...)
	sort.Strings(dirs)
	return dirs
}

// walkFiles sends every regular file under root in lexical order.
// A root that is itself a file is sent as is. Returns false when the walk was stopped.
func walkFiles(ctx context.Context, root string, send func(string) bool) bool {
	info, err := os.Stat(root)
	if err != nil {
		logDebug("Scope root unavailable %s: %v", root, err)
		return true
	}
	if !info.IsDir() {
		if info.Mode().IsRegular() {
			return send(root)
		}
		return true
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return errStopWalk
		}
		if err != nil {
			logDebug("Failed to walk %s: %v", path, err)
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && shouldSkipDirectory(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !send(path) {
			return errStopWalk
		}
		return nil
	})
	if errors.Is(err, errStopWalk) {
		return false
	}
	if err != nil {
		logError("Failed to walk directory %s: %v", root, err)
	}
	return true
}
