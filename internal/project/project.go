// Package project models a Gradle style project tree on disk: its modules, their source
// directories and the files currently open in the editor.
package project

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"projectsearch/internal/util"
)

// SourceDirPatterns locate source directories relative to the project root
var SourceDirPatterns = []string{
	"**/src/*/java",
	"**/src/*/kotlin",
	"**/src/*/res",
	"**/src/*/resources",
	"**/src/*/aidl",
}

var buildScripts = []string{"build.gradle", "build.gradle.kts"}

// Module is a directory holding a Gradle build script
type Module struct {
	Dir   string
	Label string
}

// Project is a filesystem backed project model
type Project struct {
	root       string
	modules    []Module // deepest first
	sourceDirs []string

	mu        sync.RWMutex
	openFiles []string
}

// Open scans root for modules and source directories.
// extraSourceDirs are added to the discovered ones; relative entries are resolved against root.
func Open(root string, extraSourceDirs []string) (*Project, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open project: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open project: %s is not a directory", abs)
	}

	p := &Project{root: abs}
	if p.modules, err = findModules(abs); err != nil {
		return nil, err
	}
	if p.sourceDirs, err = findSourceDirs(abs, extraSourceDirs); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Project) ProjectRoot() string { return p.root }

// Name is the directory name of the project root
func (p *Project) Name() string { return filepath.Base(p.root) }

func (p *Project) SourceDirectories() []string {
	return append([]string(nil), p.sourceDirs...)
}

// Modules lists the modules sorted by directory
func (p *Project) Modules() []Module {
	out := append([]Module(nil), p.modules...)
	sort.Slice(out, func(i, j int) bool { return out[i].Dir < out[j].Dir })
	return out
}

// ModuleFor returns the label of the innermost module containing path
func (p *Project) ModuleFor(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	for _, m := range p.modules {
		if util.IsWithin(m.Dir, abs) {
			return m.Label, true
		}
	}
	return "", false
}

// ModuleDir resolves a module label (":app") or a path to the module directory
func (p *Project) ModuleDir(labelOrPath string) (string, bool) {
	for _, m := range p.modules {
		if m.Label == labelOrPath {
			return m.Dir, true
		}
	}
	dir := labelOrPath
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(p.root, dir)
	}
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir, true
	}
	return "", false
}

// SetOpenFiles records the files open in the editor
func (p *Project) SetOpenFiles(files []string) {
	p.mu.Lock()
	p.openFiles = append([]string(nil), files...)
	p.mu.Unlock()
}

func (p *Project) OpenFiles() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.openFiles...)
}

func findModules(root string) ([]Module, error) {
	var modules []Module
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return fs.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return fs.SkipDir
		}
		if hasBuildScript(path) {
			modules = append(modules, Module{Dir: path, Label: moduleLabel(root, path)})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan modules: %w", err)
	}
	sort.SliceStable(modules, func(i, j int) bool {
		return len(modules[i].Dir) > len(modules[j].Dir)
	})
	return modules, nil
}

func findSourceDirs(root string, extra []string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var dirs []string

	add := func(dir string) {
		if seen[dir] {
			return
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}

	for _, pattern := range SourceDirPatterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %s: %w", pattern, err)
		}
		for _, rel := range matches {
			if excludedRel(rel) {
				continue
			}
			add(filepath.Join(root, filepath.FromSlash(rel)))
		}
	}
	for _, dir := range extra {
		dir = strings.TrimSpace(dir)
		if dir == "" {
			continue
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		add(filepath.Clean(dir))
	}

	sort.Strings(dirs)
	return dirs, nil
}

func moduleLabel(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return filepath.Base(root)
	}
	return ":" + strings.ReplaceAll(filepath.ToSlash(rel), "/", ":")
}

func hasBuildScript(dir string) bool {
	for _, name := range buildScripts {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "build"
}

// excludedRel reports whether a slash separated relative path crosses a skipped directory
func excludedRel(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if skipDir(seg) {
			return true
		}
	}
	return false
}
