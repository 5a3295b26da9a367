package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"projectsearch/internal/util"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeProject is an in-memory ProjectModel
type fakeProject struct {
	root    string
	sources []string
	modules map[string]string // directory -> label
	open    []string
}

func (p *fakeProject) ProjectRoot() string         { return p.root }
func (p *fakeProject) SourceDirectories() []string { return p.sources }

func (p *fakeProject) ModuleFor(path string) (string, bool) {
	best, label := "", ""
	for dir, l := range p.modules {
		if util.IsWithin(dir, path) && len(dir) > len(best) {
			best, label = dir, l
		}
	}
	return label, best != ""
}

type openFilesProject struct {
	fakeProject
}

func (p *openFilesProject) OpenFiles() []string { return p.open }

// writeTree creates files (slash separated relative paths) under root
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func collectBatches(ch <-chan []SearchResultItem) [][]SearchResultItem {
	var out [][]SearchResultItem
	for batch := range ch {
		out = append(out, batch)
	}
	return out
}

func flatten(batches [][]SearchResultItem) []SearchResultItem {
	var out []SearchResultItem
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}

func runSearch(t *testing.T, cfg SearchConfig, project ProjectModel, opts Options) []SearchResultItem {
	t.Helper()
	return flatten(collectBatches(Search(context.Background(), cfg, project, opts)))
}

// describe renders items compactly for order comparisons
func describe(root string, items []SearchResultItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		rel, _ := filepath.Rel(root, item.FilePath())
		rel = filepath.ToSlash(rel)
		switch v := item.(type) {
		case *FileHeaderResult:
			out = append(out, "H "+rel+" "+strings.Repeat("#", v.MatchCount))
		case *TextMatchResult:
			out = append(out, "M "+rel+" "+v.Preview.Text)
		}
	}
	return out
}
