package search

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchSingleFileTwoMatches(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"A.kt": "fun a() {} // TODO first\nval b = 2\n// todo second\n",
	})
	project := &fakeProject{root: root}

	items := runSearch(t, SearchConfig{Query: "TODO", Scope: ScopeAll}, project, Options{})
	require.Len(t, items, 3)

	header, ok := items[0].(*FileHeaderResult)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "A.kt"), header.File)
	assert.Equal(t, 2, header.MatchCount)

	first, ok := items[1].(*TextMatchResult)
	require.True(t, ok)
	second, ok := items[2].(*TextMatchResult)
	require.True(t, ok)
	assert.Equal(t, 0, first.LineIndex)
	assert.Equal(t, 2, second.LineIndex)
	assert.Equal(t, Position{Line: 2, Column: 3}, second.MatchRange.Start)
}

func TestSearchMalformedRegexEmitsNothing(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"A.kt": "foo(\n"})

	batches := collectBatches(Search(context.Background(), SearchConfig{Query: "foo(", UseRegex: true}, &fakeProject{root: root}, Options{}))
	assert.Empty(t, batches)

	batches = collectBatches(Search(context.Background(), SearchConfig{}, &fakeProject{root: root}, Options{}))
	assert.Empty(t, batches)
}

func TestSearchFileScopeMatchesNames(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/Main.kt":   "class Helper",
		"src/Helper.kt": "fun main() = Main()",
	})
	project := &fakeProject{root: root, modules: map[string]string{root: "demo"}}

	items := runSearch(t, SearchConfig{Query: "Main", Scope: ScopeFile, CaseSensitive: true}, project, Options{})
	require.Len(t, items, 1)

	header, ok := items[0].(*FileHeaderResult)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "src", "Main.kt"), header.File)
	assert.Zero(t, header.MatchCount)
	assert.Equal(t, "demo", header.OwnerLabel)
}

func TestSearchCrowdedFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"A.kt": "x x x\nx\nx x x\n",
	})

	items := runSearch(t, SearchConfig{Query: "x", Scope: ScopeAll}, &fakeProject{root: root}, Options{CrowdThreshold: 5})
	require.Len(t, items, 8)
	assert.Equal(t, 7, items[0].(*FileHeaderResult).MatchCount)

	for i, item := range items[1:] {
		assert.Equal(t, i >= 5, item.(*TextMatchResult).IsCrowded, "match %d", i+1)
	}
}

func TestSearchExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/generated/Foo.kt": "TODO",
		"src/main/Bar.kt":      "TODO",
		"src/.cache/Baz.kt":    "TODO",
		"src/main/.Hidden.kt":  "TODO",
		"app/build/Out.kt":     "TODO",
	})
	cfg := SearchConfig{Query: "TODO", Scope: ScopeAll, ExcludePatterns: []string{"/generated/"}}

	items := runSearch(t, cfg, &fakeProject{root: root}, Options{})
	assert.Equal(t, []string{
		"H src/main/Bar.kt #",
		"M src/main/Bar.kt TODO",
	}, describe(root, items))

	// build outputs stay excluded when the scope root sits above them
	cfg.Scope = ScopeDirectory
	cfg.TargetDirectory = filepath.Join(root, "app")
	assert.Empty(t, runSearch(t, cfg, &fakeProject{root: root}, Options{}))
}

func TestSearchProjectBelowHiddenOrBuildDir(t *testing.T) {
	tree := map[string]string{
		"src/A.kt":        "TODO\nTODO\n",
		"src/.cache/B.kt": "TODO",
		"build/C.kt":      "TODO",
	}
	want := []string{
		"H src/A.kt ##",
		"M src/A.kt TODO",
		"M src/A.kt TODO",
	}

	for _, parent := range []string{"workspace", ".workspace", "build"} {
		t.Run(parent, func(t *testing.T) {
			root := filepath.Join(t.TempDir(), parent, "proj")
			writeTree(t, root, tree)
			items := runSearch(t, SearchConfig{Query: "TODO", Scope: ScopeAll}, &fakeProject{root: root}, Options{})
			assert.Equal(t, want, describe(root, items))
		})
	}

	// the current file is checked by name only
	hidden := filepath.Join(t.TempDir(), ".config", "proj")
	writeTree(t, hidden, map[string]string{"Main.kt": "TODO", ".env": "TODO"})
	cfg := SearchConfig{Query: "TODO", Scope: ScopeCurrentFile, CurrentFile: filepath.Join(hidden, "Main.kt")}
	assert.Len(t, runSearch(t, cfg, &fakeProject{root: hidden}, Options{}), 2)
	cfg.CurrentFile = filepath.Join(hidden, ".env")
	assert.Empty(t, runSearch(t, cfg, &fakeProject{root: hidden}, Options{}))
}

func TestSearchFileMasksAndGlobs(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"A.kt":         "TODO",
		"B.java":       "TODO",
		"gen/C.kt":     "TODO",
		"Makefile":     "TODO",
		"notes/D.txt":  "TODO",
		"notes/E.kt":   "nothing",
		"binary.kt":    "TODO\x00",
		"broken.kt":    "TODO\xff\n",
		"unicode.kt":   "ünï TODO",
		"nested/F.kts": "TODO",
	})
	cfg := SearchConfig{Query: "TODO", Scope: ScopeAll, FileMasks: []string{"*.kt", "Makefile"}}

	items := runSearch(t, cfg, &fakeProject{root: root}, Options{ExcludeGlobs: []string{"**/gen/**"}})
	assert.Equal(t, []string{
		"H A.kt #",
		"M A.kt TODO",
		"H Makefile #",
		"M Makefile TODO",
		"H unicode.kt #",
		"M unicode.kt ünï TODO",
	}, describe(root, items))
}

// buildProject writes a multi-module tree with uneven file sizes
func buildProject(t *testing.T, files int) (*fakeProject, []string) {
	t.Helper()
	root := t.TempDir()
	tree := map[string]string{}
	var want []string
	for i := 0; i < files; i++ {
		module := "app"
		if i%2 == 1 {
			module = "lib"
		}
		rel := fmt.Sprintf("%s/src/F%03d.kt", module, i)
		hits := i%4 + 1
		var sb strings.Builder
		sb.WriteString(strings.Repeat("filler line without a hit\n", (i%7)*50))
		for h := 0; h < hits; h++ {
			sb.WriteString("call() // TODO\n")
		}
		tree[rel] = sb.String()
	}
	writeTree(t, root, tree)

	project := &fakeProject{
		root: root,
		modules: map[string]string{
			filepath.Join(root, "app"): ":app",
			filepath.Join(root, "lib"): ":lib",
		},
	}
	for _, module := range []string{"app", "lib"} {
		for i := 0; i < files; i++ {
			if (i%2 == 1) != (module == "lib") {
				continue
			}
			rel := fmt.Sprintf("%s/src/F%03d.kt", module, i)
			hits := i%4 + 1
			want = append(want, "H "+rel+" "+strings.Repeat("#", hits))
			for h := 0; h < hits; h++ {
				want = append(want, "M "+rel+" call() // TODO")
			}
		}
	}
	return project, want
}

func TestSearchPreservesCandidateOrder(t *testing.T) {
	project, want := buildProject(t, 40)
	cfg := SearchConfig{Query: "TODO", Scope: ScopeAll}

	for _, workers := range []int{1, 3, 16} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			items := runSearch(t, cfg, project, Options{MaxWorkers: workers})
			assert.Equal(t, want, describe(project.root, items))

			for _, item := range items {
				if h, ok := item.(*FileHeaderResult); ok {
					rel, _ := filepath.Rel(project.root, h.File)
					assert.Equal(t, ":"+strings.SplitN(filepath.ToSlash(rel), "/", 2)[0], h.OwnerLabel)
				}
			}
		})
	}
}

func TestSearchBatching(t *testing.T) {
	project, want := buildProject(t, 30)
	cfg := SearchConfig{Query: "TODO", Scope: ScopeAll}

	for _, size := range []int{1, 4, 20, 10000} {
		t.Run(fmt.Sprintf("batch=%d", size), func(t *testing.T) {
			batches := collectBatches(Search(context.Background(), cfg, project, Options{BatchSize: size, MaxWorkers: 4}))
			require.NotEmpty(t, batches)

			for i, batch := range batches {
				assert.NotEmpty(t, batch)
				if i < len(batches)-1 {
					assert.GreaterOrEqual(t, len(batch), size)
				}
			}
			assert.Equal(t, want, describe(project.root, flatten(batches)))
		})
	}
}

func TestSearchHeaderPrecedesMatches(t *testing.T) {
	project, _ := buildProject(t, 12)
	items := runSearch(t, SearchConfig{Query: "TODO", Scope: ScopeAll}, project, Options{BatchSize: 3})

	var current *FileHeaderResult
	seen := 0
	for _, item := range items {
		switch v := item.(type) {
		case *FileHeaderResult:
			if current != nil {
				assert.Equal(t, current.MatchCount, seen)
			}
			current, seen = v, 0
		case *TextMatchResult:
			require.NotNil(t, current)
			assert.Equal(t, current.File, v.File)
			seen++
		}
	}
	require.NotNil(t, current)
	assert.Equal(t, current.MatchCount, seen)
}

func TestSearchCancellationDeliversPrefix(t *testing.T) {
	project, _ := buildProject(t, 80)
	cfg := SearchConfig{Query: "TODO", Scope: ScopeAll}
	opts := Options{BatchSize: 1, MaxWorkers: 4}

	full := describe(project.root, runSearch(t, cfg, project, opts))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	batches := Search(ctx, cfg, project, opts)

	var got []SearchResultItem
	for i := 0; i < 5; i++ {
		batch, ok := <-batches
		require.True(t, ok)
		got = append(got, batch...)
	}
	cancel()
	for batch := range batches {
		got = append(got, batch...)
	}

	partial := describe(project.root, got)
	require.Less(t, len(partial), len(full))
	assert.Equal(t, full[:len(partial)], partial)
}

func TestSearchCancelledBeforeStart(t *testing.T) {
	project, _ := buildProject(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, collectBatches(Search(ctx, SearchConfig{Query: "TODO", Scope: ScopeAll}, project, Options{})))
}

func TestSearchDoesNotMutateConfig(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"A.kt": "TODO"})
	masks := []string{"*.kt"}
	cfg := SearchConfig{Query: "TODO", Scope: ScopeAll, FileMasks: masks}

	ch := Search(context.Background(), cfg, &fakeProject{root: root}, Options{})
	masks[0] = "*.java"
	assert.Len(t, flatten(collectBatches(ch)), 2)
}
