package search

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SearchConfig
		nilWant bool
		match   []string
		noMatch []string
	}{
		{name: "empty query", cfg: SearchConfig{}, nilWant: true},
		{name: "malformed regex", cfg: SearchConfig{Query: "foo(", UseRegex: true}, nilWant: true},
		{
			name:    "literal escapes metacharacters",
			cfg:     SearchConfig{Query: "a.b(c"},
			match:   []string{"x a.b(c y"},
			noMatch: []string{"axb(c"},
		},
		{
			name:  "case insensitive by default",
			cfg:   SearchConfig{Query: "todo"},
			match: []string{"// TODO fix", "todo"},
		},
		{
			name:    "case sensitive",
			cfg:     SearchConfig{Query: "todo", CaseSensitive: true},
			match:   []string{"todo"},
			noMatch: []string{"TODO"},
		},
		{
			name:    "whole word",
			cfg:     SearchConfig{Query: "val", WholeWord: true},
			match:   []string{"val x = 1", "(val)"},
			noMatch: []string{"value", "interval"},
		},
		{
			name:    "regex with alternation and whole word",
			cfg:     SearchConfig{Query: "get|set", UseRegex: true, WholeWord: true},
			match:   []string{"get()", "a set"},
			noMatch: []string{"getter", "reset"},
		},
		{
			name:  "anchors work per line",
			cfg:   SearchConfig{Query: "^import", UseRegex: true},
			match: []string{"import foo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := Compile(tt.cfg)
			if tt.nilWant {
				assert.Nil(t, re)
				return
			}
			require.NotNil(t, re)
			for _, s := range tt.match {
				assert.True(t, re.MatchString(s), "expected %q to match", s)
			}
			for _, s := range tt.noMatch {
				assert.False(t, re.MatchString(s), "expected %q not to match", s)
			}
		})
	}
}

func TestCompileNeverPanics(t *testing.T) {
	queries := []string{"[", "(?P<", "\\", "*", "a{2,1}", "(?i", ")"}
	for _, q := range queries {
		for _, regex := range []bool{true, false} {
			assert.NotPanics(t, func() {
				Compile(SearchConfig{Query: q, UseRegex: regex, WholeWord: true})
			})
		}
	}
	assert.NotNil(t, Compile(SearchConfig{Query: "[", UseRegex: false}))
}

func TestIsExcluded(t *testing.T) {
	cfg := SearchConfig{ExcludePatterns: []string{"/generated/"}}

	assert.True(t, IsExcluded("/p/.git/config", cfg))
	assert.True(t, IsExcluded("/p/src/.hidden.kt", cfg))
	assert.True(t, IsExcluded("/p/app/build/out/A.kt", cfg))
	assert.True(t, IsExcluded("/p/src/generated/Foo.kt", cfg))
	assert.True(t, IsExcluded("/p/.git/config", SearchConfig{}))

	assert.False(t, IsExcluded("/p/src/main/A.kt", cfg))
	assert.False(t, IsExcluded("/p/buildSrc/A.kt", cfg))
	assert.False(t, IsExcluded("./src/A.kt", cfg))
	assert.False(t, IsExcluded("/p/src/A.kt", SearchConfig{ExcludePatterns: []string{""}}))
}

func TestMatchesMask(t *testing.T) {
	assert.True(t, MatchesMask("/p/A.kt", nil))
	assert.True(t, MatchesMask("/p/A.java", []string{"*.kt", MaskAll}))
	assert.True(t, MatchesMask("/p/A.kt", []string{"*.kt"}))
	assert.False(t, MatchesMask("/p/A.kts", []string{"*.kt"}))
	assert.False(t, MatchesMask("/p/kt", []string{"*.kt"}))
	assert.True(t, MatchesMask("/p/Makefile", []string{"*.kt", "Makefile"}))
	assert.False(t, MatchesMask("/p/Makefile.bak", []string{"Makefile"}))
	assert.True(t, MatchesMask("/p/settings.gradle.kts", []string{"*.gradle.kts"}))
}

func TestIsExcludedBelow(t *testing.T) {
	cfg := SearchConfig{ExcludePatterns: []string{"/generated/"}}
	root := filepath.FromSlash("/home/u/.local/build/proj")
	below := func(rel string) string { return filepath.Join(root, filepath.FromSlash(rel)) }

	assert.False(t, isExcludedBelow(root, below("src/A.kt"), cfg))
	assert.True(t, isExcludedBelow(root, below(".git/config"), cfg))
	assert.True(t, isExcludedBelow(root, below("src/.A.kt"), cfg))
	assert.True(t, isExcludedBelow(root, below("app/build/A.kt"), cfg))
	assert.True(t, isExcludedBelow(root, below("src/generated/A.kt"), cfg))
	assert.False(t, isExcludedBelow(root, below("build"), cfg))

	// a root that is the file itself
	assert.False(t, isExcludedBelow(below("A.kt"), below("A.kt"), cfg))
	assert.True(t, isExcludedBelow(below(".A.kt"), below(".A.kt"), cfg))

	// paths outside the root fall back to the full path
	assert.True(t, isExcludedBelow(root, filepath.FromSlash("/other/.git/config"), cfg))
	assert.True(t, IsExcluded(below("src/A.kt"), cfg))
}

func TestShouldProcessFileGlobs(t *testing.T) {
	opts := Options{ExcludeGlobs: []string{"**/gen/**", "[bad"}}
	file := func(path string) candidate { return candidate{path: path, root: "/p"} }
	assert.False(t, shouldProcessFile(file("/p/app/gen/R.java"), SearchConfig{}, opts))
	assert.True(t, shouldProcessFile(file("/p/app/src/R.java"), SearchConfig{}, opts))
	assert.False(t, shouldProcessFile(file("/p/app/src/R.java"), SearchConfig{FileMasks: []string{"*.kt"}}, opts))
}
