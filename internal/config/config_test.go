package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"projectsearch/internal/search"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFormats(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"a.yaml": `
scope: module
masks: ["*.kt", "*.java"]
exclude: /generated/
case-sensitive: true
batch_size: 50
mmap_min_size: 2MB
`,
		"b.toml": `
scope = "module"
masks = ["*.kt", "*.java"]
exclude = "/generated/"
case_sensitive = true
batch_size = 50
mmap_min_size = "2MB"
`,
		"c.json": `{
  "search": {
    "scope": "module",
    "file_masks": "*.kt, *.java",
    "excludes": ["/generated/"],
    "match_case": "yes",
    "batch_size": 50,
    "mmap_min_size": 2097152
  }
}`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			f, err := Load(writeFile(t, dir, name, content))
			require.NoError(t, err)

			s := Defaults()
			require.NoError(t, s.Apply(f))
			assert.Equal(t, search.ScopeModule, s.Scope)
			assert.Equal(t, []string{"*.kt", "*.java"}, s.Masks)
			assert.Equal(t, []string{"/generated/"}, s.Exclude)
			assert.True(t, s.CaseSensitive)
			assert.Equal(t, 50, s.BatchSize)
			assert.Equal(t, int64(2*1024*1024), s.MMapMinSize)
			assert.Equal(t, search.DefaultCrowdThreshold, s.CrowdThreshold)
		})
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(writeFile(t, dir, "unknown.yaml", "colour: red\n"))
	assert.ErrorContains(t, err, "unknown key")

	_, err = Load(writeFile(t, dir, "badtype.yaml", "batch_size: many\n"))
	assert.ErrorContains(t, err, "batch_size")

	_, err = Load(writeFile(t, dir, "conf.ini", "scope=all\n"))
	assert.ErrorContains(t, err, "unsupported config extension")

	f, err := Load(writeFile(t, dir, "scope.yaml", "scope: galaxy\n"))
	require.NoError(t, err)
	s := Defaults()
	assert.Error(t, s.Apply(f))
}

func TestLoadEmptyPath(t *testing.T) {
	f, err := Load("  ")
	require.NoError(t, err)
	assert.Nil(t, f.Scope)
}

func TestValidate(t *testing.T) {
	s := Defaults()
	require.NoError(t, s.Validate())

	s.BatchSize = 0
	s.PreviewRadius = -1
	err := s.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch_size")
	assert.Contains(t, err.Error(), "preview_radius")

	// zero would silently fall back to the engine default
	s = Defaults()
	s.PreviewRadius = 0
	assert.ErrorContains(t, s.Validate(), "preview_radius must be positive")
}

func TestOptions(t *testing.T) {
	s := Defaults()
	s.Workers = 3
	s.ExcludeGlobs = []string{"**/gen/**"}

	opts := s.Options()
	assert.Equal(t, 3, opts.MaxWorkers)
	assert.Equal(t, search.DefaultBatchSize, opts.BatchSize)
	assert.Equal(t, []string{"**/gen/**"}, opts.ExcludeGlobs)
	assert.True(t, opts.UseMMap)
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "app", "src")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	_, ok := Find(nested)
	assert.False(t, ok)

	want := writeFile(t, root, ".projectsearch.toml", "scope = \"all\"\n")
	got, ok := Find(nested)
	require.True(t, ok)
	assert.Equal(t, want, got)
}
