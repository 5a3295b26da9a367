package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Fixture.kt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func scanPath(t *testing.T, path string, opts Options, cfg SearchConfig) []TextMatchResult {
	t.Helper()
	matches, err := scanFile(context.Background(), path, Compile(cfg), normalizeOptions(opts))
	require.NoError(t, err)
	return matches
}

func scanFixture(t *testing.T, content string, opts Options, cfg SearchConfig) []TextMatchResult {
	t.Helper()
	return scanPath(t, writeFixture(t, content), opts, cfg)
}

func TestScanFileLineAndColumnOrder(t *testing.T) {
	content := "package demo\n// TODO one\nval x = 1 // todo two todo three\n"
	matches := scanFixture(t, content, Options{}, SearchConfig{Query: "todo"})
	require.Len(t, matches, 3)

	assert.Equal(t, 1, matches[0].LineIndex)
	assert.Equal(t, Range{Start: Position{1, 3}, End: Position{1, 7}}, matches[0].MatchRange)
	assert.Equal(t, "// TODO one", matches[0].LineContent)

	assert.Equal(t, 2, matches[1].LineIndex)
	assert.Equal(t, 13, matches[1].MatchRange.Start.Column)
	assert.Equal(t, 2, matches[2].LineIndex)
	assert.Equal(t, 22, matches[2].MatchRange.Start.Column)

	for _, m := range matches {
		assert.False(t, m.IsCrowded)
		assert.True(t, m.Preview.Highlighted)
		_, hit, _ := m.Preview.Segments()
		assert.True(t, strings.EqualFold("todo", hit))
	}
}

func TestScanFileCrowding(t *testing.T) {
	content := "a a a a\na a a\n"
	matches := scanFixture(t, content, Options{CrowdThreshold: 5}, SearchConfig{Query: "a", WholeWord: true, CaseSensitive: true})
	require.Len(t, matches, 7)

	for i, m := range matches {
		assert.Equal(t, i >= 5, m.IsCrowded, "match %d", i+1)
	}
}

func TestScanFileColumnsCountCharacters(t *testing.T) {
	matches := scanFixture(t, "ünïcödé TODO\n", Options{}, SearchConfig{Query: "TODO"})
	require.Len(t, matches, 1)
	assert.Equal(t, 8, matches[0].MatchRange.Start.Column)
	assert.Equal(t, 12, matches[0].MatchRange.End.Column)
}

func TestScanFileLineEndings(t *testing.T) {
	matches := scanFixture(t, "first TODO\r\nsecond TODO", Options{}, SearchConfig{Query: "TODO$", UseRegex: true})
	require.Len(t, matches, 2)
	assert.Equal(t, "first TODO", matches[0].LineContent)
	assert.Equal(t, "second TODO", matches[1].LineContent)
	assert.Equal(t, 1, matches[1].LineIndex)
}

func TestScanFileSkipsNonText(t *testing.T) {
	cfg := SearchConfig{Query: "TODO"}

	assert.Empty(t, scanFixture(t, "TODO\x00\x01\x02 TODO\n", Options{}, cfg))
	assert.Empty(t, scanFixture(t, "TODO fine\n\xff\xfe TODO\n", Options{}, cfg))
	assert.Empty(t, scanFixture(t, "", Options{}, cfg))
}

func TestScanFileMMapMatchesReader(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 500; i++ {
		sb.WriteString("fun call() = helper() // TODO maybe\n")
		sb.WriteString("nothing to see here\n")
	}
	path := writeFixture(t, sb.String())
	cfg := SearchConfig{Query: "todo|helper", UseRegex: true}

	buffered := scanPath(t, path, Options{UseMMap: false}, cfg)
	mapped := scanPath(t, path, Options{UseMMap: true, MinMMapSize: 1}, cfg)

	require.Len(t, buffered, 1000)
	assert.Equal(t, buffered, mapped)

	binary := scanFixture(t, "TODO\x00", Options{UseMMap: true, MinMMapSize: 1}, SearchConfig{Query: "TODO"})
	assert.Empty(t, binary)
}

func TestScanFileCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "A.kt")
	require.NoError(t, os.WriteFile(path, []byte("TODO\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, useMMap := range []bool{false, true} {
		_, err := scanFile(ctx, path, Compile(SearchConfig{Query: "TODO"}), normalizeOptions(Options{UseMMap: useMMap, MinMMapSize: 1}))
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestScanFileMissing(t *testing.T) {
	_, err := scanFile(context.Background(), filepath.Join(t.TempDir(), "gone.kt"), Compile(SearchConfig{Query: "x"}), normalizeOptions(Options{}))
	assert.Error(t, err)
}
