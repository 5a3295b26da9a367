package search

import (
	"fmt"
	"strings"
)

// Scope selects which part of the project a search covers
type Scope int

const (
	ScopeAll         Scope = iota // Whole project including non-source files
	ScopeModule                   // One module's tree
	ScopeFile                     // File names only, contents are never read
	ScopeDirectory                // One directory subtree
	ScopeCustom                   // A named logical scope, see CustomScope
	ScopeCurrentFile              // The file open in the editor
)

var scopeNames = map[Scope]string{
	ScopeAll:         "all",
	ScopeModule:      "module",
	ScopeFile:        "file",
	ScopeDirectory:   "directory",
	ScopeCustom:      "custom",
	ScopeCurrentFile: "current",
}

func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return fmt.Sprintf("scope(%d)", int(s))
}

// ParseScope converts a scope name as used on the command line and in config files
func ParseScope(v string) (Scope, error) {
	norm := strings.ToLower(strings.TrimSpace(v))
	switch norm {
	case "", "all", "project":
		return ScopeAll, nil
	case "current-file", "current_file":
		return ScopeCurrentFile, nil
	case "dir":
		return ScopeDirectory, nil
	}
	for scope, name := range scopeNames {
		if name == norm {
			return scope, nil
		}
	}
	return ScopeAll, fmt.Errorf("unknown scope: %s", v)
}

// CustomScope names the logical scopes offered when Scope is ScopeCustom
type CustomScope int

const (
	AllPlaces CustomScope = iota
	ProjectFiles
	ProjectAndLibraries
	ProjectSourceFiles
	OpenFiles
)

var customScopeLabels = []string{
	AllPlaces:           "All Places",
	ProjectFiles:        "Project Files",
	ProjectAndLibraries: "Project and Libraries",
	ProjectSourceFiles:  "Project Source Files",
	OpenFiles:           "Open Files",
}

// Label returns the human readable name shown in scope pickers
func (c CustomScope) Label() string {
	if c >= 0 && int(c) < len(customScopeLabels) {
		return customScopeLabels[c]
	}
	return "Unknown"
}

// CustomScopeLabels lists every custom scope label in declaration order
func CustomScopeLabels() []string {
	out := make([]string, len(customScopeLabels))
	copy(out, customScopeLabels)
	return out
}

// ParseCustomScope accepts either a label ("Open Files") or a slug ("open-files")
func ParseCustomScope(v string) (CustomScope, error) {
	norm := strings.ToLower(strings.TrimSpace(v))
	if norm == "" {
		return AllPlaces, nil
	}
	norm = strings.NewReplacer("-", " ", "_", " ").Replace(norm)
	for i, label := range customScopeLabels {
		if strings.ToLower(label) == norm {
			return CustomScope(i), nil
		}
	}
	return AllPlaces, fmt.Errorf("unknown custom scope: %s", v)
}

// MaskAll is the file mask sentinel that matches every file
const MaskAll = "ALL"

// SearchConfig describes one search request. The engine never mutates it.
type SearchConfig struct {
	Query           string
	Replacement     string      // Carried for replace previews, unused while scanning
	Scope           Scope
	CustomScope     CustomScope // Only meaningful for ScopeCustom
	TargetModule    string      // Module root for ScopeModule
	TargetDirectory string      // Directory for ScopeDirectory
	CurrentFile     string      // File for ScopeCurrentFile
	FileMasks       []string    // "*.java", "Makefile" or MaskAll
	CaseSensitive   bool
	WholeWord       bool
	UseRegex        bool
	ExcludePatterns []string // Substrings matched against absolute paths
}

// Position is a zero-based line and character column
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range spans a match inside a line, end exclusive
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Preview is a truncated excerpt of a line with the match span marked.
// Offsets count characters of Text; they are only valid when Highlighted is true.
type Preview struct {
	Text           string `json:"text"`
	HighlightStart int    `json:"highlight_start"`
	HighlightEnd   int    `json:"highlight_end"`
	Highlighted    bool   `json:"highlighted"`
}

// SearchResultItem is either a *FileHeaderResult or a *TextMatchResult
type SearchResultItem interface {
	FilePath() string
	isResultItem()
}

// FileHeaderResult opens the group of matches for one file
type FileHeaderResult struct {
	File       string `json:"file"`
	MatchCount int    `json:"match_count"`
	OwnerLabel string `json:"owner,omitempty"` // Module name, empty when unknown
}

// TextMatchResult is one match inside a file
type TextMatchResult struct {
	File        string  `json:"file"`
	LineIndex   int     `json:"line_index"`
	LineContent string  `json:"line"`
	MatchRange  Range   `json:"range"`
	Preview     Preview `json:"preview"`
	IsCrowded   bool    `json:"crowded"`
}

func (h *FileHeaderResult) FilePath() string { return h.File }
func (m *TextMatchResult) FilePath() string  { return m.File }

func (*FileHeaderResult) isResultItem() {}
func (*TextMatchResult) isResultItem()  {}

// Options holds engine tunables. Zero values select the defaults below.
type Options struct {
	BatchSize      int      // Items per emitted batch
	CrowdThreshold int      // Matches per file before results are flagged crowded
	PreviewRadius  int      // Characters kept on each side of a match in previews
	MaxWorkers     int      // Files scanned concurrently
	BufferSize     int      // Candidate channel buffer size
	UseMMap        bool     // Use memory mapping for large files
	MinMMapSize    int64    // Minimum file size for using mmap
	ExcludeGlobs   []string // Doublestar patterns matched against slash paths
}

const (
	DefaultBatchSize      = 20
	DefaultCrowdThreshold = 5
	DefaultPreviewRadius  = 40
	DefaultBufferSize     = 256
	DefaultMinMMapSize    = 1024 * 1024
)

// ProjectModel is the part of the IDE project model the engine needs
type ProjectModel interface {
	SourceDirectories() []string
	ProjectRoot() string
	// ModuleFor returns the label of the module owning path
	ModuleFor(path string) (string, bool)
}

// OpenFileLister is implemented by project models that know which files are open in the editor
type OpenFileLister interface {
	OpenFiles() []string
}
