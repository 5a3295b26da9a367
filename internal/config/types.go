package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"projectsearch/internal/search"
)

// File mirrors a config file. Nil fields were not set.
type File struct {
	Scope          *string
	CustomScope    *string
	Masks          *[]string
	Exclude        *[]string
	ExcludeGlobs   *[]string
	SourceDirs     *[]string
	CaseSensitive  *bool
	WholeWord      *bool
	Regex          *bool
	BatchSize      *int
	CrowdThreshold *int
	PreviewRadius  *int
	Workers        *int
	UseMMap        *bool
	MMapMinSize    *int64
	LogLevel       *string
}

// Settings are the resolved values used to build a search
type Settings struct {
	Scope          search.Scope
	CustomScope    search.CustomScope
	Masks          []string
	Exclude        []string
	ExcludeGlobs   []string
	SourceDirs     []string
	CaseSensitive  bool
	WholeWord      bool
	Regex          bool
	BatchSize      int
	CrowdThreshold int
	PreviewRadius  int
	Workers        int
	UseMMap        bool
	MMapMinSize    int64
	LogLevel       search.LogLevel
}

// FileNames are the config file names looked up by Find, in priority order
var FileNames = []string{
	".projectsearch.yaml",
	".projectsearch.yml",
	".projectsearch.toml",
	".projectsearch.json",
}

// Defaults returns the settings used when nothing is configured
func Defaults() Settings {
	return Settings{
		Scope:          search.ScopeAll,
		CustomScope:    search.AllPlaces,
		BatchSize:      search.DefaultBatchSize,
		CrowdThreshold: search.DefaultCrowdThreshold,
		PreviewRadius:  search.DefaultPreviewRadius,
		UseMMap:        true,
		MMapMinSize:    search.DefaultMinMMapSize,
		LogLevel:       search.INFO,
	}
}

// Apply overlays the values set in f
func (s *Settings) Apply(f File) error {
	if f.Scope != nil {
		scope, err := search.ParseScope(*f.Scope)
		if err != nil {
			return err
		}
		s.Scope = scope
	}
	if f.CustomScope != nil {
		cs, err := search.ParseCustomScope(*f.CustomScope)
		if err != nil {
			return err
		}
		s.CustomScope = cs
	}
	if f.LogLevel != nil {
		level, err := search.ParseLogLevel(*f.LogLevel)
		if err != nil {
			return err
		}
		s.LogLevel = level
	}
	if f.Masks != nil {
		s.Masks = cloneStrings(*f.Masks)
	}
	if f.Exclude != nil {
		s.Exclude = cloneStrings(*f.Exclude)
	}
	if f.ExcludeGlobs != nil {
		s.ExcludeGlobs = cloneStrings(*f.ExcludeGlobs)
	}
	if f.SourceDirs != nil {
		s.SourceDirs = cloneStrings(*f.SourceDirs)
	}
	if f.CaseSensitive != nil {
		s.CaseSensitive = *f.CaseSensitive
	}
	if f.WholeWord != nil {
		s.WholeWord = *f.WholeWord
	}
	if f.Regex != nil {
		s.Regex = *f.Regex
	}
	if f.BatchSize != nil {
		s.BatchSize = *f.BatchSize
	}
	if f.CrowdThreshold != nil {
		s.CrowdThreshold = *f.CrowdThreshold
	}
	if f.PreviewRadius != nil {
		s.PreviewRadius = *f.PreviewRadius
	}
	if f.Workers != nil {
		s.Workers = *f.Workers
	}
	if f.UseMMap != nil {
		s.UseMMap = *f.UseMMap
	}
	if f.MMapMinSize != nil {
		s.MMapMinSize = *f.MMapMinSize
	}
	return nil
}

// Validate rejects values the engine cannot use
func (s Settings) Validate() error {
	var errs []error
	if s.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch_size must be positive, got %d", s.BatchSize))
	}
	if s.CrowdThreshold <= 0 {
		errs = append(errs, fmt.Errorf("crowd_threshold must be positive, got %d", s.CrowdThreshold))
	}
	if s.PreviewRadius <= 0 {
		errs = append(errs, fmt.Errorf("preview_radius must be positive, got %d", s.PreviewRadius))
	}
	if s.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", s.Workers))
	}
	if s.MMapMinSize < 0 {
		errs = append(errs, fmt.Errorf("mmap_min_size must not be negative, got %d", s.MMapMinSize))
	}
	return errors.Join(errs...)
}

// Options converts the engine tunables
func (s Settings) Options() search.Options {
	return search.Options{
		BatchSize:      s.BatchSize,
		CrowdThreshold: s.CrowdThreshold,
		PreviewRadius:  s.PreviewRadius,
		MaxWorkers:     s.Workers,
		UseMMap:        s.UseMMap,
		MinMMapSize:    s.MMapMinSize,
		ExcludeGlobs:   cloneStrings(s.ExcludeGlobs),
	}
}

// Find walks up from start looking for one of FileNames
func Find(start string) (string, bool) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
