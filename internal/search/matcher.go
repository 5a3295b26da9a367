package search

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Compile turns the query and its flags into a matcher.
// It returns nil when there is nothing to search for, including malformed regular expressions.
func Compile(cfg SearchConfig) *regexp.Regexp {
	if cfg.Query == "" {
		return nil
	}

	patternStr := cfg.Query
	if !cfg.UseRegex {
		patternStr = regexp.QuoteMeta(patternStr)
	}
	if cfg.WholeWord {
		patternStr = `\b(?:` + patternStr + `)\b`
	}

	flags := "(?m"
	if !cfg.CaseSensitive {
		flags += "i"
	}
	patternStr = flags + ")" + patternStr

	pattern, err := regexp.Compile(patternStr)
	if err != nil {
		logDebug("Invalid pattern %q: %v", cfg.Query, err)
		return nil
	}
	return pattern
}

// IsExcluded reports whether path must never be scanned.
// Hidden and build segments are checked on path as given; user patterns on the absolute path.
func IsExcluded(path string, cfg SearchConfig) bool {
	return hasExcludedSegment(path) || matchesUserExcludes(path, cfg)
}

// isExcludedBelow applies IsExcluded with the segment rules limited to the part of path
// below root, so directories above the scope root never exclude it.
// A root that is the file itself leaves only its name to check.
func isExcludedBelow(root, path string, cfg SearchConfig) bool {
	rel := path
	if root != "" {
		if r, err := filepath.Rel(root, path); err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			rel = r
		}
	}
	if rel == "." {
		rel = filepath.Base(path)
	}
	return hasExcludedSegment(rel) || matchesUserExcludes(path, cfg)
}

// hasExcludedSegment reports a hidden segment anywhere or a build directory segment
func hasExcludedSegment(path string) bool {
	segs := strings.Split(filepath.ToSlash(path), "/")
	for i, seg := range segs {
		if isHiddenName(seg) {
			return true
		}
		if i < len(segs)-1 && seg == "build" {
			return true
		}
	}
	return false
}

func matchesUserExcludes(path string, cfg SearchConfig) bool {
	if len(cfg.ExcludePatterns) == 0 {
		return false
	}
	abs := path
	if a, err := filepath.Abs(path); err == nil {
		abs = a
	}
	slashed := filepath.ToSlash(abs)
	for _, pattern := range cfg.ExcludePatterns {
		if pattern == "" {
			continue
		}
		if strings.Contains(abs, pattern) || strings.Contains(slashed, pattern) {
			return true
		}
	}
	return false
}

func isHiddenName(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// MatchesMask reports whether the file name of path is accepted by masks
func MatchesMask(path string, masks []string) bool {
	if len(masks) == 0 {
		return true
	}
	for _, mask := range masks {
		if mask == MaskAll {
			return true
		}
	}

	name := filepath.Base(path)
	for _, mask := range masks {
		if strings.HasPrefix(mask, "*.") {
			if strings.HasSuffix(name, mask[1:]) {
				return true
			}
		} else if name == mask {
			return true
		}
	}
	return false
}

// matchesExcludeGlobs checks path against the configured doublestar patterns
func matchesExcludeGlobs(path string, globs []string) bool {
	if len(globs) == 0 {
		return false
	}
	slashed := filepath.ToSlash(path)
	for _, glob := range globs {
		matched, err := doublestar.Match(glob, slashed)
		if err != nil {
			logDebug("Bad exclude glob %q: %v", glob, err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// shouldProcessFile performs the cheap checks before a candidate is opened
func shouldProcessFile(c candidate, cfg SearchConfig, opts Options) bool {
	if isExcludedBelow(c.root, c.path, cfg) {
		logDebug("Skipping excluded file: %s", c.path)
		return false
	}
	if !MatchesMask(c.path, cfg.FileMasks) {
		return false
	}
	if matchesExcludeGlobs(c.path, opts.ExcludeGlobs) {
		logDebug("Skipping file matching exclude glob: %s", c.path)
		return false
	}
	return true
}
