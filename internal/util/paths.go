package util

import (
	"path/filepath"
	"strings"
)

// IsWithin reports whether path lies inside dir (or is dir itself)
func IsWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
