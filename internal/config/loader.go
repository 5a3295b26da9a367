package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"projectsearch/internal/util"
)

var keyMap = map[string]string{
	"scope":           "scope",
	"custom_scope":    "custom_scope",
	"mask":            "masks",
	"masks":           "masks",
	"file_masks":      "masks",
	"exclude":         "exclude",
	"excludes":        "exclude",
	"exclude_globs":   "exclude_globs",
	"exclude_glob":    "exclude_globs",
	"source_dirs":     "source_dirs",
	"source_dir":      "source_dirs",
	"case_sensitive":  "case_sensitive",
	"match_case":      "case_sensitive",
	"whole_word":      "whole_word",
	"regex":           "regex",
	"use_regex":       "regex",
	"batch_size":      "batch_size",
	"crowd_threshold": "crowd_threshold",
	"preview_radius":  "preview_radius",
	"workers":         "workers",
	"jobs":            "workers",
	"use_mmap":        "use_mmap",
	"mmap":            "use_mmap",
	"mmap_min_size":   "mmap_min_size",
	"log_level":       "log_level",
}

// Load reads a .yaml/.yml, .toml or .json config file. An empty path yields an empty File.
func Load(path string) (File, error) {
	var cfg File
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	var raw map[string]any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if decodeErr := yaml.Unmarshal(data, &raw); decodeErr != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, decodeErr)
		}
	case ".toml":
		if decodeErr := toml.Unmarshal(data, &raw); decodeErr != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, decodeErr)
		}
	case ".json":
		if decodeErr := json.Unmarshal(data, &raw); decodeErr != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, decodeErr)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if raw == nil {
		return cfg, nil
	}

	section := make(map[string]any, len(raw))
	for key, value := range raw {
		norm := normalizeKey(key)
		if norm == "search" {
			// values may be nested under a "search" table
			sub, err := toStringKeyMap(value)
			if err != nil {
				return cfg, fmt.Errorf("%s: search: %w", path, err)
			}
			for k, v := range sub {
				canonical, ok := keyMap[normalizeKey(k)]
				if !ok {
					return cfg, fmt.Errorf("%s: unknown key: search.%s", path, k)
				}
				section[canonical] = v
			}
			continue
		}
		canonical, ok := keyMap[norm]
		if !ok {
			return cfg, fmt.Errorf("%s: unknown key: %s", path, key)
		}
		section[canonical] = value
	}

	if err := assign(section, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func assign(section map[string]any, dst *File) error {
	for key, value := range section {
		switch key {
		case "scope", "custom_scope", "log_level":
			str, err := expectString(value, key)
			if err != nil {
				return err
			}
			str = strings.TrimSpace(str)
			switch key {
			case "scope":
				dst.Scope = &str
			case "custom_scope":
				dst.CustomScope = &str
			default:
				dst.LogLevel = &str
			}
		case "masks", "exclude", "exclude_globs", "source_dirs":
			list, err := expectStringList(value, key)
			if err != nil {
				return err
			}
			switch key {
			case "masks":
				dst.Masks = &list
			case "exclude":
				dst.Exclude = &list
			case "exclude_globs":
				dst.ExcludeGlobs = &list
			default:
				dst.SourceDirs = &list
			}
		case "case_sensitive", "whole_word", "regex", "use_mmap":
			b, err := expectBool(value, key)
			if err != nil {
				return err
			}
			switch key {
			case "case_sensitive":
				dst.CaseSensitive = &b
			case "whole_word":
				dst.WholeWord = &b
			case "regex":
				dst.Regex = &b
			default:
				dst.UseMMap = &b
			}
		case "batch_size", "crowd_threshold", "preview_radius", "workers":
			n, err := expectInt(value, key)
			if err != nil {
				return err
			}
			switch key {
			case "batch_size":
				dst.BatchSize = &n
			case "crowd_threshold":
				dst.CrowdThreshold = &n
			case "preview_radius":
				dst.PreviewRadius = &n
			default:
				dst.Workers = &n
			}
		case "mmap_min_size":
			n, err := expectSize(value, key)
			if err != nil {
				return err
			}
			dst.MMapMinSize = &n
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
	}
	return nil
}

func expectString(value any, field string) (string, error) {
	if value == nil {
		return "", fmt.Errorf("%s cannot be null", field)
	}
	if s, ok := value.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("expected string for %s, got %T", field, value)
}

func expectBool(value any, field string) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true, nil
		case "0", "false", "no", "off":
			return false, nil
		}
		return false, fmt.Errorf("invalid boolean value for %s: %q", field, v)
	default:
		return false, fmt.Errorf("expected bool for %s, got %T", field, value)
	}
}

func expectInt(value any, field string) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("expected integer for %s, got %v", field, value)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("invalid integer value for %s: %q", field, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer for %s, got %T", field, value)
	}
}

// expectSize accepts plain byte counts or strings such as "1MB"
func expectSize(value any, field string) (int64, error) {
	if s, ok := value.(string); ok {
		n, err := util.ParseSize(s)
		if err != nil {
			return 0, fmt.Errorf("invalid size for %s: %w", field, err)
		}
		return n, nil
	}
	n, err := expectInt(value, field)
	return int64(n), err
}

func expectStringList(value any, field string) ([]string, error) {
	switch v := value.(type) {
	case string:
		return util.SplitCommaList(v), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, err := expectString(item, field)
			if err != nil {
				return nil, err
			}
			if trimmed := strings.TrimSpace(str); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out, nil
	case []string:
		return append([]string(nil), v...), nil
	default:
		return nil, fmt.Errorf("expected string or list for %s, got %T", field, value)
	}
}

func toStringKeyMap(v any) (map[string]any, error) {
	switch typed := v.(type) {
	case map[string]any:
		return typed, nil
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, value := range typed {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key: %v", k)
			}
			out[key] = value
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected map, got %T", v)
	}
}

func normalizeKey(key string) string {
	norm := strings.ToLower(strings.TrimSpace(key))
	return strings.ReplaceAll(norm, "-", "_")
}
