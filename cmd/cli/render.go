package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"projectsearch/internal/search"
)

const (
	ansiBold    = "\x1b[1m"
	ansiInverse = "\x1b[7m"
	ansiGreen   = "\x1b[32m"
	ansiDim     = "\x1b[2m"
	ansiReset   = "\x1b[0m"

	cutMark = "..."
)

// renderer writes result batches in one output format
type renderer interface {
	render(batch []search.SearchResultItem) error
	finish(status string) error
}

func newRenderer(format string, w io.Writer, opts renderOptions) (renderer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return &textRenderer{w: w, renderOptions: opts}, nil
	case "ndjson", "jsonl":
		return &ndjsonRenderer{enc: json.NewEncoder(w), renderOptions: opts}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

type renderOptions struct {
	root        string         // paths below root are printed relative to it
	color       bool           // emit ANSI styling
	width       int            // terminal columns, 0 for unlimited
	pattern     *regexp.Regexp // set together with replacement for replace previews
	replacement string
	replace     bool
}

func (o renderOptions) displayPath(path string) string {
	if o.root == "" {
		return path
	}
	rel, err := filepath.Rel(o.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

func (o renderOptions) replaced(match string) (string, bool) {
	if !o.replace || o.pattern == nil {
		return "", false
	}
	return o.pattern.ReplaceAllString(match, o.replacement), true
}

// textRenderer prints one header line per file and one line per match
type textRenderer struct {
	w io.Writer
	renderOptions
}

func (r *textRenderer) render(batch []search.SearchResultItem) error {
	var b strings.Builder
	for _, item := range batch {
		switch v := item.(type) {
		case *search.FileHeaderResult:
			b.WriteString(r.header(v))
		case *search.TextMatchResult:
			b.WriteString(r.match(v))
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(r.w, b.String())
	return err
}

func (r *textRenderer) header(h *search.FileHeaderResult) string {
	var b strings.Builder
	path := r.displayPath(h.File)
	if r.color {
		b.WriteString(ansiBold + path + ansiReset)
	} else {
		b.WriteString(path)
	}
	switch {
	case h.MatchCount == 1:
		b.WriteString(" (1 match)")
	case h.MatchCount > 1:
		fmt.Fprintf(&b, " (%d matches)", h.MatchCount)
	}
	if h.OwnerLabel != "" {
		b.WriteString(" [" + h.OwnerLabel + "]")
	}
	return b.String()
}

func (r *textRenderer) match(m *search.TextMatchResult) string {
	prefix := fmt.Sprintf("  %d:%d", m.MatchRange.Start.Line+1, m.MatchRange.Start.Column+1)
	if m.IsCrowded {
		if r.color {
			return ansiDim + prefix + ansiReset
		}
		return prefix
	}
	prefix += "  "

	before, hit, after := m.Preview.Segments()
	repl, replacing := r.replaced(hit)

	budget := 0
	if r.width > 0 {
		budget = r.width - visibleWidth(prefix)
		if replacing {
			budget -= visibleWidth(repl) + 4
		}
		if budget < 1 {
			budget = 1
		}
	}
	before, hit, after = fitSegments(before, hit, after, budget)

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString(before)
	switch {
	case r.color && replacing:
		b.WriteString(ansiInverse + hit + ansiReset + ansiGreen + "{" + repl + "}" + ansiReset)
	case r.color:
		b.WriteString(ansiInverse + hit + ansiReset)
	case replacing:
		b.WriteString("[" + hit + "=>" + repl + "]")
	default:
		b.WriteString(hit)
	}
	b.WriteString(after)
	return b.String()
}

func (r *textRenderer) finish(status string) error {
	if status == "" {
		return nil
	}
	_, err := fmt.Fprintf(r.w, "\n%s\n", status)
	return err
}

// ndjsonRenderer writes one JSON object per result item
type ndjsonRenderer struct {
	enc *json.Encoder
	renderOptions
}

type fileRecord struct {
	Type string `json:"type"`
	*search.FileHeaderResult
}

type matchRecord struct {
	Type string `json:"type"`
	*search.TextMatchResult
	Replacement *string `json:"replacement,omitempty"`
}

type summaryRecord struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

func (r *ndjsonRenderer) render(batch []search.SearchResultItem) error {
	for _, item := range batch {
		var rec any
		switch v := item.(type) {
		case *search.FileHeaderResult:
			rec = fileRecord{Type: "file", FileHeaderResult: v}
		case *search.TextMatchResult:
			mr := matchRecord{Type: "match", TextMatchResult: v}
			_, hit, _ := v.Preview.Segments()
			if repl, ok := r.replaced(hit); ok {
				mr.Replacement = &repl
			}
			rec = mr
		default:
			continue
		}
		if err := r.enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

func (r *ndjsonRenderer) finish(status string) error {
	return r.enc.Encode(summaryRecord{Type: "summary", Status: status})
}

// visibleWidth returns the terminal display width of s
func visibleWidth(s string) int {
	width := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		width += runewidth.StringWidth(g.Str())
	}
	return width
}

func graphemes(s string) []string {
	var out []string
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}

// truncateRight keeps the start of s within w columns, marking the cut
func truncateRight(s string, w int) string {
	if visibleWidth(s) <= w {
		return s
	}
	markW := runewidth.StringWidth(cutMark)
	if w <= markW {
		return ""
	}
	var b strings.Builder
	used := 0
	for _, seg := range graphemes(s) {
		segW := runewidth.StringWidth(seg)
		if used+segW > w-markW {
			break
		}
		b.WriteString(seg)
		used += segW
	}
	return b.String() + cutMark
}

// truncateLeft keeps the end of s within w columns, marking the cut
func truncateLeft(s string, w int) string {
	if visibleWidth(s) <= w {
		return s
	}
	markW := runewidth.StringWidth(cutMark)
	if w <= markW {
		return ""
	}
	segs := graphemes(s)
	used, start := 0, len(segs)
	for start > 0 {
		segW := runewidth.StringWidth(segs[start-1])
		if used+segW > w-markW {
			break
		}
		used += segW
		start--
	}
	return cutMark + strings.Join(segs[start:], "")
}

// fitSegments shrinks the context around the match so the three parts fit width columns.
// The match itself is only cut when it alone is wider than width. width <= 0 disables fitting.
func fitSegments(before, match, after string, width int) (string, string, string) {
	if width <= 0 {
		return before, match, after
	}
	bw, mw, aw := visibleWidth(before), visibleWidth(match), visibleWidth(after)
	if bw+mw+aw <= width {
		return before, match, after
	}
	if mw >= width {
		return "", truncateRight(match, width), ""
	}

	rest := width - mw
	keepAfter := min(aw, rest/2)
	keepBefore := min(bw, rest-keepAfter)
	keepAfter = min(aw, rest-keepBefore)
	return truncateLeft(before, keepBefore), match, truncateRight(after, keepAfter)
}
