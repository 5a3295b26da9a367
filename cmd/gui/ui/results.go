package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"projectsearch/internal/search"
)

// resultsModel holds the flattened result stream of the current search
type resultsModel struct {
	mu    sync.RWMutex
	items []search.SearchResultItem
	epoch uint64
	dirty bool
}

// reset clears the items and returns the epoch accepted by add
func (m *resultsModel) reset() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	m.epoch++
	m.dirty = true
	return m.epoch
}

// add appends batch unless a reset happened after epoch was issued
func (m *resultsModel) add(epoch uint64, batch []search.SearchResultItem) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if epoch != m.epoch {
		return false
	}
	m.items = append(m.items, batch...)
	m.dirty = true
	return true
}

func (m *resultsModel) count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *resultsModel) at(i int) (search.SearchResultItem, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i < 0 || i >= len(m.items) {
		return nil, false
	}
	return m.items[i], true
}

// takeDirty reports whether items changed since the last call
func (m *resultsModel) takeDirty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	dirty := m.dirty
	m.dirty = false
	return dirty
}

// ResultsList shows file headers and highlighted match previews
type ResultsList struct {
	List *widget.List

	model resultsModel
	root  string
}

// CreateResultsList creates the list. onActivate receives the file of a selected row.
func CreateResultsList(onActivate func(path string)) *ResultsList {
	r := &ResultsList{}
	r.List = widget.NewList(
		r.model.count,
		func() fyne.CanvasObject {
			return widget.NewRichText(&widget.TextSegment{Text: "Template Text That Is Long Enough", Style: widget.RichTextStyleInline})
		},
		func(i widget.ListItemID, o fyne.CanvasObject) {
			rt := o.(*widget.RichText)
			item, ok := r.model.at(i)
			if !ok {
				rt.Segments = nil
			} else {
				rt.Segments = RowSegments(item, r.root)
			}
			rt.Refresh()
		},
	)

	r.List.OnSelected = func(id widget.ListItemID) {
		if item, ok := r.model.at(id); ok && onActivate != nil {
			onActivate(item.FilePath())
		}
		r.List.UnselectAll()
	}
	return r
}

// SetRoot sets the directory paths are shown relative to
func (r *ResultsList) SetRoot(root string) {
	r.root = root
}

// Reset clears the list for a new search. The returned sink queues batches
// until the next Reset; they become visible on the next Flush.
func (r *ResultsList) Reset() func(batch []search.SearchResultItem) {
	epoch := r.model.reset()
	r.List.Refresh()
	return func(batch []search.SearchResultItem) {
		r.model.add(epoch, batch)
	}
}

// Flush refreshes the list when new items arrived
func (r *ResultsList) Flush() {
	if r.model.takeDirty() {
		r.List.Refresh()
	}
}

// Len is the number of rows
func (r *ResultsList) Len() int {
	return r.model.count()
}

// RowSegments renders one result item as rich text segments
func RowSegments(item search.SearchResultItem, root string) []widget.RichTextSegment {
	switch v := item.(type) {
	case *search.FileHeaderResult:
		segs := []widget.RichTextSegment{
			&widget.TextSegment{Text: displayPath(v.File, root), Style: strongInline()},
		}
		var extra []string
		if v.MatchCount > 0 {
			extra = append(extra, matchCountText(v.MatchCount))
		}
		if v.OwnerLabel != "" {
			extra = append(extra, "["+v.OwnerLabel+"]")
		}
		if len(extra) > 0 {
			segs = append(segs, &widget.TextSegment{Text: "  " + strings.Join(extra, " "), Style: mutedInline()})
		}
		return segs

	case *search.TextMatchResult:
		pos := fmt.Sprintf("    %d:%d  ", v.MatchRange.Start.Line+1, v.MatchRange.Start.Column+1)
		if v.IsCrowded {
			return []widget.RichTextSegment{&widget.TextSegment{Text: strings.TrimRight(pos, " "), Style: mutedInline()}}
		}
		before, hit, after := v.Preview.Segments()
		segs := []widget.RichTextSegment{&widget.TextSegment{Text: pos, Style: mutedInline()}}
		if before != "" {
			segs = append(segs, &widget.TextSegment{Text: before, Style: widget.RichTextStyleInline})
		}
		if hit != "" {
			segs = append(segs, &widget.TextSegment{Text: hit, Style: highlightInline()})
		}
		if after != "" {
			segs = append(segs, &widget.TextSegment{Text: after, Style: widget.RichTextStyleInline})
		}
		return segs
	}
	return nil
}

func matchCountText(n int) string {
	if n == 1 {
		return "1 match"
	}
	return fmt.Sprintf("%d matches", n)
}

func displayPath(path, root string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

func strongInline() widget.RichTextStyle {
	s := widget.RichTextStyleInline
	s.TextStyle = fyne.TextStyle{Bold: true}
	return s
}

func mutedInline() widget.RichTextStyle {
	s := widget.RichTextStyleInline
	s.ColorName = theme.ColorNameDisabled
	return s
}

func highlightInline() widget.RichTextStyle {
	s := widget.RichTextStyleInline
	s.ColorName = theme.ColorNamePrimary
	s.TextStyle = fyne.TextStyle{Bold: true}
	return s
}
