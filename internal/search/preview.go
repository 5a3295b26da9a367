package search

import "unicode/utf8"

// BuildPreview cuts a window of radius characters around line[start:end] (character offsets).
// "..." marks each side that was cut. The highlight is left unset when the match does not
// land inside the final text.
func BuildPreview(line string, start, end, radius int) Preview {
	runes := []rune(line)
	n := len(runes)
	if radius < 0 {
		radius = 0
	}

	trimStart := max(0, start-radius)
	if trimStart > n {
		trimStart = n
	}
	trimEnd := min(n, end+radius)
	if trimEnd < trimStart {
		trimEnd = trimStart
	}

	text := string(runes[trimStart:trimEnd])
	prefixLen := 0
	if trimStart > 0 {
		text = ellipsis + text
		prefixLen = len(ellipsis)
	}
	if trimEnd < n {
		text += ellipsis
	}

	preview := Preview{Text: text}
	highlightStart := (start - trimStart) + prefixLen
	highlightEnd := highlightStart + (end - start)
	if highlightStart >= 0 && highlightStart <= highlightEnd && highlightEnd <= utf8.RuneCountInString(text) {
		preview.HighlightStart = highlightStart
		preview.HighlightEnd = highlightEnd
		preview.Highlighted = true
	}
	return preview
}

// Segments splits the preview text into the parts before, inside and after the highlight
func (p Preview) Segments() (before, match, after string) {
	if !p.Highlighted {
		return p.Text, "", ""
	}
	runes := []rune(p.Text)
	return string(runes[:p.HighlightStart]), string(runes[p.HighlightStart:p.HighlightEnd]), string(runes[p.HighlightEnd:])
}
