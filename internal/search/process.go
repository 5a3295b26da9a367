package search

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"regexp"
	"unicode/utf8"

	"github.com/edsrzf/mmap-go"
)

var errNotText = errors.New("not a UTF-8 text file")

// ctxCheckInterval is how many lines are scanned between cancellation checks
const ctxCheckInterval = 64

// lineMatcher accumulates the matches of one file
type lineMatcher struct {
	path    string
	pattern *regexp.Regexp
	opts    Options
	count   int
	results []TextMatchResult
}

// scanLine records every match in line. line must not include the line terminator.
func (lm *lineMatcher) scanLine(lineIndex int, line []byte) error {
	if !utf8.Valid(line) {
		return errNotText
	}
	locs := lm.pattern.FindAllIndex(line, -1)
	if len(locs) == 0 {
		return nil
	}

	text := string(line)
	for _, loc := range locs {
		lm.count++
		startCol := utf8.RuneCount(line[:loc[0]])
		endCol := startCol + utf8.RuneCount(line[loc[0]:loc[1]])

		lm.results = append(lm.results, TextMatchResult{
			File:        lm.path,
			LineIndex:   lineIndex,
			LineContent: text,
			MatchRange: Range{
				Start: Position{Line: lineIndex, Column: startCol},
				End:   Position{Line: lineIndex, Column: endCol},
			},
			Preview:   BuildPreview(text, startCol, endCol, lm.opts.PreviewRadius),
			IsCrowded: lm.count > lm.opts.CrowdThreshold,
		})
	}
	return nil
}

// scanFile returns the matches of pattern in path in line then column order.
// Binary or non UTF-8 files yield no matches and no error.
func scanFile(ctx context.Context, path string, pattern *regexp.Regexp, opts Options) ([]TextMatchResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}

	lm := &lineMatcher{path: path, pattern: pattern, opts: opts}

	if opts.UseMMap && info.Size() >= opts.MinMMapSize && info.Size() > 0 {
		err = processByMMap(ctx, f, lm)
		if err == nil || errors.Is(err, errNotText) || ctx.Err() != nil {
			return finishScan(lm, err)
		}
		// mmap can fail on special filesystems; fall back to buffered reads
		logDebug("mmap failed for %s, using buffered read: %v", path, err)
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		lm.count, lm.results = 0, nil
	}

	return finishScan(lm, processByReader(ctx, f, lm))
}

func finishScan(lm *lineMatcher, err error) ([]TextMatchResult, error) {
	if errors.Is(err, errNotText) {
		logDebug("Skipping non-text file: %s", lm.path)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lm.results, nil
}

// processByReader streams the file through a pooled buffered reader
func processByReader(ctx context.Context, f *os.File, lm *lineMatcher) error {
	r := readerPool.Get().(*bufio.Reader)
	r.Reset(f)
	defer func() {
		r.Reset(nil)
		readerPool.Put(r)
	}()

	head, err := r.Peek(sniffSize)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return err
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return errNotText
	}

	for lineIndex := 0; ; lineIndex++ {
		if lineIndex%ctxCheckInterval == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		line, err := r.ReadBytes('\n')
		if len(line) == 0 && err == io.EOF {
			return nil
		}
		if err != nil && err != io.EOF {
			return err
		}
		if scanErr := lm.scanLine(lineIndex, trimEOL(line)); scanErr != nil {
			return scanErr
		}
		if err == io.EOF {
			return nil
		}
	}
}

// processByMMap scans a memory mapped file without copying it onto the heap
func processByMMap(ctx context.Context, f *os.File, lm *lineMatcher) error {
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return err
	}
	defer data.Unmap()

	head := data
	if len(head) > sniffSize {
		head = head[:sniffSize]
	}
	if bytes.IndexByte(head, 0) >= 0 {
		return errNotText
	}

	rest := []byte(data)
	for lineIndex := 0; len(rest) > 0; lineIndex++ {
		if lineIndex%ctxCheckInterval == 0 && ctx.Err() != nil {
			return ctx.Err()
		}
		var line []byte
		if i := bytes.IndexByte(rest, '\n'); i >= 0 {
			line, rest = rest[:i+1], rest[i+1:]
		} else {
			line, rest = rest, nil
		}
		if err := lm.scanLine(lineIndex, trimEOL(line)); err != nil {
			return err
		}
	}
	return nil
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte{'\n'})
	return bytes.TrimSuffix(line, []byte{'\r'})
}
