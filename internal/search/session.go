package search

import (
	"context"
	"fmt"
	"sync"
)

const (
	StatusIdle      = ""
	StatusSearching = "Searching..."
	StatusNoMatches = "No matches found"
	StatusCancelled = "Search cancelled"
)

// Session owns the current search of one search panel.
// Starting a search supersedes the previous one: its batches are never delivered afterwards.
//
// Callbacks run on the search goroutine and must not call Start or Stop synchronously.
type Session struct {
	project ProjectModel
	opts    Options

	// deliverMu serialises batch delivery and status callbacks against Start/Stop
	// so a superseded search cannot deliver after its successor started.
	deliverMu sync.Mutex

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	results    []SearchResultItem
	status     string
	searching  bool
	onStatus   func(string)
}

// NewSession creates a session searching project with opts
func NewSession(project ProjectModel, opts Options) *Session {
	return &Session{project: project, opts: opts}
}

// OnStatus registers a callback receiving every status change
func (s *Session) OnStatus(fn func(status string)) {
	s.mu.Lock()
	s.onStatus = fn
	s.mu.Unlock()
}

// Start cancels any running search and begins a new one.
// onBatch, when set, receives each batch in order.
func (s *Session) Start(cfg SearchConfig, onBatch func([]SearchResultItem)) {
	s.deliverMu.Lock()
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	gen := s.generation
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.results = nil
	s.searching = true
	notify := s.setStatusLocked(StatusSearching)
	s.mu.Unlock()
	notify()
	s.deliverMu.Unlock()

	batches := Search(ctx, cfg, s.project, s.opts)
	scope := cfg.Scope

	go func() {
		defer close(done)
		defer cancel()

		for batch := range batches {
			s.deliver(gen, batch, onBatch)
		}

		s.deliverMu.Lock()
		defer s.deliverMu.Unlock()
		s.mu.Lock()
		if s.generation != gen || ctx.Err() != nil {
			s.mu.Unlock()
			return
		}
		s.searching = false
		notify := s.setStatusLocked(summarize(s.results, scope))
		s.mu.Unlock()
		notify()
	}()
}

func (s *Session) deliver(gen uint64, batch []SearchResultItem, onBatch func([]SearchResultItem)) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.results = append(s.results, batch...)
	s.mu.Unlock()

	if onBatch != nil {
		onBatch(batch)
	}
}

// Stop cancels the running search, if any
func (s *Session) Stop() {
	s.deliverMu.Lock()
	s.mu.Lock()
	if s.cancel == nil || !s.searching {
		s.mu.Unlock()
		s.deliverMu.Unlock()
		return
	}
	s.cancel()
	s.generation++
	s.searching = false
	notify := s.setStatusLocked(StatusCancelled)
	s.mu.Unlock()
	notify()
	s.deliverMu.Unlock()
}

// Wait blocks until the most recently started search has finished
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Results returns a copy of everything delivered by the current search
func (s *Session) Results() []SearchResultItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SearchResultItem(nil), s.results...)
}

// Status returns the progress text of the current search
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Searching reports whether a search is in flight
func (s *Session) Searching() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searching
}

// setStatusLocked stores status and returns the notification to run after unlocking
func (s *Session) setStatusLocked(status string) func() {
	s.status = status
	fn := s.onStatus
	return func() {
		if fn != nil {
			fn(status)
		}
	}
}

// summarize builds the final status line for a completed search
func summarize(results []SearchResultItem, scope Scope) string {
	files, matches := 0, 0
	for _, item := range results {
		switch item.(type) {
		case *FileHeaderResult:
			files++
		case *TextMatchResult:
			matches++
		}
	}
	if scope == ScopeFile {
		if files == 0 {
			return StatusNoMatches
		}
		return fmt.Sprintf("Found %d files", files)
	}
	if matches == 0 {
		return StatusNoMatches
	}
	return fmt.Sprintf("Found %d matches", matches)
}
