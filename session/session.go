// Package session holds the state of the one run that may be active at a
// time and orchestrates the harvesting pipeline over it.
package session

import (
	"errors"
	"sync"

	"github.com/use-agent/noteharvest/models"
)

// ErrAlreadyRunning is returned by Start while a run is active. Duplicate
// start requests are rejected, never queued.
var ErrAlreadyRunning = errors.New("session: scrape already running")

// Session is the single source of truth polled by the UI. One writer at a
// time: Start hands out a Run token and only the current token's writes are
// applied, so a stale goroutine can never corrupt a newer run's state.
type Session struct {
	mu        sync.Mutex
	status    models.Status
	current   int
	target    int
	message   string
	articles  []models.Article
	runToken  uint64
	nextToken uint64
}

// Run is the ownership token for one active run.
type Run struct {
	s     *Session
	token uint64
}

// New creates an idle Session.
func New() *Session {
	return &Session{status: models.StatusIdle}
}

// Start transitions idle/completed/error → scraping, resetting progress and
// clearing prior articles. It fails with ErrAlreadyRunning when a run is
// active.
func (s *Session) Start(target int) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == models.StatusScraping {
		return nil, ErrAlreadyRunning
	}

	s.nextToken++
	s.runToken = s.nextToken
	s.status = models.StatusScraping
	s.current = 0
	s.target = target
	s.message = "starting"
	s.articles = nil

	return &Run{s: s, token: s.runToken}, nil
}

// Snapshot returns the current state without altering it. Callable at any
// time, including before any Start.
func (s *Session) Snapshot() models.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SessionSnapshot{
		Status:  s.status,
		Current: s.current,
		Total:   s.target,
		Message: s.message,
	}
}

// Articles returns a copy of the most recent run's article list.
func (s *Session) Articles() []models.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Article, len(s.articles))
	copy(out, s.articles)
	return out
}

// SetProgress updates the progress counter and message.
func (r *Run) SetProgress(current int, message string) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.owns() {
		return
	}
	r.s.current = current
	r.s.message = message
}

// SetArticles records the working article list mid-run.
func (r *Run) SetArticles(articles []models.Article) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.owns() {
		return
	}
	r.s.articles = articles
}

// Complete transitions the run to completed. Terminal until the next Start.
func (r *Run) Complete(articles []models.Article, message string) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.owns() {
		return
	}
	r.s.status = models.StatusCompleted
	r.s.articles = articles
	r.s.current = len(articles)
	r.s.message = message
}

// Fail transitions the run to error with a descriptive message.
func (r *Run) Fail(message string) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.owns() {
		return
	}
	r.s.status = models.StatusError
	r.s.message = message
}

// owns reports whether this token still identifies the active run.
// Callers hold s.mu.
func (r *Run) owns() bool {
	return r.token == r.s.runToken
}
