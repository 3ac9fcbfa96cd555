// Package search implements the full-page patient and provider search
// views: a shared paged result table, filter prefill from a diverted
// lookup, and row activation that either resumes a backgrounded
// appointment edit or opens the record directly.
package search

import (
	"context"
	"sync"

	"github.com/openclinic/ehr-shell/pkg/logging"
)

// Fetcher loads one page of rows plus the total page count.
type Fetcher[T any] func(ctx context.Context, page int) (rows []T, totalPages int, err error)

// Table is a paged result table. A failed fetch keeps the table usable:
// the rows are cleared, the error is held for rendering, and the previous
// page position survives so retry lands in the same place.
type Table[T any] struct {
	fetch  Fetcher[T]
	logger *logging.Logger

	mu         sync.Mutex
	rows       []T
	page       int
	totalPages int
	lastErr    error
	loaded     bool
}

// NewTable creates a table backed by fetch.
func NewTable[T any](fetch Fetcher[T], logger *logging.Logger) *Table[T] {
	if logger == nil {
		logger = logging.Default()
	}
	return &Table[T]{fetch: fetch, logger: logger}
}

// Load fetches and installs the given page. Pages are zero-based and
// clamped to the known range once a total is available.
func (t *Table[T]) Load(ctx context.Context, page int) error {
	t.mu.Lock()
	if page < 0 {
		page = 0
	}
	if t.loaded && t.totalPages > 0 && page > t.totalPages-1 {
		page = t.totalPages - 1
	}
	t.mu.Unlock()

	rows, totalPages, err := t.fetch(ctx, page)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.rows = nil
		t.lastErr = err
		t.logger.Error("search page load failed", "page", page, "error", err)
		return err
	}
	t.rows = rows
	t.page = page
	t.totalPages = totalPages
	t.lastErr = nil
	t.loaded = true
	return nil
}

// Next advances one page when one exists.
func (t *Table[T]) Next(ctx context.Context) error {
	t.mu.Lock()
	page := t.page
	hasNext := t.loaded && page < t.totalPages-1
	t.mu.Unlock()
	if !hasNext {
		return nil
	}
	return t.Load(ctx, page+1)
}

// Prev steps back one page when one exists.
func (t *Table[T]) Prev(ctx context.Context) error {
	t.mu.Lock()
	page := t.page
	t.mu.Unlock()
	if page == 0 {
		return nil
	}
	return t.Load(ctx, page-1)
}

// Rows returns the current page's rows.
func (t *Table[T]) Rows() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]T(nil), t.rows...)
}

// Page returns the zero-based current page.
func (t *Table[T]) Page() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.page
}

// TotalPages returns the page count from the last successful load.
func (t *Table[T]) TotalPages() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalPages
}

// Err returns the error from the last load, or nil.
func (t *Table[T]) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// HasNext reports whether a later page exists.
func (t *Table[T]) HasNext() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loaded && t.page < t.totalPages-1
}

// HasPrev reports whether an earlier page exists.
func (t *Table[T]) HasPrev() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.page > 0
}
