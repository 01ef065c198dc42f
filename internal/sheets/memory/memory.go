// Package memory is an in-memory EntryWriter for tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"contas/internal/core"
	ports "contas/internal/sheets"
)

type Writer struct {
	mu      sync.Mutex
	items   []core.Entry
	failing bool
}

var _ ports.EntryWriter = (*Writer)(nil)

func NewWriter() *Writer {
	return &Writer{}
}

// SetFailing makes every subsequent Append return an error.
func (w *Writer) SetFailing(failing bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failing = failing
}

func (w *Writer) Append(_ context.Context, e core.Entry) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.failing {
		return "", fmt.Errorf("append %s: writer failing", e.ID)
	}
	w.items = append(w.items, e)
	return fmt.Sprintf("row-%d", len(w.items)), nil
}

// Items returns a copy of everything appended so far.
func (w *Writer) Items() []core.Entry {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]core.Entry, len(w.items))
	copy(out, w.items)
	return out
}
