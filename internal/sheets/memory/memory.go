// Package memory is an in-process RowAppender for tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"
)

type Appender struct {
	mu   sync.Mutex
	rows [][]any
}

func New() *Appender {
	return &Appender{}
}

// AppendRow stores the row and returns a synthetic reference.
func (a *Appender) AppendRow(_ context.Context, row []any) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = append(a.rows, append([]any(nil), row...))
	return fmt.Sprintf("mem:%d", len(a.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (a *Appender) Rows() [][]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([][]any, len(a.rows))
	for i, r := range a.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}
