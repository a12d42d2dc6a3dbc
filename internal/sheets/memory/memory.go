// Package memory is an in-process change log used by tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"maasser/internal/sheets"
)

type Journal struct {
	mu      sync.Mutex
	entries []sheets.ChangeEntry
}

var _ sheets.ChangeWriter = (*Journal)(nil)

func New() *Journal {
	return &Journal{}
}

// AppendChange stores the entry and returns a synthetic row reference.
func (j *Journal) AppendChange(ctx context.Context, e sheets.ChangeEntry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return fmt.Sprintf("mem:%d", len(j.entries)), nil
}

// Entries returns a copy of everything appended so far, oldest first.
func (j *Journal) Entries() []sheets.ChangeEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]sheets.ChangeEntry(nil), j.entries...)
}
