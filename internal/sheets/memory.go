package sheets

import (
	"context"
	"sync"
)

// MemoryBackend keeps worksheets in process memory. It backs tests and
// local dry runs.
type MemoryBackend struct {
	mu     sync.Mutex
	sheets map[string][][]string
	reads  map[string]int
	writes map[string]int

	// FailOn, when set, is consulted before each operation ("ensure",
	// "values", "replace"); a non-nil result is returned as the error.
	FailOn func(op, title string) error
}

// NewMemoryBackend returns an empty backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		sheets: make(map[string][][]string),
		reads:  make(map[string]int),
		writes: make(map[string]int),
	}
}

func (m *MemoryBackend) fail(op, title string) error {
	if m.FailOn == nil {
		return nil
	}
	return m.FailOn(op, title)
}

// EnsureWorksheet implements Backend.
func (m *MemoryBackend) EnsureWorksheet(_ context.Context, title string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ensure", title); err != nil {
		return false, err
	}
	if _, ok := m.sheets[title]; ok {
		return false, nil
	}
	m.sheets[title] = nil
	return true, nil
}

// Values implements Backend.
func (m *MemoryBackend) Values(_ context.Context, title string) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("values", title); err != nil {
		return nil, err
	}
	m.reads[title]++
	return copyRows(m.sheets[title]), nil
}

// Replace implements Backend.
func (m *MemoryBackend) Replace(_ context.Context, title string, rows [][]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("replace", title); err != nil {
		return err
	}
	m.writes[title]++
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			out[i][j] = cellString(cell)
		}
	}
	m.sheets[title] = out
	return nil
}

// Seed sets the raw content of a worksheet, creating it if needed.
func (m *MemoryBackend) Seed(title string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets[title] = copyRows(rows)
}

// Rows returns a copy of the raw worksheet content.
func (m *MemoryBackend) Rows(title string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyRows(m.sheets[title])
}

// Reads returns how many times Values was called for title.
func (m *MemoryBackend) Reads(title string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[title]
}

// Writes returns how many times Replace was called for title.
func (m *MemoryBackend) Writes(title string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[title]
}

func copyRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}
