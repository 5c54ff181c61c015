// Package history keeps a bounded stack of image states for linear undo.
// Entries are deep copies, so later edits to the working image never
// corrupt saved states.
package history

import (
	"errors"
	"sync"

	img "card-retouch/internal/image"
)

// DefaultCapacity bounds memory use; card scans are large and each entry
// is a full pixel copy.
const DefaultCapacity = 5

var (
	ErrNoUndo = errors.New("nothing to undo")
	ErrEmpty  = errors.New("history is empty")
)

// Entry pairs a snapshot with the edit that produced it.
type Entry struct {
	Image       *img.Buffer
	Description string
}

// Manager is a bounded linear undo history. Pushing after an undo
// discards everything forward of the current position; exceeding capacity
// evicts the oldest state. Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
	current  int
}

// New builds a manager with the given capacity, or DefaultCapacity when
// the argument is not positive.
func New(capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{capacity: capacity, current: -1}
}

// Push records a new state as the current one. Any states forward of the
// current position are discarded first.
func (m *Manager) Push(b *img.Buffer, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = m.entries[:m.current+1]
	m.entries = append(m.entries, Entry{Image: b.Clone(), Description: description})
	if len(m.entries) > m.capacity {
		m.entries = m.entries[1:]
	}
	m.current = len(m.entries) - 1
}

// Current returns a copy of the active state.
func (m *Manager) Current() (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current < 0 {
		return Entry{}, ErrEmpty
	}
	return m.entryCopy(m.current), nil
}

// Undo steps back one state and returns a copy of it.
func (m *Manager) Undo() (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current <= 0 {
		return Entry{}, ErrNoUndo
	}
	m.current--
	return m.entryCopy(m.current), nil
}

// CanUndo reports whether Undo would succeed.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current > 0
}

// Len returns the number of stored states.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Clear drops every stored state.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.current = -1
}

func (m *Manager) entryCopy(i int) Entry {
	e := m.entries[i]
	return Entry{Image: e.Image.Clone(), Description: e.Description}
}
