package review

import (
	"strings"
	"sync"

	"github.com/akolanti/DocScanAPI/internal/content"
)

// Buffer is the editable copy of extracted content a user reviews before
// commit. It is seeded once with normalized content and never re-normalizes.
type Buffer struct {
	mu     sync.RWMutex
	fields map[string]any
	seeded bool
	edits  int
}

func NewBuffer() *Buffer {
	return &Buffer{fields: map[string]any{}}
}

// Seed replaces the buffer with a private copy of fields and clears edit tracking.
func (b *Buffer) Seed(fields map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fields = deepCopy(fields)
	b.seeded = true
	b.edits = 0
}

// Edit sets key to value, last write wins. A dotted key addresses a nested
// mapping when the top level has no key spelled exactly that way.
func (b *Buffer) Edit(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fields == nil {
		b.fields = map[string]any{}
	}
	setPath(b.fields, key, value)
	b.edits++
}

// Snapshot returns exactly what a commit persists.
func (b *Buffer) Snapshot() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return deepCopy(b.fields)
}

func (b *Buffer) Rows() []content.Field {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return content.FieldRows(b.fields)
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fields = map[string]any{}
	b.seeded = false
	b.edits = 0
}

func (b *Buffer) Seeded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.seeded
}

// Dirty reports whether any edit happened since the last Seed.
func (b *Buffer) Dirty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.edits > 0
}

func setPath(m map[string]any, key string, value any) {
	if _, ok := m[key]; ok {
		m[key] = value
		return
	}
	head, rest, found := strings.Cut(key, ".")
	if found {
		if child, ok := m[head].(map[string]any); ok {
			setPath(child, rest, value)
			return
		}
	}
	m[key] = value
}

func deepCopy(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopy(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
