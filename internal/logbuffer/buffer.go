package logbuffer

import (
	"strings"
	"sync"
)

// Buffer is a thread-safe, append-only sequence of log text chunks.
// Every Reset starts a new generation; cursors and conditional writes from an
// older generation no longer apply.
type Buffer struct {
	mu   sync.RWMutex
	text strings.Builder
	ends []int // end offset of each chunk within text
	gen  uint64
}

// Cursor marks a read position within one generation of a Buffer
type Cursor struct {
	Gen    uint64
	Offset int
}

// New creates an empty buffer
func New() *Buffer {
	return &Buffer{}
}

// Append adds a chunk to the end of the buffer
func (b *Buffer) Append(chunk string) {
	if chunk == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.text.WriteString(chunk)
	b.ends = append(b.ends, b.text.Len())
}

// Reset empties the buffer and returns the new generation
func (b *Buffer) Reset() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.resetLocked()
	return b.gen
}

// ReplaceIf replaces the whole content with text, but only if no Reset has
// happened since gen was obtained. It reports whether the write happened.
func (b *Buffer) ReplaceIf(gen uint64, text string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.gen != gen {
		return false
	}
	b.text.Reset()
	b.ends = b.ends[:0]
	if text != "" {
		b.text.WriteString(text)
		b.ends = append(b.ends, len(text))
	}
	return true
}

// String returns the concatenation of all chunks
func (b *Buffer) String() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text.String()
}

// Chunks returns the chunks in order, sliced out of the stored text
func (b *Buffer) Chunks() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	text := b.text.String()
	result := make([]string, len(b.ends))
	start := 0
	for i, end := range b.ends {
		result[i] = text[start:end]
		start = end
	}
	return result
}

// Len returns the length in bytes of the concatenated text
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text.Len()
}

// Generation returns the current generation
func (b *Buffer) Generation() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.gen
}

// ReadFrom returns the text appended since c and the cursor to resume from.
// If the buffer was reset after c was taken, the whole current text is returned.
func (b *Buffer) ReadFrom(c Cursor) (string, Cursor) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	text := b.text.String()
	next := Cursor{Gen: b.gen, Offset: len(text)}
	if c.Gen != b.gen || c.Offset > len(text) {
		return text, next
	}
	return text[c.Offset:], next
}

func (b *Buffer) resetLocked() {
	b.ends = nil
	b.text.Reset()
	b.gen++
}
