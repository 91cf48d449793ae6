package logging

import "sync"

// DefaultBufferSize is the default number of problems kept for the run summary.
const DefaultBufferSize = 100

// LogBuffer holds the most recent warnings and errors in a ring buffer.
// The CLI counts them after each run and points at the log file, since
// progress output scrolls them off the console.
type LogBuffer struct {
	entries []Entry
	maxSize int
	start   int // Index of oldest entry
	count   int // Number of entries in buffer
	mu      sync.RWMutex
}

// NewLogBuffer creates a new log buffer with the given maximum size.
func NewLogBuffer(maxSize int) *LogBuffer {
	if maxSize <= 0 {
		maxSize = DefaultBufferSize
	}
	return &LogBuffer{
		entries: make([]Entry, maxSize),
		maxSize: maxSize,
	}
}

// Add adds a log entry to the buffer.
// If the buffer is full, the oldest entry is overwritten.
func (b *LogBuffer) Add(entry Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Calculate the index where the new entry goes
	idx := (b.start + b.count) % b.maxSize
	b.entries[idx] = entry

	if b.count < b.maxSize {
		b.count++
	} else {
		// Buffer is full, advance start to overwrite oldest
		b.start = (b.start + 1) % b.maxSize
	}
}

// Count returns the number of entries at or above the given level.
func (b *LogBuffer) Count(min Level) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for i := 0; i < b.count; i++ {
		if b.entries[(b.start+i)%b.maxSize].Level >= min {
			n++
		}
	}
	return n
}

// Clear removes all entries from the buffer.
func (b *LogBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.start = 0
	b.count = 0
}
