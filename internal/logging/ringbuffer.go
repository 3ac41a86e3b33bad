package logging

import (
	"bytes"
	"os"
	"sync"
)

// RingBuffer keeps the most recent log records within a byte budget.
// Records are kept whole, so a dump is always valid JSONL. A record larger
// than the budget keeps only its tail.
type RingBuffer struct {
	mu      sync.Mutex
	records [][]byte
	head    int // index of the oldest record
	used    int
	limit   int
	partial []byte // bytes written since the last newline
}

// NewRingBuffer creates a ring buffer holding up to limit bytes.
func NewRingBuffer(limit int) *RingBuffer {
	if limit <= 0 {
		limit = 10 * 1024 * 1024
	}
	return &RingBuffer{limit: limit}
}

// Write implements io.Writer. Each newline ends a record.
func (rb *RingBuffer) Write(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	data := p
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			rb.partial = append(rb.partial, data...)
			break
		}
		rec := append(rb.partial, data[:i+1]...)
		rb.partial = nil
		rb.push(rec)
		data = data[i+1:]
	}
	return len(p), nil
}

// push appends rec and evicts the oldest records until the budget holds.
func (rb *RingBuffer) push(rec []byte) {
	if len(rec) > rb.limit {
		rec = rec[len(rec)-rb.limit:]
	}
	rec = bytes.Clone(rec)
	rb.records = append(rb.records, rec)
	rb.used += len(rec)
	for rb.used > rb.limit {
		rb.used -= len(rb.records[rb.head])
		rb.records[rb.head] = nil
		rb.head++
	}
	// Compact once the evicted prefix dominates the slice.
	if rb.head > len(rb.records)/2 {
		rb.records = append([][]byte(nil), rb.records[rb.head:]...)
		rb.head = 0
	}
}

// Bytes returns the complete records in the order they were written.
func (rb *RingBuffer) Bytes() []byte {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	out := make([]byte, 0, rb.used)
	for _, rec := range rb.records[rb.head:] {
		out = append(out, rec...)
	}
	return out
}

// Len returns the number of complete records held.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return len(rb.records) - rb.head
}

// DumpToFile writes the buffered records to path.
func (rb *RingBuffer) DumpToFile(path string) error {
	return os.WriteFile(path, rb.Bytes(), 0o644)
}
