// Package diag keeps a small rolling window of diagnostic lines and
// optionally pushes them to a remote relay for off-device debugging.
package diag

import (
	"fmt"
	"sync"
)

const (
	// LineCount is the ring capacity; older lines are overwritten.
	LineCount = 16

	// lineLen caps stored line length so one noisy log call cannot
	// dominate the report.
	lineLen = 104
)

// Ring is a fixed-size rolling buffer of diagnostic lines. Each stored
// line is prefixed with a monotonic sequence number so the remote relay
// can detect gaps between reports. Safe for concurrent use.
type Ring struct {
	mu    sync.Mutex
	seq   uint32
	lines [LineCount]string
	next  int
	count int
}

// NewRing returns an empty ring starting at sequence 1.
func NewRing() *Ring {
	return &Ring{seq: 1}
}

// Append stores one line, evicting the oldest when full.
func (r *Ring) Append(line string) {
	if len(line) > lineLen {
		line = line[:lineLen]
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines[r.next] = fmt.Sprintf("[%d] %s", r.seq, line)
	r.seq++
	r.next = (r.next + 1) % LineCount
	if r.count < LineCount {
		r.count++
	}
}

// Lines returns the stored lines oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, r.count)
	start := (r.next + LineCount - r.count) % LineCount
	for i := 0; i < r.count; i++ {
		out = append(out, r.lines[(start+i)%LineCount])
	}
	return out
}

// Seq returns the next sequence number to be assigned.
func (r *Ring) Seq() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

// Len returns the number of stored lines.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
