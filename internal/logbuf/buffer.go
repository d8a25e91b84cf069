// Package logbuf keeps the most recent log lines in memory for the dashboard.
package logbuf

import (
	"bytes"
	"sync"
)

// DefaultLines is the number of lines kept when New is given zero.
const DefaultLines = 100

// Buffer is an io.Writer that keeps the last N complete lines written to it.
type Buffer struct {
	mu      sync.Mutex
	lines   []string
	next    int
	full    bool
	partial []byte
}

func New(n int) *Buffer {
	if n <= 0 {
		n = DefaultLines
	}
	return &Buffer{lines: make([]string, n)}
}

// Write splits p on newlines. A trailing fragment is held until its newline
// arrives.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	data := p
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			b.partial = append(b.partial, data...)
			break
		}
		line := string(append(b.partial, data[:i]...))
		b.partial = b.partial[:0]
		b.push(line)
		data = data[i+1:]
	}
	return len(p), nil
}

func (b *Buffer) push(line string) {
	b.lines[b.next] = line
	b.next = (b.next + 1) % len(b.lines)
	if b.next == 0 {
		b.full = true
	}
}

// Lines returns the buffered lines, oldest first.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		return append([]string(nil), b.lines[:b.next]...)
	}
	out := make([]string, 0, len(b.lines))
	out = append(out, b.lines[b.next:]...)
	return append(out, b.lines[:b.next]...)
}

// Clear drops every buffered line.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.lines {
		b.lines[i] = ""
	}
	b.next = 0
	b.full = false
	b.partial = b.partial[:0]
}
