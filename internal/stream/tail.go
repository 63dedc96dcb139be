package stream

import (
	"bytes"
	"strings"
	"sync"
)

// Tail is an io.Writer that retains the last lines written through it, up
// to a fixed capacity. It is safe for concurrent writers, so both output
// streams of a command can feed the same Tail while being relayed.
type Tail struct {
	mu       sync.Mutex
	capacity int
	lines    []string
	partial  bytes.Buffer
}

// NewTail creates a Tail retaining at most capacity lines.
func NewTail(capacity int) *Tail {
	return &Tail{capacity: capacity}
}

// Write splits p into lines and retains the most recent ones. It never
// fails.
func (t *Tail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(p)
	for {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			t.partial.Write(p)
			break
		}
		t.partial.Write(p[:i])
		t.push(t.partial.String())
		t.partial.Reset()
		p = p[i+1:]
	}
	return n, nil
}

func (t *Tail) push(line string) {
	if t.capacity == 0 {
		return
	}
	if len(t.lines) == t.capacity {
		copy(t.lines, t.lines[1:])
		t.lines[len(t.lines)-1] = line
		return
	}
	t.lines = append(t.lines, line)
}

// Lines returns the retained lines in arrival order. An unterminated final
// line is included.
func (t *Tail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.lines)+1)
	out = append(out, t.lines...)
	if t.partial.Len() > 0 {
		out = append(out, t.partial.String())
	}
	return out
}

// String returns the retained lines joined with newlines.
func (t *Tail) String() string {
	return strings.Join(t.Lines(), "\n")
}
