package kittest

import (
	"sync"
)

// Journal records collaborator calls in order.
type Journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *Journal) Record(call string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, call)
}

// Calls returns a copy of the recorded calls.
func (j *Journal) Calls() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

// Count returns how many times call was recorded.
func (j *Journal) Count(call string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, c := range j.calls {
		if c == call {
			n++
		}
	}
	return n
}

// Index returns the position of the first occurrence of call, or -1.
func (j *Journal) Index(call string) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i, c := range j.calls {
		if c == call {
			return i
		}
	}
	return -1
}
