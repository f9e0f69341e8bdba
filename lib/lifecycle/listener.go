package lifecycle

import (
	"sync"

	"github.com/go-i2p/logger"
)

// Listener observes state transitions. Listeners run on whichever goroutine caused
// the transition, one at a time and in transition order, and may call back into the
// service.
type Listener func(Transition)

// listenerQueue delivers transitions in order without holding the service lock. A
// transition enqueued while another goroutine is dispatching is delivered by that
// goroutine.
type listenerQueue struct {
	mu          sync.Mutex
	listeners   []Listener
	pending     []Transition
	dispatching bool
}

func (q *listenerQueue) add(l Listener) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.listeners = append(q.listeners, l)
}

func (q *listenerQueue) enqueue(t Transition) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, t)
}

func (q *listenerQueue) dispatch() {
	q.mu.Lock()
	if q.dispatching {
		q.mu.Unlock()
		return
	}
	q.dispatching = true
	for len(q.pending) > 0 {
		t := q.pending[0]
		q.pending = q.pending[1:]
		snapshot := make([]Listener, len(q.listeners))
		copy(snapshot, q.listeners)
		q.mu.Unlock()

		for _, l := range snapshot {
			notify(l, t)
		}

		q.mu.Lock()
	}
	q.dispatching = false
	q.mu.Unlock()
}

func notify(l Listener, t Transition) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logger.Fields{
				"at":    "(listenerQueue) notify",
				"from":  t.From.String(),
				"to":    t.To.String(),
				"panic": r,
			}).Error("lifecycle listener panicked")
		}
	}()
	l(t)
}
