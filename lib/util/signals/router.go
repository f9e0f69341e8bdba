package signals

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// DefaultGracefulTimeout bounds the pre-shutdown handlers.
const DefaultGracefulTimeout = 30 * time.Second

// Handler is called when a signal is received.
type Handler func()

// HandlerID identifies a registered handler for Remove.
type HandlerID int

type registeredHandler struct {
	id HandlerID
	fn Handler
}

// Router dispatches process signals to registered handlers: reload signals
// (SIGHUP) to reload handlers, shutdown signals (SIGINT, SIGTERM) to the
// pre-shutdown handlers and then the interrupt handlers.
type Router struct {
	mu              sync.RWMutex
	reloaders       []registeredHandler
	preShutdown     []registeredHandler
	interrupters    []registeredHandler
	nextID          HandlerID
	gracefulTimeout time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

func NewRouter() *Router {
	return &Router{
		gracefulTimeout: DefaultGracefulTimeout,
		stop:            make(chan struct{}),
	}
}

// OnReload registers f for reload signals. Nil handlers are ignored and return -1.
func (r *Router) OnReload(f Handler) HandlerID {
	return r.register(&r.reloaders, f)
}

// OnInterrupt registers f for shutdown signals.
func (r *Router) OnInterrupt(f Handler) HandlerID {
	return r.register(&r.interrupters, f)
}

// BeforeShutdown registers f to run before the interrupt handlers on a shutdown
// signal. Pre-shutdown handlers run in registration order and, together, for at
// most the graceful timeout.
func (r *Router) BeforeShutdown(f Handler) HandlerID {
	return r.register(&r.preShutdown, f)
}

func (r *Router) register(list *[]registeredHandler, f Handler) HandlerID {
	if f == nil {
		return -1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	*list = append(*list, registeredHandler{id: id, fn: f})
	return id
}

// Remove deregisters the handler with id. Unknown ids are ignored.
func (r *Router) Remove(id HandlerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, list := range []*[]registeredHandler{&r.reloaders, &r.preShutdown, &r.interrupters} {
		for i, h := range *list {
			if h.id == id {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return
			}
		}
	}
}

// SetGracefulTimeout bounds the pre-shutdown handlers. Zero or negative restores
// DefaultGracefulTimeout.
func (r *Router) SetGracefulTimeout(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d <= 0 {
		d = DefaultGracefulTimeout
	}
	r.gracefulTimeout = d
}

// Reload runs the reload handlers.
func (r *Router) Reload() {
	r.mu.RLock()
	handlers := append([]registeredHandler(nil), r.reloaders...)
	r.mu.RUnlock()
	for _, h := range handlers {
		runHandler("reload", h.fn)
	}
}

// Interrupt runs the pre-shutdown handlers, then the interrupt handlers. It reports
// whether the pre-shutdown handlers finished within the graceful timeout.
func (r *Router) Interrupt() bool {
	r.mu.RLock()
	pre := append([]registeredHandler(nil), r.preShutdown...)
	interrupters := append([]registeredHandler(nil), r.interrupters...)
	timeout := r.gracefulTimeout
	r.mu.RUnlock()

	completed := true
	if len(pre) > 0 {
		done := make(chan struct{})
		go func() {
			defer close(done)
			for _, h := range pre {
				runHandler("pre-shutdown", h.fn)
			}
		}()
		select {
		case <-done:
		case <-time.After(timeout):
			log.WithField("timeout", timeout.String()).Warn("Pre-shutdown handlers timed out")
			completed = false
		}
	}

	for _, h := range interrupters {
		runHandler("interrupt", h.fn)
	}
	return completed
}

// Handle subscribes to the process signals and dispatches them until ctx is done
// or Stop is called.
func (r *Router) Handle(ctx context.Context) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, append(append([]os.Signal{}, shutdownSignals...), reloadSignals...)...)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case sig := <-ch:
			log.WithField("signal", sig.String()).Debug("Received signal")
			if isReload(sig) {
				r.Reload()
			} else {
				r.Interrupt()
			}
		}
	}
}

// Stop makes Handle return. Safe to call more than once.
func (r *Router) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

func isReload(sig os.Signal) bool {
	for _, s := range reloadSignals {
		if s == sig {
			return true
		}
	}
	return false
}

func runHandler(kind string, fn Handler) {
	defer func() {
		if p := recover(); p != nil {
			log.WithFields(logger.Fields{
				"at":      "signals.runHandler",
				"handler": kind,
				"panic":   p,
			}).Error("Signal handler panicked")
		}
	}()
	fn()
}
