package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// Hooks is the work a Service sequences. StartUp brings the service's resources up
// and must return promptly once ctx is cancelled. ctx is cancelled when a stop is
// requested during startup, otherwise only after ShutDown has returned, so work
// StartUp launches may keep using it while running. ShutDown releases whatever StartUp
// managed to acquire; it is called after a completed startup, after a cancelled
// startup and, for cleanup, after a failed one.
type Hooks interface {
	StartUp(ctx context.Context) error
	ShutDown() error
}

// HookFuncs adapts a pair of functions to Hooks.
type HookFuncs struct {
	StartUpFunc  func(ctx context.Context) error
	ShutDownFunc func() error
}

func (h HookFuncs) StartUp(ctx context.Context) error {
	if h.StartUpFunc == nil {
		return nil
	}
	return h.StartUpFunc(ctx)
}

func (h HookFuncs) ShutDown() error {
	if h.ShutDownFunc == nil {
		return nil
	}
	return h.ShutDownFunc()
}

// Service is an asynchronous start/stop state machine. Startup and shutdown run on a
// goroutine owned by the service, never on the caller's; AwaitRunning and
// AwaitTerminated are the only blocking calls.
//
// A Service runs at most one startup and one shutdown and cannot be restarted.
type Service struct {
	name  string
	hooks Hooks

	mu            sync.Mutex
	state         State
	changed       chan struct{} // closed and replaced on every transition
	failure       error
	stopRequested bool
	cancel        context.CancelFunc
	stopCh        chan struct{}

	listeners listenerQueue
}

// NewService creates a service in state New.
func NewService(name string, hooks Hooks) *Service {
	log.WithField("service", name).Debug("Creating lifecycle service")
	return &Service{
		name:    name,
		hooks:   hooks,
		state:   New,
		changed: make(chan struct{}),
		stopCh:  make(chan struct{}),
	}
}

func (s *Service) Name() string {
	return s.name
}

// State returns the current state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FailureCause returns the recorded startup failure, nil unless the state is Failed.
func (s *Service) FailureCause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// AddListener registers l for all subsequent transitions.
func (s *Service) AddListener(l Listener) {
	if l == nil {
		return
	}
	s.listeners.add(l)
}

// StartAsync moves the service from New to Starting and schedules startup. It returns
// immediately; an error wrapping ErrIllegalState is returned in any other state.
func (s *Service) StartAsync() error {
	s.mu.Lock()
	if s.state != New {
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot start %s while %s", ErrIllegalState, s.name, st)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.transitionLocked(Starting, nil)
	s.mu.Unlock()
	s.listeners.dispatch()

	go s.run(ctx)
	return nil
}

// StopAsync requests termination and returns immediately.
//
// A service that was never started terminates at once. A starting service has its
// startup cancelled and terminates without ever reaching Running. A running service
// moves to Stopping and shuts down. In every other state StopAsync is a no-op.
func (s *Service) StopAsync() {
	s.mu.Lock()
	switch s.state {
	case New:
		s.transitionLocked(Terminated, nil)
	case Starting:
		if !s.stopRequested {
			s.stopRequested = true
			s.cancel()
			log.WithField("service", s.name).Debug("Stop requested during startup, cancelling")
		}
	case Running:
		s.transitionLocked(Stopping, nil)
		close(s.stopCh)
	default:
		log.WithFields(logger.Fields{
			"service": s.name,
			"state":   s.state.String(),
		}).Debug("Stop requested, nothing to do")
	}
	s.mu.Unlock()
	s.listeners.dispatch()
}

// AwaitRunning blocks until the service is Running. It returns the startup failure
// if the service Failed, an error wrapping ErrNotRunning if it was stopped first, or
// ctx.Err() if ctx is done before either happens.
func (s *Service) AwaitRunning(ctx context.Context) error {
	st, err := s.await(ctx, func(st State) bool { return st >= Running })
	if err != nil {
		return err
	}
	switch st {
	case Running:
		return nil
	case Failed:
		return s.FailureCause()
	}
	return fmt.Errorf("%w: %s is %s", ErrNotRunning, s.name, st)
}

// AwaitTerminated blocks until the service reaches a terminal state. Shutdown
// failures are never returned; the startup failure is returned if the service Failed.
func (s *Service) AwaitTerminated(ctx context.Context) error {
	st, err := s.await(ctx, State.IsTerminal)
	if err != nil {
		return err
	}
	if st == Failed {
		return s.FailureCause()
	}
	return nil
}

func (s *Service) await(ctx context.Context, reached func(State) bool) (State, error) {
	for {
		s.mu.Lock()
		st, ch := s.state, s.changed
		s.mu.Unlock()

		if reached(st) {
			return st, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// run is the service's worker: it performs startup, waits for a stop request and
// performs shutdown.
func (s *Service) run(ctx context.Context) {
	defer s.cancel()

	began := time.Now()
	err := s.callStartUp(ctx)

	s.mu.Lock()
	switch {
	case s.stopRequested:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).WithField("service", s.name).Debug("Startup error after stop was requested")
		}
		s.transitionLocked(Stopping, nil)
		s.mu.Unlock()
		s.listeners.dispatch()
		s.shutDown()
		return

	case err != nil:
		s.mu.Unlock()
		failure := s.startupError(err)
		log.WithError(failure).WithFields(logger.Fields{
			"at":      "(Service) run",
			"service": s.name,
			"reason":  "startup_failed",
		}).Error("Service failed to start")
		if cerr := s.callShutDown(); cerr != nil {
			log.WithError(cerr).WithField("service", s.name).Warn("Cleanup after failed startup reported errors")
		}
		s.mu.Lock()
		s.failure = failure
		s.transitionLocked(Failed, failure)
		s.mu.Unlock()
		s.listeners.dispatch()
		return
	}

	s.transitionLocked(Running, nil)
	s.mu.Unlock()
	s.listeners.dispatch()
	log.WithFields(logger.Fields{
		"service": s.name,
		"took":    time.Since(began).String(),
	}).Info("Service running")

	<-s.stopCh
	s.shutDown()
}

func (s *Service) shutDown() {
	if err := s.callShutDown(); err != nil {
		log.WithError(err).WithField("service", s.name).Warn("Shutdown completed with errors")
	}
	s.mu.Lock()
	s.transitionLocked(Terminated, nil)
	s.mu.Unlock()
	s.listeners.dispatch()
}

func (s *Service) startupError(err error) *StartupError {
	var se *StartupError
	if !errors.As(err, &se) {
		se = &StartupError{Cause: err}
	}
	if se.Service == "" {
		se.Service = s.name
	}
	return se
}

func (s *Service) callStartUp(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oops.Errorf("panic during startup of %s: %v", s.name, r)
		}
	}()
	return s.hooks.StartUp(ctx)
}

func (s *Service) callShutDown() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oops.Errorf("panic during shutdown of %s: %v", s.name, r)
		}
	}()
	return s.hooks.ShutDown()
}

// transitionLocked must be called with s.mu held; listeners are notified by the
// caller through s.listeners.dispatch once the lock is released.
func (s *Service) transitionLocked(to State, cause error) {
	from := s.state
	s.state = to
	close(s.changed)
	s.changed = make(chan struct{})
	s.listeners.enqueue(Transition{From: from, To: to, Cause: cause})

	log.WithFields(logger.Fields{
		"at":      "(Service) transition",
		"service": s.name,
		"from":    from.String(),
		"to":      to.String(),
	}).Debug("Lifecycle transition")
}
