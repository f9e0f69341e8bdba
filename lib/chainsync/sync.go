package chainsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-i2p/go-walletkit/lib/chainstore"
	"github.com/go-i2p/go-walletkit/lib/peergroup"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"golang.org/x/time/rate"
)

var log = logger.GetGoI2PLogger()

const (
	DefaultBatchSize    = 2000
	DefaultPollInterval = time.Second
)

// PeerSource supplies the peers to download from.
type PeerSource interface {
	ConnectedPeers() []peergroup.Peer
}

// Disconnector is implemented by peer sources that can drop a misbehaving peer.
type Disconnector interface {
	Disconnect(addr string) error
}

// HeaderStore is where downloaded headers go.
type HeaderStore interface {
	Height() int64
	Append(headers ...chainstore.Header) error
}

// Progress describes one downloaded batch.
type Progress struct {
	Height int64
	Target int64
	Peer   string
}

type Config struct {
	// MinPeers is the number of connected peers required before downloading.
	MinPeers     int
	BatchSize    int
	PollInterval time.Duration
	OnProgress   func(Progress)
}

// Sync downloads headers until the store has caught up with the best connected
// peer and then keeps following it until cancelled.
type Sync struct {
	peers PeerSource
	store HeaderStore
	cfg   Config

	done     chan struct{}
	doneOnce sync.Once
	stopped  chan struct{}
	cancel   context.CancelFunc
	report   rate.Sometimes

	mu       sync.Mutex
	err      error
	caughtUp bool
}

// Begin starts synchronizing in the background. The returned Sync's Done channel
// closes once the initial download completes, or earlier if it ends without
// completing, in which case Err explains why.
func Begin(ctx context.Context, peers PeerSource, store HeaderStore, cfg Config) *Sync {
	if cfg.MinPeers <= 0 {
		cfg.MinPeers = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Sync{
		peers:   peers,
		store:   store,
		cfg:     cfg,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		cancel:  cancel,
		report:  rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
	log.WithFields(logger.Fields{
		"at":        "chainsync.Begin",
		"height":    store.Height(),
		"min_peers": cfg.MinPeers,
	}).Info("Starting chain synchronization")
	go s.run(ctx)
	return s
}

// Failed returns a Sync that has already ended with err.
func Failed(err error) *Sync {
	s := &Sync{
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		cancel:  func() {},
	}
	close(s.stopped)
	s.finish(err)
	return s
}

// Done is closed exactly once, when the initial download completed or ended early.
func (s *Sync) Done() <-chan struct{} {
	return s.done
}

// Err returns nil while running and after a completed initial download, otherwise
// the reason the sync ended.
func (s *Sync) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// CaughtUp reports whether the initial download completed.
func (s *Sync) CaughtUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caughtUp
}

// Cancel stops the sync and waits for its goroutine to exit.
func (s *Sync) Cancel() {
	s.cancel()
	<-s.stopped
}

func (s *Sync) run(ctx context.Context) {
	defer close(s.stopped)
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		progressed, err := s.step(ctx)
		if err != nil {
			log.WithError(err).Error("Chain synchronization stopped")
			s.finish(err)
			return
		}
		if progressed && ctx.Err() == nil {
			continue
		}
		select {
		case <-ctx.Done():
			s.finish(ctx.Err())
			log.Debug("Chain synchronization cancelled")
			return
		case <-ticker.C:
		}
	}
}

// step downloads one batch from the best peer. It reports whether headers were
// appended; only store failures are returned as errors.
func (s *Sync) step(ctx context.Context) (bool, error) {
	peers := s.peers.ConnectedPeers()
	if len(peers) < s.cfg.MinPeers {
		return false, nil
	}
	best := peers[0]
	for _, p := range peers[1:] {
		if p.BestHeight() > best.BestHeight() {
			best = p
		}
	}

	local, target := s.store.Height(), best.BestHeight()
	if local >= target {
		s.markCaughtUp(local)
		return false, nil
	}

	headers, err := best.GetHeaders(ctx, local+1, s.cfg.BatchSize)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).WithField("peer", best.Addr()).Warn("Header download failed")
			s.drop(best)
		}
		return false, nil
	}
	if len(headers) == 0 {
		return false, nil
	}
	if err := s.store.Append(headers...); err != nil {
		if errors.Is(err, chainstore.ErrNotContiguous) {
			log.WithError(err).WithField("peer", best.Addr()).Warn("Peer sent headers that do not connect")
			s.drop(best)
			return false, nil
		}
		return false, oops.Wrapf(err, "store headers from %s", best.Addr())
	}

	p := Progress{Height: s.store.Height(), Target: target, Peer: best.Addr()}
	s.report.Do(func() {
		log.WithFields(logger.Fields{
			"height": p.Height,
			"target": p.Target,
			"peer":   p.Peer,
		}).Info("Downloading headers")
	})
	if s.cfg.OnProgress != nil {
		s.cfg.OnProgress(p)
	}
	return true, nil
}

func (s *Sync) drop(p peergroup.Peer) {
	if d, ok := s.peers.(Disconnector); ok {
		if err := d.Disconnect(p.Addr()); err != nil {
			log.WithError(err).WithField("peer", p.Addr()).Debug("Error disconnecting peer")
		}
	}
}

func (s *Sync) markCaughtUp(height int64) {
	s.doneOnce.Do(func() {
		s.mu.Lock()
		s.caughtUp = true
		s.mu.Unlock()
		log.WithField("height", height).Info("Chain synchronization caught up")
		close(s.done)
	})
}

func (s *Sync) finish(err error) {
	s.doneOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}
