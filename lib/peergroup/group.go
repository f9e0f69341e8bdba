package peergroup

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/go-i2p/go-walletkit/lib/params"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var log = logger.GetGoI2PLogger()

const (
	DefaultMaxConnections     = 4
	DefaultConnectRate        = 2
	DefaultRetryBackoff       = 30 * time.Second
	DefaultMaintainInterval   = time.Second
	DefaultRediscoverInterval = 5 * time.Minute
)

// ErrClosed is returned by Start on a closed group.
var ErrClosed = errors.New("peer group is closed")

// Config tunes a PeerGroup. Zero values select the defaults.
type Config struct {
	MaxConnections int
	// ConnectRate limits new connection attempts per second.
	ConnectRate        float64
	RetryBackoff       time.Duration
	MaintainInterval   time.Duration
	RediscoverInterval time.Duration
	// OnPeerCount is called with the number of connected peers after every change.
	OnPeerCount func(int)
}

// PeerGroup keeps up to MaxConnections peers of one network connected.
type PeerGroup struct {
	network   *params.Network
	dialer    Dialer
	discovery Discovery
	cfg       Config
	limiter   *rate.Limiter
	wake      chan struct{}

	mu           sync.Mutex
	maxConns     int
	peers        map[string]Peer
	dialing      map[string]struct{}
	failed       map[string]time.Time
	candidates   []string
	discoveredAt time.Time
	started      bool
	closed       bool
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// New creates a stopped peer group for network.
func New(network *params.Network, dialer Dialer, discovery Discovery, cfg Config) *PeerGroup {
	if cfg.MaxConnections < 0 {
		cfg.MaxConnections = 0
	} else if cfg.MaxConnections == 0 {
		cfg.MaxConnections = DefaultMaxConnections
	}
	if cfg.ConnectRate <= 0 {
		cfg.ConnectRate = DefaultConnectRate
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.MaintainInterval <= 0 {
		cfg.MaintainInterval = DefaultMaintainInterval
	}
	if cfg.RediscoverInterval <= 0 {
		cfg.RediscoverInterval = DefaultRediscoverInterval
	}
	return &PeerGroup{
		network:   network,
		dialer:    dialer,
		discovery: discovery,
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Limit(cfg.ConnectRate), 1),
		wake:      make(chan struct{}, 1),
		maxConns:  cfg.MaxConnections,
		peers:     make(map[string]Peer),
		dialing:   make(map[string]struct{}),
		failed:    make(map[string]time.Time),
	}
}

func (pg *PeerGroup) Network() *params.Network {
	return pg.network
}

// Start launches the maintenance loop. It returns immediately; connections are made
// in the background until ctx is cancelled or the group is closed.
func (pg *PeerGroup) Start(ctx context.Context) error {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	if pg.closed {
		return ErrClosed
	}
	if pg.started {
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	pg.cancel = cancel
	pg.started = true
	pg.wg.Add(1)
	go pg.maintain(loopCtx)

	log.WithFields(logger.Fields{
		"at":              "(PeerGroup) Start",
		"network":         pg.network.Name,
		"max_connections": pg.maxConns,
	}).Info("Peer group started")
	return nil
}

// SetMaxConnections changes the connection limit. Lowering it disconnects surplus
// peers; raising it makes the group connect more.
func (pg *PeerGroup) SetMaxConnections(n int) {
	if n < 0 {
		n = 0
	}
	pg.mu.Lock()
	pg.maxConns = n
	var surplus []Peer
	if len(pg.peers) > n {
		addrs := pg.sortedAddrsLocked()
		for _, a := range addrs[n:] {
			surplus = append(surplus, pg.peers[a])
			delete(pg.peers, a)
		}
	}
	count := len(pg.peers)
	pg.mu.Unlock()

	log.WithFields(logger.Fields{
		"max_connections": n,
		"disconnecting":   len(surplus),
	}).Debug("Connection limit changed")
	for _, p := range surplus {
		closePeer(p)
	}
	if len(surplus) > 0 {
		pg.notify(count)
	}
	pg.poke()
}

func (pg *PeerGroup) MaxConnections() int {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	return pg.maxConns
}

func (pg *PeerGroup) NumConnected() int {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	return len(pg.peers)
}

// ConnectedPeers returns a snapshot of the connected peers ordered by address.
func (pg *PeerGroup) ConnectedPeers() []Peer {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	out := make([]Peer, 0, len(pg.peers))
	for _, a := range pg.sortedAddrsLocked() {
		out = append(out, pg.peers[a])
	}
	return out
}

// Disconnect drops the peer at addr and holds the address back for the retry
// backoff.
func (pg *PeerGroup) Disconnect(addr string) error {
	pg.mu.Lock()
	p, ok := pg.peers[addr]
	if ok {
		delete(pg.peers, addr)
		pg.failed[addr] = time.Now()
	}
	count := len(pg.peers)
	pg.mu.Unlock()
	if !ok {
		return nil
	}
	err := p.Close()
	pg.notify(count)
	pg.poke()
	return err
}

// DisconnectAll closes every connected peer.
func (pg *PeerGroup) DisconnectAll() error {
	pg.mu.Lock()
	peers := pg.peers
	pg.peers = make(map[string]Peer)
	pg.mu.Unlock()

	var errs []error
	for addr, p := range peers {
		if err := p.Close(); err != nil {
			errs = append(errs, oops.Wrapf(err, "close peer %s", addr))
		}
	}
	if len(peers) > 0 {
		log.WithField("peers", len(peers)).Debug("Disconnected all peers")
		pg.notify(0)
	}
	return errors.Join(errs...)
}

// Close stops the maintenance loop and disconnects every peer. Closing a closed
// group is a no-op.
func (pg *PeerGroup) Close() error {
	pg.mu.Lock()
	if pg.closed {
		pg.mu.Unlock()
		return nil
	}
	pg.closed = true
	if pg.cancel != nil {
		pg.cancel()
	}
	pg.mu.Unlock()

	pg.wg.Wait()
	return pg.DisconnectAll()
}

func (pg *PeerGroup) maintain(ctx context.Context) {
	defer pg.wg.Done()
	ticker := time.NewTicker(pg.cfg.MaintainInterval)
	defer ticker.Stop()

	for {
		pg.fill(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-pg.wake:
		}
	}
}

// fill dials enough candidates to reach the connection limit.
func (pg *PeerGroup) fill(ctx context.Context) {
	pg.mu.Lock()
	missing := pg.maxConns - len(pg.peers) - len(pg.dialing)
	pg.mu.Unlock()
	if missing <= 0 || ctx.Err() != nil {
		return
	}

	candidates := pg.refreshCandidates(ctx)
	targets := pg.claim(candidates, missing)
	if len(targets) == 0 {
		return
	}

	var g errgroup.Group
	for _, addr := range targets {
		g.Go(func() error {
			if err := pg.limiter.Wait(ctx); err != nil {
				pg.finishDial(addr, nil, err)
				return nil
			}
			p, err := pg.dialer.Dial(ctx, addr)
			pg.finishDial(addr, p, err)
			return nil
		})
	}
	_ = g.Wait()
}

func (pg *PeerGroup) refreshCandidates(ctx context.Context) []string {
	pg.mu.Lock()
	fresh := len(pg.candidates) > 0 && time.Since(pg.discoveredAt) < pg.cfg.RediscoverInterval
	cached := pg.candidates
	pg.mu.Unlock()
	if fresh {
		return cached
	}

	addrs, err := pg.discovery.Addresses(ctx)
	if err != nil {
		log.WithError(err).WithField("network", pg.network.Name).Debug("Peer discovery failed")
		return cached
	}
	pg.mu.Lock()
	pg.candidates = addrs
	pg.discoveredAt = time.Now()
	pg.mu.Unlock()
	return addrs
}

// claim marks up to n usable candidates as being dialed.
func (pg *PeerGroup) claim(candidates []string, n int) []string {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	var out []string
	for _, addr := range candidates {
		if len(out) == n {
			break
		}
		if _, ok := pg.peers[addr]; ok {
			continue
		}
		if _, ok := pg.dialing[addr]; ok {
			continue
		}
		if at, ok := pg.failed[addr]; ok {
			if time.Since(at) < pg.cfg.RetryBackoff {
				continue
			}
			delete(pg.failed, addr)
		}
		pg.dialing[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

func (pg *PeerGroup) finishDial(addr string, p Peer, err error) {
	pg.mu.Lock()
	delete(pg.dialing, addr)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			pg.failed[addr] = time.Now()
		}
		pg.mu.Unlock()
		log.WithError(err).WithField("addr", addr).Debug("Peer connection failed")
		return
	}
	if pg.closed || len(pg.peers) >= pg.maxConns {
		pg.mu.Unlock()
		closePeer(p)
		return
	}
	pg.peers[addr] = p
	count := len(pg.peers)
	pg.mu.Unlock()

	log.WithFields(logger.Fields{
		"addr":        addr,
		"best_height": p.BestHeight(),
		"connected":   count,
	}).Debug("Peer connected")
	pg.notify(count)
}

func (pg *PeerGroup) sortedAddrsLocked() []string {
	addrs := make([]string, 0, len(pg.peers))
	for a := range pg.peers {
		addrs = append(addrs, a)
	}
	sort.Strings(addrs)
	return addrs
}

func (pg *PeerGroup) notify(count int) {
	if pg.cfg.OnPeerCount != nil {
		pg.cfg.OnPeerCount(count)
	}
}

func (pg *PeerGroup) poke() {
	select {
	case pg.wake <- struct{}{}:
	default:
	}
}

func closePeer(p Peer) {
	if err := p.Close(); err != nil {
		log.WithError(err).WithField("addr", p.Addr()).Debug("Error closing peer")
	}
}
