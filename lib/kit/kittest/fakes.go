package kittest

import (
	"context"
	"sync"

	"github.com/go-i2p/go-walletkit/lib/kit"
	"github.com/go-i2p/go-walletkit/lib/params"
)

// Storage opens in-memory handles instantly. Set the error fields to make the
// corresponding call fail.
type Storage struct {
	Journal *Journal

	WalletErr      error
	ChainErr       error
	WalletCloseErr error
	ChainCloseErr  error
	ChainHeight    int64
}

func (s *Storage) OpenWallet(loc kit.Location) (kit.WalletHandle, error) {
	s.Journal.Record("wallet.open")
	if s.WalletErr != nil {
		return nil, s.WalletErr
	}
	return &handle{journal: s.Journal, name: "wallet", closeErr: s.WalletCloseErr}, nil
}

func (s *Storage) OpenChain(loc kit.Location) (kit.ChainHandle, error) {
	s.Journal.Record("chain.open")
	if s.ChainErr != nil {
		return nil, s.ChainErr
	}
	return &handle{journal: s.Journal, name: "chain", closeErr: s.ChainCloseErr, height: s.ChainHeight}, nil
}

type handle struct {
	journal  *Journal
	name     string
	closeErr error
	height   int64
}

func (h *handle) Height() int64 {
	return h.height
}

func (h *handle) Close() error {
	h.journal.Record(h.name + ".close")
	return h.closeErr
}

// Connectivity creates PeerGroups that only record what is done to them.
type Connectivity struct {
	Journal *Journal

	StartErr error
	CloseErr error

	mu   sync.Mutex
	last *PeerGroup
}

func (c *Connectivity) Create(network *params.Network) kit.PeerHandle {
	c.Journal.Record("peers.create")
	pg := &PeerGroup{journal: c.Journal, network: network, startErr: c.StartErr, closeErr: c.CloseErr, max: 4}
	c.mu.Lock()
	c.last = pg
	c.mu.Unlock()
	return pg
}

// Last returns the most recently created peer group.
func (c *Connectivity) Last() *PeerGroup {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

type PeerGroup struct {
	journal  *Journal
	network  *params.Network
	startErr error
	closeErr error

	mu  sync.Mutex
	max int
}

func (p *PeerGroup) Network() *params.Network {
	return p.network
}

func (p *PeerGroup) Start(ctx context.Context) error {
	p.journal.Record("peers.start")
	return p.startErr
}

func (p *PeerGroup) SetMaxConnections(n int) {
	p.journal.Record("peers.set_max_connections")
	p.mu.Lock()
	defer p.mu.Unlock()
	p.max = n
}

func (p *PeerGroup) MaxConnections() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.max
}

func (p *PeerGroup) NumConnected() int {
	return 0
}

func (p *PeerGroup) DisconnectAll() error {
	p.journal.Record("peers.disconnect_all")
	return nil
}

func (p *PeerGroup) Close() error {
	p.journal.Record("peers.close")
	return p.closeErr
}

// Synchronization hands out Syncs that never complete on their own; the test
// drives them with Complete or Fail.
type Synchronization struct {
	Journal *Journal

	once  sync.Once
	began chan struct{}
	mu    sync.Mutex
	last  *Sync
}

func (s *Synchronization) init() {
	s.once.Do(func() {
		s.began = make(chan struct{})
	})
}

func (s *Synchronization) Begin(ctx context.Context, peers kit.PeerHandle, chain kit.ChainHandle) kit.SyncHandle {
	s.init()
	s.Journal.Record("sync.begin")
	sh := &Sync{journal: s.Journal, done: make(chan struct{})}
	s.mu.Lock()
	first := s.last == nil
	s.last = sh
	s.mu.Unlock()
	if first {
		close(s.began)
	}
	return sh
}

// Began is closed when the first Sync begins.
func (s *Synchronization) Began() <-chan struct{} {
	s.init()
	return s.began
}

// Last returns the most recent Sync, nil if none began.
func (s *Synchronization) Last() *Sync {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

type Sync struct {
	journal *Journal
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	err     error
}

// Complete signals that the initial download finished.
func (s *Sync) Complete() {
	s.once.Do(func() { close(s.done) })
}

// Fail ends the sync with err.
func (s *Sync) Fail(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}

func (s *Sync) Done() <-chan struct{} {
	return s.done
}

func (s *Sync) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Sync) Cancel() {
	s.journal.Record("sync.cancel")
}

// Fakes bundles a journal with fake collaborators sharing it.
type Fakes struct {
	Journal         *Journal
	Storage         *Storage
	Connectivity    *Connectivity
	Synchronization *Synchronization
}

func NewFakes() *Fakes {
	j := &Journal{}
	return &Fakes{
		Journal:         j,
		Storage:         &Storage{Journal: j},
		Connectivity:    &Connectivity{Journal: j},
		Synchronization: &Synchronization{Journal: j},
	}
}

// Options installs the fakes into a kit.
func (f *Fakes) Options() []kit.Option {
	return []kit.Option{
		kit.WithStorage(f.Storage),
		kit.WithConnectivity(f.Connectivity),
		kit.WithSynchronization(f.Synchronization),
	}
}
