package kittest

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-i2p/go-walletkit/lib/chainstore"
	"github.com/go-i2p/go-walletkit/lib/params"
	"github.com/go-i2p/go-walletkit/lib/peergroup"
)

// ChainPeer is an in-process peer serving a deterministic chain.
type ChainPeer struct {
	addr  string
	chain []chainstore.Header

	mu     sync.Mutex
	closed bool
}

// NewChainPeer serves height headers on top of network's genesis.
func NewChainPeer(addr string, network *params.Network, height int) *ChainPeer {
	return &ChainPeer{addr: addr, chain: chainstore.Extend(chainstore.GenesisHeader(network), height)}
}

func (p *ChainPeer) Addr() string {
	return p.addr
}

func (p *ChainPeer) BestHeight() int64 {
	return int64(len(p.chain))
}

func (p *ChainPeer) Tip() chainstore.Header {
	return p.chain[len(p.chain)-1]
}

func (p *ChainPeer) GetHeaders(ctx context.Context, from int64, max int) ([]chainstore.Header, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if from < 1 || from > int64(len(p.chain)) {
		return nil, nil
	}
	end := min(from-1+int64(max), int64(len(p.chain)))
	return p.chain[from-1 : end], nil
}

func (p *ChainPeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *ChainPeer) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Dialer connects to ChainPeers by address.
type Dialer map[string]*ChainPeer

func (d Dialer) Dial(ctx context.Context, addr string) (peergroup.Peer, error) {
	p, ok := d[addr]
	if !ok {
		return nil, fmt.Errorf("no route to %s", addr)
	}
	return p, nil
}
