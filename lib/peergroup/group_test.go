package peergroup

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-i2p/go-walletkit/lib/chainstore"
	"github.com/go-i2p/go-walletkit/lib/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPeer struct {
	addr   string
	height int64
	closed atomic.Bool
}

func (p *stubPeer) Addr() string      { return p.addr }
func (p *stubPeer) BestHeight() int64 { return p.height }
func (p *stubPeer) GetHeaders(context.Context, int64, int) ([]chainstore.Header, error) {
	return nil, nil
}

func (p *stubPeer) Close() error {
	p.closed.Store(true)
	return nil
}

type stubDialer struct {
	mu    sync.Mutex
	fail  map[string]bool
	dials map[string]int
	peers []*stubPeer
}

func newStubDialer(failing ...string) *stubDialer {
	d := &stubDialer{fail: map[string]bool{}, dials: map[string]int{}}
	for _, a := range failing {
		d.fail[a] = true
	}
	return d
}

func (d *stubDialer) Dial(ctx context.Context, addr string) (Peer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials[addr]++
	if d.fail[addr] {
		return nil, errors.New("connection refused")
	}
	p := &stubPeer{addr: addr}
	d.peers = append(d.peers, p)
	return p, nil
}

func (d *stubDialer) dialCount(addr string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials[addr]
}

func (d *stubDialer) closedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, p := range d.peers {
		if p.closed.Load() {
			n++
		}
	}
	return n
}

func addrs(n int) StaticDiscovery {
	out := make(StaticDiscovery, n)
	for i := range out {
		out[i] = fmt.Sprintf("10.0.0.%d:18444", i+1)
	}
	return out
}

func testConfig(max int) Config {
	return Config{
		MaxConnections:   max,
		ConnectRate:      1000,
		RetryBackoff:     time.Hour,
		MaintainInterval: 10 * time.Millisecond,
	}
}

func TestFillsToMaxConnections(t *testing.T) {
	var lastCount atomic.Int64
	cfg := testConfig(3)
	cfg.OnPeerCount = func(n int) { lastCount.Store(int64(n)) }

	pg := New(params.Regtest, newStubDialer(), addrs(5), cfg)
	require.NoError(t, pg.Start(context.Background()))
	defer pg.Close()

	assert.Eventually(t, func() bool { return pg.NumConnected() == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return lastCount.Load() == 3 }, time.Second, 5*time.Millisecond)
	// the group never exceeds its limit
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 3, pg.NumConnected())
	assert.Len(t, pg.ConnectedPeers(), 3)
}

func TestSetMaxConnections(t *testing.T) {
	d := newStubDialer()
	pg := New(params.Regtest, d, addrs(5), testConfig(4))
	require.NoError(t, pg.Start(context.Background()))
	defer pg.Close()

	require.Eventually(t, func() bool { return pg.NumConnected() == 4 }, 2*time.Second, 5*time.Millisecond)

	pg.SetMaxConnections(1)
	assert.Equal(t, 1, pg.MaxConnections())
	assert.Equal(t, 1, pg.NumConnected())
	assert.Equal(t, 3, d.closedCount())

	pg.SetMaxConnections(2)
	assert.Eventually(t, func() bool { return pg.NumConnected() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestSetMaxConnectionsBeforeStart(t *testing.T) {
	pg := New(params.Regtest, newStubDialer(), addrs(5), testConfig(4))
	pg.SetMaxConnections(2)
	require.NoError(t, pg.Start(context.Background()))
	defer pg.Close()

	require.Eventually(t, func() bool { return pg.NumConnected() == 2 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, pg.NumConnected())
}

func TestFailedAddressesBackOff(t *testing.T) {
	disc := addrs(2)
	d := newStubDialer(disc[0])
	pg := New(params.Regtest, d, disc, testConfig(2))
	require.NoError(t, pg.Start(context.Background()))
	defer pg.Close()

	require.Eventually(t, func() bool { return pg.NumConnected() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, d.dialCount(disc[0]))
	assert.Equal(t, 1, pg.NumConnected())
}

func TestDisconnectHoldsAddressBack(t *testing.T) {
	disc := addrs(1)
	d := newStubDialer()
	pg := New(params.Regtest, d, disc, testConfig(1))
	require.NoError(t, pg.Start(context.Background()))
	defer pg.Close()

	require.Eventually(t, func() bool { return pg.NumConnected() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, pg.Disconnect(disc[0]))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, pg.NumConnected())
	assert.Equal(t, 1, d.dialCount(disc[0]))
	require.NoError(t, pg.Disconnect("unknown:1"))
}

func TestDisconnectAllAndClose(t *testing.T) {
	d := newStubDialer()
	pg := New(params.Regtest, d, addrs(3), testConfig(3))
	require.NoError(t, pg.Start(context.Background()))

	require.Eventually(t, func() bool { return pg.NumConnected() == 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, pg.Close())
	assert.Equal(t, 0, pg.NumConnected())
	assert.Equal(t, 3, d.closedCount())

	require.NoError(t, pg.Close())
	require.NoError(t, pg.DisconnectAll())
	assert.ErrorIs(t, pg.Start(context.Background()), ErrClosed)
}

func TestCloseWithoutStart(t *testing.T) {
	pg := New(params.Regtest, newStubDialer(), addrs(1), testConfig(1))
	assert.NoError(t, pg.Close())
}

func TestStopsWhenContextCancelled(t *testing.T) {
	d := newStubDialer()
	ctx, cancel := context.WithCancel(context.Background())
	pg := New(params.Regtest, d, addrs(3), testConfig(1))
	require.NoError(t, pg.Start(ctx))
	defer pg.Close()
	require.Eventually(t, func() bool { return pg.NumConnected() == 1 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	pg.SetMaxConnections(3)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, pg.NumConnected())
}

func TestDiscoveryFor(t *testing.T) {
	local := DiscoveryFor(params.Testnet, []string{"ignored"}, true)
	got, err := local.Addresses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1:18333"}, got)

	nodes := DiscoveryFor(params.Mainnet, []string{"node.example", "10.1.1.1:9999"}, false)
	got, err = nodes.Addresses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"node.example:8333", "10.1.1.1:9999"}, got)

	dns, ok := DiscoveryFor(params.Mainnet, nil, false).(DNSDiscovery)
	require.True(t, ok)
	assert.Equal(t, params.Mainnet.DNSSeeds, dns.Seeds)
	assert.Equal(t, 8333, dns.Port)

	_, err = StaticDiscovery(nil).Addresses(context.Background())
	assert.ErrorIs(t, err, ErrNoAddresses)
}

func TestTCPDialer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()

	d := &TCPDialer{Timeout: time.Second}
	p, err := d.Dial(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.BestHeight())
	assert.Equal(t, ln.Addr().String(), p.Addr())
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	failing := &TCPDialer{
		Timeout: time.Second,
		Handshake: func(context.Context, net.Conn) (Peer, error) {
			return nil, errors.New("version mismatch")
		},
	}
	_, err = failing.Dial(context.Background(), ln.Addr().String())
	assert.Error(t, err)
}
