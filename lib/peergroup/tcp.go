package peergroup

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/go-i2p/go-walletkit/lib/chainstore"
	"github.com/samber/oops"
)

// Handshaker negotiates the peer protocol over an established connection.
type Handshaker func(ctx context.Context, conn net.Conn) (Peer, error)

// TCPDialer connects to peers over TCP.
type TCPDialer struct {
	Timeout   time.Duration
	UserAgent string
	// Handshake defaults to TransportOnly.
	Handshake Handshaker
}

func (d *TCPDialer) Dial(ctx context.Context, addr string) (Peer, error) {
	nd := net.Dialer{Timeout: d.Timeout}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, oops.Wrapf(err, "dial %s", addr)
	}
	hs := d.Handshake
	if hs == nil {
		hs = TransportOnly
	}
	p, err := hs(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, oops.Wrapf(err, "handshake with %s", addr)
	}
	return p, nil
}

// TransportOnly wraps conn without any protocol negotiation. The resulting peer
// advertises height 0 and serves no headers.
func TransportOnly(_ context.Context, conn net.Conn) (Peer, error) {
	return &connPeer{conn: conn}, nil
}

type connPeer struct {
	conn      net.Conn
	closeOnce sync.Once
	closeErr  error
}

func (p *connPeer) Addr() string {
	return p.conn.RemoteAddr().String()
}

func (p *connPeer) BestHeight() int64 {
	return 0
}

func (p *connPeer) GetHeaders(ctx context.Context, from int64, max int) ([]chainstore.Header, error) {
	return nil, ctx.Err()
}

func (p *connPeer) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.conn.Close()
	})
	return p.closeErr
}
