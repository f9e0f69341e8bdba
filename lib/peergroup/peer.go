package peergroup

import (
	"context"

	"github.com/go-i2p/go-walletkit/lib/chainstore"
)

// Peer is a connected remote node.
type Peer interface {
	Addr() string
	// BestHeight is the chain height the peer advertised.
	BestHeight() int64
	// GetHeaders returns up to max headers starting at height from.
	GetHeaders(ctx context.Context, from int64, max int) ([]chainstore.Header, error)
	Close() error
}

// Dialer establishes a connection to addr and negotiates a Peer on it.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Peer, error)
}

// Discovery produces candidate peer addresses.
type Discovery interface {
	Addresses(ctx context.Context) ([]string, error)
}
