package kit

import (
	"context"

	"github.com/go-i2p/go-walletkit/lib/params"
)

// Location is where a kit keeps its persistent stores.
type Location struct {
	Directory  string
	FilePrefix string
}

// WalletHandle is an open wallet store.
type WalletHandle interface {
	Close() error
}

// ChainHandle is an open header chain store.
type ChainHandle interface {
	Height() int64
	Close() error
}

// Storage opens the kit's wallet and chain stores.
type Storage interface {
	OpenWallet(loc Location) (WalletHandle, error)
	OpenChain(loc Location) (ChainHandle, error)
}

// PeerHandle is the kit's peer group.
type PeerHandle interface {
	Start(ctx context.Context) error
	SetMaxConnections(n int)
	MaxConnections() int
	NumConnected() int
	DisconnectAll() error
	Close() error
}

// Connectivity creates the peer group for a network.
type Connectivity interface {
	Create(network *params.Network) PeerHandle
}

// SyncHandle is a running chain synchronization. Done closes once, when the initial
// download completed (Err is nil) or ended early (Err says why).
type SyncHandle interface {
	Done() <-chan struct{}
	Err() error
	Cancel()
}

// Synchronization begins downloading the chain from peers into chain.
type Synchronization interface {
	Begin(ctx context.Context, peers PeerHandle, chain ChainHandle) SyncHandle
}

// optional capabilities of the default stores
type (
	freshWallet interface {
		Fresh() bool
	}
	heightRecorder interface {
		SetLastSeenHeight(height int64) error
	}
	resettableChain interface {
		Reset() error
	}
)
