package kit

import (
	"github.com/go-i2p/go-walletkit/lib/peergroup"
	"github.com/prometheus/client_golang/prometheus"
)

// Option customizes a Kit at construction.
type Option func(*Kit)

// WithSetupCompleted registers fn to run once during startup, after the stores are
// open and the peer group exists but before the peer group connects. fn runs on the
// startup sequence and may tune subsystems through the accessors. Its run time
// counts against the startup timeout: if the timeout elapses first, startup fails
// without waiting for fn, and the accessors return nil once teardown has run.
func WithSetupCompleted(fn func(*Kit)) Option {
	return func(k *Kit) {
		k.onSetupCompleted = fn
	}
}

// WithStorage replaces the LevelDB/Badger stores.
func WithStorage(s Storage) Option {
	return func(k *Kit) {
		k.storage = s
	}
}

// WithConnectivity replaces the peer group factory.
func WithConnectivity(c Connectivity) Option {
	return func(k *Kit) {
		k.connectivity = c
	}
}

// WithSynchronization replaces header synchronization.
func WithSynchronization(s Synchronization) Option {
	return func(k *Kit) {
		k.synchronization = s
	}
}

// WithDialer sets the dialer used by the default peer group.
func WithDialer(d peergroup.Dialer) Option {
	return func(k *Kit) {
		k.dialer = d
	}
}

// WithRegisterer exports the kit's metrics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(k *Kit) {
		k.registerer = reg
	}
}
