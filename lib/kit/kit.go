package kit

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-i2p/go-walletkit/lib/chainsync"
	"github.com/go-i2p/go-walletkit/lib/config"
	"github.com/go-i2p/go-walletkit/lib/lifecycle"
	"github.com/go-i2p/go-walletkit/lib/metrics"
	"github.com/go-i2p/go-walletkit/lib/params"
	"github.com/go-i2p/go-walletkit/lib/peergroup"
	"github.com/go-i2p/logger"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// Kit owns a wallet, its header chain and the peers it synchronizes from, and starts
// and stops them as one service. The embedded Service provides StopAsync,
// AwaitRunning, AwaitTerminated and State.
type Kit struct {
	*lifecycle.Service

	id           uuid.UUID
	cfg          *config.KitConfig
	network      *params.Network
	scriptType   params.ScriptType
	keyStructure params.KeyStructure
	loc          Location

	storage          Storage
	connectivity     Connectivity
	synchronization  Synchronization
	dialer           peergroup.Dialer
	onSetupCompleted func(*Kit)
	registerer       prometheus.Registerer
	metrics          *metrics.KitMetrics

	mu              sync.RWMutex
	blockingStartup bool
	startRequested  bool
	startedAt       time.Time
	setupReached    bool
	wallet          WalletHandle
	chain           ChainHandle
	peers           PeerHandle
	sync            SyncHandle
}

// New validates cfg and returns a kit in state New. cfg is copied; changing it later
// has no effect on the kit.
func New(cfg *config.KitConfig, opts ...Option) (*Kit, error) {
	if err := cfg.Validate(); err != nil {
		return nil, oops.Wrapf(err, "invalid kit configuration")
	}
	cfg = cfg.Clone()
	network, err := params.ParseNetwork(cfg.Network)
	if err != nil {
		return nil, err
	}
	scriptType, err := params.ParseScriptType(cfg.Wallet.ScriptType)
	if err != nil {
		return nil, err
	}
	keyStructure, err := params.ParseKeyStructure(cfg.Wallet.KeyStructure)
	if err != nil {
		return nil, err
	}

	k := &Kit{
		id:              uuid.New(),
		cfg:             cfg,
		network:         network,
		scriptType:      scriptType,
		keyStructure:    keyStructure,
		loc:             Location{Directory: cfg.Directory, FilePrefix: cfg.FilePrefix},
		blockingStartup: cfg.Sync.BlockingStartup,
	}
	for _, opt := range opts {
		opt(k)
	}
	k.metrics = metrics.NewKitMetrics(k.registerer)

	if k.storage == nil {
		k.storage = &diskStorage{
			network:        network,
			scriptType:     scriptType,
			keyStructure:   keyStructure,
			recoverCorrupt: cfg.Wallet.RecoverCorrupt,
		}
	}
	if k.connectivity == nil {
		k.connectivity = &peerConnectivity{
			cfg:         *cfg.Peers,
			dialer:      k.dialer,
			onPeerCount: k.metrics.SetPeers,
		}
	}
	if k.synchronization == nil {
		k.synchronization = &headerSynchronization{
			cfg: *cfg.Sync,
			onProgress: func(p chainsync.Progress) {
				k.metrics.SetChainHeight(p.Height)
			},
		}
	}

	k.Service = lifecycle.NewService(fmt.Sprintf("walletkit[%s]", k.id.String()[:8]), lifecycle.HookFuncs{
		StartUpFunc:  k.startUp,
		ShutDownFunc: k.shutDown,
	})
	k.AddListener(k.observe)
	k.metrics.SetState(lifecycle.New.String(), stateNames())

	log.WithFields(logger.Fields{
		"at":        "kit.New",
		"kit":       k.id.String(),
		"network":   network.Name,
		"directory": cfg.Directory,
		"prefix":    cfg.FilePrefix,
	}).Debug("Created wallet kit")
	return k, nil
}

// ID identifies this kit instance in logs.
func (k *Kit) ID() uuid.UUID {
	return k.id
}

func (k *Kit) Network() *params.Network {
	return k.network
}

// Location returns where the kit's stores live.
func (k *Kit) Location() Location {
	return k.loc
}

// Config returns a copy of the kit's configuration.
func (k *Kit) Config() *config.KitConfig {
	return k.cfg.Clone()
}

// SetBlockingStartup selects whether startup waits for initial synchronization
// before the kit is Running. It may only be called before StartAsync.
func (k *Kit) SetBlockingStartup(blocking bool) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.startRequested || k.State() != lifecycle.New {
		return fmt.Errorf("%w: blocking startup must be chosen before start", lifecycle.ErrIllegalState)
	}
	k.blockingStartup = blocking
	return nil
}

func (k *Kit) BlockingStartup() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.blockingStartup
}

// StartAsync begins startup and returns immediately. Listeners notified of the
// Starting transition may call back into the kit.
func (k *Kit) StartAsync() error {
	k.mu.Lock()
	if k.startRequested {
		k.mu.Unlock()
		return fmt.Errorf("%w: %s was already started", lifecycle.ErrIllegalState, k.Name())
	}
	k.startRequested = true
	k.startedAt = time.Now()
	k.mu.Unlock()

	if err := k.Service.StartAsync(); err != nil {
		k.mu.Lock()
		k.startRequested = false
		k.startedAt = time.Time{}
		k.mu.Unlock()
		return err
	}
	return nil
}

// Wallet returns the wallet store, or nil before startup reached the setup
// completed point and after shutdown.
func (k *Kit) Wallet() WalletHandle {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if !k.setupReached {
		return nil
	}
	return k.wallet
}

// Chain returns the header chain store under the same rules as Wallet.
func (k *Kit) Chain() ChainHandle {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if !k.setupReached {
		return nil
	}
	return k.chain
}

// PeerGroup returns the peer group under the same rules as Wallet.
func (k *Kit) PeerGroup() PeerHandle {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if !k.setupReached {
		return nil
	}
	return k.peers
}

func (k *Kit) observe(t lifecycle.Transition) {
	k.metrics.SetState(t.To.String(), stateNames())
	if t.To == lifecycle.Running {
		k.mu.RLock()
		began := k.startedAt
		k.mu.RUnlock()
		k.metrics.ObserveStartup(time.Since(began))
	}
	fields := logger.Fields{
		"kit":  k.id.String(),
		"from": t.From.String(),
		"to":   t.To.String(),
	}
	if t.Cause != nil {
		log.WithError(t.Cause).WithFields(fields).Warn("Wallet kit state changed")
		return
	}
	log.WithFields(fields).Info("Wallet kit state changed")
}

func stateNames() []string {
	states := lifecycle.States()
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = s.String()
	}
	return out
}
