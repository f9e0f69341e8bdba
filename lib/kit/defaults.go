package kit

import (
	"context"

	"github.com/go-i2p/go-walletkit/lib/chainstore"
	"github.com/go-i2p/go-walletkit/lib/chainsync"
	"github.com/go-i2p/go-walletkit/lib/config"
	"github.com/go-i2p/go-walletkit/lib/params"
	"github.com/go-i2p/go-walletkit/lib/peergroup"
	"github.com/go-i2p/go-walletkit/lib/util"
	"github.com/go-i2p/go-walletkit/lib/walletdb"
	"github.com/samber/oops"
)

// diskStorage keeps the wallet in LevelDB and the chain in Badger.
type diskStorage struct {
	network        *params.Network
	scriptType     params.ScriptType
	keyStructure   params.KeyStructure
	recoverCorrupt bool
}

func (s *diskStorage) OpenWallet(loc Location) (WalletHandle, error) {
	w, err := walletdb.Open(loc.Directory, loc.FilePrefix, walletdb.Options{
		Network:        s.network,
		ScriptType:     s.scriptType,
		KeyStructure:   s.keyStructure,
		RecoverCorrupt: s.recoverCorrupt,
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *diskStorage) OpenChain(loc Location) (ChainHandle, error) {
	path := chainstore.Path(loc.Directory, loc.FilePrefix)
	if !util.CheckFileExists(path) {
		log.WithField("path", path).Info("Creating new chain store")
	}
	c, err := chainstore.Open(loc.Directory, loc.FilePrefix, chainstore.Options{Network: s.network})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// peerConnectivity builds a peergroup.PeerGroup from the peer configuration.
type peerConnectivity struct {
	cfg         config.PeerConfig
	dialer      peergroup.Dialer
	onPeerCount func(int)
}

func (c *peerConnectivity) Create(network *params.Network) PeerHandle {
	dialer := c.dialer
	if dialer == nil {
		dialer = &peergroup.TCPDialer{Timeout: c.cfg.DialTimeout, UserAgent: c.cfg.UserAgent}
	}
	return peergroup.New(network, dialer,
		peergroup.DiscoveryFor(network, c.cfg.Nodes, c.cfg.ConnectLocalhost),
		peergroup.Config{
			MaxConnections: c.cfg.MaxConnections,
			ConnectRate:    c.cfg.ConnectRate,
			OnPeerCount:    c.onPeerCount,
		})
}

// headerSynchronization runs chainsync against the default peer group and chain
// store.
type headerSynchronization struct {
	cfg        config.SyncConfig
	onProgress func(chainsync.Progress)
}

func (h *headerSynchronization) Begin(ctx context.Context, peers PeerHandle, chain ChainHandle) SyncHandle {
	source, ok := peers.(chainsync.PeerSource)
	if !ok {
		return chainsync.Failed(oops.Errorf("peer group %T cannot serve headers", peers))
	}
	store, ok := chain.(chainsync.HeaderStore)
	if !ok {
		return chainsync.Failed(oops.Errorf("chain store %T cannot store headers", chain))
	}
	return chainsync.Begin(ctx, source, store, chainsync.Config{
		MinPeers:     h.cfg.MinPeers,
		BatchSize:    h.cfg.BatchSize,
		PollInterval: h.cfg.PollInterval,
		OnProgress:   h.onProgress,
	})
}
