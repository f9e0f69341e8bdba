package config

import (
	"strings"
	"time"

	"github.com/go-i2p/go-walletkit/lib/params"
	"github.com/samber/oops"
)

// KitConfig is the static configuration a kit is constructed with. It is copied at
// construction; later changes have no effect on a running kit.
type KitConfig struct {
	// Network selects the network to join: mainnet, testnet, signet or regtest
	// Default: testnet
	Network string `yaml:"network"`

	// Directory holds the wallet and chain stores
	// Default: $HOME/.walletkit/data
	Directory string `yaml:"directory"`

	// FilePrefix names the stores: <prefix>.wallet and <prefix>.spvchain
	// Default: walletkit
	FilePrefix string `yaml:"file_prefix"`

	// StartupTimeout bounds storage opening, connectivity setup and the setup
	// completed hook. Blocking synchronization is bounded separately by Sync.Timeout.
	// Default: 30 seconds, 0 disables the bound
	StartupTimeout time.Duration `yaml:"startup_timeout"`

	Wallet  *WalletConfig  `yaml:"wallet"`
	Peers   *PeerConfig    `yaml:"peers"`
	Sync    *SyncConfig    `yaml:"sync"`
	Metrics *MetricsConfig `yaml:"metrics"`
}

// wallet storage and key policy
type WalletConfig struct {
	// ScriptType used for receive addresses
	// Default: P2WPKH
	ScriptType string `yaml:"script_type"`

	// KeyStructure of the deterministic key chains
	// Default: BIP43
	KeyStructure string `yaml:"key_structure"`

	// RecoverCorrupt attempts to rebuild a corrupted wallet store instead of
	// failing startup
	// Default: false
	RecoverCorrupt bool `yaml:"recover_corrupt"`
}

// peer connectivity
type PeerConfig struct {
	// MaxConnections is the number of peers the kit tries to stay connected to
	// Default: 4
	MaxConnections int `yaml:"max_connections"`

	// Nodes are explicit host:port peers; when set, DNS seeds are not used
	Nodes []string `yaml:"nodes"`

	// ConnectLocalhost restricts connectivity to a node on this machine
	// Default: false
	ConnectLocalhost bool `yaml:"connect_localhost"`

	// DialTimeout bounds a single connection attempt
	// Default: 10 seconds
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// ConnectRate is the number of connection attempts allowed per second
	// Default: 2
	ConnectRate float64 `yaml:"connect_rate"`

	// UserAgent announced to peers
	// Default: /walletkit:0.1.0/
	UserAgent string `yaml:"user_agent"`
}

// initial chain synchronization
type SyncConfig struct {
	// BlockingStartup gates Running on initial synchronization
	// Default: true
	BlockingStartup bool `yaml:"blocking_startup"`

	// MinPeers that must be connected before synchronization starts
	// Default: 1
	MinPeers int `yaml:"min_peers"`

	// Timeout bounds blocking synchronization
	// Default: 0 (wait until caught up or stopped)
	Timeout time.Duration `yaml:"timeout"`

	// BatchSize is the number of headers requested per round trip
	// Default: 2000
	BatchSize int `yaml:"batch_size"`

	// PollInterval is how often progress is re-evaluated while waiting for peers
	// Default: 1 second
	PollInterval time.Duration `yaml:"poll_interval"`
}

// prometheus exposition
type MetricsConfig struct {
	// Enabled serves /metrics from the walletkit command
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Address the metrics endpoint listens on
	// Default: 127.0.0.1:9095
	Address string `yaml:"address"`
}

// Validate checks the configuration for values a kit cannot start with.
func (c *KitConfig) Validate() error {
	if c == nil {
		return oops.Errorf("kit configuration is nil")
	}
	if _, err := params.ParseNetwork(c.Network); err != nil {
		return err
	}
	if c.Directory == "" {
		return oops.Errorf("directory must be set")
	}
	if c.FilePrefix == "" || strings.ContainsAny(c.FilePrefix, `/\`) {
		return oops.Errorf("invalid file prefix %q", c.FilePrefix)
	}
	if c.StartupTimeout < 0 {
		return oops.Errorf("startup timeout must not be negative")
	}
	if c.Wallet == nil || c.Peers == nil || c.Sync == nil {
		return oops.Errorf("wallet, peers and sync sections are required")
	}
	if _, err := params.ParseScriptType(c.Wallet.ScriptType); err != nil {
		return err
	}
	if _, err := params.ParseKeyStructure(c.Wallet.KeyStructure); err != nil {
		return err
	}
	if c.Peers.MaxConnections < 1 {
		return oops.Errorf("max connections must be at least 1, got %d", c.Peers.MaxConnections)
	}
	if c.Peers.DialTimeout <= 0 {
		return oops.Errorf("dial timeout must be positive")
	}
	if c.Peers.ConnectRate <= 0 {
		return oops.Errorf("connect rate must be positive")
	}
	if c.Sync.MinPeers < 1 {
		return oops.Errorf("sync min peers must be at least 1, got %d", c.Sync.MinPeers)
	}
	if c.Sync.MinPeers > c.Peers.MaxConnections {
		return oops.Errorf("sync min peers (%d) exceeds max connections (%d)", c.Sync.MinPeers, c.Peers.MaxConnections)
	}
	if c.Sync.BatchSize < 1 {
		return oops.Errorf("sync batch size must be at least 1")
	}
	if c.Sync.PollInterval <= 0 {
		return oops.Errorf("sync poll interval must be positive")
	}
	if c.Sync.Timeout < 0 {
		return oops.Errorf("sync timeout must not be negative")
	}
	return nil
}

// Clone returns a deep copy so a kit never shares mutable configuration with its caller.
func (c *KitConfig) Clone() *KitConfig {
	out := *c
	if c.Wallet != nil {
		w := *c.Wallet
		out.Wallet = &w
	}
	if c.Peers != nil {
		p := *c.Peers
		p.Nodes = append([]string(nil), c.Peers.Nodes...)
		out.Peers = &p
	}
	if c.Sync != nil {
		s := *c.Sync
		out.Sync = &s
	}
	if c.Metrics != nil {
		m := *c.Metrics
		out.Metrics = &m
	}
	return &out
}
