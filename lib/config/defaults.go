package config

import (
	"path/filepath"
	"time"

	"github.com/go-i2p/go-walletkit/lib/params"
)

const (
	DefaultFilePrefix     = "walletkit"
	DefaultMaxConnections = 4
	DefaultUserAgent      = "/walletkit:0.1.0/"
)

func defaultDataDir() string {
	return filepath.Join(BuildKitDirPath(), "data")
}

// DefaultKitConfig returns a fresh configuration populated with defaults.
func DefaultKitConfig() *KitConfig {
	return &KitConfig{
		Network:        params.Testnet.Name,
		Directory:      defaultDataDir(),
		FilePrefix:     DefaultFilePrefix,
		StartupTimeout: 30 * time.Second,
		Wallet: &WalletConfig{
			ScriptType:   string(params.P2WPKH),
			KeyStructure: string(params.BIP43),
		},
		Peers: &PeerConfig{
			MaxConnections: DefaultMaxConnections,
			Nodes:          []string{},
			DialTimeout:    10 * time.Second,
			ConnectRate:    2,
			UserAgent:      DefaultUserAgent,
		},
		Sync: &SyncConfig{
			BlockingStartup: true,
			MinPeers:        1,
			BatchSize:       2000,
			PollInterval:    time.Second,
		},
		Metrics: &MetricsConfig{
			Address: "127.0.0.1:9095",
		},
	}
}
