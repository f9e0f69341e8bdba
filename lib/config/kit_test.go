package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKitConfigIsValid(t *testing.T) {
	cfg := DefaultKitConfig()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Sync.BlockingStartup, "blocking startup is the default")
	assert.Equal(t, "testnet", cfg.Network)
	assert.NotSame(t, DefaultKitConfig(), cfg, "every call returns a fresh copy")
}

func TestKitConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*KitConfig)
	}{
		{"unknown network", func(c *KitConfig) { c.Network = "moonnet" }},
		{"empty directory", func(c *KitConfig) { c.Directory = "" }},
		{"prefix with separator", func(c *KitConfig) { c.FilePrefix = "a/b" }},
		{"empty prefix", func(c *KitConfig) { c.FilePrefix = "" }},
		{"negative startup timeout", func(c *KitConfig) { c.StartupTimeout = -time.Second }},
		{"bad script type", func(c *KitConfig) { c.Wallet.ScriptType = "P2SH" }},
		{"bad key structure", func(c *KitConfig) { c.Wallet.KeyStructure = "BIP99" }},
		{"zero connections", func(c *KitConfig) { c.Peers.MaxConnections = 0 }},
		{"zero dial timeout", func(c *KitConfig) { c.Peers.DialTimeout = 0 }},
		{"zero connect rate", func(c *KitConfig) { c.Peers.ConnectRate = 0 }},
		{"zero min peers", func(c *KitConfig) { c.Sync.MinPeers = 0 }},
		{"min peers above max connections", func(c *KitConfig) { c.Sync.MinPeers = c.Peers.MaxConnections + 1 }},
		{"zero batch", func(c *KitConfig) { c.Sync.BatchSize = 0 }},
		{"zero poll interval", func(c *KitConfig) { c.Sync.PollInterval = 0 }},
		{"negative sync timeout", func(c *KitConfig) { c.Sync.Timeout = -1 }},
		{"missing section", func(c *KitConfig) { c.Sync = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultKitConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	var nilCfg *KitConfig
	assert.Error(t, nilCfg.Validate())
}

func TestKitConfigClone(t *testing.T) {
	cfg := DefaultKitConfig()
	cfg.Peers.Nodes = []string{"10.0.0.1:18333"}

	clone := cfg.Clone()
	clone.Peers.MaxConnections = 9
	clone.Peers.Nodes[0] = "changed"
	clone.Sync.BlockingStartup = false
	clone.Wallet.ScriptType = "P2TR"

	assert.Equal(t, DefaultMaxConnections, cfg.Peers.MaxConnections)
	assert.Equal(t, "10.0.0.1:18333", cfg.Peers.Nodes[0])
	assert.True(t, cfg.Sync.BlockingStartup)
	assert.Equal(t, "P2WPKH", cfg.Wallet.ScriptType)
}
