package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestKitConfigFromViperMatchesDefaults verifies that every key written by
// setDefaults() is read back under the same name by NewKitConfigFromViper().
func TestKitConfigFromViperMatchesDefaults(t *testing.T) {
	viper.Reset()
	setDefaults()

	got := NewKitConfigFromViper()
	want := DefaultKitConfig()

	assert.Equal(t, want.Network, got.Network)
	assert.Equal(t, want.Directory, got.Directory)
	assert.Equal(t, want.FilePrefix, got.FilePrefix)
	assert.Equal(t, want.StartupTimeout, got.StartupTimeout)
	assert.Equal(t, want.Wallet, got.Wallet)
	assert.Empty(t, got.Peers.Nodes)
	assert.Equal(t, want.Peers.MaxConnections, got.Peers.MaxConnections)
	assert.Equal(t, want.Peers.DialTimeout, got.Peers.DialTimeout)
	assert.Equal(t, want.Peers.ConnectRate, got.Peers.ConnectRate)
	assert.Equal(t, want.Peers.UserAgent, got.Peers.UserAgent)
	assert.Equal(t, want.Sync, got.Sync)
	assert.Equal(t, want.Metrics, got.Metrics)
	require.NoError(t, got.Validate())
}

func TestInitConfigReadsExplicitFile(t *testing.T) {
	viper.Reset()
	defer func() { CfgFile = "" }()

	dir := t.TempDir()
	CfgFile = filepath.Join(dir, "kit.yaml")
	content := []byte(`network: regtest
file_prefix: prefix
peers:
  max_connections: 3
  nodes:
    - 127.0.0.1:18444
sync:
  blocking_startup: false
  timeout: 2m
`)
	require.NoError(t, os.WriteFile(CfgFile, content, 0o644))

	require.NoError(t, InitConfig())
	cfg := NewKitConfigFromViper()

	assert.Equal(t, "regtest", cfg.Network)
	assert.Equal(t, "prefix", cfg.FilePrefix)
	assert.Equal(t, 3, cfg.Peers.MaxConnections)
	assert.Equal(t, []string{"127.0.0.1:18444"}, cfg.Peers.Nodes)
	assert.False(t, cfg.Sync.BlockingStartup)
	assert.Equal(t, 2*time.Minute, cfg.Sync.Timeout)
	// untouched keys keep their defaults
	assert.Equal(t, 2000, cfg.Sync.BatchSize)
	assert.Equal(t, "P2WPKH", cfg.Wallet.ScriptType)
}

func TestInitConfigMissingExplicitFile(t *testing.T) {
	viper.Reset()
	defer func() { CfgFile = "" }()

	CfgFile = filepath.Join(t.TempDir(), "missing.yaml")
	assert.Error(t, InitConfig())
}

func TestInitConfigCreatesDefaultFile(t *testing.T) {
	viper.Reset()
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, InitConfig())

	_, err := os.Stat(filepath.Join(home, WALLETKIT_BASE_DIR, "config.yaml"))
	assert.NoError(t, err, "default config file should be created on first run")
	assert.Equal(t, filepath.Join(home, WALLETKIT_BASE_DIR), BuildKitDirPath())
}

func TestReloadKitConfig(t *testing.T) {
	viper.Reset()
	defer func() { CfgFile = "" }()

	CfgFile = filepath.Join(t.TempDir(), "kit.yaml")
	require.NoError(t, os.WriteFile(CfgFile, []byte("peers:\n  max_connections: 3\n"), 0o644))
	require.NoError(t, InitConfig())
	assert.Equal(t, 3, NewKitConfigFromViper().Peers.MaxConnections)

	require.NoError(t, os.WriteFile(CfgFile, []byte("peers:\n  max_connections: 8\n"), 0o644))
	cfg, err := ReloadKitConfig()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Peers.MaxConnections)

	require.NoError(t, os.WriteFile(CfgFile, []byte("peers:\n  max_connections: 0\n"), 0o644))
	_, err = ReloadKitConfig()
	assert.Error(t, err)
}
