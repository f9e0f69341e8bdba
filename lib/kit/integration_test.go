package kit_test

import (
	"os"
	"testing"
	"time"

	"github.com/go-i2p/go-walletkit/lib/config"
	"github.com/go-i2p/go-walletkit/lib/kit"
	"github.com/go-i2p/go-walletkit/lib/kit/kittest"
	"github.com/go-i2p/go-walletkit/lib/lifecycle"
	"github.com/go-i2p/go-walletkit/lib/params"
	"github.com/go-i2p/go-walletkit/lib/walletdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regtestConfig(dir string) *config.KitConfig {
	cfg := config.DefaultKitConfig()
	cfg.Network = "regtest"
	cfg.Directory = dir
	cfg.FilePrefix = "prefix"
	cfg.StartupTimeout = 10 * time.Second
	cfg.Peers.Nodes = []string{"peer-a", "peer-b:18444"}
	cfg.Peers.MaxConnections = 2
	cfg.Peers.ConnectRate = 100
	cfg.Sync.MinPeers = 2
	cfg.Sync.BatchSize = 7
	cfg.Sync.PollInterval = 10 * time.Millisecond
	return cfg
}

func chainPeers(a, b int) kittest.Dialer {
	return kittest.Dialer{
		"peer-a:18444": kittest.NewChainPeer("peer-a:18444", params.Regtest, a),
		"peer-b:18444": kittest.NewChainPeer("peer-b:18444", params.Regtest, b),
	}
}

// runKit starts a kit on the real stores and reports the chain height seen by the
// setup completed hook and once running.
func runKit(t *testing.T, dir string, dialer kittest.Dialer) (atSetup, running int64) {
	t.Helper()
	k, err := kit.New(regtestConfig(dir),
		kit.WithDialer(dialer),
		kit.WithSetupCompleted(func(k *kit.Kit) {
			atSetup = k.Chain().Height()
		}))
	require.NoError(t, err)

	require.NoError(t, k.StartAsync())
	require.NoError(t, k.AwaitRunning(bounded(t)))
	running = k.Chain().Height()
	assert.Equal(t, 2, k.PeerGroup().NumConnected())

	k.StopAsync()
	require.NoError(t, k.AwaitTerminated(bounded(t)))
	assert.Equal(t, lifecycle.Terminated, k.State())
	for _, p := range dialer {
		assert.True(t, p.Closed())
	}
	return atSetup, running
}

func TestKitSynchronizesRealStores(t *testing.T) {
	dir := t.TempDir()

	atSetup, running := runKit(t, dir, chainPeers(20, 12))
	assert.Equal(t, int64(0), atSetup)
	assert.Equal(t, int64(20), running)

	w, err := walletdb.Open(dir, "prefix", walletdb.Options{
		Network:      params.Regtest,
		ScriptType:   params.P2WPKH,
		KeyStructure: params.BIP43,
	})
	require.NoError(t, err)
	assert.False(t, w.Fresh())
	h, err := w.LastSeenHeight()
	require.NoError(t, err)
	assert.Equal(t, int64(20), h)
	require.NoError(t, w.Close())

	// the chain survives a restart
	atSetup, running = runKit(t, dir, chainPeers(25, 25))
	assert.Equal(t, int64(20), atSetup)
	assert.Equal(t, int64(25), running)
}

func TestFreshWalletResetsChain(t *testing.T) {
	dir := t.TempDir()
	_, running := runKit(t, dir, chainPeers(20, 20))
	require.Equal(t, int64(20), running)

	require.NoError(t, os.RemoveAll(walletdb.Path(dir, "prefix")))

	atSetup, running := runKit(t, dir, chainPeers(5, 5))
	assert.Equal(t, int64(0), atSetup)
	assert.Equal(t, int64(5), running)
}

func TestMismatchedWalletFailsStartup(t *testing.T) {
	dir := t.TempDir()
	w, err := walletdb.Open(dir, "prefix", walletdb.Options{
		Network:      params.Regtest,
		ScriptType:   params.P2PKH,
		KeyStructure: params.BIP32,
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	k, err := kit.New(regtestConfig(dir), kit.WithDialer(chainPeers(1, 1)))
	require.NoError(t, err)
	require.NoError(t, k.StartAsync())

	err = k.AwaitRunning(bounded(t))
	assert.ErrorIs(t, err, walletdb.ErrMismatch)
	assert.Equal(t, lifecycle.Failed, k.State())
}
