package chainstore

import (
	"path/filepath"
	"testing"

	"github.com/go-i2p/go-walletkit/lib/params"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", "", Options{Network: params.Regtest, InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenSeedsGenesis(t *testing.T) {
	s := openMemory(t)

	assert.Equal(t, int64(0), s.Height())
	assert.Equal(t, GenesisHeader(params.Regtest), s.Head())

	g, err := s.HeaderAt(0)
	require.NoError(t, err)
	assert.Equal(t, GenesisHeader(params.Regtest).Hash, g.Hash)
}

func TestGenesisDiffersPerNetwork(t *testing.T) {
	assert.NotEqual(t, GenesisHeader(params.Mainnet).Hash, GenesisHeader(params.Testnet).Hash)
}

func TestAppendAndLookup(t *testing.T) {
	s := openMemory(t)
	chain := Extend(s.Head(), 10)

	require.NoError(t, s.Append(chain[:4]...))
	require.NoError(t, s.Append(chain[4:]...))
	assert.Equal(t, int64(10), s.Height())
	assert.Equal(t, chain[9], s.Head())

	h, err := s.HeaderAt(5)
	require.NoError(t, err)
	assert.Equal(t, chain[4], h)

	_, err = s.HeaderAt(11)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.HeaderAt(-1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendRejectsGaps(t *testing.T) {
	s := openMemory(t)
	chain := Extend(s.Head(), 3)

	assert.ErrorIs(t, s.Append(chain[1]), ErrNotContiguous)

	forked := chain[0]
	forked.Prev[0] ^= 0xff
	assert.ErrorIs(t, s.Append(forked), ErrNotContiguous)

	// a bad header in the middle of a batch leaves the chain untouched
	assert.ErrorIs(t, s.Append(chain[0], chain[2]), ErrNotContiguous)
	assert.Equal(t, int64(0), s.Height())

	require.NoError(t, s.Append()) // empty batch
}

func TestPersistenceAndNetworkCheck(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "prefix", Options{Network: params.Regtest})
	require.NoError(t, err)
	chain := Extend(s.Head(), 5)
	require.NoError(t, s.Append(chain...))
	require.NoError(t, s.Close())

	assert.DirExists(t, filepath.Join(dir, "prefix.spvchain"))

	s, err = Open(dir, "prefix", Options{Network: params.Regtest})
	require.NoError(t, err)
	assert.Equal(t, int64(5), s.Height())
	assert.Equal(t, chain[4].Hash, s.Head().Hash)
	require.NoError(t, s.Close())

	_, err = Open(dir, "prefix", Options{Network: params.Testnet})
	assert.ErrorIs(t, err, ErrNetworkMismatch)
}

func TestReset(t *testing.T) {
	s := openMemory(t)
	require.NoError(t, s.Append(Extend(s.Head(), 7)...))
	_, err := s.HeaderAt(3)
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	assert.Equal(t, int64(0), s.Height())
	_, err = s.HeaderAt(3)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Append(Extend(s.Head(), 2)...))
	assert.Equal(t, int64(2), s.Height())
}

func TestCloseIsIdempotent(t *testing.T) {
	s, err := Open("", "", Options{Network: params.Regtest, InMemory: true})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Append(Extend(GenesisHeader(params.Regtest), 1)...), ErrClosed)
	assert.ErrorIs(t, s.Reset(), ErrClosed)
}

func TestHeaderEncoding(t *testing.T) {
	h := Extend(GenesisHeader(params.Mainnet), 1)[0]
	raw, err := h.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, raw, HeaderSize)

	var back Header
	require.NoError(t, back.UnmarshalBinary(raw))
	assert.Equal(t, h, back)
	assert.Error(t, back.UnmarshalBinary(raw[:10]))
}
