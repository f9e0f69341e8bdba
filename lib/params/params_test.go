package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNetwork(t *testing.T) {
	cases := map[string]*Network{
		"testnet":                Testnet,
		"TESTNET":                Testnet,
		" mainnet ":              Mainnet,
		"org.bitcoin.signet":     Signet,
		"regtest":                Regtest,
		"org.bitcoin.production": Mainnet,
	}
	for in, want := range cases {
		got, err := ParseNetwork(in)
		require.NoError(t, err, in)
		assert.Same(t, want, got, in)
	}

	_, err := ParseNetwork("dogecoin")
	assert.Error(t, err)
}

func TestNetworkByID(t *testing.T) {
	n, ok := NetworkByID("org.bitcoin.test")
	require.True(t, ok)
	assert.Equal(t, "testnet", n.String())

	_, ok = NetworkByID("testnet")
	assert.False(t, ok, "lookup by id must not accept names")
}

func TestRegtestHasNoSeeds(t *testing.T) {
	assert.Empty(t, Regtest.DNSSeeds)
	for _, n := range []*Network{Mainnet, Testnet, Signet} {
		assert.NotEmpty(t, n.DNSSeeds, n.Name)
	}
}

func TestParsePolicies(t *testing.T) {
	st, err := ParseScriptType("p2wpkh")
	require.NoError(t, err)
	assert.Equal(t, P2WPKH, st)

	_, err = ParseScriptType("p2sh")
	assert.Error(t, err)

	ks, err := ParseKeyStructure("bip43")
	require.NoError(t, err)
	assert.Equal(t, BIP43, ks)

	_, err = ParseKeyStructure("bip99")
	assert.Error(t, err)
}
