package params

import (
	"strings"

	"github.com/samber/oops"
)

// Network describes one of the networks the kit can join.
type Network struct {
	// short name used in configuration files and on the command line
	Name string
	// stable identifier persisted in wallet and chain stores
	ID string
	// default peer-to-peer port
	DefaultPort int
	// DNS seeds queried for initial peer addresses
	DNSSeeds []string
}

func (n *Network) String() string {
	return n.Name
}

var (
	Mainnet = &Network{
		Name:        "mainnet",
		ID:          "org.bitcoin.production",
		DefaultPort: 8333,
		DNSSeeds: []string{
			"seed.bitcoin.sipa.be",
			"dnsseed.bluematt.me",
			"seed.bitcoinstats.com",
			"seed.bitcoin.jonasschnelli.ch",
		},
	}
	Testnet = &Network{
		Name:        "testnet",
		ID:          "org.bitcoin.test",
		DefaultPort: 18333,
		DNSSeeds: []string{
			"testnet-seed.bitcoin.jonasschnelli.ch",
			"seed.tbtc.petertodd.org",
			"testnet-seed.bluematt.me",
		},
	}
	Signet = &Network{
		Name:        "signet",
		ID:          "org.bitcoin.signet",
		DefaultPort: 38333,
		DNSSeeds: []string{
			"seed.signet.bitcoin.sprovoost.nl",
		},
	}
	// regtest has no seeds, peers must be configured explicitly
	Regtest = &Network{
		Name:        "regtest",
		ID:          "org.bitcoin.regtest",
		DefaultPort: 18444,
	}
)

var networks = []*Network{Mainnet, Testnet, Signet, Regtest}

// ParseNetwork resolves a network by name or id, case-insensitively.
func ParseNetwork(s string) (*Network, error) {
	s = strings.TrimSpace(s)
	for _, n := range networks {
		if strings.EqualFold(n.Name, s) || strings.EqualFold(n.ID, s) {
			return n, nil
		}
	}
	return nil, oops.Errorf("unknown network %q", s)
}

// NetworkByID returns the network with the given persisted id.
func NetworkByID(id string) (*Network, bool) {
	for _, n := range networks {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}
