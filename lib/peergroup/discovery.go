package peergroup

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/go-i2p/go-walletkit/lib/params"
	"github.com/go-i2p/logger"
)

// ErrNoAddresses is returned when discovery produced no candidates at all.
var ErrNoAddresses = errors.New("no peer addresses discovered")

// StaticDiscovery returns a fixed address list.
type StaticDiscovery []string

func (s StaticDiscovery) Addresses(ctx context.Context) ([]string, error) {
	if len(s) == 0 {
		return nil, ErrNoAddresses
	}
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}

// DNSDiscovery resolves a network's DNS seeds.
type DNSDiscovery struct {
	Seeds    []string
	Port     int
	Resolver *net.Resolver
}

func (d DNSDiscovery) Addresses(ctx context.Context) ([]string, error) {
	resolver := d.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	port := strconv.Itoa(d.Port)

	var out []string
	for _, seed := range d.Seeds {
		hosts, err := resolver.LookupHost(ctx, seed)
		if err != nil {
			log.WithError(err).WithField("seed", seed).Debug("DNS seed lookup failed")
			continue
		}
		for _, h := range hosts {
			out = append(out, net.JoinHostPort(h, port))
		}
	}
	if len(out) == 0 {
		return nil, ErrNoAddresses
	}
	log.WithFields(logger.Fields{
		"seeds":     len(d.Seeds),
		"addresses": len(out),
	}).Debug("DNS discovery completed")
	return out, nil
}

// DiscoveryFor picks the discovery method for network: localhost only, the explicit
// nodes (completed with the network's default port), or its DNS seeds.
func DiscoveryFor(network *params.Network, nodes []string, localhost bool) Discovery {
	port := strconv.Itoa(network.DefaultPort)
	if localhost {
		return StaticDiscovery{net.JoinHostPort("127.0.0.1", port)}
	}
	if len(nodes) > 0 {
		out := make(StaticDiscovery, 0, len(nodes))
		for _, n := range nodes {
			if _, _, err := net.SplitHostPort(n); err != nil {
				n = net.JoinHostPort(n, port)
			}
			out = append(out, n)
		}
		return out
	}
	return DNSDiscovery{Seeds: network.DNSSeeds, Port: network.DefaultPort}
}
