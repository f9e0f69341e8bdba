// Package peergroup maintains the kit's set of connected peers.
//
// A PeerGroup discovers candidate addresses, dials them in parallel at a bounded
// rate and keeps the number of live connections at its limit, which can be changed
// at any time with SetMaxConnections. Negotiating the peer protocol is left to the
// Dialer.
package peergroup
