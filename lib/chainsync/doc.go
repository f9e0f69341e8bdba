// Package chainsync downloads block headers from connected peers into the chain
// store and signals when the local chain has caught up.
package chainsync
