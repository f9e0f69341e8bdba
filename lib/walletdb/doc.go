// Package walletdb persists the kit's wallet in a LevelDB store.
//
// The store remembers the network, script type and key structure it was created
// with and refuses to open under a different configuration, so that a testnet
// wallet is never loaded into a mainnet kit. A corrupt store fails to open with
// ErrCorrupt unless Options.RecoverCorrupt asks for a LevelDB recovery pass.
package walletdb
