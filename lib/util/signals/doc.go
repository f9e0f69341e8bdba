// Package signals routes process signals to registered handlers. The walletkit
// command uses it to stop the kit on SIGINT/SIGTERM and to reload its
// configuration on SIGHUP.
package signals
