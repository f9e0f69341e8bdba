// Package config provides configuration management for the wallet kit.
//
// # Sources
//
// Values are resolved by viper in this order: command line flags bound by the
// walletkit command, WALLETKIT_* environment variables, the configuration file, and
// the defaults from DefaultKitConfig.
//
// The configuration file lives at $HOME/.walletkit/config.yaml unless --config is
// given, and is created with the defaults on first run.
//
// # Data Directory
//
// Directory holds the kit's persistent stores, named after FilePrefix:
//   - <prefix>.wallet: the wallet store
//   - <prefix>.spvchain: the header chain store
//
// Deleting the chain store forces a resynchronization from genesis on next start;
// the wallet store is never deleted by the kit.
package config
