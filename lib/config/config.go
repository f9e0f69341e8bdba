package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/go-i2p/go-walletkit/lib/util"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/spf13/viper"
)

var (
	CfgFile string
	log     = logger.GetGoI2PLogger()
)

const WALLETKIT_BASE_DIR = ".walletkit"

// InitConfig points viper at the configuration file, applies defaults and creates
// $HOME/.walletkit/config.yaml on first run.
func InitConfig() error {
	if CfgFile != "" {
		viper.SetConfigFile(CfgFile)
	} else {
		viper.AddConfigPath(BuildKitDirPath())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}
	viper.SetEnvPrefix("WALLETKIT")
	viper.AutomaticEnv()

	setDefaults()

	return handleConfigFile()
}

func setDefaults() {
	d := DefaultKitConfig()

	viper.SetDefault("network", d.Network)
	viper.SetDefault("directory", d.Directory)
	viper.SetDefault("file_prefix", d.FilePrefix)
	viper.SetDefault("startup_timeout", d.StartupTimeout)

	viper.SetDefault("wallet.script_type", d.Wallet.ScriptType)
	viper.SetDefault("wallet.key_structure", d.Wallet.KeyStructure)
	viper.SetDefault("wallet.recover_corrupt", d.Wallet.RecoverCorrupt)

	viper.SetDefault("peers.max_connections", d.Peers.MaxConnections)
	viper.SetDefault("peers.nodes", d.Peers.Nodes)
	viper.SetDefault("peers.connect_localhost", d.Peers.ConnectLocalhost)
	viper.SetDefault("peers.dial_timeout", d.Peers.DialTimeout)
	viper.SetDefault("peers.connect_rate", d.Peers.ConnectRate)
	viper.SetDefault("peers.user_agent", d.Peers.UserAgent)

	viper.SetDefault("sync.blocking_startup", d.Sync.BlockingStartup)
	viper.SetDefault("sync.min_peers", d.Sync.MinPeers)
	viper.SetDefault("sync.timeout", d.Sync.Timeout)
	viper.SetDefault("sync.batch_size", d.Sync.BatchSize)
	viper.SetDefault("sync.poll_interval", d.Sync.PollInterval)

	viper.SetDefault("metrics.enabled", d.Metrics.Enabled)
	viper.SetDefault("metrics.address", d.Metrics.Address)
}

// NewKitConfigFromViper creates a KitConfig from the current viper settings.
func NewKitConfigFromViper() *KitConfig {
	return &KitConfig{
		Network:        viper.GetString("network"),
		Directory:      viper.GetString("directory"),
		FilePrefix:     viper.GetString("file_prefix"),
		StartupTimeout: viper.GetDuration("startup_timeout"),
		Wallet: &WalletConfig{
			ScriptType:     viper.GetString("wallet.script_type"),
			KeyStructure:   viper.GetString("wallet.key_structure"),
			RecoverCorrupt: viper.GetBool("wallet.recover_corrupt"),
		},
		Peers: &PeerConfig{
			MaxConnections:   viper.GetInt("peers.max_connections"),
			Nodes:            viper.GetStringSlice("peers.nodes"),
			ConnectLocalhost: viper.GetBool("peers.connect_localhost"),
			DialTimeout:      viper.GetDuration("peers.dial_timeout"),
			ConnectRate:      viper.GetFloat64("peers.connect_rate"),
			UserAgent:        viper.GetString("peers.user_agent"),
		},
		Sync: &SyncConfig{
			BlockingStartup: viper.GetBool("sync.blocking_startup"),
			MinPeers:        viper.GetInt("sync.min_peers"),
			Timeout:         viper.GetDuration("sync.timeout"),
			BatchSize:       viper.GetInt("sync.batch_size"),
			PollInterval:    viper.GetDuration("sync.poll_interval"),
		},
		Metrics: &MetricsConfig{
			Enabled: viper.GetBool("metrics.enabled"),
			Address: viper.GetString("metrics.address"),
		},
	}
}

func createDefaultConfig(defaultConfigDir string) error {
	defaultConfigFile := filepath.Join(defaultConfigDir, "config.yaml")
	if err := os.MkdirAll(defaultConfigDir, 0o755); err != nil {
		return oops.Wrapf(err, "could not create config directory %s", defaultConfigDir)
	}
	if err := viper.SafeWriteConfigAs(defaultConfigFile); err != nil {
		return oops.Wrapf(err, "could not write default config file %s", defaultConfigFile)
	}
	log.Debugf("Created default configuration at: %s", defaultConfigFile)
	return nil
}

func handleConfigFile() error {
	err := viper.ReadInConfig()
	if err == nil {
		log.Debugf("Using config file: %s", viper.ConfigFileUsed())
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if !errors.As(err, &notFound) {
		if CfgFile != "" && os.IsNotExist(err) {
			return oops.Wrapf(err, "config file %s is not found", CfgFile)
		}
		return oops.Wrapf(err, "error reading config file")
	}
	if CfgFile != "" {
		return oops.Wrapf(err, "config file %s is not found", CfgFile)
	}
	return createDefaultConfig(BuildKitDirPath())
}

// BuildKitDirPath returns $HOME/.walletkit.
func BuildKitDirPath() string {
	return filepath.Join(util.UserHome(), WALLETKIT_BASE_DIR)
}

// ReloadKitConfig re-reads the configuration file and returns the resulting
// configuration.
func ReloadKitConfig() (*KitConfig, error) {
	if err := viper.ReadInConfig(); err != nil {
		return nil, oops.Wrapf(err, "reload config file")
	}
	cfg := NewKitConfigFromViper()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
