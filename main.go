package main

import (
	"fmt"
	"os"

	"github.com/go-i2p/go-walletkit/lib/config"
	"github.com/go-i2p/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var log = logger.GetGoI2PLogger()

// set by the linker
var version = "0.1.0-dev"

var (
	rootCmd = &cobra.Command{
		Use:   "walletkit",
		Short: "Run a wallet kit: wallet, header chain and peer group as one service",
		Long: `walletkit opens the wallet and header chain stores, connects to peers of the
selected network and keeps the chain synchronized until interrupted.

SIGINT or SIGTERM stops the kit. SIGHUP re-reads the configuration file and applies
the peer connection limit.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.InitConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), config.NewKitConfigFromViper())
		},
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(config.NewKitConfigFromViper())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the walletkit version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "walletkit %s\n", version)
		},
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&config.CfgFile, "config", "", "config file (default is $HOME/.walletkit/config.yaml)")
	flags.String("network", "", "network to join: mainnet, testnet, signet or regtest")
	flags.String("dir", "", "directory holding the wallet and chain stores")
	flags.String("prefix", "", "file prefix of the stores")
	flags.Bool("blocking", true, "wait for initial synchronization before reporting running")
	flags.Int("max-connections", 0, "number of peers to stay connected to")
	flags.StringSlice("peer", nil, "explicit peer host[:port], repeatable")
	flags.Bool("metrics", false, "serve Prometheus metrics")
	flags.String("metrics-addr", "", "address of the metrics endpoint")

	bind := map[string]string{
		"network":               "network",
		"directory":             "dir",
		"file_prefix":           "prefix",
		"sync.blocking_startup": "blocking",
		"peers.max_connections": "max-connections",
		"peers.nodes":           "peer",
		"metrics.enabled":       "metrics",
		"metrics.address":       "metrics-addr",
	}
	for key, flag := range bind {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			log.WithError(err).WithField("flag", flag).Error("Failed to bind flag")
		}
	}

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
