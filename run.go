package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-i2p/go-walletkit/lib/config"
	"github.com/go-i2p/go-walletkit/lib/kit"
	"github.com/go-i2p/go-walletkit/lib/lifecycle"
	"github.com/go-i2p/go-walletkit/lib/util"
	"github.com/go-i2p/go-walletkit/lib/util/signals"
	"github.com/go-i2p/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// run starts a kit for cfg and blocks until it terminates.
func run(ctx context.Context, cfg *config.KitConfig) error {
	defer util.CloseAll()

	var opts []kit.Option
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, kit.WithRegisterer(reg))
		util.RegisterCloser(serveMetrics(cfg.Metrics.Address, reg))
	}

	k, err := kit.New(cfg, opts...)
	if err != nil {
		return err
	}

	router := signals.NewRouter()
	router.OnInterrupt(func() {
		log.WithField("kit", k.ID().String()).Info("Interrupted, stopping wallet kit")
		k.StopAsync()
	})
	router.OnReload(func() {
		reload(k)
	})
	go router.Handle(ctx)
	defer router.Stop()

	log.WithFields(logger.Fields{
		"kit":       k.ID().String(),
		"network":   k.Network().Name,
		"directory": cfg.Directory,
		"blocking":  k.BlockingStartup(),
	}).Info("Starting wallet kit")
	if err := k.StartAsync(); err != nil {
		return err
	}

	err = k.AwaitRunning(ctx)
	switch {
	case errors.Is(err, lifecycle.ErrNotRunning):
		// stopped during startup
	case err != nil:
		k.StopAsync()
		return err
	default:
		log.WithField("kit", k.ID().String()).Info("Wallet kit running")
	}
	return k.AwaitTerminated(context.Background())
}

// reload applies the connection limit from the re-read configuration.
func reload(k *kit.Kit) {
	cfg, err := config.ReloadKitConfig()
	if err != nil {
		log.WithError(err).Warn("Configuration reload failed, keeping current settings")
		return
	}
	pg := k.PeerGroup()
	if pg == nil {
		log.Debug("Peer group not available yet, nothing to reload")
		return
	}
	pg.SetMaxConnections(cfg.Peers.MaxConnections)
	log.WithField("max_connections", cfg.Peers.MaxConnections).Info("Configuration reloaded")
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.WithField("address", addr).Info("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).WithField("address", addr).Error("Metrics server failed")
		}
	}()
	return srv
}
