// Package kit assembles a wallet, its header chain and a peer group into a single
// service with an asynchronous start/stop lifecycle.
//
// A Kit is started with StartAsync and stopped with StopAsync; both return at once
// and AwaitRunning/AwaitTerminated block until the lifecycle gets there. By default
// startup does not complete until the chain has caught up with the network. Use
// SetBlockingStartup(false) before starting to become Running as soon as the
// subsystems are up.
//
//	k, err := kit.New(cfg, kit.WithSetupCompleted(func(k *kit.Kit) {
//		k.PeerGroup().SetMaxConnections(3)
//	}))
//	if err != nil {
//		return err
//	}
//	if err := k.StartAsync(); err != nil {
//		return err
//	}
//	if err := k.AwaitRunning(ctx); err != nil {
//		return err
//	}
//	defer k.AwaitTerminated(context.Background())
//	defer k.StopAsync()
package kit
