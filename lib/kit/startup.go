package kit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-i2p/go-walletkit/lib/lifecycle"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// startup steps, used as lifecycle.StartupError.Step
const (
	stepOpenWallet   = "open wallet storage"
	stepOpenChain    = "open chain storage"
	stepResetChain   = "reset chain storage"
	stepCreatePeers  = "create peer group"
	stepSetupHook    = "setup completed hook"
	stepStartPeers   = "start peer group"
	stepSynchronize  = "synchronize"
	stepStartTimeout = "startup timeout"
)

// startUp opens the stores, creates the peer group, runs the setup completed hook,
// connects and begins synchronization. In blocking mode it then waits for the
// initial download. Whatever it acquired is released by shutDown, which the service
// calls after a cancelled or failed startup as well.
func (k *Kit) startUp(ctx context.Context) error {
	k.mu.RLock()
	blocking := k.blockingStartup
	k.mu.RUnlock()

	setupCtx := ctx
	if k.cfg.StartupTimeout > 0 {
		var cancel context.CancelFunc
		setupCtx, cancel = context.WithTimeout(ctx, k.cfg.StartupTimeout)
		defer cancel()
	}

	log.WithFields(logger.Fields{
		"at":       "(Kit) startUp",
		"kit":      k.id.String(),
		"blocking": blocking,
		"network":  k.network.Name,
	}).Debug("Starting wallet kit")

	wallet, err := k.storage.OpenWallet(k.loc)
	if err != nil {
		return lifecycle.StepFailed(stepOpenWallet, err)
	}
	k.mu.Lock()
	k.wallet = wallet
	k.mu.Unlock()
	if err := k.checkpoint(ctx, setupCtx); err != nil {
		return err
	}

	chain, err := k.storage.OpenChain(k.loc)
	if err != nil {
		return lifecycle.StepFailed(stepOpenChain, err)
	}
	k.mu.Lock()
	k.chain = chain
	k.mu.Unlock()
	if err := k.resetChainForFreshWallet(wallet, chain); err != nil {
		return lifecycle.StepFailed(stepResetChain, err)
	}
	k.metrics.SetChainHeight(chain.Height())
	if err := k.checkpoint(ctx, setupCtx); err != nil {
		return err
	}

	peers := k.connectivity.Create(k.network)
	if peers == nil {
		return lifecycle.StepFailed(stepCreatePeers, oops.Errorf("connectivity returned no peer group"))
	}
	k.mu.Lock()
	k.peers = peers
	k.mu.Unlock()
	if err := k.checkpoint(ctx, setupCtx); err != nil {
		return err
	}

	if err := k.runSetupCompleted(ctx, setupCtx); err != nil {
		return err
	}
	if err := k.checkpoint(ctx, setupCtx); err != nil {
		return err
	}

	if err := peers.Start(ctx); err != nil {
		return lifecycle.StepFailed(stepStartPeers, err)
	}
	syncHandle := k.synchronization.Begin(ctx, peers, chain)
	k.mu.Lock()
	k.sync = syncHandle
	k.mu.Unlock()

	if !blocking {
		log.WithField("kit", k.id.String()).Debug("Non-blocking startup, synchronizing in the background")
		return nil
	}
	return k.awaitSync(ctx, syncHandle)
}

// checkpoint returns ctx's error when a stop was requested, or a startup failure
// when the startup timeout elapsed.
func (k *Kit) checkpoint(ctx, setupCtx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if setupCtx.Err() != nil {
		return lifecycle.StepFailed(stepStartTimeout,
			fmt.Errorf("%w after %s", ErrStartupTimeout, k.cfg.StartupTimeout))
	}
	return nil
}

func (k *Kit) resetChainForFreshWallet(wallet WalletHandle, chain ChainHandle) error {
	fw, ok := wallet.(freshWallet)
	if !ok || !fw.Fresh() || chain.Height() == 0 {
		return nil
	}
	rc, ok := chain.(resettableChain)
	if !ok {
		return nil
	}
	log.WithFields(logger.Fields{
		"kit":    k.id.String(),
		"height": chain.Height(),
	}).Warn("New wallet with existing chain, resetting chain to genesis")
	return rc.Reset()
}

// runSetupCompleted runs the hook on its own goroutine so the startup timeout can
// fire while it is still running. A stop request does not interrupt the hook; the
// kit waits for it and the following checkpoint observes the cancellation.
func (k *Kit) runSetupCompleted(ctx, setupCtx context.Context) error {
	k.mu.Lock()
	k.setupReached = true
	k.mu.Unlock()
	if k.onSetupCompleted == nil {
		return nil
	}

	began := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- k.callSetupCompleted()
	}()

	select {
	case err := <-done:
		return k.setupReturned(err, began)
	case <-setupCtx.Done():
		if ctx.Err() != nil {
			return k.setupReturned(<-done, began)
		}
		log.WithFields(logger.Fields{
			"at":      "(Kit) runSetupCompleted",
			"kit":     k.id.String(),
			"timeout": k.cfg.StartupTimeout.String(),
			"reason":  "hook_outlived_startup_timeout",
		}).Warn("Setup completed hook still running, abandoning startup")
		return lifecycle.StepFailed(stepStartTimeout,
			fmt.Errorf("%w after %s", ErrStartupTimeout, k.cfg.StartupTimeout))
	}
}

func (k *Kit) setupReturned(err error, began time.Time) error {
	if err != nil {
		return lifecycle.StepFailed(stepSetupHook, err)
	}
	log.WithFields(logger.Fields{
		"kit":  k.id.String(),
		"took": time.Since(began).String(),
	}).Debug("Setup completed hook returned")
	return nil
}

func (k *Kit) callSetupCompleted() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oops.Errorf("setup completed hook panicked: %v", r)
		}
	}()
	k.onSetupCompleted(k)
	return nil
}

// awaitSync blocks until the initial download completes, the sync timeout elapses
// or a stop is requested.
func (k *Kit) awaitSync(ctx context.Context, s SyncHandle) error {
	waitCtx := ctx
	if k.cfg.Sync.Timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, k.cfg.Sync.Timeout)
		defer cancel()
	}
	log.WithField("kit", k.id.String()).Info("Waiting for initial synchronization")

	select {
	case <-s.Done():
		if err := s.Err(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lifecycle.StepFailed(stepSynchronize, err)
		}
		return nil
	case <-waitCtx.Done():
		if err := ctx.Err(); err != nil {
			return err
		}
		return lifecycle.StepFailed(stepSynchronize,
			fmt.Errorf("%w after %s", ErrSyncTimeout, k.cfg.Sync.Timeout))
	}
}
