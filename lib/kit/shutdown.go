package kit

import (
	"errors"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

// shutDown releases the subsystems in reverse order of acquisition: synchronization,
// peers, chain store, wallet store. Every step runs even if an earlier one failed;
// failures are logged, counted and returned joined.
func (k *Kit) shutDown() error {
	k.mu.Lock()
	wallet, chain, peers, syncHandle := k.wallet, k.chain, k.peers, k.sync
	k.wallet, k.chain, k.peers, k.sync = nil, nil, nil, nil
	k.setupReached = false
	k.mu.Unlock()

	log.WithFields(logger.Fields{
		"at":  "(Kit) shutDown",
		"kit": k.id.String(),
	}).Debug("Shutting down wallet kit")

	var errs []error
	step := func(name string, fn func() error) {
		if err := fn(); err != nil {
			k.metrics.TeardownFailed(name)
			log.WithError(err).WithFields(logger.Fields{
				"kit":  k.id.String(),
				"step": name,
			}).Warn("Shutdown step failed, continuing")
			errs = append(errs, oops.Wrapf(err, "%s", name))
		}
	}

	if syncHandle != nil {
		step("cancel synchronization", func() error {
			syncHandle.Cancel()
			return nil
		})
	}
	if peers != nil {
		step("disconnect peers", peers.DisconnectAll)
		step("close peer group", peers.Close)
	}
	if wallet != nil && chain != nil {
		if hr, ok := wallet.(heightRecorder); ok {
			step("record chain height", func() error {
				return hr.SetLastSeenHeight(chain.Height())
			})
		}
	}
	if chain != nil {
		step("close chain storage", chain.Close)
	}
	if wallet != nil {
		step("close wallet storage", wallet.Close)
	}
	return errors.Join(errs...)
}
