package chainstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-i2p/go-walletkit/lib/params"
	"github.com/go-i2p/logger"
	lru "github.com/hashicorp/golang-lru"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// FileExtension is appended to the kit's file prefix to name the chain store.
const FileExtension = ".spvchain"

// DefaultCacheSize is the number of headers kept in memory by HeaderAt.
const DefaultCacheSize = 2048

var (
	ErrNotFound = errors.New("header not found")
	// ErrNotContiguous is returned by Append for headers that do not extend the head.
	ErrNotContiguous = errors.New("header does not extend chain head")
	// ErrNetworkMismatch is returned by Open for a store created for another network.
	ErrNetworkMismatch = errors.New("chain store belongs to a different network")
	ErrClosed          = errors.New("chain store is closed")
)

var (
	keyNetwork = []byte("net")
	keyHead    = []byte("head")
	prefixHdr  = []byte("h")
)

type Options struct {
	Network   *params.Network
	InMemory  bool
	CacheSize int
}

// Store is an append-only header chain backed by Badger.
type Store struct {
	path    string
	network *params.Network

	mu    sync.RWMutex
	db    *badger.DB
	head  Header
	cache *lru.Cache
}

// Path returns the location of the chain store for dir and prefix.
func Path(dir, prefix string) string {
	return filepath.Join(dir, prefix+FileExtension)
}

// Open opens the chain store at <dir>/<prefix>.spvchain, seeding it with the
// network's genesis header when empty.
func Open(dir, prefix string, opts Options) (*Store, error) {
	if opts.Network == nil {
		return nil, oops.Errorf("chain store requires a network")
	}
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, oops.Wrapf(err, "create header cache")
	}

	var bopts badger.Options
	path := ""
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		path = Path(dir, prefix)
		if err := os.MkdirAll(path, 0o700); err != nil {
			return nil, oops.Wrapf(err, "create chain store directory %s", path)
		}
		bopts = badger.DefaultOptions(path)
	}
	bopts = bopts.WithNumVersionsToKeep(1).WithLogger(badgerLogger{})

	log.WithFields(logger.Fields{
		"at":        "chainstore.Open",
		"path":      path,
		"in_memory": opts.InMemory,
		"network":   opts.Network.Name,
	}).Debug("Opening chain store")

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, oops.Wrapf(err, "open chain store %s", path)
	}

	s := &Store{path: path, network: opts.Network, db: db, cache: cache}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	log.WithFields(logger.Fields{
		"path":   path,
		"height": s.head.Height,
	}).Info("Chain store opened")
	return s, nil
}

func (s *Store) load() error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyNetwork)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return s.seedTxn(txn)
		}
		if err != nil {
			return oops.Wrapf(err, "read chain store network")
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return oops.Wrapf(err, "read chain store network")
		}
		if string(id) != s.network.ID {
			return fmt.Errorf("%w: store is for %q, configured %q", ErrNetworkMismatch, id, s.network.ID)
		}

		item, err = txn.Get(keyHead)
		if err != nil {
			return oops.Wrapf(err, "read chain head")
		}
		raw, err := item.ValueCopy(nil)
		if err != nil || len(raw) != 8 {
			return oops.Errorf("malformed chain head")
		}
		head, err := getHeader(txn, int64(binary.BigEndian.Uint64(raw)))
		if err != nil {
			return oops.Wrapf(err, "read chain head header")
		}
		s.head = head
		return nil
	})
}

func (s *Store) seedTxn(txn *badger.Txn) error {
	genesis := GenesisHeader(s.network)
	if err := txn.Set(keyNetwork, []byte(s.network.ID)); err != nil {
		return err
	}
	if err := putHeader(txn, genesis); err != nil {
		return err
	}
	s.head = genesis
	return nil
}

// Network returns the network the store holds headers for.
func (s *Store) Network() *params.Network {
	return s.network
}

// Height returns the height of the chain head.
func (s *Store) Height() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head.Height
}

func (s *Store) Head() Header {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head
}

// HeaderAt returns the header at height, or ErrNotFound.
func (s *Store) HeaderAt(height int64) (Header, error) {
	if v, ok := s.cache.Get(height); ok {
		return v.(Header), nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return Header{}, ErrClosed
	}
	if height < 0 || height > s.head.Height {
		return Header{}, fmt.Errorf("%w: height %d", ErrNotFound, height)
	}

	var h Header
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		h, err = getHeader(txn, height)
		return err
	})
	if err != nil {
		return Header{}, err
	}
	s.cache.Add(height, h)
	return h, nil
}

// Append extends the chain with headers, which must each follow the previous one
// starting from the current head. Nothing is written if any header is out of place.
func (s *Store) Append(headers ...Header) error {
	if len(headers) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}

	parent := s.head
	for _, h := range headers {
		if !h.Follows(parent) {
			return fmt.Errorf("%w: height %d prev %s, head is %d %s",
				ErrNotContiguous, h.Height, h.Prev, parent.Height, parent.Hash)
		}
		parent = h
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for _, h := range headers {
			if err := putHeader(txn, h); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return oops.Wrapf(err, "append %d headers", len(headers))
	}
	for _, h := range headers {
		s.cache.Add(h.Height, h)
	}
	s.head = parent
	return nil
}

// Reset discards every header and reseeds the store with genesis.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrClosed
	}
	log.WithFields(logger.Fields{
		"path":   s.path,
		"height": s.head.Height,
	}).Warn("Resetting chain store to genesis")

	if err := s.db.DropAll(); err != nil {
		return oops.Wrapf(err, "drop chain store")
	}
	s.cache.Purge()
	return s.db.Update(s.seedTxn)
}

// Close closes the store. Closing a closed store is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.cache.Purge()
	if err != nil {
		return oops.Wrapf(err, "close chain store %s", s.path)
	}
	return nil
}

func headerKey(height int64) []byte {
	k := make([]byte, len(prefixHdr)+8)
	copy(k, prefixHdr)
	binary.BigEndian.PutUint64(k[len(prefixHdr):], uint64(height))
	return k
}

func putHeader(txn *badger.Txn, h Header) error {
	raw, _ := h.MarshalBinary()
	if err := txn.Set(headerKey(h.Height), raw); err != nil {
		return err
	}
	var head [8]byte
	binary.BigEndian.PutUint64(head[:], uint64(h.Height))
	return txn.Set(keyHead, head[:])
}

func getHeader(txn *badger.Txn, height int64) (Header, error) {
	item, err := txn.Get(headerKey(height))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Header{}, fmt.Errorf("%w: height %d", ErrNotFound, height)
	}
	if err != nil {
		return Header{}, err
	}
	var h Header
	err = item.Value(func(val []byte) error {
		return h.UnmarshalBinary(val)
	})
	return h, err
}

// badgerLogger routes Badger's internal logging to the package logger.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	log.Errorf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	log.Warnf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	log.Debugf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	log.Debugf("badger: "+format, args...)
}
