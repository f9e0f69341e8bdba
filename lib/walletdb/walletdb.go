package walletdb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-i2p/go-walletkit/lib/params"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

var log = logger.GetGoI2PLogger()

// FileExtension is appended to the kit's file prefix to name the wallet store.
const FileExtension = ".wallet"

var (
	// ErrCorrupt is returned by Open when the store is corrupt and recovery is disabled
	// or failed.
	ErrCorrupt = errors.New("wallet store is corrupt")
	// ErrMismatch is returned by Open when the store was created for another network
	// or key policy.
	ErrMismatch = errors.New("wallet store does not match configuration")
	ErrClosed   = errors.New("wallet store is closed")
)

var (
	keyNetwork        = []byte("meta/network")
	keyScriptType     = []byte("meta/script_type")
	keyKeyStructure   = []byte("meta/key_structure")
	keyCreatedAt      = []byte("meta/created_at")
	keyLastSeenHeight = []byte("meta/last_seen_height")
)

// Options describe the wallet a store must hold.
type Options struct {
	Network      *params.Network
	ScriptType   params.ScriptType
	KeyStructure params.KeyStructure
	// rebuild a corrupted store instead of failing
	RecoverCorrupt bool
}

// Store is the wallet's persistent handle, a LevelDB database at
// <dir>/<prefix>.wallet. Key material itself is managed by the wallet layer; the
// store records which network and key policy it belongs to.
type Store struct {
	path string

	mu        sync.RWMutex
	db        *leveldb.DB
	fresh     bool
	createdAt time.Time
	opts      Options
}

// Path returns the location of the wallet store for dir and prefix.
func Path(dir, prefix string) string {
	return filepath.Join(dir, prefix+FileExtension)
}

// Open opens or creates the wallet store. A freshly created store records the
// options; an existing store must have been created with the same ones.
func Open(dir, prefix string, opts Options) (*Store, error) {
	if opts.Network == nil {
		return nil, oops.Errorf("wallet store requires a network")
	}
	path := Path(dir, prefix)
	log.WithFields(logger.Fields{
		"at":      "walletdb.Open",
		"path":    path,
		"network": opts.Network.Name,
	}).Debug("Opening wallet store")

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, oops.Wrapf(err, "create wallet directory %s", dir)
	}

	db, err := openLevelDB(path, opts.RecoverCorrupt)
	if err != nil {
		return nil, err
	}

	s := &Store{path: path, db: db, opts: opts}
	if err := s.loadOrInit(); err != nil {
		db.Close()
		return nil, err
	}
	log.WithFields(logger.Fields{
		"path":  path,
		"fresh": s.fresh,
	}).Info("Wallet store opened")
	return s, nil
}

func openLevelDB(path string, recoverCorrupt bool) (*leveldb.DB, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err == nil {
		return db, nil
	}
	if !lerrors.IsCorrupted(err) {
		return nil, oops.Wrapf(err, "open wallet store %s", path)
	}
	if !recoverCorrupt {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}

	log.WithError(err).WithField("path", path).Warn("Wallet store corrupt, attempting recovery")
	db, rerr := leveldb.RecoverFile(path, nil)
	if rerr != nil {
		return nil, fmt.Errorf("%w: recovery of %s failed: %v", ErrCorrupt, path, rerr)
	}
	return db, nil
}

func (s *Store) loadOrInit() error {
	id, err := s.db.Get(keyNetwork, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return s.init()
	}
	if err != nil {
		return oops.Wrapf(err, "read wallet metadata")
	}

	if string(id) != s.opts.Network.ID {
		return fmt.Errorf("%w: store is for network %q, configured %q", ErrMismatch, id, s.opts.Network.ID)
	}
	if err := s.expect(keyScriptType, string(s.opts.ScriptType)); err != nil {
		return err
	}
	if err := s.expect(keyKeyStructure, string(s.opts.KeyStructure)); err != nil {
		return err
	}
	raw, err := s.db.Get(keyCreatedAt, nil)
	if err == nil && len(raw) == 8 {
		s.createdAt = time.Unix(0, int64(binary.BigEndian.Uint64(raw))).UTC()
	}
	return nil
}

func (s *Store) expect(key []byte, want string) error {
	got, err := s.db.Get(key, nil)
	if err != nil {
		return oops.Wrapf(err, "read wallet metadata %s", key)
	}
	if string(got) != want {
		return fmt.Errorf("%w: %s is %q, configured %q", ErrMismatch, key, got, want)
	}
	return nil
}

func (s *Store) init() error {
	s.fresh = true
	s.createdAt = time.Now().UTC()

	batch := new(leveldb.Batch)
	batch.Put(keyNetwork, []byte(s.opts.Network.ID))
	batch.Put(keyScriptType, []byte(s.opts.ScriptType))
	batch.Put(keyKeyStructure, []byte(s.opts.KeyStructure))
	batch.Put(keyCreatedAt, encodeInt(s.createdAt.UnixNano()))
	batch.Put(keyLastSeenHeight, encodeInt(0))
	if err := s.db.Write(batch, &opt.WriteOptions{Sync: true}); err != nil {
		return oops.Wrapf(err, "initialize wallet store")
	}
	return nil
}

// Path returns the on-disk location of the store.
func (s *Store) Path() string {
	return s.path
}

// Fresh reports whether this Open created the store.
func (s *Store) Fresh() bool {
	return s.fresh
}

func (s *Store) Network() *params.Network {
	return s.opts.Network
}

func (s *Store) ScriptType() params.ScriptType {
	return s.opts.ScriptType
}

func (s *Store) KeyStructure() params.KeyStructure {
	return s.opts.KeyStructure
}

func (s *Store) CreatedAt() time.Time {
	return s.createdAt
}

// LastSeenHeight returns the chain height the wallet was last saved at.
func (s *Store) LastSeenHeight() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, ErrClosed
	}
	raw, err := s.db.Get(keyLastSeenHeight, nil)
	if err != nil {
		return 0, oops.Wrapf(err, "read last seen height")
	}
	if len(raw) != 8 {
		return 0, oops.Errorf("malformed last seen height (%d bytes)", len(raw))
	}
	return int64(binary.BigEndian.Uint64(raw)), nil
}

// SetLastSeenHeight records the chain height the wallet has been synchronized to.
func (s *Store) SetLastSeenHeight(height int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	if err := s.db.Put(keyLastSeenHeight, encodeInt(height), &opt.WriteOptions{Sync: true}); err != nil {
		return oops.Wrapf(err, "write last seen height")
	}
	return nil
}

// Close flushes and closes the store. Closing a closed store is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return oops.Wrapf(err, "close wallet store %s", s.path)
	}
	log.WithField("path", s.path).Debug("Wallet store closed")
	return nil
}

func encodeInt(v int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return b[:]
}
