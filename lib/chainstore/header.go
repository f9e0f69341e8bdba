package chainstore

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/go-i2p/go-walletkit/lib/params"
	"github.com/samber/oops"
)

// HeaderSize is the length of an encoded Header.
const HeaderSize = 8 + 32 + 32 + 8

// Hash identifies a header.
type Hash [32]byte

func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Header is the part of a block header the kit tracks: its position in the chain,
// its own hash and the hash it builds on.
type Header struct {
	Height int64
	Hash   Hash
	Prev   Hash
	Time   time.Time
}

// Follows reports whether h directly extends parent.
func (h Header) Follows(parent Header) bool {
	return h.Height == parent.Height+1 && h.Prev == parent.Hash
}

// GenesisHeader returns the root header of network's chain.
func GenesisHeader(network *params.Network) Header {
	return Header{
		Height: 0,
		Hash:   sha256.Sum256([]byte(network.ID)),
		Time:   time.Unix(0, 0).UTC(),
	}
}

// MarshalBinary encodes h as height, hash, prev hash and unix time.
func (h Header) MarshalBinary() ([]byte, error) {
	b := make([]byte, HeaderSize)
	binary.BigEndian.PutUint64(b[0:8], uint64(h.Height))
	copy(b[8:40], h.Hash[:])
	copy(b[40:72], h.Prev[:])
	binary.BigEndian.PutUint64(b[72:80], uint64(h.Time.Unix()))
	return b, nil
}

func (h *Header) UnmarshalBinary(b []byte) error {
	if len(b) != HeaderSize {
		return oops.Errorf("header: expected %d bytes, got %d", HeaderSize, len(b))
	}
	h.Height = int64(binary.BigEndian.Uint64(b[0:8]))
	copy(h.Hash[:], b[8:40])
	copy(h.Prev[:], b[40:72])
	h.Time = time.Unix(int64(binary.BigEndian.Uint64(b[72:80])), 0).UTC()
	return nil
}

// Extend derives n deterministic headers on top of parent, one second apart. It is
// used by simulated peers and tests to produce a valid chain.
func Extend(parent Header, n int) []Header {
	out := make([]Header, 0, n)
	for i := 0; i < n; i++ {
		var seed [40]byte
		copy(seed[:32], parent.Hash[:])
		binary.BigEndian.PutUint64(seed[32:], uint64(parent.Height+1))
		next := Header{
			Height: parent.Height + 1,
			Hash:   sha256.Sum256(seed[:]),
			Prev:   parent.Hash,
			Time:   parent.Time.Add(time.Second),
		}
		out = append(out, next)
		parent = next
	}
	return out
}
