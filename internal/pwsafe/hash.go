package pwsafe

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding"
	"hash"
)

// Hash is an incremental absorb-then-finalize hash that additionally
// supports Clone, so HMAC can snapshot its intermediate state. The
// standard library's sha1/sha256 digest types already implement
// encoding.BinaryMarshaler/BinaryUnmarshaler, so Clone is built on
// round-tripping through that, rather than re-deriving the algorithms —
// wrap the stdlib primitive, don't reinvent it.
type Hash interface {
	hash.Hash
	Clone() Hash
}

type stdHash struct {
	h     hash.Hash
	newFn func() hash.Hash
}

// NewSHA1 returns a clonable SHA-1 hash, used by V1/V2 passphrase
// verification.
func NewSHA1() Hash {
	return &stdHash{h: sha1.New(), newFn: func() hash.Hash { return sha1.New() }}
}

// NewSHA256 returns a clonable SHA-256 hash, used by V3 key stretching and
// as the HMAC's inner/outer hash.
func NewSHA256() Hash {
	return &stdHash{h: sha256.New(), newFn: func() hash.Hash { return sha256.New() }}
}

func (s *stdHash) Write(p []byte) (int, error) { return s.h.Write(p) }
func (s *stdHash) Sum(b []byte) []byte         { return s.h.Sum(b) }
func (s *stdHash) Reset()                      { s.h.Reset() }
func (s *stdHash) Size() int                   { return s.h.Size() }
func (s *stdHash) BlockSize() int              { return s.h.BlockSize() }

// Clone deep-copies the hash state by marshaling and unmarshaling through
// the stdlib's binary state encoding, so that absorbing further bytes into
// the clone never perturbs the original.
func (s *stdHash) Clone() Hash {
	marshaler, ok := s.h.(encoding.BinaryMarshaler)
	if !ok {
		// Unreachable for sha1.New()/sha256.New() on supported Go toolchains.
		panic("pwsafe: hash does not support state marshaling")
	}
	state, err := marshaler.MarshalBinary()
	if err != nil {
		panic("pwsafe: hash state marshal failed: " + err.Error())
	}
	clone := s.newFn()
	if err := clone.(encoding.BinaryUnmarshaler).UnmarshalBinary(state); err != nil {
		panic("pwsafe: hash state unmarshal failed: " + err.Error())
	}
	return &stdHash{h: clone, newFn: s.newFn}
}
