package pwsafe

// HMACChecksum is a keyed SHA-256 checksum per RFC 2104, hand-rolled rather
// than wrapping crypto/hmac because this format requires two capabilities
// crypto/hmac's Writer-shaped API does not expose: Clone (to snapshot
// intermediate state) and an idempotent, memoized Digest that can be read
// more than once without resetting the accumulator.
//
// State = inner hash, pre-seeded with (ipad XOR key), plus the stored
// (opad XOR key). Finalize hashes the inner digest under opad and memoizes
// the result.
type HMACChecksum struct {
	inner  Hash
	opad   [sha256BlockSize]byte
	digest []byte // memoized Digest() result; nil until first call
}

const (
	sha256BlockSize  = 64
	sha256DigestSize = 32
)

// NewHMACChecksum builds an HMAC-SHA256 state seeded with key. A key
// longer than the underlying block size (64 bytes) is rejected;
// a shorter key is zero-extended.
func NewHMACChecksum(key []byte) (*HMACChecksum, error) {
	if len(key) > sha256BlockSize {
		return nil, ErrInvalidArgument
	}

	var padded [sha256BlockSize]byte
	copy(padded[:], key)

	h := &HMACChecksum{inner: NewSHA256()}
	var ipad [sha256BlockSize]byte
	for i := 0; i < sha256BlockSize; i++ {
		ipad[i] = padded[i] ^ 0x36
		h.opad[i] = padded[i] ^ 0x5C
	}
	h.inner.Write(ipad[:])
	return h, nil
}

// Update feeds more cleartext into the checksum. It may also be called after
// Digest: the memoized digest is dropped, and the next Digest covers every
// byte absorbed so far, including those absorbed before the earlier Digest.
func (h *HMACChecksum) Update(p []byte) {
	if h.digest != nil {
		// Digest already memoized: further updates would silently stop
		// affecting a finalized value, so this is almost always a caller
		// bug. Reset the memo rather than ignore the call, matching the
		// "idempotent until you ask again" contract of the block stream's
		// peek semantics elsewhere in this package.
		h.digest = nil
	}
	h.inner.Write(p)
}

// Digest finalizes the checksum: d1 = SHA256(inner), result =
// SHA256(opad || d1). The result is memoized so repeated calls are cheap
// and stable.
func (h *HMACChecksum) Digest() []byte {
	if h.digest != nil {
		out := make([]byte, len(h.digest))
		copy(out, h.digest)
		return out
	}
	d1 := h.inner.Sum(nil)

	outer := NewSHA256()
	outer.Write(h.opad[:])
	outer.Write(d1)
	h.digest = outer.Sum(nil)

	out := make([]byte, len(h.digest))
	copy(out, h.digest)
	return out
}

// Clone deep-copies the checksum, including the inner hash's absorbed
// state and any memoized digest, so a caller can fork off a checkpoint
// without disturbing the original's ability to keep absorbing bytes.
func (h *HMACChecksum) Clone() *HMACChecksum {
	clone := &HMACChecksum{
		inner: h.inner.Clone(),
		opad:  h.opad,
	}
	if h.digest != nil {
		clone.digest = append([]byte(nil), h.digest...)
	}
	return clone
}

// Destroy zeroes the stored opad and any memoized digest so the key
// material does not linger in memory after the checksum is done with.
func (h *HMACChecksum) Destroy() {
	for i := range h.opad {
		h.opad[i] = 0
	}
	for i := range h.digest {
		h.digest[i] = 0
	}
	h.digest = nil
}
