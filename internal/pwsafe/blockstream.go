package pwsafe

import (
	"fmt"
	"io"
)

// BlockInputStream reads fixed-size cleartext blocks out of an encrypted
// byte source. It owns its decryption cipher and borrows the underlying
// reader — Close never closes it. The streaming shape — buffer what's
// pending, decrypt exactly one block at a time, surface a structural
// error on a short final read — mirrors a CBC stream reader, adapted from
// PKCS7 unpadding to this format's simpler "caller knows the field
// length" framing.
type BlockInputStream struct {
	r      io.Reader
	cipher BlockCipher
	bs     int

	peeked    []byte
	hasPeeked bool

	count    int
	checksum *HMACChecksum
	closed   bool
}

// NewBlockInputStream constructs a stream over r, decrypting with c.
func NewBlockInputStream(r io.Reader, c BlockCipher) *BlockInputStream {
	return &BlockInputStream{r: r, cipher: c, bs: c.BlockSize()}
}

// BlockSize returns B.
func (s *BlockInputStream) BlockSize() int { return s.bs }

// Count returns the number of cleartext blocks delivered to the caller so far.
func (s *BlockInputStream) Count() int { return s.count }

// Checksum returns the HMAC reference attached to this stream, or nil.
func (s *BlockInputStream) Checksum() *HMACChecksum { return s.checksum }

// SetChecksum attaches (or clears, with nil) an HMAC the field layer should
// update as each field's cleartext body is read. The stream itself never
// updates it; that's the field layer's job.
func (s *BlockInputStream) SetChecksum(h *HMACChecksum) { s.checksum = h }

// IsAvailable reports whether the underlying stream has at least one more
// whole block ready. It peeks to find out, so it is not free but is
// idempotent with respect to subsequent PeekBlock/ReadBlock calls.
func (s *BlockInputStream) IsAvailable() (bool, error) {
	blk, err := s.PeekBlock()
	if err != nil {
		return false, err
	}
	return blk != nil, nil
}

// fetchRaw reads exactly one ciphertext block and decrypts it. A clean EOF
// (zero bytes available) returns (nil, nil). A short read mid-block returns
// ErrUnexpectedEOF.
func (s *BlockInputStream) fetchRaw() ([]byte, error) {
	raw := make([]byte, s.bs)
	_, err := io.ReadFull(s.r, raw)
	switch {
	case err == nil:
		// fall through
	case err == io.EOF:
		return nil, nil
	case err == io.ErrUnexpectedEOF:
		return nil, fmt.Errorf("pwsafe: truncated block: %w", ErrUnexpectedEOF)
	default:
		return nil, err
	}
	dec := make([]byte, s.bs)
	s.cipher.CryptBlocks(dec, raw)
	return dec, nil
}

// PeekBlock returns the next cleartext block without advancing, or nil at
// clean EOF. Repeated calls return equal bytes until the next ReadBlock(s).
func (s *BlockInputStream) PeekBlock() ([]byte, error) {
	if s.closed {
		return nil, ErrInvalidState
	}
	if !s.hasPeeked {
		blk, err := s.fetchRaw()
		if err != nil {
			return nil, err
		}
		s.peeked = blk
		s.hasPeeked = true
	}
	if s.peeked == nil {
		return nil, nil
	}
	out := make([]byte, len(s.peeked))
	copy(out, s.peeked)
	return out, nil
}

// ReadBlock returns the next cleartext block, or nil at clean EOF.
func (s *BlockInputStream) ReadBlock() ([]byte, error) {
	if s.closed {
		return nil, ErrInvalidState
	}
	var blk []byte
	var err error
	if s.hasPeeked {
		blk = s.peeked
		s.peeked = nil
		s.hasPeeked = false
	} else {
		blk, err = s.fetchRaw()
		if err != nil {
			return nil, err
		}
	}
	if blk == nil {
		return nil, nil
	}
	s.count++
	return blk, nil
}

// ReadBlocks reads n consecutive blocks as one contiguous buffer. If EOF
// occurs partway through, it raises ErrUnexpectedEOF — blocks already
// consumed are lost to the caller, who must request whole semantic units
// up front.
func (s *BlockInputStream) ReadBlocks(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	out := make([]byte, 0, n*s.bs)
	for i := 0; i < n; i++ {
		blk, err := s.ReadBlock()
		if err != nil {
			return nil, err
		}
		if blk == nil {
			if i == 0 {
				return nil, nil
			}
			return nil, fmt.Errorf("pwsafe: readBlocks truncated after %d/%d blocks: %w", i, n, ErrUnexpectedEOF)
		}
		out = append(out, blk...)
	}
	return out, nil
}

// Close marks the stream closed. It never closes the
// underlying reader — that remains the caller's responsibility.
func (s *BlockInputStream) Close() {
	s.closed = true
}

// BlockOutputStream accepts cleartext, zero-pads it to a multiple of B,
// encrypts, and writes it to an underlying sink. Each Write call is
// self-contained: the field codec always calls it with buffers already
// sized to a field's header/middle/tail boundaries, so there is no
// cross-call remainder to track, unlike a general-purpose streaming
// writer that buffers arbitrary-sized writes.
type BlockOutputStream struct {
	w        io.Writer
	cipher   BlockCipher
	bs       int
	checksum *HMACChecksum
	closed   bool
}

// NewBlockOutputStream constructs a stream writing to w, encrypting with c.
func NewBlockOutputStream(w io.Writer, c BlockCipher) *BlockOutputStream {
	return &BlockOutputStream{w: w, cipher: c, bs: c.BlockSize()}
}

// BlockSize returns B.
func (s *BlockOutputStream) BlockSize() int { return s.bs }

// Checksum returns the HMAC reference attached to this stream, or nil.
func (s *BlockOutputStream) Checksum() *HMACChecksum { return s.checksum }

// SetChecksum attaches (or clears) the HMAC the field layer updates as it
// writes each field's cleartext body.
func (s *BlockOutputStream) SetChecksum(h *HMACChecksum) { s.checksum = h }

// WriteBlocks zero-pads data to the next multiple of B, encrypts it, and
// writes the result.
func (s *BlockOutputStream) WriteBlocks(data []byte) error {
	if s.closed {
		return ErrInvalidState
	}
	n := len(data)
	padded := n
	if rem := padded % s.bs; rem != 0 {
		padded += s.bs - rem
	}
	if padded == 0 {
		return nil
	}
	buf := make([]byte, padded)
	copy(buf, data)
	enc := make([]byte, padded)
	s.cipher.CryptBlocks(enc, buf)
	_, err := s.w.Write(enc)
	return err
}

// Close marks the stream closed. It is a no-op on the underlying sink; per
// all writes after Close fail with ErrInvalidState.
func (s *BlockOutputStream) Close() error {
	s.closed = true
	return nil
}
