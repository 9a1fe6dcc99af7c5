package pwsafe

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// RawField is the TLV triple (type, length, data) framed atop the block
// stream. Its data buffer may be held
// "veiled" — encrypted in place under the process-local veil cipher — so
// sensitive bytes are not kept as long-lived plaintext in memory; GetData
// always hands back a decrypted copy, never the veiled buffer itself.
//
// Equality and hashing are CRC-based, not byte-based: two fields of the
// same type whose cleartext bodies collide under CRC32 compare equal. This
// aliases different payloads with equal CRCs — a hazard to preserve, not
// fix.
type RawField struct {
	typ       byte
	length    uint32
	data      []byte // cleartext, or veiled ciphertext when encrypted is true
	encrypted bool
	crc       uint32 // always computed from cleartext, cached before veiling
}

func newRawFieldFromBuffer(typ byte, buf []byte) *RawField {
	return &RawField{typ: typ, length: uint32(len(buf)), data: buf, crc: crc32.ChecksumIEEE(buf)}
}

// NewRawField builds a field from a type and an optional data slice. A nil
// slice yields a zero-length field. The slice is copied.
func NewRawField(typ byte, data []byte) *RawField {
	var buf []byte
	if data != nil {
		buf = append([]byte(nil), data...)
	}
	return newRawFieldFromBuffer(typ, buf)
}

// NewRawFieldSlice builds a field from data[start:start+length]. length may
// exceed len(data)-start, in which case the missing tail is zero-filled, per
// matching this format's field-slicing convention.
func NewRawFieldSlice(typ byte, data []byte, start, length int) *RawField {
	buf := make([]byte, length)
	if start < len(data) {
		avail := len(data) - start
		n := avail
		if n > length {
			n = length
		}
		if n > 0 {
			copy(buf, data[start:start+n])
		}
	}
	return newRawFieldFromBuffer(typ, buf)
}

// NewTextField UTF-8 encodes an optional string into a field. A nil string
// yields a zero-length field.
func NewTextField(typ byte, s *string) *RawField {
	var buf []byte
	if s != nil {
		buf = []byte(*s)
	}
	return newRawFieldFromBuffer(typ, buf)
}

// NewTimeField divides millisSinceEpoch by 1000 and writes the result as a
// little-endian unsigned integer of byteLen bytes (4..=8).
func NewTimeField(typ byte, millisSinceEpoch int64, byteLen int) (*RawField, error) {
	if byteLen < 4 || byteLen > 8 {
		return nil, ErrInvalidArgument
	}
	seconds := uint64(millisSinceEpoch / 1000)
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], seconds)
	buf := make([]byte, byteLen)
	copy(buf, tmp[:byteLen])
	return newRawFieldFromBuffer(typ, buf), nil
}

// Type returns the field's type byte.
func (f *RawField) Type() byte { return f.typ }

// Length returns the cleartext body length.
func (f *RawField) Length() uint32 { return f.length }

// GetCrc returns the cached CRC32 of the cleartext body.
func (f *RawField) GetCrc() uint32 { return f.crc }

// IsEncrypted reports whether the internal buffer is currently veiled.
func (f *RawField) IsEncrypted() bool { return f.encrypted }

// GetData always returns a fresh copy of the cleartext body, regardless of
// whether the internal buffer is currently veiled.
func (f *RawField) GetData() []byte {
	out := make([]byte, len(f.data))
	copy(out, f.data)
	if f.encrypted {
		veilDecrypt(out)
	}
	return out
}

// SetEncrypted toggles veiling. Turning veiling on or off when it is
// already in that state is a no-op; otherwise the internal buffer is
// transformed in place under the process-local veil cipher.
func (f *RawField) SetEncrypted(enc bool) {
	if enc == f.encrypted {
		return
	}
	if enc {
		veilEncrypt(f.data)
	} else {
		veilDecrypt(f.data)
	}
	f.encrypted = enc
}

// Equals implements CRC-based equality: type equal AND CRC32-of-body
// equal.
func (f *RawField) Equals(other *RawField) bool {
	if other == nil {
		return false
	}
	return f.typ == other.typ && f.crc == other.crc
}

// HashCode derives a hash from type and CRC, consistent with Equals so
// that equal fields always hash equal.
func (f *RawField) HashCode() uint32 { return f.crc ^ uint32(f.typ) }

// Destroy zeroes the data buffer and resets the field to its zero value,
// since this buffer may hold secret material that must not linger.
func (f *RawField) Destroy() {
	for i := range f.data {
		f.data[i] = 0
	}
	f.data = nil
	f.length = 0
	f.crc = 0
	f.typ = 0
	f.encrypted = false
}

// clampLength implements defensive handling of a length prefix with its
// high bit set: treated as a negative int32 by the original C++
// implementation, clamped to the maximum positive value rather than
// rejected outright. This is intentional, preserved behavior, not a bug
// to fix.
func clampLength(raw uint32) uint32 {
	if raw > 0x7FFFFFFF {
		return 0x7FFFFFFF
	}
	return raw
}

// ReadRawField reads one field from bis per the wire format for version
// for version. It returns (nil, nil) at a clean EOF — no
// header block at all — which RawFieldReader treats as end of stream. A
// short read mid-header or mid-body surfaces as ErrUnexpectedEOF.
func ReadRawField(bis *BlockInputStream, version Version) (*RawField, error) {
	bs := bis.BlockSize()
	header, err := bis.ReadBlock()
	if err != nil {
		return nil, err
	}
	if header == nil {
		return nil, nil
	}
	if len(header) < 5 {
		return nil, fmt.Errorf("pwsafe: field header block shorter than 5 bytes: %w", ErrUnexpectedEOF)
	}

	length := clampLength(binary.LittleEndian.Uint32(header[0:4]))
	typ := header[4]

	data := make([]byte, length)

	if version == V3 {
		inlineLen := int(length)
		if inlineLen > bs-5 {
			inlineLen = bs - 5
		}
		if inlineLen > 0 {
			copy(data[:inlineLen], header[5:5+inlineLen])
		}
		remaining := int(length) - inlineLen
		if remaining > 0 {
			nBlocks := (remaining + bs - 1) / bs
			cont, err := bis.ReadBlocks(nBlocks)
			if err != nil {
				return nil, err
			}
			if cont == nil {
				return nil, fmt.Errorf("pwsafe: field body missing: %w", ErrUnexpectedEOF)
			}
			copy(data[inlineLen:], cont[:remaining])
		}
	} else {
		// V1/V2: header block carries no inline data; a field always has
		// at least one continuation data block, even when length is 0.
		if length == 0 {
			blk, err := bis.ReadBlock()
			if err != nil {
				return nil, err
			}
			if blk == nil {
				return nil, fmt.Errorf("pwsafe: field body missing: %w", ErrUnexpectedEOF)
			}
		} else {
			nBlocks := (int(length) + bs - 1) / bs
			cont, err := bis.ReadBlocks(nBlocks)
			if err != nil {
				return nil, err
			}
			if cont == nil {
				return nil, fmt.Errorf("pwsafe: field body missing: %w", ErrUnexpectedEOF)
			}
			copy(data, cont[:length])
		}
	}

	field := newRawFieldFromBuffer(typ, data)
	if checksum := bis.Checksum(); checksum != nil {
		checksum.Update(data)
	}
	return field, nil
}

// WriteTo writes the field to bos per the wire format for version
// for version: header block (with V3 inline data), the whole
// middle blocks, and a final zero-padded tail block, in that order. It
// updates bos's attached checksum with the cleartext body.
func (f *RawField) WriteTo(bos *BlockOutputStream, version Version) error {
	bs := bos.BlockSize()
	data := f.GetData()

	header := make([]byte, bs)
	binary.LittleEndian.PutUint32(header[0:4], f.length)
	header[4] = f.typ

	if version == V3 {
		inlineLen := int(f.length)
		if inlineLen > bs-5 {
			inlineLen = bs - 5
		}
		if inlineLen > 0 {
			copy(header[5:5+inlineLen], data[:inlineLen])
		}
		if err := bos.WriteBlocks(header); err != nil {
			return err
		}
		remaining := data[inlineLen:]
		if len(remaining) > 0 {
			if err := bos.WriteBlocks(remaining); err != nil {
				return err
			}
		}
	} else {
		if err := bos.WriteBlocks(header); err != nil {
			return err
		}
		if len(data) == 0 {
			// A zero-length V1/V2 field still occupies one (empty) data
			// block; an empty slice alone would make WriteBlocks a no-op.
			if err := bos.WriteBlocks(make([]byte, bs)); err != nil {
				return err
			}
		} else {
			if err := bos.WriteBlocks(data); err != nil {
				return err
			}
		}
	}

	if checksum := bos.Checksum(); checksum != nil {
		checksum.Update(data)
	}
	return nil
}

// FieldBlockCount returns the number of B-sized blocks a field of length L
// occupies on disk for version.
func FieldBlockCount(length int, version Version, bs int) int {
	if version == V3 {
		rem := length - (bs - 5)
		if rem < 0 {
			rem = 0
		}
		return 1 + (rem+bs-1)/bs
	}
	// V1/V2: ceil(L/B), with ceil(0/B) defined as 1.
	if length == 0 {
		return 2
	}
	return 1 + (length+bs-1)/bs
}
