package pwsafe

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
)

// FileHeaderV3 is the 152-byte on-disk V3 prefix:
// TAG:4="PWS3", salt:32, iter:u32 LE, h(P'):32, B1:16, B2:16 (master key,
// Twofish-ECB wrapped), B3:16, B4:16 (HMAC seed, likewise wrapped), IV:16
// (CBC IV for the payload cipher).
type FileHeaderV3 struct {
	Salt    [32]byte
	Iter    uint32
	HPPrime [32]byte // SHA-256(P'), stored to verify the stretched key
	B1, B2  [16]byte // master key K, Twofish-ECB(P') wrapped
	B3, B4  [16]byte // HMAC seed L, Twofish-ECB(P') wrapped
	IV      [16]byte
}

// ReadFileHeaderV3 reads the V3 prefix from r. A TAG mismatch is
// ErrWrongFileVersion, not a hard failure, so callers can fall back to V2/V1.
func ReadFileHeaderV3(r io.Reader) (*FileHeaderV3, error) {
	var tag [4]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, fmt.Errorf("pwsafe: truncated V3 tag: %w", ErrUnexpectedEOF)
		}
		return nil, err
	}
	if string(tag[:]) != v3Tag {
		return nil, ErrWrongFileVersion
	}

	h := &FileHeaderV3{}
	if _, err := io.ReadFull(r, h.Salt[:]); err != nil {
		return nil, wrapV3Truncation(err)
	}
	var iterBuf [4]byte
	if _, err := io.ReadFull(r, iterBuf[:]); err != nil {
		return nil, wrapV3Truncation(err)
	}
	h.Iter = binary.LittleEndian.Uint32(iterBuf[:])
	for _, dst := range [][]byte{h.HPPrime[:], h.B1[:], h.B2[:], h.B3[:], h.B4[:], h.IV[:]} {
		if _, err := io.ReadFull(r, dst); err != nil {
			return nil, wrapV3Truncation(err)
		}
	}
	return h, nil
}

func wrapV3Truncation(err error) error {
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		return fmt.Errorf("pwsafe: truncated V3 header: %w", ErrUnexpectedEOF)
	}
	return err
}

// StretchKey implements V3's key stretching: P'_0 =
// SHA256(passphrase || salt), P'_{k+1} = SHA256(P'_k), for iter rounds.
func StretchKey(passphrase, salt []byte, iter uint32) []byte {
	h := sha256.New()
	h.Write(passphrase)
	h.Write(salt)
	p := h.Sum(nil)
	for i := uint32(0); i < iter; i++ {
		h2 := sha256.New()
		h2.Write(p)
		p = h2.Sum(nil)
	}
	return p
}

// VerifyPassphrase computes the stretched key P' and checks it against the
// stored h(P'). A false result is the benign "wrong passphrase" outcome;
// on success it also returns P' so the caller can unwrap the master key and
// HMAC seed without re-stretching.
func (h *FileHeaderV3) VerifyPassphrase(passphrase []byte) (ok bool, stretched []byte, err error) {
	stretched = StretchKey(passphrase, h.Salt[:], h.Iter)
	check := sha256.Sum256(stretched)
	return bytes.Equal(check[:], h.HPPrime[:]), stretched, nil
}

// UnwrapKeys decrypts (B1,B2) and (B3,B4) under Twofish-ECB(stretched) to
// recover the 32-byte master key K and the 32-byte HMAC seed L.
func (h *FileHeaderV3) UnwrapKeys(stretched []byte) (masterKey, hmacSeed []byte, err error) {
	ecb, err := NewTwofishECBDecrypter(stretched)
	if err != nil {
		return nil, nil, err
	}
	masterKey = make([]byte, 32)
	ecb.CryptBlocks(masterKey[0:16], h.B1[:])
	ecb.CryptBlocks(masterKey[16:32], h.B2[:])
	hmacSeed = make([]byte, 32)
	ecb.CryptBlocks(hmacSeed[0:16], h.B3[:])
	ecb.CryptBlocks(hmacSeed[16:32], h.B4[:])
	return masterKey, hmacSeed, nil
}

// NewPayloadDecryptCipher builds the Twofish-CBC(K, IV) decrypting cipher.
func (h *FileHeaderV3) NewPayloadDecryptCipher(masterKey []byte) (BlockCipher, error) {
	return NewTwofishCBCDecrypter(masterKey, h.IV[:])
}

// NewPayloadEncryptCipher builds the Twofish-CBC(K, IV) encrypting cipher.
func (h *FileHeaderV3) NewPayloadEncryptCipher(masterKey []byte) (BlockCipher, error) {
	return NewTwofishCBCEncrypter(masterKey, h.IV[:])
}

// GenerateFileHeaderV3 creates a fresh V3 header for writing: random salt,
// master key K, HMAC seed L and IV, wrapped under Twofish-ECB(P') where P'
// is the stretched passphrase at the given iteration count. iter must be
// at least minStretchIterations.
func GenerateFileHeaderV3(passphrase []byte, iter uint32) (header *FileHeaderV3, masterKey, hmacSeed []byte, err error) {
	if iter < minStretchIterations {
		return nil, nil, nil, ErrInvalidArgument
	}
	h := &FileHeaderV3{Iter: iter}
	if _, err := rand.Read(h.Salt[:]); err != nil {
		return nil, nil, nil, err
	}
	if _, err := rand.Read(h.IV[:]); err != nil {
		return nil, nil, nil, err
	}
	masterKey = make([]byte, 32)
	if _, err := rand.Read(masterKey); err != nil {
		return nil, nil, nil, err
	}
	hmacSeed = make([]byte, 32)
	if _, err := rand.Read(hmacSeed); err != nil {
		return nil, nil, nil, err
	}

	stretched := StretchKey(passphrase, h.Salt[:], iter)
	h.HPPrime = sha256.Sum256(stretched)

	ecb, err := NewTwofishECB(stretched)
	if err != nil {
		return nil, nil, nil, err
	}
	ecb.CryptBlocks(h.B1[:], masterKey[0:16])
	ecb.CryptBlocks(h.B2[:], masterKey[16:32])
	ecb.CryptBlocks(h.B3[:], hmacSeed[0:16])
	ecb.CryptBlocks(h.B4[:], hmacSeed[16:32])

	return h, masterKey, hmacSeed, nil
}

// WriteTo writes the 152-byte V3 prefix to w.
func (h *FileHeaderV3) WriteTo(w io.Writer) error {
	parts := [][]byte{
		[]byte(v3Tag),
		h.Salt[:],
		nil, // iter, filled below
		h.HPPrime[:],
		h.B1[:], h.B2[:], h.B3[:], h.B4[:],
		h.IV[:],
	}
	var iterBuf [4]byte
	binary.LittleEndian.PutUint32(iterBuf[:], h.Iter)
	parts[2] = iterBuf[:]

	for _, p := range parts {
		if _, err := w.Write(p); err != nil {
			return err
		}
	}
	return nil
}
