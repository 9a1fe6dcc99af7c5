package pwsafe

import (
	"bytes"
	"crypto/rand"
	"crypto/sha1"
	"fmt"
	"io"
)

const (
	v1RandStuffLen = 8
	v1RandHashLen  = 20
	v1SaltLen      = 20
	v1IPThingLen   = 8
	v1PrefixLen    = v1RandStuffLen + v1RandHashLen + v1SaltLen + v1IPThingLen
	v1BlockSize    = 8 // Blowfish
)

// FileHeaderV1 holds the on-disk prefix of a V1 file: randStuff:8,
// randHash:20, salt:20, ipThing:8.
type FileHeaderV1 struct {
	randStuff [v1RandStuffLen]byte
	randHash  [v1RandHashLen]byte
	salt      [v1SaltLen]byte
	ipThing   [v1IPThingLen]byte
}

// ReadFileHeaderV1 reads the 56-byte V1 prefix from r.
func ReadFileHeaderV1(r io.Reader) (*FileHeaderV1, error) {
	var buf [v1PrefixLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, fmt.Errorf("pwsafe: truncated V1 header: %w", ErrUnexpectedEOF)
		}
		return nil, err
	}
	h := &FileHeaderV1{}
	off := 0
	copy(h.randStuff[:], buf[off:off+v1RandStuffLen])
	off += v1RandStuffLen
	copy(h.randHash[:], buf[off:off+v1RandHashLen])
	off += v1RandHashLen
	copy(h.salt[:], buf[off:off+v1SaltLen])
	off += v1SaltLen
	copy(h.ipThing[:], buf[off:off+v1IPThingLen])
	return h, nil
}

// genRandHash implements the V1 key-check hash: tempSalt =
// SHA1(randStuff padded to 10 bytes || passphrase); x = randStuff, iterated
// 1000 times through Blowfish-ECB(tempSalt); result = SHA1(x padded to 10
// bytes). The padding to 10 bytes (two zero bytes appended to the 8-byte
// randStuff) mirrors the original algorithm's fixed-size scratch buffer.
func genRandHash(randStuff [v1RandStuffLen]byte, passphrase []byte) ([v1RandHashLen]byte, error) {
	var padded [10]byte
	copy(padded[:v1RandStuffLen], randStuff[:])

	h1 := sha1.New()
	h1.Write(padded[:])
	h1.Write(passphrase)
	tempSalt := h1.Sum(nil)

	ecb, err := NewBlowfishECB(tempSalt)
	if err != nil {
		return [v1RandHashLen]byte{}, err
	}

	x := make([]byte, v1RandStuffLen)
	copy(x, randStuff[:])
	for i := 0; i < 1000; i++ {
		next := make([]byte, v1RandStuffLen)
		ecb.CryptBlocks(next, x)
		x = next
	}

	var finalPadded [10]byte
	copy(finalPadded[:v1RandStuffLen], x)
	h2 := sha1.New()
	h2.Write(finalPadded[:])

	var out [v1RandHashLen]byte
	copy(out[:], h2.Sum(nil))
	return out, nil
}

// VerifyPassphrase reports whether passphrase matches this header's stored
// randHash. A false result is the benign "wrong passphrase" outcome, not
// an error.
func (h *FileHeaderV1) VerifyPassphrase(passphrase []byte) (bool, error) {
	computed, err := genRandHash(h.randStuff, passphrase)
	if err != nil {
		return false, err
	}
	return bytes.Equal(computed[:], h.randHash[:]), nil
}

// fileCipherKeyV1V2 derives the shared V1/V2 file cipher key: SHA1(passphrase || salt).
func fileCipherKeyV1V2(passphrase, salt []byte) []byte {
	h := sha1.New()
	h.Write(passphrase)
	h.Write(salt)
	return h.Sum(nil)
}

// NewDecryptCipher builds the Blowfish-CBC(key, IV=ipThing) decrypting
// cipher this header's payload is encrypted under.
func (h *FileHeaderV1) NewDecryptCipher(passphrase []byte) (BlockCipher, error) {
	key := fileCipherKeyV1V2(passphrase, h.salt[:])
	return NewBlowfishCBCDecrypter(key, h.ipThing[:])
}

// NewEncryptCipher builds the Blowfish-CBC(key, IV=ipThing) encrypting
// counterpart, used when writing a V1 file.
func (h *FileHeaderV1) NewEncryptCipher(passphrase []byte) (BlockCipher, error) {
	key := fileCipherKeyV1V2(passphrase, h.salt[:])
	return NewBlowfishCBCEncrypter(key, h.ipThing[:])
}

// generateFileHeaderV1 builds a fresh V1 prefix for a new file: random
// salt and CBC IV (ipThing), and a randHash computed from a random
// randStuff so VerifyPassphrase succeeds for the given passphrase.
func generateFileHeaderV1(passphrase []byte) (*FileHeaderV1, error) {
	h := &FileHeaderV1{}
	if _, err := rand.Read(h.randStuff[:]); err != nil {
		return nil, err
	}
	if _, err := rand.Read(h.salt[:]); err != nil {
		return nil, err
	}
	if _, err := rand.Read(h.ipThing[:]); err != nil {
		return nil, err
	}
	randHash, err := genRandHash(h.randStuff, passphrase)
	if err != nil {
		return nil, err
	}
	h.randHash = randHash
	return h, nil
}

// writeTo writes the 56-byte V1 prefix to w.
func (h *FileHeaderV1) writeTo(w io.Writer) error {
	for _, p := range [][]byte{h.randStuff[:], h.randHash[:], h.salt[:], h.ipThing[:]} {
		if _, err := w.Write(p); err != nil {
			return err
		}
	}
	return nil
}
