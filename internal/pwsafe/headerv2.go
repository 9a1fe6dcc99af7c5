package pwsafe

import (
	"io"
)

// FileHeaderV2 wraps the same on-disk prefix and cipher derivation as V1
// (same on-disk prefix and same cipher derivation), adding
// the three administration fields that immediately follow it in the
// encrypted payload: a version marker, a format version string, and a
// user options string.
type FileHeaderV2 struct {
	prefix        *FileHeaderV1
	FormatVersion string
	Options       string
}

// ReadFileHeaderV2Prefix reads the shared 56-byte V1/V2 prefix from r.
func ReadFileHeaderV2Prefix(r io.Reader) (*FileHeaderV2, error) {
	prefix, err := ReadFileHeaderV1(r)
	if err != nil {
		return nil, err
	}
	return &FileHeaderV2{prefix: prefix}, nil
}

// VerifyPassphrase reports whether passphrase matches this header's stored
// randHash, per the shared V1/V2 verification algorithm.
func (h *FileHeaderV2) VerifyPassphrase(passphrase []byte) (bool, error) {
	return h.prefix.VerifyPassphrase(passphrase)
}

// NewDecryptCipher builds the Blowfish-CBC decrypting cipher for this file's payload.
func (h *FileHeaderV2) NewDecryptCipher(passphrase []byte) (BlockCipher, error) {
	return h.prefix.NewDecryptCipher(passphrase)
}

// NewEncryptCipher builds the Blowfish-CBC encrypting counterpart.
func (h *FileHeaderV2) NewEncryptCipher(passphrase []byte) (BlockCipher, error) {
	return h.prefix.NewEncryptCipher(passphrase)
}

// ReadAdministrationBlock reads the three V2 administration fields from
// bis — version marker, format version string, user options string — and
// leaves bis positioned at the first record field. A
// version marker that doesn't match the literal V2 marker text means these
// bytes are not actually a V2 payload, so the caller should try V1 instead.
func (h *FileHeaderV2) ReadAdministrationBlock(bis *BlockInputStream) error {
	marker, err := ReadRawField(bis, V2)
	if err != nil {
		return err
	}
	if marker == nil {
		return ErrUnexpectedEOF
	}
	if string(marker.GetData()) != v2VersionMarker {
		return ErrWrongFileVersion
	}

	formatField, err := ReadRawField(bis, V2)
	if err != nil {
		return err
	}
	if formatField == nil {
		return ErrUnexpectedEOF
	}
	h.FormatVersion = string(formatField.GetData())

	optionsField, err := ReadRawField(bis, V2)
	if err != nil {
		return err
	}
	if optionsField == nil {
		return ErrUnexpectedEOF
	}
	h.Options = decodeISO88591(optionsField.GetData())
	return nil
}

// WriteAdministrationBlock writes the three V2 administration fields to
// bos, in the same order ReadAdministrationBlock expects them back in.
func (h *FileHeaderV2) WriteAdministrationBlock(bos *BlockOutputStream) error {
	marker := v2VersionMarker
	if err := NewTextField(0, &marker).WriteTo(bos, V2); err != nil {
		return err
	}
	format := h.FormatVersion
	if err := NewTextField(0, &format).WriteTo(bos, V2); err != nil {
		return err
	}
	opts := NewRawField(0, encodeISO88591(h.Options))
	return opts.WriteTo(bos, V2)
}

// decodeISO88591 decodes ISO-8859-1 bytes, where every byte maps directly
// to the Unicode code point of the same value.
func decodeISO88591(b []byte) string {
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// encodeISO88591 encodes s as ISO-8859-1, truncating any code point above
// 0xFF to its low byte (callers are expected to only pass Latin-1 text, as
// user options are specified to carry).
func encodeISO88591(s string) []byte {
	runes := []rune(s)
	out := make([]byte, len(runes))
	for i, r := range runes {
		out[i] = byte(r)
	}
	return out
}
