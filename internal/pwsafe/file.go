package pwsafe

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
)

// OpenResult is what Open and the version-specific OpenV1/OpenV2/OpenV3
// entry points return: the discriminated outcome (StatusOK /
// StatusWrongPassphrase), which version matched, any header fields that
// version carries, and the records decoded from the payload.
//
// For V3 specifically, records are decoded eagerly and the trailing HMAC
// is checked as part of Open itself rather than lazily as the caller
// pulls records, because the unencrypted trailer
// sits immediately after the last ciphertext block with no sentinel of
// its own the cipher layer could stop on — the only robust place to draw
// that line is the one piece of code that also knows where the last real
// field ended.
type OpenResult struct {
	Status  Status
	Version Version

	// Header holds the V3 header field list. Nil for V1/V2, which have no
	// header field area of their own.
	Header *HeaderFieldList

	// V2Info holds the V2 administration block (format version, user
	// options). Nil for V1/V3.
	V2Info *FileHeaderV2

	Records []Record

	// ChecksumFailed is set when a V3 file opened successfully (right
	// passphrase, well-formed structure) but its trailing HMAC did not
	// match the computed one. The records above are still populated —
	// callers may choose to use them anyway, but should surface a warning.
	ChecksumFailed bool
}

// Err reports the terminal error implied by this result, if any: a
// checksum failure becomes ErrChecksumFailed. A wrong passphrase is not
// treated as an error here; check Status directly for that.
func (o *OpenResult) Err() error {
	if o.ChecksumFailed {
		return ErrChecksumFailed
	}
	return nil
}

// Open tries V3, then V2, then V1, in that order, against src, which is
// consumed incrementally and does not need to support seeking: version
// discrimination captures whatever bytes were read on a failed guess and
// replays them ahead of the remainder of src for the next attempt, rather
// than relying on Seek.
func Open(src io.Reader, passphrase []byte) (*OpenResult, error) {
	var captured bytes.Buffer
	teed := io.TeeReader(src, &captured)
	hdr3, err := ReadFileHeaderV3(teed)
	if err == nil {
		return openV3Body(src, hdr3, passphrase)
	}
	if !errors.Is(err, ErrWrongFileVersion) {
		return nil, err
	}

	replay := io.MultiReader(bytes.NewReader(captured.Bytes()), src)
	return openV2ThenV1(replay, passphrase)
}

// OpenV3 attempts to open src strictly as a V3 file. It returns
// ErrWrongFileVersion if the leading tag does not match, with no bytes
// usefully recoverable for a fallback attempt by the caller (use Open for
// that).
func OpenV3(src io.Reader, passphrase []byte) (*OpenResult, error) {
	hdr, err := ReadFileHeaderV3(src)
	if err != nil {
		return nil, err
	}
	return openV3Body(src, hdr, passphrase)
}

func openV3Body(src io.Reader, hdr *FileHeaderV3, passphrase []byte) (*OpenResult, error) {
	ok, stretched, err := hdr.VerifyPassphrase(passphrase)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &OpenResult{Status: StatusWrongPassphrase, Version: V3}, nil
	}

	masterKey, hmacSeed, err := hdr.UnwrapKeys(stretched)
	if err != nil {
		return nil, err
	}
	cipher, err := hdr.NewPayloadDecryptCipher(masterKey)
	if err != nil {
		return nil, err
	}
	hmacChk, err := NewHMACChecksum(hmacSeed)
	if err != nil {
		return nil, err
	}
	bis := NewBlockInputStream(src, cipher)
	bis.SetChecksum(hmacChk)

	headerFields, err := readV3HeaderFields(bis)
	if err != nil {
		return nil, err
	}
	records, err := readV3RecordSection(bis)
	if err != nil {
		return nil, err
	}

	trailer := make([]byte, len(v3EOFTag)+sha256DigestSize)
	if _, err := io.ReadFull(src, trailer); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("pwsafe: truncated V3 trailer: %w", ErrUnexpectedEOF)
		}
		return nil, err
	}
	computed := hmacChk.Digest()
	stored := trailer[len(v3EOFTag):]
	checksumFailed := subtle.ConstantTimeCompare(computed, stored) != 1

	return &OpenResult{
		Status:         StatusOK,
		Version:        V3,
		Header:         headerFields,
		Records:        records,
		ChecksumFailed: checksumFailed,
	}, nil
}

// readV3HeaderFields reads fields until the header's own terminating
// EndOfRecordType field, per the header area's fixed layout.
func readV3HeaderFields(bis *BlockInputStream) (*HeaderFieldList, error) {
	list := NewHeaderFieldList()
	for {
		f, err := ReadRawField(bis, V3)
		if err != nil {
			return nil, err
		}
		if f == nil {
			return nil, fmt.Errorf("pwsafe: header field area truncated: %w", ErrUnexpectedEOF)
		}
		if f.Type() == EndOfRecordType {
			return list, nil
		}
		if err := list.Put(f); err != nil {
			return nil, err
		}
	}
}

// readV3RecordSection reads records directly off bis, one field at a
// time, stopping the instant it recognizes the final bare EndOfRecordType
// field that terminates the whole record area — as opposed to the
// per-record EndOfRecordType fields that end each individual record. It
// deliberately does not go through RawFieldReader's one-field-ahead
// preload: preloading past the final sentinel would read straight into
// the unencrypted trailer and decrypt it as if it were another field,
// corrupting both the field stream and the trailer bytes needed for HMAC
// verification.
func readV3RecordSection(bis *BlockInputStream) ([]Record, error) {
	var records []Record
	var current []*RawField
	for {
		f, err := ReadRawField(bis, V3)
		if err != nil {
			return nil, err
		}
		if f == nil {
			return nil, fmt.Errorf("pwsafe: record section truncated: %w", ErrUnexpectedEOF)
		}
		if f.Type() != EndOfRecordType {
			current = append(current, f)
			continue
		}
		if len(current) == 0 {
			// A bare terminator with nothing accumulated ahead of it: the
			// record area is done.
			return records, nil
		}
		current = append(current, f)
		records = append(records, Record{Fields: current})
		current = nil
	}
}

// openV2ThenV1 tries V2, then V1, against src under the same
// capture-and-replay discrimination Open uses against V3.
func openV2ThenV1(src io.Reader, passphrase []byte) (*OpenResult, error) {
	var capturedPrefix bytes.Buffer
	teedPrefix := io.TeeReader(src, &capturedPrefix)
	hdr2, err := ReadFileHeaderV2Prefix(teedPrefix)
	if err != nil {
		return nil, err
	}
	ok, err := hdr2.VerifyPassphrase(passphrase)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &OpenResult{Status: StatusWrongPassphrase}, nil
	}

	cipher, err := hdr2.NewDecryptCipher(passphrase)
	if err != nil {
		return nil, err
	}

	var capturedAdmin bytes.Buffer
	teedAdmin := io.TeeReader(src, &capturedAdmin)
	bis := NewBlockInputStream(teedAdmin, cipher)
	adminErr := hdr2.ReadAdministrationBlock(bis)
	if adminErr == nil {
		records, err := readToEOF(bis, V2)
		if err != nil {
			return nil, err
		}
		return &OpenResult{Status: StatusOK, Version: V2, V2Info: hdr2, Records: records}, nil
	}
	if !errors.Is(adminErr, ErrWrongFileVersion) {
		return nil, adminErr
	}

	// Not a V2 marker: this is genuine V1. The admin-block probe above
	// mutated the CBC cipher's chaining state, so rebuild a fresh cipher
	// at the original starting IV and replay the probed ciphertext ahead
	// of whatever remains of src.
	if resettable, ok := cipher.(interface{ Reset() }); ok {
		resettable.Reset()
	}
	replay := io.MultiReader(bytes.NewReader(capturedAdmin.Bytes()), src)
	bisV1 := NewBlockInputStream(replay, cipher)
	records, err := readToEOF(bisV1, V1)
	if err != nil {
		return nil, err
	}
	return &OpenResult{Status: StatusOK, Version: V1, Records: records}, nil
}

// OpenV2 attempts to open src strictly as a V2 file, returning
// ErrWrongFileVersion (with no usable fallback bytes) if the
// administration block's marker does not match.
func OpenV2(src io.Reader, passphrase []byte) (*OpenResult, error) {
	hdr, err := ReadFileHeaderV2Prefix(src)
	if err != nil {
		return nil, err
	}
	ok, err := hdr.VerifyPassphrase(passphrase)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &OpenResult{Status: StatusWrongPassphrase}, nil
	}
	cipher, err := hdr.NewDecryptCipher(passphrase)
	if err != nil {
		return nil, err
	}
	bis := NewBlockInputStream(src, cipher)
	if err := hdr.ReadAdministrationBlock(bis); err != nil {
		return nil, err
	}
	records, err := readToEOF(bis, V2)
	if err != nil {
		return nil, err
	}
	return &OpenResult{Status: StatusOK, Version: V2, V2Info: hdr, Records: records}, nil
}

// OpenV1 attempts to open src strictly as a V1 file. V1 has no marker of
// its own, so it instead probes: it reads what would be the first field
// and checks whether its body is literally the V2 marker text. If so,
// this is actually a V2 file and OpenV1 returns ErrWrongFileVersion. If
// not, the probe is folded back into a freshly-keyed block stream (via
// capture-and-replay plus a CBC reset) so the caller sees a V1 field
// stream positioned at its true first field, not one field short.
func OpenV1(src io.Reader, passphrase []byte) (*OpenResult, error) {
	hdr, err := ReadFileHeaderV1(src)
	if err != nil {
		return nil, err
	}
	ok, err := hdr.VerifyPassphrase(passphrase)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &OpenResult{Status: StatusWrongPassphrase}, nil
	}
	cipher, err := hdr.NewDecryptCipher(passphrase)
	if err != nil {
		return nil, err
	}

	var captured bytes.Buffer
	teed := io.TeeReader(src, &captured)
	probeBis := NewBlockInputStream(teed, cipher)
	probe, err := ReadRawField(probeBis, V1)
	if err != nil {
		return nil, err
	}
	if probe != nil && string(probe.GetData()) == v2VersionMarker {
		return nil, ErrWrongFileVersion
	}

	if resettable, ok := cipher.(interface{ Reset() }); ok {
		resettable.Reset()
	}
	replay := io.MultiReader(bytes.NewReader(captured.Bytes()), src)
	bis := NewBlockInputStream(replay, cipher)
	records, err := readToEOF(bis, V1)
	if err != nil {
		return nil, err
	}
	return &OpenResult{Status: StatusOK, Version: V1, Records: records}, nil
}

// readToEOF reads grouped records (fields terminated by EndOfRecordType)
// from bis until a clean structural EOF, for the versions (V1, V2) whose
// payload has no unencrypted trailer following it — so running the block
// stream straight into EOF is safe, unlike V3's record section.
func readToEOF(bis *BlockInputStream, version Version) ([]Record, error) {
	reader, err := NewRawFieldReader(bis, version)
	if err != nil {
		return nil, err
	}
	var records []Record
	var current []*RawField
	for reader.HasNext() {
		f, err := reader.Next()
		if err != nil {
			return nil, err
		}
		current = append(current, f)
		if f.Type() == EndOfRecordType {
			records = append(records, Record{Fields: current})
			current = nil
		}
	}
	if len(current) > 0 {
		records = append(records, Record{Fields: current})
	}
	return records, nil
}

// Write serializes a complete database to sink under the given version
// and passphrase. headerFields is only meaningful for V3, which is the
// only format with a header field area; it is ignored for V1/V2. iter is
// the V3 key-stretch iteration count and is ignored for V1/V2.
func Write(sink io.Writer, passphrase []byte, version Version, headerFields []*RawField, records []Record, iter uint32) error {
	switch version {
	case V3:
		return WriteV3(sink, passphrase, iter, headerFields, records)
	case V2:
		return WriteV2(sink, passphrase, records)
	case V1:
		return WriteV1(sink, passphrase, records)
	default:
		return ErrInvalidArgument
	}
}

// WriteV1 writes a complete V1 file: a fresh prefix, then each record's
// fields in order, with no header field area and no trailer.
func WriteV1(sink io.Writer, passphrase []byte, records []Record) error {
	hdr, err := generateFileHeaderV1(passphrase)
	if err != nil {
		return err
	}
	if err := hdr.writeTo(sink); err != nil {
		return err
	}
	cipher, err := hdr.NewEncryptCipher(passphrase)
	if err != nil {
		return err
	}
	bos := NewBlockOutputStream(sink, cipher)
	if err := writeRecords(bos, V1, records); err != nil {
		return err
	}
	return bos.Close()
}

// WriteV2 writes a complete V2 file: a fresh prefix, the administration
// block, then each record's fields in order.
func WriteV2(sink io.Writer, passphrase []byte, records []Record) error {
	hdr1, err := generateFileHeaderV1(passphrase)
	if err != nil {
		return err
	}
	if err := hdr1.writeTo(sink); err != nil {
		return err
	}
	hdr2 := &FileHeaderV2{prefix: hdr1, FormatVersion: "2.0", Options: ""}
	cipher, err := hdr2.NewEncryptCipher(passphrase)
	if err != nil {
		return err
	}
	bos := NewBlockOutputStream(sink, cipher)
	if err := hdr2.WriteAdministrationBlock(bos); err != nil {
		return err
	}
	if err := writeRecords(bos, V2, records); err != nil {
		return err
	}
	return bos.Close()
}

// WriteV3 writes a complete V3 file: the 152-byte prefix, the header
// field area (terminated by a single EndOfRecordType field), the record
// area (each record already expected to end with its own EndOfRecordType
// field, per the convention ReadRawField/WriteTo round-trips), one final
// bare EndOfRecordType field marking "no more records", and the
// unencrypted trailer tag plus HMAC digest over every cleartext field
// body written.
func WriteV3(sink io.Writer, passphrase []byte, iter uint32, headerFields []*RawField, records []Record) error {
	hdr, masterKey, hmacSeed, err := GenerateFileHeaderV3(passphrase, iter)
	if err != nil {
		return err
	}
	if err := hdr.WriteTo(sink); err != nil {
		return err
	}

	cipher, err := hdr.NewPayloadEncryptCipher(masterKey)
	if err != nil {
		return err
	}
	hmacChk, err := NewHMACChecksum(hmacSeed)
	if err != nil {
		return err
	}
	bos := NewBlockOutputStream(sink, cipher)
	bos.SetChecksum(hmacChk)

	for _, f := range headerFields {
		if f.Type() == EndOfRecordType {
			return ErrInvalidArgument
		}
		if err := f.WriteTo(bos, V3); err != nil {
			return err
		}
	}
	if err := NewRawField(EndOfRecordType, nil).WriteTo(bos, V3); err != nil {
		return err
	}

	if err := writeRecords(bos, V3, records); err != nil {
		return err
	}
	if err := NewRawField(EndOfRecordType, nil).WriteTo(bos, V3); err != nil {
		return err
	}
	if err := bos.Close(); err != nil {
		return err
	}

	if _, err := sink.Write([]byte(v3EOFTag)); err != nil {
		return err
	}
	_, err = sink.Write(hmacChk.Digest())
	return err
}

func writeRecords(bos *BlockOutputStream, version Version, records []Record) error {
	for _, rec := range records {
		for _, f := range rec.Fields {
			if err := f.WriteTo(bos, version); err != nil {
				return err
			}
		}
	}
	return nil
}
