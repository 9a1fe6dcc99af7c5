package pwsafe

// Version identifies which on-disk PasswordSafe format a file header and
// block stream are speaking.
type Version int

const (
	// VersionUnknown is the zero value; never valid on an opened file.
	VersionUnknown Version = iota
	V1
	V2
	V3
)

func (v Version) String() string {
	switch v {
	case V1:
		return "V1"
	case V2:
		return "V2"
	case V3:
		return "V3"
	default:
		return "unknown"
	}
}

// Status discriminates the outcome of Open: a wrong passphrase is a
// benign result, not an error.
type Status int

const (
	StatusOK Status = iota
	StatusWrongPassphrase
	StatusWrongFormat
)

// EndOfRecordType is the raw field type external record assemblers use to
// terminate one logical record in the field stream. The core does not
// interpret field contents; the file layer uses this type only to find the
// end of each record, of the V3 header field area and of the V3 record area.
const EndOfRecordType = 0xFF

// v3HeaderUUIDType is the canonical V3 header field carrying the file UUID;
// the V3 round-trip tests use it.
const v3HeaderUUIDType = 0x00

// v2VersionMarker is the literal text PasswordSafe V2 files store as their
// first field to let a V1 prober detect "this is actually a V2 file".
const v2VersionMarker = " !!!Version 2 File Format!!! Please upgrade to PasswordSafe 2.0 or later"

// v3EOFTag is the 16-byte unencrypted sentinel that immediately follows the
// final 0xFF field of a V3 payload, ahead of the 32-byte HMAC digest.
const v3EOFTag = "PWS3-EOFPWS3-EOF"

// v3Tag is the 4-byte magic at the start of a V3 file.
const v3Tag = "PWS3"

// minStretchIterations is the floor V3 key stretching requires; Write
// rejects an explicit iter count below this.
const minStretchIterations = 2048

// EnvPassphrase is the environment variable the CLI reads the passphrase
// from.
const EnvPassphrase = "PWSAFE_PASSPHRASE"
