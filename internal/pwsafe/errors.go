package pwsafe

import (
	"errors"
	"fmt"
	"io"
)

// Sentinel errors for the core. Errors this package raises itself are one of
// these, returned bare or wrapped with %w, so callers can use errors.Is.
// Errors from the underlying reader or writer and from cipher key setup are
// passed through unchanged.
var (
	// ErrUnexpectedEOF marks a structural truncation: fewer than a whole
	// block, or fewer than a whole field, remained in the underlying stream.
	// It wraps io.ErrUnexpectedEOF.
	ErrUnexpectedEOF = fmt.Errorf("pwsafe: unexpected end of file mid-block or mid-field: %w", io.ErrUnexpectedEOF)

	// ErrWrongFileVersion is returned by a version-specific header reader
	// when the bytes it read belong to a different on-disk format. It is
	// recoverable: the caller tries the next version in turn.
	ErrWrongFileVersion = errors.New("pwsafe: wrong file version")

	// ErrChecksumFailed marks an HMAC mismatch discovered at the end of a
	// full V3 read. It is fatal for the operation but non-destructive —
	// the caller may still inspect whatever fields were decoded.
	ErrChecksumFailed = errors.New("pwsafe: HMAC checksum mismatch")

	// ErrInvalidArgument marks an illegal type, length, or key size supplied
	// by the caller at construction time.
	ErrInvalidArgument = errors.New("pwsafe: invalid argument")

	// ErrInvalidState marks an operation attempted on a closed stream or an
	// unverified header.
	ErrInvalidState = errors.New("pwsafe: invalid state")

	// ErrUnsupported marks a requested operation this package does not
	// implement, such as RawFieldReader.Remove.
	ErrUnsupported = errors.New("pwsafe: unsupported operation")
)

// isCleanEOF reports whether err signals that the underlying reader had no
// more bytes at all, as opposed to a partial read.
func isCleanEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
