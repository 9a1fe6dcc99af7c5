package pwsafe

import "os"

// Reader is a path-based read session wrapping Open: it encapsulates the
// file path and passphrase, and defers the actual parse until Load is
// called. Close always zeroes the passphrase, whether or not Load
// succeeded, mirroring the "encapsulate path + password, zero password on
// Close" lifecycle a command-line tool's open/use/close sequence wants.
type Reader struct {
	path       string
	passphrase []byte
	result     *OpenResult
}

// NewReader constructs a reader session for path and passphrase. Nothing
// is read from disk until Load is called.
func NewReader(path string, passphrase []byte) *Reader {
	return &Reader{path: path, passphrase: passphrase}
}

// Load opens the file at path and parses it, caching the result for
// subsequent calls. It is safe to call more than once; later calls return
// the cached result without re-reading the file.
func (r *Reader) Load() (*OpenResult, error) {
	if r.result != nil {
		return r.result, nil
	}
	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	result, err := Open(f, r.passphrase)
	if err != nil {
		return nil, err
	}
	r.result = result
	return result, nil
}

// Close zeroes the stored passphrase. It does not close any file handle,
// since Load opens and closes its own.
func (r *Reader) Close() {
	zero(r.passphrase)
}

// Writer is a path-based write session wrapping Write: it encapsulates
// the destination path, passphrase, and version, and defers creating the
// file until Save is called with the data to write.
type Writer struct {
	path       string
	passphrase []byte
	version    Version
	iter       uint32
}

// NewWriter constructs a writer session for path, passphrase, and
// version. iter is only meaningful for V3 and is ignored otherwise; pass
// 0 to use the format's default iteration count via Save.
func NewWriter(path string, passphrase []byte, version Version, iter uint32) *Writer {
	return &Writer{path: path, passphrase: passphrase, version: version, iter: iter}
}

// defaultV3Iterations is used by Save when the writer was not given an
// explicit iteration count, comfortably above the minimum this package
// enforces.
const defaultV3Iterations = 1 << 14

// Save creates (or truncates) the file at path and writes headerFields and
// records to it under the session's version and passphrase.
func (w *Writer) Save(headerFields []*RawField, records []Record) error {
	f, err := os.Create(w.path)
	if err != nil {
		return err
	}
	defer f.Close()

	iter := w.iter
	if iter == 0 {
		iter = defaultV3Iterations
	}
	return Write(f, w.passphrase, w.version, headerFields, records, iter)
}

// Close zeroes the stored passphrase.
func (w *Writer) Close() {
	zero(w.passphrase)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
