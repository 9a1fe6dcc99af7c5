package pwsafe

// RawFieldReader is a pull-style, one-ahead iterator over the fields framed
// on a BlockInputStream. Construction preloads the first
// field; Next reads the following field before returning the current one,
// so the underlying stream always sits one field ahead of what the caller
// has seen — a small state machine standing in for a coroutine.
type RawFieldReader struct {
	bis     *BlockInputStream
	version Version
	pending *RawField
	hasNext bool
	closed  bool
}

// NewRawFieldReader constructs a reader over bis, preloading the first field.
func NewRawFieldReader(bis *BlockInputStream, version Version) (*RawFieldReader, error) {
	r := &RawFieldReader{bis: bis, version: version}
	if err := r.preload(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RawFieldReader) preload() error {
	f, err := ReadRawField(r.bis, r.version)
	if err != nil {
		return err
	}
	r.pending = f
	r.hasNext = f != nil
	return nil
}

// HasNext reports whether another field remains. It is always honest,
// including after Close, because the next field is already preloaded.
func (r *RawFieldReader) HasNext() bool {
	return !r.closed && r.hasNext
}

// Next returns the current preloaded field and reads the one after it,
// updating the attached HMAC (if any) as that next field's cleartext body
// becomes available. It returns ErrInvalidState if called with no field
// pending.
func (r *RawFieldReader) Next() (*RawField, error) {
	if r.closed || !r.hasNext {
		return nil, ErrInvalidState
	}
	cur := r.pending
	if err := r.preload(); err != nil {
		return nil, err
	}
	return cur, nil
}

// Close makes HasNext report false from now on. The underlying block
// stream is left to the caller to close.
func (r *RawFieldReader) Close() {
	r.closed = true
	r.hasNext = false
}

// Remove is unsupported.
func (r *RawFieldReader) Remove() error {
	return ErrUnsupported
}
