package pwsafe

// Record is a minimal stand-in for a fuller external record model,
// deliberately out of scope here: a logical record is just a
// sequence of RawFields, conventionally terminated by a field of type
// EndOfRecordType. The core does not interpret the fields' contents; this
// type exists only so the CLI (cmd/pwsafe-tool) and the round-trip tests
// have something concrete to exercise the field codec and file layer with.
type Record struct {
	Fields []*RawField
}

// Get returns the first field of the given type in the record, if any.
func (r Record) Get(typ byte) (*RawField, bool) {
	for _, f := range r.Fields {
		if f.Type() == typ {
			return f, true
		}
	}
	return nil, false
}

// RecordIterator is a pull-style iterator over an in-memory slice of
// records, shaped like RawFieldReader so callers that
// already know RawFieldReader's HasNext/Next idiom can reuse it here.
type RecordIterator struct {
	records []Record
	idx     int
}

// NewRecordIterator wraps records for sequential consumption.
func NewRecordIterator(records []Record) *RecordIterator {
	return &RecordIterator{records: records}
}

// HasNext reports whether another record remains.
func (it *RecordIterator) HasNext() bool {
	return it.idx < len(it.records)
}

// Next returns the next record.
func (it *RecordIterator) Next() (Record, error) {
	if !it.HasNext() {
		return Record{}, ErrInvalidState
	}
	r := it.records[it.idx]
	it.idx++
	return r, nil
}
