package pwsafe

import (
	"sort"
	"sync"
)

// RawFieldList is a type->field mapping: uniqueness of type is enforced by
// insert-replaces-existing. It is a small map-backed collection with a
// canonical, sorted serialization order, adapted here to typed binary
// fields instead of textual path entries.
type RawFieldList struct {
	fields map[byte]*RawField
}

// NewRawFieldList returns an empty list.
func NewRawFieldList() *RawFieldList {
	return &RawFieldList{fields: make(map[byte]*RawField)}
}

// Put inserts f, replacing any existing field of the same type.
func (l *RawFieldList) Put(f *RawField) {
	l.fields[f.Type()] = f
}

// Get returns the field of the given type, if present.
func (l *RawFieldList) Get(typ byte) (*RawField, bool) {
	f, ok := l.fields[typ]
	return f, ok
}

// Remove deletes the field of the given type, if present.
func (l *RawFieldList) Remove(typ byte) {
	delete(l.fields, typ)
}

// Len returns the number of distinct field types held.
func (l *RawFieldList) Len() int {
	return len(l.fields)
}

// Types returns the set of field types present, sorted ascending, so
// iteration order is the same across runs.
func (l *RawFieldList) Types() []byte {
	out := make([]byte, 0, len(l.fields))
	for t := range l.fields {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Each calls fn once per field, in Types() order.
func (l *RawFieldList) Each(fn func(*RawField)) {
	for _, t := range l.Types() {
		fn(l.fields[t])
	}
}

// Destroy zeroes every held field's data and empties the list.
func (l *RawFieldList) Destroy() {
	for _, f := range l.fields {
		f.Destroy()
	}
	l.fields = make(map[byte]*RawField)
}

// canonicalHeaderTypes is the fixed set of recognized V3 header field
// types: the standard fields PWS3 files carry in their header area, plus
// one reserved extension type for forward compatibility.
var canonicalHeaderTypes = map[byte]bool{
	0x00: true, // file UUID
	0x01: true, // database version
	0x02: true, // non-default preferences
	0x03: true, // last-save timestamp
	0x04: true, // who-last-saved (deprecated, kept for read compatibility)
	0x05: true, // what-last-saved (application + version)
	0x06: true, // last-saved-by user
	0x07: true, // last-saved-by host
	0x08: true, // database name
	0x09: true, // database description
	0x0A: true, // database filters
	0x0E: true, // recently-used entries
	0x0F: true, // named password policies
	0x10: true, // empty groups
	0x11: true, // reserved extension type
}

// IsCanonicalHeaderType reports whether typ is one of the standard V3
// header field types HeaderFieldList recognizes.
func IsCanonicalHeaderType(typ byte) bool {
	return canonicalHeaderTypes[typ]
}

// HeaderFieldList is a RawFieldList restricted to header fields: type
// EndOfRecordType (0xFF) is forbidden as content because it is the
// end-of-list marker on disk, not a real field. Because a
// HeaderFieldList is shared as a long-lived mutable collection reachable
// from multiple call sites (the header handlers populate it at open time,
// the CLI and callers read it afterward), every mutating and iterating
// method holds an exclusive lock for its duration; this is the one
// collection in the package that needs internal synchronization.
type HeaderFieldList struct {
	mu   sync.Mutex
	list *RawFieldList
}

// NewHeaderFieldList returns an empty header field list.
func NewHeaderFieldList() *HeaderFieldList {
	return &HeaderFieldList{list: NewRawFieldList()}
}

// Put inserts f, replacing any existing field of the same type. It returns
// ErrInvalidArgument if f's type is the reserved end-of-list marker.
func (h *HeaderFieldList) Put(f *RawField) error {
	if f.Type() == EndOfRecordType {
		return ErrInvalidArgument
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.list.Put(f)
	return nil
}

// Get returns the header field of the given type, if present.
func (h *HeaderFieldList) Get(typ byte) (*RawField, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.list.Get(typ)
}

// Remove deletes the header field of the given type, if present.
func (h *HeaderFieldList) Remove(typ byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.list.Remove(typ)
}

// Len returns the number of header fields held.
func (h *HeaderFieldList) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.list.Len()
}

// Each calls fn once per header field, in ascending type order, while
// holding the list's lock. fn must not call back into this HeaderFieldList.
func (h *HeaderFieldList) Each(fn func(*RawField)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.list.Each(fn)
}

// IsCanonical reports whether typ is a recognized standard header type.
func (h *HeaderFieldList) IsCanonical(typ byte) bool {
	return IsCanonicalHeaderType(typ)
}

// Destroy zeroes every held header field and empties the list.
func (h *HeaderFieldList) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.list.Destroy()
}
