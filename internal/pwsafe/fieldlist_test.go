package pwsafe

import "testing"

func TestHeaderFieldListRejectsEndOfRecordType(t *testing.T) {
	list := NewHeaderFieldList()
	err := list.Put(NewRawField(EndOfRecordType, nil))
	if err == nil {
		t.Fatal("expected an error inserting the reserved end-of-list marker")
	}
}

func TestHeaderFieldListPutGetRemove(t *testing.T) {
	list := NewHeaderFieldList()
	if err := list.Put(NewRawField(0x08, []byte("my safe"))); err != nil {
		t.Fatal(err)
	}
	f, ok := list.Get(0x08)
	if !ok {
		t.Fatal("expected field 0x08 to be present")
	}
	if string(f.GetData()) != "my safe" {
		t.Fatalf("got %q", f.GetData())
	}
	list.Remove(0x08)
	if _, ok := list.Get(0x08); ok {
		t.Fatal("expected field 0x08 to be removed")
	}
}

func TestRawFieldListTypesSortedAscending(t *testing.T) {
	list := NewRawFieldList()
	list.Put(NewRawField(0x09, nil))
	list.Put(NewRawField(0x01, nil))
	list.Put(NewRawField(0x05, nil))

	types := list.Types()
	want := []byte{0x01, 0x05, 0x09}
	if len(types) != len(want) {
		t.Fatalf("got %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("got %v, want %v", types, want)
		}
	}
}

func TestIsCanonicalHeaderType(t *testing.T) {
	if !IsCanonicalHeaderType(0x08) {
		t.Fatal("0x08 (database name) should be canonical")
	}
	if IsCanonicalHeaderType(0xFE) {
		t.Fatal("0xFE should not be canonical")
	}
}
