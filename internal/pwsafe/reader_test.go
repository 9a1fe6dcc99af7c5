package pwsafe

import (
	"bytes"
	"testing"
)

func TestRawFieldReaderOneAhead(t *testing.T) {
	key := []byte("0123456789abcdef")
	iv := []byte("abcdefgh")
	enc, err := NewBlowfishCBCEncrypter(key, iv)
	if err != nil {
		t.Fatal(err)
	}
	dec, err := NewBlowfishCBCDecrypter(key, iv)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	bos := NewBlockOutputStream(&buf, enc)
	fields := []*RawField{
		NewRawField(0x01, []byte("a")),
		NewRawField(0x02, []byte("bb")),
		NewRawField(0x03, nil),
	}
	for _, f := range fields {
		if err := f.WriteTo(bos, V2); err != nil {
			t.Fatal(err)
		}
	}
	if err := bos.Close(); err != nil {
		t.Fatal(err)
	}

	bis := NewBlockInputStream(bytes.NewReader(buf.Bytes()), dec)
	reader, err := NewRawFieldReader(bis, V2)
	if err != nil {
		t.Fatal(err)
	}

	var got []*RawField
	for reader.HasNext() {
		f, err := reader.Next()
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, f)
	}
	if len(got) != len(fields) {
		t.Fatalf("got %d fields, want %d", len(got), len(fields))
	}
	for i, f := range fields {
		if !got[i].Equals(f) {
			t.Fatalf("field %d mismatch: got type=0x%02x, want type=0x%02x", i, got[i].Type(), f.Type())
		}
	}

	if _, err := reader.Next(); err != ErrInvalidState {
		t.Fatalf("expected ErrInvalidState calling Next after exhaustion, got %v", err)
	}
}

func TestRawFieldReaderRemoveUnsupported(t *testing.T) {
	key := []byte("0123456789abcdef")
	iv := []byte("abcdefgh")
	dec, err := NewBlowfishCBCDecrypter(key, iv)
	if err != nil {
		t.Fatal(err)
	}
	bis := NewBlockInputStream(bytes.NewReader(nil), dec)
	reader, err := NewRawFieldReader(bis, V2)
	if err != nil {
		t.Fatal(err)
	}
	if err := reader.Remove(); err != ErrUnsupported {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
