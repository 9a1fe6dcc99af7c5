package pwsafe

import (
	"bytes"
	"testing"
)

func fieldRoundTrip(t *testing.T, version Version, bs int, length int) {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	iv := make([]byte, bs)

	var enc, dec BlockCipher
	var err error
	if bs == 8 {
		enc, err = NewBlowfishCBCEncrypter(key[:16], iv)
		if err != nil {
			t.Fatal(err)
		}
		dec, err = NewBlowfishCBCDecrypter(key[:16], iv)
	} else {
		enc, err = NewTwofishCBCEncrypter(key, iv)
		if err != nil {
			t.Fatal(err)
		}
		dec, err = NewTwofishCBCDecrypter(key, iv)
	}
	if err != nil {
		t.Fatal(err)
	}

	body := make([]byte, length)
	for i := range body {
		body[i] = byte(i % 251)
	}
	field := NewRawField(0x06, body)

	var out bytes.Buffer
	bos := NewBlockOutputStream(&out, enc)
	if err := field.WriteTo(bos, version); err != nil {
		t.Fatal(err)
	}
	if err := bos.Close(); err != nil {
		t.Fatal(err)
	}

	bis := NewBlockInputStream(bytes.NewReader(out.Bytes()), dec)
	got, err := ReadRawField(bis, version)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected a field, got none")
	}
	if got.Type() != field.Type() {
		t.Fatalf("type mismatch: got 0x%02x want 0x%02x", got.Type(), field.Type())
	}
	if !bytes.Equal(got.GetData(), body) {
		t.Fatalf("body mismatch for length %d: got %d bytes, want %d", length, len(got.GetData()), len(body))
	}
}

func TestFieldRoundTripV3Lengths(t *testing.T) {
	bs := 16
	lengths := []int{0, 1, bs - 5 - 1, bs - 5, bs - 5 + 1, 2 * bs, 500}
	for _, l := range lengths {
		fieldRoundTrip(t, V3, bs, l)
	}
}

func TestFieldRoundTripV2Lengths(t *testing.T) {
	bs := 8
	lengths := []int{0, 1, bs - 1, bs, bs + 1, 2 * bs, 500}
	for _, l := range lengths {
		fieldRoundTrip(t, V2, bs, l)
	}
}

func TestFieldBlockCountV3(t *testing.T) {
	bs := 16
	cases := map[int]int{
		0:        1,
		1:        1,
		bs - 5:   1,
		bs - 5 + 1: 2,
		2 * bs:   3,
	}
	for length, want := range cases {
		if got := FieldBlockCount(length, V3, bs); got != want {
			t.Errorf("FieldBlockCount(%d, V3, %d) = %d, want %d", length, bs, got, want)
		}
	}
}

func TestFieldBlockCountV2(t *testing.T) {
	bs := 8
	cases := map[int]int{
		0:      2,
		1:      2,
		bs:     2,
		bs + 1: 3,
	}
	for length, want := range cases {
		if got := FieldBlockCount(length, V2, bs); got != want {
			t.Errorf("FieldBlockCount(%d, V2, %d) = %d, want %d", length, bs, got, want)
		}
	}
}

func TestRawFieldEqualityIsTypeAndCRC(t *testing.T) {
	a := NewRawField(0x06, []byte("same"))
	b := NewRawField(0x06, []byte("same"))
	c := NewRawField(0x07, []byte("same"))
	if !a.Equals(b) {
		t.Fatal("fields with equal type and body should compare equal")
	}
	if a.Equals(c) {
		t.Fatal("fields with differing type should not compare equal")
	}
	if a.HashCode() != b.HashCode() {
		t.Fatal("equal fields must hash equal")
	}
}

func TestVeilRoundTripsTransparently(t *testing.T) {
	body := []byte("super secret password")
	f := NewRawField(0x06, body)
	f.SetEncrypted(true)
	if !f.IsEncrypted() {
		t.Fatal("expected field to report encrypted")
	}
	if !bytes.Equal(f.GetData(), body) {
		t.Fatal("GetData must return cleartext even while veiled")
	}
	f.SetEncrypted(false)
	if f.IsEncrypted() {
		t.Fatal("expected field to report not encrypted")
	}
	if !bytes.Equal(f.GetData(), body) {
		t.Fatal("GetData must return cleartext after unveiling")
	}
}

func TestNewRawFieldSliceZeroFillsMissingTail(t *testing.T) {
	f := NewRawFieldSlice(0x01, []byte("ab"), 0, 5)
	want := []byte{'a', 'b', 0, 0, 0}
	if !bytes.Equal(f.GetData(), want) {
		t.Fatalf("got %v, want %v", f.GetData(), want)
	}
}

func TestClampLengthClampsHighBit(t *testing.T) {
	if got := clampLength(0xFFFFFFFF); got != 0x7FFFFFFF {
		t.Fatalf("clampLength(0xFFFFFFFF) = %#x, want 0x7FFFFFFF", got)
	}
	if got := clampLength(42); got != 42 {
		t.Fatalf("clampLength(42) = %d, want 42", got)
	}
}
