package pwsafe

import (
	"bytes"
	"errors"
	"testing"
)

func TestBlockRoundTrip(t *testing.T) {
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

	var out bytes.Buffer
	bos := NewBlockOutputStream(&out, enc)
	plaintext := []byte("hello world! this spans blocks!!")
	if err := bos.WriteBlocks(plaintext); err != nil {
		t.Fatal(err)
	}
	if err := bos.Close(); err != nil {
		t.Fatal(err)
	}

	bis := NewBlockInputStream(bytes.NewReader(out.Bytes()), dec)
	var got []byte
	for {
		blk, err := bis.ReadBlock()
		if err != nil {
			t.Fatal(err)
		}
		if blk == nil {
			break
		}
		got = append(got, blk...)
	}
	got = got[:len(plaintext)]
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("roundtrip mismatch: got %q want %q", got, plaintext)
	}
}

func TestBlockInputStreamTruncatedMidBlock(t *testing.T) {
	key := []byte("0123456789abcdef")
	iv := []byte("abcdefgh")
	dec, err := NewBlowfishCBCDecrypter(key, iv)
	if err != nil {
		t.Fatal(err)
	}
	bis := NewBlockInputStream(bytes.NewReader([]byte{1, 2, 3}), dec)
	if _, err := bis.ReadBlock(); !isErrUnexpectedEOF(err) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestBlockInputStreamCleanEOF(t *testing.T) {
	key := []byte("0123456789abcdef")
	iv := []byte("abcdefgh")
	dec, err := NewBlowfishCBCDecrypter(key, iv)
	if err != nil {
		t.Fatal(err)
	}
	bis := NewBlockInputStream(bytes.NewReader(nil), dec)
	blk, err := bis.ReadBlock()
	if err != nil || blk != nil {
		t.Fatalf("expected (nil, nil) at clean EOF, got (%v, %v)", blk, err)
	}
}

func TestPeekBlockIsIdempotent(t *testing.T) {
	key := []byte("0123456789abcdef")
	iv := []byte("abcdefgh")
	enc, _ := NewBlowfishCBCEncrypter(key, iv)
	dec, _ := NewBlowfishCBCDecrypter(key, iv)

	var out bytes.Buffer
	bos := NewBlockOutputStream(&out, enc)
	if err := bos.WriteBlocks([]byte("12345678")); err != nil {
		t.Fatal(err)
	}

	bis := NewBlockInputStream(bytes.NewReader(out.Bytes()), dec)
	first, err := bis.PeekBlock()
	if err != nil {
		t.Fatal(err)
	}
	second, err := bis.PeekBlock()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("peek not idempotent")
	}
	read, err := bis.ReadBlock()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(read, first) {
		t.Fatal("read after peek should return the peeked block")
	}
}

func TestReadBlocksTruncatedAfterPartialConsumption(t *testing.T) {
	key := []byte("0123456789abcdef")
	iv := []byte("abcdefgh")
	enc, _ := NewBlowfishCBCEncrypter(key, iv)
	dec, _ := NewBlowfishCBCDecrypter(key, iv)

	var out bytes.Buffer
	bos := NewBlockOutputStream(&out, enc)
	if err := bos.WriteBlocks([]byte("12345678")); err != nil { // exactly one block
		t.Fatal(err)
	}

	bis := NewBlockInputStream(bytes.NewReader(out.Bytes()), dec)
	if _, err := bis.ReadBlocks(2); !isErrUnexpectedEOF(err) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func isErrUnexpectedEOF(err error) bool {
	return errors.Is(err, ErrUnexpectedEOF)
}
