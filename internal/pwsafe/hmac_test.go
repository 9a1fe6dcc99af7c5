package pwsafe

import (
	"bytes"
	"testing"
)

func TestHMACKnownIncremental(t *testing.T) {
	key := []byte("this is a test key")

	whole, err := NewHMACChecksum(key)
	if err != nil {
		t.Fatal(err)
	}
	whole.Update([]byte("hello "))
	whole.Update([]byte("world"))
	wholeDigest := whole.Digest()

	split, err := NewHMACChecksum(key)
	if err != nil {
		t.Fatal(err)
	}
	split.Update([]byte("hel"))
	split.Update([]byte("lo "))
	split.Update([]byte("wor"))
	split.Update([]byte("ld"))
	splitDigest := split.Digest()

	if !bytes.Equal(wholeDigest, splitDigest) {
		t.Fatal("HMAC must be independent of how Update calls are chunked")
	}
}

func TestHMACDigestIsMemoizedAndIdempotent(t *testing.T) {
	h, err := NewHMACChecksum([]byte("key"))
	if err != nil {
		t.Fatal(err)
	}
	h.Update([]byte("data"))
	first := h.Digest()
	second := h.Digest()
	if !bytes.Equal(first, second) {
		t.Fatal("Digest should be stable across repeated calls")
	}
}

func TestHMACUpdateAfterDigestChangesResult(t *testing.T) {
	h, err := NewHMACChecksum([]byte("key"))
	if err != nil {
		t.Fatal(err)
	}
	h.Update([]byte("data"))
	before := h.Digest()
	h.Update([]byte("more"))
	after := h.Digest()
	if bytes.Equal(before, after) {
		t.Fatal("Update after Digest should change the next computed digest")
	}
}

func TestHMACCloneForksWithoutDisturbingOriginal(t *testing.T) {
	h, err := NewHMACChecksum([]byte("key"))
	if err != nil {
		t.Fatal(err)
	}
	h.Update([]byte("shared-prefix"))
	clone := h.Clone()
	clone.Update([]byte("-clone-only"))

	h.Update([]byte("-original-only"))

	if bytes.Equal(h.Digest(), clone.Digest()) {
		t.Fatal("diverging clone and original must produce different digests")
	}
}

func TestHMACRejectsOversizeKey(t *testing.T) {
	if _, err := NewHMACChecksum(make([]byte, sha256BlockSize+1)); err == nil {
		t.Fatal("expected an error for a key longer than the block size")
	}
}
