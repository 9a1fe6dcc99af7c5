package pwsafe

import (
	"bytes"
	"testing"
)

func TestFileHeaderV1GenerateAndVerify(t *testing.T) {
	pass := []byte("correct horse battery staple")
	hdr, err := generateFileHeaderV1(pass)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := hdr.writeTo(&buf); err != nil {
		t.Fatal(err)
	}
	reread, err := ReadFileHeaderV1(&buf)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := reread.VerifyPassphrase(pass)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected correct passphrase to verify")
	}
	ok, err = reread.VerifyPassphrase([]byte("wrong passphrase"))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected wrong passphrase to fail verification")
	}
}

func TestFileHeaderV3GenerateAndVerify(t *testing.T) {
	pass := []byte("correct horse battery staple")
	hdr, masterKey, hmacSeed, err := GenerateFileHeaderV3(pass, minStretchIterations)
	if err != nil {
		t.Fatal(err)
	}
	if len(masterKey) != 32 || len(hmacSeed) != 32 {
		t.Fatalf("expected 32-byte keys, got %d/%d", len(masterKey), len(hmacSeed))
	}

	var buf bytes.Buffer
	if err := hdr.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}
	reread, err := ReadFileHeaderV3(&buf)
	if err != nil {
		t.Fatal(err)
	}
	ok, stretched, err := reread.VerifyPassphrase(pass)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected correct passphrase to verify")
	}
	gotMaster, gotSeed, err := reread.UnwrapKeys(stretched)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotMaster, masterKey) {
		t.Fatal("unwrapped master key does not match the generated one")
	}
	if !bytes.Equal(gotSeed, hmacSeed) {
		t.Fatal("unwrapped HMAC seed does not match the generated one")
	}

	ok, _, err = reread.VerifyPassphrase([]byte("wrong"))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected wrong passphrase to fail verification")
	}
}

func TestFileHeaderV3RejectsLowIterationCount(t *testing.T) {
	if _, _, _, err := GenerateFileHeaderV3([]byte("x"), minStretchIterations-1); err == nil {
		t.Fatal("expected an error for an iteration count below the floor")
	}
}

func TestFileHeaderV3WrongTagIsWrongFileVersion(t *testing.T) {
	_, err := ReadFileHeaderV3(bytes.NewReader([]byte("NOPE....")))
	if err != ErrWrongFileVersion {
		t.Fatalf("expected ErrWrongFileVersion, got %v", err)
	}
}

func TestV2AdministrationBlockRoundTrip(t *testing.T) {
	pass := []byte("hunter2")
	prefix, err := generateFileHeaderV1(pass)
	if err != nil {
		t.Fatal(err)
	}
	hdr := &FileHeaderV2{prefix: prefix, FormatVersion: "2.0", Options: "opt"}

	cipher, err := hdr.NewEncryptCipher(pass)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	bos := NewBlockOutputStream(&buf, cipher)
	if err := hdr.WriteAdministrationBlock(bos); err != nil {
		t.Fatal(err)
	}
	if err := bos.Close(); err != nil {
		t.Fatal(err)
	}

	decipher, err := hdr.NewDecryptCipher(pass)
	if err != nil {
		t.Fatal(err)
	}
	bis := NewBlockInputStream(bytes.NewReader(buf.Bytes()), decipher)
	reread := &FileHeaderV2{prefix: prefix}
	if err := reread.ReadAdministrationBlock(bis); err != nil {
		t.Fatal(err)
	}
	if reread.FormatVersion != "2.0" || reread.Options != "opt" {
		t.Fatalf("got %+v", reread)
	}
}
