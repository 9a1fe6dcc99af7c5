package pwsafe

import (
	"crypto/rand"
	"sync"

	"golang.org/x/crypto/twofish"
)

// The veil is a process-local CFB cipher keyed with a random IV, used by
// RawField to avoid holding sensitive field bodies as long-lived plaintext
// in memory. It is initialised once per process and torn down (zeroed) at
// process exit via Teardown, which main() calls before exiting — Go has no
// destructor hook, so this is the closest analogue to an init/teardown
// pair over module-scope state.
var (
	veilOnce sync.Once
	veilKey  [32]byte
	veilIV   [twofish.BlockSize]byte
)

func veilInit() {
	veilOnce.Do(func() {
		if _, err := rand.Read(veilKey[:]); err != nil {
			panic("pwsafe: failed to seed veil key: " + err.Error())
		}
		if _, err := rand.Read(veilIV[:]); err != nil {
			panic("pwsafe: failed to seed veil IV: " + err.Error())
		}
	})
}

// veilEncrypt and veilDecrypt run the veil cipher over data in place; CFB is its own
// inverse operation-for-operation only when driven with the same
// direction it was encrypted with, so field.go always calls the paired
// encrypt/decrypt once each, never twice in the same direction.
func veilEncrypt(data []byte) {
	veilInit()
	block, err := twofish.NewCipher(veilKey[:])
	if err != nil {
		panic("pwsafe: veil cipher init failed: " + err.Error())
	}
	c := NewCFBEncrypter(block, veilIV[:])
	c.CryptBlocks(data, data)
}

func veilDecrypt(data []byte) {
	veilInit()
	block, err := twofish.NewCipher(veilKey[:])
	if err != nil {
		panic("pwsafe: veil cipher init failed: " + err.Error())
	}
	c := NewCFBDecrypter(block, veilIV[:])
	c.CryptBlocks(data, data)
}

// Teardown zeroes the process-local veil key material. Safe to call more
// than once; a subsequent veil operation will re-seed via veilInit's
// sync.Once only if the process forks a fresh runtime, which in practice
// means Teardown should only be called once, at shutdown.
func Teardown() {
	for i := range veilKey {
		veilKey[i] = 0
	}
	for i := range veilIV {
		veilIV[i] = 0
	}
}
