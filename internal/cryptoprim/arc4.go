// Package cryptoprim implements the two deobfuscation primitives used by
// Stage 4 payload decoding (spec §4.3, §4.4): ARC4 keyed by a transaction's
// first input txid, and the Omni iterated SHA-256 keystream search. Neither
// primitive has a suitable third-party home in the example corpus — no
// example repo imports an RC4 library, and crypto/rc4 and crypto/sha256 are
// the obvious, correct stdlib tools for a stream cipher and a hash this
// well-specified, so they're used directly rather than reached past.
package cryptoprim

import (
	"crypto/rc4"

	"github.com/deadmanoz/data-carry-research-sub003/internal/script"
)

// PrepareKeyFromTxid derives the ARC4 key bytes from a transaction's first
// input's txid, exactly as Counterparty and Stamps both do: the hex txid
// decoded to bytes in its displayed order, NOT the txid's own
// byte-reversed wire encoding. Returns (nil, false) if txid is not valid hex.
func PrepareKeyFromTxid(txidHex string) ([]byte, bool) {
	return script.DecodeHex(txidHex)
}

// Decrypt runs ARC4 with the given key over ciphertext and returns the
// resulting plaintext. ARC4 is an involution under a fixed key/keystream
// position, so the same function decrypts and encrypts.
func Decrypt(key, ciphertext []byte) ([]byte, error) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ciphertext))
	c.XORKeyStream(out, ciphertext)
	return out, nil
}

// DecryptWithTxid is the common-case helper: derive the key from the
// first input's txid hex and decrypt ciphertext in one call.
func DecryptWithTxid(txidHex string, ciphertext []byte) ([]byte, bool) {
	key, ok := PrepareKeyFromTxid(txidHex)
	if !ok || len(key) == 0 {
		return nil, false
	}
	plain, err := Decrypt(key, ciphertext)
	if err != nil {
		return nil, false
	}
	return plain, true
}
