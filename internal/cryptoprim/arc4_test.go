package cryptoprim

import (
	"bytes"
	"testing"
)

func TestDecryptWithTxid_RoundTrip(t *testing.T) {
	txid := "abcd1234abcd1234abcd1234abcd1234abcd1234abcd1234abcd1234abcd1234"
	key, ok := PrepareKeyFromTxid(txid)
	if !ok {
		t.Fatalf("expected valid hex txid to produce a key")
	}

	plaintext := []byte("stamp:hello world")
	ciphertext, err := Decrypt(key, plaintext) // ARC4 is its own inverse
	if err != nil {
		t.Fatalf("unexpected encrypt error: %v", err)
	}

	recovered, ok := DecryptWithTxid(txid, ciphertext)
	if !ok {
		t.Fatalf("expected DecryptWithTxid to succeed")
	}
	if !bytes.Equal(recovered, plaintext) {
		t.Fatalf("expected %q, got %q", plaintext, recovered)
	}
}

func TestPrepareKeyFromTxid_RejectsNonHex(t *testing.T) {
	if _, ok := PrepareKeyFromTxid("not-hex-at-all"); ok {
		t.Fatalf("expected non-hex txid to fail")
	}
}

func TestDecryptWithTxid_RejectsNonHexTxid(t *testing.T) {
	if _, ok := DecryptWithTxid("zz", []byte("irrelevant")); ok {
		t.Fatalf("expected non-hex txid to make DecryptWithTxid fail")
	}
}
