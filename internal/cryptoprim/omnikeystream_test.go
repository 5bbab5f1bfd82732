package cryptoprim

import (
	"bytes"
	"testing"
)

func TestFindOmniKeystream_RecoversKnownSeq(t *testing.T) {
	sender := "1EXoDusjGwvnjZUyKkxZ4UHEf77z6A5S4P"
	const seq = 7

	plain := make([]byte, 31)
	plain[0] = seq
	copy(plain[1:], []byte("omni message payload goes here"))

	key := omniKeystream(sender, seq)
	chunk := make([]byte, 31)
	for i := range chunk {
		chunk[i] = plain[i] ^ key[i]
	}

	got, ok := FindOmniKeystream(sender, chunk)
	if !ok {
		t.Fatalf("expected keystream search to recover seq=%d", seq)
	}
	if got.Seq != seq {
		t.Fatalf("expected recovered seq=%d, got %d", seq, got.Seq)
	}
	if !bytes.Equal(got.Payload, plain[1:]) {
		t.Fatalf("expected payload %q, got %q", plain[1:], got.Payload)
	}
}

func TestFindOmniKeystream_RejectsWrongChunkLength(t *testing.T) {
	if _, ok := FindOmniKeystream("addr", make([]byte, 30)); ok {
		t.Fatalf("expected a 30-byte chunk (not 31) to be rejected")
	}
}

func TestFindOmniKeystream_NoMatchWithWrongSender(t *testing.T) {
	sender := "1EXoDusjGwvnjZUyKkxZ4UHEf77z6A5S4P"
	const seq = 3
	plain := make([]byte, 31)
	plain[0] = seq
	key := omniKeystream(sender, seq)
	chunk := make([]byte, 31)
	for i := range chunk {
		chunk[i] = plain[i] ^ key[i]
	}

	// The search accepts any candidate whose first decrypted byte equals its
	// seq, so an unrelated sender can pass by chance; none of the 255
	// candidates derived from this sender does for this chunk.
	if _, ok := FindOmniKeystream("1differentSenderAddressAAAAAAAAAA", chunk); ok {
		t.Fatalf("expected keystream search keyed to a different sender to fail")
	}
}
