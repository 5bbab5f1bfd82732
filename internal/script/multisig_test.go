package script

import "testing"

// pushBytes builds a minimal single-byte-length push opcode + data.
func pushBytes(b []byte) []byte {
	return append([]byte{byte(len(b))}, b...)
}

func repeatByte(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestParseMultisigScript_1of2(t *testing.T) {
	pk1 := repeatByte(0x02, 33)
	pk2 := repeatByte(0x03, 33)

	var script []byte
	script = append(script, 0x51) // OP_1
	script = append(script, pushBytes(pk1)...)
	script = append(script, pushBytes(pk2)...)
	script = append(script, 0x52) // OP_2
	script = append(script, opCheckMultisig)

	parsed, ok := ParseMultisigScript(EncodeHex(script))
	if !ok {
		t.Fatalf("expected a valid multisig script to parse")
	}
	if parsed.RequiredSigs != 1 || parsed.TotalPubkeys != 2 {
		t.Fatalf("expected 1-of-2, got %d-of-%d", parsed.RequiredSigs, parsed.TotalPubkeys)
	}
	if len(parsed.PubkeysHex) != 2 {
		t.Fatalf("expected 2 pubkeys, got %d", len(parsed.PubkeysHex))
	}
	if parsed.PubkeysHex[0] != EncodeHex(pk1) || parsed.PubkeysHex[1] != EncodeHex(pk2) {
		t.Fatalf("pubkeys not recovered in order")
	}
}

func TestParseMultisigScript_RejectsMissingCheckMultisig(t *testing.T) {
	pk1 := repeatByte(0x02, 33)
	var script []byte
	script = append(script, 0x51)
	script = append(script, pushBytes(pk1)...)
	script = append(script, 0x51)
	// no OP_CHECKMULTISIG

	if _, ok := ParseMultisigScript(EncodeHex(script)); ok {
		t.Fatalf("expected parse to fail without a trailing OP_CHECKMULTISIG")
	}
}

func TestParseMultisigScript_MRequiredExceedsActualPushCount(t *testing.T) {
	pk1 := repeatByte(0x02, 33)
	var script []byte
	script = append(script, 0x52) // OP_2 (m=2)
	script = append(script, pushBytes(pk1)...)
	script = append(script, 0x51) // OP_1 (n=1) — only one pubkey pushed
	script = append(script, opCheckMultisig)

	if _, ok := ParseMultisigScript(EncodeHex(script)); ok {
		t.Fatalf("expected parse to fail when m > actual pushed pubkey count")
	}
}

func TestParseMultisigScript_InvalidHex(t *testing.T) {
	if _, ok := ParseMultisigScript("not-hex"); ok {
		t.Fatalf("expected invalid hex to fail to parse")
	}
}

func TestExtractPushes_OpPushdata1(t *testing.T) {
	data := repeatByte(0xAB, 80) // > 0x4b, needs OP_PUSHDATA1
	b := append([]byte{0x4c, byte(len(data))}, data...)

	pushes, ok := extractPushes(b)
	if !ok {
		t.Fatalf("expected OP_PUSHDATA1 sequence to parse")
	}
	if len(pushes) != 1 || len(pushes[0]) != 80 {
		t.Fatalf("expected one 80-byte push, got %d pushes", len(pushes))
	}
}

func TestExtractPushes_TruncatedPushFails(t *testing.T) {
	b := []byte{0x05, 0x01, 0x02} // claims 5 bytes, only 2 present
	if _, ok := extractPushes(b); ok {
		t.Fatalf("expected truncated push to fail")
	}
}
