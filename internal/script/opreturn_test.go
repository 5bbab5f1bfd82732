package script

import "testing"

func TestParseOpReturnScript_SinglePush(t *testing.T) {
	data := []byte("SHADOW")
	script := append([]byte{opReturn}, pushBytes(data)...)

	got, ok := ParseOpReturnScript(EncodeHex(script))
	if !ok {
		t.Fatalf("expected OP_RETURN script to parse")
	}
	if string(got) != "SHADOW" {
		t.Fatalf("expected payload %q, got %q", "SHADOW", got)
	}
}

func TestParseOpReturnScript_MultiplePushesConcatenate(t *testing.T) {
	var script []byte
	script = append(script, opReturn)
	script = append(script, pushBytes([]byte("AB"))...)
	script = append(script, pushBytes([]byte("CD"))...)

	got, ok := ParseOpReturnScript(EncodeHex(script))
	if !ok {
		t.Fatalf("expected multi-push OP_RETURN script to parse")
	}
	if string(got) != "ABCD" {
		t.Fatalf("expected concatenated payload %q, got %q", "ABCD", got)
	}
}

func TestParseOpReturnScript_RejectsNonOpReturn(t *testing.T) {
	script := append([]byte{0x76}, pushBytes([]byte("x"))...) // OP_DUP, not OP_RETURN
	if _, ok := ParseOpReturnScript(EncodeHex(script)); ok {
		t.Fatalf("expected non-OP_RETURN script to fail")
	}
}

func TestParseOpReturnScript_EmptyScript(t *testing.T) {
	if _, ok := ParseOpReturnScript(""); ok {
		t.Fatalf("expected empty script to fail")
	}
}
