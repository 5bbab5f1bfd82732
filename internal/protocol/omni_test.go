package protocol

import (
	"encoding/binary"
	"testing"
)

func omniHeader(msgType OmniMessageType) []byte {
	h := make([]byte, 4)
	binary.BigEndian.PutUint16(h[0:2], 0) // version
	binary.BigEndian.PutUint16(h[2:4], uint16(msgType))
	return h
}

func TestParseOmniMessage_TooShort(t *testing.T) {
	if _, err := ParseOmniMessage([]byte{0x00, 0x00}); err == nil {
		t.Fatalf("expected error for payload shorter than header")
	}
}

func TestParseOmniMessage_SimpleSend(t *testing.T) {
	body := make([]byte, 12)
	binary.BigEndian.PutUint32(body[0:4], 31)
	binary.BigEndian.PutUint64(body[4:12], 100000000)
	payload := append(omniHeader(OmniSimpleSend), body...)

	msg, err := ParseOmniMessage(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.SimpleSend == nil {
		t.Fatalf("expected SimpleSend to be populated")
	}
	if msg.SimpleSend.PropertyID != 31 || msg.SimpleSend.Amount != 100000000 {
		t.Fatalf("unexpected simple send body: %+v", msg.SimpleSend)
	}
}

func TestParseOmniMessage_SendAll(t *testing.T) {
	payload := append(omniHeader(OmniSendAll), 0x02)
	msg, err := ParseOmniMessage(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.SendAll == nil || msg.SendAll.EcosystemName != "Test" {
		t.Fatalf("expected SendAll ecosystem Test, got %+v", msg.SendAll)
	}
}

func TestParseOmniMessage_UnknownTypePreservesHex(t *testing.T) {
	payload := append(omniHeader(OmniMessageType(9999)), 0xde, 0xad, 0xbe, 0xef)
	msg, err := ParseOmniMessage(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.UnknownHex != "deadbeef" {
		t.Fatalf("expected deadbeef, got %q", msg.UnknownHex)
	}
}

func TestParseOmniMessage_CreatePropertyFixed(t *testing.T) {
	body := []byte{
		1,          // ecosystem
		0x00, 0x02, // property type divisible
		0x00, 0x00, 0x00, 0x00, // previous property id
	}
	fields := []string{"Companies", "Software", "MyToken", "https://example.com", ""}
	for _, f := range fields {
		body = append(body, []byte(f)...)
		body = append(body, 0x00)
	}
	body = append(body, 0, 0, 0, 0, 0, 0, 0, 42) // number of properties = 42

	payload := append(omniHeader(OmniCreatePropertyFixed), body...)
	msg, err := ParseOmniMessage(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.CreateProperty == nil {
		t.Fatalf("expected CreateProperty to be populated")
	}
	if msg.CreateProperty.Name != "MyToken" {
		t.Fatalf("expected Name=MyToken, got %q", msg.CreateProperty.Name)
	}
	if !msg.CreateProperty.HasNumberProperties || msg.CreateProperty.NumberProperties != 42 {
		t.Fatalf("expected NumberProperties=42, got %+v", msg.CreateProperty)
	}
}

func TestParseOmniMessage_GrantTokensWithInfo(t *testing.T) {
	body := make([]byte, 12)
	binary.BigEndian.PutUint32(body[0:4], 7)
	binary.BigEndian.PutUint64(body[4:12], 500)
	body = append(body, []byte("bonus grant")...)
	body = append(body, 0x00)

	payload := append(omniHeader(OmniGrantPropertyTokens), body...)
	msg, err := ParseOmniMessage(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.GrantTokens == nil || !msg.GrantTokens.HasInfo || msg.GrantTokens.Info != "bonus grant" {
		t.Fatalf("unexpected grant tokens body: %+v", msg.GrantTokens)
	}
}

func TestReadNullTerminated(t *testing.T) {
	b := []byte("hello\x00world")
	s, next, ok := readNullTerminated(b, 0)
	if !ok || s != "hello" || next != 6 {
		t.Fatalf("expected (hello, 6, true), got (%q, %d, %v)", s, next, ok)
	}
	if _, _, ok := readNullTerminated(b, 100); ok {
		t.Fatalf("expected offset beyond length to fail")
	}
	if _, _, ok := readNullTerminated([]byte("no null here"), 0); ok {
		t.Fatalf("expected missing terminator to fail")
	}
}

func TestOmniMessageType_String(t *testing.T) {
	if OmniSimpleSend.String() != "OmniSimpleSend" {
		t.Fatalf("unexpected string for OmniSimpleSend")
	}
	if OmniMessageType(12345).String() != "OmniUnknown" {
		t.Fatalf("expected OmniUnknown for unrecognised type")
	}
}
