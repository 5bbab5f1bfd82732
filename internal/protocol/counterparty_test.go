package protocol

import (
	"encoding/binary"
	"testing"
)

func TestParseCounterpartyMessage_Send(t *testing.T) {
	body := make([]byte, 16)
	binary.BigEndian.PutUint64(body[0:8], 12345)
	binary.BigEndian.PutUint64(body[8:16], 99)

	msg := ParseCounterpartyMessage(CounterpartySend, body)
	if msg.Send == nil {
		t.Fatalf("expected Send body to be populated")
	}
	if msg.Send.AssetID != 12345 || msg.Send.Quantity != 99 {
		t.Fatalf("unexpected send body: %+v", msg.Send)
	}
}

func TestParseCounterpartyMessage_SendTooShortLeavesNil(t *testing.T) {
	msg := ParseCounterpartyMessage(CounterpartySend, make([]byte, 4))
	if msg.Send != nil {
		t.Fatalf("expected nil Send for truncated body")
	}
}

func TestParseCounterpartyMessage_Issuance(t *testing.T) {
	body := make([]byte, 17+len("a fungible token"))
	binary.BigEndian.PutUint64(body[0:8], 1)
	binary.BigEndian.PutUint64(body[8:16], 1000000)
	body[16] = 1
	copy(body[17:], "a fungible token")
	// trailing nulls should be trimmed
	body = append(body, 0x00, 0x00)

	msg := ParseCounterpartyMessage(CounterpartyIssuance, body)
	if msg.Issuance == nil {
		t.Fatalf("expected Issuance body to be populated")
	}
	if !msg.Issuance.Divisible {
		t.Fatalf("expected Divisible=true")
	}
	if msg.Issuance.Description != "a fungible token" {
		t.Fatalf("expected trimmed description, got %q", msg.Issuance.Description)
	}
}

func TestParseCounterpartyMessage_Broadcast(t *testing.T) {
	body := make([]byte, 16+len("price feed"))
	binary.BigEndian.PutUint32(body[0:4], 1700000000)
	binary.BigEndian.PutUint64(body[4:12], uint64(12345678)) // 0.12345678 scaled
	binary.BigEndian.PutUint32(body[12:16], 5000)
	copy(body[16:], "price feed")

	msg := ParseCounterpartyMessage(CounterpartyBroadcast, body)
	if msg.Broadcast == nil {
		t.Fatalf("expected Broadcast body to be populated")
	}
	if msg.Broadcast.Timestamp != 1700000000 {
		t.Fatalf("unexpected timestamp: %d", msg.Broadcast.Timestamp)
	}
	if msg.Broadcast.Text != "price feed" {
		t.Fatalf("unexpected text: %q", msg.Broadcast.Text)
	}
}

func TestParseCounterpartyMessage_UnmodeledTypeLeavesAllNil(t *testing.T) {
	msg := ParseCounterpartyMessage(CounterpartyTransfer, []byte{0x01, 0x02, 0x03})
	if msg.Send != nil || msg.Issuance != nil || msg.Broadcast != nil {
		t.Fatalf("expected no body parsed for an unmodeled message type")
	}
	if msg.Type != CounterpartyTransfer {
		t.Fatalf("expected Type to be preserved")
	}
}

func TestCounterpartyMessageType_String(t *testing.T) {
	cases := map[CounterpartyMessageType]string{
		CounterpartySend:                "Send",
		CounterpartyIssuance:             "Issuance",
		CounterpartyBroadcast:            "Broadcast",
		CounterpartyMessageType(99):      "Unknown",
	}
	for in, want := range cases {
		if got := in.String(); got != want {
			t.Fatalf("type %d: expected %q, got %q", in, want, got)
		}
	}
}

func TestTrimTrailingNulls(t *testing.T) {
	got := trimTrailingNulls([]byte("hello\x00\x00\x00"))
	if string(got) != "hello" {
		t.Fatalf("expected 'hello', got %q", got)
	}
	if len(trimTrailingNulls([]byte("\x00\x00"))) != 0 {
		t.Fatalf("expected empty result for all-null input")
	}
}
