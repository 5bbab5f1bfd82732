package protocol

import (
	"strings"
	"testing"
)

func TestDetectStampsBodyVariant_SRC20(t *testing.T) {
	payload := []byte(`{"p":"SRC-20","op":"deploy","tick":"kevin","max":"1000"}`)
	if v := DetectStampsBodyVariant(payload); v != StampsBodySRC20 {
		t.Fatalf("expected SRC20, got %v", v)
	}
}

func TestDetectStampsBodyVariant_SRC721(t *testing.T) {
	payload := []byte(`{"p":"src-721","op":"mint"}`)
	if v := DetectStampsBodyVariant(payload); v != StampsBodySRC721 {
		t.Fatalf("expected SRC721, got %v", v)
	}
}

func TestDetectStampsBodyVariant_SRC101(t *testing.T) {
	payload := []byte(`{"p":"src-101","op":"register"}`)
	if v := DetectStampsBodyVariant(payload); v != StampsBodySRC101 {
		t.Fatalf("expected SRC101, got %v", v)
	}
}

func TestDetectStampsBodyVariant_IgnoresUnknownPTag(t *testing.T) {
	payload := []byte(`{"p":"not-a-src-tag","op":"deploy"}`)
	if v := DetectStampsBodyVariant(payload); v == StampsBodySRC20 {
		t.Fatalf("expected non-SRC p tag to fall through, got SRC20")
	}
}

func TestDetectStampsBodyVariant_Compressed(t *testing.T) {
	payload := append([]byte("PK\x03\x04"), []byte("compressed archive bytes")...)
	if v := DetectStampsBodyVariant(payload); v != StampsBodyCompressed {
		t.Fatalf("expected Compressed, got %v", v)
	}
}

func TestDetectStampsBodyVariant_HTML(t *testing.T) {
	payload := []byte("<html><body><div>hello stamp art</div></body></html>")
	if v := DetectStampsBodyVariant(payload); v != StampsBodyHTML {
		t.Fatalf("expected HTML, got %v", v)
	}
}

func TestDetectStampsBodyVariant_SingleHTMLSignalIsNotEnough(t *testing.T) {
	payload := []byte(strings.Repeat("x", 20) + "<div>not really html</div>")
	if v := DetectStampsBodyVariant(payload); v == StampsBodyHTML {
		t.Fatalf("expected single signal not to trigger HTML classification")
	}
}

func TestDetectStampsBodyVariant_DataJSON(t *testing.T) {
	payload := []byte(`{"hello":"world","not_a_src_tag":true}`)
	if v := DetectStampsBodyVariant(payload); v != StampsBodyDataJSON {
		t.Fatalf("expected DataJSON, got %v", v)
	}
}

func TestDetectStampsBodyVariant_DataText(t *testing.T) {
	payload := []byte("just some plain ascii text with no markup at all")
	if v := DetectStampsBodyVariant(payload); v != StampsBodyDataText {
		t.Fatalf("expected DataText, got %v", v)
	}
}

func TestDetectStampsBodyVariant_DataBinary(t *testing.T) {
	payload := []byte{0x00, 0x01, 0x02, 0xFE, 0xFD, 0x10, 0x20, 0x30, 0x40}
	if v := DetectStampsBodyVariant(payload); v != StampsBodyDataBinary {
		t.Fatalf("expected DataBinary, got %v", v)
	}
}
