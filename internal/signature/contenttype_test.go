package signature

import (
	"strings"
	"testing"

	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

func TestDetectContentType_EmptyIsNone(t *testing.T) {
	ct := DetectContentType(nil)
	if ct != models.ContentTypeNone {
		t.Fatalf("expected ContentTypeNone for empty data, got %v", ct)
	}
}

func TestDetectContentType_ZipArchive(t *testing.T) {
	data := append([]byte("PK\x03\x04"), []byte("rest of a fake zip entry header")...)
	ct := DetectContentType(data)
	if ct.Category != "archive" {
		t.Fatalf("expected archive category, got %q", ct.Category)
	}
}

func TestDetectContentType_ProofOfBurnTakesPriorityOverText(t *testing.T) {
	// 32 bytes of 0xFF is not printable text, but must classify as burn.
	data := []byte(strings.Repeat("\xff", 32))
	ct := DetectContentType(data)
	if ct != models.ContentTypeBurn {
		t.Fatalf("expected ContentTypeBurn, got %v", ct)
	}
}

func TestDetectContentType_FallsBackToBinary(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02, 0x03, 0xFE, 0x10, 0x20, 0x30}
	ct := DetectContentType(data)
	if ct != models.ContentTypeBinary {
		t.Fatalf("expected fallback ContentTypeBinary, got %v", ct)
	}
}

func TestHasAtOffset(t *testing.T) {
	data := []byte("0123456789")
	if !HasAtOffset(data, 2, 5, []byte("234")) {
		t.Fatalf("expected match at offset 2..5")
	}
	if HasAtOffset(data, 2, 6, []byte("234")) {
		t.Fatalf("expected length mismatch to fail")
	}
	if HasAtOffset(data, -1, 5, []byte("234")) {
		t.Fatalf("expected negative lo to fail")
	}
}

func TestHasWithinRange(t *testing.T) {
	data := []byte("the quick brown fox")
	if !HasWithinRange(data, 4, 9, []byte("quick")) {
		t.Fatalf("expected sig found within range")
	}
	if HasWithinRange(data, 10, -1, []byte("quick")) {
		t.Fatalf("expected sig not found after its own range")
	}
	if !HasWithinRange(data, 10, -1, []byte("fox")) {
		t.Fatalf("expected hi=-1 to mean 'to the end'")
	}
}
