package signature

import (
	"strings"
	"testing"

	"github.com/deadmanoz/data-carry-research-sub003/internal/script"
	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

func TestClassifyStampsBurn_RecognisesAllFourTemplates(t *testing.T) {
	cases := []struct {
		fill byte
		want models.BurnPatternType
	}{
		{0x22, models.BurnStamps22},
		{0x33, models.BurnStamps33},
		{0x02, models.BurnStamps0202},
		{0x03, models.BurnStamps0303},
	}
	for _, c := range cases {
		b := make([]byte, 33)
		for i := range b {
			b[i] = c.fill
		}
		got, ok := ClassifyStampsBurn(script.EncodeHex(b))
		if !ok {
			t.Fatalf("fill=0x%02x: expected a burn match", c.fill)
		}
		if got != c.want {
			t.Fatalf("fill=0x%02x: expected %v, got %v", c.fill, c.want, got)
		}
	}
}

func TestClassifyStampsBurn_RejectsNonUniformKey(t *testing.T) {
	b := make([]byte, 33)
	for i := range b {
		b[i] = 0x22
	}
	b[32] = 0x23 // breaks uniformity
	if _, ok := ClassifyStampsBurn(script.EncodeHex(b)); ok {
		t.Fatalf("expected non-uniform 33-byte key to not match a burn template")
	}
}

func TestClassifyStampsBurn_RejectsWrongLength(t *testing.T) {
	b := make([]byte, 32) // one byte short
	for i := range b {
		b[i] = 0x22
	}
	if _, ok := ClassifyStampsBurn(script.EncodeHex(b)); ok {
		t.Fatalf("expected wrong-length key to fail")
	}
}

func TestIsProofOfBurn_AllShapes(t *testing.T) {
	ff32 := strings.Repeat("\xff", 32)
	if !IsProofOfBurn([]byte(ff32)) {
		t.Fatalf("expected 32x0xFF to be a proof of burn")
	}
	compressed := append([]byte{0x02}, []byte(ff32)...)
	if !IsProofOfBurn(compressed) {
		t.Fatalf("expected 0x02+32x0xFF to be a proof of burn")
	}
	uncompressed := append([]byte{0x04}, []byte(strings.Repeat("\xff", 64))...)
	if !IsProofOfBurn(uncompressed) {
		t.Fatalf("expected 0x04+64x0xFF to be a proof of burn")
	}
	if IsProofOfBurn([]byte("not a burn pattern at all")) {
		t.Fatalf("expected arbitrary text to not be a proof of burn")
	}
}
