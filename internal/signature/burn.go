package signature

import (
	"github.com/deadmanoz/data-carry-research-sub003/internal/script"
	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

// stampsBurnTemplates maps the single repeated byte value of a 33-byte
// pubkey to its BurnPatternType. All four Stamps burn templates are a
// constant byte repeated across the full 33-byte key (spec §4.2).
var stampsBurnTemplates = map[byte]models.BurnPatternType{
	0x22: models.BurnStamps22,
	0x33: models.BurnStamps33,
	0x02: models.BurnStamps0202,
	0x03: models.BurnStamps0303,
}

// ClassifyStampsBurn recognises the four Stamps byte-repetition patterns
// by constant comparison against 33-byte templates. Returns (type, true)
// on a match, (_, false) otherwise.
func ClassifyStampsBurn(pubkeyHex string) (models.BurnPatternType, bool) {
	b, ok := script.DecodeHex(pubkeyHex)
	if !ok || len(b) != 33 {
		return "", false
	}
	want, known := stampsBurnTemplates[b[0]]
	if !known {
		return "", false
	}
	for _, v := range b {
		if v != b[0] {
			return "", false
		}
	}
	return want, true
}

// IsProofOfBurn reports whether data is a proof-of-burn marker: 32 bytes
// all 0xFF, OR a 33-byte compressed-key-shaped [0x02|0x03] + 32x0xFF, OR a
// 65-byte uncompressed-key-shaped 0x04 + 64x0xFF.
func IsProofOfBurn(data []byte) bool {
	switch len(data) {
	case 32:
		return allBytesEqual(data, 0xFF)
	case 33:
		return (data[0] == 0x02 || data[0] == 0x03) && allBytesEqual(data[1:], 0xFF)
	case 65:
		return data[0] == 0x04 && allBytesEqual(data[1:], 0xFF)
	default:
		return false
	}
}

func allBytesEqual(b []byte, v byte) bool {
	for _, x := range b {
		if x != v {
			return false
		}
	}
	return true
}
