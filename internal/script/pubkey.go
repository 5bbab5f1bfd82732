package script

// ExtractCompressed returns the raw bytes of a 33-byte compressed pubkey.
// Returns (nil, false) unless the decoded length is exactly 33 bytes. With
// skipPrefix=true it returns bytes[1:] (the 32-byte payload after the
// 0x02/0x03 sign byte) instead of the full 33 bytes.
func ExtractCompressed(pubkeyHex string, skipPrefix bool) ([]byte, bool) {
	b, ok := DecodeHex(pubkeyHex)
	if !ok || len(b) != 33 {
		return nil, false
	}
	if skipPrefix {
		return b[1:], true
	}
	return b, true
}

// ExtractUncompressed is the 65-byte analogue of ExtractCompressed.
func ExtractUncompressed(pubkeyHex string, skipPrefix bool) ([]byte, bool) {
	b, ok := DecodeHex(pubkeyHex)
	if !ok || len(b) != 65 {
		return nil, false
	}
	if skipPrefix {
		return b[1:], true
	}
	return b, true
}

// ExtractWithLengthPrefix treats byte 0 of the decoded pubkey as a length
// L and returns bytes[1:1+L]. Requires L <= len-1. Used for Counterparty
// 1-of-2 and Chancecoin length-prefixed payloads.
func ExtractWithLengthPrefix(pubkeyHex string) ([]byte, bool) {
	b, ok := DecodeHex(pubkeyHex)
	if !ok || len(b) < 1 {
		return nil, false
	}
	l := int(b[0])
	if l > len(b)-1 {
		return nil, false
	}
	return b[1 : 1+l], true
}

// ExtractRange returns bytes[start:end] of the decoded pubkey. Returns
// (nil, false) if out of bounds or start >= end.
func ExtractRange(pubkeyHex string, start, end int) ([]byte, bool) {
	b, ok := DecodeHex(pubkeyHex)
	if !ok {
		return nil, false
	}
	if start < 0 || end > len(b) || start >= end {
		return nil, false
	}
	return b[start:end], true
}

// ExtractStampsChunk / ExtractP2MSChunk return bytes[1:32] of a 33-byte
// compressed pubkey: the 31-byte payload used by Stamps, Counterparty and
// Omni to smuggle data chunks inside a multisig pubkey slot.
func ExtractStampsChunk(pubkeyHex string) ([]byte, bool) {
	return ExtractRange(pubkeyHex, 1, 32)
}

func ExtractP2MSChunk(pubkeyHex string) ([]byte, bool) {
	return ExtractRange(pubkeyHex, 1, 32)
}
