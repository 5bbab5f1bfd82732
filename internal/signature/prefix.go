// Package signature implements signature/pattern detection over raw byte
// payloads (spec §4.2) and the content-type sniffer (spec §4.7). These are
// pure functions with no store or RPC dependency, one detection concern
// per file.
package signature

import "bytes"

// HasPrefix reports whether data begins with sig.
func HasPrefix(data, sig []byte) bool {
	return bytes.HasPrefix(data, sig)
}

// HasAtOffset reports whether data[lo:hi] equals sig exactly — lengths
// must match exactly (hi-lo == len(sig)).
func HasAtOffset(data []byte, lo, hi int, sig []byte) bool {
	if lo < 0 || hi > len(data) || lo > hi {
		return false
	}
	if hi-lo != len(sig) {
		return false
	}
	return bytes.Equal(data[lo:hi], sig)
}

// HasAtAnyOffset performs a sliding-window search for sig anywhere in data.
func HasAtAnyOffset(data, sig []byte) bool {
	return bytes.Contains(data, sig)
}

// FindSignature returns the offset of the first occurrence of sig in
// data, or -1 if not found.
func FindSignature(data, sig []byte) int {
	return bytes.Index(data, sig)
}

// HasWithinRange reports whether sig occurs anywhere within data[lo:hi].
// hi < 0 means "to the end of data".
func HasWithinRange(data []byte, lo int, hi int, sig []byte) bool {
	if lo < 0 || lo > len(data) {
		return false
	}
	if hi < 0 || hi > len(data) {
		hi = len(data)
	}
	if lo > hi {
		return false
	}
	return bytes.Contains(data[lo:hi], sig)
}
