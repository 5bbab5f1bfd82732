// Package script implements the hex/pubkey primitives shared by every
// stage of the pipeline: hex decoding, fixed-slot pubkey extraction, and
// secp256k1 EC-point validity. Every exported function here is total —
// malformed input yields a zero value/false/nil, never a panic, matching
// spec §4.1's "functions are total; invalid lengths or hex return None,
// not error. Length checks precede curve checks."
package script

import "encoding/hex"

// DecodeHex decodes a hex string into bytes. Returns (nil, false) for
// invalid hex (odd length, non-hex characters) instead of an error, to
// keep every primitive in this package total per spec §4.1.
func DecodeHex(s string) ([]byte, bool) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, false
	}
	return b, true
}

// EncodeHex is the inverse of DecodeHex, lower-case per Go convention.
func EncodeHex(b []byte) string {
	return hex.EncodeToString(b)
}
