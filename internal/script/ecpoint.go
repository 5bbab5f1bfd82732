package script

import "github.com/btcsuite/btcd/btcec/v2"

// IsValidECPoint constructs a secp256k1 public key from the decoded
// pubkey bytes and reports whether it satisfies the curve equation. Used
// to distinguish "real" pubkeys (spendable signing keys) from invalid
// points smuggling data (spec §4.1, §4.8.2). Length/hex failures are
// checked first — a wrong-length or non-hex slot is never accidentally
// treated as a valid point.
func IsValidECPoint(pubkeyHex string) bool {
	b, ok := DecodeHex(pubkeyHex)
	if !ok {
		return false
	}
	switch len(b) {
	case 33, 65:
		// only these two lengths are even candidates for a real key
	default:
		return false
	}
	_, err := btcec.ParsePubKey(b)
	return err == nil
}
