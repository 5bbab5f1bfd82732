package cryptoprim

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// MaxOmniSeq is the inclusive upper bound of the 1-based sequence number
// searched by FindOmniKeystream (spec §4.3).
const MaxOmniSeq = 255

// omniKeystream runs the iterated SHA-256 reupload for seq rounds, starting
// from senderAddress's raw bytes, and returns the final 32-byte digest.
// Each round re-hashes the UPPERCASE hex encoding of the previous digest —
// lowercase hex at any step produces a different keystream entirely.
func omniKeystream(senderAddress string, seq int) [32]byte {
	input := []byte(senderAddress)
	var digest [32]byte
	for i := 0; i < seq; i++ {
		digest = sha256.Sum256(input)
		input = []byte(strings.ToUpper(fmt.Sprintf("%x", digest[:])))
	}
	return digest
}

// OmniCandidate is one accepted deobfuscation of a 31-byte Omni packet
// chunk: the recovered sequence number and the plaintext bytes with the
// leading seq byte stripped.
type OmniCandidate struct {
	Seq     int
	Payload []byte // 30 bytes: plaintext[1:]
}

// FindOmniKeystream searches seq∈[1..MaxOmniSeq] for the keystream that
// deobfuscates chunk (a 31-byte obfuscated packet) such that the first
// plaintext byte equals seq. Returns the first accepted candidate and true,
// or a zero OmniCandidate and false if every seq is exhausted.
func FindOmniKeystream(senderAddress string, chunk []byte) (OmniCandidate, bool) {
	if len(chunk) != 31 {
		return OmniCandidate{}, false
	}
	for seq := 1; seq <= MaxOmniSeq; seq++ {
		key := omniKeystream(senderAddress, seq)
		plain := make([]byte, 31)
		for i := range plain {
			plain[i] = chunk[i] ^ key[i]
		}
		if int(plain[0]) == seq {
			return OmniCandidate{Seq: seq, Payload: plain[1:]}, true
		}
	}
	return OmniCandidate{}, false
}
