package models

// BurnPatternType enumerates the recognisable unspendable/marker byte
// templates a pubkey slot can carry. The set is closed: new templates
// require a spec change, not ad-hoc extension (spec §9).
type BurnPatternType string

const (
	BurnStamps22      BurnPatternType = "Stamps22"
	BurnStamps33      BurnPatternType = "Stamps33"
	BurnStamps0202    BurnPatternType = "Stamps0202"
	BurnStamps0303    BurnPatternType = "Stamps0303"
	BurnProofOfBurn   BurnPatternType = "ProofOfBurn"
)

// BurnPattern is a single detected burn template within a P2MS output,
// keyed by the pubkey's position within the output (0-based).
type BurnPattern struct {
	Txid        string
	Vout        uint32
	PubkeyIndex int
	PatternType BurnPatternType
	PatternData string // hex, for audit/debugging
}
