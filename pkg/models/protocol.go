package models

// Protocol is the outer classification discriminant. The ordinal order
// below is load-bearing: it is both the classifier dispatch order
// (spec §4.8.1) and the tie-break order when more than one classifier
// could match the same transaction.
type Protocol int

const (
	ProtocolBitcoinStamps Protocol = iota
	ProtocolCounterparty
	ProtocolOmniLayer
	ProtocolChancecoin
	ProtocolPPk
	ProtocolAsciiIdentifier
	ProtocolOpReturnSignalled
	ProtocolDataStorage
	ProtocolLikelyDataStorage
	ProtocolLikelyLegitimateMultisig
	ProtocolUnknown
)

func (p Protocol) String() string {
	switch p {
	case ProtocolBitcoinStamps:
		return "BitcoinStamps"
	case ProtocolCounterparty:
		return "Counterparty"
	case ProtocolOmniLayer:
		return "OmniLayer"
	case ProtocolChancecoin:
		return "Chancecoin"
	case ProtocolPPk:
		return "PPk"
	case ProtocolAsciiIdentifier:
		return "AsciiIdentifierProtocols"
	case ProtocolOpReturnSignalled:
		return "OpReturnSignalled"
	case ProtocolDataStorage:
		return "DataStorage"
	case ProtocolLikelyDataStorage:
		return "LikelyDataStorage"
	case ProtocolLikelyLegitimateMultisig:
		return "LikelyLegitimateMultisig"
	default:
		return "Unknown"
	}
}

// ParseProtocol reverses Protocol.String, used when reading a persisted
// classification back out of the store.
func ParseProtocol(s string) (Protocol, bool) {
	for p := ProtocolBitcoinStamps; p <= ProtocolUnknown; p++ {
		if p.String() == s {
			return p, true
		}
	}
	return ProtocolUnknown, false
}

// Variant is the protocol-specific sub-classification. The vocabulary is
// closed per protocol; see the exported Variant* constants in each
// internal/classify protocol file for the valid values of a given
// Protocol. Stored as a plain string because each protocol has an
// independent, differently-shaped variant set (spec §9 "tagged-variant
// representation").
type Variant string

// Variants with no sub-classification (content-less, content_type stays
// NULL per spec §4.8.3) use the empty string.
const VariantNone Variant = ""

// Valid-null variant set: transaction_classifications.content_type is
// permitted to be NULL when Variant is one of these (spec §8 property 4).
var validNullVariants = map[Variant]bool{
	"StampsUnknown":            true,
	"OmniFailedDeobfuscation":  true,
	"LikelyDataStorage":        true,
	"LikelyLegitimateMultisig": true,
	"Unknown":                  true,
}

// IsValidNullVariant reports whether variant permits a NULL content_type
// even when protocol_signature_found is true.
func IsValidNullVariant(variant Variant) bool {
	return validNullVariants[variant]
}
