package models

import "time"

// ClassificationResult is the tx-level verdict written by Stage 3. Exactly
// one row exists per txid; re-running Stage 3 upserts it (spec §8
// idempotence property).
type ClassificationResult struct {
	Txid                   string
	Protocol               Protocol
	Variant                Variant
	ProtocolSignatureFound bool
	ClassificationMethod   string
	ContentType            ContentType
	HasContentType         bool // false => NULL, valid only per IsValidNullVariant/ProtocolSignatureFound
	AdditionalMetadataJSON string
	Timestamp              time.Time
}

// SpendabilityReason is the fixed short-tag vocabulary for why an output
// is or is not spendable (spec §4.8.2).
type SpendabilityReason string

const (
	ReasonAllValidECPoints      SpendabilityReason = "AllValidECPoints"
	ReasonContainsRealPubkey    SpendabilityReason = "ContainsRealPubkey"
	ReasonAllBurnKeys           SpendabilityReason = "AllBurnKeys"
	ReasonAllDataKeys           SpendabilityReason = "AllDataKeys"
	ReasonInvalidECPoints       SpendabilityReason = "InvalidECPoints"
	ReasonMixedInsufficientReal SpendabilityReason = "MixedInsufficientReal"
)

// OutputClassification is the per-(txid,vout) verdict written by Stage 3.
// Invariant: RealPubkeyCount + BurnKeyCount + DataKeyCount == TotalPubkeys,
// and IsSpendable == (RealPubkeyCount >= RequiredSigs). IsSpendable must
// never be left unset for a classified output (spec §8 property 3).
type OutputClassification struct {
	Txid                   string
	Vout                   uint32
	Protocol               Protocol
	Variant                Variant
	ProtocolSignatureFound bool
	ClassificationMethod   string
	ContentType            ContentType
	HasContentType         bool
	IsSpendable            bool
	SpendabilityReason     SpendabilityReason
	RealPubkeyCount        int
	BurnKeyCount           int
	DataKeyCount           int
	RequiredSigs           int
	TotalPubkeys           int
}
