package classify

import (
	"github.com/deadmanoz/data-carry-research-sub003/internal/script"
	"github.com/deadmanoz/data-carry-research-sub003/internal/signature"
	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

// knownBurnPubkeys are 32-byte hex values known to have no discoverable
// private key (all-zero payload, incremental counters, and similar
// publicly-documented burn addresses used by Stamps/Counterparty). Only a
// pubkey slot whose hex is exactly one of these strings matches; a 33-byte
// compressed key never does.
var knownBurnPubkeys = map[string]bool{
	"0000000000000000000000000000000000000000000000000000000000000000": true,
	"0000000000000000000000000000000000000000000000000000000000000001": true,
}

// ClassifyOutputs runs the per-output spendability analysis (spec §4.8.2)
// for every P2MS output in a transaction, given the tx-level protocol
// verdict already produced by ClassifyTransaction.
func ClassifyOutputs(in TxInput, tx models.ClassificationResult) []models.OutputClassification {
	out := make([]models.OutputClassification, 0, len(in.Outputs))
	for _, o := range in.Outputs {
		out = append(out, classifyOutputSpendability(o, tx))
	}
	return out
}

func classifyOutputSpendability(o P2MSOutputInput, tx models.ClassificationResult) models.OutputClassification {
	oc := models.OutputClassification{
		Txid:                   tx.Txid,
		Vout:                   o.Vout,
		Protocol:               tx.Protocol,
		Variant:                tx.Variant,
		ProtocolSignatureFound: tx.ProtocolSignatureFound,
		ClassificationMethod:   tx.ClassificationMethod,
		ContentType:            tx.ContentType,
		HasContentType:         tx.HasContentType,
		RequiredSigs:           o.RequiredSigs,
		TotalPubkeys:           o.TotalPubkeys,
	}

	real, burn, data := categorizePubkeys(o.PubkeysHex)
	oc.RealPubkeyCount = real
	oc.BurnKeyCount = burn
	oc.DataKeyCount = data
	oc.IsSpendable = real >= o.RequiredSigs

	switch {
	case data == 0 && burn == 0:
		oc.SpendabilityReason = models.ReasonAllValidECPoints
	case real == 0 && data > 0 && burn == 0:
		oc.SpendabilityReason = models.ReasonAllDataKeys
	case real == 0 && burn > 0 && data == 0:
		oc.SpendabilityReason = models.ReasonAllBurnKeys
	case data+burn == o.TotalPubkeys && data > 0 && burn > 0:
		// mix of data and burn slots with no real keys at all
		oc.SpendabilityReason = models.ReasonInvalidECPoints
	case oc.IsSpendable:
		oc.SpendabilityReason = models.ReasonContainsRealPubkey
	default:
		oc.SpendabilityReason = models.ReasonMixedInsufficientReal
	}

	return oc
}

// categorizePubkeys splits a P2MS output's pubkey slots into real
// (valid secp256k1 EC point, not a burn template), burn (matches the
// Stamps byte-repetition or proof-of-burn templates, spec §4.2), and data
// (invalid EC point, used to smuggle payload bytes) counts. Burn templates
// are checked before the EC-point test — a Stamps-repeat or
// proof-of-burn key is never a valid curve point, so testing EC validity
// first would always miscount it as data.
func categorizePubkeys(pubkeysHex []string) (real, burn, data int) {
	for _, pk := range pubkeysHex {
		if knownBurnPubkeys[pk] {
			burn++
			continue
		}
		if _, ok := signature.ClassifyStampsBurn(pk); ok {
			burn++
			continue
		}
		if b, ok := script.DecodeHex(pk); ok && signature.IsProofOfBurn(b) {
			burn++
			continue
		}
		if script.IsValidECPoint(pk) {
			real++
			continue
		}
		data++
	}
	return real, burn, data
}
