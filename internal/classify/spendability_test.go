package classify

import (
	"testing"

	"github.com/deadmanoz/data-carry-research-sub003/internal/script"
	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

func stampsBurnPubkeyHex(fill byte) string {
	b := make([]byte, 33)
	for i := range b {
		b[i] = fill
	}
	return script.EncodeHex(b)
}

func proofOfBurnPubkeyHex() string {
	b := make([]byte, 33)
	b[0] = 0x02
	for i := 1; i < len(b); i++ {
		b[i] = 0xFF
	}
	return script.EncodeHex(b)
}

// TestCategorizePubkeys_StampsBurnTemplateCountsAsBurn guards against
// regressing to an EC-validity-only burn check: a Stamps byte-repetition
// key is never a valid curve point, so testing EC validity before the
// burn templates would always miscount it as data instead of burn.
func TestCategorizePubkeys_StampsBurnTemplateCountsAsBurn(t *testing.T) {
	real, burn, data := categorizePubkeys([]string{validPubkeyHex, stampsBurnPubkeyHex(0x22)})
	if real != 1 || burn != 1 || data != 0 {
		t.Fatalf("expected real=1 burn=1 data=0, got real=%d burn=%d data=%d", real, burn, data)
	}
}

func TestCategorizePubkeys_ProofOfBurnCountsAsBurn(t *testing.T) {
	real, burn, data := categorizePubkeys([]string{validPubkeyHex, proofOfBurnPubkeyHex()})
	if real != 1 || burn != 1 || data != 0 {
		t.Fatalf("expected real=1 burn=1 data=0, got real=%d burn=%d data=%d", real, burn, data)
	}
}

// TestClassifyOutputs_AllBurnKeysReason exercises the full per-output
// spendability path (not just categorizePubkeys) for an output made
// entirely of Stamps burn-template keys.
func TestClassifyOutputs_AllBurnKeysReason(t *testing.T) {
	burnKey := stampsBurnPubkeyHex(0x33)
	in := TxInput{
		Txid: "tx1",
		Outputs: []P2MSOutputInput{
			{Vout: 0, RequiredSigs: 1, TotalPubkeys: 2, PubkeysHex: []string{burnKey, burnKey}},
		},
	}
	tx := models.ClassificationResult{Txid: "tx1", Protocol: models.ProtocolUnknown}
	out := ClassifyOutputs(in, tx)
	if len(out) != 1 {
		t.Fatalf("expected 1 output classification, got %d", len(out))
	}
	oc := out[0]
	if oc.RealPubkeyCount != 0 || oc.BurnKeyCount != 2 || oc.DataKeyCount != 0 {
		t.Fatalf("expected real=0 burn=2 data=0, got real=%d burn=%d data=%d",
			oc.RealPubkeyCount, oc.BurnKeyCount, oc.DataKeyCount)
	}
	if oc.IsSpendable {
		t.Fatalf("expected an all-burn-key output to be unspendable")
	}
	if oc.SpendabilityReason != models.ReasonAllBurnKeys {
		t.Fatalf("expected ReasonAllBurnKeys, got %v", oc.SpendabilityReason)
	}
}
