package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCheckpoint_RoundTripAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if cp, err := s.GetCheckpoint(ctx); err != nil || cp != nil {
		t.Fatalf("expected no checkpoint initially, got %+v err=%v", cp, err)
	}

	want := models.Checkpoint{
		LastProcessedCount: 10,
		TotalProcessed:      100,
		CSVLineNumber:       101,
		BatchNumber:         3,
		UpdatedAt:           time.Unix(1700000000, 0).UTC(),
	}
	err := s.RunBatch(ctx, func(tx *sql.Tx) error { return UpsertCheckpoint(tx, want) })
	if err != nil {
		t.Fatalf("upsert checkpoint: %v", err)
	}

	got, err := s.GetCheckpoint(ctx)
	if err != nil {
		t.Fatalf("get checkpoint: %v", err)
	}
	if got == nil || got.TotalProcessed != want.TotalProcessed || got.CSVLineNumber != want.CSVLineNumber {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	if err := s.RunBatch(ctx, func(tx *sql.Tx) error { return DeleteCheckpoint(tx) }); err != nil {
		t.Fatalf("delete checkpoint: %v", err)
	}
	if cp, err := s.GetCheckpoint(ctx); err != nil || cp != nil {
		t.Fatalf("expected checkpoint gone after delete, got %+v err=%v", cp, err)
	}
}

func TestInsertTransactionOutputAndP2MSOutput(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.RunBatch(ctx, func(tx *sql.Tx) error {
		if err := InsertBlockStubs(tx, []uint32{100}); err != nil {
			return err
		}
		out := models.TransactionOutput{
			Txid: "tx1", Vout: 0, Height: 100, AmountSats: 50000,
			ScriptHex: "51", ScriptType: models.ScriptTypeMultisig, ScriptSize: 1,
		}
		if err := InsertTransactionOutput(tx, out); err != nil {
			return err
		}
		p := models.P2MSOutput{
			Txid: "tx1", Vout: 0, RequiredSigs: 1, TotalPubkeys: 2,
			PubkeysHex: []string{"aa", "bb"},
		}
		return InsertP2MSOutput(tx, p, `["aa","bb"]`)
	})
	if err != nil {
		t.Fatalf("batch insert: %v", err)
	}

	exists, err := s.OutputExists(ctx, "tx1", 0)
	if err != nil || !exists {
		t.Fatalf("expected output to exist, err=%v exists=%v", err, exists)
	}

	outputs, err := s.P2MSOutputsForTx(ctx, "tx1")
	if err != nil {
		t.Fatalf("p2ms outputs for tx: %v", err)
	}
	if len(outputs) != 1 || outputs[0].RequiredSigs != 1 || len(outputs[0].PubkeysHex) != 2 {
		t.Fatalf("unexpected p2ms outputs: %+v", outputs)
	}

	height, ok, err := s.HeightForTx(ctx, "tx1")
	if err != nil || !ok || height != 100 {
		t.Fatalf("expected height 100, got %d ok=%v err=%v", height, ok, err)
	}
}

func TestEnrichedTransaction_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := models.EnrichedTransaction{
		Txid: "tx2", Height: 200, TotalInputValue: 100000, TotalOutputValue: 99000,
		TransactionFee: 1000, TransactionSizeBytes: 250, FeePerByte: 4, FeePerKB: 4000,
		TotalP2MSAmount: 50000, P2MSOutputsCount: 1, InputCount: 1, OutputCount: 2,
		OpReturnsHex: []string{"deadbeef"},
	}
	err := s.RunBatch(ctx, func(tx *sql.Tx) error {
		if err := InsertBlockStubs(tx, []uint32{200}); err != nil {
			return err
		}
		return InsertEnrichedTransaction(tx, e)
	})
	if err != nil {
		t.Fatalf("insert enriched tx: %v", err)
	}

	got, ok, err := s.GetEnrichedTransaction(ctx, "tx2")
	if err != nil || !ok {
		t.Fatalf("get enriched tx: ok=%v err=%v", ok, err)
	}
	if got.TransactionFee != 1000 || len(got.OpReturnsHex) != 1 || got.OpReturnsHex[0] != "deadbeef" {
		t.Fatalf("unexpected enriched tx: %+v", got)
	}

	missing, err := s.TxidsMissingClassification(ctx, 10)
	if err != nil {
		t.Fatalf("missing classification: %v", err)
	}
	if len(missing) != 1 || missing[0] != "tx2" {
		t.Fatalf("expected [tx2], got %v", missing)
	}
}

func TestClassification_UpsertIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := models.ClassificationResult{
		Txid: "tx3", Protocol: models.ProtocolLikelyLegitimateMultisig, Variant: models.VariantNone,
		ProtocolSignatureFound: false, ClassificationMethod: "spendability-analysis",
	}
	for i := 0; i < 2; i++ {
		err := s.RunBatch(ctx, func(tx *sql.Tx) error {
			return UpsertTransactionClassification(tx, c, time.Unix(1700000000, 0))
		})
		if err != nil {
			t.Fatalf("upsert classification iteration %d: %v", i, err)
		}
	}

	got, ok, err := s.ClassificationForTx(ctx, "tx3")
	if err != nil || !ok {
		t.Fatalf("classification for tx: ok=%v err=%v", ok, err)
	}
	if got.Protocol != models.ProtocolLikelyLegitimateMultisig {
		t.Fatalf("expected ProtocolLikelyLegitimateMultisig, got %v", got.Protocol)
	}

	missing, err := s.TxidsMissingDecode(ctx, 10)
	if err != nil {
		t.Fatalf("missing decode: %v", err)
	}
	if len(missing) != 1 || missing[0] != "tx3" {
		t.Fatalf("expected [tx3], got %v", missing)
	}
}

func TestDecodedPayloadsPage(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, txid := range []string{"txA", "txB", "txC"} {
		txid := txid
		err := s.RunBatch(ctx, func(tx *sql.Tx) error {
			c := models.ClassificationResult{Txid: txid, Protocol: models.ProtocolBitcoinStamps,
				Variant: "StampsClassic", ClassificationMethod: "test"}
			if err := UpsertTransactionClassification(tx, c, time.Unix(1700000000, 0)); err != nil {
				return err
			}
			return InsertDecodedPayload(tx, txid, models.ProtocolBitcoinStamps, "StampsClassic",
				true, "/out/"+txid+".bin", 128, "summary", time.Unix(int64(1700000000+i), 0))
		})
		if err != nil {
			t.Fatalf("insert decoded payload %s: %v", txid, err)
		}
	}

	page, total, err := s.DecodedPayloadsPage(ctx, 1, 2)
	if err != nil {
		t.Fatalf("decoded payloads page: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total=3, got %d", total)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	// Most recently decoded first: txC (i=2) should come before txB (i=1).
	if page[0].Txid != "txC" {
		t.Fatalf("expected txC first, got %s", page[0].Txid)
	}
}
