package enrich

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcjson"

	"github.com/deadmanoz/data-carry-research-sub003/internal/rpcclient"
	"github.com/deadmanoz/data-carry-research-sub003/internal/store"
	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

// fakeCollaborator is an in-memory rpcclient.Collaborator keyed by txid, used
// to drive Stage 2 without a real node.
type fakeCollaborator struct {
	byTxid        map[string]rpcclient.Transaction
	heightForHash map[string]uint32
}

func (f *fakeCollaborator) GetTransaction(_ context.Context, txid string) (rpcclient.Transaction, error) {
	t, ok := f.byTxid[txid]
	if !ok {
		return rpcclient.Transaction{}, &rpcclient.CallError{Kind: rpcclient.ErrKindCallFailed, Method: "getrawtransaction", Message: "not found"}
	}
	return t, nil
}

func (f *fakeCollaborator) GetTransactionVerbose(context.Context, string) (*btcjson.TxRawResult, error) {
	return nil, nil
}

func (f *fakeCollaborator) GetBlock(_ context.Context, hash string) (models.Block, error) {
	height, ok := f.heightForHash[hash]
	if !ok {
		return models.Block{}, &rpcclient.CallError{Kind: rpcclient.ErrKindCallFailed, Method: "getblock", Message: "unknown hash"}
	}
	return models.Block{Height: height, BlockHash: hash, HasHash: true, HasTimestamp: true}, nil
}

func (f *fakeCollaborator) GetBlockHash(context.Context, uint32) (string, error) {
	return "", nil
}

func (f *fakeCollaborator) TestConnection(context.Context) error { return nil }

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func burnPattern33(fill byte) string {
	b := make([]byte, 33)
	for i := range b {
		b[i] = fill
	}
	hex := ""
	for _, c := range b {
		hex += string("0123456789abcdef"[c>>4]) + string("0123456789abcdef"[c&0x0f])
	}
	return hex
}

func seedMultisigOutput(t *testing.T, s *store.Store, txid string, vout uint32, height uint32, amount uint64, pubkeys []string) {
	t.Helper()
	ctx := context.Background()
	err := s.RunBatch(ctx, func(tx *sql.Tx) error {
		if err := store.InsertBlockStubs(tx, []uint32{height}); err != nil {
			return err
		}
		out := models.TransactionOutput{
			Txid: txid, Vout: vout, Height: height, AmountSats: amount,
			ScriptHex: "51", ScriptType: models.ScriptTypeMultisig, ScriptSize: 1,
		}
		if err := store.InsertTransactionOutput(tx, out); err != nil {
			return err
		}
		pubkeysJSON, err := json.Marshal(pubkeys)
		if err != nil {
			return err
		}
		p := models.P2MSOutput{Txid: txid, Vout: vout, RequiredSigs: 1, TotalPubkeys: len(pubkeys), PubkeysHex: pubkeys}
		return store.InsertP2MSOutput(tx, p, string(pubkeysJSON))
	})
	if err != nil {
		t.Fatalf("seed multisig output: %v", err)
	}
}

func TestRun_ComputesFeeAndDetectsBurnPattern(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	burnKey := burnPattern33(0x22)
	seedMultisigOutput(t, s, "tx1", 0, 100, 5000, []string{burnKey, burnKey})

	rpc := &fakeCollaborator{byTxid: map[string]rpcclient.Transaction{
		"tx1": {
			Txid: "tx1", SizeBytes: 250, IsCoinbase: false,
			Inputs: []rpcclient.TxInput{{SourceTxid: "src1", SourceVout: 0, Sequence: 0xffffffff}},
			Outputs: []rpcclient.TxOutput{
				{Vout: 0, ValueSats: 5000, ScriptHex: "51", ScriptType: "multisig"},
				{Vout: 1, ValueSats: 2000, ScriptHex: "6a0b68656c6c6f20776f726c64", ScriptType: "nulldata"},
			},
		},
		"src1": {
			Txid: "src1", SizeBytes: 200,
			Outputs: []rpcclient.TxOutput{
				{Vout: 0, ValueSats: 8000, ScriptHex: "76a914", ScriptType: "pubkeyhash", Address: "addr1"},
			},
		},
	}}

	stats, err := Run(ctx, s, rpc, DefaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Processed != 1 {
		t.Fatalf("expected 1 processed tx, got %d", stats.Processed)
	}

	enriched, ok, err := s.GetEnrichedTransaction(ctx, "tx1")
	if err != nil || !ok {
		t.Fatalf("get enriched tx: ok=%v err=%v", ok, err)
	}
	if enriched.TotalInputValue != 8000 {
		t.Fatalf("expected total input value 8000, got %d", enriched.TotalInputValue)
	}
	if enriched.TotalOutputValue != 7000 {
		t.Fatalf("expected total output value 7000, got %d", enriched.TotalOutputValue)
	}
	if enriched.TransactionFee != 1000 {
		t.Fatalf("expected fee 1000, got %d", enriched.TransactionFee)
	}
	if len(enriched.OpReturnsHex) != 1 {
		t.Fatalf("expected 1 op_return captured, got %d", len(enriched.OpReturnsHex))
	}

	var burnCount int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM burn_patterns WHERE txid = ?`, "tx1").Scan(&burnCount); err != nil {
		t.Fatalf("count burn patterns: %v", err)
	}
	if burnCount != 2 {
		t.Fatalf("expected 2 burn pattern rows (one per pubkey slot), got %d", burnCount)
	}
}

func TestRun_MarksFailedRPCFetchAsSkipped(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedMultisigOutput(t, s, "txmissing", 0, 100, 5000, []string{"aa"})
	rpc := &fakeCollaborator{byTxid: map[string]rpcclient.Transaction{}}

	stats, err := Run(ctx, s, rpc, DefaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.SkippedRPCFailure != 1 {
		t.Fatalf("expected 1 skipped RPC failure, got %d", stats.SkippedRPCFailure)
	}
	if _, ok, _ := s.GetEnrichedTransaction(ctx, "txmissing"); ok {
		t.Fatalf("expected no enriched_transactions row for a failed fetch")
	}
}

// TestRun_DiscoveredSpentMultisigOutputStubsItsBlockFirst exercises the
// case where a P2MS transaction spends a multisig output that never
// appeared in the Stage-1 CSV (so it isn't in transaction_outputs yet).
// Stage 2 discovers it via RPC and must stub its block before inserting
// the output row, or the height FK rejects the insert.
func TestRun_DiscoveredSpentMultisigOutputStubsItsBlockFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seedMultisigOutput(t, s, "tx1", 0, 100, 5000, []string{"aa", "bb"})

	rpc := &fakeCollaborator{
		byTxid: map[string]rpcclient.Transaction{
			"tx1": {
				Txid: "tx1", SizeBytes: 250, IsCoinbase: false,
				Inputs: []rpcclient.TxInput{{SourceTxid: "src1", SourceVout: 0, Sequence: 0xffffffff}},
				Outputs: []rpcclient.TxOutput{
					{Vout: 0, ValueSats: 5000, ScriptHex: "51", ScriptType: "multisig"},
				},
			},
			"src1": {
				Txid:      "src1",
				BlockHash: "deadbeef",
				SizeBytes: 200,
				Outputs: []rpcclient.TxOutput{
					{Vout: 0, ValueSats: 8000, ScriptHex: "5121aa21bb52ae", ScriptType: "multisig", Address: ""},
				},
			},
		},
		heightForHash: map[string]uint32{"deadbeef": 42},
	}

	stats, err := Run(ctx, s, rpc, DefaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Processed != 1 {
		t.Fatalf("expected 1 processed tx, got %d", stats.Processed)
	}

	exists, err := s.OutputExists(ctx, "src1", 0)
	if err != nil {
		t.Fatalf("check discovered output: %v", err)
	}
	if !exists {
		t.Fatalf("expected discovered spent multisig output src1:0 to be persisted")
	}

	var height uint32
	var isSpent bool
	if err := s.DB().QueryRowContext(ctx,
		`SELECT height, is_spent FROM transaction_outputs WHERE txid = ? AND vout = ?`, "src1", 0,
	).Scan(&height, &isSpent); err != nil {
		t.Fatalf("load discovered output: %v", err)
	}
	if height != 42 {
		t.Fatalf("expected discovered output's block stubbed at height 42, got %d", height)
	}
	if !isSpent {
		t.Fatalf("expected RPC-discovered output to be marked is_spent")
	}
}

func TestRun_NoPendingTxidsIsANoop(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stats, err := Run(ctx, s, &fakeCollaborator{byTxid: map[string]rpcclient.Transaction{}}, DefaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.TotalRecords != 0 {
		t.Fatalf("expected 0 total records, got %d", stats.TotalRecords)
	}
}
