package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deadmanoz/data-carry-research-sub003/internal/store"
)

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

const validMultisigScriptHex = "512102020202020202020202020202020202020202020202020202020202020202020251ae"

var sampleCSV = "count,txid,vout,height,coinbase,amount,type,script,address\n" +
	"1,tx1,0,100,false,50000,p2ms," + validMultisigScriptHex + ",\n" +
	"2,tx1,1,100,false,1000,p2pkh,76a914,addr\n" +
	"3,tx2,0,101,false,294,p2ms," + validMultisigScriptHex + ",\n" +
	"4,tx3,0,102,true,0,p2ms,notvalidhex,\n"

func TestRun_OnlyKeepsP2MSRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	stats, err := Run(ctx, s, strings.NewReader(sampleCSV), DefaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.TotalRecords != 4 {
		t.Fatalf("expected 4 total records read, got %d", stats.TotalRecords)
	}
	// p2pkh row (record 2) is filtered out before counting as Processed.
	if stats.Processed != 3 {
		t.Fatalf("expected 3 p2ms rows queued for processing, got %d", stats.Processed)
	}

	exists, err := s.OutputExists(ctx, "tx1", 0)
	if err != nil || !exists {
		t.Fatalf("expected tx1:0 to be stored, err=%v exists=%v", err, exists)
	}
	if exists, _ := s.OutputExists(ctx, "tx1", 1); exists {
		t.Fatalf("expected the p2pkh output tx1:1 to never be stored")
	}

	cp, err := s.GetCheckpoint(ctx)
	if err != nil {
		t.Fatalf("get checkpoint: %v", err)
	}
	if cp != nil {
		t.Fatalf("expected checkpoint to be deleted on clean EOF, got %+v", cp)
	}
}

func TestRun_SkipsRowWithUnparsableScript(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := Run(ctx, s, strings.NewReader(sampleCSV), DefaultConfig()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if exists, _ := s.OutputExists(ctx, "tx3", 0); exists {
		t.Fatalf("expected tx3:0 (invalid script hex) to never be stored")
	}
}

func TestRun_ToleratesHashPrefixedHeader(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	csvText := "# count,txid,vout,height,coinbase,amount,type,script,address\n" +
		"1,tx9,0,500,false,60000,p2ms," + validMultisigScriptHex + ",\n"

	stats, err := Run(ctx, s, strings.NewReader(csvText), DefaultConfig())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Processed != 1 {
		t.Fatalf("expected 1 processed row, got %d", stats.Processed)
	}
	if exists, _ := s.OutputExists(ctx, "tx9", 0); !exists {
		t.Fatalf("expected tx9:0 to be stored")
	}
}

func TestParseRow_RejectsShortRecord(t *testing.T) {
	if _, ok := parseRow([]string{"1", "tx", "0"}, 1); ok {
		t.Fatalf("expected short record to be rejected")
	}
}

func TestParseRow_AcceptsTrueAndOneAsCoinbase(t *testing.T) {
	r, ok := parseRow([]string{"1", "tx1", "0", "100", "true", "1000", "p2ms", "aa", ""}, 1)
	if !ok || !r.isCoinbase {
		t.Fatalf("expected coinbase=true to parse, got %+v ok=%v", r, ok)
	}
	r, ok = parseRow([]string{"1", "tx1", "0", "100", "1", "1000", "p2ms", "aa", ""}, 1)
	if !ok || !r.isCoinbase {
		t.Fatalf("expected coinbase=1 to parse as true, got %+v ok=%v", r, ok)
	}
}
