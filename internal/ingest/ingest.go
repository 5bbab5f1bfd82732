// Package ingest implements Stage 1: streaming the UTXO CSV into
// transaction_outputs/p2ms_outputs in checkpointed batches (spec §4.5),
// grounded on the teacher's batch-then-commit idiom in internal/db and its
// progress-logging scanner loop in internal/scanner/block_scanner.go.
package ingest

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/deadmanoz/data-carry-research-sub003/internal/script"
	"github.com/deadmanoz/data-carry-research-sub003/internal/store"
	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

// expectedHeader is the case-sensitive column order the CSV must carry
// (spec §4.5), whether introduced by a plain header row or a '#'-prefixed
// comment line.
var expectedHeader = []string{"count", "txid", "vout", "height", "coinbase", "amount", "type", "script", "address"}

// Config configures one Stage 1 run.
type Config struct {
	BatchSize         int
	CheckpointInterval int64
}

// DefaultConfig mirrors the spec's suggested batch sizing.
func DefaultConfig() Config {
	return Config{BatchSize: 5000, CheckpointInterval: 10000}
}

type row struct {
	lineNumber int64
	txid       string
	vout       uint32
	height     uint32
	isCoinbase bool
	amount     uint64
	rawType    string
	scriptHex  string
}

// Run streams r, writing multisig outputs in batches and checkpointing
// progress every cfg.CheckpointInterval records. If a checkpoint already
// exists it resumes from csv_line_number + 1.
func Run(ctx context.Context, s *store.Store, r io.Reader, cfg Config) (models.StageStats, error) {
	var stats models.StageStats

	resumeFrom := int64(0)
	cp, err := s.GetCheckpoint(ctx)
	if err != nil {
		return stats, fmt.Errorf("read checkpoint: %w", err)
	}
	if cp != nil {
		resumeFrom = cp.CSVLineNumber
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comment = 0 // handled manually: header itself may be '#'-prefixed

	if err := skipToHeader(reader); err != nil {
		return stats, err
	}

	var batch []row
	var lineNumber int64
	totalProcessed := checkpointTotalProcessed(cp)
	batchNumber := checkpointBatchNumber(cp)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := writeBatch(ctx, s, batch); err != nil {
			return err
		}
		stats.BatchesCommitted++
		batchNumber++
		prevTotal := totalProcessed
		totalProcessed += int64(len(batch))
		lastLine := batch[len(batch)-1].lineNumber
		batch = batch[:0]

		// Checkpoint whenever totalProcessed crosses a CheckpointInterval
		// multiple, not when the flushing batch happens to land exactly on
		// one — batches rarely divide the interval evenly (spec §4.5,
		// "every checkpoint_interval records").
		if totalProcessed/cfg.CheckpointInterval > prevTotal/cfg.CheckpointInterval {
			err := s.RunBatch(ctx, func(tx *sql.Tx) error {
				return store.UpsertCheckpoint(tx, models.Checkpoint{
					LastProcessedCount: totalProcessed,
					TotalProcessed:     totalProcessed,
					CSVLineNumber:      lastLine,
					BatchNumber:        batchNumber,
					UpdatedAt:          time.Now(),
				})
			})
			if err != nil {
				return fmt.Errorf("checkpoint upsert: %w", err)
			}
		}
		return nil
	}

	for {
		if ctx.Err() != nil {
			return stats, models.ErrCancelled
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("csv read: %w", err)
		}
		lineNumber++
		if lineNumber <= resumeFrom {
			continue
		}
		stats.TotalRecords++

		parsedRow, ok := parseRow(record, lineNumber)
		if !ok {
			stats.SkippedInvalid++
			continue
		}
		if parsedRow.rawType != "p2ms" {
			continue
		}
		batch = append(batch, parsedRow)
		stats.Processed++

		if len(batch) >= cfg.BatchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := flush(); err != nil {
		return stats, err
	}

	if err := s.RunBatch(ctx, func(tx *sql.Tx) error {
		return store.DeleteCheckpoint(tx)
	}); err != nil {
		return stats, fmt.Errorf("delete checkpoint: %w", err)
	}
	return stats, nil
}

func checkpointTotalProcessed(cp *models.Checkpoint) int64 {
	if cp == nil {
		return 0
	}
	return cp.TotalProcessed
}

func checkpointBatchNumber(cp *models.Checkpoint) int64 {
	if cp == nil {
		return 0
	}
	return cp.BatchNumber
}

// skipToHeader reads lines until it finds the header row, tolerating a
// leading '#' and any number of blank/comment lines before it.
func skipToHeader(reader *csv.Reader) error {
	reader.FieldsPerRecord = -1
	for {
		record, err := reader.Read()
		if err != nil {
			return fmt.Errorf("csv header: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		first := strings.TrimPrefix(strings.TrimSpace(record[0]), "#")
		first = strings.TrimSpace(first)
		if first == expectedHeader[0] && len(record) >= len(expectedHeader) {
			return nil
		}
	}
}

func parseRow(record []string, lineNumber int64) (row, bool) {
	if len(record) < len(expectedHeader) {
		return row{}, false
	}
	vout, err := strconv.ParseUint(strings.TrimSpace(record[2]), 10, 32)
	if err != nil {
		return row{}, false
	}
	height, err := strconv.ParseUint(strings.TrimSpace(record[3]), 10, 32)
	if err != nil {
		return row{}, false
	}
	amount, err := strconv.ParseUint(strings.TrimSpace(record[5]), 10, 64)
	if err != nil {
		return row{}, false
	}
	isCoinbase := strings.EqualFold(strings.TrimSpace(record[4]), "true") || strings.TrimSpace(record[4]) == "1"

	return row{
		lineNumber: lineNumber,
		txid:       strings.TrimSpace(record[1]),
		vout:       uint32(vout),
		height:     uint32(height),
		isCoinbase: isCoinbase,
		amount:     amount,
		rawType:    strings.ToLower(strings.TrimSpace(record[6])),
		scriptHex:  strings.TrimSpace(record[7]),
	}, true
}

func writeBatch(ctx context.Context, s *store.Store, batch []row) error {
	heights := make(map[uint32]bool)
	for _, r := range batch {
		heights[r.height] = true
	}
	heightList := make([]uint32, 0, len(heights))
	for h := range heights {
		heightList = append(heightList, h)
	}

	return s.RunBatch(ctx, func(tx *sql.Tx) error {
		if err := store.InsertBlockStubs(tx, heightList); err != nil {
			return fmt.Errorf("insert block stubs: %w", err)
		}
		for _, r := range batch {
			parsed, ok := script.ParseMultisigScript(r.scriptHex)
			if !ok {
				continue
			}
			out := models.TransactionOutput{
				Txid:       r.txid,
				Vout:       r.vout,
				Height:     r.height,
				AmountSats: r.amount,
				ScriptHex:  r.scriptHex,
				ScriptType: models.ScriptTypeMultisig,
				ScriptSize: len(r.scriptHex) / 2,
				IsCoinbase: r.isCoinbase,
				IsSpent:    false,
			}
			if err := store.InsertTransactionOutput(tx, out); err != nil {
				return fmt.Errorf("insert transaction output %s:%d: %w", r.txid, r.vout, err)
			}
			pubkeysJSON, err := json.Marshal(parsed.PubkeysHex)
			if err != nil {
				return fmt.Errorf("marshal pubkeys %s:%d: %w", r.txid, r.vout, err)
			}
			p2ms := models.P2MSOutput{
				Txid:         r.txid,
				Vout:         r.vout,
				RequiredSigs: parsed.RequiredSigs,
				TotalPubkeys: parsed.TotalPubkeys,
				PubkeysHex:   parsed.PubkeysHex,
			}
			if err := store.InsertP2MSOutput(tx, p2ms, string(pubkeysJSON)); err != nil {
				return fmt.Errorf("insert p2ms output %s:%d: %w", r.txid, r.vout, err)
			}
		}
		return nil
	})
}
