package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/deadmanoz/data-carry-research-sub003/internal/decode"
	"github.com/deadmanoz/data-carry-research-sub003/internal/script"
	"github.com/deadmanoz/data-carry-research-sub003/internal/store"
	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

// RunDecodeStage drives Stage 4 over every classified-but-undecoded txid,
// reconstructing the embedded payload from the persisted classification
// verdict and writing any recovered file under w.Root.
func RunDecodeStage(ctx context.Context, s *store.Store, w *decode.Writer, limit int) (models.StageStats, error) {
	var stats models.StageStats

	txids, err := s.TxidsMissingDecode(ctx, limit)
	if err != nil {
		return stats, fmt.Errorf("list undecoded txids: %w", err)
	}
	stats.TotalRecords = int64(len(txids))

	for _, txid := range txids {
		if ctx.Err() != nil {
			return stats, models.ErrCancelled
		}
		in, result, ok, err := buildDecodeInput(ctx, s, txid)
		if err != nil {
			stats.SkippedInvalid++
			stats.AddError(fmt.Errorf("build decode input for %s: %w", txid, err))
			continue
		}
		if !ok {
			stats.SkippedInvalid++
			continue
		}

		decoded, err := decode.Decode(in, result.Protocol, result.Variant, w)
		if err != nil {
			stats.SkippedDecode++
			stats.AddError(fmt.Errorf("decode %s: %w", txid, err))
			continue
		}

		err = s.RunBatch(ctx, func(tx *sql.Tx) error {
			return store.InsertDecodedPayload(tx, decoded.Txid, decoded.Protocol, decoded.Variant,
				decoded.HasFilePath, decoded.FilePath, decoded.SizeBytes, decoded.Summary, time.Now())
		})
		if err != nil {
			stats.AddError(err)
			continue
		}
		stats.Processed++
		stats.BatchesCommitted++
	}
	return stats, nil
}

// buildDecodeInput assembles decode.Input from the persisted Stage 2/3 rows.
func buildDecodeInput(ctx context.Context, s *store.Store, txid string) (decode.Input, models.ClassificationResult, bool, error) {
	result, ok, err := s.ClassificationForTx(ctx, txid)
	if err != nil {
		return decode.Input{}, models.ClassificationResult{}, false, err
	}
	if !ok {
		return decode.Input{}, models.ClassificationResult{}, false, nil
	}

	enriched, ok, err := s.GetEnrichedTransaction(ctx, txid)
	if err != nil {
		return decode.Input{}, models.ClassificationResult{}, false, err
	}
	if !ok {
		return decode.Input{}, models.ClassificationResult{}, false, nil
	}

	p2msOutputs, err := s.P2MSOutputsForTx(ctx, txid)
	if err != nil {
		return decode.Input{}, models.ClassificationResult{}, false, err
	}
	inputs, err := s.InputsForTx(ctx, txid)
	if err != nil {
		return decode.Input{}, models.ClassificationResult{}, false, err
	}

	var firstInputTxid, senderAddress string
	if len(inputs) > 0 {
		firstInputTxid = inputs[0].SourceTxid
		senderAddress = inputs[0].SourceAddress
	}

	outputs := make([]decode.Output, 0, len(p2msOutputs))
	for _, p := range p2msOutputs {
		outputs = append(outputs, decode.Output{Vout: p.Vout, PubkeysHex: p.PubkeysHex})
	}

	opReturns := make([][]byte, 0, len(enriched.OpReturnsHex))
	for _, hexStr := range enriched.OpReturnsHex {
		if b, ok := script.DecodeHex(hexStr); ok {
			opReturns = append(opReturns, b)
		}
	}

	// The rpcclient.Collaborator contract (spec §6.2) exposes GetBlock only
	// as a height/hash/timestamp summary, not a full tx list, so an exact
	// in-block position isn't recoverable from it; ppk:<height>.<tx_index>
	// ODIN strings use 0 here (see DESIGN.md open question on PPk ODIN
	// tx_index).
	txIndex := 0

	return decode.Input{
		Txid:           txid,
		FirstInputTxid: firstInputTxid,
		Outputs:        outputs,
		OpReturns:      opReturns,
		SenderAddress:  senderAddress,
		BlockHeight:    enriched.Height,
		TxIndex:        txIndex,
	}, result, true, nil
}
