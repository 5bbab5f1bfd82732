package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/deadmanoz/data-carry-research-sub003/internal/classify"
	"github.com/deadmanoz/data-carry-research-sub003/internal/script"
	"github.com/deadmanoz/data-carry-research-sub003/internal/store"
	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

// RunClassifyStage drives Stage 3 over every enriched-but-unclassified
// txid: builds classify.TxInput from the persisted store rows (no second
// RPC round trip — Stage 2 already captured everything the chain needs),
// runs the classifier chain and per-output spendability analysis, and
// persists both verdicts in one transaction per txid.
func RunClassifyStage(ctx context.Context, s *store.Store, limit int) (models.StageStats, error) {
	var stats models.StageStats

	txids, err := s.TxidsMissingClassification(ctx, limit)
	if err != nil {
		return stats, fmt.Errorf("list unclassified txids: %w", err)
	}
	stats.TotalRecords = int64(len(txids))

	for _, txid := range txids {
		if ctx.Err() != nil {
			return stats, models.ErrCancelled
		}
		in, ok, err := buildClassifyInput(ctx, s, txid)
		if err != nil {
			stats.SkippedInvalid++
			stats.AddError(fmt.Errorf("build classify input for %s: %w", txid, err))
			continue
		}
		if !ok {
			stats.SkippedInvalid++
			continue
		}

		result := classify.ClassifyTransaction(in)
		outputs := classify.ClassifyOutputs(in, result)

		err = s.RunBatch(ctx, func(tx *sql.Tx) error {
			if err := store.UpsertTransactionClassification(tx, result, time.Now()); err != nil {
				return fmt.Errorf("upsert transaction classification: %w", err)
			}
			for _, oc := range outputs {
				if err := store.UpsertP2MSOutputClassification(tx, oc); err != nil {
					return fmt.Errorf("upsert output classification %d: %w", oc.Vout, err)
				}
			}
			return nil
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

// buildClassifyInput assembles classify.TxInput for txid from the rows
// Stage 1/2 already persisted.
func buildClassifyInput(ctx context.Context, s *store.Store, txid string) (classify.TxInput, bool, error) {
	enriched, ok, err := s.GetEnrichedTransaction(ctx, txid)
	if err != nil {
		return classify.TxInput{}, false, err
	}
	if !ok {
		return classify.TxInput{}, false, nil
	}

	p2msOutputs, err := s.P2MSOutputsForTx(ctx, txid)
	if err != nil {
		return classify.TxInput{}, false, err
	}
	amounts, err := s.MultisigAmountsForTx(ctx, txid)
	if err != nil {
		return classify.TxInput{}, false, err
	}
	inputs, err := s.InputsForTx(ctx, txid)
	if err != nil {
		return classify.TxInput{}, false, err
	}

	var firstInputTxid, senderAddress string
	if len(inputs) > 0 {
		firstInputTxid = inputs[0].SourceTxid
		senderAddress = inputs[0].SourceAddress
	}

	outputs := make([]classify.P2MSOutputInput, 0, len(p2msOutputs))
	for _, p := range p2msOutputs {
		outputs = append(outputs, classify.P2MSOutputInput{
			Vout:         p.Vout,
			RequiredSigs: p.RequiredSigs,
			TotalPubkeys: p.TotalPubkeys,
			PubkeysHex:   p.PubkeysHex,
			AmountSats:   amounts[p.Vout],
			// Bare multisig scriptPubKeys (script_type='multisig') are never
			// segwit-destined; a P2WSH-wrapped multisig would be recorded
			// under a different script_type entirely.
			IsSegwit: false,
		})
	}

	opReturns := make([][]byte, 0, len(enriched.OpReturnsHex))
	for _, hexStr := range enriched.OpReturnsHex {
		if b, ok := script.DecodeHex(hexStr); ok {
			opReturns = append(opReturns, b)
		}
	}

	return classify.TxInput{
		Txid:            txid,
		FirstInputTxid:  firstInputTxid,
		Outputs:         outputs,
		OpReturns:       opReturns,
		HasExodusOutput: enriched.HasExodusOutput,
		SenderAddress:   senderAddress,
		BlockHeight:     enriched.Height,
		// TxIndex is plumbing for decode's PPk ODIN string only; no
		// classifier decision depends on it. It is always 0 here, and Stage 4
		// also uses 0, so the ODIN string never carries the real in-block
		// position.
		TxIndex: 0,
	}, true, nil
}
