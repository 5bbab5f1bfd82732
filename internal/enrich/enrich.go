// Package enrich implements Stage 2: fetching each unenriched transaction
// via the RPC collaborator, computing fee/size aggregates, detecting burn
// patterns, and persisting inputs and any outputs discovered only through
// RPC resolution (spec §4.6). Grounded on internal/bitcoin/client.go's RPC
// wrapper style and internal/scanner/block_scanner.go's per-item worker
// loop with bounded concurrency.
package enrich

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/deadmanoz/data-carry-research-sub003/internal/classify"
	"github.com/deadmanoz/data-carry-research-sub003/internal/rpcclient"
	"github.com/deadmanoz/data-carry-research-sub003/internal/script"
	"github.com/deadmanoz/data-carry-research-sub003/internal/signature"
	"github.com/deadmanoz/data-carry-research-sub003/internal/store"
	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

// Config bounds Stage 2's worker pool and batch size (spec §5,
// "concurrent_requests, default 4-10").
type Config struct {
	BatchSize          int
	ConcurrentRequests int
}

// DefaultConfig mirrors the spec's suggested defaults.
func DefaultConfig() Config {
	return Config{BatchSize: 500, ConcurrentRequests: 8}
}

// sourceCache memoises GetTransaction calls keyed by txid, shared across
// a batch's worker goroutines so a popular source tx (e.g. a heavily
// reused funding UTXO) is only fetched once.
type sourceCache struct {
	mu    sync.Mutex
	byTxid map[string]rpcclient.Transaction
}

func newSourceCache() *sourceCache {
	return &sourceCache{byTxid: make(map[string]rpcclient.Transaction)}
}

func (c *sourceCache) get(ctx context.Context, rpc rpcclient.Collaborator, txid string) (rpcclient.Transaction, error) {
	c.mu.Lock()
	if t, ok := c.byTxid[txid]; ok {
		c.mu.Unlock()
		return t, nil
	}
	c.mu.Unlock()

	t, err := rpc.GetTransaction(ctx, txid)
	if err != nil {
		return rpcclient.Transaction{}, err
	}

	c.mu.Lock()
	c.byTxid[txid] = t
	c.mu.Unlock()
	return t, nil
}

// blockHeightCache memoises blockhash->height resolution (one getblock
// call each), shared across a batch's worker goroutines so a block that
// confirms many source outputs is only looked up once.
type blockHeightCache struct {
	mu     sync.Mutex
	byHash map[string]uint32
}

func newBlockHeightCache() *blockHeightCache {
	return &blockHeightCache{byHash: make(map[string]uint32)}
}

func (c *blockHeightCache) get(ctx context.Context, rpc rpcclient.Collaborator, blockHash string) (uint32, error) {
	if blockHash == "" {
		return 0, fmt.Errorf("resolve height: unconfirmed source transaction")
	}
	c.mu.Lock()
	if h, ok := c.byHash[blockHash]; ok {
		c.mu.Unlock()
		return h, nil
	}
	c.mu.Unlock()

	b, err := rpc.GetBlock(ctx, blockHash)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.byHash[blockHash] = b.Height
	c.mu.Unlock()
	return b.Height, nil
}

// result is one enriched transaction's complete write set, computed
// concurrently and applied to the store serially (spec §4.6, "writes are
// serialised into a single transaction").
type result struct {
	txid         string
	enriched     models.EnrichedTransaction
	inputs       []models.TransactionInput
	burns        []models.BurnPattern
	newOutputs   []newOutput
	failed       bool
	failureErr   error
}

type newOutput struct {
	output models.TransactionOutput
	p2ms   *models.P2MSOutput
}

// Run processes every txid with p2ms_outputs but no enriched_transactions
// row, up to cfg.BatchSize per call. Callers loop Run until it reports
// zero TotalRecords to drain the backlog.
func Run(ctx context.Context, s *store.Store, rpc rpcclient.Collaborator, cfg Config) (models.StageStats, error) {
	var stats models.StageStats

	txids, err := s.TxidsMissingEnrichment(ctx, cfg.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("list unenriched txids: %w", err)
	}
	stats.TotalRecords = int64(len(txids))
	if len(txids) == 0 {
		return stats, nil
	}

	cache := newSourceCache()
	blockCache := newBlockHeightCache()
	results := make([]result, len(txids))

	sem := make(chan struct{}, cfg.ConcurrentRequests)
	var wg sync.WaitGroup
	for i, txid := range txids {
		wg.Add(1)
		go func(i int, txid string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = enrichOne(ctx, s, rpc, cache, blockCache, txid)
		}(i, txid)
	}
	wg.Wait()

	err = s.RunBatch(ctx, func(tx *sql.Tx) error {
		for _, r := range results {
			if r.failed {
				continue
			}
			if err := applyResult(tx, r); err != nil {
				return fmt.Errorf("apply enrichment for %s: %w", r.txid, err)
			}
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	for _, r := range results {
		if r.failed {
			stats.SkippedRPCFailure++
			stats.AddError(r.failureErr)
			continue
		}
		stats.Processed++
	}
	stats.BatchesCommitted = 1
	return stats, nil
}

func enrichOne(ctx context.Context, s *store.Store, rpc rpcclient.Collaborator, cache *sourceCache, blockCache *blockHeightCache, txid string) result {
	r := result{txid: txid}

	t, err := rpc.GetTransaction(ctx, txid)
	if err != nil {
		r.failed = true
		r.failureErr = fmt.Errorf("fetch tx %s: %w", txid, err)
		return r
	}

	var totalInput uint64
	for i, in := range t.Inputs {
		var valueSats uint64
		var address string

		sourceTx, err := cache.get(ctx, rpc, in.SourceTxid)
		if err == nil {
			for _, out := range sourceTx.Outputs {
				if out.Vout != in.SourceVout {
					continue
				}
				valueSats = out.ValueSats
				address = out.Address
				if out.ScriptType == "multisig" {
					if exists, _ := s.OutputExists(ctx, in.SourceTxid, in.SourceVout); !exists {
						// The source output's own block must exist before we
						// can insert a row referencing it (schema.sql's
						// transaction_outputs.height FK) — resolve the
						// confirming block's height via the source tx's
						// blockhash, mirroring ingest.writeBatch's
						// stub-before-output discipline.
						sourceHeight, err := blockCache.get(ctx, rpc, sourceTx.BlockHash)
						if err != nil {
							// Can't place this output under any block yet;
							// skip recording it rather than failing the
							// whole enrichment batch over one unresolved
							// source height.
							break
						}
						no := newOutput{
							output: models.TransactionOutput{
								Txid:       in.SourceTxid,
								Vout:       in.SourceVout,
								Height:     sourceHeight,
								AmountSats: out.ValueSats,
								ScriptHex:  out.ScriptHex,
								ScriptType: models.ScriptTypeMultisig,
								ScriptSize: len(out.ScriptHex) / 2,
								IsSpent:    true,
							},
						}
						if parsed, ok := script.ParseMultisigScript(out.ScriptHex); ok {
							no.p2ms = &models.P2MSOutput{
								Txid:         in.SourceTxid,
								Vout:         in.SourceVout,
								RequiredSigs: parsed.RequiredSigs,
								TotalPubkeys: parsed.TotalPubkeys,
								PubkeysHex:   parsed.PubkeysHex,
							}
						}
						r.newOutputs = append(r.newOutputs, no)
					}
				}
				break
			}
		}
		totalInput += valueSats

		r.inputs = append(r.inputs, models.TransactionInput{
			Txid:          txid,
			InputIndex:    i,
			SourceTxid:    in.SourceTxid,
			SourceVout:    in.SourceVout,
			ValueSats:     valueSats,
			ScriptSigHex:  in.ScriptSigHex,
			Sequence:      in.Sequence,
			SourceAddress: address,
		})
	}
	if t.IsCoinbase {
		totalInput = 0
	}

	var totalOutput uint64
	var opReturnsHex []string
	var hasExodusOutput bool
	for _, out := range t.Outputs {
		totalOutput += out.ValueSats
		if out.ScriptType == "nulldata" {
			if data, ok := script.ParseOpReturnScript(out.ScriptHex); ok {
				opReturnsHex = append(opReturnsHex, script.EncodeHex(data))
			}
		}
		if out.Address == classify.ExodusAddress {
			hasExodusOutput = true
		}
	}

	var fee uint64
	if !t.IsCoinbase && totalInput > totalOutput {
		fee = totalInput - totalOutput
	}

	var feePerByte, feePerKB float64
	if t.SizeBytes > 0 {
		feePerByte = float64(fee) / float64(t.SizeBytes)
		feePerKB = feePerByte * 1000
	}

	p2msAmounts, err := s.MultisigAmountsForTx(ctx, txid)
	if err != nil {
		r.failed = true
		r.failureErr = fmt.Errorf("load p2ms amounts for %s: %w", txid, err)
		return r
	}
	var totalP2MS uint64
	for _, amt := range p2msAmounts {
		totalP2MS += amt
	}
	var dataStorageFeeRate float64
	if totalP2MS > 0 {
		dataStorageFeeRate = float64(fee) / float64(totalP2MS)
	}

	height, _, err := s.HeightForTx(ctx, txid)
	if err != nil {
		r.failed = true
		r.failureErr = fmt.Errorf("load height for %s: %w", txid, err)
		return r
	}

	r.enriched = models.EnrichedTransaction{
		Txid:                 txid,
		Height:               height,
		TotalInputValue:      totalInput,
		TotalOutputValue:     totalOutput,
		TransactionFee:       fee,
		FeePerByte:           feePerByte,
		TransactionSizeBytes: t.SizeBytes,
		FeePerKB:             feePerKB,
		TotalP2MSAmount:      totalP2MS,
		DataStorageFeeRate:   dataStorageFeeRate,
		P2MSOutputsCount:     len(p2msAmounts),
		InputCount:           len(t.Inputs),
		OutputCount:          len(t.Outputs),
		IsCoinbase:           t.IsCoinbase,
		OpReturnsHex:         opReturnsHex,
		HasExodusOutput:      hasExodusOutput,
	}

	p2msOutputs, err := s.P2MSOutputsForTx(ctx, txid)
	if err != nil {
		r.failed = true
		r.failureErr = fmt.Errorf("load p2ms outputs for %s: %w", txid, err)
		return r
	}
	for _, p := range p2msOutputs {
		for idx, pk := range p.PubkeysHex {
			if patternType, ok := signature.ClassifyStampsBurn(pk); ok {
				r.burns = append(r.burns, models.BurnPattern{
					Txid:        txid,
					Vout:        p.Vout,
					PubkeyIndex: idx,
					PatternType: patternType,
					PatternData: pk,
				})
			}
		}
	}

	return r
}

func applyResult(tx *sql.Tx, r result) error {
	if err := store.InsertEnrichedTransaction(tx, r.enriched); err != nil {
		return fmt.Errorf("insert enriched transaction: %w", err)
	}
	for _, in := range r.inputs {
		if err := store.InsertTransactionInput(tx, in); err != nil {
			return fmt.Errorf("insert transaction input %d: %w", in.InputIndex, err)
		}
	}
	for _, b := range r.burns {
		if err := store.InsertBurnPattern(tx, b); err != nil {
			return fmt.Errorf("insert burn pattern %d:%d: %w", b.Vout, b.PubkeyIndex, err)
		}
	}
	if len(r.newOutputs) > 0 {
		heights := make(map[uint32]bool, len(r.newOutputs))
		for _, no := range r.newOutputs {
			heights[no.output.Height] = true
		}
		heightList := make([]uint32, 0, len(heights))
		for h := range heights {
			heightList = append(heightList, h)
		}
		// Discovered outputs belong to whichever block confirmed their
		// source transaction, which is never guaranteed to already have a
		// stub row (the source tx may be far outside the CSV's own block
		// range) — insert stubs here exactly like ingest.writeBatch does
		// before the transaction_outputs insert below.
		if err := store.InsertBlockStubs(tx, heightList); err != nil {
			return fmt.Errorf("insert block stubs for discovered outputs: %w", err)
		}
	}
	for _, no := range r.newOutputs {
		if err := store.InsertTransactionOutput(tx, no.output); err != nil {
			return fmt.Errorf("insert discovered output %s:%d: %w", no.output.Txid, no.output.Vout, err)
		}
		if no.p2ms != nil {
			pubkeysJSON := marshalPubkeys(no.p2ms.PubkeysHex)
			if err := store.InsertP2MSOutput(tx, *no.p2ms, pubkeysJSON); err != nil {
				return fmt.Errorf("insert discovered p2ms output %s:%d: %w", no.p2ms.Txid, no.p2ms.Vout, err)
			}
		}
	}
	return nil
}

func marshalPubkeys(pubkeysHex []string) string {
	b, err := json.Marshal(pubkeysHex)
	if err != nil {
		return "[]"
	}
	return string(b)
}
