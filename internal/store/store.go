// Package store persists everything the pipeline produces in a
// single-writer SQLite database (spec §4.4, §6.4). It follows the
// teacher's internal/db package in shape — a thin struct wrapping a pooled
// connection, one schema file executed on open, batch writes wrapped in a
// single transaction — but trades pgx/pgxpool for database/sql plus
// mattn/go-sqlite3, and trades "INSERT ... ON CONFLICT" Postgres syntax for
// SQLite's "INSERT ... ON CONFLICT" dialect (supported identically by
// sqlite3 since 3.24).
package store

import (
	"context"
	_ "embed"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/deadmanoz/data-carry-research-sub003/internal/decode"
	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps the single SQLite connection used by every stage. SQLite
// only supports one writer at a time, so the pool is capped at one
// connection; readers and writers share it serially.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the SQLite database at path,
// applying the pragmas the single-writer model requires, then runs the
// schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign_keys: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for read-only analytics queries, which
// must not interleave with writer transactions (spec §5).
func (s *Store) DB() *sql.DB {
	return s.db
}

// withTx runs fn inside a single transaction, committing on success and
// rolling back on any error — the "batch commit" unit every stage uses.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// RunBatch exposes withTx to callers outside the package (Stage 1/2/3/4
// drivers), so every batch of work commits as one atomic unit.
func (s *Store) RunBatch(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return s.withTx(ctx, fn)
}

// InsertBlockStubs idempotently inserts a stub row (no hash, no
// timestamp) for every height in heights that doesn't already exist. Must
// run before any transaction_outputs insert referencing those heights.
func InsertBlockStubs(tx *sql.Tx, heights []uint32) error {
	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO blocks (height) VALUES (?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, h := range heights {
		if _, err := stmt.Exec(h); err != nil {
			return fmt.Errorf("insert block stub %d: %w", h, err)
		}
	}
	return nil
}

// UpsertBlock fills in block_hash/timestamp for an existing (or new)
// height row, used when Stage 2 learns the real header via RPC.
func UpsertBlock(tx *sql.Tx, b models.Block) error {
	_, err := tx.Exec(`
		INSERT INTO blocks (height, block_hash, timestamp) VALUES (?, ?, ?)
		ON CONFLICT(height) DO UPDATE SET
			block_hash = excluded.block_hash,
			timestamp = excluded.timestamp`,
		b.Height, nullableString(b.HasHash, b.BlockHash), nullableInt(b.HasTimestamp, b.Timestamp))
	return err
}

func nullableString(has bool, v string) any {
	if !has {
		return nil
	}
	return v
}

func nullableInt(has bool, v int64) any {
	if !has {
		return nil
	}
	return v
}

// InsertTransactionOutput writes a transaction_outputs row. Shared by
// Stage 1 (is_spent=false, UTXO-set origin) and Stage 2 (is_spent=true,
// RPC-discovered).
func InsertTransactionOutput(tx *sql.Tx, o models.TransactionOutput) error {
	_, err := tx.Exec(`
		INSERT OR IGNORE INTO transaction_outputs
			(txid, vout, height, amount, script_hex, script_type, is_coinbase, script_size, metadata_json, is_spent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.Txid, o.Vout, o.Height, o.AmountSats, o.ScriptHex, string(o.ScriptType),
		boolToInt(o.IsCoinbase), o.ScriptSize, o.MetadataJSON, boolToInt(o.IsSpent))
	return err
}

// InsertP2MSOutput writes the p2ms_outputs row; must follow
// InsertTransactionOutput for the same (txid, vout) in the same
// transaction, or the parent-multisig trigger aborts it.
func InsertP2MSOutput(tx *sql.Tx, p models.P2MSOutput, pubkeysJSON string) error {
	_, err := tx.Exec(`
		INSERT OR IGNORE INTO p2ms_outputs (txid, vout, required_sigs, total_pubkeys, pubkeys_json)
		VALUES (?, ?, ?, ?, ?)`,
		p.Txid, p.Vout, p.RequiredSigs, p.TotalPubkeys, pubkeysJSON)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetCheckpoint returns the single checkpoint row, or (nil, nil) if none
// exists.
func (s *Store) GetCheckpoint(ctx context.Context) (*models.Checkpoint, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT last_processed_count, total_processed, csv_line_number, batch_number, updated_at
		FROM checkpoints WHERE id = 1`)
	var cp models.Checkpoint
	var updatedAtUnix int64
	if err := row.Scan(&cp.LastProcessedCount, &cp.TotalProcessed, &cp.CSVLineNumber, &cp.BatchNumber, &updatedAtUnix); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	cp.UpdatedAt = time.Unix(updatedAtUnix, 0).UTC()
	return &cp, nil
}

// UpsertCheckpoint writes the single checkpoint row, replacing any prior
// value (spec: "at most one checkpoints row exists").
func UpsertCheckpoint(tx *sql.Tx, cp models.Checkpoint) error {
	_, err := tx.Exec(`
		INSERT INTO checkpoints (id, last_processed_count, total_processed, csv_line_number, batch_number, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_processed_count = excluded.last_processed_count,
			total_processed = excluded.total_processed,
			csv_line_number = excluded.csv_line_number,
			batch_number = excluded.batch_number,
			updated_at = excluded.updated_at`,
		cp.LastProcessedCount, cp.TotalProcessed, cp.CSVLineNumber, cp.BatchNumber, cp.UpdatedAt.Unix())
	return err
}

// DeleteCheckpoint removes the checkpoint row on a clean end-of-file.
func DeleteCheckpoint(tx *sql.Tx) error {
	_, err := tx.Exec(`DELETE FROM checkpoints WHERE id = 1`)
	return err
}

// TxidsMissingEnrichment returns up to limit distinct txids that have
// p2ms_outputs rows but no enriched_transactions row yet (Stage 2 work
// queue).
func (s *Store) TxidsMissingEnrichment(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT p.txid FROM p2ms_outputs p
		LEFT JOIN enriched_transactions e ON e.txid = p.txid
		WHERE e.txid IS NULL
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var txid string
		if err := rows.Scan(&txid); err != nil {
			return nil, err
		}
		out = append(out, txid)
	}
	return out, rows.Err()
}

// OutputExists reports whether a transaction_outputs row already exists
// for (txid, vout), used by Stage 2 to avoid re-inserting a multisig
// output it discovers via RPC input resolution that the CSV ingest
// already recorded.
func (s *Store) OutputExists(ctx context.Context, txid string, vout uint32) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM transaction_outputs WHERE txid = ? AND vout = ?`, txid, vout).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MultisigAmountsForTx returns the amount_sats of every script_type='multisig'
// output already recorded for txid, keyed by vout. Used to compute
// total_p2ms_amount during Stage 2 enrichment.
func (s *Store) MultisigAmountsForTx(ctx context.Context, txid string) (map[uint32]uint64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vout, amount FROM transaction_outputs
		WHERE txid = ? AND script_type = 'multisig'`, txid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint32]uint64)
	for rows.Next() {
		var vout uint32
		var amount uint64
		if err := rows.Scan(&vout, &amount); err != nil {
			return nil, err
		}
		out[vout] = amount
	}
	return out, rows.Err()
}

// P2MSOutputsForTx returns every p2ms_outputs row for txid, used by Stage 2
// burn-pattern detection and Stage 3/4 classification and decoding.
func (s *Store) P2MSOutputsForTx(ctx context.Context, txid string) ([]models.P2MSOutput, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vout, required_sigs, total_pubkeys, pubkeys_json FROM p2ms_outputs
		WHERE txid = ?`, txid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.P2MSOutput
	for rows.Next() {
		var p models.P2MSOutput
		var pubkeysJSON string
		if err := rows.Scan(&p.Vout, &p.RequiredSigs, &p.TotalPubkeys, &pubkeysJSON); err != nil {
			return nil, err
		}
		p.Txid = txid
		if err := json.Unmarshal([]byte(pubkeysJSON), &p.PubkeysHex); err != nil {
			return nil, fmt.Errorf("unmarshal pubkeys for %s:%d: %w", txid, p.Vout, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// HeightForTx returns the block height recorded for txid by Stage 1
// ingestion, if any of its outputs were already seen.
func (s *Store) HeightForTx(ctx context.Context, txid string) (uint32, bool, error) {
	var height uint32
	err := s.db.QueryRowContext(ctx, `
		SELECT height FROM transaction_outputs WHERE txid = ? LIMIT 1`, txid).Scan(&height)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return height, true, nil
}

// InsertEnrichedTransaction writes the Stage 2 aggregate row for one tx.
func InsertEnrichedTransaction(tx *sql.Tx, e models.EnrichedTransaction) error {
	opReturnsJSON, err := json.Marshal(e.OpReturnsHex)
	if err != nil {
		return fmt.Errorf("marshal op_returns for %s: %w", e.Txid, err)
	}
	_, err = tx.Exec(`
		INSERT OR REPLACE INTO enriched_transactions
			(txid, height, total_input_value, total_output_value, transaction_fee, transaction_size_bytes,
			 fee_per_byte, fee_per_kb, total_p2ms_amount, data_storage_fee_rate,
			 p2ms_outputs_count, input_count, output_count, is_coinbase, op_returns_json, has_exodus_output)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Txid, e.Height, e.TotalInputValue, e.TotalOutputValue, e.TransactionFee, e.TransactionSizeBytes,
		e.FeePerByte, e.FeePerKB, e.TotalP2MSAmount, e.DataStorageFeeRate,
		e.P2MSOutputsCount, e.InputCount, e.OutputCount, boolToInt(e.IsCoinbase), string(opReturnsJSON),
		boolToInt(e.HasExodusOutput))
	return err
}

// GetEnrichedTransaction reads back one Stage 2 aggregate row, used by the
// Stage 3/4 driver to recover op_returns and tx-level stats without a
// second RPC round trip.
func (s *Store) GetEnrichedTransaction(ctx context.Context, txid string) (models.EnrichedTransaction, bool, error) {
	var e models.EnrichedTransaction
	var isCoinbase int
	var opReturnsJSON string
	var hasExodus int
	err := s.db.QueryRowContext(ctx, `
		SELECT txid, height, total_input_value, total_output_value, transaction_fee, transaction_size_bytes,
		       fee_per_byte, fee_per_kb, total_p2ms_amount, data_storage_fee_rate,
		       p2ms_outputs_count, input_count, output_count, is_coinbase, op_returns_json, has_exodus_output
		FROM enriched_transactions WHERE txid = ?`, txid).Scan(
		&e.Txid, &e.Height, &e.TotalInputValue, &e.TotalOutputValue, &e.TransactionFee, &e.TransactionSizeBytes,
		&e.FeePerByte, &e.FeePerKB, &e.TotalP2MSAmount, &e.DataStorageFeeRate,
		&e.P2MSOutputsCount, &e.InputCount, &e.OutputCount, &isCoinbase, &opReturnsJSON, &hasExodus)
	if err == sql.ErrNoRows {
		return models.EnrichedTransaction{}, false, nil
	}
	if err != nil {
		return models.EnrichedTransaction{}, false, err
	}
	e.IsCoinbase = isCoinbase != 0
	e.HasExodusOutput = hasExodus != 0
	if err := json.Unmarshal([]byte(opReturnsJSON), &e.OpReturnsHex); err != nil {
		return models.EnrichedTransaction{}, false, fmt.Errorf("unmarshal op_returns for %s: %w", txid, err)
	}
	return e, true, nil
}

// InputsForTx returns every transaction_inputs row for txid, ordered by
// input_index, used by the Stage 3/4 driver to recover the first input's
// source txid/address (ARC4 key material and sender identity).
func (s *Store) InputsForTx(ctx context.Context, txid string) ([]models.TransactionInput, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT txid, input_index, source_txid, source_vout, value_sats, script_sig_hex, sequence, source_address
		FROM transaction_inputs WHERE txid = ? ORDER BY input_index`, txid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.TransactionInput
	for rows.Next() {
		var in models.TransactionInput
		var sourceTxid, scriptSigHex, sourceAddress sql.NullString
		if err := rows.Scan(&in.Txid, &in.InputIndex, &sourceTxid, &in.SourceVout, &in.ValueSats,
			&scriptSigHex, &in.Sequence, &sourceAddress); err != nil {
			return nil, err
		}
		in.SourceTxid = sourceTxid.String
		in.ScriptSigHex = scriptSigHex.String
		in.SourceAddress = sourceAddress.String
		out = append(out, in)
	}
	return out, rows.Err()
}

// InsertTransactionInput writes one input row.
func InsertTransactionInput(tx *sql.Tx, in models.TransactionInput) error {
	_, err := tx.Exec(`
		INSERT OR REPLACE INTO transaction_inputs
			(txid, input_index, source_txid, source_vout, value_sats, script_sig_hex, sequence, source_address)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Txid, in.InputIndex, in.SourceTxid, in.SourceVout, in.ValueSats,
		in.ScriptSigHex, in.Sequence, in.SourceAddress)
	return err
}

// InsertBurnPattern records one detected burn template occurrence.
func InsertBurnPattern(tx *sql.Tx, b models.BurnPattern) error {
	_, err := tx.Exec(`
		INSERT OR REPLACE INTO burn_patterns (txid, vout, pubkey_index, pattern_type, pattern_data)
		VALUES (?, ?, ?, ?, ?)`,
		b.Txid, b.Vout, b.PubkeyIndex, string(b.PatternType), b.PatternData)
	return err
}

// UpsertTransactionClassification writes (or replaces) the tx-level
// classification verdict. Running Stage 3 twice on the same inputs must
// produce identical rows — upsert semantics, not append.
func UpsertTransactionClassification(tx *sql.Tx, c models.ClassificationResult, updatedAt time.Time) error {
	_, err := tx.Exec(`
		INSERT INTO transaction_classifications
			(txid, protocol, variant, protocol_signature_found, classification_method, content_type_mime, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(txid) DO UPDATE SET
			protocol = excluded.protocol,
			variant = excluded.variant,
			protocol_signature_found = excluded.protocol_signature_found,
			classification_method = excluded.classification_method,
			content_type_mime = excluded.content_type_mime,
			updated_at = excluded.updated_at`,
		c.Txid, c.Protocol.String(), nullableVariant(c.Variant),
		boolToInt(c.ProtocolSignatureFound), c.ClassificationMethod,
		nullableMime(c.HasContentType, c.ContentType), updatedAt.Unix())
	return err
}

// UpsertP2MSOutputClassification writes (or replaces) the per-output
// spendability verdict.
func UpsertP2MSOutputClassification(tx *sql.Tx, c models.OutputClassification) error {
	_, err := tx.Exec(`
		INSERT INTO p2ms_output_classifications
			(txid, vout, protocol, variant, protocol_signature_found, classification_method,
			 content_type_mime, is_spendable, spendability_reason, real_pubkey_count, burn_key_count, data_key_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(txid, vout) DO UPDATE SET
			protocol = excluded.protocol,
			variant = excluded.variant,
			protocol_signature_found = excluded.protocol_signature_found,
			classification_method = excluded.classification_method,
			content_type_mime = excluded.content_type_mime,
			is_spendable = excluded.is_spendable,
			spendability_reason = excluded.spendability_reason,
			real_pubkey_count = excluded.real_pubkey_count,
			burn_key_count = excluded.burn_key_count,
			data_key_count = excluded.data_key_count`,
		c.Txid, c.Vout, c.Protocol.String(), nullableVariant(c.Variant),
		boolToInt(c.ProtocolSignatureFound), c.ClassificationMethod,
		nullableMime(c.HasContentType, c.ContentType), boolToInt(c.IsSpendable), string(c.SpendabilityReason),
		c.RealPubkeyCount, c.BurnKeyCount, c.DataKeyCount)
	return err
}

func nullableVariant(v models.Variant) any {
	if v == "" {
		return nil
	}
	return string(v)
}

func nullableMime(has bool, ct models.ContentType) any {
	if !has {
		return nil
	}
	return ct.MimeType()
}

// TxidsMissingClassification returns txids with an enriched_transactions
// row but no transaction_classifications row yet, driving Stage 3.
func (s *Store) TxidsMissingClassification(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.txid FROM enriched_transactions e
		LEFT JOIN transaction_classifications c ON c.txid = e.txid
		WHERE c.txid IS NULL
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var txid string
		if err := rows.Scan(&txid); err != nil {
			return nil, err
		}
		out = append(out, txid)
	}
	return out, rows.Err()
}

// TxidsMissingDecode returns txids with a transaction_classifications row
// but no decoded_payloads row yet, driving Stage 4.
func (s *Store) TxidsMissingDecode(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.txid FROM transaction_classifications c
		LEFT JOIN decoded_payloads d ON d.txid = c.txid
		WHERE d.txid IS NULL
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var txid string
		if err := rows.Scan(&txid); err != nil {
			return nil, err
		}
		out = append(out, txid)
	}
	return out, rows.Err()
}

// ClassificationForTx reads back the Stage 3 tx-level verdict for txid.
func (s *Store) ClassificationForTx(ctx context.Context, txid string) (models.ClassificationResult, bool, error) {
	var c models.ClassificationResult
	var protocolStr string
	var variant, contentTypeMime sql.NullString
	var sigFound int
	var updatedAtUnix int64
	err := s.db.QueryRowContext(ctx, `
		SELECT protocol, variant, protocol_signature_found, classification_method, content_type_mime, updated_at
		FROM transaction_classifications WHERE txid = ?`, txid).Scan(
		&protocolStr, &variant, &sigFound, &c.ClassificationMethod, &contentTypeMime, &updatedAtUnix)
	if err == sql.ErrNoRows {
		return models.ClassificationResult{}, false, nil
	}
	if err != nil {
		return models.ClassificationResult{}, false, err
	}
	c.Txid = txid
	c.Protocol, _ = models.ParseProtocol(protocolStr)
	c.Variant = models.Variant(variant.String)
	c.ProtocolSignatureFound = sigFound != 0
	c.Timestamp = time.Unix(updatedAtUnix, 0)
	if contentTypeMime.Valid {
		if ct, ok := models.ContentTypeFromMIME(contentTypeMime.String); ok {
			c.HasContentType = true
			c.ContentType = ct
		}
	}
	return c, true, nil
}

// InsertDecodedPayload records Stage 4's result for one transaction.
func InsertDecodedPayload(tx *sql.Tx, txid string, protocol models.Protocol, variant models.Variant,
	hasFilePath bool, filePath string, sizeBytes int, summary string, decodedAt time.Time) error {
	_, err := tx.Exec(`
		INSERT OR REPLACE INTO decoded_payloads
			(txid, protocol, variant, file_path, size_bytes, summary, decoded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		txid, protocol.String(), nullableVariant(variant), nullableString(hasFilePath, filePath),
		sizeBytes, summary, decodedAt.Unix())
	return err
}

// DecodedPayloadsPage returns a page of decoded_payloads rows ordered by
// most recently decoded first, plus the total row count.
func (s *Store) DecodedPayloadsPage(ctx context.Context, page, limit int) ([]decode.DecodedData, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decoded_payloads`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT txid, protocol, variant, file_path, size_bytes, summary
		FROM decoded_payloads
		ORDER BY decoded_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []decode.DecodedData
	for rows.Next() {
		var d decode.DecodedData
		var protocolStr string
		var variant, filePath sql.NullString
		if err := rows.Scan(&d.Txid, &protocolStr, &variant, &filePath, &d.SizeBytes, &d.Summary); err != nil {
			return nil, 0, err
		}
		d.Protocol, _ = models.ParseProtocol(protocolStr)
		d.Variant = models.Variant(variant.String)
		if filePath.Valid {
			d.HasFilePath = true
			d.FilePath = filePath.String
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}
