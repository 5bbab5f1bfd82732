// Package analytics implements the research aggregation queries the
// original system's analysis layer exposed (spec.md §1 treats charting and
// analysis as external collaborators; this supplements that with the
// aggregations original_source/tests/unit/analysis exercises), reading
// plain SELECT/GROUP BY over the core's tables the way the teacher's
// internal/db.PostgresStore.GetMixers paginated query does, adapted to
// database/sql + SQLite.
package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/deadmanoz/data-carry-research-sub003/internal/classify"
)

// Analytics runs read-only aggregation queries over the core schema. It
// never opens a write transaction — callers must not interleave calls with
// a pipeline stage's RunBatch.
type Analytics struct {
	db *sql.DB
}

// New wraps db for read-only aggregation.
func New(db *sql.DB) *Analytics {
	return &Analytics{db: db}
}

// DustBucket is one row of DustSummary.
type DustBucket struct {
	Protocol   string
	BelowDust  int64
	AtOrAbove  int64
	TotalSats  int64
}

// DustSummary buckets every classified P2MS output by protocol and whether
// its amount_sats falls below the non-segwit dust threshold (spec.md §6.3).
func (a *Analytics) DustSummary(ctx context.Context) ([]DustBucket, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT c.protocol,
		       SUM(CASE WHEN o.amount < ? THEN 1 ELSE 0 END) AS below_dust,
		       SUM(CASE WHEN o.amount >= ? THEN 1 ELSE 0 END) AS at_or_above,
		       SUM(o.amount) AS total_sats
		FROM p2ms_output_classifications c
		JOIN transaction_outputs o ON o.txid = c.txid AND o.vout = c.vout
		GROUP BY c.protocol
		ORDER BY c.protocol`, classify.DustThresholdNonSegwit, classify.DustThresholdNonSegwit)
	if err != nil {
		return nil, fmt.Errorf("dust summary: %w", err)
	}
	defer rows.Close()

	var out []DustBucket
	for rows.Next() {
		var b DustBucket
		if err := rows.Scan(&b.Protocol, &b.BelowDust, &b.AtOrAbove, &b.TotalSats); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// FeeBucket is one row of FeeSummary.
type FeeBucket struct {
	Protocol       string
	Count          int64
	AvgFeePerByte  float64
	AvgFeePerKB    float64
}

// FeeSummary averages fee_per_byte/fee_per_kb per protocol, excluding the
// TransactionSizeBytes==0 missing-data sentinel (spec.md §3.1).
func (a *Analytics) FeeSummary(ctx context.Context) ([]FeeBucket, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT c.protocol, COUNT(*), AVG(e.fee_per_byte), AVG(e.fee_per_kb)
		FROM transaction_classifications c
		JOIN enriched_transactions e ON e.txid = c.txid
		WHERE e.transaction_size_bytes > 0
		GROUP BY c.protocol
		ORDER BY c.protocol`)
	if err != nil {
		return nil, fmt.Errorf("fee summary: %w", err)
	}
	defer rows.Close()

	var out []FeeBucket
	for rows.Next() {
		var b FeeBucket
		if err := rows.Scan(&b.Protocol, &b.Count, &b.AvgFeePerByte, &b.AvgFeePerKB); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// VariantMonth is one (variant, year-month, count) bucket.
type VariantMonth struct {
	Variant string
	Month   string // "YYYY-MM", derived from blocks.timestamp
	Count   int64
}

// VariantTemporalSummary returns, per protocol variant, the monthly count
// of classified transactions and the first/last block height seen.
type VariantTemporalSummary struct {
	Variant     string
	FirstHeight uint32
	LastHeight  uint32
	Monthly     []VariantMonth
}

// VariantTemporal groups classified transactions by variant, with monthly
// buckets derived from the block timestamp (when known) and min/max
// height as a fallback ordering axis for blocks without a timestamp yet.
func (a *Analytics) VariantTemporal(ctx context.Context) ([]VariantTemporalSummary, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT c.variant, c.txid,
		       COALESCE((SELECT height FROM transaction_outputs WHERE txid = c.txid LIMIT 1), 0) AS height,
		       (SELECT timestamp FROM blocks b
		        WHERE b.height = (SELECT height FROM transaction_outputs WHERE txid = c.txid LIMIT 1)) AS ts
		FROM transaction_classifications c
		WHERE c.variant IS NOT NULL AND c.variant != ''`)
	if err != nil {
		return nil, fmt.Errorf("variant temporal: %w", err)
	}
	defer rows.Close()

	type agg struct {
		first, last uint32
		monthly     map[string]int64
	}
	byVariant := make(map[string]*agg)

	for rows.Next() {
		var variant, txid string
		var height uint32
		var ts sql.NullInt64
		if err := rows.Scan(&variant, &txid, &height, &ts); err != nil {
			return nil, err
		}
		a, ok := byVariant[variant]
		if !ok {
			a = &agg{first: height, last: height, monthly: make(map[string]int64)}
			byVariant[variant] = a
		}
		if height < a.first {
			a.first = height
		}
		if height > a.last {
			a.last = height
		}
		if ts.Valid {
			month := monthKey(ts.Int64)
			a.monthly[month]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	variants := make([]string, 0, len(byVariant))
	for v := range byVariant {
		variants = append(variants, v)
	}
	sort.Strings(variants)

	out := make([]VariantTemporalSummary, 0, len(variants))
	for _, v := range variants {
		agg := byVariant[v]
		months := make([]string, 0, len(agg.monthly))
		for m := range agg.monthly {
			months = append(months, m)
		}
		sort.Strings(months)
		monthly := make([]VariantMonth, 0, len(months))
		for _, m := range months {
			monthly = append(monthly, VariantMonth{Variant: v, Month: m, Count: agg.monthly[m]})
		}
		out = append(out, VariantTemporalSummary{
			Variant:     v,
			FirstHeight: agg.first,
			LastHeight:  agg.last,
			Monthly:     monthly,
		})
	}
	return out, nil
}

func monthKey(unixSeconds int64) string {
	t := time.Unix(unixSeconds, 0).UTC()
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// SpendabilityBucket is one row of SpendabilitySummary.
type SpendabilityBucket struct {
	Protocol    string
	Spendable   int64
	NotSpendable int64
}

// SpendabilitySummary counts spendable vs not-spendable P2MS outputs per
// protocol.
func (a *Analytics) SpendabilitySummary(ctx context.Context) ([]SpendabilityBucket, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT protocol,
		       SUM(CASE WHEN is_spendable = 1 THEN 1 ELSE 0 END),
		       SUM(CASE WHEN is_spendable = 0 THEN 1 ELSE 0 END)
		FROM p2ms_output_classifications
		GROUP BY protocol
		ORDER BY protocol`)
	if err != nil {
		return nil, fmt.Errorf("spendability summary: %w", err)
	}
	defer rows.Close()

	var out []SpendabilityBucket
	for rows.Next() {
		var b SpendabilityBucket
		if err := rows.Scan(&b.Protocol, &b.Spendable, &b.NotSpendable); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ContentTypeCoverage reports how many transaction_classifications rows
// carry a non-NULL content type, with the NULL rows counted by whether NULL
// is expected there
// (spec.md §8 property 4 — IsValidNullVariant).
type ContentTypeCoverage struct {
	TotalClassified     int64
	WithContentType     int64
	ExpectedNullCount   int64
	UnexpectedNullCount int64
}

func (a *Analytics) ContentTypeCoverage(ctx context.Context) (ContentTypeCoverage, error) {
	var cov ContentTypeCoverage
	err := a.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       SUM(CASE WHEN content_type_mime IS NOT NULL THEN 1 ELSE 0 END)
		FROM transaction_classifications`).Scan(&cov.TotalClassified, &cov.WithContentType)
	if err != nil {
		return ContentTypeCoverage{}, fmt.Errorf("content type coverage: %w", err)
	}

	validNullVariants := []string{"StampsUnknown", "OmniFailedDeobfuscation", "LikelyDataStorage", "LikelyLegitimateMultisig", "Unknown"}
	placeholders := ""
	args := make([]any, 0, len(validNullVariants))
	for i, v := range validNullVariants {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args = append(args, v)
	}
	query := fmt.Sprintf(`
		SELECT
			SUM(CASE WHEN content_type_mime IS NULL AND variant IN (%s) THEN 1 ELSE 0 END),
			SUM(CASE WHEN content_type_mime IS NULL AND variant NOT IN (%s) THEN 1 ELSE 0 END)
		FROM transaction_classifications`, placeholders, placeholders)
	args = append(args, args...)
	err = a.db.QueryRowContext(ctx, query, args...).Scan(&cov.ExpectedNullCount, &cov.UnexpectedNullCount)
	if err != nil {
		return ContentTypeCoverage{}, fmt.Errorf("content type coverage null split: %w", err)
	}
	return cov, nil
}

// MultisigConfig is one (m, n) distribution row.
type MultisigConfig struct {
	RequiredSigs int
	TotalPubkeys int
	Count        int64
}

// MultisigConfigStats returns the distribution of (required_sigs,
// total_pubkeys) pairs across every p2ms output ever ingested.
func (a *Analytics) MultisigConfigStats(ctx context.Context) ([]MultisigConfig, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT required_sigs, total_pubkeys, COUNT(*)
		FROM p2ms_outputs
		GROUP BY required_sigs, total_pubkeys
		ORDER BY required_sigs, total_pubkeys`)
	if err != nil {
		return nil, fmt.Errorf("multisig config stats: %w", err)
	}
	defer rows.Close()

	var out []MultisigConfig
	for rows.Next() {
		var m MultisigConfig
		if err := rows.Scan(&m.RequiredSigs, &m.TotalPubkeys, &m.Count); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SizeBucket is one row of TxSizeHistogram.
type SizeBucket struct {
	BucketStart int
	BucketEnd   int
	Count       int64
}

// TxSizeHistogram buckets transaction_size_bytes into fixed-width ranges,
// excluding the 0 (missing-data) sentinel (spec.md §3.1).
func (a *Analytics) TxSizeHistogram(ctx context.Context, bucketWidth int) ([]SizeBucket, error) {
	if bucketWidth <= 0 {
		bucketWidth = 100
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT (transaction_size_bytes / ?) * ? AS bucket_start, COUNT(*)
		FROM enriched_transactions
		WHERE transaction_size_bytes > 0
		GROUP BY bucket_start
		ORDER BY bucket_start`, bucketWidth, bucketWidth)
	if err != nil {
		return nil, fmt.Errorf("tx size histogram: %w", err)
	}
	defer rows.Close()

	var out []SizeBucket
	for rows.Next() {
		var b SizeBucket
		if err := rows.Scan(&b.BucketStart, &b.Count); err != nil {
			return nil, err
		}
		b.BucketEnd = b.BucketStart + bucketWidth
		out = append(out, b)
	}
	return out, rows.Err()
}
