package models

// Dust thresholds (spec §6.3). "Below dust" means amount < threshold; the
// segwit bucket is a subset of the non-segwit one (an amount below the
// segwit threshold is also below the non-segwit threshold).
const (
	NonSegwitDustSats uint64 = 546
	SegwitDustSats    uint64 = 294
)

// IsBelowNonSegwitDust reports whether amount is below the non-segwit
// dust threshold. Exactly 546 is NOT below the threshold.
func IsBelowNonSegwitDust(amountSats uint64) bool {
	return amountSats < NonSegwitDustSats
}

// IsBelowSegwitDust reports whether amount is below the segwit dust
// threshold. Exactly 294 is NOT below the threshold.
func IsBelowSegwitDust(amountSats uint64) bool {
	return amountSats < SegwitDustSats
}
