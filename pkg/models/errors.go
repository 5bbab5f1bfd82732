package models

import "errors"

// Sentinel errors for the stage-level error taxonomy. Stages accumulate
// these into StageStats rather than aborting, except for ErrStoreConstraint
// and unrecovered panics which terminate the run (see cmd/datacarry).
var (
	// ErrInvalidInput covers CSV row parse failures, malformed hex, and
	// unreadable scripts. Recovered locally; the row is counted as skipped.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransientRPC covers timeouts and connection errors. Retried with
	// backoff by the caller before being counted as a failure.
	ErrTransientRPC = errors.New("transient rpc error")

	// ErrPermanentRPC wraps a CallFailed{method,message} response. After
	// retries are exhausted the affected txid is skipped.
	ErrPermanentRPC = errors.New("permanent rpc error")

	// ErrCrypto covers ARC4 key preparation failure (non-hex input).
	// Classification that depended on it moves to the next classifier.
	ErrCrypto = errors.New("crypto primitive error")

	// ErrStoreConstraint is an FK or trigger violation: always a
	// programmer error, aborts the batch and surfaces to the caller.
	ErrStoreConstraint = errors.New("store constraint violation")

	// ErrCancelled signals cooperative shutdown; the current batch rolls back.
	ErrCancelled = errors.New("cancelled")

	// ErrDecodeFailure means a payload could not be base64/UTF-8 decoded
	// or decompressed. Surfaced as a decoded result of variant Unknown /
	// FailedDeobfuscation rather than losing the classification.
	ErrDecodeFailure = errors.New("decode failure")
)
