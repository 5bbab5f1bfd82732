package models

// Block is a stub or fully-enriched record for a block height. Stage 1
// creates stub rows (HasHash/HasTimestamp false) on first reference to a
// height; Stage 2 may upgrade a stub with real values once it fetches the
// owning transaction. Stub rows are permitted to persist indefinitely —
// analytics that require timestamps must filter them explicitly.
type Block struct {
	Height      uint32
	BlockHash   string // empty when stub
	Timestamp   int64  // zero when stub
	HasHash     bool
	HasTimestamp bool
}

// IsStub reports whether this block has not yet been enriched with a real
// hash and timestamp.
func (b Block) IsStub() bool {
	return !b.HasHash && !b.HasTimestamp
}
