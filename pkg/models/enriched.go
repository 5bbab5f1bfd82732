package models

// EnrichedTransaction is the per-txid aggregate computed by Stage 2.
// TransactionSizeBytes == 0 denotes missing data and must be excluded by
// analytics (spec §3.1).
type EnrichedTransaction struct {
	Txid                 string
	Height               uint32
	TotalInputValue      uint64
	TotalOutputValue     uint64
	TransactionFee       uint64
	FeePerByte           float64
	TransactionSizeBytes int
	FeePerKB             float64
	TotalP2MSAmount      uint64
	DataStorageFeeRate   float64
	P2MSOutputsCount     int
	InputCount           int
	OutputCount          int
	IsCoinbase           bool
	// OpReturnsHex holds the hex-encoded data pushes of every OP_RETURN
	// output in the transaction, captured from the Stage 2 RPC fetch since
	// Stage 1's CSV only materialises multisig outputs. Stage 3 reads this
	// back for OpReturnSignalled/PPk/Omni detection without a second RPC call.
	OpReturnsHex []string
	// HasExodusOutput reports whether any output of the transaction pays
	// classify.ExodusAddress, captured here for the same reason as
	// OpReturnsHex: only the Stage 2 RPC fetch sees non-multisig outputs.
	HasExodusOutput bool
}

// TransactionInput is one input of a transaction recorded by Stage 2. The
// first input (InputIndex==0) of a non-coinbase transaction supplies the
// ARC4 key material (its SourceTxid) for both Counterparty and Bitcoin
// Stamps decoding.
type TransactionInput struct {
	Txid          string
	InputIndex    int
	SourceTxid    string
	SourceVout    uint32
	ValueSats     uint64
	ScriptSigHex  string
	Sequence      uint32
	SourceAddress string
}
