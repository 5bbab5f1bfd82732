package models

// ScriptType enumerates the output script kinds recognised by the CSV
// ingest and RPC-derived outputs. Only "multisig" rows are ever promoted
// into a P2MSOutput.
type ScriptType string

const (
	ScriptTypeMultisig ScriptType = "multisig"
	ScriptTypeP2PKH    ScriptType = "p2pkh"
	ScriptTypeP2SH     ScriptType = "p2sh"
	ScriptTypeP2WPKH   ScriptType = "p2wpkh"
	ScriptTypeP2WSH    ScriptType = "p2wsh"
	ScriptTypeOpReturn ScriptType = "op_return"
	ScriptTypeUnknown  ScriptType = "unknown"
)

// NormalizeScriptType maps CSV/RPC script-type spellings onto the closed
// ScriptType set, treating "p2ms" as an alias for "multisig" per spec §6.1.
func NormalizeScriptType(raw string) ScriptType {
	switch raw {
	case "multisig", "p2ms":
		return ScriptTypeMultisig
	case "p2pkh":
		return ScriptTypeP2PKH
	case "p2sh":
		return ScriptTypeP2SH
	case "p2wpkh":
		return ScriptTypeP2WPKH
	case "p2wsh":
		return ScriptTypeP2WSH
	case "op_return", "nulldata":
		return ScriptTypeOpReturn
	default:
		return ScriptTypeUnknown
	}
}

// TransactionOutput is a single (txid, vout) output record. Stage 1 only
// ever stores script_type=multisig rows (the CSV is the UTXO set) with
// IsSpent=false; Stage 2 may additionally insert RPC-discovered multisig
// outputs that are already spent within the enriching tx, which must be
// marked IsSpent=true.
type TransactionOutput struct {
	Txid         string
	Vout         uint32
	Height       uint32
	AmountSats   uint64
	ScriptHex    string
	ScriptType   ScriptType
	ScriptSize   int
	IsCoinbase   bool
	IsSpent      bool
	MetadataJSON string
}

// P2MSOutput is the multisig-specific metadata for a TransactionOutput
// whose ScriptType is ScriptTypeMultisig. Every row must correspond to a
// TransactionOutput with the same (txid, vout); the store enforces this
// as a structural constraint (FK + trigger), not an application check.
type P2MSOutput struct {
	Txid          string
	Vout          uint32
	RequiredSigs  int // m
	TotalPubkeys  int // n
	PubkeysHex    []string
}
