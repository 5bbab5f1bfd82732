// Package classify implements the ordered protocol classifier chain and
// per-output spendability analysis (spec §4.8). The chain runs once per
// transaction; the first classifier to return a verdict wins, mirroring
// the teacher's heuristics package where each file owns one detection
// concern and the caller runs them in a fixed priority order.
package classify

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/deadmanoz/data-carry-research-sub003/internal/cryptoprim"
	"github.com/deadmanoz/data-carry-research-sub003/internal/protocol"
	"github.com/deadmanoz/data-carry-research-sub003/internal/script"
	"github.com/deadmanoz/data-carry-research-sub003/internal/signature"
	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

// ExodusAddress is the Exodus P2PKH address every Omni transaction must
// pay (spec §4.8.1 item 3).
const ExodusAddress = "1EXoDusjGwvnjZUyKkxZ4UHEf77z6A5S4P"

// PPkMarkerPubkey is the fixed compressed pubkey that signals a PPk
// transaction at pubkey position 2 (spec §4.8.1 item 5).
const PPkMarkerPubkey = "0320a0de360cc2ae8672db7d557086a4e7c8eca062c0a5a4ba9922dee0aacf3e12"

// P2MSOutputInput is the per-output data the classifier chain needs.
type P2MSOutputInput struct {
	Vout         uint32
	RequiredSigs int
	TotalPubkeys int
	PubkeysHex   []string
	AmountSats   uint64
	IsSegwit     bool
}

// Dust thresholds for a bare multisig output (spec §4.8.2).
const (
	DustThresholdNonSegwit uint64 = 546
	DustThresholdSegwit    uint64 = 294
)

// TxInput is everything the classifier chain needs about one transaction.
type TxInput struct {
	Txid            string
	FirstInputTxid  string // empty for coinbase / no inputs
	Outputs         []P2MSOutputInput
	OpReturns       [][]byte // raw OP_RETURN payloads, in vout order
	HasExodusOutput bool
	SenderAddress   string // first input's resolved source address, for Omni
	BlockHeight     uint32
	TxIndex         int
}

var stampsSignatures = []string{"stamp:", "STAMP:", "stamps:", "STAMPS:"}

// ClassifyTransaction runs the ordered classifier chain and returns the
// first verdict. Falls through to ProtocolUnknown if nothing matches.
func ClassifyTransaction(in TxInput) models.ClassificationResult {
	base := models.ClassificationResult{Txid: in.Txid}

	if r, ok := classifyBitcoinStamps(in, base); ok {
		return r
	}
	if r, ok := classifyCounterparty(in, base); ok {
		return r
	}
	if r, ok := classifyOmniLayer(in, base); ok {
		return r
	}
	if r, ok := classifyChancecoin(in, base); ok {
		return r
	}
	if r, ok := classifyPPk(in, base); ok {
		return r
	}
	if r, ok := classifyAsciiIdentifier(in, base); ok {
		return r
	}
	if r, ok := classifyOpReturnSignalled(in, base); ok {
		return r
	}
	if r, ok := classifyDataStorage(in, base); ok {
		return r
	}
	if r, ok := classifyLikelyDataStorage(in, base); ok {
		return r
	}
	if r, ok := classifyLikelyLegitimateMultisig(in, base); ok {
		return r
	}
	base.Protocol = models.ProtocolUnknown
	base.Variant = "Unknown"
	base.ClassificationMethod = "fallback"
	base.HasContentType = false
	return base
}

func decryptedChunks(in TxInput) (map[uint32][]byte, bool) {
	if in.FirstInputTxid == "" {
		return nil, false
	}
	key, ok := cryptoprim.PrepareKeyFromTxid(in.FirstInputTxid)
	if !ok || len(key) == 0 {
		return nil, false
	}
	out := make(map[uint32][]byte)
	any := false
	for _, o := range in.Outputs {
		if len(o.PubkeysHex) < 2 {
			continue
		}
		chunk, ok := script.ExtractP2MSChunk(o.PubkeysHex[1])
		if !ok {
			continue
		}
		plain, err := cryptoprim.Decrypt(key, chunk)
		if err != nil {
			continue
		}
		out[o.Vout] = plain
		any = true
	}
	return out, any
}

func classifyBitcoinStamps(in TxInput, base models.ClassificationResult) (models.ClassificationResult, bool) {
	chunks, ok := decryptedChunks(in)
	if !ok {
		return base, false
	}
	for vout, plain := range chunks {
		for _, sig := range stampsSignatures {
			idx := strings.Index(string(plain), sig)
			if idx < 0 {
				continue
			}
			base.Protocol = models.ProtocolBitcoinStamps
			if idx > 2 {
				base.Variant = "StampsCounterpartyEmbedded"
			} else {
				base.Variant = "StampsPure"
			}
			base.ProtocolSignatureFound = true
			base.ClassificationMethod = "stamps_signature_scan"
			payload := plain[idx+len(sig):]
			bodyVariant := protocol.DetectStampsBodyVariant(payload)
			base.Variant = models.Variant(string(base.Variant) + "/" + string(bodyVariant))
			ct := signature.DetectContentType(payload)
			base.ContentType = ct
			base.HasContentType = true
			_ = vout
			return base, true
		}
	}
	return base, false
}

func classifyCounterparty(in TxInput, base models.ClassificationResult) (models.ClassificationResult, bool) {
	chunks, ok := decryptedChunks(in)
	if !ok {
		return base, false
	}
	for _, plain := range chunks {
		idx := strings.Index(string(plain), "CNTRPRTY")
		if idx < 0 {
			continue
		}
		body := plain[idx+8:]
		if len(body) < 1 {
			continue
		}
		msgType := protocol.CounterpartyMessageType(body[0])
		msg := protocol.ParseCounterpartyMessage(msgType, body[1:])
		base.Protocol = models.ProtocolCounterparty
		base.Variant = models.Variant(msgType.String())
		base.ProtocolSignatureFound = true
		base.ClassificationMethod = "counterparty_envelope_scan"
		base.HasContentType = false
		_ = msg
		return base, true
	}
	return base, false
}

func classifyOmniLayer(in TxInput, base models.ClassificationResult) (models.ClassificationResult, bool) {
	if !in.HasExodusOutput {
		return base, false
	}
	base.Protocol = models.ProtocolOmniLayer
	base.ProtocolSignatureFound = true
	base.ClassificationMethod = "omni_exodus_output"

	type candidate struct {
		seq     int
		payload []byte
	}
	var candidates []candidate
	if in.SenderAddress != "" {
		for _, o := range in.Outputs {
			for _, idx := range []int{1, 2} { // pubkeys #2 and #3 (0-based 1,2)
				if len(o.PubkeysHex) <= idx {
					continue
				}
				chunk, ok := script.ExtractP2MSChunk(o.PubkeysHex[idx])
				if !ok {
					continue
				}
				if c, ok := cryptoprim.FindOmniKeystream(in.SenderAddress, chunk); ok {
					candidates = append(candidates, candidate{seq: c.Seq, payload: c.Payload})
				}
			}
		}
	}
	if len(candidates) == 0 {
		base.Variant = "OmniFailedDeobfuscation"
		base.HasContentType = false
		return base, true
	}
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[j].seq < candidates[i].seq {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			}
		}
	}
	var payload []byte
	for _, c := range candidates {
		payload = append(payload, c.payload...)
	}
	msg, err := protocol.ParseOmniMessage(payload)
	if err != nil {
		base.Variant = "OmniFailedDeobfuscation"
		base.HasContentType = false
		return base, true
	}
	base.Variant = models.Variant(msg.Header.MessageType.String())
	ct := signature.DetectContentType(payload)
	base.ContentType = ct
	base.HasContentType = true
	return base, true
}

func classifyChancecoin(in TxInput, base models.ClassificationResult) (models.ClassificationResult, bool) {
	for _, o := range in.Outputs {
		if len(o.PubkeysHex) < 2 {
			continue
		}
		payload, ok := script.ExtractWithLengthPrefix(o.PubkeysHex[1])
		if !ok || len(payload) < 8 {
			continue
		}
		if string(payload[:8]) == "CHANCECO" {
			base.Protocol = models.ProtocolChancecoin
			base.ProtocolSignatureFound = true
			base.ClassificationMethod = "chancecoin_length_prefixed"
			ct := signature.DetectContentType(payload[8:])
			base.ContentType = ct
			base.HasContentType = true
			return base, true
		}
	}
	return base, false
}

func classifyPPk(in TxInput, base models.ClassificationResult) (models.ClassificationResult, bool) {
	found := false
	for _, o := range in.Outputs {
		if len(o.PubkeysHex) >= 2 && strings.EqualFold(o.PubkeysHex[1], PPkMarkerPubkey) {
			found = true
			break
		}
	}
	if !found {
		return base, false
	}
	base.Protocol = models.ProtocolPPk
	base.ProtocolSignatureFound = true
	base.ClassificationMethod = "ppk_marker_pubkey"

	opReturn := firstOpReturn(in)
	variant, contentType, hasContentType := classifyPPkVariant(in, opReturn)
	base.Variant = variant
	base.ContentType = contentType
	base.HasContentType = hasContentType
	return base, true
}

func firstOpReturn(in TxInput) []byte {
	if len(in.OpReturns) == 0 {
		return nil
	}
	return in.OpReturns[0]
}

func classifyPPkVariant(in TxInput, opReturn []byte) (models.Variant, models.ContentType, bool) {
	var pubkey3 []byte
	for _, o := range in.Outputs {
		if len(o.PubkeysHex) >= 3 {
			if b, ok := script.ExtractP2MSChunk(o.PubkeysHex[2]); ok {
				pubkey3 = b
			}
		}
	}
	if tryPPkProfile(opReturn) || tryPPkProfile(pubkey3) {
		return "PPkProfile", models.ContentStructuredJSON, true
	}
	s := strings.TrimSpace(string(opReturn))
	if n := strings.Trim(s, `"`); n != "" {
		if _, err := strconv.Atoi(n); err == nil {
			return "PPkRegistration", models.ContentType{}, false
		}
	}
	if printableRatioPPk(opReturn) >= 0.8 || strings.Contains(strings.ToLower(s), "ppk") {
		return "PPkMessage", models.ContentTextPlain, true
	}
	return "PPkUnknown", models.ContentType{}, false
}

func tryPPkProfile(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	var v map[string]any
	return json.Unmarshal(data, &v) == nil
}

func printableRatioPPk(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	printable := 0
	for _, b := range data {
		if b >= 0x20 && b <= 0x7E {
			printable++
		}
	}
	return float64(printable) / float64(len(data))
}

// asciiTag describes one allow-listed ASCII identifier signature.
type asciiTag struct {
	tag        string
	pubkeyIdx  int // 0-based slot the tag must appear in; -1 means "anywhere"
	offsetOnly bool // true: only check offset 1..7 of that slot
}

var asciiAllowList = []asciiTag{
	{tag: "TB0001", pubkeyIdx: 1, offsetOnly: true},
	{tag: "TEST01", pubkeyIdx: 0, offsetOnly: true},
	{tag: "METROXMN", pubkeyIdx: -1},
	{tag: "NEWBCOIN", pubkeyIdx: -1},
	{tag: "PRVCY", pubkeyIdx: -1},
}

func classifyAsciiIdentifier(in TxInput, base models.ClassificationResult) (models.ClassificationResult, bool) {
	for _, o := range in.Outputs {
		for _, t := range asciiAllowList {
			if t.pubkeyIdx >= 0 {
				if len(o.PubkeysHex) <= t.pubkeyIdx {
					continue
				}
				if pubkeyContainsTag(o.PubkeysHex[t.pubkeyIdx], t.tag, t.offsetOnly) {
					base.Protocol = models.ProtocolAsciiIdentifier
					base.Variant = models.Variant("AsciiIdentifier" + t.tag)
					base.ProtocolSignatureFound = true
					base.ClassificationMethod = "ascii_identifier_allowlist"
					base.HasContentType = false
					return base, true
				}
				continue
			}
			for _, pk := range o.PubkeysHex {
				if pubkeyContainsTag(pk, t.tag, false) {
					base.Protocol = models.ProtocolAsciiIdentifier
					base.Variant = models.Variant("AsciiIdentifier" + t.tag)
					base.ProtocolSignatureFound = true
					base.ClassificationMethod = "ascii_identifier_allowlist"
					base.HasContentType = false
					return base, true
				}
			}
		}
	}
	return base, false
}

func pubkeyContainsTag(pubkeyHex, tag string, offsetOnly bool) bool {
	b, ok := script.DecodeHex(pubkeyHex)
	if !ok {
		return false
	}
	if offsetOnly {
		if len(b) < 7 {
			return false
		}
		return string(b[1:7]) == tag
	}
	return strings.Contains(string(b), tag)
}

var opReturnAllowList = []string{"CLIPPERZ", "47930"}

func classifyOpReturnSignalled(in TxInput, base models.ClassificationResult) (models.ClassificationResult, bool) {
	for _, data := range in.OpReturns {
		for _, tag := range opReturnAllowList {
			if strings.HasPrefix(string(data), tag) {
				base.Protocol = models.ProtocolOpReturnSignalled
				base.Variant = models.Variant("OpReturn" + tag)
				base.ProtocolSignatureFound = true
				base.ClassificationMethod = "op_return_allowlist"
				base.HasContentType = false
				return base, true
			}
		}
		if consecutivePrintableRun(data) >= 5 {
			base.Protocol = models.ProtocolOpReturnSignalled
			base.Variant = "OpReturnPrintableRun"
			base.ProtocolSignatureFound = true
			base.ClassificationMethod = "op_return_printable_run"
			base.HasContentType = false
			return base, true
		}
	}
	return base, false
}

func consecutivePrintableRun(data []byte) int {
	best, cur := 0, 0
	for _, b := range data {
		if b >= 0x20 && b <= 0x7E {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}

var dataStorageMetadataMarkers = []string{
	"http://", "https://", "magnet:", ".7z", ".zip", ".rar", ".tar", ".gz",
	"wikileaks", "backup", "download", "file",
}

func classifyDataStorage(in TxInput, base models.ClassificationResult) (models.ClassificationResult, bool) {
	var concat []byte
	for _, o := range in.Outputs {
		for _, pk := range o.PubkeysHex {
			b, ok := script.DecodeHex(pk)
			if !ok {
				continue
			}
			data := dataRegion(b)
			if len(data) >= 10 {
				concat = append(concat, data...)
			}
		}
	}
	if len(concat) == 0 {
		return base, false
	}

	ct := signature.DetectContentType(concat)
	switch {
	case ct.Category == "archive" || ct.Category == "image":
		base.Protocol = models.ProtocolDataStorage
		base.Variant = "DataStorageEmbeddedData"
		base.ContentType = ct
		base.HasContentType = true
		base.ProtocolSignatureFound = true
		base.ClassificationMethod = "data_storage_binary_signature"
		return base, true
	case signature.IsProofOfBurn(concat):
		base.Protocol = models.ProtocolDataStorage
		base.Variant = "DataStorageProofOfBurn"
		base.HasContentType = false
		base.ProtocolSignatureFound = true
		base.ClassificationMethod = "data_storage_proof_of_burn"
		return base, true
	}

	lower := strings.ToLower(string(concat))
	hasMetadata := false
	for _, marker := range dataStorageMetadataMarkers {
		if strings.Contains(lower, marker) {
			hasMetadata = true
			break
		}
	}
	if hasMetadata && printableRatioPPk(concat) > 0.5 {
		base.Protocol = models.ProtocolDataStorage
		base.ProtocolSignatureFound = true
		base.ClassificationMethod = "data_storage_file_metadata"
		if len(concat) < 200 {
			base.Variant = "DataStorageFileMetadata"
		} else {
			base.Variant = "DataStorageEmbeddedData"
		}
		detected := signature.DetectContentType(concat)
		if detected.IsZero() || detected.Category == models.CategoryNone {
			detected = models.ContentTypeBinary
		}
		base.ContentType = detected
		base.HasContentType = true
		return base, true
	}

	if ct.Category == "text" || ct.Category == "structured" {
		base.Protocol = models.ProtocolDataStorage
		base.Variant = "DataStorageEmbeddedData"
		base.ContentType = ct
		base.HasContentType = true
		base.ProtocolSignatureFound = true
		base.ClassificationMethod = "data_storage_text"
		return base, true
	}

	if allZero(concat) {
		base.Protocol = models.ProtocolDataStorage
		base.Variant = "DataStorageNullData"
		base.HasContentType = false
		base.ProtocolSignatureFound = true
		base.ClassificationMethod = "data_storage_null"
		return base, true
	}

	return base, false
}

// dataRegion extracts the "data slot" bytes of a pubkey-shaped push:
// accepts 20/32/33/65-byte slots and any push of 10+ bytes, stripping the
// EC-prefix byte for 33/65-byte compressed/uncompressed-shaped slots.
func dataRegion(b []byte) []byte {
	switch len(b) {
	case 33, 65:
		return b[1:]
	case 20, 32:
		return b
	default:
		if len(b) >= 10 {
			return b
		}
		return nil
	}
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func classifyLikelyDataStorage(in TxInput, base models.ClassificationResult) (models.ClassificationResult, bool) {
	for _, o := range in.Outputs {
		dust := isDustOutput(o)
		invalidEC := false
		for _, pk := range o.PubkeysHex {
			if !script.IsValidECPoint(pk) {
				invalidEC = true
				break
			}
		}
		if invalidEC || dust {
			base.Protocol = models.ProtocolLikelyDataStorage
			base.Variant = "LikelyDataStorage"
			base.HasContentType = false
			base.ProtocolSignatureFound = false
			base.ClassificationMethod = "likely_data_storage_heuristic"
			return base, true
		}
	}
	return base, false
}

func isDustOutput(o P2MSOutputInput) bool {
	if o.IsSegwit {
		return o.AmountSats < DustThresholdSegwit
	}
	return o.AmountSats < DustThresholdNonSegwit
}

func classifyLikelyLegitimateMultisig(in TxInput, base models.ClassificationResult) (models.ClassificationResult, bool) {
	seen := 0
	for _, o := range in.Outputs {
		for _, pk := range o.PubkeysHex {
			if !script.IsValidECPoint(pk) {
				return base, false
			}
			seen++
		}
	}
	if seen == 0 {
		return base, false
	}
	base.Protocol = models.ProtocolLikelyLegitimateMultisig
	base.Variant = models.VariantNone
	base.HasContentType = false
	base.ProtocolSignatureFound = false
	base.ClassificationMethod = "all_valid_ec_points"
	return base, true
}
