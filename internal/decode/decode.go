// Package decode implements Stage 4: reconstructing the embedded payload
// of an already-classified transaction (spec §4.9) and writing it to disk
// under a per-protocol subdirectory, grounded on the teacher's per-concern
// extractor style in internal/heuristics and the batch writer idiom in
// internal/db.
package decode

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/deadmanoz/data-carry-research-sub003/internal/cryptoprim"
	"github.com/deadmanoz/data-carry-research-sub003/internal/protocol"
	"github.com/deadmanoz/data-carry-research-sub003/internal/script"
	"github.com/deadmanoz/data-carry-research-sub003/internal/signature"
	"github.com/deadmanoz/data-carry-research-sub003/pkg/models"
)

// Output is the per-vout data the decoder needs for one transaction.
type Output struct {
	Vout       uint32
	PubkeysHex []string
}

// Input is everything Stage 4 needs about one already-classified
// transaction.
type Input struct {
	Txid           string
	FirstInputTxid string
	Outputs        []Output
	OpReturns      [][]byte
	SenderAddress  string
	BlockHeight    uint32
	TxIndex        int
}

// DecodedData is the unified tagged result of decoding one transaction
// (spec §4.9, final paragraph).
type DecodedData struct {
	Txid        string
	Protocol    models.Protocol
	Variant     models.Variant
	HasFilePath bool
	FilePath    string
	SizeBytes   int
	Summary     string
}

var errNoPayload = fmt.Errorf("decode: no payload recovered")

// Decode dispatches to the per-protocol extractor named by protocol/variant
// (the verdict Stage 3 already persisted) and writes any recovered payload
// via w.
func Decode(in Input, proto models.Protocol, variant models.Variant, w *Writer) (DecodedData, error) {
	switch proto {
	case models.ProtocolBitcoinStamps:
		return decodeStamps(in, w)
	case models.ProtocolCounterparty:
		return decodeCounterparty(in, w)
	case models.ProtocolOmniLayer:
		return decodeOmni(in, w)
	case models.ProtocolChancecoin:
		return decodeChancecoin(in, w)
	case models.ProtocolPPk:
		return decodePPk(in, w)
	case models.ProtocolDataStorage, models.ProtocolLikelyDataStorage:
		return decodeDataStorage(in, proto, w)
	default:
		return DecodedData{
			Txid:     in.Txid,
			Protocol: proto,
			Variant:  variant,
			Summary:  "no decodable payload for this protocol",
		}, nil
	}
}

func sortedVouts(outputs []Output) []Output {
	out := make([]Output, len(outputs))
	copy(out, outputs)
	sort.Slice(out, func(i, j int) bool { return out[i].Vout < out[j].Vout })
	return out
}

// concatenatedArc4Plaintext decrypts pubkey #2's 31-byte chunk of every
// output (vout order) with the ARC4 key derived from the first input's
// txid and concatenates the plaintexts.
func concatenatedArc4Plaintext(in Input) ([]byte, bool) {
	if in.FirstInputTxid == "" {
		return nil, false
	}
	key, ok := cryptoprim.PrepareKeyFromTxid(in.FirstInputTxid)
	if !ok || len(key) == 0 {
		return nil, false
	}
	var out []byte
	any := false
	for _, o := range sortedVouts(in.Outputs) {
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
		out = append(out, plain...)
		any = true
	}
	return out, any
}

var stampsSignatures = []string{"stamp:", "STAMP:", "stamps:", "STAMPS:"}

func decodeStamps(in Input, w *Writer) (DecodedData, error) {
	plain, ok := concatenatedArc4Plaintext(in)
	if !ok {
		return DecodedData{}, errNoPayload
	}
	idx, sig := -1, ""
	for _, s := range stampsSignatures {
		if i := strings.Index(string(plain), s); i >= 0 {
			idx, sig = i, s
			break
		}
	}
	if idx < 0 {
		return DecodedData{}, errNoPayload
	}
	payload := plain[idx+len(sig):]
	payload = stripDataURIPrefix(payload)

	decoded, err := decodeBase64Permissive(payload)
	if err != nil {
		return DecodedData{}, fmt.Errorf("stamps base64 decode: %w", models.ErrDecodeFailure)
	}
	decoded = stripUTF8BOM(decoded)

	bodyVariant := protocol.DetectStampsBodyVariant(decoded)
	if bodyVariant == protocol.StampsBodyCompressed {
		if d, ok := tryDecompress(decoded); ok {
			decoded = d
		}
	}
	ct := signature.DetectContentType(decoded)

	name := in.Txid + ct.Extension()
	path, err := w.Write("stamps", name, decoded)
	if err != nil {
		return DecodedData{}, err
	}
	return DecodedData{
		Txid:        in.Txid,
		Protocol:    models.ProtocolBitcoinStamps,
		Variant:     models.Variant(string(bodyVariant)),
		HasFilePath: true,
		FilePath:    path,
		SizeBytes:   len(decoded),
		Summary:     fmt.Sprintf("stamps payload, %s variant, %d bytes", bodyVariant, len(decoded)),
	}, nil
}

func decodeCounterparty(in Input, w *Writer) (DecodedData, error) {
	plain, ok := concatenatedArc4Plaintext(in)
	if !ok {
		return DecodedData{}, errNoPayload
	}
	idx := strings.Index(string(plain), "CNTRPRTY")
	if idx < 0 {
		return DecodedData{}, errNoPayload
	}
	body := plain[idx+8:]
	if len(body) < 1 {
		return DecodedData{}, errNoPayload
	}
	msgType := protocol.CounterpartyMessageType(body[0])
	msg := protocol.ParseCounterpartyMessage(msgType, body[1:])

	summaryJSON, _ := json.Marshal(msg)
	path, err := w.Write("counterparty", in.Txid+".json", summaryJSON)
	if err != nil {
		return DecodedData{}, err
	}
	return DecodedData{
		Txid:        in.Txid,
		Protocol:    models.ProtocolCounterparty,
		Variant:     models.Variant(msgType.String()),
		HasFilePath: true,
		FilePath:    path,
		SizeBytes:   len(body[1:]),
		Summary:     fmt.Sprintf("counterparty %s message", msgType.String()),
	}, nil
}

func decodeOmni(in Input, w *Writer) (DecodedData, error) {
	if in.SenderAddress == "" {
		return DecodedData{}, errNoPayload
	}
	type candidate struct {
		seq     int
		payload []byte
	}
	var candidates []candidate
	for _, o := range sortedVouts(in.Outputs) {
		for _, idx := range []int{1, 2} {
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
	if len(candidates) == 0 {
		return DecodedData{}, errNoPayload
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].seq < candidates[j].seq })
	var payload []byte
	for _, c := range candidates {
		payload = append(payload, c.payload...)
	}
	msg, err := protocol.ParseOmniMessage(payload)
	if err != nil {
		return DecodedData{}, fmt.Errorf("omni decode: %w", models.ErrDecodeFailure)
	}
	summaryJSON, _ := json.Marshal(msg)
	path, werr := w.Write("omni", in.Txid+".json", summaryJSON)
	if werr != nil {
		return DecodedData{}, werr
	}
	return DecodedData{
		Txid:        in.Txid,
		Protocol:    models.ProtocolOmniLayer,
		Variant:     models.Variant(msg.Header.MessageType.String()),
		HasFilePath: true,
		FilePath:    path,
		SizeBytes:   len(payload),
		Summary:     fmt.Sprintf("omni %s message", msg.Header.MessageType.String()),
	}, nil
}

func decodeChancecoin(in Input, w *Writer) (DecodedData, error) {
	for _, o := range sortedVouts(in.Outputs) {
		if len(o.PubkeysHex) < 2 {
			continue
		}
		payload, ok := script.ExtractWithLengthPrefix(o.PubkeysHex[1])
		if !ok || len(payload) < 8 || string(payload[:8]) != "CHANCECO" {
			continue
		}
		remainder := payload[8:]
		path, err := w.Write("chancecoin", in.Txid+".bin", remainder)
		if err != nil {
			return DecodedData{}, err
		}
		return DecodedData{
			Txid:        in.Txid,
			Protocol:    models.ProtocolChancecoin,
			HasFilePath: true,
			FilePath:    path,
			SizeBytes:   len(remainder),
			Summary:     fmt.Sprintf("chancecoin payload, %d bytes", len(remainder)),
		}, nil
	}
	return DecodedData{}, errNoPayload
}

func decodePPk(in Input, w *Writer) (DecodedData, error) {
	var opReturn []byte
	if len(in.OpReturns) > 0 {
		opReturn = in.OpReturns[0]
	}
	var pubkey3 []byte
	for _, o := range sortedVouts(in.Outputs) {
		if len(o.PubkeysHex) >= 3 {
			if b, ok := script.ExtractP2MSChunk(o.PubkeysHex[2]); ok {
				pubkey3 = b
			}
		}
	}

	odin := fmt.Sprintf("ppk:%d.%d", in.BlockHeight, in.TxIndex)

	v, ok := parseJSON(opReturn)
	if !ok {
		v, ok = parseJSON(pubkey3)
	}
	if ok {
		body, _ := json.Marshal(v)
		dss := odin + "/profile.json"
		path, err := w.Write("ppk", in.Txid+".json", body)
		if err != nil {
			return DecodedData{}, err
		}
		return DecodedData{
			Txid:        in.Txid,
			Protocol:    models.ProtocolPPk,
			Variant:     "PPkProfile",
			HasFilePath: true,
			FilePath:    path,
			SizeBytes:   len(body),
			Summary:     "ppk profile, odin " + dss,
		}, nil
	}

	trimmed := strings.Trim(strings.TrimSpace(string(opReturn)), `"`)
	if trimmed != "" && isAllDigits(trimmed) {
		dss := fmt.Sprintf("%s/reg_%s.txt", odin, trimmed)
		return DecodedData{
			Txid:     in.Txid,
			Protocol: models.ProtocolPPk,
			Variant:  "PPkRegistration",
			Summary:  "ppk registration, odin " + dss,
		}, nil
	}

	lower := strings.ToLower(string(opReturn))
	if printableRatio(opReturn) >= 0.8 || strings.Contains(lower, "ppk") {
		dss := odin + "/message.txt"
		return DecodedData{
			Txid:     in.Txid,
			Protocol: models.ProtocolPPk,
			Variant:  "PPkMessage",
			Summary:  "ppk message, odin " + dss,
		}, nil
	}

	dss := odin + "/unknown.bin"
	return DecodedData{
		Txid:     in.Txid,
		Protocol: models.ProtocolPPk,
		Variant:  "PPkUnknown",
		Summary:  "ppk unknown, odin " + dss,
	}, nil
}

func decodeDataStorage(in Input, proto models.Protocol, w *Writer) (DecodedData, error) {
	var concat []byte
	for _, o := range sortedVouts(in.Outputs) {
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
		return DecodedData{}, errNoPayload
	}
	ct := signature.DetectContentType(concat)
	dir := "datastorage"
	if proto == models.ProtocolLikelyDataStorage {
		dir = "likely_datastorage"
	}
	name := in.Txid + ct.Extension()
	path, err := w.Write(dir, name, concat)
	if err != nil {
		return DecodedData{}, err
	}
	return DecodedData{
		Txid:        in.Txid,
		Protocol:    proto,
		HasFilePath: true,
		FilePath:    path,
		SizeBytes:   len(concat),
		Summary:     fmt.Sprintf("data storage payload, %d bytes", len(concat)),
	}, nil
}

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

func parseJSON(data []byte) (any, bool) {
	if len(data) == 0 {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return v, true
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func printableRatio(data []byte) float64 {
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
