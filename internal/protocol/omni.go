// Package protocol implements the Omni Layer and Bitcoin Stamps body
// parsers (spec §4.10) that sit downstream of classification and
// deobfuscation. Each message type gets its own struct and a parse
// function that never fails on an unrecognised type — unknown bodies are
// preserved as hex rather than dropped (spec §7 DecodeFailure policy).
package protocol

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// OmniMessageType is the u16 BE type field of an Omni header.
type OmniMessageType uint16

const (
	OmniSimpleSend            OmniMessageType = 0
	OmniSendToOwners          OmniMessageType = 3
	OmniSendAll               OmniMessageType = 4
	OmniTradeOffer            OmniMessageType = 20
	OmniCreatePropertyFixed   OmniMessageType = 50
	OmniCreatePropertyVariable OmniMessageType = 51
	OmniCloseCrowdsale        OmniMessageType = 53
	OmniCreatePropertyManual  OmniMessageType = 54
	OmniGrantPropertyTokens   OmniMessageType = 55
)

func (t OmniMessageType) String() string {
	switch t {
	case OmniSimpleSend:
		return "OmniSimpleSend"
	case OmniSendToOwners:
		return "OmniSendToOwners"
	case OmniSendAll:
		return "OmniSendAll"
	case OmniTradeOffer:
		return "OmniTradeOffer"
	case OmniCreatePropertyFixed:
		return "OmniCreatePropertyFixed"
	case OmniCreatePropertyVariable:
		return "OmniCreatePropertyVariable"
	case OmniCloseCrowdsale:
		return "OmniCloseCrowdsale"
	case OmniCreatePropertyManual:
		return "OmniCreatePropertyManual"
	case OmniGrantPropertyTokens:
		return "OmniGrantPropertyTokens"
	default:
		return "OmniUnknown"
	}
}

// OmniHeader is the fixed 4-byte prefix of every Omni message.
type OmniHeader struct {
	Version     uint16
	MessageType OmniMessageType
}

// OmniMessage is the parsed header plus a type-tagged body. At most one of
// the body pointer fields is non-nil, selected by Header.MessageType; for
// any type not listed above none is set and UnknownHex holds the raw
// remaining bytes as hex.
type OmniMessage struct {
	Header         OmniHeader
	SimpleSend     *OmniSimpleSendBody
	SendAll        *OmniSendAllBody
	TradeOffer     *OmniTradeOfferBody
	CreateProperty *OmniCreatePropertyBody
	CloseCrowdsale *OmniCloseCrowdsaleBody
	GrantTokens    *OmniGrantTokensBody
	UnknownHex     string
}

type OmniSimpleSendBody struct {
	PropertyID uint32
	Amount     int64
}

type OmniSendAllBody struct {
	Ecosystem     uint8
	EcosystemName string
}

type OmniTradeOfferBody struct {
	PropertyID      uint32
	AmountForSale   int64
	AmountDesired   int64
	FeeRequired     uint8
}

// OmniCreatePropertyBody covers types 50 (Fixed), 51 (Variable), and 54
// (Manual). NumberProperties/PropertyIDDesired are populated only for the
// variant that carries them (spec §4.10).
type OmniCreatePropertyBody struct {
	Ecosystem           uint8
	EcosystemName       string
	PropertyType        uint16
	PropertyTypeName    string
	PreviousPropertyID  uint32
	Category            string
	Subcategory         string
	Name                string
	URL                 string
	Data                string
	HasNumberProperties bool
	NumberProperties    uint64
	HasPropertyIDDesired bool
	PropertyIDDesired   uint32
}

type OmniCloseCrowdsaleBody struct {
	PropertyID uint32
}

type OmniGrantTokensBody struct {
	PropertyID uint32
	Amount     int64
	HasInfo    bool
	Info       string
}

func ecosystemName(e uint8) string {
	switch e {
	case 1:
		return "Main"
	case 2:
		return "Test"
	default:
		return "Unknown"
	}
}

func propertyTypeName(t uint16) string {
	switch t {
	case 1:
		return "Indivisible"
	case 2:
		return "Divisible"
	default:
		return "Unknown"
	}
}

// ParseOmniMessage decodes a deobfuscated Omni payload: a 4-byte header
// (version u16 BE, message_type u16 BE) followed by a type-specific body.
func ParseOmniMessage(payload []byte) (OmniMessage, error) {
	if len(payload) < 4 {
		return OmniMessage{}, fmt.Errorf("omni payload too short: %d bytes", len(payload))
	}
	header := OmniHeader{
		Version:     binary.BigEndian.Uint16(payload[0:2]),
		MessageType: OmniMessageType(binary.BigEndian.Uint16(payload[2:4])),
	}
	body := payload[4:]
	msg := OmniMessage{Header: header}

	switch header.MessageType {
	case OmniSimpleSend, OmniSendToOwners:
		b, err := parseSimpleSend(body)
		if err != nil {
			return msg, err
		}
		msg.SimpleSend = &b
	case OmniSendAll:
		b, err := parseSendAll(body)
		if err != nil {
			return msg, err
		}
		msg.SendAll = &b
	case OmniTradeOffer:
		b, err := parseTradeOffer(body)
		if err != nil {
			return msg, err
		}
		msg.TradeOffer = &b
	case OmniCreatePropertyFixed:
		b, err := parseCreateProperty(body, true, false)
		if err != nil {
			return msg, err
		}
		msg.CreateProperty = &b
	case OmniCreatePropertyVariable:
		b, err := parseCreateProperty(body, false, true)
		if err != nil {
			return msg, err
		}
		msg.CreateProperty = &b
	case OmniCreatePropertyManual:
		b, err := parseCreateProperty(body, false, false)
		if err != nil {
			return msg, err
		}
		msg.CreateProperty = &b
	case OmniCloseCrowdsale:
		b, err := parseCloseCrowdsale(body)
		if err != nil {
			return msg, err
		}
		msg.CloseCrowdsale = &b
	case OmniGrantPropertyTokens:
		b, err := parseGrantTokens(body)
		if err != nil {
			return msg, err
		}
		msg.GrantTokens = &b
	default:
		msg.UnknownHex = hex.EncodeToString(body)
	}
	return msg, nil
}

func parseSimpleSend(b []byte) (OmniSimpleSendBody, error) {
	if len(b) < 12 {
		return OmniSimpleSendBody{}, fmt.Errorf("simple send body too short")
	}
	return OmniSimpleSendBody{
		PropertyID: binary.BigEndian.Uint32(b[0:4]),
		Amount:     int64(binary.BigEndian.Uint64(b[4:12])),
	}, nil
}

func parseSendAll(b []byte) (OmniSendAllBody, error) {
	if len(b) < 1 {
		return OmniSendAllBody{}, fmt.Errorf("send all body too short")
	}
	return OmniSendAllBody{Ecosystem: b[0], EcosystemName: ecosystemName(b[0])}, nil
}

func parseTradeOffer(b []byte) (OmniTradeOfferBody, error) {
	if len(b) < 21 {
		return OmniTradeOfferBody{}, fmt.Errorf("trade offer body too short")
	}
	return OmniTradeOfferBody{
		PropertyID:    binary.BigEndian.Uint32(b[0:4]),
		AmountForSale: int64(binary.BigEndian.Uint64(b[4:12])),
		AmountDesired: int64(binary.BigEndian.Uint64(b[12:20])),
		FeeRequired:   b[20],
	}, nil
}

func parseCloseCrowdsale(b []byte) (OmniCloseCrowdsaleBody, error) {
	if len(b) < 4 {
		return OmniCloseCrowdsaleBody{}, fmt.Errorf("close crowdsale body too short")
	}
	return OmniCloseCrowdsaleBody{PropertyID: binary.BigEndian.Uint32(b[0:4])}, nil
}

func parseGrantTokens(b []byte) (OmniGrantTokensBody, error) {
	if len(b) < 12 {
		return OmniGrantTokensBody{}, fmt.Errorf("grant tokens body too short")
	}
	out := OmniGrantTokensBody{
		PropertyID: binary.BigEndian.Uint32(b[0:4]),
		Amount:     int64(binary.BigEndian.Uint64(b[4:12])),
	}
	if len(b) > 12 {
		s, _, ok := readNullTerminated(b, 12)
		if ok {
			out.HasInfo = true
			out.Info = s
		}
	}
	return out, nil
}

// parseCreateProperty handles types 50/51/54: a fixed prefix, five
// null-terminated UTF-8 strings (each ≤255 bytes), then an optional tail
// that differs by type (hasNumberProperties for 50, hasPropertyIDDesired
// for 51, neither for 54).
func parseCreateProperty(b []byte, hasNumberProperties, hasPropertyIDDesired bool) (OmniCreatePropertyBody, error) {
	if len(b) < 7 {
		return OmniCreatePropertyBody{}, fmt.Errorf("create property body too short")
	}
	out := OmniCreatePropertyBody{
		Ecosystem:          b[0],
		PropertyType:       binary.BigEndian.Uint16(b[1:3]),
		PreviousPropertyID: binary.BigEndian.Uint32(b[3:7]),
	}
	out.EcosystemName = ecosystemName(out.Ecosystem)
	out.PropertyTypeName = propertyTypeName(out.PropertyType)

	offset := 7
	strs := make([]string, 5)
	for i := 0; i < 5; i++ {
		s, next, ok := readNullTerminated(b, offset)
		if !ok {
			return out, fmt.Errorf("create property: missing null-terminated field %d", i)
		}
		if len(s) > 255 {
			return out, fmt.Errorf("create property: field %d exceeds 255 bytes", i)
		}
		strs[i] = s
		offset = next
	}
	out.Category, out.Subcategory, out.Name, out.URL, out.Data = strs[0], strs[1], strs[2], strs[3], strs[4]

	switch {
	case hasNumberProperties && offset+8 <= len(b):
		out.HasNumberProperties = true
		out.NumberProperties = binary.BigEndian.Uint64(b[offset : offset+8])
	case hasPropertyIDDesired && offset+4 <= len(b):
		out.HasPropertyIDDesired = true
		out.PropertyIDDesired = binary.BigEndian.Uint32(b[offset : offset+4])
	}
	return out, nil
}

// readNullTerminated reads a string from b starting at offset up to (and
// not including) the next 0x00 byte. Returns (string, offset-after-null,
// true) on success.
func readNullTerminated(b []byte, offset int) (string, int, bool) {
	if offset > len(b) {
		return "", offset, false
	}
	for i := offset; i < len(b); i++ {
		if b[i] == 0x00 {
			return string(b[offset:i]), i + 1, true
		}
	}
	return "", offset, false
}
