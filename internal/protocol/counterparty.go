package protocol

import "encoding/binary"

// CounterpartyMessageType is the single type byte immediately following
// the 8-byte CNTRPRTY envelope (spec §4.8.1 item 2).
type CounterpartyMessageType uint8

const (
	CounterpartySend      CounterpartyMessageType = 0
	CounterpartyIssuance  CounterpartyMessageType = 20
	CounterpartyBroadcast CounterpartyMessageType = 30
	CounterpartySubasset  CounterpartyMessageType = 21
	CounterpartyTransfer  CounterpartyMessageType = 22
)

func (t CounterpartyMessageType) String() string {
	switch t {
	case CounterpartySend:
		return "Send"
	case CounterpartyIssuance:
		return "Issuance"
	case CounterpartyBroadcast:
		return "Broadcast"
	case CounterpartySubasset:
		return "Subasset"
	case CounterpartyTransfer:
		return "Transfer"
	default:
		return "Unknown"
	}
}

// CounterpartyMessage is the parsed body following the CNTRPRTY envelope
// and its message-type byte.
type CounterpartyMessage struct {
	Type      CounterpartyMessageType
	Send      *CounterpartySendBody
	Issuance  *CounterpartyIssuanceBody
	Broadcast *CounterpartyBroadcastBody
	RawHex    string // populated for any type this parser doesn't model
}

type CounterpartySendBody struct {
	AssetID  uint64
	Quantity uint64
}

type CounterpartyIssuanceBody struct {
	AssetID     uint64
	Quantity    uint64
	Divisible   bool
	Description string
}

type CounterpartyBroadcastBody struct {
	Timestamp   uint32
	Value       float64
	FeeFraction uint32
	Text        string
}

// ParseCounterpartyMessage decodes the body after the 8-byte CNTRPRTY
// prefix and message-type byte. body is already positioned at offset 9
// (CNTRPRTY + type byte stripped) by the caller.
func ParseCounterpartyMessage(msgType CounterpartyMessageType, body []byte) CounterpartyMessage {
	msg := CounterpartyMessage{Type: msgType}
	switch msgType {
	case CounterpartySend:
		if len(body) >= 16 {
			msg.Send = &CounterpartySendBody{
				AssetID:  binary.BigEndian.Uint64(body[0:8]),
				Quantity: binary.BigEndian.Uint64(body[8:16]),
			}
		}
	case CounterpartyIssuance:
		if len(body) >= 17 {
			msg.Issuance = &CounterpartyIssuanceBody{
				AssetID:     binary.BigEndian.Uint64(body[0:8]),
				Quantity:    binary.BigEndian.Uint64(body[8:16]),
				Divisible:   body[16] != 0,
				Description: string(trimTrailingNulls(body[17:])),
			}
		}
	case CounterpartyBroadcast:
		if len(body) >= 16 {
			msg.Broadcast = &CounterpartyBroadcastBody{
				Timestamp:   binary.BigEndian.Uint32(body[0:4]),
				Value:       float64(int64(binary.BigEndian.Uint64(body[4:12]))) / 1e8,
				FeeFraction: binary.BigEndian.Uint32(body[12:16]),
				Text:        string(trimTrailingNulls(body[16:])),
			}
		}
	}
	return msg
}

func trimTrailingNulls(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0x00 {
		end--
	}
	return b[:end]
}
