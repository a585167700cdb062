package protocol

import (
	"errors"
	"fmt"
)

// Sentinel decode errors. Both are frame errors: the caller logs and drops
// the frame, never the connection.
var (
	ErrShortFrame = errors.New("protocol: short frame")
	ErrBadFrame   = errors.New("protocol: malformed frame")
)

// DecodeInbound decodes raw link bytes into a Frame. Dispatch is by the
// leading byte; unrecognized opcodes decode to Unknown rather than an
// error so new firmware frames degrade gracefully.
func DecodeInbound(data []byte) (Frame, error) {
	if len(data) == 0 {
		return nil, ErrShortFrame
	}

	switch data[0] {
	case OpGesture:
		if len(data) < 2 {
			return nil, fmt.Errorf("%w: gesture needs 2 bytes, got %d", ErrShortFrame, len(data))
		}
		return Gesture{Code: GestureCode(data[1])}, nil

	case OpMicAudio:
		// [0xF1, seqHdr, seqHdr, payload...]
		if len(data) < 3 {
			return nil, fmt.Errorf("%w: audio chunk needs header and payload, got %d bytes", ErrShortFrame, len(data))
		}
		return AudioChunk{Data: data[3:]}, nil

	case OpMicControl:
		if len(data) < 2 {
			return nil, fmt.Errorf("%w: mic control needs 2 bytes, got %d", ErrShortFrame, len(data))
		}
		switch data[1] {
		case micAckCode:
			return MicAck{OK: true}, nil
		case micNackCode:
			return MicAck{OK: false}, nil
		case 0, 1:
			return MicControl{On: data[1] == 1}, nil
		default:
			return nil, fmt.Errorf("%w: mic control code 0x%02x", ErrBadFrame, data[1])
		}

	case OpHeartbeat:
		if len(data) < 6 {
			return nil, fmt.Errorf("%w: heartbeat needs 6 bytes, got %d", ErrShortFrame, len(data))
		}
		if length := int(data[1]) | int(data[2])<<8; length != len(data) {
			return nil, fmt.Errorf("%w: heartbeat length field %d != frame length %d", ErrBadFrame, length, len(data))
		}
		if data[4] != 0x04 || data[3] != data[5] {
			return nil, fmt.Errorf("%w: heartbeat body % x", ErrBadFrame, data[1:])
		}
		return Heartbeat{Seq: data[3]}, nil

	case OpHandshake:
		if len(data) < 2 || data[1] != 0x01 {
			return nil, fmt.Errorf("%w: handshake % x", ErrBadFrame, data)
		}
		return Handshake{}, nil

	case OpTextDisplay:
		if len(data) < 9 {
			return nil, fmt.Errorf("%w: text display needs 9-byte header, got %d bytes", ErrShortFrame, len(data))
		}
		return TextDisplay{
			Seq:     data[1],
			Total:   data[2],
			Index:   data[3],
			Screen:  ScreenStatus(data[4]),
			Pos:     uint16(data[5])<<8 | uint16(data[6]),
			CurPage: data[7],
			MaxPage: data[8],
			Payload: data[9:],
		}, nil

	default:
		return Unknown{Raw: data}, nil
	}
}
