// Package protocol implements the binary frame codec for the glasses link.
//
// Frames are small length-delineated binary messages. Outbound frames are
// written to both links (or one side for side-specific commands); inbound
// bytes are decoded into a discriminated union via DecodeInbound.
package protocol

import "fmt"

// Opcodes (leading byte of each frame).
const (
	OpMicControl  = 0x0E
	OpHeartbeat   = 0x25
	OpHandshake   = 0x4D
	OpTextDisplay = 0x4E
	OpMicAudio    = 0xF1
	OpGesture     = 0xF5
)

// Mic-activation response codes (second byte after OpMicControl).
const (
	micAckCode  = 0xC9
	micNackCode = 0xCA
)

// ScreenStatus selects the display mode of a TextDisplay frame.
type ScreenStatus uint8

const (
	ScreenAutoDisplay  ScreenStatus = 0x31 // prepare / auto-display
	ScreenAutoComplete ScreenStatus = 0x41 // auto-display finished
	ScreenManual       ScreenStatus = 0x51 // manual paging mode
	ScreenPlainText    ScreenStatus = 0x71 // plain-text mode
)

// GestureCode identifies a touch gesture reported by the glasses.
type GestureCode uint8

const (
	GestureExit       GestureCode = 0
	GesturePageNav    GestureCode = 1
	GestureVoiceStart GestureCode = 23
	GestureVoiceStop  GestureCode = 24
)

// IsInit reports whether the code is one of the initialization gestures
// the firmware emits on connect. They carry no user intent and are dropped.
func (g GestureCode) IsInit() bool {
	return g == 9 || g == 10 || g == 17
}

// TextPayloadCapacity is the maximum UTF-8 payload of a single TextDisplay
// packet: the 191-byte link MTU minus the 9-byte packet header.
const TextPayloadCapacity = 182

// Ensure all frame types implement Frame.
var (
	_ Frame = MicControl{}
	_ Frame = Heartbeat{}
	_ Frame = Handshake{}
	_ Frame = TextDisplay{}
	_ Frame = Gesture{}
	_ Frame = AudioChunk{}
	_ Frame = MicAck{}
	_ Frame = Unknown{}
)

// Frame is a discriminated union of link messages.
// Check the concrete type via type switch.
type Frame interface {
	frameType() string
}

// MicControl turns the glasses microphone on or off.
// Side-specific: by device convention it is written to the right link only.
type MicControl struct {
	On bool
}

func (MicControl) frameType() string { return "mic_control" }

// Encode returns the 2-byte wire form [0x0E, 1|0].
func (f MicControl) Encode() []byte {
	b := byte(0)
	if f.On {
		b = 1
	}
	return []byte{OpMicControl, b}
}

// Heartbeat is the periodic keepalive frame. Seq wraps mod 256.
type Heartbeat struct {
	Seq uint8
}

func (Heartbeat) frameType() string { return "heartbeat" }

// Encode returns the 6-byte wire form [0x25, lenLo, lenHi, seq, 0x04, seq].
// The little-endian length field counts the whole frame.
func (f Heartbeat) Encode() []byte {
	return []byte{OpHeartbeat, 0x06, 0x00, f.Seq, 0x04, f.Seq}
}

// Handshake is the initial frame written to a link after characteristic
// subscription. A channel is Ready only once this write succeeds.
type Handshake struct{}

func (Handshake) frameType() string { return "handshake" }

// Encode returns the wire form [0x4D, 0x01].
func (f Handshake) Encode() []byte {
	return []byte{OpHandshake, 0x01}
}

// TextDisplay carries one packet of display text. Long text is split into
// multiple packets by SplitText; Index runs from 0, Total is constant
// across the set.
//
// TextDisplay frames carry no trailing checksum. The firmware applies
// CRC-16 to binary/image transfers only; text and heartbeat frames are
// exempt, and the exemption must be preserved bit-for-bit.
type TextDisplay struct {
	Seq     uint8
	Total   uint8
	Index   uint8
	Screen  ScreenStatus
	Pos     uint16 // byte offset of this chunk within the full text
	CurPage uint8
	MaxPage uint8
	Payload []byte
}

func (TextDisplay) frameType() string { return "text_display" }

// Encode returns the wire form
// [0x4E, seq, total, index, screen, posHi, posLo, curPage, maxPage, payload...].
func (f TextDisplay) Encode() []byte {
	out := make([]byte, 0, 9+len(f.Payload))
	out = append(out,
		OpTextDisplay,
		f.Seq,
		f.Total,
		f.Index,
		byte(f.Screen),
		byte(f.Pos>>8),
		byte(f.Pos),
		f.CurPage,
		f.MaxPage,
	)
	return append(out, f.Payload...)
}

// SplitText splits text into ceil(len/TextPayloadCapacity) TextDisplay
// packets sharing seq, screen status, and page numbers. Empty text yields
// a single empty packet so a blank frame can clear the display.
func SplitText(text string, seq uint8, screen ScreenStatus, curPage, maxPage uint8) []TextDisplay {
	data := []byte(text)

	total := (len(data) + TextPayloadCapacity - 1) / TextPayloadCapacity
	if total == 0 {
		total = 1
	}

	packets := make([]TextDisplay, 0, total)
	for i := 0; i < total; i++ {
		start := i * TextPayloadCapacity
		end := min(start+TextPayloadCapacity, len(data))
		packets = append(packets, TextDisplay{
			Seq:     seq,
			Total:   uint8(total),
			Index:   uint8(i),
			Screen:  screen,
			Pos:     uint16(start),
			CurPage: curPage,
			MaxPage: maxPage,
			Payload: data[start:end],
		})
	}
	return packets
}

// Gesture is a touch gesture reported by the glasses.
type Gesture struct {
	Code GestureCode
}

func (Gesture) frameType() string { return "gesture" }

// AudioChunk is one compressed microphone audio chunk. The 2-byte
// sequence/length header has been stripped; Data is the codec payload.
type AudioChunk struct {
	Data []byte
}

func (AudioChunk) frameType() string { return "audio_chunk" }

// MicAck reports whether the glasses accepted a MicControl command.
type MicAck struct {
	OK bool
}

func (MicAck) frameType() string { return "mic_ack" }

// Unknown holds frames with an unrecognized opcode. The caller logs and
// drops them.
type Unknown struct {
	Raw []byte
}

func (Unknown) frameType() string { return "unknown" }

func (u Unknown) String() string { return fmt.Sprintf("unknown frame % x", u.Raw) }
