package glasses

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.aimuz.me/glint/protocol"
)

// Emulator is an in-memory Transport that stands in for a physical pair of
// glasses. It backs the test suite and the -emulate run mode: tests (or a
// dev session) play the device side via Notify, Gesture, SendAudio and
// Drop, and inspect outbound traffic via Written.
type Emulator struct {
	pairKey string

	mu    sync.Mutex
	sides map[Side]*emuPeripheral
	log   []WriteRecord
}

// WriteRecord is one outbound frame in cross-side write order.
type WriteRecord struct {
	Side Side
	Data []byte
}

type emuPeripheral struct {
	owner *Emulator
	side  Side
	id    string
	adv   Advertisement

	mu         sync.Mutex
	link       *emuLink
	written    [][]byte
	connectErr error
	writeErr   error
}

// NewEmulator creates an emulated pair with the given grouping key.
func NewEmulator(pairKey string) *Emulator {
	e := &Emulator{
		pairKey: pairKey,
		sides:   make(map[Side]*emuPeripheral),
	}
	for side, tag := range map[Side]string{Left: "L", Right: "R"} {
		id := fmt.Sprintf("emu-%s-%s", pairKey, tag)
		e.sides[side] = &emuPeripheral{
			owner: e,
			side:  side,
			id:    id,
			adv: Advertisement{
				Name: fmt.Sprintf("G1_%s_%s_EMU", pairKey, tag),
				ID:   id,
				RSSI: -42,
			},
		}
	}
	return e
}

// Scan reports both sides' advertisements, then blocks until ctx is done.
func (e *Emulator) Scan(ctx context.Context, found func(Advertisement)) error {
	found(e.sides[Left].adv)
	found(e.sides[Right].adv)
	<-ctx.Done()
	return nil
}

// Connect attaches a link to the peripheral with the given identity.
func (e *Emulator) Connect(ctx context.Context, id string) (Link, error) {
	p := e.byID(id)
	if p == nil {
		return nil, fmt.Errorf("glasses: unknown peripheral %q", id)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connectErr != nil {
		return nil, p.connectErr
	}
	p.link = &emuLink{p: p}
	return p.link, nil
}

func (e *Emulator) byID(id string) *emuPeripheral {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.sides {
		if p.id == id {
			return p
		}
	}
	return nil
}

// PairKey returns the emulated grouping key.
func (e *Emulator) PairKey() string { return e.pairKey }

// Pair returns the emulated advertisements as a complete pair.
func (e *Emulator) Pair() Pair {
	return Pair{Key: e.pairKey, Left: e.sides[Left].adv, Right: e.sides[Right].adv}
}

// SetConnectErr scripts the next Connect result for one side.
func (e *Emulator) SetConnectErr(side Side, err error) {
	p := e.sides[side]
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connectErr = err
}

// SetWriteErr makes subsequent writes to one side fail.
func (e *Emulator) SetWriteErr(side Side, err error) {
	p := e.sides[side]
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// Notify delivers raw frame bytes from the device side.
func (e *Emulator) Notify(side Side, data []byte) {
	p := e.sides[side]
	p.mu.Lock()
	link := p.link
	p.mu.Unlock()
	if link == nil {
		return
	}
	link.notifyUp(data)
}

// Gesture emits a touch gesture from one side.
func (e *Emulator) Gesture(side Side, code protocol.GestureCode) {
	e.Notify(side, []byte{protocol.OpGesture, byte(code)})
}

// SendAudio emits one microphone audio chunk (the right side carries the
// mic on real hardware).
func (e *Emulator) SendAudio(side Side, payload []byte) {
	frame := append([]byte{protocol.OpMicAudio, 0x00, 0x00}, payload...)
	e.Notify(side, frame)
}

// Drop severs one side's link, firing its onDown callback.
func (e *Emulator) Drop(side Side, err error) {
	p := e.sides[side]
	p.mu.Lock()
	link := p.link
	p.link = nil
	p.mu.Unlock()
	if link == nil {
		return
	}
	if err == nil {
		err = errors.New("emulator: link dropped")
	}
	link.down(err)
}

// Written returns a copy of all frames written to one side, in order.
func (e *Emulator) Written(side Side) [][]byte {
	p := e.sides[side]
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.written))
	copy(out, p.written)
	return out
}

// ResetWritten clears one side's captured outbound frames.
func (e *Emulator) ResetWritten(side Side) {
	p := e.sides[side]
	p.mu.Lock()
	defer p.mu.Unlock()
	p.written = nil
}

// Log returns all outbound frames in cross-side write order.
func (e *Emulator) Log() []WriteRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]WriteRecord, len(e.log))
	copy(out, e.log)
	return out
}

// ResetLog clears the cross-side write log.
func (e *Emulator) ResetLog() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = nil
}

type emuLink struct {
	p *emuPeripheral

	mu     sync.Mutex
	notify func([]byte)
	onDown func(error)
	closed bool
}

func (l *emuLink) Discover(ctx context.Context) error { return nil }

func (l *emuLink) Subscribe(notify func([]byte), onDown func(error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notify = notify
	l.onDown = onDown
	return nil
}

func (l *emuLink) Write(data []byte) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return errors.New("emulator: link closed")
	}

	l.p.mu.Lock()
	defer l.p.mu.Unlock()
	if l.p.writeErr != nil {
		return l.p.writeErr
	}
	frame := make([]byte, len(data))
	copy(frame, data)
	l.p.written = append(l.p.written, frame)

	l.p.owner.mu.Lock()
	l.p.owner.log = append(l.p.owner.log, WriteRecord{Side: l.p.side, Data: frame})
	l.p.owner.mu.Unlock()
	return nil
}

func (l *emuLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *emuLink) notifyUp(data []byte) {
	l.mu.Lock()
	notify := l.notify
	closed := l.closed
	l.mu.Unlock()
	if notify != nil && !closed {
		notify(data)
	}
}

func (l *emuLink) down(err error) {
	l.mu.Lock()
	onDown := l.onDown
	l.closed = true
	l.mu.Unlock()
	if onDown != nil {
		onDown(err)
	}
}
