package glasses

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.aimuz.me/glint/protocol"
)

func waitState(t *testing.T, s *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", s.State(), want)
}

func startSession(t *testing.T, cfg SessionConfig) *Session {
	t.Helper()
	if cfg.InterSendDelay == 0 {
		cfg.InterSendDelay = time.Millisecond
	}
	s := NewSession(cfg)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestSessionConnect(t *testing.T) {
	emu := NewEmulator("7")

	var mu sync.Mutex
	var states []State
	s := startSession(t, SessionConfig{
		Transport: emu,
		OnState: func(st State) {
			mu.Lock()
			states = append(states, st)
			mu.Unlock()
		},
	})

	s.Connect(emu.Pair())
	waitState(t, s, StateConnected)

	// Each side must have received the initiation handshake first.
	for _, side := range []Side{Left, Right} {
		written := emu.Written(side)
		if len(written) == 0 {
			t.Fatalf("%s: nothing written", side)
		}
		if !bytes.Equal(written[0], (protocol.Handshake{}).Encode()) {
			t.Errorf("%s: first write = % x, want handshake", side, written[0])
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(states) == 0 || states[0] != StateConnecting {
		t.Errorf("first observed state = %v, want connecting", states)
	}
	sawPartial := false
	for _, st := range states {
		if st == StatePartiallyReady {
			sawPartial = true
		}
	}
	if !sawPartial {
		t.Error("never observed partially_ready between connecting and connected")
	}
}

func TestSessionBroadcastLeftBeforeRight(t *testing.T) {
	emu := NewEmulator("7")
	s := startSession(t, SessionConfig{Transport: emu})

	s.Connect(emu.Pair())
	waitState(t, s, StateConnected)
	emu.ResetLog()

	if err := s.SendText("hello glasses", protocol.ScreenAutoDisplay, 1, 1); err != nil {
		t.Fatal(err)
	}

	log := emu.Log()
	if len(log) != 2 {
		t.Fatalf("got %d writes, want 2 (one per side)", len(log))
	}
	if log[0].Side != Left || log[1].Side != Right {
		t.Errorf("write order = %v then %v, want left then right", log[0].Side, log[1].Side)
	}
	if !bytes.Equal(log[0].Data, log[1].Data) {
		t.Error("sides received different frames")
	}
}

func TestSessionSendTextMultiPacket(t *testing.T) {
	emu := NewEmulator("7")
	s := startSession(t, SessionConfig{Transport: emu})

	s.Connect(emu.Pair())
	waitState(t, s, StateConnected)
	emu.ResetLog()

	long := make([]byte, protocol.TextPayloadCapacity+1)
	for i := range long {
		long[i] = 'x'
	}
	if err := s.SendText(string(long), protocol.ScreenPlainText, 1, 1); err != nil {
		t.Fatal(err)
	}

	log := emu.Log()
	if len(log) != 4 {
		t.Fatalf("got %d writes, want 4 (2 packets x 2 sides)", len(log))
	}
	// Packets stay in order and each goes left first.
	wantSides := []Side{Left, Right, Left, Right}
	for i, rec := range log {
		if rec.Side != wantSides[i] {
			t.Errorf("write %d side = %v, want %v", i, rec.Side, wantSides[i])
		}
	}
}

func TestSessionSendTextNotConnected(t *testing.T) {
	emu := NewEmulator("7")
	s := startSession(t, SessionConfig{Transport: emu})

	if err := s.SendText("hi", protocol.ScreenAutoDisplay, 1, 1); !errors.Is(err, ErrNotConnected) {
		t.Errorf("SendText before connect = %v, want ErrNotConnected", err)
	}
}

func TestSessionReconnectsAfterDrop(t *testing.T) {
	emu := NewEmulator("7")
	s := startSession(t, SessionConfig{
		Transport: emu,
		Retry:     RetryPolicy{Delay: 5 * time.Millisecond},
	})

	s.Connect(emu.Pair())
	waitState(t, s, StateConnected)

	emu.Drop(Left, errors.New("interference"))
	waitState(t, s, StateDisconnected) // the drop lands first
	waitState(t, s, StateConnected)    // then it reconnects on its own

	// The left side handshook twice: once per connection.
	handshakes := 0
	for _, w := range emu.Written(Left) {
		if bytes.Equal(w, (protocol.Handshake{}).Encode()) {
			handshakes++
		}
	}
	if handshakes != 2 {
		t.Errorf("left handshakes = %d, want 2", handshakes)
	}
}

// stubLink is a no-op link that records Close.
type stubLink struct {
	mu     sync.Mutex
	closed bool
}

func (l *stubLink) Discover(ctx context.Context) error { return nil }
func (l *stubLink) Subscribe(notify func([]byte), onDown func(error)) error {
	return nil
}
func (l *stubLink) Write(data []byte) error { return nil }

func (l *stubLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *stubLink) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// splitTransport fails left connects immediately and completes right
// connects after a delay, so the right worker's result always arrives
// after the left side has already torn the attempt down.
type splitTransport struct {
	leftErr    error
	rightDelay time.Duration

	mu         sync.Mutex
	rightLinks []*stubLink
}

func (tr *splitTransport) Scan(ctx context.Context, found func(Advertisement)) error {
	<-ctx.Done()
	return ctx.Err()
}

func (tr *splitTransport) Connect(ctx context.Context, id string) (Link, error) {
	if id == "left" {
		return nil, tr.leftErr
	}
	time.Sleep(tr.rightDelay)
	l := &stubLink{}
	tr.mu.Lock()
	tr.rightLinks = append(tr.rightLinks, l)
	tr.mu.Unlock()
	return l, nil
}

func TestSessionLinkFailureDiscardsLateSiblingReady(t *testing.T) {
	tr := &splitTransport{
		leftErr:    errors.New("out of range"),
		rightDelay: 30 * time.Millisecond,
	}

	var mu sync.Mutex
	var states []State
	s := startSession(t, SessionConfig{
		Transport: tr,
		Retry:     RetryPolicy{MaxAttempts: 1, Delay: 100 * time.Millisecond},
		OnState: func(st State) {
			mu.Lock()
			states = append(states, st)
			mu.Unlock()
		},
	})

	s.Connect(Pair{
		Key:   "7",
		Left:  Advertisement{Name: "G1_7_L", ID: "left"},
		Right: Advertisement{Name: "G1_7_R", ID: "right"},
	})
	waitState(t, s, StateDisconnected)

	// Cover the late right-ready of the first attempt, the retry, and the
	// late right-ready of the second attempt.
	time.Sleep(250 * time.Millisecond)

	if got := s.State(); got != StateDisconnected {
		t.Errorf("state = %v, want disconnected", got)
	}

	// The left side fails before the right side ever completes, so a
	// partially-ready observation can only come from a dead attempt's
	// late ready event.
	mu.Lock()
	for _, st := range states {
		if st == StatePartiallyReady {
			t.Errorf("dead attempt resurrected the session: states = %v", states)
			break
		}
	}
	mu.Unlock()

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.rightLinks) == 0 {
		t.Fatal("right side never connected; test setup broken")
	}
	for i, l := range tr.rightLinks {
		if !l.isClosed() {
			t.Errorf("right link %d from a dead attempt left open", i)
		}
	}
}

func TestSessionRetryExhaustion(t *testing.T) {
	emu := NewEmulator("7")
	emu.SetConnectErr(Left, errors.New("out of range"))

	s := startSession(t, SessionConfig{
		Transport: emu,
		Retry:     RetryPolicy{MaxAttempts: 2, Delay: time.Millisecond},
	})

	s.Connect(emu.Pair())
	waitState(t, s, StateDisconnected)

	time.Sleep(50 * time.Millisecond)
	if got := s.State(); got != StateDisconnected {
		t.Errorf("state after exhaustion = %v, want disconnected", got)
	}
}

func TestSessionExplicitDisconnectSuppressesRetry(t *testing.T) {
	emu := NewEmulator("7")
	s := startSession(t, SessionConfig{
		Transport: emu,
		Retry:     RetryPolicy{Delay: time.Millisecond},
	})

	s.Connect(emu.Pair())
	waitState(t, s, StateConnected)

	s.Disconnect()
	waitState(t, s, StateDisconnected)

	time.Sleep(50 * time.Millisecond)
	if got := s.State(); got != StateDisconnected {
		t.Errorf("state after explicit disconnect = %v, want it to stay disconnected", got)
	}
}

func TestSessionDispatchesInboundFrames(t *testing.T) {
	emu := NewEmulator("7")

	frames := make(chan protocol.Frame, 8)
	s := startSession(t, SessionConfig{
		Transport: emu,
		OnFrame: func(side Side, f protocol.Frame) {
			if side == Right {
				frames <- f
			}
		},
	})

	s.Connect(emu.Pair())
	waitState(t, s, StateConnected)

	emu.Gesture(Right, protocol.GestureVoiceStart)

	select {
	case f := <-frames:
		g, ok := f.(protocol.Gesture)
		if !ok || g.Code != protocol.GestureVoiceStart {
			t.Errorf("got %#v, want voice-start gesture", f)
		}
	case <-time.After(time.Second):
		t.Fatal("no frame dispatched")
	}
}

func TestSessionDropsMalformedFrames(t *testing.T) {
	emu := NewEmulator("7")

	frames := make(chan protocol.Frame, 8)
	s := startSession(t, SessionConfig{
		Transport: emu,
		OnFrame:   func(_ Side, f protocol.Frame) { frames <- f },
	})

	s.Connect(emu.Pair())
	waitState(t, s, StateConnected)

	emu.Notify(Right, []byte{protocol.OpGesture}) // truncated
	emu.Notify(Right, []byte{0x99, 0x01})         // unknown opcode

	select {
	case f := <-frames:
		t.Errorf("malformed/unknown frame dispatched: %#v", f)
	case <-time.After(50 * time.Millisecond):
	}

	// The link stays up: frame errors never tear down the connection.
	if got := s.State(); got != StateConnected {
		t.Errorf("state = %v, want connected", got)
	}
}
