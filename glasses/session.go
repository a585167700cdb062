package glasses

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.aimuz.me/glint/protocol"
)

// State is the connection state of the logical glasses session.
type State int

const (
	StateNotConnected State = iota
	StateConnecting
	StatePartiallyReady
	StateConnected
	StateDisconnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNotConnected:
		return "not_connected"
	case StateConnecting:
		return "connecting"
	case StatePartiallyReady:
		return "partially_ready"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RetryPolicy bounds automatic reconnection after a link drop.
// MaxAttempts 0 means retry without bound.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// SessionConfig configures a Session. Transport is required.
type SessionConfig struct {
	Transport Transport

	// Retry governs automatic reconnects after an unexpected link drop.
	Retry RetryPolicy

	// InterSendDelay is the pause between the left and right write of a
	// broadcast. Writing both sides back-to-back overruns the firmware's
	// receive buffer. Defaults to 8ms.
	InterSendDelay time.Duration

	// OnState is invoked on every state transition.
	OnState func(State)

	// OnFrame receives every decoded inbound frame with its source side.
	OnFrame func(side Side, f protocol.Frame)
}

const defaultInterSendDelay = 8 * time.Millisecond

// Session coordinates the two links of a pair as one logical connection.
//
// All state transitions run on a single dispatcher goroutine; connect
// workers and link callbacks only post events to it. The channel pair is
// Connected only when both sides have completed discovery, subscription,
// and the initiation handshake.
type Session struct {
	cfg SessionConfig

	events chan sessionEvent

	mu      sync.Mutex
	state   State
	pair    Pair
	links   [2]Link
	ready   [2]bool
	textSeq uint8

	writeMu sync.Mutex // serializes broadcasts so left always precedes right

	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

type sessionEvent interface{ sessionEvent() }

type evConnect struct{ pair Pair }
type evDisconnect struct{}
type evReady struct {
	gen  int
	side Side
	link Link
}
type evDown struct {
	gen  int
	side Side
	err  error
}
type evRetry struct{ pair Pair }

func (evConnect) sessionEvent()    {}
func (evDisconnect) sessionEvent() {}
func (evReady) sessionEvent()      {}
func (evDown) sessionEvent()       {}
func (evRetry) sessionEvent()      {}

// NewSession creates a session over the given transport.
func NewSession(cfg SessionConfig) *Session {
	if cfg.InterSendDelay <= 0 {
		cfg.InterSendDelay = defaultInterSendDelay
	}
	return &Session{
		cfg:    cfg,
		events: make(chan sessionEvent, 16),
		state:  StateNotConnected,
		done:   make(chan struct{}),
	}
}

// Start launches the dispatcher. Must be called before Connect.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("glasses: session already started")
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
	return nil
}

// Close tears the session down: both links are closed, pending timers and
// reconnect attempts are cancelled, and the dispatcher exits.
func (s *Session) Close() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-s.done
}

// State returns the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PairKey returns the grouping key of the active pair, or "".
func (s *Session) PairKey() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair.Key
}

// Connect begins connecting both sides of the pair. Progress is reported
// through OnState; a connect request while already connecting or connected
// is ignored.
func (s *Session) Connect(pair Pair) {
	s.post(evConnect{pair: pair})
}

// Disconnect closes both links and suppresses automatic reconnection.
func (s *Session) Disconnect() {
	s.post(evDisconnect{})
}

func (s *Session) post(ev sessionEvent) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// run is the dispatcher loop: the only goroutine that mutates session
// state.
func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer s.teardown()

	var (
		wantConnected bool
		attempts      int
		gen           int // connect generation; stale worker events are discarded
	)

	for {
		var ev sessionEvent
		select {
		case <-ctx.Done():
			return
		case ev = <-s.events:
		}

		switch ev := ev.(type) {
		case evConnect:
			if st := s.State(); st == StateConnecting || st == StateConnected || st == StatePartiallyReady {
				slog.Debug("connect ignored", "state", st.String())
				continue
			}
			wantConnected = true
			attempts = 0
			gen++
			s.beginConnect(ctx, gen, ev.pair)

		case evRetry:
			if !wantConnected {
				continue
			}
			gen++
			s.beginConnect(ctx, gen, ev.pair)

		case evReady:
			if ev.gen != gen || !wantConnected {
				ev.link.Close()
				continue
			}
			s.mu.Lock()
			s.links[ev.side] = ev.link
			s.ready[ev.side] = true
			bothReady := s.ready[Left] && s.ready[Right]
			s.mu.Unlock()

			if bothReady {
				attempts = 0
				s.setState(StateConnected)
			} else {
				s.setState(StatePartiallyReady)
			}

		case evDown:
			if ev.gen != gen {
				continue
			}
			// A down side kills the whole connect generation; the sibling
			// worker's late evReady must not resurrect it.
			gen++
			if s.State() == StateDisconnected || s.State() == StateNotConnected {
				continue
			}
			slog.Warn("glasses link down", "side", ev.side.String(), "error", ev.err)

			s.closeLinks()
			s.setState(StateDisconnected)

			if !wantConnected {
				continue
			}
			attempts++
			if s.cfg.Retry.MaxAttempts > 0 && attempts > s.cfg.Retry.MaxAttempts {
				slog.Error("glasses reconnect attempts exhausted", "attempts", attempts-1)
				wantConnected = false
				continue
			}

			pair := s.currentPair()
			delay := s.cfg.Retry.Delay
			go func() {
				if delay > 0 {
					select {
					case <-time.After(delay):
					case <-ctx.Done():
						return
					}
				}
				s.post(evRetry{pair: pair})
			}()

		case evDisconnect:
			wantConnected = false
			s.closeLinks()
			s.setState(StateDisconnected)
		}
	}
}

func (s *Session) beginConnect(ctx context.Context, gen int, pair Pair) {
	s.mu.Lock()
	s.pair = pair
	s.ready = [2]bool{}
	s.mu.Unlock()

	s.setState(StateConnecting)

	go s.connectSide(ctx, gen, Left, pair.Left)
	go s.connectSide(ctx, gen, Right, pair.Right)
}

// connectSide brings one link up: connect, discover, subscribe, handshake.
// Runs off the dispatcher; results are posted back as events.
func (s *Session) connectSide(ctx context.Context, gen int, side Side, adv Advertisement) {
	link, err := s.cfg.Transport.Connect(ctx, adv.ID)
	if err != nil {
		s.post(evDown{gen: gen, side: side, err: fmt.Errorf("connect: %w", err)})
		return
	}

	if err := link.Discover(ctx); err != nil {
		link.Close()
		s.post(evDown{gen: gen, side: side, err: fmt.Errorf("discover: %w", err)})
		return
	}

	err = link.Subscribe(
		func(data []byte) { s.handleNotify(side, data) },
		func(err error) { s.post(evDown{gen: gen, side: side, err: err}) },
	)
	if err != nil {
		link.Close()
		s.post(evDown{gen: gen, side: side, err: fmt.Errorf("subscribe: %w", err)})
		return
	}

	// The side is Ready only once the initiation handshake is written.
	if err := link.Write(protocol.Handshake{}.Encode()); err != nil {
		link.Close()
		s.post(evDown{gen: gen, side: side, err: fmt.Errorf("handshake: %w", err)})
		return
	}

	slog.Info("glasses channel ready", "side", side.String(), "peripheral", adv.ID)
	s.post(evReady{gen: gen, side: side, link: link})
}

func (s *Session) handleNotify(side Side, data []byte) {
	frame, err := protocol.DecodeInbound(data)
	if err != nil {
		// Frame errors never tear the link down.
		slog.Warn("dropping malformed frame", "side", side.String(), "error", err)
		return
	}
	if u, ok := frame.(protocol.Unknown); ok {
		slog.Debug("dropping unknown frame", "side", side.String(), "frame", u.String())
		return
	}
	if s.cfg.OnFrame != nil {
		s.cfg.OnFrame(side, frame)
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	if s.state == st {
		s.mu.Unlock()
		return
	}
	s.state = st
	s.mu.Unlock()

	slog.Info("glasses session state", "state", st.String())
	if s.cfg.OnState != nil {
		s.cfg.OnState(st)
	}
}

func (s *Session) currentPair() Pair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair
}

func (s *Session) closeLinks() {
	s.mu.Lock()
	links := s.links
	s.links = [2]Link{}
	s.ready = [2]bool{}
	s.mu.Unlock()

	for _, l := range links {
		if l != nil {
			l.Close()
		}
	}
}

func (s *Session) teardown() {
	s.closeLinks()
	s.setState(StateNotConnected)
}

// Broadcast writes a frame to both links, left first, with InterSendDelay
// between the writes. It reports per-side success; a failed side is logged
// and does not prevent the other write.
func (s *Session) Broadcast(wire []byte) (left, right bool) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	left = s.writeTo(Left, wire)
	time.Sleep(s.cfg.InterSendDelay)
	right = s.writeTo(Right, wire)
	return left, right
}

// SendTo writes a frame to one side only.
func (s *Session) SendTo(side Side, wire []byte) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.writeTo(side, wire)
}

func (s *Session) writeTo(side Side, wire []byte) bool {
	s.mu.Lock()
	link := s.links[side]
	ready := s.ready[side]
	s.mu.Unlock()

	if link == nil || !ready {
		return false
	}
	if err := link.Write(wire); err != nil {
		slog.Warn("glasses write failed", "side", side.String(), "error", err)
		return false
	}
	return true
}

// SendText renders text on both displays. Long text is split into MTU-sized
// packets sent in order; each packet goes left-then-right. The display
// sequence number advances once per call.
func (s *Session) SendText(text string, screen protocol.ScreenStatus, curPage, maxPage uint8) error {
	if s.State() != StateConnected {
		return ErrNotConnected
	}

	s.mu.Lock()
	seq := s.textSeq
	s.textSeq++
	s.mu.Unlock()

	for _, pkt := range protocol.SplitText(text, seq, screen, curPage, maxPage) {
		left, right := s.Broadcast(pkt.Encode())
		if !left && !right {
			return fmt.Errorf("glasses: text packet %d/%d failed on both sides", pkt.Index+1, pkt.Total)
		}
	}
	return nil
}

// ClearDisplay blanks both displays.
func (s *Session) ClearDisplay() error {
	return s.SendText("", protocol.ScreenPlainText, 1, 1)
}
