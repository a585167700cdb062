package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.aimuz.me/glint/analysis"
	"go.aimuz.me/glint/glasses"
	"go.aimuz.me/glint/internal/types"
	"go.aimuz.me/glint/protocol"
)

// suggestionLinesPerPage is how many suggestion lines fit one glasses
// screen; further lines are reached with the page-nav gesture.
const suggestionLinesPerPage = 3

func (s *Service) setupGlasses() {
	s.transport = s.setupTransport()
	s.registry = glasses.NewRegistry()
	s.buffer = analysis.NewTranscriptBuffer()

	s.session = glasses.NewSession(glasses.SessionConfig{
		Transport: s.transport,
		Retry: glasses.RetryPolicy{
			MaxAttempts: s.cfg.Glasses.ReconnectAttempts,
			Delay:       time.Duration(s.cfg.Glasses.ReconnectDelayMS) * time.Millisecond,
		},
		OnState: s.handleSessionState,
		OnFrame: s.handleFrame,
	})
	if err := s.session.Start(s.ctx); err != nil {
		slog.Error("start glasses session", "error", err)
	}

	s.keepalive = glasses.NewKeepalive(s.session, glasses.DefaultKeepaliveInterval)
	s.relay = s.setupRelay()
	s.scheduler = s.setupScheduler()
}

func (s *Service) setupTransport() glasses.Transport {
	if s.cfg.Glasses.Emulate {
		slog.Info("using emulated glasses transport")
		return glasses.NewEmulator("DEV")
	}

	t, err := glasses.NewPlatformTransport()
	if err != nil {
		slog.Error("init BLE transport, falling back to emulator", "error", err)
		return glasses.NewEmulator("DEV")
	}
	return t
}

// handleSessionState runs on the session dispatcher; it keeps the
// keepalive and analysis cadence in lockstep with the connection.
func (s *Service) handleSessionState(st glasses.State) {
	switch st {
	case glasses.StateConnected:
		s.keepalive.Start()
		s.scheduler.Start(s.ctx)
	case glasses.StateConnecting, glasses.StatePartiallyReady:
		// Transitional; nothing to drive yet.
	default:
		s.keepalive.Stop()
		s.scheduler.Stop()
		if s.relay.Active() {
			go func() {
				if _, err := s.relay.Stop(); err != nil {
					slog.Error("stop mic capture on disconnect", "error", err)
				}
			}()
		}
	}
	s.emitStatus()
}

// handleFrame routes inbound frames: the relay consumes voice gestures,
// audio, and mic acks; the service handles display gestures.
func (s *Service) handleFrame(side glasses.Side, f protocol.Frame) {
	if s.relay.HandleFrame(f) {
		s.emitStatus()
		return
	}

	g, ok := f.(protocol.Gesture)
	if !ok {
		return
	}
	switch {
	case g.Code.IsInit():
		slog.Debug("init gesture ignored", "side", side.String(), "code", g.Code)
	case g.Code == protocol.GestureExit:
		s.exitDisplay()
	case g.Code == protocol.GesturePageNav:
		s.advancePage()
	default:
		slog.Debug("unhandled gesture", "side", side.String(), "code", g.Code)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Scan / Connect
// ─────────────────────────────────────────────────────────────────────────────

// StartScan begins BLE discovery. Completed pairs are announced through
// EventPairDiscovered. A scan already in progress is restarted.
func (s *Service) StartScan() error {
	if s.transport == nil {
		return fmt.Errorf("transport not initialized")
	}

	s.scanMu.Lock()
	if s.scanCancel != nil {
		s.scanCancel()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.scanCancel = cancel
	s.scanMu.Unlock()

	go func() {
		err := s.transport.Scan(ctx, func(adv glasses.Advertisement) {
			pair, ok := s.registry.Observe(adv)
			if !ok {
				return
			}
			slog.Info("glasses pair discovered", "key", pair.Key)
			s.emit(EventPairDiscovered, types.PairInfo{
				Key:   pair.Key,
				Left:  pair.Left.Name,
				Right: pair.Right.Name,
			})
		})
		if err != nil && ctx.Err() == nil {
			slog.Error("scan glasses", "error", err)
		}
	}()
	return nil
}

// StopScan cancels a running scan.
func (s *Service) StopScan() {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	if s.scanCancel != nil {
		s.scanCancel()
		s.scanCancel = nil
	}
}

// Connect connects to a discovered pair by its grouping key.
func (s *Service) Connect(pairKey string) error {
	pair, ok := s.registry.Pair(pairKey)
	if !ok {
		return fmt.Errorf("pair not discovered: %s", pairKey)
	}
	s.StopScan()
	s.session.Connect(pair)
	return nil
}

// Disconnect tears down the glasses connection without reconnecting.
func (s *Service) Disconnect() {
	s.session.Disconnect()
}

// GetSessionStatus returns the current connection status.
func (s *Service) GetSessionStatus() types.SessionStatus {
	return types.SessionStatus{
		State:     s.session.State().String(),
		PairKey:   s.session.PairKey(),
		Listening: s.relay.Active(),
	}
}

// GetPairs returns all completely discovered pairs.
func (s *Service) GetPairs() []types.PairInfo {
	var pairs []types.PairInfo
	for _, key := range s.registry.Pairs() {
		pair, ok := s.registry.Pair(key)
		if !ok {
			continue
		}
		pairs = append(pairs, types.PairInfo{
			Key:   pair.Key,
			Left:  pair.Left.Name,
			Right: pair.Right.Name,
		})
	}
	return pairs
}

// GetTranscript returns the current transcript snapshot.
func (s *Service) GetTranscript() types.TranscriptUpdate {
	return types.TranscriptUpdate{
		Text:      s.buffer.Committed(),
		Pending:   s.buffer.Pending(),
		Timestamp: time.Now().UnixMilli(),
	}
}

// GetSuggestions returns the most recent suggestion set.
func (s *Service) GetSuggestions() []types.Suggestion {
	s.pageMu.Lock()
	defer s.pageMu.Unlock()
	return s.suggestions
}

func (s *Service) emitStatus() {
	s.emit(EventSessionStatus, s.GetSessionStatus())
}

func (s *Service) emitTranscript() {
	s.emit(EventTranscript, s.GetTranscript())
}

// ─────────────────────────────────────────────────────────────────────────────
// Suggestion display
// ─────────────────────────────────────────────────────────────────────────────

// publishSuggestions replaces the displayed suggestion set and renders its
// first page.
func (s *Service) publishSuggestions(suggestions []types.Suggestion) {
	lines := make([]string, len(suggestions))
	for i, sug := range suggestions {
		lines[i] = sug.Text
	}

	s.pageMu.Lock()
	s.suggestions = suggestions
	s.lines = lines
	s.curPage = 1
	s.pageMu.Unlock()

	s.emit(EventSuggestions, suggestions)
	s.renderPage(protocol.ScreenAutoDisplay)
}

// advancePage moves to the next suggestion page, wrapping around.
func (s *Service) advancePage() {
	s.pageMu.Lock()
	pages := len(paginate(s.lines, suggestionLinesPerPage))
	if pages == 0 {
		s.pageMu.Unlock()
		return
	}
	s.curPage = s.curPage%pages + 1
	s.pageMu.Unlock()

	s.renderPage(protocol.ScreenManual)
}

// exitDisplay clears the glasses and resets the conversation state.
func (s *Service) exitDisplay() {
	s.pageMu.Lock()
	s.suggestions = nil
	s.lines = nil
	s.curPage = 0
	s.pageMu.Unlock()

	s.buffer.Reset()
	if err := s.session.ClearDisplay(); err != nil {
		slog.Warn("clear display", "error", err)
	}
	s.emitTranscript()
	s.emit(EventSuggestions, []types.Suggestion{})
}

// renderPage sends the current suggestion page to the glasses.
func (s *Service) renderPage(screen protocol.ScreenStatus) {
	s.pageMu.Lock()
	pages := paginate(s.lines, suggestionLinesPerPage)
	cur := s.curPage
	s.pageMu.Unlock()

	if len(pages) == 0 || cur < 1 || cur > len(pages) {
		return
	}

	text := analysis.FormatDisplay(pages[cur-1], s.cfg.Glasses.DisplayWidth)
	if err := s.session.SendText(text, screen, uint8(cur), uint8(len(pages))); err != nil {
		slog.Warn("render suggestions", "page", cur, "error", err)
	}
}

// paginate splits lines into fixed-size pages; the last page may be short.
func paginate(lines []string, perPage int) [][]string {
	if perPage <= 0 || len(lines) == 0 {
		return nil
	}
	var pages [][]string
	for start := 0; start < len(lines); start += perPage {
		end := min(start+perPage, len(lines))
		pages = append(pages, lines[start:end])
	}
	return pages
}
