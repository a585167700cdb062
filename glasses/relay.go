package glasses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.aimuz.me/glint/protocol"
	"go.aimuz.me/glint/stt"
)

// DefaultMicWindow is the maximum length of one microphone capture. The
// firmware keeps the mic open as long as it is told to; the relay enforces
// the cap so a missed stop gesture cannot stream audio forever.
const DefaultMicWindow = 30 * time.Second

// Transcriber starts speech recognition sessions. stt providers satisfy it.
type Transcriber interface {
	Start(ctx context.Context) (TranscriptionSession, error)
}

// TranscriptionSession consumes one capture's audio and produces its final
// transcript.
type TranscriptionSession interface {
	Feed(chunk []byte) error
	Finalize(ctx context.Context) (string, error)
	Close() error
}

// SideSender is the single-side write surface the relay needs. *Session
// satisfies it.
type SideSender interface {
	SendTo(side Side, wire []byte) bool
}

// RelayConfig configures a Relay.
type RelayConfig struct {
	Sender      SideSender
	Transcriber Transcriber

	// MaxDuration caps one capture. Defaults to DefaultMicWindow.
	MaxDuration time.Duration

	// OnTranscript receives the final transcript of each capture, whether
	// it ended by gesture, by external request, or by timeout.
	OnTranscript func(text string)

	// OnError receives capture failures, including recognition becoming
	// unavailable mid-capture.
	OnError func(err error)
}

// Relay drives the glasses microphone: it switches the mic on and off via
// the right link, forwards inbound audio chunks to a transcription session,
// and enforces the capture window.
type Relay struct {
	cfg RelayConfig

	mu       sync.Mutex
	active   bool
	starting bool // a Start is between mic-on and activation
	sess     TranscriptionSession
	timer    *time.Timer
	retried  bool // one mic-on retry after a nack
}

// NewRelay creates an idle relay.
func NewRelay(cfg RelayConfig) *Relay {
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMicWindow
	}
	return &Relay{cfg: cfg}
}

// Active reports whether a capture is in progress.
func (r *Relay) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Start switches the microphone on and opens a transcription session.
// Starting while a capture is active is a no-op.
//
// Mic control goes to the right link only; the right side owns the
// microphone by device convention.
func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.active || r.starting {
		r.mu.Unlock()
		return nil
	}
	r.starting = true
	r.mu.Unlock()

	if !r.cfg.Sender.SendTo(Right, protocol.MicControl{On: true}.Encode()) {
		r.clearStarting()
		return fmt.Errorf("mic on: %w", ErrNotConnected)
	}

	sess, err := r.cfg.Transcriber.Start(ctx)
	if err != nil {
		r.cfg.Sender.SendTo(Right, protocol.MicControl{On: false}.Encode())
		r.clearStarting()
		return fmt.Errorf("start transcription: %w", err)
	}

	r.mu.Lock()
	r.starting = false
	r.active = true
	r.retried = false
	r.sess = sess
	r.timer = time.AfterFunc(r.cfg.MaxDuration, func() {
		slog.Info("mic capture window elapsed, stopping")
		r.Stop()
	})
	r.mu.Unlock()

	slog.Info("mic capture started")
	return nil
}

// Stop switches the microphone off, finalizes the transcription session,
// and returns the final transcript. The transcript is also delivered to
// OnTranscript. Stopping an idle relay is a no-op.
func (r *Relay) Stop() (string, error) {
	sess, ok := r.deactivate()
	if !ok {
		return "", nil
	}

	r.cfg.Sender.SendTo(Right, protocol.MicControl{On: false}.Encode())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	text, err := sess.Finalize(ctx)
	sess.Close()
	if err != nil {
		err = fmt.Errorf("finalize transcription: %w", err)
		r.fail(err)
		return "", err
	}

	slog.Info("mic capture stopped", "transcript_len", len(text))
	if r.cfg.OnTranscript != nil {
		r.cfg.OnTranscript(text)
	}
	return text, nil
}

func (r *Relay) clearStarting() {
	r.mu.Lock()
	r.starting = false
	r.mu.Unlock()
}

// abort stops the capture without finalizing, reporting err.
func (r *Relay) abort(err error) {
	sess, ok := r.deactivate()
	if !ok {
		return
	}
	r.cfg.Sender.SendTo(Right, protocol.MicControl{On: false}.Encode())
	sess.Close()
	r.fail(err)
}

// deactivate atomically claims the active capture. Exactly one of the
// competing stop paths (gesture, external, timeout, failure) wins.
func (r *Relay) deactivate() (TranscriptionSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return nil, false
	}
	r.active = false
	r.timer.Stop()
	sess := r.sess
	r.sess = nil
	return sess, true
}

func (r *Relay) fail(err error) {
	slog.Error("mic capture failed", "error", err)
	if r.cfg.OnError != nil {
		r.cfg.OnError(err)
	}
}

// HandleFrame processes relay-relevant inbound frames: voice gestures,
// audio chunks, and mic acks. It reports whether the frame was consumed.
func (r *Relay) HandleFrame(f protocol.Frame) bool {
	switch f := f.(type) {
	case protocol.Gesture:
		switch f.Code {
		case protocol.GestureVoiceStart:
			if err := r.Start(context.Background()); err != nil {
				r.fail(err)
			}
			return true
		case protocol.GestureVoiceStop:
			r.Stop()
			return true
		}
		return false

	case protocol.AudioChunk:
		r.feed(f.Data)
		return true

	case protocol.MicAck:
		r.handleAck(f.OK)
		return true
	}
	return false
}

func (r *Relay) feed(chunk []byte) {
	r.mu.Lock()
	sess := r.sess
	r.mu.Unlock()
	if sess == nil {
		// Stray chunk after stop; the firmware flushes its buffer.
		return
	}

	err := sess.Feed(chunk)
	switch {
	case err == nil:
	case errors.Is(err, stt.ErrUnavailable):
		r.abort(fmt.Errorf("feed audio: %w", err))
	default:
		slog.Warn("dropping audio chunk", "error", err)
	}
}

// handleAck processes the firmware's response to a MicControl command. A
// single nack gets one retry; a second nack aborts the capture.
func (r *Relay) handleAck(ok bool) {
	if ok {
		return
	}

	r.mu.Lock()
	active := r.active
	retried := r.retried
	r.retried = true
	r.mu.Unlock()

	if !active {
		return
	}
	if retried {
		r.abort(errors.New("glasses rejected mic activation twice"))
		return
	}
	slog.Warn("mic activation rejected, retrying once")
	r.cfg.Sender.SendTo(Right, protocol.MicControl{On: true}.Encode())
}
