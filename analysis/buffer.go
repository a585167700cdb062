// Package analysis accumulates the live transcript and periodically runs
// the assistant over it, publishing suggestion lines for the glasses
// display and the UI.
package analysis

import (
	"strings"
	"sync"
	"time"
)

// TranscriptBuffer accumulates the conversation transcript: committed
// final segments plus one interim hypothesis that is replaced in place
// until it commits.
type TranscriptBuffer struct {
	mu         sync.Mutex
	segments   []string
	pending    string
	lastUpdate time.Time

	now func() time.Time // injected for tests
}

// NewTranscriptBuffer creates an empty buffer.
func NewTranscriptBuffer() *TranscriptBuffer {
	return &TranscriptBuffer{now: time.Now}
}

// Commit appends a final transcript segment and clears the interim text.
// Empty segments are dropped.
func (b *TranscriptBuffer) Commit(text string) {
	text = strings.TrimSpace(text)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = ""
	if text == "" {
		return
	}
	b.segments = append(b.segments, text)
	b.lastUpdate = b.now()
}

// SetPending replaces the interim hypothesis.
func (b *TranscriptBuffer) SetPending(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = strings.TrimSpace(text)
	b.lastUpdate = b.now()
}

// Snapshot returns the full transcript (committed segments plus interim
// tail) and the time of the last update.
func (b *TranscriptBuffer) Snapshot() (text string, lastUpdate time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	parts := b.segments
	if b.pending != "" {
		parts = append(parts[:len(parts):len(parts)], b.pending)
	}
	return strings.Join(parts, " "), b.lastUpdate
}

// Committed returns only the committed transcript, without the interim
// tail.
func (b *TranscriptBuffer) Committed() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.segments, " ")
}

// Pending returns the current interim hypothesis.
func (b *TranscriptBuffer) Pending() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// Len returns the byte length of the full transcript.
func (b *TranscriptBuffer) Len() int {
	text, _ := b.Snapshot()
	return len(text)
}

// Reset discards the transcript, committed and interim alike.
func (b *TranscriptBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.segments = nil
	b.pending = ""
	b.lastUpdate = time.Time{}
}
