package analysis

import (
	"testing"
	"time"
)

func TestTranscriptBufferCommitAndPending(t *testing.T) {
	b := NewTranscriptBuffer()

	b.Commit("How's the project going?")
	b.SetPending("it's going")

	text, _ := b.Snapshot()
	want := "How's the project going? it's going"
	if text != want {
		t.Errorf("Snapshot = %q, want %q", text, want)
	}

	// Interim text is replaced in place, not appended.
	b.SetPending("it's going well so far")
	text, _ = b.Snapshot()
	want = "How's the project going? it's going well so far"
	if text != want {
		t.Errorf("Snapshot after replace = %q, want %q", text, want)
	}

	// Committing clears the interim tail.
	b.Commit("It's going well, thanks.")
	text, _ = b.Snapshot()
	want = "How's the project going? It's going well, thanks."
	if text != want {
		t.Errorf("Snapshot after commit = %q, want %q", text, want)
	}
	if b.Pending() != "" {
		t.Errorf("Pending = %q, want empty after commit", b.Pending())
	}
}

func TestTranscriptBufferEmptyCommit(t *testing.T) {
	b := NewTranscriptBuffer()
	b.Commit("  ")

	if text, _ := b.Snapshot(); text != "" {
		t.Errorf("Snapshot = %q, want empty", text)
	}
	if _, last := b.Snapshot(); !last.IsZero() {
		t.Error("empty commit bumped lastUpdate")
	}
}

func TestTranscriptBufferTracksLastUpdate(t *testing.T) {
	b := NewTranscriptBuffer()
	stamp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return stamp }

	b.Commit("hello")
	if _, last := b.Snapshot(); !last.Equal(stamp) {
		t.Errorf("lastUpdate = %v, want %v", last, stamp)
	}
}

func TestTranscriptBufferReset(t *testing.T) {
	b := NewTranscriptBuffer()
	b.Commit("something")
	b.SetPending("more")
	b.Reset()

	if text, last := b.Snapshot(); text != "" || !last.IsZero() {
		t.Errorf("after Reset: text %q lastUpdate %v, want empty/zero", text, last)
	}
}
