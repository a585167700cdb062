package realtime

import (
	"math"
	"testing"
)

func TestUpsampleStereo48k(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		if got := upsampleStereo48k(nil); got != nil {
			t.Errorf("got %v, want nil", got)
		}
	})

	t.Run("triples and interleaves", func(t *testing.T) {
		out := upsampleStereo48k([]float32{0, 0.3})
		if len(out) != 2*3*2 {
			t.Fatalf("got %d samples, want 12 (2 in x3 rate x2 channels)", len(out))
		}
		// Interleaved: left and right channels carry the same signal.
		for i := 0; i < len(out); i += 2 {
			if out[i] != out[i+1] {
				t.Fatalf("sample %d: L %v != R %v", i/2, out[i], out[i+1])
			}
		}
		// Linear ramp between the two source samples.
		want := []float32{0, 0.1, 0.2, 0.3, 0.3, 0.3}
		for i, w := range want {
			if got := out[2*i]; math.Abs(float64(got-w)) > 1e-6 {
				t.Errorf("sample %d = %v, want %v", i, got, w)
			}
		}
	})
}

func TestSessionTranscriptAssembly(t *testing.T) {
	s := &session{pending: make(map[string]string), settled: make(chan struct{})}

	var partials []string
	s.onPartial = func(text string) { partials = append(partials, text) }

	s.handleEvent(TranscriptDeltaEvent{ItemID: "a", Delta: "how are"})
	s.handleEvent(TranscriptDeltaEvent{ItemID: "a", Delta: " you"})
	s.handleEvent(TranscriptEvent{ItemID: "a", Transcript: "How are you?"})
	s.handleEvent(TranscriptDeltaEvent{ItemID: "b", Delta: "I'm fi"})

	if len(partials) != 3 || partials[1] != "how are you" {
		t.Errorf("partials = %q", partials)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.finals) != 1 || s.finals[0] != "How are you?" {
		t.Errorf("finals = %q", s.finals)
	}
	// Item b is still pending; Finalize keeps its interim tail.
	if s.pending["b"] != "I'm fi" {
		t.Errorf("pending = %q", s.pending)
	}
}

func TestSessionErrorMarksUnavailable(t *testing.T) {
	s := &session{pending: make(map[string]string), settled: make(chan struct{})}

	ev := ErrorEvent{}
	ev.Error.Code = "invalid_api_key"
	ev.Error.Message = "Invalid API key"
	s.handleEvent(ev)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		t.Fatal("error event did not mark the session failed")
	}
}
