package glasses

import (
	"sync"
	"testing"
	"time"

	"go.aimuz.me/glint/protocol"
)

type fakeBroadcaster struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *fakeBroadcaster) Broadcast(wire []byte) (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	frame := make([]byte, len(wire))
	copy(frame, wire)
	f.frames = append(f.frames, frame)
	return true, true
}

func (f *fakeBroadcaster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeBroadcaster) snapshot() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.frames))
	copy(out, f.frames)
	return out
}

func TestKeepaliveBeats(t *testing.T) {
	sender := &fakeBroadcaster{}
	k := NewKeepalive(sender, 10*time.Millisecond)

	k.Start()
	defer k.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for sender.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	k.Stop()

	frames := sender.snapshot()
	if len(frames) < 3 {
		t.Fatalf("got %d heartbeats, want at least 3", len(frames))
	}
	for i, frame := range frames[:3] {
		want := protocol.Heartbeat{Seq: uint8(i)}.Encode()
		if string(frame) != string(want) {
			t.Errorf("beat %d = % x, want % x", i, frame, want)
		}
	}
}

func TestKeepaliveStopHalts(t *testing.T) {
	sender := &fakeBroadcaster{}
	k := NewKeepalive(sender, 5*time.Millisecond)

	k.Start()
	deadline := time.Now().Add(2 * time.Second)
	for sender.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	k.Stop()

	n := sender.count()
	time.Sleep(30 * time.Millisecond)
	if got := sender.count(); got != n {
		t.Errorf("heartbeats kept flowing after Stop: %d -> %d", n, got)
	}

	// Stopping twice must not panic.
	k.Stop()
}

func TestKeepaliveSeqWraps(t *testing.T) {
	k := NewKeepalive(&fakeBroadcaster{}, time.Hour)
	k.seq = 255

	if got := k.nextSeq(); got != 255 {
		t.Errorf("nextSeq = %d, want 255", got)
	}
	if got := k.nextSeq(); got != 0 {
		t.Errorf("nextSeq after wrap = %d, want 0", got)
	}
}

func TestKeepaliveSeqSurvivesRestart(t *testing.T) {
	sender := &fakeBroadcaster{}
	k := NewKeepalive(sender, 5*time.Millisecond)

	k.Start()
	deadline := time.Now().Add(2 * time.Second)
	for sender.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	k.Stop()

	before := sender.count()
	k.Start()
	deadline = time.Now().Add(2 * time.Second)
	for sender.count() < before+1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	k.Stop()

	frames := sender.snapshot()
	last := frames[len(frames)-1]
	if last[3] != uint8(len(frames)-1) {
		t.Errorf("seq after restart = %d, want %d (counter continues)", last[3], len(frames)-1)
	}
}
