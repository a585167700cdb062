package glasses

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.aimuz.me/glint/protocol"
)

// DefaultKeepaliveInterval is the firmware's expected heartbeat cadence.
// Missing a couple of beats makes the glasses drop the link on their own.
const DefaultKeepaliveInterval = 8 * time.Second

// Broadcaster is the outbound write surface the keepalive engine needs.
// *Session satisfies it.
type Broadcaster interface {
	Broadcast(wire []byte) (left, right bool)
}

// Keepalive periodically broadcasts heartbeat frames to both links while
// running. The sequence counter survives restarts and wraps mod 256.
type Keepalive struct {
	sender   Broadcaster
	interval time.Duration

	mu      sync.Mutex
	seq     uint8
	cancel  context.CancelFunc
	running bool
}

// NewKeepalive creates a stopped keepalive engine. interval <= 0 selects
// DefaultKeepaliveInterval.
func NewKeepalive(sender Broadcaster, interval time.Duration) *Keepalive {
	if interval <= 0 {
		interval = DefaultKeepaliveInterval
	}
	return &Keepalive{sender: sender, interval: interval}
}

// Start begins the heartbeat loop. Starting a running engine is a no-op.
func (k *Keepalive) Start() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.running {
		return
	}
	k.running = true

	ctx, cancel := context.WithCancel(context.Background())
	k.cancel = cancel
	go k.loop(ctx)
}

// Stop halts the loop. The sequence counter is kept so a later Start
// continues where it left off.
func (k *Keepalive) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.running {
		return
	}
	k.running = false
	k.cancel()
	k.cancel = nil
}

func (k *Keepalive) loop(ctx context.Context) {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.beat()
		}
	}
}

func (k *Keepalive) beat() {
	wire := protocol.Heartbeat{Seq: k.nextSeq()}.Encode()
	if left, right := k.sender.Broadcast(wire); !left || !right {
		slog.Debug("heartbeat write incomplete", "left", left, "right", right)
	}
}

func (k *Keepalive) nextSeq() uint8 {
	k.mu.Lock()
	defer k.mu.Unlock()
	seq := k.seq
	k.seq++ // wraps at 256 by uint8 arithmetic
	return seq
}
