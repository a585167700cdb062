package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.aimuz.me/glint/internal/types"
)

// Interval bounds. The ticker is clamped so a misconfigured interval can
// neither hammer the LLM nor go quiet.
const (
	DefaultInterval = 5 * time.Second
	MinInterval     = 3 * time.Second
	MaxInterval     = 30 * time.Second
)

// DefaultIdleAfter is how long the transcript may sit unchanged before
// ticks stop analyzing it.
const DefaultIdleAfter = 30 * time.Second

// DefaultMinLength is the shortest transcript worth analyzing, in bytes.
const DefaultMinLength = 12

// DefaultMaxSuggestions caps how many assistant lines one run publishes.
const DefaultMaxSuggestions = 5

// Summarizer produces suggestion lines for a transcript. assist.Assistant
// satisfies it.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string) ([]string, error)
}

// SchedulerConfig configures a Scheduler. Buffer and Summarizer are
// required.
type SchedulerConfig struct {
	Buffer     *TranscriptBuffer
	Summarizer Summarizer

	Interval       time.Duration // clamped to [MinInterval, MaxInterval]
	IdleAfter      time.Duration
	MinLength      int
	MaxSuggestions int
	LineWidth      int

	// OnSuggestions receives each run's published suggestions.
	OnSuggestions func([]types.Suggestion)

	// OnDisplay receives the formatted glasses display text for each run.
	OnDisplay func(text string)

	// OnError receives failed runs. Skipped ticks are not errors.
	OnError func(error)
}

// ClampInterval bounds an analysis interval to the supported range.
func ClampInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultInterval
	}
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}

// Scheduler runs the summarizer over the transcript on a fixed cadence.
//
// Each tick passes a gating chain, evaluated in order: a run already in
// flight skips the tick outright (never queued, never cancelling the
// running task); an idle transcript skips; a too-short transcript skips;
// a transcript byte-identical to the last analyzed one skips.
type Scheduler struct {
	cfg SchedulerConfig

	mu           sync.Mutex
	interval     time.Duration
	lastAnalyzed string
	task         *analysisTask
	ticker       *time.Ticker
	cancel       context.CancelFunc
	running      bool
}

type analysisTask struct {
	transcript string
	cancel     context.CancelFunc
	cancelled  bool
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = DefaultIdleAfter
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultMinLength
	}
	if cfg.MaxSuggestions <= 0 {
		cfg.MaxSuggestions = DefaultMaxSuggestions
	}
	if cfg.LineWidth <= 0 {
		cfg.LineWidth = DefaultLineWidth
	}
	return &Scheduler{
		cfg:      cfg,
		interval: ClampInterval(cfg.Interval),
	}
}

// Interval returns the effective (clamped) analysis interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Start begins the cadence with an immediate first run. Starting a running
// scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.ticker = time.NewTicker(s.interval)
	ticker := s.ticker
	s.mu.Unlock()

	go func() {
		s.tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop halts the cadence and cancels any in-flight run.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.ticker.Stop()
	task := s.detachTaskLocked()
	s.mu.Unlock()

	if task != nil {
		task.cancel()
	}
}

// SetInterval changes the cadence, clamped to the supported range. An
// in-flight run is cancelled so stale output cannot land under the new
// cadence.
func (s *Scheduler) SetInterval(d time.Duration) time.Duration {
	d = ClampInterval(d)

	s.mu.Lock()
	s.interval = d
	if s.running {
		s.ticker.Reset(d)
	}
	task := s.detachTaskLocked()
	s.mu.Unlock()

	if task != nil {
		task.cancel()
	}
	slog.Info("analysis interval changed", "interval", d)
	return d
}

// detachTaskLocked marks the in-flight task cancelled and detaches it.
// Caller holds s.mu.
func (s *Scheduler) detachTaskLocked() *analysisTask {
	task := s.task
	if task != nil {
		task.cancelled = true
		s.task = nil
	}
	return task
}

// AnalyzeNow runs one tick outside the cadence, subject to the same gating
// except the debounce: a manual request re-analyzes even an unchanged
// transcript.
func (s *Scheduler) AnalyzeNow(ctx context.Context) {
	s.mu.Lock()
	s.lastAnalyzed = ""
	s.mu.Unlock()
	s.tick(ctx)
}

// tick evaluates the gating chain and launches a run if it passes.
func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	if s.task != nil {
		s.mu.Unlock()
		slog.Debug("analysis tick skipped", "reason", "in flight")
		return
	}

	transcript, lastUpdate := s.cfg.Buffer.Snapshot()

	if lastUpdate.IsZero() || time.Since(lastUpdate) > s.cfg.IdleAfter {
		s.mu.Unlock()
		slog.Debug("analysis tick skipped", "reason", "idle")
		return
	}
	if len(strings.TrimSpace(transcript)) < s.cfg.MinLength {
		s.mu.Unlock()
		slog.Debug("analysis tick skipped", "reason", "too short", "len", len(transcript))
		return
	}
	if transcript == s.lastAnalyzed {
		s.mu.Unlock()
		slog.Debug("analysis tick skipped", "reason", "unchanged")
		return
	}
	s.lastAnalyzed = transcript

	runCtx, cancel := context.WithCancel(ctx)
	task := &analysisTask{transcript: transcript, cancel: cancel}
	s.task = task
	s.mu.Unlock()

	go s.run(runCtx, task)
}

func (s *Scheduler) run(ctx context.Context, task *analysisTask) {
	lines, err := s.cfg.Summarizer.Summarize(ctx, task.transcript)

	s.mu.Lock()
	if s.task == task {
		s.task = nil
	}
	cancelled := task.cancelled
	s.mu.Unlock()

	if cancelled {
		// A cancelled run publishes nothing, success or not.
		return
	}
	if err != nil {
		if s.cfg.OnError != nil {
			s.cfg.OnError(fmt.Errorf("analyze transcript: %w", err))
		}
		return
	}

	if len(lines) > s.cfg.MaxSuggestions {
		lines = lines[:s.cfg.MaxSuggestions]
	}

	now := time.Now()
	suggestions := make([]types.Suggestion, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		suggestions = append(suggestions, types.Suggestion{
			ID:        uuid.NewString(),
			Text:      line,
			CreatedAt: now,
		})
	}
	if len(suggestions) == 0 {
		return
	}

	if s.cfg.OnSuggestions != nil {
		s.cfg.OnSuggestions(suggestions)
	}
	if s.cfg.OnDisplay != nil {
		s.cfg.OnDisplay(FormatDisplay(lines, s.cfg.LineWidth))
	}
}
