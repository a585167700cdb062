package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.aimuz.me/glint/analysis"
	"go.aimuz.me/glint/assist"
	"go.aimuz.me/glint/llm"
)

// summarizerFunc adapts a function to analysis.Summarizer so each run
// resolves the active LLM provider at call time.
type summarizerFunc func(ctx context.Context, transcript string) ([]string, error)

func (f summarizerFunc) Summarize(ctx context.Context, transcript string) ([]string, error) {
	return f(ctx, transcript)
}

func (s *Service) setupScheduler() *analysis.Scheduler {
	return analysis.NewScheduler(analysis.SchedulerConfig{
		Buffer:        s.buffer,
		Summarizer:    summarizerFunc(s.summarize),
		Interval:      time.Duration(s.cfg.Glasses.AnalysisIntervalSec) * time.Second,
		MinLength:     s.cfg.Glasses.MinTranscriptLen,
		LineWidth:     s.cfg.Glasses.DisplayWidth,
		OnSuggestions: s.publishSuggestions,
		OnError: func(err error) {
			slog.Error("analysis run failed", "error", err)
			s.emit(EventAnalysisError, err.Error())
		},
	})
}

// summarize runs the assistant over the transcript with the currently
// active provider.
func (s *Service) summarize(ctx context.Context, transcript string) ([]string, error) {
	p := s.cfg.GetActiveProvider()
	if p == nil {
		return nil, fmt.Errorf("no active LLM provider configured")
	}

	completer := llm.NewCompleter(p.Type, p.APIKey, p.BaseURL, p.Model, llm.Options{
		MaxTokens:       p.MaxTokens,
		Temperature:     p.Temperature,
		DisableThinking: p.DisableThinking,
	})

	assistant := assist.New(assist.Config{
		Completer: completer,
		Cache:     s.cache,
		Model:     p.Model,
	})
	return assistant.Summarize(ctx, transcript)
}

// AnalyzeNow forces an analysis run outside the cadence.
func (s *Service) AnalyzeNow() {
	go s.scheduler.AnalyzeNow(s.ctx)
}

// SetAnalysisInterval changes the analysis cadence. The interval is
// clamped to the supported range; the effective value is returned in
// seconds and persisted.
func (s *Service) SetAnalysisInterval(seconds int) int {
	d := s.scheduler.SetInterval(time.Duration(seconds) * time.Second)

	s.cfg.Glasses.AnalysisIntervalSec = int(d / time.Second)
	if err := s.cfg.Save(); err != nil {
		slog.Warn("persist analysis interval", "error", err)
	}
	return int(d / time.Second)
}

// GetAnalysisInterval returns the effective analysis interval in seconds.
func (s *Service) GetAnalysisInterval() int {
	return int(s.scheduler.Interval() / time.Second)
}
