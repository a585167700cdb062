// Package assist turns a conversation transcript into short reply lines:
// a direct answer when the other party just asked something, or follow-up
// suggestions when they didn't.
package assist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"go.aimuz.me/glint/cache"
	"go.aimuz.me/glint/langdetect"
	"go.aimuz.me/glint/llm"
)

// DefaultMaxLines caps the assistant's reply lines.
const DefaultMaxLines = 5

const systemPromptFmt = `You are a discreet conversation copilot. The user wears smart glasses that show your reply during a live conversation; they glance at it mid-sentence, so every word must earn its place.

You receive the transcript of the conversation so far. Decide what helps most right now:
- If the latest utterance is a question directed at the user, answer it directly and factually.
- Otherwise, suggest things the user could say next: follow-up questions, relevant facts, or a good reply.

Rules:
- Reply in %s.
- At most %d lines, one suggestion or answer per line.
- Keep each line under 60 characters.
- No numbering, bullets, labels, or commentary. Output the lines only.`

// Config configures an Assistant. Completer is required; a nil Cache
// disables caching.
type Config struct {
	Completer llm.Completer
	Cache     *cache.Cache
	Model     string // cache key component
	MaxLines  int
	TTL       time.Duration
}

// Assistant produces suggestion lines from a transcript. It satisfies
// analysis.Summarizer.
type Assistant struct {
	cfg Config
}

// New creates an Assistant.
func New(cfg Config) *Assistant {
	if cfg.MaxLines <= 0 {
		cfg.MaxLines = DefaultMaxLines
	}
	return &Assistant{cfg: cfg}
}

// Summarize returns reply lines for the transcript, answering in the
// transcript's own language. Byte-identical transcripts are served from
// cache.
func (a *Assistant) Summarize(ctx context.Context, transcript string) ([]string, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, nil
	}

	lang := langdetect.Detect(transcript)

	key := cache.GenerateKey(a.cfg.Model, lang.Code, transcript)
	if a.cfg.Cache != nil {
		if entry, ok := a.cfg.Cache.Get(key); ok {
			slog.Debug("assistant cache hit", "lines", len(entry.Lines))
			return entry.Lines, nil
		}
	}

	messages := []llm.Message{
		{Role: "system", Content: fmt.Sprintf(systemPromptFmt, lang.Name, a.cfg.MaxLines)},
		{Role: "user", Content: "Transcript:\n" + transcript},
	}

	reply, usage, err := a.cfg.Completer.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}

	lines := ParseLines(reply, a.cfg.MaxLines)
	if len(lines) == 0 {
		return nil, nil
	}

	if a.cfg.Cache != nil {
		entry := &cache.Entry{Lines: lines, Usage: usage}
		if err := a.cfg.Cache.Set(key, entry, a.cfg.TTL); err != nil {
			slog.Warn("assistant cache write failed", "error", err)
		}
	}

	slog.Debug("assistant reply",
		"language", lang.Code,
		"lines", len(lines),
		"tokens", usage.TotalTokens,
	)
	return lines, nil
}

// ParseLines splits a model reply into clean suggestion lines: one per
// input line, list markers stripped, empties dropped, capped at max.
// Models ignore formatting rules often enough that stripping here is
// cheaper than reprompting.
func ParseLines(reply string, max int) []string {
	var lines []string
	for _, line := range strings.Split(reply, "\n") {
		line = stripListMarker(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == max {
			break
		}
	}
	return lines
}

func stripListMarker(line string) string {
	// Bullet markers.
	for _, marker := range []string{"- ", "* ", "• "} {
		if rest, ok := strings.CutPrefix(line, marker); ok {
			return strings.TrimSpace(rest)
		}
	}

	// Numbered markers like "1." / "2)".
	i := 0
	for i < len(line) && unicode.IsDigit(rune(line[i])) {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}
