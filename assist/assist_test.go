package assist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.aimuz.me/glint/cache"
	"go.aimuz.me/glint/internal/types"
	"go.aimuz.me/glint/llm"
)

type fakeCompleter struct {
	reply    string
	err      error
	calls    int
	messages []llm.Message
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []llm.Message) (string, types.Usage, error) {
	f.calls++
	f.messages = messages
	return f.reply, types.Usage{TotalTokens: 42}, f.err
}

func TestSummarize(t *testing.T) {
	completer := &fakeCompleter{reply: "Ask about the deadline\nOffer to review the draft"}
	a := New(Config{Completer: completer})

	lines, err := a.Summarize(context.Background(), "Can you look at my draft before Friday?")
	if err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 || lines[0] != "Ask about the deadline" {
		t.Errorf("lines = %q", lines)
	}

	if len(completer.messages) != 2 || completer.messages[0].Role != "system" {
		t.Fatalf("messages = %+v", completer.messages)
	}
	if !strings.Contains(completer.messages[0].Content, "Reply in English") {
		t.Errorf("system prompt missing reply language: %q", completer.messages[0].Content)
	}
	if !strings.Contains(completer.messages[1].Content, "my draft") {
		t.Error("user message missing transcript")
	}
}

func TestSummarizeRepliesInTranscriptLanguage(t *testing.T) {
	completer := &fakeCompleter{reply: "締め切りを確認する"}
	a := New(Config{Completer: completer})

	if _, err := a.Summarize(context.Background(), "この草案を金曜日までに確認してもらえますか。"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(completer.messages[0].Content, "Reply in Japanese") {
		t.Errorf("system prompt = %q, want Japanese reply instruction", completer.messages[0].Content)
	}
}

func TestSummarizeUsesCache(t *testing.T) {
	c, err := cache.OpenInMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	completer := &fakeCompleter{reply: "One suggestion"}
	a := New(Config{Completer: completer, Cache: c, Model: "gpt-4o-mini"})

	transcript := "We should sync up about the roadmap sometime next week."
	if _, err := a.Summarize(context.Background(), transcript); err != nil {
		t.Fatal(err)
	}
	lines, err := a.Summarize(context.Background(), transcript)
	if err != nil {
		t.Fatal(err)
	}

	if completer.calls != 1 {
		t.Errorf("completer called %d times, want 1 (second call cached)", completer.calls)
	}
	if len(lines) != 1 || lines[0] != "One suggestion" {
		t.Errorf("cached lines = %q", lines)
	}
}

func TestSummarizeEmptyTranscript(t *testing.T) {
	completer := &fakeCompleter{reply: "should not be called"}
	a := New(Config{Completer: completer})

	lines, err := a.Summarize(context.Background(), "   ")
	if err != nil || lines != nil {
		t.Errorf("got (%q, %v), want (nil, nil)", lines, err)
	}
	if completer.calls != 0 {
		t.Error("completer called for empty transcript")
	}
}

func TestSummarizePropagatesErrors(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("rate limited")}
	a := New(Config{Completer: completer})

	if _, err := a.Summarize(context.Background(), "a long enough transcript"); err == nil {
		t.Fatal("expected error")
	}
}

func TestParseLines(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{
			"plain lines",
			"first\nsecond",
			[]string{"first", "second"},
		},
		{
			"bullets and numbers stripped",
			"- first\n* second\n• third\n1. fourth\n2) fifth",
			[]string{"first", "second", "third", "fourth", "fifth"},
		},
		{
			"blank lines dropped",
			"first\n\n\nsecond\n",
			[]string{"first", "second"},
		},
		{
			"capped at max",
			"1\n2\n3\n4\n5\n6\n7",
			[]string{"1", "2", "3", "4", "5"},
		},
		{
			"numbers inside text kept",
			"meet at 10. sharp",
			[]string{"meet at 10. sharp"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLines(tt.reply, 5)
			if len(got) != len(tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("line %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
