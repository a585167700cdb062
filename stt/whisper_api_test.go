package stt

import (
	"context"
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPCM16Decoder(t *testing.T) {
	chunk := make([]byte, 6)
	for i, s := range []int16{0, 16384, -32768} {
		binary.LittleEndian.PutUint16(chunk[i*2:], uint16(s))
	}

	samples, err := PCM16Decoder(chunk)
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}
	if samples[0] != 0 {
		t.Errorf("samples[0] = %v, want 0", samples[0])
	}
	if samples[1] != 0.5 {
		t.Errorf("samples[1] = %v, want 0.5", samples[1])
	}
	if samples[2] != -1 {
		t.Errorf("samples[2] = %v, want -1", samples[2])
	}
}

func TestWhisperAPISession(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if model := r.FormValue("model"); model != "whisper-1" {
			t.Errorf("model field = %q", model)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing audio file: %v", err)
		}
		w.Write([]byte(`{"text":"hello from whisper"}`))
	}))
	defer srv.Close()

	provider := NewWhisperAPI(WhisperAPIConfig{APIKey: "sk-test", BaseURL: srv.URL})
	sess, err := provider.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if err := sess.Feed([]byte{0x00, 0x10, 0x00, 0x20}); err != nil {
		t.Fatal(err)
	}

	text, err := sess.Finalize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello from whisper" {
		t.Errorf("transcript = %q", text)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("authorization = %q", gotAuth)
	}
	sess.Close()
}

func TestWhisperAPIEmptyCapture(t *testing.T) {
	provider := NewWhisperAPI(WhisperAPIConfig{APIKey: "sk-test", BaseURL: "http://127.0.0.1:0"})
	sess, _ := provider.Start(context.Background())

	// No audio fed: no API call, empty transcript.
	text, err := sess.Finalize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if text != "" {
		t.Errorf("transcript = %q, want empty", text)
	}
}

func TestWhisperAPIUnavailable(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		provider := NewWhisperAPI(WhisperAPIConfig{})
		if _, err := provider.Start(context.Background()); !errors.Is(err, ErrUnavailable) {
			t.Errorf("Start without key = %v, want ErrUnavailable", err)
		}
	})

	t.Run("rejected key", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
		}))
		defer srv.Close()

		provider := NewWhisperAPI(WhisperAPIConfig{APIKey: "sk-bad", BaseURL: srv.URL})
		sess, err := provider.Start(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		sess.Feed([]byte{0x00, 0x10})

		if _, err := sess.Finalize(context.Background()); !errors.Is(err, ErrUnavailable) {
			t.Errorf("Finalize = %v, want ErrUnavailable", err)
		}
	})
}

func TestFloat32ToWAV(t *testing.T) {
	wav := float32ToWAV([]float32{0, 0.5, -0.5, 2.0}, 16000)

	if len(wav) != 44+8 {
		t.Fatalf("wav length = %d, want 44-byte header + 8 data bytes", len(wav))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Error("missing RIFF/WAVE markers")
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Errorf("sample rate = %d", rate)
	}
	// Out-of-range samples clamp instead of wrapping.
	last := int16(binary.LittleEndian.Uint16(wav[50:52]))
	if last != 32767 {
		t.Errorf("clamped sample = %d, want 32767", last)
	}
}
