// Package stt provides speech-to-text providers. A provider opens one
// Session per microphone capture; the session consumes decoded audio and
// produces the capture's transcript.
package stt

import (
	"context"
	"errors"
)

// ErrUnavailable reports that speech recognition cannot serve the capture:
// missing credentials, a rejected key, or a lost provider connection. The
// caller stops the capture and surfaces the condition instead of retrying
// chunk by chunk.
var ErrUnavailable = errors.New("stt: speech recognition unavailable")

// Decoder converts one device audio chunk into PCM float32 samples at
// 16 kHz mono. The glasses firmware ships its own codec; the decoder is
// injected so the pipeline stays codec-agnostic.
type Decoder func(chunk []byte) ([]float32, error)

// PCM16Decoder decodes raw 16-bit little-endian PCM, the emulator's and
// the debug firmware's format.
func PCM16Decoder(chunk []byte) ([]float32, error) {
	samples := make([]float32, len(chunk)/2)
	for i := range samples {
		v := int16(uint16(chunk[2*i]) | uint16(chunk[2*i+1])<<8)
		samples[i] = float32(v) / 32768
	}
	return samples, nil
}

// Provider opens transcription sessions.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Start opens a session for one capture.
	Start(ctx context.Context) (Session, error)

	// Close releases resources held by the provider.
	Close() error
}

// Session consumes one capture's audio.
type Session interface {
	// Feed accepts one encoded audio chunk from the device.
	Feed(chunk []byte) error

	// Finalize flushes pending audio and returns the final transcript.
	Finalize(ctx context.Context) (string, error)

	// Close releases the session. Safe after Finalize.
	Close() error
}

// Callbacks carries optional live-transcription hooks. Batch providers
// leave them unused; streaming providers emit partial hypotheses as they
// form.
type Callbacks struct {
	// OnPartial receives interim hypotheses. May be called often; must not
	// block.
	OnPartial func(text string)
}
