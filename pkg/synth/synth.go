// Package synth defines the vendor-agnostic speech synthesis contract.
package synth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Sentinel errors a Synthesizer may return from Speak.
var (
	// ErrTextTooLong signals the engine rejected the request because the
	// text exceeds its limit; the caller is expected to chunk and retry.
	ErrTextTooLong = errors.New("synth: text too long")
	// ErrInterrupted signals playback was cut short on purpose.
	ErrInterrupted = errors.New("synth: interrupted")
	// ErrLanguageUnavailable signals no voice exists for the language.
	ErrLanguageUnavailable = errors.New("synth: language unavailable")
)

// Voice describes one installed synthesis voice.
type Voice struct {
	Name string
	Lang string
}

// Request is one synthesis order.
type Request struct {
	Text  string
	Voice Voice
	Lang  string
	Rate  float64
}

// Synthesizer defines the contract for any synthesis vendor implementation.
type Synthesizer interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Voices returns the installed voices.
	Voices() []Voice
	// Speak blocks until playback completes. Context cancellation
	// interrupts playback and returns ErrInterrupted.
	Speak(ctx context.Context, req Request) error
}

// SelectVoice picks the first voice whose tag's primary subtag matches
// primary. When none matches it falls back to the first voice overall,
// which is deterministic and logged as a degraded path; a hard failure
// only happens when no voices are installed at all.
func SelectVoice(voices []Voice, primary string, logger *slog.Logger) (Voice, error) {
	for _, v := range voices {
		if strings.HasPrefix(strings.ToLower(v.Lang), strings.ToLower(primary)) {
			return v, nil
		}
	}
	if len(voices) > 0 {
		fallback := voices[0]
		if logger != nil {
			logger.Warn("no voice for language, using fallback",
				slog.String("requested", primary),
				slog.String("voice", fallback.Name),
				slog.String("voice_lang", fallback.Lang))
		}
		return fallback, nil
	}
	return Voice{}, ErrLanguageUnavailable
}
