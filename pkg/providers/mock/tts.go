package mock

import (
	"context"
	"sync"
	"time"

	"github.com/aziztlili/sawt/pkg/synth"
)

// SynthConfig tunes the capture synthesizer.
type SynthConfig struct {
	// Voices installed on the mock. Defaults to one voice per fr/ar/en.
	Voices []synth.Voice
	// MaxChars makes Speak return ErrTextTooLong above the limit.
	MaxChars int
	// Latency is how long each Speak blocks before completing.
	Latency time.Duration
	// Err, when set, is returned from every Speak.
	Err error
}

// Synth records every request it is asked to speak.
type Synth struct {
	cfg    SynthConfig
	mu     sync.Mutex
	spoken []synth.Request
}

func NewSynth(cfg SynthConfig) *Synth {
	if len(cfg.Voices) == 0 {
		cfg.Voices = []synth.Voice{
			{Name: "Amelie", Lang: "fr-FR"},
			{Name: "Laila", Lang: "ar-SA"},
			{Name: "Daniel", Lang: "en-US"},
		}
	}
	return &Synth{cfg: cfg}
}

func (s *Synth) Name() string { return "mock_tts" }

func (s *Synth) Voices() []synth.Voice { return s.cfg.Voices }

func (s *Synth) Speak(ctx context.Context, req synth.Request) error {
	if s.cfg.Err != nil {
		return s.cfg.Err
	}
	if s.cfg.MaxChars > 0 && len(req.Text) > s.cfg.MaxChars {
		return synth.ErrTextTooLong
	}
	if s.cfg.Latency > 0 {
		select {
		case <-time.After(s.cfg.Latency):
		case <-ctx.Done():
			return synth.ErrInterrupted
		}
	}
	s.mu.Lock()
	s.spoken = append(s.spoken, req)
	s.mu.Unlock()
	return nil
}

// Spoken returns a copy of every completed request in order.
func (s *Synth) Spoken() []synth.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]synth.Request, len(s.spoken))
	copy(out, s.spoken)
	return out
}

var _ synth.Synthesizer = (*Synth)(nil)
