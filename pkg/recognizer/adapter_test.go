package recognizer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aziztlili/sawt/pkg/errorsx"
)

type fakeEngine struct {
	mu     sync.Mutex
	starts int
	stops  int
	lang   string
	events chan Event
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{events: make(chan Event, 16)}
}

func (e *fakeEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	e.starts++
	e.mu.Unlock()
	return nil
}

func (e *fakeEngine) Stop() {
	e.mu.Lock()
	e.stops++
	e.mu.Unlock()
}

func (e *fakeEngine) SetLanguage(tag string) {
	e.mu.Lock()
	e.lang = tag
	e.mu.Unlock()
}

func (e *fakeEngine) Events() <-chan Event { return e.events }

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) startCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.starts
}

type cueRecorder struct {
	mu   sync.Mutex
	cues []Cue
}

func (c *cueRecorder) Play(cue Cue) {
	c.mu.Lock()
	c.cues = append(c.cues, cue)
	c.mu.Unlock()
}

func (c *cueRecorder) played() []Cue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Cue{}, c.cues...)
}

func TestAcceptResultNormalizesAndSuppressesDuplicates(t *testing.T) {
	a := NewAdapter(newFakeEngine(), nil, Options{})

	a.handle(Event{Kind: EventResult, Text: "  Virement  "})
	select {
	case tr := <-a.Transcripts():
		if tr.Text != "virement" {
			t.Fatalf("transcript = %q", tr.Text)
		}
	default:
		t.Fatalf("transcript not delivered")
	}

	a.handle(Event{Kind: EventResult, Text: "VIREMENT"})
	select {
	case tr := <-a.Transcripts():
		t.Fatalf("duplicate %q was not suppressed", tr.Text)
	default:
	}

	a.ResetLast()
	a.handle(Event{Kind: EventResult, Text: "virement"})
	select {
	case <-a.Transcripts():
	default:
		t.Fatalf("transcript rejected after reset")
	}
}

func TestNoSpeechIsSilent(t *testing.T) {
	a := NewAdapter(newFakeEngine(), nil, Options{})

	a.handle(Event{Kind: EventStart})
	a.handle(Event{Kind: EventError, Code: CodeNoSpeech})

	if a.Listening() {
		t.Fatalf("still listening after error event")
	}
	select {
	case err := <-a.Errors():
		t.Fatalf("no-speech surfaced as error: %v", err)
	default:
	}
	if a.Permission() == PermissionDenied {
		t.Fatalf("no-speech flipped permission state")
	}
}

func TestNotAllowedTurnsPermissionDenied(t *testing.T) {
	a := NewAdapter(newFakeEngine(), nil, Options{})

	var mu sync.Mutex
	var seen []Permission
	a.OnPermissionChange(func(p Permission) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	})

	a.handle(Event{Kind: EventError, Code: CodeNotAllowed})
	if a.Permission() != PermissionDenied {
		t.Fatalf("permission = %v", a.Permission())
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != PermissionDenied {
		t.Fatalf("permission listeners saw %v", seen)
	}
}

func TestCaptureAndNetworkErrorsSurfaceWithReasons(t *testing.T) {
	a := NewAdapter(newFakeEngine(), nil, Options{})

	a.handle(Event{Kind: EventError, Code: CodeAudioCapture})
	select {
	case err := <-a.Errors():
		if !errorsx.HasReason(err, errorsx.ReasonRecognizerCapture) {
			t.Fatalf("reason = %v", errorsx.Reason(err))
		}
	case <-time.After(time.Second):
		t.Fatalf("capture error not surfaced")
	}

	a.handle(Event{Kind: EventError, Code: CodeNetwork})
	select {
	case err := <-a.Errors():
		if !errorsx.HasReason(err, errorsx.ReasonRecognizerNetwork) {
			t.Fatalf("reason = %v", errorsx.Reason(err))
		}
	case <-time.After(time.Second):
		t.Fatalf("network error not surfaced")
	}
}

func TestStartListeningGates(t *testing.T) {
	eng := newFakeEngine()
	busy := false
	a := NewAdapter(eng, nil, Options{Busy: func() bool { return busy }})

	busy = true
	a.StartListening()
	if eng.startCount() != 0 {
		t.Fatalf("engine armed while busy")
	}

	busy = false
	a.StartListening()
	if eng.startCount() != 1 {
		t.Fatalf("engine not armed when free")
	}

	a.handle(Event{Kind: EventStart})
	a.StartListening()
	if eng.startCount() != 1 {
		t.Fatalf("double arm while already listening")
	}

	a.handle(Event{Kind: EventError, Code: CodePermissionDenied})
	a.StartListening()
	if eng.startCount() != 1 {
		t.Fatalf("engine armed with permission denied")
	}
}

func TestRequestRetryReopensPermission(t *testing.T) {
	a := NewAdapter(newFakeEngine(), nil, Options{})

	a.handle(Event{Kind: EventError, Code: CodeNotAllowed})
	a.RequestRetry()
	if a.Permission() != PermissionPrompt {
		t.Fatalf("permission = %v after retry", a.Permission())
	}
}

func TestCuesPlayOnListenBoundaries(t *testing.T) {
	cue := &cueRecorder{}
	a := NewAdapter(newFakeEngine(), nil, Options{Cue: cue})

	a.handle(Event{Kind: EventStart})
	a.handle(Event{Kind: EventEnd})

	got := cue.played()
	if len(got) != 2 || got[0] != CueStart || got[1] != CueStop {
		t.Fatalf("cues = %v", got)
	}
}
