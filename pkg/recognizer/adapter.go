package recognizer

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aziztlili/sawt/pkg/errorsx"
	"github.com/aziztlili/sawt/pkg/redact"
)

// Permission is the microphone permission state. The adapter is its
// single writer.
type Permission string

const (
	PermissionGranted  Permission = "granted"
	PermissionDenied   Permission = "denied"
	PermissionPrompt   Permission = "prompt"
	PermissionChecking Permission = "checking"
)

// Transcript is one accepted final recognition result.
type Transcript struct {
	Text       string
	ReceivedAt time.Time
}

// Options configures an Adapter.
type Options struct {
	// Busy, when set, blocks arming while a command is being processed.
	Busy func() bool
	// Cue plays the start/stop tones. Nil disables them.
	Cue CuePlayer
	// Buffer sizes the accepted-transcript channel.
	Buffer int
}

// Adapter owns the recognition engine. It accepts at most one final
// transcript per armed listen, suppresses duplicates against the last
// accepted text and maps provider errors into the taxonomy. It never
// re-arms itself; restarting is the turn controller's decision.
type Adapter struct {
	engine Engine
	cue    CuePlayer
	busy   func() bool
	logger *slog.Logger

	mu         sync.Mutex
	listening  bool
	permission Permission
	last       string
	listeners  []func(bool)
	permListen []func(Permission)

	transcripts chan Transcript
	errs        chan error
	stop        context.CancelFunc
}

// NewAdapter wraps engine. Call Run to start consuming engine events.
func NewAdapter(engine Engine, logger *slog.Logger, opts Options) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	cue := opts.Cue
	if cue == nil {
		cue = NopCue{}
	}
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 4
	}
	return &Adapter{
		engine:      engine,
		cue:         cue,
		busy:        opts.Busy,
		logger:      logger,
		permission:  PermissionPrompt,
		transcripts: make(chan Transcript, buffer),
		errs:        make(chan error, 4),
	}
}

// Run starts the event pump. It returns when ctx is done.
func (a *Adapter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.engine.Events():
			if !ok {
				return
			}
			a.handle(ev)
		}
	}
}

// Transcripts delivers accepted transcripts, one per utterance.
func (a *Adapter) Transcripts() <-chan Transcript {
	return a.transcripts
}

// Errors delivers surfaced recognition failures (capture, network,
// unknown). Permission denials change state instead of erroring.
func (a *Adapter) Errors() <-chan error {
	return a.errs
}

// StartListening arms the engine unless permission is denied, the
// adapter is already listening, or a command is being processed. It
// never returns an error; failures arrive as error events.
func (a *Adapter) StartListening() {
	a.mu.Lock()
	if a.permission == PermissionDenied || a.listening {
		a.mu.Unlock()
		return
	}
	if a.busy != nil && a.busy() {
		a.mu.Unlock()
		return
	}
	a.mu.Unlock()

	if err := a.engine.Start(context.Background()); err != nil {
		a.logger.Warn("recognizer failed to arm", slog.Any("error", err))
		a.surface(errorsx.Wrap(err, errorsx.ReasonRecognizerStart))
	}
}

// StopListening requests a stop when currently listening. Idempotent.
func (a *Adapter) StopListening() {
	a.mu.Lock()
	listening := a.listening
	a.mu.Unlock()
	if listening {
		a.engine.Stop()
	}
}

// Listening reports whether the engine is currently armed.
func (a *Adapter) Listening() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listening
}

// Permission returns the current microphone permission state.
func (a *Adapter) Permission() Permission {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.permission
}

// RequestRetry is the manual path out of a denial: it moves the state
// back to prompt so the next StartListening may try again.
func (a *Adapter) RequestRetry() {
	a.mu.Lock()
	changed := a.permission == PermissionDenied
	if changed {
		a.permission = PermissionPrompt
	}
	listeners := append([]func(Permission){}, a.permListen...)
	perm := a.permission
	a.mu.Unlock()
	if changed {
		a.logger.Info("permission retry requested")
		for _, fn := range listeners {
			fn(perm)
		}
	}
}

// SetLanguage switches the recognition language.
func (a *Adapter) SetLanguage(tag string) {
	a.engine.SetLanguage(tag)
}

// ResetLast clears the duplicate comparator. The dispatcher calls this
// after acting on a transcript, mirroring an explicit transcript reset.
func (a *Adapter) ResetLast() {
	a.mu.Lock()
	a.last = ""
	a.mu.Unlock()
}

// OnListeningChange registers a listener for listening-state changes.
func (a *Adapter) OnListeningChange(fn func(listening bool)) {
	a.mu.Lock()
	a.listeners = append(a.listeners, fn)
	a.mu.Unlock()
}

// OnPermissionChange registers a listener for permission changes.
func (a *Adapter) OnPermissionChange(fn func(Permission)) {
	a.mu.Lock()
	a.permListen = append(a.permListen, fn)
	a.mu.Unlock()
}

func (a *Adapter) handle(ev Event) {
	switch ev.Kind {
	case EventStart:
		a.setListening(true)
		a.cue.Play(CueStart)
	case EventEnd:
		a.setListening(false)
		a.cue.Play(CueStop)
	case EventResult:
		a.acceptResult(ev.Text)
	case EventError:
		a.handleError(ev.Code)
	}
}

func (a *Adapter) acceptResult(text string) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return
	}
	a.mu.Lock()
	if normalized == a.last {
		a.mu.Unlock()
		a.logger.Debug("duplicate transcript suppressed",
			slog.String("text", redact.Text(normalized)))
		return
	}
	a.last = normalized
	a.mu.Unlock()

	a.logger.Info("transcript accepted", slog.String("text", redact.Text(normalized)))
	select {
	case a.transcripts <- Transcript{Text: normalized, ReceivedAt: time.Now()}:
	default:
		a.logger.Warn("transcript dropped, consumer behind")
	}
}

func (a *Adapter) handleError(code string) {
	a.setListening(false)
	switch code {
	case CodeNoSpeech:
		// Transient noise, not user-visible.
		a.logger.Debug("no speech detected")
	case CodeNotAllowed, CodePermissionDenied:
		a.setPermission(PermissionDenied)
		a.logger.Warn("microphone permission denied")
	case CodeAudioCapture:
		a.surface(errorsx.Wrap(codeError(code), errorsx.ReasonRecognizerCapture))
	case CodeNetwork:
		a.surface(errorsx.Wrap(codeError(code), errorsx.ReasonRecognizerNetwork))
	default:
		a.surface(errorsx.Wrap(codeError(code), errorsx.ReasonRecognizerUnknownErr))
	}
}

func (a *Adapter) setListening(v bool) {
	a.mu.Lock()
	if a.listening == v {
		a.mu.Unlock()
		return
	}
	a.listening = v
	listeners := append([]func(bool){}, a.listeners...)
	a.mu.Unlock()
	for _, fn := range listeners {
		fn(v)
	}
}

func (a *Adapter) setPermission(p Permission) {
	a.mu.Lock()
	if a.permission == p {
		a.mu.Unlock()
		return
	}
	a.permission = p
	listeners := append([]func(Permission){}, a.permListen...)
	a.mu.Unlock()
	for _, fn := range listeners {
		fn(p)
	}
}

func (a *Adapter) surface(err error) {
	select {
	case a.errs <- err:
	default:
	}
}

type codeError string

func (c codeError) Error() string { return string(c) }
