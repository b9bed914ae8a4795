// Package sawt assembles the voice assistant: recognizer adapter,
// speech queue, turn controller, dialogue modules, command dispatcher
// and the websocket control gateway.
package sawt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/aziztlili/sawt/pkg/banking"
	"github.com/aziztlili/sawt/pkg/dialogue"
	"github.com/aziztlili/sawt/pkg/dispatcher"
	"github.com/aziztlili/sawt/pkg/gateway"
	"github.com/aziztlili/sawt/pkg/lang"
	"github.com/aziztlili/sawt/pkg/logging"
	"github.com/aziztlili/sawt/pkg/metrics"
	"github.com/aziztlili/sawt/pkg/payment"
	"github.com/aziztlili/sawt/pkg/recognizer"
	"github.com/aziztlili/sawt/pkg/redact"
	"github.com/aziztlili/sawt/pkg/runner"
	"github.com/aziztlili/sawt/pkg/shopping"
	"github.com/aziztlili/sawt/pkg/speech"
	"github.com/aziztlili/sawt/pkg/synth"
	"github.com/aziztlili/sawt/pkg/turn"
)

// Backend is the persistence surface the dialogue modules share.
type Backend interface {
	banking.Bank
	shopping.Cart
	payment.Ledger
}

// Options wires the engine's collaborators.
type Options struct {
	Config      Config
	Recognizer  recognizer.Engine
	Synthesizer synth.Synthesizer
	Backend     Backend
	Payments    payment.Provider
	Cue         recognizer.CuePlayer
	Observer    metrics.Observer
	Logger      *slog.Logger
	// FirstVisit plays the onboarding announcement before the welcome.
	FirstVisit bool
}

// Engine owns one voice session end to end.
type Engine struct {
	cfg        Config
	id         string
	logger     *slog.Logger
	firstVisit bool

	queue      *speech.Queue
	adapter    *recognizer.Adapter
	session    *turn.SessionState
	controller *turn.Controller
	banking    *banking.Module
	shopping   *shopping.Module
	dispatcher *dispatcher.Dispatcher

	gw       *gateway.Gateway
	gwServer *http.Server

	asyncObs    *metrics.AsyncObserver
	metricsFile *os.File
	runner      *runner.LifecycleRunner

	settingsOpen atomic.Bool
	ctx          context.Context
	cancel       context.CancelFunc
}

func NewEngine(opts Options) (*Engine, error) {
	cfg := opts.Config
	if opts.Recognizer == nil {
		return nil, fmt.Errorf("missing recognizer engine")
	}
	if opts.Synthesizer == nil {
		return nil, fmt.Errorf("missing synthesizer")
	}
	if opts.Backend == nil {
		return nil, fmt.Errorf("missing backend")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.InitLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	}
	redact.SetEnabled(cfg.Privacy.RedactPII)

	slog.SetDefault(logger)
	logger.Info("sawt_init",
		slog.String("environment", cfg.Environment),
		slog.String("stt_provider", opts.Recognizer.Name()),
		slog.String("tts_provider", opts.Synthesizer.Name()),
		slog.String("language", cfg.Language.Default))

	obs := opts.Observer
	var metricsFile *os.File
	if obs == nil {
		if path := strings.TrimSpace(cfg.Observability.MetricsPath); path != "" {
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open metrics sink: %w", err)
			}
			metricsFile = f
			obs = metrics.NewJSONLObserver(f)
		} else {
			obs = metrics.NoopObserver{}
		}
	}
	asyncObs := metrics.NewAsyncObserver(obs, cfg.Observability.AsyncBuffer)

	e := &Engine{
		cfg:         cfg,
		id:          uuid.NewString(),
		logger:      logger,
		firstVisit:  opts.FirstVisit,
		asyncObs:    asyncObs,
		metricsFile: metricsFile,
	}

	e.session = turn.NewSessionState()
	e.queue = speech.NewQueue(opts.Synthesizer, cfg.SpeechConfig(),
		logging.NewComponentLogger(logger, "speech_queue"), asyncObs)
	e.adapter = recognizer.NewAdapter(opts.Recognizer,
		logging.NewComponentLogger(logger, "recognizer"), recognizer.Options{
			Busy: func() bool {
				snap := e.session.Snapshot()
				return snap.Speaking || snap.Processing
			},
			Cue: opts.Cue,
		})
	e.controller = turn.NewController(e.adapter, e.session, cfg.TurnConfig(),
		logging.NewComponentLogger(logger, "turn"), asyncObs)

	e.queue.OnSpeakingChange(func(speaking bool) {
		e.controller.OnSpeakingChange(speaking)
		e.broadcast()
	})
	e.adapter.OnListeningChange(func(listening bool) {
		e.controller.OnListeningChange(listening)
		e.broadcast()
	})
	e.adapter.OnPermissionChange(func(p recognizer.Permission) {
		e.controller.OnPermissionChange(p)
		e.broadcast()
	})

	msgs := dialogue.Messages(func() lang.Messages {
		return lang.Catalog(e.dispatcher.Language())
	})
	trigger := e.paymentTrigger(opts.Payments, cfg.Banking.User)
	e.banking = banking.New(opts.Backend, trigger, e.queue, msgs,
		cfg.BankingConfig(), logging.NewComponentLogger(logger, "banking"))
	e.shopping = shopping.New(opts.Backend, trigger, e.queue, msgs,
		cfg.ShoppingConfig(), logging.NewComponentLogger(logger, "shopping"))

	startLang := lang.Language(cfg.Language.Default)
	e.dispatcher = dispatcher.New(dispatcher.Options{
		Banking:          e.banking,
		Shopping:         e.shopping,
		Speaker:          e.queue,
		Language:         startLang,
		OnLanguageChange: e.applyLanguage,
		OnManualListen:   e.manualListen,
		OnSettingsToggle: func(open bool) {
			e.settingsOpen.Store(open)
			e.broadcast()
		},
		Logger:   logging.NewComponentLogger(logger, "dispatcher"),
		Observer: asyncObs,
		Config:   cfg.DispatcherConfig(),
	})
	e.applyLanguage(startLang)
	e.controller.AddListener(e)

	if cfg.Gateway.Enabled {
		e.gw = gateway.New(e, e.status,
			logging.NewComponentLogger(logger, "gateway"))
		mux := http.NewServeMux()
		mux.Handle("/ws", e.gw)
		e.gwServer = &http.Server{Addr: cfg.Gateway.Addr, Handler: mux}
	}

	drainer := runner.DrainerFunc(func() error {
		e.controller.SetShouldListen(false)
		e.adapter.StopListening()
		e.queue.CancelAll()
		e.queue.Close()
		if e.gwServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = e.gwServer.Shutdown(ctx)
		}
		return nil
	})
	hooks := runner.Hooks{
		OnStart: func() {
			logger.Info("engine_ready",
				slog.String("session_id", e.id),
				slog.String("message", "Sawt Engine Ready"))
		},
		OnStop: func() {
			asyncObs.Close()
			if e.metricsFile != nil {
				_ = e.metricsFile.Close()
			}
			logger.Info("shutdown", slog.Int("goroutines", runtime.NumGoroutine()))
		},
	}
	e.runner = runner.NewLifecycleRunner(drainer, hooks, 10*time.Second)
	return e, nil
}

// Start announces the welcome, opens the microphone loop and, when
// configured, the websocket gateway. It returns immediately.
func (e *Engine) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e.ctx, e.cancel = context.WithCancel(ctx)

	if e.gwServer != nil {
		go func() {
			if err := e.gwServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				e.logger.Error("gateway server failed", slog.String("error", err.Error()))
			}
		}()
	}
	go e.adapter.Run(e.ctx)
	go e.loop(e.ctx)
	go func() {
		_ = e.runner.Run(e.ctx)
	}()

	e.announce()
	e.controller.SetShouldListen(true)
	return nil
}

// Stop drains the session.
func (e *Engine) Stop() error {
	if e.cancel != nil {
		e.cancel()
	}
	return e.runner.Stop()
}

// SessionID identifies this engine run.
func (e *Engine) SessionID() string { return e.id }

// Dispatcher exposes the command router, mainly for tests and demos.
func (e *Engine) Dispatcher() *dispatcher.Dispatcher { return e.dispatcher }

// Controller exposes the turn arbiter.
func (e *Engine) Controller() *turn.Controller { return e.controller }

// loop consumes accepted transcripts one at a time. Each transcript is
// a full turn: close the mic, dispatch, reset the duplicate comparator,
// then hold before the mic reopens.
func (e *Engine) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-e.adapter.Transcripts():
			if !ok {
				return
			}
			e.controller.BeginProcessing()
			recognized := e.dispatcher.Dispatch(t.Text)
			e.adapter.ResetLast()
			e.controller.EndProcessing(recognized)
			e.broadcast()
		case err, ok := <-e.adapter.Errors():
			if !ok {
				return
			}
			e.logger.Warn("recognition error", slog.String("error", err.Error()))
			e.broadcast()
		}
	}
}

func (e *Engine) announce() {
	msgs := lang.Catalog(e.dispatcher.Language())
	if e.firstVisit {
		e.queue.Enqueue(msgs.Onboarding, nil)
	}
	e.queue.Enqueue(msgs.Welcome, nil)
}

// ToggleListening is the press-to-talk control.
func (e *Engine) ToggleListening() { e.controller.ToggleListening() }

// Repeat replays the last spoken message.
func (e *Engine) Repeat() { e.dispatcher.Repeat() }

// GoHome resets both modules and returns to the home screen.
func (e *Engine) GoHome() { e.dispatcher.GoHome() }

// Help speaks the contextual help message.
func (e *Engine) Help() { e.dispatcher.Help() }

// ToggleSlowMode flips the slow playback rate and announces the new
// mode.
func (e *Engine) ToggleSlowMode() {
	slow := !e.queue.SlowMode()
	e.queue.SetSlowMode(slow)
	msgs := lang.Catalog(e.dispatcher.Language())
	if slow {
		e.queue.Enqueue(msgs.SlowModeOn, nil)
	} else {
		e.queue.Enqueue(msgs.SlowModeOff, nil)
	}
	e.broadcast()
}

// RetryPermission re-requests microphone access after a denial.
func (e *Engine) RetryPermission() {
	e.controller.RequestManualRetry(e.adapter.RequestRetry)
}

func (e *Engine) applyLanguage(l lang.Language) {
	e.adapter.SetLanguage(l.RecognitionTag())
	e.queue.SetLanguage(l)
	e.broadcast()
}

func (e *Engine) manualListen() {
	if e.adapter.Permission() == recognizer.PermissionDenied {
		e.RetryPermission()
		return
	}
	e.controller.SetShouldListen(true)
}

// paymentTrigger folds the provider's create-and-confirm flow into the
// single-shot trigger the dialogue modules call. It is never retried.
func (e *Engine) paymentTrigger(provider payment.Provider, user string) dialogue.PaymentTrigger {
	if provider == nil {
		return func(amount float64) (dialogue.PaymentResult, error) {
			return dialogue.PaymentResult{}, fmt.Errorf("no payment provider configured")
		}
	}
	return func(amount float64) (dialogue.PaymentResult, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		sess, err := provider.CreateSession(ctx, user, amount)
		if err != nil {
			return dialogue.PaymentResult{}, err
		}
		res, err := provider.Confirm(ctx, sess.ID, amount)
		if err != nil {
			return dialogue.PaymentResult{}, err
		}
		return dialogue.PaymentResult{Succeeded: res.Succeeded, NewBalance: res.NewBalance}, nil
	}
}

func (e *Engine) status() gateway.Status {
	snap := e.session.Snapshot()
	return gateway.Status{
		Type:        "status",
		TurnState:   e.controller.State().String(),
		Listening:   snap.Listening,
		Speaking:    snap.Speaking,
		Processing:  snap.Processing,
		Permission:  string(snap.Permission),
		Language:    string(e.dispatcher.Language()),
		Screen:      string(e.dispatcher.Screen()),
		SlowMode:    e.queue.SlowMode(),
		LastMessage: e.queue.LastSpoken(),
		QueueLength: e.queue.QueueLen(),
	}
}

// OnStateChange pushes every turn transition to gateway clients.
func (e *Engine) OnStateChange(turn.StateChange) {
	e.broadcast()
}

func (e *Engine) broadcast() {
	if e.gw != nil {
		e.gw.Broadcast()
	}
}
