// Package deepgram implements the recognizer engine contract on the
// Deepgram live transcription websocket.
package deepgram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"

	"github.com/aziztlili/sawt/pkg/logging"
	"github.com/aziztlili/sawt/pkg/recognizer"
)

// AudioSource opens one capture stream per armed listen. The engine
// closes the reader when the listen ends.
type AudioSource func() (io.ReadCloser, error)

type Config struct {
	APIKey         string
	Model          string
	Language       string
	SampleRate     int
	Encoding       string
	UtteranceEndMS int
}

// Engine arms one Deepgram live session per Start call. Interim
// results are disabled: the session yields at most one final
// transcript, then ends. The engine never re-arms itself.
type Engine struct {
	cfg    Config
	source AudioSource
	out    chan recognizer.Event
	logger *slog.Logger

	mu       sync.Mutex
	language string
	dgClient *client.WSCallback
	audio    io.ReadCloser
	cancel   context.CancelFunc
	armed    bool
	gotFinal bool
}

func New(cfg Config, source AudioSource, logger *slog.Logger) *Engine {
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "linear16"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:      cfg,
		source:   source,
		out:      make(chan recognizer.Event, 16),
		logger:   logging.NewComponentLogger(logger, "deepgram_stt"),
		language: cfg.Language,
	}
}

func (e *Engine) Name() string { return "deepgram_streaming" }

func (e *Engine) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e.mu.Lock()
	if e.armed {
		e.mu.Unlock()
		return fmt.Errorf("deepgram: already listening")
	}
	lang := e.language
	e.mu.Unlock()

	audio, err := e.source()
	if err != nil {
		return fmt.Errorf("deepgram: open audio source: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)

	clientOptions := &interfaces.ClientOptions{
		EnableKeepAlive: true,
	}
	transcriptOptions := &interfaces.LiveTranscriptionOptions{
		Model:          e.cfg.Model,
		Language:       lang,
		Encoding:       e.cfg.Encoding,
		SampleRate:     e.cfg.SampleRate,
		InterimResults: false,
		VadEvents:      false,
		SmartFormat:    true,
	}
	if e.cfg.UtteranceEndMS > 0 {
		transcriptOptions.UtteranceEndMs = fmt.Sprintf("%d", e.cfg.UtteranceEndMS)
	}

	cb := &callback{parent: e}
	dgClient, err := client.NewWSUsingCallback(runCtx, e.cfg.APIKey, clientOptions, transcriptOptions, cb)
	if err != nil {
		cancel()
		_ = audio.Close()
		e.logger.Error("deepgram client create failed", slog.String("error", err.Error()))
		return err
	}
	if connected := dgClient.Connect(); !connected {
		cancel()
		_ = audio.Close()
		return fmt.Errorf("deepgram: connection failed")
	}

	e.mu.Lock()
	e.armed = true
	e.gotFinal = false
	e.dgClient = dgClient
	e.audio = audio
	e.cancel = cancel
	e.mu.Unlock()

	e.logger.Info("deepgram session armed",
		slog.String("model", e.cfg.Model),
		slog.String("language", lang))
	e.emit(recognizer.Event{Kind: recognizer.EventStart})

	go func() {
		if err := dgClient.Stream(audio); err != nil && runCtx.Err() == nil {
			e.logger.Error("deepgram stream error", slog.String("error", err.Error()))
		}
	}()
	return nil
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.armed {
		e.mu.Unlock()
		return
	}
	e.armed = false
	dgClient := e.dgClient
	audio := e.audio
	cancel := e.cancel
	e.dgClient = nil
	e.audio = nil
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if audio != nil {
		_ = audio.Close()
	}
	if dgClient != nil {
		dgClient.Stop()
	}
	e.emit(recognizer.Event{Kind: recognizer.EventEnd})
}

func (e *Engine) SetLanguage(tag string) {
	e.mu.Lock()
	e.language = tag
	e.mu.Unlock()
}

func (e *Engine) Events() <-chan recognizer.Event { return e.out }

func (e *Engine) emit(ev recognizer.Event) {
	select {
	case e.out <- ev:
	default:
		e.logger.Warn("event channel full, dropping",
			slog.String("kind", string(ev.Kind)))
	}
}

type callback struct {
	parent *Engine
}

func (c *callback) Open(or *msginterfaces.OpenResponse) error {
	c.parent.logger.Debug("deepgram connection opened")
	return nil
}

func (c *callback) Message(mr *msginterfaces.MessageResponse) error {
	if len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	transcript := mr.Channel.Alternatives[0].Transcript
	if transcript == "" {
		return nil
	}
	if !mr.IsFinal && !mr.SpeechFinal {
		return nil
	}

	e := c.parent
	e.mu.Lock()
	if !e.armed || e.gotFinal {
		e.mu.Unlock()
		return nil
	}
	e.gotFinal = true
	e.mu.Unlock()

	e.logger.Debug("final transcript received",
		slog.Int("chars", len(transcript)))
	e.emit(recognizer.Event{Kind: recognizer.EventResult, Text: transcript})
	// One utterance per armed listen.
	go e.Stop()
	return nil
}

func (c *callback) Metadata(md *msginterfaces.MetadataResponse) error {
	c.parent.logger.Debug("deepgram metadata",
		slog.String("request_id", md.RequestID))
	return nil
}

func (c *callback) SpeechStarted(ssr *msginterfaces.SpeechStartedResponse) error {
	return nil
}

func (c *callback) UtteranceEnd(ur *msginterfaces.UtteranceEndResponse) error {
	e := c.parent
	e.mu.Lock()
	gotFinal := e.gotFinal
	armed := e.armed
	e.mu.Unlock()
	if armed && !gotFinal {
		// Silence ran out before anything was transcribed.
		e.emit(recognizer.Event{Kind: recognizer.EventError, Code: recognizer.CodeNoSpeech})
		go e.Stop()
	}
	return nil
}

func (c *callback) Close(cr *msginterfaces.CloseResponse) error {
	e := c.parent
	e.mu.Lock()
	armed := e.armed
	e.mu.Unlock()
	if armed {
		go e.Stop()
	}
	return nil
}

func (c *callback) Error(er *msginterfaces.ErrorResponse) error {
	e := c.parent
	e.logger.Error("deepgram error",
		slog.String("error_code", er.ErrCode),
		slog.String("error_message", er.ErrMsg))
	e.emit(recognizer.Event{Kind: recognizer.EventError, Code: mapErrorCode(er.ErrCode)})
	go e.Stop()
	return nil
}

func (c *callback) UnhandledEvent(byData []byte) error {
	c.parent.logger.Debug("deepgram unhandled event",
		slog.Int("bytes", len(byData)))
	return nil
}

// mapErrorCode folds provider error codes into the adapter taxonomy.
func mapErrorCode(code string) string {
	lower := strings.ToLower(code)
	switch {
	case strings.Contains(lower, "auth"), strings.Contains(lower, "forbidden"):
		return recognizer.CodeNotAllowed
	case strings.Contains(lower, "audio"), strings.Contains(lower, "capture"):
		return recognizer.CodeAudioCapture
	default:
		return recognizer.CodeNetwork
	}
}

var _ recognizer.Engine = (*Engine)(nil)
