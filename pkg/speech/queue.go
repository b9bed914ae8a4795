// Package speech implements the ordered speech output queue: strict
// FIFO, a single in-flight utterance, chunking for over-long text and
// graceful degradation on synthesis errors.
package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/aziztlili/sawt/pkg/lang"
	"github.com/aziztlili/sawt/pkg/metrics"
	"github.com/aziztlili/sawt/pkg/synth"
)

// Config tunes queue behavior.
type Config struct {
	// ChunkSize is the maximum chunk length re-enqueued after the
	// engine reports the text is too long.
	ChunkSize int
	// Gap is the pause between consecutive utterances.
	Gap time.Duration
	// Rate is the playback rate passed to the synthesizer.
	Rate float64
	// SlowRate replaces Rate while slow mode is enabled.
	SlowRate float64
}

type item struct {
	text       string
	onComplete func()
}

// Queue serializes speech output. Exactly one utterance plays at a
// time; consumers never retain the utterance after enqueuing.
type Queue struct {
	mu        sync.Mutex
	items     []item
	speaking  bool
	slow      bool
	last      string
	language  lang.Language
	cancel    context.CancelFunc
	listeners []func(bool)
	closed    bool

	wake chan struct{}
	done chan struct{}

	synth  synth.Synthesizer
	cfg    Config
	logger *slog.Logger
	obs    metrics.Observer
}

// NewQueue builds a queue and starts its worker goroutine.
func NewQueue(s synth.Synthesizer, cfg Config, logger *slog.Logger, obs metrics.Observer) *Queue {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 150
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 0.9
	}
	if cfg.SlowRate <= 0 {
		cfg.SlowRate = 0.75
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		synth:    s,
		cfg:      cfg,
		logger:   logger,
		obs:      obs,
		language: lang.Default,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go q.loop()
	return q
}

// SetLanguage switches the voice used for subsequent utterances.
func (q *Queue) SetLanguage(l lang.Language) {
	q.mu.Lock()
	q.language = l
	q.mu.Unlock()
}

// SetSlowMode switches subsequent utterances to the slow playback rate.
func (q *Queue) SetSlowMode(on bool) {
	q.mu.Lock()
	q.slow = on
	q.mu.Unlock()
}

// SlowMode reports whether slow mode is enabled.
func (q *Queue) SlowMode() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.slow
}

// Enqueue appends text to the queue. Processing starts automatically
// when the queue is idle. onComplete may be nil.
func (q *Queue) Enqueue(text string, onComplete func()) {
	if strings.TrimSpace(text) == "" {
		if onComplete != nil {
			go onComplete()
		}
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		if onComplete != nil {
			go onComplete()
		}
		return
	}
	q.items = append(q.items, item{text: text, onComplete: onComplete})
	q.mu.Unlock()
	q.kick()
}

// FlushAndSpeak cancels the current playback and every queued item,
// then speaks text immediately. Pending completion callbacks still fire
// so no caller is left waiting.
func (q *Queue) FlushAndSpeak(text string) {
	q.drain(true)
	q.Enqueue(text, nil)
}

// CancelAll empties the queue, stops current playback and fires every
// pending onComplete callback.
func (q *Queue) CancelAll() {
	q.drain(true)
}

// IsSpeaking reports whether an utterance is currently in flight.
func (q *Queue) IsSpeaking() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.speaking
}

// QueueLen returns the number of queued, not-yet-started utterances.
func (q *Queue) QueueLen() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// LastSpoken returns the text of the most recently started utterance.
// Used by the repeat command.
func (q *Queue) LastSpoken() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.last
}

// OnSpeakingChange registers a listener notified when the queue starts
// or stops producing audio. The turn controller subscribes here.
func (q *Queue) OnSpeakingChange(fn func(speaking bool)) {
	q.mu.Lock()
	q.listeners = append(q.listeners, fn)
	q.mu.Unlock()
}

// Close stops the worker. Pending callbacks fire as in CancelAll.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	q.drain(true)
	close(q.done)
}

func (q *Queue) kick() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// drain clears the queue; when interrupt is set the in-flight utterance
// is cancelled too. Callbacks run outside the lock.
func (q *Queue) drain(interrupt bool) {
	q.mu.Lock()
	pending := q.items
	q.items = nil
	cancel := q.cancel
	q.mu.Unlock()

	if interrupt && cancel != nil {
		cancel()
	}
	for _, it := range pending {
		if it.onComplete != nil {
			it.onComplete()
		}
	}
}

func (q *Queue) loop() {
	for {
		select {
		case <-q.done:
			return
		case <-q.wake:
		}
		for {
			q.mu.Lock()
			if q.closed || len(q.items) == 0 {
				q.mu.Unlock()
				break
			}
			next := q.items[0]
			q.items = q.items[1:]
			q.last = next.text
			language := q.language
			rate := q.cfg.Rate
			if q.slow {
				rate = q.cfg.SlowRate
			}
			ctx, cancel := context.WithCancel(context.Background())
			q.cancel = cancel
			q.speaking = true
			listeners := append([]func(bool){}, q.listeners...)
			q.mu.Unlock()

			for _, fn := range listeners {
				fn(true)
			}

			requeued := q.play(ctx, next, language, rate)
			cancel()

			q.mu.Lock()
			q.speaking = false
			q.cancel = nil
			listeners = append([]func(bool){}, q.listeners...)
			q.mu.Unlock()

			for _, fn := range listeners {
				fn(false)
			}

			if !requeued && q.cfg.Gap > 0 {
				time.Sleep(q.cfg.Gap)
			}
		}
	}
}

// play speaks one item. Returns true when the item was split into
// chunks and re-enqueued instead of completing.
func (q *Queue) play(ctx context.Context, it item, language lang.Language, rate float64) bool {
	voice, err := synth.SelectVoice(q.synth.Voices(), language.Primary(), q.logger)
	if err != nil {
		q.logger.Error("no synthesis voice available", slog.String("lang", string(language)))
		q.complete(it)
		return false
	}

	err = q.synth.Speak(ctx, synth.Request{
		Text:  it.text,
		Voice: voice,
		Lang:  language.SynthesisTag(),
		Rate:  rate,
	})
	switch {
	case err == nil:
		metrics.UtteranceSpoken(q.obs, string(language), len(it.text))
	case errors.Is(err, synth.ErrTextTooLong):
		chunks := Chunk(it.text, q.cfg.ChunkSize)
		q.logger.Debug("utterance too long, chunking",
			slog.Int("chunks", len(chunks)), slog.Int("chars", len(it.text)))
		q.requeueChunks(chunks, it.onComplete)
		q.kick()
		return true
	case errors.Is(err, synth.ErrInterrupted), errors.Is(err, context.Canceled):
		// Intentional cancellation counts as normal completion.
	default:
		q.logger.Error("synthesis failed, advancing queue", slog.Any("error", err))
	}
	q.complete(it)
	return false
}

func (q *Queue) complete(it item) {
	if it.onComplete != nil {
		it.onComplete()
	}
}

// requeueChunks pushes the chunks to the front of the queue in order,
// attaching the original completion callback to the final chunk only.
func (q *Queue) requeueChunks(chunks []string, onComplete func()) {
	items := make([]item, len(chunks))
	for i, c := range chunks {
		items[i] = item{text: c}
	}
	if len(items) > 0 {
		items[len(items)-1].onComplete = onComplete
	}
	q.mu.Lock()
	q.items = append(items, q.items...)
	q.mu.Unlock()
}

// Chunk splits text into pieces of at most size characters, preferring
// the last space inside each window so words survive intact.
func Chunk(text string, size int) []string {
	if size <= 0 || len(text) <= size {
		return []string{text}
	}
	var out []string
	for len(text) > size {
		cut := strings.LastIndex(text[:size], " ")
		if cut <= 0 {
			cut = size
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = size
			}
		}
		out = append(out, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}
