// Package mock holds deterministic providers for tests and demos.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/aziztlili/sawt/pkg/recognizer"
)

// Engine is a scriptable recognizer. Each Start drains one scripted
// arm: a start event, then either a result or an error, then an end
// event. Tests push arms with Script and ScriptError.
type Engine struct {
	mu      sync.Mutex
	out     chan recognizer.Event
	arms    []arm
	tag     string
	started bool
}

type arm struct {
	text string
	code string
}

func NewEngine() *Engine {
	return &Engine{out: make(chan recognizer.Event, 16)}
}

func (e *Engine) Name() string { return "mock_stt" }

// Script queues one arm that yields a final result.
func (e *Engine) Script(text string) {
	e.mu.Lock()
	e.arms = append(e.arms, arm{text: text})
	e.mu.Unlock()
}

// ScriptError queues one arm that yields an error event.
func (e *Engine) ScriptError(code string) {
	e.mu.Lock()
	e.arms = append(e.arms, arm{code: code})
	e.mu.Unlock()
}

func (e *Engine) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return errors.New("already started")
	}
	e.started = true
	var next arm
	has := len(e.arms) > 0
	if has {
		next = e.arms[0]
		e.arms = e.arms[1:]
	}
	e.mu.Unlock()

	e.out <- recognizer.Event{Kind: recognizer.EventStart}
	if has {
		if next.code != "" {
			e.out <- recognizer.Event{Kind: recognizer.EventError, Code: next.code}
		} else {
			e.out <- recognizer.Event{Kind: recognizer.EventResult, Text: next.text}
		}
	}
	e.out <- recognizer.Event{Kind: recognizer.EventEnd}

	e.mu.Lock()
	e.started = false
	e.mu.Unlock()
	return nil
}

func (e *Engine) Stop() {
	e.mu.Lock()
	started := e.started
	e.started = false
	e.mu.Unlock()
	if started {
		e.out <- recognizer.Event{Kind: recognizer.EventEnd}
	}
}

func (e *Engine) SetLanguage(tag string) {
	e.mu.Lock()
	e.tag = tag
	e.mu.Unlock()
}

// Language reports the last tag passed to SetLanguage.
func (e *Engine) Language() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tag
}

func (e *Engine) Events() <-chan recognizer.Event { return e.out }

var _ recognizer.Engine = (*Engine)(nil)
