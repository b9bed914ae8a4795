// Package recognizer wraps a speech recognition engine behind the
// adapter that owns transcript acceptance, permission tracking and the
// error taxonomy.
package recognizer

import "context"

// EventKind tags an engine event.
type EventKind string

const (
	EventStart  EventKind = "start"
	EventResult EventKind = "result"
	EventEnd    EventKind = "end"
	EventError  EventKind = "error"
)

// Event is one signal from the underlying engine.
type Event struct {
	Kind EventKind
	// Text carries the final transcript for EventResult.
	Text string
	// Code carries the provider error code for EventError.
	Code string
}

// Engine defines the contract for any recognition vendor
// implementation. Continuous mode is disabled by contract: one armed
// listen yields at most one final result followed by EventEnd, and the
// engine never re-arms itself.
type Engine interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// Start arms the engine for a single utterance.
	Start(ctx context.Context) error
	// Stop requests a stop of the current listen. Idempotent.
	Stop()
	// SetLanguage switches the recognition language tag.
	SetLanguage(tag string)
	// Events returns the engine's event stream.
	Events() <-chan Event
}

// Provider error codes the adapter maps into its taxonomy.
const (
	CodeNoSpeech         = "no-speech"
	CodeNotAllowed       = "not-allowed"
	CodePermissionDenied = "permission-denied"
	CodeAudioCapture     = "audio-capture"
	CodeNetwork          = "network"
)
