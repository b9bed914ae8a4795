// Package dialogue defines the shared shape of the per-module
// conversational state machines. Slots and dialogue state mutate only
// inside a transition; asynchronous effects re-enter through a
// completion transition instead of touching state directly.
package dialogue

import "github.com/aziztlili/sawt/pkg/lang"

// Speaker is the slice of the speech queue the modules talk through.
type Speaker interface {
	Enqueue(text string, onComplete func())
}

// Messages resolves the catalog for the currently active language.
// Modules call it on every transition so a language switch mid-flow
// takes effect immediately.
type Messages func() lang.Messages

// Machine is one per-module dialogue state machine. HandleTranscript
// reports whether the transcript produced a transition; unhandled
// transcripts feed the dispatcher's miss counter.
type Machine interface {
	Name() string
	HandleTranscript(text string) bool
	// Announce speaks the module entry announcement.
	Announce()
	// Reset returns the machine to idle with all slots cleared.
	Reset()
}

// PaymentResult is what the injected payment trigger reports back.
type PaymentResult struct {
	Succeeded  bool
	NewBalance float64
}

// PaymentTrigger runs the payment collaborator's create-and-confirm
// flow for amount. It is handed to each module at construction; modules
// never discover it globally. Payment effects are never retried.
type PaymentTrigger func(amount float64) (PaymentResult, error)
