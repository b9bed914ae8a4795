package metrics

import "time"

type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

type Flusher interface {
	Flush() error
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}

// TurnTransition records a turn-state change with the old and new states.
func TurnTransition(obs Observer, from, to string) {
	if obs == nil {
		return
	}
	obs.RecordEvent(MetricsEvent{
		Name:  "turn_transition",
		Time:  time.Now(),
		Value: 1,
		Tags:  map[string]string{"from": from, "to": to},
	})
}

// UtteranceSpoken records a completed speech output with its text length.
func UtteranceSpoken(obs Observer, lang string, chars int) {
	if obs == nil {
		return
	}
	obs.RecordEvent(MetricsEvent{
		Name:  "utterance_spoken",
		Time:  time.Now(),
		Value: float64(chars),
		Tags:  map[string]string{"lang": lang},
	})
}

// CommandResult records whether a transcript matched a command.
func CommandResult(obs Observer, kind string, matched bool) {
	if obs == nil {
		return
	}
	v := 0.0
	if matched {
		v = 1.0
	}
	obs.RecordEvent(MetricsEvent{
		Name:  "command_result",
		Time:  time.Now(),
		Value: v,
		Tags:  map[string]string{"kind": kind},
	})
}
