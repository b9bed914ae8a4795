package metrics

import (
	"strings"
	"testing"
	"time"
)

func TestMemoryObserverRecords(t *testing.T) {
	m := NewMemoryObserver()
	TurnTransition(m, "IDLE", "LISTENING")
	CommandResult(m, "banking", true)

	events := m.Snapshot()
	if len(events) != 2 {
		t.Fatalf("events = %d", len(events))
	}
	if events[0].Name != "turn_transition" || events[0].Tags["to"] != "LISTENING" {
		t.Fatalf("first event = %+v", events[0])
	}
	if events[1].Name != "command_result" || events[1].Value != 1 {
		t.Fatalf("second event = %+v", events[1])
	}
}

func TestAsyncObserverForwardsAndDrops(t *testing.T) {
	m := NewMemoryObserver()
	a := NewAsyncObserver(m, 4)

	UtteranceSpoken(a, "fr", 42)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(m.Snapshot()) == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(m.Snapshot()) != 1 {
		t.Fatalf("event not forwarded")
	}

	a.Close()
	UtteranceSpoken(a, "fr", 1)
	if got := m.Snapshot(); len(got) != 1 {
		t.Fatalf("event recorded after close: %d", len(got))
	}
}

func TestJSONLObserverWritesOneLine(t *testing.T) {
	var sb strings.Builder
	o := NewJSONLObserver(&sb)
	UtteranceSpoken(o, "ar", 10)

	out := sb.String()
	if !strings.Contains(out, `"name":"utterance_spoken"`) {
		t.Fatalf("output = %q", out)
	}
	if strings.Count(strings.TrimSpace(out), "\n") != 0 {
		t.Fatalf("expected a single line, got %q", out)
	}
}
