package turn

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/aziztlili/sawt/pkg/recognizer"
)

type fakeMic struct {
	starts int32
	stops  int32
}

func (m *fakeMic) StartListening() { atomic.AddInt32(&m.starts, 1) }
func (m *fakeMic) StopListening()  { atomic.AddInt32(&m.stops, 1) }

func (m *fakeMic) startCount() int32 { return atomic.LoadInt32(&m.starts) }
func (m *fakeMic) stopCount() int32  { return atomic.LoadInt32(&m.stops) }

type chanListener chan StateChange

func (l chanListener) OnStateChange(e StateChange) { l <- e }

func testConfig() Config {
	return Config{
		Cooldown:         30 * time.Millisecond,
		RecognizedHold:   40 * time.Millisecond,
		UnrecognizedHold: 20 * time.Millisecond,
		RestartDelay:     10 * time.Millisecond,
	}
}

func waitForCount(t *testing.T, want int32, get func() int32) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if get() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("count %d never reached, got %d", want, get())
}

func TestSpeakingClosesMicAndCooldownReopensIt(t *testing.T) {
	mic := &fakeMic{}
	c := NewController(mic, NewSessionState(), testConfig(), nil, nil)

	c.OnPermissionChange(recognizer.PermissionGranted)
	c.SetShouldListen(true)
	waitForCount(t, 1, mic.startCount)

	c.OnListeningChange(true)
	c.OnSpeakingChange(true)
	if mic.stopCount() == 0 {
		t.Fatalf("speaking did not stop the microphone")
	}
	if c.State() != StateSpeaking {
		t.Fatalf("state = %v", c.State())
	}

	c.OnListeningChange(false)
	c.OnSpeakingChange(false)
	waitForCount(t, 2, mic.startCount)
}

func TestStaleCooldownTimerIsInvalidated(t *testing.T) {
	mic := &fakeMic{}
	c := NewController(mic, NewSessionState(), testConfig(), nil, nil)

	c.OnPermissionChange(recognizer.PermissionGranted)
	c.Session().setShouldListen(true)

	c.OnSpeakingChange(true)
	c.OnSpeakingChange(false)
	// New speech before the cooldown fires must cancel the pending arm.
	c.OnSpeakingChange(true)

	time.Sleep(100 * time.Millisecond)
	if n := mic.startCount(); n != 0 {
		t.Fatalf("stale cooldown timer armed the mic %d times", n)
	}
}

func TestPermissionDenialBlocksAutoArmUntilManualRetry(t *testing.T) {
	mic := &fakeMic{}
	c := NewController(mic, NewSessionState(), testConfig(), nil, nil)

	c.OnPermissionChange(recognizer.PermissionDenied)
	c.SetShouldListen(true)
	time.Sleep(60 * time.Millisecond)
	if n := mic.startCount(); n != 0 {
		t.Fatalf("mic armed %d times while permission denied", n)
	}

	c.RequestManualRetry(func() {
		c.OnPermissionChange(recognizer.PermissionGranted)
	})
	waitForCount(t, 1, mic.startCount)
}

func TestEndProcessingHoldsBeforeRearm(t *testing.T) {
	mic := &fakeMic{}
	c := NewController(mic, NewSessionState(), testConfig(), nil, nil)

	c.OnPermissionChange(recognizer.PermissionGranted)
	c.BeginProcessing()
	if mic.stopCount() == 0 {
		t.Fatalf("processing did not stop the microphone")
	}
	if c.State() != StateProcessing {
		t.Fatalf("state = %v", c.State())
	}

	c.EndProcessing(true)
	time.Sleep(15 * time.Millisecond)
	if n := mic.startCount(); n != 0 {
		t.Fatalf("mic armed before the recognized hold elapsed")
	}
	waitForCount(t, 1, mic.startCount)
	if c.Session().Snapshot().Processing {
		t.Fatalf("processing flag still set after hold")
	}
}

func TestSpeakingDuringHoldStillClearsProcessing(t *testing.T) {
	mic := &fakeMic{}
	c := NewController(mic, NewSessionState(), testConfig(), nil, nil)

	c.OnPermissionChange(recognizer.PermissionGranted)
	c.BeginProcessing()
	c.EndProcessing(true)

	// The reply utterance starts and finishes inside the hold window.
	c.OnSpeakingChange(true)
	time.Sleep(10 * time.Millisecond)
	c.OnSpeakingChange(false)

	waitForCount(t, 1, mic.startCount)
	if c.Session().Snapshot().Processing {
		t.Fatalf("processing flag still set after hold")
	}
}

func TestManualToggleForcesThroughPendingHold(t *testing.T) {
	mic := &fakeMic{}
	c := NewController(mic, NewSessionState(), testConfig(), nil, nil)

	c.OnPermissionChange(recognizer.PermissionGranted)
	c.BeginProcessing()
	c.EndProcessing(true)
	c.OnSpeakingChange(true)
	c.OnSpeakingChange(false)

	c.ToggleListening()
	waitForCount(t, 1, mic.startCount)
	if c.Session().Snapshot().Processing {
		t.Fatalf("processing flag survived a manual toggle")
	}
}

func TestConsecutiveTurnsReopenMic(t *testing.T) {
	mic := &fakeMic{}
	c := NewController(mic, NewSessionState(), testConfig(), nil, nil)

	c.OnPermissionChange(recognizer.PermissionGranted)
	c.SetShouldListen(true)
	waitForCount(t, 1, mic.startCount)

	for turn := int32(1); turn <= 2; turn++ {
		c.OnListeningChange(true)
		c.OnListeningChange(false)
		c.BeginProcessing()
		c.EndProcessing(true)
		c.OnSpeakingChange(true)
		time.Sleep(5 * time.Millisecond)
		c.OnSpeakingChange(false)
		waitForCount(t, turn+1, mic.startCount)
	}
}

func TestToggleListeningPressToTalk(t *testing.T) {
	mic := &fakeMic{}
	c := NewController(mic, NewSessionState(), testConfig(), nil, nil)

	c.OnPermissionChange(recognizer.PermissionGranted)
	c.ToggleListening()
	waitForCount(t, 1, mic.startCount)

	c.OnListeningChange(true)
	c.ToggleListening()
	if mic.stopCount() == 0 {
		t.Fatalf("toggle while listening did not stop the mic")
	}
	if c.Session().Snapshot().ShouldListen {
		t.Fatalf("auto-listen intent survived a manual stop")
	}
}

func TestStateChangeListenerReceivesTransitions(t *testing.T) {
	mic := &fakeMic{}
	c := NewController(mic, NewSessionState(), testConfig(), nil, nil)

	ch := make(chan StateChange, 8)
	c.AddListener(chanListener(ch))

	c.OnSpeakingChange(true)
	select {
	case e := <-ch:
		if e.FromState != StateIdle || e.ToState != StateSpeaking {
			t.Fatalf("unexpected transition %v -> %v", e.FromState, e.ToState)
		}
	case <-time.After(time.Second):
		t.Fatalf("no state change event delivered")
	}
}
