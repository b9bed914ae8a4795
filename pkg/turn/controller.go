// Package turn implements the turn-taking controller: the single
// arbiter deciding when the recognizer may listen, driven by speech
// queue state, command processing and cooldown timers.
package turn

import (
	"log/slog"
	"sync"
	"time"

	"github.com/aziztlili/sawt/pkg/metrics"
	"github.com/aziztlili/sawt/pkg/recognizer"
)

// Mic is the slice of the recognizer adapter the controller drives.
type Mic interface {
	StartListening()
	StopListening()
}

// Config carries the empirically tuned delays. All of them are
// configuration, never hard-coded call sites.
type Config struct {
	// Cooldown elapses after speaking ends before listening may resume,
	// so the recognizer does not pick up the tail of synthesized audio.
	Cooldown time.Duration
	// RecognizedHold is how long processing is held after a recognized
	// command, letting the just-enqueued utterance start playing.
	RecognizedHold time.Duration
	// UnrecognizedHold is the shorter hold after unrecognized input.
	UnrecognizedHold time.Duration
	// RestartDelay precedes every automatic re-arm of the microphone.
	RestartDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Cooldown <= 0 {
		c.Cooldown = time.Second
	}
	if c.RecognizedHold <= 0 {
		c.RecognizedHold = 3 * time.Second
	}
	if c.UnrecognizedHold <= 0 {
		c.UnrecognizedHold = 1500 * time.Millisecond
	}
	if c.RestartDelay <= 0 {
		c.RestartDelay = 800 * time.Millisecond
	}
	return c
}

// Controller is the process-wide turn arbiter. Every scheduled re-arm
// carries a generation token; any newer transition bumps the generation
// so stale timers cannot reactivate listening.
type Controller struct {
	mu         sync.Mutex
	cfg        Config
	state      State
	generation uint64
	timer      *time.Timer
	holdGen    uint64
	holdTimer  *time.Timer
	listeners  []StateListener

	session *SessionState
	mic     Mic
	logger  *slog.Logger
	obs     metrics.Observer
}

func NewController(mic Mic, session *SessionState, cfg Config, logger *slog.Logger, obs metrics.Observer) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if session == nil {
		session = NewSessionState()
	}
	return &Controller{
		cfg:     cfg.withDefaults(),
		state:   StateIdle,
		session: session,
		mic:     mic,
		logger:  logger,
		obs:     obs,
	}
}

// State returns the current turn state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the shared session state.
func (c *Controller) Session() *SessionState {
	return c.session
}

// AddListener registers a listener for state change events.
func (c *Controller) AddListener(l StateListener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

// OnSpeakingChange is wired to the speech queue. Speaking and listening
// are mutually exclusive: a speaking start stops the microphone
// immediately; a speaking end schedules a cooldown re-arm.
func (c *Controller) OnSpeakingChange(speaking bool) {
	c.session.setSpeaking(speaking)
	if speaking {
		c.transition(StateSpeaking, "speech output started")
		c.mic.StopListening()
		return
	}
	c.mu.Lock()
	notify := noNotify
	if c.state == StateSpeaking {
		notify = c.transitionLocked(StateIdle, "speech output ended")
	}
	c.scheduleArmLocked(c.cfg.Cooldown)
	c.mu.Unlock()
	notify()
}

// OnListeningChange is wired to the recognizer adapter.
func (c *Controller) OnListeningChange(listening bool) {
	c.session.setListening(listening)
	if listening {
		c.transition(StateListening, "microphone armed")
		return
	}
	c.mu.Lock()
	notify := noNotify
	if c.state == StateListening {
		notify = c.transitionLocked(StateIdle, "utterance ended")
		// The engine auto-stops after one utterance. If no transcript
		// follows, this re-arm brings the mic back; if one does, the
		// processing transition supersedes it.
		c.scheduleArmLocked(c.cfg.RestartDelay)
	}
	c.mu.Unlock()
	notify()
}

// OnPermissionChange is wired to the recognizer adapter. A denial
// disables automatic re-arms until RequestManualRetry.
func (c *Controller) OnPermissionChange(p recognizer.Permission) {
	c.session.setPermission(p)
	if p == recognizer.PermissionDenied {
		c.mu.Lock()
		c.generation++
		c.stopHoldLocked()
		c.mu.Unlock()
		c.session.setProcessing(false)
		c.session.setShouldListen(false)
		c.logger.Warn("permission denied, automatic listening disabled")
	}
}

// BeginProcessing marks the start of a command reaction. The microphone
// closes and stays closed until EndProcessing's hold elapses.
func (c *Controller) BeginProcessing() {
	c.mu.Lock()
	c.stopHoldLocked()
	c.mu.Unlock()
	c.session.setProcessing(true)
	c.session.setShouldListen(false)
	c.transition(StateProcessing, "processing transcript")
	c.mic.StopListening()
}

// EndProcessing ends a command reaction. The hold is longer when a
// command was recognized so its utterance starts before the mic
// reopens. The hold always clears the processing flag when it elapses;
// speaking and listening transitions during the hold only affect the
// re-arm, which stays generation-gated. Only a new command or a manual
// action cancels a hold.
func (c *Controller) EndProcessing(recognized bool) {
	hold := c.cfg.UnrecognizedHold
	if recognized {
		hold = c.cfg.RecognizedHold
	}
	c.mu.Lock()
	notify := noNotify
	if c.state == StateProcessing {
		notify = c.transitionLocked(StateIdle, "processing complete")
	}
	c.bumpLocked()
	hg := c.stopHoldLocked()
	c.holdTimer = time.AfterFunc(hold, func() {
		c.mu.Lock()
		if hg != c.holdGen {
			c.mu.Unlock()
			return
		}
		c.holdTimer = nil
		c.mu.Unlock()
		c.session.setProcessing(false)
		c.session.setShouldListen(true)
		c.mu.Lock()
		c.scheduleArmLocked(c.cfg.RestartDelay)
		c.mu.Unlock()
	})
	c.mu.Unlock()
	notify()
}

// ToggleListening is the press-to-talk path: it forces a transition
// outside the timers, still honoring the speaking exclusion.
func (c *Controller) ToggleListening() {
	snap := c.session.Snapshot()
	if snap.Listening {
		c.mu.Lock()
		c.generation++
		c.stopHoldLocked()
		c.mu.Unlock()
		c.session.setProcessing(false)
		c.session.setShouldListen(false)
		c.mic.StopListening()
		return
	}
	if snap.Permission == recognizer.PermissionDenied {
		return
	}
	c.mu.Lock()
	c.stopHoldLocked()
	c.mu.Unlock()
	c.session.setProcessing(false)
	c.session.setShouldListen(true)
	c.mu.Lock()
	c.scheduleArmLocked(300 * time.Millisecond)
	c.mu.Unlock()
}

// RequestManualRetry re-enables listening after a permission denial.
func (c *Controller) RequestManualRetry(retry func()) {
	if retry != nil {
		retry()
	}
	c.mu.Lock()
	c.stopHoldLocked()
	c.mu.Unlock()
	c.session.setProcessing(false)
	c.session.setShouldListen(true)
	c.mu.Lock()
	c.scheduleArmLocked(c.cfg.RestartDelay)
	c.mu.Unlock()
}

// SetShouldListen flips the auto-listen intent, arming when enabled.
func (c *Controller) SetShouldListen(v bool) {
	c.session.setShouldListen(v)
	if v {
		c.mu.Lock()
		c.stopHoldLocked()
		c.mu.Unlock()
		c.session.setProcessing(false)
		c.mu.Lock()
		c.scheduleArmLocked(c.cfg.RestartDelay)
		c.mu.Unlock()
	} else {
		c.mu.Lock()
		c.generation++
		c.stopHoldLocked()
		c.mu.Unlock()
		c.session.setProcessing(false)
	}
}

// bumpLocked invalidates every outstanding re-arm timer and returns
// the new generation token.
func (c *Controller) bumpLocked() uint64 {
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	return c.generation
}

// stopHoldLocked cancels a pending post-processing hold and returns
// the new hold token. The hold generation is separate from the re-arm
// generation so state transitions never invalidate a hold.
func (c *Controller) stopHoldLocked() uint64 {
	c.holdGen++
	if c.holdTimer != nil {
		c.holdTimer.Stop()
		c.holdTimer = nil
	}
	return c.holdGen
}

// scheduleArmLocked schedules a microphone re-arm after d. The timer is
// a no-op once a newer transition has bumped the generation.
func (c *Controller) scheduleArmLocked(d time.Duration) {
	gen := c.bumpLocked()
	c.timer = time.AfterFunc(d, func() {
		c.mu.Lock()
		stale := gen != c.generation
		c.mu.Unlock()
		if stale {
			return
		}
		snap := c.session.Snapshot()
		if snap.Speaking || snap.Processing || snap.Listening {
			return
		}
		if !snap.ShouldListen || snap.Permission == recognizer.PermissionDenied {
			return
		}
		c.mic.StartListening()
	})
}

// noNotify is the no-op returned when a transition did not happen.
func noNotify() {}

func (c *Controller) transition(to State, reason string) {
	c.mu.Lock()
	notify := c.transitionLocked(to, reason)
	c.mu.Unlock()
	notify()
}

// transitionLocked records the state change and returns the listener
// notification, which the caller must invoke after releasing c.mu. The
// lock is held for the whole call.
func (c *Controller) transitionLocked(to State, reason string) func() {
	if c.state == to {
		return noNotify
	}
	from := c.state
	c.state = to
	c.bumpLocked()
	event := StateChange{
		FromState: from,
		ToState:   to,
		Timestamp: time.Now(),
		Reason:    reason,
	}
	listeners := make([]StateListener, len(c.listeners))
	copy(listeners, c.listeners)

	return func() {
		c.logger.Debug("turn state change",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
			slog.String("reason", reason))
		metrics.TurnTransition(c.obs, from.String(), to.String())
		for _, l := range listeners {
			l.OnStateChange(event)
		}
	}
}
