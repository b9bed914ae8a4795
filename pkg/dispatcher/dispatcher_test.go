package dispatcher

import (
	"strings"
	"sync"
	"testing"

	"github.com/aziztlili/sawt/pkg/lang"
)

type fakeMachine struct {
	mu        sync.Mutex
	name      string
	handle    bool
	handled   []string
	announces int
	resets    int
}

func (m *fakeMachine) Name() string { return m.name }

func (m *fakeMachine) HandleTranscript(text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handled = append(m.handled, text)
	return m.handle
}

func (m *fakeMachine) Announce() {
	m.mu.Lock()
	m.announces++
	m.mu.Unlock()
}

func (m *fakeMachine) Reset() {
	m.mu.Lock()
	m.resets++
	m.mu.Unlock()
}

func (m *fakeMachine) handledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handled)
}

type fakeSpeaker struct {
	mu      sync.Mutex
	texts   []string
	flushed []string
	last    string
}

func (s *fakeSpeaker) Enqueue(text string, onComplete func()) {
	s.mu.Lock()
	s.texts = append(s.texts, text)
	s.last = text
	s.mu.Unlock()
	if onComplete != nil {
		go onComplete()
	}
}

func (s *fakeSpeaker) FlushAndSpeak(text string) {
	s.mu.Lock()
	s.flushed = append(s.flushed, text)
	s.last = text
	s.mu.Unlock()
}

func (s *fakeSpeaker) LastSpoken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *fakeSpeaker) spokeContaining(sub string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.texts {
		if strings.Contains(t, sub) {
			return true
		}
	}
	return false
}

func newTestDispatcher(bankingHandles, shoppingHandles bool) (*Dispatcher, *fakeMachine, *fakeMachine, *fakeSpeaker) {
	banking := &fakeMachine{name: "banking", handle: bankingHandles}
	shopping := &fakeMachine{name: "shopping", handle: shoppingHandles}
	sp := &fakeSpeaker{}
	d := New(Options{
		Banking:  banking,
		Shopping: shopping,
		Speaker:  sp,
	})
	return d, banking, shopping, sp
}

func TestLanguageSwitchOutranksActiveModule(t *testing.T) {
	d, banking, _, sp := newTestDispatcher(true, false)
	var switched []lang.Language
	d.onLang = func(l lang.Language) { switched = append(switched, l) }

	d.Dispatch("banque")
	if d.Screen() != ScreenBanking {
		t.Fatalf("screen = %v", d.Screen())
	}

	if !d.Dispatch("switch to english") {
		t.Fatalf("language switch not recognized")
	}
	if d.Language() != lang.English {
		t.Fatalf("language = %v", d.Language())
	}
	if len(switched) != 1 || switched[0] != lang.English {
		t.Fatalf("propagation = %v", switched)
	}
	if banking.handledCount() != 0 {
		t.Fatalf("switch phrase leaked into the module")
	}
	if !sp.spokeContaining(lang.Catalog(lang.English).LanguageSwitched) {
		t.Fatalf("switch was not announced")
	}
}

func TestNavigationResetsPreviousModule(t *testing.T) {
	d, banking, shopping, _ := newTestDispatcher(true, true)

	d.Dispatch("banque")
	if banking.announces != 1 {
		t.Fatalf("banking announces = %d", banking.announces)
	}

	d.Dispatch("shopping")
	if d.Screen() != ScreenShopping {
		t.Fatalf("screen = %v", d.Screen())
	}
	if banking.resets != 1 {
		t.Fatalf("banking resets = %d", banking.resets)
	}
	if shopping.announces != 1 {
		t.Fatalf("shopping announces = %d", shopping.announces)
	}
}

func TestSameScreenNavigationDoesNotReset(t *testing.T) {
	d, banking, _, sp := newTestDispatcher(true, true)

	d.Dispatch("banque")
	d.Dispatch("ouvre la banque")
	if banking.resets != 0 {
		t.Fatalf("re-navigation reset an in-flight flow")
	}
	if banking.announces != 1 {
		t.Fatalf("banking announces = %d", banking.announces)
	}
	if !sp.spokeContaining(lang.Catalog(lang.French).BankingOpened) {
		t.Fatalf("re-open was not announced")
	}
}

func TestActiveModuleReceivesUnmatchedTranscripts(t *testing.T) {
	d, banking, _, _ := newTestDispatcher(true, false)

	d.Dispatch("banque")
	if !d.Dispatch("virement") {
		t.Fatalf("module transcript reported unrecognized")
	}
	if banking.handledCount() != 1 {
		t.Fatalf("module saw %d transcripts", banking.handledCount())
	}
}

func TestMissCounterSpeaksUpOnSecondMiss(t *testing.T) {
	d, _, _, sp := newTestDispatcher(false, false)

	if d.Dispatch("azerty uiop") {
		t.Fatalf("gibberish recognized")
	}
	if sp.spokeContaining(lang.Catalog(lang.French).DidntUnderstand) {
		t.Fatalf("first miss was not silent")
	}
	if d.Misses() != 1 {
		t.Fatalf("misses = %d", d.Misses())
	}

	d.Dispatch("azerty uiop qsdf")
	if !sp.spokeContaining(lang.Catalog(lang.French).DidntUnderstand) {
		t.Fatalf("second miss earned no clarification")
	}

	d.Dispatch("aide")
	if d.Misses() != 0 {
		t.Fatalf("hit did not reset the miss counter")
	}
}

func TestShortNoiseIsIgnored(t *testing.T) {
	d, _, _, _ := newTestDispatcher(false, false)

	d.Dispatch("eu")
	d.Dispatch(".")
	if d.Misses() != 0 {
		t.Fatalf("noise counted as misses: %d", d.Misses())
	}
}

func TestRepeatUsesFlushAndSpeak(t *testing.T) {
	d, _, _, sp := newTestDispatcher(false, false)

	d.Dispatch("aide")
	help := lang.Catalog(lang.French).HelpHome
	d.Dispatch("répéter")

	if len(sp.flushed) != 1 || sp.flushed[0] != help {
		t.Fatalf("flushed = %v", sp.flushed)
	}
}

func TestRepeatWithNothingSpokenIsQuiet(t *testing.T) {
	d, _, _, sp := newTestDispatcher(false, false)

	d.Dispatch("repeat")
	if len(sp.flushed) != 0 {
		t.Fatalf("repeat spoke with empty history: %v", sp.flushed)
	}
}

func TestGoHomeResetsBothModules(t *testing.T) {
	d, banking, shopping, sp := newTestDispatcher(true, true)

	d.Dispatch("banque")
	d.Dispatch("accueil")
	if d.Screen() != ScreenHome {
		t.Fatalf("screen = %v", d.Screen())
	}
	if banking.resets == 0 || shopping.resets == 0 {
		t.Fatalf("modules not reset: %d, %d", banking.resets, shopping.resets)
	}
	if !sp.spokeContaining(lang.Catalog(lang.French).Welcome) {
		t.Fatalf("welcome not spoken")
	}
}

func TestManualListenCommand(t *testing.T) {
	d, _, _, sp := newTestDispatcher(false, false)
	called := false
	d.onListen = func() { called = true }

	if !d.Dispatch("écouter") {
		t.Fatalf("listen command not recognized")
	}
	if !called {
		t.Fatalf("manual listen callback not invoked")
	}
	if !sp.spokeContaining(lang.Catalog(lang.French).Listening) {
		t.Fatalf("listening ack not spoken")
	}
}

func TestSettingsToggleAlternates(t *testing.T) {
	d, _, _, _ := newTestDispatcher(false, false)
	var states []bool
	d.onSettings = func(open bool) { states = append(states, open) }

	d.Dispatch("paramètres")
	d.Dispatch("settings")
	if len(states) != 2 || !states[0] || states[1] {
		t.Fatalf("settings states = %v", states)
	}
}
