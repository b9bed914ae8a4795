// Package dispatcher classifies every accepted transcript: global
// commands first, in a fixed priority order, else the active module's
// state machine, with a miss counter that tolerates one unrecognized
// transcript before asking for clarification.
package dispatcher

import (
	"log/slog"
	"sync"

	"github.com/aziztlili/sawt/pkg/dialogue"
	"github.com/aziztlili/sawt/pkg/lang"
	"github.com/aziztlili/sawt/pkg/metrics"
)

// Screen is the active module surface.
type Screen string

const (
	ScreenHome     Screen = "home"
	ScreenBanking  Screen = "banking"
	ScreenShopping Screen = "shopping"
)

// Speaker is the slice of the speech queue the dispatcher talks through.
type Speaker interface {
	Enqueue(text string, onComplete func())
	FlushAndSpeak(text string)
	LastSpoken() string
}

// Config tunes the dispatcher.
type Config struct {
	// NoiseThreshold is the minimum transcript length (in runes) that
	// counts toward the miss counter.
	NoiseThreshold int
	// MaxSilentMisses is how many consecutive unrecognized transcripts
	// are ignored before the clarification prompt.
	MaxSilentMisses int
}

func (c Config) withDefaults() Config {
	if c.NoiseThreshold <= 0 {
		c.NoiseThreshold = 2
	}
	if c.MaxSilentMisses <= 0 {
		c.MaxSilentMisses = 1
	}
	return c
}

// Options wires the dispatcher's collaborators.
type Options struct {
	Banking  dialogue.Machine
	Shopping dialogue.Machine
	Speaker  Speaker
	// Language is the startup language. Zero value means the default.
	Language lang.Language
	// OnLanguageChange propagates a language switch to the recognizer
	// and the speech queue.
	OnLanguageChange func(lang.Language)
	// OnManualListen reopens the microphone on the voice command.
	OnManualListen func()
	// OnSettingsToggle flips the settings surface.
	OnSettingsToggle func(open bool)
	Logger           *slog.Logger
	Observer         metrics.Observer
	Config           Config
}

// Dispatcher routes transcripts. Exactly one global command may fire
// per transcript; first match in priority order wins, no scoring.
type Dispatcher struct {
	mu           sync.Mutex
	language     lang.Language
	screen       Screen
	misses       int
	settingsOpen bool

	banking    dialogue.Machine
	shopping   dialogue.Machine
	speaker    Speaker
	onLang     func(lang.Language)
	onListen   func()
	onSettings func(bool)
	logger     *slog.Logger
	obs        metrics.Observer
	cfg        Config
}

func New(opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if !opts.Language.Valid() {
		opts.Language = lang.Default
	}
	return &Dispatcher{
		language:   opts.Language,
		screen:     ScreenHome,
		banking:    opts.Banking,
		shopping:   opts.Shopping,
		speaker:    opts.Speaker,
		onLang:     opts.OnLanguageChange,
		onListen:   opts.OnManualListen,
		onSettings: opts.OnSettingsToggle,
		logger:     opts.Logger,
		obs:        opts.Observer,
		cfg:        opts.Config.withDefaults(),
	}
}

// Language returns the active interface language.
func (d *Dispatcher) Language() lang.Language {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.language
}

// Screen returns the active module surface.
func (d *Dispatcher) Screen() Screen {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.screen
}

// Misses returns the consecutive unrecognized transcript count.
func (d *Dispatcher) Misses() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.misses
}

// Dispatch routes one transcript and reports whether a command was
// recognized (globally or by the active module).
func (d *Dispatcher) Dispatch(text string) bool {
	recognized := d.dispatch(text)
	metrics.CommandResult(d.obs, string(d.Screen()), recognized)
	return recognized
}

func (d *Dispatcher) dispatch(text string) bool {
	// Language switch outranks everything.
	for _, target := range lang.All() {
		if lang.ContainsAny(text, lang.SwitchKeywords(target)) {
			d.switchLanguage(target)
			return d.hit()
		}
	}

	switch {
	case lang.ContainsAny(text, lang.BankingKeywords()):
		d.navigate(ScreenBanking)
		return d.hit()
	case lang.ContainsAny(text, lang.ShoppingKeywords()):
		d.navigate(ScreenShopping)
		return d.hit()
	case lang.ContainsAny(text, lang.HomeKeywords()):
		d.GoHome()
		return d.hit()
	case lang.ContainsAny(text, lang.RepeatKeywords()):
		d.Repeat()
		return d.hit()
	case lang.ContainsAny(text, lang.HelpKeywords()):
		d.Help()
		return d.hit()
	case lang.ContainsAny(text, lang.SettingsKeywords()):
		d.toggleSettings()
		return d.hit()
	case lang.ContainsAny(text, lang.ListenKeywords()):
		d.manualListen()
		return d.hit()
	}

	// No global command: the active module gets the transcript verbatim.
	if machine := d.activeMachine(); machine != nil {
		if machine.HandleTranscript(text) {
			return d.hit()
		}
	}
	d.miss(text)
	return false
}

func (d *Dispatcher) activeMachine() dialogue.Machine {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.screen {
	case ScreenBanking:
		return d.banking
	case ScreenShopping:
		return d.shopping
	}
	return nil
}

func (d *Dispatcher) hit() bool {
	d.mu.Lock()
	d.misses = 0
	d.mu.Unlock()
	return true
}

// miss tolerates the first unmatched transcript silently; the second
// consecutive one earns exactly one clarification utterance.
func (d *Dispatcher) miss(text string) {
	if len([]rune(text)) <= d.cfg.NoiseThreshold {
		return
	}
	d.mu.Lock()
	d.misses++
	speakUp := d.misses > d.cfg.MaxSilentMisses
	t := lang.Catalog(d.language)
	d.mu.Unlock()

	d.logger.Debug("unrecognized transcript", slog.Int("consecutive", d.Misses()))
	if speakUp {
		d.speaker.Enqueue(t.DidntUnderstand, nil)
	}
}

func (d *Dispatcher) switchLanguage(target lang.Language) {
	d.mu.Lock()
	d.language = target
	d.mu.Unlock()
	if d.onLang != nil {
		d.onLang(target)
	}
	d.logger.Info("language switched", slog.String("language", string(target)))
	d.speaker.Enqueue(lang.Catalog(target).LanguageSwitched, nil)
}

func (d *Dispatcher) navigate(to Screen) {
	d.mu.Lock()
	from := d.screen
	d.screen = to
	t := lang.Catalog(d.language)
	d.mu.Unlock()
	if from == to {
		// Re-announce rather than reset an in-flight flow.
		switch to {
		case ScreenBanking:
			d.speaker.Enqueue(t.BankingOpened, nil)
		case ScreenShopping:
			d.speaker.Enqueue(t.ShoppingOpened, nil)
		}
		return
	}
	d.resetModule(from)
	switch to {
	case ScreenBanking:
		d.speaker.Enqueue(t.BankingOpened, nil)
		d.banking.Announce()
	case ScreenShopping:
		d.speaker.Enqueue(t.ShoppingOpened, nil)
		d.shopping.Announce()
	}
	d.logger.Info("navigated", slog.String("screen", string(to)))
}

func (d *Dispatcher) resetModule(s Screen) {
	switch s {
	case ScreenBanking:
		d.banking.Reset()
	case ScreenShopping:
		d.shopping.Reset()
	}
}

// GoHome resets both modules and speaks the welcome message. Also the
// escape-key path.
func (d *Dispatcher) GoHome() {
	d.mu.Lock()
	d.screen = ScreenHome
	t := lang.Catalog(d.language)
	d.mu.Unlock()
	d.banking.Reset()
	d.shopping.Reset()
	d.speaker.Enqueue(t.Welcome, nil)
}

// Repeat re-speaks the last utterance, replacing anything queued.
func (d *Dispatcher) Repeat() {
	last := d.speaker.LastSpoken()
	if last == "" {
		return
	}
	d.speaker.FlushAndSpeak(last)
}

// Help speaks the context help for the home screen.
func (d *Dispatcher) Help() {
	d.speaker.Enqueue(lang.Catalog(d.Language()).HelpHome, nil)
}

func (d *Dispatcher) toggleSettings() {
	d.mu.Lock()
	d.settingsOpen = !d.settingsOpen
	open := d.settingsOpen
	d.mu.Unlock()
	if d.onSettings != nil {
		d.onSettings(open)
	}
}

func (d *Dispatcher) manualListen() {
	d.speaker.Enqueue(lang.Catalog(d.Language()).Listening, nil)
	if d.onListen != nil {
		d.onListen()
	}
}
