// Package banking implements the banking dialogue state machine:
// balance readout and the multi-turn transfer flow ending in a payment
// confirmation.
package banking

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aziztlili/sawt/pkg/dialogue"
	"github.com/aziztlili/sawt/pkg/lang"
)

// State is the banking dialogue state.
type State string

const (
	StateIdle              State = "idle"
	StateCheckingBalance   State = "checking-balance"
	StateTransferAmount    State = "transfer-amount"
	StateTransferRecipient State = "transfer-recipient"
	StateTransferConfirm   State = "transfer-confirm"
	StatePaymentOffer      State = "payment-offer"
	StatePaying            State = "paying"
)

// Bank is the slice of the backend collaborator this module needs.
type Bank interface {
	Balance(ctx context.Context, user string) (float64, error)
	Transfer(ctx context.Context, from, to string, amount float64) error
}

// Config tunes the module.
type Config struct {
	// User is the fixed account identity of the session.
	User string
	// BalanceRevert is how long the balance readout state lingers
	// before auto-reverting to idle.
	BalanceRevert time.Duration
	// EffectTimeout bounds each backend call.
	EffectTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.User == "" {
		c.User = "amira"
	}
	if c.BalanceRevert <= 0 {
		c.BalanceRevert = 3 * time.Second
	}
	if c.EffectTimeout <= 0 {
		c.EffectTimeout = 10 * time.Second
	}
	return c
}

// Module is the banking state machine. All transitions run under the
// mutex; asynchronous effects re-enter through completion methods.
type Module struct {
	mu         sync.Mutex
	state      State
	amount     float64
	recipient  string
	balance    float64
	generation uint64

	bank    Bank
	pay     dialogue.PaymentTrigger
	speaker dialogue.Speaker
	msgs    dialogue.Messages
	cfg     Config
	logger  *slog.Logger
}

func New(bank Bank, pay dialogue.PaymentTrigger, speaker dialogue.Speaker, msgs dialogue.Messages, cfg Config, logger *slog.Logger) *Module {
	if logger == nil {
		logger = slog.Default()
	}
	return &Module{
		state:   StateIdle,
		bank:    bank,
		pay:     pay,
		speaker: speaker,
		msgs:    msgs,
		cfg:     cfg.withDefaults(),
		logger:  logger,
	}
}

func (m *Module) Name() string { return "banking" }

// State returns the current dialogue state.
func (m *Module) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Slots returns the captured transfer slots.
func (m *Module) Slots() (amount float64, recipient string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.amount, m.recipient
}

// Balance returns the cached balance mirror. The backend stays
// authoritative; this refreshes after every mutating call.
func (m *Module) Balance() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance
}

// Announce speaks the module entry announcement and refreshes the
// cached balance.
func (m *Module) Announce() {
	t := m.msgs()
	m.speaker.Enqueue(t.BankingTitle+". "+t.BankingInstr, nil)
	go m.refreshBalance()
}

// Reset returns to idle with all slots cleared. Called on navigation
// away and module completion.
func (m *Module) Reset() {
	m.mu.Lock()
	m.resetLocked()
	m.mu.Unlock()
}

func (m *Module) resetLocked() {
	m.state = StateIdle
	m.amount = 0
	m.recipient = ""
	m.generation++
}

// HandleTranscript applies one transcript to the state machine.
func (m *Module) HandleTranscript(text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.msgs()

	switch m.state {
	case StateIdle:
		switch {
		case lang.ContainsAny(text, lang.BalanceKeywords()):
			m.state = StateCheckingBalance
			m.generation++
			gen := m.generation
			go m.checkBalance(gen)
			return true
		case lang.ContainsAny(text, lang.TransferKeywords()):
			m.state = StateTransferAmount
			m.speaker.Enqueue(t.AmountPrompt, nil)
			return true
		}

	case StateTransferAmount:
		if n, ok := lang.FirstInt(text); ok {
			m.amount = float64(n)
			m.state = StateTransferRecipient
			m.speaker.Enqueue(t.RecipientPrompt, nil)
			return true
		}
		// No numeric token: remain in state, the prompt stands.

	case StateTransferRecipient:
		name := strings.TrimSpace(text)
		if len([]rune(name)) > 2 {
			m.recipient = name
			m.state = StateTransferConfirm
			m.speaker.Enqueue(t.ConfirmTransferMessage(m.amount, m.recipient), nil)
			return true
		}

	case StateTransferConfirm:
		if lang.IsAffirmative(text) {
			m.state = StatePaymentOffer
			m.speaker.Enqueue(t.PaymentOfferMessage(m.amount), nil)
			return true
		}
		if lang.IsNegative(text) {
			m.resetLocked()
			m.speaker.Enqueue(t.TransferCanceled+". "+t.BankingInstr, nil)
			return true
		}

	case StatePaymentOffer:
		if lang.IsAffirmative(text) {
			m.state = StatePaying
			m.generation++
			gen := m.generation
			amount, recipient := m.amount, m.recipient
			go m.executeTransfer(gen, amount, recipient)
			return true
		}
		if lang.IsNegative(text) {
			m.resetLocked()
			m.speaker.Enqueue(t.PaymentCanceled+". "+t.BankingInstr, nil)
			return true
		}

	case StateCheckingBalance, StatePaying:
		// Effect in flight; new input waits for the completion
		// transition.
	}
	return false
}

// checkBalance is the balance read effect. Completion re-enters under
// the lock and arms the auto-revert timer.
func (m *Module) checkBalance(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.EffectTimeout)
	defer cancel()
	balance, err := m.bank.Balance(ctx, m.cfg.User)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || m.state != StateCheckingBalance {
		return
	}
	t := m.msgs()
	if err != nil {
		m.logger.Error("balance read failed", slog.Any("error", err))
		m.resetLocked()
		m.speaker.Enqueue(t.EffectFailed, nil)
		return
	}
	m.balance = balance
	m.speaker.Enqueue(t.BalanceMessage(balance), nil)

	revertGen := m.generation
	time.AfterFunc(m.cfg.BalanceRevert, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if revertGen != m.generation || m.state != StateCheckingBalance {
			return
		}
		m.state = StateIdle
		m.speaker.Enqueue(m.msgs().BankingInstr, nil)
	})
}

// executeTransfer runs the transfer and its payment confirmation. On
// any failure the module speaks the error and reverts to idle without
// retrying; the user must re-initiate.
func (m *Module) executeTransfer(gen uint64, amount float64, recipient string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.EffectTimeout)
	defer cancel()

	if err := m.bank.Transfer(ctx, m.cfg.User, recipient, amount); err != nil {
		m.logger.Error("transfer failed",
			slog.String("recipient", recipient), slog.Any("error", err))
		m.completeTransfer(gen, false, 0)
		return
	}

	res, err := m.pay(amount)
	if err != nil || !res.Succeeded {
		if err != nil {
			m.logger.Error("payment confirmation failed", slog.Any("error", err))
		}
		m.completeTransfer(gen, false, 0)
		return
	}
	m.completeTransfer(gen, true, res.NewBalance)
}

func (m *Module) completeTransfer(gen uint64, ok bool, newBalance float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || m.state != StatePaying {
		return
	}
	t := m.msgs()
	if ok {
		m.balance = newBalance
		m.speaker.Enqueue(t.TransferSuccess+". "+t.PaymentSuccess, nil)
	} else {
		m.speaker.Enqueue(t.EffectFailed+". "+t.TransferCanceled, nil)
	}
	m.resetLocked()
	go m.refreshBalance()
}

func (m *Module) refreshBalance() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.EffectTimeout)
	defer cancel()
	balance, err := m.bank.Balance(ctx, m.cfg.User)
	if err != nil {
		m.logger.Warn("balance refresh failed", slog.Any("error", err))
		return
	}
	m.mu.Lock()
	m.balance = balance
	m.mu.Unlock()
}
