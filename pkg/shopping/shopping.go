// Package shopping implements the shopping list dialogue state
// machine: add and remove flows, total readout with budget warning,
// and cart checkout through the payment collaborator.
package shopping

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/aziztlili/sawt/pkg/dialogue"
	"github.com/aziztlili/sawt/pkg/lang"
)

// State is the shopping dialogue state.
type State string

const (
	StateIdle           State = "idle"
	StateAddItem        State = "add-item"
	StateAddQuantity    State = "add-quantity"
	StateRemoveItem     State = "remove-item"
	StateCheckoutOffer  State = "checkout-offer"
	StateCheckoutPaying State = "checkout-paying"
)

// Item is one cart line in the local mirror of the backend cart.
type Item struct {
	Name     string
	Quantity int
	Price    float64
}

// Cart is the slice of the backend collaborator this module needs.
type Cart interface {
	CartItems(ctx context.Context, user string) ([]Item, error)
	CartTotal(ctx context.Context, user string) (float64, error)
	AddArticle(ctx context.Context, user, name string, price float64, quantity int) error
	RemoveArticle(ctx context.Context, name string) error
}

// Config tunes the module.
type Config struct {
	// User is the fixed cart identity of the session.
	User string
	// DefaultPrice is the unit price for items missing from the price
	// table.
	DefaultPrice float64
	// BudgetLimit triggers the spoken warning when the total passes it.
	BudgetLimit float64
	// ResyncEpsilon is the divergence between the local total mirror
	// and the backend total that forces a resync.
	ResyncEpsilon float64
	// EffectTimeout bounds each backend call.
	EffectTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.User == "" {
		c.User = "amira"
	}
	if c.DefaultPrice <= 0 {
		c.DefaultPrice = 2.5
	}
	if c.BudgetLimit <= 0 {
		c.BudgetLimit = 50
	}
	if c.ResyncEpsilon <= 0 {
		c.ResyncEpsilon = 0.01
	}
	if c.EffectTimeout <= 0 {
		c.EffectTimeout = 10 * time.Second
	}
	return c
}

// Module is the shopping state machine. The cart slice is a best
// effort mirror; the backend stays authoritative and the mirror
// resyncs after every mutation.
type Module struct {
	mu          sync.Mutex
	state       State
	pendingItem string
	items       []Item
	total       float64
	generation  uint64

	cart    Cart
	pay     dialogue.PaymentTrigger
	speaker dialogue.Speaker
	msgs    dialogue.Messages
	cfg     Config
	logger  *slog.Logger
}

func New(cart Cart, pay dialogue.PaymentTrigger, speaker dialogue.Speaker, msgs dialogue.Messages, cfg Config, logger *slog.Logger) *Module {
	if logger == nil {
		logger = slog.Default()
	}
	return &Module{
		state:   StateIdle,
		cart:    cart,
		pay:     pay,
		speaker: speaker,
		msgs:    msgs,
		cfg:     cfg.withDefaults(),
		logger:  logger,
	}
}

func (m *Module) Name() string { return "shopping" }

// State returns the current dialogue state.
func (m *Module) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// PendingItem returns the item-name slot captured mid add flow.
func (m *Module) PendingItem() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pendingItem
}

// Items returns a copy of the local cart mirror.
func (m *Module) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, len(m.items))
	copy(out, m.items)
	return out
}

// Total returns the local total mirror.
func (m *Module) Total() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// Announce speaks the module entry announcement and loads the cart.
func (m *Module) Announce() {
	t := m.msgs()
	m.speaker.Enqueue(t.ShoppingTitle+". "+t.ShoppingInstr, nil)
	go m.resync()
}

// Reset returns to idle with all slots cleared.
func (m *Module) Reset() {
	m.mu.Lock()
	m.resetLocked()
	m.mu.Unlock()
}

func (m *Module) resetLocked() {
	m.state = StateIdle
	m.pendingItem = ""
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
		case lang.ContainsAny(text, lang.CheckoutKeywords()):
			m.state = StateCheckoutOffer
			m.speaker.Enqueue(t.CartSummaryMessage(m.resumeLocked(), m.total), nil)
			return true
		case lang.ContainsAny(text, lang.AddKeywords()):
			// The name is always asked for, even when the command
			// already carries one.
			m.state = StateAddItem
			m.pendingItem = ""
			m.speaker.Enqueue(t.WhatToAdd, nil)
			return true
		case lang.ContainsAny(text, lang.RemoveKeywords()):
			name := lang.CleanItemName(text)
			if name != "" {
				m.generation++
				go m.removeItem(m.generation, name)
				return true
			}
			m.state = StateRemoveItem
			m.speaker.Enqueue(t.WhatToRemove, nil)
			return true
		case lang.ContainsAny(text, lang.TotalKeywords()):
			m.speakTotalLocked(t)
			return true
		}

	case StateAddItem:
		name := lang.CleanItemName(text)
		if len([]rune(name)) < 2 {
			// Noise like "." or a bare command word; the prompt stands.
			return false
		}
		m.pendingItem = name
		m.state = StateAddQuantity
		m.speaker.Enqueue(fmt.Sprintf(t.HowManyFor, name), nil)
		return true

	case StateAddQuantity:
		qty, price, hasPrice := lang.QuantityAndPrice(text)
		if !hasPrice {
			price = PriceFor(m.pendingItem, m.cfg.DefaultPrice)
		}
		m.generation++
		go m.addItem(m.generation, m.pendingItem, price, qty)
		return true

	case StateRemoveItem:
		if len(strings.TrimSpace(text)) > 1 {
			name := lang.CleanItemName(text)
			m.generation++
			go m.removeItem(m.generation, name)
			return true
		}

	case StateCheckoutOffer:
		if lang.IsAffirmative(text) {
			m.state = StateCheckoutPaying
			m.speaker.Enqueue(t.CheckoutPaying, nil)
			m.generation++
			go m.checkout(m.generation, m.total)
			return true
		}
		if lang.IsNegative(text) {
			m.resetLocked()
			m.speaker.Enqueue(t.CheckoutCanceled, nil)
			return true
		}

	case StateCheckoutPaying:
		// Payment in flight; completion transition owns the next step.
	}
	return false
}

func (m *Module) resumeLocked() string {
	parts := make([]string, 0, len(m.items))
	for _, it := range m.items {
		parts = append(parts, fmt.Sprintf("%d %s", it.Quantity, it.Name))
	}
	return strings.Join(parts, ", ")
}

func (m *Module) speakTotalLocked(t lang.Messages) {
	count := 0
	for _, it := range m.items {
		count += it.Quantity
	}
	msg := t.TotalMessage(m.total, count)
	if m.total > m.cfg.BudgetLimit {
		msg += ". " + t.BudgetWarningMessage(m.cfg.BudgetLimit)
	}
	m.speaker.Enqueue(msg, nil)
}

// addItem is the add effect. Completion re-enters under the lock.
func (m *Module) addItem(gen uint64, name string, price float64, qty int) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.EffectTimeout)
	defer cancel()
	err := m.cart.AddArticle(ctx, m.cfg.User, name, price, qty)
	total, terr := m.cart.CartTotal(ctx, m.cfg.User)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return
	}
	t := m.msgs()
	if err != nil {
		m.logger.Error("add article failed", slog.String("item", name), slog.Any("error", err))
		m.resetLocked()
		m.speaker.Enqueue(t.AddFailed, nil)
		return
	}
	m.items = append(m.items, Item{Name: name, Quantity: qty, Price: price})
	if terr == nil {
		m.total = total
	}
	m.speaker.Enqueue(t.ItemAddedMessage(qty, name, price, m.total), nil)
	m.resetLocked()
	go m.resync()
}

// removeItem is the remove effect.
func (m *Module) removeItem(gen uint64, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.EffectTimeout)
	defer cancel()
	err := m.cart.RemoveArticle(ctx, name)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation {
		return
	}
	t := m.msgs()
	if err != nil {
		m.logger.Error("remove article failed", slog.String("item", name), slog.Any("error", err))
		m.resetLocked()
		m.speaker.Enqueue(t.RemoveFailed, nil)
		return
	}
	found := false
	kept := m.items[:0]
	for _, it := range m.items {
		if !found && strings.Contains(strings.ToLower(it.Name), strings.ToLower(name)) {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	m.items = kept
	if found {
		m.speaker.Enqueue(fmt.Sprintf(t.ItemRemovedFmt, name), nil)
	} else {
		m.speaker.Enqueue(t.ItemNotFound, nil)
	}
	m.resetLocked()
	go m.resync()
}

// checkout is the payment effect. Success clears the cart and speaks
// the new balance; failure reverts to idle without retry.
func (m *Module) checkout(gen uint64, amount float64) {
	res, err := m.pay(amount)

	if err == nil && res.Succeeded {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.EffectTimeout)
		for _, it := range m.Items() {
			if rerr := m.cart.RemoveArticle(ctx, it.Name); rerr != nil {
				m.logger.Warn("cart clear failed", slog.String("item", it.Name), slog.Any("error", rerr))
			}
		}
		cancel()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || m.state != StateCheckoutPaying {
		return
	}
	t := m.msgs()
	if err != nil || !res.Succeeded {
		if err != nil {
			m.logger.Error("checkout payment failed", slog.Any("error", err))
		}
		m.resetLocked()
		m.speaker.Enqueue(t.EffectFailed+". "+t.PaymentCanceled, nil)
		return
	}
	m.items = nil
	m.total = 0
	m.resetLocked()
	m.speaker.Enqueue(t.CheckoutDoneMessage(res.NewBalance), nil)
}

// resync reloads the cart mirror from the backend and adopts the
// backend total when it diverges beyond the epsilon.
func (m *Module) resync() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.EffectTimeout)
	defer cancel()

	items, ierr := m.cart.CartItems(ctx, m.cfg.User)
	total, terr := m.cart.CartTotal(ctx, m.cfg.User)

	m.mu.Lock()
	defer m.mu.Unlock()
	if ierr == nil {
		m.items = items
	} else {
		m.logger.Warn("cart items sync failed", slog.Any("error", ierr))
	}
	if terr == nil {
		if math.Abs(total-m.total) > m.cfg.ResyncEpsilon {
			m.total = total
		}
	} else {
		m.logger.Warn("cart total sync failed", slog.Any("error", terr))
	}
}
