package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/aziztlili/sawt/pkg/payment"
	"github.com/aziztlili/sawt/pkg/recognizer"
)

// PaymentConfig tunes the mock provider.
type PaymentConfig struct {
	// Balance is the ledger balance after a successful confirm.
	Balance float64
	// Err, when set, fails CreateSession and Confirm.
	Err error
}

// Payment is a payment.Provider that succeeds instantly.
type Payment struct {
	cfg      PaymentConfig
	mu       sync.Mutex
	sessions []string
	confirms []string
}

func NewPayment(cfg PaymentConfig) *Payment {
	return &Payment{cfg: cfg}
}

func (p *Payment) Name() string { return "mock_payment" }

func (p *Payment) CreateSession(ctx context.Context, user string, amount float64) (payment.Session, error) {
	if p.cfg.Err != nil {
		return payment.Session{}, p.cfg.Err
	}
	id := "mock_pi_" + uuid.NewString()
	p.mu.Lock()
	p.sessions = append(p.sessions, id)
	p.mu.Unlock()
	return payment.Session{ID: id, ClientSecret: id + "_secret"}, nil
}

func (p *Payment) Confirm(ctx context.Context, sessionID string, amount float64) (payment.Result, error) {
	if p.cfg.Err != nil {
		return payment.Result{}, p.cfg.Err
	}
	p.mu.Lock()
	p.confirms = append(p.confirms, sessionID)
	p.mu.Unlock()
	return payment.Result{Succeeded: true, NewBalance: p.cfg.Balance - amount}, nil
}

// Confirms returns every confirmed session ID in order.
func (p *Payment) Confirms() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.confirms))
	copy(out, p.confirms)
	return out
}

var _ payment.Provider = (*Payment)(nil)

// Cue records played cues instead of making sound.
type Cue struct {
	mu     sync.Mutex
	played []recognizer.Cue
}

func NewCue() *Cue { return &Cue{} }

func (c *Cue) Play(cue recognizer.Cue) {
	c.mu.Lock()
	c.played = append(c.played, cue)
	c.mu.Unlock()
}

// Played returns every cue in play order.
func (c *Cue) Played() []recognizer.Cue {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]recognizer.Cue, len(c.played))
	copy(out, c.played)
	return out
}

var _ recognizer.CuePlayer = (*Cue)(nil)
