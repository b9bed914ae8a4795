package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"

	"github.com/aziztlili/sawt/pkg/errorsx"
)

// Ledger debits the confirmed amount from the user's balance and
// returns the new balance. The backend client satisfies this.
type Ledger interface {
	ConfirmPayment(ctx context.Context, user, intentID string, amount float64) (bool, float64, error)
}

// StripeProvider creates and confirms Stripe payment intents, then
// settles the amount against the ledger. Amounts are dinars; Stripe is
// charged in minor units of the configured currency.
type StripeProvider struct {
	currency string
	ledger   Ledger
	logger   *slog.Logger
}

func NewStripeProvider(apiKey, currency string, ledger Ledger, logger *slog.Logger) *StripeProvider {
	stripe.Key = apiKey
	if currency == "" {
		// The backend prices in TND, which Stripe does not support, so
		// charges are simulated in USD.
		currency = "usd"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StripeProvider{currency: currency, ledger: ledger, logger: logger}
}

func (s *StripeProvider) Name() string { return "stripe" }

func (s *StripeProvider) CreateSession(ctx context.Context, user string, amount float64) (Session, error) {
	if amount <= 0 {
		return Session{}, errorsx.Wrap(errors.New("invalid amount"), errorsx.ReasonPaymentIntent)
	}
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(int64(amount * 100)),
		Currency:           stripe.String(s.currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.AddMetadata("user", user)
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		s.logger.Error("payment intent creation failed", slog.Any("error", err))
		return Session{}, errorsx.Wrap(fmt.Errorf("stripe: create payment intent: %w", err), errorsx.ReasonPaymentIntent)
	}
	s.logger.Info("payment intent created",
		slog.String("payment_intent_id", pi.ID),
		slog.String("status", string(pi.Status)))
	return Session{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (s *StripeProvider) Confirm(ctx context.Context, sessionID string, amount float64) (Result, error) {
	if sessionID == "" {
		return Result{}, errorsx.Wrap(errors.New("session ID is required"), errorsx.ReasonPaymentConfirm)
	}
	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx

	pi, err := paymentintent.Confirm(sessionID, params)
	if err != nil {
		s.logger.Error("payment confirmation failed",
			slog.String("payment_intent_id", sessionID), slog.Any("error", err))
		return Result{}, errorsx.Wrap(fmt.Errorf("stripe: confirm payment: %w", err), errorsx.ReasonPaymentConfirm)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return Result{}, errorsx.Wrap(fmt.Errorf("stripe: payment not confirmed, status %s", pi.Status), errorsx.ReasonPaymentConfirm)
	}

	user := pi.Metadata["user"]
	ok, newBalance, err := s.ledger.ConfirmPayment(ctx, user, pi.ID, amount)
	if err != nil {
		return Result{}, err
	}
	return Result{Succeeded: ok, NewBalance: newBalance}, nil
}
