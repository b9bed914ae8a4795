// Package backend is the HTTP client for the persistence collaborator
// holding balances, the shopping cart and the payment confirmation
// ledger. The core treats every failure here uniformly as "effect
// failed"; messages surface to the user through the speech queue.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aziztlili/sawt/pkg/errorsx"
	"github.com/aziztlili/sawt/pkg/resilience"
	"github.com/aziztlili/sawt/pkg/shopping"
)

// Config tunes the client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Retries applies to reads only. Mutations are single-shot so a
	// flaky network can never double-transfer or double-charge.
	Retries int
	Backoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8000"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Backoff <= 0 {
		c.Backoff = 200 * time.Millisecond
	}
	return c
}

// Client talks to the backend. It satisfies banking.Bank and
// shopping.Cart.
type Client struct {
	cfg     Config
	http    *http.Client
	retry   resilience.RetryPolicy
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		retry:   resilience.NewRetryPolicy(cfg.Retries, cfg.Backoff),
		breaker: resilience.NewCircuitBreaker(3, 30*time.Second),
		logger:  logger,
	}
}

// Balance reads the account balance for user.
func (c *Client) Balance(ctx context.Context, user string) (float64, error) {
	var out struct {
		Balance float64 `json:"balance"`
	}
	err := c.retry.Do(func() error {
		return c.get(ctx, "/bank/balance?user="+url.QueryEscape(user), &out)
	})
	if err != nil {
		return 0, errorsx.Wrap(err, errorsx.ReasonBackendRequest)
	}
	return out.Balance, nil
}

// Transfer submits a transfer. Never retried.
func (c *Client) Transfer(ctx context.Context, from, to string, amount float64) error {
	body := map[string]any{"from": from, "to": to, "amount": amount}
	var out struct {
		Message string `json:"message"`
	}
	if err := c.post(ctx, "/bank/transfer", body, &out); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonBackendRequest)
	}
	return nil
}

// CartTotal reads the running cart total.
func (c *Client) CartTotal(ctx context.Context, user string) (float64, error) {
	var out struct {
		Total float64 `json:"total"`
	}
	err := c.retry.Do(func() error {
		return c.get(ctx, "/shopping/total?user="+url.QueryEscape(user), &out)
	})
	if err != nil {
		return 0, errorsx.Wrap(err, errorsx.ReasonBackendRequest)
	}
	return out.Total, nil
}

// CartItems reads the cart lines for user.
func (c *Client) CartItems(ctx context.Context, user string) ([]shopping.Item, error) {
	var raw []struct {
		Name     string  `json:"name"`
		Price    float64 `json:"price"`
		Quantity int     `json:"quantity"`
	}
	err := c.retry.Do(func() error {
		return c.get(ctx, "/shopping/items?user="+url.QueryEscape(user), &raw)
	})
	if err != nil {
		return nil, errorsx.Wrap(err, errorsx.ReasonBackendRequest)
	}
	items := make([]shopping.Item, 0, len(raw))
	for _, r := range raw {
		items = append(items, shopping.Item{Name: r.Name, Quantity: r.Quantity, Price: r.Price})
	}
	return items, nil
}

// AddArticle appends a cart line. Never retried.
func (c *Client) AddArticle(ctx context.Context, user, name string, price float64, quantity int) error {
	body := map[string]any{"name": name, "price": price, "quantity": quantity, "user": user}
	var out struct {
		Message string  `json:"message"`
		Total   float64 `json:"total"`
	}
	if err := c.post(ctx, "/shopping/add", body, &out); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonBackendRequest)
	}
	return nil
}

// RemoveArticle deletes a cart line by name. Never retried.
func (c *Client) RemoveArticle(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.cfg.BaseURL+"/shopping/remove/"+url.PathEscape(name), nil)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonBackendRequest)
	}
	if err := c.do(req, nil); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonBackendRequest)
	}
	return nil
}

// ConfirmPayment reports a confirmed payment intent so the backend
// debits the balance. Never retried.
func (c *Client) ConfirmPayment(ctx context.Context, user, intentID string, amount float64) (bool, float64, error) {
	body := map[string]any{"user": user, "payment_intent": intentID, "amount": amount}
	var out struct {
		Success    bool    `json:"success"`
		NewBalance float64 `json:"new_balance"`
	}
	if err := c.post(ctx, "/stripe/confirm", body, &out); err != nil {
		return false, 0, errorsx.Wrap(err, errorsx.ReasonPaymentConfirm)
	}
	return out.Success, out.NewBalance, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if !c.breaker.Allow() {
		return errorsx.Wrap(fmt.Errorf("backend %s %s: circuit open", req.Method, req.URL.Path),
			errorsx.ReasonBackendRateLimit)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		rl := resilience.RateLimitError{Provider: "backend"}
		c.breaker.OnError(rl)
		return rl
	}
	c.breaker.OnSuccess()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errorsx.Wrap(
			fmt.Errorf("backend %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, msg),
			errorsx.ReasonBackendStatus)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonBackendDecode)
	}
	return nil
}
