package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aziztlili/sawt/pkg/errorsx"
	"github.com/aziztlili/sawt/pkg/resilience"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		BaseURL: srv.URL,
		Timeout: time.Second,
		Retries: 2,
		Backoff: 10 * time.Millisecond,
	}, nil)
	return c, srv
}

func TestBalance(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bank/balance" || r.URL.Query().Get("user") != "amira" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		json.NewEncoder(w).Encode(map[string]float64{"balance": 742.5})
	}))

	balance, err := c.Balance(context.Background(), "amira")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance != 742.5 {
		t.Fatalf("balance = %v", balance)
	}
}

func TestBalanceRetriesTransientFailures(t *testing.T) {
	var hits int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]float64{"balance": 10})
	}))

	if _, err := c.Balance(context.Background(), "amira"); err != nil {
		t.Fatalf("Balance after retry: %v", err)
	}
	if atomic.LoadInt32(&hits) != 2 {
		t.Fatalf("hits = %d", hits)
	}
}

func TestTransferIsNeverRetried(t *testing.T) {
	var hits int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Method != http.MethodPost || r.URL.Path != "/bank/transfer" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			From   string  `json:"from"`
			To     string  `json:"to"`
			Amount float64 `json:"amount"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.From != "amira" || body.To != "karim" || body.Amount != 100 {
			t.Errorf("body = %+v", body)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := c.Transfer(context.Background(), "amira", "karim", 100)
	if err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("mutation was retried: %d hits", hits)
	}
	if !errorsx.HasReason(err, errorsx.ReasonBackendRequest) {
		t.Fatalf("reason = %v", errorsx.Reason(err))
	}
}

func TestCartItems(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/shopping/items" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"name": "lait", "price": 1.2, "quantity": 3},
			{"name": "pain", "price": 0.4, "quantity": 1},
		})
	}))

	items, err := c.CartItems(context.Background(), "amira")
	if err != nil {
		t.Fatalf("CartItems: %v", err)
	}
	if len(items) != 2 || items[0].Name != "lait" || items[0].Quantity != 3 {
		t.Fatalf("items = %+v", items)
	}
}

func TestAddAndRemoveArticle(t *testing.T) {
	var removed string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/shopping/add":
			var body struct {
				Name     string  `json:"name"`
				Price    float64 `json:"price"`
				Quantity int     `json:"quantity"`
				User     string  `json:"user"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if body.Name != "lait" || body.Quantity != 3 || body.User != "amira" {
				t.Errorf("add body = %+v", body)
			}
			json.NewEncoder(w).Encode(map[string]any{"message": "ok", "total": 3.6})
		case r.Method == http.MethodDelete:
			removed = r.URL.Path
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))

	if err := c.AddArticle(context.Background(), "amira", "lait", 1.2, 3); err != nil {
		t.Fatalf("AddArticle: %v", err)
	}
	if err := c.RemoveArticle(context.Background(), "lait"); err != nil {
		t.Fatalf("RemoveArticle: %v", err)
	}
	if removed != "/shopping/remove/lait" {
		t.Fatalf("removed path = %q", removed)
	}
}

func TestConfirmPayment(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stripe/confirm" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body struct {
			User   string  `json:"user"`
			Intent string  `json:"payment_intent"`
			Amount float64 `json:"amount"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Intent != "pi_123" {
			t.Errorf("intent = %q", body.Intent)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "new_balance": 642.5})
	}))

	ok, newBalance, err := c.ConfirmPayment(context.Background(), "amira", "pi_123", 100)
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	if !ok || newBalance != 642.5 {
		t.Fatalf("ok = %v balance = %v", ok, newBalance)
	}
}

func TestRateLimitIsTyped(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	err := c.Transfer(context.Background(), "amira", "karim", 10)
	if !resilience.IsRateLimit(err) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestCircuitOpensAfterRepeatedRateLimits(t *testing.T) {
	var hits int32
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	for i := 0; i < 3; i++ {
		if err := c.Transfer(context.Background(), "amira", "karim", 10); !resilience.IsRateLimit(err) {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	err := c.Transfer(context.Background(), "amira", "karim", 10)
	if !errorsx.HasReason(err, errorsx.ReasonBackendRateLimit) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if atomic.LoadInt32(&hits) != 3 {
		t.Fatalf("open circuit still hit the backend: %d", hits)
	}
}

func TestStatusErrorCarriesReason(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := c.Balance(context.Background(), "amira")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errorsx.HasReason(err, errorsx.ReasonBackendRequest) {
		t.Fatalf("reason = %v", errorsx.Reason(err))
	}
}
