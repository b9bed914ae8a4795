package gateway

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeControls struct {
	mu    sync.Mutex
	calls []string
}

func (c *fakeControls) record(name string) {
	c.mu.Lock()
	c.calls = append(c.calls, name)
	c.mu.Unlock()
}

func (c *fakeControls) ToggleListening() { c.record("toggle-listen") }
func (c *fakeControls) ToggleSlowMode()  { c.record("toggle-slow") }
func (c *fakeControls) Repeat()          { c.record("repeat") }
func (c *fakeControls) GoHome()          { c.record("go-home") }
func (c *fakeControls) Help()            { c.record("help") }
func (c *fakeControls) RetryPermission() { c.record("retry-permission") }

func (c *fakeControls) recorded() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.calls...)
}

func dialTestGateway(t *testing.T, controls Controls, status func() Status) *websocket.Conn {
	t.Helper()
	g := New(controls, status, nil)
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestClientReceivesInitialStatus(t *testing.T) {
	status := Status{
		Type:      "status",
		TurnState: "IDLE",
		Language:  "fr",
		Screen:    "home",
	}
	conn := dialTestGateway(t, &fakeControls{}, func() Status { return status })

	var got Status
	conn.SetReadDeadline(time.Now().Add(time.Second))
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != status {
		t.Fatalf("status = %+v", got)
	}
}

func TestControlMessagesReachTheEngine(t *testing.T) {
	controls := &fakeControls{}
	conn := dialTestGateway(t, controls, func() Status { return Status{Type: "status"} })

	want := []string{"toggle-listen", "toggle-slow", "repeat", "go-home", "help", "retry-permission"}
	for _, msg := range want {
		if err := conn.WriteJSON(map[string]string{"type": msg}); err != nil {
			t.Fatalf("write %q: %v", msg, err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(controls.recorded()) == len(want) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	got := controls.recorded()
	if len(got) != len(want) {
		t.Fatalf("calls = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d = %q want %q", i, got[i], want[i])
		}
	}
}

func TestUnknownControlIsIgnored(t *testing.T) {
	controls := &fakeControls{}
	conn := dialTestGateway(t, controls, func() Status { return Status{} })

	if err := conn.WriteJSON(map[string]string{"type": "bogus"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if len(controls.recorded()) != 0 {
		t.Fatalf("unknown control invoked %v", controls.recorded())
	}
}
