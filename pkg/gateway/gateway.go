// Package gateway is the websocket control surface. A client connects,
// receives status pushes (turn state, permission, last message) and
// sends the manual controls: press-to-talk, repeat, go-home. These are
// the keyboard-shortcut equivalents of the voice commands.
package gateway

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/aziztlili/sawt/pkg/errorsx"
)

// Controls is the slice of the engine the gateway drives.
type Controls interface {
	ToggleListening()
	ToggleSlowMode()
	Repeat()
	GoHome()
	Help()
	RetryPermission()
}

// Status is one outbound state push.
type Status struct {
	Type        string `json:"type"`
	TurnState   string `json:"turnState"`
	Listening   bool   `json:"listening"`
	Speaking    bool   `json:"speaking"`
	Processing  bool   `json:"processing"`
	Permission  string `json:"permission"`
	Language    string `json:"language"`
	Screen      string `json:"screen"`
	SlowMode    bool   `json:"slowMode"`
	LastMessage string `json:"lastMessage"`
	QueueLength int    `json:"queueLength"`
}

type control struct {
	Type string `json:"type"`
}

// Gateway upgrades HTTP connections and fans status updates out to
// every connected client.
type Gateway struct {
	mu       sync.Mutex
	clients  map[string]*client
	controls Controls
	status   func() Status
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Status
}

func New(controls Controls, status func() Status, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		clients:  make(map[string]*client),
		controls: controls,
		status:   status,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the connection and runs the read/write pumps.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed",
			slog.Any("error", errorsx.Wrap(err, errorsx.ReasonGatewayUpgrade)))
		return
	}
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Status, 16),
	}
	g.mu.Lock()
	g.clients[c.id] = c
	g.mu.Unlock()
	g.logger.Info("gateway client connected", slog.String("client_id", c.id))

	go g.writePump(c)
	// Initial snapshot so the client renders immediately.
	c.send <- g.status()
	g.readPump(c)
}

// Broadcast pushes the current status to every client.
func (g *Gateway) Broadcast() {
	st := g.status()
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range g.clients {
		select {
		case c.send <- st:
		default:
			// Slow client, skip this push.
		}
	}
}

func (g *Gateway) readPump(c *client) {
	defer g.drop(c)
	for {
		var msg control
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "toggle-listen":
			g.controls.ToggleListening()
		case "toggle-slow":
			g.controls.ToggleSlowMode()
		case "repeat":
			g.controls.Repeat()
		case "go-home":
			g.controls.GoHome()
		case "help":
			g.controls.Help()
		case "retry-permission":
			g.controls.RetryPermission()
		default:
			g.logger.Debug("unknown control message", slog.String("type", msg.Type))
		}
	}
}

func (g *Gateway) writePump(c *client) {
	for st := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.conn.WriteJSON(st); err != nil {
			g.logger.Debug("gateway write failed",
				slog.Any("error", errorsx.Wrap(err, errorsx.ReasonGatewaySend)))
			return
		}
	}
}

func (g *Gateway) drop(c *client) {
	g.mu.Lock()
	if _, ok := g.clients[c.id]; ok {
		delete(g.clients, c.id)
		close(c.send)
	}
	g.mu.Unlock()
	_ = c.conn.Close()
	g.logger.Info("gateway client disconnected", slog.String("client_id", c.id))
}
