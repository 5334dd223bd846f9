package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tolabmc/RunTracker/internal/clock"
	"github.com/Tolabmc/RunTracker/internal/events"
	"github.com/Tolabmc/RunTracker/internal/goutil"
)

// Commands a companion may send over the websocket besides hr_done.
const (
	CommandStatus      = "status"
	CommandClearBuffer = "clear_buffer"
)

// WSTransport bridges the tracker to a companion app over a websocket. One
// client at a time: a new connection replaces the previous one. Outbound wire
// records travel as text messages; inbound messages are JSON commands.
type WSTransport struct {
	controlNotifier
	logger   *log.Logger
	server   *http.Server
	upgrader websocket.Upgrader
	commands *events.ChannelEvent[string]

	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewWSTransport starts an HTTP server on addr with the bridge at /ws.
func NewWSTransport(addr string, clk clock.Clock, logger *log.Logger) *WSTransport {
	if clk == nil {
		panic("WSTransport: clock cannot be nil")
	}
	if logger == nil {
		panic("WSTransport: logger cannot be nil")
	}

	t := &WSTransport{
		controlNotifier: newControlNotifier(clk),
		logger:          logger,
		upgrader:        websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		commands:        events.NewChannelEvent[string](false),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", t.handleWebSocket)
	t.server = &http.Server{Addr: addr, Handler: mux}

	goutil.SafeGo(logger, func() {
		logger.Printf("WSTransport: listening on %s", addr)
		if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("WSTransport: server error: %v", err)
		}
	})
	return t
}

func (t *WSTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		t.logger.Printf("WSTransport: upgrade failed: %v", err)
		return
	}

	t.mu.Lock()
	if t.conn != nil {
		t.conn.Close()
	}
	t.conn = conn
	t.mu.Unlock()

	t.logger.Printf("WSTransport: companion connected from %s", r.RemoteAddr)
	t.notify(ControlConnected)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			break
		}
		t.handleInbound(payload)
	}

	t.mu.Lock()
	current := t.conn == conn
	if current {
		t.conn = nil
	}
	t.mu.Unlock()
	conn.Close()

	// Only the active connection going away counts as a disconnect; a
	// replaced connection closing is not one.
	if current {
		t.logger.Printf("WSTransport: companion disconnected")
		t.notify(ControlDisconnected)
	}
}

func (t *WSTransport) handleInbound(payload []byte) {
	var msg struct {
		Cmd string `json:"cmd"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.logger.Printf("WSTransport: bad inbound payload: %v", err)
		return
	}

	switch msg.Cmd {
	case "hr_done":
		t.logger.Printf("WSTransport: heart-rate confirmation received")
		t.notify(ControlHrDone)
	case CommandStatus, CommandClearBuffer:
		t.commands.Notify(msg.Cmd)
	default:
		t.logger.Printf("WSTransport: unknown command %q", msg.Cmd)
	}
}

// ListenCommands registers ch for operator commands (status, clear_buffer)
// and returns a deregistration function.
func (t *WSTransport) ListenCommands(ch chan<- string) func() {
	return t.commands.Listen(ch)
}

func (t *WSTransport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.conn != nil
}

// Send writes one wire record as a text message to the attached companion.
func (t *WSTransport) Send(payload []byte) bool {
	t.mu.RLock()
	conn := t.conn
	t.mu.RUnlock()
	if conn == nil {
		return false
	}

	t.writeMu.Lock()
	err := conn.WriteMessage(websocket.TextMessage, payload)
	t.writeMu.Unlock()
	if err != nil {
		t.logger.Printf("WSTransport: write failed: %v", err)
		return false
	}
	return true
}

func (t *WSTransport) Shutdown() {
	t.mu.Lock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := t.server.Shutdown(ctx); err != nil {
		t.logger.Printf("WSTransport: shutdown error: %v", err)
	}
	t.logger.Printf("WSTransport: shut down")
}
