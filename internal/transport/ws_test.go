package transport

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tolabmc/RunTracker/internal/clock"
	"github.com/Tolabmc/RunTracker/internal/events"
)

// newTestWS builds a WSTransport around an httptest server so the test can
// dial the actual upgrade handler on an ephemeral port.
func newTestWS(t *testing.T) (*WSTransport, *httptest.Server) {
	t.Helper()
	tr := &WSTransport{
		controlNotifier: newControlNotifier(clock.NewFakeClock(0)),
		logger:          log.New(io.Discard, "", 0),
		upgrader:        websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		commands:        events.NewChannelEvent[string](false),
	}
	srv := httptest.NewServer(http.HandlerFunc(tr.handleWebSocket))
	t.Cleanup(srv.Close)
	return tr, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitControl(t *testing.T, ch <-chan ControlEvent, want ControlKind) {
	t.Helper()
	deadline := time.After(time.Second)
	for {
		select {
		case evt := <-ch:
			if evt.Kind == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for control event %s", want)
		}
	}
}

func TestWSTransport_ConnectAndDisconnect(t *testing.T) {
	tr, srv := newTestWS(t)

	ctrl := make(chan ControlEvent, 8)
	unsub := tr.ListenControl(ctrl)
	defer unsub()

	assert.False(t, tr.IsConnected())
	conn := dial(t, srv)
	waitControl(t, ctrl, ControlConnected)
	assert.True(t, tr.IsConnected())

	conn.Close()
	waitControl(t, ctrl, ControlDisconnected)
	require.Eventually(t, func() bool { return !tr.IsConnected() },
		time.Second, 5*time.Millisecond)
}

func TestWSTransport_SendDeliversTextMessage(t *testing.T) {
	tr, srv := newTestWS(t)

	assert.False(t, tr.Send([]byte("early")), "send without a client must fail")

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return tr.IsConnected() },
		time.Second, 5*time.Millisecond)

	payload := `{"event":"start","mode":"4x500m","laps":4,"ts":0}`
	require.True(t, tr.Send([]byte(payload)))

	conn.SetReadDeadline(time.Now().Add(time.Second))
	kind, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, kind)
	assert.Equal(t, payload, string(msg))
}

func TestWSTransport_InboundHrDone(t *testing.T) {
	tr, srv := newTestWS(t)

	ctrl := make(chan ControlEvent, 8)
	unsub := tr.ListenControl(ctrl)
	defer unsub()

	conn := dial(t, srv)
	waitControl(t, ctrl, ControlConnected)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"cmd":"hr_done"}`)))
	waitControl(t, ctrl, ControlHrDone)
}

func TestWSTransport_InboundCommands(t *testing.T) {
	tr, srv := newTestWS(t)

	cmds := make(chan string, 4)
	unsub := tr.ListenCommands(cmds)
	defer unsub()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"cmd":"clear_buffer"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"cmd":"status"}`)))

	for _, want := range []string{CommandClearBuffer, CommandStatus} {
		select {
		case got := <-cmds:
			assert.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for command %s", want)
		}
	}

	// Unknown commands are logged and dropped, never fanned out.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"cmd":"reboot"}`)))
	select {
	case got := <-cmds:
		t.Fatalf("unexpected command %s", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWSTransport_NewClientReplacesOld(t *testing.T) {
	tr, srv := newTestWS(t)

	ctrl := make(chan ControlEvent, 8)
	unsub := tr.ListenControl(ctrl)
	defer unsub()

	first := dial(t, srv)
	waitControl(t, ctrl, ControlConnected)

	second := dial(t, srv)
	waitControl(t, ctrl, ControlConnected)

	// The first connection is closed server-side; the transport stays
	// connected through the second one.
	first.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := first.ReadMessage()
	assert.Error(t, err)
	assert.True(t, tr.IsConnected())

	require.True(t, tr.Send([]byte("hello")))
	second.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := second.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(msg))
}
