package transport

import (
	"log"
	"sync"
	"time"

	"github.com/Tolabmc/RunTracker/internal/clock"
	"github.com/Tolabmc/RunTracker/internal/goutil"
	"github.com/Tolabmc/RunTracker/internal/protocol"
)

// MockTransport is an in-process Transport for tests and demo runs. Link
// state is driven manually; sent payloads are recorded. With auto-confirm
// enabled it answers a heart-rate request after a fixed delay, playing the
// part of the companion device.
type MockTransport struct {
	controlNotifier
	logger *log.Logger

	mu               sync.RWMutex
	connected        bool
	failSends        bool
	sent             [][]byte
	autoConfirm      bool
	autoConfirmDelay time.Duration
}

func NewMockTransport(clk clock.Clock, logger *log.Logger) *MockTransport {
	if clk == nil {
		panic("MockTransport: clock cannot be nil")
	}
	if logger == nil {
		panic("MockTransport: logger cannot be nil")
	}
	return &MockTransport{
		controlNotifier: newControlNotifier(clk),
		logger:          logger,
		connected:       true,
	}
}

func (m *MockTransport) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

func (m *MockTransport) Send(payload []byte) bool {
	m.mu.Lock()
	if !m.connected || m.failSends {
		m.mu.Unlock()
		return false
	}
	buf := make([]byte, len(payload))
	copy(buf, payload)
	m.sent = append(m.sent, buf)
	autoConfirm := m.autoConfirm
	delay := m.autoConfirmDelay
	m.mu.Unlock()

	if autoConfirm && string(payload) == string(protocol.HrRequest()) {
		goutil.SafeGo(m.logger, func() {
			time.Sleep(delay)
			m.InjectHrDone()
		})
	}
	return true
}

func (m *MockTransport) Shutdown() {}

// SetConnected flips the simulated link state and raises the matching
// control event on an actual change.
func (m *MockTransport) SetConnected(connected bool) {
	m.mu.Lock()
	changed := m.connected != connected
	m.connected = connected
	m.mu.Unlock()

	if !changed {
		return
	}
	if connected {
		m.notify(ControlConnected)
	} else {
		m.notify(ControlDisconnected)
	}
}

// SetFailSends makes Send fail while the link still reports connected,
// simulating a flaky radio.
func (m *MockTransport) SetFailSends(fail bool) {
	m.mu.Lock()
	m.failSends = fail
	m.mu.Unlock()
}

// SetAutoConfirm makes the mock answer each hr_req with hr_done after delay.
func (m *MockTransport) SetAutoConfirm(delay time.Duration) {
	m.mu.Lock()
	m.autoConfirm = true
	m.autoConfirmDelay = delay
	m.mu.Unlock()
}

// InjectHrDone raises the heart-rate confirmation control event.
func (m *MockTransport) InjectHrDone() {
	m.notify(ControlHrDone)
}

// Sent returns a copy of every payload accepted so far.
func (m *MockTransport) Sent() [][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

// SentCount returns how many payloads were accepted.
func (m *MockTransport) SentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sent)
}
