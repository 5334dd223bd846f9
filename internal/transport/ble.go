package transport

import (
	"fmt"
	"log"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/Tolabmc/RunTracker/internal/clock"
	"github.com/Tolabmc/RunTracker/internal/protocol"
)

// Custom service UUIDs shared with the companion firmware. The companion
// subscribes to TX notifications for workout records and writes commands to
// RX.
var (
	serviceUUID = bluetooth.NewUUID([16]byte{
		0x12, 0x34, 0x56, 0x78, 0x12, 0x34, 0x56, 0x78,
		0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf0})
	txCharUUID = bluetooth.NewUUID([16]byte{
		0x12, 0x34, 0x56, 0x78, 0x12, 0x34, 0x56, 0x78,
		0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf1})
	rxCharUUID = bluetooth.NewUUID([16]byte{
		0x12, 0x34, 0x56, 0x78, 0x12, 0x34, 0x56, 0x78,
		0x12, 0x34, 0x56, 0x78, 0x9a, 0xbc, 0xde, 0xf2})
)

// BLETransport advertises the tracker as a BLE peripheral and moves wire
// records over a custom GATT service.
type BLETransport struct {
	controlNotifier
	adapter *bluetooth.Adapter
	logger  *log.Logger

	mu        sync.RWMutex
	connected bool

	txChar bluetooth.Characteristic
	adv    *bluetooth.Advertisement
}

// NewBLETransport enables the adapter, provisions the GATT service and
// starts advertising under deviceName.
func NewBLETransport(adapter *bluetooth.Adapter, deviceName string, clk clock.Clock, logger *log.Logger) (*BLETransport, error) {
	if adapter == nil {
		panic("BLETransport: adapter cannot be nil")
	}
	if clk == nil {
		panic("BLETransport: clock cannot be nil")
	}
	if logger == nil {
		panic("BLETransport: logger cannot be nil")
	}

	t := &BLETransport{
		controlNotifier: newControlNotifier(clk),
		adapter:         adapter,
		logger:          logger,
	}

	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable BLE stack: %w", err)
	}

	adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		t.mu.Lock()
		t.connected = connected
		t.mu.Unlock()

		if connected {
			t.logger.Printf("BLETransport: central connected (%s)", device.Address)
			t.notify(ControlConnected)
		} else {
			t.logger.Printf("BLETransport: central disconnected (%s)", device.Address)
			t.notify(ControlDisconnected)
		}
	})

	err := adapter.AddService(&bluetooth.Service{
		UUID: serviceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &t.txChar,
				UUID:   txCharUUID,
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
			{
				UUID: rxCharUUID,
				Flags: bluetooth.CharacteristicWritePermission |
					bluetooth.CharacteristicWriteWithoutResponsePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					t.handleInbound(value)
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("add GATT service: %w", err)
	}

	t.adv = adapter.DefaultAdvertisement()
	err = t.adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    deviceName,
		ServiceUUIDs: []bluetooth.UUID{serviceUUID},
	})
	if err != nil {
		return nil, fmt.Errorf("configure advertisement: %w", err)
	}
	if err := t.adv.Start(); err != nil {
		return nil, fmt.Errorf("start advertising: %w", err)
	}

	logger.Printf("BLETransport: advertising as %q", deviceName)
	return t, nil
}

func (t *BLETransport) handleInbound(value []byte) {
	if protocol.IsHrDone(value) {
		t.logger.Printf("BLETransport: heart-rate confirmation received")
		t.notify(ControlHrDone)
		return
	}
	t.logger.Printf("BLETransport: unrecognized inbound payload (%d bytes)", len(value))
}

func (t *BLETransport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connected
}

// Send notifies the record to the subscribed central.
func (t *BLETransport) Send(payload []byte) bool {
	if !t.IsConnected() {
		return false
	}
	if _, err := t.txChar.Write(payload); err != nil {
		t.logger.Printf("BLETransport: notify failed: %v", err)
		return false
	}
	return true
}

func (t *BLETransport) Shutdown() {
	if t.adv != nil {
		if err := t.adv.Stop(); err != nil {
			t.logger.Printf("BLETransport: stop advertising failed: %v", err)
		}
	}
	t.logger.Printf("BLETransport: shut down")
}
