package tracker

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tolabmc/RunTracker/internal/events"
	"github.com/Tolabmc/RunTracker/internal/goutil"
	"github.com/Tolabmc/RunTracker/internal/protocol"
	"github.com/Tolabmc/RunTracker/internal/storage"
	"github.com/Tolabmc/RunTracker/internal/transport"
	"github.com/Tolabmc/RunTracker/internal/workout"
)

const (
	// linkSettleDelay gives a fresh connection a moment before the backlog is
	// flushed into it.
	linkSettleDelay = 100 * time.Millisecond
	// interSendDelay paces backlog flushing so the link is not flooded.
	interSendDelay = 20 * time.Millisecond
)

type transmitterCommand int

const (
	cmdClearBuffer transmitterCommand = iota
)

// Transmitter is the tx task. It serializes workout events from the inbound
// queue and sends them over the transport; events that cannot be delivered go
// to the offline buffer and are replayed in order when the link comes back.
//
// The offline buffer is unsynchronized by design: the transmitter goroutine is
// its only user, and clear requests are routed through the command channel.
type Transmitter struct {
	logger *log.Logger
	link   transport.Transport
	in     *events.Queue[workout.Event]
	buffer *storage.OfflineBuffer

	ctrlCh chan transport.ControlEvent
	cmdCh  chan transmitterCommand

	bufferedCount atomic.Int32

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	unsubControl func()
}

// NewTransmitter wires the tx task. The in queue is shared with the
// coordinator; the transmitter is its only consumer.
func NewTransmitter(link transport.Transport, in *events.Queue[workout.Event], logger *log.Logger) *Transmitter {
	if link == nil {
		panic("Transmitter: transport cannot be nil")
	}
	if in == nil {
		panic("Transmitter: in queue cannot be nil")
	}
	if logger == nil {
		panic("Transmitter: logger cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Transmitter{
		logger: logger,
		link:   link,
		in:     in,
		buffer: storage.NewOfflineBuffer(logger),
		ctrlCh: make(chan transport.ControlEvent, 8),
		cmdCh:  make(chan transmitterCommand, 4),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the tx loop.
func (t *Transmitter) Start() {
	t.unsubControl = t.link.ListenControl(t.ctrlCh)
	t.wg.Add(1)
	goutil.SafeGo(t.logger, t.run)
	t.logger.Printf("Transmitter: started")
}

// Shutdown stops the tx loop and waits for it to exit. Buffered events are
// abandoned.
func (t *Transmitter) Shutdown() {
	t.cancel()
	t.wg.Wait()
	if t.unsubControl != nil {
		t.unsubControl()
	}
	t.logger.Printf("Transmitter: shut down, %d events still buffered", t.buffer.Count())
}

// RequestClear asks the tx loop to discard the offline backlog.
func (t *Transmitter) RequestClear() {
	select {
	case t.cmdCh <- cmdClearBuffer:
	default:
		t.logger.Printf("Transmitter: clear request dropped, command queue full")
	}
}

// BufferedEvents reports the offline backlog size. Safe from any goroutine.
func (t *Transmitter) BufferedEvents() int {
	return int(t.bufferedCount.Load())
}

func (t *Transmitter) run() {
	defer t.wg.Done()

	for {
		select {
		case <-t.ctx.Done():
			return

		case evt := <-t.in.Chan():
			t.dispatch(evt)

		case ctrl := <-t.ctrlCh:
			if ctrl.Kind == transport.ControlConnected {
				time.Sleep(linkSettleDelay)
				t.flush()
			}

		case cmd := <-t.cmdCh:
			if cmd == cmdClearBuffer {
				t.buffer.Clear()
				t.bufferedCount.Store(0)
				t.logger.Printf("Transmitter: offline buffer cleared")
			}
		}
	}
}

// dispatch sends one event, buffering it when the link is down or the send
// fails.
func (t *Transmitter) dispatch(evt workout.Event) {
	payload := protocol.MarshalEvent(evt)
	if payload == nil {
		t.logger.Printf("Transmitter: unserializable event %s dropped", evt.Kind)
		return
	}

	if !t.link.IsConnected() || !t.link.Send(payload) {
		t.bufferEvent(evt)
	}
}

func (t *Transmitter) bufferEvent(evt workout.Event) {
	if !t.buffer.Push(evt) {
		t.logger.Printf("Transmitter: offline buffer full, oldest event overwritten")
	}
	t.bufferedCount.Store(int32(t.buffer.Count()))
}

// flush replays the offline backlog in order. An event that fails to send
// during the replay is dropped; the link just came back and a record that
// cannot be delivered twice is not worth reordering the stream for.
func (t *Transmitter) flush() {
	n := t.buffer.Count()
	if n == 0 {
		return
	}
	t.logger.Printf("Transmitter: flushing %d buffered events", n)

	for {
		evt, ok := t.buffer.Pop()
		if !ok {
			break
		}
		t.bufferedCount.Store(int32(t.buffer.Count()))

		payload := protocol.MarshalEvent(evt)
		if payload == nil {
			continue
		}
		if !t.link.Send(payload) {
			t.logger.Printf("Transmitter: flush send failed, event %s dropped", evt.Kind)
		}
		time.Sleep(interSendDelay)
	}
	t.logger.Printf("Transmitter: flush complete")
}
