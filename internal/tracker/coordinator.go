package tracker

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tolabmc/RunTracker/internal/clock"
	"github.com/Tolabmc/RunTracker/internal/events"
	"github.com/Tolabmc/RunTracker/internal/goutil"
	"github.com/Tolabmc/RunTracker/internal/protocol"
	"github.com/Tolabmc/RunTracker/internal/transport"
	"github.com/Tolabmc/RunTracker/internal/workout"
)

// CtrlState is the coordinator's own mode, layered above the session
// lifecycle. HrWait is the bounded window between a lap press and the
// companion's heart-rate confirmation.
type CtrlState int32

const (
	CtrlIdle CtrlState = iota
	CtrlRunning
	CtrlHrWait
)

func (s CtrlState) String() string {
	switch s {
	case CtrlIdle:
		return "idle"
	case CtrlRunning:
		return "running"
	case CtrlHrWait:
		return "hr_wait"
	default:
		return "unknown"
	}
}

const (
	// DefaultHrConfirmTimeoutMs bounds the heart-rate confirmation wait. On
	// expiry the lap is recorded unconfirmed.
	DefaultHrConfirmTimeoutMs = 5000

	buttonQueueCapacity = 8
	controlChanCapacity = 8
	pollInterval        = 10 * time.Millisecond
)

// Recorder receives the final snapshot of every ended workout. Calls are made
// from a detached goroutine so a slow sink never stalls the control loop.
type Recorder interface {
	SessionCompleted(snap workout.Snapshot)
}

// Coordinator is the control task. It owns all session mutations: button
// presses and transport control events funnel into a single goroutine, which
// drives the state machine and emits workout events to the outbound queue.
type Coordinator struct {
	logger  *log.Logger
	clk     clock.Clock
	session *workout.Session
	link    transport.Transport
	out     *events.Queue[workout.Event]

	buttons *events.Queue[ButtonEvent]
	ctrlCh  chan transport.ControlEvent

	state         atomic.Int32
	hrWaitStartMs uint32
	hrTimeoutMs   uint32

	recorder Recorder

	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	unsubControl func()
}

// NewCoordinator wires the control task. The out queue is shared with the
// transmitter; the coordinator is its only producer.
func NewCoordinator(session *workout.Session, link transport.Transport, out *events.Queue[workout.Event],
	clk clock.Clock, logger *log.Logger) *Coordinator {
	if session == nil {
		panic("Coordinator: session cannot be nil")
	}
	if link == nil {
		panic("Coordinator: transport cannot be nil")
	}
	if out == nil {
		panic("Coordinator: out queue cannot be nil")
	}
	if clk == nil {
		panic("Coordinator: clock cannot be nil")
	}
	if logger == nil {
		panic("Coordinator: logger cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		logger:      logger,
		clk:         clk,
		session:     session,
		link:        link,
		out:         out,
		buttons:     events.NewQueue[ButtonEvent]("buttons", buttonQueueCapacity, logger),
		ctrlCh:      make(chan transport.ControlEvent, controlChanCapacity),
		hrTimeoutMs: DefaultHrConfirmTimeoutMs,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetHrConfirmTimeout overrides the confirmation window. Call before Start.
func (c *Coordinator) SetHrConfirmTimeout(ms uint32) {
	c.hrTimeoutMs = ms
}

// SetRecorder attaches a completed-workout sink. Call before Start.
func (c *Coordinator) SetRecorder(r Recorder) {
	c.recorder = r
}

// Start launches the control loop.
func (c *Coordinator) Start() {
	c.unsubControl = c.link.ListenControl(c.ctrlCh)
	c.wg.Add(1)
	goutil.SafeGo(c.logger, c.run)
	c.logger.Printf("Coordinator: started")
}

// Shutdown stops the control loop and waits for it to exit.
func (c *Coordinator) Shutdown() {
	c.cancel()
	c.wg.Wait()
	if c.unsubControl != nil {
		c.unsubControl()
	}
	c.logger.Printf("Coordinator: shut down")
}

// PressButton enqueues a press for the control loop. Never blocks; a full
// queue drops the press.
func (c *Coordinator) PressButton(kind ButtonKind) {
	c.buttons.TrySend(ButtonEvent{Kind: kind, TimestampMs: c.clk.NowMs()})
}

// State returns the coordinator mode. Safe from any goroutine.
func (c *Coordinator) State() CtrlState {
	return CtrlState(c.state.Load())
}

// IsHrWaitActive reports whether a heart-rate confirmation is pending.
func (c *Coordinator) IsHrWaitActive() bool {
	return c.State() == CtrlHrWait
}

func (c *Coordinator) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case btn := <-c.buttons.Chan():
			c.handleButton(btn)
		case evt := <-c.ctrlCh:
			c.handleControl(evt)
		case <-ticker.C:
			c.checkHrDeadline()
		}
	}
}

func (c *Coordinator) handleControl(evt transport.ControlEvent) {
	if evt.Kind != transport.ControlHrDone {
		// Link state changes belong to the transmitter.
		return
	}
	if c.State() != CtrlHrWait {
		c.logger.Printf("Coordinator: stray heart-rate confirmation ignored")
		return
	}
	c.exitHrWait(true)
}

func (c *Coordinator) checkHrDeadline() {
	if c.State() != CtrlHrWait {
		return
	}
	if clock.ElapsedMs(c.clk, c.hrWaitStartMs) > c.hrTimeoutMs {
		c.logger.Printf("Coordinator: heart-rate confirmation timed out after %d ms", c.hrTimeoutMs)
		c.exitHrWait(false)
	}
}

func (c *Coordinator) handleButton(btn ButtonEvent) {
	c.logger.Printf("Coordinator: button %s in state %s", btn.Kind, c.State())

	switch c.State() {
	case CtrlIdle:
		c.handleButtonIdle(btn.Kind)
	case CtrlRunning:
		c.handleButtonRunning(btn.Kind)
	case CtrlHrWait:
		c.handleButtonHrWait(btn.Kind)
	}
}

func (c *Coordinator) handleButtonIdle(kind ButtonKind) {
	switch kind {
	case ButtonStart:
		// A completed workout restarts fresh on the next start press.
		if c.session.State() == workout.StateCompleted {
			c.session.Reset()
		}
		if c.session.Start() {
			c.emit(workout.EventStart)
			c.state.Store(int32(CtrlRunning))
		}

	case ButtonModeNext:
		if c.session.State() == workout.StateCompleted {
			c.session.Reset()
		}
		c.session.CycleMode()

	case ButtonStatus:
		c.emit(workout.EventStatusUpdate)
	}
}

func (c *Coordinator) handleButtonRunning(kind ButtonKind) {
	switch kind {
	case ButtonStart:
		// Resume if paused; a no-op otherwise.
		c.session.Start()

	case ButtonLap:
		if c.session.State() != workout.StateRunning {
			c.logger.Printf("Coordinator: lap ignored, session %s", c.session.State())
			return
		}
		c.enterHrWait()

	case ButtonStop:
		switch c.session.State() {
		case workout.StateRunning:
			c.session.Pause()
		case workout.StatePaused:
			if c.session.Stop() {
				c.emit(workout.EventStop)
				c.recordCompleted()
				c.state.Store(int32(CtrlIdle))
			}
		}

	case ButtonStatus:
		c.emit(workout.EventStatusUpdate)
	}
}

func (c *Coordinator) handleButtonHrWait(kind ButtonKind) {
	switch kind {
	case ButtonStop:
		c.logger.Printf("Coordinator: heart-rate wait cancelled by stop")
		c.exitHrWait(false)

	case ButtonStatus:
		c.emit(workout.EventStatusUpdate)
	}
}

// enterHrWait pauses the session and asks the companion to confirm a
// heart-rate reading before the lap is recorded. The request is fire and
// forget; a dead link just means the timeout path records the lap.
func (c *Coordinator) enterHrWait() {
	if !c.session.Pause() {
		return
	}
	c.hrWaitStartMs = c.clk.NowMs()
	c.state.Store(int32(CtrlHrWait))

	if c.link.IsConnected() {
		if !c.link.Send(protocol.HrRequest()) {
			c.logger.Printf("Coordinator: heart-rate request not delivered")
		}
	}
	c.logger.Printf("Coordinator: waiting for heart-rate confirmation")
}

// exitHrWait resumes the session and records the lap. Resuming first credits
// the paused interval exactly once, so lap and split times stay consistent
// whether the confirmation arrived or timed out.
func (c *Coordinator) exitHrWait(confirmed bool) {
	c.session.Start()
	lap, ok := c.session.RecordLap()
	if !ok {
		c.state.Store(int32(CtrlRunning))
		return
	}
	if confirmed {
		c.logger.Printf("Coordinator: lap %d recorded with heart-rate confirmation", lap.LapNumber)
	} else {
		c.logger.Printf("Coordinator: lap %d recorded without confirmation", lap.LapNumber)
	}

	if c.session.State() == workout.StateCompleted {
		c.emit(workout.EventDone)
		c.recordCompleted()
		c.state.Store(int32(CtrlIdle))
	} else {
		c.emit(workout.EventLapComplete)
		c.state.Store(int32(CtrlRunning))
	}
}

func (c *Coordinator) recordCompleted() {
	if c.recorder == nil {
		return
	}
	snap := c.session.Snapshot()
	goutil.SafeGo(c.logger, func() {
		c.recorder.SessionCompleted(snap)
	})
}

// emit builds a self-contained event from the current session state and hands
// it to the outbound queue.
func (c *Coordinator) emit(kind workout.EventKind) {
	snap := c.session.Snapshot()
	evt := workout.Event{
		Kind:        kind,
		TimestampMs: c.clk.NowMs(),
		CurrentLap:  snap.CurrentLap,
		Mode:        snap.Config.Mode,
		TotalLaps:   snap.Config.TotalLaps,
		State:       snap.State,
		ElapsedMs:   snap.ElapsedMs,
		TotalMs:     snap.ElapsedMs,
	}

	switch kind {
	case workout.EventStatusUpdate:
		c.logger.Printf("Coordinator: status %s, lap %d/%d, elapsed %s",
			snap.State, snap.CurrentLap, snap.Config.TotalLaps, clock.FormatMmSsMsss(snap.ElapsedMs))
	case workout.EventLapComplete, workout.EventDone:
		if n := len(snap.Laps); n > 0 {
			evt.Lap = snap.Laps[n-1]
		}
	}

	c.out.TrySend(evt)
}
