package workout

import (
	"log"
	"sync"

	"github.com/Tolabmc/RunTracker/internal/clock"
)

// MaxLaps is the lap storage capacity; no mode needs more.
const MaxLaps = 8

// State is the lifecycle state of the session.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateRest // reserved for timed-rest interval plans
	StatePaused
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateRest:
		return "REST"
	case StatePaused:
		return "PAUSED"
	case StateCompleted:
		return "COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// LapRecord is one completed interval. Written exactly once, never mutated.
type LapRecord struct {
	LapNumber   uint8
	LapTimeMs   uint32
	SplitTimeMs uint32
}

// Session is the workout lifecycle state machine.
//
// Lifecycle: Idle -> Running <-> Paused -> Completed, with Completed -> Idle
// only through Reset. All mutators are expected to be called from a single
// goroutine (the control coordinator); the internal lock exists so that other
// tasks can take consistent read snapshots while a mutation is in flight,
// never to serialize writers.
type Session struct {
	mu     sync.RWMutex
	logger *log.Logger
	clk    clock.Clock

	cfg          Config
	state        State
	currentLap   uint8 // 1-based, valid while Running/Paused/Completed
	lapsRecorded uint8

	workoutStartMs uint32
	lapStartMs     uint32
	pauseStartMs   uint32
	totalPausedMs  uint32
	totalMs        uint32 // frozen elapsed time, valid once Completed

	laps [MaxLaps]LapRecord
}

// Snapshot is a consistent read-only copy of the session for concurrent
// readers.
type Snapshot struct {
	Config       Config
	State        State
	CurrentLap   uint8
	Laps         []LapRecord // completed laps only, in order
	ElapsedMs    uint32
	CurrentLapMs uint32
}

// NewSession creates an idle session with the default 4x500m plan.
func NewSession(clk clock.Clock, logger *log.Logger) *Session {
	if clk == nil {
		panic("Session: clock cannot be nil")
	}
	if logger == nil {
		panic("Session: logger cannot be nil")
	}
	s := &Session{
		logger: logger,
		clk:    clk,
		cfg:    Mode4x500m.Config(),
		state:  StateIdle,
	}
	logger.Printf("Session: initialized, mode %s", s.cfg.Mode)
	return s
}

// SetMode changes the interval plan. Allowed only while Idle.
func (s *Session) SetMode(m Mode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		s.logger.Printf("Session: cannot change mode in state %s", s.state)
		return false
	}
	s.cfg = m.Config()
	s.logger.Printf("Session: mode set to %s (%d laps)", m, s.cfg.TotalLaps)
	return true
}

// CycleMode advances to the next interval plan. Allowed only while Idle.
func (s *Session) CycleMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		s.logger.Printf("Session: cannot change mode in state %s", s.state)
		return false
	}
	s.cfg = s.cfg.Mode.Next().Config()
	s.logger.Printf("Session: mode changed to %s (%d laps)", s.cfg.Mode, s.cfg.TotalLaps)
	return true
}

// Start begins a new workout from Idle or resumes from Paused. Running and
// Completed are no-ops (the latter needs a Reset first).
func (s *Session) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.NowMs()
	switch s.state {
	case StateIdle:
		s.state = StateRunning
		s.currentLap = 1
		s.workoutStartMs = now
		s.lapStartMs = now
		s.totalPausedMs = 0
		s.logger.Printf("Session: workout started, mode %s (%d laps)", s.cfg.Mode, s.cfg.TotalLaps)
		return true

	case StatePaused:
		s.state = StateRunning
		s.totalPausedMs += now - s.pauseStartMs
		s.logger.Printf("Session: workout resumed, lap %d", s.currentLap)
		return true

	case StateRunning:
		s.logger.Printf("Session: already running")
		return false

	default: // Completed
		s.logger.Printf("Session: workout completed, reset to start a new one")
		return false
	}
}

// RecordLap closes the current lap. Valid only while Running. Records the lap
// and either advances to the next lap or completes the workout on the final
// one.
func (s *Session) RecordLap() (LapRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		s.logger.Printf("Session: cannot record lap in state %s", s.state)
		return LapRecord{}, false
	}

	now := s.clk.NowMs()
	lap := LapRecord{
		LapNumber:   s.currentLap,
		LapTimeMs:   now - s.lapStartMs,
		SplitTimeMs: now - s.workoutStartMs - s.totalPausedMs,
	}
	s.laps[s.currentLap-1] = lap
	s.lapsRecorded = s.currentLap

	s.logger.Printf("Session: lap %d complete, lap %s split %s",
		lap.LapNumber, clock.FormatMmSsMsss(lap.LapTimeMs), clock.FormatMmSsMsss(lap.SplitTimeMs))

	if s.currentLap >= s.cfg.TotalLaps {
		s.state = StateCompleted
		s.totalMs = lap.SplitTimeMs
		s.logger.Printf("Session: workout complete, total %s", clock.FormatMmSsMsss(lap.SplitTimeMs))
	} else {
		s.currentLap++
		s.lapStartMs = now
		s.logger.Printf("Session: lap %d started", s.currentLap)
	}
	return lap, true
}

// Pause suspends a running workout. Valid only while Running.
func (s *Session) Pause() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		s.logger.Printf("Session: cannot pause in state %s", s.state)
		return false
	}
	s.state = StatePaused
	s.pauseStartMs = s.clk.NowMs()
	s.logger.Printf("Session: paused at lap %d", s.currentLap)
	return true
}

// Stop ends the workout from Running or Paused. The session cannot be
// resumed afterwards, only Reset.
func (s *Session) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle || s.state == StateCompleted {
		s.logger.Printf("Session: no active workout to stop")
		return false
	}
	now := s.clk.NowMs()
	if s.state == StatePaused {
		s.totalPausedMs += now - s.pauseStartMs
	}
	s.totalMs = now - s.workoutStartMs - s.totalPausedMs
	s.state = StateCompleted
	s.logger.Printf("Session: stopped after %d of %d laps", s.lapsRecorded, s.cfg.TotalLaps)
	return true
}

// Reset unconditionally returns to Idle, keeping the configured mode and
// clearing all lap data.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode := s.cfg.Mode
	s.cfg = mode.Config()
	s.state = StateIdle
	s.currentLap = 0
	s.lapsRecorded = 0
	s.workoutStartMs = 0
	s.lapStartMs = 0
	s.pauseStartMs = 0
	s.totalPausedMs = 0
	s.totalMs = 0
	s.laps = [MaxLaps]LapRecord{}
	s.logger.Printf("Session: reset, mode %s", mode)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Config returns the active interval plan constants.
func (s *Session) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// ElapsedMs returns workout time excluding paused intervals: 0 while Idle,
// frozen while Paused and once Completed. Modular uint32 arithmetic keeps
// this correct across a clock wrap.
func (s *Session) ElapsedMs() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.elapsedMsLocked()
}

func (s *Session) elapsedMsLocked() uint32 {
	if s.state == StateIdle {
		return 0
	}
	if s.state == StateCompleted {
		return s.totalMs
	}
	elapsed := s.clk.NowMs() - s.workoutStartMs - s.totalPausedMs
	if s.state == StatePaused {
		elapsed -= s.clk.NowMs() - s.pauseStartMs
	}
	return elapsed
}

// CurrentLapMs returns time in the current lap, 0 unless Running.
func (s *Session) CurrentLapMs() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentLapMsLocked()
}

func (s *Session) currentLapMsLocked() uint32 {
	if s.state != StateRunning {
		return 0
	}
	return s.clk.NowMs() - s.lapStartMs
}

// Snapshot returns a consistent copy of the session for concurrent readers.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Config:       s.cfg,
		State:        s.state,
		CurrentLap:   s.currentLap,
		ElapsedMs:    s.elapsedMsLocked(),
		CurrentLapMs: s.currentLapMsLocked(),
	}

	if s.lapsRecorded > 0 {
		snap.Laps = make([]LapRecord, s.lapsRecorded)
		copy(snap.Laps, s.laps[:s.lapsRecorded])
	}
	return snap
}
