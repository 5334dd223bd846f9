// Package sensor provides the heart-rate sample source. The only
// implementation is a simulator; real sensor hardware attaches behind the same
// sample stream.
package sensor

import (
	"context"
	"log"
	"math"
	"sync"
	"time"

	"github.com/Tolabmc/RunTracker/internal/clock"
	"github.com/Tolabmc/RunTracker/internal/events"
	"github.com/Tolabmc/RunTracker/internal/goutil"
	"github.com/Tolabmc/RunTracker/internal/workout"
)

// Sample is one heart-rate reading.
type Sample struct {
	TimestampMs uint32
	Bpm         uint8
	Valid       bool
	Confidence  uint8 // 0..100
}

const (
	samplePeriod = 100 * time.Millisecond

	restingBpm = 62.0
	workingBpm = 168.0
	// responseFactor is the per-sample first-order approach toward the
	// target rate.
	responseFactor = 0.02
)

// Simulator produces a synthetic heart-rate stream: the rate climbs toward a
// working level while a workout runs and recovers toward resting otherwise,
// with a small periodic wobble on top.
type Simulator struct {
	logger  *log.Logger
	clk     clock.Clock
	session *workout.Session
	samples *events.ChannelEvent[Sample]

	bpm   float64
	phase float64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSimulator creates a simulator following the given session's state.
func NewSimulator(session *workout.Session, clk clock.Clock, logger *log.Logger) *Simulator {
	if session == nil {
		panic("Simulator: session cannot be nil")
	}
	if clk == nil {
		panic("Simulator: clock cannot be nil")
	}
	if logger == nil {
		panic("Simulator: logger cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Simulator{
		logger:  logger,
		clk:     clk,
		session: session,
		samples: events.NewChannelEvent[Sample](true),
		bpm:     restingBpm,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// ListenSamples registers ch for the sample stream and returns a
// deregistration function. The latest sample is replayed on registration.
func (s *Simulator) ListenSamples(ch chan<- Sample) func() {
	return s.samples.Listen(ch)
}

// Start launches the sample loop.
func (s *Simulator) Start() {
	s.wg.Add(1)
	goutil.SafeGo(s.logger, s.run)
	s.logger.Printf("Simulator: started, %v sample period", samplePeriod)
}

// Shutdown stops the sample loop and waits for it to exit.
func (s *Simulator) Shutdown() {
	s.cancel()
	s.wg.Wait()
	s.logger.Printf("Simulator: shut down")
}

func (s *Simulator) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(samplePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.samples.Notify(s.nextSample())
		}
	}
}

func (s *Simulator) nextSample() Sample {
	target := restingBpm
	if s.session.State() == workout.StateRunning {
		target = workingBpm
	}
	s.bpm += (target - s.bpm) * responseFactor
	s.phase += 0.05

	bpm := s.bpm + 2.0*math.Sin(s.phase)
	return Sample{
		TimestampMs: s.clk.NowMs(),
		Bpm:         uint8(math.Round(bpm)),
		Valid:       true,
		Confidence:  95,
	}
}
