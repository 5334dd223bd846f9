package sensor

import (
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tolabmc/RunTracker/internal/clock"
	"github.com/Tolabmc/RunTracker/internal/workout"
)

func collectSamples(t *testing.T, sim *Simulator, n int) []Sample {
	t.Helper()
	ch := make(chan Sample, n*2)
	unsub := sim.ListenSamples(ch)
	defer unsub()

	samples := make([]Sample, 0, n)
	deadline := time.After(time.Duration(n+20) * samplePeriod)
	for len(samples) < n {
		select {
		case s := <-ch:
			samples = append(samples, s)
		case <-deadline:
			t.Fatalf("collected only %d of %d samples", len(samples), n)
		}
	}
	return samples
}

func TestSimulator_RestingRateWhileIdle(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	clk := clock.NewFakeClock(0)
	session := workout.NewSession(clk, logger)

	sim := NewSimulator(session, clk, logger)
	sim.Start()
	t.Cleanup(sim.Shutdown)

	for _, s := range collectSamples(t, sim, 5) {
		assert.True(t, s.Valid)
		assert.InDelta(t, 62, float64(s.Bpm), 5)
	}
}

func TestSimulator_RateClimbsWhileRunning(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	clk := clock.NewFakeClock(0)
	session := workout.NewSession(clk, logger)
	require.True(t, session.Start())

	sim := NewSimulator(session, clk, logger)
	sim.Start()
	t.Cleanup(sim.Shutdown)

	samples := collectSamples(t, sim, 12)
	first, last := samples[0], samples[len(samples)-1]
	assert.Greater(t, last.Bpm, first.Bpm, "heart rate should climb under load")
}

func TestSimulator_NilDependenciesPanic(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	clk := clock.NewFakeClock(0)
	session := workout.NewSession(clk, logger)

	assert.Panics(t, func() { NewSimulator(nil, clk, logger) })
	assert.Panics(t, func() { NewSimulator(session, nil, logger) })
	assert.Panics(t, func() { NewSimulator(session, clk, nil) })
}
