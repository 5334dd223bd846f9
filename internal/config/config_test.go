package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tolabmc/RunTracker/internal/workout"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, TransportMock, cfg.Transport)
	assert.Equal(t, "RunTracker", cfg.DeviceName)
	assert.Equal(t, uint32(5000), cfg.HrConfirmTimeoutMs)
	assert.Equal(t, workout.Mode4x500m, cfg.Mode())
	assert.True(t, cfg.SimSensor)
	assert.NotEmpty(t, cfg.LogFile)
}

func TestLoad_FlagsOverrideDefaults(t *testing.T) {
	cfg, err := Load([]string{
		"--transport", "ws",
		"--ws-listen", "0.0.0.0:9000",
		"--default-mode", "2x2000m",
		"--hr-confirm-timeout-ms", "2500",
		"--sim-sensor=false",
	})
	require.NoError(t, err)

	assert.Equal(t, TransportWS, cfg.Transport)
	assert.Equal(t, "0.0.0.0:9000", cfg.WSListen)
	assert.Equal(t, workout.Mode2x2000m, cfg.Mode())
	assert.Equal(t, uint32(2500), cfg.HrConfirmTimeoutMs)
	assert.False(t, cfg.SimSensor)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("RUN_TRACKER_TRANSPORT", "ble")
	t.Setenv("RUN_TRACKER_DEVICE_NAME", "TrackOne")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, TransportBLE, cfg.Transport)
	assert.Equal(t, "TrackOne", cfg.DeviceName)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	_, err := Load([]string{"--transport", "carrier-pigeon"})
	assert.Error(t, err)

	_, err = Load([]string{"--default-mode", "3x800m"})
	assert.Error(t, err)

	_, err = Load([]string{"--hr-confirm-timeout-ms", "0"})
	assert.Error(t, err)
}
