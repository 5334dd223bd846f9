// Package config loads runtime settings from flags, environment variables and
// an optional YAML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Tolabmc/RunTracker/internal/workout"
)

// Transport selectors.
const (
	TransportBLE  = "ble"
	TransportWS   = "ws"
	TransportMock = "mock"
)

// Config is the resolved runtime configuration.
type Config struct {
	Transport          string
	DeviceName         string
	WSListen           string
	HrConfirmTimeoutMs uint32
	DefaultMode        string
	SimSensor          bool

	LogFile      string
	HistoryDB    string
	FitExportDir string
}

// Mode returns the configured interval plan.
func (c *Config) Mode() workout.Mode {
	mode, _ := workout.ParseMode(c.DefaultMode)
	return mode
}

// Load parses args (without the program name) and merges them with the
// environment (RUN_TRACKER_* variables) and ~/.run-tracker/config.yaml when
// present.
func Load(args []string) (*Config, error) {
	flags := pflag.NewFlagSet("run-tracker", pflag.ContinueOnError)
	flags.String("transport", TransportMock, "companion link: ble, ws or mock")
	flags.String("device-name", "RunTracker", "BLE advertising name")
	flags.String("ws-listen", "localhost:8090", "websocket bridge listen address")
	flags.Uint32("hr-confirm-timeout-ms", 5000, "heart-rate confirmation window")
	flags.String("default-mode", "4x500m", "interval plan at startup")
	flags.Bool("sim-sensor", true, "run the synthetic heart-rate sensor")
	flags.String("log-file", defaultPath("run-tracker.log"), "log file path")
	flags.String("history-db", defaultPath("history.db"), "workout history database")
	flags.String("fit-export-dir", defaultPath("exports"), "directory for FIT exports")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(flags); err != nil {
		return nil, err
	}
	v.SetEnvPrefix("RUN_TRACKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".run-tracker"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		Transport:          v.GetString("transport"),
		DeviceName:         v.GetString("device-name"),
		WSListen:           v.GetString("ws-listen"),
		HrConfirmTimeoutMs: v.GetUint32("hr-confirm-timeout-ms"),
		DefaultMode:        v.GetString("default-mode"),
		SimSensor:          v.GetBool("sim-sensor"),
		LogFile:            v.GetString("log-file"),
		HistoryDB:          v.GetString("history-db"),
		FitExportDir:       v.GetString("fit-export-dir"),
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Transport {
	case TransportBLE, TransportWS, TransportMock:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if _, ok := workout.ParseMode(c.DefaultMode); !ok {
		return fmt.Errorf("unknown interval plan %q", c.DefaultMode)
	}
	if c.HrConfirmTimeoutMs == 0 {
		return fmt.Errorf("hr-confirm-timeout-ms must be positive")
	}
	return nil
}

func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".run-tracker", name)
}
