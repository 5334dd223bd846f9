package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/rivo/tview"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"
	"tinygo.org/x/bluetooth"

	"github.com/Tolabmc/RunTracker/internal/clock"
	"github.com/Tolabmc/RunTracker/internal/config"
	"github.com/Tolabmc/RunTracker/internal/events"
	"github.com/Tolabmc/RunTracker/internal/goutil"
	"github.com/Tolabmc/RunTracker/internal/history"
	"github.com/Tolabmc/RunTracker/internal/sensor"
	"github.com/Tolabmc/RunTracker/internal/tracker"
	"github.com/Tolabmc/RunTracker/internal/transport"
	"github.com/Tolabmc/RunTracker/internal/ui"
	"github.com/Tolabmc/RunTracker/internal/workout"
)

const eventQueueCapacity = 4

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	for _, dir := range []string{filepath.Dir(cfg.LogFile), filepath.Dir(cfg.HistoryDB), cfg.FitExportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintln(os.Stderr, "cannot create", dir, ":", err)
			os.Exit(1)
		}
	}

	app := tview.NewApplication()

	// The log view is shared with the dashboard; see the note in ui.View about
	// not drawing from the changed callback.
	logView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	logView.SetBorder(true).SetTitle(" Logs ")

	logger := log.New(io.MultiWriter(
		&lumberjack.Logger{Filename: cfg.LogFile, MaxSize: 5, MaxBackups: 3},
		logView,
	), "", log.Ltime)

	clk := clock.NewSystemClock()
	session := workout.NewSession(clk, logger)
	session.SetMode(cfg.Mode())

	link, wsLink, err := buildTransport(cfg, clk, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "transport error:", err)
		os.Exit(1)
	}

	out := events.NewQueue[workout.Event]("events", eventQueueCapacity, logger)
	tx := tracker.NewTransmitter(link, out, logger)
	coord := tracker.NewCoordinator(session, link, out, clk, logger)
	coord.SetHrConfirmTimeout(cfg.HrConfirmTimeoutMs)

	hist, err := history.NewService(cfg.HistoryDB, logger)
	if err != nil {
		logger.Printf("Main: history disabled: %v", err)
	} else {
		coord.SetRecorder(&archiver{hist: hist, exportDir: cfg.FitExportDir, logger: logger})
	}

	tx.Start()
	coord.Start()

	var sim *sensor.Simulator
	if cfg.SimSensor {
		sim = sensor.NewSimulator(session, clk, logger)
		sim.Start()
	}

	stopCommands := func() {}
	if wsLink != nil {
		stopCommands = listenCommands(wsLink, coord, tx, logger)
	}

	view := ui.NewView(app, logView, session, coord, tx, link, sim, logger)
	logger.Printf("Main: run-tracker started, transport %s", cfg.Transport)
	runErr := view.Run()

	stopCommands()
	coord.Shutdown()
	if sim != nil {
		sim.Shutdown()
	}
	tx.Shutdown()
	link.Shutdown()
	if hist != nil {
		hist.Close()
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, "ui error:", runErr)
		os.Exit(1)
	}
}

// buildTransport returns the configured link; the second result is non-nil
// only for the websocket bridge, which additionally carries operator commands.
func buildTransport(cfg *config.Config, clk clock.Clock, logger *log.Logger) (transport.Transport, *transport.WSTransport, error) {
	switch cfg.Transport {
	case config.TransportBLE:
		link, err := transport.NewBLETransport(bluetooth.DefaultAdapter, cfg.DeviceName, clk, logger)
		return link, nil, err

	case config.TransportWS:
		ws := transport.NewWSTransport(cfg.WSListen, clk, logger)
		return ws, ws, nil

	default:
		mock := transport.NewMockTransport(clk, logger)
		mock.SetAutoConfirm(1500 * time.Millisecond)
		return mock, nil, nil
	}
}

// listenCommands routes websocket operator commands to the right task and
// returns a stop function.
func listenCommands(ws *transport.WSTransport, coord *tracker.Coordinator, tx *tracker.Transmitter, logger *log.Logger) func() {
	ch := make(chan string, 8)
	unsub := ws.ListenCommands(ch)
	done := make(chan struct{})

	goutil.SafeGo(logger, func() {
		for {
			select {
			case <-done:
				return
			case cmd := <-ch:
				switch cmd {
				case transport.CommandClearBuffer:
					tx.RequestClear()
				case transport.CommandStatus:
					coord.PressButton(tracker.ButtonStatus)
				}
			}
		}
	})

	return func() {
		unsub()
		close(done)
	}
}

// archiver persists every ended workout and drops a FIT export next to it.
type archiver struct {
	hist      *history.Service
	exportDir string
	logger    *log.Logger
}

func (a *archiver) SessionCompleted(snap workout.Snapshot) {
	a.hist.SessionCompleted(snap)

	recs, err := a.hist.RecentSessions(1)
	if err != nil || len(recs) == 0 {
		return
	}
	path := filepath.Join(a.exportDir, fmt.Sprintf("workout_%d.fit", recs[0].ID))
	if err := a.hist.ExportFIT(recs[0], path); err != nil {
		a.logger.Printf("Main: FIT export failed: %v", err)
	}
}
