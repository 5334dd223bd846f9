// Package ui is the terminal dashboard. It renders the live workout state and
// maps the serial test keys onto the coordinator's buttons.
package ui

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/Tolabmc/RunTracker/internal/clock"
	"github.com/Tolabmc/RunTracker/internal/goutil"
	"github.com/Tolabmc/RunTracker/internal/sensor"
	"github.com/Tolabmc/RunTracker/internal/tracker"
	"github.com/Tolabmc/RunTracker/internal/transport"
	"github.com/Tolabmc/RunTracker/internal/workout"
)

const refreshInterval = 200 * time.Millisecond

// View is the tview dashboard: status and lap panels on the left, the shared
// log view on the right.
type View struct {
	logger  *log.Logger
	app     *tview.Application
	session *workout.Session
	coord   *tracker.Coordinator
	tx      *tracker.Transmitter
	link    transport.Transport
	sim     *sensor.Simulator // nil when the sensor is disabled

	statusPanel *tview.TextView
	lapTable    *tview.Table
	logView     *tview.TextView
	rootFlex    *tview.Flex

	hrBpm atomic.Uint32 // 0 means no reading yet

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewView builds the dashboard. logView is created by the caller so the
// logger can be wired to it before the view exists; sim may be nil.
func NewView(app *tview.Application, logView *tview.TextView, session *workout.Session,
	coord *tracker.Coordinator, tx *tracker.Transmitter, link transport.Transport,
	sim *sensor.Simulator, logger *log.Logger) *View {
	if app == nil {
		panic("View: app cannot be nil")
	}
	if logView == nil {
		panic("View: logView cannot be nil")
	}
	if session == nil {
		panic("View: session cannot be nil")
	}
	if coord == nil {
		panic("View: coordinator cannot be nil")
	}
	if tx == nil {
		panic("View: transmitter cannot be nil")
	}
	if link == nil {
		panic("View: transport cannot be nil")
	}
	if logger == nil {
		panic("View: logger cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	v := &View{
		logger:  logger,
		app:     app,
		session: session,
		coord:   coord,
		tx:      tx,
		link:    link,
		sim:     sim,
		logView: logView,
		ctx:     ctx,
		cancel:  cancel,
	}
	v.build()
	return v
}

func (v *View) build() {
	instructions := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	instructions.SetText("[yellow]S[white] Start/Resume  |  [yellow]L[white] Lap  |  [yellow]X[white] Stop/Pause  |  [yellow]M[white] Mode  |  [yellow]?[white] Status  |  [yellow]Esc[white] Quit")

	v.statusPanel = tview.NewTextView().SetDynamicColors(true)
	v.statusPanel.SetBorder(true).SetTitle(" Workout ")

	v.lapTable = tview.NewTable().SetBorders(false)
	v.lapTable.SetBorder(true).SetTitle(" Laps ")

	leftFlex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(instructions, 2, 0, false).
		AddItem(v.statusPanel, 10, 0, false).
		AddItem(v.lapTable, 0, 1, true)

	v.rootFlex = tview.NewFlex().
		AddItem(leftFlex, 0, 1, true).
		AddItem(v.logView, 0, 1, false)

	v.app.SetInputCapture(v.handleKey)
}

func (v *View) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyEscape:
		v.app.Stop()
		return nil
	case tcell.KeyTab:
		if v.lapTable.HasFocus() {
			v.app.SetFocus(v.logView)
		} else {
			v.app.SetFocus(v.lapTable)
		}
		return nil
	}

	switch event.Rune() {
	case 's', 'S':
		v.coord.PressButton(tracker.ButtonStart)
	case 'l', 'L':
		v.coord.PressButton(tracker.ButtonLap)
	case 'x', 'X':
		v.coord.PressButton(tracker.ButtonStop)
	case 'm', 'M':
		v.coord.PressButton(tracker.ButtonModeNext)
	case '?':
		v.coord.PressButton(tracker.ButtonStatus)
	default:
		return event
	}
	return nil
}

// Run starts the refresh and sample loops and blocks in the tview event loop
// until the user quits.
func (v *View) Run() error {
	v.wg.Add(1)
	goutil.SafeGo(v.logger, v.refreshLoop)

	if v.sim != nil {
		v.wg.Add(1)
		goutil.SafeGo(v.logger, v.sampleLoop)
	}

	err := v.app.SetRoot(v.rootFlex, true).SetFocus(v.lapTable).Run()
	v.cancel()
	v.wg.Wait()
	return err
}

func (v *View) refreshLoop() {
	defer v.wg.Done()

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-v.ctx.Done():
			return
		case <-ticker.C:
			v.app.QueueUpdateDraw(v.refresh)
		}
	}
}

func (v *View) sampleLoop() {
	defer v.wg.Done()

	ch := make(chan sensor.Sample, 16)
	unsub := v.sim.ListenSamples(ch)
	defer unsub()

	for {
		select {
		case <-v.ctx.Done():
			return
		case s := <-ch:
			if s.Valid {
				v.hrBpm.Store(uint32(s.Bpm))
			}
		}
	}
}

func (v *View) refresh() {
	snap := v.session.Snapshot()

	linkState := "[red]offline[white]"
	if v.link.IsConnected() {
		linkState = "[green]connected[white]"
	}

	hr := "--"
	if bpm := v.hrBpm.Load(); bpm > 0 {
		hr = fmt.Sprintf("%d bpm", bpm)
	}

	ctrl := v.coord.State()
	stateColor := "white"
	switch snap.State {
	case workout.StateRunning:
		stateColor = "green"
	case workout.StatePaused:
		stateColor = "yellow"
	case workout.StateCompleted:
		stateColor = "blue"
	}

	v.statusPanel.SetText(fmt.Sprintf(
		" State:    [%s]%s[white] (%s)\n"+
			" Mode:     %s\n"+
			" Lap:      %d / %d\n"+
			" Elapsed:  %s\n"+
			" Lap time: %s\n"+
			" HR:       %s\n"+
			" Link:     %s\n"+
			" Buffered: %d",
		stateColor, snap.State, ctrl,
		snap.Config.Mode,
		snap.CurrentLap, snap.Config.TotalLaps,
		clock.FormatMmSsMsss(snap.ElapsedMs),
		clock.FormatMmSsMsss(snap.CurrentLapMs),
		hr,
		linkState,
		v.tx.BufferedEvents()))

	v.renderLaps(snap)
}

func (v *View) renderLaps(snap workout.Snapshot) {
	v.lapTable.Clear()
	for col, h := range []string{" # ", " Lap ", " Split "} {
		v.lapTable.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).SetSelectable(false))
	}
	for i, lap := range snap.Laps {
		v.lapTable.SetCell(i+1, 0, tview.NewTableCell(fmt.Sprintf(" %d ", lap.LapNumber)))
		v.lapTable.SetCell(i+1, 1, tview.NewTableCell(" "+clock.FormatMmSsMsss(lap.LapTimeMs)+" "))
		v.lapTable.SetCell(i+1, 2, tview.NewTableCell(" "+clock.FormatMmSsMsss(lap.SplitTimeMs)+" "))
	}
}
