package dashboard

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"futures-monitor/internal/engine"
	"futures-monitor/internal/present"
)

var log = logrus.WithField("module", "dashboard")

// Dashboard is the interactive terminal view. It implements engine.Sink;
// Render and Fail may be called from the refresh goroutine while Run drives
// the UI.
type Dashboard struct {
	loc      *present.Locale
	pageSize int
	updateCh chan event
	done     chan struct{}

	// Input and Output default to the process terminal.
	Input  io.Reader
	Output io.Writer
}

func New(loc *present.Locale, pageSize int) *Dashboard {
	return &Dashboard{
		loc:      loc,
		pageSize: pageSize,
		updateCh: make(chan event, 1),
		done:     make(chan struct{}),
	}
}

// Render queues a snapshot, replacing one the UI has not picked up yet.
func (d *Dashboard) Render(snap engine.Snapshot) {
	d.push(event{snap: &snap})
}

func (d *Dashboard) Fail(err error) {
	d.push(event{err: err})
}

func (d *Dashboard) push(ev event) {
	for {
		select {
		case d.updateCh <- ev:
			return
		case <-d.done:
			return
		default:
		}
		select {
		case stale := <-d.updateCh:
			if stale.err != nil {
				// A failure is terminal; keep it.
				d.updateCh <- stale
				return
			}
		default:
		}
	}
}

// Run blocks until the user quits or ctx is cancelled. idle shows the
// credentials hint until the first snapshot arrives. onQuit is called when
// the user asks to quit.
func (d *Dashboard) Run(ctx context.Context, idle bool, onQuit func()) error {
	defer close(d.done)
	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if d.Input != nil {
		opts = append(opts, tea.WithInput(d.Input))
	}
	if d.Output != nil {
		opts = append(opts, tea.WithOutput(d.Output))
	}
	program := tea.NewProgram(newModel(d.updateCh, d.loc, d.pageSize, idle, onQuit), opts...)
	if _, err := program.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		log.WithError(err).Error("dashboard stopped")
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

var _ engine.Sink = (*Dashboard)(nil)
