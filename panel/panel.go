// Package panel draws the terminal control row for the rain mixer and maps keys to mixer actions
package panel

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/rain-ambience/audio"
	"github.com/lixenwraith/rain-ambience/constant"
	"github.com/lixenwraith/rain-ambience/status"
)

// Controller is the mixer surface the panel drives
type Controller interface {
	Toggle() bool
	ToggleMute() bool
	EnsurePlaying()
	Status() audio.Status
	Changes() <-chan struct{}
}

// Options tune panel presentation
type Options struct {
	// ShowStats opens with the metrics overlay visible
	ShowStats bool
	// Silent marks output as falling back to the null sink
	Silent bool
}

// Panel owns the screen while the UI runs
type Panel struct {
	screen   tcell.Screen
	ctrl     Controller
	registry *status.Registry

	width, height int

	// Interaction state
	interacted bool
	showStats  bool
	silent     bool

	// Animation state
	start   time.Time
	spinner int
}

// NewScreen creates and initializes a terminal screen with focus reporting
func NewScreen() (tcell.Screen, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.EnableFocus()
	screen.HideCursor()
	return screen, nil
}

// New creates a panel over an initialized screen
func New(screen tcell.Screen, ctrl Controller, registry *status.Registry, opts Options) *Panel {
	p := &Panel{
		screen:    screen,
		ctrl:      ctrl,
		registry:  registry,
		showStats: opts.ShowStats,
		silent:    opts.Silent,
		start:     time.Now(),
	}
	p.width, p.height = screen.Size()
	return p
}

// Run processes input and redraws until quit or ctx is done
func (p *Panel) Run(ctx context.Context) {
	ticker := time.NewTicker(constant.PanelPulseInterval)
	defer ticker.Stop()

	spin := time.NewTicker(constant.PanelSpinnerInterval)
	defer spin.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := p.screen.PollEvent()
			// nil after Fini
			if ev == nil {
				return
			}
			select {
			case eventChan <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	p.Draw(time.Now())
	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-eventChan:
			if !p.HandleEvent(ev) {
				return
			}
			p.Draw(time.Now())

		case <-p.ctrl.Changes():
			p.Draw(time.Now())

		case <-spin.C:
			p.spinner++
			if !p.ctrl.Status().Loaded {
				p.Draw(time.Now())
			}

		case <-ticker.C:
			if p.ctrl.Status().Playing {
				p.Draw(time.Now())
			}
		}
	}
}

// HandleEvent applies one input event; false means quit
func (p *Panel) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		if ev.Key() != tcell.KeyRune {
			return true
		}

		switch ev.Rune() {
		case 'q', 'Q':
			return false
		case ' ', 'p', 'P':
			p.interacted = true
			p.ctrl.Toggle()
		case 'm', 'M':
			p.interacted = true
			p.ctrl.ToggleMute()
		case 's', 'S':
			p.showStats = !p.showStats
		}

	case *tcell.EventFocus:
		// Regaining focus may follow a device stall
		if ev.Focused {
			p.ctrl.EnsurePlaying()
		}

	case *tcell.EventResize:
		p.width, p.height = p.screen.Size()
		p.screen.Sync()
	}

	return true
}

// Cleanup releases the terminal
func (p *Panel) Cleanup() {
	p.screen.Fini()
}
