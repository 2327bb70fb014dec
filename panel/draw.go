package panel

import (
	"fmt"
	"math"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/lixenwraith/rain-ambience/constant"
)

const (
	title    = "rain on a night city"
	hint     = "press space to enable audio"
	keysHelp = "space play/pause · m mute · s stats · q quit"
)

var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

var (
	styleTitle = tcell.StyleDefault.Foreground(tcell.NewRGBColor(140, 160, 200))
	styleLabel = tcell.StyleDefault.Foreground(tcell.ColorSilver)
	styleDim   = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleHint  = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleWarn  = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleStats = tcell.StyleDefault.Foreground(tcell.ColorGreen).Background(tcell.ColorBlack)
)

// Draw renders the full panel for time now
func (p *Panel) Draw(now time.Time) {
	p.screen.Clear()
	st := p.ctrl.Status()

	mid := p.height / 2
	p.drawCentered(mid-2, title, styleTitle)

	if !st.Loaded {
		frame := spinnerFrames[p.spinner%len(spinnerFrames)]
		p.drawCentered(mid, string(frame)+" loading rain…", styleLabel)
	} else {
		p.drawControls(mid, st.Playing, st.Muted, st.CurrentRainTrack, st.Config.RainInstances, now)
	}

	if p.silent {
		p.drawCentered(mid+1, "no audio device, running silent", styleWarn)
	}
	if !p.interacted && st.Loaded {
		p.drawCentered(mid+2, hint, styleHint)
	}
	p.drawCentered(p.height-1, keysHelp, styleDim)

	if p.showStats && p.registry != nil {
		p.drawStats()
	}

	p.screen.Show()
}

// drawControls writes the play glyph, mute glyph, activity dot and track label as one row
func (p *Panel) drawControls(y int, playing, muted bool, track, pool int, now time.Time) {
	playGlyph, playLabel := "▶", "paused"
	if playing {
		playGlyph, playLabel = "⏸", "playing"
	}
	muteGlyph, muteLabel := "♪", "sound on"
	if muted {
		muteGlyph, muteLabel = "×", "muted"
	}

	segments := []struct {
		text  string
		style tcell.Style
	}{
		{playGlyph + " " + playLabel, styleLabel},
		{"   ", styleLabel},
		{muteGlyph + " " + muteLabel, styleLabel},
		{"   ", styleLabel},
		{"●", pulseStyle(playing, now.Sub(p.start))},
		{fmt.Sprintf(" rain %d/%d", track+1, pool), styleLabel},
	}

	total := 0
	for _, s := range segments {
		total += runewidth.StringWidth(s.text)
	}
	x := max((p.width-total)/2, 0)
	for _, s := range segments {
		x = p.drawText(x, y, s.text, s.style)
	}
}

// pulseStyle breathes the dot while playing and dims it otherwise
func pulseStyle(playing bool, elapsed time.Duration) tcell.Style {
	if !playing {
		return styleDim
	}
	phase := float64(elapsed%constant.PanelPulsePeriod) / float64(constant.PanelPulsePeriod)
	level := 0.35 + 0.65*(0.5-0.5*math.Cos(2*math.Pi*phase))
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(
		int32(90*level),
		int32(150*level),
		int32(255*level),
	))
}

func (p *Panel) drawStats() {
	lines := p.registry.Lines()
	w := 0
	for _, l := range lines {
		w = max(w, runewidth.StringWidth(l))
	}
	for i, l := range lines {
		if i >= p.height-1 {
			break
		}
		x := p.drawText(0, i, l, styleStats)
		for ; x < w+1 && x < p.width; x++ {
			p.screen.SetContent(x, i, ' ', nil, styleStats)
		}
	}
}

func (p *Panel) drawCentered(y int, s string, style tcell.Style) {
	x := max((p.width-runewidth.StringWidth(s))/2, 0)
	p.drawText(x, y, s, style)
}

// drawText writes s starting at x and returns the column after it
// Wide runes occupy two cells; text past the right edge is clipped
func (p *Panel) drawText(x, y int, s string, style tcell.Style) int {
	if y < 0 || y >= p.height {
		return x
	}
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if x+w > p.width {
			break
		}
		p.screen.SetContent(x, y, r, nil, style)
		x += w
	}
	return x
}
