package audio

import (
	"slices"
	"time"

	"github.com/lixenwraith/rain-ambience/clock"
	"github.com/lixenwraith/rain-ambience/constant"
)

// fade is a fixed-step volume ramp driven by re-armed clock timers
// All fields are guarded by Mixer.mu
type fade struct {
	clips []Clip
	timer clock.Timer
	step  int
	done  bool
}

// fadeTick applies step n and reports whether the fade is finished
type fadeTick func(n int) bool

// runFade registers a fade over clips and arms its first step
// Caller holds m.mu
func (m *Mixer) runFade(clips []Clip, interval time.Duration, tick fadeTick) *fade {
	f := &fade{clips: clips}
	m.fades[f] = struct{}{}

	var fire func()
	fire = func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if f.done {
			return
		}
		f.step++
		if tick(f.step) {
			f.done = true
			delete(m.fades, f)
			return
		}
		f.timer = m.clock.AfterFunc(interval, fire)
	}
	f.timer = m.clock.AfterFunc(interval, fire)
	return f
}

// cancelFade stops a fade at its current level
func (m *Mixer) cancelFade(f *fade) {
	f.done = true
	if f.timer != nil {
		f.timer.Stop()
	}
	delete(m.fades, f)
}

// cancelFadesFor stops every fade touching c
func (m *Mixer) cancelFadesFor(c Clip) {
	for f := range m.fades {
		if slices.Contains(f.clips, c) {
			m.cancelFade(f)
		}
	}
}

func (m *Mixer) cancelAllFades() {
	for f := range m.fades {
		m.cancelFade(f)
	}
}

// fadeIn ramps c linearly from silence to target()
// Aborts when the mixer stops or the clip pauses
func (m *Mixer) fadeIn(c Clip, target func() float64) {
	steps := m.cfg.FadeSteps
	m.runFade([]Clip{c}, m.cfg.fadeStep(), func(n int) bool {
		if !m.playing || c.Paused() {
			return true
		}

		level := target()
		c.SetVolume(min(level/float64(steps)*float64(n), level))

		if n >= steps {
			c.SetVolume(level)
			return true
		}
		return false
	})
}

// fadeOut ramps c linearly from its current level to silence, then pauses and rewinds it
// A clip that ends mid-fade is silenced at once
func (m *Mixer) fadeOut(c Clip) {
	steps := m.cfg.FadeSteps
	initial := c.Volume()
	volumeStep := initial / float64(steps)

	m.runFade([]Clip{c}, m.cfg.fadeStep(), func(n int) bool {
		if c.Paused() {
			silence(c)
			return true
		}

		// Never rise above a level lowered externally mid-fade
		level := min(max(initial-volumeStep*float64(n), 0), c.Volume())
		c.SetVolume(level)

		if n >= steps || level <= constant.SilenceThreshold {
			silence(c)
			return true
		}
		return false
	})
}

// crossfade ramps out down and in up over the same steps
// On completion out is paused, rewound and zeroed; in is pinned at its target
func (m *Mixer) crossfade(out, in Clip, outTarget, inTarget func() float64) {
	steps := m.cfg.FadeSteps
	m.runFade([]Clip{out, in}, m.cfg.fadeStep(), func(n int) bool {
		if !m.playing {
			return true
		}

		progress := float64(n) / float64(steps)
		if !out.Paused() {
			out.SetVolume(max(outTarget()*(1-progress), 0))
		}
		if !in.Paused() {
			in.SetVolume(min(inTarget()*progress, inTarget()))
		}

		if n >= steps {
			silence(out)
			in.SetVolume(inTarget())
			m.metrics.crossfades.Add(1)
			m.logf("crossfade to %s completed", in.Name())
			return true
		}
		return false
	})
}

// quickFade decays c multiplicatively over the short stop window
func (m *Mixer) quickFade(c Clip) {
	steps := constant.StopFadeSteps
	m.runFade([]Clip{c}, constant.StopFadeInterval, func(n int) bool {
		level := max(c.Volume()*(1-float64(n)/float64(steps)), 0)
		c.SetVolume(level)

		if n >= steps || level <= constant.SilenceThreshold {
			silence(c)
			return true
		}
		return false
	})
}

// silence pauses, rewinds and zeroes c
func silence(c Clip) {
	c.Pause()
	c.Rewind()
	c.SetVolume(0)
}
