package audio

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lixenwraith/rain-ambience/clock"
	"github.com/lixenwraith/rain-ambience/constant"
	"github.com/lixenwraith/rain-ambience/status"
)

// Options injects the mixer's collaborators; zero values select defaults
type Options struct {
	Clock    clock.Clock
	Rand     func() float64 // uniform in [0,1)
	Registry *status.Registry
	Logger   *log.Logger
	// Sink receives master mute; nil keeps mute as state only
	Sink Sink
}

// mixerMetrics caches registry pointers
type mixerMetrics struct {
	tracksStarted   *atomic.Int64
	crossfades      *atomic.Int64
	rainFailures    *atomic.Int64
	current         *atomic.Int64
	overlays        *atomic.Int64
	thunderFailures *atomic.Int64
	stops           *atomic.Int64
	playing         *atomic.Bool
	loaded          *atomic.Bool
	muted           *atomic.Bool
	session         *status.AtomicString
	rainLevel       *status.AtomicFloat
	thunderLevel    *status.AtomicFloat
}

func newMixerMetrics(r *status.Registry) mixerMetrics {
	return mixerMetrics{
		tracksStarted:   r.Ints.Get(status.KeyRainTracksStarted),
		crossfades:      r.Ints.Get(status.KeyRainCrossfades),
		rainFailures:    r.Ints.Get(status.KeyRainPlayFailures),
		current:         r.Ints.Get(status.KeyRainCurrent),
		overlays:        r.Ints.Get(status.KeyThunderOverlays),
		thunderFailures: r.Ints.Get(status.KeyThunderPlayFailures),
		stops:           r.Ints.Get(status.KeyMixerStops),
		playing:         r.Bools.Get(status.KeyMixerPlaying),
		loaded:          r.Bools.Get(status.KeyMixerLoaded),
		muted:           r.Bools.Get(status.KeyMixerMuted),
		session:         r.Strings.Get(status.KeyMixerSession),
		rainLevel:       r.Floats.Get(status.KeyRainLevel),
		thunderLevel:    r.Floats.Get(status.KeyThunderLevel),
	}
}

// Mixer keeps a rain bed going by rotating a pool of clips with overlapping
// crossfades, and layers a thunderstorm clip at random intervals
type Mixer struct {
	mu     sync.Mutex
	loadMu sync.Mutex

	cfg    MixerConfig
	source Source
	sink   Sink
	clock  clock.Clock
	rand   func() float64
	logger *log.Logger

	rain    []Clip
	thunder Clip
	current int

	playing bool
	loaded  bool
	closed  bool
	muted   bool
	session string

	// gen invalidates timer callbacks armed before the last Start or Stop
	gen uint64

	startTimer       clock.Timer
	rainTimer        clock.Timer
	thunderTimer     clock.Timer
	thunderFadeTimer clock.Timer
	fades            map[*fade]struct{}

	changes chan struct{}
	metrics mixerMetrics
}

// NewMixer creates an unloaded mixer
func NewMixer(source Source, cfg MixerConfig, opts Options) (*Mixer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if opts.Clock == nil {
		opts.Clock = clock.NewReal()
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	if opts.Registry == nil {
		opts.Registry = status.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	m := &Mixer{
		cfg:     cfg,
		source:  source,
		sink:    opts.Sink,
		clock:   opts.Clock,
		rand:    opts.Rand,
		logger:  opts.Logger,
		fades:   make(map[*fade]struct{}),
		changes: make(chan struct{}, 1),
		metrics: newMixerMetrics(opts.Registry),
	}
	m.metrics.rainLevel.Set(cfg.RainVolume)
	m.metrics.thunderLevel.Set(cfg.ThunderVolume)
	return m, nil
}

// Load builds every clip before playback can begin
// With AutoStart, playback begins StartDelay after loading completes
func (m *Mixer) Load(ctx context.Context) error {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.loaded {
		m.mu.Unlock()
		return nil
	}
	n := m.cfg.RainInstances
	m.mu.Unlock()

	m.logf("initializing %d rain instances + thunderstorm", n)

	// Decoding runs outside m.mu
	clips := make([]Clip, 0, n+1)
	release := func() {
		for _, c := range clips {
			c.Close()
		}
	}

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			release()
			return err
		}
		c, err := m.source.RainClip(i)
		if err != nil {
			release()
			return fmt.Errorf("load rain clip %d: %w", i, err)
		}
		c.SetVolume(0)
		clips = append(clips, c)
	}

	if err := ctx.Err(); err != nil {
		release()
		return err
	}
	thunder, err := m.source.ThunderClip()
	if err != nil {
		release()
		return fmt.Errorf("load thunder clip: %w", err)
	}
	thunder.SetVolume(0)
	clips = append(clips, thunder)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		release()
		return ErrClosed
	}

	m.rain = clips[:n:n]
	m.thunder = thunder
	m.loaded = true
	m.metrics.loaded.Store(true)
	m.logf("%d rain instances + 1 thunderstorm instance loaded and ready", n)

	if m.cfg.AutoStart {
		m.arm(&m.startTimer, m.cfg.StartDelay, m.start)
	}
	m.notify()
	return nil
}

// Start begins rotation and thunder scheduling
// No-op while already playing or before Load
func (m *Mixer) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.start()
}

func (m *Mixer) start() {
	if m.playing || !m.loaded || m.closed {
		return
	}

	stopTimer(&m.startTimer)
	m.playing = true
	m.gen++
	m.session = uuid.NewString()
	m.current = 0
	m.metrics.playing.Store(true)
	m.metrics.session.Store(m.session)
	m.logf("starting rain + thunderstorm (session %s)", m.session)

	m.playRain(0, nil)
	m.scheduleThunder()
	m.notify()
}

// Stop cancels pending timers and fades every audible clip to silence
// Returns how long the fades take to settle; zero when nothing was playing
// Safe to call repeatedly
func (m *Mixer) Stop() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stop()
}

func (m *Mixer) stop() time.Duration {
	// A pending auto-start is cancelled even when not yet playing
	if m.startTimer != nil {
		stopTimer(&m.startTimer)
		m.gen++
	}

	if !m.playing {
		return 0
	}

	m.logf("stopping rain + thunderstorm")
	m.playing = false
	m.gen++
	m.metrics.playing.Store(false)
	m.metrics.stops.Add(1)

	stopTimer(&m.rainTimer)
	stopTimer(&m.thunderTimer)
	stopTimer(&m.thunderFadeTimer)
	m.cancelAllFades()

	var settle time.Duration
	for _, c := range m.rain {
		if c.Paused() {
			silence(c)
			continue
		}
		m.quickFade(c)
		settle = constant.StopFadeInterval * constant.StopFadeSteps
	}

	if m.thunder != nil {
		if m.thunder.Paused() {
			silence(m.thunder)
		} else {
			m.fadeOut(m.thunder)
			settle = max(settle, m.cfg.Fade)
		}
	}
	m.notify()
	return settle
}

// Toggle starts when stopped and stops when playing
// Returns the resulting play state
func (m *Mixer) Toggle() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playing {
		m.stop()
	} else {
		m.start()
	}
	return m.playing
}

// playRain starts pool slot i, crossfading from prev when given
// Caller holds m.mu
func (m *Mixer) playRain(i int, prev Clip) {
	if !m.playing || len(m.rain) == 0 {
		return
	}

	clip := m.rain[i]
	m.cancelFadesFor(clip)

	// Only the outgoing and incoming clips stay audible
	for _, c := range m.rain {
		if c != clip && c != prev && !c.Paused() {
			m.cancelFadesFor(c)
			silence(c)
		}
	}
	clip.Rewind()
	clip.SetVolume(0)

	next := (i + 1) % len(m.rain)

	if err := clip.Play(); err != nil {
		m.logf("error playing rain track %d (%s): %v", i, clip.Name(), err)
		m.metrics.rainFailures.Add(1)
		m.arm(&m.rainTimer, m.cfg.RetryDelay, func() {
			m.playRain(next, prev)
		})
		return
	}

	m.current = i
	m.metrics.current.Store(int64(i))
	m.metrics.tracksStarted.Add(1)

	if prev != nil && prev != clip {
		m.logf("starting overlapping rain track %d", i)
		m.cancelFadesFor(prev)
		m.crossfade(prev, clip, m.rainTarget, m.rainTarget)
	} else {
		m.logf("playing rain track %d", i)
		m.fadeIn(clip, m.rainTarget)
	}

	// Successor starts Overlap before the end, not before this clip's fade completes
	// A clip shorter than the fade hands over when it ends
	d := clip.Duration()
	wait := max(d-m.cfg.Overlap, min(m.cfg.Fade, d), m.cfg.RetryDelay)
	m.logf("rain track %d duration %v, next starts in %v", i, d, wait)

	m.arm(&m.rainTimer, wait, func() {
		m.playRain(next, clip)
	})
	m.notify()
}

// scheduleThunder arms the next overlay at a uniformly random interval
// Caller holds m.mu
func (m *Mixer) scheduleThunder() {
	if !m.playing || m.thunder == nil {
		return
	}

	interval := m.cfg.ThunderIntervalMin + time.Duration(m.rand()*float64(m.cfg.ThunderIntervalSpread))
	m.arm(&m.thunderTimer, interval, func() {
		m.playThunder()
		m.scheduleThunder()
	})
}

// playThunder fades the overlay in to its cap and schedules its fade-out
// Caller holds m.mu
func (m *Mixer) playThunder() {
	t := m.thunder
	m.cancelFadesFor(t)
	stopTimer(&m.thunderFadeTimer)

	t.Rewind()
	t.SetVolume(0)
	if err := t.Play(); err != nil {
		m.logf("error playing thunderstorm overlay: %v", err)
		m.metrics.thunderFailures.Add(1)
		return
	}

	m.logf("playing thunderstorm overlay")
	m.metrics.overlays.Add(1)
	m.fadeIn(t, m.thunderTarget)

	d := t.Duration()
	fadeOutAt := max(d-m.cfg.Fade, time.Duration(float64(d)*constant.ThunderFadeOutFraction))
	m.arm(&m.thunderFadeTimer, fadeOutAt, func() {
		if t.Paused() {
			return
		}
		m.cancelFadesFor(t)
		m.fadeOut(t)
	})
}

// EnsurePlaying restarts the rotation when the mixer should be playing
// but no rain clip is audible, e.g. after the output device stalled
func (m *Mixer) EnsurePlaying() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.playing || len(m.rain) == 0 {
		return
	}
	for _, c := range m.rain {
		if !c.Paused() {
			return
		}
	}

	m.logf("no rain track audible, restarting rotation")
	stopTimer(&m.rainTimer)
	for _, c := range m.rain {
		m.cancelFadesFor(c)
	}
	m.playRain((m.current+1)%len(m.rain), nil)
}

// SetMuted silences the master output; clip levels are untouched
func (m *Mixer) SetMuted(muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.muted = muted
	if m.sink != nil {
		m.sink.SetMuted(muted)
	}
	m.metrics.muted.Store(muted)
	m.notify()
}

// ToggleMute flips mute and returns the new state
func (m *Mixer) ToggleMute() bool {
	m.mu.Lock()
	muted := !m.muted
	m.mu.Unlock()

	m.SetMuted(muted)
	return muted
}

// SetLevels changes rain and thunder targets; running fades follow the new targets
func (m *Mixer) SetLevels(rain, thunder float64) {
	rain, thunder = clampUnit(rain), clampUnit(thunder)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cfg.RainVolume = rain
	m.cfg.ThunderVolume = thunder
	m.metrics.rainLevel.Set(rain)
	m.metrics.thunderLevel.Set(thunder)

	// The cap binds a fading-out overlay even after stop
	if m.thunder != nil && m.thunder.Volume() > thunder {
		m.thunder.SetVolume(thunder)
	}

	// A settled rain clip has no fade attached; move it to the new level
	if m.playing && len(m.rain) > 0 {
		c := m.rain[m.current]
		if !c.Paused() && !m.hasFade(c) {
			c.SetVolume(rain)
		}
	}
	m.notify()
}

// Close stops playback and releases every clip
func (m *Mixer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.logf("cleaning up audio system")
	m.stop()
	m.cancelAllFades()

	for _, c := range m.rain {
		silence(c)
		c.Close()
	}
	if m.thunder != nil {
		silence(m.thunder)
		m.thunder.Close()
	}

	m.rain = nil
	m.thunder = nil
	m.closed = true
	m.loaded = false
	m.metrics.loaded.Store(false)
	m.notify()
}

// Status returns a snapshot for controls
func (m *Mixer) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Status{
		Playing:          m.playing,
		Loaded:           m.loaded,
		Muted:            m.muted,
		CurrentRainTrack: m.current,
		Session:          m.session,
		Config:           m.cfg,
	}
}

// Changes signals status changes; notifications coalesce
func (m *Mixer) Changes() <-chan struct{} {
	return m.changes
}

func (m *Mixer) notify() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m *Mixer) rainTarget() float64 {
	return m.cfg.RainVolume
}

func (m *Mixer) thunderTarget() float64 {
	return m.cfg.ThunderVolume
}

func (m *Mixer) hasFade(c Clip) bool {
	for f := range m.fades {
		for _, fc := range f.clips {
			if fc == c {
				return true
			}
		}
	}
	return false
}

func (m *Mixer) logf(format string, args ...any) {
	m.logger.Printf("[mixer] "+format, args...)
}

// arm stores in slot a timer that runs fn under m.mu
// The callback is dropped when Start or Stop ran since arming, or when slot was
// cleared or re-armed meanwhile, including while the callback waited for m.mu
// Caller holds m.mu
func (m *Mixer) arm(slot *clock.Timer, d time.Duration, fn func()) {
	gen := m.gen
	var timer clock.Timer
	timer = m.clock.AfterFunc(d, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if gen != m.gen || *slot != timer {
			return
		}
		*slot = nil
		fn()
	})
	*slot = timer
}

func stopTimer(t *clock.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
