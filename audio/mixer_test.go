package audio

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/rain-ambience/clock"
	"github.com/lixenwraith/rain-ambience/constant"
	"github.com/lixenwraith/rain-ambience/status"
)

const volumeEpsilon = 1e-9

var errDeviceBusy = errors.New("device busy")

// fakeClip tracks play position against the mock clock and ends after its duration
type fakeClip struct {
	mu  sync.Mutex
	clk *clock.Mock

	name     string
	duration time.Duration

	paused bool
	pos    time.Duration
	since  time.Time
	volume float64

	plays     int
	failPlays int
	closed    bool
}

func newFakeClip(clk *clock.Mock, name string, d time.Duration) *fakeClip {
	return &fakeClip{clk: clk, name: name, duration: d, paused: true}
}

func (c *fakeClip) Name() string { return c.name }

func (c *fakeClip) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClipClosed
	}
	if c.failPlays > 0 {
		c.failPlays--
		return errDeviceBusy
	}
	if c.paused {
		c.paused = false
		c.since = c.clk.Now()
	}
	c.plays++
	return nil
}

func (c *fakeClip) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		c.pos += c.clk.Now().Sub(c.since)
		c.paused = true
	}
}

func (c *fakeClip) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.paused {
		return true
	}
	return c.pos+c.clk.Now().Sub(c.since) >= c.duration
}

func (c *fakeClip) Rewind() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = 0
	c.since = c.clk.Now()
}

func (c *fakeClip) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = clampUnit(v)
}

func (c *fakeClip) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

func (c *fakeClip) Duration() time.Duration { return c.duration }

func (c *fakeClip) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeClip) playCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plays
}

func (c *fakeClip) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeSource struct {
	rain    []*fakeClip
	thunder *fakeClip

	failRainAt int // -1 disables
	calls      int
}

func (s *fakeSource) RainClip(i int) (Clip, error) {
	s.calls++
	if i == s.failRainAt {
		return nil, errors.New("decode failed")
	}
	return s.rain[i], nil
}

func (s *fakeSource) ThunderClip() (Clip, error) {
	s.calls++
	return s.thunder, nil
}

type mixerFixture struct {
	mixer  *Mixer
	clock  *clock.Mock
	source *fakeSource
	reg    *status.Registry
	sink   *NullSink
	cfg    MixerConfig
}

func newFixture(t require.TestingT, cfg MixerConfig, rainDur, thunderDur time.Duration, rnd func() float64) *mixerFixture {
	clk := clock.NewMock(time.Date(2026, 1, 1, 22, 0, 0, 0, time.UTC))
	src := &fakeSource{failRainAt: -1}
	for i := 0; i < cfg.RainInstances; i++ {
		src.rain = append(src.rain, newFakeClip(clk, "rain", rainDur))
	}
	src.thunder = newFakeClip(clk, "thunder", thunderDur)

	if rnd == nil {
		rnd = func() float64 { return 0.5 }
	}
	reg := status.NewRegistry()
	sink := NewNullSink(constant.AudioSampleRate)

	m, err := NewMixer(src, cfg, Options{
		Clock:    clk,
		Rand:     rnd,
		Registry: reg,
		Logger:   log.New(io.Discard, "", 0),
		Sink:     sink,
	})
	require.NoError(t, err)

	return &mixerFixture{mixer: m, clock: clk, source: src, reg: reg, sink: sink, cfg: cfg}
}

func manualConfig() MixerConfig {
	cfg := DefaultMixerConfig()
	cfg.AutoStart = false
	return cfg
}

func (f *mixerFixture) load(t require.TestingT) {
	require.NoError(t, f.mixer.Load(context.Background()))
}

func (f *mixerFixture) audibleRain() int {
	n := 0
	for _, c := range f.source.rain {
		if !c.Paused() {
			n++
		}
	}
	return n
}

func TestNewMixerRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultMixerConfig()
	cfg.RainInstances = 1

	_, err := NewMixer(&fakeSource{}, cfg, Options{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMixerLoadAutoStartsAfterDelay(t *testing.T) {
	f := newFixture(t, DefaultMixerConfig(), time.Minute, 20*time.Second, nil)
	f.load(t)

	st := f.mixer.Status()
	assert.True(t, st.Loaded)
	assert.False(t, st.Playing)
	assert.Equal(t, f.cfg.RainInstances+1, f.source.calls)

	f.clock.Advance(f.cfg.StartDelay - time.Millisecond)
	assert.False(t, f.mixer.Status().Playing)

	f.clock.Advance(time.Millisecond)
	st = f.mixer.Status()
	require.True(t, st.Playing)
	assert.NotEmpty(t, st.Session)
	assert.False(t, f.source.rain[0].Paused())

	f.clock.Advance(f.cfg.Fade)
	assert.InDelta(t, f.cfg.RainVolume, f.source.rain[0].Volume(), volumeEpsilon)
	assert.Equal(t, 1, f.audibleRain())
}

func TestMixerLoadIsIdempotent(t *testing.T) {
	f := newFixture(t, manualConfig(), time.Minute, 20*time.Second, nil)
	f.load(t)
	calls := f.source.calls

	f.load(t)
	assert.Equal(t, calls, f.source.calls)
}

func TestMixerLoadWithoutAutoStart(t *testing.T) {
	f := newFixture(t, manualConfig(), time.Minute, 20*time.Second, nil)
	f.load(t)

	f.clock.Advance(10 * time.Second)
	assert.False(t, f.mixer.Status().Playing)

	f.mixer.Start()
	assert.True(t, f.mixer.Status().Playing)
}

func TestMixerLoadFailureReleasesBuiltClips(t *testing.T) {
	f := newFixture(t, manualConfig(), time.Minute, 20*time.Second, nil)
	f.source.failRainAt = 2

	err := f.mixer.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rain clip 2")

	assert.True(t, f.source.rain[0].isClosed())
	assert.True(t, f.source.rain[1].isClosed())
	assert.False(t, f.mixer.Status().Loaded)

	f.mixer.Start()
	assert.False(t, f.mixer.Status().Playing)
}

func TestMixerLoadHonorsCancelledContext(t *testing.T) {
	f := newFixture(t, manualConfig(), time.Minute, 20*time.Second, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.mixer.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.source.calls)
}

func TestMixerStartBeforeLoadIsNoop(t *testing.T) {
	f := newFixture(t, manualConfig(), time.Minute, 20*time.Second, nil)

	f.mixer.Start()
	assert.False(t, f.mixer.Status().Playing)
	assert.False(t, f.mixer.Toggle())
}

func TestMixerRotationCrossfades(t *testing.T) {
	f := newFixture(t, manualConfig(), 20*time.Second, 20*time.Second, nil)
	f.load(t)
	f.mixer.Start()

	rain := f.source.rain
	target := f.cfg.RainVolume
	next := 20*time.Second - f.cfg.Overlap

	f.clock.Advance(next - time.Millisecond)
	assert.Equal(t, 0, rain[1].playCount())
	assert.InDelta(t, target, rain[0].Volume(), volumeEpsilon)

	f.clock.Advance(time.Millisecond)
	require.Equal(t, 1, rain[1].playCount())
	assert.Equal(t, 1, f.mixer.Status().CurrentRainTrack)

	// Halfway both clips share the level
	f.clock.Advance(f.cfg.Fade / 2)
	assert.InDelta(t, target/2, rain[0].Volume(), volumeEpsilon)
	assert.InDelta(t, target/2, rain[1].Volume(), volumeEpsilon)
	assert.Equal(t, 2, f.audibleRain())

	f.clock.Advance(f.cfg.Fade / 2)
	assert.True(t, rain[0].Paused())
	assert.Zero(t, rain[0].Volume())
	assert.InDelta(t, target, rain[1].Volume(), volumeEpsilon)
	assert.Equal(t, int64(1), f.reg.Ints.Get(status.KeyRainCrossfades).Load())

	// Pool wraps back to slot 0
	f.clock.Advance(time.Duration(f.cfg.RainInstances-1)*next - f.cfg.Fade)
	assert.Equal(t, 0, f.mixer.Status().CurrentRainTrack)
	assert.Equal(t, 2, rain[0].playCount())
	assert.Equal(t, int64(f.cfg.RainInstances+1), f.reg.Ints.Get(status.KeyRainTracksStarted).Load())
}

func TestMixerShortClipWaitsForFade(t *testing.T) {
	f := newFixture(t, manualConfig(), 4*time.Second, 20*time.Second, nil)
	f.load(t)
	f.mixer.Start()

	f.clock.Advance(f.cfg.Fade - time.Millisecond)
	assert.Equal(t, 0, f.source.rain[1].playCount())

	f.clock.Advance(time.Millisecond)
	assert.Equal(t, 1, f.source.rain[1].playCount())

	// Successive overlaps never leave a third clip audible
	for range 20 {
		f.clock.Advance(f.cfg.fadeStep())
		assert.LessOrEqual(t, f.audibleRain(), 2)
	}
}

func TestMixerClipShorterThanFadeKeepsRainGoing(t *testing.T) {
	f := newFixture(t, manualConfig(), 2*time.Second, 20*time.Second, nil)
	f.load(t)
	f.mixer.Start()

	for step := range 200 {
		f.clock.Advance(f.cfg.fadeStep())
		n := f.audibleRain()
		require.GreaterOrEqual(t, n, 1, "rain silent after step %d", step)
		require.LessOrEqual(t, n, 2, "step %d", step)
	}
	assert.GreaterOrEqual(t, f.reg.Ints.Get(status.KeyRainTracksStarted).Load(), int64(5))
}

func TestMixerRetriesNextTrackOnPlayFailure(t *testing.T) {
	f := newFixture(t, manualConfig(), time.Minute, 20*time.Second, nil)
	f.source.rain[0].failPlays = 1
	f.load(t)
	f.mixer.Start()

	assert.True(t, f.source.rain[0].Paused())
	assert.Equal(t, int64(1), f.reg.Ints.Get(status.KeyRainPlayFailures).Load())

	f.clock.Advance(f.cfg.RetryDelay)
	assert.False(t, f.source.rain[1].Paused())
	assert.Equal(t, 1, f.mixer.Status().CurrentRainTrack)

	f.clock.Advance(f.cfg.Fade)
	assert.InDelta(t, f.cfg.RainVolume, f.source.rain[1].Volume(), volumeEpsilon)
}

func TestMixerThunderOverlay(t *testing.T) {
	f := newFixture(t, manualConfig(), time.Minute, 8*time.Second, func() float64 { return 0 })
	f.load(t)
	f.mixer.Start()
	thunder := f.source.thunder

	f.clock.Advance(f.cfg.ThunderIntervalMin - time.Millisecond)
	assert.Equal(t, 0, thunder.playCount())

	f.clock.Advance(time.Millisecond)
	require.Equal(t, 1, thunder.playCount())

	f.clock.Advance(f.cfg.Fade)
	assert.InDelta(t, f.cfg.ThunderVolume, thunder.Volume(), volumeEpsilon)
	assert.Equal(t, int64(1), f.reg.Ints.Get(status.KeyThunderOverlays).Load())

	// Short overlays start fading at 70% and are silent before the next strike
	f.clock.Advance(6 * time.Second)
	assert.True(t, thunder.Paused())
	assert.Zero(t, thunder.Volume())
	assert.Equal(t, 1, thunder.playCount())
}

func TestMixerThunderNeverExceedsCap(t *testing.T) {
	f := newFixture(t, manualConfig(), 30*time.Second, 12*time.Second, func() float64 { return 0.3 })
	f.load(t)
	f.mixer.Start()

	step := f.cfg.fadeStep()
	reached := false
	for i := 0; i < int(90*time.Second/step); i++ {
		f.clock.Advance(step)
		v := f.source.thunder.Volume()
		assert.LessOrEqual(t, v, f.cfg.ThunderVolume+volumeEpsilon)
		if v >= f.cfg.ThunderVolume-volumeEpsilon {
			reached = true
		}
	}
	assert.True(t, reached)
}

func TestMixerSetLevelsLowersThunderMidFade(t *testing.T) {
	f := newFixture(t, manualConfig(), time.Minute, 20*time.Second, func() float64 { return 0 })
	f.load(t)
	f.mixer.Start()

	f.clock.Advance(f.cfg.ThunderIntervalMin + f.cfg.Fade/2)
	f.mixer.SetLevels(f.cfg.RainVolume, 0.1)
	assert.LessOrEqual(t, f.source.thunder.Volume(), 0.1+volumeEpsilon)

	for range 40 {
		f.clock.Advance(f.cfg.fadeStep())
		assert.LessOrEqual(t, f.source.thunder.Volume(), 0.1+volumeEpsilon)
	}
	assert.InDelta(t, 0.1, f.source.thunder.Volume(), volumeEpsilon)
}

func TestMixerSetLevelsMovesSettledRain(t *testing.T) {
	f := newFixture(t, manualConfig(), time.Minute, 20*time.Second, nil)
	f.load(t)
	f.mixer.Start()
	f.clock.Advance(f.cfg.Fade)

	f.mixer.SetLevels(0.3, 0.2)
	assert.InDelta(t, 0.3, f.source.rain[0].Volume(), volumeEpsilon)
	assert.InDelta(t, 0.3, f.reg.Floats.Get(status.KeyRainLevel).Get(), volumeEpsilon)

	f.mixer.SetLevels(1.5, -1)
	cfg := f.mixer.Status().Config
	assert.Equal(t, 1.0, cfg.RainVolume)
	assert.Equal(t, 0.0, cfg.ThunderVolume)
}

func TestMixerStopSilencesEverything(t *testing.T) {
	f := newFixture(t, manualConfig(), 20*time.Second, 20*time.Second, nil)
	f.load(t)
	f.mixer.Start()

	// Mid crossfade with thunder fading in
	f.clock.Advance(15*time.Second + time.Second)
	require.Equal(t, 2, f.audibleRain())
	require.False(t, f.source.thunder.Paused())

	f.mixer.Stop()
	assert.False(t, f.mixer.Status().Playing)

	f.clock.Advance(constant.StopFadeInterval * constant.StopFadeSteps)
	for _, c := range f.source.rain {
		assert.True(t, c.Paused())
		assert.Zero(t, c.Volume())
	}

	f.clock.Advance(f.cfg.Fade)
	assert.True(t, f.source.thunder.Paused())
	assert.Zero(t, f.source.thunder.Volume())
	assert.Zero(t, f.clock.Pending())

	f.mixer.Stop()
	assert.Equal(t, int64(1), f.reg.Ints.Get(status.KeyMixerStops).Load())
}

func TestMixerStopReportsSettleTime(t *testing.T) {
	f := newFixture(t, manualConfig(), 20*time.Second, 20*time.Second, nil)
	f.load(t)
	assert.Zero(t, f.mixer.Stop())

	// Thunder fading in at 15s needs the full fade-out
	f.mixer.Start()
	f.clock.Advance(16 * time.Second)
	require.False(t, f.source.thunder.Paused())
	settle := f.mixer.Stop()
	assert.Equal(t, f.cfg.Fade, settle)

	f.clock.Advance(settle)
	assert.True(t, f.source.thunder.Paused())
	assert.Zero(t, f.source.thunder.Volume())

	// Rain alone settles after the quick fade
	f.mixer.Start()
	f.clock.Advance(time.Second)
	require.True(t, f.source.thunder.Paused())
	assert.Equal(t, constant.StopFadeInterval*constant.StopFadeSteps, f.mixer.Stop())
	assert.Zero(t, f.mixer.Stop())
}

func TestMixerStopCancelsPendingAutoStart(t *testing.T) {
	f := newFixture(t, DefaultMixerConfig(), time.Minute, 20*time.Second, nil)
	f.load(t)

	f.mixer.Stop()
	f.clock.Advance(time.Second)
	assert.False(t, f.mixer.Status().Playing)
	assert.Zero(t, f.source.rain[0].playCount())
}

func TestMixerRestartAfterStopIsClean(t *testing.T) {
	f := newFixture(t, manualConfig(), time.Minute, 20*time.Second, nil)
	f.load(t)
	f.mixer.Start()
	first := f.mixer.Status().Session
	f.clock.Advance(f.cfg.Fade)

	f.mixer.Stop()
	f.clock.Advance(100 * time.Millisecond)
	f.mixer.Start()

	st := f.mixer.Status()
	assert.True(t, st.Playing)
	assert.NotEqual(t, first, st.Session)

	f.clock.Advance(f.cfg.Fade)
	assert.InDelta(t, f.cfg.RainVolume, f.source.rain[0].Volume(), volumeEpsilon)
	assert.Equal(t, 1, f.audibleRain())
}

func TestMixerToggle(t *testing.T) {
	f := newFixture(t, manualConfig(), time.Minute, 20*time.Second, nil)
	f.load(t)

	assert.True(t, f.mixer.Toggle())
	assert.False(t, f.mixer.Toggle())
	assert.True(t, f.mixer.Toggle())
}

func TestMixerMuteKeepsClipLevels(t *testing.T) {
	f := newFixture(t, manualConfig(), time.Minute, 20*time.Second, nil)
	f.load(t)
	f.mixer.Start()
	f.clock.Advance(f.cfg.Fade)

	f.mixer.SetMuted(true)
	assert.True(t, f.sink.Muted())
	assert.True(t, f.mixer.Status().Muted)
	assert.True(t, f.reg.Bools.Get(status.KeyMixerMuted).Load())
	assert.InDelta(t, f.cfg.RainVolume, f.source.rain[0].Volume(), volumeEpsilon)

	assert.False(t, f.mixer.ToggleMute())
	assert.False(t, f.sink.Muted())
}

func TestMixerEnsurePlayingRestartsStalledRotation(t *testing.T) {
	f := newFixture(t, manualConfig(), time.Minute, 20*time.Second, nil)
	f.load(t)

	// Stopped mixer stays stopped
	f.mixer.EnsurePlaying()
	assert.False(t, f.mixer.Status().Playing)

	f.mixer.Start()
	f.clock.Advance(f.cfg.Fade)

	// Healthy rotation is left alone
	f.mixer.EnsurePlaying()
	assert.Equal(t, 0, f.mixer.Status().CurrentRainTrack)

	f.source.rain[0].Pause()
	f.mixer.EnsurePlaying()
	assert.Equal(t, 1, f.mixer.Status().CurrentRainTrack)
	assert.False(t, f.source.rain[1].Paused())

	f.clock.Advance(f.cfg.Fade)
	assert.InDelta(t, f.cfg.RainVolume, f.source.rain[1].Volume(), volumeEpsilon)
}

// recordingClock keeps every armed callback so a test can run one late
type recordingClock struct {
	*clock.Mock
	armed map[time.Duration][]func()
}

func (c *recordingClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.armed[d] = append(c.armed[d], f)
	return c.Mock.AfterFunc(d, f)
}

func TestMixerIgnoresReplacedRainTimer(t *testing.T) {
	f := newFixture(t, manualConfig(), time.Minute, 20*time.Second, nil)
	rc := &recordingClock{Mock: f.clock, armed: make(map[time.Duration][]func())}
	f.mixer.clock = rc
	f.load(t)
	f.mixer.Start()
	f.clock.Advance(f.cfg.Fade)

	next := time.Minute - f.cfg.Overlap
	require.Len(t, rc.armed[next], 1)
	replaced := rc.armed[next][0]

	f.source.rain[0].Pause()
	f.mixer.EnsurePlaying()
	require.Equal(t, 1, f.mixer.Status().CurrentRainTrack)

	// A callback that was already waiting on the lock when its timer was replaced
	replaced()
	assert.Equal(t, 1, f.mixer.Status().CurrentRainTrack)
	assert.Equal(t, 1, f.source.rain[1].playCount())
	assert.Zero(t, f.source.rain[2].playCount())

	// The replacement timer still rotates
	f.clock.Advance(next)
	assert.Equal(t, 2, f.mixer.Status().CurrentRainTrack)
}

func TestMixerCloseReleasesClips(t *testing.T) {
	f := newFixture(t, manualConfig(), time.Minute, 20*time.Second, nil)
	f.load(t)
	f.mixer.Start()
	f.clock.Advance(f.cfg.Fade)

	f.mixer.Close()
	for _, c := range f.source.rain {
		assert.True(t, c.isClosed())
		assert.Zero(t, c.Volume())
	}
	assert.True(t, f.source.thunder.isClosed())

	st := f.mixer.Status()
	assert.False(t, st.Loaded)
	assert.False(t, st.Playing)

	assert.ErrorIs(t, f.mixer.Load(context.Background()), ErrClosed)
	f.mixer.Start()
	assert.False(t, f.mixer.Status().Playing)

	// Stray timers are harmless
	f.clock.Advance(time.Minute)
	f.mixer.Close()
}

func TestMixerChangesCoalesce(t *testing.T) {
	f := newFixture(t, manualConfig(), time.Minute, 20*time.Second, nil)
	f.load(t)
	f.mixer.Start()
	f.mixer.SetMuted(true)

	select {
	case <-f.mixer.Changes():
	default:
		t.Fatal("expected change notification")
	}

	select {
	case <-f.mixer.Changes():
		t.Fatal("notifications should coalesce")
	default:
	}
}
