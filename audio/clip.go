package audio

import (
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// trackStreamer plays a seekable stream once and then holds silence
// Never reports exhaustion so the sink mixer keeps it attached across rewinds
type trackStreamer struct {
	s     beep.StreamSeeker
	ended bool
}

func (t *trackStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if !t.ended {
		n, ok = t.s.Stream(samples)
		if !ok || n < len(samples) {
			t.ended = true
		}
	}
	for i := n; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

func (t *trackStreamer) Err() error {
	return t.s.Err()
}

// bufferClip is a Clip over a fully decoded buffer
type bufferClip struct {
	name     string
	sink     Sink
	duration time.Duration

	// Guarded by sink lock
	track    *trackStreamer
	vol      *effects.Volume
	ctrl     *beep.Ctrl
	level    float64
	attached bool
	closed   bool
}

// NewBufferClip creates a paused, silent clip playing buf through sink
func NewBufferClip(name string, buf *beep.Buffer, sink Sink) Clip {
	track := &trackStreamer{s: buf.Streamer(0, buf.Len())}
	vol := &effects.Volume{Streamer: track, Base: 2, Silent: true}
	return &bufferClip{
		name:     name,
		sink:     sink,
		duration: buf.Format().SampleRate.D(buf.Len()),
		track:    track,
		vol:      vol,
		ctrl:     &beep.Ctrl{Streamer: vol, Paused: true},
	}
}

func (c *bufferClip) Name() string {
	return c.name
}

func (c *bufferClip) Play() error {
	c.sink.Lock()
	if c.closed {
		c.sink.Unlock()
		return ErrClipClosed
	}
	attach := !c.attached
	c.attached = true
	c.ctrl.Paused = false
	c.sink.Unlock()

	// Attach lazily; the sink takes its own lock
	if attach {
		c.sink.Add(c.ctrl)
	}
	return nil
}

func (c *bufferClip) Pause() {
	c.sink.Lock()
	c.ctrl.Paused = true
	c.sink.Unlock()
}

func (c *bufferClip) Paused() bool {
	c.sink.Lock()
	defer c.sink.Unlock()
	return c.closed || c.ctrl.Paused || c.track.ended
}

func (c *bufferClip) Rewind() {
	c.sink.Lock()
	defer c.sink.Unlock()
	if c.closed {
		return
	}
	if err := c.track.s.Seek(0); err == nil {
		c.track.ended = false
	}
}

func (c *bufferClip) SetVolume(v float64) {
	v = clampUnit(v)
	c.sink.Lock()
	c.level = v
	setLinearVolume(c.vol, v)
	c.sink.Unlock()
}

func (c *bufferClip) Volume() float64 {
	c.sink.Lock()
	defer c.sink.Unlock()
	return c.level
}

func (c *bufferClip) Duration() time.Duration {
	return c.duration
}

// Close detaches the clip; a Ctrl without a streamer is dropped by the mixer
func (c *bufferClip) Close() {
	c.sink.Lock()
	defer c.sink.Unlock()
	c.closed = true
	c.ctrl.Paused = true
	c.ctrl.Streamer = nil
}

// setLinearVolume maps a linear level onto a base-2 effects.Volume
// log2(0) is -Inf, so zero is expressed as Silent
func setLinearVolume(v *effects.Volume, level float64) {
	if level <= 0 {
		v.Volume = 0
		v.Silent = true
		return
	}
	v.Volume = math.Log2(level)
	v.Silent = false
}
