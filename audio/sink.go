package audio

import (
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
)

// Sink mixes clip streamers into an output
// Lock/Unlock guard every mutation of a streamer the output may be reading
type Sink interface {
	Add(s beep.Streamer)
	Lock()
	Unlock()
	SetMuted(muted bool)
	Muted() bool
	SampleRate() beep.SampleRate
	Close()
}

// SpeakerSink renders through the system audio device
type SpeakerSink struct {
	rate   beep.SampleRate
	mixer  *beep.Mixer
	master *effects.Volume

	closeOnce sync.Once
}

// NewSpeakerSink initializes the speaker and starts playing the master mix
func NewSpeakerSink(rate beep.SampleRate, buffer time.Duration) (*SpeakerSink, error) {
	if err := speaker.Init(rate, rate.N(buffer)); err != nil {
		return nil, err
	}

	mixer := &beep.Mixer{}
	s := &SpeakerSink{
		rate:   rate,
		mixer:  mixer,
		master: &effects.Volume{Streamer: mixer, Base: 2},
	}
	speaker.Play(s.master)
	return s, nil
}

// Add attaches a streamer to the master mix
func (s *SpeakerSink) Add(st beep.Streamer) {
	speaker.Lock()
	s.mixer.Add(st)
	speaker.Unlock()
}

func (s *SpeakerSink) Lock()   { speaker.Lock() }
func (s *SpeakerSink) Unlock() { speaker.Unlock() }

// SetMuted silences the master output without touching clip levels
func (s *SpeakerSink) SetMuted(muted bool) {
	speaker.Lock()
	s.master.Silent = muted
	speaker.Unlock()
}

// Muted reports the master mute state
func (s *SpeakerSink) Muted() bool {
	speaker.Lock()
	defer speaker.Unlock()
	return s.master.Silent
}

// SampleRate returns the device rate
func (s *SpeakerSink) SampleRate() beep.SampleRate {
	return s.rate
}

// Close stops output and releases the device
func (s *SpeakerSink) Close() {
	s.closeOnce.Do(func() {
		speaker.Clear()
		speaker.Close()
	})
}

// NullSink accepts streamers and renders only on demand
// Used when no audio device is available and in tests
type NullSink struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	mixer  *beep.Mixer
	master *effects.Volume
}

// NewNullSink creates a silent sink at the given rate
func NewNullSink(rate beep.SampleRate) *NullSink {
	mixer := &beep.Mixer{}
	return &NullSink{
		rate:   rate,
		mixer:  mixer,
		master: &effects.Volume{Streamer: mixer, Base: 2},
	}
}

func (s *NullSink) Add(st beep.Streamer) {
	s.mu.Lock()
	s.mixer.Add(st)
	s.mu.Unlock()
}

func (s *NullSink) Lock()   { s.mu.Lock() }
func (s *NullSink) Unlock() { s.mu.Unlock() }

func (s *NullSink) SetMuted(muted bool) {
	s.mu.Lock()
	s.master.Silent = muted
	s.mu.Unlock()
}

func (s *NullSink) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.master.Silent
}

func (s *NullSink) SampleRate() beep.SampleRate {
	return s.rate
}

// Render pulls len(buf) frames through the master mix
func (s *NullSink) Render(buf [][2]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.master.Stream(buf)
}

func (s *NullSink) Close() {
	s.mu.Lock()
	s.mixer.Clear()
	s.mu.Unlock()
}
