package audio

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/gopxl/beep"

	"github.com/lixenwraith/rain-ambience/status"
)

// AudioService wraps the mixer as a Service
// Degrades to a silent sink when no audio device is available
type AudioService struct {
	config *AudioConfig
	ctx    context.Context
	cancel context.CancelFunc

	sink   Sink
	loader *Loader
	mixer  *Mixer
	opts   Options

	silent  atomic.Bool
	stopped atomic.Bool
}

// NewService creates an audio service; nil cfg selects defaults
// opts.Sink, when set, replaces the speaker (used in tests)
func NewService(cfg *AudioConfig, opts Options) *AudioService {
	if cfg == nil {
		cfg = DefaultAudioConfig()
	}
	return &AudioService{config: cfg, opts: opts}
}

// Name implements Service
func (s *AudioService) Name() string {
	return "audio"
}

// Dependencies implements Service
func (s *AudioService) Dependencies() []string {
	return []string{"status"}
}

// Init implements Service
// Accepts a *status.Registry among args to publish mixer metrics
func (s *AudioService) Init(args ...any) error {
	if err := s.config.Validate(); err != nil {
		return err
	}

	for _, arg := range args {
		if reg, ok := arg.(*status.Registry); ok {
			s.opts.Registry = reg
		}
	}
	if s.opts.Registry == nil {
		s.opts.Registry = status.NewRegistry()
	}

	rate := beep.SampleRate(s.config.SampleRate)

	if s.opts.Sink == nil {
		sink, err := NewSpeakerSink(rate, s.config.Buffer)
		if err != nil {
			// No device is not fatal; keep running silently
			log.Printf("[audio] speaker init failed, running silent: %v", err)
			s.silent.Store(true)
			s.opts.Sink = NewNullSink(rate)
		} else {
			s.opts.Sink = sink
		}
	}
	s.sink = s.opts.Sink
	s.opts.Registry.Bools.Get(status.KeyMixerSilent).Store(s.silent.Load())

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.loader = NewLoader(s.sink.SampleRate())
	library := NewLibrary(s.ctx, s.loader, s.sink, s.config.RainFiles, s.config.ThunderFile)

	mixer, err := NewMixer(library, s.config.Mixer, s.opts)
	if err != nil {
		s.cancel()
		return fmt.Errorf("create mixer: %w", err)
	}
	s.mixer = mixer
	if s.config.Muted {
		mixer.SetMuted(true)
	}
	return nil
}

// Start implements Service
// Loads every clip; playback follows after the start delay when auto-start is on
func (s *AudioService) Start() error {
	if s.mixer == nil {
		return ErrNotLoaded
	}
	return s.mixer.Load(s.ctx)
}

// Stop implements Service
func (s *AudioService) Stop() error {
	if !s.stopped.CompareAndSwap(false, true) {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.mixer != nil {
		s.mixer.Close()
	}
	if s.loader != nil {
		s.loader.Purge()
	}
	if s.sink != nil {
		s.sink.Close()
	}
	return nil
}

// Mixer returns the mixer; nil before Init
func (s *AudioService) Mixer() *Mixer {
	return s.mixer
}

// IsSilent reports whether output fell back to the null sink
func (s *AudioService) IsSilent() bool {
	return s.silent.Load()
}
