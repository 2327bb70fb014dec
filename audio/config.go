package audio

import (
	"fmt"
	"time"

	"github.com/lixenwraith/rain-ambience/constant"
)

// MixerConfig holds rotation, fade and overlay parameters
type MixerConfig struct {
	RainInstances int
	RainVolume    float64
	ThunderVolume float64

	Overlap   time.Duration
	Fade      time.Duration
	FadeSteps int

	ThunderIntervalMin    time.Duration
	ThunderIntervalSpread time.Duration

	StartDelay time.Duration
	RetryDelay time.Duration

	// AutoStart begins playback StartDelay after Load completes
	AutoStart bool
}

// AudioConfig holds device, asset and mixer settings
type AudioConfig struct {
	// Muted starts the master output silenced
	Muted bool

	SampleRate int
	Buffer     time.Duration

	// RainFiles rotate into the pool; empty selects synthesized rain
	RainFiles []string
	// ThunderFile is the overlay clip; empty selects synthesized thunder
	ThunderFile string

	Mixer MixerConfig
}

// DefaultMixerConfig returns the stock rotation parameters
func DefaultMixerConfig() MixerConfig {
	return MixerConfig{
		RainInstances:         constant.RainInstances,
		RainVolume:            constant.RainVolume,
		ThunderVolume:         constant.ThunderVolume,
		Overlap:               constant.OverlapDuration,
		Fade:                  constant.FadeDuration,
		FadeSteps:             constant.FadeSteps,
		ThunderIntervalMin:    constant.ThunderIntervalMin,
		ThunderIntervalSpread: constant.ThunderIntervalSpread,
		StartDelay:            constant.StartDelay,
		RetryDelay:            constant.RetryDelay,
		AutoStart:             true,
	}
}

// DefaultAudioConfig returns defaults with synthesized clips
func DefaultAudioConfig() *AudioConfig {
	return &AudioConfig{
		SampleRate: constant.AudioSampleRate,
		Buffer:     constant.AudioBufferDuration,
		Mixer:      DefaultMixerConfig(),
	}
}

// Validate checks the mixer parameters
func (c MixerConfig) Validate() error {
	switch {
	case c.RainInstances < 2:
		return fmt.Errorf("%w: rain instances must be at least 2, got %d", ErrInvalidConfig, c.RainInstances)
	case c.RainVolume < 0 || c.RainVolume > 1:
		return fmt.Errorf("%w: rain volume %.2f outside [0,1]", ErrInvalidConfig, c.RainVolume)
	case c.ThunderVolume < 0 || c.ThunderVolume > 1:
		return fmt.Errorf("%w: thunder volume %.2f outside [0,1]", ErrInvalidConfig, c.ThunderVolume)
	case c.Fade <= 0 || c.FadeSteps <= 0:
		return fmt.Errorf("%w: fade duration and steps must be positive", ErrInvalidConfig)
	case c.Overlap < c.Fade:
		return fmt.Errorf("%w: overlap %v shorter than fade %v", ErrInvalidConfig, c.Overlap, c.Fade)
	case c.ThunderIntervalMin <= 0 || c.ThunderIntervalSpread < 0:
		return fmt.Errorf("%w: thunder interval must be positive", ErrInvalidConfig)
	case c.StartDelay < 0 || c.RetryDelay <= 0:
		return fmt.Errorf("%w: start delay must be non-negative and retry delay positive", ErrInvalidConfig)
	}
	return nil
}

// Validate checks device and mixer settings
func (c *AudioConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.Buffer <= 0 {
		return fmt.Errorf("%w: buffer must be positive", ErrInvalidConfig)
	}
	return c.Mixer.Validate()
}

// fadeStep is the interval between fade steps
func (c MixerConfig) fadeStep() time.Duration {
	return c.Fade / time.Duration(c.FadeSteps)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
