package constant

import "time"

// Audio Hardware Settings
const (
	AudioSampleRate = 44100
	AudioChannels   = 2

	// AudioBufferDuration is the speaker buffer, trades latency for underrun safety
	AudioBufferDuration = 100 * time.Millisecond

	// AudioResampleQuality is passed to beep.Resample for assets at foreign rates
	AudioResampleQuality = 4
)

// Rain Rotation
const (
	// RainInstances is the size of the rotating rain clip pool
	RainInstances = 4

	// RainVolume is the target level of an audible rain clip
	RainVolume = 0.7

	// OverlapDuration is how long before a clip ends its successor starts
	OverlapDuration = 5 * time.Second
)

// Fades
const (
	FadeDuration = 3 * time.Second
	FadeSteps    = 60

	// Stop uses a short multiplicative fade instead of the full linear one
	StopFadeSteps    = 20
	StopFadeInterval = 25 * time.Millisecond

	// SilenceThreshold ends a fade-out early
	SilenceThreshold = 0.01
)

// Thunderstorm Overlay
const (
	ThunderVolume = 0.4

	// Overlays fire uniformly in [ThunderIntervalMin, ThunderIntervalMin+ThunderIntervalSpread)
	ThunderIntervalMin    = 10 * time.Second
	ThunderIntervalSpread = 10 * time.Second

	// ThunderFadeOutFraction is the earliest fade-out point as a fraction of clip length
	ThunderFadeOutFraction = 0.7
)

// Lifecycle
const (
	StartDelay = 500 * time.Millisecond
	RetryDelay = 100 * time.Millisecond
)

// Synthesized fallback clips
const (
	SynthRainDuration    = 30 * time.Second
	SynthRainVariants    = 2
	SynthThunderDuration = 12 * time.Second
	SynthThunderAttack   = 400 * time.Millisecond
)
