package audio

import (
	"errors"
	"time"
)

// Clip is one independently controllable audio instance
// Implementations must be safe for use from timer callbacks
type Clip interface {
	Name() string

	// Play resumes from the current position; an error means the clip did not start
	Play() error
	Pause()

	// Paused reports true when paused or when playback reached the end
	Paused() bool

	// Rewind moves the position to the start without changing play state
	Rewind()

	// SetVolume sets the linear level, clamped to [0,1]
	SetVolume(v float64)
	Volume() float64

	Duration() time.Duration
	Close()
}

// Source builds the clips the mixer rotates through
type Source interface {
	// RainClip returns the clip for pool slot i
	RainClip(i int) (Clip, error)
	ThunderClip() (Clip, error)
}

// Status is a point-in-time view of the mixer for controls
type Status struct {
	Playing          bool
	Loaded           bool
	Muted            bool
	CurrentRainTrack int
	Session          string
	Config           MixerConfig
}

// Sentinel errors
var (
	ErrNotLoaded         = errors.New("audio mixer not loaded")
	ErrClosed            = errors.New("audio mixer closed")
	ErrClipClosed        = errors.New("clip closed")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrInvalidConfig     = errors.New("invalid audio configuration")
)
