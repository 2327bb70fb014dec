// Package config provides configuration types, defaults and loading for rain-ambience.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lixenwraith/rain-ambience/audio"
	"github.com/lixenwraith/rain-ambience/constant"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all configuration options for rain-ambience.
type Config struct {
	Audio  AudioConfig  `mapstructure:"audio"`
	Mixer  MixerConfig  `mapstructure:"mixer"`
	Output OutputConfig `mapstructure:"output"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	Log    LogConfig    `mapstructure:"log"`
}

// AudioConfig selects the clips. Empty files fall back to synthesized rain and thunder.
type AudioConfig struct {
	RainFiles   []string `mapstructure:"rain_files"`
	ThunderFile string   `mapstructure:"thunder_file"`

	// AssetDir resolves relative file names and is scanned when RainFiles is empty.
	AssetDir string `mapstructure:"asset_dir"`
}

// MixerConfig holds rotation, fade and overlay parameters.
type MixerConfig struct {
	RainInstances         int           `mapstructure:"rain_instances"`
	Overlap               time.Duration `mapstructure:"overlap"`
	Fade                  time.Duration `mapstructure:"fade"`
	FadeSteps             int           `mapstructure:"fade_steps"`
	RainVolume            float64       `mapstructure:"rain_volume"`
	ThunderVolume         float64       `mapstructure:"thunder_volume"`
	ThunderIntervalMin    time.Duration `mapstructure:"thunder_interval_min"`
	ThunderIntervalSpread time.Duration `mapstructure:"thunder_interval_spread"`
	StartDelay            time.Duration `mapstructure:"start_delay"`
	RetryDelay            time.Duration `mapstructure:"retry_delay"`
	AutoStart             bool          `mapstructure:"auto_start"`
	Muted                 bool          `mapstructure:"muted"`
}

// OutputConfig holds audio device settings.
type OutputConfig struct {
	SampleRate int           `mapstructure:"sample_rate"`
	Buffer     time.Duration `mapstructure:"buffer"`
}

// HTTPConfig controls the optional status API. An empty Listen disables it.
type HTTPConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// LogConfig controls the debug log file.
type LogConfig struct {
	Debug bool   `mapstructure:"debug"`
	Dir   string `mapstructure:"dir"`
}

// Defaults returns a Config with the stock values.
func Defaults() Config {
	return Config{
		Audio: AudioConfig{
			RainFiles: []string{},
		},
		Mixer: MixerConfig{
			RainInstances:         constant.RainInstances,
			Overlap:               constant.OverlapDuration,
			Fade:                  constant.FadeDuration,
			FadeSteps:             constant.FadeSteps,
			RainVolume:            constant.RainVolume,
			ThunderVolume:         constant.ThunderVolume,
			ThunderIntervalMin:    constant.ThunderIntervalMin,
			ThunderIntervalSpread: constant.ThunderIntervalSpread,
			StartDelay:            constant.StartDelay,
			RetryDelay:            constant.RetryDelay,
			AutoStart:             true,
		},
		Output: OutputConfig{
			SampleRate: constant.AudioSampleRate,
			Buffer:     constant.AudioBufferDuration,
		},
		HTTP: HTTPConfig{
			CORSOrigins: []string{},
		},
		Log: LogConfig{
			Dir: constant.LogDir,
		},
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	m := c.Mixer
	switch {
	case m.RainInstances < 2:
		return fmt.Errorf("%w: mixer.rain_instances must be at least 2, got %d", ErrInvalid, m.RainInstances)
	case m.RainVolume < 0 || m.RainVolume > 1:
		return fmt.Errorf("%w: mixer.rain_volume must be within [0,1], got %v", ErrInvalid, m.RainVolume)
	case m.ThunderVolume < 0 || m.ThunderVolume > 1:
		return fmt.Errorf("%w: mixer.thunder_volume must be within [0,1], got %v", ErrInvalid, m.ThunderVolume)
	case m.Fade <= 0:
		return fmt.Errorf("%w: mixer.fade must be positive", ErrInvalid)
	case m.FadeSteps <= 0:
		return fmt.Errorf("%w: mixer.fade_steps must be positive", ErrInvalid)
	case m.Overlap < m.Fade:
		return fmt.Errorf("%w: mixer.overlap (%v) must not be shorter than mixer.fade (%v)", ErrInvalid, m.Overlap, m.Fade)
	case m.ThunderIntervalMin <= 0:
		return fmt.Errorf("%w: mixer.thunder_interval_min must be positive", ErrInvalid)
	case m.ThunderIntervalSpread < 0:
		return fmt.Errorf("%w: mixer.thunder_interval_spread must not be negative", ErrInvalid)
	case m.StartDelay < 0:
		return fmt.Errorf("%w: mixer.start_delay must not be negative", ErrInvalid)
	case m.RetryDelay <= 0:
		return fmt.Errorf("%w: mixer.retry_delay must be positive", ErrInvalid)
	case c.Output.SampleRate <= 0:
		return fmt.Errorf("%w: output.sample_rate must be positive", ErrInvalid)
	case c.Output.Buffer <= 0:
		return fmt.Errorf("%w: output.buffer must be positive", ErrInvalid)
	}
	return nil
}

// AudioConfig converts to the mixer's runtime settings with asset paths resolved.
func (c Config) AudioConfig() (*audio.AudioConfig, error) {
	rain, thunder, err := c.ResolveAssets()
	if err != nil {
		return nil, err
	}

	m := c.Mixer
	return &audio.AudioConfig{
		Muted:       m.Muted,
		SampleRate:  c.Output.SampleRate,
		Buffer:      c.Output.Buffer,
		RainFiles:   rain,
		ThunderFile: thunder,
		Mixer: audio.MixerConfig{
			RainInstances:         m.RainInstances,
			RainVolume:            m.RainVolume,
			ThunderVolume:         m.ThunderVolume,
			Overlap:               m.Overlap,
			Fade:                  m.Fade,
			FadeSteps:             m.FadeSteps,
			ThunderIntervalMin:    m.ThunderIntervalMin,
			ThunderIntervalSpread: m.ThunderIntervalSpread,
			StartDelay:            m.StartDelay,
			RetryDelay:            m.RetryDelay,
			AutoStart:             m.AutoStart,
		},
	}, nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Rain Ambience Configuration

audio:
  # Rain clips rotate through the pool: slot i plays rain_files[i % len(rain_files)]
  # Leave empty to scan asset_dir, or to synthesize rain when nothing is found
  #   rain_files: [rain-medium-1.mp3, rain-medium-2.mp3]
  rain_files: []
  thunder_file: ""           # e.g. thunderstorm.mp3
  asset_dir: ""              # e.g. ~/Music/rain

mixer:
  rain_instances: 4          # Size of the rotating rain pool (>= 2)
  overlap: 5s                # Successor starts this long before a clip ends
  fade: 3s                   # Fade-in, fade-out and crossfade duration
  fade_steps: 60             # Volume steps per fade
  rain_volume: 0.7           # Target rain level [0,1]
  thunder_volume: 0.4        # Thunder overlay cap [0,1]
  thunder_interval_min: 10s  # Overlays fire every min + random(spread)
  thunder_interval_spread: 10s
  start_delay: 500ms         # Delay between loading and autostart
  retry_delay: 100ms         # Delay before trying the next clip after a failure
  auto_start: true
  muted: false

output:
  sample_rate: 44100
  buffer: 100ms

http:
  listen: ""                 # e.g. 127.0.0.1:9000 serves /health, /status, /toggle, /mute
  cors_origins: []

log:
  debug: false               # Write logs/rain-ambience.log
  dir: logs
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
