package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultAudioConfig()
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.Mixer.AutoStart)
	assert.Empty(t, cfg.RainFiles)
	assert.Equal(t, 50*time.Millisecond, cfg.Mixer.fadeStep())
}

func TestMixerConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MixerConfig)
	}{
		{"single instance", func(c *MixerConfig) { c.RainInstances = 1 }},
		{"rain volume above one", func(c *MixerConfig) { c.RainVolume = 1.2 }},
		{"negative thunder volume", func(c *MixerConfig) { c.ThunderVolume = -0.1 }},
		{"zero fade", func(c *MixerConfig) { c.Fade = 0 }},
		{"zero steps", func(c *MixerConfig) { c.FadeSteps = 0 }},
		{"overlap shorter than fade", func(c *MixerConfig) { c.Overlap = time.Second }},
		{"zero thunder interval", func(c *MixerConfig) { c.ThunderIntervalMin = 0 }},
		{"negative spread", func(c *MixerConfig) { c.ThunderIntervalSpread = -time.Second }},
		{"negative start delay", func(c *MixerConfig) { c.StartDelay = -time.Second }},
		{"zero retry delay", func(c *MixerConfig) { c.RetryDelay = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultMixerConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestAudioConfigValidate(t *testing.T) {
	cfg := DefaultAudioConfig()
	cfg.SampleRate = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultAudioConfig()
	cfg.Buffer = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultAudioConfig()
	cfg.Mixer.RainVolume = 2
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestClampUnit(t *testing.T) {
	assert.Equal(t, 0.0, clampUnit(-3))
	assert.Equal(t, 0.25, clampUnit(0.25))
	assert.Equal(t, 1.0, clampUnit(7))
}
