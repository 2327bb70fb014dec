package config

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Formats accepted by Encode.
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// Encode writes cfg to w in the given format, using the same keys the loader reads.
func Encode(w io.Writer, cfg Config, format string) error {
	doc := document(cfg)

	switch format {
	case FormatYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("encoding toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", format, FormatYAML, FormatTOML)
	}
}

// document flattens cfg to nested maps with durations in their string form,
// which both encoders write readably and viper parses back.
func document(cfg Config) map[string]any {
	rain := cfg.Audio.RainFiles
	if rain == nil {
		rain = []string{}
	}

	origins := cfg.HTTP.CORSOrigins
	if origins == nil {
		origins = []string{}
	}

	m := cfg.Mixer
	return map[string]any{
		"audio": map[string]any{
			"rain_files":   rain,
			"thunder_file": cfg.Audio.ThunderFile,
			"asset_dir":    cfg.Audio.AssetDir,
		},
		"mixer": map[string]any{
			"rain_instances":          m.RainInstances,
			"overlap":                 m.Overlap.String(),
			"fade":                    m.Fade.String(),
			"fade_steps":              m.FadeSteps,
			"rain_volume":             m.RainVolume,
			"thunder_volume":          m.ThunderVolume,
			"thunder_interval_min":    m.ThunderIntervalMin.String(),
			"thunder_interval_spread": m.ThunderIntervalSpread.String(),
			"start_delay":             m.StartDelay.String(),
			"retry_delay":             m.RetryDelay.String(),
			"auto_start":              m.AutoStart,
			"muted":                   m.Muted,
		},
		"output": map[string]any{
			"sample_rate": cfg.Output.SampleRate,
			"buffer":      cfg.Output.Buffer.String(),
		},
		"http": map[string]any{
			"listen":       cfg.HTTP.Listen,
			"cors_origins": origins,
		},
		"log": map[string]any{
			"debug": cfg.Log.Debug,
			"dir":   cfg.Log.Dir,
		},
	}
}
