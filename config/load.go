package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix maps mixer.rain_volume to RAIN_MIXER_RAIN_VOLUME
	EnvPrefix = "RAIN"
	appName   = "rain-ambience"
)

// NewViper returns a viper instance with defaults and environment overrides registered.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v, Defaults())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path, or the first default location that exists,
// then applies environment overrides and validates the result.
// A missing default file is not an error; a missing explicit path is.
func Load(v *viper.Viper, path string) (Config, error) {
	if path == "" {
		path = findConfig()
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
	}
	return Decode(v)
}

// Decode unmarshals and validates the current viper state.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Watch calls fn with the new configuration whenever the loaded file changes.
// Edits that fail validation are logged and ignored.
// Returns false when no file was loaded and there is nothing to watch.
func Watch(v *viper.Viper, fn func(Config)) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := Decode(v)
		if err != nil {
			log.Printf("[config] ignoring change to %s: %v", e.Name, err)
			return
		}
		log.Printf("[config] reloaded %s", e.Name)
		fn(cfg)
	})
	v.WatchConfig()
	return true
}

// DefaultPath is where config init writes and the first location searched.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, appName, "config.yaml")
}

// findConfig returns the first existing default config file.
func findConfig() string {
	candidates := []string{DefaultPath(), appName + ".yaml", appName + ".toml"}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c
		}
	}
	return ""
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("audio.rain_files", d.Audio.RainFiles)
	v.SetDefault("audio.thunder_file", d.Audio.ThunderFile)
	v.SetDefault("audio.asset_dir", d.Audio.AssetDir)

	v.SetDefault("mixer.rain_instances", d.Mixer.RainInstances)
	v.SetDefault("mixer.overlap", d.Mixer.Overlap)
	v.SetDefault("mixer.fade", d.Mixer.Fade)
	v.SetDefault("mixer.fade_steps", d.Mixer.FadeSteps)
	v.SetDefault("mixer.rain_volume", d.Mixer.RainVolume)
	v.SetDefault("mixer.thunder_volume", d.Mixer.ThunderVolume)
	v.SetDefault("mixer.thunder_interval_min", d.Mixer.ThunderIntervalMin)
	v.SetDefault("mixer.thunder_interval_spread", d.Mixer.ThunderIntervalSpread)
	v.SetDefault("mixer.start_delay", d.Mixer.StartDelay)
	v.SetDefault("mixer.retry_delay", d.Mixer.RetryDelay)
	v.SetDefault("mixer.auto_start", d.Mixer.AutoStart)
	v.SetDefault("mixer.muted", d.Mixer.Muted)

	v.SetDefault("output.sample_rate", d.Output.SampleRate)
	v.SetDefault("output.buffer", d.Output.Buffer)

	v.SetDefault("http.listen", d.HTTP.Listen)
	v.SetDefault("http.cors_origins", d.HTTP.CORSOrigins)

	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.dir", d.Log.Dir)
}
