package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lixenwraith/rain-ambience/audio"
)

// thunderMarkers identify overlay clips during an asset_dir scan.
var thunderMarkers = []string{"thunder", "storm"}

// ResolveAssets returns the rain files and thunder file to load.
// Relative names resolve against asset_dir. With no rain files configured the
// directory is scanned: names containing a thunder marker become the overlay,
// everything else with a supported extension joins the rain rotation.
// Empty results select synthesized clips.
func (c Config) ResolveAssets() ([]string, string, error) {
	dir := expandHome(c.Audio.AssetDir)

	rain := make([]string, 0, len(c.Audio.RainFiles))
	for _, f := range c.Audio.RainFiles {
		rain = append(rain, resolve(dir, f))
	}
	thunder := ""
	if c.Audio.ThunderFile != "" {
		thunder = resolve(dir, c.Audio.ThunderFile)
	}

	if len(rain) > 0 || dir == "" {
		return rain, thunder, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", fmt.Errorf("scanning asset dir: %w", err)
	}

	var storms []string
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(audio.SupportedExtensions(), strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if isThunder(e.Name()) {
			storms = append(storms, path)
			continue
		}
		rain = append(rain, path)
	}

	// ReadDir is sorted, so the first overlay is stable
	if thunder == "" && len(storms) > 0 {
		thunder = storms[0]
	}
	return rain, thunder, nil
}

func isThunder(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range thunderMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func resolve(dir, name string) string {
	name = expandHome(name)
	if dir == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
