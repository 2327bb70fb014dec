package status

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

// Metric keys published by the mixer
const (
	KeyRainTracksStarted   = "rain.tracks_started"
	KeyRainCrossfades      = "rain.crossfades"
	KeyRainPlayFailures    = "rain.play_failures"
	KeyRainCurrent         = "rain.current"
	KeyThunderOverlays     = "thunder.overlays"
	KeyThunderPlayFailures = "thunder.play_failures"
	KeyMixerStops          = "mixer.stops"
	KeyMixerPlaying        = "mixer.playing"
	KeyMixerLoaded         = "mixer.loaded"
	KeyMixerMuted          = "mixer.muted"
	KeyMixerSilent         = "mixer.silent"
	KeyMixerSession        = "mixer.session"
	KeyRainLevel           = "level.rain"
	KeyThunderLevel        = "level.thunder"
)

// Registry is the central metrics facade
// Producers cache pointers once; hot paths write directly to atomics
type Registry struct {
	Bools   *MetricMap[atomic.Bool]
	Ints    *MetricMap[atomic.Int64]
	Floats  *MetricMap[AtomicFloat]
	Strings *MetricMap[AtomicString]
}

// NewRegistry creates an initialized Registry
func NewRegistry() *Registry {
	return &Registry{
		Bools:   NewMetricMap[atomic.Bool](),
		Ints:    NewMetricMap[atomic.Int64](),
		Floats:  NewMetricMap[AtomicFloat](),
		Strings: NewMetricMap[AtomicString](),
	}
}

// TotalCount returns total metrics across all types
func (r *Registry) TotalCount() int {
	return r.Bools.Count() + r.Ints.Count() + r.Floats.Count() + r.Strings.Count()
}

// Lines renders every metric as "key value", grouped by type, keys sorted
func (r *Registry) Lines() []string {
	lines := make([]string, 0, r.TotalCount())

	r.Bools.Range(func(key string, ptr *atomic.Bool) {
		lines = append(lines, key+" "+strconv.FormatBool(ptr.Load()))
	})
	r.Ints.Range(func(key string, ptr *atomic.Int64) {
		lines = append(lines, key+" "+strconv.FormatInt(ptr.Load(), 10))
	})
	r.Floats.Range(func(key string, ptr *AtomicFloat) {
		lines = append(lines, fmt.Sprintf("%s %.2f", key, ptr.Get()))
	})
	r.Strings.Range(func(key string, ptr *AtomicString) {
		lines = append(lines, key+" "+ptr.Load())
	})

	return lines
}

// Snapshot returns Lines joined by newlines
func (r *Registry) Snapshot() string {
	return strings.Join(r.Lines(), "\n")
}

// Values returns every metric keyed by name with its typed value
func (r *Registry) Values() map[string]any {
	values := make(map[string]any, r.TotalCount())

	r.Bools.Range(func(key string, ptr *atomic.Bool) {
		values[key] = ptr.Load()
	})
	r.Ints.Range(func(key string, ptr *atomic.Int64) {
		values[key] = ptr.Load()
	})
	r.Floats.Range(func(key string, ptr *AtomicFloat) {
		values[key] = ptr.Get()
	})
	r.Strings.Range(func(key string, ptr *AtomicString) {
		values[key] = ptr.Load()
	})

	return values
}
