package audio

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/gopxl/beep"

	"github.com/lixenwraith/rain-ambience/constant"
)

// Library is the Source backed by asset files or synthesized clips
// Pool slot i plays RainFiles[i % len(RainFiles)]
type Library struct {
	ctx         context.Context
	loader      *Loader
	sink        Sink
	rainFiles   []string
	thunderFile string
}

// NewLibrary creates a Source; ctx bounds decoding work
func NewLibrary(ctx context.Context, loader *Loader, sink Sink, rainFiles []string, thunderFile string) *Library {
	return &Library{
		ctx:         ctx,
		loader:      loader,
		sink:        sink,
		rainFiles:   rainFiles,
		thunderFile: thunderFile,
	}
}

// RainClip returns a fresh clip for pool slot i
func (l *Library) RainClip(i int) (Clip, error) {
	if len(l.rainFiles) == 0 {
		variant := i % constant.SynthRainVariants
		key := fmt.Sprintf("rain-%d", variant)
		buf, err := l.loader.Synthesize(l.ctx, key, constant.SynthRainDuration, l.rainStreamer(uint64(variant)+1))
		if err != nil {
			return nil, err
		}
		return NewBufferClip(fmt.Sprintf("rain[%d] synth-%d", i, variant), buf, l.sink), nil
	}

	path := l.rainFiles[i%len(l.rainFiles)]
	buf, err := l.loader.LoadFile(l.ctx, path)
	if err != nil {
		return nil, err
	}
	return NewBufferClip(fmt.Sprintf("rain[%d] %s", i, filepath.Base(path)), buf, l.sink), nil
}

// ThunderClip returns the overlay clip
func (l *Library) ThunderClip() (Clip, error) {
	if l.thunderFile == "" {
		buf, err := l.loader.Synthesize(l.ctx, "thunder", constant.SynthThunderDuration, l.thunderStreamer())
		if err != nil {
			return nil, err
		}
		return NewBufferClip("thunder synth", buf, l.sink), nil
	}

	buf, err := l.loader.LoadFile(l.ctx, l.thunderFile)
	if err != nil {
		return nil, err
	}
	return NewBufferClip("thunder "+filepath.Base(l.thunderFile), buf, l.sink), nil
}

func (l *Library) rainStreamer(seed uint64) beep.Streamer {
	rate := l.loader.SampleRate()
	d := constant.SynthRainDuration
	// Soft edges avoid clicks at clip boundaries
	return NewEnvelope(NewRainGenerator(rate, seed), d, constant.FadeDuration/3, constant.FadeDuration/3, rate)
}

func (l *Library) thunderStreamer() beep.Streamer {
	rate := l.loader.SampleRate()
	d := constant.SynthThunderDuration
	gen := NewThunderGenerator(rate, constant.SynthThunderAttack, 0x7a11)
	return NewEnvelope(gen, d, 0, constant.FadeDuration/3, rate)
}
