package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/vorbis"
	"github.com/gopxl/beep/wav"
	gocache "github.com/patrickmn/go-cache"

	"github.com/lixenwraith/rain-ambience/constant"
)

// decoderFunc matches the beep decoder signatures after adapting io.Reader ones
type decoderFunc func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

var decoders = map[string]decoderFunc{
	".mp3": mp3.Decode,
	".ogg": vorbis.Decode,
	".wav": func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return wav.Decode(rc)
	},
	".flac": func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) {
		return flac.Decode(rc)
	},
}

// SupportedExtensions lists the decodable file extensions
func SupportedExtensions() []string {
	return []string{".flac", ".mp3", ".ogg", ".wav"}
}

// Loader decodes assets into fully buffered PCM at the output rate
// A buffered clip is ready to play through without further I/O
type Loader struct {
	rate  beep.SampleRate
	cache *gocache.Cache
	open  func(path string) (io.ReadCloser, error)
}

// NewLoader creates a loader producing buffers at rate
func NewLoader(rate beep.SampleRate) *Loader {
	return &Loader{
		rate:  rate,
		cache: gocache.New(gocache.NoExpiration, 0),
		open: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// SampleRate returns the output rate of produced buffers
func (l *Loader) SampleRate() beep.SampleRate {
	return l.rate
}

// LoadFile decodes path, reusing the cached buffer when already loaded
func (l *Loader) LoadFile(ctx context.Context, path string) (*beep.Buffer, error) {
	key := "file:" + path
	if buf, ok := l.cached(key); ok {
		return buf, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}

	f, err := l.open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	stream, format, err := decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	defer stream.Close()

	var src beep.Streamer = stream
	if format.SampleRate != l.rate {
		src = beep.Resample(constant.AudioResampleQuality, format.SampleRate, l.rate, stream)
	}

	buf := beep.NewBuffer(l.format())
	buf.Append(src)
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.cache.Set(key, buf, gocache.DefaultExpiration)
	return buf, nil
}

// Synthesize buffers d of s under key, reusing a cached buffer
func (l *Loader) Synthesize(ctx context.Context, key string, d time.Duration, s beep.Streamer) (*beep.Buffer, error) {
	key = "synth:" + key
	if buf, ok := l.cached(key); ok {
		return buf, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buf := beep.NewBuffer(l.format())
	buf.Append(beep.Take(l.rate.N(d), s))
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("synthesize %s: %w", key, err)
	}

	l.cache.Set(key, buf, gocache.DefaultExpiration)
	return buf, nil
}

// Cached returns the number of buffers held
func (l *Loader) Cached() int {
	return l.cache.ItemCount()
}

// Purge drops every cached buffer
func (l *Loader) Purge() {
	l.cache.Flush()
}

func (l *Loader) cached(key string) (*beep.Buffer, bool) {
	v, ok := l.cache.Get(key)
	if !ok {
		return nil, false
	}
	buf, ok := v.(*beep.Buffer)
	return buf, ok
}

func (l *Loader) format() beep.Format {
	return beep.Format{
		SampleRate:  l.rate,
		NumChannels: constant.AudioChannels,
		Precision:   2,
	}
}
