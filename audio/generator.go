package audio

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/gopxl/beep"
)

// RainGenerator produces a stereo rain bed: low-passed noise with slow gusts
// and scattered droplet transients. Deterministic for a given seed
type RainGenerator struct {
	sr  beep.SampleRate
	rng *rand.Rand
	pos int

	// One-pole low-pass state per channel
	lpL, lpR float64

	// Active droplet
	dropAmp   float64
	dropPan   float64
	dropDecay float64

	gustFreq   float64
	dropRate   float64
	dropDecay0 float64
}

// NewRainGenerator creates a rain generator; different seeds give different textures
func NewRainGenerator(sr beep.SampleRate, seed uint64) *RainGenerator {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &RainGenerator{
		sr:         sr,
		rng:        rng,
		gustFreq:   0.05 + rng.Float64()*0.05,
		dropRate:   18.0 / float64(sr), // droplets per sample
		dropDecay0: math.Exp(-1.0 / (0.004 * float64(sr))),
	}
}

func (g *RainGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	const lpCoef = 0.12
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)

		// Decorrelated channels widen the bed
		g.lpL += lpCoef * (g.rng.Float64()*2 - 1 - g.lpL)
		g.lpR += lpCoef * (g.rng.Float64()*2 - 1 - g.lpR)

		gust := 0.75 + 0.25*math.Sin(2*math.Pi*g.gustFreq*t)

		if g.rng.Float64() < g.dropRate {
			g.dropAmp = 0.15 + g.rng.Float64()*0.25
			g.dropPan = g.rng.Float64()
			g.dropDecay = g.dropDecay0
		}
		drop := 0.0
		if g.dropAmp > 1e-4 {
			drop = g.dropAmp * (g.rng.Float64()*2 - 1)
			g.dropAmp *= g.dropDecay
		}

		samples[i][0] = 0.9*gust*g.lpL + drop*(1-g.dropPan)
		samples[i][1] = 0.9*gust*g.lpR + drop*g.dropPan
		g.pos++
	}
	return len(samples), true
}

func (g *RainGenerator) Err() error {
	return nil
}

// ThunderGenerator produces a rumble: leaky-integrated noise with early
// crackle and an exponential tail
type ThunderGenerator struct {
	sr     beep.SampleRate
	rng    *rand.Rand
	pos    int
	attack int

	brown   float64
	lp      float64
	crackle float64
}

// NewThunderGenerator creates a thunder generator
func NewThunderGenerator(sr beep.SampleRate, attack time.Duration, seed uint64) *ThunderGenerator {
	return &ThunderGenerator{
		sr:     sr,
		rng:    rand.New(rand.NewPCG(seed, ^seed)),
		attack: sr.N(attack),
	}
}

func (g *ThunderGenerator) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		t := float64(g.pos) / float64(g.sr)

		// Brown noise with leak keeps the integrator bounded
		g.brown = 0.998*g.brown + 0.04*(g.rng.Float64()*2-1)
		g.lp += 0.02 * (g.brown - g.lp)

		var env float64
		if g.pos < g.attack && g.attack > 0 {
			env = float64(g.pos) / float64(g.attack)
		} else {
			env = math.Exp(-(t - float64(g.attack)/float64(g.sr)) * 0.35)
		}

		// Crackle bursts only in the first moments of the strike
		if t < 1.5 && g.rng.Float64() < 0.002 {
			g.crackle = 0.5 + g.rng.Float64()*0.5
		}
		crack := g.crackle * (g.rng.Float64()*2 - 1)
		g.crackle *= 0.995

		sample := env * (2.5*g.lp + 0.3*crack)
		if sample > 1 {
			sample = 1
		} else if sample < -1 {
			sample = -1
		}

		samples[i][0] = sample
		samples[i][1] = sample
		g.pos++
	}
	return len(samples), true
}

func (g *ThunderGenerator) Err() error {
	return nil
}

// envelope applies attack/release shaping to a stream of known length
type envelope struct {
	streamer       beep.Streamer
	position       int
	attackSamples  int
	releaseSamples int
	totalSamples   int
}

// NewEnvelope shapes s with a linear attack and release over duration
func NewEnvelope(s beep.Streamer, duration, attack, release time.Duration, rate beep.SampleRate) beep.Streamer {
	return &envelope{
		streamer:       s,
		attackSamples:  rate.N(attack),
		releaseSamples: rate.N(release),
		totalSamples:   rate.N(duration),
	}
}

func (e *envelope) Stream(samples [][2]float64) (n int, ok bool) {
	n, ok = e.streamer.Stream(samples)

	releaseStart := e.totalSamples - e.releaseSamples
	for i := 0; i < n; i++ {
		if e.position >= e.totalSamples {
			return i, false
		}

		vol := 1.0
		if e.position < e.attackSamples && e.attackSamples > 0 {
			vol = float64(e.position) / float64(e.attackSamples)
		}
		if e.position >= releaseStart && e.releaseSamples > 0 {
			vol = math.Min(vol, float64(e.totalSamples-e.position)/float64(e.releaseSamples))
		}

		samples[i][0] *= vol
		samples[i][1] *= vol
		e.position++
	}

	return n, ok
}

func (e *envelope) Err() error { return e.streamer.Err() }
