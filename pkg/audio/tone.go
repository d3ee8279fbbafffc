package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// SynthSampleRate is the rate of all locally synthesized waveforms.
const SynthSampleRate = 11025

const (
	crySamples      = 5500
	altVoiceSamples = 4200
)

// Sine produces a plain sine tone as 16-bit mono PCM at SynthSampleRate.
func Sine(frequency float64, durationMs int) []byte {
	n := SynthSampleRate * durationMs / 1000
	out := make([]byte, 2*n)
	for i := 0; i < n; i++ {
		t := float64(i) / SynthSampleRate
		s := int16(8000 * math.Sin(2*math.Pi*frequency*t))
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

var (
	cryOnce sync.Once
	cryWave []byte

	altOnce sync.Once
	altWave []byte
)

// CryWave returns the pet's synthesized cry: a warbling tone around
// 780Hz with tremolo and an attack/decay envelope, half a second at
// SynthSampleRate. The waveform is computed once and cached.
func CryWave() []byte {
	cryOnce.Do(func() {
		cryWave = make([]byte, 2*crySamples)
		for i := 0; i < crySamples; i++ {
			t := float64(i) / SynthSampleRate
			base := 780.0 + 90.0*math.Sin(2*math.Pi*2.8*t)
			glide := 120.0 * math.Sin(2*math.Pi*0.9*t)
			pitch := base + glide
			env := 1.0
			if t < 0.03 {
				env = t / 0.03
			} else if t > 0.42 {
				env = 1.0 - (t-0.42)/0.20
				if env < 0 {
					env = 0
				}
			}
			wave := math.Sin(2*math.Pi*pitch*t) * 8000.0
			trem := math.Sin(2*math.Pi*35.0*t)*0.18 + 0.82
			s := int16(wave * env * trem)
			binary.LittleEndian.PutUint16(cryWave[2*i:], uint16(s))
		}
	})
	return cryWave
}

// AltVoiceWave returns the fallback "voice" used when no speech source
// is reachable: a two-partial warble around 660Hz with a formant sweep.
// The waveform is computed once and cached.
func AltVoiceWave() []byte {
	altOnce.Do(func() {
		altWave = make([]byte, 2*altVoiceSamples)
		for i := 0; i < altVoiceSamples; i++ {
			t := float64(i) / SynthSampleRate
			base := 660.0 + 90.0*math.Sin(2*math.Pi*2.4*t)
			formant := 180.0 + 45.0*math.Sin(2*math.Pi*0.8*t)
			pitch := base + 120.0*math.Sin(2*math.Pi*0.4*t) + formant*math.Sin(2*math.Pi*1.8*t)
			env := 1.0
			if t < 0.06 {
				env = t / 0.06
			} else if t > 0.60 {
				env = (0.7 - t) / 0.30
				if env < 0 {
					env = 0
				}
			}
			wave := (math.Sin(2*math.Pi*pitch*t) + 0.38*math.Sin(2*math.Pi*(pitch*2.0+120.0)*t)) * 9000.0
			s := int16(wave * env)
			binary.LittleEndian.PutUint16(altWave[2*i:], uint16(s))
		}
	})
	return altWave
}
