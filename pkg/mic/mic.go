// Package mic provides microphone PCM sources for the push-to-talk
// path. Hardware capture rates rarely match the transcriber's 16kHz, so
// every source can be wrapped in a resampling reader.
package mic

import (
	"io"
	"math"
)

// Silence is an endless stream of zero samples, the default when no
// microphone is wired up.
type Silence struct{}

func (Silence) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

// Tone generates a sine wave, useful for exercising the capture and
// transcription path without hardware.
type Tone struct {
	Freq       float64
	SampleRate int

	phase float64
}

func (t *Tone) Read(p []byte) (int, error) {
	rate := t.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	step := 2 * math.Pi * t.Freq / float64(rate)
	for i := 0; i+1 < len(p); i += 2 {
		s := int16(12000 * math.Sin(t.phase))
		p[i] = byte(s)
		p[i+1] = byte(s >> 8)
		t.phase += step
	}
	return len(p) &^ 1, nil
}

// Resample converts 16-bit samples between rates by linear
// interpolation. Good enough for speech; not for music.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(fromRate) / float64(toRate)
	n := int(float64(len(samples)) / ratio)
	if n == 0 {
		return nil
	}
	out := make([]int16, n)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(idx)
		s1, s2 := float64(samples[idx]), float64(samples[idx+1])
		out[i] = int16(s1 + frac*(s2-s1))
	}
	return out
}

// BytesToSamples decodes little-endian PCM16.
func BytesToSamples(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes encodes little-endian PCM16.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}

// ResampleReader wraps a PCM source, converting fromRate to toRate on
// the fly.
type ResampleReader struct {
	src      io.Reader
	fromRate int
	toRate   int
	buf      []byte
	pending  []byte
}

// NewResampleReader converts src from fromRate to toRate. When the
// rates match, src is effectively passed through.
func NewResampleReader(src io.Reader, fromRate, toRate int) *ResampleReader {
	return &ResampleReader{src: src, fromRate: fromRate, toRate: toRate}
}

func (r *ResampleReader) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		// Read enough source audio to fill p after rate conversion.
		need := len(p) * r.fromRate / r.toRate
		need &^= 1
		if need < 2 {
			need = 2
		}
		if cap(r.buf) < need {
			r.buf = make([]byte, need)
		}
		n, err := io.ReadFull(r.src, r.buf[:need])
		if n == 0 {
			return 0, err
		}
		in := BytesToSamples(r.buf[:n&^1])
		r.pending = SamplesToBytes(Resample(in, r.fromRate, r.toRate))
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}
