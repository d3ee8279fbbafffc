package audio

import (
	"encoding/binary"
	"testing"
)

func TestCryWave(t *testing.T) {
	w := CryWave()
	if len(w) != 2*crySamples {
		t.Fatalf("len = %d, want %d", len(w), 2*crySamples)
	}
	if &w[0] != &CryWave()[0] {
		t.Fatal("waveform not cached")
	}
	// Attack envelope: the very first samples must be near silent.
	if s := int16(binary.LittleEndian.Uint16(w[0:])); s != 0 {
		t.Fatalf("first sample = %d, want 0", s)
	}
	var peak int16
	for i := 0; i+1 < len(w); i += 2 {
		s := int16(binary.LittleEndian.Uint16(w[i:]))
		if s > peak {
			peak = s
		}
	}
	if peak < 4000 {
		t.Fatalf("peak = %d, wave too quiet", peak)
	}
}

func TestAltVoiceWave(t *testing.T) {
	w := AltVoiceWave()
	if len(w) != 2*altVoiceSamples {
		t.Fatalf("len = %d, want %d", len(w), 2*altVoiceSamples)
	}
	var peak int16
	for i := 0; i+1 < len(w); i += 2 {
		s := int16(binary.LittleEndian.Uint16(w[i:]))
		if s > peak {
			peak = s
		}
	}
	if peak < 4000 {
		t.Fatalf("peak = %d, wave too quiet", peak)
	}
}

func TestSine(t *testing.T) {
	w := Sine(440, 100)
	want := 2 * (SynthSampleRate * 100 / 1000)
	if len(w) != want {
		t.Fatalf("len = %d, want %d", len(w), want)
	}
}

func TestApplyGain(t *testing.T) {
	pcm := make([]byte, 4)
	neg := int16(-10000)
	binary.LittleEndian.PutUint16(pcm[0:], 10000)
	binary.LittleEndian.PutUint16(pcm[2:], uint16(neg))

	half := applyGain(pcm, 50)
	if s := int16(binary.LittleEndian.Uint16(half[0:])); s != 5000 {
		t.Fatalf("scaled = %d, want 5000", s)
	}
	if s := int16(binary.LittleEndian.Uint16(half[2:])); s != -5000 {
		t.Fatalf("scaled = %d, want -5000", s)
	}

	full := applyGain(pcm, 100)
	if &full[0] != &pcm[0] {
		t.Fatal("full volume should not copy")
	}
}
