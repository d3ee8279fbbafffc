package mic

import (
	"bytes"
	"io"
	"testing"
)

func TestResample(t *testing.T) {
	t.Run("same rate passes through", func(t *testing.T) {
		in := []int16{1, 2, 3, 4}
		out := Resample(in, 16000, 16000)
		if len(out) != 4 {
			t.Fatalf("len = %d", len(out))
		}
	})

	t.Run("downsampling halves the length", func(t *testing.T) {
		in := make([]int16, 320)
		out := Resample(in, 32000, 16000)
		if len(out) != 160 {
			t.Fatalf("len = %d, want 160", len(out))
		}
	})

	t.Run("upsampling interpolates", func(t *testing.T) {
		out := Resample([]int16{0, 100}, 8000, 16000)
		if len(out) != 4 {
			t.Fatalf("len = %d, want 4", len(out))
		}
		if out[1] != 50 {
			t.Fatalf("out[1] = %d, want the midpoint 50", out[1])
		}
	})

	t.Run("empty input", func(t *testing.T) {
		if out := Resample(nil, 48000, 16000); len(out) != 0 {
			t.Fatalf("len = %d", len(out))
		}
	})
}

func TestSampleCodec(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768}
	got := BytesToSamples(SamplesToBytes(in))
	for i := range in {
		if got[i] != in[i] {
			t.Fatalf("sample %d: %d != %d", i, got[i], in[i])
		}
	}
}

func TestSilence(t *testing.T) {
	buf := make([]byte, 32)
	buf[5] = 0xAA
	n, err := Silence{}.Read(buf)
	if n != 32 || err != nil {
		t.Fatalf("Read = %d, %v", n, err)
	}
	if buf[5] != 0 {
		t.Fatal("silence left a nonzero byte")
	}
}

func TestTone(t *testing.T) {
	tone := &Tone{Freq: 440, SampleRate: 16000}
	buf := make([]byte, 640)
	if _, err := tone.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	samples := BytesToSamples(buf)
	var peak int16
	for _, s := range samples {
		if s > peak {
			peak = s
		}
	}
	if peak < 10000 {
		t.Fatalf("peak %d, want near the 12000 amplitude", peak)
	}
}

func TestResampleReader(t *testing.T) {
	// 48kHz source down to 16kHz should deliver one third the bytes.
	src := bytes.NewReader(make([]byte, 960))
	r := NewResampleReader(src, 48000, 16000)

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(out) != 320 {
		t.Fatalf("got %d bytes, want 320", len(out))
	}
}
