package audio

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pocketpet/gotchi/pkg/wav"
)

func wavClip(rate int, pcm []byte) []byte {
	var b bytes.Buffer
	if err := wav.Encode(&b, rate, pcm); err != nil {
		panic(err)
	}
	return b.Bytes()
}

func TestStreamPlayerChunking(t *testing.T) {
	t.Run("splits into chunk-size submissions", func(t *testing.T) {
		pcm := make([]byte, 3*ChunkSize)
		for i := range pcm {
			pcm[i] = byte(i)
		}
		out := &Mock{}
		p := NewStreamPlayer(out)
		if err := p.PlayBuffer(context.Background(), wavClip(22050, pcm)); err != nil {
			t.Fatalf("PlayBuffer: %v", err)
		}
		chunks := out.Chunks()
		if len(chunks) != 3 {
			t.Fatalf("submissions = %d, want 3", len(chunks))
		}
		for i, c := range chunks {
			if len(c) != ChunkSize {
				t.Fatalf("chunk %d size = %d, want %d", i, len(c), ChunkSize)
			}
		}
		if !bytes.Equal(out.Bytes(), pcm) {
			t.Fatal("payload mangled across chunks")
		}
		if out.Drains() != 1 {
			t.Fatalf("drains = %d, want 1", out.Drains())
		}
	})

	t.Run("drops torn trailing byte", func(t *testing.T) {
		pcm := make([]byte, 3*ChunkSize+1)
		out := &Mock{}
		p := NewStreamPlayer(out)
		if err := p.PlayBuffer(context.Background(), wavClip(22050, pcm)); err != nil {
			t.Fatalf("PlayBuffer: %v", err)
		}
		if got := len(out.Chunks()); got != 3 {
			t.Fatalf("submissions = %d, want 3", got)
		}
		if got := len(out.Bytes()); got != 3*ChunkSize {
			t.Fatalf("played bytes = %d, want %d", got, 3*ChunkSize)
		}
	})

	t.Run("short final chunk kept", func(t *testing.T) {
		pcm := make([]byte, ChunkSize+100)
		out := &Mock{}
		p := NewStreamPlayer(out)
		if err := p.PlayBuffer(context.Background(), wavClip(22050, pcm)); err != nil {
			t.Fatalf("PlayBuffer: %v", err)
		}
		chunks := out.Chunks()
		if len(chunks) != 2 || len(chunks[1]) != 100 {
			t.Fatalf("chunks = %d (last %d), want 2 with 100-byte tail", len(chunks), len(chunks[len(chunks)-1]))
		}
	})
}

func TestStreamPlayerRateScale(t *testing.T) {
	out := &Mock{}
	p := NewStreamPlayer(out, WithRateScale(1.25))
	pcm := make([]byte, 256)
	if err := p.PlayBuffer(context.Background(), wavClip(16000, pcm)); err != nil {
		t.Fatalf("PlayBuffer: %v", err)
	}
	rate, channels := out.Format()
	if rate != 20000 || channels != 1 {
		t.Fatalf("output format = %dHz %dch, want 20000Hz 1ch", rate, channels)
	}
}

func TestStreamPlayerAbortsOnRejectedChunk(t *testing.T) {
	out := &Mock{
		EnqueueFunc: func(ctx context.Context, pcm []byte) error {
			return ErrQueueTimeout
		},
	}
	p := NewStreamPlayer(out, WithEnqueueWait(10*time.Millisecond))
	err := p.PlayBuffer(context.Background(), wavClip(22050, make([]byte, 4*ChunkSize)))
	if !errors.Is(err, ErrQueueTimeout) {
		t.Fatalf("err = %v, want %v", err, ErrQueueTimeout)
	}
	if out.Drains() != 0 {
		t.Fatal("aborted clip must not drain")
	}
}

func TestStreamPlayerStream(t *testing.T) {
	t.Run("plays from live reader", func(t *testing.T) {
		pcm := make([]byte, 5000)
		clip := wavClip(11025, pcm)
		out := &Mock{}
		p := NewStreamPlayer(out)
		r := wav.NewReader(bytes.NewReader(clip), int64(len(clip)), 0)
		if err := p.Play(context.Background(), r); err != nil {
			t.Fatalf("Play: %v", err)
		}
		if got := len(out.Bytes()); got != len(pcm) {
			t.Fatalf("played %d bytes, want %d", got, len(pcm))
		}
	})

	t.Run("clean close ends unknown-length stream", func(t *testing.T) {
		pcm := make([]byte, 5000)
		clip := wavClip(11025, pcm)
		// Server lied upward about data size on a chunked transfer.
		truncated := clip[:len(clip)-1000]
		out := &Mock{}
		p := NewStreamPlayer(out)
		r := wav.NewReader(bytes.NewReader(truncated), -1, 0)
		if err := p.Play(context.Background(), r); err != nil {
			t.Fatalf("Play: %v", err)
		}
		if got := len(out.Bytes()); got != len(pcm)-1000 {
			t.Fatalf("played %d bytes, want %d", got, len(pcm)-1000)
		}
	})

	t.Run("short fixed-length transfer fails", func(t *testing.T) {
		pcm := make([]byte, 5000)
		clip := wavClip(11025, pcm)
		out := &Mock{}
		p := NewStreamPlayer(out)
		r := wav.NewReader(bytes.NewReader(clip[:len(clip)-1000]), int64(len(clip)), 0)
		err := p.Play(context.Background(), r)
		if !errors.Is(err, wav.ErrShortTransfer) {
			t.Fatalf("err = %v, want %v", err, wav.ErrShortTransfer)
		}
	})
}

func TestPlayRaw(t *testing.T) {
	out := &Mock{}
	p := NewStreamPlayer(out)
	if err := p.PlayRaw(context.Background(), SynthSampleRate, CryWave()); err != nil {
		t.Fatalf("PlayRaw: %v", err)
	}
	rate, _ := out.Format()
	if rate != SynthSampleRate {
		t.Fatalf("rate = %d, want %d", rate, SynthSampleRate)
	}
	if !bytes.Equal(out.Bytes(), CryWave()) {
		t.Fatal("waveform mangled")
	}
}
