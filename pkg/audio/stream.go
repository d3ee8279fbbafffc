package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/pocketpet/gotchi/internal/log"
	"github.com/pocketpet/gotchi/pkg/wav"
)

const (
	// ChunkSize is the playback submission unit.
	ChunkSize = 2048

	// chunkBuffers is the number of rotating fill buffers. One is being
	// filled while up to queueDepth are in flight.
	chunkBuffers = 3

	// DefaultEnqueueWait bounds the wait for a free queue slot.
	DefaultEnqueueWait = 3 * time.Second

	// DefaultDrainWait bounds the wait for the tail of a clip.
	DefaultDrainWait = 15 * time.Second
)

// StreamPlayer plays WAV audio through an Output in ChunkSize pieces,
// keeping at most queueDepth chunks in flight. A queue slot that does
// not free up within the enqueue wait aborts the whole clip.
type StreamPlayer struct {
	out         Output
	rateScale   float64
	enqueueWait time.Duration
	drainWait   time.Duration
}

// StreamOption configures a StreamPlayer.
type StreamOption func(*StreamPlayer)

// WithRateScale speeds playback up (or down) by adjusting the rate the
// output is started at. 1.25 gives the pet its chipmunk register.
func WithRateScale(scale float64) StreamOption {
	return func(p *StreamPlayer) {
		if scale > 0 {
			p.rateScale = scale
		}
	}
}

// WithEnqueueWait overrides the per-chunk queue slot wait.
func WithEnqueueWait(d time.Duration) StreamOption {
	return func(p *StreamPlayer) { p.enqueueWait = d }
}

// WithDrainWait overrides the end-of-clip drain wait.
func WithDrainWait(d time.Duration) StreamOption {
	return func(p *StreamPlayer) { p.drainWait = d }
}

// NewStreamPlayer creates a player in front of out.
func NewStreamPlayer(out Output, opts ...StreamOption) *StreamPlayer {
	p := &StreamPlayer{
		out:         out,
		rateScale:   1.0,
		enqueueWait: DefaultEnqueueWait,
		drainWait:   DefaultDrainWait,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Play consumes a WAV stream and plays it to completion. The header is
// parsed from the stream first; PCM then moves through the rotating
// buffers without ever being held in memory whole.
func (p *StreamPlayer) Play(ctx context.Context, r *wav.Reader) error {
	info, err := wav.ReadHeader(r)
	if err != nil {
		return fmt.Errorf("stream play: %w", err)
	}
	return p.playChunks(ctx, info, r)
}

// PlayBuffer plays a complete in-memory WAV file.
func (p *StreamPlayer) PlayBuffer(ctx context.Context, raw []byte) error {
	info, data, err := wav.Parse(raw)
	if err != nil {
		return fmt.Errorf("buffer play: %w", err)
	}
	return p.playChunks(ctx, info, wav.NewReader(bytes.NewReader(data), int64(len(data)), 0))
}

// PlayRaw plays headerless mono 16-bit PCM at the given rate. Used for
// the synthesized cry and fallback voice waveforms.
func (p *StreamPlayer) PlayRaw(ctx context.Context, sampleRate int, pcm []byte) error {
	info := wav.StreamInfo{
		Channels:      1,
		SampleRate:    sampleRate,
		BitsPerSample: 16,
		BlockSize:     2,
		DataBytes:     uint32(len(pcm)),
	}
	return p.playChunks(ctx, info, wav.NewReader(bytes.NewReader(pcm), int64(len(pcm)), 0))
}

func (p *StreamPlayer) playChunks(ctx context.Context, info wav.StreamInfo, r *wav.Reader) error {
	rate := int(float64(info.SampleRate) * p.rateScale)
	if err := p.out.Start(rate, int(info.Channels)); err != nil {
		return fmt.Errorf("stream play: %w", err)
	}

	var bufs [chunkBuffers][ChunkSize]byte
	remaining := int64(info.DataBytes)
	slot := 0
	var played int64

	for remaining > 0 {
		want := int64(ChunkSize)
		if remaining < want {
			want = remaining
		}
		buf := bufs[slot][:want]
		slot = (slot + 1) % chunkBuffers

		n, err := r.ReadFull(buf)
		remaining -= int64(n)
		// Never submit a torn sample frame; a trailing odd byte is
		// dropped, not played.
		aligned := n - n%int(info.BlockSize)
		if aligned > 0 {
			if eerr := p.enqueue(ctx, buf[:aligned]); eerr != nil {
				return eerr
			}
			played += int64(aligned)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Unknown-length transfer closed cleanly; the declared
				// size was only a hint.
				break
			}
			return fmt.Errorf("stream play after %d bytes: %w", played, err)
		}
	}

	dctx, cancel := context.WithTimeout(ctx, p.drainWait)
	defer cancel()
	if err := p.out.Drain(dctx); err != nil {
		return fmt.Errorf("stream play: %w", err)
	}
	log.Debug("audio: clip finished", "bytes", played, "rate", rate)
	return nil
}

func (p *StreamPlayer) enqueue(ctx context.Context, chunk []byte) error {
	ectx, cancel := context.WithTimeout(ctx, p.enqueueWait)
	defer cancel()
	if err := p.out.Enqueue(ectx, chunk); err != nil {
		return fmt.Errorf("stream play: %w", err)
	}
	return nil
}
