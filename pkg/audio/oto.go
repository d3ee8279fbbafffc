package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/pocketpet/gotchi/internal/log"
)

// Oto plays PCM through the host sound card via the oto library.
//
// A single feeder goroutine moves accepted chunks from the bounded queue
// into a pipe that a persistent oto player reads from, so Enqueue blocks
// only on queue pressure, never on the device.
type Oto struct {
	mu         sync.Mutex
	otoCtx     *oto.Context
	player     *oto.Player
	pipeWriter *io.PipeWriter
	sampleRate int
	channels   int
	volume     int
	started    bool
	closed     bool

	queue   chan []byte
	pending atomic.Int32
	done    chan struct{}
}

// NewOto creates an uninitialized sound card output. volume is 0-100.
func NewOto(volume int) *Oto {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return &Oto{volume: volume}
}

func (o *Oto) Start(sampleRate, channels int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}

	if o.otoCtx != nil {
		// oto allows one context per process. A stream at a different
		// rate plays slightly off-pitch rather than failing.
		if sampleRate != o.sampleRate || channels != o.channels {
			log.Warn("audio: format change not supported, keeping device format",
				"device_rate", o.sampleRate, "stream_rate", sampleRate)
		}
		return nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	<-ready

	pr, pw := io.Pipe()
	o.otoCtx = ctx
	o.player = ctx.NewPlayer(pr)
	o.pipeWriter = pw
	o.sampleRate = sampleRate
	o.channels = channels
	o.started = true
	o.queue = make(chan []byte, queueDepth)
	o.done = make(chan struct{})
	o.player.Play()
	go o.feed()

	log.Info("audio: device ready", "rate", sampleRate, "channels", channels)
	return nil
}

func (o *Oto) feed() {
	defer close(o.done)
	for chunk := range o.queue {
		scaled := applyGain(chunk, o.volume)
		if _, err := o.pipeWriter.Write(scaled); err != nil {
			log.Error("audio: device write failed", "error", err)
		}
		o.pending.Add(-1)
	}
	o.pipeWriter.Close()
}

func (o *Oto) Enqueue(ctx context.Context, pcm []byte) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if !o.started {
		o.mu.Unlock()
		return ErrNotStarted
	}
	queue := o.queue
	o.mu.Unlock()

	chunk := make([]byte, len(pcm))
	copy(chunk, pcm)

	select {
	case queue <- chunk:
		o.pending.Add(1)
		return nil
	case <-ctx.Done():
		return ErrQueueTimeout
	}
}

func (o *Oto) Pending() int { return int(o.pending.Load()) }

func (o *Oto) Drain(ctx context.Context) error {
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		o.mu.Lock()
		player := o.player
		o.mu.Unlock()
		if o.pending.Load() == 0 && (player == nil || player.BufferedSize() == 0) {
			return nil
		}
		select {
		case <-tick.C:
		case <-ctx.Done():
			return ErrDrainTimeout
		}
	}
}

func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	if o.queue != nil {
		close(o.queue)
		<-o.done
	}
	if o.player != nil {
		o.player.Close()
	}
	if o.otoCtx != nil {
		o.otoCtx.Suspend()
	}
	return nil
}

// applyGain scales 16-bit little-endian samples by volume/100.
func applyGain(pcm []byte, volume int) []byte {
	if volume >= 100 {
		return pcm
	}
	out := make([]byte, len(pcm))
	for i := 0; i+1 < len(pcm); i += 2 {
		s := int16(binary.LittleEndian.Uint16(pcm[i:]))
		s = int16(int32(s) * int32(volume) / 100)
		binary.LittleEndian.PutUint16(out[i:], uint16(s))
	}
	return out
}
