// Package audio provides PCM playback for the pet's speaker.
//
// An Output is a sink with a small bounded queue, mirroring the two-slot
// DMA queue of the device speaker: Enqueue blocks when both slots are
// busy, and the caller bounds the wait with a context. The oto backend
// drives the host sound card; Mock records submissions for tests.
package audio

import "context"

// Output is a PCM sink. Samples are signed 16-bit little-endian.
type Output interface {
	// Start prepares the sink for the given format. Calling Start while
	// audio is pending discards the old format once the queue drains.
	Start(sampleRate, channels int) error

	// Enqueue submits one chunk of samples. It blocks while both queue
	// slots are occupied; cancel or time out via ctx.
	Enqueue(ctx context.Context, pcm []byte) error

	// Pending returns the number of chunks accepted but not yet played.
	Pending() int

	// Drain blocks until all accepted chunks have been played.
	Drain(ctx context.Context) error

	// Close stops playback and releases the device.
	Close() error
}

// queueDepth is the number of in-flight chunks an Output accepts before
// Enqueue blocks. Matches the two-slot submission queue of the device
// speaker.
const queueDepth = 2
