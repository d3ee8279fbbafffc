// Package stt records short utterances and sends them to the speech
// gateway's transcription endpoint.
package stt

import (
	"errors"
	"io"
	"sync"
)

const (
	// SampleRate is the capture rate expected by the transcriber.
	SampleRate = 16000

	// ChunkBytes is one capture step's worth of PCM (100ms, mono
	// 16-bit).
	ChunkBytes = 1600 * 2

	// DefaultMaxSeconds bounds a recording; release-to-send and
	// buffer-full both end it.
	DefaultMaxSeconds = 5

	// MinBytes is the shortest capture worth transcribing (100ms).
	MinBytes = ChunkBytes
)

// Sentinel errors for recording.
var (
	// ErrNotRecording is returned by Capture before Start.
	ErrNotRecording = errors.New("stt: not recording")

	// ErrBufferFull signals the bounded recording buffer is full; the
	// caller should stop and send what was captured.
	ErrBufferFull = errors.New("stt: recording buffer full")

	// ErrTooShort is returned when a capture is under MinBytes.
	ErrTooShort = errors.New("stt: recording too short")
)

// Recorder accumulates mono 16-bit PCM from a microphone source into a
// bounded buffer. The source is any Reader producing raw samples at
// SampleRate; tests inject canned audio. Safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	src       io.Reader
	buf       []byte
	max       int
	recording bool
}

// NewRecorder creates a recorder over src holding at most maxSeconds of
// audio. maxSeconds <= 0 selects DefaultMaxSeconds.
func NewRecorder(src io.Reader, maxSeconds int) *Recorder {
	if maxSeconds <= 0 {
		maxSeconds = DefaultMaxSeconds
	}
	return &Recorder{
		src: src,
		max: maxSeconds * SampleRate * 2,
	}
}

// Start begins a new recording, discarding any previous capture.
func (r *Recorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = r.buf[:0]
	r.recording = true
}

// Capture pulls one chunk from the source into the buffer. Returns
// ErrBufferFull when the bounded buffer cannot take another chunk; the
// recording stays intact and should be stopped and sent.
func (r *Recorder) Capture() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return ErrNotRecording
	}
	if len(r.buf)+ChunkBytes > r.max {
		return ErrBufferFull
	}
	chunk := make([]byte, ChunkBytes)
	n, err := r.src.Read(chunk)
	if n > 0 {
		n -= n % 2
		r.buf = append(r.buf, chunk[:n]...)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Stop ends the recording and returns the captured PCM. The returned
// slice is owned by the caller.
func (r *Recorder) Stop() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false
	out := make([]byte, len(r.buf))
	copy(out, r.buf)
	r.buf = r.buf[:0]
	return out
}

// Recording reports whether a capture is in progress.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// Len returns the captured byte count so far.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf)
}
