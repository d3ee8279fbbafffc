package audio

import "errors"

// Sentinel errors for playback failures.
var (
	// ErrNotStarted is returned when enqueueing before Start.
	ErrNotStarted = errors.New("audio: output not started")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("audio: output closed")

	// ErrQueueTimeout is returned when a queue slot did not free up
	// within the caller's deadline.
	ErrQueueTimeout = errors.New("audio: queue slot wait timed out")

	// ErrDrainTimeout is returned when pending audio did not finish
	// within the caller's deadline.
	ErrDrainTimeout = errors.New("audio: drain timed out")

	// ErrDeviceUnavailable is returned when the sound device could not
	// be initialized.
	ErrDeviceUnavailable = errors.New("audio: device unavailable")
)
