package wav

import "errors"

// Sentinel errors for malformed containers. These are fatal to the
// current playback attempt and never retried.
var (
	// ErrNotWAV is returned when the RIFF/WAVE magic is missing.
	ErrNotWAV = errors.New("wav: not a RIFF/WAVE container")

	// ErrNotPCM is returned for any format tag other than linear PCM (1).
	ErrNotPCM = errors.New("wav: format tag is not PCM")

	// ErrBadChannels is returned for zero or more than two channels.
	ErrBadChannels = errors.New("wav: unsupported channel count")

	// ErrBadSampleRate is returned for a zero sample rate.
	ErrBadSampleRate = errors.New("wav: zero sample rate")

	// ErrBadBitDepth is returned for bit depths other than 8 or 16.
	ErrBadBitDepth = errors.New("wav: unsupported bits per sample")

	// ErrBadBlockAlign is returned when block align disagrees with
	// channels * bytes-per-sample.
	ErrBadBlockAlign = errors.New("wav: inconsistent block align")

	// ErrBadFormat is returned for a malformed or short "fmt " chunk.
	ErrBadFormat = errors.New("wav: malformed fmt chunk")

	// ErrDataBeforeFmt is returned when "data" precedes "fmt ".
	ErrDataBeforeFmt = errors.New("wav: data chunk before fmt chunk")

	// ErrNoData is returned when no usable data chunk is found.
	ErrNoData = errors.New("wav: missing or empty data chunk")

	// ErrTruncated is returned when a chunk declares bytes past the end
	// of the buffer.
	ErrTruncated = errors.New("wav: truncated container")

	// ErrTooManyChunks is returned when the chunk scan bound is hit.
	ErrTooManyChunks = errors.New("wav: too many chunks")

	// ErrIdleTimeout is returned when a live stream goes silent for
	// longer than the configured idle window.
	ErrIdleTimeout = errors.New("wav: stream idle timeout")

	// ErrShortTransfer is returned when a fixed-length transfer closes
	// before delivering its declared byte count.
	ErrShortTransfer = errors.New("wav: short transfer")
)
