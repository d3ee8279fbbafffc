package tts

import "errors"

// Sentinel errors for the speech cascade.
var (
	// ErrEmptyText is returned when there is nothing to say.
	ErrEmptyText = errors.New("tts: empty text")

	// ErrAllCandidatesFailed is returned when no gateway combination
	// produced playable audio.
	ErrAllCandidatesFailed = errors.New("tts: all candidates failed")

	// ErrUnsupportedAudio is returned for a non-WAV audio response.
	ErrUnsupportedAudio = errors.New("tts: unsupported audio type")

	// ErrBadAudioRef is returned when a JSON response carries no usable
	// audio location.
	ErrBadAudioRef = errors.New("tts: no usable audio reference")
)
