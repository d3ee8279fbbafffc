// Package wav parses and writes RIFF/WAVE containers carrying linear PCM.
//
// Only 8 and 16-bit PCM with one or two channels is supported. Two parsing
// modes exist: Parse for complete in-memory buffers, and ReadHeader over a
// Reader for live network streams where bytes trickle in and the total
// length may be unknown.
package wav

import (
	"encoding/binary"
	"fmt"
)

// StreamInfo describes one PCM stream extracted from a WAV container.
type StreamInfo struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
	// BlockSize is the byte width of one multi-channel frame and always
	// equals Channels * BitsPerSample/8.
	BlockSize int
	// DataBytes is the PCM payload length. In buffer mode an oversized
	// declaration is truncated to the bytes actually present.
	DataBytes uint32
}

// maxChunks bounds the chunk scan so an adversarial stream of zero-size
// chunks cannot spin the parser forever.
const maxChunks = 64

const headerLen = 12 // "RIFF" + size + "WAVE"

// IsHeader reports whether b starts with a RIFF/WAVE container header.
func IsHeader(b []byte) bool {
	return len(b) >= headerLen && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WAVE"
}

// Parse validates a complete WAV buffer and locates its PCM payload.
// The returned slice aliases buf; no copy is made.
//
// Sub-chunks may appear in any order except that "data" must follow
// "fmt ". Unknown chunks are skipped by their declared size including the
// even-byte pad. A "data" declaration larger than the remaining buffer is
// truncated to the bytes available, tolerating truncated captures.
func Parse(buf []byte) (StreamInfo, []byte, error) {
	var info StreamInfo
	if !IsHeader(buf) {
		return info, nil, ErrNotWAV
	}

	pos := headerLen
	gotFmt := false
	for i := 0; i < maxChunks; i++ {
		if pos+8 > len(buf) {
			return info, nil, ErrNoData
		}
		id := string(buf[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(buf[pos+4 : pos+8]))
		pos += 8

		switch id {
		case "fmt ":
			if size < 16 {
				return info, nil, ErrBadFormat
			}
			if pos+size > len(buf) {
				return info, nil, fmt.Errorf("%w: chunk %q declares %d bytes past end", ErrTruncated, id, size)
			}
			if err := parseFmt(buf[pos:pos+16], &info); err != nil {
				return info, nil, err
			}
			gotFmt = true

		case "data":
			if !gotFmt {
				return info, nil, ErrDataBeforeFmt
			}
			if size == 0 {
				return info, nil, ErrNoData
			}
			avail := len(buf) - pos
			if size > avail {
				size = avail
			}
			if size == 0 {
				return info, nil, ErrNoData
			}
			info.DataBytes = uint32(size)
			return info, buf[pos : pos+size], nil

		default:
			if pos+size > len(buf) {
				return info, nil, fmt.Errorf("%w: chunk %q declares %d bytes past end", ErrTruncated, id, size)
			}
		}

		pos += size
		if size%2 == 1 {
			pos++ // chunk payloads are even-padded
		}
	}
	return info, nil, ErrTooManyChunks
}

// parseFmt validates the first 16 bytes of a "fmt " chunk body.
func parseFmt(b []byte, info *StreamInfo) error {
	format := binary.LittleEndian.Uint16(b[0:2])
	channels := int(binary.LittleEndian.Uint16(b[2:4]))
	sampleRate := int(binary.LittleEndian.Uint32(b[4:8]))
	blockAlign := int(binary.LittleEndian.Uint16(b[12:14]))
	bits := int(binary.LittleEndian.Uint16(b[14:16]))

	if format != 1 {
		return ErrNotPCM
	}
	if channels == 0 || channels > 2 {
		return fmt.Errorf("%w: %d", ErrBadChannels, channels)
	}
	if sampleRate == 0 {
		return ErrBadSampleRate
	}
	if bits != 8 && bits != 16 {
		return fmt.Errorf("%w: %d", ErrBadBitDepth, bits)
	}
	if blockAlign == 0 || blockAlign != channels*(bits/8) {
		return fmt.Errorf("%w: %d", ErrBadBlockAlign, blockAlign)
	}

	info.Channels = channels
	info.SampleRate = sampleRate
	info.BitsPerSample = bits
	info.BlockSize = blockAlign
	return nil
}
