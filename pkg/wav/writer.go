package wav

import (
	"encoding/binary"
	"io"
)

// HeaderSize is the length of the canonical PCM header emitted by
// WriteHeader.
const HeaderSize = 44

// WriteHeader emits a canonical mono 16-bit PCM WAV header for dataBytes
// of samples at sampleRate.
func WriteHeader(w io.Writer, sampleRate int, dataBytes uint32) error {
	const (
		channels   = 1
		bits       = 16
		blockAlign = channels * bits / 8
	)

	var hdr [HeaderSize]byte
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 36+dataBytes)
	copy(hdr[8:12], "WAVE")

	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16)
	binary.LittleEndian.PutUint16(hdr[20:22], 1)
	binary.LittleEndian.PutUint16(hdr[22:24], channels)
	binary.LittleEndian.PutUint32(hdr[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(hdr[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(hdr[32:34], blockAlign)
	binary.LittleEndian.PutUint16(hdr[34:36], bits)

	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataBytes)

	_, err := w.Write(hdr[:])
	return err
}

// Encode writes a complete mono 16-bit WAV file: header followed by the
// raw little-endian samples.
func Encode(w io.Writer, sampleRate int, pcm []byte) error {
	if err := WriteHeader(w, sampleRate, uint32(len(pcm))); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}
