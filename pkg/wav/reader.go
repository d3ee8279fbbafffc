package wav

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"time"
)

// DefaultIdleTimeout is the window after which a silent stream is
// abandoned.
const DefaultIdleTimeout = 15 * time.Second

// Reader consumes a live byte stream with idle-timeout accounting.
//
// A transfer with a known Content-Length is "fixed": closing early is a
// transport error. A chunked/unknown-length transfer succeeds when the
// source closes cleanly.
type Reader struct {
	src       io.Reader
	idle      time.Duration
	fixed     bool
	remaining int64
	eof       bool
}

// deadliner is satisfied by net.Conn. When the underlying source supports
// read deadlines the idle window is enforced per read; otherwise the HTTP
// client's overall timeout is the only budget.
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

// NewReader wraps src. contentLength > 0 marks a fixed-length transfer;
// pass -1 for chunked/unknown length. idle <= 0 selects
// DefaultIdleTimeout.
func NewReader(src io.Reader, contentLength int64, idle time.Duration) *Reader {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Reader{
		src:       src,
		idle:      idle,
		fixed:     contentLength > 0,
		remaining: contentLength,
	}
}

// Fixed reports whether the transfer length was known up front.
func (r *Reader) Fixed() bool { return r.fixed }

// Remaining returns the undelivered byte count of a fixed transfer.
func (r *Reader) Remaining() int64 { return r.remaining }

// EOF reports whether the source has closed.
func (r *Reader) EOF() bool { return r.eof }

// ReadFull fills p completely or returns an error. io.EOF is returned
// only for a clean close on an unknown-length transfer with p partially
// or fully unfilled; the number of bytes actually read is returned in
// that case so trailing data can still be used.
func (r *Reader) ReadFull(p []byte) (int, error) {
	read := 0
	for read < len(p) {
		if d, ok := r.src.(deadliner); ok {
			_ = d.SetReadDeadline(time.Now().Add(r.idle))
		}
		n, err := r.src.Read(p[read:])
		read += n
		if r.fixed {
			r.remaining -= int64(n)
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return read, ErrIdleTimeout
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				r.eof = true
				if read == len(p) {
					return read, nil
				}
				if r.fixed && r.remaining > 0 {
					return read, ErrShortTransfer
				}
				return read, io.EOF
			}
			return read, err
		}
	}
	return read, nil
}

// Skip discards n bytes from the stream.
func (r *Reader) Skip(n int64) error {
	var scratch [2048]byte
	for n > 0 {
		chunk := int64(len(scratch))
		if n < chunk {
			chunk = n
		}
		got, err := r.ReadFull(scratch[:chunk])
		if err != nil {
			return err
		}
		n -= int64(got)
	}
	return nil
}

// ReadHeader consumes and validates a WAV container header from a live
// stream, leaving the reader positioned at the first PCM byte.
//
// Like Parse, sub-chunks may appear in any order except that "data" must
// follow "fmt ". The declared data size is truncated to the remaining
// byte count of a fixed transfer; for unknown-length transfers it is kept
// as a hint and playback runs until the socket closes.
func ReadHeader(r *Reader) (StreamInfo, error) {
	var info StreamInfo

	var riff [headerLen]byte
	if _, err := r.ReadFull(riff[:]); err != nil {
		return info, err
	}
	if !IsHeader(riff[:]) {
		return info, ErrNotWAV
	}

	gotFmt := false
	for i := 0; i < maxChunks; i++ {
		var hdr [8]byte
		if _, err := r.ReadFull(hdr[:]); err != nil {
			return info, err
		}
		id := string(hdr[0:4])
		size := int64(binary.LittleEndian.Uint32(hdr[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return info, ErrBadFormat
			}
			var fmtBody [16]byte
			if _, err := r.ReadFull(fmtBody[:]); err != nil {
				return info, err
			}
			if err := parseFmt(fmtBody[:], &info); err != nil {
				return info, err
			}
			if size > 16 {
				if err := r.Skip(size - 16); err != nil {
					return info, err
				}
			}
			if size%2 == 1 {
				if err := r.Skip(1); err != nil {
					return info, err
				}
			}
			gotFmt = true

		case "data":
			if !gotFmt {
				return info, ErrDataBeforeFmt
			}
			if size == 0 {
				return info, ErrNoData
			}
			if r.fixed && size > r.remaining {
				size = r.remaining
			}
			if size <= 0 {
				return info, ErrNoData
			}
			info.DataBytes = uint32(size)
			return info, nil

		default:
			if err := r.Skip(size); err != nil {
				return info, err
			}
			if size%2 == 1 {
				if err := r.Skip(1); err != nil {
					return info, err
				}
			}
		}
	}
	return info, ErrTooManyChunks
}
