package audio

import (
	"context"
	"sync"
)

// Mock implements Output for testing.
// All methods can be customized via function fields; by default every
// chunk is accepted immediately and recorded.
type Mock struct {
	// StartFunc is called when Start is invoked. If nil, the format is
	// recorded and nil returned.
	StartFunc func(sampleRate, channels int) error

	// EnqueueFunc is called when Enqueue is invoked. If nil, the chunk
	// is recorded and nil returned.
	EnqueueFunc func(ctx context.Context, pcm []byte) error

	// DrainFunc is called when Drain is invoked. If nil, returns nil.
	DrainFunc func(ctx context.Context) error

	// CloseFunc is called when Close is invoked. If nil, returns nil.
	CloseFunc func() error

	mu         sync.Mutex
	sampleRate int
	channels   int
	chunks     [][]byte
	drains     int
	closed     bool
}

func (m *Mock) Start(sampleRate, channels int) error {
	m.mu.Lock()
	m.sampleRate = sampleRate
	m.channels = channels
	m.mu.Unlock()
	if m.StartFunc != nil {
		return m.StartFunc(sampleRate, channels)
	}
	return nil
}

func (m *Mock) Enqueue(ctx context.Context, pcm []byte) error {
	if m.EnqueueFunc != nil {
		if err := m.EnqueueFunc(ctx, pcm); err != nil {
			return err
		}
	}
	chunk := make([]byte, len(pcm))
	copy(chunk, pcm)
	m.mu.Lock()
	m.chunks = append(m.chunks, chunk)
	m.mu.Unlock()
	return nil
}

func (m *Mock) Pending() int { return 0 }

func (m *Mock) Drain(ctx context.Context) error {
	m.mu.Lock()
	m.drains++
	m.mu.Unlock()
	if m.DrainFunc != nil {
		return m.DrainFunc(ctx)
	}
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Format returns the rate and channel count from the last Start call.
func (m *Mock) Format() (sampleRate, channels int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sampleRate, m.channels
}

// Chunks returns copies of every chunk accepted so far.
func (m *Mock) Chunks() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.chunks))
	copy(out, m.chunks)
	return out
}

// Bytes returns the total PCM payload accepted so far.
func (m *Mock) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []byte
	for _, c := range m.chunks {
		out = append(out, c...)
	}
	return out
}

// Drains returns how many times Drain was called.
func (m *Mock) Drains() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drains
}

var _ Output = (*Mock)(nil)
