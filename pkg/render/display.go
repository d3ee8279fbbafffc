package render

// Display pushes a completed frame to an output device. The firmware
// target is a 128x128 LCD; off-device builds use Nop and read frames
// through the debug server instead.
type Display interface {
	Push(fb *Framebuffer) error
}

// Nop discards frames.
type Nop struct{}

func (Nop) Push(*Framebuffer) error { return nil }

// Mock records pushed frames for tests.
type Mock struct {
	PushFunc func(fb *Framebuffer) error

	frames int
}

func (m *Mock) Push(fb *Framebuffer) error {
	m.frames++
	if m.PushFunc != nil {
		return m.PushFunc(fb)
	}
	return nil
}

// Frames reports how many frames were pushed.
func (m *Mock) Frames() int { return m.frames }
