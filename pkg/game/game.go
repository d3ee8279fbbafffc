// Package game holds the pet's state machine: emotions, mess and
// cleaning, character switching, and push-to-talk recording. The
// machine owns no goroutines; the owning loop feeds it events and calls
// Step once per frame.
package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/pocketpet/gotchi/internal/log"
)

// Timing constants for the pet's behavior.
const (
	// FramePeriod is one animation frame (about 18 FPS).
	FramePeriod = 55 * time.Millisecond

	// EmotionTime is how long a tapped emotion shows.
	EmotionTime = 1100 * time.Millisecond

	// CleaningTime is how long the cleaning animation runs.
	CleaningTime = 900 * time.Millisecond

	// MessInterval is how often the pet rolls for a new mess.
	MessInterval = 60 * time.Second

	// messChance is the percent chance per roll.
	messChance = 20

	// BlinkInterval and BlinkHoldFrames drive the eye blink: the last
	// BlinkHoldFrames frames of every BlinkInterval-frame cycle are
	// drawn with closed eyes.
	BlinkInterval   = 420
	BlinkHoldFrames = 4
)

// Emotion is the pet's displayed mood.
type Emotion uint8

const (
	Neutral Emotion = iota
	Happy
	Sad
)

func (e Emotion) String() string {
	switch e {
	case Happy:
		return "happy"
	case Sad:
		return "sad"
	default:
		return "neutral"
	}
}

// Event is one button gesture.
type Event uint8

const (
	Tap Event = iota
	Hold
	DoubleTap
	HoldRelease
)

// VoiceKind selects what the voice pipeline should say.
type VoiceKind uint8

const (
	VoiceHappy VoiceKind = iota
	VoiceSad
	VoiceClean
	VoiceBoot
	VoiceTranscribe
)

// VoiceRequest asks the voice pipeline to speak for a character.
type VoiceRequest struct {
	Character int
	Kind      VoiceKind
}

// State is a snapshot of the pet for rendering and the debug surface.
type State struct {
	CharacterIndex int
	Emotion        Emotion
	HasMess        bool
	Cleaning       bool
	Recording      bool
	Frame          uint16

	// MessSeed pins the mess's drawn position while it exists.
	MessSeed int64

	// CleaningFrac is the cleaning animation progress in [0,1].
	CleaningFrac float64
}

// Hooks are the machine's outward effects. All must be non-blocking;
// the voice hook typically drops the request if its queue is full.
type Hooks struct {
	// Voice asks for speech. May be nil.
	Voice func(VoiceRequest)

	// RecordStart begins microphone capture. May be nil.
	RecordStart func()

	// RecordStop ends capture; the VoiceTranscribe request follows
	// separately through Voice. May be nil.
	RecordStop func()
}

// Machine is the pet state machine. Safe for concurrent use; the event
// loop and the debug server both poke it.
type Machine struct {
	mu    sync.Mutex
	now   func() time.Time
	randn func(int) int
	hooks Hooks

	characterIndex int
	emotion        Emotion
	emotionUntil   time.Time
	hasMess        bool
	cleaning       bool
	cleaningUntil  time.Time
	lastMessRoll   time.Time
	messSeed       int64
	recording      bool
	frame          uint16
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) MachineOption {
	return func(m *Machine) { m.now = now }
}

// WithRand injects the mess-roll random source for tests.
func WithRand(randn func(int) int) MachineOption {
	return func(m *Machine) { m.randn = randn }
}

// WithHooks sets the machine's outward effects.
func WithHooks(h Hooks) MachineOption {
	return func(m *Machine) { m.hooks = h }
}

// NewMachine creates a pet in the neutral state.
func NewMachine(opts ...MachineOption) *Machine {
	m := &Machine{
		now:   time.Now,
		randn: rand.Intn,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lastMessRoll = m.now()
	return m
}

// HandleEvent applies one button gesture.
func (m *Machine) HandleEvent(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()

	switch e {
	case DoubleTap:
		m.characterIndex = (m.characterIndex + 1) % len(Characters)
		m.emotion = Neutral
		m.emotionUntil = time.Time{}
		m.cleaning = false
		log.Info("game: character switched", "character", Characters[m.characterIndex].Name)
		m.voice(VoiceRequest{Character: m.characterIndex, Kind: VoiceBoot})
		return

	case Hold:
		if m.hooks.RecordStart != nil {
			m.hooks.RecordStart()
		}
		m.recording = true
		// Happy face while listening, held until release.
		m.emotion = Happy
		m.emotionUntil = time.Time{}
		return

	case HoldRelease:
		if !m.recording {
			return
		}
		m.recording = false
		m.emotion = Neutral
		m.emotionUntil = time.Time{}
		if m.hooks.RecordStop != nil {
			m.hooks.RecordStop()
		}
		m.voice(VoiceRequest{Character: m.characterIndex, Kind: VoiceTranscribe})
		return
	}

	// Tap.
	if m.hasMess {
		m.hasMess = false
		m.cleaning = true
		m.cleaningUntil = now.Add(CleaningTime)
		m.emotion = Happy
		m.emotionUntil = now.Add(CleaningTime)
		m.lastMessRoll = now
		m.voice(VoiceRequest{Character: m.characterIndex, Kind: VoiceClean})
		return
	}
	if m.emotion == Happy {
		m.emotion = Sad
	} else {
		m.emotion = Happy
	}
	m.emotionUntil = now.Add(EmotionTime)
	kind := VoiceHappy
	if m.emotion == Sad {
		kind = VoiceSad
	}
	m.voice(VoiceRequest{Character: m.characterIndex, Kind: kind})
}

// Step advances timers and the frame counter; call once per frame.
func (m *Machine) Step() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()

	if m.cleaning && now.After(m.cleaningUntil) {
		m.cleaning = false
	}
	if !m.emotionUntil.IsZero() && now.After(m.emotionUntil) {
		m.emotion = Neutral
		m.emotionUntil = time.Time{}
	}
	if !m.hasMess && !m.cleaning && now.Sub(m.lastMessRoll) > MessInterval {
		if m.randn(100) < messChance {
			m.hasMess = true
			m.messSeed = now.UnixNano()
			log.Debug("game: mess appeared")
		}
		m.lastMessRoll = now
	}
	m.frame++
}

// Snapshot returns the current state for rendering.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := State{
		CharacterIndex: m.characterIndex,
		Emotion:        m.emotion,
		HasMess:        m.hasMess,
		Cleaning:       m.cleaning,
		Recording:      m.recording,
		Frame:          m.frame,
		MessSeed:       m.messSeed,
	}
	if m.cleaning {
		remaining := m.cleaningUntil.Sub(m.now())
		if remaining < 0 {
			remaining = 0
		}
		st.CleaningFrac = 1 - float64(remaining)/float64(CleaningTime)
	}
	return st
}

// Character returns the active character.
func (m *Machine) Character() Character {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Characters[m.characterIndex]
}

// CharacterIndex returns the active character index.
func (m *Machine) CharacterIndex() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.characterIndex
}

// RandomPhrase picks a random variant for the active character.
func (m *Machine) RandomPhrase(kind PhraseKind) string {
	m.mu.Lock()
	idx := m.characterIndex
	m.mu.Unlock()
	return Phrase(idx, kind, m.randn(PhraseVariants))
}

// Blink reports whether eyes are drawn closed on the given frame.
func Blink(frame uint16) bool {
	return int(frame)%BlinkInterval >= BlinkInterval-BlinkHoldFrames
}

func (m *Machine) voice(req VoiceRequest) {
	if m.hooks.Voice != nil {
		m.hooks.Voice(req)
	}
}
