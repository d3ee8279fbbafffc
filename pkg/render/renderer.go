package render

import (
	"bytes"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/pocketpet/gotchi/pkg/game"
)

// Scene palette (RGB565).
const (
	colorBlack     = 0x0000
	colorWhite     = 0xFFFF
	colorRed       = 0xF800
	colorWall      = 0xF71C
	colorWallDot   = 0xEF1B
	colorFloor     = 0xCC60
	colorFloorLine = 0xBB40
	colorTrim      = 0xA520
	colorTrimLight = 0xB560
	colorSky       = 0x9E1F
	colorMess      = 0xA145
	colorEarInner  = 0xFDB8
	colorBubbleBG  = 0x2104
	colorBubbleFr  = 0x4A69
)

// floorY is where the wall meets the floor.
const floorY = 85

// PhraseTime is how long a spoken phrase stays on screen.
const PhraseTime = 3 * time.Second

// OverlayTime is how long the network overlay stays up after boot.
const OverlayTime = 10 * time.Second

// Renderer draws game state into a framebuffer. The phrase overlay is
// set by the voice pipeline and fades out on its own timer.
type Renderer struct {
	fb     *Framebuffer
	now    func() time.Time
	drawMu sync.Mutex

	mu           sync.Mutex
	phrase       string
	phraseUntil  time.Time
	overlay      string
	overlayUntil time.Time
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) RendererOption {
	return func(r *Renderer) { r.now = now }
}

// NewRenderer creates a renderer with its own framebuffer.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{fb: NewFramebuffer(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Framebuffer exposes the last drawn frame.
func (r *Renderer) Framebuffer() *Framebuffer { return r.fb }

// ShowPhrase overlays text in the speech bubble for d (PhraseTime when
// d <= 0).
func (r *Renderer) ShowPhrase(text string, d time.Duration) {
	if d <= 0 {
		d = PhraseTime
	}
	r.mu.Lock()
	r.phrase = text
	r.phraseUntil = r.now().Add(d)
	r.mu.Unlock()
}

// Phrase returns the currently displayed phrase, if any.
func (r *Renderer) Phrase() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phrase == "" || r.now().After(r.phraseUntil) {
		return ""
	}
	return r.phrase
}

// ShowOverlay displays a status line, typically the device address
// right after boot (OverlayTime when d <= 0).
func (r *Renderer) ShowOverlay(text string, d time.Duration) {
	if d <= 0 {
		d = OverlayTime
	}
	r.mu.Lock()
	r.overlay = text
	r.overlayUntil = r.now().Add(d)
	r.mu.Unlock()
}

// Overlay returns the active status line, if any.
func (r *Renderer) Overlay() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overlay == "" || r.now().After(r.overlayUntil) {
		return ""
	}
	return r.overlay
}

// PNG encodes the last drawn frame, for the debug server.
func (r *Renderer) PNG() ([]byte, error) {
	r.drawMu.Lock()
	defer r.drawMu.Unlock()
	var buf bytes.Buffer
	if err := r.fb.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Draw renders one frame of st.
func (r *Renderer) Draw(st game.State) {
	r.drawMu.Lock()
	defer r.drawMu.Unlock()
	fb := r.fb
	fb.Fill(colorBlack)
	r.drawBackground()

	style := game.Characters[st.CharacterIndex%len(game.Characters)]
	happy := st.Emotion == game.Happy
	sad := st.Emotion == game.Sad

	// Idle bounce: a 14-frame triangle wave.
	phase := int(st.Frame % 14)
	bounce := phase - 3
	if phase >= 7 {
		bounce = 16 - phase - 3
	}

	r.drawCharacter(st.CharacterIndex, 64, 50, style, happy, sad, bounce, st.Frame)

	if st.HasMess || st.Cleaning {
		seed := st.MessSeed
		x := 20 + int((seed*7+13)%88)
		y := 90 + int((seed*11+37)%28)
		r.drawMess(x, y, st)
	}

	if st.Recording {
		fb.FillCircle(120, 8, 5, colorRed)
	}

	if phrase := r.Phrase(); phrase != "" {
		r.drawBubble(phrase)
	}

	if r.Overlay() != "" {
		fb.FillRect(0, 0, Width, 6, colorBubbleBG)
	}
}

func (r *Renderer) drawBackground() {
	fb := r.fb
	// Cream wallpaper with a dot pattern.
	for y := 0; y < floorY; y++ {
		fb.HLine(0, y, Width, colorWall)
	}
	for dy := 8; dy < floorY; dy += 12 {
		for dx := 6; dx < Width; dx += 12 {
			fb.Set(dx, dy, colorWallDot)
		}
	}

	// Wood floor.
	fb.FillRect(0, floorY, Width, Height-floorY, colorFloor)
	fb.HLine(0, floorY, Width, colorTrim)
	fb.HLine(0, floorY+1, Width, colorTrimLight)
	for y := floorY + 7; y < Height; y += 8 {
		fb.HLine(0, y, Width, colorFloorLine)
	}

	// Round window with a cloud, top left.
	fb.FillRoundRect(8, 8, 24, 24, 4, colorSky)
	fb.DrawRoundRect(8, 8, 24, 24, 4, colorTrim)
	fb.HLine(8, 20, 24, colorTrim)
	fb.VLine(20, 8, 24, colorTrim)
	fb.FillCircle(16, 14, 3, colorWhite)
	fb.FillCircle(20, 13, 2, colorWhite)

	// Wall clock, top right.
	fb.FillCircle(112, 18, 9, colorWhite)
	fb.DrawCircle(112, 18, 9, colorTrim)
	fb.Line(112, 18, 112, 12, colorBlack)
	fb.Line(112, 18, 116, 18, colorBlack)
	fb.FillCircle(112, 18, 1, colorRed)
}

func (r *Renderer) drawCharacter(idx, x, y int, style game.Character, happy, sad bool, bounce int, frame uint16) {
	fb := r.fb
	baseY := y + bounce

	// もこ's rabbit ears go behind the body.
	if idx%len(game.Characters) == 2 {
		fb.FillRoundRect(x-10, baseY-42, 7, 22, 3, style.Accent)
		fb.FillRoundRect(x+3, baseY-42, 7, 22, 3, style.Accent)
		fb.FillRoundRect(x-8, baseY-38, 3, 14, 2, colorEarInner)
		fb.FillRoundRect(x+5, baseY-38, 3, 14, 2, colorEarInner)
	}

	// Round body with the head color on top.
	fb.FillCircle(x, baseY, 20, style.Body)
	fb.FillCircle(x, baseY-14, 16, style.Head)

	// Accent cheeks.
	fb.FillCircle(x-10, baseY-10, 3, style.Accent)
	fb.FillCircle(x+10, baseY-10, 3, style.Accent)

	// Eyes, closed on blink frames.
	if game.Blink(frame) {
		fb.HLine(x-8, baseY-16, 5, style.Eye)
		fb.HLine(x+4, baseY-16, 5, style.Eye)
	} else {
		fb.FillCircle(x-6, baseY-16, 2, style.Eye)
		fb.FillCircle(x+6, baseY-16, 2, style.Eye)
	}

	// Mouth by emotion.
	switch {
	case happy:
		fb.HLine(x-4, baseY-8, 9, style.Eye)
		fb.Set(x-5, baseY-9, style.Eye)
		fb.Set(x+5, baseY-9, style.Eye)
	case sad:
		fb.HLine(x-4, baseY-8, 9, style.Eye)
		fb.Set(x-5, baseY-7, style.Eye)
		fb.Set(x+5, baseY-7, style.Eye)
	default:
		fb.HLine(x-2, baseY-8, 5, style.Eye)
	}
}

// drawMess draws the three stacked circles, lifting away during the
// cleaning animation.
func (r *Renderer) drawMess(x, y int, st game.State) {
	lift := 0
	if st.Cleaning {
		lift = int(st.CleaningFrac * 36)
	}
	yy := y - lift
	fb := r.fb
	fb.FillCircle(x, yy, 4, colorMess)
	fb.FillCircle(x-1, yy-5, 3, colorMess)
	fb.FillCircle(x, yy-9, 2, colorMess)
}

// drawBubble draws the speech bubble frame sized to the phrase. Glyphs
// are not rasterized; the debug surface exposes the text itself.
func (r *Renderer) drawBubble(phrase string) {
	fb := r.fb
	tw := utf8.RuneCountInString(phrase) * 10
	if tw > 120 {
		tw = 120
	}
	bx := 64 - tw/2 - 4
	bw := tw + 8
	fb.FillRoundRect(bx, 108, bw, 16, 3, colorBubbleBG)
	fb.DrawRoundRect(bx, 108, bw, 16, 3, colorBubbleFr)
}
