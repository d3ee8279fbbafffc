package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/pocketpet/gotchi/pkg/game"
)

func TestFramebufferBounds(t *testing.T) {
	fb := NewFramebuffer()
	fb.Set(-1, 0, 0xFFFF)
	fb.Set(0, -1, 0xFFFF)
	fb.Set(Width, 0, 0xFFFF)
	fb.Set(0, Height, 0xFFFF)
	if got := fb.At(0, 0); got != 0 {
		t.Fatalf("clipped writes leaked into the buffer: %#04x", got)
	}
	fb.Set(5, 7, 0x1234)
	if got := fb.At(5, 7); got != 0x1234 {
		t.Fatalf("At(5,7) = %#04x, want 0x1234", got)
	}
}

func TestRGBAConversion(t *testing.T) {
	cases := []struct {
		in      uint16
		r, g, b uint8
	}{
		{0x0000, 0, 0, 0},
		{0xFFFF, 255, 255, 255},
		{0xF800, 255, 0, 0},
		{0x07E0, 0, 255, 0},
		{0x001F, 0, 0, 255},
	}
	for _, c := range cases {
		got := RGBA(c.in)
		if got.R != c.r || got.G != c.g || got.B != c.b {
			t.Errorf("RGBA(%#04x) = %v, want (%d,%d,%d)", c.in, got, c.r, c.g, c.b)
		}
	}
}

func TestDrawScene(t *testing.T) {
	r := NewRenderer()
	st := game.State{CharacterIndex: 0, Frame: 3}
	r.Draw(st)
	fb := r.Framebuffer()

	// The wall fills the upper half, the floor the lower.
	if got := fb.At(64, 40); got == colorFloor {
		t.Fatalf("wall pixel painted as floor: %#04x", got)
	}
	if got := fb.At(2, 120); got != colorFloor && got != colorFloorLine {
		t.Fatalf("floor pixel = %#04x, want floor tones", got)
	}

	// Character body and head cover the center. Frame 3 bounces by 0.
	ch := game.Characters[0]
	if got := fb.At(64, 68); got != ch.Body {
		t.Fatalf("body pixel = %#04x, want %#04x", got, ch.Body)
	}
	if got := fb.At(64, 36); got != ch.Head {
		t.Fatalf("head pixel = %#04x, want %#04x", got, ch.Head)
	}
}

func TestDrawMessPositionAndLift(t *testing.T) {
	seed := int64(9)
	x := 20 + int((seed*7+13)%88)
	y := 90 + int((seed*11+37)%28)

	r := NewRenderer()
	r.Draw(game.State{HasMess: true, MessSeed: seed})
	if got := r.Framebuffer().At(x, y); got != colorMess {
		t.Fatalf("mess pixel at (%d,%d) = %#04x, want %#04x", x, y, got, colorMess)
	}

	// Half way through cleaning the pile has lifted off its spot.
	r.Draw(game.State{Cleaning: true, MessSeed: seed, CleaningFrac: 0.5})
	if got := r.Framebuffer().At(x, y-18); got != colorMess {
		t.Fatalf("lifted mess pixel = %#04x, want %#04x", got, colorMess)
	}
}

func TestRecordingIndicator(t *testing.T) {
	r := NewRenderer()
	r.Draw(game.State{Recording: true})
	if got := r.Framebuffer().At(120, 8); got != colorRed {
		t.Fatalf("recording dot = %#04x, want red", got)
	}
	r.Draw(game.State{})
	if got := r.Framebuffer().At(120, 8); got == colorRed {
		t.Fatal("recording dot shown while idle")
	}
}

func TestPhraseLifetime(t *testing.T) {
	now := time.Unix(100, 0)
	r := NewRenderer(WithClock(func() time.Time { return now }))

	r.ShowPhrase("うれしいな", 2*time.Second)
	if got := r.Phrase(); got != "うれしいな" {
		t.Fatalf("Phrase() = %q", got)
	}
	r.Draw(game.State{})
	if got := r.Framebuffer().At(64, 112); got != colorBubbleBG {
		t.Fatalf("bubble pixel = %#04x, want %#04x", got, colorBubbleBG)
	}

	now = now.Add(3 * time.Second)
	if got := r.Phrase(); got != "" {
		t.Fatalf("phrase survived expiry: %q", got)
	}
	r.Draw(game.State{})
	if got := r.Framebuffer().At(64, 112); got == colorBubbleBG {
		t.Fatal("bubble drawn after phrase expired")
	}
}

func TestEncodePNG(t *testing.T) {
	r := NewRenderer()
	r.Draw(game.State{})
	var buf bytes.Buffer
	if err := r.Framebuffer().EncodePNG(&buf); err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	if buf.Len() == 0 || !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Fatal("output is not a PNG")
	}
}
