package voice

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketpet/gotchi/pkg/audio"
	"github.com/pocketpet/gotchi/pkg/game"
	"github.com/pocketpet/gotchi/pkg/tts"
	"github.com/pocketpet/gotchi/pkg/wav"
)

type ttsMock struct {
	SpeakFunc      func(ctx context.Context, text string, sink tts.Sink) error
	SpeakQuickFunc func(ctx context.Context, text string, sink tts.Sink) error

	spoken []string
	quick  []string
}

func (m *ttsMock) Speak(ctx context.Context, text string, sink tts.Sink) error {
	m.spoken = append(m.spoken, text)
	if m.SpeakFunc != nil {
		return m.SpeakFunc(ctx, text, sink)
	}
	return errors.New("unreachable")
}

func (m *ttsMock) SpeakQuick(ctx context.Context, text string, sink tts.Sink) error {
	m.quick = append(m.quick, text)
	if m.SpeakQuickFunc != nil {
		return m.SpeakQuickFunc(ctx, text, sink)
	}
	return errors.New("unreachable")
}

func wavClip(rate int, pcm []byte) []byte {
	var b bytes.Buffer
	if err := wav.Encode(&b, rate, pcm); err != nil {
		panic(err)
	}
	return b.Bytes()
}

func TestSayUsesPhraseTable(t *testing.T) {
	mock := &ttsMock{
		SpeakQuickFunc: func(ctx context.Context, text string, sink tts.Sink) error {
			return nil
		},
	}
	out := &audio.Mock{}
	s := NewSpeaker(mock, out, [2][2]string{}, WithRand(func(int) int { return 2 }))

	phrase, err := s.Say(context.Background(), game.VoiceRequest{Character: 1, Kind: game.VoiceHappy})
	if err != nil {
		t.Fatalf("Say: %v", err)
	}
	want := game.Phrase(1, game.PhraseHappy, 2)
	if phrase != want {
		t.Fatalf("Say returned %q, want %q", phrase, want)
	}
	if len(mock.quick) != 1 || mock.quick[0] != want {
		t.Fatalf("spoke %v, want [%q]", mock.quick, want)
	}
	if len(mock.spoken) != 0 {
		t.Fatal("reaction speech must use the quick cascade")
	}
}

func TestBootUsesFullCascade(t *testing.T) {
	mock := &ttsMock{
		SpeakFunc: func(ctx context.Context, text string, sink tts.Sink) error {
			return nil
		},
	}
	s := NewSpeaker(mock, &audio.Mock{}, [2][2]string{}, WithRand(func(int) int { return 0 }))

	if _, err := s.Say(context.Background(), game.VoiceRequest{Kind: game.VoiceBoot}); err != nil {
		t.Fatalf("Say: %v", err)
	}
	if len(mock.spoken) != 1 || len(mock.quick) != 0 {
		t.Fatalf("boot phrase took the wrong cascade: full=%d quick=%d", len(mock.spoken), len(mock.quick))
	}
}

func TestURLFallback(t *testing.T) {
	t.Run("primary serves the clip", func(t *testing.T) {
		clip := wavClip(16000, bytes.Repeat([]byte{1, 0}, 400))
		hits := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			w.Header().Set("Content-Type", "audio/wav")
			w.Write(clip)
		}))
		defer srv.Close()

		out := &audio.Mock{}
		urls := [2][2]string{{srv.URL + "/a.wav", srv.URL + "/b.wav"}}
		s := NewSpeaker(&ttsMock{}, out, urls, WithRand(func(int) int { return 0 }), WithMirrorGap(0))

		if _, err := s.Say(context.Background(), game.VoiceRequest{Kind: game.VoiceHappy}); err != nil {
			t.Fatalf("Say: %v", err)
		}
		if hits != 1 {
			t.Fatalf("fetched %d URLs, want 1", hits)
		}
		if len(out.Bytes()) != 800 {
			t.Fatalf("played %d bytes, want 800", len(out.Bytes()))
		}
	})

	t.Run("mirror covers a failing primary", func(t *testing.T) {
		clip := wavClip(16000, bytes.Repeat([]byte{1, 0}, 100))
		var paths []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			if r.URL.Path == "/primary.wav" {
				http.Error(w, "gone", http.StatusNotFound)
				return
			}
			w.Write(clip)
		}))
		defer srv.Close()

		urls := [2][2]string{{srv.URL + "/primary.wav", srv.URL + "/mirror.wav"}}
		s := NewSpeaker(&ttsMock{}, &audio.Mock{}, urls, WithRand(func(int) int { return 0 }), WithMirrorGap(0))

		if _, err := s.Say(context.Background(), game.VoiceRequest{Kind: game.VoiceSad}); err != nil {
			t.Fatalf("Say: %v", err)
		}
		if len(paths) != 2 || paths[1] != "/mirror.wav" {
			t.Fatalf("fetch order %v", paths)
		}
	})

	t.Run("clean uses the beep tone slot", func(t *testing.T) {
		var path string
		clip := wavClip(16000, bytes.Repeat([]byte{1, 0}, 100))
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			w.Write(clip)
		}))
		defer srv.Close()

		urls := [2][2]string{
			{srv.URL + "/voice.wav", ""},
			{srv.URL + "/beep.wav", ""},
		}
		s := NewSpeaker(&ttsMock{}, &audio.Mock{}, urls, WithRand(func(int) int { return 0 }), WithMirrorGap(0))

		if _, err := s.Say(context.Background(), game.VoiceRequest{Kind: game.VoiceClean}); err != nil {
			t.Fatalf("Say: %v", err)
		}
		if path != "/beep.wav" {
			t.Fatalf("fetched %q, want /beep.wav", path)
		}
	})
}

func TestPrefetch(t *testing.T) {
	pcm := make([]byte, 256)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	clip := wavClip(11025, pcm)

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write(clip)
	}))
	defer srv.Close()

	mock := &ttsMock{} // cascade always fails
	out := &audio.Mock{}
	urls := [2][2]string{
		{srv.URL + "/voice.wav", ""},
		{srv.URL + "/beep.wav", ""},
	}
	s := NewSpeaker(mock, out, urls, WithMirrorGap(0), WithRand(func(int) int { return 0 }))

	if err := s.Prefetch(context.Background()); err != nil {
		t.Fatalf("Prefetch: %v", err)
	}
	if hits != 2 {
		t.Fatalf("fetched %d clips, want 2", hits)
	}

	// Cached clips play without touching the network again.
	srv.Close()
	if _, err := s.Say(context.Background(), game.VoiceRequest{Kind: game.VoiceHappy}); err != nil {
		t.Fatalf("Say after prefetch: %v", err)
	}
	if hits != 2 {
		t.Fatalf("playback refetched, hits = %d", hits)
	}
	if !bytes.Equal(out.Bytes(), pcm) {
		t.Fatal("cached clip not played back")
	}
}

func TestPrefetchRejectsNonWAV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not audio</html>"))
	}))
	defer srv.Close()

	urls := [2][2]string{{srv.URL + "/voice.wav", ""}, {}}
	s := NewSpeaker(&ttsMock{}, &audio.Mock{}, urls, WithMirrorGap(0))

	var cerr *ChainError
	if err := s.Prefetch(context.Background()); !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want chain error", err)
	}
	if s.clip(0) != nil {
		t.Fatal("junk response was cached")
	}
}

func TestSynthFallback(t *testing.T) {
	t.Run("happy plays the alt voice wave", func(t *testing.T) {
		out := &audio.Mock{}
		s := NewSpeaker(&ttsMock{}, out, [2][2]string{}, WithRand(func(int) int { return 0 }))

		if _, err := s.Say(context.Background(), game.VoiceRequest{Kind: game.VoiceHappy}); err != nil {
			t.Fatalf("Say: %v", err)
		}
		if got, want := len(out.Bytes()), len(audio.AltVoiceWave()); got != want {
			t.Fatalf("played %d bytes, want %d", got, want)
		}
		if rate, _ := out.Format(); rate != audio.SynthSampleRate {
			t.Fatalf("rate %d, want %d", rate, audio.SynthSampleRate)
		}
	})

	t.Run("sad plays the cry wave", func(t *testing.T) {
		out := &audio.Mock{}
		s := NewSpeaker(&ttsMock{}, out, [2][2]string{}, WithRand(func(int) int { return 0 }))

		if _, err := s.Say(context.Background(), game.VoiceRequest{Kind: game.VoiceSad}); err != nil {
			t.Fatalf("Say: %v", err)
		}
		if got, want := len(out.Bytes()), len(audio.CryWave()); got != want {
			t.Fatalf("played %d bytes, want %d", got, want)
		}
	})

	t.Run("clean plays the three tone chime", func(t *testing.T) {
		out := &audio.Mock{}
		s := NewSpeaker(&ttsMock{}, out, [2][2]string{}, WithRand(func(int) int { return 0 }))

		if _, err := s.Say(context.Background(), game.VoiceRequest{Kind: game.VoiceClean}); err != nil {
			t.Fatalf("Say: %v", err)
		}
		want := len(audio.Sine(880, 80)) + len(audio.Sine(1040, 90)) + len(audio.Sine(1240, 90))
		if got := len(out.Bytes()); got != want {
			t.Fatalf("played %d bytes, want %d", got, want)
		}
	})
}

func TestChainExhaustion(t *testing.T) {
	out := &audio.Mock{
		EnqueueFunc: func(ctx context.Context, pcm []byte) error {
			return audio.ErrQueueTimeout
		},
	}
	s := NewSpeaker(&ttsMock{}, out, [2][2]string{}, WithRand(func(int) int { return 0 }))

	_, err := s.Say(context.Background(), game.VoiceRequest{Kind: game.VoiceSad})
	var cerr *ChainError
	if !errors.As(err, &cerr) {
		t.Fatalf("error %v, want ChainError", err)
	}
	if len(cerr.Errs) < 2 {
		t.Fatalf("ChainError carries %d errors, want the tts and synth failures", len(cerr.Errs))
	}
}

func TestBeep(t *testing.T) {
	out := &audio.Mock{}
	s := NewSpeaker(&ttsMock{}, out, [2][2]string{})

	if err := s.Beep(context.Background(), 880, 120); err != nil {
		t.Fatalf("Beep: %v", err)
	}
	if got, want := len(out.Bytes()), len(audio.Sine(880, 120)); got != want {
		t.Fatalf("played %d bytes, want %d", got, want)
	}
}

func TestSayRejectsTranscribeKind(t *testing.T) {
	s := NewSpeaker(&ttsMock{}, &audio.Mock{}, [2][2]string{})
	if _, err := s.Say(context.Background(), game.VoiceRequest{Kind: game.VoiceTranscribe}); err == nil {
		t.Fatal("expected an error for the transcribe kind")
	}
}
