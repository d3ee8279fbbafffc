// Package voice turns speech requests into sound. Each utterance walks
// a strict acquisition chain: the TTS cascade first, then the static
// WAV fallback URLs, then a synthesized wave, so the pet always makes
// some noise even with no network at all.
package voice

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/pocketpet/gotchi/internal/httpc"
	"github.com/pocketpet/gotchi/internal/log"
	"github.com/pocketpet/gotchi/pkg/audio"
	"github.com/pocketpet/gotchi/pkg/game"
	"github.com/pocketpet/gotchi/pkg/tts"
	"github.com/pocketpet/gotchi/pkg/wav"
)

const (
	// PhraseRateScale pitches synthesized speech up slightly.
	PhraseRateScale = 1.25

	// mirrorGap spaces the primary and mirror URL fetches.
	mirrorGap = 350 * time.Millisecond

	// BootDelay is how long after startup the boot phrase is spoken,
	// giving the network and speaker time to come up.
	BootDelay = 1300 * time.Millisecond

	userAgent = "gotchi/1.0"

	// maxClipBytes caps one prefetched fallback clip.
	maxClipBytes = 2 << 20
)

// TTS is the synthesis cascade the speaker draws from.
type TTS interface {
	Speak(ctx context.Context, text string, sink tts.Sink) error
	SpeakQuick(ctx context.Context, text string, sink tts.Sink) error
}

// Speaker owns the audio output and runs the acquisition chain. Calls
// are expected to be serialized by the voice worker.
type Speaker struct {
	tts        TTS
	phrases    *audio.StreamPlayer
	plain      *audio.StreamPlayer
	urls       [2][2]string
	httpClient *http.Client
	randn      func(int) int
	gap        time.Duration

	// clips caches prefetched fallback WAVs per tone so later chain
	// walks can skip the network. Guarded by mu; Prefetch may run
	// concurrently with the voice worker.
	mu    sync.Mutex
	clips [2][]byte
}

// SpeakerOption configures a Speaker.
type SpeakerOption func(*Speaker)

// WithHTTPClient overrides the client used for the static WAV URLs.
func WithHTTPClient(hc *http.Client) SpeakerOption {
	return func(s *Speaker) { s.httpClient = hc }
}

// WithRand injects the phrase variant picker for tests.
func WithRand(randn func(int) int) SpeakerOption {
	return func(s *Speaker) { s.randn = randn }
}

// WithMirrorGap overrides the spacing between URL fallback fetches.
func WithMirrorGap(d time.Duration) SpeakerOption {
	return func(s *Speaker) { s.gap = d }
}

// NewSpeaker builds a speaker over out. urls holds the static WAV
// fallbacks as [tone][primary|mirror]; tone 0 is the voice note, tone 1
// the beep used for cleaning.
func NewSpeaker(t TTS, out audio.Output, urls [2][2]string, opts ...SpeakerOption) *Speaker {
	s := &Speaker{
		tts:        t,
		phrases:    audio.NewStreamPlayer(out, audio.WithRateScale(PhraseRateScale)),
		plain:      audio.NewStreamPlayer(out),
		urls:       urls,
		httpClient: httpc.NewClient(0),
		randn:      rand.Intn,
		gap:        mirrorGap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Say speaks the phrase for req through the full chain and returns the
// phrase it picked, for the speech bubble. Transcription requests carry
// no phrase and are rejected; the app layer speaks the transcript
// itself via SayText.
func (s *Speaker) Say(ctx context.Context, req game.VoiceRequest) (string, error) {
	kind, ok := phraseKind(req.Kind)
	if !ok {
		return "", fmt.Errorf("no phrase for voice kind %d", req.Kind)
	}
	text := game.Phrase(req.Character, kind, s.randn(game.PhraseVariants))
	return text, s.speak(ctx, text, req.Kind)
}

// SayText speaks arbitrary text, used for STT transcripts and the debug
// surface. Falls back like any other utterance.
func (s *Speaker) SayText(ctx context.Context, text string) error {
	return s.speak(ctx, text, game.VoiceHappy)
}

// BeepChain plays the beep through the fallback chain: the static beep
// URLs first, then the synthesized chime. Used by the debug surface to
// exercise the network playback path.
func (s *Speaker) BeepChain(ctx context.Context) error {
	var errs []error
	if clip := s.clip(1); clip != nil {
		err := s.plain.PlayBuffer(ctx, clip)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("cached: %w", err))
	}
	for i, url := range s.urls[1] {
		if url == "" {
			continue
		}
		if i > 0 && s.gap > 0 {
			select {
			case <-time.After(s.gap):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err := s.playURL(ctx, url)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("TRY%d %s: %w", i+1, url, err))
	}
	if err := s.synth(ctx, game.VoiceClean); err != nil {
		errs = append(errs, err)
		return &ChainError{Text: "beep", Errs: errs}
	}
	return nil
}

// Beep plays a short synthesized tone directly.
func (s *Speaker) Beep(ctx context.Context, frequency float64, durationMs int) error {
	return s.plain.PlayRaw(ctx, audio.SynthSampleRate, audio.Sine(frequency, durationMs))
}

// Prefetch downloads the static fallback clips into memory, primary
// then mirror per tone, so later chain walks play without the network.
// Tones already cached are skipped. Returns a ChainError when any tone
// is still missing afterwards.
func (s *Speaker) Prefetch(ctx context.Context) error {
	var errs []error
	missing := false
	for tone := range s.urls {
		if s.clip(tone) != nil {
			continue
		}
		got := false
		for i, url := range s.urls[tone] {
			if url == "" {
				continue
			}
			if i > 0 && s.gap > 0 {
				select {
				case <-time.After(s.gap):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			raw, err := s.fetchClip(ctx, url)
			if err != nil {
				errs = append(errs, fmt.Errorf("TRY%d %s: %w", i+1, url, err))
				continue
			}
			log.Info("voice: clip downloaded", "tone", tone, "bytes", len(raw))
			s.setClip(tone, raw)
			got = true
			break
		}
		if !got {
			missing = true
		}
	}
	if missing && len(errs) > 0 {
		return &ChainError{Text: "download", Errs: errs}
	}
	return nil
}

func (s *Speaker) clip(tone int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clips[tone]
}

func (s *Speaker) setClip(tone int, raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips[tone] = raw
}

// fetchClip downloads one WAV and validates it before it may be cached.
func (s *Speaker) fetchClip(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxClipBytes))
	if err != nil {
		return nil, err
	}
	if _, _, err := wav.Parse(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Speaker) speak(ctx context.Context, text string, kind game.VoiceKind) error {
	var errs []error

	// Stage 1: the synthesis cascade. The boot phrase walks the full
	// candidate table so the gateway gets found; reactions stay quick.
	sink := func(sctx context.Context, r *wav.Reader) error {
		return s.phrases.Play(sctx, r)
	}
	var err error
	if kind == game.VoiceBoot {
		err = s.tts.Speak(ctx, text, sink)
	} else {
		err = s.tts.SpeakQuick(ctx, text, sink)
	}
	if err == nil {
		return nil
	}
	errs = append(errs, err)
	log.Debug("voice: tts failed", "text", text, "error", err)

	// Stage 2: static WAV fallbacks. A prefetched clip wins outright,
	// otherwise primary then mirror over the network.
	tone := 0
	if kind == game.VoiceClean {
		tone = 1
	}
	if clip := s.clip(tone); clip != nil {
		err := s.plain.PlayBuffer(ctx, clip)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("cached: %w", err))
	}
	for i, url := range s.urls[tone] {
		if url == "" {
			continue
		}
		if i > 0 && s.gap > 0 {
			select {
			case <-time.After(s.gap):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		log.Info(fmt.Sprintf("voice: TRY%d", i+1), "url", url)
		err := s.playURL(ctx, url)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("TRY%d %s: %w", i+1, url, err))
	}

	// Stage 3: always-available synthesized waves.
	err = s.synth(ctx, kind)
	if err == nil {
		return nil
	}
	errs = append(errs, err)

	cerr := &ChainError{Text: text, Errs: errs}
	log.Warn("voice: chain exhausted", "text", text, "error", cerr)
	return cerr
}

func (s *Speaker) playURL(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return s.plain.Play(ctx, wav.NewReader(resp.Body, resp.ContentLength, 0))
}

// synth plays the built-in wave for kind. Cleaning gets a rising chime;
// everything else tries the character-ish waves before the bare beep.
func (s *Speaker) synth(ctx context.Context, kind game.VoiceKind) error {
	play := func(pcm []byte) error {
		return s.plain.PlayRaw(ctx, audio.SynthSampleRate, pcm)
	}

	if kind == game.VoiceClean {
		for _, t := range []struct {
			freq float64
			ms   int
		}{{880, 80}, {1040, 90}, {1240, 90}} {
			if err := play(audio.Sine(t.freq, t.ms)); err != nil {
				return err
			}
		}
		return nil
	}

	var waves [][]byte
	if kind == game.VoiceHappy {
		waves = [][]byte{audio.AltVoiceWave(), audio.CryWave(), audio.Sine(900, 110)}
	} else {
		waves = [][]byte{audio.CryWave(), audio.Sine(900, 110)}
	}
	var last error
	for _, w := range waves {
		if last = play(w); last == nil {
			return nil
		}
	}
	return last
}

func phraseKind(k game.VoiceKind) (game.PhraseKind, bool) {
	switch k {
	case game.VoiceHappy:
		return game.PhraseHappy, true
	case game.VoiceSad:
		return game.PhraseSad, true
	case game.VoiceClean:
		return game.PhraseClean, true
	case game.VoiceBoot:
		return game.PhraseBoot, true
	default:
		return 0, false
	}
}
