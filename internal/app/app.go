// Package app assembles the pet: the game machine, the renderer, the
// voice pipeline, the transcription round trip, and the debug surface,
// running as three cooperating loops over bounded queues.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pocketpet/gotchi/internal/config"
	"github.com/pocketpet/gotchi/internal/log"
	"github.com/pocketpet/gotchi/pkg/audio"
	"github.com/pocketpet/gotchi/pkg/diag"
	"github.com/pocketpet/gotchi/pkg/game"
	"github.com/pocketpet/gotchi/pkg/mic"
	"github.com/pocketpet/gotchi/pkg/render"
	"github.com/pocketpet/gotchi/pkg/stt"
	"github.com/pocketpet/gotchi/pkg/tts"
	"github.com/pocketpet/gotchi/pkg/voice"
	"github.com/pocketpet/gotchi/pkg/web"
)

const (
	// eventQueueDepth bounds pending input gestures.
	eventQueueDepth = 8

	// voiceQueueDepth bounds pending speech. A full queue drops the
	// request; the pet going quiet beats the game loop stalling.
	voiceQueueDepth = 4

	// transcriptTime keeps a transcription on screen long enough to
	// read.
	transcriptTime = 4 * time.Second

	// sttErrorTone signals a failed transcription.
	sttErrorFreq = 440
	sttErrorMs   = 100

	// downloadTimeout bounds one background clip prefetch.
	downloadTimeout = 30 * time.Second
)

// voiceJob is one unit of work for the voice loop. Text overrides the
// phrase table for transcripts and debug speech.
type voiceJob struct {
	req  game.VoiceRequest
	text string
}

// App owns every component and their goroutines.
type App struct {
	cfg  config.Config
	ring *diag.Ring

	out        audio.Output
	mic        io.Reader
	machine    *game.Machine
	renderer   *render.Renderer
	display    render.Display
	speaker    *voice.Speaker
	ttsClient  *tts.Client
	sttClient  *stt.Client
	recorder   *stt.Recorder
	discoverer *tts.Discoverer
	relay      *diag.Relay
	server     *web.Server

	events chan game.Event
	voiceq chan voiceJob

	// bootID distinguishes this run in relayed debug reports.
	bootID string

	started                    time.Time
	requested, played, dropped atomic.Uint64

	// recording gates the speaker: while the microphone is capturing,
	// speech jobs are dropped and any utterance in flight is cut, so
	// the mic and the speaker never run together.
	recording   atomic.Bool
	downloading atomic.Bool

	speakMu     sync.Mutex
	speakCancel context.CancelFunc
}

// Option configures an App.
type Option func(*App)

// WithOutput overrides the audio output, primarily for tests.
func WithOutput(out audio.Output) Option {
	return func(a *App) { a.out = out }
}

// WithMic sets the microphone PCM source (16kHz mono little-endian).
func WithMic(mic io.Reader) Option {
	return func(a *App) { a.mic = mic }
}

// WithDisplay sets the frame sink.
func WithDisplay(d render.Display) Option {
	return func(a *App) { a.display = d }
}

// New wires the application from cfg.
func New(cfg config.Config, opts ...Option) *App {
	a := &App{
		cfg:     cfg,
		ring:    diag.NewRing(),
		mic:     mic.Silence{},
		display: render.Nop{},
		events:  make(chan game.Event, eventQueueDepth),
		voiceq:  make(chan voiceJob, voiceQueueDepth),
		bootID:  uuid.NewString(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.out == nil {
		a.out = audio.NewOto(cfg.Volume)
	}

	ttsOpts := []tts.Option{tts.WithHost(cfg.TTSHost)}
	if cfg.TTSHost == "" {
		a.discoverer = tts.NewDiscoverer(0)
		ttsOpts = append(ttsOpts, tts.WithDiscoverer(a.discoverer))
	}
	a.ttsClient = tts.NewClient(ttsOpts...)
	a.sttClient = stt.NewClient(stt.WithPort(cfg.STTPort))
	a.speaker = voice.NewSpeaker(a.ttsClient, a.out, cfg.VoiceURLs)
	a.recorder = stt.NewRecorder(a.mic, 0)
	a.renderer = render.NewRenderer()

	a.machine = game.NewMachine(game.WithHooks(game.Hooks{
		Voice:       a.enqueueVoice,
		RecordStart: a.startRecording,
	}))

	a.server = web.NewServer(cfg.DebugPort, cfg.Hostname, a.ring)
	a.server.OnStatus = a.status
	a.server.OnFrame = a.renderer.PNG
	a.server.OnBeep = a.speaker.Beep
	a.server.OnBeep2 = a.speaker.BeepChain
	a.server.OnVoice = func(ctx context.Context) error {
		a.enqueueVoice(game.VoiceRequest{Character: a.machine.CharacterIndex(), Kind: game.VoiceHappy})
		return nil
	}
	a.server.OnSpeak = func(ctx context.Context, text string) error {
		return a.enqueue(voiceJob{text: text})
	}
	a.server.OnSetTTSHost = a.ttsClient.SetHost
	a.server.OnProbe = a.ttsClient.Probe
	a.server.OnGesture = a.injectGesture
	a.server.OnDownload = a.startDownload

	a.relay = diag.NewRelay(cfg.RelayURL, cfg.Hostname, a.ring)
	a.relay.Status = a.statusLines
	a.server.OnRelay = a.relay.Push

	log.SetMirror(func(line string) {
		a.ring.Append(line)
		a.server.LogLine(line)
	})
	return a
}

// Inject feeds one input gesture; full queue drops it.
func (a *App) Inject(e game.Event) {
	select {
	case a.events <- e:
	default:
		log.Warn("app: event queue full, dropping", "event", e)
	}
}

// injectGesture backs the /gesture debug route, standing in for the
// device button.
func (a *App) injectGesture(gesture string) error {
	e, err := parseGesture(gesture)
	if err != nil {
		return err
	}
	a.Inject(e)
	return nil
}

func parseGesture(gesture string) (game.Event, error) {
	switch gesture {
	case "tap":
		return game.Tap, nil
	case "double":
		return game.DoubleTap, nil
	case "hold":
		return game.Hold, nil
	case "release":
		return game.HoldRelease, nil
	}
	return 0, fmt.Errorf("unknown gesture %q", gesture)
}

// startDownload backs /download: one background prefetch of the static
// fallback clips at a time.
func (a *App) startDownload() string {
	if a.cfg.VoiceURLs == ([2][2]string{}) {
		return "disabled"
	}
	if !a.downloading.CompareAndSwap(false, true) {
		return "running"
	}
	go func() {
		defer a.downloading.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), downloadTimeout)
		defer cancel()
		if err := a.speaker.Prefetch(ctx); err != nil {
			log.Warn("voice: clip prefetch failed", "error", err)
		}
	}()
	return "started"
}

// startRecording hands the audio path to the microphone: any utterance
// in flight is cut and the voice worker stays silent until the capture
// is sent off.
func (a *App) startRecording() {
	a.recording.Store(true)
	a.cancelSpeech()
	a.recorder.Start()
}

func (a *App) setSpeechCancel(cancel context.CancelFunc) {
	a.speakMu.Lock()
	a.speakCancel = cancel
	a.speakMu.Unlock()
}

func (a *App) cancelSpeech() {
	a.speakMu.Lock()
	if a.speakCancel != nil {
		a.speakCancel()
	}
	a.speakMu.Unlock()
}

// Run starts every loop and serves the debug surface until ctx ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.discoverer != nil {
		go a.discoverer.Run(ctx)
	}
	if a.cfg.RelayURL != "" {
		go a.relay.Run(ctx)
	}
	go a.gameLoop(ctx)
	go a.voiceLoop(ctx)

	a.renderer.ShowOverlay(localAddr(a.cfg.DebugPort), 0)
	boot := time.AfterFunc(voice.BootDelay, func() {
		a.enqueueVoice(game.VoiceRequest{Character: a.machine.CharacterIndex(), Kind: game.VoiceBoot})
	})
	defer boot.Stop()

	errc := make(chan error, 1)
	go func() { errc <- a.server.Start() }()
	select {
	case <-ctx.Done():
		if err := a.server.Shutdown(); err != nil {
			log.Warn("app: server shutdown", "error", err)
		}
		<-errc
		a.out.Close()
		return ctx.Err()
	case err := <-errc:
		a.out.Close()
		return err
	}
}

// gameLoop is the frame heartbeat: inputs, timers, capture, drawing.
func (a *App) gameLoop(ctx context.Context) {
	tick := time.NewTicker(game.FramePeriod)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}

		for {
			select {
			case e := <-a.events:
				a.machine.HandleEvent(e)
				continue
			default:
			}
			break
		}

		a.machine.Step()
		st := a.machine.Snapshot()

		if st.Recording {
			a.captureStep(&st)
		}

		a.renderer.Draw(st)
		if err := a.display.Push(a.renderer.Framebuffer()); err != nil {
			log.Debug("app: display push failed", "error", err)
		}
	}
}

// captureStep pulls one microphone chunk. A full buffer ends the
// recording and sends what was captured rather than waiting for the
// button release.
func (a *App) captureStep(st *game.State) {
	switch err := a.recorder.Capture(); {
	case errors.Is(err, stt.ErrBufferFull):
		log.Info("stt: capture buffer full, sending")
		a.machine.HandleEvent(game.HoldRelease)
		*st = a.machine.Snapshot()
	case err != nil:
		log.Debug("app: capture failed", "error", err)
	}
}

// voiceLoop owns the speaker; all sound goes through here so streams
// never interleave.
func (a *App) voiceLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-a.voiceq:
			a.serve(ctx, job)
		}
	}
}

func (a *App) serve(ctx context.Context, job voiceJob) {
	if a.recording.Load() && job.req.Kind != game.VoiceTranscribe {
		a.dropped.Add(1)
		log.Debug("voice: recording, dropping", "kind", job.req.Kind)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	a.setSpeechCancel(cancel)
	defer func() {
		a.setSpeechCancel(nil)
		cancel()
	}()
	// Re-check after publishing the cancel handle; a hold landing in
	// between would otherwise speak over the microphone.
	if a.recording.Load() && job.req.Kind != game.VoiceTranscribe {
		a.dropped.Add(1)
		return
	}

	switch {
	case job.text != "":
		if err := a.speaker.SayText(ctx, job.text); err != nil {
			log.Warn("voice: speak failed", "error", err)
			return
		}
		a.renderer.ShowPhrase(job.text, 0)
		a.played.Add(1)

	case job.req.Kind == game.VoiceTranscribe:
		a.transcribe(ctx)

	default:
		phrase, err := a.speaker.Say(ctx, job.req)
		if err != nil {
			log.Warn("voice: say failed", "kind", job.req.Kind, "error", err)
			return
		}
		a.renderer.ShowPhrase(phrase, 0)
		a.played.Add(1)
	}
}

// transcribe runs the push-to-talk round trip: captured PCM to the
// transcriber, transcript to the bubble, then spoken back.
func (a *App) transcribe(ctx context.Context) {
	pcm := a.recorder.Stop()
	a.recording.Store(false)

	// The transcriber lives next to whatever gateway last synthesized
	// speech.
	if att := a.ttsClient.LastAttempt(); att.Status == 200 && att.Host != "" {
		a.sttClient.SetHost(att.Host)
	}

	text, err := a.sttClient.Transcribe(ctx, pcm, a.machine.Character().Name)
	if err != nil {
		log.Warn("stt: transcribe failed", "error", err)
		if berr := a.speaker.Beep(ctx, sttErrorFreq, sttErrorMs); berr != nil {
			log.Debug("stt: error beep failed", "error", berr)
		}
		return
	}

	log.Info("stt: transcript", "text", text)
	a.renderer.ShowPhrase(text, transcriptTime)
	if err := a.speaker.SayText(ctx, text); err != nil {
		log.Warn("stt: speak back failed", "error", err)
		return
	}
	a.played.Add(1)
}

func (a *App) enqueueVoice(req game.VoiceRequest) {
	if err := a.enqueue(voiceJob{req: req}); err != nil {
		log.Warn("voice: queue full, dropping", "kind", req.Kind)
		if req.Kind == game.VoiceTranscribe {
			// The capture has nowhere to go; release the audio path
			// so the speaker is not muted forever.
			a.recorder.Stop()
			a.recording.Store(false)
		}
	}
}

func (a *App) enqueue(job voiceJob) error {
	a.requested.Add(1)
	select {
	case a.voiceq <- job:
		return nil
	default:
		a.dropped.Add(1)
		return fmt.Errorf("voice queue full")
	}
}

func (a *App) status() web.Status {
	st := a.machine.Snapshot()
	return web.Status{
		Device:    a.cfg.Hostname,
		BootID:    a.bootID,
		UptimeS:   int64(time.Since(a.started).Seconds()),
		Character: a.machine.Character().Name,
		Emotion:   st.Emotion.String(),
		HasMess:   st.HasMess,
		Cleaning:  st.Cleaning,
		Recording: st.Recording,
		Frame:     st.Frame,
		Phrase:    a.renderer.Phrase(),
		Voice: web.VoiceStats{
			Requested: a.requested.Load(),
			Played:    a.played.Load(),
			Dropped:   a.dropped.Load(),
		},
		TTS:     a.ttsClient.LastAttempt(),
		DiagSeq: a.ring.Seq(),
	}
}

func (a *App) statusLines() []string {
	st := a.machine.Snapshot()
	return []string{
		"boot=" + a.bootID,
		"character=" + a.machine.Character().Name,
		"emotion=" + st.Emotion.String(),
		fmt.Sprintf("uptime_s=%d", int64(time.Since(a.started).Seconds())),
		fmt.Sprintf("voice_requested=%d voice_played=%d voice_dropped=%d",
			a.requested.Load(), a.played.Load(), a.dropped.Load()),
	}
}

// localAddr guesses the address the debug server is reachable on.
func localAddr(port int) string {
	conn, err := net.Dial("udp", "8.8.8.8:53")
	if err != nil {
		return fmt.Sprintf(":%d", port)
	}
	defer conn.Close()
	host, _, _ := net.SplitHostPort(conn.LocalAddr().String())
	return fmt.Sprintf("%s:%d", host, port)
}
