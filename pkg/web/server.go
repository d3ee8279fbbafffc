// Package web is the debug surface: a small Fiber server exposing the
// pet's state, the diagnostic ring, sound test routes, and a live log
// stream. It is a maintenance hatch, not a product UI.
package web

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/pocketpet/gotchi/pkg/diag"
	"github.com/pocketpet/gotchi/pkg/hub"
	"github.com/pocketpet/gotchi/pkg/tts"
)

// Status is the /status document.
type Status struct {
	Device    string `json:"device"`
	BootID    string `json:"boot_id"`
	UptimeS   int64  `json:"uptime_s"`
	Character string `json:"character"`
	Emotion   string `json:"emotion"`
	HasMess   bool   `json:"has_mess"`
	Cleaning  bool   `json:"cleaning"`
	Recording bool   `json:"recording"`
	Frame     uint16 `json:"frame"`
	Phrase    string `json:"phrase,omitempty"`

	Voice   VoiceStats  `json:"voice"`
	TTS     tts.Attempt `json:"tts"`
	DiagSeq uint32      `json:"diag_seq"`
}

// VoiceStats counts voice pipeline traffic.
type VoiceStats struct {
	Requested uint64 `json:"requested"`
	Played    uint64 `json:"played"`
	Dropped   uint64 `json:"dropped"`
}

// Server wires HTTP routes to the running app via callback fields. All
// callbacks must be set before Start.
type Server struct {
	app    *fiber.App
	port    int
	device  string
	ring    *diag.Ring
	logHub  *hub.Hub
	started time.Time

	// OnStatus snapshots the pet for /status.
	OnStatus func() Status
	// OnFrame renders the current frame as PNG for /frame.
	OnFrame func() ([]byte, error)
	// OnBeep plays a raw test tone for /beep.
	OnBeep func(ctx context.Context, frequency float64, durationMs int) error
	// OnBeep2 plays the beep through the full fallback chain.
	OnBeep2 func(ctx context.Context) error
	// OnVoice speaks the active character's happy phrase.
	OnVoice func(ctx context.Context) error
	// OnSpeak speaks arbitrary text for /miotts?speak=.
	OnSpeak func(ctx context.Context, text string) error
	// OnSetTTSHost pins or clears the gateway override.
	OnSetTTSHost func(spec string)
	// OnProbe scans the candidate gateways.
	OnProbe func(ctx context.Context, quick bool) (string, bool)
	// OnRelay pushes a debug report immediately.
	OnRelay func(ctx context.Context) error
	// OnGesture injects a button gesture by name for /gesture: tap,
	// double, hold, release.
	OnGesture func(gesture string) error
	// OnDownload kicks off the fallback clip prefetch for /download
	// and reports its state.
	OnDownload func() string
}

// NewServer builds the debug server on port.
func NewServer(port int, device string, ring *diag.Ring) *Server {
	s := &Server{
		port:    port,
		device:  device,
		ring:    ring,
		logHub:  hub.New("logs"),
		started: time.Now(),
	}

	app := fiber.New(fiber.Config{
		AppName:               "gotchi debug",
		DisableStartupMessage: true,
	})

	// The device firmware closes every connection and disables caching;
	// debug responses must never be stale.
	app.Use(func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodPost:
		default:
			return c.SendStatus(fiber.StatusMethodNotAllowed)
		}
		c.Set(fiber.HeaderCacheControl, "no-store")
		c.Set(fiber.HeaderConnection, "close")
		return c.Next()
	})

	app.Get("/", s.handleIndex)
	app.Get("/ping", s.handlePing)
	app.Get("/status", s.handleStatus)
	app.Get("/diag", s.handleDiag)
	app.Get("/beep", s.handleBeep)
	app.Get("/beep2", s.handleBeep2)
	app.Get("/voice", s.handleVoice)
	app.Get("/miotts", s.handleMiotts)
	app.Get("/download", s.handleDownload)
	app.Get("/gesture", s.handleGesture)
	app.Get("/relay", s.handleRelay)
	app.Get("/frame", s.handleFrame)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))

	s.app = app
	return s
}

// Start serves until Shutdown. Blocking.
func (s *Server) Start() error {
	go s.logHub.Run()
	return s.app.Listen(fmt.Sprintf(":%d", s.port))
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// LogLine forwards one log line to connected /ws/logs clients. Wired as
// the logger mirror alongside the diagnostic ring.
func (s *Server) LogLine(line string) {
	s.logHub.BroadcastText(line)
}

// App exposes the Fiber app for tests.
func (s *Server) App() *fiber.App { return s.app }
