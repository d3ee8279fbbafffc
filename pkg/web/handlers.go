package web

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/pocketpet/gotchi/pkg/hub"
)

var indexRoutes = []string{
	"/ping", "/status", "/diag", "/beep", "/beep2", "/voice",
	"/miotts", "/download", "/gesture", "/relay", "/frame", "/ws/logs",
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	var b strings.Builder
	b.WriteString("gotchi debug server\nroutes:\n")
	for _, r := range indexRoutes {
		b.WriteString("  ")
		b.WriteString(r)
		b.WriteByte('\n')
	}
	return c.SendString(b.String())
}

func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.SendString(fmt.Sprintf("pong %d", time.Since(s.started).Milliseconds()))
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	if s.OnStatus == nil {
		return fiber.ErrServiceUnavailable
	}
	return c.JSON(s.OnStatus())
}

func (s *Server) handleDiag(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.SendString(strings.Join(s.ring.Lines(), "\n"))
}

func (s *Server) handleBeep(c *fiber.Ctx) error {
	if s.OnBeep == nil {
		return fiber.ErrServiceUnavailable
	}
	if err := s.OnBeep(c.Context(), 880, 120); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendString("beep")
}

func (s *Server) handleBeep2(c *fiber.Ctx) error {
	if s.OnBeep2 == nil {
		return fiber.ErrServiceUnavailable
	}
	if err := s.OnBeep2(c.Context()); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendString("beep2")
}

func (s *Server) handleVoice(c *fiber.Ctx) error {
	if s.OnVoice == nil {
		return fiber.ErrServiceUnavailable
	}
	if err := s.OnVoice(c.Context()); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendString("ok")
}

// handleMiotts is the gateway control route: pin or clear the TTS host,
// probe the candidate set, or speak arbitrary text.
func (s *Server) handleMiotts(c *fiber.Ctx) error {
	switch {
	case c.Query("clear") != "":
		if s.OnSetTTSHost != nil {
			s.OnSetTTSHost("")
		}
		return c.SendString("cleared")

	case c.Query("host") != "":
		spec := c.Query("host")
		if port := c.Query("port"); port != "" {
			spec = spec + ":" + port
		}
		if s.OnSetTTSHost != nil {
			s.OnSetTTSHost(spec)
		}
		return c.SendString("host=" + spec)

	case c.Query("probe") != "":
		if s.OnProbe == nil {
			return fiber.ErrServiceUnavailable
		}
		quick := c.Query("probe") == "quick"
		report, ok := s.OnProbe(c.Context(), quick)
		c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
		status := "MISS"
		if ok {
			status = "HIT"
		}
		return c.SendString(status + "\n" + report)

	case c.Query("speak") != "":
		if s.OnSpeak == nil {
			return fiber.ErrServiceUnavailable
		}
		if err := s.OnSpeak(c.Context(), c.Query("speak")); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		return c.SendString("spoken")

	default:
		return c.SendString("usage: ?host=H[&port=P] | ?clear=1 | ?probe=1|quick | ?speak=TEXT")
	}
}

// handleDownload kicks off the fallback clip prefetch. The response
// word mirrors the prefetch state so the caller can poll.
func (s *Server) handleDownload(c *fiber.Ctx) error {
	if s.OnDownload == nil {
		return fiber.ErrServiceUnavailable
	}
	return c.SendString("download:" + s.OnDownload())
}

// handleGesture injects a button gesture, standing in for the physical
// button on builds without one.
func (s *Server) handleGesture(c *fiber.Ctx) error {
	if s.OnGesture == nil {
		return fiber.ErrServiceUnavailable
	}
	g := c.Query("g")
	if g == "" {
		return c.SendString("usage: ?g=tap|double|hold|release")
	}
	if err := s.OnGesture(g); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return c.SendString("gesture:" + g)
}

func (s *Server) handleRelay(c *fiber.Ctx) error {
	if s.OnRelay == nil {
		return fiber.ErrServiceUnavailable
	}
	if err := s.OnRelay(c.Context()); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.SendString("pushed")
}

func (s *Server) handleFrame(c *fiber.Ctx) error {
	if s.OnFrame == nil {
		return fiber.ErrServiceUnavailable
	}
	png, err := s.OnFrame()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

// handleLogsWS streams log lines live, replaying the ring first so a
// fresh client sees recent history.
func (s *Server) handleLogsWS(conn *websocket.Conn) {
	for _, line := range s.ring.Lines() {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			conn.Close()
			return
		}
	}
	hub.NewClient(s.logHub, conn).Run()
}
