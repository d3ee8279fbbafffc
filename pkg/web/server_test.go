package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/pocketpet/gotchi/pkg/diag"
)

func newTestServer() *Server {
	ring := diag.NewRing()
	ring.Append("boot ok")
	return NewServer(0, "gotchi-test", ring)
}

func get(t *testing.T, s *Server, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestPing(t *testing.T) {
	resp := get(t, newTestServer(), "/ping")
	b := body(t, resp)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(b, "pong ") {
		t.Fatalf("ping status %d body %q", resp.StatusCode, b)
	}
	if _, err := strconv.Atoi(strings.TrimPrefix(b, "pong ")); err != nil {
		t.Fatalf("uptime not numeric in %q", b)
	}
	if got := resp.Header.Get("Cache-Control"); got != "no-store" {
		t.Fatalf("Cache-Control = %q", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodDelete, "/ping", nil)
	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status %d, want 405", resp.StatusCode)
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer()
	s.OnStatus = func() Status {
		return Status{Device: "gotchi-test", Character: "もこ", HasMess: true}
	}
	resp := get(t, s, "/status")
	var st Status
	if err := json.Unmarshal([]byte(body(t, resp)), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Device != "gotchi-test" || st.Character != "もこ" || !st.HasMess {
		t.Fatalf("status %+v", st)
	}
}

func TestDiag(t *testing.T) {
	resp := get(t, newTestServer(), "/diag")
	if got := body(t, resp); !strings.Contains(got, "boot ok") {
		t.Fatalf("diag body %q", got)
	}
}

func TestBeepRoutes(t *testing.T) {
	s := newTestServer()
	var freq float64
	var ms int
	s.OnBeep = func(ctx context.Context, f float64, d int) error {
		freq, ms = f, d
		return nil
	}
	resp := get(t, s, "/beep")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("beep status %d", resp.StatusCode)
	}
	resp.Body.Close()
	if freq != 880 || ms != 120 {
		t.Fatalf("beep played %v Hz %v ms", freq, ms)
	}

	s.OnBeep2 = func(ctx context.Context) error { return errors.New("no speaker") }
	resp = get(t, s, "/beep2")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("beep2 status %d, want 500", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestMiotts(t *testing.T) {
	t.Run("pins and clears the host", func(t *testing.T) {
		s := newTestServer()
		var spec string
		s.OnSetTTSHost = func(v string) { spec = v }

		resp := get(t, s, "/miotts?host=voicebox&port=7860")
		resp.Body.Close()
		if spec != "voicebox:7860" {
			t.Fatalf("pinned %q", spec)
		}

		resp = get(t, s, "/miotts?clear=1")
		resp.Body.Close()
		if spec != "" {
			t.Fatalf("clear left %q", spec)
		}
	})

	t.Run("probe reports hit", func(t *testing.T) {
		s := newTestServer()
		var gotQuick bool
		s.OnProbe = func(ctx context.Context, quick bool) (string, bool) {
			gotQuick = quick
			return "miotts.local:8001/health 200 ct=application/json ms=12", true
		}
		resp := get(t, s, "/miotts?probe=quick")
		got := body(t, resp)
		if !gotQuick {
			t.Fatal("probe=quick did not request a quick scan")
		}
		if !strings.HasPrefix(got, "HIT\n") {
			t.Fatalf("probe body %q", got)
		}
	})

	t.Run("speak forwards the text", func(t *testing.T) {
		s := newTestServer()
		var text string
		s.OnSpeak = func(ctx context.Context, v string) error {
			text = v
			return nil
		}
		resp := get(t, s, "/miotts?speak=konnichiwa")
		resp.Body.Close()
		if text != "konnichiwa" {
			t.Fatalf("spoke %q", text)
		}
	})
}

func TestGesture(t *testing.T) {
	s := newTestServer()
	var got string
	s.OnGesture = func(g string) error {
		if g == "dance" {
			return errors.New("unknown gesture")
		}
		got = g
		return nil
	}

	resp := get(t, s, "/gesture?g=hold")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || got != "hold" {
		t.Fatalf("status %d, injected %q", resp.StatusCode, got)
	}

	resp = get(t, s, "/gesture?g=dance")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
}

func TestDownload(t *testing.T) {
	s := newTestServer()
	s.OnDownload = func() string { return "started" }
	resp := get(t, s, "/download")
	if got := body(t, resp); got != "download:started" {
		t.Fatalf("body %q", got)
	}
}

func TestFrame(t *testing.T) {
	s := newTestServer()
	s.OnFrame = func() ([]byte, error) { return []byte("\x89PNGfake"), nil }
	resp := get(t, s, "/frame")
	if got := resp.Header.Get("Content-Type"); got != "image/png" {
		t.Fatalf("Content-Type %q", got)
	}
	if got := body(t, resp); !strings.HasPrefix(got, "\x89PNG") {
		t.Fatalf("frame body %q", got)
	}
}

func TestUnconfiguredCallbacks(t *testing.T) {
	resp := get(t, newTestServer(), "/voice")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", resp.StatusCode)
	}
	resp.Body.Close()
}
