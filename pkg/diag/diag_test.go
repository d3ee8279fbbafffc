package diag

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestRing(t *testing.T) {
	t.Run("sequence numbers", func(t *testing.T) {
		r := NewRing()
		r.Append("first")
		r.Append("second")
		lines := r.Lines()
		if len(lines) != 2 {
			t.Fatalf("len = %d, want 2", len(lines))
		}
		if lines[0] != "[1] first" || lines[1] != "[2] second" {
			t.Fatalf("lines = %v", lines)
		}
		if r.Seq() != 3 {
			t.Fatalf("seq = %d, want 3", r.Seq())
		}
	})

	t.Run("evicts oldest when full", func(t *testing.T) {
		r := NewRing()
		for i := 0; i < LineCount+5; i++ {
			r.Append(fmt.Sprintf("line %d", i))
		}
		lines := r.Lines()
		if len(lines) != LineCount {
			t.Fatalf("len = %d, want %d", len(lines), LineCount)
		}
		if lines[0] != "[6] line 5" {
			t.Fatalf("oldest = %q, want [6] line 5", lines[0])
		}
		if lines[LineCount-1] != fmt.Sprintf("[%d] line %d", LineCount+5, LineCount+4) {
			t.Fatalf("newest = %q", lines[LineCount-1])
		}
	})

	t.Run("caps line length", func(t *testing.T) {
		r := NewRing()
		r.Append(strings.Repeat("x", 500))
		if got := len(r.Lines()[0]); got > lineLen+10 {
			t.Fatalf("stored line length = %d", got)
		}
	})

	t.Run("concurrent appends", func(t *testing.T) {
		r := NewRing()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					r.Append("x")
				}
			}()
		}
		wg.Wait()
		if r.Seq() != 801 {
			t.Fatalf("seq = %d, want 801", r.Seq())
		}
	})
}

func TestRelayPush(t *testing.T) {
	var mu sync.Mutex
	var body string
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		b, _ := io.ReadAll(req.Body)
		mu.Lock()
		body = string(b)
		contentType = req.Header.Get("Content-Type")
		mu.Unlock()
	}))
	defer srv.Close()

	ring := NewRing()
	ring.Append("boot ok")
	ring.Append("voice ready")

	relay := NewRelay(srv.URL, "test-pet", ring)
	relay.Status = func() []string {
		return []string{"wifi=connected", "speakerReady=1"}
	}
	if err := relay.Push(context.Background()); err != nil {
		t.Fatalf("Push: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.HasPrefix(contentType, "text/plain") {
		t.Fatalf("content type = %q", contentType)
	}
	for _, want := range []string{"device=test-pet", "wifi=connected", "diagSeq=3", "----", "[1] boot ok", "[2] voice ready"} {
		if !strings.Contains(body, want) {
			t.Fatalf("report missing %q:\n%s", want, body)
		}
	}
}

func TestRelaySkipsEmptyRing(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits++
	}))
	defer srv.Close()

	relay := NewRelay(srv.URL, "test-pet", NewRing())
	if err := relay.Push(context.Background()); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if hits != 0 {
		t.Fatal("empty ring must not be pushed")
	}
}

func TestRelayErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ring := NewRing()
	ring.Append("x")
	relay := NewRelay(srv.URL, "test-pet", ring)
	if err := relay.Push(context.Background()); err == nil {
		t.Fatal("want error on non-2xx status")
	}
}
