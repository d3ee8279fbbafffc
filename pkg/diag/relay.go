package diag

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pocketpet/gotchi/internal/httpc"
	"github.com/pocketpet/gotchi/internal/log"
)

// DefaultRelayInterval is how often the relay pushes a report.
const DefaultRelayInterval = 7 * time.Second

// Relay periodically POSTs a plain-text debug report to a collector so
// the pet can be debugged without a serial cable. A report is the device
// status header, a separator, then the ring contents oldest first.
type Relay struct {
	url      string
	device   string
	interval time.Duration
	client   *http.Client
	ring     *Ring

	// Status supplies extra key=value lines for the report header.
	// May be nil.
	Status func() []string
}

// RelayOption configures a Relay.
type RelayOption func(*Relay)

// WithRelayInterval overrides the push interval.
func WithRelayInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithRelayClient overrides the HTTP client.
func WithRelayClient(c *http.Client) RelayOption {
	return func(r *Relay) { r.client = c }
}

// NewRelay creates a relay pushing ring contents to url. device names
// this unit in the report header.
func NewRelay(url, device string, ring *Ring, opts ...RelayOption) *Relay {
	r := &Relay{
		url:      url,
		device:   device,
		interval: DefaultRelayInterval,
		client:   httpc.Client,
		ring:     ring,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run pushes reports until ctx is cancelled. Push failures are logged
// and do not stop the loop.
func (r *Relay) Run(ctx context.Context) {
	tick := time.NewTicker(r.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if err := r.Push(ctx); err != nil {
				log.Debug("diag: relay push failed", "error", err)
			}
		}
	}
}

// Push sends one report immediately. An empty ring is skipped without
// error.
func (r *Relay) Push(ctx context.Context) error {
	if r.url == "" || r.ring.Len() == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("gotchi debug report\n")
	fmt.Fprintf(&b, "device=%s\n", r.device)
	if r.Status != nil {
		for _, line := range r.Status() {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	fmt.Fprintf(&b, "diagSeq=%d\n", r.ring.Seq())
	b.WriteString("----\n")
	for _, line := range r.ring.Lines() {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader([]byte(b.String())))
	if err != nil {
		return fmt.Errorf("relay post: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay post: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("relay post: status %d", resp.StatusCode)
	}
	return nil
}
