// Package tts speaks through whatever speech gateway is reachable on
// the local network. It enumerates known hosts, ports, routes, and
// request shapes until one answers with playable WAV audio, then hands
// the stream to the caller's sink.
package tts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pocketpet/gotchi/internal/httpc"
	"github.com/pocketpet/gotchi/internal/log"
	"github.com/pocketpet/gotchi/pkg/wav"
)

const (
	// DefaultTimeout bounds one synthesis attempt.
	DefaultTimeout = 6 * time.Second

	// DefaultRetryDelay spaces consecutive attempts so a struggling
	// gateway is not hammered.
	DefaultRetryDelay = 140 * time.Millisecond

	// maxRefBody caps how much of a JSON/text response is read when
	// looking for an audio reference.
	maxRefBody = 64 << 10

	userAgent    = "gotchi/1.0"
	acceptHeader = "audio/wav, audio/x-wav, audio/wave, application/json, text/plain, */*"
)

// Sink consumes one WAV stream. A sink error sends the cascade on to
// the next candidate.
type Sink func(ctx context.Context, r *wav.Reader) error

// Attempt records the outcome of the most recent request for the debug
// surface.
type Attempt struct {
	Method      string    `json:"method"`
	Host        string    `json:"host"`
	Port        int       `json:"port"`
	Path        string    `json:"path"`
	Status      int       `json:"status"`
	ElapsedMs   int64     `json:"elapsed_ms"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Time        time.Time `json:"time"`
}

// Client finds and speaks through a speech gateway.
type Client struct {
	hostOverride string
	portOverride int
	timeout      time.Duration
	retryDelay   time.Duration
	quick        bool
	httpClient   *http.Client
	discoverer   *Discoverer

	mu   sync.Mutex
	last Attempt
}

// Option configures a Client.
type Option func(*Client)

// WithHost pins the gateway host. Accepts "host", "host:port", or a
// full URL; a port in the spec also pins the port.
func WithHost(spec string) Option {
	return func(c *Client) {
		if host, port, ok := ParseHostOverride(spec); ok {
			c.hostOverride = host
			if port > 0 {
				c.portOverride = port
			}
		}
	}
}

// WithPort pins the gateway port.
func WithPort(port int) Option {
	return func(c *Client) {
		if port > 0 {
			c.portOverride = port
		}
	}
}

// WithTimeout overrides the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetryDelay overrides the spacing between attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithQuickMode restricts the cascade to the native route and payload
// only. Used for latency-sensitive speech like reaction phrases.
func WithQuickMode(quick bool) Option {
	return func(c *Client) { c.quick = quick }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithDiscoverer attaches mDNS discovery; discovered gateways are tried
// before the static fallback hosts.
func WithDiscoverer(d *Discoverer) Option {
	return func(c *Client) { c.discoverer = d }
}

// NewClient creates a cascade client.
func NewClient(opts ...Option) *Client {
	// No overall client timeout: streaming bodies outlive any sane
	// request budget. Dial and TLS timeouts still apply.
	c := &Client{
		timeout:    DefaultTimeout,
		retryDelay: DefaultRetryDelay,
		httpClient: httpc.NewClient(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetHost changes the pinned gateway at runtime (debug override).
// An empty spec clears the override.
func (c *Client) SetHost(spec string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if spec == "" {
		c.hostOverride = ""
		c.portOverride = 0
		return
	}
	if host, port, ok := ParseHostOverride(spec); ok {
		c.hostOverride = host
		c.portOverride = port
	}
}

// LastAttempt returns the most recent request outcome.
func (c *Client) LastAttempt() Attempt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// hosts returns the candidate hosts in priority order: the override
// alone if pinned, else any discovered gateway followed by the static
// fallbacks, deduplicated.
func (c *Client) hosts() []string {
	c.mu.Lock()
	override := c.hostOverride
	c.mu.Unlock()
	if override != "" {
		return []string{override}
	}

	var out []string
	seen := map[string]bool{}
	add := func(h string) {
		if h != "" && !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	if c.discoverer != nil {
		for _, g := range c.discoverer.Gateways() {
			add(g.Host)
		}
	}
	for _, h := range fallbackHosts {
		add(h)
	}
	return out
}

// Speak synthesizes text and feeds the resulting WAV stream to sink.
// Candidates are tried in order until one both answers and plays; the
// first success wins and no further requests are made.
func (c *Client) Speak(ctx context.Context, text string, sink Sink) error {
	return c.speak(ctx, text, sink, c.quick)
}

// SpeakQuick restricts the cascade to the native route and payload for
// latency-sensitive speech, regardless of how the client was built.
func (c *Client) SpeakQuick(ctx context.Context, text string, sink Sink) error {
	return c.speak(ctx, text, sink, true)
}

func (c *Client) speak(ctx context.Context, text string, sink Sink, quick bool) error {
	if text == "" {
		return ErrEmptyText
	}
	c.mu.Lock()
	port := c.portOverride
	c.mu.Unlock()

	it := newCandidateIter(c.hosts(), port, text, quick)
	attempts := 0
	var lastErr error
	for {
		cand, ok := it.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		attempts++
		err := c.try(ctx, cand, sink)
		if err == nil {
			log.Info("tts: hit", "url", cand.URL, "attempts", attempts)
			return nil
		}
		lastErr = err
		log.Debug("tts: candidate failed", "method", cand.Method, "url", cand.URL, "error", err)
		if isHostDown(err) {
			// Connection never opened; no point walking the rest of
			// this host's routes.
			log.Debug("tts: host unreachable, skipping", "host", cand.Host)
			it.SkipHost()
			continue
		}
		if c.retryDelay > 0 {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	if lastErr != nil {
		return fmt.Errorf("%w after %d attempts: %v", ErrAllCandidatesFailed, attempts, lastErr)
	}
	return ErrAllCandidatesFailed
}

func (c *Client) try(ctx context.Context, cand Candidate, sink Sink) error {
	// The timeout covers time to response headers only; once audio is
	// flowing the stream reader's own idle accounting takes over, so a
	// clip longer than the timeout still plays out.
	actx, cancel := context.WithCancel(ctx)
	defer cancel()
	timer := time.AfterFunc(c.timeout, cancel)

	var body io.Reader
	if cand.Payload != nil {
		body = strings.NewReader(string(cand.Payload))
	}
	req, err := http.NewRequestWithContext(actx, cand.Method, cand.URL, body)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	if cand.Payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	timer.Stop()
	if err != nil {
		c.record(cand, -1, time.Since(start), 0, "")
		return err
	}
	defer resp.Body.Close()

	ct := resp.Header.Get("Content-Type")
	c.record(cand, resp.StatusCode, time.Since(start), resp.ContentLength, ct)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	switch {
	case looksWAV(ct) || ct == "" || strings.HasPrefix(ct, "application/octet-stream"):
		r := wav.NewReader(resp.Body, resp.ContentLength, 0)
		return sink(actx, r)

	case strings.Contains(ct, "audio/"):
		return fmt.Errorf("%w: %s", ErrUnsupportedAudio, ct)

	case strings.Contains(ct, "json") || strings.Contains(ct, "text/plain"):
		ref, err := extractAudioRef(io.LimitReader(resp.Body, maxRefBody))
		if err != nil {
			return err
		}
		return c.fetchRef(ctx, cand, ref, sink)

	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedAudio, ct)
	}
}

// fetchRef follows an audio URL returned in a JSON body. Relative paths
// are resolved against the candidate's base URL.
func (c *Client) fetchRef(ctx context.Context, cand Candidate, ref string, sink Sink) error {
	switch {
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
	case strings.HasPrefix(ref, "/"):
		base := "http://" + cand.Host
		if cand.Port != 80 {
			base = fmt.Sprintf("%s:%d", base, cand.Port)
		}
		ref = base + ref
	default:
		return fmt.Errorf("%w: %q", ErrBadAudioRef, ref)
	}

	actx, cancel := context.WithCancel(ctx)
	defer cancel()
	timer := time.AfterFunc(c.timeout, cancel)
	req, err := http.NewRequestWithContext(actx, http.MethodGet, ref, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	resp, err := c.httpClient.Do(req)
	timer.Stop()
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("audio ref status %d", resp.StatusCode)
	}
	return sink(actx, wav.NewReader(resp.Body, resp.ContentLength, 0))
}

// extractAudioRef pulls an audio location out of a JSON response body.
// The known gateways disagree on the key name.
func extractAudioRef(r io.Reader) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadAudioRef, err)
	}
	for _, key := range []string{"audio", "url", "path", "result"} {
		if s, ok := m[key].(string); ok && s != "" {
			return s, nil
		}
	}
	return "", ErrBadAudioRef
}

// isHostDown reports whether err is a dial failure, meaning the host
// refused or could not be reached at all.
func isHostDown(err error) bool {
	var oe *net.OpError
	return errors.As(err, &oe) && oe.Op == "dial"
}

func looksWAV(ct string) bool {
	return strings.Contains(ct, "audio/wav") ||
		strings.Contains(ct, "audio/x-wav") ||
		strings.Contains(ct, "audio/wave")
}

func (c *Client) record(cand Candidate, status int, elapsed time.Duration, size int64, ct string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = Attempt{
		Method:      cand.Method,
		Host:        cand.Host,
		Port:        cand.Port,
		Path:        cand.Path,
		Status:      status,
		ElapsedMs:   elapsed.Milliseconds(),
		Size:        size,
		ContentType: ct,
		Time:        time.Now(),
	}
}
