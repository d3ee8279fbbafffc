package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pocketpet/gotchi/internal/httpc"
	"github.com/pocketpet/gotchi/internal/log"
	"github.com/pocketpet/gotchi/pkg/wav"
)

const (
	// DefaultPort is the transcription service port.
	DefaultPort = 8002

	// endpointPath accepts a raw WAV body, no multipart.
	endpointPath = "/v1/stt-raw"

	// DefaultTimeout bounds one transcription round trip.
	DefaultTimeout = 15 * time.Second

	maxResultBody = 16 << 10
)

// Client sends recordings to the transcription endpoint. The host
// follows the speech gateway: whichever host last served TTS audio is
// the best guess for where transcription lives too.
type Client struct {
	mu         sync.Mutex
	host       string
	port       int
	timeout    time.Duration
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHost sets the initial transcriber host.
func WithHost(host string) Option {
	return func(c *Client) { c.host = host }
}

// WithPort overrides the transcriber port.
func WithPort(port int) Option {
	return func(c *Client) {
		if port > 0 {
			c.port = port
		}
	}
}

// WithTimeout overrides the round-trip timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a transcription client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		port:       DefaultPort,
		timeout:    DefaultTimeout,
		httpClient: httpc.NewClient(DefaultTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetHost retargets the transcriber, typically after the TTS cascade
// discovers which gateway host is alive.
func (c *Client) SetHost(host string) {
	if host == "" {
		return
	}
	c.mu.Lock()
	c.host = host
	c.mu.Unlock()
}

// Transcribe sends pcm (mono 16-bit at SampleRate) and returns the
// recognized text. character is passed through so the server can answer
// in the right persona.
func (c *Client) Transcribe(ctx context.Context, pcm []byte, character string) (string, error) {
	if len(pcm) < MinBytes {
		return "", ErrTooShort
	}
	c.mu.Lock()
	host := c.host
	port := c.port
	c.mu.Unlock()
	if host == "" {
		return "", fmt.Errorf("stt: no transcriber host")
	}

	var body bytes.Buffer
	body.Grow(wav.HeaderSize + len(pcm))
	if err := wav.Encode(&body, SampleRate, pcm); err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://%s:%d%s", host, port, endpointPath)
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(actx, http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("X-Character", character)

	log.Debug("stt: sending", "url", url, "bytes", body.Len(), "character", character)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stt: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("stt: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResultBody))
	if err != nil {
		return "", fmt.Errorf("stt: %w", err)
	}
	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("stt: bad response: %w", err)
	}
	if result.Text == "" {
		return "", fmt.Errorf("stt: empty result")
	}
	log.Info("stt: result", "text", result.Text)
	return result.Text, nil
}
