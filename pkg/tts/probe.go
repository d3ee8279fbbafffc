package tts

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Probe paths in order of how cheaply each known server stack answers.
var probePaths = []string{
	"/health",
	"/v1/health",
	"/v1/presets",
	"/v1/models",
	"/v1/voices",
	"/docs",
	"/openapi.json",
	"/",
}

var quickProbePaths = []string{
	"/health",
	"/v1/presets",
	"/v1/health",
	"/v1/tts",
}

const (
	probeTimeout      = 2200 * time.Millisecond
	probeQuickTimeout = 750 * time.Millisecond
)

// Probe checks whether any gateway candidate is reachable. It returns a
// human-readable summary of the attempts and whether one answered 200.
// Once a host responds at all, its remaining ports are skipped: the
// service is either there or it is not.
func (c *Client) Probe(ctx context.Context, quick bool) (string, bool) {
	paths := probePaths
	timeout := probeTimeout
	if quick {
		paths = quickProbePaths
		timeout = probeQuickTimeout
	}

	c.mu.Lock()
	portOverride := c.portOverride
	c.mu.Unlock()
	ports := candidatePorts
	if portOverride > 0 {
		ports = []int{portOverride}
	}

	var lines []string
	for _, host := range c.hosts() {
		for _, port := range ports {
			base := "http://" + host
			if port != 80 {
				base = fmt.Sprintf("%s:%d", base, port)
			}
			anyForHost := false
			for _, path := range paths {
				if ctx.Err() != nil {
					return strings.Join(lines, "; "), false
				}
				code, ct, elapsed := c.probeOne(ctx, base+path, timeout)
				if code >= 0 {
					anyForHost = true
				}
				status := "ERR"
				if code >= 0 {
					status = fmt.Sprintf("%d", code)
				}
				if ct == "" {
					ct = "none"
				}
				line := fmt.Sprintf("%s:%d%s %s ct=%s ms=%d", host, port, path, status, ct, elapsed.Milliseconds())
				lines = append(lines, line)
				if code == http.StatusOK {
					return strings.Join(lines, "; "), true
				}
			}
			if anyForHost {
				break
			}
		}
	}
	if len(lines) == 0 {
		return "NO_RESPONSE", false
	}
	return strings.Join(lines, "; "), false
}

func (c *Client) probeOne(ctx context.Context, url string, timeout time.Duration) (int, string, time.Duration) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(actx, http.MethodGet, url, nil)
	if err != nil {
		return -1, "", 0
	}
	req.Header.Set("User-Agent", userAgent)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return -1, "", elapsed
	}
	defer resp.Body.Close()
	return resp.StatusCode, resp.Header.Get("Content-Type"), elapsed
}
