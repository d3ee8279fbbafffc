package tts

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// The speech gateway runs one of several known server stacks, each with
// its own route and request shape. Rather than configure the exact
// flavor, the client enumerates every combination it knows and stops at
// the first one that answers with audio.

// fallbackHosts are tried when no host override or discovery result is
// available.
var fallbackHosts = []string{"miotts.local", "miotts", "audio.local", "localhost"}

// candidatePorts are the ports the known server stacks listen on, most
// likely first.
var candidatePorts = []int{8001, 7860, 80, 8080, 8000, 5000, 3000}

// endpoint is one known speech route.
type endpoint struct {
	path string
	post bool
}

// endpoints in probe order. The native gateway route comes first so a
// healthy install answers on the first attempt.
var endpoints = []endpoint{
	{"/v1/tts", true},
	{"/tts", true},
	{"/audio/speech", true},
	{"/v1/audio/speech", true},
	{"/v1/speech", true},
	{"/api/tts", true},
	{"/audio", false},
	{"/api/audio", false},
	{"/speak", true},
	{"/api/speak", true},
	{"/api/tts.mp3", false},
	{"/tts", false},
	{"/speak", false},
}

// payloadVariants is the number of request body shapes tried per POST
// endpoint (and query shapes per GET endpoint).
const payloadVariants = 9

const (
	presetDefault  = "jp_female"
	presetAlt      = "en_female"
	presetFallback = "jp_male"
	outputFormat   = "wav"
	voicePrimary   = "alloy"
	voiceFallback  = "nova"
	modelPrimary   = "tts-1"
	modelFallback  = "gpt-4o-mini-tts"
)

// Candidate is one fully-formed request attempt.
type Candidate struct {
	Method  string
	URL     string
	Host    string
	Port    int
	Path    string
	Payload []byte // nil for GET
}

// candidateIter lazily enumerates host x port x endpoint x payload
// without materializing the full product. Next returns attempts in
// priority order; quick mode cuts each host/port to the single native
// route and payload.
type candidateIter struct {
	hosts []string
	ports []int
	text  string
	quick bool

	h, p, e, v int
	// lastHost is the host index of the candidate Next yielded most
	// recently, so SkipHost knows when the cursor already moved on.
	lastHost int
	done     bool
}

func newCandidateIter(hosts []string, portOverride int, text string, quick bool) *candidateIter {
	ports := candidatePorts
	if portOverride > 0 {
		ports = []int{portOverride}
	}
	return &candidateIter{hosts: hosts, ports: ports, text: text, quick: quick}
}

// Next returns the next candidate, or ok=false when exhausted.
func (it *candidateIter) Next() (Candidate, bool) {
	if it.done || len(it.hosts) == 0 {
		return Candidate{}, false
	}

	endpointCount := len(endpoints)
	variantCount := payloadVariants
	if it.quick {
		endpointCount = 1
		variantCount = 1
	}

	host := it.hosts[it.h]
	port := it.ports[it.p]
	ep := endpoints[it.e]
	it.lastHost = it.h

	c := Candidate{Host: host, Port: port, Path: ep.path}
	base := "http://" + host
	if port != 80 {
		base = fmt.Sprintf("%s:%d", base, port)
	}
	if ep.post {
		c.Method = "POST"
		c.URL = base + ep.path
		c.Payload = []byte(buildPayload(it.text, it.v))
	} else {
		c.Method = "GET"
		c.URL = base + ep.path + "?" + buildQuery(it.text, it.v)
	}

	// Advance the cursor: payload fastest, host slowest.
	it.v++
	if it.v >= variantCount {
		it.v = 0
		it.e++
	}
	if it.e >= endpointCount {
		it.e = 0
		it.p++
	}
	if it.p >= len(it.ports) {
		it.p = 0
		it.h++
	}
	if it.h >= len(it.hosts) {
		it.done = true
	}
	return c, true
}

// SkipHost advances past the remaining candidates for the host of the
// last yielded candidate. Used when a whole host is clearly
// unreachable. No-op when the cursor already reached the next host.
func (it *candidateIter) SkipHost() {
	if it.done || it.h != it.lastHost {
		return
	}
	it.v, it.e, it.p = 0, 0, 0
	it.h++
	if it.h >= len(it.hosts) {
		it.done = true
	}
}

// buildPayload renders one of the known POST body shapes. Variants 0-5
// and 8 follow the native gateway schema with different voice presets;
// 6 and 7 follow the OpenAI speech schema.
func buildPayload(text string, variant int) string {
	esc := escapeJSON(text)
	switch variant % payloadVariants {
	case 0:
		return `{"text":"` + esc + `","reference":{"type":"preset","preset_id":"` + presetDefault + `"},"output":{"format":"` + outputFormat + `"}}`
	case 1:
		return `{"text":"` + esc + `","reference":{"type":"preset","preset_id":"` + presetAlt + `"},"output":{"format":"` + outputFormat + `"}}`
	case 2:
		return `{"text":"` + esc + `","reference":{"type":"preset","preset_id":"` + presetFallback + `"},"output":{"format":"` + outputFormat + `"}}`
	case 3:
		return `{"text":"` + esc + `","preset":"` + presetDefault + `","format":"` + outputFormat + `"}`
	case 4:
		return `{"text":"` + esc + `","reference":{"type":"preset","preset_id":"` + presetDefault + `"}}`
	case 5:
		return `{"text":"` + esc + `","reference":{"type":"preset","preset_id":"` + presetAlt + `"},"output":{"format":"` + outputFormat + `"}}`
	case 6:
		return `{"input":"` + esc + `","model":"` + modelPrimary + `","voice":"` + voicePrimary + `","response_format":"` + outputFormat + `"}`
	case 7:
		return `{"input":"` + esc + `","model":"` + modelFallback + `","voice":"` + voiceFallback + `","response_format":"` + outputFormat + `"}`
	default:
		return `{"text":"` + esc + `","reference":{"type":"preset","preset_id":"` + presetFallback + `"},"output":{"format":"` + outputFormat + `"},"llm":{"temperature":0.85}}`
	}
}

// buildQuery renders one of the known GET query shapes.
func buildQuery(text string, variant int) string {
	q := "text=" + url.QueryEscape(text)
	v := variant % payloadVariants
	if v > 0 {
		q += "&response_format=wav"
	}
	if v >= 4 && v <= 8 {
		q += "&speaker=0"
	}
	if v == 5 || v == 7 {
		q += "&voice=alloy"
	}
	if v == 6 || v == 8 {
		q += "&model=tts-1"
	}
	return q
}

// escapeJSON escapes text for direct embedding in a JSON string.
func escapeJSON(text string) string {
	b, _ := json.Marshal(text)
	return strings.TrimSuffix(strings.TrimPrefix(string(b), `"`), `"`)
}

// ParseHostOverride splits a user-supplied gateway spec ("host",
// "host:port", or a full URL) into host and optional port. An empty or
// unusable spec returns ok=false.
func ParseHostOverride(raw string) (host string, port int, ok bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "https://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, ':'); i > 0 {
		var p int
		if _, err := fmt.Sscanf(s[i+1:], "%d", &p); err == nil && p > 0 && p < 65536 {
			port = p
			s = s[:i]
		}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", 0, false
	}
	return s, port, true
}
