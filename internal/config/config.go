// Package config provides environment-backed configuration for gotchi.
// A .env file in the working directory is loaded automatically.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Defaults matching the device firmware.
const (
	DefaultDebugPort   = 8080
	DefaultSTTPort     = 8002
	DefaultHostname    = "atom-tamagotchi"
	DefaultVolume      = 30 // percent
	DefaultRelayURL    = ""
	DefaultTTSHost     = "" // empty: gateway + mDNS candidates
	DefaultVoiceURL    = "https://raw.githubusercontent.com/pdx-cs-sound/wavs/main/voice-note.wav"
	DefaultVoiceMirror = "https://cdn.jsdelivr.net/gh/pdx-cs-sound/wavs@main/voice-note.wav"
	DefaultBeepURL     = "https://raw.githubusercontent.com/pdx-cs-sound/wavs/main/overdrive.wav"
	DefaultBeepMirror  = "https://cdn.jsdelivr.net/gh/pdx-cs-sound/wavs@main/overdrive.wav"
)

func init() {
	// Missing .env is fine; env vars still apply.
	_ = godotenv.Load()
}

// Config holds the full application configuration.
type Config struct {
	LogLevel  string
	DebugPort int
	Hostname  string

	// TTS server override, "host" or "host:port". Empty enables the
	// gateway/mDNS candidate scan.
	TTSHost string

	// STT server port; host follows the last successful TTS host.
	STTPort int

	// Static WAV fallbacks: [tone][primary|mirror].
	VoiceURLs [2][2]string

	// Diagnostic relay target, empty disables relaying.
	RelayURL string

	// Speaker volume percent (0-100).
	Volume int
}

// Load reads configuration from the environment with firmware defaults.
func Load() Config {
	return Config{
		LogLevel:  getenv("GOTCHI_LOG_LEVEL", "info"),
		DebugPort: getint("GOTCHI_DEBUG_PORT", DefaultDebugPort),
		Hostname:  getenv("GOTCHI_HOSTNAME", DefaultHostname),
		TTSHost:   getenv("GOTCHI_TTS_HOST", DefaultTTSHost),
		STTPort:   getint("GOTCHI_STT_PORT", DefaultSTTPort),
		VoiceURLs: [2][2]string{
			{getenv("GOTCHI_VOICE_URL", DefaultVoiceURL), getenv("GOTCHI_VOICE_MIRROR", DefaultVoiceMirror)},
			{getenv("GOTCHI_BEEP_URL", DefaultBeepURL), getenv("GOTCHI_BEEP_MIRROR", DefaultBeepMirror)},
		},
		RelayURL: getenv("GOTCHI_RELAY_URL", DefaultRelayURL),
		Volume:   getint("GOTCHI_VOLUME", DefaultVolume),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
