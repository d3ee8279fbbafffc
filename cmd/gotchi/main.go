// gotchi is a pocket pet: a little creature that reacts to button
// gestures, talks through whatever speech gateway it can find on the
// network, and exposes a debug server for poking at it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pocketpet/gotchi/internal/app"
	"github.com/pocketpet/gotchi/internal/config"
	"github.com/pocketpet/gotchi/internal/log"
)

func main() {
	cfg := parseFlags()
	log.Init(cfg.LogLevel)

	a := app.New(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("gotchi starting", "device", cfg.Hostname, "debug_port", cfg.DebugPort)
	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "gotchi: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags layers command line flags over the environment config.
func parseFlags() config.Config {
	cfg := config.Load()

	level := flag.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	port := flag.Int("port", cfg.DebugPort, "debug server port")
	hostname := flag.String("hostname", cfg.Hostname, "device name for reports")
	ttsHost := flag.String("tts-host", cfg.TTSHost, "pin the TTS gateway, host[:port] (default: scan)")
	sttPort := flag.Int("stt-port", cfg.STTPort, "transcription service port")
	relayURL := flag.String("relay-url", cfg.RelayURL, "debug report collector URL (empty disables)")
	volume := flag.Int("volume", cfg.Volume, "speaker volume percent")
	flag.Parse()

	cfg.LogLevel = *level
	cfg.DebugPort = *port
	cfg.Hostname = *hostname
	cfg.TTSHost = *ttsHost
	cfg.STTPort = *sttPort
	cfg.RelayURL = *relayURL
	cfg.Volume = *volume
	return cfg
}
