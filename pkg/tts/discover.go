package tts

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/mdns"

	"github.com/pocketpet/gotchi/internal/log"
)

// serviceType is the mDNS service a speech gateway advertises.
const serviceType = "_miotts._tcp"

// Gateway is one discovered speech gateway.
type Gateway struct {
	Name string
	Host string
	Port int
}

// Discoverer browses mDNS for speech gateways in the background and
// keeps the most recent results. Discovered gateways are tried before
// the static host fallbacks.
type Discoverer struct {
	interval time.Duration

	mu       sync.Mutex
	gateways []Gateway
}

// NewDiscoverer creates a discoverer that rescans at the given
// interval (default one minute).
func NewDiscoverer(interval time.Duration) *Discoverer {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Discoverer{interval: interval}
}

// Run browses until ctx is cancelled.
func (d *Discoverer) Run(ctx context.Context) {
	d.scan()
	tick := time.NewTicker(d.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			d.scan()
		}
	}
}

func (d *Discoverer) scan() {
	entries := make(chan *mdns.ServiceEntry, 8)
	var found []Gateway
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			if entry.AddrV4 == nil {
				continue
			}
			g := Gateway{Name: entry.Name, Host: entry.AddrV4.String(), Port: entry.Port}
			found = append(found, g)
			log.Debug("tts: gateway discovered", "name", g.Name, "host", g.Host, "port", g.Port)
		}
	}()

	params := mdns.DefaultParams(serviceType)
	params.Entries = entries
	params.Timeout = 2 * time.Second
	params.DisableIPv6 = true
	if err := mdns.Query(params); err != nil {
		log.Debug("tts: mdns query failed", "error", err)
	}
	close(entries)
	<-done

	if len(found) > 0 {
		d.mu.Lock()
		d.gateways = found
		d.mu.Unlock()
	}
}

// Gateways returns the most recently discovered gateways.
func (d *Discoverer) Gateways() []Gateway {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Gateway, len(d.gateways))
	copy(out, d.gateways)
	return out
}
