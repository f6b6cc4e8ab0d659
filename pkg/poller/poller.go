// Package poller watches the server's latest-analysis endpoint and renders
// each new observation once.
package poller

import (
	"context"
	"log"
	"time"

	"github.com/bwmarrin/snowflake"
)

// DefaultInterval matches the display refresh of the kiosk page.
const DefaultInterval = 2 * time.Second

// Poller drives a Renderer from a Fetcher.
type Poller struct {
	Fetcher  Fetcher
	Renderer Renderer
	Interval time.Duration
	Now      func() time.Time

	seen      bool
	lastID    snowflake.ID
	lastStamp time.Time
	empty     bool
}

// Run polls immediately and then every Interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		p.Poll(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll performs one fetch and renders only when the (id, timestamp) pair changed.
func (p *Poller) Poll(ctx context.Context) {
	rec, err := p.Fetcher.Latest(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Printf("poll failed: %v", err)
		p.Renderer.ConnectionError(err, p.now())
		return
	}
	if rec == nil {
		if !p.empty {
			p.empty = true
			p.Renderer.Waiting()
		}
		return
	}
	p.empty = false
	if p.seen && rec.ID == p.lastID && rec.Timestamp.Equal(p.lastStamp) {
		return
	}
	p.seen = true
	p.lastID = rec.ID
	p.lastStamp = rec.Timestamp
	if rec.Status.Terminal() {
		p.Renderer.Results(*rec)
	} else {
		p.Renderer.Analyzing(*rec)
	}
}

func (p *Poller) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

var _ Fetcher = HTTPFetcher{}
var _ Renderer = TextRenderer{}
