// Command nutri-watch is the terminal counterpart of the kiosk display: it
// polls the server and prints each new analysis once.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"nutrivision/pkg/poller"
)

func main() {
	server := flag.String("server", "http://localhost:3000", "analysis server base URL")
	interval := flag.Duration("interval", poller.DefaultInterval, "poll interval")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("Polling %s every %s ...", *server, *interval)
	p := &poller.Poller{
		Fetcher:  poller.HTTPFetcher{BaseURL: *server},
		Renderer: poller.TextRenderer{W: os.Stdout},
		Interval: *interval,
	}
	if err := p.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("poller stopped: %v", err)
	}
}
