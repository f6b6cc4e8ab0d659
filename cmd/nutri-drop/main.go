// Command nutri-drop acts as the weighing station: images saved into a folder
// are uploaded with the weight taken from the file name (plate_250g.jpg).
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"nutrivision/pkg/config"
	"nutrivision/pkg/dropwatch"
	"nutrivision/pkg/intake"
)

func main() {
	dir := flag.String("dir", "drop", "directory to watch for new images")
	server := flag.String("server", "http://localhost:3000", "analysis server base URL")
	weight := flag.Float64("weight", 100, "default weight in grams when the file name has none")
	workers := flag.Int("workers", 1, "concurrent uploads")
	flag.Parse()

	config.LoadDotEnv(".env")
	if err := os.MkdirAll(*dir, 0o755); err != nil {
		log.Fatalf("create %s: %v", *dir, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	relay := dropwatch.Relay{
		Uploader: dropwatch.Uploader{
			BaseURL:  *server,
			Token:    os.Getenv("DEVICE_TOKEN"),
			MaxBytes: intake.MaxFileSize,
		},
		DefaultWeight: *weight,
		DoneDir:       filepath.Join(*dir, "sent"),
		FailedDir:     filepath.Join(*dir, "failed"),
		Workers:       *workers,
	}
	if err := relay.Run(ctx, *dir); err != nil && ctx.Err() == nil {
		log.Fatalf("relay stopped: %v", err)
	}
}
