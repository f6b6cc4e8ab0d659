package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/bwmarrin/snowflake"

	"nutrivision/pkg/config"
	"nutrivision/pkg/dispatch"
	"nutrivision/pkg/imageprep"
	"nutrivision/pkg/intake"
	"nutrivision/pkg/ocr"
	"nutrivision/pkg/oracle"
	"nutrivision/pkg/store"
)

// publicUploads is the URL prefix stored images are served under.
const publicUploads = "/uploads"

// app holds the long-lived collaborators shared by the handlers.
type app struct {
	cfg        config.Config
	slot       *store.Slot
	intake     *intake.Validator
	dispatcher *dispatch.Dispatcher
}

func newApp(cfg config.Config) (*app, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", cfg.UploadDir, err)
	}
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node: %w", err)
	}
	slot := store.New()

	client := oracle.New(oracle.Options{
		Endpoint:    cfg.LLM.Endpoint,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		Timeout:     cfg.LLM.Timeout(),
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	dcfg := dispatch.Config{
		Analyzer:  client,
		Images:    imageprep.Preparer{MaxDimension: cfg.Image.MaxDimension},
		Store:     slot,
		Workers:   cfg.Dispatch.Workers,
		QueueSize: cfg.Dispatch.QueueSize,
	}
	if cfg.Image.LabelOCR {
		dcfg.Labels = ocr.Reader{}
		log.Printf("label OCR enabled")
	}

	return &app{
		cfg:        cfg,
		slot:       slot,
		intake:     intake.New(cfg.UploadDir, publicUploads, node, slot),
		dispatcher: dispatch.New(dcfg),
	}, nil
}

// close stops accepting analyses and waits for in-flight ones until ctx expires.
func (a *app) close(ctx context.Context) error {
	return a.dispatcher.Shutdown(ctx)
}
