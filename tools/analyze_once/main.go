// Command analyze_once runs one image through the analysis pipeline without
// the server: resize, optional label OCR, model call, normalization.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"nutrivision/models"
	"nutrivision/pkg/config"
	"nutrivision/pkg/imageprep"
	"nutrivision/pkg/normalize"
	"nutrivision/pkg/ocr"
	"nutrivision/pkg/oracle"
)

func main() {
	img := flag.String("img", "", "image file to analyze")
	weight := flag.Float64("weight", 100, "portion weight in grams")
	raw := flag.Bool("raw", false, "also print the raw model output")
	flag.Parse()
	if *img == "" {
		fmt.Println("usage: go run ./tools/analyze_once -img plate.jpg [-weight 250] [-raw]")
		os.Exit(2)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	p, _ := filepath.Abs(*img)
	fmt.Printf("Analyzing %s (%gg) with %s\n", p, *weight, cfg.LLM.Model)

	image, err := imageprep.Preparer{MaxDimension: cfg.Image.MaxDimension}.Load(p)
	if err != nil {
		log.Fatalf("load image: %v", err)
	}
	var label string
	if cfg.Image.LabelOCR {
		label, err = ocr.Reader{}.ReadLabel(context.Background(), p)
		if err != nil && !errors.Is(err, ocr.ErrNoText) {
			log.Printf("WARN label OCR: %v", err)
		}
		fmt.Printf("label text=%q\n", label)
	}

	client := oracle.New(oracle.Options{
		Endpoint:    cfg.LLM.Endpoint,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		Timeout:     cfg.LLM.Timeout(),
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
	out, err := client.Analyze(context.Background(), oracle.Request{Image: image, Weight: *weight, LabelText: label})
	if err != nil {
		log.Fatalf("analyze: %v", err)
	}
	if *raw {
		fmt.Printf("raw output:\n%s\n", out)
	}
	result, err := normalize.Normalize(out)
	if err != nil {
		log.Printf("WARN %v; showing fallback values", err)
		result = models.FallbackAnalysis()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
}
