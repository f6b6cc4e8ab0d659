// Package ocr reads printed label text (nutrition panels, ingredient lists)
// from food photos so it can be passed to the model as a hint.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Reader runs tesseract over a preprocessed copy of the image.
type Reader struct {
	Language string // tesseract language, default "eng"
	MaxChars int    // cap on the returned text, default 600
}

// ReadLabel returns the label text found in the image at path, or ErrNoText.
func (r Reader) ReadLabel(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, prepareLabel(img), imaging.PNG); err != nil {
		return "", fmt.Errorf("encode preprocessed image: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	lang := r.Language
	if lang == "" {
		lang = "eng"
	}
	if err := client.SetLanguage(lang); err != nil {
		return "", fmt.Errorf("tesseract language: %w", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("tesseract image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	text = normalizeOCRText(text)
	if !looksLikeLabel(text) {
		return "", ErrNoText
	}
	limit := r.MaxChars
	if limit <= 0 {
		limit = 600
	}
	log.Printf("label OCR %s: %q", path, snippet(text, 80))
	return snippet(text, limit), nil
}
