// Package imageprep loads a stored upload and turns it into the inline image
// sent to the model.
package imageprep

import (
	"bytes"
	"fmt"
	"image"
	"log"
	"os"

	"github.com/disintegration/imaging"

	"nutrivision/pkg/oracle"
)

// Preparer reads images from disk. With MaxDimension > 0, images whose longer
// side exceeds it are shrunk and re-encoded as JPEG; otherwise the original
// bytes are sent untouched.
type Preparer struct {
	MaxDimension int
	JPEGQuality  int
}

// Load returns the image ready for the oracle request.
func (p Preparer) Load(path string) (oracle.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return oracle.Image{}, fmt.Errorf("read image: %w", err)
	}
	img := oracle.Image{MIMEType: oracle.MIMEByPath(path), Data: data}
	if p.MaxDimension <= 0 {
		return img, nil
	}

	decoded, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		// formats imaging cannot read (svg, webp) go out as they are
		log.Printf("WARN image %s not decodable for resize, sending original: %v", path, err)
		return img, nil
	}
	b := decoded.Bounds()
	if b.Dx() <= p.MaxDimension && b.Dy() <= p.MaxDimension {
		return img, nil
	}
	resized := Fit(decoded, p.MaxDimension)
	var buf bytes.Buffer
	q := p.JPEGQuality
	if q <= 0 {
		q = 85
	}
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
		return oracle.Image{}, fmt.Errorf("encode resized image: %w", err)
	}
	log.Printf("resized %s from %dx%d to %dx%d (%d -> %d bytes)", path, b.Dx(), b.Dy(),
		resized.Bounds().Dx(), resized.Bounds().Dy(), len(data), buf.Len())
	return oracle.Image{MIMEType: "image/jpeg", Data: buf.Bytes()}, nil
}

// Fit scales img so that neither side exceeds size, keeping the aspect ratio.
func Fit(img image.Image, size int) *image.NRGBA {
	return imaging.Fit(img, size, size, imaging.Lanczos)
}
