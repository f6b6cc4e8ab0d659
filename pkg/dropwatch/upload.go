package dropwatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"nutrivision/models"
	"nutrivision/pkg/oracle"
)

// ErrRejected is returned when the server answers with success:false.
var ErrRejected = errors.New("upload rejected")

// Uploader posts images to POST /api/analyze-food.
type Uploader struct {
	BaseURL  string
	Token    string // device bearer token, optional
	MaxBytes int64  // images above this are downscaled before upload, 0 disables
	Client   *http.Client
}

type analyzeResponse struct {
	Success bool                 `json:"success"`
	Data    *models.UploadRecord `json:"data"`
	Error   string               `json:"error"`
}

// Upload sends the image at path with the given weight in grams and returns
// the processing record the server created.
func (u Uploader) Upload(ctx context.Context, path string, weight float64) (*models.UploadRecord, error) {
	data, name, err := u.payload(path)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="foodImage"; filename="%s"`, escapeQuotes(name)))
	h.Set("Content-Type", oracle.MIMEByPath(name))
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.WriteField("weight", strconv.FormatFloat(weight, 'f', -1, 64)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(u.BaseURL, "/")+"/api/analyze-food", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if u.Token != "" {
		req.Header.Set("Authorization", "Bearer "+u.Token)
	}
	client := u.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", name, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var out analyzeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("post %s: status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if !out.Success || out.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrRejected, out.Error)
	}
	return out.Data, nil
}

// payload returns the bytes to upload, shrinking oversized images so they fit
// under MaxBytes.
func (u Uploader) payload(path string) ([]byte, string, error) {
	name := filepath.Base(path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	if u.MaxBytes <= 0 || int64(len(data)) <= u.MaxBytes {
		return data, name, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		// let the server report the size error
		return data, name, nil
	}
	// size roughly scales with area
	scale := math.Sqrt(float64(u.MaxBytes) / float64(len(data)))
	for attempt := 0; attempt < 4; attempt++ {
		w := int(math.Max(1, math.Round(float64(img.Bounds().Dx())*scale)))
		small := imaging.Resize(img, w, 0, imaging.Lanczos)
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, small, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
			return nil, "", err
		}
		if int64(buf.Len()) <= u.MaxBytes {
			return buf.Bytes(), strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg", nil
		}
		scale *= 0.8
	}
	return data, name, nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
