// Package intake validates uploads, stores the image and creates the initial
// processing record.
package intake

import (
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"

	"nutrivision/models"
	"nutrivision/pkg/store"
)

// MaxFileSize is the upload ceiling (5MB).
const MaxFileSize = 5 * 1024 * 1024

// FieldName is the multipart field carrying the image; also used as the
// stored file name prefix.
const FieldName = "foodImage"

// Validator accepts uploads. It is safe for concurrent use.
type Validator struct {
	uploadDir  string
	publicBase string
	ids        *snowflake.Node
	store      store.Writer
	now        func() time.Time
}

// New returns a Validator writing images to uploadDir, which is served under
// publicBase (e.g. "/uploads").
func New(uploadDir, publicBase string, ids *snowflake.Node, w store.Writer) *Validator {
	return &Validator{
		uploadDir:  uploadDir,
		publicBase: "/" + strings.Trim(publicBase, "/"),
		ids:        ids,
		store:      w,
		now:        time.Now,
	}
}

// Accept validates the upload, persists the image and publishes a processing
// record. Bad input yields a *ValidationError and leaves no trace.
func (v *Validator) Accept(file *multipart.FileHeader, weight string) (models.UploadRecord, string, error) {
	if file == nil {
		return models.UploadRecord{}, "", invalid(MissingFile)
	}
	if !strings.HasPrefix(strings.ToLower(file.Header.Get("Content-Type")), "image/") {
		return models.UploadRecord{}, "", invalid(InvalidMimeType)
	}
	if file.Size > MaxFileSize {
		return models.UploadRecord{}, "", invalid(FileTooLarge)
	}
	w, err := ParseWeight(weight)
	if err != nil {
		return models.UploadRecord{}, "", err
	}

	name := StoredName(file.Filename)
	full := filepath.Join(v.uploadDir, name)
	n, err := saveFile(file, full)
	if err != nil {
		return models.UploadRecord{}, "", fmt.Errorf("save upload: %w", err)
	}
	img := models.ImageMetadata{
		Filename:     name,
		OriginalName: file.Filename,
		Size:         n,
		Path:         path.Join(v.publicBase, name),
	}
	rec := models.NewProcessing(v.ids.Generate(), img, w, v.now())
	v.store.Write(rec)
	return rec, full, nil
}

// ParseWeight accepts a strictly positive, finite number of grams.
func ParseWeight(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, invalid(InvalidWeight)
	}
	w, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
		return 0, invalid(InvalidWeight)
	}
	return w, nil
}

// StoredName generates the on-disk name: foodImage-<uuid><ext>.
func StoredName(original string) string {
	return FieldName + "-" + uuid.NewString() + safeExt(original)
}

func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 9 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func saveFile(file *multipart.FileHeader, dst string) (int64, error) {
	src, err := file.Open()
	if err != nil {
		return 0, err
	}
	defer src.Close()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	// the header size can lie; never store more than the ceiling
	n, err := io.Copy(out, io.LimitReader(src, MaxFileSize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > MaxFileSize {
		err = invalid(FileTooLarge)
	}
	if err != nil {
		_ = os.Remove(dst)
		return 0, err
	}
	return n, nil
}
