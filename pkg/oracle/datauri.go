package oracle

import (
	"encoding/base64"
	"path/filepath"
	"strings"
)

// MIMEByExt maps a file extension to the image type used in the data URI.
// Unknown extensions are sent as JPEG.
func MIMEByExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// MIMEByPath is MIMEByExt applied to the extension of path.
func MIMEByPath(path string) string {
	return MIMEByExt(filepath.Ext(path))
}

// DataURI encodes img inline, e.g. data:image/jpeg;base64,....
func DataURI(img Image) string {
	mime := img.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
