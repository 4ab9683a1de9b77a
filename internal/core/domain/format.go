package domain

import (
	"fmt"
	"strings"
)

// Format is an image encoding known to the conversion service.
type Format uint8

const (
	// Auto asks for the source format to be detected from content. It is not a valid target.
	Auto Format = iota
	HEIC
	WEBP
	AVIF
	PNG
	JPG
	GIF
	TIFF
)

type formatInfo struct {
	name      string
	extension string
	mimeType  string
}

var formats = map[Format]formatInfo{
	HEIC: {name: "heic", extension: ".heic", mimeType: "image/heic"},
	WEBP: {name: "webp", extension: ".webp", mimeType: "image/webp"},
	AVIF: {name: "avif", extension: ".avif", mimeType: "image/avif"},
	PNG:  {name: "png", extension: ".png", mimeType: "image/png"},
	JPG:  {name: "jpg", extension: ".jpg", mimeType: "image/jpeg"},
	GIF:  {name: "gif", extension: ".gif", mimeType: "image/gif"},
	TIFF: {name: "tiff", extension: ".tiff", mimeType: "image/tiff"},
}

var aliases = map[string]Format{
	"auto": Auto,
	"heic": HEIC,
	"heif": HEIC,
	"webp": WEBP,
	"avif": AVIF,
	"png":  PNG,
	"jpg":  JPG,
	"jpeg": JPG,
	"gif":  GIF,
	"tif":  TIFF,
	"tiff": TIFF,
}

// OutputFormats lists every format the service can produce, in display order.
var OutputFormats = []Format{HEIC, WEBP, AVIF, PNG, JPG, GIF, TIFF}

// ParseFormat resolves a user supplied name or file extension to a Format.
func ParseFormat(s string) (Format, error) {
	key := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	f, ok := aliases[key]
	if !ok {
		return Auto, NewError(InvalidFormat, fmt.Sprintf("unsupported format %q", s), nil)
	}

	return f, nil
}

// FormatFromMIME maps a MIME type to a concrete Format.
func FormatFromMIME(mimeType string) (Format, bool) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "image/heif" {
		return HEIC, true
	}

	for f, info := range formats {
		if info.mimeType == mimeType {
			return f, true
		}
	}

	return Auto, false
}

// IsOutput reports whether f is a concrete format the service can produce.
func (f Format) IsOutput() bool {
	_, ok := formats[f]
	return ok
}

func (f Format) String() string {
	if f == Auto {
		return "auto"
	}

	if info, ok := formats[f]; ok {
		return info.name
	}

	return fmt.Sprintf("format(%d)", uint8(f))
}

// Extension returns the file extension including the leading dot, or an empty string for Auto.
func (f Format) Extension() string {
	return formats[f].extension
}

// MIMEType returns the canonical MIME type, or an empty string for Auto.
func (f Format) MIMEType() string {
	return formats[f].mimeType
}
