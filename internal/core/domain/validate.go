package domain

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MinQuality = 1
	MaxQuality = 100
)

// Validate checks a request without touching the network. All violations are InvalidFormat.
func Validate(r ConversionRequest) error {
	if len(r.Source) == 0 {
		return NewError(InvalidFormat, "empty source image", nil)
	}

	if r.SourceFormat != Auto && !r.SourceFormat.IsOutput() {
		return NewError(InvalidFormat, fmt.Sprintf("unsupported source format %s", r.SourceFormat), nil)
	}

	if !r.TargetFormat.IsOutput() {
		return NewError(InvalidFormat, fmt.Sprintf("unsupported target format %s", r.TargetFormat), nil)
	}

	if r.Resize != nil && (r.Resize.Width <= 0 || r.Resize.Height <= 0) {
		return NewError(InvalidFormat,
			fmt.Sprintf("resize needs both width and height positive, got %s", r.Resize), nil)
	}

	if r.Quality != nil && (*r.Quality < MinQuality || *r.Quality > MaxQuality) {
		return NewError(InvalidFormat,
			fmt.Sprintf("quality must be between %d and %d, got %d", MinQuality, MaxQuality, *r.Quality), nil)
	}

	return nil
}

// DetectFormat sniffs the image encoding from content.
func DetectFormat(data []byte) (Format, error) {
	mime := mimetype.Detect(data)

	for m := mime; m != nil; m = m.Parent() {
		if f, ok := FormatFromMIME(m.String()); ok {
			return f, nil
		}
	}

	return Auto, NewError(InvalidFormat, fmt.Sprintf("unsupported source content %s", mime.String()), nil)
}

// ResolveSourceFormat returns the declared source format, detecting it when set to Auto.
func ResolveSourceFormat(r ConversionRequest) (Format, error) {
	if r.SourceFormat != Auto {
		return r.SourceFormat, nil
	}

	return DetectFormat(r.Source)
}
