package port

import (
	"context"
	"imageconverter/internal/core/domain"
)

type ImageConverter interface {
	// Convert submits a single conversion and returns the converted image or a *domain.ConversionError.
	Convert(ctx context.Context, request domain.ConversionRequest) (domain.ConversionResult, error)
}

type Downloader interface {
	// Download returns the byte content found at url.
	Download(ctx context.Context, url string) ([]byte, error)
}

type FileStore interface {
	// Read returns the content of a local file.
	Read(path string) ([]byte, error)
	// Write stores data at path without exposing partially written content.
	Write(path string, data []byte) error
}
