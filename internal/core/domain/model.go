package domain

import "fmt"

// Dimensions is a requested output size in pixels.
type Dimensions struct {
	Width  int
	Height int
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// ConversionRequest describes a single conversion. Resize and Quality are optional.
type ConversionRequest struct {
	Source       []byte
	SourceFormat Format
	TargetFormat Format
	Resize       *Dimensions
	Quality      *int
}

type RequestOption func(*ConversionRequest)

// WithSourceFormat declares the source encoding instead of detecting it.
func WithSourceFormat(f Format) RequestOption {
	return func(r *ConversionRequest) {
		r.SourceFormat = f
	}
}

// WithResize requests output dimensions. Passing zero for both leaves the size unchanged.
func WithResize(width, height int) RequestOption {
	return func(r *ConversionRequest) {
		if width == 0 && height == 0 {
			r.Resize = nil
			return
		}
		r.Resize = &Dimensions{Width: width, Height: height}
	}
}

func WithQuality(quality int) RequestOption {
	return func(r *ConversionRequest) {
		r.Quality = &quality
	}
}

func NewConversionRequest(source []byte, target Format, opts ...RequestOption) ConversionRequest {
	r := ConversionRequest{
		Source:       source,
		SourceFormat: Auto,
		TargetFormat: target,
	}

	for _, opt := range opts {
		opt(&r)
	}

	return r
}

// ConversionResult holds converted image bytes. It is not modified after creation.
type ConversionResult struct {
	data   []byte
	format Format
}

func NewConversionResult(data []byte, format Format) ConversionResult {
	buf := make([]byte, len(data))
	copy(buf, data)

	return ConversionResult{data: buf, format: format}
}

// Bytes returns a copy of the converted image.
func (r ConversionResult) Bytes() []byte {
	buf := make([]byte, len(r.data))
	copy(buf, r.data)

	return buf
}

func (r ConversionResult) Format() Format {
	return r.format
}

func (r ConversionResult) Size() int {
	return len(r.data)
}

// Message is an incoming chat command with an optional attached file.
type Message struct {
	ID       int
	ChatID   int64
	Username string
	Text     string
	FileURL  string
	FileName string
}

type Action string

const (
	Typing            Action = "typing"
	UploadingDocument Action = "upload_document"
)
