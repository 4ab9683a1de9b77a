package apiverve

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"imageconverter/internal/adapters/file"
	"imageconverter/internal/core/domain"
	"imageconverter/internal/core/port"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultEndpoint   = "https://api.apiverve.com/v1/imageconverter"
	DefaultTimeout    = 60 * time.Second
	DefaultMaxPayload = 10 << 20

	apiKeyHeader = "x-api-key"
	statusOK     = "ok"
	maxErrorBody = 4 << 10
)

// Client wraps the APIVerve image converter API. It holds no mutable state and is safe for concurrent use.
type Client struct {
	apiKey     string
	endpoint   string
	timeout    time.Duration
	maxPayload int64
	httpClient *http.Client
	downloader port.Downloader
}

type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithTimeout sets the deadline applied when the caller's context has none.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithMaxPayload(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPayload = n
		}
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithDownloader replaces the fetcher used to retrieve converted files from their download URL.
func WithDownloader(d port.Downloader) Option {
	return func(c *Client) {
		if d != nil {
			c.downloader = d
		}
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		endpoint:   DefaultEndpoint,
		timeout:    DefaultTimeout,
		maxPayload: DefaultMaxPayload,
		httpClient: &http.Client{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.downloader == nil {
		c.downloader = file.NewFetcher(c.httpClient, 0)
	}

	return c
}

type response struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Data   *data  `json:"data"`
	Code   int    `json:"code,omitempty"`
}

type data struct {
	ID           string `json:"id"`
	InputFormat  string `json:"inputFormat"`
	OutputFormat string `json:"outputFormat"`
	InputSize    int64  `json:"inputSize"`
	OutputSize   int64  `json:"outputSize"`
	MimeType     string `json:"mimeType"`
	Expires      int64  `json:"expires"`
	DownloadURL  string `json:"downloadURL"`
}

// Convert validates the request, submits it once and fetches the converted file. Every error it returns is a
// *domain.ConversionError.
func (c *Client) Convert(ctx context.Context, request domain.ConversionRequest) (domain.ConversionResult, error) {
	if err := domain.Validate(request); err != nil {
		return domain.ConversionResult{}, err
	}

	if c.apiKey == "" {
		return domain.ConversionResult{}, domain.NewError(domain.AuthFailure, "missing API key", nil)
	}

	if int64(len(request.Source)) > c.maxPayload {
		return domain.ConversionResult{}, domain.NewError(domain.PayloadTooLarge,
			fmt.Sprintf("source is %d bytes, limit is %d", len(request.Source), c.maxPayload), nil)
	}

	sourceFormat, err := domain.ResolveSourceFormat(request)
	if err != nil {
		return domain.ConversionResult{}, err
	}

	l := log.With().
		Str("source", sourceFormat.String()).
		Str("target", request.TargetFormat.String()).
		Int("bytes", len(request.Source)).
		Logger()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, contentType, err := encodeRequest(request, sourceFormat)
	if err != nil {
		return domain.ConversionResult{}, domain.NewError(domain.InvalidFormat, "error encoding request", err)
	}

	l.Debug().Msg("submitting conversion")

	res, err := c.post(ctx, payload, contentType)
	if err != nil {
		l.Error().Err(err).Msg("conversion request failed")
		return domain.ConversionResult{}, err
	}

	l.Debug().Str("id", res.ID).Str("outputFormat", res.OutputFormat).Int64("outputSize", res.OutputSize).
		Msg("conversion finished")

	converted, err := c.downloader.Download(ctx, res.DownloadURL)
	if err != nil {
		l.Error().Err(err).Str("id", res.ID).Msg("failed to fetch converted image")
		return domain.ConversionResult{}, classifyTransportError(err, "error fetching converted image")
	}

	if res.OutputSize > 0 && int64(len(converted)) != res.OutputSize {
		return domain.ConversionResult{}, domain.NewError(domain.RemoteFailure,
			fmt.Sprintf("converted image is %d bytes, expected %d", len(converted), res.OutputSize), nil)
	}

	format := request.TargetFormat
	if f, err := domain.ParseFormat(res.OutputFormat); err == nil && f.IsOutput() {
		format = f
	} else if f, ok := domain.FormatFromMIME(res.MimeType); ok {
		format = f
	}

	return domain.NewConversionResult(converted, format), nil
}

func encodeRequest(request domain.ConversionRequest, sourceFormat domain.Format) (*bytes.Buffer, string, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	part, err := w.CreateFormFile("image", "source"+sourceFormat.Extension())
	if err != nil {
		return nil, "", err
	}

	if _, err := part.Write(request.Source); err != nil {
		return nil, "", err
	}

	fields := map[string]string{
		"outputFormat": request.TargetFormat.String(),
	}

	if request.Resize != nil {
		fields["width"] = strconv.Itoa(request.Resize.Width)
		fields["height"] = strconv.Itoa(request.Resize.Height)
	}

	if request.Quality != nil {
		fields["quality"] = strconv.Itoa(*request.Quality)
	}

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf, w.FormDataContentType(), nil
}

func (c *Client) post(ctx context.Context, payload io.Reader, contentType string) (*data, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, payload)
	if err != nil {
		return nil, domain.NewError(domain.RemoteFailure, "error creating request", err)
	}

	req.Header.Add(apiKeyHeader, c.apiKey)
	req.Header.Add("Content-Type", contentType)
	req.Header.Add("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err, "error executing request")
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, classifyTransportError(err, "error reading response")
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return nil, domain.NewError(domain.AuthFailure, remoteMessage(res.StatusCode, body), nil)
	case res.StatusCode == http.StatusRequestEntityTooLarge:
		return nil, domain.NewError(domain.PayloadTooLarge, remoteMessage(res.StatusCode, body), nil)
	case res.StatusCode < 200 || res.StatusCode > 299:
		return nil, domain.NewError(domain.RemoteFailure, remoteMessage(res.StatusCode, body), nil)
	}

	var result response
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, domain.NewError(domain.RemoteFailure, "malformed response", err)
	}

	if result.Status != statusOK {
		msg := result.Error
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %q", result.Status)
		}
		return nil, domain.NewError(domain.RemoteFailure, msg, nil)
	}

	if result.Data == nil || result.Data.DownloadURL == "" {
		return nil, domain.NewError(domain.RemoteFailure, "response carries no download URL", nil)
	}

	return result.Data, nil
}

// remoteMessage prefers the error from the response envelope and falls back to the raw body.
func remoteMessage(status int, body []byte) string {
	var result response
	if err := json.Unmarshal(body, &result); err == nil && result.Error != "" {
		return fmt.Sprintf("status %d: %s", status, result.Error)
	}

	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Sprintf("status %d", status)
	}

	return fmt.Sprintf("status %d: %s", status, bytes.TrimSpace(body))
}

func classifyTransportError(err error, message string) error {
	var ce *domain.ConversionError
	if errors.As(err, &ce) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.NewError(domain.Timeout, message, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewError(domain.Timeout, message, err)
	}

	return domain.NewError(domain.RemoteFailure, message, err)
}
