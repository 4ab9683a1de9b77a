package command

import (
	"context"
	"errors"
	"imageconverter/internal/core/domain"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockTextSender struct {
	mu      sync.Mutex
	Message string
	err     error
}

func (m *MockTextSender) SendMessageReply(_ context.Context, _ *domain.Message, text string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Message = text
	return 1, m.err
}

func (m *MockTextSender) SendChatAction(_ context.Context, _ int64, _ domain.Action) {}

func (m *MockTextSender) NotifyAndReturnError(_ context.Context, err error, _ *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Message = err.Error()
	if m.err != nil {
		return m.err
	}
	return err
}

type MockDocumentSender struct {
	filename string
	file     []byte
	err      error
}

func (m *MockDocumentSender) SendDocumentReply(_ context.Context, _ *domain.Message, filename string, file []byte) error {
	m.filename = filename
	m.file = file
	return m.err
}

type MockConverter struct {
	request  domain.ConversionRequest
	called   bool
	response domain.ConversionResult
	err      error
}

func (m *MockConverter) Convert(_ context.Context, request domain.ConversionRequest) (domain.ConversionResult, error) {
	m.called = true
	m.request = request
	return m.response, m.err
}

type MockDownloader struct {
	url      string
	response []byte
	err      error
}

func (m *MockDownloader) Download(_ context.Context, url string) ([]byte, error) {
	m.url = url
	return m.response, m.err
}

type MockLimiter struct {
	allowed bool
	added   int64
}

func (m *MockLimiter) AddUsage(_ int64, bytes int64) {
	m.added += bytes
}

func (m *MockLimiter) CheckLimit(_ context.Context, _ int64) bool {
	return m.allowed
}

func TestParseConvertArgs(t *testing.T) {
	q := func(v int) *int { return &v }

	tests := []struct {
		name    string
		args    []string
		want    ConvertArgs
		wantErr bool
	}{
		{
			name: "format only",
			args: []string{"webp"},
			want: ConvertArgs{Target: domain.WEBP},
		},
		{
			name: "format with resize and quality",
			args: []string{"JPEG", "800x600", "q85"},
			want: ConvertArgs{Target: domain.JPG, Resize: &domain.Dimensions{Width: 800, Height: 600}, Quality: q(85)},
		},
		{
			name: "quality before resize",
			args: []string{"png", "quality=40", "10X20"},
			want: ConvertArgs{Target: domain.PNG, Resize: &domain.Dimensions{Width: 10, Height: 20}, Quality: q(40)},
		},
		{
			name:    "missing format",
			args:    nil,
			wantErr: true,
		},
		{
			name:    "unknown format",
			args:    []string{"bmp"},
			wantErr: true,
		},
		{
			name:    "auto is not a target",
			args:    []string{"auto"},
			wantErr: true,
		},
		{
			name:    "garbage argument",
			args:    []string{"png", "big"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseConvertArgs(tc.args)
			if tc.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestConvertArgsOptions(t *testing.T) {
	args, err := ParseConvertArgs([]string{"avif", "100x50", "q70"})
	require.NoError(t, err)

	req := domain.NewConversionRequest([]byte("x"), args.Target, args.Options()...)
	require.NotNil(t, req.Resize)
	assert.Equal(t, domain.Dimensions{Width: 100, Height: 50}, *req.Resize)
	require.NotNil(t, req.Quality)
	assert.Equal(t, 70, *req.Quality)
}

func TestNewConvert(t *testing.T) {
	c := NewConvert(&MockConverter{}, &MockDownloader{}, &MockTextSender{}, &MockDocumentSender{}, nil, "/convert")

	assert.NotNil(t, c)
	assert.Equal(t, "/convert", c.GetCommand())
}

func TestConvertRespond(t *testing.T) {
	tests := []struct {
		name          string
		message       *domain.Message
		converter     *MockConverter
		downloader    *MockDownloader
		docErr        error
		limiter       *MockLimiter
		wantErr       bool
		wantText      string
		wantFile      []byte
		wantFilename  string
		wantConverted bool
	}{
		{
			name:          "success",
			message:       &domain.Message{ID: 1, ChatID: 2, Text: "/convert webp q80", FileURL: "http://f/1", FileName: "IMG_1.HEIC"},
			converter:     &MockConverter{response: domain.NewConversionResult([]byte("webp!"), domain.WEBP)},
			downloader:    &MockDownloader{response: []byte("heic")},
			limiter:       &MockLimiter{allowed: true},
			wantFile:      []byte("webp!"),
			wantFilename:  "IMG_1.webp",
			wantConverted: true,
		},
		{
			name:          "photo without file name",
			message:       &domain.Message{ID: 1, ChatID: 2, Text: "/convert png", FileURL: "http://f/1"},
			converter:     &MockConverter{response: domain.NewConversionResult([]byte("png!"), domain.PNG)},
			downloader:    &MockDownloader{response: []byte("jpg")},
			wantFile:      []byte("png!"),
			wantFilename:  "converted.png",
			wantConverted: true,
		},
		{
			name:       "missing image",
			message:    &domain.Message{ID: 1, ChatID: 2, Text: "/convert webp"},
			converter:  &MockConverter{},
			downloader: &MockDownloader{},
			wantText:   domain.ErrMissingImage.Error(),
		},
		{
			name:       "bad arguments",
			message:    &domain.Message{ID: 1, ChatID: 2, Text: "/convert bmp", FileURL: "http://f/1"},
			converter:  &MockConverter{},
			downloader: &MockDownloader{},
			wantText:   convertUsage,
		},
		{
			name:       "quota exhausted",
			message:    &domain.Message{ID: 1, ChatID: 2, Text: "/convert gif", FileURL: "http://f/1"},
			converter:  &MockConverter{},
			downloader: &MockDownloader{},
			limiter:    &MockLimiter{allowed: false},
		},
		{
			name:       "download fails",
			message:    &domain.Message{ID: 1, ChatID: 2, Text: "/convert gif", FileURL: "http://f/1"},
			converter:  &MockConverter{},
			downloader: &MockDownloader{err: errors.New("mock error")},
			wantErr:    true,
			wantText:   "failed to fetch your image: mock error",
		},
		{
			name:    "conversion times out",
			message: &domain.Message{ID: 1, ChatID: 2, Text: "/convert gif", FileURL: "http://f/1"},
			converter: &MockConverter{
				err: domain.NewError(domain.Timeout, "no response", nil),
			},
			downloader:    &MockDownloader{response: []byte("png")},
			wantErr:       true,
			wantText:      "the converter took too long, try again later: timeout: no response",
			wantConverted: true,
		},
		{
			name:    "conversion auth failure",
			message: &domain.Message{ID: 1, ChatID: 2, Text: "/convert gif", FileURL: "http://f/1"},
			converter: &MockConverter{
				err: domain.NewError(domain.AuthFailure, "status 401", nil),
			},
			downloader:    &MockDownloader{response: []byte("png")},
			wantErr:       true,
			wantText:      "the converter rejected this bot's credentials, please tell the admin: auth failure: status 401",
			wantConverted: true,
		},
		{
			name:          "sending document fails",
			message:       &domain.Message{ID: 1, ChatID: 2, Text: "/convert tiff", FileURL: "http://f/1"},
			converter:     &MockConverter{response: domain.NewConversionResult([]byte("tiff!"), domain.TIFF)},
			downloader:    &MockDownloader{response: []byte("png")},
			docErr:        errors.New("mock error"),
			wantErr:       true,
			wantText:      "failed to send converted image: mock error",
			wantFile:      []byte("tiff!"),
			wantFilename:  "converted.tiff",
			wantConverted: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := &MockTextSender{}
			ds := &MockDocumentSender{err: tc.docErr}

			var c *Convert
			if tc.limiter != nil {
				c = NewConvert(tc.converter, tc.downloader, ts, ds, tc.limiter, "/convert")
			} else {
				c = NewConvert(tc.converter, tc.downloader, ts, ds, nil, "/convert")
			}

			err := c.Respond(t.Context(), time.Minute, tc.message)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			if tc.wantText != "" {
				assert.Contains(t, ts.Message, tc.wantText)
			}
			assert.Equal(t, tc.wantConverted, tc.converter.called)
			assert.Equal(t, tc.wantFile, ds.file)
			assert.Equal(t, tc.wantFilename, ds.filename)
		})
	}
}

func TestConvertRespondPassesRequest(t *testing.T) {
	mc := &MockConverter{response: domain.NewConversionResult([]byte("out"), domain.JPG)}
	md := &MockDownloader{response: []byte("source-bytes")}
	ml := &MockLimiter{allowed: true}

	c := NewConvert(mc, md, &MockTextSender{}, &MockDocumentSender{}, ml, "/convert")
	err := c.Respond(t.Context(), time.Minute,
		&domain.Message{ChatID: 9, Text: "/convert jpg 64x32 q10", FileURL: "http://files/img"})
	require.NoError(t, err)

	assert.Equal(t, "http://files/img", md.url)
	assert.Equal(t, []byte("source-bytes"), mc.request.Source)
	assert.Equal(t, domain.Auto, mc.request.SourceFormat)
	assert.Equal(t, domain.JPG, mc.request.TargetFormat)
	assert.Equal(t, &domain.Dimensions{Width: 64, Height: 32}, mc.request.Resize)
	require.NotNil(t, mc.request.Quality)
	assert.Equal(t, 10, *mc.request.Quality)
	assert.Equal(t, int64(len("source-bytes")), ml.added)
}

func TestFormatsRespond(t *testing.T) {
	ts := &MockTextSender{}
	f := NewFormats(ts, "/formats")
	assert.Equal(t, "/formats", f.GetCommand())

	require.NoError(t, f.Respond(t.Context(), time.Minute, &domain.Message{ChatID: 1}))
	assert.Contains(t, ts.Message, "heic, webp, avif, png, jpg, gif, tiff")
	assert.Contains(t, ts.Message, convertUsage)
}

func TestFormatsRespondSendFails(t *testing.T) {
	ts := &MockTextSender{err: errors.New("mock error")}

	err := NewFormats(ts, "/formats").Respond(t.Context(), time.Minute, &domain.Message{ChatID: 1})
	require.ErrorIs(t, err, domain.ErrSendingReplyFailed)
}
