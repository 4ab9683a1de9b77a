package file

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"
)

// Fetcher downloads files over HTTP. The zero value uses http.DefaultClient with no size limit.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewFetcher(client *http.Client, maxBytes int64) *Fetcher {
	return &Fetcher{client: client, maxBytes: maxBytes}
}

// Download returns the byte content of a file on a provided URL.
func (f *Fetcher) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		err = fmt.Errorf("error creating request: %w", err)
		log.Error().Err(err).Str("url", url).Send()
		return nil, err
	}

	client := f.client
	if client == nil {
		client = http.DefaultClient
	}

	res, err := client.Do(req)
	if err != nil {
		err = fmt.Errorf("error executing request: %w", err)
		log.Error().Err(err).Str("url", url).Send()
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		err = fmt.Errorf("unexpected status code on download: %d", res.StatusCode)
		log.Error().Err(err).Str("url", url).Send()
		return nil, err
	}

	var body io.Reader = res.Body
	if f.maxBytes > 0 {
		body = io.LimitReader(res.Body, f.maxBytes+1)
	}

	buf, err := io.ReadAll(body)
	if err != nil {
		err = fmt.Errorf("error reading response: %w", err)
		log.Error().Err(err).Str("url", url).Send()
		return nil, err
	}

	if f.maxBytes > 0 && int64(len(buf)) > f.maxBytes {
		err = fmt.Errorf("download exceeds %d bytes", f.maxBytes)
		log.Error().Err(err).Str("url", url).Send()
		return nil, err
	}

	return buf, nil
}

// ReadSource reads a local source image.
func ReadSource(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("error reading source file: %w", err)
		log.Error().Err(err).Str("path", path).Send()
		return nil, err
	}

	log.Debug().Str("path", path).Int("bytes", len(buf)).Msg("read source file")

	return buf, nil
}

// OutputPath derives the destination of a converted file: the source name with a new extension, placed in dir
// or next to the source when dir is empty.
func OutputPath(source, dir, extension string) string {
	base := filepath.Base(source)
	name := strings.TrimSuffix(base, filepath.Ext(base)) + extension

	if dir == "" {
		dir = filepath.Dir(source)
	}

	return filepath.Join(dir, name)
}

// WriteAtomic writes data to a uniquely named temp file in the destination directory and renames it into place,
// so readers never observe a partially written image.
func WriteAtomic(path string, data []byte) error {
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		err = fmt.Errorf("error creating output directory: %w", err)
		log.Error().Err(err).Str("dir", dir).Send()
		return err
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.tmp", id.String()))

	log.Debug().Int("bytes", len(data)).Str("path", tmp).Msg("creating temp file")

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		err = fmt.Errorf("error writing temp file: %w", err)
		log.Error().Err(err).Send()
		RemoveTempFile(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		err = fmt.Errorf("error moving temp file into place: %w", err)
		log.Error().Err(err).Str("path", path).Send()
		RemoveTempFile(tmp)
		return err
	}

	log.Debug().Str("path", path).Msg("wrote file")

	return nil
}

// RemoveTempFile removes a specified temporary file at the given path and logs success or failure.
func RemoveTempFile(path string) {
	err := os.Remove(path)
	if err != nil {
		log.Warn().Str("path", path).Err(err).Msg("could not clean up temp file")
		return
	}
	log.Debug().Str("path", path).Msg("cleaned up temp file")
}

// LocalStore exposes the local filesystem helpers as a port.FileStore.
type LocalStore struct{}

func (LocalStore) Read(path string) ([]byte, error) {
	return ReadSource(path)
}

func (LocalStore) Write(path string, data []byte) error {
	return WriteAtomic(path, data)
}
