package image

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/manash/cinestudio/internal/security"
	"github.com/manash/cinestudio/pkg/models"
)

var ErrNoFetcher = errors.New("no media fetcher configured")

// Fetcher downloads media bytes; the backend client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Saver struct {
	fetcher Fetcher
	dir     string
}

func NewSaver(fetcher Fetcher, dir string) *Saver {
	if dir == "" {
		dir = "."
	}
	return &Saver{fetcher: fetcher, dir: dir}
}

func (s *Saver) Dir() string {
	return s.dir
}

// DownloadFilename is the name a gallery item is saved under.
func DownloadFilename(rec *models.GenerationRecord) string {
	ext := "jpg"
	if rec.IsVideo() {
		ext = "mp4"
	}
	return fmt.Sprintf("cinema_studio_%d.%s", rec.ID, ext)
}

// Save writes rec's media into the saver's directory and returns the path.
func (s *Saver) Save(ctx context.Context, rec *models.GenerationRecord) (string, error) {
	path, err := security.SafeJoin(s.dir, DownloadFilename(rec))
	if err != nil {
		return "", err
	}
	if err := s.SaveTo(ctx, rec.URL, path); err != nil {
		return "", err
	}
	return path, nil
}

// SaveTo writes the media behind url to path, creating parent directories.
func (s *Saver) SaveTo(ctx context.Context, url, path string) error {
	data, err := s.Load(ctx, url)
	if err != nil {
		return err
	}

	if err := s.ensureDir(path); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Load returns the bytes behind a media URL, decoding inline images locally.
func (s *Saver) Load(ctx context.Context, url string) ([]byte, error) {
	if err := security.ValidateMediaURL(url); err != nil {
		return nil, err
	}

	if security.IsDataURL(url) {
		data, _, err := DecodeDataURL(url)
		return data, err
	}

	if s.fetcher == nil {
		return nil, ErrNoFetcher
	}
	data, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to download media: %w", err)
	}
	return data, nil
}

// DecodeDataURL splits a base64 data URL into its payload and MIME type.
func DecodeDataURL(s string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(strings.ToLower(header), "data:") {
		return nil, "", security.ErrMalformedData
	}

	meta := header[len("data:"):]
	mime, params, _ := strings.Cut(meta, ";")
	if !strings.Contains(strings.ToLower(params), "base64") {
		return nil, "", fmt.Errorf("%w: only base64 payloads are supported", security.ErrMalformedData)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", security.ErrMalformedData, err)
	}
	return data, mime, nil
}

// EncodeDataURL is the inverse of DecodeDataURL.
func EncodeDataURL(data []byte, mime string) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ReadAsDataURL loads a local file as an inline image for reference upload.
func ReadAsDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	mime := DetectMimeType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s is not an image", path)
	}
	return EncodeDataURL(data, mime), nil
}

func DetectMimeType(data []byte) string {
	switch {
	case len(data) >= 8 && string(data[:8]) == "\x89PNG\r\n\x1a\n":
		return "image/png"
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "image/jpeg"
	case len(data) >= 6 && (string(data[:6]) == "GIF87a" || string(data[:6]) == "GIF89a"):
		return "image/gif"
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func (s *Saver) ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}
