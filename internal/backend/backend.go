package backend

import (
	"context"
	"errors"

	"github.com/manash/cinestudio/pkg/models"
)

var (
	ErrBackend          = errors.New("backend request failed")
	ErrInvalidResponse  = errors.New("invalid backend response")
	ErrGenerationFailed = errors.New("generation failed")
	ErrMultishotFailed  = errors.New("multishot generation failed")
	ErrUpscaleFailed    = errors.New("upscale failed")
	ErrDownloadFailed   = errors.New("download failed")
)

// Backend is the studio's view of the generation service.
type Backend interface {
	History(ctx context.Context) ([]models.GenerationRecord, error)
	Uploads(ctx context.Context) ([]models.UploadRecord, error)
	Upload(ctx context.Context, base64Data string) error

	GenerateImage(ctx context.Context, req *models.GenerateImageRequest) (*models.GenerateImageResponse, error)
	GenerateVideo(ctx context.Context, req *models.GenerateVideoRequest) (*models.GenerateVideoResponse, error)

	Proxies(ctx context.Context, sourceID int64) ([]models.ProxyShot, error)
	GenerateMultishot(ctx context.Context, sourceID int64) (*models.MultishotResponse, error)
	UpscaleProxies(ctx context.Context, proxyIDs []int64) (*models.UpscaleResponse, error)

	SetFavorite(ctx context.Context, id int64, favorite bool) error
	Duplicate(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error

	// Fetch downloads the raw bytes behind a media URL.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Config struct {
	BaseURL    string
	TimeoutSec int
	Verbose    bool
}
